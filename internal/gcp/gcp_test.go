package gcp

import (
	"testing"
	"time"

	"cloud.google.com/go/vertexai/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractTextConcatenatesTextParts(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{
				genai.Text("<div>"),
				genai.Blob{MIMEType: "image/png", Data: []byte{1}},
				genai.Text("</div>"),
			}},
		}},
	}
	assert.Equal(t, "<div></div>", extractText(resp))
}

func TestExtractTextHandlesEmptyResponses(t *testing.T) {
	assert.Empty(t, extractText(nil))
	assert.Empty(t, extractText(&genai.GenerateContentResponse{}))
	assert.Empty(t, extractText(&genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{}},
	}))
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("LN_TEST_INT", "7")
	t.Setenv("LN_TEST_BAD_INT", "seven")
	t.Setenv("LN_TEST_DURATION", "90s")

	assert.Equal(t, "fallback", GetEnv("LN_TEST_UNSET", "fallback"))

	n, err := GetEnvInt("LN_TEST_INT", 5)
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	n, err = GetEnvInt("LN_TEST_UNSET", 5)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	_, err = GetEnvInt("LN_TEST_BAD_INT", 5)
	assert.ErrorContains(t, err, "LN_TEST_BAD_INT")

	d, err := GetEnvDuration("LN_TEST_DURATION", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, d)

	d, err = GetEnvDuration("LN_TEST_UNSET", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, time.Minute, d)
}
