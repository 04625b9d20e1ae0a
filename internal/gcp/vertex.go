package gcp

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/vertexai/genai"
	"github.com/Lllllllleong/lecturenotes/internal/models"
)

// --- Transcriber Model Prompts ---
const TranscriberSystemPrompt = "You are an expert educational content transcriber specializing in mathematics and engineering. You convert PDF lecture notes into well-structured HTML with all mathematics written as LaTeX. Completeness and accuracy come before everything else."

// --- Enhancer Model Prompts ---
const EnhancerSystemPrompt = "You are an educational content designer for STEM subjects. You restructure lecture HTML for comprehension and retention without ever dropping or altering its content."

// VertexClient holds the pre-configured generative models used by the
// lecture pipeline.
type VertexClient struct {
	TranscriberModel *genai.GenerativeModel
	EnhancerModel    *genai.GenerativeModel
	baseClient       *genai.Client
}

// NewVertexClient creates a new client holding both pipeline models.
func NewVertexClient(ctx context.Context, projectID, region, modelName string) (*VertexClient, error) {
	if projectID == "" || region == "" {
		return nil, fmt.Errorf("NewVertexClient: projectID and region cannot be empty")
	}
	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}

	baseClient, err := genai.NewClient(ctx, projectID, region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	// --- Configure the transcriber model ---
	transcriberModel := baseClient.GenerativeModel(modelName)
	transcriberModel.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(TranscriberSystemPrompt)},
	}
	transcriberModel.GenerationConfig = genai.GenerationConfig{
		ResponseMIMEType: "text/plain",
		Temperature:      genai.Ptr[float32](0.1), // Transcription must stay faithful
	}

	// --- Configure the enhancer model ---
	enhancerModel := baseClient.GenerativeModel(modelName)
	enhancerModel.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(EnhancerSystemPrompt)},
	}
	enhancerModel.GenerationConfig = genai.GenerationConfig{
		ResponseMIMEType: "text/plain",
		Temperature:      genai.Ptr[float32](0.4),
	}

	return &VertexClient{
		TranscriberModel: transcriberModel,
		EnhancerModel:    enhancerModel,
		baseClient:       baseClient,
	}, nil
}

// Transcriber returns a completer backed by the transcriber model.
func (c *VertexClient) Transcriber() *GeminiCompleter {
	return &GeminiCompleter{model: c.TranscriberModel}
}

// Enhancer returns a completer backed by the enhancer model.
func (c *VertexClient) Enhancer() *GeminiCompleter {
	return &GeminiCompleter{model: c.EnhancerModel}
}

func (c *VertexClient) Close() error {
	if c.baseClient != nil {
		return c.baseClient.Close()
	}
	return nil
}

// GeminiCompleter sends prompt parts to one Gemini model and returns the
// concatenated text of the first candidate.
type GeminiCompleter struct {
	model *genai.GenerativeModel
}

func (g *GeminiCompleter) Complete(ctx context.Context, parts ...models.Part) (string, error) {
	genaiParts := make([]genai.Part, 0, len(parts))
	for _, p := range parts {
		if p.IsBlob() {
			genaiParts = append(genaiParts, genai.Blob{MIMEType: p.MIMEType, Data: p.Data})
			continue
		}
		genaiParts = append(genaiParts, genai.Text(p.Text))
	}

	resp, err := g.model.GenerateContent(ctx, genaiParts...)
	if err != nil {
		return "", fmt.Errorf("failed to generate content from gemini: %w", err)
	}
	return extractText(resp), nil
}

// extractText parses the model's response and robustly extracts text content.
func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return ""
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	return b.String()
}
