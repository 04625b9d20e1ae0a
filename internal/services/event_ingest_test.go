package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeObjects struct {
	data     []byte
	metadata map[string]string
	err      error
	fetched  int
}

func (o *fakeObjects) Fetch(context.Context, string, string) ([]byte, string, map[string]string, error) {
	o.fetched++
	return o.data, "application/pdf", o.metadata, o.err
}

type fakeDuplicates struct {
	hashes map[string]string
}

func (d fakeDuplicates) FindBySourceHash(_ context.Context, hash string) (string, bool, error) {
	id, ok := d.hashes[hash]
	return id, ok, nil
}

func TestEventIngestUsesObjectMetadata(t *testing.T) {
	h := newHarness(t)
	objects := &fakeObjects{
		data:     []byte("%PDF-1.4 bucket"),
		metadata: map[string]string{"unit": "unit2", "lectureTitle": "From bucket"},
	}
	registry := &recordingRegistry{}
	h.deps.Registry = registry
	f := NewEventIngestFunction(NewIngestFunction(h.deps), objects, nil)

	require.NoError(t, f.Process(context.Background(), GCSEvent{Bucket: "in", Name: "lectures/week3.PDF"}))

	require.Len(t, registry.lectures, 1)
	rec := registry.lectures[0]
	assert.Equal(t, "week3.PDF", rec.OriginalFilename)
	assert.Equal(t, "unit2", rec.Unit)
	assert.Equal(t, SourceHash(objects.data), rec.SourceHash)
	assert.Contains(t, h.transcriber.calls[0][0].Text, "<h1>From bucket</h1>")
}

func TestEventIngestSkips(t *testing.T) {
	h := newHarness(t)
	data := []byte("%PDF-1.4 seen before")
	objects := &fakeObjects{data: data}
	dupes := fakeDuplicates{hashes: map[string]string{SourceHash(data): "lecture_20240101_120000"}}
	f := NewEventIngestFunction(NewIngestFunction(h.deps), objects, dupes)

	require.NoError(t, f.Process(context.Background(), GCSEvent{Bucket: "in", Name: "notes.txt"}))
	assert.Zero(t, objects.fetched, "non-PDF objects are not downloaded")

	require.NoError(t, f.Process(context.Background(), GCSEvent{Bucket: "in", Name: "old.pdf"}))
	assert.Zero(t, h.transcriber.callCount(), "duplicates never reach the model")

	objects.data = []byte("%PDF-1.4 new")
	objects.metadata = map[string]string{"unit": "unit99"}
	assert.NoError(t, f.Process(context.Background(), GCSEvent{Bucket: "in", Name: "bad-unit.pdf"}),
		"input errors are not retried")
	assert.Zero(t, h.transcriber.callCount())
}

func TestEventIngestFailureHandling(t *testing.T) {
	h := newHarness(t)
	h.transcriber.err = errors.New("model down")
	f := NewEventIngestFunction(NewIngestFunction(h.deps), &fakeObjects{data: []byte("%PDF")}, nil)

	assert.NoError(t, f.Process(context.Background(), GCSEvent{Bucket: "in", Name: "a.pdf"}),
		"pipeline failures are terminal")
	assert.Equal(t, 1, h.transcriber.callCount())

	f = NewEventIngestFunction(NewIngestFunction(h.deps), &fakeObjects{err: errors.New("403")}, nil)
	assert.Error(t, f.Process(context.Background(), GCSEvent{Bucket: "in", Name: "a.pdf"}))
}
