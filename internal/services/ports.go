package services

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Lllllllleong/lecturenotes/internal/models"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Completer is the text-completion service behind both pipeline stages.
// Implementations must treat ctx expiry as a failed call.
type Completer interface {
	Complete(ctx context.Context, parts ...models.Part) (string, error)
}

// UploadSink keeps the original uploaded file once a lecture is published.
type UploadSink interface {
	// Save stores data under name and returns a locator for it.
	Save(ctx context.Context, name, contentType string, data []byte) (string, error)
}

// Registry indexes published lectures.
type Registry interface {
	Record(ctx context.Context, lecture models.Lecture) error
}

// Notifier is told about every published lecture.
type Notifier interface {
	LecturePublished(ctx context.Context, lecture models.Lecture) error
}

// PDFInspector checks an upload before any model call is made.
type PDFInspector interface {
	// PageCount returns the number of pages, or an error if data is not a
	// readable PDF.
	PageCount(data []byte) (int, error)
}

// PdfcpuInspector validates uploads with pdfcpu in relaxed mode.
type PdfcpuInspector struct{}

func (PdfcpuInspector) PageCount(data []byte) (int, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	n, err := api.PageCount(bytes.NewReader(data), conf)
	if err != nil {
		return 0, fmt.Errorf("failed to read PDF: %w", err)
	}
	return n, nil
}

// LocalUploadSink writes uploads into a directory served under URLPrefix.
type LocalUploadSink struct {
	Dir       string
	URLPrefix string
}

func (s LocalUploadSink) Save(_ context.Context, name, _ string, data []byte) (string, error) {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create uploads dir: %w", err)
	}
	path := filepath.Join(s.Dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to save upload %s: %w", name, err)
	}
	return s.URLPrefix + "/" + name, nil
}
