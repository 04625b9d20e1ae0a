package services

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/Lllllllleong/lecturenotes/internal/gcp"
	"github.com/Lllllllleong/lecturenotes/internal/models"
)

// GCSEvent is the payload of a storage object finalized event.
type GCSEvent struct {
	Bucket string `json:"bucket"`
	Name   string `json:"name"`
}

// ObjectSource downloads the object an event points at.
type ObjectSource interface {
	Fetch(ctx context.Context, bucket, name string) (data []byte, contentType string, metadata map[string]string, err error)
}

// DuplicateFinder looks up a lecture already generated from the same file.
type DuplicateFinder interface {
	FindBySourceHash(ctx context.Context, hash string) (string, bool, error)
}

// EventIngestFunction runs PDFs dropped into a bucket through the pipeline.
// Object metadata keys unit, lectureTitle and prompt play the role of the
// upload form fields.
type EventIngestFunction struct {
	ingest     *IngestFunction
	objects    ObjectSource
	duplicates DuplicateFinder
}

func NewEventIngest(ctx context.Context) (*EventIngestFunction, error) {
	ingest, err := NewIngest(ctx)
	if err != nil {
		return nil, err
	}
	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		ingest.Close()
		return nil, fmt.Errorf("failed to create Storage client: %w", err)
	}
	// The Firestore registry doubles as the duplicate index when configured.
	duplicates, _ := ingest.deps.Registry.(DuplicateFinder)
	slog.Info("Event ingest initialized.", "deduplicate", duplicates != nil)
	return NewEventIngestFunction(ingest, gcp.NewBucketObjectSource(storageClient), duplicates), nil
}

// NewEventIngestFunction builds the function; duplicates may be nil.
func NewEventIngestFunction(ingest *IngestFunction, objects ObjectSource, duplicates DuplicateFinder) *EventIngestFunction {
	return &EventIngestFunction{ingest: ingest, objects: objects, duplicates: duplicates}
}

// Process ingests the object named by e. Only failures to read the object or
// the duplicate index are returned. Once the file enters the pipeline a
// failure is terminal: it is logged and the event is acknowledged.
func (f *EventIngestFunction) Process(ctx context.Context, e GCSEvent) error {
	logCtx := slog.With("gcsBucket", e.Bucket, "gcsObject", e.Name)
	if !strings.EqualFold(filepath.Ext(e.Name), ".pdf") {
		logCtx.Info("Ignoring non-PDF object.")
		return nil
	}
	logCtx.Info("Processing new GCS object.")

	data, contentType, metadata, err := f.objects.Fetch(ctx, e.Bucket, e.Name)
	if err != nil {
		logCtx.Error("Failed to download source PDF", "error", err)
		return err
	}

	fileHash := SourceHash(data)
	logCtx = logCtx.With("fileHash", fileHash)
	if f.duplicates != nil {
		existing, found, err := f.duplicates.FindBySourceHash(ctx, fileHash)
		if err != nil {
			logCtx.Error("Failed to check for duplicate", "error", err)
			return err
		}
		if found {
			logCtx.Info("Duplicate file detected. Skipping.", "existingLectureId", existing)
			return nil
		}
	}

	res, err := f.ingest.Process(ctx, &models.UploadRequest{
		Filename: filepath.Base(e.Name),
		MIMEType: contentType,
		Data:     data,
		Prompt:   metadata["prompt"],
		Unit:     metadata["unit"],
		Title:    metadata["lectureTitle"],
	})
	if err != nil {
		if IsInputError(err) {
			logCtx.Warn("Rejected uploaded object.", "error", err)
		} else {
			logCtx.Error("Lecture ingest from bucket failed; re-upload to retry.", "stage", StageOf(err), "error", err)
		}
		return nil
	}
	logCtx.Info("Lecture published from bucket.", "lectureId", res.Data.LectureID)
	return nil
}
