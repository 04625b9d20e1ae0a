package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/Lllllllleong/lecturenotes/internal/models"
)

// Stage labels the part of an ingest run that failed.
type Stage string

const (
	StageInput         Stage = "input"
	StageTranscription Stage = "stage1"
	StageEnhancement   Stage = "stage2"
	StageBackup        Stage = "backup"
	StagePersist       Stage = "persist"
	StageUpload        Stage = "upload"
	StageUnknown       Stage = "unknown"
)

var (
	ErrNoFile          = errors.New("no file uploaded")
	ErrUnknownUnit     = errors.New("unknown unit")
	ErrNotPDF          = errors.New("upload is not a readable PDF")
	ErrEmptyCompletion = errors.New("model returned no content")
	ErrRefusal         = errors.New("model refused the request")
	ErrLectureNotFound = errors.New("lecture not found")
)

// StageError is a failed ingest run. It keeps the original cause so callers
// can still inspect it with errors.Is and errors.As.
type StageError struct {
	Stage   Stage
	Message string
	Err     error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Stage, e.Message, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// StageOf returns the stage label carried by err, or StageUnknown.
func StageOf(err error) Stage {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return StageUnknown
}

// IsInputError reports whether err was caused by a bad request rather than a
// processing failure.
func IsInputError(err error) bool {
	return StageOf(err) == StageInput
}

// NewErrorResponse builds the failure body returned to the admin UI.
func NewErrorResponse(summary string, err error, now time.Time) models.ErrorResponse {
	return models.ErrorResponse{
		Success: false,
		Error:   summary,
		Details: models.ErrorDetails{
			Message:   err.Error(),
			Stage:     string(StageOf(err)),
			Timestamp: now.UTC().Format(time.RFC3339),
		},
	}
}
