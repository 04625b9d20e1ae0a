package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/Lllllllleong/lecturenotes/internal/gcp"
	"github.com/Lllllllleong/lecturenotes/internal/services"
	cloudevents "github.com/cloudevents/sdk-go/v2"
)

var (
	eventIngestInstance *services.EventIngestFunction
	once                sync.Once
	initErr             error
)

func init() {
	// --- Set up structured logging ---
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)
	gcp.LoadDotEnv()

	// Register the CloudEvent function. The framework will handle routing the event here.
	functions.CloudEvent("IngestLecture", ingestLecture)
}

// main is required by the Go Functions Framework.
func main() {}

// ingestLecture runs a PDF finalized in the ingest bucket through the
// lecture pipeline.
func ingestLecture(ctx context.Context, e cloudevents.Event) error {
	once.Do(func() {
		eventIngestInstance, initErr = services.NewEventIngest(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		return initErr
	}

	var gcsEvent services.GCSEvent
	if err := json.Unmarshal(e.Data(), &gcsEvent); err != nil {
		slog.Error("Failed to unmarshal event data", "error", err, "data", string(e.Data()))
		return fmt.Errorf("json.Unmarshal: %w", err)
	}

	// Returning an error marks the invocation as failed.
	return eventIngestInstance.Process(ctx, gcsEvent)
}
