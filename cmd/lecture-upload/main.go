package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/Lllllllleong/lecturenotes/internal/auth"
	"github.com/Lllllllleong/lecturenotes/internal/gcp"
	"github.com/Lllllllleong/lecturenotes/internal/handlers"
	"github.com/Lllllllleong/lecturenotes/internal/services"
)

var (
	uploadHandler http.Handler
	once          sync.Once
	initErr       error
)

func init() {
	// --- Set up structured logging ---
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)
	gcp.LoadDotEnv()

	// "HandleUploadLecture" is the entry point name configured in GCP.
	functions.HTTP("HandleUploadLecture", handleUploadLecture)
}

// main is required by the Go Functions Framework.
func main() {}

func setup(ctx context.Context) (http.Handler, error) {
	authCfg, err := auth.LoadConfig()
	if err != nil {
		return nil, err
	}
	tokens, err := auth.NewTokenManager(authCfg.Secret, auth.DefaultTokenTTL, nil)
	if err != nil {
		return nil, err
	}
	ingest, err := services.NewIngest(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ingest: %w", err)
	}
	return auth.RequireAdmin(tokens, &handlers.Upload{Ingest: ingest}), nil
}

// handleUploadLecture accepts an admin PDF upload and runs it through the
// two stage pipeline.
func handleUploadLecture(w http.ResponseWriter, r *http.Request) {
	// Use sync.Once for robust, one-time initialization of clients.
	once.Do(func() {
		uploadHandler, initErr = setup(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}
	uploadHandler.ServeHTTP(w, r)
}
