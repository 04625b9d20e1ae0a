package main

import (
	"context"
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
	editorHandler http.Handler
	once          sync.Once
	initErr       error
)

func init() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)
	gcp.LoadDotEnv()

	functions.HTTP("HandleLectureEditor", handleLectureEditor)
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
	editor, err := services.NewEditor(ctx)
	if err != nil {
		return nil, err
	}
	return auth.RequireAdmin(tokens, &handlers.Editor{Editor: editor}), nil
}

func handleLectureEditor(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		editorHandler, initErr = setup(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}
	editorHandler.ServeHTTP(w, r)
}
