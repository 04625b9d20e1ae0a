package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/Lllllllleong/lecturenotes/internal/gcp"
	"github.com/Lllllllleong/lecturenotes/internal/handlers"
	"github.com/Lllllllleong/lecturenotes/internal/services"
)

var (
	catalogHandler *handlers.Catalog
	once           sync.Once
	initErr        error
)

func init() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)
	gcp.LoadDotEnv()

	// Public endpoint, no admin token required.
	functions.HTTP("HandleLectures", handleLectures)
}

// main is required by the Go Functions Framework.
func main() {}

func handleLectures(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		var catalog *services.CatalogFunction
		catalog, initErr = services.NewCatalog(context.Background())
		catalogHandler = &handlers.Catalog{Catalog: catalog}
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}
	catalogHandler.ServeHTTP(w, r)
}
