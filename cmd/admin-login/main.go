package main

import (
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/Lllllllleong/lecturenotes/internal/auth"
	"github.com/Lllllllleong/lecturenotes/internal/gcp"
	"github.com/Lllllllleong/lecturenotes/internal/handlers"
)

var (
	loginHandler *handlers.Login
	once         sync.Once
	initErr      error
)

func init() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)
	gcp.LoadDotEnv()

	functions.HTTP("HandleLogin", handleLogin)
}

// main is required by the Go Functions Framework.
func main() {}

func setup() (*handlers.Login, error) {
	cfg, err := auth.LoadConfig()
	if err != nil {
		return nil, err
	}
	if len(cfg.Users) == 0 {
		slog.Warn("ADMIN_USERS is empty; every login will be rejected")
	}
	tokens, err := auth.NewTokenManager(cfg.Secret, auth.DefaultTokenTTL, nil)
	if err != nil {
		return nil, err
	}
	return &handlers.Login{Auth: auth.NewAuthenticator(cfg.Users), Tokens: tokens}, nil
}

func handleLogin(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		loginHandler, initErr = setup()
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}
	loginHandler.ServeHTTP(w, r)
}
