package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/Lllllllleong/lecturenotes/internal/gcp"
	"github.com/Lllllllleong/lecturenotes/internal/store"
)

// StoreConfig locates the lecture store shared by every function.
type StoreConfig struct {
	ContentDir      string
	StoreFile       string
	BackupRetention int
	RedisURL        string
}

// StorePath returns the full path of the store file.
func (c StoreConfig) StorePath() string {
	return filepath.Join(c.ContentDir, c.StoreFile)
}

// loadStoreConfig loads and validates the store settings.
func loadStoreConfig() (*StoreConfig, error) {
	retention, err := gcp.GetEnvInt("BACKUP_RETENTION", store.DefaultBackupRetention)
	if err != nil {
		return nil, err
	}
	if retention <= 0 {
		return nil, fmt.Errorf("BACKUP_RETENTION must be positive")
	}
	return &StoreConfig{
		ContentDir:      gcp.GetEnv("CONTENT_DIR", "content"),
		StoreFile:       gcp.GetEnv("STORE_FILE", "lectures.html"),
		BackupRetention: retention,
		RedisURL:        gcp.GetEnv("REDIS_URL", ""),
	}, nil
}

// openStore builds the store handle. Writers are coordinated through Redis
// when REDIS_URL is set, and inside this process otherwise.
func openStore(ctx context.Context, cfg StoreConfig) (*store.Store, error) {
	var locker store.Locker
	if cfg.RedisURL != "" {
		redisLocker, err := store.NewRedisLocker(ctx, cfg.RedisURL, "lecturenotes:lock:"+cfg.StoreFile, 30*time.Second)
		if err != nil {
			return nil, fmt.Errorf("failed to create store lock: %w", err)
		}
		locker = redisLocker
		slog.Info("Store writes coordinated through Redis.", "store", cfg.StorePath())
	}
	return store.New(cfg.StorePath(), store.NewBackupManager(cfg.BackupRetention, nil), locker), nil
}

// closers collects clients opened during setup so they can be released if a
// later step fails.
type closers []io.Closer

func (c *closers) add(x io.Closer) { *c = append(*c, x) }

// closeAll closes in reverse order of opening.
func (c closers) closeAll() {
	for i := len(c) - 1; i >= 0; i-- {
		if err := c[i].Close(); err != nil {
			slog.Warn("Failed to release client.", "error", err)
		}
	}
}
