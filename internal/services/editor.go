package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Lllllllleong/lecturenotes/internal/store"
)

// EditorFunction gives admins raw access to the whole lecture store.
type EditorFunction struct {
	store *store.Store
}

// NewEditor creates an EditorFunction for the configured store.
func NewEditor(ctx context.Context) (*EditorFunction, error) {
	cfg, err := loadStoreConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	lectureStore, err := openStore(ctx, *cfg)
	if err != nil {
		return nil, err
	}
	return NewEditorFunction(lectureStore), nil
}

func NewEditorFunction(s *store.Store) *EditorFunction {
	return &EditorFunction{store: s}
}

// Load returns the current document; empty if nothing was published yet.
func (f *EditorFunction) Load() (string, error) {
	return f.store.Read()
}

// Save replaces the whole document after snapshotting the current one. It
// returns the snapshot path, empty when there was nothing to back up.
func (f *EditorFunction) Save(ctx context.Context, doc string) (string, error) {
	backupPath, err := f.store.Overwrite(ctx, doc)
	if err != nil {
		slog.Error("Failed to save lecture store", "error", err, "store", f.store.Path())
		return "", err
	}
	slog.Info("Lecture store saved by editor.", "bytes", len(doc), "backup", backupPath)
	return backupPath, nil
}
