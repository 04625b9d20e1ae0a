// Package store owns the flat lecture document and its backups.
package store

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Separator is written between two lectures when appending.
const Separator = "\n\n<!-- =============== NEW LECTURE =============== -->\n\n"

// Op names the step of a store mutation that failed.
type Op string

const (
	OpLock   Op = "lock"
	OpBackup Op = "backup"
	OpRead   Op = "read"
	OpWrite  Op = "write"
)

// OpError reports which step of a mutation failed. It wraps the cause.
type OpError struct {
	Op  Op
	Err error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

// Store is the handle on one lecture document. Every mutation takes the
// locker, snapshots the current file and then replaces it atomically.
type Store struct {
	path    string
	backups *BackupManager
	locker  Locker
}

// New returns a store for path. A nil locker serializes writers within the
// current process only.
func New(path string, backups *BackupManager, locker Locker) *Store {
	if backups == nil {
		backups = NewBackupManager(DefaultBackupRetention, nil)
	}
	if locker == nil {
		locker = NewLocalLocker()
	}
	return &Store{path: path, backups: backups, locker: locker}
}

// Path returns the location of the store file.
func (s *Store) Path() string { return s.path }

// Backups returns the manager guarding this store.
func (s *Store) Backups() *BackupManager { return s.backups }

// Close releases the locker when it holds a connection.
func (s *Store) Close() error {
	if c, ok := s.locker.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Read returns the whole document, or an empty string if it does not exist.
func (s *Store) Read() (string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read store %s: %w", s.path, err)
	}
	return string(data), nil
}

// Append adds fragment to the end of the document, separated from existing
// content by Separator. It returns the path of the snapshot taken first, or
// an empty string when the store did not exist yet.
func (s *Store) Append(ctx context.Context, fragment string) (string, error) {
	return s.mutate(ctx, func(existing string) string {
		if existing == "" {
			return fragment
		}
		return existing + Separator + fragment
	})
}

// Overwrite replaces the whole document.
func (s *Store) Overwrite(ctx context.Context, doc string) (string, error) {
	return s.mutate(ctx, func(string) string { return doc })
}

func (s *Store) mutate(ctx context.Context, update func(existing string) string) (string, error) {
	unlock, err := s.locker.Lock(ctx)
	if err != nil {
		return "", &OpError{Op: OpLock, Err: err}
	}
	defer unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return "", &OpError{Op: OpWrite, Err: err}
	}

	backupPath, err := s.backups.Snapshot(s.path)
	if err != nil {
		return "", &OpError{Op: OpBackup, Err: err}
	}

	existing, err := s.Read()
	if err != nil {
		return backupPath, &OpError{Op: OpRead, Err: err}
	}

	if err := writeFileAtomic(s.path, []byte(update(existing))); err != nil {
		return backupPath, &OpError{Op: OpWrite, Err: err}
	}
	return backupPath, nil
}

// writeFileAtomic writes data to a temp file in the target directory, syncs
// it and renames it over path.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		cleanup()
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
