package store

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// DefaultBackupRetention is the number of snapshots kept per store.
const DefaultBackupRetention = 5

// BackupManager snapshots a store file before it is rewritten and keeps a
// bounded history of those snapshots next to it.
type BackupManager struct {
	retention int
	now       func() time.Time
}

// NewBackupManager returns a manager keeping at most retention snapshots.
// A non-positive retention falls back to DefaultBackupRetention.
func NewBackupManager(retention int, now func() time.Time) *BackupManager {
	if retention <= 0 {
		retention = DefaultBackupRetention
	}
	if now == nil {
		now = time.Now
	}
	return &BackupManager{retention: retention, now: now}
}

// BackupPrefix returns the file name prefix shared by every snapshot of
// storePath, e.g. "lectures_backup_" for "content/lectures.html".
func BackupPrefix(storePath string) string {
	base := filepath.Base(storePath)
	return strings.TrimSuffix(base, filepath.Ext(base)) + "_backup_"
}

// Snapshot copies storePath to <base>_backup_<epoch-millis>.html and prunes
// old snapshots. It returns an empty path when the store does not exist yet.
func (m *BackupManager) Snapshot(storePath string) (string, error) {
	src, err := os.Open(storePath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("failed to open store for backup: %w", err)
	}
	defer src.Close()

	dir := filepath.Dir(storePath)
	prefix := BackupPrefix(storePath)

	// Two snapshots inside the same millisecond get consecutive names.
	millis := m.now().UnixMilli()
	var dst *os.File
	var backupPath string
	for {
		backupPath = filepath.Join(dir, prefix+strconv.FormatInt(millis, 10)+".html")
		dst, err = os.OpenFile(backupPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			break
		}
		if !os.IsExist(err) {
			return "", fmt.Errorf("failed to create backup %s: %w", backupPath, err)
		}
		millis++
	}

	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		_ = os.Remove(backupPath)
		return "", fmt.Errorf("failed to copy store to %s: %w", backupPath, err)
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(backupPath)
		return "", fmt.Errorf("failed to finalize backup %s: %w", backupPath, err)
	}

	if err := m.prune(dir, prefix); err != nil {
		return "", err
	}
	return backupPath, nil
}

// List returns the snapshots of storePath, newest first.
func (m *BackupManager) List(storePath string) ([]string, error) {
	dir := filepath.Dir(storePath)
	names, err := backupNames(dir, BackupPrefix(storePath))
	if err != nil {
		return nil, err
	}
	paths := make([]string, len(names))
	for i, name := range names {
		paths[i] = filepath.Join(dir, name)
	}
	return paths, nil
}

func (m *BackupManager) prune(dir, prefix string) error {
	names, err := backupNames(dir, prefix)
	if err != nil {
		return err
	}
	if len(names) <= m.retention {
		return nil
	}
	for _, name := range names[m.retention:] {
		if err := os.Remove(filepath.Join(dir, name)); err != nil {
			return fmt.Errorf("failed to remove old backup %s: %w", name, err)
		}
		slog.Debug("Removed old backup.", "file", name)
	}
	return nil
}

// backupNames lists snapshot file names in dir, sorted newest first. Epoch
// millis keep a fixed width for the lifetime of this code, so name order is
// age order.
func backupNames(dir, prefix string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list backups in %s: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		name := e.Name()
		if e.Type().IsRegular() && strings.HasPrefix(name, prefix) && strings.HasSuffix(name, ".html") {
			names = append(names, name)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names, nil
}
