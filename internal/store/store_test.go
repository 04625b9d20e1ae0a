package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tickingClock advances one millisecond per call.
func tickingClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	current := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		current = current.Add(time.Millisecond)
		return current
	}
}

func TestSnapshotWithoutStore(t *testing.T) {
	m := NewBackupManager(5, nil)
	path, err := m.Snapshot(filepath.Join(t.TempDir(), "lectures.html"))
	require.NoError(t, err)
	assert.Empty(t, path)
}

func TestSnapshotRetainsFiveNewest(t *testing.T) {
	dir := t.TempDir()
	storePath := filepath.Join(dir, "lectures.html")
	require.NoError(t, os.WriteFile(storePath, []byte("<div>v0</div>"), 0o644))

	m := NewBackupManager(5, tickingClock(time.UnixMilli(1_700_000_000_000)))
	var created []string
	for i := 0; i < 7; i++ {
		path, err := m.Snapshot(storePath)
		require.NoError(t, err)
		require.NotEmpty(t, path)
		created = append(created, path)
	}

	remaining, err := m.List(storePath)
	require.NoError(t, err)
	require.Len(t, remaining, 5)

	for _, old := range created[:2] {
		assert.NoFileExists(t, old)
	}
	for i, path := range created[2:] {
		assert.FileExists(t, path)
		assert.Equal(t, created[len(created)-1-i], remaining[i], "List is newest first")
	}
	assert.Equal(t, "lectures_backup_1700000000001.html", filepath.Base(created[0]))
	assert.FileExists(t, storePath)
}

func TestSnapshotSameMillisecondGetsDistinctNames(t *testing.T) {
	dir := t.TempDir()
	storePath := filepath.Join(dir, "lectures.html")
	require.NoError(t, os.WriteFile(storePath, []byte("x"), 0o644))

	fixed := time.UnixMilli(1_700_000_000_000)
	m := NewBackupManager(5, func() time.Time { return fixed })

	first, err := m.Snapshot(storePath)
	require.NoError(t, err)
	second, err := m.Snapshot(storePath)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestSnapshotIgnoresUnrelatedFiles(t *testing.T) {
	dir := t.TempDir()
	storePath := filepath.Join(dir, "lectures.html")
	require.NoError(t, os.WriteFile(storePath, []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other_backup_1.html"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lectures_backup_1.txt"), nil, 0o644))

	m := NewBackupManager(1, tickingClock(time.UnixMilli(1_700_000_000_000)))
	for i := 0; i < 3; i++ {
		_, err := m.Snapshot(storePath)
		require.NoError(t, err)
	}

	assert.FileExists(t, filepath.Join(dir, "other_backup_1.html"))
	assert.FileExists(t, filepath.Join(dir, "lectures_backup_1.txt"))
	remaining, err := m.List(storePath)
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
}

func TestAppendAddsSeparatorAndBackup(t *testing.T) {
	dir := t.TempDir()
	s := New(filepath.Join(dir, "content", "lectures.html"), nil, nil)
	ctx := context.Background()

	backup, err := s.Append(ctx, "<div>one</div>")
	require.NoError(t, err)
	assert.Empty(t, backup, "nothing to back up on first write")

	backup, err = s.Append(ctx, "<div>two</div>")
	require.NoError(t, err)
	require.NotEmpty(t, backup)

	doc, err := s.Read()
	require.NoError(t, err)
	assert.Equal(t, "<div>one</div>"+Separator+"<div>two</div>", doc)

	saved, err := os.ReadFile(backup)
	require.NoError(t, err)
	assert.Equal(t, "<div>one</div>", string(saved))
}

func TestOverwriteReplacesDocument(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "lectures.html"), nil, nil)
	ctx := context.Background()

	_, err := s.Append(ctx, "<div>old</div>")
	require.NoError(t, err)
	backup, err := s.Overwrite(ctx, "<div>new</div>")
	require.NoError(t, err)
	assert.NotEmpty(t, backup)

	doc, err := s.Read()
	require.NoError(t, err)
	assert.Equal(t, "<div>new</div>", doc)

	entries, err := os.ReadDir(filepath.Dir(s.Path()))
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.Contains(e.Name(), ".tmp-"), "temp file %s left behind", e.Name())
	}
}

func TestConcurrentAppendsAreSerialized(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "lectures.html"), NewBackupManager(100, nil), nil)
	ctx := context.Background()

	const writers = 8
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.Append(ctx, fmt.Sprintf("<div>w%d</div>", i))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	doc, err := s.Read()
	require.NoError(t, err)
	for i := 0; i < writers; i++ {
		assert.Contains(t, doc, fmt.Sprintf("<div>w%d</div>", i))
	}
	assert.Equal(t, writers-1, strings.Count(doc, Separator))
}

func TestLocalLockerHonoursContext(t *testing.T) {
	l := NewLocalLocker()
	unlock, err := l.Lock(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx)
	require.Error(t, err)

	unlock()
	unlock2, err := l.Lock(context.Background())
	require.NoError(t, err)
	unlock2()
}

func TestAppendReportsLockFailure(t *testing.T) {
	l := NewLocalLocker()
	unlock, err := l.Lock(context.Background())
	require.NoError(t, err)
	defer unlock()

	s := New(filepath.Join(t.TempDir(), "lectures.html"), nil, l)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = s.Append(ctx, "<div/>")
	var opErr *OpError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, OpLock, opErr.Op)
	assert.NoFileExists(t, s.Path())
}

func TestAppendStopsWhenSnapshotFails(t *testing.T) {
	dir := t.TempDir()
	s := New(filepath.Join(dir, "lectures.html"), NewBackupManager(5, nil), nil)
	// A directory at the store path exists but cannot be copied.
	require.NoError(t, os.Mkdir(s.Path(), 0o755))

	backupPath, err := s.Append(context.Background(), "<div>new</div>")
	assert.Empty(t, backupPath)
	var opErr *OpError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, OpBackup, opErr.Op)

	info, statErr := os.Stat(s.Path())
	require.NoError(t, statErr)
	assert.True(t, info.IsDir(), "store path was not replaced")
	inside, readErr := os.ReadDir(s.Path())
	require.NoError(t, readErr)
	assert.Empty(t, inside)

	siblings, readErr := os.ReadDir(dir)
	require.NoError(t, readErr)
	require.Len(t, siblings, 1, "no snapshot or temp file is left behind")
	assert.Equal(t, "lectures.html", siblings[0].Name())
}

type closingLocker struct {
	*LocalLocker
	closed bool
}

func (l *closingLocker) Close() error {
	l.closed = true
	return nil
}

func TestCloseReleasesLocker(t *testing.T) {
	l := &closingLocker{LocalLocker: NewLocalLocker()}
	s := New(filepath.Join(t.TempDir(), "lectures.html"), nil, l)
	require.NoError(t, s.Close())
	assert.True(t, l.closed)

	assert.NoError(t, New(filepath.Join(t.TempDir(), "lectures.html"), nil, nil).Close())
}
