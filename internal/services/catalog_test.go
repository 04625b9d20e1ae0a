package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/Lllllllleong/lecturenotes/internal/content"
	"github.com/Lllllllleong/lecturenotes/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	return store.New(filepath.Join(t.TempDir(), "lectures.html"), store.NewBackupManager(5, nil), nil)
}

func TestCatalogListOnEmptyStore(t *testing.T) {
	f := NewCatalogFunction(newTestStore(t), content.DefaultUnits())

	catalog, err := f.List()
	require.NoError(t, err)
	assert.Empty(t, catalog.Lectures)
	assert.Len(t, catalog.Units, 6)
}

func TestCatalogListAndLecture(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, err := s.Append(ctx, existingLecture)
	require.NoError(t, err)
	_, err = s.Append(ctx, `<div id="lecture_20240102_120000" class="lecture-content" data-unit="unit3"><h1>Residues</h1></div>`)
	require.NoError(t, err)

	f := NewCatalogFunction(s, content.DefaultUnits())
	catalog, err := f.List()
	require.NoError(t, err)
	require.Len(t, catalog.Lectures, 2)
	assert.Equal(t, "First", catalog.Lectures[0].Title)
	assert.Equal(t, "Residues", catalog.Units[2].Lectures[0].Title)

	body, err := f.Lecture("lecture_20240102_120000")
	require.NoError(t, err)
	assert.Equal(t, "<h1>Residues</h1>", body)

	_, err = f.Lecture("lecture_20990101_000000")
	assert.ErrorIs(t, err, ErrLectureNotFound)
}

func TestEditorSaveBacksUpPreviousDocument(t *testing.T) {
	s := newTestStore(t)
	f := NewEditorFunction(s)
	ctx := context.Background()

	doc, err := f.Load()
	require.NoError(t, err)
	assert.Empty(t, doc)

	backup, err := f.Save(ctx, existingLecture)
	require.NoError(t, err)
	assert.Empty(t, backup, "nothing to back up on first save")

	backup, err = f.Save(ctx, "<p>rewritten</p>")
	require.NoError(t, err)
	require.NotEmpty(t, backup)

	saved, err := os.ReadFile(backup)
	require.NoError(t, err)
	assert.Equal(t, existingLecture, string(saved))

	doc, err = f.Load()
	require.NoError(t, err)
	assert.Equal(t, "<p>rewritten</p>", doc)
}

func TestCatalogPage(t *testing.T) {
	s := newTestStore(t)
	f := NewCatalogFunction(s, content.DefaultUnits())

	page, err := f.Page("")
	require.NoError(t, err)
	assert.Equal(t, WelcomeID, page.CurrentLectureID)
	assert.Equal(t, WelcomeHTML, page.CurrentLectureHTML)
	assert.Len(t, page.Units, 6)

	_, err = s.Append(context.Background(), existingLecture)
	require.NoError(t, err)

	page, err = f.Page("")
	require.NoError(t, err)
	assert.Equal(t, "lecture_20240101_120000", page.CurrentLectureID)
	assert.Equal(t, "<h1>First</h1>", page.CurrentLectureHTML)

	page, err = f.Page("lecture_20990101_000000")
	assert.ErrorIs(t, err, ErrLectureNotFound)
	assert.Empty(t, page.CurrentLectureID)
	assert.Equal(t, NotFoundHTML, page.CurrentLectureHTML)
}
