package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Lllllllleong/lecturenotes/internal/content"
	"github.com/Lllllllleong/lecturenotes/internal/models"
	"github.com/Lllllllleong/lecturenotes/internal/store"
)

const (
	// WelcomeHTML is shown while no lecture has been published.
	WelcomeHTML = "<h2>Welcome to AEM Notes</h2><p>No lectures have been published yet.</p><p>An admin can upload a PDF to generate the content.</p>"
	// NotFoundHTML replaces the body of an unknown lecture.
	NotFoundHTML = "<h2>Lecture Not Found</h2><p>The requested lecture could not be found.</p>"
	// WelcomeID is the pseudo lecture id of the welcome page.
	WelcomeID = "welcome"
)

// CatalogFunction serves the published lectures to students.
type CatalogFunction struct {
	store *store.Store
	units content.Units
}

// NewCatalog creates a CatalogFunction reading the configured store.
func NewCatalog(ctx context.Context) (*CatalogFunction, error) {
	cfg, err := loadStoreConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	lectureStore, err := openStore(ctx, *cfg)
	if err != nil {
		return nil, err
	}
	return NewCatalogFunction(lectureStore, content.DefaultUnits()), nil
}

func NewCatalogFunction(s *store.Store, units content.Units) *CatalogFunction {
	return &CatalogFunction{store: s, units: units}
}

// List returns every lecture grouped by unit. A missing store yields an
// empty catalog.
func (f *CatalogFunction) List() (content.Catalog, error) {
	doc, err := f.store.Read()
	if err != nil {
		return content.Catalog{}, err
	}
	if doc == "" {
		return content.EmptyCatalog(f.units), nil
	}
	catalog, err := content.ParseCatalog(doc, f.units)
	if err != nil {
		slog.Error("Failed to parse lecture store", "error", err, "store", f.store.Path())
		return content.Catalog{}, err
	}
	return catalog, nil
}

// Lecture returns the body of one lecture, or ErrLectureNotFound.
func (f *CatalogFunction) Lecture(id string) (string, error) {
	doc, err := f.store.Read()
	if err != nil {
		return "", err
	}
	body, ok, err := content.FindLecture(doc, id)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("%s: %w", id, ErrLectureNotFound)
	}
	return body, nil
}

// Page builds the student view for one lecture. An empty id resolves to the
// first lecture, or to the welcome page when nothing is published. Unknown
// ids get the not-found body together with ErrLectureNotFound.
func (f *CatalogFunction) Page(id string) (models.LecturePage, error) {
	catalog, err := f.List()
	if err != nil {
		return models.LecturePage{}, err
	}
	page := models.LecturePage{Units: catalog.Units}

	if id == "" && len(catalog.Lectures) > 0 {
		id = catalog.Lectures[0].ID
	}
	if id == "" || id == WelcomeID {
		page.CurrentLectureID = WelcomeID
		page.CurrentLectureHTML = WelcomeHTML
		return page, nil
	}

	body, err := f.Lecture(id)
	if errors.Is(err, ErrLectureNotFound) {
		page.CurrentLectureHTML = NotFoundHTML
		return page, err
	}
	if err != nil {
		return models.LecturePage{}, err
	}
	page.CurrentLectureID = id
	page.CurrentLectureHTML = body
	return page, nil
}
