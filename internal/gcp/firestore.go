package gcp

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/Lllllllleong/lecturenotes/internal/models"
)

// NewFirestoreClient creates and returns a new Firestore client for the given project ID.
func NewFirestoreClient(ctx context.Context, projectID string) (*firestore.Client, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID must be provided to create a firestore client")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}

	return client, nil
}

// LectureRegistry indexes published lectures in a Firestore collection, one
// document per lecture id.
type LectureRegistry struct {
	client     *firestore.Client
	collection string
}

func NewLectureRegistry(client *firestore.Client, collection string) *LectureRegistry {
	return &LectureRegistry{client: client, collection: collection}
}

// Record writes (or replaces) the index entry for lecture.
func (r *LectureRegistry) Record(ctx context.Context, lecture models.Lecture) error {
	if lecture.LectureID == "" {
		return fmt.Errorf("cannot record a lecture without an id")
	}
	if _, err := r.client.Collection(r.collection).Doc(lecture.LectureID).Set(ctx, lecture); err != nil {
		return fmt.Errorf("failed to record lecture %s: %w", lecture.LectureID, err)
	}
	return nil
}

// FindBySourceHash returns the id of a lecture already generated from the
// same source file.
func (r *LectureRegistry) FindBySourceHash(ctx context.Context, hash string) (string, bool, error) {
	docs, err := r.client.Collection(r.collection).Where("sourceHash", "==", hash).Limit(1).Documents(ctx).GetAll()
	if err != nil {
		return "", false, fmt.Errorf("failed to query for duplicates: %w", err)
	}
	if len(docs) > 0 {
		return docs[0].Ref.ID, true, nil
	}
	return "", false, nil
}

func (r *LectureRegistry) Close() error {
	return r.client.Close()
}
