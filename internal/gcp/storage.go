package gcp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
)

// ErrObjectExists is returned by SaveToGCSAtomically when the object is
// already present.
var ErrObjectExists = errors.New("object already exists")

// SaveToGCSAtomically writes data to a GCS object only if it doesn't already
// exist.
func SaveToGCSAtomically(ctx context.Context, bucket *storage.BucketHandle, objectName, contentType string, data []byte) error {
	writer := bucket.Object(objectName).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	writer.ContentType = contentType

	if _, err := io.Copy(writer, bytes.NewReader(data)); err != nil {
		_ = writer.Close()
		slog.Error("Failed to copy content to GCS object", "object", objectName, "error", err)
		return fmt.Errorf("failed to write to GCS: %w", err)
	}

	if err := writer.Close(); err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed {
			return fmt.Errorf("gs://%s/%s: %w", bucket.BucketName(), objectName, ErrObjectExists)
		}
		slog.Error("Failed to close GCS writer", "object", objectName, "error", err)
		return fmt.Errorf("failed to finalize GCS write: %w", err)
	}
	return nil
}

// ReadGCSObject downloads an object together with its attributes.
func ReadGCSObject(ctx context.Context, client *storage.Client, bucket, object string) ([]byte, *storage.ObjectAttrs, error) {
	handle := client.Bucket(bucket).Object(object)
	attrs, err := handle.Attrs(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to stat gs://%s/%s: %w", bucket, object, err)
	}
	reader, err := handle.NewReader(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get GCS object reader for gs://%s/%s: %w", bucket, object, err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read gs://%s/%s: %w", bucket, object, err)
	}
	return data, attrs, nil
}

// BucketUploadSink keeps original uploads in a GCS bucket.
type BucketUploadSink struct {
	client *storage.Client
	bucket string
}

func NewBucketUploadSink(client *storage.Client, bucket string) *BucketUploadSink {
	return &BucketUploadSink{client: client, bucket: bucket}
}

// Save stores data under name and returns its gs:// locator.
func (s *BucketUploadSink) Save(ctx context.Context, name, contentType string, data []byte) (string, error) {
	if err := SaveToGCSAtomically(ctx, s.client.Bucket(s.bucket), name, contentType, data); err != nil {
		return "", err
	}
	return fmt.Sprintf("gs://%s/%s", s.bucket, name), nil
}

// BucketObjectSource reads event payloads out of GCS.
type BucketObjectSource struct {
	client *storage.Client
}

func NewBucketObjectSource(client *storage.Client) *BucketObjectSource {
	return &BucketObjectSource{client: client}
}

// Fetch returns the object body, its content type and its custom metadata.
func (s *BucketObjectSource) Fetch(ctx context.Context, bucket, name string) ([]byte, string, map[string]string, error) {
	data, attrs, err := ReadGCSObject(ctx, s.client, bucket, name)
	if err != nil {
		return nil, "", nil, err
	}
	return data, attrs.ContentType, attrs.Metadata, nil
}
