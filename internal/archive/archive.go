// Package archive keeps a raw copy of every receipt image in a Cloud
// Storage bucket, independent of the Drive share copy. The archive is
// best-effort: a failed write is logged by the caller and never fails the
// ingestion.
package archive

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// Archiver writes receipt bytes into one bucket. A nil Archiver is valid
// and stores nothing (the feature is off when no bucket is configured).
type Archiver struct {
	client *storage.Client
	bucket string
}

// New creates an Archiver for the given bucket, or nil when bucket is
// empty.
func New(ctx context.Context, bucket string, credentialsJSON []byte) (*Archiver, error) {
	if bucket == "" {
		return nil, nil
	}
	client, err := storage.NewClient(ctx, option.WithCredentialsJSON(credentialsJSON))
	if err != nil {
		return nil, fmt.Errorf("archive: create storage client: %w", err)
	}
	return &Archiver{client: client, bucket: bucket}, nil
}

// Store writes data under receipts/<objectName> and returns the gs:// URI.
func (a *Archiver) Store(ctx context.Context, objectName string, data []byte) (string, error) {
	if a == nil {
		return "", nil
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	objectPath := "receipts/" + objectName
	w := a.client.Bucket(a.bucket).Object(objectPath).NewWriter(ctx)
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("archive: write object %q: %w", objectPath, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("archive: finalize object %q: %w", objectPath, err)
	}

	return fmt.Sprintf("gs://%s/%s", a.bucket, objectPath), nil
}

// Close releases the underlying storage client.
func (a *Archiver) Close() error {
	if a == nil {
		return nil
	}
	return a.client.Close()
}
