// Package archive keeps the raw bytes of uploaded statements in a GCS
// bucket so a bad ingestion can be replayed or inspected later. Archiving
// is optional: when no bucket is configured the service skips it.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const uploadTimeout = 2 * time.Minute

// GCSArchive writes statement uploads to a GCS bucket. It assumes
// Application Default Credentials are configured.
type GCSArchive struct {
	client *storage.Client
	bucket string
	log    zerolog.Logger
}

// New creates an archive over the given bucket.
func New(ctx context.Context, bucket string, log zerolog.Logger) (*GCSArchive, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("archive: create storage client: %w", err)
	}
	return &GCSArchive{client: client, bucket: bucket, log: log}, nil
}

// Close releases the storage client.
func (a *GCSArchive) Close() error {
	return a.client.Close()
}

// Save stores one uploaded statement and returns its gs:// URI. Objects
// are partitioned by upload date and user.
func (a *GCSArchive) Save(ctx context.Context, userID, filename string, data []byte) (string, error) {
	objectName := fmt.Sprintf("statements/%s/%s/%s-%s",
		time.Now().Format("2006/01/02"), userID, uuid.New().String(), filename)

	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	w := a.client.Bucket(a.bucket).Object(objectName).NewWriter(ctx)
	w.ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("archive: write object %q: %w", objectName, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("archive: finalize object %q: %w", objectName, err)
	}

	uri := fmt.Sprintf("gs://%s/%s", a.bucket, objectName)
	a.log.Info().
		Str("user_id", userID).
		Str("gcs_uri", uri).
		Int("bytes", len(data)).
		Msg("Statement archived")
	return uri, nil
}
