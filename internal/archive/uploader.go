// Package archive exports the sync journal to S3-compatible object storage.
// When no bucket is configured the NoopUploader is used and the journal
// stays local only.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/ffRTwegrFEW555/android-training-notes-app-sub001/internal/config"
	"github.com/ffRTwegrFEW555/android-training-notes-app-sub001/internal/journal"
)

// ErrNotConfigured is returned when archive storage is not configured.
var ErrNotConfigured = errors.New("archive storage not configured")

// contentType of an archived batch: one JSON journal entry per line.
const contentType = "application/x-ndjson"

// Uploader stores batches of journal entries.
type Uploader interface {
	// Upload stores entries as one object. entries must be non-empty and in id order.
	Upload(ctx context.Context, entries []journal.Entry) error
	// Configured reports whether uploads leave the process.
	Configured() bool
}

// s3Client defines the minimal minio.Client operations used by S3Uploader.
type s3Client interface {
	PutObject(ctx context.Context, bucket, objectName string, r io.Reader, size int64, contentType string) error
}

// minioClientWrapper wraps *minio.Client to satisfy the s3Client interface.
type minioClientWrapper struct {
	client *minio.Client
}

func (w *minioClientWrapper) PutObject(ctx context.Context, bucket, objectName string, r io.Reader, size int64, contentType string) error {
	_, err := w.client.PutObject(ctx, bucket, objectName, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	return err
}

// S3Uploader uploads journal batches to S3-compatible storage.
type S3Uploader struct {
	client s3Client
	bucket string
	prefix string
}

// Upload encodes entries as NDJSON and stores them under ObjectKey.
func (u *S3Uploader) Upload(ctx context.Context, entries []journal.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	body, err := Encode(entries)
	if err != nil {
		return err
	}
	key := ObjectKey(u.prefix, entries[0].ID, entries[len(entries)-1].ID)
	if err := u.client.PutObject(ctx, u.bucket, key, bytes.NewReader(body), int64(len(body)), contentType); err != nil {
		return fmt.Errorf("upload journal batch to S3: %w", err)
	}
	return nil
}

// Configured is always true for S3Uploader.
func (u *S3Uploader) Configured() bool { return true }

// NoopUploader is used when archive storage is not configured.
type NoopUploader struct{}

// Upload returns ErrNotConfigured.
func (u *NoopUploader) Upload(ctx context.Context, entries []journal.Entry) error {
	return ErrNotConfigured
}

// Configured is always false for NoopUploader.
func (u *NoopUploader) Configured() bool { return false }

// NewUploader creates the appropriate Uploader based on configuration.
// Returns NoopUploader when bucket is empty, S3Uploader otherwise.
func NewUploader(cfg config.ArchiveConfig) (Uploader, error) {
	if !cfg.Enabled() {
		return &NoopUploader{}, nil
	}

	useSSL := true
	if cfg.UseSSL != nil {
		useSSL = *cfg.UseSSL
	}
	endpoint := stripScheme(cfg.Endpoint, &useSSL)

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: useSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create S3 client: %w", err)
	}

	return &S3Uploader{
		client: &minioClientWrapper{client: client},
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
	}, nil
}

// stripScheme removes an http:// or https:// prefix from endpoint, which
// minio.New rejects, and lets the scheme decide useSSL.
func stripScheme(endpoint string, useSSL *bool) string {
	switch {
	case strings.HasPrefix(endpoint, "https://"):
		*useSSL = true
		return strings.TrimPrefix(endpoint, "https://")
	case strings.HasPrefix(endpoint, "http://"):
		*useSSL = false
		return strings.TrimPrefix(endpoint, "http://")
	}
	return endpoint
}

// ObjectKey returns the object key of a batch spanning journal ids first..last.
// Convention: {prefix}/{first:012d}-{last:012d}.ndjson, so keys sort by id.
func ObjectKey(prefix string, first, last int64) string {
	return path.Join(prefix, fmt.Sprintf("%012d-%012d.ndjson", first, last))
}

// Encode renders entries as newline-delimited JSON.
func Encode(entries []journal.Entry) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, e := range entries {
		if err := enc.Encode(e); err != nil {
			return nil, fmt.Errorf("encode journal entry %d: %w", e.ID, err)
		}
	}
	return buf.Bytes(), nil
}
