// Package storage provides a domain-agnostic interface for S3-compatible
// object storage. The payments module uses it for proof images; nothing in
// here knows about payment semantics.
package storage

import (
	"context"
	"io"
	"time"
)

// PresignedURL contains the URL and metadata for a presigned download.
type PresignedURL struct {
	URL       string    `json:"url"`
	FileKey   string    `json:"fileKey"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// StorageService abstracts object storage operations.
type StorageService interface {
	// EnsureBucketExists creates the bucket if it doesn't exist.
	EnsureBucketExists(ctx context.Context, bucket string) error
	// Upload stores an object and returns its generated file key.
	Upload(ctx context.Context, bucket, filename, contentType string, size int64, reader io.Reader) (string, error)
	// PresignedDownloadURL returns a time-limited download URL for a stored object.
	PresignedDownloadURL(ctx context.Context, bucket, fileKey string) (PresignedURL, error)
	// Delete removes a stored object.
	Delete(ctx context.Context, bucket, fileKey string) error
	// MaxFileSize returns the maximum accepted upload size in bytes.
	MaxFileSize() int64
}
