package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"fieldops_backend/platform/config"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// PresignedURLTTL is the default expiration time for presigned URLs.
const PresignedURLTTL = 15 * time.Minute

// MinIOService implements StorageService using MinIO.
type MinIOService struct {
	client      *minio.Client
	maxFileSize int64
}

// NewMinIOService creates a new MinIO storage service.
func NewMinIOService(cfg config.MinIOConfig) (*MinIOService, error) {
	if !cfg.IsMinIOEnabled() {
		return nil, fmt.Errorf("MinIO is not configured")
	}

	client, err := minio.New(cfg.GetMinIOEndpoint(), &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.GetMinIOAccessKey(), cfg.GetMinIOSecretKey(), ""),
		Secure: cfg.GetMinIOUseSSL(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	return &MinIOService{
		client:      client,
		maxFileSize: cfg.GetMinIOMaxFileSize(),
	}, nil
}

// Compile-time check that MinIOService implements StorageService.
var _ StorageService = (*MinIOService)(nil)

// EnsureBucketExists creates the bucket if it doesn't exist.
func (s *MinIOService) EnsureBucketExists(ctx context.Context, bucket string) error {
	exists, err := s.client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	if !exists {
		if err := s.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
		}
	}
	return nil
}

// Upload stores an object under a collision-free key derived from the
// original filename and returns the key.
func (s *MinIOService) Upload(ctx context.Context, bucket, filename, contentType string, size int64, reader io.Reader) (string, error) {
	if size > s.maxFileSize {
		return "", fmt.Errorf("file size %d exceeds maximum %d", size, s.maxFileSize)
	}

	key := objectKey(filename)
	_, err := s.client.PutObject(ctx, bucket, key, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload object: %w", err)
	}
	return key, nil
}

// PresignedDownloadURL returns a time-limited download URL for a stored object.
func (s *MinIOService) PresignedDownloadURL(ctx context.Context, bucket, fileKey string) (PresignedURL, error) {
	url, err := s.client.PresignedGetObject(ctx, bucket, fileKey, PresignedURLTTL, nil)
	if err != nil {
		return PresignedURL{}, fmt.Errorf("failed to presign download: %w", err)
	}
	return PresignedURL{
		URL:       url.String(),
		FileKey:   fileKey,
		ExpiresAt: time.Now().Add(PresignedURLTTL),
	}, nil
}

// Delete removes a stored object.
func (s *MinIOService) Delete(ctx context.Context, bucket, fileKey string) error {
	if err := s.client.RemoveObject(ctx, bucket, fileKey, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

// MaxFileSize returns the maximum accepted upload size in bytes.
func (s *MinIOService) MaxFileSize() int64 {
	return s.maxFileSize
}

// objectKey builds a unique storage key preserving the file extension.
func objectKey(filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	datePrefix := time.Now().UTC().Format("2006/01")
	return fmt.Sprintf("%s/%s%s", datePrefix, uuid.NewString(), ext)
}
