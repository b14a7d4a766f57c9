package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BirdScout/bird-scout-backend/config"
	"github.com/BirdScout/bird-scout-backend/logger"
	"github.com/BirdScout/bird-scout-backend/store"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// MediaService uploads captured photos and audio clips to an S3-compatible
// bucket and tracks upload state in the local store.
type MediaService struct {
	client    *s3.Client
	presigner *s3.PresignClient
	bucket    string
	media     store.MediaStore
}

// NewMediaService creates a media service backed by an S3-compatible bucket
// (Cloudflare R2 endpoint layout).
func NewMediaService(cfg *config.MediaConfig, media store.MediaStore) (*MediaService, error) {
	if cfg.AccountID == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("media storage is not configured")
	}
	endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID)

	client := s3.New(s3.Options{
		Region:       "auto",
		BaseEndpoint: &endpoint,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
	})

	return &MediaService{
		client:    client,
		presigner: s3.NewPresignClient(client),
		bucket:    cfg.Bucket,
		media:     media,
	}, nil
}

// validateKey rejects storage keys containing path traversal segments.
func validateKey(key string) error {
	for _, segment := range strings.Split(key, "/") {
		if segment == ".." {
			return fmt.Errorf("path traversal detected in storage key")
		}
	}
	return nil
}

// StorageKey builds the bucket key for a media record:
// <kind>/<ownerID>/<mediaID><ext>.
func StorageKey(ownerID, mediaID, kind, localPath string) string {
	return fmt.Sprintf("%s/%s/%s%s", kind, ownerID, mediaID, filepath.Ext(localPath))
}

// Upload streams the local file to the bucket and marks the record uploaded.
func (s *MediaService) Upload(ctx context.Context, mediaID, localPath, storageKey string) error {
	if err := validateKey(storageKey); err != nil {
		return err
	}
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open media file: %w", err)
	}
	defer f.Close()

	if err := s.put(ctx, storageKey, f); err != nil {
		return err
	}
	if err := s.media.MarkUploaded(ctx, mediaID, storageKey); err != nil {
		return fmt.Errorf("failed to record upload: %w", err)
	}
	logger.GetLogger().Infow("Media uploaded", "mediaID", mediaID, "key", storageKey)
	return nil
}

func (s *MediaService) put(ctx context.Context, key string, reader io.Reader) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
		Body:   reader,
	})
	if err != nil {
		return fmt.Errorf("put object failed: %w", err)
	}
	return nil
}

// Delete removes an object from the bucket.
func (s *MediaService) Delete(ctx context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
	})
	if err != nil {
		return fmt.Errorf("delete object failed: %w", err)
	}
	return nil
}

// GetURL returns a presigned download URL with a 5-minute TTL.
func (s *MediaService) GetURL(ctx context.Context, key string) (string, error) {
	if err := validateKey(key); err != nil {
		return "", err
	}
	result, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
	}, s3.WithPresignExpires(5*time.Minute))
	if err != nil {
		return "", fmt.Errorf("presign failed: %w", err)
	}
	return result.URL, nil
}
