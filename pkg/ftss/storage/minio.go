package storage

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioStore stores attachments in an S3-compatible bucket.
type MinioStore struct {
	client  *minio.Client
	bucket  string
	baseURL string
}

// NewMinioStoreFromEnv builds a MinioStore from FTSS_S3_* environment
// variables. Returns (nil, nil) when no endpoint is configured, so callers
// can fall back to the Noop store.
func NewMinioStoreFromEnv() (*MinioStore, error) {
	endpoint := os.Getenv("FTSS_S3_ENDPOINT")
	if endpoint == "" {
		return nil, nil
	}
	bucket := os.Getenv("FTSS_S3_BUCKET")
	if bucket == "" {
		bucket = "ftss-attachments"
	}
	secure := os.Getenv("FTSS_S3_INSECURE") != "true"
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(os.Getenv("FTSS_S3_ACCESS_KEY"), os.Getenv("FTSS_S3_SECRET_KEY"), ""),
		Secure: secure,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to object store: %w", err)
	}
	scheme := "https"
	if !secure {
		scheme = "http"
	}
	return &MinioStore{
		client:  client,
		bucket:  bucket,
		baseURL: scheme + "://" + endpoint + "/" + bucket,
	}, nil
}

// UploadImage decodes base64 content and stores it under
// {folder}/{entityID}.png.
func (s *MinioStore) UploadImage(ctx context.Context, entityID uint, folder, data string) (string, error) {
	// strip a data-URI prefix if the client sent one
	if idx := strings.Index(data, ";base64,"); idx >= 0 {
		data = data[idx+len(";base64,"):]
	}
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return "", fmt.Errorf("decode attachment: %w", err)
	}
	name := objectName(entityID, folder)
	_, err = s.client.PutObject(ctx, s.bucket, name, bytes.NewReader(raw), int64(len(raw)), minio.PutObjectOptions{
		ContentType: "image/png",
	})
	if err != nil {
		return "", fmt.Errorf("upload attachment: %w", err)
	}
	return s.baseURL + "/" + name, nil
}

// DeleteImage removes the stored image for an entity.
func (s *MinioStore) DeleteImage(ctx context.Context, entityID uint, folder string) error {
	return s.client.RemoveObject(ctx, s.bucket, objectName(entityID, folder), minio.RemoveObjectOptions{})
}

// UpdateImage replaces the stored image for an entity.
func (s *MinioStore) UpdateImage(ctx context.Context, entityID uint, folder, value string) (string, error) {
	if value == "" {
		if err := s.DeleteImage(ctx, entityID, folder); err != nil {
			return "", err
		}
		return "", nil
	}
	if IsURL(value) {
		return value, nil
	}
	return s.UploadImage(ctx, entityID, folder, value)
}
