package utils

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/ahmadqo/bengkel-pinjam/internal/config"
)

// ObjectStore menyimpan file (gambar alat) di object storage.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Remove(ctx context.Context, key string) error
	// PublicURL menyusun URL publik dari nama objek tanpa mengecek keberadaannya.
	PublicURL(key string) string
}

// Allowed file types untuk gambar alat
var AllowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

const MaxImageSize = 5 * 1024 * 1024 // 5 MB

var unsafeNameChars = regexp.MustCompile(`[^a-z0-9.]`)

// ImageObjectName membuat nama objek <unix-millis>-<nama file yang disanitasi>.
func ImageObjectName(filename string, now time.Time) string {
	name := unsafeNameChars.ReplaceAllString(strings.ToLower(filename), "-")
	if name == "" {
		name = "gambar"
	}
	return fmt.Sprintf("%d-%s", now.UnixMilli(), name)
}

// NewObjectStore memilih driver sesuai STORAGE_DRIVER.
func NewObjectStore(ctx context.Context, cfg *config.StorageConfig) (ObjectStore, error) {
	switch cfg.Driver {
	case "", "minio":
		return NewMinioStorage(ctx, cfg)
	case "s3":
		return NewS3Storage(ctx, cfg)
	}
	return nil, fmt.Errorf("storage driver tidak dikenal: %s", cfg.Driver)
}

type MinioStorage struct {
	client  *minio.Client
	bucket  string
	baseURL string
}

func NewMinioStorage(ctx context.Context, cfg *config.StorageConfig) (*MinioStorage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	// Pastikan bucket ada dan bisa dibaca publik
	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
		if err := client.SetBucketPolicy(ctx, cfg.Bucket, publicReadPolicy(cfg.Bucket)); err != nil {
			return nil, fmt.Errorf("failed to set bucket policy: %w", err)
		}
	}

	return &MinioStorage{
		client:  client,
		bucket:  cfg.Bucket,
		baseURL: publicBase(cfg),
	}, nil
}

func (s *MinioStorage) Put(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("gagal upload file: %w", err)
	}
	return nil
}

func (s *MinioStorage) Remove(ctx context.Context, key string) error {
	return s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
}

func (s *MinioStorage) PublicURL(key string) string {
	return s.baseURL + "/" + key
}

// publicBase URL dasar objek: STORAGE_PUBLIC_URL jika diisi, selain itu
// <scheme>://<endpoint>/<bucket>.
func publicBase(cfg *config.StorageConfig) string {
	if cfg.PublicBaseURL != "" {
		return cfg.PublicBaseURL
	}
	scheme := "http"
	if cfg.UseSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s", scheme, cfg.Endpoint, cfg.Bucket)
}

func publicReadPolicy(bucket string) string {
	return fmt.Sprintf(`{
  "Version": "2012-10-17",
  "Statement": [{
    "Effect": "Allow",
    "Principal": {"AWS": ["*"]},
    "Action": ["s3:GetObject"],
    "Resource": ["arn:aws:s3:::%s/*"]
  }]
}`, bucket)
}
