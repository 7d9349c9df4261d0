package storage

import (
	"context"
	"fmt"
	"io"
)

// BlobRef - стабильная ссылка на сохраненный файл
type BlobRef struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Storage defines the interface for blob storage operations
type Storage interface {
	// Upload stores the file under a generated id inside folder
	// and returns a stable id + public URL
	Upload(ctx context.Context, folder, filename string, reader io.Reader, contentType string) (*BlobRef, error)

	// Delete removes a previously uploaded blob by id
	Delete(ctx context.Context, id string) error

	// URL returns the public URL for a blob id
	URL(id string) string
}

// Config holds storage configuration
type Config struct {
	Type      string // local, s3
	BasePath  string // For local storage
	BaseURL   string // Public URL base
	Bucket    string // For S3
	Region    string // For S3
	AccessKey string // For S3
	SecretKey string // For S3
	Endpoint  string // For custom S3 endpoint
}

// NewStorage creates a new storage instance based on configuration
func NewStorage(cfg Config) (Storage, error) {
	switch cfg.Type {
	case "local":
		return NewLocalStorage(cfg)
	case "s3":
		return NewS3Storage(cfg)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}
