package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// LocalStorage implements Storage interface for local filesystem
type LocalStorage struct {
	basePath string
	baseURL  string
}

// NewLocalStorage creates a new local storage instance
func NewLocalStorage(cfg Config) (*LocalStorage, error) {
	if cfg.BasePath == "" {
		cfg.BasePath = "./uploads"
	}

	if err := os.MkdirAll(cfg.BasePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	return &LocalStorage{
		basePath: cfg.BasePath,
		baseURL:  cfg.BaseURL,
	}, nil
}

// Upload stores a file locally under folder/<uuid><ext>
func (s *LocalStorage) Upload(ctx context.Context, folder, filename string, reader io.Reader, contentType string) (*BlobRef, error) {
	id := filepath.ToSlash(filepath.Join(folder, uuid.NewString()+filepath.Ext(filename)))
	fullPath := filepath.Join(s.basePath, id)

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, reader); err != nil {
		return nil, fmt.Errorf("failed to write file: %w", err)
	}

	return &BlobRef{ID: id, URL: s.URL(id)}, nil
}

// Delete removes a file from local storage
func (s *LocalStorage) Delete(ctx context.Context, id string) error {
	fullPath := filepath.Join(s.basePath, id)

	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}

	return nil
}

// URL returns a public URL for the blob
func (s *LocalStorage) URL(id string) string {
	if s.baseURL == "" {
		return fmt.Sprintf("/files/%s", id)
	}
	return fmt.Sprintf("%s/%s", s.baseURL, id)
}
