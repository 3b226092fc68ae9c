// Package storage writes account exports to object storage.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/ezasdf/users-api/config"
)

const (
	BackendMinio = "minio"
	BackendGCS   = "gcs"
)

// ErrDisabled is returned by Open when no backend is configured.
var ErrDisabled = errors.New("storage: no backend configured")

// ObjectStorage is the subset of bucket operations exports need.
type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Bucket() string
}

// Storage wraps an ObjectStorage backend with a stable API.
type Storage struct {
	backend ObjectStorage
}

func NewStorage(backend ObjectStorage) *Storage {
	return &Storage{backend: backend}
}

// Open builds the backend named in cfg.
func Open(ctx context.Context, cfg config.StorageConfig) (*Storage, error) {
	switch cfg.Backend {
	case "":
		return nil, ErrDisabled
	case BackendMinio:
		client, err := NewMinioClient(cfg.Minio)
		if err != nil {
			return nil, fmt.Errorf("minio: %w", err)
		}
		return NewStorage(client), nil
	case BackendGCS:
		client, err := NewGCSClient(ctx, cfg.GCS)
		if err != nil {
			return nil, fmt.Errorf("gcs: %w", err)
		}
		return NewStorage(client), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

func (s *Storage) EnsureBucket(ctx context.Context) error {
	return s.backend.EnsureBucket(ctx)
}

func (s *Storage) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	return s.backend.Put(ctx, key, r, size, contentType)
}

// PutJSON encodes v and uploads it under key, creating the bucket first
// if needed.
func (s *Storage) PutJSON(ctx context.Context, key string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.backend.EnsureBucket(ctx); err != nil {
		return fmt.Errorf("ensure bucket %s: %w", s.backend.Bucket(), err)
	}
	if err := s.backend.Put(ctx, key, bytes.NewReader(data), int64(len(data)), "application/json"); err != nil {
		return fmt.Errorf("put %s/%s: %w", s.backend.Bucket(), key, err)
	}
	return nil
}

func (s *Storage) Bucket() string {
	return s.backend.Bucket()
}
