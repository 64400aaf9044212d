package storage

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/hugh/go-helpdesk/pkg/config"
)

// ObjectStore persists generated artifacts such as report PDFs.
type ObjectStore interface {
	// Put stores data under key and returns its location.
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
}

// New builds the store selected by cfg.Storage.
func New(ctx context.Context, cfg config.ReportsConfig) (ObjectStore, error) {
	switch strings.ToLower(cfg.Storage) {
	case "", "local":
		return NewLocalStore(cfg.LocalDir), nil
	case "s3":
		return NewS3Store(ctx, cfg)
	case "gcs":
		return NewGCSStore(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown report storage %q", cfg.Storage)
	}
}

// ObjectKey joins prefix and name into a slash separated key.
func ObjectKey(prefix, name string) string {
	return path.Join(strings.Trim(prefix, "/"), name)
}

// LocalStore writes objects below a directory on disk.
type LocalStore struct {
	dir string
}

func NewLocalStore(dir string) *LocalStore {
	return &LocalStore{dir: dir}
}

func (l *LocalStore) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	clean := filepath.Clean("/" + key)
	target := filepath.Join(l.dir, clean)

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("creating report directory: %w", err)
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", target, err)
	}
	return target, nil
}
