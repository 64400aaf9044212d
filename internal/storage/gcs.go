package storage

import (
	"context"
	"fmt"

	gcs "cloud.google.com/go/storage"
	"github.com/hugh/go-helpdesk/pkg/config"
	"google.golang.org/api/option"
)

type GCSStore struct {
	client *gcs.Client
	bucket string
}

func NewGCSStore(ctx context.Context, cfg config.ReportsConfig) (*GCSStore, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("gcs report storage requires a bucket")
	}

	var opts []option.ClientOption
	if cfg.GCSCredentials != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.GCSCredentials))
	}

	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating GCS client: %w", err)
	}

	return &GCSStore{client: client, bucket: cfg.Bucket}, nil
}

func (g *GCSStore) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	w := g.client.Bucket(g.bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := w.Write(data); err != nil {
		w.Close()
		return "", fmt.Errorf("writing gs://%s/%s: %w", g.bucket, key, err)
	}
	// The upload is only committed by Close
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("uploading gs://%s/%s: %w", g.bucket, key, err)
	}
	return fmt.Sprintf("gs://%s/%s", g.bucket, key), nil
}

func (g *GCSStore) Close() error {
	return g.client.Close()
}
