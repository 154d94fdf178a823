package publish

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"
)

// objectStore is the part of storage.S3 the publisher needs
type objectStore interface {
	Key(name string) string
	URL(key string) string
	PutFile(ctx context.Context, key, localPath, contentType string) error
}

// S3Publisher copies the video into the configured bucket
type S3Publisher struct {
	store  objectStore
	logger *zap.Logger
}

// NewS3Publisher wraps an S3 store, usually *storage.S3
func NewS3Publisher(store objectStore, logger *zap.Logger) *S3Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &S3Publisher{store: store, logger: logger}
}

func (p *S3Publisher) Name() string { return "s3" }

func (p *S3Publisher) Publish(ctx context.Context, v Video) (string, error) {
	key := p.store.Key(filepath.Base(v.Path))
	if err := p.store.PutFile(ctx, key, v.Path, "video/mp4"); err != nil {
		return "", fmt.Errorf("publish %s: %w", v.JobID, err)
	}
	url := p.store.URL(key)
	p.logger.Info("video uploaded to s3", zap.String("job", v.JobID), zap.String("url", url))
	return url, nil
}
