package storage

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Media backends.
const (
	BackendLocal = "local"
	BackendS3    = "s3"
)

// New returns the media store for backend. dir is used by the local backend and s3cfg by the s3 backend.
func New(ctx context.Context, backend, dir string, s3cfg S3Config, logger *zap.Logger) (MediaStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch backend {
	case BackendLocal, "":
		s, err := NewLocalStore(dir)
		if err != nil {
			return nil, err
		}
		logger.Info("media store ready", zap.String("backend", BackendLocal), zap.String("dir", s.Root()))
		return s, nil
	case BackendS3:
		return NewS3Store(ctx, s3cfg, logger)
	default:
		return nil, fmt.Errorf("unknown media backend %q", backend)
	}
}

var (
	_ MediaStore = (*LocalStore)(nil)
	_ MediaStore = (*S3Store)(nil)
)
