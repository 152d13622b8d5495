package blob

import (
	"context"
	"fmt"
	"strings"

	"github.com/syaokifaradisa9/e-office-app-sub001/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("blob",
	fx.Provide(provide),
)

func provide(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) (Store, error) {
	store, err := NewFromConfig(context.Background(), cfg.Blob)
	if err != nil {
		return nil, err
	}
	if closer, ok := store.(interface{ Close() error }); ok {
		lc.Append(fx.Hook{
			OnStop: func(context.Context) error { return closer.Close() },
		})
	}
	log.Named("blob").Info("blob store ready", zap.String("type", cfg.Blob.Type))
	return store, nil
}

// NewFromConfig selects the backend named by cfg.Type.
func NewFromConfig(ctx context.Context, cfg config.BlobConfig) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Type)) {
	case "memory":
		return NewMemoryStore(), nil
	case "filesystem", "fs", "":
		return NewFileSystemStore(cfg.FSRoot)
	case "gcs":
		return NewGCSStore(ctx, cfg.GCSBucket, cfg.GCSCredentialsJSON)
	case "s3":
		return NewS3Store(ctx, S3Config{
			Bucket:       cfg.S3Bucket,
			Region:       cfg.S3Region,
			Endpoint:     cfg.S3Endpoint,
			AccessKey:    cfg.S3AccessKey,
			SecretKey:    cfg.S3SecretKey,
			UsePathStyle: cfg.S3UsePathStyle,
		})
	default:
		return nil, fmt.Errorf("blob: unsupported store type %q", cfg.Type)
	}
}
