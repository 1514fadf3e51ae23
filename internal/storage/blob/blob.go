package blob

import (
	"log/slog"

	"cloudfiles/internal/config"
	driveSvc "cloudfiles/internal/domain/services/drive"
)

// FromConfig selects S3 when a bucket is configured, the local directory otherwise
func FromConfig(cfg *config.Config, logger *slog.Logger) (driveSvc.BlobStore, error) {
	if cfg.S3Bucket != "" {
		store, err := NewS3Store(S3Options{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			ForcePathStyle:  cfg.S3ForcePathStyle,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
		})
		if err != nil {
			return nil, err
		}
		logger.Info("blob store ready", "backend", "s3", "bucket", cfg.S3Bucket)
		return store, nil
	}

	store, err := NewLocalStore(cfg.BlobDir, cfg.BlobBaseURL)
	if err != nil {
		return nil, err
	}
	logger.Info("blob store ready", "backend", "local", "dir", cfg.BlobDir)
	return store, nil
}
