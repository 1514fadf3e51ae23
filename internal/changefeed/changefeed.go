package changefeed

import (
	"context"
	"io"
	"log/slog"

	"cloudfiles/internal/config"
	driveSvc "cloudfiles/internal/domain/services/drive"
)

// Feed is a change feed that owns resources
type Feed interface {
	driveSvc.ChangeFeed
	io.Closer
}

// FromConfig selects Redis when REDIS_URL is set, the in-process hub otherwise
func FromConfig(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Feed, error) {
	if cfg.RedisURL != "" {
		feed, err := NewRedisFeed(ctx, cfg.RedisURL, DefaultBuffer, logger)
		if err != nil {
			return nil, err
		}
		logger.Info("change feed ready", "backend", "redis")
		return feed, nil
	}

	logger.Info("change feed ready", "backend", "memory")
	return NewMemoryFeed(DefaultBuffer, logger), nil
}

// Close is a no-op for the in-process hub
func (f *MemoryFeed) Close() error {
	return nil
}
