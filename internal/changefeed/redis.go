package changefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"cloudfiles/internal/domain/models/drive"
	driveSvc "cloudfiles/internal/domain/services/drive"
)

const channelPrefix = "cloudfiles:changes:"

// RedisFeed publishes changes on a per-user Redis channel so every
// server instance sees mutations made through any other.
type RedisFeed struct {
	client *redis.Client
	buffer int
	logger *slog.Logger
}

// NewRedisFeed connects to the Redis server at url (redis:// or rediss://)
func NewRedisFeed(ctx context.Context, url string, buffer int, logger *slog.Logger) (*RedisFeed, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisFeed{client: client, buffer: buffer, logger: logger}, nil
}

func channelName(userID string) string {
	return channelPrefix + userID
}

// Publish sends the event on the owner's channel
func (f *RedisFeed) Publish(ctx context.Context, event drive.ChangeEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode change event: %w", err)
	}

	if err := f.client.Publish(ctx, channelName(event.UserID), payload).Err(); err != nil {
		return fmt.Errorf("publish change event: %w", err)
	}
	return nil
}

// Subscribe listens on the user's channel until ctx is done or Close is called
func (f *RedisFeed) Subscribe(ctx context.Context, userID string) (driveSvc.FeedSubscription, error) {
	pubsub := f.client.Subscribe(ctx, channelName(userID))

	// Wait for the subscription confirmation so no publish after return is missed
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("subscribe to changes: %w", err)
	}

	sub := newSubscription(userID, f.buffer, func() {
		if err := pubsub.Close(); err != nil {
			f.logger.Debug("redis pubsub close failed", "user_id", userID, "error", err)
		}
	})

	go func() {
		for msg := range pubsub.Channel() {
			var event drive.ChangeEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				f.logger.Warn("dropping malformed change event",
					"channel", msg.Channel,
					"error", err,
				)
				continue
			}
			if sub.deliver(event) {
				f.logger.Warn("change feed subscriber overflowed, sent resync",
					"user_id", userID,
				)
			}
		}
	}()

	sub.closeOnDone(ctx)
	return sub, nil
}

// Close releases the Redis connection pool
func (f *RedisFeed) Close() error {
	return f.client.Close()
}
