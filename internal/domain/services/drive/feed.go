package drive

import (
	"context"

	"cloudfiles/internal/domain/models/drive"
)

// ChangeFeed carries committed mutations to live subscribers.
// Implementations deliver events per user in publish order.
type ChangeFeed interface {
	// Publish announces a committed change to the owner's subscribers
	Publish(ctx context.Context, event drive.ChangeEvent) error

	// Subscribe opens a stream of the user's changes. The subscription ends
	// when ctx is done or Close is called.
	Subscribe(ctx context.Context, userID string) (FeedSubscription, error)
}

// FeedSubscription is one open change stream
type FeedSubscription interface {
	// Events is closed when the subscription ends
	Events() <-chan drive.ChangeEvent

	// Close releases the subscription. Safe to call more than once.
	Close() error
}
