// Package changefeed delivers committed folder and file mutations to live
// subscribers, either in-process or across instances through Redis pub/sub.
package changefeed

import (
	"context"
	"log/slog"
	"sync"

	"cloudfiles/internal/domain/models/drive"
	driveSvc "cloudfiles/internal/domain/services/drive"
)

// MemoryFeed is an in-process change feed
type MemoryFeed struct {
	mu     sync.RWMutex
	subs   map[string]map[*subscription]struct{}
	buffer int
	logger *slog.Logger
}

// NewMemoryFeed creates an in-process feed. buffer <= 1 selects DefaultBuffer.
func NewMemoryFeed(buffer int, logger *slog.Logger) *MemoryFeed {
	return &MemoryFeed{
		subs:   make(map[string]map[*subscription]struct{}),
		buffer: buffer,
		logger: logger,
	}
}

// Publish fans the event out to the owner's subscribers
func (f *MemoryFeed) Publish(ctx context.Context, event drive.ChangeEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	for sub := range f.subs[event.UserID] {
		if sub.deliver(event) {
			f.logger.Warn("change feed subscriber overflowed, sent resync",
				"user_id", event.UserID,
			)
		}
	}
	return nil
}

// Subscribe registers a subscriber for userID
func (f *MemoryFeed) Subscribe(ctx context.Context, userID string) (driveSvc.FeedSubscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var sub *subscription
	sub = newSubscription(userID, f.buffer, func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.subs[userID], sub)
		if len(f.subs[userID]) == 0 {
			delete(f.subs, userID)
		}
	})

	f.mu.Lock()
	if f.subs[userID] == nil {
		f.subs[userID] = make(map[*subscription]struct{})
	}
	f.subs[userID][sub] = struct{}{}
	f.mu.Unlock()

	sub.closeOnDone(ctx)
	return sub, nil
}

// subscriberCount is used by tests
func (f *MemoryFeed) subscriberCount(userID string) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subs[userID])
}
