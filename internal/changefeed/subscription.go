package changefeed

import (
	"context"
	"sync"

	"cloudfiles/internal/domain/models/drive"
)

// DefaultBuffer is the per-subscriber event buffer
const DefaultBuffer = 256

// subscription is a buffered per-subscriber queue. A full queue is drained
// and replaced by a single resync event so publishers never block.
type subscription struct {
	userID  string
	mu      sync.Mutex
	closed  bool
	ch      chan drive.ChangeEvent
	done    chan struct{}
	once    sync.Once
	onClose func()
}

func newSubscription(userID string, buffer int, onClose func()) *subscription {
	if buffer <= 1 {
		buffer = DefaultBuffer
	}
	return &subscription{
		userID:  userID,
		ch:      make(chan drive.ChangeEvent, buffer),
		done:    make(chan struct{}),
		onClose: onClose,
	}
}

// deliver enqueues without blocking and reports whether events were dropped
func (s *subscription) deliver(event drive.ChangeEvent) (overflowed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}

	select {
	case s.ch <- event:
		return false
	default:
	}

	// Drop everything pending; the resync supersedes it.
	for {
		select {
		case <-s.ch:
			continue
		default:
		}
		break
	}
	s.ch <- drive.ResyncEvent(s.userID)
	return true
}

func (s *subscription) Events() <-chan drive.ChangeEvent {
	return s.ch
}

func (s *subscription) Close() error {
	s.once.Do(func() {
		if s.onClose != nil {
			s.onClose()
		}
		s.mu.Lock()
		s.closed = true
		close(s.ch)
		s.mu.Unlock()
		close(s.done)
	})
	return nil
}

// closeOnDone ties the subscription's lifetime to ctx
func (s *subscription) closeOnDone(ctx context.Context) {
	go func() {
		select {
		case <-ctx.Done():
			s.Close()
		case <-s.done:
		}
	}()
}
