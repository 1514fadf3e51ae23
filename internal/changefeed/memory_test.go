package changefeed

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cloudfiles/internal/domain/models/drive"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func receive(t *testing.T, ch <-chan drive.ChangeEvent) drive.ChangeEvent {
	t.Helper()
	select {
	case ev, ok := <-ch:
		require.True(t, ok, "channel closed")
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return drive.ChangeEvent{}
	}
}

func TestMemoryFeedDeliversPerUser(t *testing.T) {
	ctx := context.Background()
	feed := NewMemoryFeed(8, testLogger())

	alice, err := feed.Subscribe(ctx, "alice")
	require.NoError(t, err)
	defer alice.Close()
	bob, err := feed.Subscribe(ctx, "bob")
	require.NoError(t, err)
	defer bob.Close()

	require.NoError(t, feed.Publish(ctx, drive.ChangeEvent{Collection: drive.CollectionFolders, Op: drive.OpCreated, ID: "f1", UserID: "alice"}))
	require.NoError(t, feed.Publish(ctx, drive.ChangeEvent{Collection: drive.CollectionFiles, Op: drive.OpDeleted, ID: "x1", UserID: "alice"}))

	assert.Equal(t, "f1", receive(t, alice.Events()).ID)
	assert.Equal(t, "x1", receive(t, alice.Events()).ID)

	select {
	case ev := <-bob.Events():
		t.Fatalf("bob received alice's event %+v", ev)
	default:
	}
}

func TestMemoryFeedOverflowSendsResync(t *testing.T) {
	ctx := context.Background()
	feed := NewMemoryFeed(2, testLogger())

	sub, err := feed.Subscribe(ctx, "alice")
	require.NoError(t, err)
	defer sub.Close()

	for i := 0; i < 5; i++ {
		require.NoError(t, feed.Publish(ctx, drive.ChangeEvent{Op: drive.OpUpdated, ID: "f", UserID: "alice"}))
	}

	// The queue ends with a resync; nothing older than it survives the overflow.
	var sawResync bool
	for len(sub.Events()) > 0 {
		if ev := <-sub.Events(); ev.Op == drive.OpResync {
			sawResync = true
		}
	}
	assert.True(t, sawResync)
}

func TestMemoryFeedCloseUnregisters(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	feed := NewMemoryFeed(4, testLogger())

	sub, err := feed.Subscribe(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, feed.subscriberCount("alice"))

	cancel()
	assert.Eventually(t, func() bool { return feed.subscriberCount("alice") == 0 }, time.Second, 10*time.Millisecond)

	_, ok := <-sub.Events()
	assert.False(t, ok)

	// Closing again and publishing afterwards are harmless.
	require.NoError(t, sub.Close())
	require.NoError(t, feed.Publish(context.Background(), drive.ChangeEvent{UserID: "alice"}))
}
