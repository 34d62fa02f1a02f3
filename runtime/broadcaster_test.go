package runtime

import (
	"context"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"chat-relay/domain"
	"chat-relay/queue"
	"chat-relay/wire"
)

// collectFrames drains frames from a client connection into a channel.
func collectFrames(t *testing.T, conn net.Conn) <-chan wire.Frame {
	t.Helper()
	out := make(chan wire.Frame, 64)
	go func() {
		r := wire.NewReader(conn)
		for {
			frame, err := r.ReadFrame()
			if err != nil {
				close(out)
				return
			}
			out <- frame
		}
	}()
	return out
}

func nextFrame(t *testing.T, frames <-chan wire.Frame) wire.Frame {
	t.Helper()
	select {
	case frame, ok := <-frames:
		require.True(t, ok, "connection closed before expected frame")
		return frame
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for frame")
		return wire.Frame{}
	}
}

func TestBroadcaster_Fans_Out_In_Enqueue_Order(t *testing.T) {
	req := require.New(t)
	outbox := queue.New[domain.Item]()
	registry := NewRegistry(outbox, slog.Default())

	first, firstClient := newTestSession(t, registry, outbox)
	second, secondClient := newTestSession(t, registry, outbox)
	registry.Add(first)
	registry.Add(second)

	firstFrames := collectFrames(t, firstClient)
	secondFrames := collectFrames(t, secondClient)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = NewBroadcaster(outbox, registry, slog.Default()).Run(ctx) }()

	// When items are enqueued in a known order
	outbox.Enqueue(domain.ChatLine{Text: "alice: one"})
	outbox.Enqueue(domain.ChatLine{Text: "alice: two"})
	outbox.Enqueue(domain.RosterSnapshot{Names: []string{"alice"}})

	// Then every client observes exactly that order
	for _, frames := range []<-chan wire.Frame{firstFrames, secondFrames} {
		req.Equal("alice: one", nextFrame(t, frames).Text)
		req.Equal("alice: two", nextFrame(t, frames).Text)
		req.Equal([]string{"alice"}, nextFrame(t, frames).Names)
	}
}

func TestBroadcaster_Isolates_Failing_Recipients(t *testing.T) {
	req := require.New(t)
	outbox := queue.New[domain.Item]()
	registry := NewRegistry(outbox, slog.Default())

	healthy, healthyClient := newTestSession(t, registry, outbox)
	broken, brokenClient := newTestSession(t, registry, outbox)
	registry.Add(healthy)
	registry.Add(broken)

	healthyFrames := collectFrames(t, healthyClient)

	// Given one recipient whose connection is already unusable
	req.NoError(brokenClient.Close())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = NewBroadcaster(outbox, registry, slog.Default()).Run(ctx) }()

	// When an item is broadcast
	outbox.Enqueue(domain.ChatLine{Text: "alice: hello"})

	// Then the healthy recipient still receives it
	req.Equal("alice: hello", nextFrame(t, healthyFrames).Text)

	// And the failing one is closed without stopping the broadcaster
	select {
	case <-broken.Done():
	case <-time.After(time.Second):
		req.Fail("failing session was not closed")
	}

	outbox.Enqueue(domain.ChatLine{Text: "alice: again"})
	req.Equal("alice: again", nextFrame(t, healthyFrames).Text)
}

func TestBroadcaster_Skips_Sessions_Departed_Before_Dequeue(t *testing.T) {
	req := require.New(t)
	outbox := queue.New[domain.Item]()
	registry := NewRegistry(outbox, slog.Default())

	stayer, stayerClient := newTestSession(t, registry, outbox)
	leaver, _ := newTestSession(t, registry, outbox)
	registry.Add(stayer)
	registry.Add(leaver)

	stayerFrames := collectFrames(t, stayerClient)

	// Given an item enqueued while both sessions were members
	outbox.Enqueue(domain.ChatLine{Text: "alice: bye"})

	// When one session leaves before the broadcaster drains the queue
	leaver.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = NewBroadcaster(outbox, registry, slog.Default()).Run(ctx) }()

	// Then the remaining member receives the item; the departed one is
	// simply not offered it
	req.Equal("alice: bye", nextFrame(t, stayerFrames).Text)
}
