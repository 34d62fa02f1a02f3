package runtime

import (
	"context"
	"log/slog"

	"chat-relay/domain"
	"chat-relay/queue"
)

// Broadcaster is the single worker draining the shared outbox. For every
// dequeued item it takes a registry snapshot and offers the item to each
// member exactly once. A recipient that fails to accept delivery is closed
// asynchronously; the fan-out to the remaining recipients is never
// interrupted.
type Broadcaster struct {
	inbox    *queue.Queue[domain.Item]
	registry *Registry
	log      *slog.Logger
}

func NewBroadcaster(inbox *queue.Queue[domain.Item], registry *Registry, log *slog.Logger) *Broadcaster {
	return &Broadcaster{inbox: inbox, registry: registry, log: log}
}

func (b *Broadcaster) Run(ctx context.Context) error {
	for {
		item, err := b.inbox.Dequeue(ctx)
		if err != nil {
			b.log.Debug("Stopping worker")
			return err
		}
		b.fanout(item)
	}
}

func (b *Broadcaster) fanout(item domain.Item) {
	for _, s := range b.registry.Snapshot() {
		if err := s.Deliver(item); err != nil {
			b.log.Warn("Delivery failed, scheduling close",
				"session_id", s.ID(),
				"kind", item.Kind().String(),
				"error", err)
			go s.Close()
		}
	}
}
