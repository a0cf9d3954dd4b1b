package notification

import (
	"context"

	"github.com/viant/approvals/internal/clock"
	"github.com/viant/approvals/internal/idgen"
	"github.com/viant/approvals/service/messaging"
	"github.com/viant/approvals/service/messaging/memory"
)

// Memory is an in-process notifier backed by a message queue. Consumers
// drain the queue to deliver or inspect events.
type Memory struct {
	queue *memory.Queue[Event]
}

// NewMemory creates an in-process notifier.
func NewMemory(config memory.Config) *Memory {
	return &Memory{queue: memory.NewQueue[Event](config)}
}

// Notify publishes the event to the queue.
func (m *Memory) Notify(ctx context.Context, event *Event) error {
	if event.ID == "" {
		event.ID = idgen.New()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = clock.Now()
	}
	return m.queue.Publish(ctx, event)
}

// Queue exposes the underlying queue for consumers.
func (m *Memory) Queue() messaging.Queue[Event] {
	return m.queue
}
