package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/viant/approvals/internal/idgen"
	"github.com/viant/approvals/service/messaging"
)

// Config controls buffering and redelivery of the in-memory queue.
type Config struct {
	MaxRetries  int
	RetryDelay  time.Duration
	DeadLetter  bool
	QueueBuffer int
}

// DefaultConfig returns the configuration used when none is supplied.
func DefaultConfig() Config {
	return Config{
		MaxRetries:  3,
		RetryDelay:  100 * time.Millisecond,
		DeadLetter:  true,
		QueueBuffer: 100,
	}
}

// Message carries a queued payload together with its delivery state. A
// message is settled exactly once, by Ack or by Nack.
type Message[T any] struct {
	id       string
	payload  T
	queue    *Queue[T]
	attempts int
	enqueued time.Time

	mu      sync.Mutex
	settled bool
}

// T returns the message payload.
func (m *Message[T]) T() *T {
	return &m.payload
}

// Ack marks the message as delivered.
func (m *Message[T]) Ack() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.settled {
		return fmt.Errorf("message %v already settled", m.id)
	}
	m.settled = true
	return nil
}

// Nack schedules a redelivery. Once the retry budget is spent the message
// is parked on the dead letter list when one is kept, otherwise dropped.
func (m *Message[T]) Nack(err error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.settled {
		return fmt.Errorf("message %v already settled", m.id)
	}
	m.settled = true
	if m.attempts < m.queue.config.MaxRetries {
		m.queue.redeliver(m)
		return nil
	}
	if m.queue.config.DeadLetter {
		m.queue.bury(m)
	}
	return nil
}

// Queue is a channel backed messaging.Queue with bounded redelivery.
type Queue[T any] struct {
	messages chan *Message[T]
	config   Config

	mu   sync.Mutex
	dead []*Message[T]
}

// NewQueue creates an in-memory queue.
func NewQueue[T any](config Config) *Queue[T] {
	if config.QueueBuffer <= 0 {
		config.QueueBuffer = DefaultConfig().QueueBuffer
	}
	return &Queue[T]{
		messages: make(chan *Message[T], config.QueueBuffer),
		config:   config,
	}
}

// Publish enqueues the payload, blocking while the buffer is full.
func (q *Queue[T]) Publish(ctx context.Context, t *T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	message := &Message[T]{
		id:       idgen.New(),
		payload:  *t,
		queue:    q,
		enqueued: time.Now(),
	}
	select {
	case q.messages <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Consume blocks until a message is available or the context ends.
func (q *Queue[T]) Consume(ctx context.Context) (messaging.Message[T], error) {
	select {
	case message := <-q.messages:
		return message, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// redeliver re-queues a fresh copy of the message after the retry delay.
func (q *Queue[T]) redeliver(m *Message[T]) {
	next := &Message[T]{
		id:       m.id,
		payload:  m.payload,
		queue:    q,
		attempts: m.attempts + 1,
		enqueued: time.Now(),
	}
	time.AfterFunc(q.config.RetryDelay, func() {
		q.messages <- next
	})
}

func (q *Queue[T]) bury(m *Message[T]) {
	q.mu.Lock()
	q.dead = append(q.dead, m)
	q.mu.Unlock()
}

// Size reports the number of messages awaiting consumption.
func (q *Queue[T]) Size() int {
	return len(q.messages)
}

// DLQSize reports the number of messages parked on the dead letter list.
func (q *Queue[T]) DLQSize() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.dead)
}

var _ messaging.Queue[any] = (*Queue[any])(nil)
