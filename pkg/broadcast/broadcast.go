package broadcast

import (
	"context"
	"sync"
)

// Message wraps data of type T for type-safe broadcasting.
type Message[T any] struct {
	Data T
}

// Subscriber receives messages from a Broadcaster.
// Implementations must be safe for concurrent use.
type Subscriber[T any] interface {
	// ID identifies the subscriber within its broadcaster.
	ID() string

	// Receive returns a channel for receiving broadcast messages.
	Receive(ctx context.Context) <-chan Message[T]

	// Close detaches the subscriber from its broadcaster and closes the
	// receive channel. Close is idempotent.
	Close() error
}

// Broadcaster sends messages to multiple subscribers.
// Messages are dropped for slow consumers rather than blocking the sender.
type Broadcaster[T any] interface {
	// Subscribe creates a subscriber that receives every later broadcast.
	// The subscription is closed when ctx ends.
	Subscribe(ctx context.Context) Subscriber[T]

	// Broadcast offers msg to all active subscribers and returns how many
	// accepted it.
	Broadcast(ctx context.Context, msg Message[T]) (int, error)

	// Len returns the number of active subscribers.
	Len() int

	// Close shuts down the broadcaster and closes all subscribers.
	Close() error
}

type subscriber[T any] struct {
	id     string
	ch     chan Message[T]
	closed bool
	mu     sync.RWMutex

	detach func()
	stop   func() bool
}

func newSubscriber[T any](id string, bufferSize int) *subscriber[T] {
	return &subscriber[T]{
		id: id,
		ch: make(chan Message[T], bufferSize),
	}
}

func (s *subscriber[T]) ID() string {
	return s.id
}

func (s *subscriber[T]) Receive(ctx context.Context) <-chan Message[T] {
	return s.ch
}

func (s *subscriber[T]) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	close(s.ch)
	s.closed = true
	stop := s.stop
	s.mu.Unlock()

	if stop != nil {
		stop()
	}
	if s.detach != nil {
		s.detach()
	}
	return nil
}

// watch closes the subscriber once ctx ends.
func (s *subscriber[T]) watch(ctx context.Context) {
	stop := context.AfterFunc(ctx, func() { _ = s.Close() })

	s.mu.Lock()
	defer s.mu.Unlock()
	s.stop = stop
}

func (s *subscriber[T]) send(msg Message[T]) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false
	}

	select {
	case s.ch <- msg:
		return true
	default:
		return false
	}
}
