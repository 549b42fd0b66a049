package broadcast

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryBroadcaster fans messages out to in-process subscribers. A message
// is dropped for a subscriber whose buffer is full; the subscriber itself
// stays attached. All methods are safe for concurrent use.
type MemoryBroadcaster[T any] struct {
	subscribers map[string]*subscriber[T]
	bufferSize  int
	closed      bool
	mu          sync.RWMutex
}

// NewMemoryBroadcaster creates a new in-memory broadcaster.
// The bufferSize parameter determines the channel buffer size for each
// subscriber. A minimum buffer size of 1 is enforced.
func NewMemoryBroadcaster[T any](bufferSize int) *MemoryBroadcaster[T] {
	return &MemoryBroadcaster[T]{
		subscribers: make(map[string]*subscriber[T]),
		bufferSize:  max(bufferSize, 1),
	}
}

// Subscribe creates a new subscriber with a generated id.
// If the broadcaster is already closed, it returns a closed subscriber.
func (b *MemoryBroadcaster[T]) Subscribe(ctx context.Context) Subscriber[T] {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := newSubscriber[T](uuid.NewString(), b.bufferSize)
	if b.closed {
		_ = sub.Close()
		return sub
	}

	sub.detach = func() { b.unsubscribe(sub.id) }
	b.subscribers[sub.id] = sub

	if ctx.Done() != nil {
		sub.watch(ctx)
	}

	return sub
}

// Broadcast sends msg to every subscriber without blocking and returns the
// number that accepted it. It returns ErrBroadcasterClosed after Close.
func (b *MemoryBroadcaster[T]) Broadcast(ctx context.Context, msg Message[T]) (int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return 0, ErrBroadcasterClosed
	}

	delivered := 0
	for _, sub := range b.subscribers {
		if sub.send(msg) {
			delivered++
		}
	}

	return delivered, nil
}

// Len returns the number of attached subscribers.
func (b *MemoryBroadcaster[T]) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Close shuts down the broadcaster and closes all subscribers.
// It is safe to call Close multiple times.
func (b *MemoryBroadcaster[T]) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true

	subs := make([]*subscriber[T], 0, len(b.subscribers))
	for _, sub := range b.subscribers {
		subs = append(subs, sub)
	}
	clear(b.subscribers)
	b.mu.Unlock()

	for _, sub := range subs {
		_ = sub.Close()
	}

	return nil
}

func (b *MemoryBroadcaster[T]) unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subscribers, id)
}
