package sender

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrymomot/notifykit/pkg/notifications"
)

// Sender delivers a notification over one channel.
type Sender interface {
	Channel() notifications.Channel
	Send(ctx context.Context, n notifications.Notification) error
}

// Registry routes a notification to the sender registered for its channel.
// It implements delivery.Dispatcher.
type Registry struct {
	mu      sync.RWMutex
	senders map[notifications.Channel]Sender
}

// NewRegistry creates a registry with the given senders registered.
func NewRegistry(senders ...Sender) *Registry {
	r := &Registry{senders: make(map[notifications.Channel]Sender, len(senders))}
	for _, s := range senders {
		r.Register(s)
	}
	return r
}

// Register adds s, replacing any sender already registered for its channel.
func (r *Registry) Register(s Sender) {
	if s == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.senders[s.Channel()] = s
}

// Lookup returns the sender for channel.
func (r *Registry) Lookup(channel notifications.Channel) (Sender, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.senders[channel]
	return s, ok
}

// Send dispatches n to the sender of channel. An unregistered channel is
// ErrNoSender.
func (r *Registry) Send(ctx context.Context, channel notifications.Channel, n notifications.Notification) error {
	s, ok := r.Lookup(channel)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoSender, channel)
	}
	return s.Send(ctx, n)
}
