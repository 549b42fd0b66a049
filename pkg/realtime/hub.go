package realtime

import (
	"context"
	"log/slog"
	"sync"

	"github.com/dmitrymomot/notifykit/pkg/broadcast"
	"github.com/dmitrymomot/notifykit/pkg/logger"
)

// DefaultBufferSize is the number of undelivered events a connection may
// hold before further events are dropped for it.
const DefaultBufferSize = 64

// Event is a named realtime message.
type Event struct {
	Name    string `json:"event"`
	Payload any    `json:"payload"`
}

// Emitter pushes events to a user's live connections.
type Emitter interface {
	EmitToUser(ctx context.Context, userID, event string, payload any) bool
}

// Hub tracks live connections per user and fans events out to them.
// Delivery is best effort: events are never persisted and are dropped for
// users with no connection or a full buffer.
type Hub struct {
	mu         sync.Mutex
	users      map[string]*broadcast.MemoryBroadcaster[Event]
	bufferSize int
	logger     *slog.Logger
	closed     bool
}

// Option configures a Hub.
type Option func(*Hub)

// WithBufferSize sets the per-connection event buffer.
func WithBufferSize(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.bufferSize = n
		}
	}
}

// WithLogger sets the hub logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *Hub) {
		if l != nil {
			h.logger = l
		}
	}
}

// NewHub creates an empty hub.
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		users:      make(map[string]*broadcast.MemoryBroadcaster[Event]),
		bufferSize: DefaultBufferSize,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.With(logger.Component("realtime"))
	return h
}

// Connect registers a live connection for userID. The connection is removed
// when ctx ends or Close is called.
func (h *Hub) Connect(ctx context.Context, userID string) (*Connection, error) {
	if userID == "" {
		return nil, ErrUserIDRequired
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrHubClosed
	}
	b, ok := h.users[userID]
	if !ok {
		b = broadcast.NewMemoryBroadcaster[Event](h.bufferSize)
		h.users[userID] = b
	}
	sub := b.Subscribe(context.Background())
	h.mu.Unlock()

	c := &Connection{
		ID:     sub.ID(),
		UserID: userID,
		sub:    sub,
		hub:    h,
	}
	c.watch(ctx)

	h.logger.DebugContext(ctx, "realtime connection opened",
		logger.UserID(userID),
		logger.ConnectionID(c.ID))

	return c, nil
}

// EmitToUser sends an event to every live connection of userID and reports
// whether at least one connection accepted it.
func (h *Hub) EmitToUser(ctx context.Context, userID, event string, payload any) bool {
	h.mu.Lock()
	b := h.users[userID]
	h.mu.Unlock()

	if b == nil {
		h.logger.DebugContext(ctx, "no live connection for user",
			logger.UserID(userID),
			logger.Event(event))
		return false
	}

	n, err := b.Broadcast(ctx, broadcast.Message[Event]{Data: Event{Name: event, Payload: payload}})
	if err != nil || n == 0 {
		h.logger.DebugContext(ctx, "realtime event dropped",
			logger.UserID(userID),
			logger.Event(event))
		return false
	}
	return true
}

// Connections returns the number of live connections of userID.
func (h *Hub) Connections(userID string) int {
	h.mu.Lock()
	b := h.users[userID]
	h.mu.Unlock()

	if b == nil {
		return 0
	}
	return b.Len()
}

// Users returns the number of users with at least one live connection.
func (h *Hub) Users() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.users)
}

// Close disconnects everyone. Connect fails with ErrHubClosed afterwards.
func (h *Hub) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	users := h.users
	h.users = make(map[string]*broadcast.MemoryBroadcaster[Event])
	h.mu.Unlock()

	for _, b := range users {
		_ = b.Close()
	}
	return nil
}

// release drops the user's broadcaster once its last connection is gone.
func (h *Hub) release(userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	b, ok := h.users[userID]
	if !ok || b.Len() > 0 {
		return
	}
	delete(h.users, userID)
	_ = b.Close()
}

// Connection is one live client of a user.
type Connection struct {
	ID     string
	UserID string

	sub  broadcast.Subscriber[Event]
	hub  *Hub
	once sync.Once

	mu   sync.Mutex
	stop func() bool
}

// Events returns the channel of events for this connection. It is closed
// when the connection or the hub closes.
func (c *Connection) Events() <-chan broadcast.Message[Event] {
	return c.sub.Receive(context.Background())
}

// Close removes the connection from the hub. It is idempotent.
func (c *Connection) Close() error {
	c.once.Do(func() {
		c.mu.Lock()
		stop := c.stop
		c.mu.Unlock()
		if stop != nil {
			stop()
		}

		_ = c.sub.Close()
		c.hub.release(c.UserID)

		c.hub.logger.Debug("realtime connection closed",
			logger.UserID(c.UserID),
			logger.ConnectionID(c.ID))
	})
	return nil
}

func (c *Connection) watch(ctx context.Context) {
	if ctx.Done() == nil {
		return
	}
	stop := context.AfterFunc(ctx, func() { _ = c.Close() })

	c.mu.Lock()
	defer c.mu.Unlock()
	c.stop = stop
}
