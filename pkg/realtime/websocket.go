package realtime

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dmitrymomot/notifykit/pkg/logger"
)

// UserIDParam is the query parameter carrying the connecting user's id.
const UserIDParam = "userId"

const (
	defaultWriteTimeout = 10 * time.Second
	defaultPingInterval = 30 * time.Second
)

// WebsocketHandler upgrades requests to websocket connections registered
// with a Hub. The user id is taken from the query string as supplied; the
// upstream auth layer is expected to vouch for it. Every event is written as
// a JSON text frame {"event": ..., "payload": ...}.
type WebsocketHandler struct {
	hub          *Hub
	upgrader     websocket.Upgrader
	logger       *slog.Logger
	writeTimeout time.Duration
	pingInterval time.Duration
}

// HandlerOption configures a WebsocketHandler.
type HandlerOption func(*WebsocketHandler)

// WithCheckOrigin replaces the origin check. All origins are accepted by default.
func WithCheckOrigin(fn func(r *http.Request) bool) HandlerOption {
	return func(h *WebsocketHandler) {
		if fn != nil {
			h.upgrader.CheckOrigin = fn
		}
	}
}

// WithHandlerLogger sets the handler logger.
func WithHandlerLogger(l *slog.Logger) HandlerOption {
	return func(h *WebsocketHandler) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithPingInterval sets how often idle connections are pinged.
func WithPingInterval(d time.Duration) HandlerOption {
	return func(h *WebsocketHandler) {
		if d > 0 {
			h.pingInterval = d
		}
	}
}

// NewWebsocketHandler creates a handler serving connections for hub.
func NewWebsocketHandler(hub *Hub, opts ...HandlerOption) *WebsocketHandler {
	h := &WebsocketHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger:       slog.Default(),
		writeTimeout: defaultWriteTimeout,
		pingInterval: defaultPingInterval,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *WebsocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get(UserIDParam)
	if userID == "" {
		http.Error(w, "userId query parameter is required", http.StatusBadRequest)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WarnContext(r.Context(), "websocket upgrade failed",
			logger.UserID(userID),
			logger.Error(err))
		return
	}
	defer ws.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn, err := h.hub.Connect(ctx, userID)
	if err != nil {
		h.logger.WarnContext(ctx, "realtime connect rejected",
			logger.UserID(userID),
			logger.Error(err))
		_ = ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, err.Error()),
			time.Now().Add(h.writeTimeout))
		return
	}
	defer conn.Close()

	go h.reader(ws, cancel)
	h.writer(ctx, ws, conn)
}

// reader drains client frames so control messages are processed and ends
// the session when the client goes away.
func (h *WebsocketHandler) reader(ws *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *WebsocketHandler) writer(ctx context.Context, ws *websocket.Conn, conn *Connection) {
	ping := time.NewTicker(h.pingInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case msg, ok := <-conn.Events():
			if !ok {
				_ = ws.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
					time.Now().Add(h.writeTimeout))
				return
			}
			_ = ws.SetWriteDeadline(time.Now().Add(h.writeTimeout))
			if err := ws.WriteJSON(msg.Data); err != nil {
				if !errors.Is(err, websocket.ErrCloseSent) {
					h.logger.DebugContext(ctx, "websocket write failed",
						logger.UserID(conn.UserID),
						logger.ConnectionID(conn.ID),
						logger.Error(err))
				}
				return
			}

		case <-ping.C:
			if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(h.writeTimeout)); err != nil {
				return
			}
		}
	}
}
