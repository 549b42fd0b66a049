package notifications

import (
	"fmt"
	"strings"
	"time"
)

// Channel is the transport a notification is delivered through.
type Channel string

const (
	ChannelInApp Channel = "inapp"
	ChannelEmail Channel = "email"
	ChannelPush  Channel = "push"
)

// Channels lists every supported channel.
var Channels = []Channel{ChannelInApp, ChannelEmail, ChannelPush}

// Valid reports whether c is one of the supported channels.
func (c Channel) Valid() bool {
	switch c {
	case ChannelInApp, ChannelEmail, ChannelPush:
		return true
	}
	return false
}

func (c Channel) String() string {
	return string(c)
}

// ParseChannel converts user input to a Channel. The empty string maps to
// ChannelInApp.
func ParseChannel(s string) (Channel, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ChannelInApp, nil
	}
	c := Channel(s)
	if !c.Valid() {
		return "", fmt.Errorf("%w: unknown channel %q", ErrInvalidNotification, s)
	}
	return c, nil
}

// Realtime event names emitted to connected clients.
const (
	EventCreated   = "notification:created"
	EventDelivered = "notification:delivered"
)

// Notification is a persisted, user-facing event record.
type Notification struct {
	ID          string         `json:"id" bson:"_id"`
	UserID      string         `json:"user_id" bson:"user_id"`
	Type        string         `json:"type" bson:"type"`
	Title       string         `json:"title" bson:"title"`
	Body        string         `json:"body" bson:"body"`
	Payload     map[string]any `json:"payload" bson:"payload"`
	Read        bool           `json:"read" bson:"read"`
	Channel     Channel        `json:"channel" bson:"channel"`
	SentAt      time.Time      `json:"sent_at" bson:"sent_at"`
	DeliveredAt *time.Time     `json:"delivered_at" bson:"delivered_at"`
	CreatedAt   time.Time      `json:"created_at" bson:"created_at"`
}

// Delivered reports whether any path has confirmed delivery.
func (n *Notification) Delivered() bool {
	return n.DeliveredAt != nil
}

// PayloadString returns payload[key] when it is a non-empty string.
func (n *Notification) PayloadString(key string) (string, bool) {
	if n.Payload == nil {
		return "", false
	}
	s, ok := n.Payload[key].(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// CreatedEvent is the realtime payload sent when a notification is created.
type CreatedEvent struct {
	ID      string         `json:"id"`
	Type    string         `json:"type"`
	Title   string         `json:"title"`
	Body    string         `json:"body"`
	Payload map[string]any `json:"payload"`
	Channel Channel        `json:"channel"`
}

// DeliveredEvent is the realtime payload sent once queued delivery succeeds.
type DeliveredEvent struct {
	ID      string  `json:"id"`
	Channel Channel `json:"channel"`
}

func newCreatedEvent(n Notification) CreatedEvent {
	return CreatedEvent{
		ID:      n.ID,
		Type:    n.Type,
		Title:   n.Title,
		Body:    n.Body,
		Payload: n.Payload,
		Channel: n.Channel,
	}
}
