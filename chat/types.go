package chat

import (
	"context"
	"strings"
	"time"
)

// SystemSender is the reserved identity used for join/leave notices.
const SystemSender = "System"

// Client-to-server event names.
const (
	EventJoinRoom  = "joinRoom"
	EventLeaveRoom = "leaveRoom"
	EventMessage   = "message"
)

// Server-to-client event names.
const (
	EventRoomHistory = "roomHistory"
)

// Message is one chat message. The timestamp is assigned server-side at
// receipt; within a room it is ordering-grade for display only.
type Message struct {
	Room      string    `json:"room"`
	Sender    string    `json:"sender"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Envelope is the unit published on the broadcast bus. Exclude names a
// connection the fan-out must skip, used for join/leave notices so the
// acting client does not receive its own notice.
type Envelope struct {
	Message Message `json:"message"`
	Exclude string  `json:"exclude,omitempty"`
}

// ClientEvent is a single inbound frame from a connected socket.
type ClientEvent struct {
	Event   string `json:"event"`
	Room    string `json:"room,omitempty"`
	Content string `json:"content,omitempty"`
}

// ServerEvent is a single outbound frame to a connected socket.
type ServerEvent struct {
	Event   string    `json:"event"`
	Message *Message  `json:"message,omitempty"`
	History []Message `json:"history,omitempty"`
}

// Tracker is the shared membership record: which usernames are present in
// which rooms, visible to every server instance. The coordinator only
// writes; membership reads happen on the introspection surface.
type Tracker interface {
	Add(ctx context.Context, room, username string) error
	Remove(ctx context.Context, room, username string) error
}

// History is the bounded per-room recent-message cache.
type History interface {
	Append(ctx context.Context, msg Message) error
	Recent(ctx context.Context, room string) ([]Message, error)
	Fill(ctx context.Context, room string, msgs []Message) error
}

// Publisher fans an envelope out to every instance, including this one.
type Publisher interface {
	Publish(ctx context.Context, env Envelope) error
}

// MessageStore is the durable append-only message log.
type MessageStore interface {
	SaveMessage(ctx context.Context, msg Message) error
	RecentMessages(ctx context.Context, room string, limit int) ([]Message, error)
}

// Verifier checks a bearer credential and yields the username it carries.
type Verifier interface {
	Verify(token string) (string, error)
}

func validContent(content string) bool {
	return strings.TrimSpace(content) != ""
}
