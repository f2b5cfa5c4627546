// Package chat implements the realtime room messaging core: per-connection
// sessions, local room registration, message fan-out via the broadcast bus,
// and the bounded-history join snapshot.
package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"
)

// Coordinator owns this instance's live sessions and the local map from room
// name to locally-connected sockets. That map only scopes bus deliveries; the
// Tracker remains the system of record for membership.
type Coordinator struct {
	tracker Tracker
	history History
	store   MessageStore
	bus     Publisher

	historyLimit int
	opTimeout    time.Duration
	logger       *log.Logger

	mu      sync.RWMutex
	clients map[string]*Client
	rooms   map[string]map[string]*Client
}

func NewCoordinator(tracker Tracker, history History, store MessageStore, bus Publisher, historyLimit int, opTimeout time.Duration, logger *log.Logger) *Coordinator {
	if logger == nil {
		logger = log.Default()
	}
	return &Coordinator{
		tracker:      tracker,
		history:      history,
		store:        store,
		bus:          bus,
		historyLimit: historyLimit,
		opTimeout:    opTimeout,
		logger:       logger,
		clients:      make(map[string]*Client),
		rooms:        make(map[string]map[string]*Client),
	}
}

func (co *Coordinator) opCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), co.opTimeout)
}

// Register binds an authenticated session to this instance.
func (co *Coordinator) Register(c *Client) {
	co.mu.Lock()
	co.clients[c.id] = c
	total := len(co.clients)
	co.mu.Unlock()
	co.logger.Printf("Client %s (%s) connected. Total: %d", c.id, c.username, total)
}

// Disconnect performs the leave cleanup for every room the session was in
// and discards the session. It runs to completion even though no response
// is owed to the gone client.
func (co *Coordinator) Disconnect(c *Client) {
	co.mu.Lock()
	if _, ok := co.clients[c.id]; !ok {
		co.mu.Unlock()
		return
	}
	delete(co.clients, c.id)
	joined := make(map[string]bool, len(c.rooms))
	for room := range c.rooms {
		co.removeLocal(room, c)
		joined[room] = !co.usernameStillInRoom(room, c.username)
	}
	c.rooms = make(map[string]struct{})
	total := len(co.clients)
	co.mu.Unlock()

	for room, last := range joined {
		co.announceLeave(room, c, last)
	}
	co.logger.Printf("Client %s (%s) disconnected. Total: %d", c.id, c.username, total)
}

// JoinRoom registers the socket for local delivery, updates shared
// membership, notifies the other members and sends the history snapshot to
// the joining socket only.
func (co *Coordinator) JoinRoom(c *Client, room string) {
	if room == "" {
		co.logger.Printf("Client %s sent joinRoom without a room, dropping", c.id)
		return
	}

	co.mu.Lock()
	if co.rooms[room] == nil {
		co.rooms[room] = make(map[string]*Client)
	}
	co.rooms[room][c.id] = c
	c.rooms[room] = struct{}{}
	co.mu.Unlock()

	ctx, cancel := co.opCtx()
	defer cancel()

	// Shared membership is non-critical for delivery; log and continue.
	if err := co.tracker.Add(ctx, room, c.username); err != nil {
		co.logger.Printf("Failed to add %s to membership of %s: %v", c.username, room, err)
	}

	notice := Envelope{
		Message: Message{
			Room:      room,
			Sender:    SystemSender,
			Content:   fmt.Sprintf("%s joined the room", c.username),
			Timestamp: time.Now(),
		},
		Exclude: c.id,
	}
	if err := co.bus.Publish(ctx, notice); err != nil {
		co.logger.Printf("Failed to publish join notice for %s: %v", room, err)
	}

	c.deliver(ServerEvent{Event: EventRoomHistory, History: co.roomHistory(ctx, room)})
}

// roomHistory reads the recent cache and, when cold, repairs it from the
// durable store. Concurrent first-readers may both repopulate; duplication
// is display-level only.
func (co *Coordinator) roomHistory(ctx context.Context, room string) []Message {
	msgs, err := co.history.Recent(ctx, room)
	if err != nil {
		co.logger.Printf("Failed to read history cache for %s: %v", room, err)
	}
	if len(msgs) > 0 {
		return msgs
	}

	stored, err := co.store.RecentMessages(ctx, room, co.historyLimit)
	if err != nil {
		co.logger.Printf("Failed to read stored messages for %s: %v", room, err)
		return msgs
	}
	if len(stored) > 0 {
		if err := co.history.Fill(ctx, room, stored); err != nil {
			co.logger.Printf("Failed to repopulate history cache for %s: %v", room, err)
		}
	}
	return stored
}

// LeaveRoom deregisters the socket's local delivery scope and notifies the
// remaining members. A leave for a room the session never joined is dropped.
func (co *Coordinator) LeaveRoom(c *Client, room string) {
	co.mu.Lock()
	if _, ok := c.rooms[room]; !ok {
		co.mu.Unlock()
		co.logger.Printf("Client %s sent leaveRoom for %s without joining, dropping", c.id, room)
		return
	}
	delete(c.rooms, room)
	co.removeLocal(room, c)
	last := !co.usernameStillInRoom(room, c.username)
	co.mu.Unlock()

	co.announceLeave(room, c, last)
}

// announceLeave notifies the remaining members. Shared membership is keyed
// by username, so it is only cleared when the last local session carrying
// that name has left the room; earlier leaves keep the user listed.
func (co *Coordinator) announceLeave(room string, c *Client, lastSession bool) {
	ctx, cancel := co.opCtx()
	defer cancel()

	if lastSession {
		if err := co.tracker.Remove(ctx, room, c.username); err != nil {
			co.logger.Printf("Failed to remove %s from membership of %s: %v", c.username, room, err)
		}
	}

	notice := Envelope{
		Message: Message{
			Room:      room,
			Sender:    SystemSender,
			Content:   fmt.Sprintf("%s left the room", c.username),
			Timestamp: time.Now(),
		},
		Exclude: c.id,
	}
	if err := co.bus.Publish(ctx, notice); err != nil {
		co.logger.Printf("Failed to publish leave notice for %s: %v", room, err)
	}
}

// usernameStillInRoom reports whether any other local session for username
// remains registered in room. Caller must hold co.mu.
func (co *Coordinator) usernameStillInRoom(room, username string) bool {
	for _, member := range co.rooms[room] {
		if member.username == username {
			return true
		}
	}
	return false
}

// removeLocal drops the socket from the room's local delivery set. Caller
// must hold co.mu.
func (co *Coordinator) removeLocal(room string, c *Client) {
	if members, ok := co.rooms[room]; ok {
		delete(members, c.id)
		if len(members) == 0 {
			delete(co.rooms, room)
		}
	}
}

// SendMessage persists, caches and publishes one message. Persistence and
// cache failures are logged and the message is still published, favoring
// delivery over durability. There is no local echo: the sender receives the
// message through the bus path like everyone else.
func (co *Coordinator) SendMessage(c *Client, room, content string) {
	if !validContent(content) {
		co.logger.Printf("Client %s sent empty message to %s, dropping", c.id, room)
		return
	}

	co.mu.RLock()
	_, joined := c.rooms[room]
	co.mu.RUnlock()
	if !joined {
		co.logger.Printf("Client %s sent message to %s without joining, dropping", c.id, room)
		return
	}

	msg := Message{
		Room:      room,
		Sender:    c.username,
		Content:   content,
		Timestamp: time.Now(),
	}

	ctx, cancel := co.opCtx()
	defer cancel()

	if err := co.store.SaveMessage(ctx, msg); err != nil {
		co.logger.Printf("Failed to persist message for %s: %v", room, err)
	}
	if err := co.history.Append(ctx, msg); err != nil {
		co.logger.Printf("Failed to cache message for %s: %v", room, err)
	}
	if err := co.bus.Publish(ctx, Envelope{Message: msg}); err != nil {
		co.logger.Printf("Failed to publish message for %s: %v", room, err)
	}
}

// HandleEnvelope delivers a bus message to every locally-registered socket
// joined to the target room. Routing is purely by local registration, never
// by publisher identity, so single- and multi-instance deployments behave
// identically.
func (co *Coordinator) HandleEnvelope(env Envelope) {
	co.mu.RLock()
	members := co.rooms[env.Message.Room]
	targets := make([]*Client, 0, len(members))
	for id, c := range members {
		if id == env.Exclude {
			continue
		}
		targets = append(targets, c)
	}
	co.mu.RUnlock()

	msg := env.Message
	for _, c := range targets {
		c.deliver(ServerEvent{Event: EventMessage, Message: &msg})
	}
}

// HandleEvent dispatches one inbound client frame.
func (co *Coordinator) HandleEvent(c *Client, raw []byte) {
	var ev ClientEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		co.logger.Printf("Client %s sent malformed frame, dropping: %v", c.id, err)
		return
	}

	switch ev.Event {
	case EventJoinRoom:
		co.JoinRoom(c, ev.Room)
	case EventLeaveRoom:
		co.LeaveRoom(c, ev.Room)
	case EventMessage:
		co.SendMessage(c, ev.Room, ev.Content)
	default:
		co.logger.Printf("Client %s sent unknown event %q, dropping", c.id, ev.Event)
	}
}

// ClientCount returns the number of locally-connected sessions.
func (co *Coordinator) ClientCount() int {
	co.mu.RLock()
	defer co.mu.RUnlock()
	return len(co.clients)
}

// RoomCount returns the number of rooms with at least one local socket.
func (co *Coordinator) RoomCount() int {
	co.mu.RLock()
	defer co.mu.RUnlock()
	return len(co.rooms)
}
