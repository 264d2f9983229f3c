// Package realtime fans committed task changes out to websocket clients of
// the same organization.
package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rpggio/tasklane/internal/domain/task"
)

// ServerEvent is the message pushed to subscribers.
type ServerEvent struct {
	EventID    string         `json:"event_id"`
	OrgID      string         `json:"org_id"`
	Type       task.EventType `json:"type"`
	EntityID   string         `json:"entity_id"`
	ListID     string         `json:"list_id,omitempty"`
	FromListID string         `json:"from_list_id,omitempty"`
	UpdatedAt  time.Time      `json:"updated_at"`
	Task       *task.Task     `json:"task,omitempty"`
}

// OrgChannel names the channel every member of an organization joins.
func OrgChannel(orgID string) string { return "org:" + orgID }

// ListChannel names the channel of one list.
func ListChannel(listID string) string { return "list:" + listID }

// Hub tracks connected clients and their channel subscriptions. It is
// process-local.
type Hub struct {
	mu       sync.Mutex
	clients  map[*client]struct{}
	channels map[string]map[*client]struct{}
	closed   bool
	wg       sync.WaitGroup
	logger   *slog.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:  make(map[*client]struct{}),
		channels: make(map[string]map[*client]struct{}),
		logger:   logger,
	}
}

// Publish implements task.Publisher. Slow clients are dropped rather than
// blocking the caller.
func (h *Hub) Publish(_ context.Context, orgID string, event task.Event) {
	msg := ServerEvent{
		EventID:    uuid.NewString(),
		OrgID:      orgID,
		Type:       event.Type,
		EntityID:   event.TaskID,
		FromListID: event.FromListID,
		UpdatedAt:  time.Now().UTC(),
		Task:       event.Task,
	}
	channels := []string{OrgChannel(orgID)}
	if event.Task != nil {
		msg.ListID = event.Task.ListID
		channels = append(channels, ListChannel(event.Task.ListID))
	}
	if event.FromListID != "" && event.FromListID != msg.ListID {
		channels = append(channels, ListChannel(event.FromListID))
	}

	data, err := json.Marshal(msg)
	if err != nil {
		if h.logger != nil {
			h.logger.Error("failed to encode realtime event", "error", err)
		}
		return
	}
	h.broadcast(channels, data)
}

// ConnectionCount returns the number of connected clients.
func (h *Hub) ConnectionCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client and waits for their goroutines to exit.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		h.unregister(c)
	}
	h.wg.Wait()
}

func (h *Hub) broadcast(channels []string, data []byte) {
	h.mu.Lock()
	targets := make(map[*client]struct{})
	for _, ch := range channels {
		for c := range h.channels[ch] {
			targets[c] = struct{}{}
		}
	}
	h.mu.Unlock()

	for c := range targets {
		if !c.enqueue(data) {
			if h.logger != nil {
				h.logger.Warn("dropping slow realtime client", "org_id", c.orgID, "user_id", c.userID)
			}
			h.unregister(c)
		}
	}
}

// register adds c to the hub and accounts for its read and write loops. It
// returns false once the hub is closed.
func (h *Hub) register(c *client, channels ...string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.wg.Add(2)
	h.clients[c] = struct{}{}
	for _, ch := range channels {
		h.joinLocked(c, ch)
	}
	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		for ch := range c.channels {
			h.leaveLocked(c, ch)
		}
	}
	h.mu.Unlock()
	c.shutdown()
}

func (h *Hub) subscribe(c *client, channels []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	for _, ch := range channels {
		h.joinLocked(c, ch)
	}
}

func (h *Hub) unsubscribe(c *client, channels []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range channels {
		// The org channel is fixed for the life of the connection.
		if ch == OrgChannel(c.orgID) {
			continue
		}
		h.leaveLocked(c, ch)
	}
}

func (h *Hub) joinLocked(c *client, ch string) {
	members, ok := h.channels[ch]
	if !ok {
		members = make(map[*client]struct{})
		h.channels[ch] = members
	}
	members[c] = struct{}{}
	c.channels[ch] = struct{}{}
}

func (h *Hub) leaveLocked(c *client, ch string) {
	delete(c.channels, ch)
	if members, ok := h.channels[ch]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.channels, ch)
		}
	}
}
