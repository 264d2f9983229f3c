package realtime

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 64
)

var pongMessage = []byte(`{"type":"pong"}`)

// clientMessage is a control message sent by a websocket client.
type clientMessage struct {
	Action   string   `json:"action"`
	Channels []string `json:"channels"`
}

type client struct {
	hub    *Hub
	conn   *websocket.Conn
	orgID  string
	userID string
	lists  ListResolver

	send     chan []byte
	done     chan struct{}
	once     sync.Once
	channels map[string]struct{} // guarded by hub.mu
}

func newClient(h *Hub, conn *websocket.Conn, orgID, userID string, lists ListResolver) *client {
	return &client{
		hub:      h,
		conn:     conn,
		orgID:    orgID,
		userID:   userID,
		lists:    lists,
		send:     make(chan []byte, sendBuffer),
		done:     make(chan struct{}),
		channels: make(map[string]struct{}),
	}
}

// enqueue queues data for the write loop. It returns false when the buffer
// is full.
func (c *client) enqueue(data []byte) bool {
	select {
	case <-c.done:
		return true
	default:
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *client) shutdown() {
	c.once.Do(func() { close(c.done) })
}

func (c *client) readLoop() {
	defer c.hub.wg.Done()
	defer c.hub.unregister(c)

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		c.handle(msg)
	}
}

func (c *client) handle(msg clientMessage) {
	switch msg.Action {
	case "ping":
		c.enqueue(pongMessage)
	case "subscribe":
		c.hub.subscribe(c, c.allowed(msg.Channels))
	case "unsubscribe":
		c.hub.unsubscribe(c, msg.Channels)
	}
}

// allowed keeps the bound org channel and lists of the bound org.
func (c *client) allowed(channels []string) []string {
	var out []string
	for _, ch := range channels {
		switch {
		case ch == OrgChannel(c.orgID):
			out = append(out, ch)
		case strings.HasPrefix(ch, "list:") && c.lists != nil:
			ctx, cancel := context.WithTimeout(context.Background(), writeWait)
			_, err := c.lists.GetList(ctx, c.orgID, strings.TrimPrefix(ch, "list:"))
			cancel()
			if err == nil {
				out = append(out, ch)
			}
		}
	}
	return out
}

func (c *client) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
		c.hub.wg.Done()
	}()

	for {
		select {
		case data := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.hub.unregister(c)
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				c.hub.unregister(c)
				return
			}
		case <-c.done:
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		}
	}
}
