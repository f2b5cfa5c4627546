package chat

import (
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 256
)

// Client is one authenticated live connection. The username is immutable
// once set; the rooms set is guarded by the coordinator's mutex.
type Client struct {
	id       string
	username string
	conn     *websocket.Conn
	send     chan []byte
	coord    *Coordinator
	rooms    map[string]struct{}
}

func NewClient(conn *websocket.Conn, coord *Coordinator, username string) *Client {
	if conn != nil {
		conn.SetReadLimit(maxMessageSize)
	}
	return &Client{
		id:       uuid.NewString(),
		username: username,
		conn:     conn,
		send:     make(chan []byte, sendBuffer),
		coord:    coord,
		rooms:    make(map[string]struct{}),
	}
}

func (c *Client) Username() string {
	return c.username
}

// deliver queues one event for the socket. A client whose send buffer is
// full drops the event rather than blocking the fan-out.
func (c *Client) deliver(ev ServerEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		log.Printf("Failed to marshal event for %s: %v", c.id, err)
		return
	}

	select {
	case c.send <- data:
	default:
		log.Printf("Send buffer full for %s, dropping event", c.id)
	}
}

func (c *Client) readPump() {
	defer func() {
		c.coord.Disconnect(c)
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error for %s: %v", c.id, err)
			}
			break
		}
		c.coord.HandleEvent(c, raw)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
