package hub

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// Dashboards only send pongs.
	maxMessageSize = 4 * 1024

	// outboxLimit is how many undelivered messages a client may hold
	// before it is dropped as too slow.
	outboxLimit = 256
)

// Client is one dashboard connection.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	out  *outbox
}

// NewClient creates a client, queues the hub's welcome message and
// registers the client with the hub.
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	c := &Client{hub: hub, conn: conn, out: newOutbox()}
	if hub.Welcome != nil {
		if msg, ok := hub.Welcome(); ok {
			c.out.push(msg, outboxLimit)
		}
	}
	select {
	case hub.register <- c:
	case <-hub.done:
		c.out.close()
	}
	return c
}

// Handler returns a Fiber handler that upgrades the request and serves the
// connection until it closes. The hub must be running.
func (h *Hub) Handler() fiber.Handler {
	upgrade := websocket.New(func(conn *websocket.Conn) {
		NewClient(h, conn).Run()
	})
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		return upgrade(c)
	}
}

// Run serves the connection until it closes.
func (c *Client) Run() {
	go c.writeLoop()
	c.readLoop()
}

// readLoop only exists to see pongs and the disconnect.
func (c *Client) readLoop() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.out.close()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writeLoop is the only writer on the connection.
func (c *Client) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.out.wake:
			msgs, closed := c.out.drain()
			for _, m := range msgs {
				c.conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := c.conn.WriteMessage(websocket.TextMessage, m.Data); err != nil {
					return
				}
			}
			if closed {
				c.conn.SetWriteDeadline(time.Now().Add(writeWait))
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
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
