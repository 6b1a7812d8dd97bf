package hub

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/teslashibe/go-focusguard/pkg/protocol"
)

// Hub owns the set of dashboard clients.
type Hub struct {
	name   string
	logger *slog.Logger

	clients    map[*Client]struct{}
	mu         sync.RWMutex // guards clients for ClientCount
	broadcast  chan Message
	register   chan *Client
	unregister chan *Client

	running atomic.Bool
	done    chan struct{}
	dropped atomic.Uint64
	evicted atomic.Uint64

	// Welcome, if set, produces the first message every new client gets,
	// typically the current state.
	Welcome func() (Message, bool)
}

// New creates a hub. Run must be called for clients to be served.
func New(name string, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		name:       name,
		logger:     logger.With("hub", name),
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan Message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run is the hub's main loop. It returns when ctx is cancelled, closing
// every client. A hub cannot be restarted.
func (h *Hub) Run(ctx context.Context) {
	h.running.Store(true)
	defer func() {
		h.running.Store(false)
		close(h.done)
	}()

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				delete(h.clients, c)
				c.out.close()
			}
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("client connected", "total", n)

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				c.out.close()
			}
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("client disconnected", "remaining", n)

		case msg := <-h.broadcast:
			h.mu.Lock()
			for c := range h.clients {
				if !c.out.push(msg, outboxLimit) {
					delete(h.clients, c)
					c.out.close()
					h.evicted.Add(1)
					h.logger.Warn("dropped slow client")
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast queues msg for every client. It never blocks; when the hub is
// saturated the message is dropped and counted.
func (h *Hub) Broadcast(msg Message) {
	select {
	case h.broadcast <- msg:
	default:
		h.dropped.Add(1)
		h.logger.Warn("broadcast queue full, dropping message")
	}
}

// BroadcastProtocol broadcasts a protocol envelope.
func (h *Hub) BroadcastProtocol(msg *protocol.Message) error {
	m, err := FromProtocol(msg)
	if err != nil {
		return err
	}
	h.Broadcast(m)
	return nil
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Dropped returns how many broadcasts were discarded because the hub was
// saturated.
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}

// Evicted returns how many clients were dropped for falling behind.
func (h *Hub) Evicted() uint64 {
	return h.evicted.Load()
}

// IsRunning reports whether Run is executing.
func (h *Hub) IsRunning() bool {
	return h.running.Load()
}
