package websocket

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"mtid/internal/infrastructure"
)

type envelope struct {
	client  *Client
	payload []byte
}

// Hub owns the set of chat connections. Only the hub goroutine writes to or
// closes a client's send channel.
type Hub struct {
	clients map[*Client]bool

	register   chan *Client
	unregister chan *Client
	direct     chan envelope
	broadcast  chan []byte

	mu       sync.RWMutex
	count    int
	done     chan struct{}
	logger   *slog.Logger
	observer ConnectionObserver
}

// NewHub creates a hub. observer may be nil.
func NewHub(logger *slog.Logger, observer ConnectionObserver) *Hub {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		direct:     make(chan envelope, 64),
		broadcast:  make(chan []byte, 16),
		done:       make(chan struct{}),
		logger:     logger.With(slog.String("component", "websocket.hub")),
		observer:   observer,
	}
}

// Run serves register, unregister and send requests until ctx is done,
// then closes every client
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		for c := range h.clients {
			h.drop(ctx, c)
		}
		close(h.done)
		h.logger.Info("Hub shutting down")
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case c := <-h.register:
			h.clients[c] = true
			if h.observer != nil {
				h.observer.RecordWebSocket(ctx, 1)
			}
			h.setCount(len(h.clients))
			h.logger.InfoContext(c.context(), "Client registered",
				slog.Int("total_clients", len(h.clients)),
				slog.String("client_id", c.id),
				slog.String("remote_addr", c.remoteAddr))

			if msg, err := encode(TypeConnection, map[string]string{
				"status":    "connected",
				"client_id": c.id,
			}, c.traceID); err == nil {
				h.deliver(ctx, c, msg)
			}

		case c := <-h.unregister:
			if h.clients[c] {
				h.drop(ctx, c)
				h.logger.InfoContext(c.context(), "Client unregistered",
					slog.Int("total_clients", len(h.clients)),
					slog.String("client_id", c.id),
					slog.Duration("connection_duration", time.Since(c.connectedAt)))
			}

		case env := <-h.direct:
			if h.clients[env.client] {
				h.deliver(ctx, env.client, env.payload)
			}

		case msg := <-h.broadcast:
			for c := range h.clients {
				h.deliver(ctx, c, msg)
			}
		}
	}
}

// deliver queues payload for c, disconnecting clients whose buffer is full
func (h *Hub) deliver(ctx context.Context, c *Client, payload []byte) {
	select {
	case c.send <- payload:
	default:
		h.logger.WarnContext(c.context(), "Client send buffer full, disconnecting",
			slog.String("client_id", c.id))
		h.drop(ctx, c)
	}
}

func (h *Hub) drop(ctx context.Context, c *Client) {
	delete(h.clients, c)
	close(c.send)
	if h.observer != nil {
		h.observer.RecordWebSocket(ctx, -1)
	}
	h.setCount(len(h.clients))
}

func (h *Hub) setCount(n int) {
	h.mu.Lock()
	h.count = n
	h.mu.Unlock()
}

// Register adds a client. It returns false once the hub has stopped.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a client
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// SendTo queues a message for one client
func (h *Hub) SendTo(c *Client, payload []byte) {
	select {
	case h.direct <- envelope{client: c, payload: payload}:
	case <-h.done:
	}
}

// Notice sends a notice frame to every connected client
func (h *Hub) Notice(text string) {
	msg, err := encode(TypeNotice, map[string]string{"message": text}, "")
	if err != nil {
		h.logger.Error("Error marshaling notice", slog.String("error", err.Error()))
		return
	}
	select {
	case h.broadcast <- msg:
	case <-h.done:
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

// Done is closed after Run returns
func (h *Hub) Done() <-chan struct{} {
	return h.done
}
