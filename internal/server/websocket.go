package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/conneroisu/assetflow/internal/logging"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512
)

// MessageType identifies a live-reload message.
type MessageType string

const (
	MessageReload MessageType = "reload"
	MessageCSS    MessageType = "css"
	MessageError  MessageType = "error"
	MessageClear  MessageType = "clear"
)

// Message is sent to browser clients as JSON.
type Message struct {
	Type      MessageType `json:"type"`
	Path      string      `json:"path,omitempty"`
	Title     string      `json:"title,omitempty"`
	Message   string      `json:"message,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// Client represents a WebSocket client.
type Client struct {
	conn *websocket.Conn
	send chan Message
	hub  *Hub
}

// Hub fans messages out to every connected client.
type Hub struct {
	logger         logging.Logger
	originPatterns []string

	clients      map[*Client]bool
	clientsMutex sync.RWMutex
	broadcast    chan Message
	register     chan *Client
	unregister   chan *Client
	done         chan struct{}
	closeOnce    sync.Once
}

// NewHub creates a hub. originPatterns are host patterns accepted in the
// Origin header; same-host requests are always accepted.
func NewHub(logger logging.Logger, originPatterns []string) *Hub {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Hub{
		logger:         logger.WithComponent("websocket"),
		originPatterns: originPatterns,
		clients:        make(map[*Client]bool),
		broadcast:      make(chan Message, 64),
		register:       make(chan *Client),
		unregister:     make(chan *Client),
		done:           make(chan struct{}),
	}
}

// Broadcast queues msg for every client. It never blocks; when the queue
// is full the message is dropped.
func (h *Hub) Broadcast(msg Message) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	select {
	case h.broadcast <- msg:
	case <-h.done:
	default:
		h.logger.Warn(context.Background(), nil, "Dropped live-reload message", "type", string(msg.Type))
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.clientsMutex.RLock()
	defer h.clientsMutex.RUnlock()
	return len(h.clients)
}

// Run dispatches registrations and broadcasts until ctx is done, then
// closes every connection.
func (h *Hub) Run(ctx context.Context) {
	defer h.closeAll()

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.clientsMutex.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.clientsMutex.Unlock()
			h.logger.Debug(ctx, "Client connected", "clients", count)

		case client := <-h.unregister:
			h.clientsMutex.Lock()
			if h.clients[client] {
				delete(h.clients, client)
				close(client.send)
			}
			count := len(h.clients)
			h.clientsMutex.Unlock()
			h.logger.Debug(ctx, "Client disconnected", "clients", count)

		case msg := <-h.broadcast:
			h.clientsMutex.Lock()
			for client := range h.clients {
				select {
				case client.send <- msg:
				default:
					// slow client
					delete(h.clients, client)
					close(client.send)
				}
			}
			h.clientsMutex.Unlock()
		}
	}
}

func (h *Hub) closeAll() {
	h.closeOnce.Do(func() { close(h.done) })

	h.clientsMutex.Lock()
	defer h.clientsMutex.Unlock()
	for client := range h.clients {
		delete(h.clients, client)
		close(client.send)
	}
}

// ServeHTTP upgrades the request and registers the client.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		h.logger.Warn(r.Context(), err, "WebSocket upgrade failed")
		return
	}

	client := &Client{
		conn: conn,
		send: make(chan Message, 16),
		hub:  h,
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close(websocket.StatusGoingAway, "server shutting down")
		return
	}

	go client.writePump()
	client.readPump()
}

// readPump reads until the peer goes away. Clients never send anything
// meaningful; reading keeps pings and close frames flowing.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	c.conn.SetReadLimit(maxMessageSize)

	for {
		ctx, cancel := context.WithTimeout(context.Background(), pongWait)
		_, _, err := c.conn.Read(ctx)
		cancel()

		if err != nil {
			status := websocket.CloseStatus(err)
			if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway {
				c.hub.logger.Debug(context.Background(), "WebSocket read ended", "error", err.Error())
			}
			return
		}
	}
}

// writePump writes queued messages and periodic pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), writeWait)
			err := wsjson.Write(ctx, c.conn, msg)
			cancel()
			if err != nil {
				return
			}

		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), writeWait)
			err := c.conn.Ping(ctx)
			cancel()
			if err != nil {
				return
			}
		}
	}
}
