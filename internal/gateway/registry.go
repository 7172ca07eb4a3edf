package gateway

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// sendBufferSize bounds the per-client outbound queue. A client that cannot
// drain this many envelopes gets further messages dropped rather than
// stalling other conversations.
const sendBufferSize = 256

// Client represents one WebSocket connection
type Client struct {
	ID          string
	Conn        *websocket.Conn
	Send        chan []byte
	ConnectedAt time.Time

	done      chan struct{}
	closeOnce sync.Once
}

func newClient(conn *websocket.Conn) *Client {
	return &Client{
		ID:          uuid.New().String(),
		Conn:        conn,
		Send:        make(chan []byte, sendBufferSize),
		ConnectedAt: time.Now(),
		done:        make(chan struct{}),
	}
}

// close signals the write pump to exit. Safe to call more than once; the Send
// channel is never closed so concurrent enqueues cannot panic.
func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// enqueue pushes an encoded envelope without blocking. Returns false when the
// client is gone or its buffer is full.
func (c *Client) enqueue(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.Send <- data:
		return true
	default:
		return false
	}
}

// writePump drains the send queue onto the connection. Runs as one goroutine
// per client; exits when the client is closed.
func (c *Client) writePump() {
	for {
		select {
		case data := <-c.Send:
			if err := c.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Printf("[Registry] Write failed for client %s: %v", c.ID, err)
				return
			}
		case <-c.done:
			return
		}
	}
}

// Registry tracks live WebSocket clients by connection id. Sends to
// connections that have gone away are silently discarded so in-flight
// generation for a disconnected client never fails a turn.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

// NewRegistry creates an empty connection registry
func NewRegistry() *Registry {
	return &Registry{
		clients: make(map[string]*Client),
	}
}

// Register adds a connection and starts its write pump
func (r *Registry) Register(conn *websocket.Conn) *Client {
	client := newClient(conn)

	r.mu.Lock()
	r.clients[client.ID] = client
	count := len(r.clients)
	r.mu.Unlock()

	if conn != nil {
		go client.writePump()
	}

	log.Printf("[Registry] Client %s connected (%d active)", client.ID, count)
	return client
}

// Deregister removes a connection and stops its write pump. Idempotent.
func (r *Registry) Deregister(id string) {
	r.mu.Lock()
	client, ok := r.clients[id]
	if ok {
		delete(r.clients, id)
	}
	count := len(r.clients)
	r.mu.Unlock()

	if !ok {
		return
	}
	client.close()
	log.Printf("[Registry] Client %s disconnected (%d active)", id, count)
}

// Send marshals v and queues it for the given connection. Returns false when
// the connection is unknown or its buffer is full; the caller treats that as
// a silent drop.
func (r *Registry) Send(id string, v interface{}) bool {
	r.mu.RLock()
	client, ok := r.clients[id]
	r.mu.RUnlock()
	if !ok {
		return false
	}

	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("[Registry] Marshal failed for client %s: %v", id, err)
		return false
	}

	if !client.enqueue(data) {
		log.Printf("[Registry] Send buffer full for client %s, dropping message", id)
		return false
	}
	return true
}

// Broadcast queues v for every live connection
func (r *Registry) Broadcast(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("[Registry] Broadcast marshal failed: %v", err)
		return
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, client := range r.clients {
		client.enqueue(data)
	}
}

// Count returns the number of live connections
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// CloseAll closes every connection. Used during shutdown after the queues
// have drained.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	clients := make([]*Client, 0, len(r.clients))
	for _, client := range r.clients {
		clients = append(clients, client)
	}
	r.clients = make(map[string]*Client)
	r.mu.Unlock()

	for _, client := range clients {
		client.close()
		if client.Conn != nil {
			client.Conn.Close()
		}
	}
}
