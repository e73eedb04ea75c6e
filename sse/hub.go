package sse

import (
	"path/filepath"
	"sync"

	"github.com/kbukum/riskintel/logger"
)

// ClientBuffer is the per-client queue length. A client whose queue is full
// misses messages rather than slowing the hub.
const ClientBuffer = 256

// Message is one event addressed to clients by kind.
type Message struct {
	Kind string
	Data []byte
}

// Client is one connected SSE subscriber.
type Client struct {
	id       string
	patterns []string
	metadata map[string]string
	messages chan Message
	log      *logger.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithKinds restricts the client to event kinds matching any of the glob
// patterns (e.g. "provider-*"). No patterns means every kind.
func WithKinds(patterns ...string) ClientOption {
	return func(c *Client) {
		for _, p := range patterns {
			if p != "" {
				c.patterns = append(c.patterns, p)
			}
		}
	}
}

// WithMetadata attaches a metadata pair reported in the connected event.
func WithMetadata(key, value string) ClientOption {
	return func(c *Client) { c.metadata[key] = value }
}

// NewClient creates a client.
func NewClient(id string, opts ...ClientOption) *Client {
	c := &Client{
		id:       id,
		metadata: make(map[string]string),
		messages: make(chan Message, ClientBuffer),
		log:      logger.Get("sse"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) ID() string                  { return c.id }
func (c *Client) Metadata() map[string]string { return c.metadata }
func (c *Client) Patterns() []string          { return c.patterns }

// Messages returns the client's queue. It is closed on unregister.
func (c *Client) Messages() <-chan Message { return c.messages }

// Wants reports whether kind matches the client's filters.
func (c *Client) Wants(kind string) bool {
	if len(c.patterns) == 0 {
		return true
	}
	for _, p := range c.patterns {
		if ok, err := filepath.Match(p, kind); err == nil && ok {
			return true
		}
	}
	return false
}

// Send enqueues msg. It returns false when the queue is full.
func (c *Client) Send(msg Message) bool {
	select {
	case c.messages <- msg:
		return true
	default:
		c.log.Warn("client queue full, dropping message", logger.Fields("client_id", c.id, logger.FieldEvent, msg.Kind))
		return false
	}
}

// Broadcaster publishes messages to connected clients.
type Broadcaster interface {
	Broadcast(kind string, data []byte)
}

// Hub owns the client set. Registration and broadcast go through its Run
// loop; reads of the client set take the lock.
type Hub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	broadcast  chan Message
	done       chan struct{}
	stopOnce   sync.Once
	mu         sync.RWMutex
	log        *logger.Logger
}

var _ Broadcaster = (*Hub)(nil)

// NewHub creates a hub. Call Run in a goroutine.
func NewHub(log *logger.Logger) *Hub {
	if log == nil {
		log = logger.Get("sse")
	}
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan Message, ClientBuffer),
		done:       make(chan struct{}),
		log:        log,
	}
}

// Run processes registrations and broadcasts until Stop.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			h.closeAll()
			return

		case c := <-h.register:
			h.mu.Lock()
			if old, ok := h.clients[c.id]; ok {
				close(old.messages)
			}
			h.clients[c.id] = c
			n := len(h.clients)
			h.mu.Unlock()
			h.log.Debug("client registered", logger.Fields("client_id", c.id, "clients", n))

		case c := <-h.unregister:
			h.mu.Lock()
			if cur, ok := h.clients[c.id]; ok && cur == c {
				delete(h.clients, c.id)
				close(c.messages)
			}
			n := len(h.clients)
			h.mu.Unlock()
			h.log.Debug("client unregistered", logger.Fields("client_id", c.id, "clients", n))

		case msg := <-h.broadcast:
			h.fanOut(msg)
		}
	}
}

// Stop closes every client and makes Run return. Safe to call repeatedly.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		close(c.messages)
		delete(h.clients, id)
	}
}

// Register adds a client. It returns false when the hub is stopped.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a client and closes its queue.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Broadcast queues data for every client that wants kind. It drops the
// message when the hub is stopped.
func (h *Hub) Broadcast(kind string, data []byte) {
	select {
	case h.broadcast <- Message{Kind: kind, Data: data}:
	case <-h.done:
	}
}

func (h *Hub) fanOut(msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	sent := 0
	for _, c := range h.clients {
		if c.Wants(msg.Kind) && c.Send(msg) {
			sent++
		}
	}
	h.log.Debug("event broadcast", logger.Fields(logger.FieldEvent, msg.Kind, "sent", sent, "bytes", len(msg.Data)))
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ClientIDs returns the connected client ids.
func (h *Hub) ClientIDs() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ids := make([]string, 0, len(h.clients))
	for id := range h.clients {
		ids = append(ids, id)
	}
	return ids
}

// Client returns a client by id, or nil.
func (h *Hub) Client(id string) *Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.clients[id]
}
