package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/kbukum/riskintel/logger"
)

const (
	// EventConnected is the first event written on every stream.
	EventConnected = "connected"

	// DefaultKeepAlive stays under common proxy idle timeouts.
	DefaultKeepAlive = 30 * time.Second
)

// ConnectedEvent is the payload of the connected event.
type ConnectedEvent struct {
	ClientID string            `json:"clientId"`
	Kinds    []string          `json:"kinds,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// ServeOption configures ServeSSE.
type ServeOption func(*serveConfig)

type serveConfig struct {
	keepAlive time.Duration
	client    []ClientOption
}

// WithKeepAlive sets the keep-alive comment interval.
func WithKeepAlive(d time.Duration) ServeOption {
	return func(c *serveConfig) { c.keepAlive = d }
}

// WithClientOptions passes options to the registered client.
func WithClientOptions(opts ...ClientOption) ServeOption {
	return func(c *serveConfig) { c.client = append(c.client, opts...) }
}

// ServeSSE streams hub messages to one HTTP client until the request
// context ends or the hub stops.
func ServeSSE(hub *Hub, w http.ResponseWriter, r *http.Request, clientID string, opts ...ServeOption) {
	cfg := serveConfig{keepAlive: DefaultKeepAlive}
	for _, opt := range opts {
		opt(&cfg)
	}
	log := logger.Get("sse").WithFields(logger.Fields("client_id", clientID))

	flusher, ok := w.(http.Flusher)
	if !ok {
		log.Error("streaming not supported by response writer")
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	// Long-lived streams must not hit the server's WriteTimeout.
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil {
		log.Debug("could not clear write deadline", logger.MergeWithError(nil, err))
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")

	client := NewClient(clientID, cfg.client...)
	if !hub.Register(client) {
		http.Error(w, "event stream closed", http.StatusServiceUnavailable)
		return
	}
	defer hub.Unregister(client)

	hello, _ := json.Marshal(ConnectedEvent{ClientID: clientID, Kinds: client.Patterns(), Metadata: client.Metadata()})
	writeEvent(w, EventConnected, hello)
	flusher.Flush()
	log.Debug("client connected", logger.Fields("remote_addr", r.RemoteAddr))

	keepAlive := time.NewTicker(cfg.keepAlive)
	defer keepAlive.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			log.Debug("client disconnected", logger.Fields("reason", ctx.Err().Error()))
			return
		case msg, ok := <-client.Messages():
			if !ok {
				return
			}
			writeEvent(w, msg.Kind, msg.Data)
			flusher.Flush()
		case <-keepAlive.C:
			_, _ = fmt.Fprintf(w, ": keepalive %d\n\n", time.Now().Unix())
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, kind string, data []byte) {
	_, _ = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", kind, data)
}
