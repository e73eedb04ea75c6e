package sse

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kbukum/riskintel/events"
	"github.com/kbukum/riskintel/logger"
)

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func runHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(logger.NewNop())
	go hub.Run()
	t.Cleanup(hub.Stop)
	return hub
}

func receive(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case msg := <-c.Messages():
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
		return Message{}
	}
}

func TestClient_Wants(t *testing.T) {
	all := NewClient("a")
	if !all.Wants("provider-changed") {
		t.Error("expected unfiltered client to want every kind")
	}

	some := NewClient("b", WithKinds("provider-*", "", "error-occurred"))
	tests := map[string]bool{
		"provider-changed":  true,
		"error-occurred":    true,
		"request-completed": false,
	}
	for kind, want := range tests {
		if got := some.Wants(kind); got != want {
			t.Errorf("Wants(%q) = %v, want %v", kind, got, want)
		}
	}
	if len(some.Patterns()) != 2 {
		t.Errorf("expected empty pattern to be ignored, got %v", some.Patterns())
	}
}

func TestClient_SendDropsWhenFull(t *testing.T) {
	c := NewClient("slow")
	for i := 0; i < ClientBuffer; i++ {
		if !c.Send(Message{Kind: "k"}) {
			t.Fatalf("send %d failed before buffer was full", i)
		}
	}
	if c.Send(Message{Kind: "k"}) {
		t.Error("expected send to fail on a full queue")
	}
}

func TestHub_RegisterBroadcastUnregister(t *testing.T) {
	hub := runHub(t)
	providers := NewClient("p", WithKinds("provider-*"))
	everything := NewClient("e")
	hub.Register(providers)
	hub.Register(everything)
	waitFor(t, "two clients", func() bool { return hub.ClientCount() == 2 })

	hub.Broadcast("request-completed", []byte(`{"n":1}`))
	hub.Broadcast("provider-changed", []byte(`{"n":2}`))

	if msg := receive(t, everything); msg.Kind != "request-completed" {
		t.Errorf("expected request-completed first, got %s", msg.Kind)
	}
	if msg := receive(t, everything); msg.Kind != "provider-changed" {
		t.Errorf("expected provider-changed second, got %s", msg.Kind)
	}
	if msg := receive(t, providers); msg.Kind != "provider-changed" || string(msg.Data) != `{"n":2}` {
		t.Errorf("unexpected filtered message: %+v", msg)
	}

	hub.Unregister(providers)
	waitFor(t, "one client", func() bool { return hub.ClientCount() == 1 })
	if _, open := <-providers.Messages(); open {
		t.Error("expected unregistered client queue to be closed")
	}
	if hub.Client("e") != everything || hub.Client("p") != nil {
		t.Errorf("unexpected clients: %v", hub.ClientIDs())
	}
}

func TestHub_ReregisterReplacesClient(t *testing.T) {
	hub := runHub(t)
	first := NewClient("dup")
	second := NewClient("dup")
	hub.Register(first)
	hub.Register(second)
	waitFor(t, "replacement", func() bool { return hub.Client("dup") == second })

	if _, open := <-first.Messages(); open {
		t.Error("expected replaced client to be closed")
	}
	// Unregistering the stale client must not close the live one.
	hub.Unregister(first)
	hub.Broadcast("config-updated", []byte("{}"))
	if msg := receive(t, second); msg.Kind != "config-updated" {
		t.Errorf("expected live client to keep receiving, got %+v", msg)
	}
}

func TestHub_StopIsIdempotentAndUnblocks(t *testing.T) {
	hub := NewHub(logger.NewNop())
	done := make(chan struct{})
	go func() {
		hub.Run()
		close(done)
	}()
	c := NewClient("x")
	hub.Register(c)

	hub.Stop()
	hub.Stop()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Stop")
	}

	if hub.Register(NewClient("late")) {
		t.Error("expected register on a stopped hub to fail")
	}
	hub.Broadcast("provider-changed", nil)
	hub.Unregister(c)
	if hub.ClientCount() != 0 {
		t.Errorf("expected no clients after stop, got %d", hub.ClientCount())
	}
}

// streamRecorder is a goroutine-safe ResponseWriter with Flush.
type streamRecorder struct {
	mu     sync.Mutex
	header http.Header
	buf    bytes.Buffer
}

func newStreamRecorder() *streamRecorder { return &streamRecorder{header: make(http.Header)} }

func (r *streamRecorder) Header() http.Header { return r.header }
func (r *streamRecorder) WriteHeader(int)     {}
func (r *streamRecorder) Flush()              {}

func (r *streamRecorder) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.buf.Write(p)
}

func (r *streamRecorder) String() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.buf.String()
}

func TestServeSSE_StreamsBusEvents(t *testing.T) {
	bus := events.NewBus(logger.NewNop())
	stream := NewStream(bus, logger.NewNop())
	if err := stream.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer stream.Stop(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/events", nil).WithContext(ctx)
	rec := newStreamRecorder()
	done := make(chan struct{})
	go func() {
		ServeSSE(stream.Hub(), rec, req, "client-1",
			WithClientOptions(WithKinds("provider-changed")),
			WithKeepAlive(time.Hour))
		close(done)
	}()
	waitFor(t, "client registration", func() bool { return stream.Hub().ClientCount() == 1 })

	bus.Publish(events.Event{Kind: events.RequestCompleted, RequestID: "r1"})
	bus.Publish(events.Event{Kind: events.ProviderChanged, From: "openai", To: "offline"})
	waitFor(t, "provider-changed frame", func() bool {
		return strings.Contains(rec.String(), "event: provider-changed")
	})

	cancel()
	<-done

	body := rec.String()
	if !strings.HasPrefix(body, "event: connected\ndata: {\"clientId\":\"client-1\"") {
		t.Errorf("expected connected event first, got %q", body)
	}
	if !strings.Contains(body, `"from":"openai","to":"offline"`) {
		t.Errorf("expected event payload in stream, got %q", body)
	}
	if strings.Contains(body, "request-completed") {
		t.Error("expected filtered kind to be skipped")
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("expected event-stream content type, got %q", ct)
	}
	waitFor(t, "client removal", func() bool { return stream.Hub().ClientCount() == 0 })
}

func TestServeSSE_EndsWhenStreamStops(t *testing.T) {
	bus := events.NewBus(logger.NewNop())
	stream := NewStream(bus, logger.NewNop())
	stream.Start(context.Background())

	rec := newStreamRecorder()
	done := make(chan struct{})
	go func() {
		ServeSSE(stream.Hub(), rec, httptest.NewRequest(http.MethodGet, "/", nil), "c")
		close(done)
	}()
	waitFor(t, "client registration", func() bool { return stream.Hub().ClientCount() == 1 })

	stream.Stop(context.Background())
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("ServeSSE did not return after Stop")
	}
	if bus.Len() != 0 {
		t.Errorf("expected relay to unsubscribe, got %d listeners", bus.Len())
	}
}

type nonFlusher struct{ http.ResponseWriter }

func TestServeSSE_RequiresFlusher(t *testing.T) {
	hub := runHub(t)
	rec := httptest.NewRecorder()
	ServeSSE(hub, nonFlusher{rec}, httptest.NewRequest(http.MethodGet, "/", nil), "c")

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
}

type captureBroadcaster struct {
	kinds []string
	data  [][]byte
}

func (c *captureBroadcaster) Broadcast(kind string, data []byte) {
	c.kinds = append(c.kinds, kind)
	c.data = append(c.data, data)
}

func TestRelayEncodesEvents(t *testing.T) {
	b := &captureBroadcaster{}
	Relay(b, logger.NewNop())(events.Event{Kind: events.ConfigUpdated, Data: map[string]any{"cacheEnabled": false}})

	if len(b.kinds) != 1 || b.kinds[0] != "config-updated" {
		t.Fatalf("unexpected broadcasts: %v", b.kinds)
	}
	if !strings.Contains(string(b.data[0]), `"type":"config-updated"`) {
		t.Errorf("expected type field in payload, got %s", b.data[0])
	}
}
