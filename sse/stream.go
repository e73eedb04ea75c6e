package sse

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/kbukum/riskintel/events"
	"github.com/kbukum/riskintel/logger"
	"github.com/kbukum/riskintel/observability"
)

// Stream relays events from a Bus to a Hub and owns the Hub's run loop.
type Stream struct {
	bus *events.Bus
	hub *Hub
	log *logger.Logger

	mu      sync.Mutex
	wg      sync.WaitGroup
	started bool
	stopped bool
	sub     events.ListenerID
}

// NewStream creates a stream over bus.
func NewStream(bus *events.Bus, log *logger.Logger) *Stream {
	if log == nil {
		log = logger.Get("sse")
	}
	return &Stream{bus: bus, hub: NewHub(log), log: log}
}

// Hub returns the hub clients attach to.
func (s *Stream) Hub() *Hub { return s.hub }

// Start launches the hub and subscribes to the bus. A stopped stream
// cannot be restarted.
func (s *Stream) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}
	s.started = true

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.hub.Run()
	}()
	s.sub = s.bus.Subscribe(Relay(s.hub, s.log))
	return nil
}

// Stop unsubscribes from the bus, disconnects clients and waits for the
// hub to exit.
func (s *Stream) Stop(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started && !s.stopped {
		s.bus.Unsubscribe(s.sub)
	}
	s.stopped = true
	s.hub.Stop()
	s.wg.Wait()
	return nil
}

// Name identifies the stream in a component registry.
func (s *Stream) Name() string { return "events" }

// Health is up between Start and Stop.
func (s *Stream) Health(context.Context) observability.Health {
	s.mu.Lock()
	running := s.started && !s.stopped
	s.mu.Unlock()
	if !running {
		return observability.Health{Name: s.Name(), Status: observability.HealthStatusDown, Message: "not running"}
	}
	return observability.Health{
		Name:    s.Name(),
		Status:  observability.HealthStatusUp,
		Message: fmt.Sprintf("%d clients", s.hub.ClientCount()),
	}
}

// Relay returns a bus listener that JSON-encodes each event and broadcasts
// it under its kind.
func Relay(b Broadcaster, log *logger.Logger) events.Listener {
	return func(e events.Event) {
		data, err := json.Marshal(e)
		if err != nil {
			log.Warn("failed to encode event", logger.MergeWithError(logger.Fields(logger.FieldEvent, string(e.Kind)), err))
			return
		}
		b.Broadcast(string(e.Kind), data)
	}
}
