// Package events is the in-process notification bus of the orchestration
// layer. Delivery is synchronous and ordered by subscription.
package events

import (
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	apperrors "github.com/kbukum/riskintel/errors"
	"github.com/kbukum/riskintel/logger"
)

// Kind names an event.
type Kind string

const (
	ProviderChanged  Kind = "provider-changed"
	RequestCompleted Kind = "request-completed"
	ErrorOccurred    Kind = "error-occurred"
	ConfigUpdated    Kind = "config-updated"
)

// Kinds lists every event kind.
func Kinds() []Kind {
	return []Kind{ProviderChanged, RequestCompleted, ErrorOccurred, ConfigUpdated}
}

// Event is one notification. Which fields are set depends on Kind.
type Event struct {
	Kind      Kind      `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"requestId,omitempty"`

	// Provider is the provider the event is about.
	Provider string `json:"provider,omitempty"`
	// From and To are set on provider-changed.
	From   string `json:"from,omitempty"`
	To     string `json:"to,omitempty"`
	Reason string `json:"reason,omitempty"`

	Success  bool                `json:"success,omitempty"`
	Cached   bool                `json:"cached,omitempty"`
	Duration time.Duration       `json:"-"`
	Error    *apperrors.AppError `json:"error,omitempty"`
	Data     map[string]any      `json:"data,omitempty"`
}

// Listener receives events.
type Listener func(Event)

// ListenerID identifies a subscription.
type ListenerID uint64

type subscription struct {
	id ListenerID
	fn Listener
}

// Bus fans events out to listeners. A panicking listener is logged and
// does not stop delivery to the rest.
type Bus struct {
	mu        sync.RWMutex
	listeners []subscription
	nextID    ListenerID
	log       *logger.Logger
	clock     clock.Clock
}

// BusOption configures a Bus.
type BusOption func(*Bus)

// WithClock sets the time source used to stamp events without a Timestamp.
func WithClock(clk clock.Clock) BusOption {
	return func(b *Bus) {
		if clk != nil {
			b.clock = clk
		}
	}
}

// NewBus creates a bus. A nil logger uses the "events" component logger.
func NewBus(log *logger.Logger, opts ...BusOption) *Bus {
	if log == nil {
		log = logger.Get("events")
	}
	b := &Bus{log: log, clock: clock.New()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers fn and returns its id.
func (b *Bus) Subscribe(fn Listener) ListenerID {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	b.listeners = append(b.listeners, subscription{id: b.nextID, fn: fn})
	return b.nextID
}

// Unsubscribe removes a listener and reports whether it was registered.
func (b *Bus) Unsubscribe(id ListenerID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.listeners {
		if s.id == id {
			b.listeners = append(b.listeners[:i:i], b.listeners[i+1:]...)
			return true
		}
	}
	return false
}

// Len returns the number of listeners.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners)
}

// Publish delivers e to a snapshot of the current listeners. Listeners
// added or removed during delivery take effect from the next Publish.
func (b *Bus) Publish(e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = b.clock.Now().UTC()
	}
	b.mu.RLock()
	snapshot := make([]subscription, len(b.listeners))
	copy(snapshot, b.listeners)
	b.mu.RUnlock()

	for _, s := range snapshot {
		b.deliver(s, e)
	}
}

func (b *Bus) deliver(s subscription, e Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("event listener panicked", map[string]interface{}{
				logger.FieldEvent: string(e.Kind),
				"listener_id":     uint64(s.id),
				logger.FieldError: fmt.Sprint(r),
			})
		}
	}()
	s.fn(e)
}
