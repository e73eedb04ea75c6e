package component

import (
	"context"

	"github.com/kbukum/riskintel/observability"
)

// Component is a long-lived part of the service with a start/stop lifecycle.
type Component interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Health(ctx context.Context) observability.Health
}

type funcComponent struct {
	name  string
	start func(context.Context) error
	stop  func(context.Context) error
}

// FromFuncs builds a Component from plain functions. Either may be nil.
// Its health is always up.
func FromFuncs(name string, start, stop func(context.Context) error) Component {
	return &funcComponent{name: name, start: start, stop: stop}
}

func (f *funcComponent) Name() string { return f.name }

func (f *funcComponent) Start(ctx context.Context) error {
	if f.start == nil {
		return nil
	}
	return f.start(ctx)
}

func (f *funcComponent) Stop(ctx context.Context) error {
	if f.stop == nil {
		return nil
	}
	return f.stop(ctx)
}

func (f *funcComponent) Health(context.Context) observability.Health {
	return observability.Health{Name: f.name, Status: observability.HealthStatusUp}
}
