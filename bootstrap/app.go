package bootstrap

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/kbukum/riskintel/component"
	"github.com/kbukum/riskintel/logger"
	"github.com/kbukum/riskintel/observability"
)

// DefaultGracefulTimeout bounds shutdown unless WithGracefulTimeout is set.
const DefaultGracefulTimeout = 15 * time.Second

// App runs a service: it starts registered components, runs hooks, waits
// for a signal and shuts down in reverse order.
//
//	app, err := bootstrap.NewApp(&cfg)
//	app.RegisterComponent(svc)
//	app.RegisterComponent(srv)
//	return app.Run(ctx)
type App[C Config] struct {
	Name       string
	Version    string
	Cfg        C
	Components *component.Registry
	Logger     *logger.Logger

	gracefulTimeout time.Duration
	onConfigure     []func(ctx context.Context, app *App[C]) error
	onStart         []Hook
	onReady         []Hook
	onStop          []Hook
}

// NewApp applies defaults, validates cfg and initializes the global logger
// from its logging section.
func NewApp[C Config](cfg C, opts ...Option) (*App[C], error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	base := cfg.GetServiceConfig()
	o := resolveOptions(opts)

	app := &App[C]{
		Name:            base.Name,
		Version:         base.Version,
		Cfg:             cfg,
		gracefulTimeout: DefaultGracefulTimeout,
	}
	if o.gracefulTimeout != nil {
		app.gracefulTimeout = *o.gracefulTimeout
	}
	if o.logger != nil {
		app.Logger = o.logger
	} else {
		logger.Init(&base.Logging)
		app.Logger = logger.GetGlobalLogger()
	}
	app.Components = component.NewRegistry(app.Logger)
	return app, nil
}

// RegisterComponent adds c. Components start in registration order.
func (a *App[C]) RegisterComponent(c component.Component) error {
	return a.Components.Register(c)
}

// OnConfigure registers a callback that runs after components started.
func (a *App[C]) OnConfigure(fn func(ctx context.Context, app *App[C]) error) {
	a.onConfigure = append(a.onConfigure, fn)
}

// ReadyCheck fails when a component is down. Degraded components pass.
func (a *App[C]) ReadyCheck(ctx context.Context) error {
	var down []string
	for _, h := range a.Components.HealthAll(ctx) {
		if h.Status != observability.HealthStatusDown {
			continue
		}
		detail := h.Name
		if h.Message != "" {
			detail += " (" + h.Message + ")"
		}
		down = append(down, detail)
	}
	if len(down) > 0 {
		return fmt.Errorf("components down: %s", strings.Join(down, ", "))
	}
	return nil
}

// Run starts the app and blocks until SIGINT, SIGTERM or ctx ends, then
// shuts down.
func (a *App[C]) Run(ctx context.Context) error {
	if err := a.startup(ctx); err != nil {
		return err
	}
	a.Logger.Info("application ready")
	a.WaitForSignal(ctx)
	return a.stop()
}

// RunTask starts the app, runs task and shuts down when it returns. A
// signal cancels the task's context.
func (a *App[C]) RunTask(ctx context.Context, task func(ctx context.Context) error) error {
	if err := a.startup(ctx); err != nil {
		return err
	}

	taskCtx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	taskErr := task(taskCtx)

	if stopErr := a.stop(); stopErr != nil && taskErr == nil {
		return stopErr
	}
	return taskErr
}

func (a *App[C]) startup(ctx context.Context) error {
	start := time.Now()
	a.Logger.Info("starting application", logger.Fields("name", a.Name, "version", a.Version))

	if err := a.Components.StartAll(ctx); err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}
	if err := runHooks(ctx, a.onStart); err != nil {
		a.shutdownAfterFailure()
		return fmt.Errorf("onStart hook failed: %w", err)
	}
	for _, fn := range a.onConfigure {
		if err := fn(ctx, a); err != nil {
			a.shutdownAfterFailure()
			return fmt.Errorf("configuration failed: %w", err)
		}
	}
	if err := a.ReadyCheck(ctx); err != nil {
		a.Logger.Warn("ready check reported issues", logger.MergeWithError(nil, err))
	}
	if err := runHooks(ctx, a.onReady); err != nil {
		a.shutdownAfterFailure()
		return fmt.Errorf("onReady hook failed: %w", err)
	}

	a.logSummary(ctx, time.Since(start))
	return nil
}

func (a *App[C]) shutdownAfterFailure() {
	if err := a.stop(); err != nil {
		a.Logger.Warn("shutdown after failed startup", logger.MergeWithError(nil, err))
	}
}

// logSummary logs one line per component with its health.
func (a *App[C]) logSummary(ctx context.Context, took time.Duration) {
	for _, h := range a.Components.HealthAll(ctx) {
		fields := logger.Fields(logger.FieldComponent, h.Name, logger.FieldStatus, string(h.Status))
		if h.Message != "" {
			fields["detail"] = h.Message
		}
		a.Logger.Info("component status", fields)
	}
	a.Logger.Info("startup complete", logger.Fields(
		"components", len(a.Components.Names()),
		logger.FieldDuration, took.Milliseconds(),
	))
}

// WaitForSignal blocks until SIGINT, SIGTERM or ctx ends and returns the
// signal, or nil on cancellation.
func (a *App[C]) WaitForSignal(ctx context.Context) os.Signal {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		a.Logger.Info("received shutdown signal", logger.Fields("signal", sig.String()))
		return sig
	case <-ctx.Done():
		a.Logger.Info("context canceled, shutting down")
		return nil
	}
}

// Shutdown stops the app when the caller manages the lifecycle itself.
func (a *App[C]) Shutdown() error {
	return a.stop()
}

func (a *App[C]) stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.gracefulTimeout)
	defer cancel()

	var shutdownErr error
	if err := runHooks(ctx, a.onStop); err != nil {
		a.Logger.Error("onStop hook failed", logger.MergeWithError(nil, err))
		shutdownErr = err
	}
	if err := a.Components.StopAll(ctx); err != nil {
		a.Logger.Error("shutdown completed with errors", logger.MergeWithError(nil, err))
		shutdownErr = err
	}
	a.Logger.Info("application stopped")
	return shutdownErr
}
