package logger

import (
	"io"
	"os"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"
)

const (
	FormatJSON    = "json"
	FormatPretty  = "pretty"
	FormatConsole = "console"
)

// Logger is a zerolog logger bound to one service. Derived loggers share
// the parent's output and level.
type Logger struct {
	zl      zerolog.Logger
	service string
}

// New builds a logger from cfg. An unparsable level falls back to info.
func New(cfg *Config, serviceName string) *Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	out := resolveWriter(cfg)
	if f := strings.ToLower(cfg.Format); f == FormatConsole || f == FormatPretty {
		out = consoleWriter(out, cfg.NoColor)
	}

	ctx := zerolog.New(out).Level(level).With()
	if cfg.Timestamp {
		ctx = ctx.Timestamp()
	}
	if cfg.Caller {
		ctx = ctx.Caller()
	}
	if serviceName != "" {
		ctx = ctx.Str("service", serviceName)
	}
	return &Logger{zl: ctx.Logger(), service: serviceName}
}

// NewDefault returns an info-level console logger on stdout.
func NewDefault(serviceName string) *Logger {
	return New(&Config{Level: "info", Format: FormatConsole, Timestamp: true}, serviceName)
}

// NewNop returns a logger that discards everything.
func NewNop() *Logger {
	return &Logger{zl: zerolog.Nop(), service: "nop"}
}

func (l *Logger) derive(fn func(zerolog.Context) zerolog.Context) *Logger {
	return &Logger{zl: fn(l.zl.With()).Logger(), service: l.service}
}

// WithComponent tags every entry with component=name.
func (l *Logger) WithComponent(name string) *Logger {
	return l.derive(func(c zerolog.Context) zerolog.Context {
		return c.Str(FieldComponent, name)
	})
}

// WithRequest tags every entry with the request id and type of one dispatch.
func (l *Logger) WithRequest(id, requestType string) *Logger {
	return l.derive(func(c zerolog.Context) zerolog.Context {
		return c.Str(FieldRequestID, id).Str(FieldRequestType, requestType)
	})
}

func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	return l.derive(func(c zerolog.Context) zerolog.Context {
		return c.Fields(fields)
	})
}

func (l *Logger) WithError(err error) *Logger {
	return l.derive(func(c zerolog.Context) zerolog.Context {
		return c.Err(err)
	})
}

func (l *Logger) Debug(msg string, fields ...map[string]interface{}) {
	emit(l.zl.Debug(), msg, fields)
}

func (l *Logger) Info(msg string, fields ...map[string]interface{}) {
	emit(l.zl.Info(), msg, fields)
}

func (l *Logger) Warn(msg string, fields ...map[string]interface{}) {
	emit(l.zl.Warn(), msg, fields)
}

func (l *Logger) Error(msg string, fields ...map[string]interface{}) {
	emit(l.zl.Error(), msg, fields)
}

// emit is a no-op when the level is filtered (zerolog returns a nil event).
func emit(ev *zerolog.Event, msg string, fields []map[string]interface{}) {
	if ev == nil {
		return
	}
	for _, f := range fields {
		ev = ev.Fields(f)
	}
	ev.Msg(msg)
}

var global atomic.Pointer[Logger]

// Init replaces the process-wide logger.
func Init(cfg *Config) {
	cfg.ApplyDefaults()
	SetGlobalLogger(New(cfg, cfg.ServiceName))
}

// SetGlobalLogger replaces the process-wide logger. nil resets it to the
// default on next use.
func SetGlobalLogger(l *Logger) {
	global.Store(l)
}

// GetGlobalLogger returns the process-wide logger, installing NewDefault on
// first use.
func GetGlobalLogger() *Logger {
	if l := global.Load(); l != nil {
		return l
	}
	global.CompareAndSwap(nil, NewDefault(""))
	return global.Load()
}

func Debug(msg string, fields ...map[string]interface{}) { GetGlobalLogger().Debug(msg, fields...) }
func Info(msg string, fields ...map[string]interface{})  { GetGlobalLogger().Info(msg, fields...) }
func Warn(msg string, fields ...map[string]interface{})  { GetGlobalLogger().Warn(msg, fields...) }
func Error(msg string, fields ...map[string]interface{}) { GetGlobalLogger().Error(msg, fields...) }

// WithComponent derives a component logger from the global logger.
func WithComponent(name string) *Logger {
	return GetGlobalLogger().WithComponent(name)
}

func resolveWriter(cfg *Config) io.Writer {
	if cfg.Writer != nil {
		return cfg.Writer
	}
	if strings.EqualFold(cfg.Output, "stderr") {
		return os.Stderr
	}
	return os.Stdout
}

// consoleWriter renders human-readable lines. The service name is dropped
// since a terminal only ever shows one process.
func consoleWriter(out io.Writer, noColor bool) io.Writer {
	return zerolog.ConsoleWriter{
		Out:           out,
		TimeFormat:    "15:04:05",
		NoColor:       noColor,
		FieldsExclude: []string{"service"},
	}
}
