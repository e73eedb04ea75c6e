package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/kbukum/riskintel/logger"
	"github.com/kbukum/riskintel/observability"
	"github.com/kbukum/riskintel/server/middleware"
)

// ShutdownTimeout bounds graceful shutdown.
const ShutdownTimeout = 5 * time.Second

// Server is a Gin-backed HTTP server with h2c so HTTP/2 clients can hold
// many event streams over one cleartext connection.
type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	mux        *http.ServeMux
	handler    http.Handler
	config     Config
	log        *logger.Logger
	listener   net.Listener
}

// New creates a server. Call ApplyMiddleware before Start to install the
// standard stack.
func New(cfg Config, log *logger.Logger) *Server {
	if zerolog.GlobalLevel() <= zerolog.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	mux := http.NewServeMux()
	mux.Handle("/", engine)

	s := &Server{
		engine:  engine,
		mux:     mux,
		handler: mux,
		config:  cfg,
		log:     log.WithComponent("server"),
	}
	s.httpServer = &http.Server{
		Addr:         cfg.Addr(),
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.IdleTimeout) * time.Second,
	}
	return s
}

// Engine returns the Gin engine for route registration.
func (s *Server) Engine() *gin.Engine { return s.engine }

// Handler returns the fully wrapped handler.
func (s *Server) Handler() http.Handler { return s.handler }

// Handle mounts an http.Handler next to Gin.
func (s *Server) Handle(pattern string, h http.Handler) {
	s.mux.Handle(pattern, h)
}

// ApplyMiddleware installs recovery, request ids, CORS, the body limit,
// the per-client rate limit and request logging, outermost first.
func (s *Server) ApplyMiddleware() {
	s.handler = middleware.Chain(
		middleware.Recovery(s.log),
		middleware.RequestID(),
		middleware.CORS(s.config.CORS),
		middleware.BodySizeLimit(s.config.MaxBodySize),
		middleware.RateLimit(s.config.RateLimit),
		middleware.RequestLogger(s.log),
	)(s.mux)
}

// Start binds the port and serves in the background. It returns once the
// listener is bound.
func (s *Server) Start(_ context.Context) error {
	s.httpServer.Handler = h2c.NewHandler(s.handler, &http2.Server{
		MaxConcurrentStreams: 250,
		IdleTimeout:          time.Duration(s.config.IdleTimeout) * time.Second,
	})

	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("server failed to bind %s: %w", s.httpServer.Addr, err)
	}
	s.listener = ln

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("server error", logger.MergeWithError(nil, err))
		}
	}()
	s.log.Info("HTTP server started", logger.Fields("addr", ln.Addr().String()))
	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, ShutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	s.log.Info("HTTP server stopped")
	return nil
}

// Addr returns the bound address once started, else the configured one.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.httpServer.Addr
}

// Name identifies the server in a component registry.
func (s *Server) Name() string { return "http" }

// Health is up once the listener is bound.
func (s *Server) Health(context.Context) observability.Health {
	if s.listener == nil {
		return observability.Health{Name: s.Name(), Status: observability.HealthStatusDown, Message: "not listening"}
	}
	return observability.Health{Name: s.Name(), Status: observability.HealthStatusUp, Message: s.Addr()}
}
