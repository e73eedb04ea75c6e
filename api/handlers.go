package api

import (
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apperrors "github.com/kbukum/riskintel/errors"
	"github.com/kbukum/riskintel/observability"
	"github.com/kbukum/riskintel/orchestrator"
	"github.com/kbukum/riskintel/provider"
	"github.com/kbukum/riskintel/server"
	"github.com/kbukum/riskintel/server/middleware"
	"github.com/kbukum/riskintel/sse"
	"github.com/kbukum/riskintel/validation"
)

// request answers 200 with the Response even when every provider failed;
// callers read success and error from the body. Only a body that does not
// parse or lacks a type is rejected with 400.
func (h *handlers) request(c *gin.Context) {
	var in orchestrator.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		server.RespondWithError(c, apperrors.InvalidInput("body", err.Error()))
		return
	}
	if err := validation.Validate(in); err != nil {
		server.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.svc.Request(c.Request.Context(), in))
}

func (h *handlers) state(c *gin.Context) {
	server.RespondOK(c, h.svc.GetState())
}

// health reports per-provider availability. It answers 503 only when no
// provider can take traffic.
func (h *handlers) health(c *gin.Context) {
	sh := observability.FromAvailability(h.info.Service, h.info.Version.Short(),
		h.svc.ProviderIDs(), h.svc.CheckHealth(c.Request.Context()))
	status := http.StatusOK
	if sh.Status == observability.HealthStatusDown {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, sh)
}

func (h *handlers) liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "alive",
		"service":   h.info.Service,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *handlers) serviceInfo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": h.info.Service,
		"build":   h.info.Version,
	})
}

// CostEstimate is the body of GET /api/v1/cost/:operation.
type CostEstimate struct {
	Operation provider.RequestType `json:"operation"`
	Providers map[string]float64   `json:"providers"`
}

func (h *handlers) cost(c *gin.Context) {
	op := provider.RequestType(c.Param("operation"))
	if !slices.Contains(provider.KnownRequestTypes(), op) {
		server.RespondWithError(c, apperrors.InvalidInput("operation", "unknown request type "+string(op)))
		return
	}
	server.RespondOK(c, CostEstimate{Operation: op, Providers: h.svc.EstimateCost(op)})
}

func (h *handlers) clearCache(c *gin.Context) {
	h.svc.ClearCache()
	server.RespondNoContent(c)
}

// SwitchRequest is the body of POST /api/v1/provider.
type SwitchRequest struct {
	Provider string `json:"provider" validate:"required"`
}

func (h *handlers) switchProvider(c *gin.Context) {
	var body SwitchRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		server.RespondWithError(c, apperrors.InvalidInput("body", err.Error()))
		return
	}
	if err := validation.Validate(body); err != nil {
		server.RespondWithError(c, err)
		return
	}
	if err := h.svc.SwitchProvider(body.Provider); err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, gin.H{"currentProvider": h.svc.GetState().CurrentProvider})
}

func (h *handlers) updateConfig(c *gin.Context) {
	var u orchestrator.ConfigUpdate
	if err := c.ShouldBindJSON(&u); err != nil {
		server.RespondWithError(c, apperrors.InvalidInput("body", err.Error()))
		return
	}
	if err := h.svc.UpdateConfig(u); err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, h.svc.GetState().Config)
}

// events streams bus events as SSE. Repeat ?kind= to filter; globs such as
// provider-* are accepted. Comma-separated lists also work.
func (h *handlers) events(c *gin.Context) {
	var kinds []string
	for _, k := range c.QueryArray("kind") {
		kinds = append(kinds, strings.Split(k, ",")...)
	}
	clientOpts := []sse.ClientOption{
		sse.WithKinds(kinds...),
		sse.WithMetadata("remote", c.ClientIP()),
	}
	if id := middleware.RequestIDFrom(c.Request.Context()); id != "" {
		clientOpts = append(clientOpts, sse.WithMetadata("request_id", id))
	}
	sse.ServeSSE(h.hub, c.Writer, c.Request, uuid.NewString(), sse.WithClientOptions(clientOpts...))
}
