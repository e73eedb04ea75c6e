package api

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/riskintel/orchestrator"
	"github.com/kbukum/riskintel/provider"
	"github.com/kbukum/riskintel/sse"
	"github.com/kbukum/riskintel/version"
)

// Orchestrator is the part of *orchestrator.Service the handlers call.
type Orchestrator interface {
	Request(ctx context.Context, in orchestrator.Input) *provider.Response
	GetState() orchestrator.State
	CheckHealth(ctx context.Context) map[string]bool
	ProviderIDs() []string
	EstimateCost(op provider.RequestType) map[string]float64
	ClearCache()
	SwitchProvider(id string) error
	UpdateConfig(u orchestrator.ConfigUpdate) error
}

// Info identifies the service in health and info responses.
type Info struct {
	Service string
	Version version.Info
}

// Register mounts the liveness probe and the /api/v1 routes on r. A nil hub
// leaves the event stream unmounted.
func Register(r gin.IRouter, svc Orchestrator, hub *sse.Hub, info Info) {
	h := &handlers{svc: svc, hub: hub, info: info}

	r.GET("/health", h.liveness)

	v1 := r.Group("/api/v1")
	v1.GET("/info", h.serviceInfo)
	v1.GET("/health", h.health)
	v1.POST("/requests", h.request)
	v1.GET("/state", h.state)
	v1.GET("/cost/:operation", h.cost)
	v1.DELETE("/cache", h.clearCache)
	v1.POST("/provider", h.switchProvider)
	v1.PATCH("/config", h.updateConfig)
	if hub != nil {
		v1.GET("/events", h.events)
	}
}

type handlers struct {
	svc  Orchestrator
	hub  *sse.Hub
	info Info
}
