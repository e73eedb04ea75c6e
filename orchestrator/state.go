package orchestrator

import (
	"github.com/kbukum/riskintel/cache"
	apperrors "github.com/kbukum/riskintel/errors"
	"github.com/kbukum/riskintel/provider"
)

// Input is the caller-facing request shape.
type Input struct {
	Type    provider.RequestType `json:"type" validate:"required"`
	Data    map[string]any       `json:"data"`
	Options provider.Options     `json:"options"`
}

// State is a dashboard snapshot of the service.
type State struct {
	Initialized     bool                       `json:"initialized"`
	CurrentProvider string                     `json:"currentProvider"`
	Providers       map[string]provider.Status `json:"providers"`
	// RequestQueue counts requests in flight. It is never used for admission.
	RequestQueue int64               `json:"requestQueue"`
	LastError    *apperrors.AppError `json:"lastError,omitempty"`
	Config       Snapshot            `json:"config"`
	Cache        cache.Stats         `json:"cache"`
}
