// Package cost estimates the per-call cost of a request type on a provider.
// Figures are for reporting only and are never enforced as a budget.
package cost

import (
	"sync"

	"github.com/kbukum/riskintel/provider"
)

// Table maps provider kind → request type → USD per call.
type Table map[string]map[provider.RequestType]float64

// DefaultTable holds list-price estimates for the built-in provider kinds.
// Offline answers are free.
func DefaultTable() Table {
	return Table{
		"openai": {
			provider.TypeCompromiseAnalysis: 0.0040,
			provider.TypeThreatContext:      0.0030,
			provider.TypeCompanyEnrichment:  0.0020,
			provider.TypeRiskCommentary:     0.0050,
		},
		"offline": {
			provider.TypeCompromiseAnalysis: 0,
			provider.TypeThreatContext:      0,
			provider.TypeCompanyEnrichment:  0,
			provider.TypeRiskCommentary:     0,
		},
	}
}

// Estimator looks up costs by provider id first, then by provider kind.
type Estimator struct {
	mu        sync.RWMutex
	byKind    Table
	overrides Table
}

// NewEstimator creates an estimator over table. Nil uses DefaultTable.
func NewEstimator(table Table) *Estimator {
	if table == nil {
		table = DefaultTable()
	}
	return &Estimator{byKind: table, overrides: Table{}}
}

// Override sets a per-provider-id cost that wins over the kind table.
func (e *Estimator) Override(providerID string, op provider.RequestType, usd float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.overrides[providerID] == nil {
		e.overrides[providerID] = make(map[provider.RequestType]float64)
	}
	e.overrides[providerID][op] = usd
}

// Estimate returns the cost of op on a provider. Unknown pairs cost 0.
func (e *Estimator) Estimate(providerID, kind string, op provider.RequestType) float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if c, ok := e.overrides[providerID][op]; ok {
		return c
	}
	return e.byKind[kind][op]
}

// ForProviders estimates op for every provider in kinds (id → kind).
func (e *Estimator) ForProviders(op provider.RequestType, kinds map[string]string) map[string]float64 {
	out := make(map[string]float64, len(kinds))
	for id, kind := range kinds {
		out[id] = e.Estimate(id, kind, op)
	}
	return out
}
