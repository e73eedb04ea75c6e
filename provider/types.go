package provider

import (
	"encoding/json"
	"slices"
	"time"

	apperrors "github.com/kbukum/riskintel/errors"
)

// RequestType names an operation a provider can fulfil.
type RequestType string

// Known request types.
const (
	TypeCompromiseAnalysis RequestType = "compromise-analysis"
	TypeThreatContext      RequestType = "threat-context"
	TypeCompanyEnrichment  RequestType = "company-enrichment"
	TypeRiskCommentary     RequestType = "risk-commentary"
)

// KnownRequestTypes lists every request type the orchestration layer routes.
func KnownRequestTypes() []RequestType {
	return []RequestType{
		TypeCompromiseAnalysis,
		TypeThreatContext,
		TypeCompanyEnrichment,
		TypeRiskCommentary,
	}
}

// Tier is a priority bucket. Tiers are scanned in the order of Tiers().
type Tier string

const (
	TierPrimary   Tier = "primary"
	TierSecondary Tier = "secondary"
	TierFallback  Tier = "fallback"
)

// Tiers returns all tiers in scan order.
func Tiers() []Tier {
	return []Tier{TierPrimary, TierSecondary, TierFallback}
}

// Valid reports whether t is a known tier.
func (t Tier) Valid() bool {
	return slices.Contains(Tiers(), t)
}

// Options tune a single request.
type Options struct {
	// Timeout bounds one provider attempt. Zero uses the provider's configured timeout.
	Timeout time.Duration `json:"-"`
	// Priority is an opaque hint passed through to providers.
	Priority string `json:"priority,omitempty"`
	// Cache enables the response cache for this request.
	Cache bool `json:"cache,omitempty"`
	// CacheKey overrides the derived cache key.
	CacheKey string `json:"cacheKey,omitempty"`
}

// Request is one typed call routed to a provider.
type Request struct {
	ID      string         `json:"id"`
	Type    RequestType    `json:"type"`
	Payload map[string]any `json:"payload,omitempty"`
	Options Options        `json:"options"`
}

// Metadata describes how a response was produced.
type Metadata struct {
	// Provider is the display name of the provider, or "cache".
	Provider       string        `json:"provider"`
	ProviderID     string        `json:"providerId,omitempty"`
	Timestamp      time.Time     `json:"timestamp"`
	ProcessingTime time.Duration `json:"-"`
	Cost           float64       `json:"cost,omitempty"`
	Attempts       int           `json:"attempts,omitempty"`
	Cached         bool          `json:"cached,omitempty"`
}

// MarshalJSON adds processingTimeMs alongside the regular fields.
func (m Metadata) MarshalJSON() ([]byte, error) {
	type alias Metadata
	return json.Marshal(struct {
		alias
		ProcessingTimeMs int64 `json:"processingTimeMs"`
	}{alias(m), m.ProcessingTime.Milliseconds()})
}

// Response is the outcome of a request. Exactly one of Data or Error is set.
type Response struct {
	ID       string              `json:"id"`
	Success  bool                `json:"success"`
	Data     map[string]any      `json:"data,omitempty"`
	Error    *apperrors.AppError `json:"error,omitempty"`
	Metadata Metadata            `json:"metadata"`
}

// Succeeded builds a successful response.
func Succeeded(id string, data map[string]any) *Response {
	return &Response{ID: id, Success: true, Data: data}
}

// Clone returns a copy of r whose Data shares no maps or slices with r.
func (r *Response) Clone() *Response {
	if r == nil {
		return nil
	}
	out := *r
	out.Data = cloneMap(r.Data)
	if r.Error != nil {
		out.Error = r.Error.Clone()
	}
	return &out
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	case []string:
		return slices.Clone(t)
	default:
		return v
	}
}

// Failed builds an unsuccessful response carrying a normalized error.
func Failed(id string, err error) *Response {
	return &Response{ID: id, Success: false, Error: apperrors.Normalize(err)}
}

// Capabilities declares what a provider can do.
type Capabilities struct {
	SupportedRequestTypes []RequestType `json:"supportedRequestTypes"`
	Concurrent            bool          `json:"concurrent"`
	Streaming             bool          `json:"streaming"`
}

// Supports reports whether t is in SupportedRequestTypes.
func (c Capabilities) Supports(t RequestType) bool {
	return slices.Contains(c.SupportedRequestTypes, t)
}
