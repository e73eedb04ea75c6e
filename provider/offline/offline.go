// Package offline provides the deterministic fallback provider. It never
// performs I/O and is always available, so the fallback chain can always
// produce an answer.
package offline

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/cespare/xxhash/v2"

	"github.com/kbukum/riskintel/provider"
)

// Kind is the factory key for this provider.
const Kind = "offline"

// Provider derives stable results from a hash of the request.
type Provider struct {
	*provider.Base
}

// New creates an offline provider. Unset tier defaults to fallback and the
// provider is always enabled.
func New(cfg provider.Config, opts ...provider.BaseOption) *Provider {
	if cfg.Kind == "" {
		cfg.Kind = Kind
	}
	if cfg.PriorityTier == "" {
		cfg.PriorityTier = provider.TierFallback
	}
	if cfg.Name == "" {
		cfg.Name = "Offline Analysis"
	}
	cfg.Enabled = true
	return &Provider{Base: provider.NewBase(cfg, provider.Capabilities{
		SupportedRequestTypes: provider.KnownRequestTypes(),
		Concurrent:            true,
	}, opts...)}
}

// Factory adapts New to provider.Factory.
func Factory(cfg provider.Config) (provider.Provider, error) {
	return New(cfg), nil
}

// Complete answers from the payload alone.
func (p *Provider) Complete(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	return p.Execute(ctx, req, func(_ context.Context, req *provider.Request) (map[string]any, error) {
		return Analyze(req.Type, req.Payload)
	})
}

var bands = []string{"low", "moderate", "elevated", "high"}

// Analyze is the pure function behind Complete.
func Analyze(t provider.RequestType, payload map[string]any) (map[string]any, error) {
	seed, err := fingerprint(t, payload)
	if err != nil {
		return nil, err
	}
	score := int(seed % 101)
	band := bandFor(score)
	subject := subjectOf(payload)

	switch t {
	case provider.TypeCompromiseAnalysis:
		return map[string]any{
			"riskScore":  score,
			"riskBand":   band,
			"confidence": "low",
			"summary":    fmt.Sprintf("Offline estimate for %s: %s exposure based on submitted attributes.", subject, band),
			"source":     Kind,
		}, nil
	case provider.TypeThreatContext:
		return map[string]any{
			"threatLevel": band,
			"context":     fmt.Sprintf("No live threat intelligence is available. %s is assessed at a %s baseline.", subject, band),
			"source":      Kind,
		}, nil
	case provider.TypeCompanyEnrichment:
		return map[string]any{
			"company":  subject,
			"enriched": false,
			"fields":   sortedKeys(payload),
			"source":   Kind,
		}, nil
	case provider.TypeRiskCommentary:
		return map[string]any{
			"commentary": fmt.Sprintf("%s shows %s risk (score %d). Detailed commentary requires an online provider.", subject, band, score),
			"riskBand":   band,
			"source":     Kind,
		}, nil
	default:
		return nil, fmt.Errorf("offline: no template for request type %q", t)
	}
}

func fingerprint(t provider.RequestType, payload map[string]any) (uint64, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("offline: encode payload: %w", err)
	}
	h := xxhash.New()
	_, _ = h.Write([]byte(t))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write(b)
	return h.Sum64(), nil
}

func bandFor(score int) string {
	idx := score * len(bands) / 101
	return bands[idx]
}

func subjectOf(payload map[string]any) string {
	for _, key := range []string{"company", "name", "domain", "query"} {
		if s, ok := payload[key].(string); ok && s != "" {
			return s
		}
	}
	return "The company"
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
