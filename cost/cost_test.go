package cost

import (
	"testing"

	"github.com/kbukum/riskintel/provider"
)

func TestEstimate_DefaultTable(t *testing.T) {
	e := NewEstimator(nil)
	tests := []struct {
		id, kind string
		op       provider.RequestType
		want     float64
	}{
		{"gpt", "openai", provider.TypeRiskCommentary, 0.0050},
		{"offline", "offline", provider.TypeThreatContext, 0},
		{"x", "unknown-kind", provider.TypeThreatContext, 0},
		{"gpt", "openai", "unknown-op", 0},
	}
	for _, tt := range tests {
		if got := e.Estimate(tt.id, tt.kind, tt.op); got != tt.want {
			t.Errorf("Estimate(%s,%s,%s) = %v, want %v", tt.id, tt.kind, tt.op, got, tt.want)
		}
	}
}

func TestEstimate_OverrideWins(t *testing.T) {
	e := NewEstimator(nil)
	e.Override("gpt", provider.TypeRiskCommentary, 0.1)

	if got := e.Estimate("gpt", "openai", provider.TypeRiskCommentary); got != 0.1 {
		t.Errorf("expected override 0.1, got %v", got)
	}
	if got := e.Estimate("other", "openai", provider.TypeRiskCommentary); got != 0.0050 {
		t.Errorf("override must not leak to other ids, got %v", got)
	}
}

func TestForProviders(t *testing.T) {
	e := NewEstimator(Table{"openai": {provider.TypeThreatContext: 0.5}})
	got := e.ForProviders(provider.TypeThreatContext, map[string]string{"a": "openai", "b": "offline"})
	if len(got) != 2 || got["a"] != 0.5 || got["b"] != 0 {
		t.Errorf("unexpected estimates %v", got)
	}
}
