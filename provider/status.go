package provider

import (
	"time"

	"github.com/kbukum/riskintel/resilience"
)

// Status is a point-in-time health report for one provider.
type Status struct {
	ID           string                 `json:"id"`
	Name         string                 `json:"name"`
	Tier         Tier                   `json:"tier"`
	Enabled      bool                   `json:"enabled"`
	Online       bool                   `json:"online"`
	Healthy      bool                   `json:"healthy"`
	Available    bool                   `json:"available"`
	ErrorCount   int64                  `json:"errorCount"`
	RequestCount int64                  `json:"requestCount"`
	LastCheck    time.Time              `json:"lastCheck"`
	RateLimit    resilience.WindowState `json:"rateLimit"`
}
