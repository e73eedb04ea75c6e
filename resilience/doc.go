// Package resilience provides the request-window limiter each provider uses
// to bound how many calls it accepts per fixed time window.
//
//	rl := resilience.NewFixedWindow(resilience.FixedWindowConfig{
//	    Name:   "openai",
//	    Limit:  60,
//	    Window: time.Minute,
//	})
//	if ok, resetIn := rl.Acquire(); !ok {
//	    // skip the provider for resetIn
//	}
//
// Window state lives in memory only and starts fresh whenever a limiter is
// constructed.
package resilience
