// Package api exposes the orchestrator over HTTP.
//
//	POST   /api/v1/requests          dispatch one request, 200 with the Response
//	GET    /api/v1/state             dashboard snapshot
//	GET    /api/v1/health            per-provider availability
//	GET    /api/v1/info              build information
//	GET    /api/v1/cost/:operation   cost estimate per provider
//	DELETE /api/v1/cache             drop cached responses
//	POST   /api/v1/provider          switch the active provider
//	PATCH  /api/v1/config            change default/fallback provider or cache
//	GET    /api/v1/events            server-sent events, ?kind= filters
//	GET    /health                   liveness
package api
