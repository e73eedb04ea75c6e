// Package sse streams orchestrator events to HTTP clients as Server-Sent
// Events.
//
// A Hub tracks connected clients and fans messages out to those whose
// kind filters match. A Stream ties a Hub to an events.Bus so every
// published event reaches subscribed dashboards.
//
// # Usage
//
//	stream := sse.NewStream(svcBus, log)
//	stream.Start(ctx)
//	defer stream.Stop(ctx)
//	router.GET("/api/v1/events", func(c *gin.Context) {
//	    sse.ServeSSE(stream.Hub(), c.Writer, c.Request, uuid.NewString(),
//	        sse.WithClientOptions(sse.WithKinds(c.QueryArray("kind")...)))
//	})
package sse
