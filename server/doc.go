// Package server runs the riskintel HTTP API: a Gin engine behind the
// middleware stack in server/middleware, served with h2c.
//
//	srv := server.New(cfg.Server, log)
//	srv.ApplyMiddleware()
//	api.Register(srv.Engine(), svc, stream.Hub(), info)
//	if err := srv.Start(ctx); err != nil {
//	    return err
//	}
//	defer srv.Stop(ctx)
//
// Handlers reply with RespondOK for data and RespondWithError for any
// error, which is normalized to an *errors.AppError envelope.
package server
