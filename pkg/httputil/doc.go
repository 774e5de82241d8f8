// Package httputil provides JSON response helpers and the request middleware
// shared by the schools HTTP server.
//
// # Response Helpers
//
//	httputil.WriteSuccess(w, resp)
//	httputil.WriteCreated(w, map[string]int64{"id": id})
//	httputil.WriteBadRequest(w, err.Error())
//	httputil.WriteMethodNotAllowed(w, http.MethodGet, http.MethodPost)
//
// # Middleware
//
//	httputil.Chain(
//		httputil.RequestIDMiddleware(logger),
//		httputil.LoggingMiddleware,
//		httputil.RecoveryMiddleware,
//		httputil.MaxBytesMiddleware(6<<20),
//	)
package httputil
