// Package reqctx carries request-scoped values through context.Context:
// request metadata from the HTTP edge, the verified access-token claims and
// the resolved tenant Scope.
//
// Middleware sets them in that order. Services take the Scope explicitly as
// an argument; the context copy exists for logging and for code that only
// has a context, such as the realtime read loop.
package reqctx
