// Package auth provides session context helpers.
//
// This package is designed to be imported by both middleware and handler
// packages without causing import cycles.
package auth

import (
	"context"
	"net/http"

	"github.com/DukeRupert/pbgate/internal/domain"
	"github.com/DukeRupert/pbgate/internal/session"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// sessionContextKey stores the envelope the gate settled on for this request.
	sessionContextKey contextKey = "session"

	// requestContextKey stores the per-request cookie jar and clock.
	requestContextKey contextKey = "request_context"
)

// GetSession retrieves the session envelope from the context.
//
// Returns nil if the visitor has no usable session. The envelope reflects
// any rotation the gate performed before the handler ran.
//
// Usage:
//
//	env := auth.GetSession(r.Context())
//	if env == nil {
//	    // Handle anonymous request
//	}
func GetSession(ctx context.Context) *domain.SessionEnvelope {
	env, ok := ctx.Value(sessionContextKey).(*domain.SessionEnvelope)
	if !ok {
		return nil
	}
	return env
}

// GetUser returns the record of the session user, or nil.
func GetUser(ctx context.Context) *domain.Record {
	env := GetSession(ctx)
	if env == nil {
		return nil
	}
	return &env.Record
}

// GetUserFromRequest retrieves the session user from the request context.
func GetUserFromRequest(r *http.Request) *domain.Record {
	return GetUser(r.Context())
}

// SetSession stores a session envelope in the context.
func SetSession(ctx context.Context, env *domain.SessionEnvelope) context.Context {
	return context.WithValue(ctx, sessionContextKey, env)
}

// SetRequestContext stores the request-scoped cookie jar so handlers share
// the jar the gate already wrote to.
func SetRequestContext(ctx context.Context, rc *session.RequestContext) context.Context {
	return context.WithValue(ctx, requestContextKey, rc)
}

// GetRequestContext returns the stored RequestContext, or nil.
func GetRequestContext(ctx context.Context) *session.RequestContext {
	rc, ok := ctx.Value(requestContextKey).(*session.RequestContext)
	if !ok {
		return nil
	}
	return rc
}
