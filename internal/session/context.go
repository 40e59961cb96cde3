package session

import (
	"net/http"
	"time"
)

// RequestContext carries the per-request collaborators of the gate and the
// auth actions: the cookie jar and the clock. Passing it explicitly keeps
// both testable without touching globals.
type RequestContext struct {
	Cookies *Jar
	Now     func() time.Time
}

// NewRequestContext builds a RequestContext for one request.
// A nil now defaults to time.Now.
func NewRequestContext(w http.ResponseWriter, r *http.Request, isSecure bool, now func() time.Time) *RequestContext {
	if now == nil {
		now = time.Now
	}
	return &RequestContext{
		Cookies: NewJar(w, r, isSecure),
		Now:     now,
	}
}
