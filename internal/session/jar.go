package session

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/DukeRupert/pbgate/internal/domain"
)

// Jar is the request-scoped view of the session cookie.
//
// Writes and clears are sent to the client immediately via Set-Cookie and
// also remembered, so a Read later in the same request sees them. There is
// no process-wide cache: a new request gets a new Jar.
type Jar struct {
	w        http.ResponseWriter
	r        *http.Request
	isSecure bool

	// pending is the value set during this request; cleared marks a delete.
	pending *string
	cleared bool
}

// NewJar creates a cookie jar for one request.
// isSecure sets the Secure flag on written cookies (true in production).
func NewJar(w http.ResponseWriter, r *http.Request, isSecure bool) *Jar {
	return &Jar{w: w, r: r, isSecure: isSecure}
}

// raw returns the current cookie value and whether one exists.
func (j *Jar) raw() (string, bool) {
	if j.cleared {
		return "", false
	}
	if j.pending != nil {
		return *j.pending, true
	}
	if j.r == nil {
		return "", false
	}
	cookie, err := j.r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	value, err := url.PathUnescape(cookie.Value)
	if err != nil {
		// Keep the raw value: it is present but will not parse.
		return cookie.Value, true
	}
	return value, true
}

// Present reports whether a session cookie exists, parseable or not.
func (j *Jar) Present() bool {
	_, ok := j.raw()
	return ok
}

// Read returns the session envelope, or nil when the cookie is absent or
// cannot be parsed. It never fails: a garbled cookie is a logged-out user.
func (j *Jar) Read() *domain.SessionEnvelope {
	value, ok := j.raw()
	if !ok {
		return nil
	}

	var env domain.SessionEnvelope
	if err := json.Unmarshal([]byte(value), &env); err != nil {
		return nil
	}
	if env.Token == "" {
		return nil
	}
	return &env
}

// Token returns the bearer token from the envelope, or "".
func (j *Jar) Token() string {
	env := j.Read()
	if env == nil {
		return ""
	}
	return env.Token
}

// Write serialises the full envelope into the cookie, replacing any value.
// The JSON is percent-encoded since quotes are not legal in cookie values.
//
// Cookie Settings:
// - HttpOnly: true - not readable from JavaScript
// - Secure: configurable - true in production (HTTPS only)
// - SameSite: Strict - never sent on cross-site navigation
// - Path: / - sent with all requests
// - MaxAge: 7 days
func (j *Jar) Write(env *domain.SessionEnvelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return domain.Internal(err, "session.write", "failed to encode session")
	}
	value := string(data)

	http.SetCookie(j.w, &http.Cookie{
		Name:     CookieName,
		Value:    url.PathEscape(value),
		Path:     CookiePath,
		MaxAge:   CookieMaxAge,
		HttpOnly: true,
		Secure:   j.isSecure,
		SameSite: http.SameSiteStrictMode,
	})

	j.pending = &value
	j.cleared = false
	return nil
}

// Clear deletes the session cookie. Calling it repeatedly is harmless.
func (j *Jar) Clear() {
	http.SetCookie(j.w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     CookiePath,
		MaxAge:   -1, // Delete immediately
		HttpOnly: true,
		Secure:   j.isSecure,
		SameSite: http.SameSiteStrictMode,
	})

	j.pending = nil
	j.cleared = true
}
