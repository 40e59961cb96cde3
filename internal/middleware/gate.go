package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/DukeRupert/pbgate/internal/auth"
	"github.com/DukeRupert/pbgate/internal/domain"
	"github.com/DukeRupert/pbgate/internal/metrics"
	"github.com/DukeRupert/pbgate/internal/session"
	"github.com/DukeRupert/pbgate/internal/token"
)

// =============================================================================
// Configuration Constants
// =============================================================================

// DefaultRefreshTimeout bounds the backend confirmation made by the gate.
const DefaultRefreshTimeout = 3 * time.Second

// DefaultProtectedPrefixes are the routes that need a confirmed session.
var DefaultProtectedPrefixes = []string{
	"/dashboard",
	"/profile",
}

// DefaultAuthOnlyPrefixes are the routes for signed-out visitors only.
var DefaultAuthOnlyPrefixes = []string{
	"/auth/signin",
	"/auth/signup",
	"/auth/otp-login",
	"/auth/forgot-password",
	"/auth/verify-otp",
	"/auth/confirm-password-reset",
}

// bypassPaths skip the gate entirely.
var bypassPaths = []string{
	"/health",
	"/api/health",
	"/metrics",
	"/favicon.ico",
	"/robots.txt",
}

// bypassPrefixes skip the gate for every path beneath them.
var bypassPrefixes = []string{
	"/static",
	"/api",
}

// Refresher confirms a session token with the auth backend.
// It must not write cookies; the gate decides what to persist.
type Refresher interface {
	RefreshSession(ctx context.Context, token string) (*domain.SessionEnvelope, error)
}

// GateConfig configures a Gate. Zero values take the defaults.
type GateConfig struct {
	ProtectedPrefixes []string
	AuthOnlyPrefixes  []string
	LoginPath         string
	LandingPath       string
	RefreshTimeout    time.Duration
	IsSecure          bool
	Now               func() time.Time
}

// =============================================================================
// Gate
// =============================================================================

// Gate decides, before any page renders, whether the session cookie is
// usable for the requested route.
//
// Per request it:
//  1. Classifies the path as protected, auth-only or public
//  2. Reads the cookie and inspects the token's expiry locally
//  3. Asks the backend to refresh the token at most once, when the route
//     and local state call for it
//  4. Continues, redirects, rewrites or clears the cookie per the decision
//     table in decide
//
// The gate never fails a request. A panic while deciding is recovered:
// protected routes go to the login page with the cookie cleared, anything
// else continues.
type Gate struct {
	refresher      Refresher
	protected      []string
	authOnly       []string
	loginPath      string
	landingPath    string
	refreshTimeout time.Duration
	isSecure       bool
	now            func() time.Time
	logger         *slog.Logger
}

// NewGate creates a new session gate.
func NewGate(refresher Refresher, cfg GateConfig, logger *slog.Logger) *Gate {
	g := &Gate{
		refresher:      refresher,
		protected:      cfg.ProtectedPrefixes,
		authOnly:       cfg.AuthOnlyPrefixes,
		loginPath:      cfg.LoginPath,
		landingPath:    cfg.LandingPath,
		refreshTimeout: cfg.RefreshTimeout,
		isSecure:       cfg.IsSecure,
		now:            cfg.Now,
		logger:         logger,
	}
	if len(g.protected) == 0 {
		g.protected = DefaultProtectedPrefixes
	}
	if len(g.authOnly) == 0 {
		g.authOnly = DefaultAuthOnlyPrefixes
	}
	if g.loginPath == "" {
		g.loginPath = "/auth/signin"
	}
	if g.landingPath == "" {
		g.landingPath = "/dashboard"
	}
	if g.refreshTimeout <= 0 {
		g.refreshTimeout = DefaultRefreshTimeout
	}
	if g.now == nil {
		g.now = time.Now
	}
	return g
}

// decision is the gate's verdict for one request.
type decision struct {
	name     string // metric label
	redirect string // empty to continue
}

// Handler returns the gate middleware.
func (g *Gate) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if IsBypassPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		rc := session.NewRequestContext(w, r, g.isSecure, g.now)
		class := g.Classify(r.URL.Path)
		d := g.evaluate(r.Context(), rc, class, r.URL.Path)

		metrics.GateDecision(class.String(), d.name)

		if d.redirect != "" {
			http.Redirect(w, r, d.redirect, http.StatusSeeOther)
			return
		}

		ctx := auth.SetRequestContext(r.Context(), rc)
		if env := rc.Cookies.Read(); env != nil {
			switch token.Inspect(env.Token, rc.Now()).State {
			case domain.TokenValid, domain.TokenExpiringSoon:
				ctx = auth.SetSession(ctx, env)
			}
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Classify maps a path to its route class. Prefixes match whole path
// segments: "/dashboard" covers "/dashboard/x" but not "/dashboards".
func (g *Gate) Classify(path string) domain.RouteClass {
	if matchesAny(path, g.protected) {
		return domain.RouteProtected
	}
	if matchesAny(path, g.authOnly) {
		return domain.RouteAuthOnly
	}
	return domain.RoutePublic
}

// IsBypassPath reports whether the gate ignores path: health checks,
// metrics, static assets, well-known files and the /api namespace.
func IsBypassPath(path string) bool {
	for _, p := range bypassPaths {
		if path == p {
			return true
		}
	}
	return matchesAny(path, bypassPrefixes)
}

// evaluate reads the session, confirms it when needed and applies the
// decision table. Cookie writes and clears happen here.
func (g *Gate) evaluate(ctx context.Context, rc *session.RequestContext, class domain.RouteClass, path string) (d decision) {
	defer func() {
		if rec := recover(); rec != nil {
			g.logger.Error("session gate panic", "panic", rec, "path", path, "class", class.String())
			if class == domain.RouteProtected {
				rc.Cookies.Clear()
				d = decision{name: "recovered_redirect", redirect: g.loginRedirect(path)}
				return
			}
			d = decision{name: "recovered_continue"}
		}
	}()

	raw, state := g.inspect(rc)

	var refreshed *domain.SessionEnvelope
	if needsConfirmation(class, state) {
		refreshed = g.confirm(ctx, raw)
	}

	d = g.decide(rc, class, state, refreshed, path)

	g.logger.Debug("session gate",
		"path", path,
		"class", class.String(),
		"token", state.String(),
		"confirmed", refreshed != nil,
		"decision", d.name,
	)
	return d
}

// inspect returns the raw token and its local state. A cookie that exists
// but does not parse is Malformed.
func (g *Gate) inspect(rc *session.RequestContext) (string, domain.TokenState) {
	if !rc.Cookies.Present() {
		return "", domain.TokenAbsent
	}
	env := rc.Cookies.Read()
	if env == nil {
		return "", domain.TokenMalformed
	}
	return env.Token, token.Inspect(env.Token, rc.Now()).State
}

// needsConfirmation reports whether the backend must be asked about the
// session. At most one refresh is made per request.
//
//   - protected route with an unexpired token: always, since a token can be
//     revoked before it expires
//   - expiring soon on any route: to rotate it
//   - auth-only route with a valid token: before redirecting away from login
func needsConfirmation(class domain.RouteClass, state domain.TokenState) bool {
	switch {
	case class == domain.RouteProtected && state == domain.TokenExpired:
		return false
	case class == domain.RouteProtected && state.Present():
		return true
	case state == domain.TokenExpiringSoon:
		return true
	case class == domain.RouteAuthOnly && state == domain.TokenValid:
		return true
	default:
		return false
	}
}

// confirm refreshes raw against the backend within the gate's deadline.
// It returns nil when the session is not confirmed for any reason.
func (g *Gate) confirm(ctx context.Context, raw string) *domain.SessionEnvelope {
	if raw == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, g.refreshTimeout)
	defer cancel()

	env, err := g.refresher.RefreshSession(ctx, raw)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			metrics.RefreshTimedOut()
		} else {
			metrics.RefreshRejected()
		}
		g.logger.Debug("session not confirmed", "error", err)
		return nil
	}
	if env == nil || env.Token == "" {
		metrics.RefreshRejected()
		return nil
	}

	metrics.RefreshConfirmed()
	return env
}

// decide applies the decision table, first match wins:
//
//	protected, expired                  -> clear, redirect to login
//	protected, not confirmed            -> clear, redirect to login
//	expiring soon, confirmed            -> write rotated envelope, continue
//	protected, confirmed                -> continue, cookie untouched
//	expired                             -> clear, continue
//	auth-only, valid, confirmed         -> redirect to landing, cookie untouched
//	auth-only, token present, not confirmed -> clear, continue
//	malformed                           -> clear, continue
//	otherwise                           -> continue
func (g *Gate) decide(rc *session.RequestContext, class domain.RouteClass, state domain.TokenState, refreshed *domain.SessionEnvelope, path string) decision {
	confirmed := refreshed != nil

	switch {
	case class == domain.RouteProtected && state == domain.TokenExpired:
		rc.Cookies.Clear()
		return decision{name: "redirect_expired", redirect: g.loginRedirect(path)}

	case class == domain.RouteProtected && !confirmed:
		if state.Present() {
			rc.Cookies.Clear()
		}
		return decision{name: "redirect_login", redirect: g.loginRedirect(path)}

	case state == domain.TokenExpiringSoon && confirmed:
		g.write(rc, refreshed)
		return decision{name: "refreshed"}

	case class == domain.RouteProtected:
		return decision{name: "confirmed"}

	case state == domain.TokenExpired:
		rc.Cookies.Clear()
		return decision{name: "cleared_expired"}

	case class == domain.RouteAuthOnly && state == domain.TokenValid && confirmed:
		return decision{name: "redirect_landing", redirect: g.landingPath}

	case class == domain.RouteAuthOnly && state.Present() && !confirmed:
		rc.Cookies.Clear()
		return decision{name: "cleared"}

	case state == domain.TokenMalformed:
		rc.Cookies.Clear()
		return decision{name: "cleared_malformed"}

	default:
		return decision{name: "continue"}
	}
}

func (g *Gate) write(rc *session.RequestContext, env *domain.SessionEnvelope) {
	if err := rc.Cookies.Write(env); err != nil {
		g.logger.Error("failed to write refreshed session", "error", err)
	}
}

// loginRedirect builds the login URL carrying the requested path.
func (g *Gate) loginRedirect(path string) string {
	return g.loginPath + "?" + url.Values{"callbackUrl": {path}}.Encode()
}

// matchesAny reports whether path equals a prefix or lies beneath it.
func matchesAny(path string, prefixes []string) bool {
	for _, p := range prefixes {
		p = strings.TrimRight(p, "/")
		if p == "" {
			continue
		}
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}
