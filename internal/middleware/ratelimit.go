package middleware

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/DukeRupert/pbgate/internal/domain"
	"github.com/DukeRupert/pbgate/internal/metrics"
	"github.com/DukeRupert/pbgate/internal/templ/shared"
)

// maxLimitedFormSize caps the form body read to derive rate limit keys.
const maxLimitedFormSize = 64 << 10

// =============================================================================
// Attempt Budgets
// =============================================================================

// RateLimiter hands out a fixed number of attempts per key per window.
// A window opens on the first attempt for a key and closes window later.
type RateLimiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	budgets map[string]*budget

	stop     chan struct{}
	stopOnce sync.Once
}

type budget struct {
	used   int
	opened time.Time
}

// NewRateLimiter starts a limiter and its sweeper. Call Stop to end the
// sweeper once the limiter is no longer used.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		limit:   limit,
		window:  window,
		now:     time.Now,
		budgets: make(map[string]*budget),
		stop:    make(chan struct{}),
	}
	go rl.sweepEvery(window)
	return rl
}

// Allow spends one attempt from every non-empty key. If any key is already
// exhausted nothing is spent and Allow reports false.
func (rl *RateLimiter) Allow(keys ...string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for _, key := range keys {
		if b := rl.current(key, now); b != nil && b.used >= rl.limit {
			return false
		}
	}
	for _, key := range keys {
		if key == "" {
			continue
		}
		if b := rl.current(key, now); b != nil {
			b.used++
			continue
		}
		rl.budgets[key] = &budget{used: 1, opened: now}
	}
	return true
}

// Reset forgets the attempts recorded against keys.
func (rl *RateLimiter) Reset(keys ...string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for _, key := range keys {
		delete(rl.budgets, key)
	}
}

// RetryAfter is how long until every exhausted key among keys has a fresh
// window. It is zero when none is exhausted.
func (rl *RateLimiter) RetryAfter(keys ...string) time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	var wait time.Duration
	for _, key := range keys {
		b := rl.current(key, now)
		if b == nil || b.used < rl.limit {
			continue
		}
		if left := b.opened.Add(rl.window).Sub(now); left > wait {
			wait = left
		}
	}
	return wait
}

// Stop ends the sweeper. Safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

// current returns the live budget for key, or nil. Callers hold mu.
func (rl *RateLimiter) current(key string, now time.Time) *budget {
	b, ok := rl.budgets[key]
	if !ok {
		return nil
	}
	if now.Sub(b.opened) >= rl.window {
		delete(rl.budgets, key)
		return nil
	}
	return b
}

func (rl *RateLimiter) sweepEvery(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.sweep()
		}
	}
}

// sweep drops budgets whose window has closed.
func (rl *RateLimiter) sweep() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for key := range rl.budgets {
		rl.current(key, now)
	}
}

// =============================================================================
// Request Keys
// =============================================================================

// KeyFunc names the budgets a request draws from.
type KeyFunc func(r *http.Request) []string

// ByClientIP keys a request on its client address only.
func ByClientIP(r *http.Request) []string {
	return []string{"ip:" + getClientIP(r)}
}

// ByClientIPAndFields keys a request on its client address and on each
// submitted form field that is present, lowercased. An email key spans
// every address trying that account; an otpId key spans every attempt at
// one issued code.
func ByClientIPAndFields(fields ...string) KeyFunc {
	return func(r *http.Request) []string {
		keys := ByClientIP(r)
		for _, field := range fields {
			if v := strings.ToLower(strings.TrimSpace(r.PostForm.Get(field))); v != "" {
				keys = append(keys, field+":"+v)
			}
		}
		return keys
	}
}

// =============================================================================
// Rate Limit Middleware
// =============================================================================

// RateLimitMiddleware rejects requests once any of their budgets is spent.
type RateLimitMiddleware struct {
	limiter *RateLimiter
	keys    KeyFunc
	action  string // metric and log label
	logger  *slog.Logger
}

// NewRateLimitMiddleware creates a rate limit middleware for one auth action.
func NewRateLimitMiddleware(limiter *RateLimiter, keys KeyFunc, action string, logger *slog.Logger) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		limiter: limiter,
		keys:    keys,
		action:  action,
		logger:  logger,
	}
}

// Limit returns middleware that rate limits requests.
//
// The form is parsed here so keys can use submitted fields; the handler
// reads the same parsed values.
func (m *RateLimitMiddleware) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil && r.PostForm == nil {
			r.Body = http.MaxBytesReader(w, r.Body, maxLimitedFormSize)
			_ = r.ParseForm()
		}

		keys := m.keys(r)
		if m.limiter.Allow(keys...) {
			next.ServeHTTP(w, r)
			return
		}

		metrics.AuthAction(m.action, "rate_limited")
		m.logger.Warn("rate limit exceeded",
			"action", m.action,
			"ip", getClientIP(r),
			"path", r.URL.Path,
		)

		wait := m.limiter.RetryAfter(keys...)
		retryAfter := int(wait.Round(time.Second).Seconds())
		if retryAfter < 1 {
			retryAfter = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))

		if isAPIRequest(r) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"error":   domain.ERATELIMIT,
				"message": domain.RateLimit("middleware.rate_limit").Message,
			})
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusTooManyRequests)
		page := shared.Layout(shared.LayoutData{Title: "Too many attempts"},
			shared.Card("Too many attempts",
				shared.Paragraph(waitMessage(wait)),
				shared.Link("/", "Back to home"),
			),
		)
		if err := page.Render(r.Context(), w); err != nil {
			m.logger.Error("failed to render rate limit page", "error", err)
		}
	})
}

func waitMessage(wait time.Duration) string {
	minutes := int((wait + time.Minute - 1) / time.Minute)
	if minutes <= 1 {
		return "Please wait a minute and try again."
	}
	return fmt.Sprintf("Please wait %d minutes and try again.", minutes)
}

// =============================================================================
// Auth Rate Limiter
// =============================================================================

// AuthRateLimiter holds one budget set per family of auth forms.
type AuthRateLimiter struct {
	login         *RateLimiter
	register      *RateLimiter
	passwordReset *RateLimiter
	otp           *RateLimiter
	logger        *slog.Logger
}

// Keys each family draws from, besides the client address.
var (
	emailKeys = ByClientIPAndFields("email")
	otpKeys   = ByClientIPAndFields("email", "otpId")
)

// NewAuthRateLimiter creates the auth budgets:
//   - sign-in and email change confirmation: 5 per 15 minutes per address and per email
//   - sign-up: 3 per hour per address
//   - password reset and verification emails: 3 per hour per address and per email
//   - OTP requests and code entry: 5 per 15 minutes per address, per email and per otpId
func NewAuthRateLimiter(logger *slog.Logger) *AuthRateLimiter {
	return &AuthRateLimiter{
		login:         NewRateLimiter(5, 15*time.Minute),
		register:      NewRateLimiter(3, time.Hour),
		passwordReset: NewRateLimiter(3, time.Hour),
		otp:           NewRateLimiter(5, 15*time.Minute),
		logger:        logger,
	}
}

// LimitLogin limits password sign-in attempts.
func (a *AuthRateLimiter) LimitLogin(next http.Handler) http.Handler {
	return NewRateLimitMiddleware(a.login, emailKeys, "login", a.logger).Limit(next)
}

// LimitRegister limits sign-ups.
func (a *AuthRateLimiter) LimitRegister(next http.Handler) http.Handler {
	return NewRateLimitMiddleware(a.register, ByClientIP, "signup", a.logger).Limit(next)
}

// LimitPasswordReset limits requests that make the backend send email.
func (a *AuthRateLimiter) LimitPasswordReset(next http.Handler) http.Handler {
	return NewRateLimitMiddleware(a.passwordReset, emailKeys, "email_request", a.logger).Limit(next)
}

// LimitOTP limits OTP requests and code entry.
func (a *AuthRateLimiter) LimitOTP(next http.Handler) http.Handler {
	return NewRateLimitMiddleware(a.otp, otpKeys, "otp", a.logger).Limit(next)
}

// ResetLogin forgets the sign-in attempts of r's address and email, and the
// code attempts of its otpId, after a successful sign-in.
func (a *AuthRateLimiter) ResetLogin(r *http.Request) {
	a.login.Reset(emailKeys(r)...)
	if id := strings.ToLower(strings.TrimSpace(r.PostForm.Get("otpId"))); id != "" {
		a.otp.Reset("otpId:" + id)
	}
}

// Stop ends every limiter's sweeper.
func (a *AuthRateLimiter) Stop() {
	for _, rl := range []*RateLimiter{a.login, a.register, a.passwordReset, a.otp} {
		rl.Stop()
	}
}

// =============================================================================
// Helpers
// =============================================================================

// getClientIP returns the first well-formed address among X-Forwarded-For's
// first hop, X-Real-IP and the connection's remote address.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := net.ParseIP(strings.TrimSpace(first)); ip != nil {
			return ip.String()
		}
	}
	if ip := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-IP"))); ip != nil {
		return ip.String()
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
