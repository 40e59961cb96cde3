package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
)

// =============================================================================
// Request Logging Middleware Tests
// =============================================================================

func serveLogged(t *testing.T, h http.Handler, req *http.Request) (string, *httptest.ResponseRecorder) {
	t.Helper()
	var buf bytes.Buffer
	mw := NewRequestLoggingMiddleware(slog.New(slog.NewTextHandler(&buf, nil)))
	rec := httptest.NewRecorder()
	mw.Handler(h).ServeHTTP(rec, req)
	return buf.String(), rec
}

func TestRequestLoggingMiddleware_LogsRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.RemoteAddr = "192.168.1.1:12345"
	req.Header.Set("User-Agent", "pbgate-test/1.0")

	out, _ := serveLogged(t, okHandler, req)

	for _, want := range []string{"GET", "/dashboard", "status=200", "192.168.1.1", "pbgate-test/1.0", "request_id="} {
		if !strings.Contains(out, want) {
			t.Errorf("log should contain %q, got: %s", want, out)
		}
	}
}

func TestRequestLoggingMiddleware_ServerErrorIsWarn(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	out, rec := serveLogged(t, h, httptest.NewRequest(http.MethodGet, "/profile", nil))

	if rec.Code != http.StatusBadGateway {
		t.Errorf("status should pass through, got %d", rec.Code)
	}
	if !strings.Contains(out, "level=WARN") || !strings.Contains(out, "status=502") {
		t.Errorf("expected WARN with status 502, got: %s", out)
	}
}

func TestRequestLoggingMiddleware_RedactsSecrets(t *testing.T) {
	tests := []struct {
		name   string
		target string
		secret string
	}{
		{"reset token", "/auth/confirm-password-reset?token=eyJhbGciOi.secret", "eyJhbGciOi.secret"},
		{"verification token", "/auth/verify-email?token=abc123def", "abc123def"},
		{"otp id", "/auth/verify-otp?otpId=otp_98765", "otp_98765"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _ := serveLogged(t, okHandler, httptest.NewRequest(http.MethodGet, tt.target, nil))

			if strings.Contains(out, tt.secret) {
				t.Errorf("log leaked %q: %s", tt.secret, out)
			}
			if !strings.Contains(out, "[REDACTED]") {
				t.Errorf("expected redaction marker, got: %s", out)
			}
		})
	}
}

func TestRequestLoggingMiddleware_KeepsCallbackURL(t *testing.T) {
	out, _ := serveLogged(t, okHandler, httptest.NewRequest(http.MethodGet, "/auth/signin?callbackUrl=%2Fdashboard", nil))

	if !strings.Contains(out, "callbackUrl=%2Fdashboard") {
		t.Errorf("callbackUrl is not sensitive, got: %s", out)
	}
}

func TestRequestLoggingMiddleware_SkipsNoisyPaths(t *testing.T) {
	for _, path := range []string{"/health", "/api/health", "/metrics", "/static/app.css"} {
		t.Run(path, func(t *testing.T) {
			out, rec := serveLogged(t, okHandler, httptest.NewRequest(http.MethodGet, path, nil))

			if out != "" {
				t.Errorf("expected no log for %s, got: %s", path, out)
			}
			if rec.Header().Get(RequestIDHeader) == "" {
				t.Error("request id is set even when logging is skipped")
			}
		})
	}
}

func TestRequestLoggingMiddleware_RequestID(t *testing.T) {
	incoming := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, incoming)

	_, rec := serveLogged(t, okHandler, req)
	if got := rec.Header().Get(RequestIDHeader); got != incoming {
		t.Errorf("expected incoming id %s to be kept, got %s", incoming, got)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "<script>")

	_, rec = serveLogged(t, okHandler, req)
	if _, err := uuid.Parse(rec.Header().Get(RequestIDHeader)); err != nil {
		t.Errorf("expected a generated UUID, got %q", rec.Header().Get(RequestIDHeader))
	}
}

func TestSanitizePath(t *testing.T) {
	tests := []struct {
		path, query, want string
	}{
		{"/x", "", "/x"},
		{"/x", "token=abc&tab=1", "/x?token=[REDACTED]&tab=1"},
		{"/x", "OTPID=1", "/x?OTPID=[REDACTED]"},
		{"/x", "flag", "/x"},
	}

	for _, tt := range tests {
		if got := sanitizePath(tt.path, tt.query); got != tt.want {
			t.Errorf("sanitizePath(%q, %q) = %q, want %q", tt.path, tt.query, got, tt.want)
		}
	}
}
