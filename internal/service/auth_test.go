package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DukeRupert/pbgate/internal/domain"
	"github.com/DukeRupert/pbgate/internal/pocketbase"
	"github.com/DukeRupert/pbgate/internal/session"
)

// =============================================================================
// Mock Backend Implementation
// =============================================================================

// mockBackend implements Backend. Unset funcs fail the call; calls counts
// every method invocation so tests can assert "no network".
type mockBackend struct {
	calls int

	AuthWithPasswordFunc     func(ctx context.Context, identity, password string) (*domain.SessionEnvelope, error)
	AuthWithEmailOTPFunc     func(ctx context.Context, email, otp string) (*domain.SessionEnvelope, error)
	AuthWithOTPIDFunc        func(ctx context.Context, otpID, otp string) (*domain.SessionEnvelope, error)
	AuthRefreshFunc          func(ctx context.Context, token string) (*domain.SessionEnvelope, error)
	CreateRecordFunc         func(ctx context.Context, params pocketbase.CreateRecordParams) (*domain.Record, error)
	UpdateRecordFunc         func(ctx context.Context, token, id string, fields map[string]any) (*domain.Record, error)
	RequestOTPFunc           func(ctx context.Context, email string) (string, error)
	RequestPasswordResetFunc func(ctx context.Context, email string) error
	ConfirmPasswordResetFunc func(ctx context.Context, token, password, passwordConfirm string) error
	RequestVerificationFunc  func(ctx context.Context, email string) error
	ConfirmVerificationFunc  func(ctx context.Context, token string) error
	RequestEmailChangeFunc   func(ctx context.Context, authToken, newEmail string) error
	ConfirmEmailChangeFunc   func(ctx context.Context, token, password string) error
	AuthMethodsFunc          func(ctx context.Context) (*pocketbase.AuthMethods, error)
}

var errNotImplemented = errors.New("not implemented")

func (m *mockBackend) AuthWithPassword(ctx context.Context, identity, password string) (*domain.SessionEnvelope, error) {
	m.calls++
	if m.AuthWithPasswordFunc != nil {
		return m.AuthWithPasswordFunc(ctx, identity, password)
	}
	return nil, errNotImplemented
}

func (m *mockBackend) AuthWithEmailOTP(ctx context.Context, email, otp string) (*domain.SessionEnvelope, error) {
	m.calls++
	if m.AuthWithEmailOTPFunc != nil {
		return m.AuthWithEmailOTPFunc(ctx, email, otp)
	}
	return nil, errNotImplemented
}

func (m *mockBackend) AuthWithOTPID(ctx context.Context, otpID, otp string) (*domain.SessionEnvelope, error) {
	m.calls++
	if m.AuthWithOTPIDFunc != nil {
		return m.AuthWithOTPIDFunc(ctx, otpID, otp)
	}
	return nil, errNotImplemented
}

func (m *mockBackend) AuthRefresh(ctx context.Context, token string) (*domain.SessionEnvelope, error) {
	m.calls++
	if m.AuthRefreshFunc != nil {
		return m.AuthRefreshFunc(ctx, token)
	}
	return nil, errNotImplemented
}

func (m *mockBackend) CreateRecord(ctx context.Context, params pocketbase.CreateRecordParams) (*domain.Record, error) {
	m.calls++
	if m.CreateRecordFunc != nil {
		return m.CreateRecordFunc(ctx, params)
	}
	return nil, errNotImplemented
}

func (m *mockBackend) UpdateRecord(ctx context.Context, token, id string, fields map[string]any) (*domain.Record, error) {
	m.calls++
	if m.UpdateRecordFunc != nil {
		return m.UpdateRecordFunc(ctx, token, id, fields)
	}
	return nil, errNotImplemented
}

func (m *mockBackend) RequestOTP(ctx context.Context, email string) (string, error) {
	m.calls++
	if m.RequestOTPFunc != nil {
		return m.RequestOTPFunc(ctx, email)
	}
	return "", errNotImplemented
}

func (m *mockBackend) RequestPasswordReset(ctx context.Context, email string) error {
	m.calls++
	if m.RequestPasswordResetFunc != nil {
		return m.RequestPasswordResetFunc(ctx, email)
	}
	return errNotImplemented
}

func (m *mockBackend) ConfirmPasswordReset(ctx context.Context, token, password, passwordConfirm string) error {
	m.calls++
	if m.ConfirmPasswordResetFunc != nil {
		return m.ConfirmPasswordResetFunc(ctx, token, password, passwordConfirm)
	}
	return errNotImplemented
}

func (m *mockBackend) RequestVerification(ctx context.Context, email string) error {
	m.calls++
	if m.RequestVerificationFunc != nil {
		return m.RequestVerificationFunc(ctx, email)
	}
	return errNotImplemented
}

func (m *mockBackend) ConfirmVerification(ctx context.Context, token string) error {
	m.calls++
	if m.ConfirmVerificationFunc != nil {
		return m.ConfirmVerificationFunc(ctx, token)
	}
	return errNotImplemented
}

func (m *mockBackend) RequestEmailChange(ctx context.Context, authToken, newEmail string) error {
	m.calls++
	if m.RequestEmailChangeFunc != nil {
		return m.RequestEmailChangeFunc(ctx, authToken, newEmail)
	}
	return errNotImplemented
}

func (m *mockBackend) ConfirmEmailChange(ctx context.Context, token, password string) error {
	m.calls++
	if m.ConfirmEmailChangeFunc != nil {
		return m.ConfirmEmailChangeFunc(ctx, token, password)
	}
	return errNotImplemented
}

func (m *mockBackend) AuthMethods(ctx context.Context) (*pocketbase.AuthMethods, error) {
	m.calls++
	if m.AuthMethodsFunc != nil {
		return m.AuthMethodsFunc(ctx)
	}
	return nil, errNotImplemented
}

// =============================================================================
// Test Helpers
// =============================================================================

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestService(backend Backend) AuthService {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewAuthService(backend, AuthServiceConfig{}, logger)
}

// newRC builds a request context, optionally carrying a session cookie.
func newRC(t *testing.T, env *domain.SessionEnvelope) (*session.RequestContext, *httptest.ResponseRecorder) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	if env != nil {
		seed := httptest.NewRecorder()
		require.NoError(t, session.NewJar(seed, req, false).Write(env))
		for _, c := range seed.Result().Cookies() {
			req.AddCookie(c)
		}
	}
	w := httptest.NewRecorder()
	return session.NewRequestContext(w, req, false, func() time.Time { return testNow }), w
}

func mintToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": exp.Unix()}).SignedString([]byte("k"))
	require.NoError(t, err)
	return tok
}

func envelope(tok string) *domain.SessionEnvelope {
	return &domain.SessionEnvelope{
		Token:  tok,
		Record: domain.Record{ID: "u1", Email: "a@b.com", Verified: true, Extra: map[string]any{"name": "Ada"}},
	}
}

// setCookie returns the last pb_auth Set-Cookie on w, or nil.
func setCookie(w *httptest.ResponseRecorder) *http.Cookie {
	var found *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == session.CookieName {
			found = c
		}
	}
	return found
}

// =============================================================================
// Login
// =============================================================================

func TestLogin_Validation(t *testing.T) {
	tests := []struct {
		name   string
		params domain.LoginParams
	}{
		{"missing email", domain.LoginParams{Password: "secret123"}},
		{"missing password", domain.LoginParams{Email: "a@b.com"}},
		{"blank email", domain.LoginParams{Email: "   ", Password: "secret123"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &mockBackend{}
			rc, w := newRC(t, nil)

			out := newTestService(backend).Login(context.Background(), rc, tt.params)

			assert.False(t, out.IsRedirect())
			assert.False(t, out.State.Success)
			assert.Equal(t, "Email and password are required", out.State.Error)
			assert.Zero(t, backend.calls)
			assert.Nil(t, setCookie(w))
		})
	}
}

func TestLogin_Success(t *testing.T) {
	tests := []struct {
		name     string
		callback string
		want     string
	}{
		{"no callback", "", "/dashboard"},
		{"local callback", "/profile?tab=email", "/profile?tab=email"},
		{"external callback ignored", "https://evil.com", "/dashboard"},
		{"protocol relative ignored", "//evil.com", "/dashboard"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &mockBackend{
				AuthWithPasswordFunc: func(ctx context.Context, identity, password string) (*domain.SessionEnvelope, error) {
					assert.Equal(t, "a@b.com", identity)
					return envelope("tok"), nil
				},
			}
			rc, w := newRC(t, nil)

			out := newTestService(backend).Login(context.Background(), rc, domain.LoginParams{
				Email:       " a@b.com ",
				Password:    "secret123",
				CallbackURL: tt.callback,
			})

			require.True(t, out.IsRedirect())
			assert.Equal(t, tt.want, out.RedirectTo)
			require.NotNil(t, setCookie(w))
			assert.Equal(t, "tok", rc.Cookies.Token())
		})
	}
}

func TestLogin_BackendRejects(t *testing.T) {
	backend := &mockBackend{
		AuthWithPasswordFunc: func(ctx context.Context, identity, password string) (*domain.SessionEnvelope, error) {
			return nil, domain.Backend("pocketbase.call", "Failed to authenticate.")
		},
	}
	rc, w := newRC(t, nil)

	out := newTestService(backend).Login(context.Background(), rc, domain.LoginParams{Email: "a@b.com", Password: "wrong-pass"})

	assert.False(t, out.IsRedirect())
	assert.Equal(t, "Failed to authenticate.", out.State.Error)
	assert.Equal(t, "a@b.com", out.State.Values.Email)
	assert.Nil(t, setCookie(w))
}

func TestLogin_InternalErrorIsGeneric(t *testing.T) {
	backend := &mockBackend{
		AuthWithPasswordFunc: func(ctx context.Context, identity, password string) (*domain.SessionEnvelope, error) {
			return nil, errors.New("dial tcp 10.0.0.1:8090: connection refused")
		},
	}
	rc, _ := newRC(t, nil)

	out := newTestService(backend).Login(context.Background(), rc, domain.LoginParams{Email: "a@b.com", Password: "secret123"})

	assert.Equal(t, "An internal error occurred. Please try again later.", out.State.Error)
}

// =============================================================================
// Signup
// =============================================================================

func TestSignup_Success_NoCookie(t *testing.T) {
	var sent pocketbase.CreateRecordParams
	backend := &mockBackend{
		CreateRecordFunc: func(ctx context.Context, params pocketbase.CreateRecordParams) (*domain.Record, error) {
			sent = params
			return &domain.Record{ID: "u1", Email: params.Email}, nil
		},
	}
	rc, w := newRC(t, nil)

	out := newTestService(backend).Signup(context.Background(), rc, domain.SignupParams{
		Email:           "a@b.com",
		Password:        "longenough1",
		PasswordConfirm: "longenough1",
	})

	assert.False(t, out.IsRedirect())
	assert.True(t, out.State.Success)
	assert.Contains(t, out.State.Message, "check your email")
	assert.Equal(t, 1, backend.calls)
	assert.Equal(t, "a@b.com", sent.Email)
	assert.Nil(t, setCookie(w), "signup must not sign the user in")
}

func TestSignup_Validation(t *testing.T) {
	tests := []struct {
		name    string
		params  domain.SignupParams
		wantErr string
	}{
		{
			name:    "password mismatch",
			params:  domain.SignupParams{Email: "a@b.com", Password: "abcdefgh", PasswordConfirm: "abcdefgx"},
			wantErr: "Passwords do not match",
		},
		{
			name:    "too short",
			params:  domain.SignupParams{Email: "a@b.com", Password: "short", PasswordConfirm: "short"},
			wantErr: "Password must be at least 8 characters long",
		},
		{
			name:    "missing confirm",
			params:  domain.SignupParams{Email: "a@b.com", Password: "longenough1"},
			wantErr: "All fields are required",
		},
		{
			name:    "missing email",
			params:  domain.SignupParams{Password: "longenough1", PasswordConfirm: "longenough1"},
			wantErr: "All fields are required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &mockBackend{}
			rc, _ := newRC(t, nil)

			out := newTestService(backend).Signup(context.Background(), rc, tt.params)

			assert.False(t, out.State.Success)
			assert.Equal(t, tt.wantErr, out.State.Error)
			assert.Equal(t, tt.params.Email, out.State.Values.Email)
			assert.Zero(t, backend.calls)
		})
	}
}

// =============================================================================
// OTP flows
// =============================================================================

func TestOTP_TwoStep(t *testing.T) {
	backend := &mockBackend{
		RequestOTPFunc: func(ctx context.Context, email string) (string, error) {
			return "otp_abc", nil
		},
		AuthWithOTPIDFunc: func(ctx context.Context, otpID, otp string) (*domain.SessionEnvelope, error) {
			assert.Equal(t, "otp_abc", otpID)
			assert.Equal(t, "12345678", otp)
			return envelope("otp-token"), nil
		},
	}
	svc := newTestService(backend)

	rc, _ := newRC(t, nil)
	out := svc.RequestOTP(context.Background(), rc, "a@b.com")
	require.True(t, out.State.Success)
	require.Equal(t, "otp_abc", out.State.Values.OTPID)

	rc, w := newRC(t, nil)
	out = svc.VerifyOTP(context.Background(), rc, domain.VerifyOTPParams{OTPID: out.State.Values.OTPID, OTP: "12345678"})

	assert.True(t, out.State.Success)
	assert.False(t, out.IsRedirect())
	assert.Equal(t, "OTP verified successfully!", out.State.Message)
	require.NotNil(t, setCookie(w))
	assert.Equal(t, "otp-token", rc.Cookies.Token())
}

func TestVerifyOTP_Validation(t *testing.T) {
	tests := []struct {
		name    string
		params  domain.VerifyOTPParams
		wantErr string
	}{
		{"missing otp", domain.VerifyOTPParams{OTPID: "otp_abc"}, "OTP is required"},
		{"missing otpId", domain.VerifyOTPParams{OTP: "12345678"}, "OTP is required"},
		{"six digits", domain.VerifyOTPParams{OTPID: "otp_abc", OTP: "123456"}, "Please enter a 8-digit OTP"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &mockBackend{}
			rc, _ := newRC(t, nil)

			out := newTestService(backend).VerifyOTP(context.Background(), rc, tt.params)

			assert.Equal(t, tt.wantErr, out.State.Error)
			assert.Equal(t, tt.params.OTPID, out.State.Values.OTPID)
			assert.Zero(t, backend.calls)
		})
	}
}

func TestOTPAuth(t *testing.T) {
	backend := &mockBackend{
		AuthWithEmailOTPFunc: func(ctx context.Context, email, otp string) (*domain.SessionEnvelope, error) {
			return envelope("email-otp-token"), nil
		},
	}
	svc := newTestService(backend)

	rc, _ := newRC(t, nil)
	out := svc.OTPAuth(context.Background(), rc, domain.OTPAuthParams{Email: "a@b.com", OTP: "12345678"})
	assert.Equal(t, "Please enter a 6-digit OTP", out.State.Error)
	assert.Zero(t, backend.calls)

	rc, _ = newRC(t, nil)
	out = svc.OTPAuth(context.Background(), rc, domain.OTPAuthParams{Email: "a@b.com", OTP: "123456"})
	require.True(t, out.IsRedirect())
	assert.Equal(t, "/dashboard", out.RedirectTo)
	assert.Equal(t, "email-otp-token", rc.Cookies.Token())
}

func TestRequestOTP_MissingEmail(t *testing.T) {
	backend := &mockBackend{}
	rc, _ := newRC(t, nil)

	out := newTestService(backend).RequestOTP(context.Background(), rc, "")

	assert.Equal(t, "Email is required", out.State.Error)
	assert.Zero(t, backend.calls)
}

// =============================================================================
// Password reset and verification
// =============================================================================

func TestConfirmPasswordReset(t *testing.T) {
	backend := &mockBackend{
		ConfirmPasswordResetFunc: func(ctx context.Context, token, password, passwordConfirm string) error {
			return nil
		},
	}
	svc := newTestService(backend)
	rc, _ := newRC(t, nil)

	out := svc.ConfirmPasswordReset(context.Background(), rc, domain.ConfirmPasswordResetParams{
		Token: "reset-tok", Password: "abcdefgh", PasswordConfirm: "abcdefgx",
	})
	assert.Equal(t, "Passwords do not match", out.State.Error)
	assert.Equal(t, "reset-tok", out.State.Values.Token)
	assert.Zero(t, backend.calls)

	out = svc.ConfirmPasswordReset(context.Background(), rc, domain.ConfirmPasswordResetParams{
		Token: "reset-tok", Password: "longenough1", PasswordConfirm: "longenough1",
	})
	assert.True(t, out.State.Success)
	assert.Equal(t, 1, backend.calls)
}

func TestAckActions(t *testing.T) {
	backend := &mockBackend{
		RequestPasswordResetFunc: func(ctx context.Context, email string) error { return nil },
		RequestVerificationFunc:  func(ctx context.Context, email string) error { return nil },
		ConfirmVerificationFunc: func(ctx context.Context, token string) error {
			return domain.Backend("pocketbase.call", "Invalid or expired verification token.")
		},
	}
	svc := newTestService(backend)
	rc, w := newRC(t, nil)
	ctx := context.Background()

	out := svc.RequestPasswordReset(ctx, rc, "a@b.com")
	assert.Equal(t, "Password reset email sent! Please check your inbox.", out.State.Message)

	out = svc.RequestVerification(ctx, rc, "a@b.com")
	assert.Equal(t, "Verification email sent! Please check your inbox.", out.State.Message)

	out = svc.ConfirmVerification(ctx, rc, "")
	assert.Equal(t, "Verification token is required", out.State.Error)

	out = svc.ConfirmVerification(ctx, rc, "bad")
	assert.Equal(t, "Invalid or expired verification token.", out.State.Error)

	assert.Equal(t, 3, backend.calls)
	assert.Nil(t, setCookie(w))
}

// =============================================================================
// Session lifecycle
// =============================================================================

func TestLogout_Idempotent(t *testing.T) {
	svc := newTestService(&mockBackend{})
	rc, w := newRC(t, envelope("tok"))

	for i := 0; i < 2; i++ {
		out := svc.Logout(context.Background(), rc)
		assert.True(t, out.State.Success)
		assert.Nil(t, rc.Cookies.Read())
		assert.False(t, rc.Cookies.Present())
	}

	c := setCookie(w)
	require.NotNil(t, c)
	assert.Equal(t, -1, c.MaxAge)
}

func TestLogout_WithoutSession(t *testing.T) {
	backend := &mockBackend{}
	rc, _ := newRC(t, nil)

	out := newTestService(backend).Logout(context.Background(), rc)

	assert.True(t, out.State.Success)
	assert.Zero(t, backend.calls, "logout is local only")
}

func TestRefresh_RotatesCookie(t *testing.T) {
	backend := &mockBackend{
		AuthRefreshFunc: func(ctx context.Context, token string) (*domain.SessionEnvelope, error) {
			assert.Equal(t, "old", token)
			return envelope("new"), nil
		},
	}
	rc, _ := newRC(t, envelope("old"))

	out := newTestService(backend).Refresh(context.Background(), rc)

	assert.True(t, out.State.Success)
	assert.Equal(t, "new", rc.Cookies.Token())
}

func TestRefresh_NoToken(t *testing.T) {
	backend := &mockBackend{}
	rc, _ := newRC(t, nil)

	out := newTestService(backend).Refresh(context.Background(), rc)

	assert.False(t, out.State.Success)
	assert.Equal(t, "No authentication token found", out.State.Error)
	assert.Zero(t, backend.calls)
}

func TestRefreshSession_DoesNotWriteCookie(t *testing.T) {
	backend := &mockBackend{
		AuthRefreshFunc: func(ctx context.Context, token string) (*domain.SessionEnvelope, error) {
			return envelope("new"), nil
		},
	}

	env, err := newTestService(backend).RefreshSession(context.Background(), "old")

	require.NoError(t, err)
	assert.Equal(t, "new", env.Token)
}

func TestRequireAuth(t *testing.T) {
	t.Run("unauthenticated redirects without running action", func(t *testing.T) {
		ran := false
		rc, _ := newRC(t, nil)

		out := newTestService(&mockBackend{}).RequireAuth(context.Background(), rc, func() domain.Outcome {
			ran = true
			return domain.Continue(domain.Succeeded("ran"))
		}, "/auth/signin")

		assert.False(t, ran)
		assert.Equal(t, "/auth/signin", out.RedirectTo)
	})

	t.Run("rejected session redirects to default login", func(t *testing.T) {
		backend := &mockBackend{
			AuthRefreshFunc: func(ctx context.Context, token string) (*domain.SessionEnvelope, error) {
				return nil, domain.Backend("pocketbase.call", "The request requires valid record authorization token.")
			},
		}
		rc, _ := newRC(t, envelope("revoked"))

		out := newTestService(backend).RequireAuth(context.Background(), rc, func() domain.Outcome {
			t.Fatal("action must not run")
			return domain.Outcome{}
		}, "")

		assert.Equal(t, "/auth/signin", out.RedirectTo)
	})

	t.Run("confirmed session runs action", func(t *testing.T) {
		backend := &mockBackend{
			AuthRefreshFunc: func(ctx context.Context, token string) (*domain.SessionEnvelope, error) {
				return envelope("rotated"), nil
			},
		}
		rc, _ := newRC(t, envelope("good"))

		out := newTestService(backend).RequireAuth(context.Background(), rc, func() domain.Outcome {
			return domain.Continue(domain.Succeeded("ran"))
		}, "/auth/signin")

		assert.False(t, out.IsRedirect())
		assert.Equal(t, "ran", out.State.Message)
		assert.Equal(t, "rotated", rc.Cookies.Token())
	})
}

func TestCurrentUser(t *testing.T) {
	svc := newTestService(&mockBackend{})

	rc, _ := newRC(t, nil)
	_, err := svc.CurrentUser(rc)
	assert.Equal(t, domain.EUNAUTHORIZED, domain.ErrorCode(err))

	rc, _ = newRC(t, envelope(mintToken(t, testNow.Add(-time.Minute))))
	_, err = svc.CurrentUser(rc)
	assert.Equal(t, domain.EUNAUTHORIZED, domain.ErrorCode(err))

	rc, _ = newRC(t, envelope(mintToken(t, testNow.Add(time.Hour))))
	rec, err := svc.CurrentUser(rc)
	require.NoError(t, err)
	assert.Equal(t, "Ada", rec.DisplayName())
}

// =============================================================================
// Account management
// =============================================================================

func TestUpdateProfile_WritesMergedRecord(t *testing.T) {
	backend := &mockBackend{
		UpdateRecordFunc: func(ctx context.Context, token, id string, fields map[string]any) (*domain.Record, error) {
			assert.Equal(t, "tok", token)
			assert.Equal(t, "u1", id)
			assert.Equal(t, map[string]any{"name": "Grace"}, fields)
			return &domain.Record{ID: "u1", Email: "a@b.com", Extra: map[string]any{"name": "Grace"}}, nil
		},
	}
	rc, _ := newRC(t, envelope("tok"))

	out := newTestService(backend).UpdateProfile(context.Background(), rc, domain.ProfileUpdateParams{Name: " Grace "})

	assert.True(t, out.State.Success)
	env := rc.Cookies.Read()
	require.NotNil(t, env)
	assert.Equal(t, "tok", env.Token, "the token is kept")
	assert.Equal(t, "Grace", env.Record.DisplayName())
}

func TestUpdateProfile_RequiresSession(t *testing.T) {
	backend := &mockBackend{}
	rc, _ := newRC(t, nil)

	out := newTestService(backend).UpdateProfile(context.Background(), rc, domain.ProfileUpdateParams{Name: "Grace"})

	assert.Equal(t, "Not authenticated", out.State.Error)
	assert.Zero(t, backend.calls)
}

func TestRequestEmailChange(t *testing.T) {
	var gotToken string
	backend := &mockBackend{
		RequestEmailChangeFunc: func(ctx context.Context, authToken, newEmail string) error {
			gotToken = authToken
			return nil
		},
	}
	svc := newTestService(backend)
	rc, _ := newRC(t, envelope("tok"))

	out := svc.RequestEmailChange(context.Background(), rc, "A@B.com")
	assert.False(t, out.State.Success)
	assert.Zero(t, backend.calls)

	out = svc.RequestEmailChange(context.Background(), rc, "new@b.com")
	assert.True(t, out.State.Success)
	assert.Equal(t, "tok", gotToken)
}

func TestConfirmEmailChange_ClearsSession(t *testing.T) {
	backend := &mockBackend{
		ConfirmEmailChangeFunc: func(ctx context.Context, token, password string) error { return nil },
	}
	rc, _ := newRC(t, envelope("tok"))

	out := newTestService(backend).ConfirmEmailChange(context.Background(), rc, domain.ConfirmEmailChangeParams{
		Token: "change-tok", Password: "longenough1",
	})

	assert.True(t, out.State.Success)
	assert.Nil(t, rc.Cookies.Read())
}

func TestIsSafeRedirectURL(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"/dashboard", true},
		{"/profile?tab=email", true},
		{"", false},
		{"dashboard", false},
		{"//evil.com", false},
		{"/\\evil.com", false},
		{"https://evil.com", false},
		{"javascript:alert(1)", false},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, IsSafeRedirectURL(tt.url))
		})
	}
}
