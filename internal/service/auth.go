// Package service contains the business logic layer.
//
// Services sit between HTTP handlers and the auth backend. They are
// responsible for:
// - Input validation (before any network call)
// - Calling the backend gateway
// - Writing or clearing the session cookie
// - Translating errors into form states the pages can render
package service

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"github.com/DukeRupert/pbgate/internal/domain"
	"github.com/DukeRupert/pbgate/internal/metrics"
	"github.com/DukeRupert/pbgate/internal/pocketbase"
	"github.com/DukeRupert/pbgate/internal/session"
	"github.com/DukeRupert/pbgate/internal/token"
)

// =============================================================================
// Configuration Constants
// =============================================================================

const (
	// MinPasswordLength matches the backend's default password rule.
	MinPasswordLength = 8

	// EmailOTPLength is the length of a code used with the email+code flow.
	EmailOTPLength = 6

	// BoundOTPLength is the length of a code used with the otpId flow.
	BoundOTPLength = 8

	// DefaultLoginPath is where unauthenticated visitors are sent.
	DefaultLoginPath = "/auth/signin"

	// DefaultLandingPath is where signed-in visitors land.
	DefaultLandingPath = "/dashboard"
)

// =============================================================================
// Interface Definition
// =============================================================================

// Backend is the subset of the auth backend the service depends on.
// *pocketbase.Client satisfies it.
type Backend interface {
	AuthWithPassword(ctx context.Context, identity, password string) (*domain.SessionEnvelope, error)
	AuthWithEmailOTP(ctx context.Context, email, otp string) (*domain.SessionEnvelope, error)
	AuthWithOTPID(ctx context.Context, otpID, otp string) (*domain.SessionEnvelope, error)
	AuthRefresh(ctx context.Context, token string) (*domain.SessionEnvelope, error)
	CreateRecord(ctx context.Context, params pocketbase.CreateRecordParams) (*domain.Record, error)
	UpdateRecord(ctx context.Context, token, id string, fields map[string]any) (*domain.Record, error)
	RequestOTP(ctx context.Context, email string) (string, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ConfirmPasswordReset(ctx context.Context, token, password, passwordConfirm string) error
	RequestVerification(ctx context.Context, email string) error
	ConfirmVerification(ctx context.Context, token string) error
	RequestEmailChange(ctx context.Context, authToken, newEmail string) error
	ConfirmEmailChange(ctx context.Context, token, password string) error
	AuthMethods(ctx context.Context) (*pocketbase.AuthMethods, error)
}

// AuthService defines the auth form actions.
//
// Every action validates first and makes no network call when validation
// fails. Actions never return Go errors: failures become a FormState with
// Success false, and navigation becomes Outcome.Redirect.
type AuthService interface {
	// Login signs in with email and password and writes the session cookie.
	// Redirects to the callback when it is a local path, else the landing page.
	Login(ctx context.Context, rc *session.RequestContext, params domain.LoginParams) domain.Outcome

	// Signup creates an account. It does not sign the user in.
	Signup(ctx context.Context, rc *session.RequestContext, params domain.SignupParams) domain.Outcome

	// RequestOTP emails a one-time code. The returned state carries the
	// otpId that VerifyOTP needs.
	RequestOTP(ctx context.Context, rc *session.RequestContext, email string) domain.Outcome

	// OTPAuth signs in with email and a 6-digit emailed code, then redirects
	// to the landing page.
	OTPAuth(ctx context.Context, rc *session.RequestContext, params domain.OTPAuthParams) domain.Outcome

	// VerifyOTP signs in with an 8-digit code bound to an otpId.
	VerifyOTP(ctx context.Context, rc *session.RequestContext, params domain.VerifyOTPParams) domain.Outcome

	RequestPasswordReset(ctx context.Context, rc *session.RequestContext, email string) domain.Outcome
	ConfirmPasswordReset(ctx context.Context, rc *session.RequestContext, params domain.ConfirmPasswordResetParams) domain.Outcome
	RequestVerification(ctx context.Context, rc *session.RequestContext, email string) domain.Outcome
	ConfirmVerification(ctx context.Context, rc *session.RequestContext, token string) domain.Outcome

	// Refresh rotates the cookie's token via the backend.
	Refresh(ctx context.Context, rc *session.RequestContext) domain.Outcome

	// Logout clears the session cookie. It never calls the backend and is
	// safe to call without a session.
	Logout(ctx context.Context, rc *session.RequestContext) domain.Outcome

	// RequireAuth runs action only when the session is confirmed by the
	// backend; otherwise it returns Redirect(redirectTo).
	RequireAuth(ctx context.Context, rc *session.RequestContext, action func() domain.Outcome, redirectTo string) domain.Outcome

	// CurrentUser returns the record from an unexpired session cookie.
	// Returns domain.EUNAUTHORIZED otherwise.
	CurrentUser(rc *session.RequestContext) (*domain.Record, error)

	// IsAuthenticated confirms the session with a refresh, rotating the
	// cookie on success.
	IsAuthenticated(ctx context.Context, rc *session.RequestContext) bool

	// RefreshSession asks the backend to refresh token without touching any
	// cookie. The request gate decides what to write.
	RefreshSession(ctx context.Context, token string) (*domain.SessionEnvelope, error)

	// ListAuthMethods reports the sign-in methods the backend allows.
	ListAuthMethods(ctx context.Context) (*pocketbase.AuthMethods, error)

	// RequestEmailChange emails a confirmation link to the new address.
	RequestEmailChange(ctx context.Context, rc *session.RequestContext, newEmail string) domain.Outcome

	// ConfirmEmailChange applies the change and clears the session, since
	// the backend invalidates the old token.
	ConfirmEmailChange(ctx context.Context, rc *session.RequestContext, params domain.ConfirmEmailChangeParams) domain.Outcome

	// UpdateProfile saves profile fields and rewrites the cookie with the
	// updated record.
	UpdateProfile(ctx context.Context, rc *session.RequestContext, params domain.ProfileUpdateParams) domain.Outcome
}

// AuthServiceConfig holds navigation targets for redirects.
type AuthServiceConfig struct {
	LoginPath   string
	LandingPath string
}

// =============================================================================
// Implementation
// =============================================================================

// authService is the concrete implementation of AuthService.
type authService struct {
	backend     Backend
	loginPath   string
	landingPath string
	logger      *slog.Logger
}

// NewAuthService creates a new AuthService instance.
//
// Dependencies:
// - backend: gateway to the auth REST API
// - cfg: login and landing paths (defaults applied when empty)
// - logger: structured logger for operation logging
func NewAuthService(backend Backend, cfg AuthServiceConfig, logger *slog.Logger) AuthService {
	if cfg.LoginPath == "" {
		cfg.LoginPath = DefaultLoginPath
	}
	if cfg.LandingPath == "" {
		cfg.LandingPath = DefaultLandingPath
	}
	return &authService{
		backend:     backend,
		loginPath:   cfg.LoginPath,
		landingPath: cfg.LandingPath,
		logger:      logger,
	}
}

// =============================================================================
// Password sign-in and registration
// =============================================================================

func (s *authService) Login(ctx context.Context, rc *session.RequestContext, params domain.LoginParams) domain.Outcome {
	const action = "login"

	email := strings.TrimSpace(params.Email)
	values := domain.FormValues{Email: email}

	if email == "" || params.Password == "" {
		return s.invalid(action, "Email and password are required", values)
	}

	env, err := s.backend.AuthWithPassword(ctx, email, params.Password)
	if err != nil {
		return s.fail(action, err, values)
	}
	if out, ok := s.writeSession(action, rc, env, values); !ok {
		return out
	}

	s.logger.Info("user signed in", "user_id", env.Record.ID, "method", "password")
	metrics.AuthAction(action, "success")

	target := s.landingPath
	if IsSafeRedirectURL(params.CallbackURL) {
		target = params.CallbackURL
	}
	return domain.Redirect(target)
}

func (s *authService) Signup(ctx context.Context, rc *session.RequestContext, params domain.SignupParams) domain.Outcome {
	const action = "signup"

	email := strings.TrimSpace(params.Email)
	name := strings.TrimSpace(params.Name)
	values := domain.FormValues{Email: email, Name: name}

	if email == "" || params.Password == "" || params.PasswordConfirm == "" {
		return s.invalid(action, "All fields are required", values)
	}
	if msg := validateNewPassword(params.Password, params.PasswordConfirm); msg != "" {
		return s.invalid(action, msg, values)
	}

	rec, err := s.backend.CreateRecord(ctx, pocketbase.CreateRecordParams{
		Email:           email,
		Name:            name,
		Password:        params.Password,
		PasswordConfirm: params.PasswordConfirm,
	})
	if err != nil {
		return s.fail(action, err, values)
	}

	s.logger.Info("user registered", "user_id", rec.ID)
	metrics.AuthAction(action, "success")
	return domain.Continue(domain.Succeeded("Account created successfully! Please check your email for verification."))
}

// =============================================================================
// One-time passwords
// =============================================================================

func (s *authService) RequestOTP(ctx context.Context, rc *session.RequestContext, email string) domain.Outcome {
	const action = "request_otp"

	email = strings.TrimSpace(email)
	values := domain.FormValues{Email: email}
	if email == "" {
		return s.invalid(action, "Email is required", values)
	}

	otpID, err := s.backend.RequestOTP(ctx, email)
	if err != nil {
		return s.fail(action, err, values)
	}
	if otpID == "" {
		return s.fail(action, domain.Backend("service.request_otp", "Failed to send OTP"), values)
	}

	metrics.AuthAction(action, "success")
	state := domain.Succeeded("OTP sent to your email! Please check your inbox.")
	state.Values = domain.FormValues{Email: email, OTPID: otpID}
	return domain.Continue(state)
}

func (s *authService) OTPAuth(ctx context.Context, rc *session.RequestContext, params domain.OTPAuthParams) domain.Outcome {
	const action = "otp_auth"

	email := strings.TrimSpace(params.Email)
	otp := strings.TrimSpace(params.OTP)
	values := domain.FormValues{Email: email}

	if email == "" || otp == "" {
		return s.invalid(action, "Email and OTP are required", values)
	}
	if len(otp) != EmailOTPLength {
		return s.invalid(action, "Please enter a 6-digit OTP", values)
	}

	env, err := s.backend.AuthWithEmailOTP(ctx, email, otp)
	if err != nil {
		return s.fail(action, err, values)
	}
	if out, ok := s.writeSession(action, rc, env, values); !ok {
		return out
	}

	s.logger.Info("user signed in", "user_id", env.Record.ID, "method", "email_otp")
	metrics.AuthAction(action, "success")
	return domain.Redirect(s.landingPath)
}

func (s *authService) VerifyOTP(ctx context.Context, rc *session.RequestContext, params domain.VerifyOTPParams) domain.Outcome {
	const action = "verify_otp"

	otpID := strings.TrimSpace(params.OTPID)
	otp := strings.TrimSpace(params.OTP)
	values := domain.FormValues{OTPID: otpID}

	if otp == "" || otpID == "" {
		return s.invalid(action, "OTP is required", values)
	}
	if len(otp) != BoundOTPLength {
		return s.invalid(action, "Please enter a 8-digit OTP", values)
	}

	env, err := s.backend.AuthWithOTPID(ctx, otpID, otp)
	if err != nil {
		return s.fail(action, err, values)
	}
	if out, ok := s.writeSession(action, rc, env, values); !ok {
		return out
	}

	s.logger.Info("user signed in", "user_id", env.Record.ID, "method", "otp")
	metrics.AuthAction(action, "success")
	return domain.Continue(domain.Succeeded("OTP verified successfully!"))
}

// =============================================================================
// Password reset and email verification
// =============================================================================

func (s *authService) RequestPasswordReset(ctx context.Context, rc *session.RequestContext, email string) domain.Outcome {
	const action = "request_password_reset"

	email = strings.TrimSpace(email)
	values := domain.FormValues{Email: email}
	if email == "" {
		return s.invalid(action, "Email is required", values)
	}

	if err := s.backend.RequestPasswordReset(ctx, email); err != nil {
		return s.fail(action, err, values)
	}

	metrics.AuthAction(action, "success")
	return domain.Continue(domain.Succeeded("Password reset email sent! Please check your inbox."))
}

func (s *authService) ConfirmPasswordReset(ctx context.Context, rc *session.RequestContext, params domain.ConfirmPasswordResetParams) domain.Outcome {
	const action = "confirm_password_reset"

	values := domain.FormValues{Token: params.Token}
	if params.Token == "" || params.Password == "" || params.PasswordConfirm == "" {
		return s.invalid(action, "All fields are required", values)
	}
	if msg := validateNewPassword(params.Password, params.PasswordConfirm); msg != "" {
		return s.invalid(action, msg, values)
	}

	if err := s.backend.ConfirmPasswordReset(ctx, params.Token, params.Password, params.PasswordConfirm); err != nil {
		return s.fail(action, err, values)
	}

	metrics.AuthAction(action, "success")
	return domain.Continue(domain.Succeeded("Password reset successfully! You can now sign in with your new password."))
}

func (s *authService) RequestVerification(ctx context.Context, rc *session.RequestContext, email string) domain.Outcome {
	const action = "request_verification"

	email = strings.TrimSpace(email)
	values := domain.FormValues{Email: email}
	if email == "" {
		return s.invalid(action, "Email is required", values)
	}

	if err := s.backend.RequestVerification(ctx, email); err != nil {
		return s.fail(action, err, values)
	}

	metrics.AuthAction(action, "success")
	return domain.Continue(domain.Succeeded("Verification email sent! Please check your inbox."))
}

func (s *authService) ConfirmVerification(ctx context.Context, rc *session.RequestContext, tok string) domain.Outcome {
	const action = "confirm_verification"

	values := domain.FormValues{Token: tok}
	if tok == "" {
		return s.invalid(action, "Verification token is required", values)
	}

	if err := s.backend.ConfirmVerification(ctx, tok); err != nil {
		return s.fail(action, err, values)
	}

	metrics.AuthAction(action, "success")
	return domain.Continue(domain.Succeeded("Email verified successfully! You can now sign in."))
}

// =============================================================================
// Session lifecycle
// =============================================================================

func (s *authService) Refresh(ctx context.Context, rc *session.RequestContext) domain.Outcome {
	const action = "refresh"

	env, err := s.RefreshSession(ctx, rc.Cookies.Token())
	if err != nil {
		return s.fail(action, err, domain.FormValues{})
	}
	if out, ok := s.writeSession(action, rc, env, domain.FormValues{}); !ok {
		return out
	}

	metrics.AuthAction(action, "success")
	return domain.Continue(domain.Succeeded("Session refreshed"))
}

func (s *authService) Logout(ctx context.Context, rc *session.RequestContext) domain.Outcome {
	rc.Cookies.Clear()
	s.logger.Debug("user signed out")
	metrics.AuthAction("logout", "success")
	return domain.Continue(domain.Succeeded("You have been signed out."))
}

func (s *authService) RequireAuth(ctx context.Context, rc *session.RequestContext, action func() domain.Outcome, redirectTo string) domain.Outcome {
	if redirectTo == "" {
		redirectTo = s.loginPath
	}
	if !s.IsAuthenticated(ctx, rc) {
		return domain.Redirect(redirectTo)
	}
	return action()
}

func (s *authService) CurrentUser(rc *session.RequestContext) (*domain.Record, error) {
	const op = "AuthService.CurrentUser"

	env := rc.Cookies.Read()
	if env == nil {
		return nil, domain.Unauthorized(op, "Not authenticated")
	}
	switch token.Inspect(env.Token, rc.Now()).State {
	case domain.TokenValid, domain.TokenExpiringSoon:
		rec := env.Record
		return &rec, nil
	default:
		return nil, domain.Unauthorized(op, "Not authenticated")
	}
}

func (s *authService) IsAuthenticated(ctx context.Context, rc *session.RequestContext) bool {
	if rc.Cookies.Token() == "" {
		return false
	}
	return s.Refresh(ctx, rc).State.Success
}

func (s *authService) RefreshSession(ctx context.Context, tok string) (*domain.SessionEnvelope, error) {
	const op = "AuthService.RefreshSession"
	if tok == "" {
		return nil, domain.TokenError(op, "No authentication token found")
	}
	return s.backend.AuthRefresh(ctx, tok)
}

func (s *authService) ListAuthMethods(ctx context.Context) (*pocketbase.AuthMethods, error) {
	methods, err := s.backend.AuthMethods(ctx)
	if err != nil {
		s.logger.Warn("failed to list auth methods", "error", err)
		return nil, err
	}
	return methods, nil
}

// =============================================================================
// Account management
// =============================================================================

func (s *authService) RequestEmailChange(ctx context.Context, rc *session.RequestContext, newEmail string) domain.Outcome {
	const action = "request_email_change"

	newEmail = strings.TrimSpace(newEmail)
	values := domain.FormValues{Email: newEmail}

	env := rc.Cookies.Read()
	if env == nil {
		return s.invalid(action, "Authentication required", values)
	}
	if newEmail == "" {
		return s.invalid(action, "Email is required", values)
	}
	if strings.EqualFold(newEmail, env.Record.Email) {
		return s.invalid(action, "New email must be different from the current one", values)
	}

	if err := s.backend.RequestEmailChange(ctx, env.Token, newEmail); err != nil {
		return s.fail(action, err, values)
	}

	metrics.AuthAction(action, "success")
	return domain.Continue(domain.Succeeded("Confirmation email sent to " + newEmail + ". Follow the link to finish the change."))
}

func (s *authService) ConfirmEmailChange(ctx context.Context, rc *session.RequestContext, params domain.ConfirmEmailChangeParams) domain.Outcome {
	const action = "confirm_email_change"

	values := domain.FormValues{Token: params.Token}
	if params.Token == "" || params.Password == "" {
		return s.invalid(action, "All fields are required", values)
	}

	if err := s.backend.ConfirmEmailChange(ctx, params.Token, params.Password); err != nil {
		return s.fail(action, err, values)
	}

	rc.Cookies.Clear()
	metrics.AuthAction(action, "success")
	return domain.Continue(domain.Succeeded("Email changed successfully! Please sign in with your new email."))
}

func (s *authService) UpdateProfile(ctx context.Context, rc *session.RequestContext, params domain.ProfileUpdateParams) domain.Outcome {
	const action = "update_profile"

	name := strings.TrimSpace(params.Name)
	values := domain.FormValues{Name: name}

	env := rc.Cookies.Read()
	if env == nil {
		return s.invalid(action, "Not authenticated", values)
	}
	if name == "" {
		return s.invalid(action, "Name is required", values)
	}

	rec, err := s.backend.UpdateRecord(ctx, env.Token, env.Record.ID, map[string]any{"name": name})
	if err != nil {
		return s.fail(action, err, values)
	}

	updated := &domain.SessionEnvelope{Token: env.Token, Record: *rec}
	if out, ok := s.writeSession(action, rc, updated, values); !ok {
		return out
	}

	s.logger.Info("profile updated", "user_id", rec.ID)
	metrics.AuthAction(action, "success")
	state := domain.Succeeded("Profile updated.")
	state.Values = values
	return domain.Continue(state)
}

// =============================================================================
// Helper Functions
// =============================================================================

// invalid short-circuits on a validation failure.
func (s *authService) invalid(action, message string, values domain.FormValues) domain.Outcome {
	metrics.AuthAction(action, "invalid")
	return domain.Continue(domain.Failure(message, values))
}

// fail converts an error into a failed form state.
// Backend messages are shown as-is; internal errors get a generic message.
func (s *authService) fail(action string, err error, values domain.FormValues) domain.Outcome {
	metrics.AuthAction(action, "failed")

	switch domain.ErrorCode(err) {
	case domain.EINTERNAL:
		s.logger.Error("auth action failed", "action", action, "error", err)
	default:
		s.logger.Warn("auth action rejected", "action", action, "error", err)
	}
	return domain.Continue(domain.Failure(domain.ErrorMessage(err), values))
}

// writeSession persists env in the cookie. The bool is false when the
// write failed and the returned outcome should be used instead.
func (s *authService) writeSession(action string, rc *session.RequestContext, env *domain.SessionEnvelope, values domain.FormValues) (domain.Outcome, bool) {
	if err := rc.Cookies.Write(env); err != nil {
		return s.fail(action, err, values), false
	}
	return domain.Outcome{}, true
}

// validateNewPassword checks confirmation and length, returning a
// user-facing message or "".
func validateNewPassword(password, confirm string) string {
	if password != confirm {
		return "Passwords do not match"
	}
	if len(password) < MinPasswordLength {
		return "Password must be at least 8 characters long"
	}
	return ""
}

// IsSafeRedirectURL checks if a URL is safe to redirect to.
//
// This prevents open redirect vulnerabilities by ensuring:
// - URL is relative (starts with /)
// - URL is not a protocol-relative URL (not // or /\)
// - URL does not redirect to external domain
//
// Examples:
// - "/dashboard"              -> true (relative URL)
// - "/profile?tab=email"      -> true (relative URL with query)
// - "//evil.com"              -> false (protocol-relative, could be external)
// - "https://evil.com"        -> false (absolute URL to external domain)
// - "javascript:alert(1)"     -> false (javascript URL)
func IsSafeRedirectURL(rawURL string) bool {
	if !strings.HasPrefix(rawURL, "/") {
		return false
	}
	if strings.HasPrefix(rawURL, "//") || strings.HasPrefix(rawURL, "/\\") {
		return false
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	if parsed.Scheme != "" || parsed.Host != "" {
		return false
	}
	return true
}
