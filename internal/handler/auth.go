// Package handler contains the HTTP handlers for pbgate.
//
// This file implements the authentication pages: password and one-time code
// sign-in, registration, password reset, email verification and email
// change confirmation. Every form posts to the same path it is shown on.
package handler

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/DukeRupert/pbgate/internal/auth"
	"github.com/DukeRupert/pbgate/internal/domain"
	"github.com/DukeRupert/pbgate/internal/service"
	"github.com/DukeRupert/pbgate/internal/session"
	authpages "github.com/DukeRupert/pbgate/internal/templ/pages/auth"
	"github.com/DukeRupert/pbgate/internal/templ/shared"
)

// =============================================================================
// Handler Configuration
// =============================================================================

// RateLimits wraps the abuse-prone POST routes.
// middleware.AuthRateLimiter satisfies it.
type RateLimits interface {
	LimitLogin(next http.Handler) http.Handler
	LimitRegister(next http.Handler) http.Handler
	LimitPasswordReset(next http.Handler) http.Handler
	LimitOTP(next http.Handler) http.Handler
	// ResetLogin forgets failed attempts after a successful sign-in.
	ResetLogin(r *http.Request)
}

type noLimits struct{}

func (noLimits) LimitLogin(next http.Handler) http.Handler         { return next }
func (noLimits) LimitRegister(next http.Handler) http.Handler      { return next }
func (noLimits) LimitPasswordReset(next http.Handler) http.Handler { return next }
func (noLimits) LimitOTP(next http.Handler) http.Handler           { return next }
func (noLimits) ResetLogin(r *http.Request)                        {}

// AuthHandler handles the /auth/* pages.
//
// Dependencies:
// - auth: the auth action set; every action reads and writes the session cookie
// - limits: rate limits for POST routes (nil disables them)
// - logger: structured logging for request handling
// - isSecure: Secure flag for cookies when the gate did not run
type AuthHandler struct {
	auth     service.AuthService
	limits   RateLimits
	logger   *slog.Logger
	isSecure bool
}

// NewAuthHandler creates a new AuthHandler.
//
// Example usage in main.go:
//
//	authHandler := handler.NewAuthHandler(authService, authLimiter, logger, cfg.IsSecure())
//	authHandler.RegisterRoutes(mux)
func NewAuthHandler(authService service.AuthService, limits RateLimits, logger *slog.Logger, isSecure bool) *AuthHandler {
	if limits == nil {
		limits = noLimits{}
	}
	return &AuthHandler{
		auth:     authService,
		limits:   limits,
		logger:   logger,
		isSecure: isSecure,
	}
}

// =============================================================================
// Route Registration
// =============================================================================

// RegisterRoutes registers all auth routes on the provided ServeMux.
//
// Routes registered:
// - GET  /auth/signin                  -> ShowSignin
// - POST /auth/signin                  -> Signin (login limit)
// - GET  /auth/signup                  -> ShowSignup
// - POST /auth/signup                  -> Signup (register limit)
// - GET  /auth/otp-login               -> ShowOTPLogin
// - POST /auth/otp-login               -> RequestOTP (OTP limit)
// - POST /auth/otp-login/code          -> OTPCodeLogin (OTP limit)
// - GET  /auth/verify-otp              -> ShowVerifyOTP
// - POST /auth/verify-otp              -> VerifyOTP (OTP limit)
// - GET  /auth/forgot-password         -> ShowForgotPassword
// - POST /auth/forgot-password         -> ForgotPassword (reset limit)
// - GET  /auth/confirm-password-reset  -> ShowConfirmPasswordReset
// - POST /auth/confirm-password-reset  -> ConfirmPasswordReset (reset limit)
// - GET  /auth/verify-email            -> VerifyEmail
// - POST /auth/verify-email            -> VerifyEmail
// - POST /auth/request-verification    -> RequestVerification (reset limit)
// - GET  /auth/confirm-email-change    -> ShowConfirmEmailChange
// - POST /auth/confirm-email-change    -> ConfirmEmailChange (login limit)
// - POST /auth/logout                  -> Logout
func (h *AuthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /auth/signin", h.ShowSignin)
	mux.Handle("POST /auth/signin", h.limits.LimitLogin(http.HandlerFunc(h.Signin)))
	mux.HandleFunc("GET /auth/signup", h.ShowSignup)
	mux.Handle("POST /auth/signup", h.limits.LimitRegister(http.HandlerFunc(h.Signup)))

	mux.HandleFunc("GET /auth/otp-login", h.ShowOTPLogin)
	mux.Handle("POST /auth/otp-login", h.limits.LimitOTP(http.HandlerFunc(h.RequestOTP)))
	mux.Handle("POST /auth/otp-login/code", h.limits.LimitOTP(http.HandlerFunc(h.OTPCodeLogin)))
	mux.HandleFunc("GET /auth/verify-otp", h.ShowVerifyOTP)
	mux.Handle("POST /auth/verify-otp", h.limits.LimitOTP(http.HandlerFunc(h.VerifyOTP)))

	mux.HandleFunc("GET /auth/forgot-password", h.ShowForgotPassword)
	mux.Handle("POST /auth/forgot-password", h.limits.LimitPasswordReset(http.HandlerFunc(h.ForgotPassword)))
	mux.HandleFunc("GET /auth/confirm-password-reset", h.ShowConfirmPasswordReset)
	mux.Handle("POST /auth/confirm-password-reset", h.limits.LimitPasswordReset(http.HandlerFunc(h.ConfirmPasswordReset)))

	mux.HandleFunc("GET /auth/verify-email", h.VerifyEmail)
	mux.HandleFunc("POST /auth/verify-email", h.VerifyEmail)
	mux.Handle("POST /auth/request-verification", h.limits.LimitPasswordReset(http.HandlerFunc(h.RequestVerification)))

	mux.HandleFunc("GET /auth/confirm-email-change", h.ShowConfirmEmailChange)
	mux.Handle("POST /auth/confirm-email-change", h.limits.LimitLogin(http.HandlerFunc(h.ConfirmEmailChange)))

	mux.HandleFunc("POST /auth/logout", h.Logout)
}

// =============================================================================
// GET/POST /auth/signin - Password Sign-in
// =============================================================================

// signinNotices lists the query flags set by other flows and the flash each
// shows on the sign-in page. The first flag present wins.
var signinNotices = []struct {
	flag    string
	message string
}{
	{"email-changed", "Email changed successfully! Please sign in with your new email."},
	{"reset", "Password reset successfully! Please sign in with your new password."},
	{"verified", "Email verified successfully! You can now sign in."},
	{"logout", "You have been signed out."},
}

// ShowSignin renders the sign-in form.
//
// Query Parameters:
// - callbackUrl (optional): local path to return to after signing in
// - logout, reset, email-changed, verified (optional): show a notice
func (h *AuthHandler) ShowSignin(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var flash *shared.Flash
	for _, n := range signinNotices {
		if q.Get(n.flag) == "1" {
			flash = &shared.Flash{Type: shared.FlashSuccess, Message: n.message}
			break
		}
	}

	h.renderSignin(w, r, authpages.FormData{}, flash, q.Get("callbackUrl"))
}

// Signin processes the sign-in form.
//
// Form Fields:
// - email, password (required)
// - callbackUrl (optional): followed only when it is a local path
//
// On success the session cookie is written and the user is redirected.
// On failure the form is re-rendered with the backend's message.
func (h *AuthHandler) Signin(w http.ResponseWriter, r *http.Request) {
	if !h.parseForm(w, r) {
		return
	}

	callbackURL := r.FormValue("callbackUrl")
	if callbackURL == "" {
		callbackURL = r.URL.Query().Get("callbackUrl")
	}

	out := h.auth.Login(r.Context(), h.requestContext(w, r), domain.LoginParams{
		Email:       normalizeEmail(r.FormValue("email")),
		Password:    r.FormValue("password"),
		CallbackURL: callbackURL,
	})
	if out.IsRedirect() {
		h.limits.ResetLogin(r)
		http.Redirect(w, r, out.RedirectTo, http.StatusSeeOther)
		return
	}

	h.renderSignin(w, r, authpages.FormFrom(out.State.Values), shared.FlashFromState(out.State), callbackURL)
}

func (h *AuthHandler) renderSignin(w http.ResponseWriter, r *http.Request, form authpages.FormData, flash *shared.Flash, callbackURL string) {
	if !service.IsSafeRedirectURL(callbackURL) {
		callbackURL = ""
	}

	otpEnabled := false
	if methods, err := h.auth.ListAuthMethods(r.Context()); err == nil && methods != nil {
		otpEnabled = methods.OTP.Enabled
	}

	renderPage(w, r, h.logger, authpages.SigninPage(authpages.SigninPageData{
		Form:        form,
		Flash:       flash,
		CallbackURL: callbackURL,
		OTPEnabled:  otpEnabled,
	}))
}

// =============================================================================
// GET/POST /auth/signup - Registration
// =============================================================================

// ShowSignup renders the registration form.
func (h *AuthHandler) ShowSignup(w http.ResponseWriter, r *http.Request) {
	renderPage(w, r, h.logger, authpages.SignupPage(authpages.SignupPageData{}))
}

// Signup processes the registration form.
//
// Form Fields:
// - email, password, passwordConfirm (required)
// - name (optional)
//
// Registration does not sign the user in: the backend sends a verification
// email and the page says so.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	if !h.parseForm(w, r) {
		return
	}

	out := h.auth.Signup(r.Context(), h.requestContext(w, r), domain.SignupParams{
		Email:           normalizeEmail(r.FormValue("email")),
		Name:            r.FormValue("name"),
		Password:        r.FormValue("password"),
		PasswordConfirm: r.FormValue("passwordConfirm"),
	})

	renderPage(w, r, h.logger, authpages.SignupPage(authpages.SignupPageData{
		Form:       authpages.FormFrom(out.State.Values),
		Flash:      shared.FlashFromState(out.State),
		Registered: out.State.Success,
	}))
}

// =============================================================================
// One-time Code Sign-in
// =============================================================================

// ShowOTPLogin renders the code request form.
func (h *AuthHandler) ShowOTPLogin(w http.ResponseWriter, r *http.Request) {
	renderPage(w, r, h.logger, authpages.OTPLoginPage(authpages.OTPLoginPageData{}))
}

// RequestOTP asks the backend to email a code, then sends the user to the
// code entry page carrying the otpId.
func (h *AuthHandler) RequestOTP(w http.ResponseWriter, r *http.Request) {
	if !h.parseForm(w, r) {
		return
	}

	out := h.auth.RequestOTP(r.Context(), h.requestContext(w, r), normalizeEmail(r.FormValue("email")))
	if out.State.Success && out.State.Values.OTPID != "" {
		target := "/auth/verify-otp?" + url.Values{"otpId": {out.State.Values.OTPID}}.Encode()
		http.Redirect(w, r, target, http.StatusSeeOther)
		return
	}

	renderPage(w, r, h.logger, authpages.OTPLoginPage(authpages.OTPLoginPageData{
		Form:  authpages.FormFrom(out.State.Values),
		Flash: shared.FlashFromState(out.State),
	}))
}

// OTPCodeLogin signs in with an email and the 6-digit code from it.
func (h *AuthHandler) OTPCodeLogin(w http.ResponseWriter, r *http.Request) {
	if !h.parseForm(w, r) {
		return
	}

	out := h.auth.OTPAuth(r.Context(), h.requestContext(w, r), domain.OTPAuthParams{
		Email: normalizeEmail(r.FormValue("email")),
		OTP:   r.FormValue("otp"),
	})
	if out.IsRedirect() {
		h.limits.ResetLogin(r)
		http.Redirect(w, r, out.RedirectTo, http.StatusSeeOther)
		return
	}

	renderPage(w, r, h.logger, authpages.OTPLoginPage(authpages.OTPLoginPageData{
		Form:  authpages.FormFrom(out.State.Values),
		Flash: shared.FlashFromState(out.State),
	}))
}

// ShowVerifyOTP renders the 8-digit code form.
//
// Query Parameters:
// - otpId (required): from the code request; without it the user is sent
//   back to request a code
func (h *AuthHandler) ShowVerifyOTP(w http.ResponseWriter, r *http.Request) {
	otpID := r.URL.Query().Get("otpId")
	if otpID == "" {
		http.Redirect(w, r, "/auth/otp-login", http.StatusSeeOther)
		return
	}

	renderPage(w, r, h.logger, authpages.VerifyOTPPage(authpages.VerifyOTPPageData{
		OTPID: otpID,
		Flash: &shared.Flash{Type: shared.FlashInfo, Message: "OTP sent to your email! Please check your inbox."},
	}))
}

// VerifyOTP exchanges the otpId and code for a session. A verified code
// lands on the dashboard.
func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	if !h.parseForm(w, r) {
		return
	}

	out := h.auth.VerifyOTP(r.Context(), h.requestContext(w, r), domain.VerifyOTPParams{
		OTPID: r.FormValue("otpId"),
		OTP:   r.FormValue("otp"),
	})
	if out.IsRedirect() || out.State.Success {
		h.limits.ResetLogin(r)
		target := out.RedirectTo
		if target == "" {
			target = service.DefaultLandingPath
		}
		http.Redirect(w, r, target, http.StatusSeeOther)
		return
	}

	renderPage(w, r, h.logger, authpages.VerifyOTPPage(authpages.VerifyOTPPageData{
		OTPID: out.State.Values.OTPID,
		Flash: shared.FlashFromState(out.State),
	}))
}

// =============================================================================
// Password Reset
// =============================================================================

// ShowForgotPassword renders the reset request form.
func (h *AuthHandler) ShowForgotPassword(w http.ResponseWriter, r *http.Request) {
	renderPage(w, r, h.logger, authpages.ForgotPasswordPage(authpages.ForgotPasswordPageData{}))
}

// ForgotPassword asks the backend to email a reset link.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	if !h.parseForm(w, r) {
		return
	}

	out := h.auth.RequestPasswordReset(r.Context(), h.requestContext(w, r), normalizeEmail(r.FormValue("email")))

	form := authpages.FormFrom(out.State.Values)
	if out.State.Success {
		form = authpages.FormData{}
	}
	renderPage(w, r, h.logger, authpages.ForgotPasswordPage(authpages.ForgotPasswordPageData{
		Form:  form,
		Flash: shared.FlashFromState(out.State),
	}))
}

// ShowConfirmPasswordReset renders the new password form for ?token=.
func (h *AuthHandler) ShowConfirmPasswordReset(w http.ResponseWriter, r *http.Request) {
	renderPage(w, r, h.logger, authpages.ConfirmPasswordResetPage(authpages.ConfirmPasswordResetPageData{
		Token: r.URL.Query().Get("token"),
	}))
}

// ConfirmPasswordReset sets the new password. Success sends the user to
// sign in.
func (h *AuthHandler) ConfirmPasswordReset(w http.ResponseWriter, r *http.Request) {
	if !h.parseForm(w, r) {
		return
	}

	out := h.auth.ConfirmPasswordReset(r.Context(), h.requestContext(w, r), domain.ConfirmPasswordResetParams{
		Token:           r.FormValue("token"),
		Password:        r.FormValue("password"),
		PasswordConfirm: r.FormValue("passwordConfirm"),
	})
	if out.State.Success {
		http.Redirect(w, r, service.DefaultLoginPath+"?reset=1", http.StatusSeeOther)
		return
	}

	renderPage(w, r, h.logger, authpages.ConfirmPasswordResetPage(authpages.ConfirmPasswordResetPageData{
		Token: out.State.Values.Token,
		Flash: shared.FlashFromState(out.State),
	}))
}

// =============================================================================
// Email Verification
// =============================================================================

// VerifyEmail confirms the verification token from the emailed link.
//
// The token comes from ?token= on GET or the token field on POST. Without
// one, the page offers to resend the email.
func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost && !h.parseForm(w, r) {
		return
	}

	token := r.FormValue("token")
	if token == "" {
		renderPage(w, r, h.logger, authpages.VerifyEmailPage(authpages.VerifyEmailPageData{}))
		return
	}

	out := h.auth.ConfirmVerification(r.Context(), h.requestContext(w, r), token)
	renderPage(w, r, h.logger, authpages.VerifyEmailPage(authpages.VerifyEmailPageData{
		Flash:   shared.FlashFromState(out.State),
		Success: out.State.Success,
	}))
}

// RequestVerification resends the verification email.
func (h *AuthHandler) RequestVerification(w http.ResponseWriter, r *http.Request) {
	if !h.parseForm(w, r) {
		return
	}

	out := h.auth.RequestVerification(r.Context(), h.requestContext(w, r), normalizeEmail(r.FormValue("email")))
	renderPage(w, r, h.logger, authpages.VerifyEmailPage(authpages.VerifyEmailPageData{
		Form:  authpages.FormFrom(out.State.Values),
		Flash: shared.FlashFromState(out.State),
	}))
}

// =============================================================================
// Email Change Confirmation
// =============================================================================

// ShowConfirmEmailChange renders the password prompt for ?token=.
func (h *AuthHandler) ShowConfirmEmailChange(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")

	var flash *shared.Flash
	if token == "" {
		flash = &shared.Flash{Type: shared.FlashError, Message: "This confirmation link is missing its token."}
	}
	renderPage(w, r, h.logger, authpages.ConfirmEmailChangePage(authpages.ConfirmEmailChangePageData{
		Token: token,
		Flash: flash,
	}))
}

// ConfirmEmailChange applies the change. The backend invalidates the old
// token, so the session is cleared and the user signs in again.
func (h *AuthHandler) ConfirmEmailChange(w http.ResponseWriter, r *http.Request) {
	if !h.parseForm(w, r) {
		return
	}

	out := h.auth.ConfirmEmailChange(r.Context(), h.requestContext(w, r), domain.ConfirmEmailChangeParams{
		Token:    r.FormValue("token"),
		Password: r.FormValue("password"),
	})
	if out.State.Success {
		http.Redirect(w, r, service.DefaultLoginPath+"?email-changed=1", http.StatusSeeOther)
		return
	}

	renderPage(w, r, h.logger, authpages.ConfirmEmailChangePage(authpages.ConfirmEmailChangePageData{
		Token: out.State.Values.Token,
		Flash: shared.FlashFromState(out.State),
	}))
}

// =============================================================================
// POST /auth/logout
// =============================================================================

// Logout clears the session cookie and returns to the sign-in page.
// It works with or without a session.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.auth.Logout(r.Context(), h.requestContext(w, r))
	http.Redirect(w, r, service.DefaultLoginPath+"?logout=1", http.StatusSeeOther)
}

// =============================================================================
// Helper Functions
// =============================================================================

// requestContext returns the cookie context the gate attached, or builds one
// for routes the gate did not see.
func (h *AuthHandler) requestContext(w http.ResponseWriter, r *http.Request) *session.RequestContext {
	return requestContext(w, r, h.isSecure)
}

func requestContext(w http.ResponseWriter, r *http.Request, isSecure bool) *session.RequestContext {
	if rc := auth.GetRequestContext(r.Context()); rc != nil {
		return rc
	}
	return session.NewRequestContext(w, r, isSecure, nil)
}

// parseForm parses the body, answering 400 itself on failure.
func (h *AuthHandler) parseForm(w http.ResponseWriter, r *http.Request) bool {
	if err := r.ParseForm(); err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("handler.parse_form", "Invalid form submission. Please try again."))
		return false
	}
	return true
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
