package handler

import (
	"context"
	"net/http"

	"github.com/DukeRupert/pbgate/internal/domain"
	"github.com/DukeRupert/pbgate/internal/pocketbase"
	"github.com/DukeRupert/pbgate/internal/session"
)

// =============================================================================
// Mock AuthService Implementation
// =============================================================================

// mockAuthService implements service.AuthService. Unset functions return a
// zero Outcome, which handlers render as an empty form.
type mockAuthService struct {
	LoginFunc                func(ctx context.Context, rc *session.RequestContext, params domain.LoginParams) domain.Outcome
	SignupFunc               func(ctx context.Context, rc *session.RequestContext, params domain.SignupParams) domain.Outcome
	RequestOTPFunc           func(ctx context.Context, rc *session.RequestContext, email string) domain.Outcome
	OTPAuthFunc              func(ctx context.Context, rc *session.RequestContext, params domain.OTPAuthParams) domain.Outcome
	VerifyOTPFunc            func(ctx context.Context, rc *session.RequestContext, params domain.VerifyOTPParams) domain.Outcome
	RequestPasswordResetFunc func(ctx context.Context, rc *session.RequestContext, email string) domain.Outcome
	ConfirmPasswordResetFunc func(ctx context.Context, rc *session.RequestContext, params domain.ConfirmPasswordResetParams) domain.Outcome
	RequestVerificationFunc  func(ctx context.Context, rc *session.RequestContext, email string) domain.Outcome
	ConfirmVerificationFunc  func(ctx context.Context, rc *session.RequestContext, token string) domain.Outcome
	LogoutFunc               func(ctx context.Context, rc *session.RequestContext) domain.Outcome
	CurrentUserFunc          func(rc *session.RequestContext) (*domain.Record, error)
	ListAuthMethodsFunc      func(ctx context.Context) (*pocketbase.AuthMethods, error)
	RequestEmailChangeFunc   func(ctx context.Context, rc *session.RequestContext, newEmail string) domain.Outcome
	ConfirmEmailChangeFunc   func(ctx context.Context, rc *session.RequestContext, params domain.ConfirmEmailChangeParams) domain.Outcome
	UpdateProfileFunc        func(ctx context.Context, rc *session.RequestContext, params domain.ProfileUpdateParams) domain.Outcome
}

func (m *mockAuthService) Login(ctx context.Context, rc *session.RequestContext, params domain.LoginParams) domain.Outcome {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, rc, params)
	}
	return domain.Outcome{}
}

func (m *mockAuthService) Signup(ctx context.Context, rc *session.RequestContext, params domain.SignupParams) domain.Outcome {
	if m.SignupFunc != nil {
		return m.SignupFunc(ctx, rc, params)
	}
	return domain.Outcome{}
}

func (m *mockAuthService) RequestOTP(ctx context.Context, rc *session.RequestContext, email string) domain.Outcome {
	if m.RequestOTPFunc != nil {
		return m.RequestOTPFunc(ctx, rc, email)
	}
	return domain.Outcome{}
}

func (m *mockAuthService) OTPAuth(ctx context.Context, rc *session.RequestContext, params domain.OTPAuthParams) domain.Outcome {
	if m.OTPAuthFunc != nil {
		return m.OTPAuthFunc(ctx, rc, params)
	}
	return domain.Outcome{}
}

func (m *mockAuthService) VerifyOTP(ctx context.Context, rc *session.RequestContext, params domain.VerifyOTPParams) domain.Outcome {
	if m.VerifyOTPFunc != nil {
		return m.VerifyOTPFunc(ctx, rc, params)
	}
	return domain.Outcome{}
}

func (m *mockAuthService) RequestPasswordReset(ctx context.Context, rc *session.RequestContext, email string) domain.Outcome {
	if m.RequestPasswordResetFunc != nil {
		return m.RequestPasswordResetFunc(ctx, rc, email)
	}
	return domain.Outcome{}
}

func (m *mockAuthService) ConfirmPasswordReset(ctx context.Context, rc *session.RequestContext, params domain.ConfirmPasswordResetParams) domain.Outcome {
	if m.ConfirmPasswordResetFunc != nil {
		return m.ConfirmPasswordResetFunc(ctx, rc, params)
	}
	return domain.Outcome{}
}

func (m *mockAuthService) RequestVerification(ctx context.Context, rc *session.RequestContext, email string) domain.Outcome {
	if m.RequestVerificationFunc != nil {
		return m.RequestVerificationFunc(ctx, rc, email)
	}
	return domain.Outcome{}
}

func (m *mockAuthService) ConfirmVerification(ctx context.Context, rc *session.RequestContext, token string) domain.Outcome {
	if m.ConfirmVerificationFunc != nil {
		return m.ConfirmVerificationFunc(ctx, rc, token)
	}
	return domain.Outcome{}
}

func (m *mockAuthService) Refresh(ctx context.Context, rc *session.RequestContext) domain.Outcome {
	return domain.Outcome{}
}

func (m *mockAuthService) Logout(ctx context.Context, rc *session.RequestContext) domain.Outcome {
	if m.LogoutFunc != nil {
		return m.LogoutFunc(ctx, rc)
	}
	rc.Cookies.Clear()
	return domain.Continue(domain.Succeeded("You have been signed out."))
}

func (m *mockAuthService) RequireAuth(ctx context.Context, rc *session.RequestContext, action func() domain.Outcome, redirectTo string) domain.Outcome {
	return domain.Redirect(redirectTo)
}

func (m *mockAuthService) CurrentUser(rc *session.RequestContext) (*domain.Record, error) {
	if m.CurrentUserFunc != nil {
		return m.CurrentUserFunc(rc)
	}
	return nil, domain.Unauthorized("mock.current_user", "Not authenticated")
}

func (m *mockAuthService) IsAuthenticated(ctx context.Context, rc *session.RequestContext) bool {
	return false
}

func (m *mockAuthService) RefreshSession(ctx context.Context, token string) (*domain.SessionEnvelope, error) {
	return nil, domain.TokenError("mock.refresh", "No token")
}

func (m *mockAuthService) ListAuthMethods(ctx context.Context) (*pocketbase.AuthMethods, error) {
	if m.ListAuthMethodsFunc != nil {
		return m.ListAuthMethodsFunc(ctx)
	}
	return &pocketbase.AuthMethods{}, nil
}

func (m *mockAuthService) RequestEmailChange(ctx context.Context, rc *session.RequestContext, newEmail string) domain.Outcome {
	if m.RequestEmailChangeFunc != nil {
		return m.RequestEmailChangeFunc(ctx, rc, newEmail)
	}
	return domain.Outcome{}
}

func (m *mockAuthService) ConfirmEmailChange(ctx context.Context, rc *session.RequestContext, params domain.ConfirmEmailChangeParams) domain.Outcome {
	if m.ConfirmEmailChangeFunc != nil {
		return m.ConfirmEmailChangeFunc(ctx, rc, params)
	}
	return domain.Outcome{}
}

func (m *mockAuthService) UpdateProfile(ctx context.Context, rc *session.RequestContext, params domain.ProfileUpdateParams) domain.Outcome {
	if m.UpdateProfileFunc != nil {
		return m.UpdateProfileFunc(ctx, rc, params)
	}
	return domain.Outcome{}
}

// mockLimits records ResetLogin calls and applies no limits.
type mockLimits struct {
	noLimits
	resets int
}

func (m *mockLimits) ResetLogin(r *http.Request) { m.resets++ }
