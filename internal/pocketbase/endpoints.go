package pocketbase

import (
	"context"
	"net/http"
	"net/url"

	"github.com/DukeRupert/pbgate/internal/domain"
)

// Backend endpoint names, relative to the auth collection.
const (
	EndpointAuthWithPassword     = "auth-with-password"
	EndpointRecords              = "records"
	EndpointRequestPasswordReset = "request-password-reset"
	EndpointConfirmPasswordReset = "confirm-password-reset"
	EndpointRequestVerification  = "request-verification"
	EndpointConfirmVerification  = "confirm-verification"
	EndpointRequestOTP           = "request-otp"
	EndpointAuthWithOTP          = "auth-with-otp"
	EndpointAuthRefresh          = "auth-refresh"
	EndpointAuthMethods          = "auth-methods"
	EndpointRequestEmailChange   = "request-email-change"
	EndpointConfirmEmailChange   = "confirm-email-change"
)

// =============================================================================
// Authentication
// =============================================================================

// AuthWithPassword exchanges an identity and password for a session.
func (c *Client) AuthWithPassword(ctx context.Context, identity, password string) (*domain.SessionEnvelope, error) {
	return c.authenticate(ctx, "pocketbase.auth_with_password", "", EndpointAuthWithPassword, map[string]string{
		"identity": identity,
		"password": password,
	})
}

// AuthWithEmailOTP signs in with an emailed code addressed by email.
func (c *Client) AuthWithEmailOTP(ctx context.Context, email, otp string) (*domain.SessionEnvelope, error) {
	return c.authenticate(ctx, "pocketbase.auth_with_otp", "", EndpointAuthWithOTP, map[string]string{
		"email": email,
		"otp":   otp,
	})
}

// AuthWithOTPID signs in with a code bound to an otpId from RequestOTP.
func (c *Client) AuthWithOTPID(ctx context.Context, otpID, otp string) (*domain.SessionEnvelope, error) {
	return c.authenticate(ctx, "pocketbase.auth_with_otp", "", EndpointAuthWithOTP, map[string]string{
		"password": otp,
		"otpId":    otpID,
	})
}

// AuthRefresh trades a still-accepted token for a fresh one.
// The backend rejects revoked or expired tokens here.
func (c *Client) AuthRefresh(ctx context.Context, token string) (*domain.SessionEnvelope, error) {
	const op = "pocketbase.auth_refresh"
	if token == "" {
		return nil, domain.TokenError(op, "No authentication token found")
	}
	return c.authenticate(ctx, op, token, EndpointAuthRefresh, nil)
}

func (c *Client) authenticate(ctx context.Context, op, token, endpoint string, body any) (*domain.SessionEnvelope, error) {
	resp, err := c.CallWithAuth(ctx, token, endpoint, http.MethodPost, body)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, domain.Backend(op, requestFailed)
	}
	return domain.DecodeEnvelope(op, resp.Body)
}

// =============================================================================
// Registration and records
// =============================================================================

// CreateRecordParams holds the fields for a new auth record.
type CreateRecordParams struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
	Name            string `json:"name,omitempty"`
	EmailVisibility bool   `json:"emailVisibility"`
}

// CreateRecord registers a new user. It does not sign the user in.
// EmailVisibility is always sent as true so the address shows on the record.
func (c *Client) CreateRecord(ctx context.Context, params CreateRecordParams) (*domain.Record, error) {
	const op = "pocketbase.create_record"

	params.EmailVisibility = true
	resp, err := c.Call(ctx, EndpointRecords, http.MethodPost, nil, params)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, domain.Backend(op, requestFailed)
	}

	var rec domain.Record
	if len(resp.Body) > 0 {
		if err := resp.Decode(op, &rec); err != nil {
			return nil, err
		}
	}
	return &rec, nil
}

// UpdateRecord patches fields on the record identified by id.
// The caller's token must belong to that record (or a superuser).
func (c *Client) UpdateRecord(ctx context.Context, token, id string, fields map[string]any) (*domain.Record, error) {
	const op = "pocketbase.update_record"
	if id == "" {
		return nil, domain.Invalid(op, "Record id is required")
	}

	resp, err := c.CallWithAuth(ctx, token, EndpointRecords+"/"+url.PathEscape(id), http.MethodPatch, fields)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, domain.Backend(op, requestFailed)
	}

	var rec domain.Record
	if err := resp.Decode(op, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// =============================================================================
// One-time passwords
// =============================================================================

// RequestOTP emails a one-time code and returns the otpId correlating it.
func (c *Client) RequestOTP(ctx context.Context, email string) (string, error) {
	const op = "pocketbase.request_otp"

	resp, err := c.Call(ctx, EndpointRequestOTP, http.MethodPost, nil, map[string]string{"email": email})
	if err != nil {
		return "", err
	}
	if !resp.OK() {
		return "", domain.Backend(op, requestFailed)
	}

	var out struct {
		OTPID string `json:"otpId"`
	}
	if len(resp.Body) > 0 {
		if err := resp.Decode(op, &out); err != nil {
			return "", err
		}
	}
	return out.OTPID, nil
}

// =============================================================================
// Acknowledged requests (password reset, verification, email change)
// =============================================================================

// RequestPasswordReset emails a reset link.
func (c *Client) RequestPasswordReset(ctx context.Context, email string) error {
	return c.ack(ctx, "pocketbase.request_password_reset", "", EndpointRequestPasswordReset, map[string]string{
		"email": email,
	})
}

// ConfirmPasswordReset sets a new password using an emailed token.
func (c *Client) ConfirmPasswordReset(ctx context.Context, token, password, passwordConfirm string) error {
	return c.ack(ctx, "pocketbase.confirm_password_reset", "", EndpointConfirmPasswordReset, map[string]string{
		"token":           token,
		"password":        password,
		"passwordConfirm": passwordConfirm,
	})
}

// RequestVerification emails a verification link.
func (c *Client) RequestVerification(ctx context.Context, email string) error {
	return c.ack(ctx, "pocketbase.request_verification", "", EndpointRequestVerification, map[string]string{
		"email": email,
	})
}

// ConfirmVerification marks the record owning token as verified.
func (c *Client) ConfirmVerification(ctx context.Context, token string) error {
	return c.ack(ctx, "pocketbase.confirm_verification", "", EndpointConfirmVerification, map[string]string{
		"token": token,
	})
}

// RequestEmailChange emails a confirmation link to newEmail.
// authToken identifies the signed-in user making the request.
func (c *Client) RequestEmailChange(ctx context.Context, authToken, newEmail string) error {
	const op = "pocketbase.request_email_change"
	if authToken == "" {
		return domain.Unauthorized(op, "Authentication required")
	}
	return c.ack(ctx, op, authToken, EndpointRequestEmailChange, map[string]string{
		"newEmail": newEmail,
	})
}

// ConfirmEmailChange applies an email change using the emailed token and
// the account password. The backend invalidates existing tokens on success.
func (c *Client) ConfirmEmailChange(ctx context.Context, token, password string) error {
	return c.ack(ctx, "pocketbase.confirm_email_change", "", EndpointConfirmEmailChange, map[string]string{
		"token":    token,
		"password": password,
	})
}

// ack performs a POST whose only useful result is success or failure.
// Most of these endpoints answer 204 with no body.
func (c *Client) ack(ctx context.Context, op, token, endpoint string, body any) error {
	resp, err := c.CallWithAuth(ctx, token, endpoint, http.MethodPost, body)
	if err != nil {
		return err
	}
	if !resp.OK() {
		return domain.Backend(op, requestFailed)
	}
	return nil
}

// =============================================================================
// Auth methods
// =============================================================================

// AuthProvider is one configured OAuth2 provider.
type AuthProvider struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
}

// AuthMethods describes which sign-in methods the collection allows.
type AuthMethods struct {
	Password struct {
		Enabled        bool     `json:"enabled"`
		IdentityFields []string `json:"identityFields"`
	} `json:"password"`
	OAuth2 struct {
		Enabled   bool           `json:"enabled"`
		Providers []AuthProvider `json:"providers"`
	} `json:"oauth2"`
	OTP struct {
		Enabled  bool `json:"enabled"`
		Duration int  `json:"duration"`
	} `json:"otp"`
	MFA struct {
		Enabled  bool `json:"enabled"`
		Duration int  `json:"duration"`
	} `json:"mfa"`
}

// AuthMethods lists the collection's sign-in methods. The reply is
// cacheable; with Config.Cache set, repeat calls may not hit the backend.
func (c *Client) AuthMethods(ctx context.Context) (*AuthMethods, error) {
	const op = "pocketbase.auth_methods"

	resp, err := c.Call(ctx, EndpointAuthMethods, http.MethodGet, nil, nil)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, domain.Backend(op, requestFailed)
	}

	var out AuthMethods
	if err := resp.Decode(op, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
