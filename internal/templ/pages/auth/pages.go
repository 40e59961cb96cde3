package auth

import (
	"context"

	"github.com/a-h/templ"

	"github.com/DukeRupert/pbgate/internal/templ/shared"
)

// =============================================================================
// Sign in / Sign up
// =============================================================================

// SigninPage renders the password sign-in form.
func SigninPage(data SigninPageData) templ.Component {
	links := []templ.Component{
		shared.Link("/auth/forgot-password", "Forgot your password?"),
		shared.Link("/auth/signup", "Create an account"),
	}
	if data.OTPEnabled {
		links = append(links, shared.Link("/auth/otp-login", "Email me a sign-in code"))
	}

	return page("Sign in", shared.Card("Sign in",
		shared.FlashMessage(data.Flash),
		shared.Form("/auth/signin",
			shared.Hidden("callbackUrl", data.CallbackURL),
			shared.Input(shared.InputProps{Label: "Email", Name: "email", Type: "email", Value: data.Form.Email, Autocomplete: "email", Required: true, Autofocus: true}),
			shared.Input(shared.InputProps{Label: "Password", Name: "password", Type: "password", Autocomplete: "current-password", Required: true}),
			shared.Button("Sign in", shared.ButtonPrimary, "mt-2"),
		),
		linkList(links...),
	))
}

// SignupPage renders the registration form.
func SignupPage(data SignupPageData) templ.Component {
	if data.Registered {
		return page("Sign up", shared.Card("Check your email",
			shared.FlashMessage(data.Flash),
			shared.Link("/auth/signin", "Continue to sign in"),
		))
	}

	return page("Sign up", shared.Card("Create an account",
		shared.FlashMessage(data.Flash),
		shared.Form("/auth/signup",
			shared.Input(shared.InputProps{Label: "Name", Name: "name", Value: data.Form.Name, Autocomplete: "name"}),
			shared.Input(shared.InputProps{Label: "Email", Name: "email", Type: "email", Value: data.Form.Email, Autocomplete: "email", Required: true}),
			shared.Input(shared.InputProps{Label: "Password", Name: "password", Type: "password", Autocomplete: "new-password", Required: true}),
			shared.Input(shared.InputProps{Label: "Confirm password", Name: "passwordConfirm", Type: "password", Autocomplete: "new-password", Required: true}),
			shared.Button("Create account", shared.ButtonPrimary, "mt-2"),
		),
		linkList(shared.Link("/auth/signin", "Already have an account? Sign in")),
	))
}

// =============================================================================
// One-time codes
// =============================================================================

// OTPLoginPage renders both ways of signing in with an emailed code: request
// a code bound to an id, or enter a 6-digit code directly.
func OTPLoginPage(data OTPLoginPageData) templ.Component {
	return page("Sign in with a code", shared.Card("Sign in with a code",
		shared.FlashMessage(data.Flash),
		shared.Form("/auth/otp-login",
			shared.Input(shared.InputProps{Label: "Email", Name: "email", Type: "email", Value: data.Form.Email, Autocomplete: "email", Required: true}),
			shared.Button("Email me a code", shared.ButtonPrimary),
		),
		shared.Paragraph("Already have a 6-digit code?", "mt-6"),
		shared.Form("/auth/otp-login/code",
			shared.Input(shared.InputProps{Label: "Email", Name: "email", Type: "email", Value: data.Form.Email, Autocomplete: "email", Required: true}),
			shared.Input(shared.InputProps{Label: "Code", Name: "otp", InputMode: "numeric", Pattern: "[0-9]{6}", MaxLength: 6, Autocomplete: "one-time-code", Required: true}),
			shared.Button("Sign in", shared.ButtonSecondary),
		),
		linkList(shared.Link("/auth/signin", "Use a password instead")),
	))
}

// VerifyOTPPage renders the 8-digit code form for an otpId.
func VerifyOTPPage(data VerifyOTPPageData) templ.Component {
	intro := "Enter the 8-digit code we emailed you."
	if data.Email != "" {
		intro = "Enter the 8-digit code we emailed to " + data.Email + "."
	}

	return page("Verify code", shared.Card("Enter your code",
		shared.FlashMessage(data.Flash),
		shared.Paragraph(intro, "mb-4"),
		shared.Form("/auth/verify-otp",
			shared.Hidden("otpId", data.OTPID),
			shared.Input(shared.InputProps{Label: "Code", Name: "otp", InputMode: "numeric", Pattern: "[0-9]{8}", MaxLength: 8, Autocomplete: "one-time-code", Required: true, Autofocus: true}),
			shared.Button("Verify", shared.ButtonPrimary),
		),
		linkList(shared.Link("/auth/otp-login", "Send a new code")),
	))
}

// =============================================================================
// Password reset
// =============================================================================

// ForgotPasswordPage renders the reset request form.
func ForgotPasswordPage(data ForgotPasswordPageData) templ.Component {
	return page("Forgot password", shared.Card("Reset your password",
		shared.FlashMessage(data.Flash),
		shared.Form("/auth/forgot-password",
			shared.Input(shared.InputProps{Label: "Email", Name: "email", Type: "email", Value: data.Form.Email, Autocomplete: "email", Required: true}),
			shared.Button("Send reset link", shared.ButtonPrimary),
		),
		linkList(shared.Link("/auth/signin", "Back to sign in")),
	))
}

// ConfirmPasswordResetPage renders the new password form.
func ConfirmPasswordResetPage(data ConfirmPasswordResetPageData) templ.Component {
	if data.Done {
		return page("Password reset", shared.Card("Password reset",
			shared.FlashMessage(data.Flash),
			shared.Link("/auth/signin", "Continue to sign in"),
		))
	}
	if data.Token == "" {
		return page("Password reset", shared.Card("Invalid link",
			shared.FlashMessage(&shared.Flash{Type: shared.FlashError, Message: "This reset link is missing its token."}),
			shared.Link("/auth/forgot-password", "Request a new link"),
		))
	}

	return page("Password reset", shared.Card("Choose a new password",
		shared.FlashMessage(data.Flash),
		shared.Form("/auth/confirm-password-reset",
			shared.Hidden("token", data.Token),
			shared.Input(shared.InputProps{Label: "New password", Name: "password", Type: "password", Autocomplete: "new-password", Required: true}),
			shared.Input(shared.InputProps{Label: "Confirm new password", Name: "passwordConfirm", Type: "password", Autocomplete: "new-password", Required: true}),
			shared.Button("Reset password", shared.ButtonPrimary),
		),
	))
}

// =============================================================================
// Email verification and change
// =============================================================================

// VerifyEmailPage shows the verification result, with a resend form when
// verification failed or no token was given.
func VerifyEmailPage(data VerifyEmailPageData) templ.Component {
	if data.Success {
		return page("Verify email", shared.Card("Email verified",
			shared.FlashMessage(data.Flash),
			shared.Link("/auth/signin", "Continue to sign in"),
		))
	}

	return page("Verify email", shared.Card("Verify your email",
		shared.FlashMessage(data.Flash),
		shared.Paragraph("Need a new verification link?", "mb-4"),
		shared.Form("/auth/request-verification",
			shared.Input(shared.InputProps{Label: "Email", Name: "email", Type: "email", Value: data.Form.Email, Autocomplete: "email", Required: true}),
			shared.Button("Resend verification email", shared.ButtonSecondary),
		),
	))
}

// ConfirmEmailChangePage asks for the password to finish an email change.
func ConfirmEmailChangePage(data ConfirmEmailChangePageData) templ.Component {
	if data.Done {
		return page("Email changed", shared.Card("Email changed",
			shared.FlashMessage(data.Flash),
			shared.Link("/auth/signin", "Sign in with your new email"),
		))
	}

	return page("Confirm email change", shared.Card("Confirm email change",
		shared.FlashMessage(data.Flash),
		shared.Form("/auth/confirm-email-change",
			shared.Hidden("token", data.Token),
			shared.Input(shared.InputProps{Label: "Current password", Name: "password", Type: "password", Autocomplete: "current-password", Required: true}),
			shared.Button("Confirm change", shared.ButtonPrimary),
		),
	))
}

// =============================================================================
// Helpers
// =============================================================================

// page wraps body in the layout. Auth pages are only shown to visitors.
func page(title string, body templ.Component) templ.Component {
	return shared.Layout(shared.LayoutData{Title: title}, body)
}

func linkList(links ...templ.Component) templ.Component {
	items := make([]templ.Component, 0, len(links)+2)
	items = append(items, shared.Component(func(_ context.Context, h *shared.Writer) {
		h.Raw(`<div class="mt-6 flex flex-col gap-2">`)
	}))
	items = append(items, links...)
	items = append(items, shared.Component(func(_ context.Context, h *shared.Writer) {
		h.Raw("</div>")
	}))
	return shared.Group(items...)
}
