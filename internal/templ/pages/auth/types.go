// Package auth renders the sign-in, sign-up and account recovery pages.
package auth

import (
	"github.com/DukeRupert/pbgate/internal/domain"
	"github.com/DukeRupert/pbgate/internal/templ/shared"
)

// FormData holds the values echoed back into a form.
type FormData struct {
	Email string
	Name  string
}

// FormFrom copies the echoable values out of an action result.
func FormFrom(values domain.FormValues) FormData {
	return FormData{Email: values.Email, Name: values.Name}
}

// SigninPageData contains data for the password sign-in page.
type SigninPageData struct {
	Form        FormData
	Flash       *shared.Flash
	CallbackURL string
	// OTPEnabled shows the one-time code link when the backend allows it.
	OTPEnabled bool
}

// SignupPageData contains data for the registration page.
type SignupPageData struct {
	Form  FormData
	Flash *shared.Flash
	// Registered hides the form after a successful sign-up.
	Registered bool
}

// OTPLoginPageData contains data for the email code request page.
type OTPLoginPageData struct {
	Form  FormData
	Flash *shared.Flash
}

// VerifyOTPPageData contains data for the 8-digit code entry page.
type VerifyOTPPageData struct {
	Flash *shared.Flash
	OTPID string
	Email string
}

// ForgotPasswordPageData contains data for the forgot password page.
type ForgotPasswordPageData struct {
	Form  FormData
	Flash *shared.Flash
}

// ConfirmPasswordResetPageData contains data for the new password page.
type ConfirmPasswordResetPageData struct {
	Flash *shared.Flash
	Token string
	Done  bool
}

// VerifyEmailPageData contains data for the email verification page.
type VerifyEmailPageData struct {
	Form    FormData
	Flash   *shared.Flash
	Token   string
	Success bool
}

// ConfirmEmailChangePageData contains data for the email change confirmation page.
type ConfirmEmailChangePageData struct {
	Flash *shared.Flash
	Token string
	Done  bool
}
