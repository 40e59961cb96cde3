package domain

// LoginParams contains the fields for password sign-in.
type LoginParams struct {
	Email       string
	Password    string
	CallbackURL string // where to go after sign-in; ignored unless a local path
}

// SignupParams contains the fields for registration.
type SignupParams struct {
	Email           string
	Name            string
	Password        string
	PasswordConfirm string
}

// OTPAuthParams is a direct sign-in with an emailed code.
type OTPAuthParams struct {
	Email string
	OTP   string
}

// VerifyOTPParams is a sign-in with a code bound to an otpId.
type VerifyOTPParams struct {
	OTPID string
	OTP   string
}

// ConfirmPasswordResetParams contains the fields for setting a new password.
type ConfirmPasswordResetParams struct {
	Token           string
	Password        string
	PasswordConfirm string
}

// ConfirmEmailChangeParams contains the fields for applying an email change.
type ConfirmEmailChangeParams struct {
	Token    string
	Password string
}

// ProfileUpdateParams contains the editable profile fields.
type ProfileUpdateParams struct {
	Name string
}
