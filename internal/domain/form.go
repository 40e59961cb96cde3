package domain

// FormState is the result of an auth action, shaped for re-rendering a form.
//
// Values echoes what the user typed so a failed submission does not have to
// be retyped. Passwords and one-time codes are never echoed.
type FormState struct {
	Success bool
	Error   string
	Message string
	Values  FormValues
}

// FormValues holds the non-secret values an action hands back to the page.
type FormValues struct {
	Email string
	Name  string
	Token string // reset/verification token carried through hidden fields
	OTPID string // correlation id from request-otp, threaded into verify-otp
}

// Failure builds a failed FormState.
func Failure(message string, values FormValues) FormState {
	return FormState{Success: false, Error: message, Values: values}
}

// Succeeded builds a successful FormState.
func Succeeded(message string) FormState {
	return FormState{Success: true, Message: message}
}

// Outcome is what every auth action returns: either a form state for the
// caller to render, or a redirect the caller must perform.
type Outcome struct {
	State      FormState
	RedirectTo string
}

// Continue wraps a form state.
func Continue(state FormState) Outcome {
	return Outcome{State: state}
}

// Redirect asks the caller to navigate to path.
func Redirect(path string) Outcome {
	return Outcome{State: FormState{Success: true}, RedirectTo: path}
}

// IsRedirect reports whether the outcome is a control transfer.
func (o Outcome) IsRedirect() bool {
	return o.RedirectTo != ""
}
