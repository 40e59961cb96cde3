// Package session implements the auth cookie contract: one HTTP-only cookie
// holding the JSON session envelope, read and written per request.
package session

const (
	// CookieName is the name of the cookie that stores the session envelope.
	CookieName = "pb_auth"

	// CookiePath ensures the cookie is sent with all requests.
	CookiePath = "/"

	// CookieMaxAge sets the cookie expiration (7 days = 604800 seconds).
	// The token inside usually expires sooner; the gate handles that.
	CookieMaxAge = 7 * 24 * 60 * 60
)
