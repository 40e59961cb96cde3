package handler

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/DukeRupert/pbgate/internal/auth"
	"github.com/DukeRupert/pbgate/internal/domain"
	"github.com/DukeRupert/pbgate/internal/service"
	"github.com/DukeRupert/pbgate/internal/templ/pages/app"
	"github.com/DukeRupert/pbgate/internal/templ/shared"
)

// AppHandler serves the home page and the pages behind the session gate.
//
// The gate has already confirmed the session for /dashboard and /profile
// by the time these run; the handlers only read the cookie.
type AppHandler struct {
	auth     service.AuthService
	logger   *slog.Logger
	isSecure bool
}

// NewAppHandler creates a new AppHandler.
func NewAppHandler(authService service.AuthService, logger *slog.Logger, isSecure bool) *AppHandler {
	return &AppHandler{auth: authService, logger: logger, isSecure: isSecure}
}

// RegisterRoutes registers the application pages.
//
// Routes registered:
// - GET  /              -> Home (other unmatched paths answer 404)
// - GET  /dashboard     -> Dashboard
// - GET  /profile       -> Profile
// - POST /profile       -> UpdateProfile
// - POST /profile/email -> RequestEmailChange
func (h *AppHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /", h.Home)
	mux.HandleFunc("GET /dashboard", h.Dashboard)
	mux.HandleFunc("GET /profile", h.Profile)
	mux.HandleFunc("POST /profile", h.UpdateProfile)
	mux.HandleFunc("POST /profile/email", h.RequestEmailChange)
}

// Home renders the public landing page.
func (h *AppHandler) Home(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		NotFoundResponse(w, r, h.logger)
		return
	}
	renderPage(w, r, h.logger, app.HomePage(app.HomePageData{User: auth.GetUser(r.Context())}))
}

// Dashboard renders the signed-in landing page.
func (h *AppHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	renderPage(w, r, h.logger, app.DashboardPage(app.DashboardPageData{User: user}))
}

// Profile renders the profile page.
func (h *AppHandler) Profile(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	renderPage(w, r, h.logger, app.ProfilePage(app.ProfilePageData{User: user}))
}

// UpdateProfile saves the display name. The cookie is rewritten with the
// updated record, so the page shows the new name straight away.
func (h *AppHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireUser(w, r); !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("handler.update_profile", "Invalid form submission. Please try again."))
		return
	}

	rc := requestContext(w, r, h.isSecure)
	out := h.auth.UpdateProfile(r.Context(), rc, domain.ProfileUpdateParams{Name: r.FormValue("name")})

	h.renderProfileResult(w, r, out, app.ProfilePageData{Name: r.FormValue("name")})
}

// RequestEmailChange emails a confirmation link to the new address.
func (h *AppHandler) RequestEmailChange(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireUser(w, r); !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("handler.request_email_change", "Invalid form submission. Please try again."))
		return
	}

	rc := requestContext(w, r, h.isSecure)
	newEmail := normalizeEmail(r.FormValue("newEmail"))
	out := h.auth.RequestEmailChange(r.Context(), rc, newEmail)

	h.renderProfileResult(w, r, out, app.ProfilePageData{NewEmail: newEmail})
}

// renderProfileResult re-reads the user after an action, since a successful
// update rewrote the cookie. Echoed values are kept only on failure.
func (h *AppHandler) renderProfileResult(w http.ResponseWriter, r *http.Request, out domain.Outcome, data app.ProfilePageData) {
	user, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	data.User = user
	data.Flash = shared.FlashFromState(out.State)
	if out.State.Success {
		data.Name = ""
		data.NewEmail = ""
	}
	renderPage(w, r, h.logger, app.ProfilePage(data))
}

// requireUser returns the cookie's user, redirecting to sign in when there
// is none. Behind the gate this only fires if the route table and the gate's
// protected prefixes disagree.
func (h *AppHandler) requireUser(w http.ResponseWriter, r *http.Request) (*domain.Record, bool) {
	user, err := h.auth.CurrentUser(requestContext(w, r, h.isSecure))
	if err != nil {
		target := service.DefaultLoginPath + "?" + url.Values{"callbackUrl": {r.URL.Path}}.Encode()
		http.Redirect(w, r, target, http.StatusSeeOther)
		return nil, false
	}
	return user, true
}
