package handler

import (
	"bytes"
	"log/slog"
	"net/http"

	"github.com/a-h/templ"
)

// renderPage renders c with status 200.
func renderPage(w http.ResponseWriter, r *http.Request, logger *slog.Logger, c templ.Component) {
	renderPageStatus(w, r, logger, http.StatusOK, c)
}

// renderPageStatus renders c to a buffer first so a failed render can still
// answer 500 instead of sending half a page.
func renderPageStatus(w http.ResponseWriter, r *http.Request, logger *slog.Logger, status int, c templ.Component) {
	var buf bytes.Buffer
	if err := c.Render(r.Context(), &buf); err != nil {
		logger.Error("page render failed", "path", r.URL.Path, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
