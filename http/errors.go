package http

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"yatube/errs"
)

// handleNotFound renders the 404 page for any route that doesn't exist.
// Addresses that only lack their trailing slash are redirected.
func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet && !strings.HasSuffix(r.URL.Path, "/") {
		slashed := r.Clone(r.Context())
		slashed.URL.Path += "/"
		slashed.URL.RawPath = ""
		var match mux.RouteMatch
		if s.router.Match(slashed, &match) && match.MatchErr == nil && match.Route != nil {
			http.Redirect(w, r, slashed.URL.String(), http.StatusMovedPermanently)
			return
		}
	}
	s.render(w, r, http.StatusNotFound, "misc/404.html", &templateData{Title: "Page not found"})
}

// handleForbidden renders the 403 page when a form is submitted without a valid CSRF token.
func (s *Server) handleForbidden(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusForbidden, "misc/403.html", &templateData{Title: "Forbidden"})
}

// serverError logs err and renders the 500 page.
func (s *Server) serverError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("internal error")
	s.renderServerError(w, r)
}

func (s *Server) renderServerError(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusInternalServerError, "misc/500.html", &templateData{Title: "Server error"})
}

// handleError renders the page matching the status of err: the 404 page
// for missing objects and the 500 page for everything else.
func (s *Server) handleError(w http.ResponseWriter, r *http.Request, err error) {
	if errs.HTTPStatus(err) == http.StatusNotFound {
		s.handleNotFound(w, r)
		return
	}
	s.serverError(w, r, err)
}
