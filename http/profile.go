package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"yatube/auth"
	"yatube/domain"
)

func (s *Server) registerProfileRoutes(r *mux.Router) {
	r.HandleFunc("/{username}/", s.handleProfile).Methods("GET")
	s.registerPostDetailRoutes(r)
}

// handleProfile handles the route "GET /{username}/".
// It renders the posts of a user along with their follow counts and whether
// the signed in user follows them.
func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	author, err := s.us.ByUsername(r.Context(), mux.Vars(r)["username"])
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	page, err := s.postPage(r, domain.PostFilter{AuthorID: &author.ID})
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	data := &templateData{
		Title:  author.FullName(),
		Author: author,
		Page:   page,
	}
	if err := s.authorStats(r.Context(), data); err != nil {
		s.serverError(w, r, err)
		return
	}
	if user := auth.GetUser(r.Context()); user != nil && user.ID != author.ID {
		if data.Following, err = s.fs.Exists(r.Context(), user.ID, author.ID); err != nil {
			s.serverError(w, r, err)
			return
		}
	}
	s.render(w, r, http.StatusOK, "posts/profile.html", data)
}
