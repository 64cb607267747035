package http

import (
	"net/http"

	"github.com/gorilla/mux"
)

func (s *Server) registerAboutRoutes(r *mux.Router) {
	r.HandleFunc("/about/author/", s.handleAboutAuthor).Methods("GET")
	r.HandleFunc("/about/tech/", s.handleAboutTech).Methods("GET")
}

func (s *Server) handleAboutAuthor(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "about/author.html", &templateData{Title: "About the author"})
}

func (s *Server) handleAboutTech(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "about/tech.html", &templateData{Title: "Technologies"})
}
