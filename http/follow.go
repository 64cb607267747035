package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"yatube/auth"
	"yatube/domain"
	"yatube/errs"
	"yatube/events"
)

func (s *Server) registerFollowRoutes(r *mux.Router) {
	r.HandleFunc("/follow/", s.requireUser(s.handleFeed)).Methods("GET")
	r.HandleFunc("/{username}/follow/", s.requireUser(s.handleCreateFollow)).Methods("GET")
	r.HandleFunc("/{username}/unfollow/", s.requireUser(s.handleDeleteFollow)).Methods("GET")
}

// handleFeed handles the route "GET /follow/".
// It renders the posts of every author the signed in user follows.
func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())
	page, err := s.postPage(r, domain.PostFilter{FollowedBy: &user.ID})
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "posts/follow.html", &templateData{
		Title: "Followed authors",
		Page:  page,
	})
}

// handleCreateFollow handles the route "GET /{username}/follow/".
// The signed in user starts following the user in the address, unless it's
// themselves or they already follow them. Either way they are sent back to
// the profile.
func (s *Server) handleCreateFollow(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())
	author, err := s.us.ByUsername(r.Context(), mux.Vars(r)["username"])
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	if author.ID != user.ID {
		err := s.fs.Create(r.Context(), &domain.Follow{UserID: user.ID, AuthorID: author.ID})
		switch errs.ErrorCode(err) {
		case "":
			e := events.New(events.FollowCreated, user.ID)
			e.AuthorID = author.ID
			s.publish(r.Context(), e)
		case errs.ECONFLICT:
			// Already following.
		default:
			s.serverError(w, r, err)
			return
		}
	}
	http.Redirect(w, r, profileURL(author.Username), http.StatusFound)
}

// handleDeleteFollow handles the route "GET /{username}/unfollow/".
// Unfollowing a user that isn't followed does nothing.
func (s *Server) handleDeleteFollow(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())
	author, err := s.us.ByUsername(r.Context(), mux.Vars(r)["username"])
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	following, err := s.fs.Exists(r.Context(), user.ID, author.ID)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	if following {
		if err := s.fs.Delete(r.Context(), &domain.Follow{UserID: user.ID, AuthorID: author.ID}); err != nil {
			s.serverError(w, r, err)
			return
		}
		e := events.New(events.FollowDeleted, user.ID)
		e.AuthorID = author.ID
		s.publish(r.Context(), e)
	}
	http.Redirect(w, r, profileURL(author.Username), http.StatusFound)
}
