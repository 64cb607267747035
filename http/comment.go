package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"yatube/auth"
	"yatube/domain"
	"yatube/events"
	"yatube/metrics"
)

func (s *Server) registerCommentRoutes(r *mux.Router) {
	r.HandleFunc("/{username}/{post_id:[0-9]+}/comment/", s.requireUser(s.handleAddComment)).Methods("GET", "POST")
}

// handleAddComment handles the route "GET|POST /{username}/{post_id}/comment/".
// A valid POST stores the comment of the signed in user and redirects to the
// post. GET and invalid submissions render the comment form.
func (s *Server) handleAddComment(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())
	post, ok := s.postFromRoute(w, r)
	if !ok {
		return
	}
	form := &CommentForm{Errors: FormErrors{}}
	if r.Method == http.MethodGet {
		s.renderCommentForm(w, r, form, post)
		return
	}
	if err := parseForm(w, r); err != nil {
		if !form.Errors.add(err) {
			s.serverError(w, r, err)
			return
		}
		s.renderCommentForm(w, r, form, post)
		return
	}
	form = newCommentForm(r)

	comment := &domain.Comment{PostID: post.ID, AuthorID: user.ID, Text: form.Text}
	if err := s.cs.Create(r.Context(), comment); err != nil {
		if !form.Errors.add(err) {
			s.handleError(w, r, err)
			return
		}
		s.renderCommentForm(w, r, form, post)
		return
	}
	metrics.CommentsCreated.Inc()
	e := events.New(events.CommentCreated, user.ID)
	e.PostID, e.AuthorID, e.CommentID = post.ID, post.AuthorID, comment.ID
	s.publish(r.Context(), e)

	http.Redirect(w, r, postURL(post.Author.Username, post.ID), http.StatusFound)
}

func (s *Server) renderCommentForm(w http.ResponseWriter, r *http.Request, form *CommentForm, post *domain.Post) {
	s.render(w, r, http.StatusOK, "posts/comments.html", &templateData{
		Title:       "Add comment",
		Post:        post,
		Author:      &post.Author,
		CommentForm: form,
	})
}
