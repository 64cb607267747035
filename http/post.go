package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"yatube/auth"
	"yatube/domain"
	"yatube/events"
	"yatube/metrics"
	"yatube/paginate"
)

func (s *Server) registerPostRoutes(r *mux.Router) {
	r.HandleFunc("/", s.handleIndex).Methods("GET")
	r.HandleFunc("/new/", s.requireUser(s.handleNewPost)).Methods("GET", "POST")
	r.HandleFunc("/group/{slug}/", s.handleGroup).Methods("GET")
}

// registerPostDetailRoutes registers the routes below a post's address.
// They are registered together with the profile routes since they share the
// username prefix.
func (s *Server) registerPostDetailRoutes(r *mux.Router) {
	r.HandleFunc("/{username}/{post_id:[0-9]+}/", s.handlePost).Methods("GET")
	r.HandleFunc("/{username}/{post_id:[0-9]+}/edit/", s.requireUser(s.handleEditPost)).Methods("GET", "POST")
}

// postPage loads one page of the posts matching filter. The page number is
// taken from the "page" query parameter.
func (s *Server) postPage(r *http.Request, filter domain.PostFilter) (*paginate.Page[domain.Post], error) {
	return paginate.Get(r.Context(), r.URL.Query().Get("page"), PostsPerPage,
		func(ctx context.Context, offset, limit int) ([]domain.Post, int, error) {
			f := filter
			f.Offset, f.Limit = offset, limit
			return s.ps.Find(ctx, f)
		})
}

// indexCacheKey returns the key a page of the home listing is cached under.
// The raw page parameter is used, so "?page=abc" and "?page=1" are cached
// separately.
func indexCacheKey(r *http.Request) string {
	return "index_page?page=" + r.URL.Query().Get("page")
}

// handleIndex handles the route "GET /".
// It renders the newest posts of all users. Pages are cached for a short
// time, so new posts may show up with a delay.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	key := indexCacheKey(r)
	page, ok := s.index.Get(key)
	if !ok {
		var err error
		page, err = s.postPage(r, domain.PostFilter{})
		if err != nil {
			s.serverError(w, r, err)
			return
		}
		s.index.Add(key, page)
	}
	s.render(w, r, http.StatusOK, "posts/index.html", &templateData{
		Title: "Latest updates",
		Page:  page,
	})
}

// handleGroup handles the route "GET /group/{slug}/".
// It renders the posts of a group, or the 404 page if the group doesn't exist.
func (s *Server) handleGroup(w http.ResponseWriter, r *http.Request) {
	group, err := s.gs.BySlug(r.Context(), mux.Vars(r)["slug"])
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	page, err := s.postPage(r, domain.PostFilter{GroupID: &group.ID})
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "posts/group.html", &templateData{
		Title: group.Title,
		Group: group,
		Page:  page,
	})
}

// handlePost handles the route "GET /{username}/{post_id}/".
// It renders a single post with its comments. The post must belong to the
// user in the address.
func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	post, ok := s.postFromRoute(w, r)
	if !ok {
		return
	}
	comments, err := s.cs.ByPost(r.Context(), post.ID)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	data := &templateData{
		Title:       post.Author.Username,
		Post:        post,
		Author:      &post.Author,
		Comments:    comments,
		CommentForm: &CommentForm{Errors: FormErrors{}},
	}
	if err := s.authorStats(r.Context(), data); err != nil {
		s.serverError(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "posts/post.html", data)
}

// postFromRoute loads the post addressed by the username and post_id route
// variables. It renders the 404 page and reports false if there is no such
// post by that user.
func (s *Server) postFromRoute(w http.ResponseWriter, r *http.Request) (*domain.Post, bool) {
	vars := mux.Vars(r)
	id, err := strconv.Atoi(vars["post_id"])
	if err != nil {
		s.handleNotFound(w, r)
		return nil, false
	}
	post, err := s.ps.ByAuthor(r.Context(), vars["username"], id)
	if err != nil {
		s.handleError(w, r, err)
		return nil, false
	}
	return post, true
}

// authorStats fills in the post count and follow counts of data.Author.
func (s *Server) authorStats(ctx context.Context, data *templateData) error {
	var err error
	_, data.PostCount, err = s.ps.Find(ctx, domain.PostFilter{AuthorID: &data.Author.ID, Limit: 1})
	if err != nil {
		return err
	}
	if data.FollowerCount, err = s.fs.CountFollowers(ctx, data.Author.ID); err != nil {
		return err
	}
	data.FollowingCount, err = s.fs.CountFollowing(ctx, data.Author.ID)
	return err
}

// handleNewPost handles the route "GET|POST /new/".
// GET renders the empty post form. POST creates a post authored by the
// signed in user and redirects to the home page, or renders the form again
// with the validation errors.
func (s *Server) handleNewPost(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())
	if r.Method == http.MethodGet {
		s.renderPostForm(w, r, &PostForm{Errors: FormErrors{}}, nil)
		return
	}

	form := &PostForm{Errors: FormErrors{}}
	if err := parseForm(w, r); err != nil {
		if !form.Errors.add(err) {
			s.serverError(w, r, err)
			return
		}
		s.renderPostForm(w, r, form, nil)
		return
	}
	form = newPostForm(r)

	post := &domain.Post{Text: form.Text, AuthorID: user.ID}
	groupID, err := form.GroupID()
	if err != nil {
		form.Errors.add(err)
		s.renderPostForm(w, r, form, nil)
		return
	}
	post.GroupID = groupID

	post.Image, err = s.storeUploadedImage(r)
	if err != nil {
		if !form.Errors.add(err) {
			s.serverError(w, r, err)
			return
		}
		s.renderPostForm(w, r, form, nil)
		return
	}

	if err := s.ps.Create(r.Context(), post); err != nil {
		s.removeImage(post.Image)
		if !form.Errors.add(err) {
			s.serverError(w, r, err)
			return
		}
		s.renderPostForm(w, r, form, nil)
		return
	}
	metrics.PostsCreated.Inc()
	e := events.New(events.PostCreated, user.ID)
	e.PostID, e.AuthorID = post.ID, user.ID
	s.publish(r.Context(), e)

	http.Redirect(w, r, "/", http.StatusFound)
}

// handleEditPost handles the route "GET|POST /{username}/{post_id}/edit/".
// Only the author may edit a post. Everybody else is sent to the post's page.
// POST replaces text and group, and replaces or clears the image.
func (s *Server) handleEditPost(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())
	post, ok := s.postFromRoute(w, r)
	if !ok {
		return
	}
	detail := postURL(post.Author.Username, post.ID)
	if post.AuthorID != user.ID {
		http.Redirect(w, r, detail, http.StatusFound)
		return
	}
	if r.Method == http.MethodGet {
		s.renderPostForm(w, r, postFormFrom(post), post)
		return
	}

	form := postFormFrom(post)
	if err := parseForm(w, r); err != nil {
		if !form.Errors.add(err) {
			s.serverError(w, r, err)
			return
		}
		s.renderPostForm(w, r, form, post)
		return
	}
	form = newPostForm(r)

	groupID, err := form.GroupID()
	if err != nil {
		form.Errors.add(err)
		s.renderPostForm(w, r, form, post)
		return
	}
	uploaded, err := s.storeUploadedImage(r)
	if err != nil {
		if !form.Errors.add(err) {
			s.serverError(w, r, err)
			return
		}
		s.renderPostForm(w, r, form, post)
		return
	}

	oldImage := post.Image
	upd := &domain.Post{ID: post.ID, Text: form.Text, GroupID: groupID, Image: oldImage}
	switch {
	case uploaded != "":
		upd.Image = uploaded
	case form.ImageClear:
		upd.Image = ""
	}
	if err := s.ps.Update(r.Context(), upd); err != nil {
		s.removeImage(uploaded)
		if !form.Errors.add(err) {
			s.handleError(w, r, err)
			return
		}
		s.renderPostForm(w, r, form, post)
		return
	}
	if upd.Image != oldImage {
		s.removeImage(oldImage)
	}
	e := events.New(events.PostEdited, user.ID)
	e.PostID, e.AuthorID = post.ID, user.ID
	s.publish(r.Context(), e)

	http.Redirect(w, r, detail, http.StatusFound)
}

// renderPostForm renders the post form. post is the edited post, or nil
// when a new post is written.
func (s *Server) renderPostForm(w http.ResponseWriter, r *http.Request, form *PostForm, post *domain.Post) {
	groups, err := s.gs.All(r.Context())
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	data := &templateData{
		Title:    "New post",
		PostForm: form,
		Groups:   groups,
		Post:     post,
		IsEdit:   post != nil,
	}
	if post != nil {
		data.Title = "Edit post"
	}
	s.render(w, r, http.StatusOK, "posts/newpost.html", data)
}
