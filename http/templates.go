package http

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/csrf"

	"yatube/auth"
	"yatube/domain"
	"yatube/paginate"
)

//go:embed templates
var templateFS embed.FS

// templateData is handed to every page template. Handlers fill the fields
// their page needs, render fills the rest.
type templateData struct {
	Title     string
	Path      string
	User      *domain.User
	CSRFField template.HTML

	Page   *paginate.Page[domain.Post]
	Group  *domain.Group
	Author *domain.User
	Post   *domain.Post

	PostCount      int
	Following      bool
	FollowerCount  int
	FollowingCount int

	Comments    []domain.Comment
	CommentForm *CommentForm
	PostForm    *PostForm
	Groups      []domain.Group
	IsEdit      bool

	SignupForm *SignupForm
	LoginForm  *LoginForm
}

var functions = template.FuncMap{
	"postURL":    postURL,
	"profileURL": profileURL,
	"formatDate": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("02 Jan 2006, 15:04")
	},
	"paragraphs": func(text string) []string {
		return strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	},
}

// templates maps page names such as "posts/index.html" to the parsed page,
// which includes the base layout and all partials.
type templates map[string]*template.Template

// parseTemplates parses every page below templates/ together with the
// layout and partials it extends.
func parseTemplates() (templates, error) {
	pages, err := fs.Glob(templateFS, "templates/*/*.html")
	if err != nil {
		return nil, err
	}
	t := templates{}
	for _, page := range pages {
		name := strings.TrimPrefix(page, "templates/")
		if strings.HasPrefix(name, "partials/") {
			continue
		}
		ts, err := template.New("").Funcs(functions).ParseFS(templateFS,
			"templates/base.html",
			"templates/partials/*.html",
			page)
		if err != nil {
			return nil, fmt.Errorf("err parsing template %s: %w", name, err)
		}
		t[name] = ts
	}
	return t, nil
}

// render executes a page into a buffer first, so that a failing template
// never leaves a half written page behind.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, page string, data *templateData) {
	if data == nil {
		data = &templateData{}
	}
	data.Path = r.URL.Path
	if data.User == nil {
		data.User = auth.GetUser(r.Context())
	}
	data.CSRFField = csrf.TemplateField(r)

	buf := new(bytes.Buffer)
	err := fmt.Errorf("template %s does not exist", page)
	if ts, ok := s.templates[page]; ok {
		err = ts.ExecuteTemplate(buf, "base", data)
	}
	if err != nil {
		if page == "misc/500.html" {
			s.logger.Error().Err(err).Msg("rendering the error page failed")
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		s.serverError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// postURL returns the address of a post's detail page.
func postURL(username string, id int) string {
	return fmt.Sprintf("/%s/%d/", url.PathEscape(username), id)
}

// profileURL returns the address of a user's profile page.
func profileURL(username string) string {
	return "/" + url.PathEscape(username) + "/"
}
