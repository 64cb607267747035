package auth

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"yatube/domain"
)

const (
	// RememberCookie is the name of the cookie holding the remember token.
	RememberCookie = "remember_token"
	// LoginPath is where anonymous users are sent when they request a page
	// that requires a signed in user.
	LoginPath = "/auth/login/"
)

// UserFinder looks up users by their remember token.
type UserFinder interface {
	ByRemember(ctx context.Context, token string) (*domain.User, error)
}

// UserMw identifies the user of a request through the remember token cookie
// and stores them in the request context.
type UserMw struct {
	Users UserFinder
}

func (mw *UserMw) Apply(next http.Handler) http.Handler {
	return mw.ApplyFn(next.ServeHTTP)
}

func (mw *UserMw) ApplyFn(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		// If the user is requesting an uploaded file or metrics
		// we will not need to lookup the current user so we skip
		// doing that.
		if strings.HasPrefix(path, domain.MediaURL) || path == "/metrics" {
			next(w, r)
			return
		}
		cookie, err := r.Cookie(RememberCookie)
		if err != nil || cookie.Value == "" {
			next(w, r)
			return
		}
		user, err := mw.Users.ByRemember(r.Context(), cookie.Value)
		if err != nil {
			next(w, r)
			return
		}
		next(w, r.WithContext(SetUser(r.Context(), user)))
	}
}

// RequireUserMw assumes that User middleware has already been run
// otherwise it will not work correctly. Anonymous requests are redirected
// to the login page, which sends the user back once they are signed in.
type RequireUserMw struct{}

func (mw *RequireUserMw) Apply(next http.Handler) http.Handler {
	return mw.ApplyFn(next.ServeHTTP)
}

func (mw *RequireUserMw) ApplyFn(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if GetUser(r.Context()) == nil {
			http.Redirect(w, r, LoginURL(r.URL.Path), http.StatusFound)
			return
		}
		next(w, r)
	}
}

// LoginURL returns the login page URL that returns to next after signing in.
// Slashes stay readable: /auth/login/?next=/new/
func LoginURL(next string) string {
	return LoginPath + "?next=" + strings.ReplaceAll(url.QueryEscape(next), "%2F", "/")
}

// SafeNext returns next if it is a local path, and fallback otherwise,
// so that the login form cannot redirect to other sites.
func SafeNext(next, fallback string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return fallback
	}
	return next
}
