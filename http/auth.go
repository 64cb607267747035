package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"yatube/auth"
	"yatube/domain"
)

func (s *Server) registerAuthRoutes(r *mux.Router) {
	r.HandleFunc("/auth/signup/", s.handleSignup).Methods("GET", "POST")
	r.HandleFunc(auth.LoginPath, s.handleLogin).Methods("GET", "POST")
	r.HandleFunc("/auth/logout/", s.handleLogout).Methods("GET")
}

// handleSignup handles the route "GET|POST /auth/signup/".
// A valid POST creates the user and sends them to the login page.
func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	form := &SignupForm{Errors: FormErrors{}}
	if r.Method == http.MethodGet {
		s.renderSignup(w, r, form)
		return
	}
	if err := parseForm(w, r); err != nil {
		s.serverError(w, r, err)
		return
	}
	form = newSignupForm(r)

	user, err := form.user()
	if err == nil {
		err = s.us.Create(r.Context(), user)
	}
	if err != nil {
		if !form.Errors.add(err) {
			s.serverError(w, r, err)
			return
		}
		// Passwords are never sent back.
		form.Password1, form.Password2 = "", ""
		s.renderSignup(w, r, form)
		return
	}
	s.logger.Info().Str("username", user.Username).Msg("user signed up")
	http.Redirect(w, r, auth.LoginPath, http.StatusFound)
}

func (s *Server) renderSignup(w http.ResponseWriter, r *http.Request, form *SignupForm) {
	s.render(w, r, http.StatusOK, "users/signup.html", &templateData{Title: "Sign up", SignupForm: form})
}

// handleLogin handles the route "GET|POST /auth/login/".
// A valid POST signs the user in and sends them to the page given by the
// "next" parameter, or to the home page.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	form := &LoginForm{Next: r.URL.Query().Get("next"), Errors: FormErrors{}}
	if r.Method == http.MethodGet {
		s.renderLogin(w, r, form)
		return
	}
	if err := parseForm(w, r); err != nil {
		s.serverError(w, r, err)
		return
	}
	form = newLoginForm(r)

	user, err := s.us.Authenticate(r.Context(), form.Username, form.Password)
	if err != nil {
		if !form.Errors.add(err) {
			s.serverError(w, r, err)
			return
		}
		form.Password = ""
		s.renderLogin(w, r, form)
		return
	}
	if err := s.signIn(r.Context(), w, user); err != nil {
		s.serverError(w, r, err)
		return
	}
	http.Redirect(w, r, auth.SafeNext(form.Next, "/"), http.StatusFound)
}

func (s *Server) renderLogin(w http.ResponseWriter, r *http.Request, form *LoginForm) {
	s.render(w, r, http.StatusOK, "users/login.html", &templateData{Title: "Log in", LoginForm: form})
}

// handleLogout handles the route "GET /auth/logout/".
// It rotates the remember token, so that copies of the old cookie stop
// working, and clears the cookie.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if user := auth.GetUser(r.Context()); user != nil {
		token, err := s.us.MakeRememberToken()
		if err != nil {
			s.serverError(w, r, err)
			return
		}
		user.Remember = token
		if err := s.us.Update(r.Context(), user); err != nil {
			s.serverError(w, r, err)
			return
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     auth.RememberCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
	})
	// The page must not show the user as signed in anymore.
	r = r.WithContext(auth.SetUser(r.Context(), nil))
	s.render(w, r, http.StatusOK, "users/logged_out.html", &templateData{Title: "Logged out"})
}

// signIn sets the remember token cookie of the user. A user that has no
// token in memory gets a new one, which is stored before the cookie is set.
func (s *Server) signIn(ctx context.Context, w http.ResponseWriter, user *domain.User) error {
	if user.Remember == "" {
		token, err := s.us.MakeRememberToken()
		if err != nil {
			return err
		}
		user.Remember = token
		if err := s.us.Update(ctx, user); err != nil {
			return err
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     auth.RememberCookie,
		Value:    user.Remember,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.isProd,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}
