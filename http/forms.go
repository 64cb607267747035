package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"yatube/domain"
	"yatube/errs"
)

// maxFormSize bounds the size of a submitted form including an uploaded image.
const maxFormSize = domain.MaxUploadSize + 1<<20

// nonFieldErrors is the key of form errors that belong to no single field.
const nonFieldErrors = "__all__"

// FormErrors maps form field names to the message shown next to the field.
type FormErrors map[string]string

// add records a validation error. It reports false for errors that are not
// validation errors, which the caller has to handle as internal errors.
func (fe FormErrors) add(err error) bool {
	if errs.ErrorCode(err) != errs.EINVALID {
		return false
	}
	field := errs.ErrorField(err)
	if field == "" {
		field = nonFieldErrors
	}
	fe[field] = errs.ErrorMessage(err)
	return true
}

// Get returns the error of a field, for use in templates.
func (fe FormErrors) Get(field string) string {
	return fe[field]
}

// NonField returns the error that belongs to no single field.
func (fe FormErrors) NonField() string {
	return fe[nonFieldErrors]
}

// parseForm parses urlencoded as well as multipart forms.
func parseForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormSize)
	err := r.ParseMultipartForm(32 << 20)
	if errors.Is(err, http.ErrNotMultipart) {
		return r.ParseForm()
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) || (err != nil && strings.Contains(err.Error(), "request body too large")) {
		return errs.FieldErrorf("image", "The submitted form is too large.")
	}
	return err
}

// PostForm holds the values of the post create and edit form.
type PostForm struct {
	Text       string
	Group      string
	ImageClear bool
	Errors     FormErrors
}

func newPostForm(r *http.Request) *PostForm {
	return &PostForm{
		Text:       r.PostFormValue("text"),
		Group:      strings.TrimSpace(r.PostFormValue("group")),
		ImageClear: r.PostFormValue("image-clear") != "",
		Errors:     FormErrors{},
	}
}

// postFormFrom fills the form with the values of an existing post.
func postFormFrom(post *domain.Post) *PostForm {
	f := &PostForm{Text: post.Text, Errors: FormErrors{}}
	if post.GroupID != nil {
		f.Group = strconv.Itoa(*post.GroupID)
	}
	return f
}

// GroupID returns the selected group, or nil if none was chosen.
func (f *PostForm) GroupID() (*int, error) {
	if f.Group == "" {
		return nil, nil
	}
	id, err := strconv.Atoi(f.Group)
	if err != nil || id <= 0 {
		return nil, errs.FieldErrorf("group", "Select a valid choice. That choice is not one of the available choices.")
	}
	return &id, nil
}

// Selected reports whether the group with the given id is chosen.
func (f *PostForm) Selected(id int) bool {
	return f.Group == strconv.Itoa(id)
}

// CommentForm holds the values of the comment form.
type CommentForm struct {
	Text   string
	Errors FormErrors
}

func newCommentForm(r *http.Request) *CommentForm {
	return &CommentForm{
		Text:   r.PostFormValue("text"),
		Errors: FormErrors{},
	}
}

// SignupForm holds the values of the signup form.
type SignupForm struct {
	FirstName string
	LastName  string
	Username  string
	Email     string
	Password1 string
	Password2 string
	Errors    FormErrors
}

func newSignupForm(r *http.Request) *SignupForm {
	return &SignupForm{
		FirstName: strings.TrimSpace(r.PostFormValue("first_name")),
		LastName:  strings.TrimSpace(r.PostFormValue("last_name")),
		Username:  r.PostFormValue("username"),
		Email:     r.PostFormValue("email"),
		Password1: r.PostFormValue("password1"),
		Password2: r.PostFormValue("password2"),
		Errors:    FormErrors{},
	}
}

// user returns the user described by the form. The passwords must match.
func (f *SignupForm) user() (*domain.User, error) {
	if f.Password1 != f.Password2 {
		return nil, errs.FieldErrorf("password2", "The two password fields didn't match.")
	}
	return &domain.User{
		Username:  f.Username,
		FirstName: f.FirstName,
		LastName:  f.LastName,
		Email:     f.Email,
		Password:  f.Password1,
	}, nil
}

// LoginForm holds the values of the login form.
type LoginForm struct {
	Username string
	Password string
	Next     string
	Errors   FormErrors
}

func newLoginForm(r *http.Request) *LoginForm {
	return &LoginForm{
		Username: r.PostFormValue("username"),
		Password: r.PostFormValue("password"),
		Next:     r.FormValue("next"),
		Errors:   FormErrors{},
	}
}
