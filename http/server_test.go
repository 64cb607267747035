package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yatube/auth"
	"yatube/cache"
	"yatube/crud"
	"yatube/database"
	"yatube/domain"
	"yatube/errs"
	"yatube/events"
	"yatube/log"
	"yatube/paginate"
)

var smallGIF = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x02, 0x00,
	0x01, 0x00, 0x80, 0x00, 0x00, 0x00, 0x00, 0x00,
	0xFF, 0xFF, 0xFF, 0x21, 0xF9, 0x04, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x2C, 0x00, 0x00, 0x00, 0x00,
	0x02, 0x00, 0x01, 0x00, 0x00, 0x02, 0x02, 0x0C,
	0x0A, 0x00, 0x3B,
}

// testApp is a server on top of a fresh in-memory database.
type testApp struct {
	t         *testing.T
	srv       *Server
	services  *crud.Services
	index     *expirable.LRU[string, *paginate.Page[domain.Post]]
	events    *events.Recorder
	mediaRoot string
}

// testSettings are the knobs a test can turn before the server is built.
type testSettings struct {
	cfg       Config
	cacheTTL  time.Duration
	cacheSize int
}

type testOption func(*testSettings)

func withCSRF(key string) testOption {
	return func(s *testSettings) { s.cfg.CSRFKey = key }
}

func withCacheTTL(d time.Duration) testOption {
	return func(s *testSettings) { s.cacheTTL = d }
}

func withCacheSize(n int) testOption {
	return func(s *testSettings) { s.cacheSize = n }
}

// TestMain keeps request logs out of the test output. Warnings and errors
// are still shown.
func TestMain(m *testing.M) {
	log.Init(log.Config{Level: log.WarnLevel, JSONOutput: true})
	os.Exit(m.Run())
}

func newTestApp(t *testing.T, opts ...testOption) *testApp {
	t.Helper()
	db := database.NewDB(database.Config{Dialect: database.DialectSQLite, Path: ":memory:"})
	require.NoError(t, database.Open(db, true))
	require.NoError(t, database.AutoMigrate(db))
	t.Cleanup(func() { _ = database.Close(db) })

	mediaRoot := t.TempDir()
	services, err := crud.NewServices(db.Gorm,
		crud.WithUser("pepper", "hmac-key"),
		crud.WithGroup(),
		crud.WithPost(),
		crud.WithComment(),
		crud.WithFollow(),
		crud.WithImage(mediaRoot),
	)
	require.NoError(t, err)

	settings := testSettings{
		cfg:       Config{MediaRoot: mediaRoot},
		cacheTTL:  20 * time.Second,
		cacheSize: cache.DefaultSize,
	}
	for _, opt := range opts {
		opt(&settings)
	}
	index := cache.NewMemory[*paginate.Page[domain.Post]](settings.cacheSize, settings.cacheTTL)
	recorder := &events.Recorder{}
	srv, err := NewServer(settings.cfg, services, index, recorder)
	require.NoError(t, err)

	return &testApp{
		t:         t,
		srv:       srv,
		services:  services,
		index:     index,
		events:    recorder,
		mediaRoot: mediaRoot,
	}
}

func (a *testApp) createUser(username string) *domain.User {
	a.t.Helper()
	u := &domain.User{Username: username, Password: "password123"}
	require.NoError(a.t, a.services.User.Create(context.Background(), u))
	return u
}

func (a *testApp) createGroup(title string) *domain.Group {
	a.t.Helper()
	g := &domain.Group{Title: title, Description: "All about " + title}
	require.NoError(a.t, a.services.Group.Create(context.Background(), g))
	return g
}

func (a *testApp) createPost(author *domain.User, text string, group *domain.Group) *domain.Post {
	a.t.Helper()
	p := &domain.Post{Text: text, AuthorID: author.ID}
	if group != nil {
		p.GroupID = &group.ID
	}
	require.NoError(a.t, a.services.Post.Create(context.Background(), p))
	return p
}

func (a *testApp) countPosts() int {
	a.t.Helper()
	_, n, err := a.services.Post.Find(context.Background(), domain.PostFilter{})
	require.NoError(a.t, err)
	return n
}

// do serves req as the given user, or anonymously if user is nil.
func (a *testApp) do(req *http.Request, user *domain.User) *httptest.ResponseRecorder {
	if user != nil {
		req.AddCookie(&http.Cookie{Name: auth.RememberCookie, Value: user.Remember})
	}
	rec := httptest.NewRecorder()
	a.srv.ServeHTTP(rec, req)
	return rec
}

func (a *testApp) get(path string, user *domain.User) *httptest.ResponseRecorder {
	return a.do(httptest.NewRequest("GET", path, nil), user)
}

func (a *testApp) postForm(path string, user *domain.User, values url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return a.do(req, user)
}

func (a *testApp) postMultipart(path string, user *domain.User, values url.Values, filename string, content []byte) *httptest.ResponseRecorder {
	a.t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	for k, vs := range values {
		for _, v := range vs {
			require.NoError(a.t, mw.WriteField(k, v))
		}
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("image", filename)
		require.NoError(a.t, err)
		_, err = fw.Write(content)
		require.NoError(a.t, err)
	}
	require.NoError(a.t, mw.Close())

	req := httptest.NewRequest("POST", path, body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return a.do(req, user)
}

// postCards returns how many post cards a rendered page contains.
func postCards(rec *httptest.ResponseRecorder) int {
	return strings.Count(rec.Body.String(), `class="post" data-post-id=`)
}

func TestAboutPages(t *testing.T) {
	a := newTestApp(t)
	for _, path := range []string{"/about/author/", "/about/tech/"} {
		rec := a.get(path, nil)
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	}
}

func TestNotFoundPage(t *testing.T) {
	a := newTestApp(t)

	rec := a.get("/no/such/page/here/", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Page not found")
	assert.Contains(t, rec.Body.String(), "/no/such/page/here/")

	rec = a.get("/nobody/", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleErrorStatus(t *testing.T) {
	a := newTestApp(t)
	tests := []struct {
		name string
		err  error
		want int
		page string
	}{
		{"not found", errs.Errorf(errs.ENOTFOUND, "post not found"), http.StatusNotFound, "Page not found"},
		{"wrapped not found", fmt.Errorf("loading post: %w", errs.Errorf(errs.ENOTFOUND, "post not found")), http.StatusNotFound, "Page not found"},
		{"invalid", errs.Errorf(errs.EINVALID, "bad id"), http.StatusInternalServerError, "Server error"},
		{"internal", errs.Errorf(errs.EINTERNAL, "broken"), http.StatusInternalServerError, "Server error"},
		{"plain", errors.New("connection refused"), http.StatusInternalServerError, "Server error"},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := fmt.Sprintf("/test/errors/%d/case/", i)
			a.srv.router.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
				a.srv.handleError(w, r, tt.err)
			})
			rec := a.get(path, nil)
			assert.Equal(t, tt.want, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.page)
		})
	}
}

func TestMissingTrailingSlashRedirects(t *testing.T) {
	a := newTestApp(t)
	rec := a.get("/about/tech", nil)
	assert.Equal(t, http.StatusMovedPermanently, rec.Code)
	assert.Equal(t, "/about/tech/", rec.Header().Get("Location"))
}

func TestPanicRendersServerError(t *testing.T) {
	a := newTestApp(t)
	a.srv.router.HandleFunc("/test/panic/now/please/", func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	rec := a.get("/test/panic/now/please/", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Server error")
}

func TestMetricsEndpoint(t *testing.T) {
	a := newTestApp(t)
	a.get("/", nil)

	rec := a.get("/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "yatube_http_requests_total")
}

func TestCSRFProtection(t *testing.T) {
	a := newTestApp(t, withCSRF("01234567890123456789012345678901"))
	leo := a.createUser("leo")

	rec := a.get("/new/", leo)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `name="gorilla.csrf.Token"`)

	rec = a.postForm("/new/", leo, url.Values{"text": {"no token"}})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Zero(t, a.countPosts())
}

func TestSignedInUserInNavigation(t *testing.T) {
	a := newTestApp(t)
	leo := a.createUser("leo")

	assert.Contains(t, a.get("/", leo).Body.String(), "Signed in as")
	assert.NotContains(t, a.get("/", nil).Body.String(), "Signed in as")
}
