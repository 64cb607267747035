package http

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yatube/domain"
	"yatube/events"
)

func TestPostListingsArePaginated(t *testing.T) {
	a := newTestApp(t)
	leo := a.createUser("leo")
	g := a.createGroup("Cats")
	for i := 0; i < 14; i++ {
		a.createPost(leo, fmt.Sprintf("post %d", i), g)
	}

	for _, base := range []string{"/", "/group/" + g.Slug + "/", "/leo/"} {
		t.Run(base, func(t *testing.T) {
			rec := a.get(base, nil)
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, 10, postCards(rec))
			assert.Contains(t, rec.Body.String(), `data-num-pages="2"`)

			rec = a.get(base+"?page=2", nil)
			assert.Equal(t, 4, postCards(rec))

			// Pages that aren't numbers show the first page, pages out of
			// range the last one.
			assert.Equal(t, 10, postCards(a.get(base+"?page=abc", nil)))
			assert.Equal(t, 4, postCards(a.get(base+"?page=99", nil)))
		})
	}
}

func TestIndexShowsNewestFirst(t *testing.T) {
	a := newTestApp(t)
	leo := a.createUser("leo")
	older := a.createPost(leo, "older", nil)
	newer := a.createPost(leo, "newer", nil)

	body := a.get("/", nil).Body.String()
	iNewer := strings.Index(body, fmt.Sprintf(`data-post-id="%d"`, newer.ID))
	iOlder := strings.Index(body, fmt.Sprintf(`data-post-id="%d"`, older.ID))
	require.NotEqual(t, -1, iNewer)
	require.NotEqual(t, -1, iOlder)
	assert.Less(t, iNewer, iOlder)
}

func TestIndexIsCached(t *testing.T) {
	a := newTestApp(t)
	leo := a.createUser("leo")

	assert.Equal(t, 0, postCards(a.get("/", nil)))
	a.createPost(leo, "fresh post", nil)

	// The cached page is served until the cache is cleared.
	assert.Equal(t, 0, postCards(a.get("/", nil)))
	// Other page parameters are cached separately.
	assert.Equal(t, 1, postCards(a.get("/?page=1", nil)))

	a.index.Purge()
	assert.Equal(t, 1, postCards(a.get("/", nil)))
}

func TestIndexKeepsDeletedPostUntilCleared(t *testing.T) {
	a := newTestApp(t)
	leo := a.createUser("leo")
	post := a.createPost(leo, "soon gone", nil)

	assert.Contains(t, a.get("/", nil).Body.String(), "soon gone")
	require.NoError(t, a.services.Post.Delete(context.Background(), post.ID))
	assert.Contains(t, a.get("/", nil).Body.String(), "soon gone")

	a.index.Purge()
	assert.NotContains(t, a.get("/", nil).Body.String(), "soon gone")
}

func TestIndexCacheIsBounded(t *testing.T) {
	a := newTestApp(t, withCacheSize(20))
	leo := a.createUser("leo")
	a.createPost(leo, "only post", nil)

	// Every distinct page value is a cache key of its own.
	for i := 0; i < 100; i++ {
		rec := a.get(fmt.Sprintf("/?page=x%d", i), nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 1, postCards(rec))
	}
	assert.Equal(t, 20, a.index.Len())
}

func TestIndexCacheExpires(t *testing.T) {
	a := newTestApp(t, withCacheTTL(50*time.Millisecond))
	leo := a.createUser("leo")

	assert.Equal(t, 0, postCards(a.get("/", nil)))
	a.createPost(leo, "fresh post", nil)
	assert.Equal(t, 0, postCards(a.get("/", nil)))

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, postCards(a.get("/", nil)))
}

func TestGroupPage(t *testing.T) {
	a := newTestApp(t)
	leo := a.createUser("leo")
	cats := a.createGroup("Cats")
	dogs := a.createGroup("Dogs")
	a.createPost(leo, "meow", cats)
	a.createPost(leo, "woof", dogs)
	a.createPost(leo, "no group", nil)

	rec := a.get("/group/"+cats.Slug+"/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, postCards(rec))
	assert.Contains(t, rec.Body.String(), "meow")
	assert.Contains(t, rec.Body.String(), "All about Cats")
	assert.NotContains(t, rec.Body.String(), "woof")

	assert.Equal(t, http.StatusNotFound, a.get("/group/birds/", nil).Code)
}

func TestProfilePage(t *testing.T) {
	a := newTestApp(t)
	leo := a.createUser("leo")
	ann := a.createUser("ann")
	a.createPost(leo, "by leo", nil)
	a.createPost(ann, "by ann", nil)

	rec := a.get("/leo/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "by leo")
	assert.NotContains(t, body, "by ann")
	assert.Contains(t, body, `<span class="post-count">1</span>`)
	// Anonymous visitors get no follow buttons.
	assert.NotContains(t, body, `class="button follow"`)

	assert.Contains(t, a.get("/leo/", ann).Body.String(), `class="button follow"`)
	// Nobody can follow themselves.
	assert.NotContains(t, a.get("/leo/", leo).Body.String(), `class="button follow"`)
}

func TestPostDetail(t *testing.T) {
	a := newTestApp(t)
	leo := a.createUser("leo")
	ann := a.createUser("ann")
	post := a.createPost(leo, "first line\nsecond line", nil)
	path := postURL("leo", post.ID)

	rec := a.get(path, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "<p>first line</p>")
	assert.Contains(t, body, "<p>second line</p>")
	assert.Contains(t, body, "No comments yet.")
	assert.NotContains(t, body, `class="button edit"`)
	assert.NotContains(t, body, `class="comment-form"`)

	body = a.get(path, leo).Body.String()
	assert.Contains(t, body, `class="button edit"`)
	assert.Contains(t, body, `class="comment-form"`)

	body = a.get(path, ann).Body.String()
	assert.NotContains(t, body, `class="button edit"`)
	assert.Contains(t, body, `class="comment-form"`)

	// The post must be addressed through its author.
	assert.Equal(t, http.StatusNotFound, a.get(postURL("ann", post.ID), nil).Code)
	assert.Equal(t, http.StatusNotFound, a.get(postURL("leo", post.ID+100), nil).Code)
}

func TestNewPostRequiresUser(t *testing.T) {
	a := newTestApp(t)

	rec := a.get("/new/", nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/auth/login/?next=/new/", rec.Header().Get("Location"))

	rec = a.postForm("/new/", nil, url.Values{"text": {"sneaky"}})
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Zero(t, a.countPosts())
}

func TestNewPost(t *testing.T) {
	a := newTestApp(t)
	leo := a.createUser("leo")
	g := a.createGroup("Cats")

	rec := a.get("/new/", leo)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "New post")
	assert.Contains(t, rec.Body.String(), ">Cats</option>")

	rec = a.postForm("/new/", leo, url.Values{
		"text":  {"hello world"},
		"group": {strconv.Itoa(g.ID)},
	})
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	posts, n, err := a.services.Post.Find(context.Background(), domain.PostFilter{})
	require.NoError(t, err)
	require.Equal(t, 1, n)
	assert.Equal(t, "hello world", posts[0].Text)
	assert.Equal(t, leo.ID, posts[0].AuthorID)
	require.NotNil(t, posts[0].GroupID)
	assert.Equal(t, g.ID, *posts[0].GroupID)

	require.Len(t, a.events.Events, 1)
	assert.Equal(t, events.PostCreated, a.events.Events[0].Type)
	assert.Equal(t, posts[0].ID, a.events.Events[0].PostID)
}

func TestNewPostInvalid(t *testing.T) {
	a := newTestApp(t)
	leo := a.createUser("leo")

	tests := []struct {
		name   string
		values url.Values
		field  string
	}{
		{"empty text", url.Values{"text": {"   "}}, "text"},
		{"unknown group", url.Values{"text": {"hi"}, "group": {"999"}}, "group"},
		{"malformed group", url.Values{"text": {"hi"}, "group": {"cats"}}, "group"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := a.postForm("/new/", leo, tt.values)
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Contains(t, rec.Body.String(), `data-field="`+tt.field+`"`)
			assert.Zero(t, a.countPosts())
		})
	}
	assert.Empty(t, a.events.Events)
}

func TestNewPostWithImage(t *testing.T) {
	a := newTestApp(t)
	leo := a.createUser("leo")

	rec := a.postMultipart("/new/", leo, url.Values{"text": {"look"}}, "cat.gif", smallGIF)
	require.Equal(t, http.StatusFound, rec.Code)

	posts, _, err := a.services.Post.Find(context.Background(), domain.PostFilter{})
	require.NoError(t, err)
	require.Len(t, posts, 1)
	image := posts[0].Image
	require.NotEmpty(t, image)
	assert.FileExists(t, filepath.Join(a.mediaRoot, filepath.FromSlash(image)))

	body := a.get("/", nil).Body.String()
	assert.Contains(t, body, `src="`+domain.MediaURL+image+`"`)

	media := a.get(domain.MediaURL+image, nil)
	assert.Equal(t, http.StatusOK, media.Code)
	assert.Equal(t, smallGIF, media.Body.Bytes())
}

func TestNewPostRejectsNonImage(t *testing.T) {
	a := newTestApp(t)
	leo := a.createUser("leo")

	rec := a.postMultipart("/new/", leo, url.Values{"text": {"look"}}, "notes.txt", []byte("just some text"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `data-field="image"`)
	assert.Zero(t, a.countPosts())

	entries, err := os.ReadDir(filepath.Join(a.mediaRoot, domain.ImagesDir))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestEditPostRequiresUser(t *testing.T) {
	a := newTestApp(t)
	leo := a.createUser("leo")
	post := a.createPost(leo, "original", nil)
	path := postURL("leo", post.ID) + "edit/"

	rec := a.get(path, nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/auth/login/?next="+path, rec.Header().Get("Location"))
}

func TestEditPostByOwner(t *testing.T) {
	a := newTestApp(t)
	leo := a.createUser("leo")
	g := a.createGroup("Cats")
	post := a.createPost(leo, "original", g)
	detail := postURL("leo", post.ID)

	rec := a.get(detail+"edit/", leo)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Edit post")
	assert.Contains(t, rec.Body.String(), "original")
	assert.Contains(t, rec.Body.String(), " selected>Cats</option>")

	rec = a.postForm(detail+"edit/", leo, url.Values{"text": {"edited"}, "group": {""}})
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, detail, rec.Header().Get("Location"))

	got, err := a.services.Post.ByID(context.Background(), post.ID)
	require.NoError(t, err)
	assert.Equal(t, "edited", got.Text)
	assert.Nil(t, got.GroupID)
	assert.Equal(t, leo.ID, got.AuthorID)
	assert.True(t, post.PubDate.Equal(got.PubDate), "publication date must not change")
	assert.Equal(t, []string{events.PostEdited}, a.events.Types())
}

func TestEditPostInvalid(t *testing.T) {
	a := newTestApp(t)
	leo := a.createUser("leo")
	post := a.createPost(leo, "original", nil)

	rec := a.postForm(postURL("leo", post.ID)+"edit/", leo, url.Values{"text": {""}})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `data-field="text"`)

	got, err := a.services.Post.ByID(context.Background(), post.ID)
	require.NoError(t, err)
	assert.Equal(t, "original", got.Text)
}

func TestEditPostByOtherUser(t *testing.T) {
	a := newTestApp(t)
	leo := a.createUser("leo")
	ann := a.createUser("ann")
	post := a.createPost(leo, "original", nil)
	detail := postURL("leo", post.ID)

	for _, rec := range []*httptest.ResponseRecorder{
		a.get(detail+"edit/", ann),
		a.postForm(detail+"edit/", ann, url.Values{"text": {"hijacked"}}),
	} {
		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, detail, rec.Header().Get("Location"))
	}

	got, err := a.services.Post.ByID(context.Background(), post.ID)
	require.NoError(t, err)
	assert.Equal(t, "original", got.Text)

	// Addressing leo's post through ann doesn't find it.
	assert.Equal(t, http.StatusNotFound, a.get(postURL("ann", post.ID)+"edit/", ann).Code)
}

func TestEditPostImage(t *testing.T) {
	a := newTestApp(t)
	leo := a.createUser("leo")

	rec := a.postMultipart("/new/", leo, url.Values{"text": {"look"}}, "cat.gif", smallGIF)
	require.Equal(t, http.StatusFound, rec.Code)
	posts, _, err := a.services.Post.Find(context.Background(), domain.PostFilter{})
	require.NoError(t, err)
	require.Len(t, posts, 1)
	post := posts[0]
	edit := postURL("leo", post.ID) + "edit/"
	first := filepath.Join(a.mediaRoot, filepath.FromSlash(post.Image))

	assert.Contains(t, a.get(edit, leo).Body.String(), `name="image-clear"`)

	// Editing without a new upload keeps the image.
	rec = a.postMultipart(edit, leo, url.Values{"text": {"still looking"}}, "", nil)
	require.Equal(t, http.StatusFound, rec.Code)
	got, err := a.services.Post.ByID(context.Background(), post.ID)
	require.NoError(t, err)
	assert.Equal(t, post.Image, got.Image)

	// A new upload replaces the old file.
	rec = a.postMultipart(edit, leo, url.Values{"text": {"new picture"}}, "dog.gif", smallGIF)
	require.Equal(t, http.StatusFound, rec.Code)
	got, err = a.services.Post.ByID(context.Background(), post.ID)
	require.NoError(t, err)
	require.NotEmpty(t, got.Image)
	assert.NotEqual(t, post.Image, got.Image)
	assert.NoFileExists(t, first)
	second := filepath.Join(a.mediaRoot, filepath.FromSlash(got.Image))
	assert.FileExists(t, second)

	// Clearing removes image and file.
	rec = a.postMultipart(edit, leo, url.Values{"text": {"no picture"}, "image-clear": {"on"}}, "", nil)
	require.Equal(t, http.StatusFound, rec.Code)
	got, err = a.services.Post.ByID(context.Background(), post.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Image)
	assert.NoFileExists(t, second)
}
