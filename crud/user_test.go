package crud

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yatube/domain"
	"yatube/errs"
)

func TestUserCreate(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()

	u := &domain.User{Username: "  leo ", Email: " Leo@Example.com", Password: "password123"}
	require.NoError(t, s.User.Create(ctx, u))

	assert.Equal(t, "leo", u.Username)
	assert.Equal(t, "leo@example.com", u.Email)
	assert.Empty(t, u.Password)
	assert.NotEmpty(t, u.PasswordHash)
	assert.NotEmpty(t, u.Remember)
	assert.NotEmpty(t, u.RememberHash)
}

func TestUserCreateValidation(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()
	createUser(t, s, "leo")

	tests := []struct {
		name  string
		user  domain.User
		field string
	}{
		{"missing username", domain.User{Password: "password123"}, "username"},
		{"username with spaces", domain.User{Username: "leo tolstoy", Password: "password123"}, "username"},
		{"taken username", domain.User{Username: "leo", Password: "password123"}, "username"},
		{"reserved username", domain.User{Username: "follow", Password: "password123"}, "username"},
		{"reserved username with spaces", domain.User{Username: " new ", Password: "password123"}, "username"},
		{"missing password", domain.User{Username: "ann"}, "password"},
		{"short password", domain.User{Username: "ann", Password: "short"}, "password"},
		{"invalid email", domain.User{Username: "ann", Password: "password123", Email: "ann@"}, "email"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.User.Create(ctx, &tt.user)
			require.Error(t, err)
			assert.Equal(t, errs.EINVALID, errs.ErrorCode(err))
			assert.Equal(t, tt.field, errs.ErrorField(err))
		})
	}
}

func TestUserReservedUsernames(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()

	for _, name := range []string{"follow", "new", "group", "auth", "about", "media", "metrics"} {
		err := s.User.Create(ctx, &domain.User{Username: name, Password: "password123"})
		assert.Equal(t, errs.EINVALID, errs.ErrorCode(err), name)
		assert.Equal(t, "username", errs.ErrorField(err), name)
	}

	// Only exact names are taken by routes.
	createUser(t, s, "Follow")
	createUser(t, s, "newbie")
}

func TestUserAuthenticate(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()
	created := createUser(t, s, "leo")

	u, err := s.User.Authenticate(ctx, "leo", "password123")
	require.NoError(t, err)
	assert.Equal(t, created.ID, u.ID)

	_, err = s.User.Authenticate(ctx, "leo", "wrong-password")
	assert.Equal(t, errs.EINVALID, errs.ErrorCode(err))

	_, err = s.User.Authenticate(ctx, "nobody", "password123")
	assert.Equal(t, errs.EINVALID, errs.ErrorCode(err))
}

func TestUserByRemember(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()
	created := createUser(t, s, "leo")

	u, err := s.User.ByRemember(ctx, created.Remember)
	require.NoError(t, err)
	assert.Equal(t, "leo", u.Username)

	// Rotating the token invalidates the old one.
	old := created.Remember
	token, err := s.User.MakeRememberToken()
	require.NoError(t, err)
	u.Remember = token
	require.NoError(t, s.User.Update(ctx, u))

	_, err = s.User.ByRemember(ctx, old)
	assert.Equal(t, errs.ENOTFOUND, errs.ErrorCode(err))
	_, err = s.User.ByRemember(ctx, token)
	assert.NoError(t, err)
}

func TestUserByUsername(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()
	createUser(t, s, "leo")

	u, err := s.User.ByUsername(ctx, "leo")
	require.NoError(t, err)
	assert.Equal(t, "leo", u.FullName())

	_, err = s.User.ByUsername(ctx, "ann")
	assert.Equal(t, errs.ENOTFOUND, errs.ErrorCode(err))
}

func TestUserDelete(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()
	u := createUser(t, s, "leo")
	createPost(t, s, u, "hello", nil)

	require.NoError(t, s.User.Delete(ctx, u.ID))

	_, n, err := s.Post.Find(ctx, domain.PostFilter{})
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, errs.EINVALID, errs.ErrorCode(s.User.Delete(ctx, 0)))
}
