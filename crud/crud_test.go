package crud

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"yatube/database"
	"yatube/domain"
)

// newTestServices returns all crud services on top of a fresh in-memory database.
func newTestServices(t *testing.T) *Services {
	t.Helper()
	db := database.NewDB(database.Config{Dialect: database.DialectSQLite, Path: ":memory:"})
	require.NoError(t, database.Open(db, true))
	require.NoError(t, database.AutoMigrate(db))
	t.Cleanup(func() { _ = database.Close(db) })

	s, err := NewServices(db.Gorm,
		WithUser("pepper", "hmac-key"),
		WithGroup(),
		WithPost(),
		WithComment(),
		WithFollow(),
		WithImage(t.TempDir()),
	)
	require.NoError(t, err)
	return s
}

func createUser(t *testing.T, s *Services, username string) *domain.User {
	t.Helper()
	u := &domain.User{Username: username, Password: "password123"}
	require.NoError(t, s.User.Create(context.Background(), u))
	return u
}

func createPost(t *testing.T, s *Services, author *domain.User, text string, group *domain.Group) *domain.Post {
	t.Helper()
	p := &domain.Post{Text: text, AuthorID: author.ID}
	if group != nil {
		p.GroupID = &group.ID
	}
	require.NoError(t, s.Post.Create(context.Background(), p))
	return p
}
