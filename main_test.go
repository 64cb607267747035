package main

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yatube/database"
	"yatube/domain"
	"yatube/errs"
)

var smallGIF = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x02, 0x00,
	0x01, 0x00, 0x80, 0x00, 0x00, 0x00, 0x00, 0x00,
	0xFF, 0xFF, 0xFF, 0x21, 0xF9, 0x04, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x2C, 0x00, 0x00, 0x00, 0x00,
	0x02, 0x00, 0x01, 0x00, 0x00, 0x02, 0x02, 0x0C,
	0x0A, 0x00, 0x3B,
}

// testConfig writes a config file using a sqlite database and media root
// in a temporary directory.
func testConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	return writeFile(t, dir, "config.yaml", fmt.Sprintf(`
media_root: %s
log:
  level: error
database:
  dialect: sqlite
  path: %s
`, filepath.Join(dir, "media"), filepath.Join(dir, "yatube.db")))
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// openCLI loads the config at path the way commands do.
func openCLI(t *testing.T, path string) *cli {
	t.Helper()
	c := &cli{configPath: path}
	require.NoError(t, c.loadConfig(nil, nil))
	return c
}

func TestGroupsCommands(t *testing.T) {
	cfg := testConfig(t)

	_, err := run(t, "--config", cfg, "migrate")
	require.NoError(t, err)

	out, err := run(t, "--config", cfg, "groups", "create", "--title", "Cats", "--description", "Everything about cats")
	require.NoError(t, err)
	assert.Contains(t, out, "/group/cats/")

	_, err = run(t, "--config", cfg, "groups", "create", "--title", "Cats")
	assert.ErrorContains(t, err, "slug")

	fixtures := writeFile(t, t.TempDir(), "groups.yaml", `
groups:
  - title: Cats
    slug: cats
  - title: Dogs
    slug: dogs
    description: Everything about dogs
  - title: Birds of Prey
`)
	out, err = run(t, "--config", cfg, "groups", "load", fixtures)
	require.NoError(t, err)
	assert.Contains(t, out, "Created 2 groups, skipped 1 existing")

	c := openCLI(t, cfg)
	db, s, err := c.open()
	require.NoError(t, err)
	groups, err := s.Group.All(context.Background())
	require.NoError(t, err)
	require.NoError(t, database.Close(db))
	var slugs []string
	for _, g := range groups {
		slugs = append(slugs, g.Slug)
	}
	assert.ElementsMatch(t, []string{"cats", "dogs", "birds-of-prey"}, slugs)

	out, err = run(t, "--config", cfg, "groups", "delete", "dogs")
	require.NoError(t, err)
	assert.Contains(t, out, `Deleted group "Dogs"`)

	_, err = run(t, "--config", cfg, "groups", "delete", "dogs")
	assert.Error(t, err)
}

func TestUsersDeleteRemovesImages(t *testing.T) {
	cfg := testConfig(t)
	_, err := run(t, "--config", cfg, "migrate")
	require.NoError(t, err)

	c := openCLI(t, cfg)
	db, s, err := c.open()
	require.NoError(t, err)
	ctx := context.Background()
	leo := &domain.User{Username: "leo", Password: "password123"}
	require.NoError(t, s.User.Create(ctx, leo))
	img := &domain.Image{File: bytes.NewReader(smallGIF), Filename: "cat.gif"}
	require.NoError(t, s.Image.Create(img))
	post := &domain.Post{Text: "look", AuthorID: leo.ID, Image: img.RelativePath()}
	require.NoError(t, s.Post.Create(ctx, post))
	imagePath := filepath.Join(c.cfg.MediaRoot, filepath.FromSlash(post.Image))
	require.FileExists(t, imagePath)
	require.NoError(t, database.Close(db))

	out, err := run(t, "--config", cfg, "users", "delete", "leo")
	require.NoError(t, err)
	assert.Contains(t, out, `Deleted user "leo" and 1 posts`)
	assert.NoFileExists(t, imagePath)

	db, s, err = c.open()
	require.NoError(t, err)
	defer database.Close(db)
	_, err = s.Post.ByID(ctx, post.ID)
	assert.Equal(t, errs.ENOTFOUND, errs.ErrorCode(err))

	_, err = run(t, "--config", cfg, "users", "delete", "leo")
	assert.Error(t, err)
}

func TestResetRequiresConfirmation(t *testing.T) {
	cfg := testConfig(t)

	_, err := run(t, "--config", cfg, "reset")
	assert.ErrorContains(t, err, "--yes")

	out, err := run(t, "--config", cfg, "reset", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "Database reset")
}

func TestProdRequiresConfigFile(t *testing.T) {
	chdir(t, t.TempDir())
	_, err := run(t, "--prod", "migrate")
	assert.ErrorContains(t, err, "required in production")
}
