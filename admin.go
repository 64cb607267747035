package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"yatube/crud"
	"yatube/database"
	"yatube/domain"
	"yatube/errs"
)

func (c *cli) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withDB(func(db *database.DB, _ *crud.Services) error {
				if err := database.AutoMigrate(db); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Database migrated")
				return nil
			})
		},
	}
}

func (c *cli) resetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Drop all tables and create them again",
		Long:  `Drop all tables and create them again. All data is lost.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if yes, _ := cmd.Flags().GetBool("yes"); !yes {
				return errors.New("refusing to reset the database without --yes")
			}
			return c.withDB(func(db *database.DB, _ *crud.Services) error {
				if err := database.DestructiveReset(db); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Database reset")
				return nil
			})
		},
	}
	cmd.Flags().Bool("yes", false, "confirm that all data may be deleted")
	return cmd
}

func (c *cli) groupsCmd() *cobra.Command {
	groups := &cobra.Command{
		Use:   "groups",
		Short: "Manage groups",
	}

	create := &cobra.Command{
		Use:   "create",
		Short: "Create a group",
		Example: `  # The slug is derived from the title unless given
  yatube groups create --title "Cats" --description "Everything about cats"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			g := &domain.Group{}
			g.Title, _ = cmd.Flags().GetString("title")
			g.Slug, _ = cmd.Flags().GetString("slug")
			g.Description, _ = cmd.Flags().GetString("description")
			return c.withDB(func(_ *database.DB, s *crud.Services) error {
				if err := s.Group.Create(cmd.Context(), g); err != nil {
					return describe(err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created group %q (/group/%s/)\n", g.Title, g.Slug)
				return nil
			})
		},
	}
	create.Flags().String("title", "", "group title (required)")
	create.Flags().String("slug", "", "address of the group page")
	create.Flags().String("description", "", "group description")
	_ = create.MarkFlagRequired("title")

	load := &cobra.Command{
		Use:   "load FILE",
		Short: "Create the groups listed in a YAML file",
		Long: `Create the groups listed in a YAML file. Groups whose slug already
exists are skipped, so a file can be loaded more than once.

Example file:
  groups:
    - title: Cats
      slug: cats
      description: Everything about cats`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fixtures, err := readGroupFixtures(args[0])
			if err != nil {
				return err
			}
			return c.withDB(func(_ *database.DB, s *crud.Services) error {
				created, skipped, err := loadGroups(cmd.Context(), s.Group, fixtures)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created %d groups, skipped %d existing\n", created, skipped)
				return nil
			})
		},
	}

	del := &cobra.Command{
		Use:   "delete SLUG",
		Short: "Delete a group. Its posts are kept without a group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withDB(func(_ *database.DB, s *crud.Services) error {
				g, err := s.Group.BySlug(cmd.Context(), args[0])
				if err != nil {
					return describe(err)
				}
				if err := s.Group.Delete(cmd.Context(), g.ID); err != nil {
					return describe(err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted group %q\n", g.Title)
				return nil
			})
		},
	}

	groups.AddCommand(create, load, del)
	return groups
}

func (c *cli) usersCmd() *cobra.Command {
	users := &cobra.Command{
		Use:   "users",
		Short: "Manage users",
	}
	del := &cobra.Command{
		Use:   "delete USERNAME",
		Short: "Delete a user together with their posts, comments and follows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withDB(func(_ *database.DB, s *crud.Services) error {
				ctx := cmd.Context()
				u, err := s.User.ByUsername(ctx, args[0])
				if err != nil {
					return describe(err)
				}
				// Posts go with the user, their images have to be removed by hand.
				posts, _, err := s.Post.Find(ctx, domain.PostFilter{AuthorID: &u.ID})
				if err != nil {
					return err
				}
				if err := s.User.Delete(ctx, u.ID); err != nil {
					return describe(err)
				}
				for _, p := range posts {
					if p.Image == "" {
						continue
					}
					if err := s.Image.Delete(p.Image); err != nil {
						fmt.Fprintf(cmd.ErrOrStderr(), "Removing image %s failed: %v\n", p.Image, err)
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted user %q and %d posts\n", u.Username, len(posts))
				return nil
			})
		},
	}
	users.AddCommand(del)
	return users
}

// withDB runs fn with an open database and the crud services on top of it.
func (c *cli) withDB(fn func(*database.DB, *crud.Services) error) error {
	db, services, err := c.open()
	if err != nil {
		return err
	}
	defer database.Close(db)
	return fn(db, services)
}

// describe turns application errors into the message meant for humans.
func describe(err error) error {
	if errs.ErrorCode(err) == errs.EINTERNAL {
		return err
	}
	if field := errs.ErrorField(err); field != "" {
		return fmt.Errorf("%s: %s", field, errs.ErrorMessage(err))
	}
	return errors.New(errs.ErrorMessage(err))
}

type groupFixture struct {
	Title       string `yaml:"title"`
	Slug        string `yaml:"slug"`
	Description string `yaml:"description"`
}

type groupFixtures struct {
	Groups []groupFixture `yaml:"groups"`
}

func readGroupFixtures(path string) ([]groupFixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	var f groupFixtures
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return f.Groups, nil
}

// loadGroups creates the groups of fixtures, skipping those whose slug
// is taken already.
func loadGroups(ctx context.Context, gs domain.GroupService, fixtures []groupFixture) (created, skipped int, err error) {
	for i, f := range fixtures {
		if f.Slug != "" {
			_, err := gs.BySlug(ctx, f.Slug)
			if err == nil {
				skipped++
				continue
			}
			if errs.ErrorCode(err) != errs.ENOTFOUND {
				return created, skipped, err
			}
		}
		g := &domain.Group{Title: f.Title, Slug: f.Slug, Description: f.Description}
		if err := gs.Create(ctx, g); err != nil {
			return created, skipped, fmt.Errorf("group %d (%q): %w", i+1, f.Title, describe(err))
		}
		created++
	}
	return created, skipped, nil
}
