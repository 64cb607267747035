package crud

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/gosimple/slug"
	"gorm.io/gorm"

	"yatube/domain"
	"yatube/errs"
)

// GroupService manages Groups.
// It implements the domain.GroupService interface.
type GroupService struct {
	groupValidator
}

// groupValidator runs validations on incoming Group data.
// On success, it passes the data on to groupGorm.
// Otherwise, it returns the error of the validation that has failed.
type groupValidator struct {
	groupGorm
}

// groupGorm runs CRUD operations on the database using incoming Group data.
// It assumes that data has been validated.
type groupGorm struct {
	db *gorm.DB
}

// NewGroupService returns an instance of GroupService.
func NewGroupService(db *gorm.DB) *GroupService {
	return &GroupService{
		groupValidator{
			groupGorm{
				db: db,
			},
		},
	}
}

// Ensure the GroupService struct properly implements the domain.GroupService interface.
// If it does not, then this expression becomes invalid and won't compile.
var _ domain.GroupService = &GroupService{}

// Create runs validations needed for creating new Group database records.
// A group created without a slug gets one derived from its title.
func (gv *groupValidator) Create(ctx context.Context, group *domain.Group) error {
	err := runGroupValFns(ctx, group,
		gv.titleNormalize,
		gv.titleRequired,
		gv.titleMaxLength,
		gv.slugSetIfUnset,
		gv.slugRequired,
		gv.slugIsAvail)
	if err != nil {
		return err
	}
	return gv.groupGorm.Create(ctx, group)
}

// Delete runs validations needed for deleting a Group record. Posts of the
// group stay and lose their group.
func (gv *groupValidator) Delete(ctx context.Context, id int) error {
	if id <= 0 {
		return errs.IdInvalid
	}
	return gv.groupGorm.Delete(ctx, id)
}

// runGroupValFns runs any number of functions of type groupValFn on the passed in Group object.
// If none of them returns an error, it returns nil. Otherwise, it returns the respective error.
func runGroupValFns(ctx context.Context, group *domain.Group, fns ...groupValFn) error {
	for _, fn := range fns {
		if err := fn(ctx, group); err != nil {
			return err
		}
	}
	return nil
}

// A groupValFn is any function that takes in a pointer to a domain.Group object and returns an error.
type groupValFn func(ctx context.Context, group *domain.Group) error

func (gv *groupValidator) titleNormalize(ctx context.Context, group *domain.Group) error {
	group.Title = strings.TrimSpace(group.Title)
	group.Slug = strings.TrimSpace(group.Slug)
	return nil
}

func (gv *groupValidator) titleRequired(ctx context.Context, group *domain.Group) error {
	if group.Title == "" {
		return errs.FieldErrorf("title", "A title is required.")
	}
	return nil
}

func (gv *groupValidator) titleMaxLength(ctx context.Context, group *domain.Group) error {
	if utf8.RuneCountInString(group.Title) > 200 {
		return errs.FieldErrorf("title", "The title must have at most 200 characters.")
	}
	return nil
}

// slugSetIfUnset derives a URL-safe slug from the title if none is provided.
func (gv *groupValidator) slugSetIfUnset(ctx context.Context, group *domain.Group) error {
	if group.Slug == "" {
		group.Slug = slug.Make(group.Title)
	}
	return nil
}

func (gv *groupValidator) slugRequired(ctx context.Context, group *domain.Group) error {
	if group.Slug == "" || !slug.IsSlug(group.Slug) {
		return errs.FieldErrorf("slug", "The slug may only contain lowercase letters, digits, hyphens and underscores.")
	}
	return nil
}

// slugIsAvail makes sure that no other group uses the slug.
func (gv *groupValidator) slugIsAvail(ctx context.Context, group *domain.Group) error {
	existing, err := gv.groupGorm.BySlug(ctx, group.Slug)
	if errs.ErrorCode(err) == errs.ENOTFOUND {
		return nil
	}
	if err != nil {
		return err
	}
	if existing.ID != group.ID {
		return errs.FieldErrorf("slug", "A group with the slug %q already exists.", group.Slug)
	}
	return nil
}

// ByID retrieves a Group database record by ID.
func (gg *groupGorm) ByID(ctx context.Context, id int) (*domain.Group, error) {
	var group domain.Group
	err := first(gg.db.WithContext(ctx).Where("id = ?", id), &group)
	return &group, notFound(err, "The group does not exist.")
}

// BySlug retrieves a Group database record by its slug.
func (gg *groupGorm) BySlug(ctx context.Context, slug string) (*domain.Group, error) {
	var group domain.Group
	err := first(gg.db.WithContext(ctx).Where("slug = ?", slug), &group)
	return &group, notFound(err, "The group does not exist.")
}

// All retrieves every group ordered by title, e.g. to fill the group select of the post form.
func (gg *groupGorm) All(ctx context.Context) ([]domain.Group, error) {
	var groups []domain.Group
	err := gg.db.WithContext(ctx).Order("title ASC, id ASC").Find(&groups).Error
	return groups, err
}

func (gg *groupGorm) Create(ctx context.Context, group *domain.Group) error {
	return gg.db.WithContext(ctx).Create(group).Error
}

func (gg *groupGorm) Delete(ctx context.Context, id int) error {
	return gg.db.WithContext(ctx).Delete(&domain.Group{}, id).Error
}
