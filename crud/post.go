package crud

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"yatube/domain"
	"yatube/errs"
)

// PostService manages Posts.
// It implements the domain.PostService interface.
type PostService struct {
	postValidator
}

// postValidator runs validations on incoming Post data.
// On success, it passes the data on to postGorm.
// Otherwise, it returns the error of the validation that has failed.
type postValidator struct {
	postGorm
}

// postGorm runs CRUD operations on the database using incoming Post data.
// It assumes that data has been validated. On success, it returns nil.
// Otherwise, it returns the error of the operation that has failed.
type postGorm struct {
	db *gorm.DB
}

// NewPostService returns an instance of PostService.
func NewPostService(db *gorm.DB) *PostService {
	return &PostService{
		postValidator{
			postGorm{
				db: db,
			},
		},
	}
}

// Ensure the PostService struct properly implements the domain.PostService interface.
// If it does not, then this expression becomes invalid and won't compile.
var _ domain.PostService = &PostService{}

// Create runs validations needed for creating new Post database records.
// The publication date is set by the database layer.
func (pv *postValidator) Create(ctx context.Context, post *domain.Post) error {
	err := runPostValFns(ctx, post,
		pv.authorIdValid,
		pv.authorExists,
		pv.textNormalize,
		pv.textRequired,
		pv.groupExists)
	if err != nil {
		return err
	}
	return pv.postGorm.Create(ctx, post)
}

// Update runs validations needed for changing the text, group and image of an
// existing Post. Author and publication date never change.
func (pv *postValidator) Update(ctx context.Context, post *domain.Post) error {
	err := runPostValFns(ctx, post,
		pv.idValid,
		pv.textNormalize,
		pv.textRequired,
		pv.groupExists)
	if err != nil {
		return err
	}
	return pv.postGorm.Update(ctx, post)
}

// Delete runs validations needed for deleting existing Post database records.
func (pv *postValidator) Delete(ctx context.Context, id int) error {
	if err := runPostValFns(ctx, &domain.Post{ID: id}, pv.idValid); err != nil {
		return err
	}
	return pv.postGorm.Delete(ctx, id)
}

// runPostValFns runs any number of functions of type postValFn on the passed in Post object.
// If none of them returns an error, it returns nil. Otherwise, it returns the respective error.
func runPostValFns(ctx context.Context, post *domain.Post, fns ...postValFn) error {
	for _, fn := range fns {
		if err := fn(ctx, post); err != nil {
			return err
		}
	}
	return nil
}

// A postValFn is any function that takes in a pointer to a domain.Post object and returns an error.
type postValFn = func(ctx context.Context, post *domain.Post) error

// idValid makes sure that the passed in ID of a Post is greater than 0.
func (pv *postValidator) idValid(ctx context.Context, post *domain.Post) error {
	if post.ID <= 0 {
		return errs.IdInvalid
	}
	return nil
}

// authorIdValid ensures that the post has an author.
func (pv *postValidator) authorIdValid(ctx context.Context, post *domain.Post) error {
	if post.AuthorID <= 0 {
		return errs.UserIdValid
	}
	return nil
}

// authorExists makes sure that the author of the post actually exists.
func (pv *postValidator) authorExists(ctx context.Context, post *domain.Post) error {
	err := pv.db.WithContext(ctx).First(&domain.User{}, "id = ?", post.AuthorID).Error
	return notFound(err, "The author does not exist.")
}

// textNormalize trims the whitespaces around the text.
func (pv *postValidator) textNormalize(ctx context.Context, post *domain.Post) error {
	post.Text = strings.TrimSpace(post.Text)
	return nil
}

// textRequired makes sure that the text of the post is not empty.
func (pv *postValidator) textRequired(ctx context.Context, post *domain.Post) error {
	if post.Text == "" {
		return errs.FieldErrorf("text", "This field is required.")
	}
	return nil
}

// groupExists makes sure that the group chosen for the post actually exists.
// This check only runs if the incoming Post has a group.
func (pv *postValidator) groupExists(ctx context.Context, post *domain.Post) error {
	if post.GroupID == nil {
		post.Group = nil
		return nil
	}
	var group domain.Group
	err := pv.db.WithContext(ctx).First(&group, "id = ?", *post.GroupID).Error
	if errs.ErrorCode(notFound(err, "")) == errs.ENOTFOUND {
		return errs.FieldErrorf("group", "Select a valid choice. That choice is not one of the available choices.")
	}
	if err != nil {
		return err
	}
	post.Group = &group
	return nil
}

// ByID retrieves a Post database record by ID along with its author and group.
func (pg *postGorm) ByID(ctx context.Context, id int) (*domain.Post, error) {
	var post domain.Post
	err := pg.db.WithContext(ctx).
		Preload("Author").
		Preload("Group").
		First(&post, "id = ?", id).Error
	return &post, notFound(err, "The post does not exist.")
}

// ByAuthor retrieves the Post with the given ID, provided it was written by the
// user with the given username.
func (pg *postGorm) ByAuthor(ctx context.Context, username string, id int) (*domain.Post, error) {
	var post domain.Post
	err := pg.db.WithContext(ctx).
		Preload("Author").
		Preload("Group").
		Where("posts.id = ? AND posts.author_id = (?)", id,
			pg.db.Model(&domain.User{}).Select("id").Where("username = ?", username)).
		First(&post).Error
	return &post, notFound(err, "The post does not exist.")
}

// Find retrieves the posts matching the filter, newest first, along with the
// total number of matching posts.
func (pg *postGorm) Find(ctx context.Context, filter domain.PostFilter) ([]domain.Post, int, error) {
	db := pg.db.WithContext(ctx).Model(&domain.Post{})
	if v := filter.AuthorID; v != nil {
		db = db.Where("posts.author_id = ?", *v)
	}
	if v := filter.GroupID; v != nil {
		db = db.Where("posts.group_id = ?", *v)
	}
	if v := filter.FollowedBy; v != nil {
		followed := pg.db.Model(&domain.Follow{}).Select("author_id").Where("user_id = ?", *v)
		db = db.Where("posts.author_id IN (?)", followed)
	}

	db = db.Session(&gorm.Session{})

	var n int64
	if err := db.Count(&n).Error; err != nil {
		return nil, 0, err
	}

	posts := make([]domain.Post, 0, filter.Limit)
	q := db.Preload("Author").Preload("Group").Order("posts.pub_date DESC, posts.id DESC").Offset(filter.Offset)
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if err := q.Find(&posts).Error; err != nil {
		return nil, 0, err
	}
	return posts, int(n), nil
}

// Create stores the data from the Post object in a new database record.
// Associations are referenced by ID only and never written through the post.
func (pg *postGorm) Create(ctx context.Context, post *domain.Post) error {
	return pg.db.WithContext(ctx).Omit(clause.Associations).Create(post).Error
}

// Update saves the editable fields of a post.
func (pg *postGorm) Update(ctx context.Context, post *domain.Post) error {
	var groupID interface{}
	if post.GroupID != nil {
		groupID = *post.GroupID
	}
	res := pg.db.WithContext(ctx).
		Model(&domain.Post{ID: post.ID}).
		Select("text", "group_id", "image").
		Updates(map[string]interface{}{
			"text":     post.Text,
			"group_id": groupID,
			"image":    post.Image,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errs.Errorf(errs.ENOTFOUND, "The post does not exist.")
	}
	return nil
}

// Delete removes the post along with its comments.
func (pg *postGorm) Delete(ctx context.Context, id int) error {
	return pg.db.WithContext(ctx).Delete(&domain.Post{}, id).Error
}
