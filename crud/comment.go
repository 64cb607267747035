package crud

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"yatube/domain"
	"yatube/errs"
)

// CommentService manages Comments.
// It implements the domain.CommentService interface.
type CommentService struct {
	commentValidator
}

// commentValidator runs validations on incoming Comment data.
// On success, it passes the data on to commentGorm.
// Otherwise, it returns the error of the validation that has failed.
type commentValidator struct {
	commentGorm
}

// commentGorm runs CRUD operations on the database using incoming Comment data.
// It assumes that data has been validated. On success, it returns nil.
// Otherwise, it returns the error of the operation that has failed.
type commentGorm struct {
	db *gorm.DB
}

// NewCommentService returns an instance of CommentService.
func NewCommentService(db *gorm.DB) *CommentService {
	return &CommentService{
		commentValidator{
			commentGorm{
				db: db,
			},
		},
	}
}

// Ensure the CommentService struct properly implements the domain.CommentService interface.
// If it does not, then this expression becomes invalid and won't compile.
var _ domain.CommentService = &CommentService{}

// Create runs validations needed for creating new Comment database records.
func (cv *commentValidator) Create(ctx context.Context, comment *domain.Comment) error {
	err := runCommentValFns(ctx, comment,
		cv.authorIdValid,
		cv.commentedPostExists,
		cv.textNormalize,
		cv.textRequired,
		cv.createdSetIfUnset)
	if err != nil {
		return err
	}
	return cv.commentGorm.Create(ctx, comment)
}

// runCommentValFns runs any number of functions of type commentValFn on the passed in Comment object.
// If none of them returns an error, it returns nil. Otherwise, it returns the respective error.
func runCommentValFns(ctx context.Context, comment *domain.Comment, fns ...commentValFn) error {
	for _, fn := range fns {
		if err := fn(ctx, comment); err != nil {
			return err
		}
	}
	return nil
}

// A commentValFn is any function that takes in a pointer to a domain.Comment object and returns an error.
type commentValFn func(ctx context.Context, comment *domain.Comment) error

// authorIdValid ensures that the comment has an author.
func (cv *commentValidator) authorIdValid(ctx context.Context, comment *domain.Comment) error {
	if comment.AuthorID <= 0 {
		return errs.UserIdValid
	}
	return nil
}

// commentedPostExists makes sure that the post to be commented on actually exists.
func (cv *commentValidator) commentedPostExists(ctx context.Context, comment *domain.Comment) error {
	err := cv.db.WithContext(ctx).First(&domain.Post{}, "id = ?", comment.PostID).Error
	return notFound(err, "The commented post does not exist.")
}

func (cv *commentValidator) textNormalize(ctx context.Context, comment *domain.Comment) error {
	comment.Text = strings.TrimSpace(comment.Text)
	return nil
}

func (cv *commentValidator) textRequired(ctx context.Context, comment *domain.Comment) error {
	if comment.Text == "" {
		return errs.FieldErrorf("text", "This field is required.")
	}
	return nil
}

// createdSetIfUnset stamps the comment with the current time unless a
// creation time was supplied.
func (cv *commentValidator) createdSetIfUnset(ctx context.Context, comment *domain.Comment) error {
	if comment.Created.IsZero() {
		comment.Created = time.Now()
	}
	return nil
}

// ByPost retrieves the comments of a post along with their authors, oldest first.
func (cg *commentGorm) ByPost(ctx context.Context, postID int) ([]domain.Comment, error) {
	var comments []domain.Comment
	err := cg.db.WithContext(ctx).
		Preload("Author").
		Where("post_id = ?", postID).
		Order("created ASC, id ASC").
		Find(&comments).Error
	return comments, err
}

// Create stores the data from the Comment object in a new database record.
func (cg *commentGorm) Create(ctx context.Context, comment *domain.Comment) error {
	return cg.db.WithContext(ctx).Omit(clause.Associations).Create(comment).Error
}
