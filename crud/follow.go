package crud

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"yatube/domain"
	"yatube/errs"
)

// FollowService manages Follows.
// It implements the domain.FollowService interface.
type FollowService struct {
	followValidator
}

// followValidator runs validations on incoming Follow data.
// On success, it passes the data on to followGorm.
// Otherwise, it returns the error of the validation that has failed.
type followValidator struct {
	followGorm
}

// followGorm runs CRUD operations on the database using incoming Follow data.
// It assumes that data has been validated. On success, it returns nil.
// Otherwise, it returns the error of the operation that has failed.
type followGorm struct {
	db *gorm.DB
}

// NewFollowService returns an instance of FollowService.
func NewFollowService(db *gorm.DB) *FollowService {
	return &FollowService{
		followValidator{
			followGorm{
				db: db,
			},
		},
	}
}

// Ensure the FollowService struct properly implements the domain.FollowService interface.
// If it does not, then this expression becomes invalid and won't compile.
var _ domain.FollowService = &FollowService{}

// Create runs validations needed for creating new Follow database records.
func (fv *followValidator) Create(ctx context.Context, follow *domain.Follow) error {
	err := runFollowValFns(ctx, follow,
		fv.userIdValid,
		fv.followedIsNotFollower,
		fv.followedUserExists,
		fv.notAlreadyFollowed)
	if err != nil {
		return err
	}
	return fv.followGorm.Create(ctx, follow)
}

// Delete removes the follow between the two users. Deleting a follow that
// does not exist is not an error.
func (fv *followValidator) Delete(ctx context.Context, follow *domain.Follow) error {
	if err := runFollowValFns(ctx, follow, fv.userIdValid); err != nil {
		return err
	}
	return fv.followGorm.Delete(ctx, follow)
}

// runFollowValFns runs any number of functions of type followValFn on the passed in Follow object.
// If none of them returns an error, it returns nil. Otherwise, it returns the respective error.
func runFollowValFns(ctx context.Context, follow *domain.Follow, fns ...followValFn) error {
	for _, fn := range fns {
		if err := fn(ctx, follow); err != nil {
			return err
		}
	}
	return nil
}

// A followValFn is any function that takes in a pointer to a domain.Follow object and returns an error.
type followValFn func(ctx context.Context, follow *domain.Follow) error

// userIdValid ensures that both sides of the follow are set.
func (fv *followValidator) userIdValid(ctx context.Context, follow *domain.Follow) error {
	if follow.UserID <= 0 || follow.AuthorID <= 0 {
		return errs.UserIdValid
	}
	return nil
}

// followedIsNotFollower makes sure that users can't follow themselves.
func (fv *followValidator) followedIsNotFollower(ctx context.Context, follow *domain.Follow) error {
	if follow.UserID == follow.AuthorID {
		return errs.Errorf(errs.EINVALID, "You cannot follow yourself.")
	}
	return nil
}

// followedUserExists makes sure that the user to be followed actually exists.
func (fv *followValidator) followedUserExists(ctx context.Context, follow *domain.Follow) error {
	err := fv.db.WithContext(ctx).First(&domain.User{}, "id = ?", follow.AuthorID).Error
	return notFound(err, "The followed user does not exist.")
}

// notAlreadyFollowed makes sure that the user doesn't already follow the author.
func (fv *followValidator) notAlreadyFollowed(ctx context.Context, follow *domain.Follow) error {
	exists, err := fv.followGorm.Exists(ctx, follow.UserID, follow.AuthorID)
	if err != nil {
		return err
	}
	if exists {
		return errs.Errorf(errs.ECONFLICT, "You already follow that user.")
	}
	return nil
}

// Exists reports whether the user follows the author.
func (fg *followGorm) Exists(ctx context.Context, userID, authorID int) (bool, error) {
	var n int64
	err := fg.db.WithContext(ctx).Model(&domain.Follow{}).
		Where("user_id = ? AND author_id = ?", userID, authorID).
		Count(&n).Error
	return n > 0, err
}

// CountFollowers returns the number of users following the author.
func (fg *followGorm) CountFollowers(ctx context.Context, authorID int) (int, error) {
	var n int64
	err := fg.db.WithContext(ctx).Model(&domain.Follow{}).Where("author_id = ?", authorID).Count(&n).Error
	return int(n), err
}

// CountFollowing returns the number of authors the user follows.
func (fg *followGorm) CountFollowing(ctx context.Context, userID int) (int, error) {
	var n int64
	err := fg.db.WithContext(ctx).Model(&domain.Follow{}).Where("user_id = ?", userID).Count(&n).Error
	return int(n), err
}

// Create stores the follow. The unique index on the pair catches a
// concurrent duplicate that slipped past notAlreadyFollowed.
func (fg *followGorm) Create(ctx context.Context, follow *domain.Follow) error {
	err := fg.db.WithContext(ctx).Omit(clause.Associations).Create(follow).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return errs.Errorf(errs.ECONFLICT, "You already follow that user.")
	}
	return err
}

func (fg *followGorm) Delete(ctx context.Context, follow *domain.Follow) error {
	return fg.db.WithContext(ctx).
		Where("user_id = ? AND author_id = ?", follow.UserID, follow.AuthorID).
		Delete(&domain.Follow{}).Error
}
