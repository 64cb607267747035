package domain

import "context"

// Follow represents a self-referential many-to-many relationship between two users.
// A Follow is created when one user decides to follow an author.
// The UserID is the ID of the user that follows, and the AuthorID is the ID of the
// user that is being followed. A pair is stored at most once, and a user never
// follows themselves.
type Follow struct {
	ID       int  `json:"id"`
	UserID   int  `json:"user_id" gorm:"not null;uniqueIndex:idx_follows_pair"`
	User     User `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	AuthorID int  `json:"author_id" gorm:"not null;uniqueIndex:idx_follows_pair;index"`
	Author   User `json:"-" gorm:"constraint:OnDelete:CASCADE"`
}

// FollowService is a set of methods to manipulate and work with the Follow model.
type FollowService interface {
	Exists(ctx context.Context, userID, authorID int) (bool, error)
	CountFollowers(ctx context.Context, authorID int) (int, error)
	CountFollowing(ctx context.Context, userID int) (int, error)
	Create(ctx context.Context, follow *Follow) error
	Delete(ctx context.Context, follow *Follow) error
}
