package domain

import (
	"context"
	"time"
)

// Post is a text entry written by an Author, optionally assigned to a Group
// and optionally carrying an image. Image holds the path of the stored image
// file relative to the media root, or the empty string.
// Deleting the author deletes the post. Deleting the group only detaches it.
type Post struct {
	ID       int       `json:"id"`
	Text     string    `json:"text" gorm:"type:text;not null"`
	PubDate  time.Time `json:"pub_date" gorm:"not null;index;autoCreateTime"`
	AuthorID int       `json:"author_id" gorm:"not null;index"`
	Author   User      `json:"author" gorm:"constraint:OnDelete:CASCADE"`
	GroupID  *int      `json:"group_id" gorm:"index"`
	Group    *Group    `json:"group,omitempty" gorm:"constraint:OnDelete:SET NULL"`
	Image    string    `json:"image,omitempty" gorm:"size:255"`
}

// ImageURL returns the URL the post's image is served under.
func (p Post) ImageURL() string {
	if p.Image == "" {
		return ""
	}
	return MediaURL + p.Image
}

// PostFilter narrows down the posts returned by PostService.Find.
// All set fields must match. FollowedBy selects the posts of every author
// the given user follows.
type PostFilter struct {
	AuthorID   *int `json:"author_id"`
	GroupID    *int `json:"group_id"`
	FollowedBy *int `json:"followed_by"`

	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

// PostService is a set of methods to manipulate and work with the Post model.
type PostService interface {
	ByID(ctx context.Context, id int) (*Post, error)
	ByAuthor(ctx context.Context, username string, id int) (*Post, error)
	Find(ctx context.Context, filter PostFilter) ([]Post, int, error)
	Create(ctx context.Context, post *Post) error
	Update(ctx context.Context, post *Post) error
	Delete(ctx context.Context, id int) error
}
