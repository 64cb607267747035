package domain

import (
	"context"
	"time"
)

// Comment is a reply by an Author to a Post.
type Comment struct {
	ID       int       `json:"id"`
	PostID   int       `json:"post_id" gorm:"not null;index"`
	Post     Post      `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	AuthorID int       `json:"author_id" gorm:"not null;index"`
	Author   User      `json:"author" gorm:"constraint:OnDelete:CASCADE"`
	Text     string    `json:"text" gorm:"type:text;not null"`
	Created  time.Time `json:"created" gorm:"not null;autoCreateTime"`
}

// CommentService is a set of methods to manipulate and work with the Comment model.
type CommentService interface {
	ByPost(ctx context.Context, postID int) ([]Comment, error)
	Create(ctx context.Context, comment *Comment) error
}
