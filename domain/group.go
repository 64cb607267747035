package domain

import "context"

// Group is a themed community that posts can optionally belong to.
// It is addressed by its unique Slug.
type Group struct {
	ID          int    `json:"id"`
	Title       string `json:"title" gorm:"size:200;not null"`
	Slug        string `json:"slug" gorm:"size:255;not null;uniqueIndex"`
	Description string `json:"description" gorm:"type:text"`
}

// GroupService is a set of methods to manipulate and work with the Group model.
type GroupService interface {
	ByID(ctx context.Context, id int) (*Group, error)
	BySlug(ctx context.Context, slug string) (*Group, error)
	All(ctx context.Context) ([]Group, error)
	Create(ctx context.Context, group *Group) error
	Delete(ctx context.Context, id int) error
}
