package domain

import (
	"context"
	"strings"
	"time"
)

// User is a registered author of the site. Users write posts and comments and
// can follow each other. The Password and Remember fields only ever live in
// memory. In the database only their hashes are stored.
type User struct {
	ID           int       `json:"id"`
	Username     string    `json:"username" gorm:"size:150;not null;uniqueIndex"`
	FirstName    string    `json:"first_name" gorm:"size:150"`
	LastName     string    `json:"last_name" gorm:"size:150"`
	Email        string    `json:"email" gorm:"size:254"`
	Password     string    `json:"-" gorm:"-"`
	PasswordHash string    `json:"-" gorm:"not null"`
	Remember     string    `json:"-" gorm:"-"`
	RememberHash string    `json:"-" gorm:"not null;uniqueIndex"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// FullName returns the first and last name of the user, or the username
// if neither is set.
func (u User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Username
	}
	return name
}

// UserService is a set of methods to manipulate and work with the User model.
type UserService interface {
	Authenticate(ctx context.Context, username, password string) (*User, error)
	ByID(ctx context.Context, id int) (*User, error)
	ByUsername(ctx context.Context, username string) (*User, error)
	ByRemember(ctx context.Context, token string) (*User, error)
	MakeRememberToken() (string, error)
	Create(ctx context.Context, user *User) error
	Update(ctx context.Context, user *User) error
	Delete(ctx context.Context, id int) error
}
