package models

import (
	"errors"
	"time"
)

var (
	ErrNoRecord  = errors.New("models: no matching record found")
	ErrDuplicate = errors.New("models: duplicate record")
)

type User struct {
	ID           int64
	Username     string
	Email        string
	FirstName    string
	LastName     string
	PasswordHash string
	CreatedAt    time.Time
}

// FullName falls back to the username when no names are set.
func (u *User) FullName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	case u.LastName != "":
		return u.LastName
	}
	return u.Username
}

type Session struct {
	ID        string
	UserID    int64
	ExpiresAt time.Time
	CreatedAt time.Time
}

type Category struct {
	ID          int64
	Title       string
	Description string
	Slug        string
	IsPublished bool
	CreatedAt   time.Time
}

type Location struct {
	ID          int64
	Name        string
	IsPublished bool
	CreatedAt   time.Time
}

// Post carries its category and location inline; both are nil when unset.
type Post struct {
	ID          int64
	Title       string
	Text        string
	PubDate     time.Time
	AuthorID    int64
	Author      string
	CategoryID  *int64
	Category    *Category
	LocationID  *int64
	Location    *Location
	Image       string
	IsPublished bool
	CreatedAt   time.Time

	// CommentCount is computed by listing queries and never stored.
	CommentCount int
}

type Comment struct {
	ID        int64
	PostID    int64
	AuthorID  int64
	Author    string
	Text      string
	CreatedAt time.Time
}
