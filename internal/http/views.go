package httpx

import (
	"blogicum/internal/blog"
	"blogicum/internal/models"
)

// Layout is embedded by every page; the base template reads .User from it.
type Layout struct {
	User *models.User
}

type IndexPage struct {
	Layout
	Posts []models.Post
	Page  blog.Page
}

type CategoryPage struct {
	Layout
	Category *models.Category
	Posts    []models.Post
	Page     blog.Page
}

type ProfilePage struct {
	Layout
	Profile *models.User
	IsOwner bool
	Posts   []models.Post
	Page    blog.Page
}

type DetailPage struct {
	Layout
	Post     *models.Post
	Comments []models.Comment
	IsAuthor bool
	ViewerID int64
	Form     CommentForm
}

type PostFormPage struct {
	Layout
	Delete     bool
	Post       *models.Post
	Form       PostForm
	Errors     map[string]string
	Categories []models.Category
	Locations  []models.Location
}

type CommentFormPage struct {
	Layout
	Delete  bool
	PostID  int64
	Comment *models.Comment
	Form    CommentForm
	Errors  map[string]string
}

type ProfileFormPage struct {
	Layout
	Form   ProfileForm
	Errors map[string]string
}

type AuthPage struct {
	Layout
	Next   string
	Form   AuthForm
	Errors map[string]string
}

type StaticPage struct {
	Layout
}

type ErrorPage struct {
	Layout
	Status  int
	Message string
}
