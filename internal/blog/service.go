package blog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"blogicum/internal/media"
	"blogicum/internal/models"
	"blogicum/internal/validation"
)

// Store is the data source the service reads and writes. Lookups of a single
// row return models.ErrNoRecord when nothing matches.
type Store interface {
	CategoryBySlug(ctx context.Context, slug string) (*models.Category, error)
	CategoryByID(ctx context.Context, id int64) (*models.Category, error)
	Categories(ctx context.Context) ([]models.Category, error)
	LocationByID(ctx context.Context, id int64) (*models.Location, error)
	Locations(ctx context.Context) ([]models.Location, error)

	UserByID(ctx context.Context, id int64) (*models.User, error)
	UserByUsername(ctx context.Context, username string) (*models.User, error)
	UpdateUser(ctx context.Context, u *models.User) error

	// Post and Posts annotate CommentCount. Posts orders by PostOrder.
	Post(ctx context.Context, f PostFilter) (*models.Post, error)
	Posts(ctx context.Context, f PostFilter, limit, offset int) ([]models.Post, error)
	CountPosts(ctx context.Context, f PostFilter) (int, error)
	CreatePost(ctx context.Context, p *models.Post) error
	UpdatePost(ctx context.Context, p *models.Post) error
	DeletePost(ctx context.Context, id int64) error

	// Comments orders chronologically.
	Comments(ctx context.Context, postID int64) ([]models.Comment, error)
	Comment(ctx context.Context, id int64) (*models.Comment, error)
	CreateComment(ctx context.Context, c *models.Comment) error
	UpdateComment(ctx context.Context, c *models.Comment) error
	DeleteComment(ctx context.Context, id int64) error
}

// MediaStore keeps uploaded post images. Save names the file after the sniffed
// content type and returns the stored path.
type MediaStore interface {
	Save(contentType string, r io.Reader) (string, error)
	Remove(path string) error
}

// Upload is an image attached to a post form.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

type PostInput struct {
	Title       string    `form:"title" validate:"required,max=256"`
	Text        string    `form:"text" validate:"required"`
	PubDate     time.Time `form:"pub_date" validate:"required"`
	CategoryID  int64     `form:"category" validate:"gte=0"`
	LocationID  int64     `form:"location" validate:"gte=0"`
	IsPublished bool      `form:"is_published"`
	Image       *Upload   `form:"image"`
	ClearImage  bool      `form:"image-clear"`
}

// trimmed strips surrounding whitespace from the text fields, so blank input
// fails the required checks.
func (in PostInput) trimmed() PostInput {
	in.Title = strings.TrimSpace(in.Title)
	in.Text = strings.TrimSpace(in.Text)
	return in
}

type CommentInput struct {
	Text string `form:"text" validate:"required"`
}

func (in CommentInput) trimmed() CommentInput {
	in.Text = strings.TrimSpace(in.Text)
	return in
}

type ProfileInput struct {
	Username  string `form:"username" validate:"required,max=150,username"`
	Email     string `form:"email" validate:"omitempty,email,max=254"`
	FirstName string `form:"first_name" validate:"max=150"`
	LastName  string `form:"last_name" validate:"max=150"`
}

// Listing is one page of posts.
type Listing struct {
	Posts []models.Post
	Page  Page
}

type Service struct {
	store     Store
	media     MediaStore
	now       func() time.Time
	maxUpload int64
	log       *slog.Logger
}

type Option func(*Service)

// WithClock replaces time.Now as the source of "now" for visibility checks.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithMaxUpload bounds the accepted image size in bytes.
func WithMaxUpload(n int64) Option {
	return func(s *Service) { s.maxUpload = n }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.log = l }
}

func NewService(store Store, media MediaStore, opts ...Option) *Service {
	s := &Service{
		store:     store,
		media:     media,
		now:       time.Now,
		maxUpload: 5 << 20,
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ---------------------------------------------------------------------------
// Listings
// ---------------------------------------------------------------------------

// Index lists every publicly visible post.
func (s *Service) Index(ctx context.Context, rawPage string) (*Listing, error) {
	return s.list(ctx, PostFilter{}.VisibleTo(Anonymous, s.now()), rawPage)
}

// CategoryPosts lists the public posts of a published category.
func (s *Service) CategoryPosts(ctx context.Context, slug, rawPage string) (*models.Category, *Listing, error) {
	cat, err := s.store.CategoryBySlug(ctx, slug)
	if err != nil {
		return nil, nil, notFound(err, "category by slug")
	}
	if !cat.IsPublished {
		return nil, nil, ErrNotFound
	}
	l, err := s.list(ctx, PostFilter{}.InCategory(slug).VisibleTo(Anonymous, s.now()), rawPage)
	if err != nil {
		return nil, nil, err
	}
	return cat, l, nil
}

// Profile lists the posts of username. The owner sees all of them; anyone else
// sees the public ones only.
func (s *Service) Profile(ctx context.Context, username string, viewerID int64, rawPage string) (*models.User, *Listing, error) {
	u, err := s.store.UserByUsername(ctx, username)
	if err != nil {
		return nil, nil, notFound(err, "user by username")
	}
	f := PostFilter{}.ByAuthor(u.Username)
	if !IsAuthor(u.ID, viewerID) {
		f = f.VisibleTo(Anonymous, s.now())
	}
	l, err := s.list(ctx, f, rawPage)
	if err != nil {
		return nil, nil, err
	}
	return u, l, nil
}

func (s *Service) list(ctx context.Context, f PostFilter, rawPage string) (*Listing, error) {
	total, err := s.store.CountPosts(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("count posts: %w", err)
	}
	page, err := NewPage(rawPage, total, PageSize)
	if err != nil {
		return nil, err
	}
	posts, err := s.store.Posts(ctx, f, page.Limit(), page.Offset())
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return &Listing{Posts: posts, Page: page}, nil
}

// PostDetail returns a post the viewer may see together with its comments.
func (s *Service) PostDetail(ctx context.Context, postID, viewerID int64) (*models.Post, []models.Comment, error) {
	p, err := s.store.Post(ctx, PostFilter{}.ByID(postID).VisibleTo(viewerID, s.now()))
	if err != nil {
		return nil, nil, notFound(err, "post detail")
	}
	comments, err := s.store.Comments(ctx, p.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("list comments: %w", err)
	}
	return p, comments, nil
}

// Choices returns the categories and locations a post form offers.
func (s *Service) Choices(ctx context.Context) ([]models.Category, []models.Location, error) {
	cats, err := s.store.Categories(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list categories: %w", err)
	}
	locs, err := s.store.Locations(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list locations: %w", err)
	}
	return cats, locs, nil
}

// ---------------------------------------------------------------------------
// Posts
// ---------------------------------------------------------------------------

// ValidatePost checks in without persisting anything.
func (s *Service) ValidatePost(ctx context.Context, in PostInput) (*ValidationError, error) {
	in = in.trimmed()
	verr := &ValidationError{Fields: validation.Struct(in)}

	if in.CategoryID != 0 {
		if _, err := s.store.CategoryByID(ctx, in.CategoryID); errors.Is(err, models.ErrNoRecord) {
			verr.Add("category", "Select a valid choice. That choice is not one of the available choices.")
		} else if err != nil {
			return nil, fmt.Errorf("category by id: %w", err)
		}
	}
	if in.LocationID != 0 {
		if _, err := s.store.LocationByID(ctx, in.LocationID); errors.Is(err, models.ErrNoRecord) {
			verr.Add("location", "Select a valid choice. That choice is not one of the available choices.")
		} else if err != nil {
			return nil, fmt.Errorf("location by id: %w", err)
		}
	}
	if in.Image != nil {
		if _, ok := media.Extensions[in.Image.ContentType]; !ok {
			verr.Add("image", "Upload a valid image. The file you uploaded was either not an image or a corrupted image.")
		} else if s.maxUpload > 0 && in.Image.Size > s.maxUpload {
			verr.Add("image", fmt.Sprintf("Ensure the image is at most %d bytes.", s.maxUpload))
		}
	}
	return verr, nil
}

// CreatePost stores a new post written by author. The author is never taken
// from the input.
func (s *Service) CreatePost(ctx context.Context, author *models.User, in PostInput) (*models.Post, error) {
	in = in.trimmed()
	verr, err := s.ValidatePost(ctx, in)
	if err != nil {
		return nil, err
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	p := &models.Post{AuthorID: author.ID, Author: author.Username}
	applyPostInput(p, in)
	if in.Image != nil {
		path, err := s.media.Save(in.Image.ContentType, in.Image.Body)
		if err != nil {
			return nil, fmt.Errorf("save image: %w", err)
		}
		p.Image = path
	}

	if err := s.store.CreatePost(ctx, p); err != nil {
		s.removeImage(p.Image)
		return nil, fmt.Errorf("create post: %w", err)
	}
	s.log.Info("post created", "post_id", p.ID, "author", author.Username)
	return p, nil
}

// EditablePost loads a post for its author. A missing post is ErrNotFound and a
// post owned by someone else is ErrNotAuthor, whatever its visibility.
func (s *Service) EditablePost(ctx context.Context, actorID, postID int64) (*models.Post, error) {
	p, err := s.store.Post(ctx, PostFilter{}.ByID(postID))
	if err != nil {
		return nil, notFound(err, "post by id")
	}
	if !IsAuthor(p.AuthorID, actorID) {
		return nil, ErrNotAuthor
	}
	return p, nil
}

func (s *Service) UpdatePost(ctx context.Context, actorID, postID int64, in PostInput) (*models.Post, error) {
	p, err := s.EditablePost(ctx, actorID, postID)
	if err != nil {
		return nil, err
	}
	in = in.trimmed()
	verr, err := s.ValidatePost(ctx, in)
	if err != nil {
		return nil, err
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	oldImage := p.Image
	applyPostInput(p, in)
	switch {
	case in.Image != nil:
		path, err := s.media.Save(in.Image.ContentType, in.Image.Body)
		if err != nil {
			return nil, fmt.Errorf("save image: %w", err)
		}
		p.Image = path
	case in.ClearImage:
		p.Image = ""
	}

	if err := s.store.UpdatePost(ctx, p); err != nil {
		if p.Image != oldImage {
			s.removeImage(p.Image)
		}
		return nil, fmt.Errorf("update post: %w", err)
	}
	if p.Image != oldImage {
		s.removeImage(oldImage)
	}
	s.log.Info("post updated", "post_id", p.ID)

	updated, err := s.store.Post(ctx, PostFilter{}.ByID(p.ID))
	if err != nil {
		return nil, fmt.Errorf("reload post: %w", err)
	}
	return updated, nil
}

// DeletePost removes a post with its comments and returns what was removed.
func (s *Service) DeletePost(ctx context.Context, actorID, postID int64) (*models.Post, error) {
	p, err := s.EditablePost(ctx, actorID, postID)
	if err != nil {
		return nil, err
	}
	if err := s.store.DeletePost(ctx, p.ID); err != nil {
		return nil, notFound(err, "delete post")
	}
	s.removeImage(p.Image)
	s.log.Info("post deleted", "post_id", p.ID)
	return p, nil
}

func applyPostInput(p *models.Post, in PostInput) {
	p.Title = in.Title
	p.Text = in.Text
	p.PubDate = in.PubDate
	p.IsPublished = in.IsPublished
	p.CategoryID = nil
	p.Category = nil
	if in.CategoryID != 0 {
		id := in.CategoryID
		p.CategoryID = &id
	}
	p.LocationID = nil
	p.Location = nil
	if in.LocationID != 0 {
		id := in.LocationID
		p.LocationID = &id
	}
}

func (s *Service) removeImage(path string) {
	if path == "" {
		return
	}
	if err := s.media.Remove(path); err != nil {
		s.log.Warn("remove image", "path", path, "err", err)
	}
}

// ---------------------------------------------------------------------------
// Comments
// ---------------------------------------------------------------------------

// AddComment attaches a comment by author to postID. Author and post come from
// the caller, never from the input.
func (s *Service) AddComment(ctx context.Context, author *models.User, postID int64, in CommentInput) (*models.Comment, error) {
	p, err := s.store.Post(ctx, PostFilter{}.ByID(postID))
	if err != nil {
		return nil, notFound(err, "post by id")
	}
	in = in.trimmed()
	if err := (&ValidationError{Fields: validation.Struct(in)}).OrNil(); err != nil {
		return nil, err
	}
	c := &models.Comment{
		PostID:   p.ID,
		AuthorID: author.ID,
		Author:   author.Username,
		Text:     in.Text,
	}
	if err := s.store.CreateComment(ctx, c); err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}
	s.log.Info("comment created", "post_id", p.ID, "comment_id", c.ID, "author", author.Username)
	return c, nil
}

// EditableComment loads a comment of postID for its author.
func (s *Service) EditableComment(ctx context.Context, actorID, postID, commentID int64) (*models.Comment, error) {
	c, err := s.store.Comment(ctx, commentID)
	if err != nil {
		return nil, notFound(err, "comment by id")
	}
	if c.PostID != postID {
		return nil, ErrNotFound
	}
	if !IsAuthor(c.AuthorID, actorID) {
		return nil, ErrNotAuthor
	}
	return c, nil
}

func (s *Service) UpdateComment(ctx context.Context, actorID, postID, commentID int64, in CommentInput) (*models.Comment, error) {
	c, err := s.EditableComment(ctx, actorID, postID, commentID)
	if err != nil {
		return nil, err
	}
	in = in.trimmed()
	if err := (&ValidationError{Fields: validation.Struct(in)}).OrNil(); err != nil {
		return nil, err
	}
	c.Text = in.Text
	if err := s.store.UpdateComment(ctx, c); err != nil {
		return nil, notFound(err, "update comment")
	}
	return c, nil
}

func (s *Service) DeleteComment(ctx context.Context, actorID, postID, commentID int64) error {
	c, err := s.EditableComment(ctx, actorID, postID, commentID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteComment(ctx, c.ID); err != nil {
		return notFound(err, "delete comment")
	}
	s.log.Info("comment deleted", "post_id", postID, "comment_id", c.ID)
	return nil
}

// ---------------------------------------------------------------------------
// Profile
// ---------------------------------------------------------------------------

// UpdateProfile changes the public fields of the actor's own account.
func (s *Service) UpdateProfile(ctx context.Context, actorID int64, in ProfileInput) (*models.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if err := (&ValidationError{Fields: validation.Struct(in)}).OrNil(); err != nil {
		return nil, err
	}
	u, err := s.store.UserByID(ctx, actorID)
	if err != nil {
		return nil, notFound(err, "user by id")
	}
	u.Username = in.Username
	u.Email = in.Email
	u.FirstName = strings.TrimSpace(in.FirstName)
	u.LastName = strings.TrimSpace(in.LastName)

	if err := s.store.UpdateUser(ctx, u); err != nil {
		if errors.Is(err, models.ErrDuplicate) {
			verr := &ValidationError{}
			verr.Add("username", "A user with that username already exists.")
			return nil, verr
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	return u, nil
}

// notFound folds models.ErrNoRecord into ErrNotFound and wraps anything else.
func notFound(err error, op string) error {
	if errors.Is(err, models.ErrNoRecord) {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}
