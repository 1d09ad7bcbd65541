// Package admin manages the categories and locations posts refer to. It stands in
// for a back-office console and is driven from the command line.
package admin

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"blogicum/internal/models"
	"blogicum/internal/validation"
)

var (
	ErrNotFound  = errors.New("admin: no such record")
	ErrSlugTaken = errors.New("admin: slug already in use")
)

type Store interface {
	CreateCategory(ctx context.Context, c *models.Category) error
	Categories(ctx context.Context) ([]models.Category, error)
	SetCategoryPublished(ctx context.Context, slug string, published bool) error
	DeleteCategory(ctx context.Context, slug string) error

	CreateLocation(ctx context.Context, l *models.Location) error
	Locations(ctx context.Context) ([]models.Location, error)
	SetLocationPublished(ctx context.Context, id int64, published bool) error
	DeleteLocation(ctx context.Context, id int64) error
}

type CategoryInput struct {
	Title       string `form:"title" validate:"required,max=256"`
	Description string `form:"description" validate:"required"`
	Slug        string `form:"slug" validate:"required,max=64,slug"`
	Published   bool   `form:"is_published"`
}

type LocationInput struct {
	Name      string `form:"name" validate:"required,max=256"`
	Published bool   `form:"is_published"`
}

// InputError lists the invalid fields of an admin input.
type InputError struct {
	Fields map[string]string
}

func (e *InputError) Error() string {
	names := slices.Sorted(maps.Keys(e.Fields))
	parts := make([]string, 0, len(names))
	for _, f := range names {
		parts = append(parts, f+": "+e.Fields[f])
	}
	return "admin: " + strings.Join(parts, "; ")
}

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

func (s *Service) CreateCategory(ctx context.Context, in CategoryInput) (*models.Category, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Slug = strings.TrimSpace(in.Slug)
	if fields := validation.Struct(in); fields != nil {
		return nil, &InputError{Fields: fields}
	}
	c := &models.Category{
		Title:       in.Title,
		Description: in.Description,
		Slug:        in.Slug,
		IsPublished: in.Published,
	}
	if err := s.store.CreateCategory(ctx, c); err != nil {
		if errors.Is(err, models.ErrDuplicate) {
			return nil, ErrSlugTaken
		}
		return nil, fmt.Errorf("create category: %w", err)
	}
	return c, nil
}

func (s *Service) Categories(ctx context.Context) ([]models.Category, error) {
	return s.store.Categories(ctx)
}

// PublishCategory shows or hides a category together with all its posts.
func (s *Service) PublishCategory(ctx context.Context, slug string, published bool) error {
	return notFound(s.store.SetCategoryPublished(ctx, slug, published))
}

// DeleteCategory keeps the category's posts; they lose their category.
func (s *Service) DeleteCategory(ctx context.Context, slug string) error {
	return notFound(s.store.DeleteCategory(ctx, slug))
}

func (s *Service) CreateLocation(ctx context.Context, in LocationInput) (*models.Location, error) {
	in.Name = strings.TrimSpace(in.Name)
	if fields := validation.Struct(in); fields != nil {
		return nil, &InputError{Fields: fields}
	}
	l := &models.Location{Name: in.Name, IsPublished: in.Published}
	if err := s.store.CreateLocation(ctx, l); err != nil {
		return nil, fmt.Errorf("create location: %w", err)
	}
	return l, nil
}

func (s *Service) Locations(ctx context.Context) ([]models.Location, error) {
	return s.store.Locations(ctx)
}

func (s *Service) PublishLocation(ctx context.Context, id int64, published bool) error {
	return notFound(s.store.SetLocationPublished(ctx, id, published))
}

func (s *Service) DeleteLocation(ctx context.Context, id int64) error {
	return notFound(s.store.DeleteLocation(ctx, id))
}

func notFound(err error) error {
	if errors.Is(err, models.ErrNoRecord) {
		return ErrNotFound
	}
	return err
}
