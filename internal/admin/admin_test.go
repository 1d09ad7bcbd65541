package admin

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blogicum/internal/memstore"
)

func TestCategories(t *testing.T) {
	ctx := context.Background()
	svc := NewService(memstore.New())

	c, err := svc.CreateCategory(ctx, CategoryInput{Title: " Travel ", Description: "Trips", Slug: "travel", Published: true})
	require.NoError(t, err)
	assert.Equal(t, "Travel", c.Title)
	assert.NotZero(t, c.ID)

	_, err = svc.CreateCategory(ctx, CategoryInput{Title: "Again", Description: "x", Slug: "travel"})
	assert.ErrorIs(t, err, ErrSlugTaken)

	_, err = svc.CreateCategory(ctx, CategoryInput{Title: "Bad", Description: "x", Slug: "no spaces"})
	var ierr *InputError
	require.ErrorAs(t, err, &ierr)
	assert.Contains(t, ierr.Fields, "slug")

	require.NoError(t, svc.PublishCategory(ctx, "travel", false))
	cats, err := svc.Categories(ctx)
	require.NoError(t, err)
	require.Len(t, cats, 1)
	assert.False(t, cats[0].IsPublished)

	assert.ErrorIs(t, svc.PublishCategory(ctx, "nope", true), ErrNotFound)
	require.NoError(t, svc.DeleteCategory(ctx, "travel"))
	assert.ErrorIs(t, svc.DeleteCategory(ctx, "travel"), ErrNotFound)
}

func TestLocations(t *testing.T) {
	ctx := context.Background()
	svc := NewService(memstore.New())

	_, err := svc.CreateLocation(ctx, LocationInput{Name: "  "})
	var ierr *InputError
	require.ErrorAs(t, err, &ierr)
	assert.Contains(t, ierr.Fields, "name")

	l, err := svc.CreateLocation(ctx, LocationInput{Name: "Moscow", Published: true})
	require.NoError(t, err)

	require.NoError(t, svc.PublishLocation(ctx, l.ID, false))
	locs, err := svc.Locations(ctx)
	require.NoError(t, err)
	require.Len(t, locs, 1)
	assert.False(t, locs[0].IsPublished)

	require.NoError(t, svc.DeleteLocation(ctx, l.ID))
	assert.ErrorIs(t, svc.PublishLocation(ctx, l.ID, true), ErrNotFound)
}

func TestInputErrorListsFieldsInOrder(t *testing.T) {
	err := &InputError{Fields: map[string]string{
		"title":       "required",
		"description": "required",
		"slug":        "invalid",
	}}
	for range 5 {
		assert.Equal(t, "admin: description: required; slug: invalid; title: required", err.Error())
	}
}
