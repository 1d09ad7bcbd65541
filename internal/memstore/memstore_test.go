package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blogicum/internal/blog"
	"blogicum/internal/models"
)

func TestUsersAreUniqueByUsername(t *testing.T) {
	ctx := context.Background()
	s := New()

	ann := &models.User{Username: "ann"}
	require.NoError(t, s.CreateUser(ctx, ann))
	assert.NotZero(t, ann.ID)

	assert.ErrorIs(t, s.CreateUser(ctx, &models.User{Username: "ann"}), models.ErrDuplicate)
	require.NoError(t, s.CreateUser(ctx, &models.User{Username: "Ann"}), "usernames are case-sensitive")

	ann.Username = "Ann"
	assert.ErrorIs(t, s.UpdateUser(ctx, ann), models.ErrDuplicate)
}

func TestReplaceSessions(t *testing.T) {
	ctx := context.Background()
	s := New()
	u := &models.User{Username: "ann"}
	require.NoError(t, s.CreateUser(ctx, u))

	now := time.Now()
	require.NoError(t, s.ReplaceSessions(ctx, &models.Session{ID: "a", UserID: u.ID, ExpiresAt: now.Add(time.Hour)}))
	require.NoError(t, s.ReplaceSessions(ctx, &models.Session{ID: "b", UserID: u.ID, ExpiresAt: now.Add(-time.Hour)}))

	_, err := s.Session(ctx, "a")
	assert.ErrorIs(t, err, models.ErrNoRecord, "a new login drops earlier sessions")

	n, err := s.DeleteExpiredSessions(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	assert.ErrorIs(t, s.ReplaceSessions(ctx, &models.Session{ID: "c", UserID: 999}), models.ErrNoRecord)
}

func TestPostsHonourFilterAndPaging(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s := New()
	s.SetClock(func() time.Time { return now })

	u := &models.User{Username: "ann"}
	require.NoError(t, s.CreateUser(ctx, u))
	cat := &models.Category{Title: "T", Slug: "t", IsPublished: false}
	require.NoError(t, s.CreateCategory(ctx, cat))

	for i, title := range []string{"c", "b", "a"} {
		p := &models.Post{Title: title, AuthorID: u.ID, IsPublished: true, PubDate: now.Add(-time.Duration(i) * time.Hour)}
		require.NoError(t, s.CreatePost(ctx, p))
	}
	hidden := &models.Post{Title: "hidden", AuthorID: u.ID, IsPublished: true, PubDate: now, CategoryID: &cat.ID}
	require.NoError(t, s.CreatePost(ctx, hidden))
	assert.Equal(t, "ann", hidden.Author)
	require.NotNil(t, hidden.Category)

	public := blog.PostFilter{}.VisibleTo(blog.Anonymous, now)
	n, err := s.CountPosts(ctx, public)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	page, err := s.Posts(ctx, public, 2, 1)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "b", page[0].Title)
	assert.Equal(t, "a", page[1].Title)

	past, err := s.Posts(ctx, public, 2, 10)
	require.NoError(t, err)
	assert.Empty(t, past)

	own, err := s.CountPosts(ctx, blog.PostFilter{}.VisibleTo(u.ID, now))
	require.NoError(t, err)
	assert.Equal(t, 4, own)
}

func TestDeleteCategoryKeepsPosts(t *testing.T) {
	ctx := context.Background()
	s := New()
	u := &models.User{Username: "ann"}
	require.NoError(t, s.CreateUser(ctx, u))
	cat := &models.Category{Title: "T", Slug: "t", IsPublished: true}
	require.NoError(t, s.CreateCategory(ctx, cat))
	loc := &models.Location{Name: "L", IsPublished: true}
	require.NoError(t, s.CreateLocation(ctx, loc))

	p := &models.Post{Title: "p", AuthorID: u.ID, CategoryID: &cat.ID, LocationID: &loc.ID}
	require.NoError(t, s.CreatePost(ctx, p))

	require.NoError(t, s.DeleteCategory(ctx, "t"))
	require.NoError(t, s.DeleteLocation(ctx, loc.ID))

	got, err := s.Post(ctx, blog.PostFilter{}.ByID(p.ID))
	require.NoError(t, err)
	assert.Nil(t, got.CategoryID)
	assert.Nil(t, got.Category)
	assert.Nil(t, got.LocationID)

	assert.ErrorIs(t, s.DeleteCategory(ctx, "t"), models.ErrNoRecord)
}

func TestCreatePostChecksReferences(t *testing.T) {
	ctx := context.Background()
	s := New()
	missing := int64(42)
	assert.ErrorIs(t, s.CreatePost(ctx, &models.Post{Title: "x", AuthorID: 1}), models.ErrNoRecord)

	u := &models.User{Username: "ann"}
	require.NoError(t, s.CreateUser(ctx, u))
	assert.ErrorIs(t, s.CreatePost(ctx, &models.Post{Title: "x", AuthorID: u.ID, CategoryID: &missing}), models.ErrNoRecord)
	assert.ErrorIs(t, s.CreateComment(ctx, &models.Comment{PostID: missing, AuthorID: u.ID, Text: "x"}), models.ErrNoRecord)
}
