package blog_test

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blogicum/internal/blog"
	"blogicum/internal/media"
	"blogicum/internal/memstore"
	"blogicum/internal/models"
)

var now = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type fakeMedia struct {
	saved   map[string]string
	removed []string
}

func (m *fakeMedia) Save(contentType string, r io.Reader) (string, error) {
	ext, ok := media.Extensions[contentType]
	if !ok {
		return "", media.ErrUnsupported
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	p := fmt.Sprintf("post_images/%d%s", len(m.saved)+1, ext)
	m.saved[p] = string(b)
	return p, nil
}

func (m *fakeMedia) Remove(p string) error {
	m.removed = append(m.removed, p)
	return nil
}

type fixture struct {
	t     *testing.T
	ctx   context.Context
	store *memstore.Store
	media *fakeMedia
	svc   *blog.Service

	ann, bob *models.User
	travel   *models.Category
	hidden   *models.Category
	moscow   *models.Location
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := memstore.New()
	st.SetClock(func() time.Time { return now })
	m := &fakeMedia{saved: map[string]string{}}
	f := &fixture{
		t:     t,
		ctx:   context.Background(),
		store: st,
		media: m,
		svc:   blog.NewService(st, m, blog.WithClock(func() time.Time { return now }), blog.WithMaxUpload(1024)),
	}

	f.ann = &models.User{Username: "ann"}
	f.bob = &models.User{Username: "bob"}
	require.NoError(t, st.CreateUser(f.ctx, f.ann))
	require.NoError(t, st.CreateUser(f.ctx, f.bob))

	f.travel = &models.Category{Title: "Travel", Slug: "travel", IsPublished: true}
	f.hidden = &models.Category{Title: "Hidden", Slug: "hidden", IsPublished: false}
	require.NoError(t, st.CreateCategory(f.ctx, f.travel))
	require.NoError(t, st.CreateCategory(f.ctx, f.hidden))

	f.moscow = &models.Location{Name: "Moscow", IsPublished: true}
	require.NoError(t, st.CreateLocation(f.ctx, f.moscow))
	return f
}

// post stores a public post by author; opts adjust it before saving.
func (f *fixture) post(author *models.User, title string, opts ...func(*models.Post)) *models.Post {
	f.t.Helper()
	p := &models.Post{
		Title:       title,
		Text:        "text of " + title,
		AuthorID:    author.ID,
		IsPublished: true,
		PubDate:     now.Add(-time.Hour),
	}
	for _, opt := range opts {
		opt(p)
	}
	require.NoError(f.t, f.store.CreatePost(f.ctx, p))
	return p
}

func (f *fixture) comment(author *models.User, p *models.Post, text string) *models.Comment {
	f.t.Helper()
	c := &models.Comment{PostID: p.ID, AuthorID: author.ID, Text: text}
	require.NoError(f.t, f.store.CreateComment(f.ctx, c))
	return c
}

func inCategory(c *models.Category) func(*models.Post) {
	return func(p *models.Post) { p.CategoryID = &c.ID }
}

func draft(p *models.Post) { p.IsPublished = false }

func scheduled(p *models.Post) { p.PubDate = now.Add(24 * time.Hour) }

func titles(posts []models.Post) []string {
	out := make([]string, 0, len(posts))
	for _, p := range posts {
		out = append(out, p.Title)
	}
	return out
}

func validInput() blog.PostInput {
	return blog.PostInput{
		Title:       "Fresh",
		Text:        "Body",
		PubDate:     now.Add(-time.Minute),
		IsPublished: true,
	}
}

// ---------------------------------------------------------------------------
// Listings
// ---------------------------------------------------------------------------

func TestIndexShowsOnlyPublicPosts(t *testing.T) {
	f := newFixture(t)
	f.post(f.ann, "public", inCategory(f.travel))
	f.post(f.ann, "no category")
	f.post(f.ann, "draft", draft)
	f.post(f.ann, "future", scheduled)
	f.post(f.ann, "in hidden category", inCategory(f.hidden))

	l, err := f.svc.Index(f.ctx, "")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"public", "no category"}, titles(l.Posts))
	assert.Equal(t, 2, l.Page.Total)
}

func TestIndexOrderAndCommentCount(t *testing.T) {
	f := newFixture(t)
	old := f.post(f.ann, "old", func(p *models.Post) { p.PubDate = now.Add(-48 * time.Hour) })
	f.post(f.bob, "b same time")
	f.post(f.bob, "a same time")
	f.comment(f.bob, old, "one")
	f.comment(f.ann, old, "two")

	l, err := f.svc.Index(f.ctx, "")
	require.NoError(t, err)
	require.Equal(t, []string{"a same time", "b same time", "old"}, titles(l.Posts))
	assert.Equal(t, 2, l.Posts[2].CommentCount)
	assert.Equal(t, 0, l.Posts[0].CommentCount)
	assert.Equal(t, "bob", l.Posts[0].Author)
}

func TestIndexPagination(t *testing.T) {
	f := newFixture(t)

	empty, err := f.svc.Index(f.ctx, "")
	require.NoError(t, err)
	assert.Empty(t, empty.Posts)
	assert.Equal(t, 1, empty.Page.Number)

	for i := 0; i < 12; i++ {
		f.post(f.ann, fmt.Sprintf("post %02d", i), func(p *models.Post) {
			p.PubDate = now.Add(-time.Duration(i+1) * time.Minute)
		})
	}

	first, err := f.svc.Index(f.ctx, "")
	require.NoError(t, err)
	assert.Len(t, first.Posts, blog.PageSize)
	assert.Equal(t, "post 00", first.Posts[0].Title)

	last, err := f.svc.Index(f.ctx, "last")
	require.NoError(t, err)
	assert.Equal(t, 2, last.Page.Number)
	assert.Equal(t, []string{"post 10", "post 11"}, titles(last.Posts))

	_, err = f.svc.Index(f.ctx, "3")
	assert.ErrorIs(t, err, blog.ErrInvalidPage)
	_, err = f.svc.Index(f.ctx, "x")
	assert.ErrorIs(t, err, blog.ErrInvalidPage)
}

func TestCategoryPosts(t *testing.T) {
	f := newFixture(t)
	f.post(f.ann, "trip", inCategory(f.travel))
	f.post(f.ann, "trip draft", inCategory(f.travel), draft)
	f.post(f.ann, "elsewhere")

	cat, l, err := f.svc.CategoryPosts(f.ctx, "travel", "")
	require.NoError(t, err)
	assert.Equal(t, "Travel", cat.Title)
	assert.Equal(t, []string{"trip"}, titles(l.Posts))

	_, _, err = f.svc.CategoryPosts(f.ctx, "hidden", "")
	assert.ErrorIs(t, err, blog.ErrNotFound)
	_, _, err = f.svc.CategoryPosts(f.ctx, "nope", "")
	assert.ErrorIs(t, err, blog.ErrNotFound)
}

func TestProfile(t *testing.T) {
	f := newFixture(t)
	f.post(f.ann, "public")
	f.post(f.ann, "draft", draft)
	f.post(f.ann, "future", scheduled)
	f.post(f.ann, "hidden cat", inCategory(f.hidden))
	f.post(f.bob, "bob's")

	u, own, err := f.svc.Profile(f.ctx, "ann", f.ann.ID, "")
	require.NoError(t, err)
	assert.Equal(t, f.ann.ID, u.ID)
	assert.ElementsMatch(t, []string{"public", "draft", "future", "hidden cat"}, titles(own.Posts))

	_, other, err := f.svc.Profile(f.ctx, "ann", f.bob.ID, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"public"}, titles(other.Posts))

	_, anon, err := f.svc.Profile(f.ctx, "ann", blog.Anonymous, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"public"}, titles(anon.Posts))

	_, _, err = f.svc.Profile(f.ctx, "nobody", blog.Anonymous, "")
	assert.ErrorIs(t, err, blog.ErrNotFound)
}

func TestPostDetail(t *testing.T) {
	f := newFixture(t)
	p := f.post(f.ann, "draft", draft)

	got, comments, err := f.svc.PostDetail(f.ctx, p.ID, f.ann.ID)
	require.NoError(t, err)
	assert.Equal(t, "draft", got.Title)
	assert.Empty(t, comments)

	_, _, err = f.svc.PostDetail(f.ctx, p.ID, f.bob.ID)
	assert.ErrorIs(t, err, blog.ErrNotFound)
	_, _, err = f.svc.PostDetail(f.ctx, p.ID, blog.Anonymous)
	assert.ErrorIs(t, err, blog.ErrNotFound)
	_, _, err = f.svc.PostDetail(f.ctx, 999, f.ann.ID)
	assert.ErrorIs(t, err, blog.ErrNotFound)
}

func TestPostDetailCommentsChronological(t *testing.T) {
	f := newFixture(t)
	p := f.post(f.ann, "public")
	f.store.SetClock(func() time.Time { return now.Add(time.Minute) })
	f.comment(f.bob, p, "second")
	f.store.SetClock(func() time.Time { return now })
	f.comment(f.ann, p, "first")

	_, comments, err := f.svc.PostDetail(f.ctx, p.ID, blog.Anonymous)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, "first", comments[0].Text)
	assert.Equal(t, "second", comments[1].Text)
	assert.Equal(t, "bob", comments[1].Author)
}

// ---------------------------------------------------------------------------
// Post mutations
// ---------------------------------------------------------------------------

func TestCreatePost(t *testing.T) {
	f := newFixture(t)
	in := validInput()
	in.CategoryID = f.travel.ID
	in.LocationID = f.moscow.ID

	p, err := f.svc.CreatePost(f.ctx, f.bob, in)
	require.NoError(t, err)
	assert.Equal(t, f.bob.ID, p.AuthorID)
	assert.Equal(t, "bob", p.Author)
	require.NotNil(t, p.Category)
	assert.Equal(t, "travel", p.Category.Slug)
	require.NotNil(t, p.Location)
	assert.Equal(t, "Moscow", p.Location.Name)
}

func TestCreatePostValidation(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name  string
		edit  func(*blog.PostInput)
		field string
	}{
		{"missing title", func(in *blog.PostInput) { in.Title = "" }, "title"},
		{"long title", func(in *blog.PostInput) { in.Title = strings.Repeat("x", 257) }, "title"},
		{"blank title", func(in *blog.PostInput) { in.Title = "   " }, "title"},
		{"missing text", func(in *blog.PostInput) { in.Text = "" }, "text"},
		{"blank text", func(in *blog.PostInput) { in.Text = "\n\t " }, "text"},
		{"missing pub date", func(in *blog.PostInput) { in.PubDate = time.Time{} }, "pub_date"},
		{"unknown category", func(in *blog.PostInput) { in.CategoryID = 999 }, "category"},
		{"unknown location", func(in *blog.PostInput) { in.LocationID = 999 }, "location"},
		{"not an image", func(in *blog.PostInput) {
			in.Image = &blog.Upload{Filename: "a.txt", ContentType: "text/plain; charset=utf-8", Size: 3, Body: strings.NewReader("abc")}
		}, "image"},
		{"svg image", func(in *blog.PostInput) {
			in.Image = &blog.Upload{Filename: "a.svg", ContentType: "image/svg+xml", Size: 6, Body: strings.NewReader("<svg/>")}
		}, "image"},
		{"image too large", func(in *blog.PostInput) {
			in.Image = &blog.Upload{Filename: "a.png", ContentType: "image/png", Size: 4096, Body: strings.NewReader("")}
		}, "image"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.edit(&in)
			_, err := f.svc.CreatePost(f.ctx, f.ann, in)

			var verr *blog.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Fields, tt.field)
		})
	}

	n, err := f.store.CountPosts(f.ctx, blog.PostFilter{})
	require.NoError(t, err)
	assert.Zero(t, n, "invalid input must not be stored")
	assert.Empty(t, f.media.saved)
}

func TestCreatePostTrimsText(t *testing.T) {
	f := newFixture(t)
	in := validInput()
	in.Title = "  Fresh  "
	in.Text = "\nBody\n"

	p, err := f.svc.CreatePost(f.ctx, f.ann, in)
	require.NoError(t, err)
	assert.Equal(t, "Fresh", p.Title)
	assert.Equal(t, "Body", p.Text)
}

func TestCreatePostStoresImage(t *testing.T) {
	f := newFixture(t)
	in := validInput()
	in.Image = &blog.Upload{Filename: "cat.png", ContentType: "image/png", Size: 4, Body: strings.NewReader("\x89PNG")}

	p, err := f.svc.CreatePost(f.ctx, f.ann, in)
	require.NoError(t, err)
	assert.Equal(t, "post_images/1.png", p.Image)
	assert.Equal(t, "\x89PNG", f.media.saved[p.Image])

	in = validInput()
	in.Image = &blog.Upload{Filename: "x.html", ContentType: "image/gif", Size: 6, Body: strings.NewReader("GIF89a")}
	p, err = f.svc.CreatePost(f.ctx, f.ann, in)
	require.NoError(t, err)
	assert.Equal(t, "post_images/2.gif", p.Image, "the extension follows the detected type")
}

func TestPostChangesByNonAuthorAreRefused(t *testing.T) {
	f := newFixture(t)
	p := f.post(f.ann, "mine", draft)

	_, err := f.svc.EditablePost(f.ctx, f.bob.ID, p.ID)
	assert.ErrorIs(t, err, blog.ErrNotAuthor)

	_, err = f.svc.UpdatePost(f.ctx, f.bob.ID, p.ID, validInput())
	assert.ErrorIs(t, err, blog.ErrNotAuthor)

	_, err = f.svc.DeletePost(f.ctx, f.bob.ID, p.ID)
	assert.ErrorIs(t, err, blog.ErrNotAuthor)

	got, err := f.store.Post(f.ctx, blog.PostFilter{}.ByID(p.ID))
	require.NoError(t, err)
	assert.Equal(t, "mine", got.Title)

	_, err = f.svc.EditablePost(f.ctx, f.ann.ID, 999)
	assert.ErrorIs(t, err, blog.ErrNotFound)
}

func TestUpdatePost(t *testing.T) {
	f := newFixture(t)
	p := f.post(f.ann, "before", inCategory(f.travel))

	in := validInput()
	in.Title = "after"
	updated, err := f.svc.UpdatePost(f.ctx, f.ann.ID, p.ID, in)
	require.NoError(t, err)
	assert.Equal(t, "after", updated.Title)
	assert.Nil(t, updated.Category, "an empty category clears it")
	assert.Equal(t, f.ann.ID, updated.AuthorID)
}

func TestUpdatePostImage(t *testing.T) {
	f := newFixture(t)
	in := validInput()
	in.Image = &blog.Upload{Filename: "a.png", ContentType: "image/png", Size: 1, Body: strings.NewReader("a")}
	p, err := f.svc.CreatePost(f.ctx, f.ann, in)
	require.NoError(t, err)

	in = validInput()
	in.Image = &blog.Upload{Filename: "b.jpg", ContentType: "image/jpeg", Size: 1, Body: strings.NewReader("b")}
	replaced, err := f.svc.UpdatePost(f.ctx, f.ann.ID, p.ID, in)
	require.NoError(t, err)
	assert.Equal(t, "post_images/2.jpg", replaced.Image)
	assert.Equal(t, []string{"post_images/1.png"}, f.media.removed)

	in = validInput()
	kept, err := f.svc.UpdatePost(f.ctx, f.ann.ID, p.ID, in)
	require.NoError(t, err)
	assert.Equal(t, "post_images/2.jpg", kept.Image, "no upload keeps the image")

	in.ClearImage = true
	cleared, err := f.svc.UpdatePost(f.ctx, f.ann.ID, p.ID, in)
	require.NoError(t, err)
	assert.Empty(t, cleared.Image)
	assert.Equal(t, []string{"post_images/1.png", "post_images/2.jpg"}, f.media.removed)
}

func TestDeletePostRemovesComments(t *testing.T) {
	f := newFixture(t)
	p := f.post(f.ann, "doomed")
	c := f.comment(f.bob, p, "bye")

	deleted, err := f.svc.DeletePost(f.ctx, f.ann.ID, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "ann", deleted.Author)

	_, err = f.store.Post(f.ctx, blog.PostFilter{}.ByID(p.ID))
	assert.ErrorIs(t, err, models.ErrNoRecord)
	_, err = f.store.Comment(f.ctx, c.ID)
	assert.ErrorIs(t, err, models.ErrNoRecord)
}

// ---------------------------------------------------------------------------
// Comments
// ---------------------------------------------------------------------------

func TestAddComment(t *testing.T) {
	f := newFixture(t)
	p := f.post(f.ann, "public")

	c, err := f.svc.AddComment(f.ctx, f.bob, p.ID, blog.CommentInput{Text: "nice"})
	require.NoError(t, err)
	assert.Equal(t, f.bob.ID, c.AuthorID)
	assert.Equal(t, p.ID, c.PostID)

	_, err = f.svc.AddComment(f.ctx, f.bob, 999, blog.CommentInput{Text: "nice"})
	assert.ErrorIs(t, err, blog.ErrNotFound)

	for _, text := range []string{"", " \n\t "} {
		_, err = f.svc.AddComment(f.ctx, f.bob, p.ID, blog.CommentInput{Text: text})
		var verr *blog.ValidationError
		require.ErrorAs(t, err, &verr, "text %q", text)
		assert.Contains(t, verr.Fields, "text")
	}
	comments, err := f.store.Comments(f.ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, comments, 1)

	_, err = f.svc.UpdateComment(f.ctx, f.bob.ID, p.ID, c.ID, blog.CommentInput{Text: "   "})
	var verr *blog.ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestDeleteCommentLowersCount(t *testing.T) {
	f := newFixture(t)
	p := f.post(f.ann, "public")
	f.comment(f.bob, p, "one")
	second := f.comment(f.bob, p, "two")

	count := func() int {
		t.Helper()
		l, err := f.svc.Index(f.ctx, "")
		require.NoError(t, err)
		require.Len(t, l.Posts, 1)
		return l.Posts[0].CommentCount
	}
	require.Equal(t, 2, count())

	require.NoError(t, f.svc.DeleteComment(f.ctx, f.bob.ID, p.ID, second.ID))
	assert.Equal(t, 1, count())
}

func TestCommentChanges(t *testing.T) {
	f := newFixture(t)
	p := f.post(f.ann, "public")
	other := f.post(f.ann, "other")
	c := f.comment(f.bob, p, "first draft")

	_, err := f.svc.EditableComment(f.ctx, f.ann.ID, p.ID, c.ID)
	assert.ErrorIs(t, err, blog.ErrNotAuthor, "the post author does not own the comment")

	_, err = f.svc.EditableComment(f.ctx, f.bob.ID, other.ID, c.ID)
	assert.ErrorIs(t, err, blog.ErrNotFound, "comment must belong to the post in the URL")

	_, err = f.svc.UpdateComment(f.ctx, f.ann.ID, p.ID, c.ID, blog.CommentInput{Text: "hijacked"})
	assert.ErrorIs(t, err, blog.ErrNotAuthor)

	updated, err := f.svc.UpdateComment(f.ctx, f.bob.ID, p.ID, c.ID, blog.CommentInput{Text: "final"})
	require.NoError(t, err)
	assert.Equal(t, "final", updated.Text)

	assert.ErrorIs(t, f.svc.DeleteComment(f.ctx, f.ann.ID, p.ID, c.ID), blog.ErrNotAuthor)
	require.NoError(t, f.svc.DeleteComment(f.ctx, f.bob.ID, p.ID, c.ID))
	assert.ErrorIs(t, f.svc.DeleteComment(f.ctx, f.bob.ID, p.ID, c.ID), blog.ErrNotFound)
}

// ---------------------------------------------------------------------------
// Profile
// ---------------------------------------------------------------------------

func TestUpdateProfile(t *testing.T) {
	f := newFixture(t)

	u, err := f.svc.UpdateProfile(f.ctx, f.ann.ID, blog.ProfileInput{
		Username:  "anna",
		Email:     "anna@example.com",
		FirstName: " Anna ",
		LastName:  "Karenina",
	})
	require.NoError(t, err)
	assert.Equal(t, "anna", u.Username)
	assert.Equal(t, "Anna", u.FirstName)

	_, err = f.svc.UpdateProfile(f.ctx, f.ann.ID, blog.ProfileInput{Username: "bob"})
	var verr *blog.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "username")

	_, err = f.svc.UpdateProfile(f.ctx, f.ann.ID, blog.ProfileInput{Username: "anna", Email: "not-an-email"})
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "email")
}
