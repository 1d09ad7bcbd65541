package blog

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"

	"blogicum/internal/models"
)

// PostOrder is the listing order: newest publication first, then by title in
// byte order whatever the database collation, then by id.
const PostOrder = `p.pub_date DESC, p.title COLLATE "C" ASC, p.id ASC`

// PostFilter selects posts. The zero value selects every post. Stores must honour
// it at the data source: SQL stores through Where, others through Match, so that no
// listing ever carries a post the filter rejects.
//
// Where assumes the aliases p (posts), u (users, the author) and c (categories,
// LEFT JOINed).
type PostFilter struct {
	ID           int64
	CategorySlug string
	Author       string

	// Visible restricts the selection to posts IsVisible grants Viewer at Now.
	Visible bool
	Viewer  int64
	Now     time.Time
}

func (f PostFilter) ByID(id int64) PostFilter {
	f.ID = id
	return f
}

func (f PostFilter) InCategory(slug string) PostFilter {
	f.CategorySlug = slug
	return f
}

func (f PostFilter) ByAuthor(username string) PostFilter {
	f.Author = username
	return f
}

// VisibleTo applies the visibility predicate for viewer at now. Pass Anonymous
// to get the public view.
func (f PostFilter) VisibleTo(viewer int64, now time.Time) PostFilter {
	f.Visible = true
	f.Viewer = viewer
	f.Now = now
	return f
}

// Match evaluates the filter against a loaded post. p.Category must be loaded
// whenever p.CategoryID is set.
func (f PostFilter) Match(p *models.Post) bool {
	if f.ID != 0 && p.ID != f.ID {
		return false
	}
	if f.CategorySlug != "" && (p.Category == nil || p.Category.Slug != f.CategorySlug) {
		return false
	}
	if f.Author != "" && p.Author != f.Author {
		return false
	}
	if f.Visible && !IsVisible(p, f.Viewer, f.Now) {
		return false
	}
	return true
}

// Where renders the filter as a WHERE clause whose placeholders are numbered from
// start. It returns an empty clause when the filter selects everything.
func (f PostFilter) Where(start int) (string, []any) {
	var (
		conds []string
		args  []any
	)
	nextArg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", start+len(args)-1)
	}

	if f.ID != 0 {
		conds = append(conds, "p.id = "+nextArg(f.ID))
	}
	if f.CategorySlug != "" {
		conds = append(conds, "c.slug = "+nextArg(f.CategorySlug))
	}
	if f.Author != "" {
		conds = append(conds, "u.username = "+nextArg(f.Author))
	}
	if f.Visible {
		var own string
		if f.Viewer != Anonymous {
			own = "p.author_id = " + nextArg(f.Viewer) + " OR "
		}
		public := "(p.is_published AND (c.id IS NULL OR c.is_published) AND p.pub_date <= " + nextArg(f.Now) + ")"
		if own != "" {
			public = "(" + own + public + ")"
		}
		conds = append(conds, public)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

// SortPosts orders posts by PostOrder in place.
func SortPosts(posts []models.Post) {
	slices.SortStableFunc(posts, func(a, b models.Post) int {
		if c := b.PubDate.Compare(a.PubDate); c != 0 {
			return c
		}
		if c := strings.Compare(a.Title, b.Title); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

// SortComments orders comments chronologically, ties broken by id.
func SortComments(comments []models.Comment) {
	slices.SortStableFunc(comments, func(a, b models.Comment) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
}
