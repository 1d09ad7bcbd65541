// Package memstore is a map-backed store. It serves the same interfaces as the
// PostgreSQL store and evaluates post filters in memory.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"blogicum/internal/blog"
	"blogicum/internal/models"
)

type Store struct {
	mu  sync.RWMutex
	now func() time.Time

	lastID     int64
	users      map[int64]models.User
	sessions   map[string]models.Session
	categories map[int64]models.Category
	locations  map[int64]models.Location
	posts      map[int64]models.Post
	comments   map[int64]models.Comment
}

func New() *Store {
	return &Store{
		now:        time.Now,
		users:      make(map[int64]models.User),
		sessions:   make(map[string]models.Session),
		categories: make(map[int64]models.Category),
		locations:  make(map[int64]models.Location),
		posts:      make(map[int64]models.Post),
		comments:   make(map[int64]models.Comment),
	}
}

// SetClock changes the source of created_at timestamps.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Store) nextID() int64 {
	s.lastID++
	return s.lastID
}

// ---------------------------------------------------------------------------
// Users & sessions
// ---------------------------------------------------------------------------

func (s *Store) CreateUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.usernameTaken(u.Username, 0) {
		return models.ErrDuplicate
	}
	u.ID = s.nextID()
	u.CreatedAt = s.now()
	s.users[u.ID] = *u
	return nil
}

func (s *Store) usernameTaken(username string, except int64) bool {
	for id, u := range s.users {
		if id != except && u.Username == username {
			return true
		}
	}
	return false
}

func (s *Store) UserByID(_ context.Context, id int64) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, models.ErrNoRecord
	}
	return &u, nil
}

func (s *Store) UserByUsername(_ context.Context, username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, models.ErrNoRecord
}

func (s *Store) UpdateUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; !ok {
		return models.ErrNoRecord
	}
	if s.usernameTaken(u.Username, u.ID) {
		return models.ErrDuplicate
	}
	s.users[u.ID] = *u
	return nil
}

func (s *Store) ReplaceSessions(_ context.Context, sess *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[sess.UserID]; !ok {
		return models.ErrNoRecord
	}
	for id, old := range s.sessions {
		if old.UserID == sess.UserID {
			delete(s.sessions, id)
		}
	}
	sess.CreatedAt = s.now()
	s.sessions[sess.ID] = *sess
	return nil
}

func (s *Store) Session(_ context.Context, id string) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, models.ErrNoRecord
	}
	return &sess, nil
}

func (s *Store) DeleteSession(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

func (s *Store) DeleteExpiredSessions(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, sess := range s.sessions {
		if !sess.ExpiresAt.After(now) {
			delete(s.sessions, id)
			n++
		}
	}
	return n, nil
}

// ---------------------------------------------------------------------------
// Categories & locations
// ---------------------------------------------------------------------------

func (s *Store) CreateCategory(_ context.Context, c *models.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, other := range s.categories {
		if other.Slug == c.Slug {
			return models.ErrDuplicate
		}
	}
	c.ID = s.nextID()
	c.CreatedAt = s.now()
	s.categories[c.ID] = *c
	return nil
}

func (s *Store) CategoryBySlug(_ context.Context, slug string) (*models.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.categories {
		if c.Slug == slug {
			return &c, nil
		}
	}
	return nil, models.ErrNoRecord
}

func (s *Store) CategoryByID(_ context.Context, id int64) (*models.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.categories[id]
	if !ok {
		return nil, models.ErrNoRecord
	}
	return &c, nil
}

func (s *Store) Categories(_ context.Context) ([]models.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Category, 0, len(s.categories))
	for _, c := range s.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Title != out[j].Title {
			return out[i].Title < out[j].Title
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) SetCategoryPublished(_ context.Context, slug string, published bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, c := range s.categories {
		if c.Slug == slug {
			c.IsPublished = published
			s.categories[id] = c
			return nil
		}
	}
	return models.ErrNoRecord
}

// DeleteCategory detaches the category from its posts before removing it.
func (s *Store) DeleteCategory(_ context.Context, slug string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, c := range s.categories {
		if c.Slug != slug {
			continue
		}
		for pid, p := range s.posts {
			if p.CategoryID != nil && *p.CategoryID == id {
				p.CategoryID = nil
				s.posts[pid] = p
			}
		}
		delete(s.categories, id)
		return nil
	}
	return models.ErrNoRecord
}

func (s *Store) CreateLocation(_ context.Context, l *models.Location) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l.ID = s.nextID()
	l.CreatedAt = s.now()
	s.locations[l.ID] = *l
	return nil
}

func (s *Store) LocationByID(_ context.Context, id int64) (*models.Location, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.locations[id]
	if !ok {
		return nil, models.ErrNoRecord
	}
	return &l, nil
}

func (s *Store) Locations(_ context.Context) ([]models.Location, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Location, 0, len(s.locations))
	for _, l := range s.locations {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) SetLocationPublished(_ context.Context, id int64, published bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locations[id]
	if !ok {
		return models.ErrNoRecord
	}
	l.IsPublished = published
	s.locations[id] = l
	return nil
}

func (s *Store) DeleteLocation(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.locations[id]; !ok {
		return models.ErrNoRecord
	}
	for pid, p := range s.posts {
		if p.LocationID != nil && *p.LocationID == id {
			p.LocationID = nil
			s.posts[pid] = p
		}
	}
	delete(s.locations, id)
	return nil
}

// ---------------------------------------------------------------------------
// Posts
// ---------------------------------------------------------------------------

// hydrate fills the joined fields of a stored post. Callers hold s.mu.
func (s *Store) hydrate(p models.Post) models.Post {
	if u, ok := s.users[p.AuthorID]; ok {
		p.Author = u.Username
	}
	p.Category = nil
	if p.CategoryID != nil {
		if c, ok := s.categories[*p.CategoryID]; ok {
			p.Category = &c
		}
	}
	p.Location = nil
	if p.LocationID != nil {
		if l, ok := s.locations[*p.LocationID]; ok {
			p.Location = &l
		}
	}
	p.CommentCount = 0
	for _, c := range s.comments {
		if c.PostID == p.ID {
			p.CommentCount++
		}
	}
	return p
}

func (s *Store) matching(f blog.PostFilter) []models.Post {
	var out []models.Post
	for _, p := range s.posts {
		p = s.hydrate(p)
		if f.Match(&p) {
			out = append(out, p)
		}
	}
	blog.SortPosts(out)
	return out
}

func (s *Store) Post(_ context.Context, f blog.PostFilter) (*models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	posts := s.matching(f)
	if len(posts) == 0 {
		return nil, models.ErrNoRecord
	}
	return &posts[0], nil
}

func (s *Store) Posts(_ context.Context, f blog.PostFilter, limit, offset int) ([]models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	posts := s.matching(f)
	if offset >= len(posts) {
		return nil, nil
	}
	posts = posts[offset:]
	if limit > 0 && limit < len(posts) {
		posts = posts[:limit]
	}
	return posts, nil
}

func (s *Store) CountPosts(_ context.Context, f blog.PostFilter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.matching(f)), nil
}

func (s *Store) CreatePost(_ context.Context, p *models.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkPostRefs(p); err != nil {
		return err
	}
	p.ID = s.nextID()
	p.CreatedAt = s.now()
	s.posts[p.ID] = s.strip(*p)
	*p = s.hydrate(s.posts[p.ID])
	return nil
}

func (s *Store) UpdatePost(_ context.Context, p *models.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.posts[p.ID]
	if !ok {
		return models.ErrNoRecord
	}
	if err := s.checkPostRefs(p); err != nil {
		return err
	}
	next := s.strip(*p)
	next.AuthorID = old.AuthorID
	next.CreatedAt = old.CreatedAt
	s.posts[p.ID] = next
	return nil
}

func (s *Store) DeletePost(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.posts[id]; !ok {
		return models.ErrNoRecord
	}
	for cid, c := range s.comments {
		if c.PostID == id {
			delete(s.comments, cid)
		}
	}
	delete(s.posts, id)
	return nil
}

func (s *Store) checkPostRefs(p *models.Post) error {
	if _, ok := s.users[p.AuthorID]; !ok {
		return models.ErrNoRecord
	}
	if p.CategoryID != nil {
		if _, ok := s.categories[*p.CategoryID]; !ok {
			return models.ErrNoRecord
		}
	}
	if p.LocationID != nil {
		if _, ok := s.locations[*p.LocationID]; !ok {
			return models.ErrNoRecord
		}
	}
	return nil
}

// strip drops the fields that are computed on read.
func (s *Store) strip(p models.Post) models.Post {
	p.Author = ""
	p.Category = nil
	p.Location = nil
	p.CommentCount = 0
	return p
}

// ---------------------------------------------------------------------------
// Comments
// ---------------------------------------------------------------------------

func (s *Store) Comments(_ context.Context, postID int64) ([]models.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Comment
	for _, c := range s.comments {
		if c.PostID == postID {
			c.Author = s.users[c.AuthorID].Username
			out = append(out, c)
		}
	}
	blog.SortComments(out)
	return out, nil
}

func (s *Store) Comment(_ context.Context, id int64) (*models.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.comments[id]
	if !ok {
		return nil, models.ErrNoRecord
	}
	c.Author = s.users[c.AuthorID].Username
	return &c, nil
}

func (s *Store) CreateComment(_ context.Context, c *models.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.posts[c.PostID]; !ok {
		return models.ErrNoRecord
	}
	if _, ok := s.users[c.AuthorID]; !ok {
		return models.ErrNoRecord
	}
	c.ID = s.nextID()
	c.CreatedAt = s.now()
	c.Author = s.users[c.AuthorID].Username
	s.comments[c.ID] = *c
	return nil
}

// UpdateComment changes the text only; author, post and created_at are fixed.
func (s *Store) UpdateComment(_ context.Context, c *models.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.comments[c.ID]
	if !ok {
		return models.ErrNoRecord
	}
	old.Text = c.Text
	s.comments[c.ID] = old
	return nil
}

func (s *Store) DeleteComment(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.comments[id]; !ok {
		return models.ErrNoRecord
	}
	delete(s.comments, id)
	return nil
}
