package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"blogicum/internal/blog"
	"blogicum/internal/models"
)

// Store is the PostgreSQL implementation of the blog, auth and admin stores.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// mapErr translates driver errors into the models sentinels.
func mapErr(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return models.ErrNoRecord
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("%w: %s", models.ErrDuplicate, pgErr.ConstraintName)
		case "23503": // foreign_key_violation
			return fmt.Errorf("%w: %s", models.ErrNoRecord, pgErr.ConstraintName)
		}
	}
	return err
}

func affected(tag pgconn.CommandTag) error {
	if tag.RowsAffected() == 0 {
		return models.ErrNoRecord
	}
	return nil
}

// ---------------------------------------------------------------------------
// Users & sessions
// ---------------------------------------------------------------------------

const userColumns = `id, username, email, first_name, last_name, password_hash, created_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.FirstName, &u.LastName, &u.PasswordHash, &u.CreatedAt); err != nil {
		return nil, mapErr(err)
	}
	return &u, nil
}

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO users (username, email, first_name, last_name, password_hash)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		u.Username, u.Email, u.FirstName, u.LastName, u.PasswordHash,
	).Scan(&u.ID, &u.CreatedAt)
	return mapErr(err)
}

func (s *Store) UserByID(ctx context.Context, id int64) (*models.User, error) {
	return scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (s *Store) UserByUsername(ctx context.Context, username string) (*models.User, error) {
	return scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username))
}

func (s *Store) UpdateUser(ctx context.Context, u *models.User) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE users SET username = $1, email = $2, first_name = $3, last_name = $4
		 WHERE id = $5`,
		u.Username, u.Email, u.FirstName, u.LastName, u.ID)
	if err != nil {
		return mapErr(err)
	}
	return affected(tag)
}

// ReplaceSessions drops every session of sess.UserID and stores sess, atomically.
func (s *Store) ReplaceSessions(ctx context.Context, sess *models.Session) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM sessions WHERE user_id = $1`, sess.UserID); err != nil {
		return fmt.Errorf("delete old sessions: %w", err)
	}
	if err := tx.QueryRow(ctx, `
		INSERT INTO sessions (id, user_id, expires_at)
		VALUES ($1, $2, $3)
		RETURNING created_at`,
		sess.ID, sess.UserID, sess.ExpiresAt,
	).Scan(&sess.CreatedAt); err != nil {
		return mapErr(err)
	}
	return tx.Commit(ctx)
}

func (s *Store) Session(ctx context.Context, id string) (*models.Session, error) {
	var sess models.Session
	err := s.pool.QueryRow(ctx,
		`SELECT id, user_id, expires_at, created_at FROM sessions WHERE id = $1`, id,
	).Scan(&sess.ID, &sess.UserID, &sess.ExpiresAt, &sess.CreatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &sess, nil
}

func (s *Store) DeleteSession(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	return err
}

func (s *Store) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ---------------------------------------------------------------------------
// Categories & locations
// ---------------------------------------------------------------------------

const categoryColumns = `id, title, description, slug, is_published, created_at`

func scanCategory(row pgx.Row) (*models.Category, error) {
	var c models.Category
	if err := row.Scan(&c.ID, &c.Title, &c.Description, &c.Slug, &c.IsPublished, &c.CreatedAt); err != nil {
		return nil, mapErr(err)
	}
	return &c, nil
}

func (s *Store) CreateCategory(ctx context.Context, c *models.Category) error {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO categories (title, description, slug, is_published)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		c.Title, c.Description, c.Slug, c.IsPublished,
	).Scan(&c.ID, &c.CreatedAt)
	return mapErr(err)
}

func (s *Store) CategoryBySlug(ctx context.Context, slug string) (*models.Category, error) {
	return scanCategory(s.pool.QueryRow(ctx, `SELECT `+categoryColumns+` FROM categories WHERE slug = $1`, slug))
}

func (s *Store) CategoryByID(ctx context.Context, id int64) (*models.Category, error) {
	return scanCategory(s.pool.QueryRow(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = $1`, id))
}

func (s *Store) Categories(ctx context.Context) ([]models.Category, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+categoryColumns+` FROM categories ORDER BY title, id`)
	if err != nil {
		return nil, fmt.Errorf("categories query: %w", err)
	}
	defer rows.Close()

	var out []models.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("categories scan: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (s *Store) SetCategoryPublished(ctx context.Context, slug string, published bool) error {
	tag, err := s.pool.Exec(ctx, `UPDATE categories SET is_published = $1 WHERE slug = $2`, published, slug)
	if err != nil {
		return err
	}
	return affected(tag)
}

// DeleteCategory relies on ON DELETE SET NULL to detach its posts.
func (s *Store) DeleteCategory(ctx context.Context, slug string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM categories WHERE slug = $1`, slug)
	if err != nil {
		return err
	}
	return affected(tag)
}

const locationColumns = `id, name, is_published, created_at`

func scanLocation(row pgx.Row) (*models.Location, error) {
	var l models.Location
	if err := row.Scan(&l.ID, &l.Name, &l.IsPublished, &l.CreatedAt); err != nil {
		return nil, mapErr(err)
	}
	return &l, nil
}

func (s *Store) CreateLocation(ctx context.Context, l *models.Location) error {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO locations (name, is_published)
		VALUES ($1, $2)
		RETURNING id, created_at`,
		l.Name, l.IsPublished,
	).Scan(&l.ID, &l.CreatedAt)
	return mapErr(err)
}

func (s *Store) LocationByID(ctx context.Context, id int64) (*models.Location, error) {
	return scanLocation(s.pool.QueryRow(ctx, `SELECT `+locationColumns+` FROM locations WHERE id = $1`, id))
}

func (s *Store) Locations(ctx context.Context) ([]models.Location, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+locationColumns+` FROM locations ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("locations query: %w", err)
	}
	defer rows.Close()

	var out []models.Location
	for rows.Next() {
		l, err := scanLocation(rows)
		if err != nil {
			return nil, fmt.Errorf("locations scan: %w", err)
		}
		out = append(out, *l)
	}
	return out, rows.Err()
}

func (s *Store) SetLocationPublished(ctx context.Context, id int64, published bool) error {
	tag, err := s.pool.Exec(ctx, `UPDATE locations SET is_published = $1 WHERE id = $2`, published, id)
	if err != nil {
		return err
	}
	return affected(tag)
}

func (s *Store) DeleteLocation(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM locations WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return affected(tag)
}

// ---------------------------------------------------------------------------
// Posts
// ---------------------------------------------------------------------------

const postColumns = `
  p.id, p.title, p.text, p.pub_date, p.author_id, u.username,
  p.category_id, c.title, c.description, c.slug, c.is_published, c.created_at,
  p.location_id, l.name, l.is_published, l.created_at,
  p.image, p.is_published, p.created_at,
  COUNT(cm.id) AS comment_count`

const postFrom = `
FROM posts p
JOIN users u ON u.id = p.author_id
LEFT JOIN categories c ON c.id = p.category_id
LEFT JOIN locations l ON l.id = p.location_id
`

func scanPost(row pgx.Row) (*models.Post, error) {
	var (
		p                           models.Post
		catTitle, catDescr, catSlug *string
		catPublished, locPublished  *bool
		catCreated, locCreated      *time.Time
		locName                     *string
	)
	err := row.Scan(
		&p.ID, &p.Title, &p.Text, &p.PubDate, &p.AuthorID, &p.Author,
		&p.CategoryID, &catTitle, &catDescr, &catSlug, &catPublished, &catCreated,
		&p.LocationID, &locName, &locPublished, &locCreated,
		&p.Image, &p.IsPublished, &p.CreatedAt,
		&p.CommentCount,
	)
	if err != nil {
		return nil, mapErr(err)
	}
	if p.CategoryID != nil {
		p.Category = &models.Category{
			ID:          *p.CategoryID,
			Title:       *catTitle,
			Description: *catDescr,
			Slug:        *catSlug,
			IsPublished: *catPublished,
			CreatedAt:   *catCreated,
		}
	}
	if p.LocationID != nil {
		p.Location = &models.Location{
			ID:          *p.LocationID,
			Name:        *locName,
			IsPublished: *locPublished,
			CreatedAt:   *locCreated,
		}
	}
	return &p, nil
}

func (s *Store) Post(ctx context.Context, f blog.PostFilter) (*models.Post, error) {
	posts, err := s.Posts(ctx, f, 1, 0)
	if err != nil {
		return nil, err
	}
	if len(posts) == 0 {
		return nil, models.ErrNoRecord
	}
	return &posts[0], nil
}

func (s *Store) Posts(ctx context.Context, f blog.PostFilter, limit, offset int) ([]models.Post, error) {
	where, args := f.Where(1)
	q := `SELECT` + postColumns + postFrom +
		`LEFT JOIN comments cm ON cm.post_id = p.id
` + where + `
GROUP BY p.id, u.id, c.id, l.id
ORDER BY ` + blog.PostOrder + fmt.Sprintf(`
LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("posts query: %w", err)
	}
	defer rows.Close()

	var posts []models.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("posts scan: %w", err)
		}
		posts = append(posts, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("posts err: %w", err)
	}
	return posts, nil
}

func (s *Store) CountPosts(ctx context.Context, f blog.PostFilter) (int, error) {
	where, args := f.Where(1)
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*)`+postFrom+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count posts: %w", err)
	}
	return n, nil
}

func (s *Store) CreatePost(ctx context.Context, p *models.Post) error {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO posts (title, text, pub_date, author_id, category_id, location_id, image, is_published)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`,
		p.Title, p.Text, p.PubDate, p.AuthorID, p.CategoryID, p.LocationID, p.Image, p.IsPublished,
	).Scan(&p.ID, &p.CreatedAt)
	return mapErr(err)
}

// UpdatePost never changes the author or the creation time.
func (s *Store) UpdatePost(ctx context.Context, p *models.Post) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE posts
		   SET title = $1, text = $2, pub_date = $3, category_id = $4,
		       location_id = $5, image = $6, is_published = $7
		 WHERE id = $8`,
		p.Title, p.Text, p.PubDate, p.CategoryID, p.LocationID, p.Image, p.IsPublished, p.ID)
	if err != nil {
		return mapErr(err)
	}
	return affected(tag)
}

// DeletePost cascades to the post's comments.
func (s *Store) DeletePost(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return affected(tag)
}

// ---------------------------------------------------------------------------
// Comments
// ---------------------------------------------------------------------------

const commentSelect = `
SELECT cm.id, cm.post_id, cm.author_id, u.username, cm.text, cm.created_at
  FROM comments cm
  JOIN users u ON u.id = cm.author_id
`

func scanComment(row pgx.Row) (*models.Comment, error) {
	var c models.Comment
	if err := row.Scan(&c.ID, &c.PostID, &c.AuthorID, &c.Author, &c.Text, &c.CreatedAt); err != nil {
		return nil, mapErr(err)
	}
	return &c, nil
}

func (s *Store) Comments(ctx context.Context, postID int64) ([]models.Comment, error) {
	rows, err := s.pool.Query(ctx, commentSelect+` WHERE cm.post_id = $1 ORDER BY cm.created_at ASC, cm.id ASC`, postID)
	if err != nil {
		return nil, fmt.Errorf("comments query: %w", err)
	}
	defer rows.Close()

	var out []models.Comment
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("comments scan: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (s *Store) Comment(ctx context.Context, id int64) (*models.Comment, error) {
	return scanComment(s.pool.QueryRow(ctx, commentSelect+` WHERE cm.id = $1`, id))
}

func (s *Store) CreateComment(ctx context.Context, c *models.Comment) error {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO comments (text, post_id, author_id)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`,
		c.Text, c.PostID, c.AuthorID,
	).Scan(&c.ID, &c.CreatedAt)
	return mapErr(err)
}

// UpdateComment changes the text only.
func (s *Store) UpdateComment(ctx context.Context, c *models.Comment) error {
	tag, err := s.pool.Exec(ctx, `UPDATE comments SET text = $1 WHERE id = $2`, c.Text, c.ID)
	if err != nil {
		return err
	}
	return affected(tag)
}

func (s *Store) DeleteComment(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM comments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return affected(tag)
}
