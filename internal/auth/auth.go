package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"blogicum/internal/models"
	"blogicum/internal/validation"
)

var (
	ErrUsernameTaken = errors.New("username already taken")
	ErrInvalidLogin  = errors.New("invalid username or password")
	ErrNoSession     = errors.New("session not found")
)

// FormError carries per-field registration failures.
type FormError struct {
	Fields map[string]string
}

func (e *FormError) Error() string {
	return fmt.Sprintf("invalid registration: %v", e.Fields)
}

// Store is what authentication needs from persistence.
type Store interface {
	CreateUser(ctx context.Context, u *models.User) error
	UserByID(ctx context.Context, id int64) (*models.User, error)
	UserByUsername(ctx context.Context, username string) (*models.User, error)
	ReplaceSessions(ctx context.Context, s *models.Session) error
	Session(ctx context.Context, id string) (*models.Session, error)
	DeleteSession(ctx context.Context, id string) error
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

type Service struct {
	store    Store
	lifetime time.Duration
	now      func() time.Time
	cost     int
}

func NewService(store Store, lifetime time.Duration) *Service {
	return &Service{
		store:    store,
		lifetime: lifetime,
		now:      time.Now,
		cost:     bcrypt.DefaultCost,
	}
}

// WithCost returns a copy hashing passwords at cost. Tests use bcrypt.MinCost.
func (s *Service) WithCost(cost int) *Service {
	c := *s
	c.cost = cost
	return &c
}

func (s *Service) WithClock(now func() time.Time) *Service {
	c := *s
	c.now = now
	return &c
}

// ----------------------------
// Context helpers
// ----------------------------

type ctxKeyUser struct{}

func WithUser(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, ctxKeyUser{}, u)
}

// UserFrom returns the authenticated user, if any.
func UserFrom(ctx context.Context) (*models.User, bool) {
	u, _ := ctx.Value(ctxKeyUser{}).(*models.User)
	return u, u != nil
}

// UserIDFrom returns 0 for anonymous requests.
func UserIDFrom(ctx context.Context) (int64, bool) {
	u, ok := UserFrom(ctx)
	if !ok {
		return 0, false
	}
	return u.ID, true
}

// ----------------------------
// Register
// ----------------------------

type Registration struct {
	Username  string `form:"username" validate:"required,max=150,username"`
	Email     string `form:"email" validate:"omitempty,email,max=254"`
	FirstName string `form:"first_name" validate:"max=150"`
	LastName  string `form:"last_name" validate:"max=150"`
	Password1 string `form:"password1" validate:"required,min=8"`
	Password2 string `form:"password2" validate:"required,eqfield=Password1"`
}

func (s *Service) Register(ctx context.Context, r Registration) (*models.User, error) {
	r.Username = strings.TrimSpace(r.Username)
	r.Email = strings.TrimSpace(strings.ToLower(r.Email))

	if fields := validation.Struct(r); fields != nil {
		return nil, &FormError{Fields: fields}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(r.Password1), s.cost)
	if err != nil {
		return nil, err
	}

	u := &models.User{
		Username:     r.Username,
		Email:        r.Email,
		FirstName:    strings.TrimSpace(r.FirstName),
		LastName:     strings.TrimSpace(r.LastName),
		PasswordHash: string(hash),
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		if errors.Is(err, models.ErrDuplicate) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	slog.Info("auth.Register: OK", "username", u.Username, "uid", u.ID)
	return u, nil
}

// ----------------------------
// Login (new session, earlier ones dropped)
// ----------------------------

func (s *Service) Login(ctx context.Context, username, password string) (*models.Session, *models.User, error) {
	username = strings.TrimSpace(username)

	u, err := s.store.UserByUsername(ctx, username)
	if errors.Is(err, models.ErrNoRecord) {
		slog.Info("auth.Login: no user", "username", username)
		return nil, nil, ErrInvalidLogin
	}
	if err != nil {
		return nil, nil, fmt.Errorf("query user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		slog.Info("auth.Login: bad password", "username", username)
		return nil, nil, ErrInvalidLogin
	}

	sess := &models.Session{
		ID:        uuid.New().String(),
		UserID:    u.ID,
		ExpiresAt: s.now().Add(s.lifetime),
	}
	if err := s.store.ReplaceSessions(ctx, sess); err != nil {
		return nil, nil, fmt.Errorf("create session: %w", err)
	}

	slog.Info("auth.Login: OK", "username", username, "uid", u.ID)
	return sess, u, nil
}

func (s *Service) Logout(ctx context.Context, sid string) error {
	return s.store.DeleteSession(ctx, sid)
}

// UserFromSession resolves a live session id to its user.
func (s *Service) UserFromSession(ctx context.Context, sid string) (*models.User, error) {
	if _, err := uuid.Parse(sid); err != nil {
		return nil, ErrNoSession
	}
	sess, err := s.store.Session(ctx, sid)
	if errors.Is(err, models.ErrNoRecord) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, err
	}
	if !sess.ExpiresAt.After(s.now()) {
		return nil, ErrNoSession
	}
	u, err := s.store.UserByID(ctx, sess.UserID)
	if errors.Is(err, models.ErrNoRecord) {
		return nil, ErrNoSession
	}
	return u, err
}

// PurgeExpired deletes sessions that can no longer authenticate anyone.
func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	return s.store.DeleteExpiredSessions(ctx, s.now())
}

// SafeNext returns next when it is a local absolute path, fallback otherwise.
func SafeNext(next, fallback string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, `\`) {
		return fallback
	}
	return next
}
