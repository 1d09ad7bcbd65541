// Package httpx is the web front end: routing, sessions, forms and pages.
package httpx

import (
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"blogicum/internal/app"
	"blogicum/internal/auth"
	"blogicum/internal/blog"
	"blogicum/internal/metrics"
	"blogicum/internal/util"
	"blogicum/web"
)

type Server struct {
	Blog  *blog.Service
	Auth  *auth.Service
	Views *util.Renderer
	Cfg   app.Config
	Loc   *time.Location
	Log   *slog.Logger
	Mux   *http.ServeMux

	now     func() time.Time
	handler http.Handler
}

func NewServer(blogSvc *blog.Service, authSvc *auth.Service, views *util.Renderer, cfg app.Config, log *slog.Logger) (*Server, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		Blog:  blogSvc,
		Auth:  authSvc,
		Views: views,
		Cfg:   cfg,
		Loc:   loc,
		Log:   log,
		Mux:   http.NewServeMux(),
		now:   time.Now,
	}

	static, err := fs.Sub(web.FS, "static")
	if err != nil {
		return nil, err
	}
	s.Mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(static)))
	s.Mux.Handle("GET /media/", noSniff(http.StripPrefix("/media/", http.FileServer(noDirs{http.Dir(cfg.MediaDir)}))))
	s.Mux.Handle("GET /metrics", metrics.Handler())

	// routes
	s.route("GET /{$}", s.handleIndex)
	s.route("GET /category/{slug}/{$}", s.handleCategory)
	s.route("GET /profile/{username}/{$}", s.handleProfile)
	s.route("GET /pages/about/{$}", s.handleStatic("about.html"))
	s.route("GET /pages/rules/{$}", s.handleStatic("rules.html"))

	s.route("GET /posts/{post_id}/{$}", s.handlePostDetail)
	s.authRoute("GET /posts/create/{$}", s.handlePostCreateForm)
	s.authRoute("POST /posts/create/{$}", s.handlePostCreate)
	s.authRoute("GET /posts/{post_id}/edit/{$}", s.handlePostEditForm)
	s.authRoute("POST /posts/{post_id}/edit/{$}", s.handlePostEdit)
	s.authRoute("GET /posts/{post_id}/delete/{$}", s.handlePostDeleteForm)
	s.authRoute("POST /posts/{post_id}/delete/{$}", s.handlePostDelete)

	s.authRoute("POST /posts/{post_id}/comment/{$}", s.handleCommentCreate)
	s.authRoute("GET /posts/{post_id}/edit_comment/{comment_id}/{$}", s.handleCommentEditForm)
	s.authRoute("POST /posts/{post_id}/edit_comment/{comment_id}/{$}", s.handleCommentEdit)
	s.authRoute("GET /posts/{post_id}/delete_comment/{comment_id}/{$}", s.handleCommentDeleteForm)
	s.authRoute("POST /posts/{post_id}/delete_comment/{comment_id}/{$}", s.handleCommentDelete)

	s.authRoute("GET /edit_profile/{$}", s.handleProfileEditForm)
	s.authRoute("POST /edit_profile/{$}", s.handleProfileEdit)

	s.route("GET /auth/registration/{$}", s.handleRegisterForm)
	s.route("POST /auth/registration/{$}", s.handleRegister)
	s.route("GET /auth/login/{$}", s.handleLoginForm)
	s.route("POST /auth/login/{$}", s.handleLogin)
	s.route("POST /auth/logout/{$}", s.handleLogout)

	s.route("/", func(w http.ResponseWriter, r *http.Request) { s.notFound(w, r) })

	s.handler = s.recoverPanic(WithAccessLog(log, WithTimeout(cfg.RequestTimeout, s.withSession(s.requireSameOrigin(s.Mux)))))
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.handler.ServeHTTP(w, r) }

func (s *Server) route(pattern string, h http.HandlerFunc) {
	s.Mux.Handle(pattern, instrument(pattern, h))
}

func (s *Server) authRoute(pattern string, h http.HandlerFunc) {
	s.Mux.Handle(pattern, instrument(pattern, s.requireAuth(h)))
}

// noDirs hides directory listings of the media root.
type noDirs struct {
	fs http.FileSystem
}

func (n noDirs) Open(name string) (http.File, error) {
	f, err := n.fs.Open(name)
	if err != nil {
		return nil, err
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if st.IsDir() {
		f.Close()
		return nil, fs.ErrNotExist
	}
	return f, nil
}
