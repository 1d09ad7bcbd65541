package httpx

import (
	"errors"
	"net/http"
	"strconv"

	"blogicum/internal/auth"
	"blogicum/internal/blog"
	"blogicum/internal/models"
)

func layout(r *http.Request) Layout {
	u, _ := auth.UserFrom(r.Context())
	return Layout{User: u}
}

// currentUser is only called behind requireAuth.
func currentUser(r *http.Request) *models.User {
	u, _ := auth.UserFrom(r.Context())
	return u
}

func viewerID(r *http.Request) int64 {
	id, _ := auth.UserIDFrom(r.Context())
	return id
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, page string, data any) {
	if err := s.Views.Render(w, status, page, data); err != nil {
		s.serverError(w, r, err)
	}
}

func (s *Server) notFound(w http.ResponseWriter, r *http.Request) {
	data := ErrorPage{Layout: layout(r), Status: http.StatusNotFound, Message: "Page not found."}
	if err := s.Views.Render(w, http.StatusNotFound, "error.html", data); err != nil {
		s.Log.Error("render 404", "err", err)
		http.NotFound(w, r)
	}
}

func (s *Server) forbidden(w http.ResponseWriter, r *http.Request) {
	data := ErrorPage{Layout: layout(r), Status: http.StatusForbidden, Message: "Cross-site request refused."}
	if err := s.Views.Render(w, http.StatusForbidden, "error.html", data); err != nil {
		s.Log.Error("render 403", "err", err)
		http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
	}
}

func (s *Server) serverError(w http.ResponseWriter, r *http.Request, err error) {
	s.Log.Error("internal error", "method", r.Method, "path", r.URL.Path, "err", err)
	data := ErrorPage{Layout: layout(r), Status: http.StatusInternalServerError, Message: "Something went wrong on our side."}
	if rerr := s.Views.Render(w, http.StatusInternalServerError, "error.html", data); rerr != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// fail maps service errors to responses. Callers handle ErrNotAuthor and
// validation errors themselves.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, blog.ErrNotFound), errors.Is(err, blog.ErrInvalidPage):
		s.notFound(w, r)
	default:
		s.serverError(w, r, err)
	}
}

func redirect(w http.ResponseWriter, r *http.Request, to string) {
	http.Redirect(w, r, to, http.StatusFound)
}

func postURL(id int64) string { return "/posts/" + strconv.FormatInt(id, 10) + "/" }

func profileURL(username string) string { return "/profile/" + username + "/" }

// pathID reads a positive integer path wildcard.
func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
