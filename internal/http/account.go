package httpx

import (
	"errors"
	"net/http"
	"time"

	"blogicum/internal/auth"
	"blogicum/internal/blog"
	"blogicum/internal/metrics"
)

const msgBadLogin = "Please enter a correct username and password. Note that both fields may be case-sensitive."

func (s *Server) handleRegisterForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "registration.html", AuthPage{Layout: layout(r)})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	reg := auth.Registration{
		Username:  r.PostFormValue("username"),
		Email:     r.PostFormValue("email"),
		FirstName: r.PostFormValue("first_name"),
		LastName:  r.PostFormValue("last_name"),
		Password1: r.PostFormValue("password1"),
		Password2: r.PostFormValue("password2"),
	}
	_, err := s.Auth.Register(r.Context(), reg)
	if err == nil {
		metrics.Writes.WithLabelValues("user", "create").Inc()
		redirect(w, r, "/")
		return
	}

	var ferr *auth.FormError
	var fields map[string]string
	switch {
	case errors.As(err, &ferr):
		fields = ferr.Fields
	case errors.Is(err, auth.ErrUsernameTaken):
		fields = map[string]string{"username": "A user with that username already exists."}
	default:
		s.serverError(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "registration.html", AuthPage{
		Layout: layout(r),
		Form:   AuthForm{Username: reg.Username, Email: reg.Email},
		Errors: fields,
	})
}

func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "login.html", AuthPage{
		Layout: layout(r),
		Next:   r.URL.Query().Get("next"),
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	username := r.PostFormValue("username")
	next := r.PostFormValue("next")

	sess, _, err := s.Auth.Login(r.Context(), username, r.PostFormValue("password"))
	if errors.Is(err, auth.ErrInvalidLogin) {
		metrics.Logins.WithLabelValues("failed").Inc()
		s.render(w, r, http.StatusOK, "login.html", AuthPage{
			Layout: layout(r),
			Next:   next,
			Form:   AuthForm{Username: username},
			Errors: map[string]string{"__all__": msgBadLogin},
		})
		return
	}
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	metrics.Logins.WithLabelValues("ok").Inc()

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    sess.ID,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	redirect(w, r, auth.SafeNext(next, "/"))
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		if err := s.Auth.Logout(r.Context(), c.Value); err != nil {
			s.Log.Warn("logout", "err", err)
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
	})
	redirect(w, r, "/")
}

func (s *Server) handleProfileEditForm(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	s.render(w, r, http.StatusOK, "user.html", ProfileFormPage{
		Layout: layout(r),
		Form: ProfileForm{
			Username:  u.Username,
			Email:     u.Email,
			FirstName: u.FirstName,
			LastName:  u.LastName,
		},
	})
}

func (s *Server) handleProfileEdit(w http.ResponseWriter, r *http.Request) {
	in := blog.ProfileInput{
		Username:  r.PostFormValue("username"),
		Email:     r.PostFormValue("email"),
		FirstName: r.PostFormValue("first_name"),
		LastName:  r.PostFormValue("last_name"),
	}
	u, err := s.Blog.UpdateProfile(r.Context(), viewerID(r), in)
	var verr *blog.ValidationError
	switch {
	case errors.As(err, &verr):
		s.render(w, r, http.StatusOK, "user.html", ProfileFormPage{
			Layout: layout(r),
			Form:   ProfileForm(in),
			Errors: verr.Fields,
		})
		return
	case err != nil:
		s.fail(w, r, err)
		return
	}
	metrics.Writes.WithLabelValues("user", "update").Inc()
	redirect(w, r, profileURL(u.Username))
}
