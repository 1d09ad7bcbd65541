package httpx

import (
	"errors"
	"net/http"

	"blogicum/internal/blog"
	"blogicum/internal/metrics"
	"blogicum/internal/models"
)

// ------------------------------------------------------------------------------
// Listings
// ------------------------------------------------------------------------------

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	listing, err := s.Blog.Index(r.Context(), r.URL.Query().Get("page"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "index.html", IndexPage{
		Layout: layout(r),
		Posts:  listing.Posts,
		Page:   listing.Page,
	})
}

func (s *Server) handleCategory(w http.ResponseWriter, r *http.Request) {
	cat, listing, err := s.Blog.CategoryPosts(r.Context(), r.PathValue("slug"), r.URL.Query().Get("page"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "category.html", CategoryPage{
		Layout:   layout(r),
		Category: cat,
		Posts:    listing.Posts,
		Page:     listing.Page,
	})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	viewer := viewerID(r)
	profile, listing, err := s.Blog.Profile(r.Context(), r.PathValue("username"), viewer, r.URL.Query().Get("page"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "profile.html", ProfilePage{
		Layout:  layout(r),
		Profile: profile,
		IsOwner: blog.IsAuthor(profile.ID, viewer),
		Posts:   listing.Posts,
		Page:    listing.Page,
	})
}

func (s *Server) handleStatic(page string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.render(w, r, http.StatusOK, page, StaticPage{Layout: layout(r)})
	}
}

// ------------------------------------------------------------------------------
// Posts
// ------------------------------------------------------------------------------

func (s *Server) handlePostDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "post_id")
	if !ok {
		s.notFound(w, r)
		return
	}
	viewer := viewerID(r)
	post, comments, err := s.Blog.PostDetail(r.Context(), id, viewer)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "detail.html", DetailPage{
		Layout:   layout(r),
		Post:     post,
		Comments: comments,
		IsAuthor: blog.IsAuthor(post.AuthorID, viewer),
		ViewerID: viewer,
	})
}

func (s *Server) postFormPage(r *http.Request, data PostFormPage) (PostFormPage, error) {
	cats, locs, err := s.Blog.Choices(r.Context())
	if err != nil {
		return data, err
	}
	data.Layout = layout(r)
	data.Categories = cats
	data.Locations = locs
	return data, nil
}

func (s *Server) renderPostForm(w http.ResponseWriter, r *http.Request, data PostFormPage) {
	data, err := s.postFormPage(r, data)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "create.html", data)
}

func (s *Server) handlePostCreateForm(w http.ResponseWriter, r *http.Request) {
	s.renderPostForm(w, r, PostFormPage{
		Form: PostForm{
			PubDate:     s.now().In(s.Loc).Format(PubDateLayout),
			IsPublished: true,
		},
	})
}

func (s *Server) handlePostCreate(w http.ResponseWriter, r *http.Request) {
	sub, err := readPostForm(w, r, s.Cfg.MaxUploadBytes, s.Loc)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	defer sub.Close()

	if len(sub.Errors) > 0 {
		s.rejectPost(w, r, nil, sub)
		return
	}
	author := currentUser(r)
	post, err := s.Blog.CreatePost(r.Context(), author, sub.Input)
	var verr *blog.ValidationError
	switch {
	case errors.As(err, &verr):
		s.renderPostForm(w, r, PostFormPage{Form: sub.Form, Errors: verr.Fields})
		return
	case err != nil:
		s.fail(w, r, err)
		return
	}
	metrics.Writes.WithLabelValues("post", "create").Inc()
	redirect(w, r, profileURL(post.Author))
}

// rejectPost re-renders the post form for a submission that failed to decode,
// adding whatever the service finds wrong with the rest.
func (s *Server) rejectPost(w http.ResponseWriter, r *http.Request, post *models.Post, sub *postSubmission) {
	verr, err := s.Blog.ValidatePost(r.Context(), sub.Input)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	errs := mergeErrors(sub.Errors, verr.Fields)
	if post != nil {
		sub.Form.CurrentImage = post.Image
	}
	s.renderPostForm(w, r, PostFormPage{Post: post, Form: sub.Form, Errors: errs})
}

func (s *Server) handlePostEditForm(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "post_id")
	if !ok {
		s.notFound(w, r)
		return
	}
	post, err := s.Blog.EditablePost(r.Context(), viewerID(r), id)
	if errors.Is(err, blog.ErrNotAuthor) {
		redirect(w, r, postURL(id))
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.renderPostForm(w, r, PostFormPage{Post: post, Form: postFormFrom(post, s.Loc)})
}

func (s *Server) handlePostEdit(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "post_id")
	if !ok {
		s.notFound(w, r)
		return
	}
	actor := viewerID(r)
	post, err := s.Blog.EditablePost(r.Context(), actor, id)
	if errors.Is(err, blog.ErrNotAuthor) {
		redirect(w, r, postURL(id))
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}

	sub, err := readPostForm(w, r, s.Cfg.MaxUploadBytes, s.Loc)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	defer sub.Close()
	if len(sub.Errors) > 0 {
		s.rejectPost(w, r, post, sub)
		return
	}

	updated, err := s.Blog.UpdatePost(r.Context(), actor, id, sub.Input)
	var verr *blog.ValidationError
	switch {
	case errors.Is(err, blog.ErrNotAuthor):
		redirect(w, r, postURL(id))
		return
	case errors.As(err, &verr):
		sub.Form.CurrentImage = post.Image
		s.renderPostForm(w, r, PostFormPage{Post: post, Form: sub.Form, Errors: verr.Fields})
		return
	case err != nil:
		s.fail(w, r, err)
		return
	}
	metrics.Writes.WithLabelValues("post", "update").Inc()
	redirect(w, r, postURL(updated.ID))
}

func (s *Server) handlePostDeleteForm(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "post_id")
	if !ok {
		s.notFound(w, r)
		return
	}
	post, err := s.Blog.EditablePost(r.Context(), viewerID(r), id)
	if errors.Is(err, blog.ErrNotAuthor) {
		redirect(w, r, postURL(id))
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "create.html", PostFormPage{
		Layout: layout(r),
		Delete: true,
		Post:   post,
		Form:   postFormFrom(post, s.Loc),
	})
}

func (s *Server) handlePostDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "post_id")
	if !ok {
		s.notFound(w, r)
		return
	}
	post, err := s.Blog.DeletePost(r.Context(), viewerID(r), id)
	if errors.Is(err, blog.ErrNotAuthor) {
		redirect(w, r, postURL(id))
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	metrics.Writes.WithLabelValues("post", "delete").Inc()
	redirect(w, r, profileURL(post.Author))
}
