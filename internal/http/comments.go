package httpx

import (
	"errors"
	"net/http"

	"blogicum/internal/blog"
	"blogicum/internal/metrics"
)

func (s *Server) handleCommentCreate(w http.ResponseWriter, r *http.Request) {
	postID, ok := pathID(r, "post_id")
	if !ok {
		s.notFound(w, r)
		return
	}
	in := blog.CommentInput{Text: r.PostFormValue("text")}
	_, err := s.Blog.AddComment(r.Context(), currentUser(r), postID, in)
	var verr *blog.ValidationError
	switch {
	case errors.As(err, &verr):
		s.render(w, r, http.StatusOK, "comment.html", CommentFormPage{
			Layout: layout(r),
			PostID: postID,
			Form:   CommentForm{Text: in.Text},
			Errors: verr.Fields,
		})
		return
	case err != nil:
		s.fail(w, r, err)
		return
	}
	metrics.Writes.WithLabelValues("comment", "create").Inc()
	redirect(w, r, postURL(postID))
}

// commentIDs reads both path ids; false means the response was written.
func (s *Server) commentIDs(w http.ResponseWriter, r *http.Request) (postID, commentID int64, ok bool) {
	postID, ok1 := pathID(r, "post_id")
	commentID, ok2 := pathID(r, "comment_id")
	if !ok1 || !ok2 {
		s.notFound(w, r)
		return 0, 0, false
	}
	return postID, commentID, true
}

func (s *Server) handleCommentEditForm(w http.ResponseWriter, r *http.Request) {
	s.commentForm(w, r, false)
}

func (s *Server) handleCommentDeleteForm(w http.ResponseWriter, r *http.Request) {
	s.commentForm(w, r, true)
}

func (s *Server) commentForm(w http.ResponseWriter, r *http.Request, del bool) {
	postID, commentID, ok := s.commentIDs(w, r)
	if !ok {
		return
	}
	c, err := s.Blog.EditableComment(r.Context(), viewerID(r), postID, commentID)
	if errors.Is(err, blog.ErrNotAuthor) {
		redirect(w, r, postURL(postID))
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "comment.html", CommentFormPage{
		Layout:  layout(r),
		Delete:  del,
		PostID:  postID,
		Comment: c,
		Form:    CommentForm{Text: c.Text},
	})
}

func (s *Server) handleCommentEdit(w http.ResponseWriter, r *http.Request) {
	postID, commentID, ok := s.commentIDs(w, r)
	if !ok {
		return
	}
	in := blog.CommentInput{Text: r.PostFormValue("text")}
	_, err := s.Blog.UpdateComment(r.Context(), viewerID(r), postID, commentID, in)
	var verr *blog.ValidationError
	switch {
	case errors.Is(err, blog.ErrNotAuthor):
		redirect(w, r, postURL(postID))
		return
	case errors.As(err, &verr):
		c, lerr := s.Blog.EditableComment(r.Context(), viewerID(r), postID, commentID)
		if lerr != nil {
			s.fail(w, r, lerr)
			return
		}
		s.render(w, r, http.StatusOK, "comment.html", CommentFormPage{
			Layout:  layout(r),
			PostID:  postID,
			Comment: c,
			Form:    CommentForm{Text: in.Text},
			Errors:  verr.Fields,
		})
		return
	case err != nil:
		s.fail(w, r, err)
		return
	}
	metrics.Writes.WithLabelValues("comment", "update").Inc()
	redirect(w, r, postURL(postID))
}

func (s *Server) handleCommentDelete(w http.ResponseWriter, r *http.Request) {
	postID, commentID, ok := s.commentIDs(w, r)
	if !ok {
		return
	}
	err := s.Blog.DeleteComment(r.Context(), viewerID(r), postID, commentID)
	if errors.Is(err, blog.ErrNotAuthor) {
		redirect(w, r, postURL(postID))
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	metrics.Writes.WithLabelValues("comment", "delete").Inc()
	redirect(w, r, postURL(postID))
}
