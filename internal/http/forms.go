package httpx

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"blogicum/internal/blog"
	"blogicum/internal/media"
	"blogicum/internal/models"
)

// PubDateLayout is the value format of a datetime-local input.
const PubDateLayout = "2006-01-02T15:04"

var pubDateLayouts = []string{
	PubDateLayout,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
}

const (
	msgBadDate   = "Enter a valid date/time."
	msgBadChoice = "Select a valid choice. That choice is not one of the available choices."
	msgTooLarge  = "The submitted data was too large."
)

// PostForm is what the post form shows back to the user.
type PostForm struct {
	Title        string
	Text         string
	PubDate      string
	Category     int64
	Location     int64
	IsPublished  bool
	CurrentImage string
}

type CommentForm struct {
	Text string
}

type ProfileForm struct {
	Username  string
	Email     string
	FirstName string
	LastName  string
}

type AuthForm struct {
	Username string
	Email    string
}

// postSubmission is a decoded post form. Errors holds what could not be
// decoded at all; the service validates the rest.
type postSubmission struct {
	Input  blog.PostInput
	Form   PostForm
	Errors map[string]string

	file multipart.File
	mf   *multipart.Form
}

func (s *postSubmission) Close() {
	if s.file != nil {
		s.file.Close()
	}
	if s.mf != nil {
		s.mf.RemoveAll()
	}
}

func (s *postSubmission) fail(field, msg string) {
	if s.Errors == nil {
		s.Errors = make(map[string]string)
	}
	if _, ok := s.Errors[field]; !ok {
		s.Errors[field] = msg
	}
}

// readPostForm decodes a post form, multipart or urlencoded. The caller must
// Close the result.
func readPostForm(w http.ResponseWriter, r *http.Request, maxUpload int64, loc *time.Location) (*postSubmission, error) {
	sub := &postSubmission{}
	r.Body = http.MaxBytesReader(w, r.Body, maxUpload+1<<20)

	err := r.ParseMultipartForm(1 << 20)
	var tooLarge *http.MaxBytesError
	switch {
	case err == nil, errors.Is(err, http.ErrNotMultipart):
	case errors.As(err, &tooLarge):
		sub.fail("image", msgTooLarge)
		return sub, nil
	default:
		return nil, err
	}
	sub.mf = r.MultipartForm

	in := &sub.Input
	in.Title = r.PostFormValue("title")
	in.Text = r.PostFormValue("text")
	in.IsPublished = r.PostFormValue("is_published") != ""
	in.ClearImage = r.PostFormValue("image-clear") != ""

	sub.Form = PostForm{
		Title:       in.Title,
		Text:        in.Text,
		PubDate:     strings.TrimSpace(r.PostFormValue("pub_date")),
		IsPublished: in.IsPublished,
	}

	if raw := sub.Form.PubDate; raw != "" {
		t, ok := parsePubDate(raw, loc)
		if ok {
			in.PubDate = t
		} else {
			sub.fail("pub_date", msgBadDate)
		}
	}

	in.CategoryID = parseChoice(sub, "category", r.PostFormValue("category"))
	in.LocationID = parseChoice(sub, "location", r.PostFormValue("location"))
	sub.Form.Category = in.CategoryID
	sub.Form.Location = in.LocationID

	if sub.mf != nil {
		if fhs := sub.mf.File["image"]; len(fhs) > 0 && fhs[0].Filename != "" {
			fh := fhs[0]
			f, err := fh.Open()
			if err != nil {
				return nil, err
			}
			sub.file = f
			ctype, body, err := media.Sniff(f)
			if err != nil {
				return nil, err
			}
			in.Image = &blog.Upload{
				Filename:    fh.Filename,
				ContentType: ctype,
				Size:        fh.Size,
				Body:        body,
			}
		}
	}
	return sub, nil
}

func parseChoice(sub *postSubmission, field, raw string) int64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		sub.fail(field, msgBadChoice)
		return 0
	}
	return id
}

func parsePubDate(raw string, loc *time.Location) (time.Time, bool) {
	for _, layout := range pubDateLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// postFormFrom fills the form with a stored post.
func postFormFrom(p *models.Post, loc *time.Location) PostForm {
	f := PostForm{
		Title:        p.Title,
		Text:         p.Text,
		PubDate:      p.PubDate.In(loc).Format(PubDateLayout),
		IsPublished:  p.IsPublished,
		CurrentImage: p.Image,
	}
	if p.CategoryID != nil {
		f.Category = *p.CategoryID
	}
	if p.LocationID != nil {
		f.Location = *p.LocationID
	}
	return f
}

// mergeErrors adds the entries of src that dst does not have yet.
func mergeErrors(dst, src map[string]string) map[string]string {
	if len(src) == 0 {
		return dst
	}
	if dst == nil {
		dst = make(map[string]string, len(src))
	}
	for k, v := range src {
		if _, ok := dst[k]; !ok {
			dst[k] = v
		}
	}
	return dst
}
