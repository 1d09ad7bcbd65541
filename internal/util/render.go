package util

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"strings"
	"time"
)

// Renderer holds one parsed template set per page, each joined with the layout.
type Renderer struct {
	pages map[string]*template.Template
}

func funcs(loc *time.Location) template.FuncMap {
	return template.FuncMap{
		"date": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.In(loc).Format("2 January 2006, 15:04")
		},
		"truncatewords": TruncateWords,
		"linebreaks": func(s string) template.HTML {
			escaped := template.HTMLEscapeString(strings.ReplaceAll(s, "\r\n", "\n"))
			return template.HTML(strings.ReplaceAll(escaped, "\n", "<br>"))
		},
		"media": func(p string) string {
			return "/media/" + strings.TrimPrefix(p, "/")
		},
	}
}

// NewRenderer parses layout.html together with every other template in dir.
// Dates are shown in loc, UTC when nil.
func NewRenderer(fsys fs.FS, dir string, loc *time.Location) (*Renderer, error) {
	if loc == nil {
		loc = time.UTC
	}
	fm := funcs(loc)
	layout := path.Join(dir, "layout.html")
	names, err := fs.Glob(fsys, path.Join(dir, "*.html"))
	if err != nil {
		return nil, err
	}
	r := &Renderer{pages: make(map[string]*template.Template)}
	for _, name := range names {
		if name == layout {
			continue
		}
		t, err := template.New("").Funcs(fm).ParseFS(fsys, layout, name)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		r.pages[path.Base(name)] = t
	}
	return r, nil
}

// Render executes page into a buffer first so a failing template never sends a
// half-written response.
func (r *Renderer) Render(w http.ResponseWriter, status int, page string, data any) error {
	t, ok := r.pages[page]
	if !ok {
		return fmt.Errorf("template %q not found", page)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "base", data); err != nil {
		return fmt.Errorf("render %s: %w", page, err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

// TruncateWords keeps the first n words of s and marks the cut with an ellipsis.
func TruncateWords(s string, n int) string {
	words := strings.Fields(s)
	if len(words) <= n {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:n], " ") + " …"
}
