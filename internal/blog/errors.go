package blog

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrNotFound covers both a missing entity and one the viewer may not see.
	ErrNotFound    = errors.New("blog: not found")
	ErrNotAuthor   = errors.New("blog: only the author may change this")
	ErrInvalidPage = errors.New("blog: invalid page")
)

// ValidationError maps form field names to a message. Nothing is persisted when
// one is returned.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+e.Fields[name])
	}
	return "blog: invalid input (" + strings.Join(parts, "; ") + ")"
}

// Add records msg for field unless the field already has a message.
func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = msg
	}
}

// OrNil returns e when it carries field errors and nil otherwise.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}
