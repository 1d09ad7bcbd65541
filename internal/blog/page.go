package blog

import (
	"strconv"
	"strings"
)

// PageSize is the number of posts per listing page.
const PageSize = 10

// Page describes one page of a listing of Total items.
type Page struct {
	Number int
	Size   int
	Total  int
}

// NewPage resolves the raw ?page= value against a listing of total items. An empty
// value means the first page and "last" the last one. Anything that is not a page
// of the listing is ErrInvalidPage, except the first page of an empty listing.
func NewPage(raw string, total, size int) (Page, error) {
	if size <= 0 {
		size = PageSize
	}
	p := Page{Number: 1, Size: size, Total: total}

	raw = strings.TrimSpace(raw)
	switch raw {
	case "":
	case "last":
		p.Number = p.NumPages()
	default:
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return Page{}, ErrInvalidPage
		}
		p.Number = n
	}

	if p.Number > p.NumPages() {
		return Page{}, ErrInvalidPage
	}
	return p, nil
}

// NumPages is at least one so an empty listing still has a first page.
func (p Page) NumPages() int {
	if p.Total <= 0 || p.Size <= 0 {
		return 1
	}
	return (p.Total + p.Size - 1) / p.Size
}

func (p Page) Offset() int { return (p.Number - 1) * p.Size }

func (p Page) Limit() int { return p.Size }

func (p Page) HasPrev() bool { return p.Number > 1 }

func (p Page) HasNext() bool { return p.Number < p.NumPages() }

func (p Page) Prev() int { return p.Number - 1 }

func (p Page) Next() int { return p.Number + 1 }

// Paginated reports whether the listing spans more than one page.
func (p Page) Paginated() bool { return p.NumPages() > 1 }
