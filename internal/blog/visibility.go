// Package blog holds the publication rules of the blog: which posts a viewer may
// see, how listings are composed, and who may change a post or a comment.
package blog

import (
	"time"

	"blogicum/internal/models"
)

// Anonymous is the viewer id of a request without a session.
const Anonymous int64 = 0

// IsVisible reports whether viewer may see p at instant now. Authors always see
// their own posts, drafts and scheduled ones included. Everyone else sees a post
// only when it is published, its category (if any) is published and its
// publication date has passed.
func IsVisible(p *models.Post, viewerID int64, now time.Time) bool {
	if IsAuthor(p.AuthorID, viewerID) {
		return true
	}
	return IsPublic(p, now)
}

// IsPublic is the non-author branch of IsVisible.
func IsPublic(p *models.Post, now time.Time) bool {
	if !p.IsPublished {
		return false
	}
	if p.Category != nil && !p.Category.IsPublished {
		return false
	}
	return !p.PubDate.After(now)
}

// IsAuthor reports whether viewerID owns an entity written by authorID.
// The anonymous viewer owns nothing.
func IsAuthor(authorID, viewerID int64) bool {
	return viewerID != Anonymous && authorID == viewerID
}
