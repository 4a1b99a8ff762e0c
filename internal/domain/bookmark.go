package domain

import (
	"net/url"
	"sort"
	"strings"
	"time"
)

// Bookmark represents a saved URL owned by exactly one user.
//
// Rows are created and destroyed by the storage backend; the application
// never edits them in place.
type Bookmark struct {
	// ─────────────────────────────
	// Identity (immutable)
	// ─────────────────────────────

	// ID is the opaque identifier assigned by storage at creation time.
	ID string `json:"id"`

	// OwnerID is the identifier of the owning user.
	// Every read and write is filtered on it.
	OwnerID string `json:"user_id"`

	// ─────────────────────────────
	// Content
	// ─────────────────────────────

	// Title is the display string, trimmed and never empty.
	Title string `json:"title"`

	// URL is the target link, expected to be an absolute URL.
	// Example: https://example.com
	URL string `json:"url"`

	// ─────────────────────────────
	// Metadata
	// ─────────────────────────────

	// CreatedAt is assigned by storage at insertion.
	// It is the only sort key (newest first).
	CreatedAt time.Time `json:"created_at"`
}

// NewBookmark is an add request as issued by the form.
type NewBookmark struct {
	Title   string
	URL     string
	OwnerID string
}

// NewBookmarkRequest trims the inputs and rejects requests with a missing field.
func NewBookmarkRequest(title, rawURL, ownerID string) (NewBookmark, error) {
	nb := NewBookmark{
		Title:   strings.TrimSpace(title),
		URL:     strings.TrimSpace(rawURL),
		OwnerID: strings.TrimSpace(ownerID),
	}
	if nb.Title == "" || nb.URL == "" || nb.OwnerID == "" {
		return NewBookmark{}, ErrInvalidBookmark
	}
	return nb, nil
}

// Domain returns the hostname shown under a bookmark title, without a
// leading "www.". Unparseable URLs are returned unchanged.
func (b Bookmark) Domain() string {
	return DisplayDomain(b.URL)
}

// DisplayDomain extracts the hostname of raw for display.
// Example: "https://www.example.com/path" -> "example.com"
func DisplayDomain(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return raw
	}
	return strings.Replace(u.Hostname(), "www.", "", 1)
}

// SortNewestFirst orders bookmarks by CreatedAt descending.
// Equal timestamps keep their relative order.
func SortNewestFirst(bookmarks []Bookmark) {
	sort.SliceStable(bookmarks, func(i, j int) bool {
		return bookmarks[i].CreatedAt.After(bookmarks[j].CreatedAt)
	})
}

// OwnedBy returns the bookmarks belonging to ownerID, newest first.
// The input slice is not modified.
func OwnedBy(bookmarks []Bookmark, ownerID string) []Bookmark {
	owned := make([]Bookmark, 0, len(bookmarks))
	for _, b := range bookmarks {
		if b.OwnerID == ownerID {
			owned = append(owned, b)
		}
	}
	SortNewestFirst(owned)
	return owned
}
