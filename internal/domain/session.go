package domain

import (
	"fmt"
	"time"
)

// User is the identity returned by the identity provider.
// ID is opaque and only used to filter rows by owner.
type User struct {
	ID        string `json:"id"`
	Email     string `json:"email,omitempty"`
	FullName  string `json:"full_name,omitempty"`
	Name      string `json:"name,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
	Picture   string `json:"picture,omitempty"`
}

// DisplayName falls back from the full name to the short name to "User".
func (u User) DisplayName() string {
	switch {
	case u.FullName != "":
		return u.FullName
	case u.Name != "":
		return u.Name
	default:
		return "User"
	}
}

// Avatar returns the avatar URL, falling back to the provider picture.
func (u User) Avatar() string {
	if u.AvatarURL != "" {
		return u.AvatarURL
	}
	return u.Picture
}

// Session carries the authenticated user through a view.
// It is passed explicitly to every component that needs the owner id.
type Session struct {
	User      User
	TokenID   string
	ExpiresAt time.Time
}

// OwnerID is the identifier used for row ownership.
func (s Session) OwnerID() string { return s.User.ID }

// CountLabel renders a bookmark count the way the header shows it.
// Example: 1 -> "1 bookmark saved", 3 -> "3 bookmarks saved"
func CountLabel(n int) string {
	if n == 1 {
		return "1 bookmark saved"
	}
	return fmt.Sprintf("%d bookmarks saved", n)
}

// DisplayDate formats a creation time like "Jan 2, 2006".
func DisplayDate(t time.Time) string {
	return t.Format("Jan 2, 2006")
}
