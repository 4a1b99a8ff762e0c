// Package store defines the storage collaborator used by the bookmark views.
//
// Implementations live in the memory, redis and postgres subpackages. All of
// them enforce ownership inside the query itself: a caller can never read,
// count or delete rows of another owner.
package store

import (
	"context"

	"github.com/MrSnakeDoc/bookmarks/internal/domain"
)

// Op is the kind of change carried by a ChangeEvent.
type Op string

const (
	OpInsert Op = "INSERT"
	OpUpdate Op = "UPDATE"
	OpDelete Op = "DELETE"
)

// ChangeEvent is published on every write to the bookmarks collection.
// Subscribers treat it as a content-less "something changed" signal.
type ChangeEvent struct {
	Op      Op     `json:"op"`
	ID      string `json:"id"`
	OwnerID string `json:"user_id"`
}

// Subscription is an open change-notification channel.
// Events is closed once the subscription ends, either through Close or
// because the backend dropped the connection.
type Subscription interface {
	Events() <-chan ChangeEvent
	Close() error
}

// Reader is the read side used by the sync loops.
type Reader interface {
	// ListByOwner returns every bookmark of ownerID, newest first.
	ListByOwner(ctx context.Context, ownerID string) ([]domain.Bookmark, error)
	// CountByOwner returns the number of bookmarks of ownerID.
	CountByOwner(ctx context.Context, ownerID string) (int, error)
}

// Subscriber opens change-notification channels on the bookmarks collection.
type Subscriber interface {
	Subscribe(ctx context.Context) (Subscription, error)
}

// Writer is the mutation side called directly by the display layer.
type Writer interface {
	// Insert stores a new bookmark and returns it with its assigned ID and CreatedAt.
	Insert(ctx context.Context, nb domain.NewBookmark) (domain.Bookmark, error)
	// Delete removes bookmark id if, and only if, it belongs to ownerID.
	// It returns domain.ErrNotFound when no owned row matched.
	Delete(ctx context.Context, ownerID, id string) error
}

// Store is the full storage collaborator.
type Store interface {
	Reader
	Writer
	Subscriber

	Ping(ctx context.Context) error
	Close() error
}
