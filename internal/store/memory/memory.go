// Package memory is an in-process bookmark store.
// It backs tests and single-instance local runs (BOOKMARKS_STORE=memory).
package memory

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/MrSnakeDoc/bookmarks/internal/domain"
	"github.com/MrSnakeDoc/bookmarks/internal/store"
)

// subscriberBuffer is the per-subscriber event buffer.
// Events are dropped for a subscriber whose buffer is full.
const subscriberBuffer = 16

// Store keeps bookmarks in a map guarded by a RWMutex and fans out change
// events to in-process subscribers.
type Store struct {
	mu        sync.RWMutex
	bookmarks map[string]domain.Bookmark // ID -> Bookmark
	nextID    int64
	now       func() time.Time

	subsMu sync.Mutex
	subs   map[*subscription]struct{}
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the clock used to stamp CreatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithFirstID sets the ID assigned to the next inserted bookmark.
func WithFirstID(id int64) Option {
	return func(s *Store) { s.nextID = id }
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		bookmarks: make(map[string]domain.Bookmark),
		nextID:    1,
		now:       time.Now,
		subs:      make(map[*subscription]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ store.Store = (*Store)(nil)

// Insert stores a new bookmark with a sequential ID.
func (s *Store) Insert(_ context.Context, nb domain.NewBookmark) (domain.Bookmark, error) {
	s.mu.Lock()
	b := domain.Bookmark{
		ID:        strconv.FormatInt(s.nextID, 10),
		OwnerID:   nb.OwnerID,
		Title:     nb.Title,
		URL:       nb.URL,
		CreatedAt: s.now(),
	}
	s.nextID++
	s.bookmarks[b.ID] = b
	s.mu.Unlock()

	s.publish(store.ChangeEvent{Op: store.OpInsert, ID: b.ID, OwnerID: b.OwnerID})
	return b, nil
}

// Delete removes id only when it belongs to ownerID.
func (s *Store) Delete(_ context.Context, ownerID, id string) error {
	s.mu.Lock()
	b, ok := s.bookmarks[id]
	if !ok || b.OwnerID != ownerID {
		s.mu.Unlock()
		return domain.ErrNotFound
	}
	delete(s.bookmarks, id)
	s.mu.Unlock()

	s.publish(store.ChangeEvent{Op: store.OpDelete, ID: id, OwnerID: ownerID})
	return nil
}

// ListByOwner returns a copy of ownerID's bookmarks, newest first.
func (s *Store) ListByOwner(_ context.Context, ownerID string) ([]domain.Bookmark, error) {
	s.mu.RLock()
	all := make([]domain.Bookmark, 0, len(s.bookmarks))
	for _, b := range s.bookmarks {
		all = append(all, b)
	}
	s.mu.RUnlock()

	// Map iteration order is random; ties on CreatedAt fall back to insertion order
	sortByID(all)
	return domain.OwnedBy(all, ownerID), nil
}

// CountByOwner returns the number of bookmarks owned by ownerID.
func (s *Store) CountByOwner(_ context.Context, ownerID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, b := range s.bookmarks {
		if b.OwnerID == ownerID {
			n++
		}
	}
	return n, nil
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// Close ends every open subscription.
func (s *Store) Close() error {
	s.subsMu.Lock()
	subs := make([]*subscription, 0, len(s.subs))
	for sub := range s.subs {
		subs = append(subs, sub)
	}
	s.subsMu.Unlock()

	for _, sub := range subs {
		_ = sub.Close()
	}
	return nil
}

// Subscribe opens an in-process change channel.
// The subscription also ends when ctx is cancelled.
func (s *Store) Subscribe(ctx context.Context) (store.Subscription, error) {
	sub := &subscription{
		events: make(chan store.ChangeEvent, subscriberBuffer),
		done:   make(chan struct{}),
		owner:  s,
	}

	s.subsMu.Lock()
	s.subs[sub] = struct{}{}
	s.subsMu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			_ = sub.Close()
		case <-sub.done:
		}
	}()

	return sub, nil
}

// Subscribers returns the number of open subscriptions.
func (s *Store) Subscribers() int {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	return len(s.subs)
}

func (s *Store) publish(ev store.ChangeEvent) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()

	for sub := range s.subs {
		select {
		case sub.events <- ev:
		default:
		}
	}
}

func (s *Store) remove(sub *subscription) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()

	if _, ok := s.subs[sub]; !ok {
		return
	}
	delete(s.subs, sub)
	close(sub.events)
}

type subscription struct {
	events chan store.ChangeEvent
	done   chan struct{}
	once   sync.Once
	owner  *Store
}

func (sub *subscription) Events() <-chan store.ChangeEvent { return sub.events }

func (sub *subscription) Close() error {
	sub.once.Do(func() {
		sub.owner.remove(sub)
		close(sub.done)
	})
	return nil
}

// sortByID orders bookmarks by numeric ID, highest first, so that the
// stable sort in OwnedBy breaks CreatedAt ties newest insert first.
func sortByID(bookmarks []domain.Bookmark) {
	sort.Slice(bookmarks, func(i, j int) bool {
		ai, errA := strconv.ParseInt(bookmarks[i].ID, 10, 64)
		bj, errB := strconv.ParseInt(bookmarks[j].ID, 10, 64)
		if errA != nil || errB != nil {
			return bookmarks[i].ID > bookmarks[j].ID
		}
		return ai > bj
	})
}
