package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/bookmarks/internal/domain"
	"github.com/MrSnakeDoc/bookmarks/internal/store"
)

// steppingClock returns a clock that advances one second per call.
func steppingClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	next := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t := next
		next = next.Add(time.Second)
		return t
	}
}

func mustInsert(t *testing.T, s *Store, title, owner string) domain.Bookmark {
	t.Helper()
	nb, err := domain.NewBookmarkRequest(title, "https://"+title+".example.com", owner)
	require.NoError(t, err)
	b, err := s.Insert(context.Background(), nb)
	require.NoError(t, err)
	return b
}

func TestInsertAssignsIDAndCreatedAt(t *testing.T) {
	t0 := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	s := New(WithClock(steppingClock(t0)), WithFirstID(42))

	b := mustInsert(t, s, "example", "U1")

	assert.Equal(t, "42", b.ID)
	assert.Equal(t, "U1", b.OwnerID)
	assert.True(t, b.CreatedAt.Equal(t0))

	next := mustInsert(t, s, "other", "U1")
	assert.Equal(t, "43", next.ID)
}

func TestListByOwnerFiltersAndOrders(t *testing.T) {
	s := New(WithClock(steppingClock(time.Now())))
	ctx := context.Background()

	first := mustInsert(t, s, "first", "U1")
	mustInsert(t, s, "foreign", "U2")
	second := mustInsert(t, s, "second", "U1")

	list, err := s.ListByOwner(ctx, "U1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)

	empty, err := s.ListByOwner(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestListByOwnerBreaksTiesByInsertOrder(t *testing.T) {
	fixed := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	s := New(WithClock(func() time.Time { return fixed }))

	for _, title := range []string{"a", "b", "c", "d"} {
		mustInsert(t, s, title, "U1")
	}

	list, err := s.ListByOwner(context.Background(), "U1")
	require.NoError(t, err)
	ids := make([]string, 0, len(list))
	for _, b := range list {
		ids = append(ids, b.ID)
	}
	assert.Equal(t, []string{"4", "3", "2", "1"}, ids)
}

func TestCountByOwner(t *testing.T) {
	s := New()
	mustInsert(t, s, "one", "U1")
	mustInsert(t, s, "two", "U1")
	mustInsert(t, s, "three", "U2")

	n, err := s.CountByOwner(context.Background(), "U1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestDeleteEnforcesOwnership(t *testing.T) {
	s := New()
	ctx := context.Background()
	b := mustInsert(t, s, "mine", "U1")

	err := s.Delete(ctx, "U2", b.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)

	list, err := s.ListByOwner(ctx, "U1")
	require.NoError(t, err)
	require.Len(t, list, 1, "foreign delete must not remove the row")

	require.NoError(t, s.Delete(ctx, "U1", b.ID))
	require.ErrorIs(t, s.Delete(ctx, "U1", b.ID), domain.ErrNotFound)
}

func TestSubscribeReceivesChanges(t *testing.T) {
	s := New()
	sub, err := s.Subscribe(context.Background())
	require.NoError(t, err)
	defer func() { _ = sub.Close() }()

	b := mustInsert(t, s, "watched", "U1")
	require.NoError(t, s.Delete(context.Background(), "U1", b.ID))

	want := []store.Op{store.OpInsert, store.OpDelete}
	for _, op := range want {
		select {
		case ev := <-sub.Events():
			assert.Equal(t, op, ev.Op)
			assert.Equal(t, b.ID, ev.ID)
		case <-time.After(time.Second):
			t.Fatalf("no %s event received", op)
		}
	}
}

func TestSubscriptionCloseIsIdempotent(t *testing.T) {
	s := New()
	sub, err := s.Subscribe(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, s.Subscribers())

	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close())
	assert.Equal(t, 0, s.Subscribers())

	_, open := <-sub.Events()
	assert.False(t, open, "events channel should be closed")

	// Publishing with no subscribers must not panic
	mustInsert(t, s, "after-close", "U1")
}

func TestSubscriptionEndsWithContext(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	sub, err := s.Subscribe(ctx)
	require.NoError(t, err)

	cancel()

	select {
	case _, open := <-sub.Events():
		assert.False(t, open)
	case <-time.After(time.Second):
		t.Fatal("subscription not closed after context cancel")
	}
}
