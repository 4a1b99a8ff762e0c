package redis

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/bookmarks/internal/domain"
	"github.com/MrSnakeDoc/bookmarks/internal/logger"
	rconn "github.com/MrSnakeDoc/bookmarks/internal/redis"
	"github.com/MrSnakeDoc/bookmarks/internal/store"
)

func TestKeys(t *testing.T) {
	assert.Equal(t, "bookmarks:bookmark:42", BookmarkKey("42"))
	assert.Equal(t, "bookmarks:owner:U1", OwnerKey("U1"))
}

func row(t *testing.T, b domain.Bookmark) string {
	t.Helper()
	data, err := json.Marshal(b)
	require.NoError(t, err)
	return string(data)
}

func TestDecodeRows(t *testing.T) {
	s := &Store{logger: logger.New("error", false)}
	t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	vals := []interface{}{
		row(t, domain.Bookmark{ID: "2", OwnerID: "U1", Title: "b", URL: "https://b", CreatedAt: t0.Add(time.Hour)}),
		nil, // deleted between ZREVRANGE and MGET
		"{not json",
		row(t, domain.Bookmark{ID: "9", OwnerID: "U2", Title: "x", URL: "https://x", CreatedAt: t0}),
		row(t, domain.Bookmark{ID: "1", OwnerID: "U1", Title: "a", URL: "https://a", CreatedAt: t0}),
	}

	got := s.decodeRows(vals, "U1")
	require.Len(t, got, 2)
	assert.Equal(t, "2", got[0].ID)
	assert.Equal(t, "1", got[1].ID)
}

func TestDecodeEvent(t *testing.T) {
	ev, err := decodeEvent(`{"op":"DELETE","id":"7","user_id":"U1"}`)
	require.NoError(t, err)
	assert.Equal(t, store.ChangeEvent{Op: store.OpDelete, ID: "7", OwnerID: "U1"}, ev)

	_, err = decodeEvent("garbage")
	assert.Error(t, err)
}

// newLiveStore connects to the Redis named by BOOKMARKS_TEST_REDIS_ADDR and
// skips the test when it is not set.
func newLiveStore(t *testing.T) *Store {
	t.Helper()
	addr := os.Getenv("BOOKMARKS_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("BOOKMARKS_TEST_REDIS_ADDR not set")
	}

	log := logger.New("error", false)
	client, err := rconn.Connect(context.Background(), rconn.Options{
		Addr:           addr,
		DB:             15,
		ConnectTimeout: 3 * time.Second,
		RetryInterval:  100 * time.Millisecond,
		MaxWait:        time.Second,
		PingTimeout:    time.Second,
	}, log)
	require.NoError(t, err)
	require.NoError(t, client.FlushDB(context.Background()).Err())

	s := NewStore(client, log)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestLiveInsertListDelete(t *testing.T) {
	s := newLiveStore(t)
	ctx := context.Background()

	first, err := s.Insert(ctx, domain.NewBookmark{Title: "first", URL: "https://first.example.com", OwnerID: "U1"})
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	second, err := s.Insert(ctx, domain.NewBookmark{Title: "second", URL: "https://second.example.com", OwnerID: "U1"})
	require.NoError(t, err)
	_, err = s.Insert(ctx, domain.NewBookmark{Title: "theirs", URL: "https://theirs.example.com", OwnerID: "U2"})
	require.NoError(t, err)

	list, err := s.ListByOwner(ctx, "U1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)

	n, err := s.CountByOwner(ctx, "U1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.ErrorIs(t, s.Delete(ctx, "U2", first.ID), domain.ErrNotFound)
	require.NoError(t, s.Delete(ctx, "U1", first.ID))
	require.ErrorIs(t, s.Delete(ctx, "U1", first.ID), domain.ErrNotFound)
}

func TestLiveSubscribe(t *testing.T) {
	s := newLiveStore(t)
	ctx := context.Background()

	sub, err := s.Subscribe(ctx)
	require.NoError(t, err)
	defer func() { _ = sub.Close() }()

	b, err := s.Insert(ctx, domain.NewBookmark{Title: "pushed", URL: "https://pushed.example.com", OwnerID: "U1"})
	require.NoError(t, err)

	select {
	case ev := <-sub.Events():
		assert.Equal(t, store.OpInsert, ev.Op)
		assert.Equal(t, b.ID, ev.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("no change event received")
	}
}
