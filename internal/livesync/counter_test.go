package livesync

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/bookmarks/internal/domain"
	"github.com/MrSnakeDoc/bookmarks/internal/store/memory"
)

type brokenCounter struct{}

func (brokenCounter) ListByOwner(context.Context, string) ([]domain.Bookmark, error) {
	return nil, errors.New("not used")
}

func (brokenCounter) CountByOwner(context.Context, string) (int, error) {
	return 0, &domain.QueryError{Op: "count", Err: errors.New("timeout")}
}

func TestCounterSeedsThenPolls(t *testing.T) {
	s := memory.New()
	add(t, s, "one", "https://one.example.com", "U1")
	add(t, s, "two", "https://two.example.com", "U1")
	add(t, s, "other", "https://other.example.com", "U2")

	var last atomic.Int32
	c := NewCounter(session("U1"), s, Config{Interval: 20 * time.Millisecond, Logger: quietLogger()},
		func(n int) { last.Store(int32(n)) })
	defer c.Teardown()

	c.Initialize(context.Background(), 5)
	require.Eventually(t, func() bool { return c.Count() == 2 }, waitFor, tick)

	add(t, s, "three", "https://three.example.com", "U1")
	require.Eventually(t, func() bool { return c.Count() == 3 }, waitFor, tick)
	require.Eventually(t, func() bool { return last.Load() == 3 }, waitFor, tick)

	assert.Zero(t, s.Subscribers(), "the counter never subscribes")
}

func TestCounterKeepsCountOnFailure(t *testing.T) {
	c := NewCounter(session("U1"), brokenCounter{}, Config{Interval: time.Hour, Logger: quietLogger()}, nil)
	c.set(4)

	c.Refresh(context.Background())
	assert.Equal(t, 4, c.Count())
}

func TestCounterTeardown(t *testing.T) {
	s := memory.New()
	var updates atomic.Int32
	c := NewCounter(session("U1"), s, Config{Interval: 10 * time.Millisecond, Logger: quietLogger()},
		func(int) { updates.Add(1) })

	c.Teardown()
	c.Teardown()
	c.Initialize(context.Background(), 3)

	time.Sleep(40 * time.Millisecond)
	assert.Zero(t, updates.Load())
	assert.Zero(t, c.Count())
}
