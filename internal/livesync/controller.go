package livesync

import (
	"context"
	"sync"
	"time"

	"github.com/MrSnakeDoc/bookmarks/internal/domain"
	"github.com/MrSnakeDoc/bookmarks/internal/logger"
	"github.com/MrSnakeDoc/bookmarks/internal/store"
)

// Source is what a list controller reads from: owner-filtered reads plus the
// change channel.
type Source interface {
	store.Reader
	store.Subscriber
}

// Config holds the settings shared by Controller and Counter.
type Config struct {
	// Interval is the polling period. Zero means DefaultInterval.
	Interval time.Duration
	Logger   logger.Logger
}

// Controller keeps one session view's bookmark list fresh.
//
// The list is never patched: every refresh replaces it with the owner's rows
// as storage returns them. Refreshes come from a fixed-interval poll and from
// change notifications; both only schedule a full re-fetch.
type Controller struct {
	session  domain.Session
	source   Source
	logger   logger.Logger
	onUpdate func([]domain.Bookmark)
	loop     *Loop[[]domain.Bookmark]

	mu      sync.RWMutex
	current []domain.Bookmark

	lifeMu sync.Mutex
	torn   bool
	sub    store.Subscription
}

// NewController builds a controller for session. onUpdate, when not nil, is
// called with a copy of the list every time it is replaced; it runs while the
// refresh is being applied and must return quickly.
func NewController(session domain.Session, source Source, cfg Config, onUpdate func([]domain.Bookmark)) *Controller {
	log := cfg.Logger.With(
		logger.String("view", "bookmarks"),
		logger.String("user_id", session.OwnerID()),
	)
	c := &Controller{
		session:  session,
		source:   source,
		logger:   log,
		onUpdate: onUpdate,
		current:  []domain.Bookmark{},
	}
	c.loop = NewLoop("bookmarks", cfg.Interval, c.fetch, c.set, log)
	return c
}

// Initialize seeds the list with snapshot when it is not empty, then starts
// the poll (which refreshes immediately) and opens the change subscription.
// It does nothing after Teardown.
func (c *Controller) Initialize(ctx context.Context, snapshot []domain.Bookmark) {
	if c.tornDown() {
		return
	}
	if len(snapshot) > 0 {
		c.set(snapshot)
	}
	c.StartPeriodicRefresh(ctx)
	c.SubscribeToChanges(ctx)
}

// Refresh re-fetches the owner's bookmarks and replaces the list.
// On failure the list is left as it was and the error is only logged.
func (c *Controller) Refresh(ctx context.Context) {
	if err := c.loop.Refresh(ctx); err != nil {
		c.logger.Warn("bookmark refresh failed", logger.Error(err))
	}
}

// OnChangeNotification schedules a refresh. The event payload is ignored.
func (c *Controller) OnChangeNotification(ev store.ChangeEvent) {
	c.logger.Debug("change notification",
		logger.String("op", string(ev.Op)),
		logger.String("bookmark_id", ev.ID))
	c.loop.Trigger()
}

// StartPeriodicRefresh starts polling until Teardown or ctx is done.
func (c *Controller) StartPeriodicRefresh(ctx context.Context) {
	c.loop.Start(ctx)
}

// SubscribeToChanges opens the change channel. A failure to subscribe is
// logged and not retried: polling keeps the list fresh without it.
func (c *Controller) SubscribeToChanges(ctx context.Context) {
	sub, err := c.source.Subscribe(ctx)
	if err != nil {
		c.logger.Warn("change subscription unavailable, polling only",
			logger.Error(&domain.SubscriptionError{Err: err}))
		return
	}

	c.lifeMu.Lock()
	if c.torn || c.sub != nil {
		c.lifeMu.Unlock()
		_ = sub.Close()
		return
	}
	c.sub = sub
	c.lifeMu.Unlock()

	c.logger.Debug("change subscription open")
	go c.forward(sub)
}

// Teardown stops polling and closes the subscription. It is idempotent and
// safe to call before or during Initialize.
func (c *Controller) Teardown() {
	c.lifeMu.Lock()
	if c.torn {
		c.lifeMu.Unlock()
		return
	}
	c.torn = true
	sub := c.sub
	c.sub = nil
	c.lifeMu.Unlock()

	c.loop.Stop()
	if sub != nil {
		if err := sub.Close(); err != nil {
			c.logger.Warn("closing change subscription", logger.Error(err))
		}
	}
}

// Current returns a copy of the list, newest first.
func (c *Controller) Current() []domain.Bookmark {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.Bookmark, len(c.current))
	copy(out, c.current)
	return out
}

func (c *Controller) fetch(ctx context.Context) ([]domain.Bookmark, error) {
	return c.source.ListByOwner(ctx, c.session.OwnerID())
}

// set replaces the list. Rows of other owners are dropped even if storage
// returned them.
func (c *Controller) set(list []domain.Bookmark) {
	owned := domain.OwnedBy(list, c.session.OwnerID())

	c.mu.Lock()
	c.current = owned
	c.mu.Unlock()

	if c.onUpdate != nil {
		out := make([]domain.Bookmark, len(owned))
		copy(out, owned)
		c.onUpdate(out)
	}
}

func (c *Controller) forward(sub store.Subscription) {
	for ev := range sub.Events() {
		c.OnChangeNotification(ev)
	}
	if !c.tornDown() {
		c.logger.Warn("change subscription ended, polling only")
	}
}

func (c *Controller) tornDown() bool {
	c.lifeMu.Lock()
	defer c.lifeMu.Unlock()
	return c.torn
}
