package postgres

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/MrSnakeDoc/bookmarks/internal/domain"
	"github.com/MrSnakeDoc/bookmarks/internal/logger"
	"github.com/MrSnakeDoc/bookmarks/internal/store"
)

const (
	eventBuffer        = 16
	listenCloseTimeout = 2 * time.Second
)

// Subscribe takes a connection out of the pool and LISTENs on the change
// channel. The connection is closed, not returned, when the subscription ends.
func (s *Store) Subscribe(ctx context.Context) (store.Subscription, error) {
	pc, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, &domain.SubscriptionError{Err: err}
	}
	conn := pc.Hijack()

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{ChannelChanges}.Sanitize()); err != nil {
		closeConn(conn)
		return nil, &domain.SubscriptionError{Err: err}
	}

	listenCtx, cancel := context.WithCancel(ctx)
	sub := &subscription{
		conn:    conn,
		events:  make(chan store.ChangeEvent, eventBuffer),
		cancel:  cancel,
		stopped: make(chan struct{}),
		logger:  s.logger,
	}
	go sub.run(listenCtx)
	return sub, nil
}

type subscription struct {
	conn    *pgx.Conn
	events  chan store.ChangeEvent
	cancel  context.CancelFunc
	stopped chan struct{}
	once    sync.Once
	logger  logger.Logger
}

func (sub *subscription) Events() <-chan store.ChangeEvent { return sub.events }

// Close stops listening and waits for the connection to be released.
func (sub *subscription) Close() error {
	sub.once.Do(sub.cancel)
	<-sub.stopped
	return nil
}

func (sub *subscription) run(ctx context.Context) {
	defer close(sub.stopped)
	defer close(sub.events)
	defer closeConn(sub.conn)

	for {
		n, err := sub.conn.WaitForNotification(ctx)
		if err != nil {
			if !isClosed(ctx, err) {
				sub.logger.Warn("change listener stopped",
					logger.Error(&domain.SubscriptionError{Err: err}))
			}
			return
		}

		var ev store.ChangeEvent
		if err := json.Unmarshal([]byte(n.Payload), &ev); err != nil {
			sub.logger.Warn("ignoring malformed change event", logger.Error(err))
			continue
		}

		select {
		case sub.events <- ev:
		default:
		}
	}
}

func closeConn(conn *pgx.Conn) {
	ctx, cancel := context.WithTimeout(context.Background(), listenCloseTimeout)
	defer cancel()
	_ = conn.Close(ctx)
}
