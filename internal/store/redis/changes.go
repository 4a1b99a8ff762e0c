package redis

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/bookmarks/internal/domain"
	"github.com/MrSnakeDoc/bookmarks/internal/logger"
	"github.com/MrSnakeDoc/bookmarks/internal/store"
)

const eventBuffer = 16

// publish announces a write. A failed publish does not fail the write:
// subscribers still converge through polling.
func (s *Store) publish(ctx context.Context, ev store.ChangeEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		s.logger.Warn("failed to encode change event", logger.Error(err))
		return
	}
	if err := s.client.Publish(ctx, ChannelChanges, payload).Err(); err != nil {
		s.logger.Warn("failed to publish change event",
			logger.String("op", string(ev.Op)),
			logger.String("bookmark_id", ev.ID),
			logger.Error(err))
	}
}

// Subscribe listens on the change channel. The subscription is confirmed
// before returning, so a down server fails here rather than silently.
func (s *Store) Subscribe(ctx context.Context) (store.Subscription, error) {
	ps := s.client.Subscribe(ctx, ChannelChanges)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, &domain.SubscriptionError{Err: err}
	}

	sub := &subscription{
		ps:     ps,
		events: make(chan store.ChangeEvent, eventBuffer),
		done:   make(chan struct{}),
		logger: s.logger,
	}
	go sub.run(ctx, ps.Channel())
	return sub, nil
}

type subscription struct {
	ps     *redis.PubSub
	events chan store.ChangeEvent
	done   chan struct{}
	once   sync.Once
	logger logger.Logger
}

func (sub *subscription) Events() <-chan store.ChangeEvent { return sub.events }

func (sub *subscription) Close() error {
	var err error
	sub.once.Do(func() {
		close(sub.done)
		err = sub.ps.Close()
	})
	return err
}

func (sub *subscription) run(ctx context.Context, msgs <-chan *redis.Message) {
	defer close(sub.events)

	for {
		select {
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			ev, err := decodeEvent(msg.Payload)
			if err != nil {
				sub.logger.Warn("ignoring malformed change event", logger.Error(err))
				continue
			}
			select {
			case sub.events <- ev:
			default:
				// Consumer is behind; it will re-fetch everything anyway
			}
		case <-sub.done:
			return
		case <-ctx.Done():
			_ = sub.Close()
			return
		}
	}
}

func decodeEvent(payload string) (store.ChangeEvent, error) {
	var ev store.ChangeEvent
	err := json.Unmarshal([]byte(payload), &ev)
	return ev, err
}
