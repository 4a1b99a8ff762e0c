package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/MrSnakeDoc/bookmarks/internal/domain"
	"github.com/MrSnakeDoc/bookmarks/internal/httpserver/deps"
	"github.com/MrSnakeDoc/bookmarks/internal/httpserver/mw"
	"github.com/MrSnakeDoc/bookmarks/internal/livesync"
	"github.com/MrSnakeDoc/bookmarks/internal/logger"
)

const liveWriteTimeout = 5 * time.Second

type bookmarksFrame struct {
	Type      string         `json:"type"`
	Bookmarks []bookmarkView `json:"bookmarks"`
}

type countFrame struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
	Label string `json:"label"`
}

// outbox keeps only the latest frame of each kind. Producers never block;
// the writer drains whatever is newest when it wakes up.
type outbox struct {
	mu        sync.Mutex
	bookmarks []byte
	count     []byte
	notify    chan struct{}
}

func newOutbox() *outbox {
	return &outbox{notify: make(chan struct{}, 1)}
}

func (o *outbox) setBookmarks(list []domain.Bookmark) {
	data, err := json.Marshal(bookmarksFrame{Type: "bookmarks", Bookmarks: viewsOf(list)})
	if err != nil {
		return
	}
	o.mu.Lock()
	o.bookmarks = data
	o.mu.Unlock()
	o.wake()
}

func (o *outbox) setCount(n int) {
	data, err := json.Marshal(countFrame{Type: "count", Count: n, Label: domain.CountLabel(n)})
	if err != nil {
		return
	}
	o.mu.Lock()
	o.count = data
	o.mu.Unlock()
	o.wake()
}

func (o *outbox) wake() {
	select {
	case o.notify <- struct{}{}:
	default:
	}
}

// take returns the pending frames in send order and empties the outbox.
func (o *outbox) take() [][]byte {
	o.mu.Lock()
	defer o.mu.Unlock()
	var frames [][]byte
	if o.bookmarks != nil {
		frames = append(frames, o.bookmarks)
		o.bookmarks = nil
	}
	if o.count != nil {
		frames = append(frames, o.count)
		o.count = nil
	}
	return frames
}

// Live streams the session owner's list and count over a websocket.
// Each connection is one view: a list controller and a count controller are
// initialized from a fresh snapshot and torn down when the client goes away.
func Live(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, _ := mw.SessionFrom(r.Context())
		log := d.Logger.With(
			logger.String("view_id", uuid.NewString()),
			logger.String("user_id", sess.OwnerID()),
		)

		// The stream outlives the server's read and write timeouts.
		rc := http.NewResponseController(w)
		_ = rc.SetReadDeadline(time.Time{})
		_ = rc.SetWriteDeadline(time.Time{})

		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			log.Warn("websocket upgrade failed", logger.Error(err))
			return
		}
		defer func() { _ = conn.CloseNow() }()

		ctx := conn.CloseRead(r.Context())

		snapshot, err := d.Store.ListByOwner(ctx, sess.OwnerID())
		if err != nil {
			log.Warn("initial snapshot failed, waiting for first refresh", logger.Error(err))
			snapshot = nil
		}

		out := newOutbox()
		cfg := livesync.Config{Interval: d.RefreshInterval, Logger: log}

		list := livesync.NewController(sess, d.Store, cfg, out.setBookmarks)
		defer list.Teardown()
		count := livesync.NewCounter(sess, d.Store, cfg, out.setCount)
		defer count.Teardown()

		list.Initialize(ctx, snapshot)
		count.Initialize(ctx, len(snapshot))
		log.Info("live view opened", logger.Int("initial_count", len(snapshot)))

		if err := writeLoop(ctx, conn, out); !errors.Is(err, context.Canceled) {
			log.Warn("live view write failed", logger.Error(err))
			return
		}
		log.Info("live view closed")
		_ = conn.Close(websocket.StatusNormalClosure, "")
	}
}

func writeLoop(ctx context.Context, conn *websocket.Conn, out *outbox) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-out.notify:
		}

		for _, frame := range out.take() {
			wctx, cancel := context.WithTimeout(ctx, liveWriteTimeout)
			err := conn.Write(wctx, websocket.MessageText, frame)
			cancel()
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return err
			}
		}
	}
}
