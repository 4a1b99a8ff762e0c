package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/bookmarks/internal/domain"
	"github.com/MrSnakeDoc/bookmarks/internal/logger"
	"github.com/MrSnakeDoc/bookmarks/internal/store"
)

// deleteOwned removes the ID from the owner's set and, only if it was there,
// the row itself. KEYS[1] = owner set, KEYS[2] = row key, ARGV[1] = id.
var deleteOwned = redis.NewScript(`
if redis.call('ZREM', KEYS[1], ARGV[1]) == 0 then
	return 0
end
redis.call('DEL', KEYS[2])
return 1
`)

// Insert assigns the next ID, stores the row and indexes it under its owner
func (s *Store) Insert(ctx context.Context, nb domain.NewBookmark) (domain.Bookmark, error) {
	id, err := s.client.Incr(ctx, KeySequence).Result()
	if err != nil {
		return domain.Bookmark{}, &domain.QueryError{Op: "insert", Err: fmt.Errorf("failed to allocate id: %w", err)}
	}

	b := domain.Bookmark{
		ID:        strconv.FormatInt(id, 10),
		OwnerID:   nb.OwnerID,
		Title:     nb.Title,
		URL:       nb.URL,
		CreatedAt: s.now().UTC(),
	}

	data, err := json.Marshal(b)
	if err != nil {
		return domain.Bookmark{}, &domain.QueryError{Op: "insert", Err: fmt.Errorf("failed to marshal bookmark: %w", err)}
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, BookmarkKey(b.ID), data, 0)
		pipe.ZAdd(ctx, OwnerKey(b.OwnerID), redis.Z{
			Score:  float64(b.CreatedAt.UnixMilli()),
			Member: b.ID,
		})
		return nil
	})
	if err != nil {
		return domain.Bookmark{}, &domain.QueryError{Op: "insert", Err: fmt.Errorf("failed to save bookmark: %w", err)}
	}

	s.publish(ctx, store.ChangeEvent{Op: store.OpInsert, ID: b.ID, OwnerID: b.OwnerID})
	return b, nil
}

// Delete removes the bookmark only if it is in ownerID's set
func (s *Store) Delete(ctx context.Context, ownerID, id string) error {
	removed, err := deleteOwned.Run(ctx, s.client, []string{OwnerKey(ownerID), BookmarkKey(id)}, id).Int()
	if err != nil {
		return &domain.QueryError{Op: "delete", Err: fmt.Errorf("failed to delete bookmark: %w", err)}
	}
	if removed == 0 {
		return domain.ErrNotFound
	}

	s.publish(ctx, store.ChangeEvent{Op: store.OpDelete, ID: id, OwnerID: ownerID})
	return nil
}

// ListByOwner returns ownerID's bookmarks, newest first
func (s *Store) ListByOwner(ctx context.Context, ownerID string) ([]domain.Bookmark, error) {
	ids, err := s.client.ZRevRange(ctx, OwnerKey(ownerID), 0, -1).Result()
	if err != nil {
		return nil, &domain.QueryError{Op: "list", Err: fmt.Errorf("failed to get bookmark IDs: %w", err)}
	}
	if len(ids) == 0 {
		return []domain.Bookmark{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = BookmarkKey(id)
	}

	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, &domain.QueryError{Op: "list", Err: fmt.Errorf("failed to get bookmarks: %w", err)}
	}

	return s.decodeRows(vals, ownerID), nil
}

// CountByOwner returns the size of ownerID's set
func (s *Store) CountByOwner(ctx context.Context, ownerID string) (int, error) {
	n, err := s.client.ZCard(ctx, OwnerKey(ownerID)).Result()
	if err != nil {
		return 0, &domain.QueryError{Op: "count", Err: fmt.Errorf("failed to count bookmarks: %w", err)}
	}
	return int(n), nil
}

// decodeRows turns MGET values into bookmarks, skipping rows that vanished
// between ZREVRANGE and MGET, rows that fail to decode and rows of another
// owner. The result is newest first.
func (s *Store) decodeRows(vals []interface{}, ownerID string) []domain.Bookmark {
	bookmarks := make([]domain.Bookmark, 0, len(vals))
	for _, v := range vals {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var b domain.Bookmark
		if err := json.Unmarshal([]byte(raw), &b); err != nil {
			s.logger.Warn("skipping undecodable bookmark row", logger.Error(err))
			continue
		}
		bookmarks = append(bookmarks, b)
	}
	return domain.OwnedBy(bookmarks, ownerID)
}
