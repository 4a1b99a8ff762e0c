// Package postgres stores bookmarks in PostgreSQL through a pgx pool.
//
// Ownership is part of every WHERE clause. Change events come from a row
// trigger calling pg_notify and are consumed with LISTEN on a dedicated
// connection per subscription.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MrSnakeDoc/bookmarks/internal/domain"
	"github.com/MrSnakeDoc/bookmarks/internal/logger"
	"github.com/MrSnakeDoc/bookmarks/internal/store"
)

const (
	storageMaxConns         = 10
	storageMinConns         = 1
	storageConnMaxIdleTime  = 2 * time.Minute
	storageConnMaxLifetime  = 30 * time.Minute
	storagePingTimeout      = 5 * time.Second
	storageMigrationTimeout = 30 * time.Second
)

// Store is the PostgreSQL storage collaborator.
type Store struct {
	pool   *pgxpool.Pool
	logger logger.Logger
}

var _ store.Store = (*Store)(nil)

// New opens a pool on dsn, checks the connection and applies the schema.
func New(ctx context.Context, dsn string, log logger.Logger) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}
	cfg.MaxConns = storageMaxConns
	cfg.MinConns = storageMinConns
	cfg.MaxConnIdleTime = storageConnMaxIdleTime
	cfg.MaxConnLifetime = storageConnMaxLifetime

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, storagePingTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrateCtx, cancelMigrate := context.WithTimeout(ctx, storageMigrationTimeout)
	defer cancelMigrate()
	if _, err := pool.Exec(migrateCtx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	log.Info("connected to postgres",
		logger.String("host", cfg.ConnConfig.Host),
		logger.String("database", cfg.ConnConfig.Database))

	return &Store{pool: pool, logger: log.With(logger.String("store", "postgres"))}, nil
}

// Insert stores a row; the database assigns id and created_at.
func (s *Store) Insert(ctx context.Context, nb domain.NewBookmark) (domain.Bookmark, error) {
	var (
		b  domain.Bookmark
		id int64
	)
	err := s.pool.QueryRow(ctx, `
		INSERT INTO bookmarks (user_id, title, url)
		VALUES ($1, $2, $3)
		RETURNING id, user_id, title, url, created_at`,
		nb.OwnerID, nb.Title, nb.URL,
	).Scan(&id, &b.OwnerID, &b.Title, &b.URL, &b.CreatedAt)
	if err != nil {
		return domain.Bookmark{}, &domain.QueryError{Op: "insert", Err: err}
	}
	b.ID = strconv.FormatInt(id, 10)
	return b, nil
}

// Delete removes id when it belongs to ownerID.
func (s *Store) Delete(ctx context.Context, ownerID, id string) error {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		// Not an id this table could have produced
		return domain.ErrNotFound
	}

	tag, err := s.pool.Exec(ctx,
		`DELETE FROM bookmarks WHERE id = $1 AND user_id = $2`, n, ownerID)
	if err != nil {
		return &domain.QueryError{Op: "delete", Err: err}
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListByOwner returns ownerID's bookmarks, newest first.
func (s *Store) ListByOwner(ctx context.Context, ownerID string) ([]domain.Bookmark, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, title, url, created_at
		FROM bookmarks
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC`, ownerID)
	if err != nil {
		return nil, &domain.QueryError{Op: "list", Err: err}
	}

	bookmarks, err := pgx.CollectRows(rows, scanBookmark)
	if err != nil {
		return nil, &domain.QueryError{Op: "list", Err: err}
	}
	if bookmarks == nil {
		bookmarks = []domain.Bookmark{}
	}
	return bookmarks, nil
}

// CountByOwner returns the number of ownerID's bookmarks.
func (s *Store) CountByOwner(ctx context.Context, ownerID string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM bookmarks WHERE user_id = $1`, ownerID).Scan(&n)
	if err != nil {
		return 0, &domain.QueryError{Op: "count", Err: err}
	}
	return n, nil
}

// Ping checks that the database answers.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func scanBookmark(row pgx.CollectableRow) (domain.Bookmark, error) {
	var (
		b  domain.Bookmark
		id int64
	)
	if err := row.Scan(&id, &b.OwnerID, &b.Title, &b.URL, &b.CreatedAt); err != nil {
		return domain.Bookmark{}, err
	}
	b.ID = strconv.FormatInt(id, 10)
	return b, nil
}

// isClosed reports errors caused by our own shutdown of a listener.
func isClosed(ctx context.Context, err error) bool {
	return ctx.Err() != nil || errors.Is(err, context.Canceled)
}
