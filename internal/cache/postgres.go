package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresCache implements Cache on a single table. Postgres has no native
// TTL, so expired rows stay listable until Sweep deletes them.
type PostgresCache struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewPostgresCache connects to dsn and makes sure the cache table exists.
func NewPostgresCache(ctx context.Context, dsn string) (*PostgresCache, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN is required")
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}

	c := &PostgresCache{pool: pool, now: time.Now}

	if err := c.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	if err := c.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return c, nil
}

func (c *PostgresCache) ensureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS feed_cache_entries (
			key TEXT COLLATE "C" PRIMARY KEY,
			value JSONB NOT NULL,
			expires_at TIMESTAMPTZ,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_feed_cache_entries_expires_at ON feed_cache_entries(expires_at) WHERE expires_at IS NOT NULL`,
	}
	for _, stmt := range stmts {
		if _, err := c.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

func (c *PostgresCache) List(ctx context.Context, prefix Key, pageSize int) *Iterator {
	start := prefix.rangePrefix()
	return NewIterator(func(ctx context.Context, after string, limit int) ([]Pair, error) {
		rows, err := c.pool.Query(ctx, `
			SELECT key, value FROM feed_cache_entries
			WHERE starts_with(key, $1) AND key > $2
			ORDER BY key
			LIMIT $3`, start, after, limit)
		if err != nil {
			return nil, fmt.Errorf("list entries: %w", err)
		}
		defer rows.Close()

		page := make([]Pair, 0, limit)
		for rows.Next() {
			var p Pair
			if err := rows.Scan(&p.Key, &p.Value); err != nil {
				return nil, fmt.Errorf("scan entry: %w", err)
			}
			page = append(page, p)
		}
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("list entries: %w", err)
		}
		return page, nil
	}, pageSize)
}

func (c *PostgresCache) AtomicWrite(ctx context.Context, ops []WriteOp) error {
	if err := checkOps(ops); err != nil {
		return err
	}
	if len(ops) == 0 {
		return nil
	}

	now := c.now()
	batch := &pgx.Batch{}
	for _, op := range ops {
		var expiresAt *time.Time
		if op.TTL > 0 {
			at := now.Add(op.TTL)
			expiresAt = &at
		}
		batch.Queue(`
			INSERT INTO feed_cache_entries (key, value, expires_at, updated_at)
			VALUES ($1, $2, $3, NOW())
			ON CONFLICT (key) DO UPDATE SET
				value = EXCLUDED.value,
				expires_at = EXCLUDED.expires_at,
				updated_at = NOW()`,
			op.Key.String(), json.RawMessage(op.Value), expiresAt)
	}

	return pgx.BeginFunc(ctx, c.pool, func(tx pgx.Tx) error {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("write entries: %w", err)
		}
		return nil
	})
}

// Sweep deletes rows whose expiry has passed.
func (c *PostgresCache) Sweep(ctx context.Context) (int64, error) {
	tag, err := c.pool.Exec(ctx, `DELETE FROM feed_cache_entries WHERE expires_at IS NOT NULL AND expires_at <= $1`, c.now())
	if err != nil {
		return 0, fmt.Errorf("sweep entries: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (c *PostgresCache) Ping(ctx context.Context) error {
	if c.pool == nil {
		return fmt.Errorf("postgres not initialized")
	}
	return c.pool.Ping(ctx)
}

func (c *PostgresCache) Close() error {
	if c.pool != nil {
		c.pool.Close()
	}
	return nil
}
