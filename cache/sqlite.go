package cache

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	_ "modernc.org/sqlite"
)

type sqliteCache struct {
	db        *sql.DB
	ctx       context.Context
	cancel    context.CancelFunc
	waitGroup sync.WaitGroup
	once      sync.Once
	cfg       config
}

var _ Cache = (*sqliteCache)(nil)

// NewSQLite returns a new Cache backed by SQLite.
// If dbPath is empty or ":memory:", an in-memory database is used.
func NewSQLite(ctx context.Context, dbPath string, opts ...Option) (Cache, error) {
	if dbPath == "" {
		dbPath = ":memory:"
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// An in-memory database only lives as long as its connection.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}

	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS cache (
		key TEXT PRIMARY KEY,
		value BLOB NOT NULL,
		expires_at INTEGER NOT NULL
	)`); err != nil {
		db.Close()
		return nil, err
	}

	if _, err := db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_cache_expires_at ON cache(expires_at)`); err != nil {
		db.Close()
		return nil, err
	}

	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS counter (
		key TEXT PRIMARY KEY,
		value INTEGER NOT NULL
	)`); err != nil {
		db.Close()
		return nil, err
	}

	childCtx, cancel := context.WithCancel(ctx)
	c := &sqliteCache{
		db:     db,
		ctx:    childCtx,
		cancel: cancel,
		cfg:    applyOptions(opts),
	}
	if c.cfg.expiryCheck <= 0 {
		c.cfg.expiryCheck = time.Minute
	}

	c.waitGroup.Add(1)
	go c.run()

	return c, nil
}

func (c *sqliteCache) queryCtx(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, c.cfg.queryTimeout)
}

func (c *sqliteCache) GetContext(ctx context.Context, key string) (bool, any, error) {
	qctx, cancel := c.queryCtx(ctx)
	defer cancel()
	var data []byte
	var expiresAt int64
	err := c.db.QueryRowContext(qctx,
		`SELECT value, expires_at FROM cache WHERE key = ?`, key,
	).Scan(&data, &expiresAt)
	if err == sql.ErrNoRows {
		return false, nil, nil
	}
	if err != nil {
		return false, nil, err
	}
	if expiresAt < time.Now().UnixNano() {
		// Lazily delete expired entry.
		_, _ = c.db.ExecContext(qctx, `DELETE FROM cache WHERE key = ?`, key)
		return false, nil, nil
	}
	return true, data, nil
}

func (c *sqliteCache) SetContext(ctx context.Context, key string, val any, expires time.Duration) error {
	if expires <= 0 {
		expires = c.cfg.defaultExpires
	}
	data, err := msgpack.Marshal(val)
	if err != nil {
		return err
	}
	qctx, cancel := c.queryCtx(ctx)
	defer cancel()
	_, err = c.db.ExecContext(qctx,
		`INSERT INTO cache (key, value, expires_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`,
		key, data, time.Now().Add(expires).UnixNano(),
	)
	return err
}

func (c *sqliteCache) ExpireContext(ctx context.Context, key string) (bool, error) {
	qctx, cancel := c.queryCtx(ctx)
	defer cancel()
	result, err := c.db.ExecContext(qctx, `DELETE FROM cache WHERE key = ?`, key)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func (c *sqliteCache) IncrContext(ctx context.Context, key string, delta int64) (int64, error) {
	qctx, cancel := c.queryCtx(ctx)
	defer cancel()
	var val int64
	err := c.db.QueryRowContext(qctx,
		`INSERT INTO counter (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = value + excluded.value
		RETURNING value`,
		key, delta,
	).Scan(&val)
	return val, err
}

func (c *sqliteCache) CloseContext(_ context.Context) error {
	var dbErr error
	c.once.Do(func() {
		c.cancel()
		c.waitGroup.Wait()
		dbErr = c.db.Close()
	})
	return dbErr
}

func (c *sqliteCache) run() {
	defer c.waitGroup.Done()
	ticker := time.NewTicker(c.cfg.expiryCheck)
	defer ticker.Stop()
	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			_, _ = c.db.ExecContext(c.ctx, `DELETE FROM cache WHERE expires_at < ?`, time.Now().UnixNano())
		}
	}
}
