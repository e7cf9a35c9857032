// Package sqlite is a durable, file-backed Provider: the closest server-side analogue
// of browser local storage. One table holds every entry.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	pr "github.com/unkn0wn-root/swrcache/provider"
)

const schema = `CREATE TABLE IF NOT EXISTS swrcache_entries (
	key        TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	updated_at INTEGER NOT NULL
)`

type Provider struct {
	db      *sql.DB
	ownsDB  bool
	timeout time.Duration
}

var _ pr.Provider = (*Provider)(nil)

type Config struct {
	// Path of the database file; parent directories are created.
	Path string
	// DB reuses an existing handle instead of opening Path.
	DB *sql.DB
	// BusyTimeout bounds each statement when the caller's context has no deadline. 0 => 2s.
	BusyTimeout time.Duration
}

func New(ctx context.Context, cfg Config) (*Provider, error) {
	p := &Provider{db: cfg.DB, timeout: cfg.BusyTimeout}
	if p.timeout <= 0 {
		p.timeout = 2 * time.Second
	}
	if p.db == nil {
		if cfg.Path == "" {
			return nil, errors.New("sqlite provider: path or db is required")
		}
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		db, err := sql.Open("sqlite3", cfg.Path+"?_busy_timeout=5000&_journal_mode=WAL")
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite database: %w", err)
		}
		p.db = db
		p.ownsDB = true
	}
	if err := p.db.PingContext(ctx); err != nil {
		p.closeOwned()
		return nil, fmt.Errorf("SQLite database ping failed: %w", err)
	}
	if _, err := p.db.ExecContext(ctx, schema); err != nil {
		p.closeOwned()
		return nil, fmt.Errorf("failed to create entries table: %w", err)
	}
	return p, nil
}

func (p *Provider) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, p.timeout)
}

func (p *Provider) Get(ctx context.Context, key string) ([]byte, bool, error) {
	ctx, cancel := p.bound(ctx)
	defer cancel()

	var b []byte
	err := p.db.QueryRowContext(ctx, `SELECT value FROM swrcache_entries WHERE key = ?`, key).Scan(&b)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (p *Provider) Set(ctx context.Context, key string, value []byte) error {
	ctx, cancel := p.bound(ctx)
	defer cancel()

	if value == nil {
		value = []byte{}
	}
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO swrcache_entries (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UnixMilli())
	return err
}

func (p *Provider) Del(ctx context.Context, key string) error {
	ctx, cancel := p.bound(ctx)
	defer cancel()

	_, err := p.db.ExecContext(ctx, `DELETE FROM swrcache_entries WHERE key = ?`, key)
	return err
}

// Close closes the database only when this provider opened it.
func (p *Provider) Close(_ context.Context) error {
	return p.closeOwned()
}

func (p *Provider) closeOwned() error {
	if p.ownsDB && p.db != nil {
		return p.db.Close()
	}
	return nil
}
