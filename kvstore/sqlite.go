package kvstore

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/khamlab/thaiseg/dbopen"
)

const schema = `
CREATE TABLE IF NOT EXISTS kv_entries (
	key        TEXT PRIMARY KEY,
	value      BLOB,
	expires_at INTEGER NOT NULL DEFAULT 0  -- milliseconds since epoch, 0 = never
);
CREATE INDEX IF NOT EXISTS idx_kv_expires ON kv_entries (expires_at) WHERE expires_at > 0;
`

// SQLite is a Store backed by a single SQLite table.
type SQLite struct {
	db     *sql.DB
	logger *slog.Logger
	done   chan struct{}
	ownsDB bool
}

// SQLiteOption configures an SQLite store.
type SQLiteOption func(*SQLite)

// WithLogger overrides the default slog logger.
func WithLogger(l *slog.Logger) SQLiteOption {
	return func(s *SQLite) { s.logger = l }
}

// OpenSQLite opens (or creates) a store at path. The caller must blank-import
// modernc.org/sqlite.
func OpenSQLite(path string, opts ...SQLiteOption) (*SQLite, error) {
	db, err := dbopen.Open(path, dbopen.WithMkdirAll(), dbopen.WithSchema(schema))
	if err != nil {
		return nil, err
	}
	s := newSQLite(db, opts...)
	s.ownsDB = true
	return s, nil
}

// NewSQLite wraps an existing database, creating the kv_entries table if
// needed. The caller keeps ownership of db.
func NewSQLite(db *sql.DB, opts ...SQLiteOption) (*SQLite, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, err
	}
	return newSQLite(db, opts...), nil
}

func newSQLite(db *sql.DB, opts ...SQLiteOption) *SQLite {
	s := &SQLite{
		db:     db,
		logger: slog.Default(),
		done:   make(chan struct{}),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Get returns the value for key. Expired entries are treated as misses and
// deleted in place.
func (s *SQLite) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	var expiresAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT value, expires_at FROM kv_entries WHERE key = ?`, key,
	).Scan(&value, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if expiresAt > 0 && expiresAt <= time.Now().UnixMilli() {
		// Lazy expiry; the GC sweep handles keys that are never read.
		_, _ = s.db.ExecContext(ctx, `DELETE FROM kv_entries WHERE key = ?`, key)
		return nil, false, nil
	}
	return value, true, nil
}

// Set upserts key with the given TTL.
func (s *SQLite) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	var expiresAt int64
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl).UnixMilli()
	}
	_, err := dbopen.Exec(ctx, s.db, `
		INSERT INTO kv_entries (key, value, expires_at) VALUES (?,?,?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`,
		key, value, expiresAt)
	return err
}

// Delete removes key.
func (s *SQLite) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM kv_entries WHERE key = ?`, key)
	return err
}

// GC deletes all expired entries and returns how many were removed.
func (s *SQLite) GC(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM kv_entries WHERE expires_at > 0 AND expires_at <= ?`,
		time.Now().UnixMilli())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// StartGC sweeps expired entries every interval until Close (or the returned
// stop of the store). Sweep failures are logged, never propagated.
func (s *SQLite) StartGC(interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	go func() {
		tick := time.NewTicker(interval)
		defer tick.Stop()
		for {
			select {
			case <-s.done:
				return
			case <-tick.C:
				n, err := s.GC(context.Background())
				if err != nil {
					s.logger.Warn("kvstore: gc sweep failed", "error", err)
				} else if n > 0 {
					s.logger.Debug("kvstore: gc sweep", "removed", n)
				}
			}
		}
	}()
}

// Close stops the GC sweep and, when the store opened its own database,
// closes it.
func (s *SQLite) Close() error {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
	if s.ownsDB {
		return s.db.Close()
	}
	return nil
}
