package pagecache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS pages (
	key          TEXT PRIMARY KEY,
	content_type TEXT NOT NULL DEFAULT '',
	etag         TEXT NOT NULL DEFAULT '',
	body         BLOB NOT NULL,
	compressed   INTEGER NOT NULL DEFAULT 0,
	stored_at    DATETIME NOT NULL,
	expires_at   DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_pages_expires ON pages(expires_at);
`

// SQLiteStore keeps entries in a SQLite database so they survive restarts.
type SQLiteStore struct {
	conn *sql.DB
	now  func() time.Time
}

// OpenSQLite opens (or creates) the database at path and applies the schema.
func OpenSQLite(path string) (*SQLiteStore, error) {
	conn, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("pagecache: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("pagecache: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("pagecache: apply schema: %w", err)
	}
	return &SQLiteStore{conn: conn, now: time.Now}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, key string) (Entry, bool, error) {
	var (
		e          Entry
		compressed int
		expires    time.Time
	)
	err := s.conn.QueryRowContext(ctx,
		`SELECT content_type, etag, body, compressed, stored_at, expires_at FROM pages WHERE key = ?`, key,
	).Scan(&e.ContentType, &e.ETag, &e.Body, &compressed, &e.StoredAt, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("pagecache: get %s: %w", key, err)
	}
	if !s.now().Before(expires) {
		return Entry{}, false, nil
	}
	e.Compressed = compressed == 1
	return e, true, nil
}

func (s *SQLiteStore) Put(ctx context.Context, key string, e Entry, ttl time.Duration) error {
	compressed := 0
	if e.Compressed {
		compressed = 1
	}
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO pages (key, content_type, etag, body, compressed, stored_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			content_type = excluded.content_type,
			etag         = excluded.etag,
			body         = excluded.body,
			compressed   = excluded.compressed,
			stored_at    = excluded.stored_at,
			expires_at   = excluded.expires_at`,
		key, e.ContentType, e.ETag, e.Body, compressed, e.StoredAt.UTC(), s.now().Add(ttl).UTC())
	if err != nil {
		return fmt.Errorf("pagecache: put %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) InvalidatePrefix(ctx context.Context, prefix string) (int, error) {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("pagecache: begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	rows, err := tx.QueryContext(ctx, `SELECT key FROM pages`)
	if err != nil {
		return 0, fmt.Errorf("pagecache: list keys: %w", err)
	}
	var doomed []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			rows.Close()
			return 0, fmt.Errorf("pagecache: scan key: %w", err)
		}
		if Matches(k, prefix) {
			doomed = append(doomed, k)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("pagecache: list keys: %w", err)
	}

	for _, k := range doomed {
		if _, err := tx.ExecContext(ctx, `DELETE FROM pages WHERE key = ?`, k); err != nil {
			return 0, fmt.Errorf("pagecache: delete %s: %w", k, err)
		}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM pages WHERE expires_at <= ?`, s.now().UTC()); err != nil {
		return 0, fmt.Errorf("pagecache: purge expired: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("pagecache: commit: %w", err)
	}
	return len(doomed), nil
}

func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}
