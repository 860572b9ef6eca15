// Package pagecache stores rendered responses keyed by request path and
// drops them when a path is revalidated.
package pagecache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/starford/folio/internal/checksum"
)

// DefaultTTL bounds how long an entry is served without revalidation.
const DefaultTTL = 60 * time.Second

// ErrClosed is returned by a store after Close.
var ErrClosed = errors.New("pagecache: closed")

// Entry is one cached response.
type Entry struct {
	ContentType string    `json:"content_type"`
	ETag        string    `json:"etag"`
	Body        []byte    `json:"body"`
	Compressed  bool      `json:"compressed"`
	StoredAt    time.Time `json:"stored_at"`
}

// Store is a cache backend. A miss is (Entry{}, false, nil).
type Store interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Put(ctx context.Context, key string, e Entry, ttl time.Duration) error
	// InvalidatePrefix removes every key that Matches prefix and returns how many were removed.
	InvalidatePrefix(ctx context.Context, prefix string) (int, error)
	Close() error
}

// Matches reports whether key is path or lies beneath it. The query string
// of key is ignored, so "/blog" covers "/blog?page=2" and "/blog/post".
func Matches(key, path string) bool {
	if path == "" || path == "/" {
		return true
	}
	path = strings.TrimSuffix(path, "/")
	if i := strings.IndexByte(key, '?'); i >= 0 {
		key = key[:i]
	}
	return key == path || strings.HasPrefix(key, path+"/")
}

// Cache layers TTL defaults, ETags and optional zstd compression over a Store.
type Cache struct {
	store Store
	ttl   time.Duration
	enc   *zstd.Encoder
	dec   *zstd.Decoder
	now   func() time.Time
}

// Option configures a Cache.
type Option func(*Cache) error

// WithTTL sets the entry lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) error {
		if ttl > 0 {
			c.ttl = ttl
		}
		return nil
	}
}

// WithCompression stores bodies zstd-compressed.
func WithCompression() Option {
	return func(c *Cache) error {
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return fmt.Errorf("pagecache: zstd writer: %w", err)
		}
		dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
		if err != nil {
			return fmt.Errorf("pagecache: zstd reader: %w", err)
		}
		c.enc, c.dec = enc, dec
		return nil
	}
}

// New wraps store.
func New(store Store, opts ...Option) (*Cache, error) {
	c := &Cache{store: store, ttl: DefaultTTL, now: time.Now}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Get returns a decoded entry.
func (c *Cache) Get(ctx context.Context, key string) (Entry, bool, error) {
	e, ok, err := c.store.Get(ctx, key)
	if err != nil || !ok {
		return Entry{}, false, err
	}
	if e.Compressed {
		if c.dec == nil {
			// Written by a compressing instance; treat as a miss.
			return Entry{}, false, nil
		}
		body, err := c.dec.DecodeAll(e.Body, nil)
		if err != nil {
			return Entry{}, false, fmt.Errorf("pagecache: decode %s: %w", key, err)
		}
		e.Body, e.Compressed = body, false
	}
	return e, true, nil
}

// Put stores body under key and returns the stored entry's ETag.
func (c *Cache) Put(ctx context.Context, key, contentType string, body []byte) (string, error) {
	e := Entry{
		ContentType: contentType,
		ETag:        checksum.ETag(body),
		Body:        body,
		StoredAt:    c.now().UTC(),
	}
	if c.enc != nil {
		e.Body = c.enc.EncodeAll(body, make([]byte, 0, len(body)/2))
		e.Compressed = true
	}
	if err := c.store.Put(ctx, key, e, c.ttl); err != nil {
		return "", fmt.Errorf("pagecache: put %s: %w", key, err)
	}
	return e.ETag, nil
}

// Invalidate drops every entry under path.
func (c *Cache) Invalidate(ctx context.Context, path string) (int, error) {
	n, err := c.store.InvalidatePrefix(ctx, path)
	if err != nil {
		return n, fmt.Errorf("pagecache: invalidate %s: %w", path, err)
	}
	return n, nil
}

// Close releases the backend and codec.
func (c *Cache) Close() error {
	if c.enc != nil {
		_ = c.enc.Close()
	}
	if c.dec != nil {
		c.dec.Close()
	}
	return c.store.Close()
}
