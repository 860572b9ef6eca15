package pagecache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces keys in a shared Redis.
const DefaultRedisPrefix = "folio:page:"

// RedisStore keeps entries in Redis so several instances share one cache.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// OpenRedis connects to url and pings it.
func OpenRedis(ctx context.Context, url, prefix string) (*RedisStore, error) {
	if url == "" {
		return nil, errors.New("pagecache: redis url is required")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("pagecache: parse redis url: %w", err)
	}
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pagecache: ping redis: %w", err)
	}
	return &RedisStore{client: client, prefix: prefix}, nil
}

func (s *RedisStore) Get(ctx context.Context, key string) (Entry, bool, error) {
	raw, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("pagecache: get %s: %w", key, err)
	}
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return Entry{}, false, fmt.Errorf("pagecache: decode %s: %w", key, err)
	}
	return e, true, nil
}

func (s *RedisStore) Put(ctx context.Context, key string, e Entry, ttl time.Duration) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("pagecache: encode %s: %w", key, err)
	}
	return s.client.Set(ctx, s.prefix+key, raw, ttl).Err()
}

// InvalidatePrefix scans the namespace with SCAN rather than KEYS.
func (s *RedisStore) InvalidatePrefix(ctx context.Context, prefix string) (int, error) {
	var cursor uint64
	n := 0
	for {
		keys, next, err := s.client.Scan(ctx, cursor, s.prefix+"*", 100).Result()
		if err != nil {
			return n, fmt.Errorf("pagecache: scan: %w", err)
		}
		var doomed []string
		for _, k := range keys {
			if Matches(strings.TrimPrefix(k, s.prefix), prefix) {
				doomed = append(doomed, k)
			}
		}
		if len(doomed) > 0 {
			if err := s.client.Del(ctx, doomed...).Err(); err != nil {
				return n, fmt.Errorf("pagecache: delete: %w", err)
			}
			n += len(doomed)
		}
		cursor = next
		if cursor == 0 {
			return n, nil
		}
	}
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
