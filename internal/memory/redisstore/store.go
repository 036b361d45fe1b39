// Package redisstore provides a Redis-backed conversation store.
// Record expiry is delegated to Redis key TTLs, which yields the same
// observable behavior as an opportunistic sweep: a record older than the
// memory timeout is absent by the time the next turn reads it.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	goredis "github.com/redis/go-redis/v9"

	"github.com/blueberrycongee/memgate/internal/memory"
	"github.com/blueberrycongee/memgate/pkg/types"
)

// Config holds configuration for the Redis store.
type Config struct {
	Addr         string        `yaml:"addr"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	Namespace    string        `yaml:"namespace"`
	TTL          time.Duration `yaml:"ttl"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	PoolSize     int           `yaml:"pool_size"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Addr:         "localhost:6379",
		Namespace:    "memgate",
		TTL:          2 * time.Hour,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	}
}

// Store implements memory.Store using Redis as backend.
type Store struct {
	client    goredis.UniversalClient
	namespace string
	ttl       time.Duration
}

// New creates a new Redis-backed store and verifies connectivity.
func New(cfg Config) (*Store, error) {
	if cfg.TTL <= 0 {
		cfg.TTL = 2 * time.Hour
	}
	if cfg.Namespace == "" {
		cfg.Namespace = "memgate"
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolSize:     cfg.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &Store{
		client:    client,
		namespace: cfg.Namespace,
		ttl:       cfg.TTL,
	}, nil
}

// NewWithClient wraps an existing Redis client, mainly for tests.
func NewWithClient(client goredis.UniversalClient, namespace string, ttl time.Duration) *Store {
	return &Store{client: client, namespace: namespace, ttl: ttl}
}

func (s *Store) key(convKey string) string {
	return s.namespace + ":conv:" + convKey
}

func (s *Store) GetOrCreate(ctx context.Context, key string) ([]types.Message, error) {
	data, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return []types.Message{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}

	var rec memory.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	if rec.Messages == nil {
		return []types.Message{}, nil
	}
	return rec.Messages, nil
}

func (s *Store) Touch(ctx context.Context, key string, now time.Time) error {
	rk := s.key(key)

	data, err := s.client.Get(ctx, rk).Bytes()
	rec := memory.Record{}
	switch {
	case errors.Is(err, goredis.Nil):
		// New record with no messages yet.
	case err != nil:
		return fmt.Errorf("get record: %w", err)
	default:
		if err := json.Unmarshal(data, &rec); err != nil {
			return fmt.Errorf("decode record: %w", err)
		}
	}

	rec.LastTouched = now
	return s.write(ctx, rk, rec)
}

func (s *Store) Commit(ctx context.Context, key string, history []types.Message, now time.Time) error {
	return s.write(ctx, s.key(key), memory.Record{
		Messages:    history,
		LastTouched: now,
	})
}

func (s *Store) write(ctx context.Context, rk string, rec memory.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	if err := s.client.Set(ctx, rk, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("set record: %w", err)
	}
	return nil
}

// ExpireStale removes records whose stored last-activity time is older than
// ttl. Redis key TTLs already cover the configured memory timeout; the sweep
// only matters when ttl is tightened below the TTL the records were written
// with.
func (s *Store) ExpireStale(ctx context.Context, now time.Time, ttl time.Duration) (int, error) {
	expired := 0
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, s.namespace+":conv:*", 100).Result()
		if err != nil {
			return expired, fmt.Errorf("scan records: %w", err)
		}

		for _, rk := range keys {
			data, err := s.client.Get(ctx, rk).Bytes()
			if errors.Is(err, goredis.Nil) {
				continue
			}
			if err != nil {
				return expired, fmt.Errorf("get record: %w", err)
			}
			var rec memory.Record
			if err := json.Unmarshal(data, &rec); err != nil {
				continue
			}
			if now.Sub(rec.LastTouched) > ttl {
				if err := s.client.Del(ctx, rk).Err(); err != nil {
					return expired, fmt.Errorf("delete record: %w", err)
				}
				expired++
			}
		}

		cursor = next
		if cursor == 0 {
			return expired, nil
		}
	}
}

func (s *Store) Clear(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	return nil
}

func (s *Store) ClearAll(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, s.namespace+":conv:*", 100).Result()
		if err != nil {
			return fmt.Errorf("scan records: %w", err)
		}
		if len(keys) > 0 {
			if err := s.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("delete records: %w", err)
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

func (s *Store) Count(ctx context.Context) (int, error) {
	count := 0
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, s.namespace+":conv:*", 100).Result()
		if err != nil {
			return 0, fmt.Errorf("scan records: %w", err)
		}
		count += len(keys)
		cursor = next
		if cursor == 0 {
			return count, nil
		}
	}
}

func (s *Store) Close() error {
	return s.client.Close()
}
