// Package pgstore provides a PostgreSQL-backed conversation store for
// deployments that need history to survive process restarts.
package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/blueberrycongee/memgate/pkg/types"
)

// Config contains PostgreSQL connection settings.
type Config struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	User         string        `yaml:"user"`
	Password     string        `yaml:"password"`
	Database     string        `yaml:"database"`
	SSLMode      string        `yaml:"ssl_mode"`
	MaxOpenConns int           `yaml:"max_open_conns"`
	MaxIdleConns int           `yaml:"max_idle_conns"`
	ConnLifetime time.Duration `yaml:"conn_lifetime"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Host:         "localhost",
		Port:         5432,
		Database:     "memgate",
		SSLMode:      "disable",
		MaxOpenConns: 25,
		MaxIdleConns: 5,
		ConnLifetime: 5 * time.Minute,
	}
}

// Store implements memory.Store using PostgreSQL.
type Store struct {
	db *sql.DB
}

// New opens a connection pool, verifies connectivity, and ensures the schema.
func New(cfg Config) (*Store, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{db: db}
	if err := s.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	const ddl = `
		CREATE TABLE IF NOT EXISTS conversations (
			conv_key     TEXT PRIMARY KEY,
			messages     JSONB NOT NULL DEFAULT '[]'::jsonb,
			last_touched TIMESTAMPTZ NOT NULL
		)`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func (s *Store) GetOrCreate(ctx context.Context, key string) ([]types.Message, error) {
	const query = `SELECT messages FROM conversations WHERE conv_key = $1`

	var raw []byte
	err := s.db.QueryRowContext(ctx, query, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return []types.Message{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query record: %w", err)
	}

	var messages []types.Message
	if err := json.Unmarshal(raw, &messages); err != nil {
		return nil, fmt.Errorf("decode messages: %w", err)
	}
	if messages == nil {
		messages = []types.Message{}
	}
	return messages, nil
}

func (s *Store) Touch(ctx context.Context, key string, now time.Time) error {
	const query = `
		INSERT INTO conversations (conv_key, last_touched)
		VALUES ($1, $2)
		ON CONFLICT (conv_key) DO UPDATE SET last_touched = EXCLUDED.last_touched`

	if _, err := s.db.ExecContext(ctx, query, key, now); err != nil {
		return fmt.Errorf("touch record: %w", err)
	}
	return nil
}

func (s *Store) Commit(ctx context.Context, key string, history []types.Message, now time.Time) error {
	raw, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("encode messages: %w", err)
	}

	const query = `
		INSERT INTO conversations (conv_key, messages, last_touched)
		VALUES ($1, $2, $3)
		ON CONFLICT (conv_key) DO UPDATE
		SET messages = EXCLUDED.messages, last_touched = EXCLUDED.last_touched`

	if _, err := s.db.ExecContext(ctx, query, key, raw, now); err != nil {
		return fmt.Errorf("commit record: %w", err)
	}
	return nil
}

func (s *Store) ExpireStale(ctx context.Context, now time.Time, ttl time.Duration) (int, error) {
	const query = `DELETE FROM conversations WHERE last_touched < $1`

	res, err := s.db.ExecContext(ctx, query, now.Add(-ttl))
	if err != nil {
		return 0, fmt.Errorf("expire records: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("expired rows affected: %w", err)
	}
	return int(n), nil
}

func (s *Store) Clear(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM conversations WHERE conv_key = $1`, key); err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	return nil
}

func (s *Store) ClearAll(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM conversations`); err != nil {
		return fmt.Errorf("delete records: %w", err)
	}
	return nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM conversations`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}
