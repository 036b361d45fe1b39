// Package memory manages bounded, time-expiring conversation history.
// It is the only mutable state in the turn-handling path.
package memory

import (
	"context"
	"time"

	"github.com/blueberrycongee/memgate/pkg/types"
)

// DefaultKey is the conversation key used when no user identifier is available.
const DefaultKey = "default"

// Key derives the conversation key for a user. All turns from the same user
// share one thread; session identifiers are deliberately not part of the
// derivation so a new session does not interrupt an ongoing conversation.
func Key(userID string) string {
	if userID == "" {
		return DefaultKey
	}
	return userID
}

// Record is a stored conversation thread.
type Record struct {
	Messages    []types.Message `json:"messages"`
	LastTouched time.Time       `json:"last_touched"`
}

// Store defines the interface for conversation history storage.
// Implementations must be safe for concurrent use across distinct keys;
// callers serialize access per key.
type Store interface {
	// GetOrCreate returns the stored history for key, or an empty history
	// if none exists. It does not persist an empty record; a record only
	// appears once a turn is written via Touch or Commit.
	GetOrCreate(ctx context.Context, key string) ([]types.Message, error)

	// Touch stamps the record's last-activity time without changing its
	// messages, creating the record if absent. A touched record's expiry
	// clock is reset even when the turn later fails.
	Touch(ctx context.Context, key string, now time.Time) error

	// Commit stores history as the record for key and stamps its
	// last-activity time.
	Commit(ctx context.Context, key string, history []types.Message, now time.Time) error

	// ExpireStale removes every record whose last-activity age exceeds ttl,
	// returning the number of records removed.
	ExpireStale(ctx context.Context, now time.Time, ttl time.Duration) (int, error)

	// Clear removes the record for key. Clearing an absent key is not an error.
	Clear(ctx context.Context, key string) error

	// ClearAll empties the entire store.
	ClearAll(ctx context.Context) error

	// Count returns the number of live records.
	Count(ctx context.Context) (int, error)

	// Close releases any resources held by the store.
	Close() error
}
