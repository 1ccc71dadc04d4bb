// Package store abstracts the shared state store behind the room
// dispatcher: game and room snapshots, saved decks, and the per-room locks
// that serialize mutation.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a key has no value.
var ErrNotFound = errors.New("store: key not found")

// LockTTL is how long a room lock lives before the store expires it. A
// holder that dies mid-action loses the lock after at most this long.
const LockTTL = 5 * time.Second

// Store is the persistence surface. Implementations must be safe for
// concurrent use.
type Store interface {
	// GetJSON unmarshals the value at key into dest. ErrNotFound when absent.
	GetJSON(ctx context.Context, key string, dest interface{}) error
	// PutJSON marshals v and stores it at key.
	PutJSON(ctx context.Context, key string, v interface{}) error
	// Delete removes a key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
	// ListKeys returns keys matching a glob-style pattern.
	ListKeys(ctx context.Context, pattern string) ([]string, error)

	// AcquireLock attempts to take the named lock for LockTTL. On success
	// it returns an opaque token required to release.
	AcquireLock(ctx context.Context, key string) (token string, ok bool, err error)
	// ReleaseLock releases the lock if token still owns it.
	ReleaseLock(ctx context.Context, key, token string) error

	Close() error
}

// GameKey is the store key for a room's game state.
func GameKey(roomID string) string { return "game:" + roomID }

// RoomKey is the store key for a room snapshot.
func RoomKey(roomID string) string { return "room:" + roomID }

// GameLockKey is the lock guarding a room's game state.
func GameLockKey(roomID string) string { return "lock:game:" + roomID }

// DecksKey is the store key for a user's saved decks.
func DecksKey(userID string) string { return fmt.Sprintf("user:%s:decks", userID) }
