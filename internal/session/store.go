package session

import (
	"context"
	"errors"
	"time"
)

// Store is the keyed ephemeral session state contract.
//
// Keys are subscriber phone numbers. Implementations must be safe for
// concurrent use; serialization of same-key request processing is the
// Locker's job, not the Store's.
type Store interface {
	// Get returns the stored session or ErrNotFound.
	Get(ctx context.Context, phoneNumber string) (Session, error)

	// Put creates or replaces the session.
	Put(ctx context.Context, s Session) error

	// Delete evicts the session. Deleting a missing session is not an
	// error.
	Delete(ctx context.Context, phoneNumber string) error

	// List returns all stored sessions, for the expiry sweep and the
	// ops inspection endpoints.
	List(ctx context.Context) ([]Session, error)
}

var ErrNotFound = errors.New("session: not found")

// UnlockFunc releases a held per-session lock.
type UnlockFunc func(ctx context.Context) error

// Locker serializes request processing per session key. Lock blocks
// until the lock is acquired or ctx is done. The ttl bounds how long a
// crashed holder can wedge the key.
type Locker interface {
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
