package store

import (
	"context"
	"errors"

	"github.com/aussiebroadwan/agentauth/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface for durable state (users and
// session records). Concrete drivers (sqlite) implement this. Ephemeral
// one-time tokens live behind TokenStore instead.
type Store interface {
	Users() Users
	Sessions() Sessions

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// GetUserByID returns a user by id.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail is used by every login path to find the account.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// CreateUser inserts a new user (id is provided by app via ULID).
	// Returns ErrAlreadyExists when the email is taken.
	CreateUser(ctx context.Context, u domain.User) error

	// UpdateProfile refreshes name and picture and bumps updated_at.
	UpdateProfile(ctx context.Context, userID, name, picture string) error

	// DeleteUser cascades to sessions (per schema).
	DeleteUser(ctx context.Context, userID string) error
}

type Sessions interface {
	// CreateSession records an issued session token by fingerprint.
	CreateSession(ctx context.Context, s domain.SessionRecord) error

	// GetSessionByHash returns a live session record.
	GetSessionByHash(ctx context.Context, hash string) (domain.SessionRecord, error)

	// DeleteSessionByHash removes the record on sign-out. Deleting a missing
	// record is not an error.
	DeleteSessionByHash(ctx context.Context, hash string) error

	// DeleteExpiredSessions is housekeeping; returns the number removed.
	DeleteExpiredSessions(ctx context.Context) (int64, error)
}
