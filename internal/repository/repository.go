package repository

import (
	"context"
	"errors"
	"time"

	"github.com/olivethotokunefor/Mentora/internal/domain"
)

// ErrTokenConsumed is returned by Rotate when the presented token was
// already revoked (or never existed): another rotation won the race, or the
// token is being replayed.
var ErrTokenConsumed = errors.New("refresh token already consumed")

// UserRepository defines the interface for user credential persistence.
type UserRepository interface {
	// Create inserts a new user into the store.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by their unique identifier.
	GetByID(ctx context.Context, id string) (*domain.User, error)

	// GetByEmail retrieves a user by exact email match.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// Delete removes a user from the store by their identifier. Used for
	// compensating rollback when profile creation fails after the user row
	// is written.
	Delete(ctx context.Context, id string) error
}

// ProfileRepository defines the interface for profile persistence.
type ProfileRepository interface {
	// Create inserts a new profile into the store.
	Create(ctx context.Context, profile *domain.Profile) error

	// GetByUserID retrieves the profile belonging to the given user.
	GetByUserID(ctx context.Context, userID string) (*domain.Profile, error)

	// Update modifies an existing profile in the store.
	Update(ctx context.Context, profile *domain.Profile) error
}

// RefreshTokenRepository defines the interface for refresh token
// persistence. Records are never physically deleted; revocation flips
// RevokedAt and rotation additionally inserts a replacement row.
type RefreshTokenRepository interface {
	// Create stores a new refresh token digest.
	Create(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error

	// GetByHash retrieves a refresh token record by its digest.
	GetByHash(ctx context.Context, tokenHash string) (*domain.RefreshToken, error)

	// Rotate atomically revokes the record matching oldHash and inserts a
	// replacement record for the same user. If the old record is already
	// revoked (or missing) the whole operation fails with ErrTokenConsumed
	// and nothing is inserted: of two concurrent rotations of the same
	// token, exactly one succeeds.
	Rotate(ctx context.Context, oldHash, userID, newHash string, expiresAt time.Time) error

	// Revoke marks the record matching tokenHash revoked. Idempotent: a
	// missing or already-revoked record is not an error.
	Revoke(ctx context.Context, tokenHash string) error
}
