package core

import (
	"context"
	"time"
)

// Ports define interfaces for external dependencies

// ============================================
// STORAGE PORTS (Database operations)
// ============================================

// UserStorage defines user-related database operations.
// Every mutation is a single-row update keyed by user id.
type UserStorage interface {
	CreateUser(ctx context.Context, u *User) error
	GetUserByID(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	ListUsers(ctx context.Context) ([]*User, error)

	// UpdateProfile sets the non-nil fields only.
	UpdateProfile(ctx context.Context, id string, name, avatar *string) (*User, error)
	UpdateRole(ctx context.Context, id string, role Role) (*User, error)

	// SetResetToken writes token hash and expiry together.
	SetResetToken(ctx context.Context, id, tokenHash string, expires time.Time) error

	// RedeemResetToken atomically checks that tokenHash matches a pending
	// reset with expiry after now, stores passwordHash and clears both reset
	// fields. It returns ErrInvalidResetToken when nothing matched.
	RedeemResetToken(ctx context.Context, tokenHash, passwordHash string, now time.Time) (string, error)
}

// ResourceStorage is the slice of conversation/message storage the
// authorization gate needs.
type ResourceStorage interface {
	GetResource(ctx context.Context, kind ResourceKind, id string) (*Resource, error)
	UpdateResource(ctx context.Context, kind ResourceKind, id string, update ResourceUpdate) (*Resource, error)
	DeleteResource(ctx context.Context, kind ResourceKind, id string) error
}

type StorageAdapter interface {
	UserStorage
	ResourceStorage
}

// ============================================
// MAIL PORT
// ============================================

// Mailer delivers password reset links.
type Mailer interface {
	SendPasswordReset(ctx context.Context, to, resetURL string) error
}

// ============================================
// CACHE PORT
// ============================================

// RevocationCache remembers, per user, the instant before which sessions
// should no longer be honoured.
type RevocationCache interface {
	Get(userID string) (time.Time, error)
	Set(userID string, cutoff time.Time) error
	Delete(userID string) error
	Clear() error
}

// CacheWithStats extends RevocationCache with statistics tracking
type CacheWithStats interface {
	RevocationCache
	Stats() CacheStats
}

// CacheConfig configures cache behavior
type CacheConfig struct {
	TTL     time.Duration
	MaxSize int
}

// CacheStats tracks cache performance metrics
type CacheStats struct {
	Hits      int64         `json:"hits"`
	Misses    int64         `json:"misses"`
	Sets      int64         `json:"sets"`
	Deletes   int64         `json:"deletes"`
	Evictions int64         `json:"evictions"`
	Size      int           `json:"size"`
	TTL       time.Duration `json:"ttl"`
}
