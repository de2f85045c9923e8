package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/voxgate/internal/voxgate/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
	// ErrUnavailable wraps I/O failures talking to the backing store.
	ErrUnavailable = errors.New("store: unavailable")
	// ErrCorrupt wraps persisted rows that cannot be decoded.
	ErrCorrupt = errors.New("store: corrupt record")
)

// Store is the root data access interface. Concrete drivers (sqlite, badger)
// implement this.
type Store interface {
	Credentials() Credentials

	// ApplyMigrations brings the schema up to date. Drivers without a
	// schema treat it as a no-op.
	ApplyMigrations() error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the backing store is reachable.
	Ping(ctx context.Context) error
}

// Credentials persists enrollment records keyed by exact (case-sensitive)
// username. Records are immutable; there is no update.
type Credentials interface {
	Exists(ctx context.Context, username string) (bool, error)

	// Create inserts rec atomically. When two callers race on the same
	// username exactly one succeeds and the other gets ErrAlreadyExists.
	Create(ctx context.Context, rec domain.EnrollmentRecord) error

	// Get returns ErrNotFound when no live record exists.
	Get(ctx context.Context, username string) (domain.EnrollmentRecord, error)

	// Delete returns ErrNotFound when no live record exists.
	Delete(ctx context.Context, username string) error

	// PurgeExpired reclaims records whose expiry has passed and reports how
	// many were removed. Expired records are already invisible to Get.
	PurgeExpired(ctx context.Context) (int, error)
}

// Expired reports whether rec has an expiry at or before now.
func Expired(rec domain.EnrollmentRecord, now time.Time) bool {
	return rec.ExpiresAt != nil && !rec.ExpiresAt.After(now)
}
