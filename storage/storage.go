// Package storage persists child profiles, whitelist entries and watch
// history, and publishes live change streams for the reactive consumers.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"kidtube/youtube"
)

// Sentinel errors for common storage conditions.
var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("storage: not found")
	// ErrAlreadyExists indicates the entity already exists in storage.
	ErrAlreadyExists = errors.New("storage: already exists")
	// ErrInvalidInput indicates invalid or malformed input was provided.
	ErrInvalidInput = errors.New("storage: invalid input")
)

// StorageError wraps storage errors with operation and entity context.
// Use errors.As() to extract this error type and get operation details:
//
//	var storErr *storage.StorageError
//	if errors.As(err, &storErr) {
//		fmt.Printf("Failed to %s %s %s: %v\n", storErr.Op, storErr.Entity, storErr.ID, storErr.Err)
//	}
type StorageError struct {
	// Op is the operation that failed ("create", "read", "update", "delete").
	Op string
	// Entity is the entity type ("profile", "item", "watch").
	Entity string
	// ID is the entity ID if applicable.
	ID string
	// Err is the underlying error that occurred.
	Err error
}

// Error returns a string representation of the storage error.
func (e *StorageError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("storage: %s %s %s: %v", e.Op, e.Entity, e.ID, e.Err)
	}
	return fmt.Sprintf("storage: %s %s: %v", e.Op, e.Entity, e.Err)
}

// Unwrap returns the underlying error for use with errors.Is() and errors.As().
func (e *StorageError) Unwrap() error { return e.Err }

// Store is the main storage interface.
// Implementations must be safe for concurrent use.
type Store interface {
	ProfileStore
	WhitelistStore
	WatchHistoryStore

	// Close releases any resources held by the store.
	Close() error
}

// ProfileStore handles child profiles.
type ProfileStore interface {
	// CreateProfile saves a new profile and assigns its ID.
	CreateProfile(ctx context.Context, profile *Profile) error
	// GetProfile retrieves a profile by ID.
	GetProfile(ctx context.Context, id string) (*Profile, error)
	// UpdateProfile replaces the name and daily limit of an existing profile.
	UpdateProfile(ctx context.Context, profile *Profile) error
	// ListProfiles retrieves all profiles ordered by creation time.
	ListProfiles(ctx context.Context) ([]*Profile, error)
	// StreamProfile emits the current profile, then again after every
	// change to it. A missing profile is emitted as nil. The channel is
	// closed when ctx is done.
	StreamProfile(ctx context.Context, id string) <-chan *Profile
}

// WhitelistStore handles approved content entries.
type WhitelistStore interface {
	// CreateItem persists resolved metadata as a whitelist entry for a
	// profile. A second entry with the same YouTube ID fails with
	// ErrAlreadyExists.
	CreateItem(ctx context.Context, profileID string, m youtube.Metadata) (*WhitelistItem, error)
	// ListItems retrieves the entries of a profile in insertion order.
	ListItems(ctx context.Context, profileID string) ([]*WhitelistItem, error)
	// DeleteItem removes an entry by its internal ID.
	DeleteItem(ctx context.Context, id string) error
}

// WatchHistoryStore records and aggregates viewing time.
type WatchHistoryStore interface {
	// RecordWatch appends seconds watched of a video.
	RecordWatch(ctx context.Context, profileID, videoID, title string, seconds int) error
	// WatchedSecondsOn sums the seconds recorded on the local calendar day of day.
	WatchedSecondsOn(ctx context.Context, profileID string, day time.Time) (int, error)
	// StreamWatchedSecondsToday emits today's total, then again after every
	// recorded watch and at midnight. The channel is closed when ctx is done.
	StreamWatchedSecondsToday(ctx context.Context, profileID string) <-chan int
}
