// Package backup persists queue state snapshots as named, checksummed
// artifacts. Artifacts are deterministic: encoding the same state twice
// yields byte-identical bytes, so round-trip equality is testable.
//
// Three backends are provided: FileStore for local durability, RedisStore
// for shared storage, and MemoryStore for tests. The Scheduler snapshots a
// live queue on a cron schedule.
package backup

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/genforge-dev/genforge/queue"
)

var (
	// ErrNotFound is returned when a backup handle is unknown.
	ErrNotFound = errors.New("backup not found")

	// ErrCorrupt is returned when an artifact fails checksum, version, or
	// state validation on restore.
	ErrCorrupt = errors.New("backup corrupt")

	// ErrWriteFailed wraps I/O failures while writing an artifact. The
	// source queue state is never mutated by a failed backup.
	ErrWriteFailed = errors.New("backup write failed")

	// ErrStoreClosed is returned when operating on a closed store.
	ErrStoreClosed = errors.New("backup store is closed")
)

// Record describes a stored backup. The handle names the artifact and is
// the key for Restore. Records are write-once.
type Record struct {
	// Handle uniquely names the artifact within its store.
	Handle string `json:"handle"`

	// CreatedAt is when the artifact was written.
	CreatedAt time.Time `json:"created_at"`

	// Version is the artifact format version.
	Version int `json:"version"`

	// Checksum is the hex SHA-256 of the encoded state body.
	Checksum string `json:"checksum"`
}

// Store persists queue state snapshots. Implementations must be safe for
// concurrent use and must never partially overwrite an existing artifact.
type Store interface {
	// Create serializes the state under the given handle. An empty handle
	// gets a generated one. Creating over an existing handle fails:
	// records are write-once.
	Create(ctx context.Context, handle string, st queue.State) (*Record, error)

	// Restore deserializes the artifact named by handle. Restoring the
	// same handle twice yields equal states.
	Restore(ctx context.Context, handle string) (queue.State, error)

	// List returns records for all stored artifacts, newest first.
	List(ctx context.Context) ([]*Record, error)

	// Delete removes an artifact. Deleting an unknown handle is not an error.
	Delete(ctx context.Context, handle string) error

	// Close releases resources held by the store.
	Close() error
}

// safeHandlePattern restricts handles to path-safe characters.
var safeHandlePattern = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)

func validateHandle(handle string) error {
	if handle == "" {
		return errors.New("handle cannot be empty")
	}
	if len(handle) > 256 {
		return errors.New("handle too long (max 256 characters)")
	}
	if !safeHandlePattern.MatchString(handle) {
		return errors.New("handle contains invalid characters: only alphanumeric, dots, hyphens, and underscores allowed")
	}
	return nil
}
