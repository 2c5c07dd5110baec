// Package storage defines the persistence interfaces for session snapshots.
//
// The snapshot store is a pure cache: the orchestrator must cold-start
// correctly against an empty store, and save failures are never fatal.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound indicates a requested record is missing or expired.
var ErrNotFound = errors.New("record not found")

// SnapshotStore persists opaque session snapshots with a best-effort TTL.
type SnapshotStore interface {
	Save(ctx context.Context, sessionID string, payload []byte, ttl time.Duration) error
	Load(ctx context.Context, sessionID string) ([]byte, error)
}
