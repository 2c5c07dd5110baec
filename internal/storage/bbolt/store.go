// Package bbolt provides a BoltDB-backed snapshot store.
package bbolt

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/emberfall-games/emberfall/internal/storage"
	"go.etcd.io/bbolt"
)

const snapshotBucket = "snapshot"

// envelope wraps a snapshot payload with its expiry.
type envelope struct {
	Payload   []byte    `json:"payload"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// Store provides a BoltDB-backed snapshot store.
type Store struct {
	db    *bbolt.DB
	clock func() time.Time
}

// Open opens a BoltDB-backed store at the provided path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	db, err := bbolt.Open(cleanPath, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open storage db: %w", err)
	}

	store := &Store{db: db, clock: time.Now}
	if err := store.ensureBuckets(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying BoltDB database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Save persists a snapshot payload. A non-positive ttl stores the payload
// without an expiry.
func (s *Store) Save(ctx context.Context, sessionID string, payload []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.db == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(sessionID) == "" {
		return fmt.Errorf("session id is required")
	}

	record := envelope{Payload: payload}
	if ttl > 0 {
		record.ExpiresAt = s.clock().UTC().Add(ttl)
	}
	encoded, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(snapshotBucket))
		if bucket == nil {
			return fmt.Errorf("snapshot bucket is missing")
		}
		return bucket.Put(snapshotKey(sessionID), encoded)
	})
}

// Load fetches a snapshot payload by session ID. Expired records are deleted
// lazily and reported as storage.ErrNotFound.
func (s *Store) Load(ctx context.Context, sessionID string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(sessionID) == "" {
		return nil, fmt.Errorf("session id is required")
	}

	var record envelope
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(snapshotBucket))
		if bucket == nil {
			return fmt.Errorf("snapshot bucket is missing")
		}
		encoded := bucket.Get(snapshotKey(sessionID))
		if encoded == nil {
			return storage.ErrNotFound
		}
		if err := json.Unmarshal(encoded, &record); err != nil {
			return fmt.Errorf("unmarshal snapshot: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !record.ExpiresAt.IsZero() && !s.clock().UTC().Before(record.ExpiresAt) {
		_ = s.db.Update(func(tx *bbolt.Tx) error {
			bucket := tx.Bucket([]byte(snapshotBucket))
			if bucket == nil {
				return nil
			}
			return bucket.Delete(snapshotKey(sessionID))
		})
		return nil, storage.ErrNotFound
	}

	return record.Payload, nil
}

func (s *Store) ensureBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(snapshotBucket))
		if err != nil {
			return fmt.Errorf("create snapshot bucket: %w", err)
		}
		return nil
	})
}

func snapshotKey(sessionID string) []byte {
	return []byte(sessionID)
}
