package checkpoint

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/SteelMorgan/sqldump-importer/internal/domain"
	"github.com/rs/zerolog/log"
	"go.etcd.io/bbolt"
)

const (
	bucketName = "checkpoints"
)

// BoltDBStore implements Store using BoltDB
type BoltDBStore struct {
	db *bbolt.DB
}

// NewBoltDBStore opens (or creates) a BoltDB checkpoint store
func NewBoltDBStore(dbPath string) (*BoltDBStore, error) {
	db, err := bbolt.Open(dbPath, 0600, &bbolt.Options{
		Timeout: 1 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open boltdb (file may be locked by another process): %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}

	log.Debug().
		Str("db_path", dbPath).
		Msg("BoltDB checkpoint store initialized")

	return &BoltDBStore{db: db}, nil
}

// Get retrieves the checkpoint of a session
func (s *BoltDBStore) Get(ctx context.Context, sessionID string) (*domain.ImportCheckpoint, error) {
	var cp domain.ImportCheckpoint
	found := false

	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return fmt.Errorf("bucket not found")
		}

		val := b.Get([]byte(sessionID))
		if val == nil {
			return nil
		}
		found = true
		return json.Unmarshal(val, &cp)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get checkpoint: %w", err)
	}
	if !found {
		return nil, fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
	}

	return &cp, nil
}

// Save stores the checkpoint under its SessionID
func (s *BoltDBStore) Save(ctx context.Context, cp *domain.ImportCheckpoint) error {
	if cp == nil || cp.SessionID == "" {
		return fmt.Errorf("checkpoint without session id")
	}

	val, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return fmt.Errorf("bucket not found")
		}
		return b.Put([]byte(cp.SessionID), val)
	})
	if err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}

	log.Debug().
		Str("session_id", cp.SessionID).
		Int64("offset", cp.ByteOffset).
		Int64("line", cp.LineNumber).
		Str("status", cp.Status.String()).
		Msg("Checkpoint saved")

	return nil
}

// Delete removes the checkpoint of a session
func (s *BoltDBStore) Delete(ctx context.Context, sessionID string) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return fmt.Errorf("bucket not found")
		}
		return b.Delete([]byte(sessionID))
	})
	if err != nil {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	return nil
}

// List returns all stored checkpoints, oldest first
func (s *BoltDBStore) List(ctx context.Context) ([]domain.ImportCheckpoint, error) {
	var result []domain.ImportCheckpoint

	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return fmt.Errorf("bucket not found")
		}

		return b.ForEach(func(k, v []byte) error {
			var cp domain.ImportCheckpoint
			if err := json.Unmarshal(v, &cp); err != nil {
				log.Warn().Err(err).Str("session_id", string(k)).Msg("Skipping undecodable checkpoint")
				return nil
			}
			result = append(result, cp)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list checkpoints: %w", err)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	return result, nil
}

// Close closes the BoltDB database
func (s *BoltDBStore) Close() error {
	return s.db.Close()
}
