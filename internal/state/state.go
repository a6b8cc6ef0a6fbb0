// Package state persists small explorer preferences in a bbolt database.
package state

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
	"go.uber.org/zap"

	"github.com/fenilsonani/folder-cleaner/internal/sorting"
)

var (
	prefsBucket    = []byte("prefs")
	sortingTypeKey = []byte("sorting_type")
)

// Store holds explorer preferences across runs
type Store struct {
	db     *bolt.DB
	logger *zap.Logger
}

// Open opens or creates the preferences database at path
func Open(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open state db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(prefsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create prefs bucket: %w", err)
	}

	return &Store{db: db, logger: logger.Named("state")}, nil
}

// SortMode returns the persisted sort mode. A missing or unreadable value
// yields ByName.
func (s *Store) SortMode() sorting.Mode {
	mode := sorting.ByName

	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(prefsBucket)
		if bucket == nil {
			return nil
		}
		raw := bucket.Get(sortingTypeKey)
		if raw == nil {
			return nil
		}
		n, err := strconv.Atoi(string(raw))
		if err != nil {
			return fmt.Errorf("corrupt sorting_type %q: %w", raw, err)
		}
		if m := sorting.Mode(n); m.Valid() {
			mode = m
		}
		return nil
	})
	if err != nil {
		s.logger.Warn("failed to read sort mode, using default", zap.Error(err))
		return sorting.ByName
	}

	return mode
}

// SetSortMode persists the sort mode
func (s *Store) SetSortMode(mode sorting.Mode) error {
	if !mode.Valid() {
		return fmt.Errorf("invalid sort mode %d", int(mode))
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists(prefsBucket)
		if err != nil {
			return err
		}
		return bucket.Put(sortingTypeKey, []byte(strconv.Itoa(int(mode))))
	})
}

// Close releases the database file lock
func (s *Store) Close() error {
	return s.db.Close()
}

// Memory is a non-persistent preference store, used when the database
// cannot be opened.
type Memory struct {
	mu   sync.Mutex
	mode sorting.Mode
}

// NewMemory creates an in-memory store defaulting to ByName
func NewMemory() *Memory {
	return &Memory{mode: sorting.ByName}
}

// SortMode returns the current mode
func (m *Memory) SortMode() sorting.Mode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mode
}

// SetSortMode records the mode for this process only
func (m *Memory) SetSortMode(mode sorting.Mode) error {
	if !mode.Valid() {
		return fmt.Errorf("invalid sort mode %d", int(mode))
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mode = mode
	return nil
}

// Close is a no-op
func (m *Memory) Close() error {
	return nil
}
