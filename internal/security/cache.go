package security

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

// CacheEntry represents a cached validation result
type CacheEntry struct {
	Result  error
	Expires time.Time
}

// PathValidatorCache caches validation results keyed by a hash of the cleaned path
type PathValidatorCache struct {
	mu      sync.RWMutex
	cache   map[uint64]*CacheEntry
	maxSize int
	ttl     time.Duration
	now     func() time.Time
}

// NewPathValidatorCache creates a new path validation cache
func NewPathValidatorCache(maxSize int, ttl time.Duration) *PathValidatorCache {
	return &PathValidatorCache{
		cache:   make(map[uint64]*CacheEntry, maxSize),
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
	}
}

func hashPath(path string) uint64 {
	return xxhash.Sum64String(filepath.Clean(path))
}

// Get retrieves a cached validation result
func (pvc *PathValidatorCache) Get(path string) (error, bool) {
	hash := hashPath(path)

	pvc.mu.RLock()
	defer pvc.mu.RUnlock()

	entry, exists := pvc.cache[hash]
	if !exists {
		return nil, false
	}

	if pvc.now().After(entry.Expires) {
		return nil, false
	}

	return entry.Result, true
}

// Set stores a validation result in the cache
func (pvc *PathValidatorCache) Set(path string, result error) {
	hash := hashPath(path)

	pvc.mu.Lock()
	defer pvc.mu.Unlock()

	if _, exists := pvc.cache[hash]; !exists && len(pvc.cache) >= pvc.maxSize {
		pvc.evictLocked()
	}

	pvc.cache[hash] = &CacheEntry{
		Result:  result,
		Expires: pvc.now().Add(pvc.ttl),
	}
}

// Len returns the number of cached entries
func (pvc *PathValidatorCache) Len() int {
	pvc.mu.RLock()
	defer pvc.mu.RUnlock()
	return len(pvc.cache)
}

// Purge drops every cached entry
func (pvc *PathValidatorCache) Purge() {
	pvc.mu.Lock()
	defer pvc.mu.Unlock()
	pvc.cache = make(map[uint64]*CacheEntry, pvc.maxSize)
}

// evictLocked drops expired entries, or one arbitrary entry if none expired
func (pvc *PathValidatorCache) evictLocked() {
	now := pvc.now()
	evicted := false
	for hash, entry := range pvc.cache {
		if now.After(entry.Expires) {
			delete(pvc.cache, hash)
			evicted = true
		}
	}
	if evicted {
		return
	}
	for hash := range pvc.cache {
		delete(pvc.cache, hash)
		break
	}
}

// ValidateCached wraps ValidatePathForDeletion with caching
func (pv *PathValidator) ValidateCached(path string) error {
	if result, found := pv.cache.Get(path); found {
		return result
	}

	err := pv.ValidatePathForDeletion(path)
	pv.cache.Set(path, err)

	return err
}
