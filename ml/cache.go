package ml

import (
	"errors"
	"fmt"
	"os"
	"sync/atomic"
)

// CacheState is the lifecycle state of a ModelCache.
type CacheState int

const (
	CacheEmpty CacheState = iota
	CacheReady
	CacheNotReady
)

func (s CacheState) String() string {
	switch s {
	case CacheReady:
		return "ready"
	case CacheNotReady:
		return "not_ready"
	default:
		return "empty"
	}
}

type cacheEntry struct {
	model Regressor
	path  string
}

// ModelCache holds at most one loaded model. Init and Close are called by
// the owning process around request handling; Get is lock free.
type ModelCache struct {
	slot atomic.Pointer[cacheEntry]
}

// NewModelCache returns an empty cache.
func NewModelCache() *ModelCache {
	return &ModelCache{}
}

// Init loads the artifact at path. A missing artifact leaves the cache
// NOT_READY and is not an error. A second Init without Close fails.
func (c *ModelCache) Init(path string) error {
	if c.slot.Load() != nil {
		return ErrCacheInitialized
	}

	entry := &cacheEntry{path: path}
	if _, err := os.Stat(path); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("stat artifact %s: %w", path, err)
		}
	} else {
		model, err := LoadModel(path)
		if err != nil {
			return fmt.Errorf("load artifact %s: %w", path, err)
		}
		entry.model = model
	}

	if !c.slot.CompareAndSwap(nil, entry) {
		return ErrCacheInitialized
	}
	return nil
}

// Get returns the cached model, or ErrModelNotReady.
func (c *ModelCache) Get() (Regressor, error) {
	entry := c.slot.Load()
	if entry == nil || entry.model == nil {
		return nil, ErrModelNotReady
	}
	return entry.model, nil
}

// State reports EMPTY before Init and after Close, otherwise READY or NOT_READY.
func (c *ModelCache) State() CacheState {
	entry := c.slot.Load()
	switch {
	case entry == nil:
		return CacheEmpty
	case entry.model == nil:
		return CacheNotReady
	default:
		return CacheReady
	}
}

// Ready reports whether a model is loaded.
func (c *ModelCache) Ready() bool {
	return c.State() == CacheReady
}

// Path returns the artifact path Init was called with.
func (c *ModelCache) Path() string {
	if entry := c.slot.Load(); entry != nil {
		return entry.path
	}
	return ""
}

// Close clears the slot. It is safe to call more than once.
func (c *ModelCache) Close() {
	c.slot.Store(nil)
}
