// Package cache stores parse results keyed by the SHA-256 of the uploaded bytes,
// so re-uploading an identical document skips extraction and the model call.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/jonathan/resume-enhancer/internal/types"
)

// Entry is a cached parse result
type Entry struct {
	Resume   *types.ParsedResume `json:"resume"`
	Source   types.ResultSource  `json:"source"`
	CachedAt time.Time           `json:"cachedAt"`
}

// Cache looks up and stores parse results by content hash.
// Get reports found=false with a nil error on a miss.
type Cache interface {
	Get(ctx context.Context, contentHash string) (entry *Entry, found bool, err error)
	Set(ctx context.Context, contentHash string, entry Entry) error
}

// MemoryCache is an in-process Cache. Entries never expire, so it suits
// bounded runs such as a CLI batch. Resumes are copied on the way in and out.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewMemoryCache creates an empty MemoryCache
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]Entry)}
}

// Get implements Cache
func (m *MemoryCache) Get(_ context.Context, contentHash string) (*Entry, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.entries[contentHash]
	if !ok {
		return nil, false, nil
	}
	entry.Resume = entry.Resume.Clone()
	return &entry, true, nil
}

// Set implements Cache
func (m *MemoryCache) Set(_ context.Context, contentHash string, entry Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry.Resume = entry.Resume.Clone()
	m.entries[contentHash] = entry
	return nil
}

// Len returns the number of cached entries
func (m *MemoryCache) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
