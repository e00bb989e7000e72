package db

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jonathan/resume-enhancer/internal/types"
)

// MemoryStore is an in-process Store used when no database is configured.
// Records are deep-copied on the way in and out.
type MemoryStore struct {
	mu         sync.RWMutex
	resumes    map[string]*ResumeRecord
	activities map[string][]types.AgentActivity
	now        func() time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		resumes:    make(map[string]*ResumeRecord),
		activities: make(map[string][]types.AgentActivity),
		now:        time.Now,
	}
}

// SaveResume implements Store
func (m *MemoryStore) SaveResume(_ context.Context, rec *ResumeRecord) error {
	if rec.ID == "" {
		rec.ID = rec.Resume.ID
	}
	if rec.ID == "" {
		return fmt.Errorf("failed to save resume: missing id")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now().UTC()
	rec.UpdatedAt = now
	if existing, ok := m.resumes[rec.ID]; ok {
		rec.CreatedAt = existing.CreatedAt
	} else {
		rec.CreatedAt = now
	}

	stored, err := cloneRecord(rec)
	if err != nil {
		return err
	}
	m.resumes[rec.ID] = stored
	return nil
}

// GetResume implements Store
func (m *MemoryStore) GetResume(_ context.Context, id string) (*ResumeRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.resumes[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneRecord(rec)
}

// ListResumes implements Store
func (m *MemoryStore) ListResumes(_ context.Context, limit, offset int) ([]ResumeSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := make([]ResumeSummary, 0, len(m.resumes))
	for _, rec := range m.resumes {
		all = append(all, rec.Summary())
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID < all[j].ID
	})

	if offset < 0 {
		offset = 0
	}
	if offset >= len(all) {
		return []ResumeSummary{}, nil
	}
	end := offset + ClampLimit(limit)
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

// UpdateResume implements Store
func (m *MemoryStore) UpdateResume(_ context.Context, id string, resume types.ParsedResume) (*ResumeRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.resumes[id]
	if !ok {
		return nil, ErrNotFound
	}

	resume.ID = id
	updated := *rec
	updated.Resume = resume
	updated.UpdatedAt = m.now().UTC()

	stored, err := cloneRecord(&updated)
	if err != nil {
		return nil, err
	}
	m.resumes[id] = stored
	return cloneRecord(stored)
}

// DeleteResume implements Store
func (m *MemoryStore) DeleteResume(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.resumes[id]; !ok {
		return ErrNotFound
	}
	delete(m.resumes, id)
	delete(m.activities, id)
	return nil
}

// SaveActivities implements Store
func (m *MemoryStore) SaveActivities(_ context.Context, resumeID string, activities []types.AgentActivity) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.resumes[resumeID]; !ok {
		return ErrNotFound
	}
	m.activities[resumeID] = append(m.activities[resumeID], activities...)
	return nil
}

// ListActivities implements Store
func (m *MemoryStore) ListActivities(_ context.Context, resumeID string) ([]types.AgentActivity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]types.AgentActivity, len(m.activities[resumeID]))
	copy(out, m.activities[resumeID])
	return out, nil
}

// Close implements Store
func (m *MemoryStore) Close() {}

func cloneRecord(rec *ResumeRecord) (*ResumeRecord, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to copy resume record: %w", err)
	}
	var out ResumeRecord
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to copy resume record: %w", err)
	}
	return &out, nil
}
