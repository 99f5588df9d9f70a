package calllog

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo is an in-memory history store for tests and early development.
type MemoryRepo struct {
	mu      sync.RWMutex
	entries []Entry
}

func (r *MemoryRepo) Insert(ctx context.Context, e Entry) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
	return nil
}

func (r *MemoryRepo) Get(ctx context.Context, workspaceID, id string) (Entry, bool, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.entries {
		if e.WorkspaceID == workspaceID && e.ID == id {
			return e, true, nil
		}
	}
	return Entry{}, false, nil
}

func (r *MemoryRepo) List(ctx context.Context, workspaceID string, limit, offset int) ([]Entry, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Entry
	for _, e := range r.entries {
		if e.WorkspaceID == workspaceID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EndedAt.After(out[j].EndedAt) })

	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepo) SetRecordingURL(ctx context.Context, workspaceID, id, url string) (bool, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.entries {
		if r.entries[i].WorkspaceID == workspaceID && r.entries[i].ID == id {
			r.entries[i].RecordingURL = url
			return true, nil
		}
	}
	return false, nil
}

func (r *MemoryRepo) SetSummary(ctx context.Context, workspaceID, id, summary string) (bool, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.entries {
		if r.entries[i].WorkspaceID == workspaceID && r.entries[i].ID == id {
			r.entries[i].Summary = summary
			return true, nil
		}
	}
	return false, nil
}
