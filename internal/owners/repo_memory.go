package owners

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo is an in-memory store for tests and early development.
type MemoryRepo struct {
	mu     sync.RWMutex
	owners map[string]Owner
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{owners: make(map[string]Owner)}
}

func (r *MemoryRepo) Insert(ctx context.Context, o Owner) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	r.owners[o.ID] = o
	return nil
}

func (r *MemoryRepo) Get(ctx context.Context, workspaceID, id string) (Owner, bool, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.owners[id]
	if !ok || o.WorkspaceID != workspaceID {
		return Owner{}, false, nil
	}
	return o, true, nil
}

func (r *MemoryRepo) List(ctx context.Context, workspaceID string, limit, offset int) ([]Owner, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Owner
	for _, o := range r.owners {
		if o.WorkspaceID == workspaceID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepo) Update(ctx context.Context, o Owner) (bool, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.owners[o.ID]
	if !ok || cur.WorkspaceID != o.WorkspaceID {
		return false, nil
	}
	r.owners[o.ID] = o
	return true, nil
}

func (r *MemoryRepo) Delete(ctx context.Context, workspaceID, id string) (bool, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.owners[id]
	if !ok || o.WorkspaceID != workspaceID {
		return false, nil
	}
	delete(r.owners, id)
	return true, nil
}
