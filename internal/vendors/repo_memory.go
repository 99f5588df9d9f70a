package vendors

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo is an in-memory roster for tests and early development.
type MemoryRepo struct {
	mu      sync.RWMutex
	vendors map[string]Vendor
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{vendors: make(map[string]Vendor)}
}

func (r *MemoryRepo) Insert(ctx context.Context, v Vendor) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	r.vendors[v.ID] = v
	return nil
}

func (r *MemoryRepo) Get(ctx context.Context, workspaceID, id string) (Vendor, bool, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.vendors[id]
	if !ok || v.WorkspaceID != workspaceID {
		return Vendor{}, false, nil
	}
	return v, true, nil
}

func (r *MemoryRepo) List(ctx context.Context, workspaceID string, trade Trade, activeOnly bool, limit, offset int) ([]Vendor, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Vendor
	for _, v := range r.vendors {
		if v.WorkspaceID != workspaceID {
			continue
		}
		if trade != "" && v.Trade != trade {
			continue
		}
		if activeOnly && !v.Active {
			continue
		}
		out = append(out, v)
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

func (r *MemoryRepo) Update(ctx context.Context, v Vendor) (bool, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.vendors[v.ID]
	if !ok || cur.WorkspaceID != v.WorkspaceID {
		return false, nil
	}
	r.vendors[v.ID] = v
	return true, nil
}

func (r *MemoryRepo) Delete(ctx context.Context, workspaceID, id string) (bool, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.vendors[id]
	if !ok || v.WorkspaceID != workspaceID {
		return false, nil
	}
	delete(r.vendors, id)
	return true, nil
}
