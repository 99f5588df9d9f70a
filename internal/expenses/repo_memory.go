package expenses

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo is an in-memory expense store for tests and early development.
type MemoryRepo struct {
	mu       sync.RWMutex
	expenses map[string]Expense
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{expenses: make(map[string]Expense)}
}

func (r *MemoryRepo) Insert(ctx context.Context, e Expense) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	r.expenses[e.ID] = e
	return nil
}

func (r *MemoryRepo) Get(ctx context.Context, workspaceID, id string) (Expense, bool, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.expenses[id]
	if !ok || e.WorkspaceID != workspaceID {
		return Expense{}, false, nil
	}
	return e, true, nil
}

func (r *MemoryRepo) List(ctx context.Context, workspaceID string, status Status, vendorID string, limit, offset int) ([]Expense, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Expense
	for _, e := range r.expenses {
		if e.WorkspaceID != workspaceID {
			continue
		}
		if status != "" && e.Status != status {
			continue
		}
		if vendorID != "" && e.VendorID != vendorID {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IncurredAt.After(out[j].IncurredAt) })

	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepo) Update(ctx context.Context, e Expense) (bool, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.expenses[e.ID]
	if !ok || cur.WorkspaceID != e.WorkspaceID {
		return false, nil
	}
	r.expenses[e.ID] = e
	return true, nil
}
