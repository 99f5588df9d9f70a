package contacts

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryRepo is an in-memory directory for tests and early development.
type MemoryRepo struct {
	mu       sync.RWMutex
	Contacts []Contact
}

func (r *MemoryRepo) GetByID(ctx context.Context, workspaceID, id string) (Contact, bool, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.Contacts {
		if c.WorkspaceID == workspaceID && c.ID == id {
			return c, true, nil
		}
	}
	return Contact{}, false, nil
}

func (r *MemoryRepo) FindByPhone(ctx context.Context, workspaceID, phone string) (Contact, bool, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.Contacts {
		if c.WorkspaceID == workspaceID && c.Phone == phone {
			return c, true, nil
		}
	}
	return Contact{}, false, nil
}

func (r *MemoryRepo) SearchByName(ctx context.Context, workspaceID, fragment string, limit int) ([]Contact, error) {
	_ = ctx
	frag := strings.ToLower(fragment)
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Contact
	for _, c := range r.Contacts {
		if c.WorkspaceID != workspaceID {
			continue
		}
		if strings.Contains(strings.ToLower(c.Name), frag) {
			out = append(out, c)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (r *MemoryRepo) List(ctx context.Context, workspaceID string, t ContactType, limit, offset int) ([]Contact, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	var all []Contact
	for _, c := range r.Contacts {
		if c.WorkspaceID != workspaceID {
			continue
		}
		if t != "" && c.Type != t {
			continue
		}
		all = append(all, c)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })

	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}
