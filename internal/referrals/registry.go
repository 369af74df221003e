package referrals

import (
	"fmt"
	"sync"
)

// Registry keeps referrals in memory in intake order.
type Registry struct {
	mu        sync.RWMutex
	referrals map[string]*Referral
	order     []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{referrals: make(map[string]*Referral)}
}

// Add stores a referral. IDs must be unique.
func (r *Registry) Add(ref *Referral) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.referrals[ref.ID]; exists {
		return fmt.Errorf("referrals: add: duplicate id %s", ref.ID)
	}
	r.referrals[ref.ID] = ref
	r.order = append(r.order, ref.ID)
	return nil
}

// Get returns the live record for id.
func (r *Registry) Get(id string) (*Referral, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ref, ok := r.referrals[id]
	if !ok {
		return nil, ErrNotFound
	}
	return ref, nil
}

// List returns referrals in intake order, optionally only those in status.
// An empty status matches everything.
func (r *Registry) List(status Status) []*Referral {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Referral, 0, len(r.order))
	for _, id := range r.order {
		ref := r.referrals[id]
		if status == "" || ref.Status == status {
			out = append(out, ref)
		}
	}
	return out
}

// FindActive returns an active referral for the same client, if any.
func (r *Registry) FindActive(info ClientInfo) (*Referral, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, id := range r.order {
		ref := r.referrals[id]
		if ref.Active() && ref.sameClient(info) {
			return ref, true
		}
	}
	return nil, false
}

// Snapshot copies every record for persistence.
func (r *Registry) Snapshot() []Referral {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Referral, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.referrals[id])
	}
	return out
}

// Restore replaces the registry contents.
func (r *Registry) Restore(records []Referral) error {
	refs := make(map[string]*Referral, len(records))
	order := make([]string, 0, len(records))
	for i := range records {
		ref := records[i]
		if ref.SessionsUsed < 0 || ref.SessionsUsed > ref.SessionsReserved {
			return fmt.Errorf("referrals: restore %s: sessions used %d out of range", ref.ID, ref.SessionsUsed)
		}
		if _, dup := refs[ref.ID]; dup {
			return fmt.Errorf("referrals: restore: duplicate id %s", ref.ID)
		}
		refs[ref.ID] = &ref
		order = append(order, ref.ID)
	}
	r.mu.Lock()
	r.referrals = refs
	r.order = order
	r.mu.Unlock()
	return nil
}
