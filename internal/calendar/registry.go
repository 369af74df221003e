package calendar

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Registry holds the practitioner records. Scheduling uses the first one.
type Registry struct {
	mu            sync.RWMutex
	practitioners []*Practitioner
	defaultName   string
	defaultEmail  string
	newID         func() string
}

// NewRegistry creates an empty registry. name and email seed the default
// practitioner created on the first availability write.
func NewRegistry(name, email string) *Registry {
	if name == "" {
		name = "Default Therapist"
	}
	if email == "" {
		email = "therapist@example.com"
	}
	return &Registry{defaultName: name, defaultEmail: email, newID: uuid.NewString}
}

// Default returns the scheduling practitioner.
func (r *Registry) Default() (*Practitioner, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.practitioners) == 0 {
		return nil, fmt.Errorf("practitioner: %w", ErrNotFound)
	}
	return r.practitioners[0], nil
}

// EnsureDefault returns the scheduling practitioner, creating it if needed.
func (r *Registry) EnsureDefault() *Practitioner {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.practitioners) == 0 {
		r.practitioners = append(r.practitioners, &Practitioner{
			ID:    r.newID(),
			Name:  r.defaultName,
			Email: r.defaultEmail,
		})
	}
	return r.practitioners[0]
}

// Snapshot copies the practitioner records for persistence.
func (r *Registry) Snapshot() []Practitioner {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Practitioner, 0, len(r.practitioners))
	for _, p := range r.practitioners {
		out = append(out, *p)
	}
	return out
}

// Restore replaces the registry contents.
func (r *Registry) Restore(records []Practitioner) error {
	out := make([]*Practitioner, 0, len(records))
	for i := range records {
		p := records[i]
		for _, w := range p.Windows {
			if err := w.Validate(); err != nil {
				return fmt.Errorf("calendar: restore %s: %w", p.ID, err)
			}
		}
		out = append(out, &p)
	}
	r.mu.Lock()
	r.practitioners = out
	r.mu.Unlock()
	return nil
}
