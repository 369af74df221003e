package reminders

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a reminder is not found
var ErrNotFound = errors.New("reminder not found")

// Queue is the in-memory set of reminders.
type Queue struct {
	mu          sync.RWMutex
	items       map[string]*Reminder
	order       []string
	now         func() time.Time
	newID       func() string
	maxAttempts int
}

// Option customizes a Queue.
type Option func(*Queue)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(q *Queue) {
		if now != nil {
			q.now = now
		}
	}
}

// WithIDGenerator overrides the ID source.
func WithIDGenerator(newID func() string) Option {
	return func(q *Queue) {
		if newID != nil {
			q.newID = newID
		}
	}
}

// WithMaxAttempts sets how many failed sends mark a reminder failed.
func WithMaxAttempts(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.maxAttempts = n
		}
	}
}

// NewQueue creates an empty queue.
func NewQueue(opts ...Option) *Queue {
	q := &Queue{
		items:       make(map[string]*Reminder),
		now:         func() time.Time { return time.Now().UTC() },
		newID:       uuid.NewString,
		maxAttempts: 3,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Schedule adds a pending reminder.
func (q *Queue) Schedule(in ScheduleInput) Reminder {
	r := &Reminder{
		ID:            q.newID(),
		AppointmentID: in.AppointmentID,
		ReferralID:    in.ReferralID,
		Message:       in.Message,
		FireAt:        in.FireAt,
		Status:        StatusPending,
		CreatedAt:     q.now(),
	}
	q.mu.Lock()
	q.items[r.ID] = r
	q.order = append(q.order, r.ID)
	q.mu.Unlock()
	return *r
}

// Get returns a copy of the reminder with id.
func (q *Queue) Get(id string) (Reminder, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	r, ok := q.items[id]
	if !ok {
		return Reminder{}, ErrNotFound
	}
	return *r, nil
}

// CancelForAppointment cancels every pending reminder of an appointment and
// returns how many were cancelled.
func (q *Queue) CancelForAppointment(appointmentID string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	now := q.now()
	n := 0
	for _, id := range q.order {
		r := q.items[id]
		if r.AppointmentID == appointmentID && r.Status == StatusPending {
			r.Status = StatusCancelled
			r.CancelledAt = &now
			n++
		}
	}
	return n
}

// ListDue returns pending reminders whose fire time is on or before asOf,
// earliest first.
func (q *Queue) ListDue(asOf time.Time) []Reminder {
	q.mu.RLock()
	var due []Reminder
	for _, id := range q.order {
		r := q.items[id]
		if r.Status == StatusPending && !r.FireAt.After(asOf) {
			due = append(due, *r)
		}
	}
	q.mu.RUnlock()
	slices.SortStableFunc(due, func(a, b Reminder) int { return a.FireAt.Compare(b.FireAt) })
	return due
}

// Claim moves a pending reminder to sending so a later cancellation can no
// longer race the send. It reports false when the reminder is gone or no
// longer pending.
func (q *Queue) Claim(id string) (Reminder, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	r, ok := q.items[id]
	if !ok || r.Status != StatusPending {
		return Reminder{}, false
	}
	r.Status = StatusSending
	return *r, true
}

// MarkSent records a successful send of a pending or claimed reminder.
func (q *Queue) MarkSent(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	r, ok := q.items[id]
	if !ok {
		return ErrNotFound
	}
	if r.Status != StatusPending && r.Status != StatusSending {
		return fmt.Errorf("reminders: mark sent %s: status is %s", id, r.Status)
	}
	now := q.now()
	r.Status = StatusSent
	r.SentAt = &now
	r.Attempts++
	return nil
}

// MarkFailed records a failed attempt. The reminder stays pending until it
// runs out of attempts; the returned bool reports that it has.
func (q *Queue) MarkFailed(id string, cause error) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	r, ok := q.items[id]
	if !ok {
		return false, ErrNotFound
	}
	r.Attempts++
	if cause != nil {
		r.LastError = cause.Error()
	}
	if r.Attempts >= q.maxAttempts {
		r.Status = StatusFailed
		return true, nil
	}
	if r.Status == StatusSending {
		r.Status = StatusPending
	}
	return false, nil
}

// Pending counts reminders still waiting to fire.
func (q *Queue) Pending() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	n := 0
	for _, r := range q.items {
		if r.Status == StatusPending {
			n++
		}
	}
	return n
}

// Snapshot copies every reminder for persistence.
func (q *Queue) Snapshot() []Reminder {
	q.mu.RLock()
	defer q.mu.RUnlock()
	out := make([]Reminder, 0, len(q.order))
	for _, id := range q.order {
		out = append(out, *q.items[id])
	}
	return out
}

// Restore replaces the queue contents.
func (q *Queue) Restore(records []Reminder) error {
	items := make(map[string]*Reminder, len(records))
	order := make([]string, 0, len(records))
	for i := range records {
		r := records[i]
		if _, dup := items[r.ID]; dup {
			return fmt.Errorf("reminders: restore: duplicate id %s", r.ID)
		}
		if r.Status == StatusSending {
			r.Status = StatusPending
		}
		items[r.ID] = &r
		order = append(order, r.ID)
	}
	q.mu.Lock()
	q.items = items
	q.order = order
	q.mu.Unlock()
	return nil
}
