// Package audit records every state-changing operation as an append-only log.
package audit

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wolfman30/referral-scheduler/pkg/logging"
)

// Action is the stable tag reporting tools group entries by.
type Action string

const (
	ActionCreateOrganization     Action = "CREATE_ORGANIZATION"
	ActionDeactivateOrganization Action = "DEACTIVATE_ORGANIZATION"
	ActionCreateReferral         Action = "CREATE_REFERRAL"
	ActionRecordConsent          Action = "RECORD_CONSENT"
	ActionWithdrawReferral       Action = "WITHDRAW_REFERRAL"
	ActionUpdateAvailability     Action = "UPDATE_AVAILABILITY"
	ActionBlockTime              Action = "BLOCK_TIME"
	ActionScheduleAppointment    Action = "SCHEDULE_APPOINTMENT"
	ActionCancelAppointment      Action = "CANCEL_APPOINTMENT"
	ActionCompleteAppointment    Action = "COMPLETE_APPOINTMENT"
	ActionSendCommunication      Action = "SEND_COMMUNICATION"
)

// Details is the free-form payload of an entry.
type Details map[string]any

// Entry is one immutable audit record.
type Entry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Action    Action    `json:"action"`
	Details   Details   `json:"details"`
}

// Recorder is what domain services need to write to the log.
type Recorder interface {
	Append(action Action, details Details) Entry
}

// Sink receives committed entries, e.g. a SQL mirror or an event stream.
type Sink interface {
	Write(ctx context.Context, entry Entry) error
}

// Log is the in-memory append-only audit log. Entries are kept newest first.
type Log struct {
	mu      sync.RWMutex
	entries []Entry
	pending []Entry
	sinks   []Sink
	now     func() time.Time
	newID   func() string
	logger  *logging.Logger
}

// NewLog creates an empty log.
func NewLog(logger *logging.Logger, sinks ...Sink) *Log {
	if logger == nil {
		logger = logging.Default()
	}
	return &Log{
		sinks:  sinks,
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
		logger: logger,
	}
}

// WithClock overrides the timestamp source.
func (l *Log) WithClock(now func() time.Time) *Log {
	if now != nil {
		l.now = now
	}
	return l
}

// AddSink registers another sink for future entries.
func (l *Log) AddSink(s Sink) {
	if s == nil {
		return
	}
	l.mu.Lock()
	l.sinks = append(l.sinks, s)
	l.mu.Unlock()
}

var _ Recorder = (*Log)(nil)

// Append records an entry and queues it for the sinks.
func (l *Log) Append(action Action, details Details) Entry {
	if details == nil {
		details = Details{}
	}
	entry := Entry{
		ID:        l.newID(),
		Timestamp: l.now(),
		Action:    action,
		Details:   details,
	}
	l.mu.Lock()
	l.entries = append([]Entry{entry}, l.entries...)
	l.pending = append(l.pending, entry)
	l.mu.Unlock()
	return entry
}

// Publish hands queued entries to every sink in append order. Sink failures
// are logged and returned together; the entries stay committed either way.
func (l *Log) Publish(ctx context.Context) error {
	l.mu.Lock()
	pending := l.pending
	l.pending = nil
	sinks := append([]Sink(nil), l.sinks...)
	l.mu.Unlock()

	var errs []error
	for _, entry := range pending {
		for _, sink := range sinks {
			if err := sink.Write(ctx, entry); err != nil {
				l.logger.Error("audit: sink write failed", "error", err, "action", entry.Action, "entry_id", entry.ID)
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// Entries returns a copy of the log, newest first.
func (l *Log) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Entry(nil), l.entries...)
}

// Filter returns entries with the given action, newest first.
func (l *Log) Filter(action Action) []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []Entry
	for _, e := range l.entries {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out
}

// DayGroup is the entries of one calendar day.
type DayGroup struct {
	Date    string  `json:"date"`
	Entries []Entry `json:"entries"`
}

// GroupByDate buckets entries by local date, newest day first.
func (l *Log) GroupByDate() []DayGroup {
	entries := l.Entries()
	var groups []DayGroup
	index := map[string]int{}
	for _, e := range entries {
		day := e.Timestamp.Format(time.DateOnly)
		i, ok := index[day]
		if !ok {
			i = len(groups)
			index[day] = i
			groups = append(groups, DayGroup{Date: day})
		}
		groups[i].Entries = append(groups[i].Entries, e)
	}
	return groups
}

// Snapshot returns the entries for persistence.
func (l *Log) Snapshot() []Entry {
	return l.Entries()
}

// Restore replaces the log with persisted entries. Restored entries are not
// re-published.
func (l *Log) Restore(entries []Entry) {
	l.mu.Lock()
	l.entries = append([]Entry(nil), entries...)
	l.pending = nil
	l.mu.Unlock()
}
