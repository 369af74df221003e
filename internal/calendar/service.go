package calendar

import (
	"time"

	"github.com/wolfman30/referral-scheduler/internal/audit"
	"github.com/wolfman30/referral-scheduler/pkg/logging"
)

// Service applies audited availability changes.
type Service struct {
	registry *Registry
	recorder audit.Recorder
	logger   *logging.Logger
}

// NewService wires the registry to the audit log.
func NewService(registry *Registry, recorder audit.Recorder, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{registry: registry, recorder: recorder, logger: logger}
}

// SetWeeklyAvailability upserts a weekly window, creating the practitioner
// on first use.
func (s *Service) SetWeeklyAvailability(w Window) (*Practitioner, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	p := s.registry.EnsureDefault()
	if err := p.SetWeeklyAvailability(w); err != nil {
		return nil, err
	}
	s.record(audit.ActionUpdateAvailability, audit.Details{
		"day":       int(w.Day),
		"startTime": w.Start.String(),
		"endTime":   w.End.String(),
	})
	s.logger.Info("availability updated", "practitioner_id", p.ID, "day", w.Day.String(), "start", w.Start.String(), "end", w.End.String())
	return p, nil
}

// AddBlockedInterval blocks time on the existing practitioner.
func (s *Service) AddBlockedInterval(b BlockedInterval) (*Practitioner, error) {
	p, err := s.registry.Default()
	if err != nil {
		return nil, err
	}
	if err := p.AddBlockedInterval(b); err != nil {
		return nil, err
	}
	s.record(audit.ActionBlockTime, audit.Details{
		"start":  b.Start.Format(time.RFC3339),
		"end":    b.End.Format(time.RFC3339),
		"reason": b.Reason,
	})
	s.logger.Info("time blocked", "practitioner_id", p.ID, "start", b.Start, "end", b.End)
	return p, nil
}

func (s *Service) record(action audit.Action, details audit.Details) {
	if s.recorder != nil {
		s.recorder.Append(action, details)
	}
}
