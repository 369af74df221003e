package organizations

import (
	"github.com/wolfman30/referral-scheduler/internal/audit"
	"github.com/wolfman30/referral-scheduler/pkg/logging"
)

// Service is the onboarding surface over a Registry. Every change is audited.
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

// Create onboards an organization.
func (s *Service) Create(req *CreateRequest) (*Organization, error) {
	org, err := s.registry.Create(req)
	if err != nil {
		return nil, err
	}
	s.record(audit.ActionCreateOrganization, audit.Details{
		"organizationId": org.ID,
		"name":           org.Name,
		"type":           string(org.Kind),
		"sessions":       org.TotalSessions,
	})
	s.logger.Info("organization created", "org_id", org.ID, "type", org.Kind, "total_sessions", org.TotalSessions)
	return org, nil
}

// Deactivate retires an organization. Repeated calls are not audited again.
func (s *Service) Deactivate(id string) (*Organization, error) {
	before, err := s.registry.Get(id)
	if err != nil {
		return nil, err
	}
	wasActive := before.Active
	org, err := s.registry.Deactivate(id)
	if err != nil {
		return nil, err
	}
	if wasActive {
		s.record(audit.ActionDeactivateOrganization, audit.Details{
			"organizationId": org.ID,
			"name":           org.Name,
		})
		s.logger.Info("organization deactivated", "org_id", org.ID)
	}
	return org, nil
}

func (s *Service) record(action audit.Action, details audit.Details) {
	if s.recorder != nil {
		s.recorder.Append(action, details)
	}
}
