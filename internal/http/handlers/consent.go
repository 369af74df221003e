package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/referral-scheduler/internal/referrals"
	"github.com/wolfman30/referral-scheduler/internal/workspace"
	"github.com/wolfman30/referral-scheduler/pkg/logging"
)

// ConsentHandler serves the client-facing consent link.
type ConsentHandler struct {
	ws        *workspace.Workspace
	lifecycle *referrals.Lifecycle
	logger    *logging.Logger
}

func NewConsentHandler(ws *workspace.Workspace, lifecycle *referrals.Lifecycle, logger *logging.Logger) *ConsentHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &ConsentHandler{ws: ws, lifecycle: lifecycle, logger: logger}
}

type consentPrompt struct {
	ReferralID  string `json:"referralId"`
	ClientName  string `json:"clientName"`
	ConsentType string `json:"consentType"`
}

type consentDecision struct {
	Granted *bool `json:"granted"`
}

type consentResult struct {
	ReferralID string           `json:"referralId"`
	Status     referrals.Status `json:"status"`
	Warnings   []string         `json:"warnings,omitempty"`
}

// pendingReferral resolves the link target. Callers hold the workspace lock.
func (h *ConsentHandler) pendingReferral(id string) (*referrals.Referral, int, string) {
	ref, err := h.ws.Referrals.Get(id)
	if err != nil {
		return nil, http.StatusNotFound, "Invalid consent link"
	}
	if ref.Status != referrals.StatusPending {
		return nil, http.StatusConflict, "Consent already processed"
	}
	return ref, 0, ""
}

// Show handles GET /consent/{referralID}.
func (h *ConsentHandler) Show(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "referralID")
	var (
		prompt consentPrompt
		status int
		msg    string
	)
	h.ws.Read(func() {
		var ref *referrals.Referral
		if ref, status, msg = h.pendingReferral(id); ref != nil {
			prompt = consentPrompt{ReferralID: ref.ID, ClientName: ref.Name, ConsentType: referrals.ConsentType}
		}
	})
	if status != 0 {
		writeJSON(w, status, errorResponse{Error: msg})
		return
	}
	writeJSON(w, http.StatusOK, prompt)
}

var errConsentLink = errors.New("consent link rejected")

// Submit handles POST /consent/{referralID} with {"granted": bool}.
func (h *ConsentHandler) Submit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "referralID")
	var req consentDecision
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if req.Granted == nil {
		writeError(w, h.logger, badRequest("granted is required"))
		return
	}

	var (
		result consentResult
		status int
		msg    string
	)
	warning, err := h.ws.Do(r.Context(), func() error {
		var ref *referrals.Referral
		if ref, status, msg = h.pendingReferral(id); ref == nil {
			return errConsentLink
		}
		if err := h.lifecycle.RecordConsent(ref, *req.Granted); err != nil {
			return err
		}
		result = consentResult{ReferralID: ref.ID, Status: ref.Status}
		return nil
	})
	switch {
	case errors.Is(err, errConsentLink):
		writeJSON(w, status, errorResponse{Error: msg})
		return
	case err != nil:
		writeError(w, h.logger, err)
		return
	}
	result.Warnings = warningsOf(warning)
	writeJSON(w, http.StatusOK, result)
}
