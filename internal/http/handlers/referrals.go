package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/referral-scheduler/internal/referrals"
	"github.com/wolfman30/referral-scheduler/internal/scheduling"
	"github.com/wolfman30/referral-scheduler/internal/workspace"
	"github.com/wolfman30/referral-scheduler/pkg/logging"
)

// ReferralsHandler takes referrals in and drives them through consent.
type ReferralsHandler struct {
	ws          *workspace.Workspace
	lifecycle   *referrals.Lifecycle
	coordinator *scheduling.Coordinator
	logger      *logging.Logger
}

func NewReferralsHandler(ws *workspace.Workspace, lifecycle *referrals.Lifecycle, coordinator *scheduling.Coordinator, logger *logging.Logger) *ReferralsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &ReferralsHandler{ws: ws, lifecycle: lifecycle, coordinator: coordinator, logger: logger}
}

type createReferralRequest struct {
	OrganizationID string `json:"organizationId"`
	referrals.ClientInfo
	// RequestConsent sends the consent request right after intake.
	RequestConsent bool `json:"requestConsent,omitempty"`
}

type referralResponse struct {
	Referral referrals.Referral `json:"referral"`
	Warnings []string           `json:"warnings,omitempty"`
}

// Create handles POST /referrals.
func (h *ReferralsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createReferralRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if strings.TrimSpace(req.OrganizationID) == "" {
		writeError(w, h.logger, badRequest("organizationId is required"))
		return
	}

	var ref *referrals.Referral
	warning, err := h.ws.Do(r.Context(), func() error {
		org, err := h.ws.Organizations.Get(req.OrganizationID)
		if err != nil {
			return err
		}
		ref, err = h.lifecycle.Intake(r.Context(), org, req.ClientInfo)
		return err
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	warnings := warningsOf(warning)
	if req.RequestConsent {
		more, err := h.coordinator.RequestConsent(r.Context(), ref.ID)
		if err != nil {
			warnings = append(warnings, "consent request not sent: "+err.Error())
		}
		warnings = append(warnings, more...)
	}
	writeJSON(w, http.StatusCreated, referralResponse{Referral: h.snapshot(ref.ID), Warnings: warnings})
}

func (h *ReferralsHandler) snapshot(id string) referrals.Referral {
	var out referrals.Referral
	h.ws.Read(func() {
		if ref, err := h.ws.Referrals.Get(id); err == nil {
			out = *ref
		}
	})
	return out
}

// List handles GET /referrals, optionally filtered by ?status=.
func (h *ReferralsHandler) List(w http.ResponseWriter, r *http.Request) {
	status := referrals.Status(strings.ToLower(strings.TrimSpace(r.URL.Query().Get("status"))))
	var out []referrals.Referral
	h.ws.Read(func() {
		for _, ref := range h.ws.Referrals.List(status) {
			out = append(out, *ref)
		}
	})
	writeJSON(w, http.StatusOK, map[string]any{"referrals": out})
}

// Get handles GET /referrals/{id}.
func (h *ReferralsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var (
		out referrals.Referral
		err error
	)
	h.ws.Read(func() {
		var ref *referrals.Referral
		if ref, err = h.ws.Referrals.Get(id); err == nil {
			out = *ref
		}
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, referralResponse{Referral: out})
}

// RequestConsent handles POST /referrals/{id}/consent-request.
func (h *ReferralsHandler) RequestConsent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	warnings, err := h.coordinator.RequestConsent(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, referralResponse{Referral: h.snapshot(id), Warnings: warnings})
}

type withdrawRequest struct {
	Reason string `json:"reason"`
}

// Withdraw handles POST /referrals/{id}/withdraw.
func (h *ReferralsHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req withdrawRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, h.logger, err)
			return
		}
	}
	warning, err := h.ws.Do(r.Context(), func() error {
		ref, err := h.ws.Referrals.Get(id)
		if err != nil {
			return err
		}
		org, _ := h.ws.Organizations.Get(ref.OrganizationID)
		return h.lifecycle.Withdraw(ref, org, req.Reason)
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, referralResponse{Referral: h.snapshot(id), Warnings: warningsOf(warning)})
}
