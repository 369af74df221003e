package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/referral-scheduler/internal/referrals"
	"github.com/wolfman30/referral-scheduler/internal/scheduling"
	"github.com/wolfman30/referral-scheduler/pkg/logging"
)

// AppointmentsHandler books, cancels and completes appointments.
type AppointmentsHandler struct {
	coordinator *scheduling.Coordinator
	loc         *time.Location
	logger      *logging.Logger
}

func NewAppointmentsHandler(coordinator *scheduling.Coordinator, loc *time.Location, logger *logging.Logger) *AppointmentsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &AppointmentsHandler{coordinator: coordinator, loc: loc, logger: logger}
}

type scheduleRequest struct {
	ReferralID string `json:"referralId"`
	StartTime  string `json:"startTime"`
}

// Schedule handles POST /appointments.
func (h *AppointmentsHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	var req scheduleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if strings.TrimSpace(req.ReferralID) == "" {
		writeError(w, h.logger, badRequest("referralId is required"))
		return
	}
	start, err := parseTime(req.StartTime, h.loc)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	booking, err := h.coordinator.Schedule(r.Context(), req.ReferralID, start)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, booking)
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

// Cancel handles POST /appointments/{id}/cancel.
func (h *AppointmentsHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	var req cancelRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	reason, err := referrals.ParseCancelReason(req.Reason)
	if err != nil {
		writeError(w, h.logger, badRequest("%v", err))
		return
	}
	out, err := h.coordinator.Cancel(r.Context(), chi.URLParam(r, "id"), reason)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// Complete handles POST /appointments/{id}/complete.
func (h *AppointmentsHandler) Complete(w http.ResponseWriter, r *http.Request) {
	out, err := h.coordinator.Complete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
