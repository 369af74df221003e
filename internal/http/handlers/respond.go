// Package handlers exposes the scheduler over HTTP.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/wolfman30/referral-scheduler/internal/calendar"
	"github.com/wolfman30/referral-scheduler/internal/organizations"
	"github.com/wolfman30/referral-scheduler/internal/referrals"
	"github.com/wolfman30/referral-scheduler/internal/reminders"
	"github.com/wolfman30/referral-scheduler/internal/scheduling"
	"github.com/wolfman30/referral-scheduler/pkg/logging"
)

var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type errorResponse struct {
	Error string `json:"error"`
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, scheduling.ErrNotFound),
		errors.Is(err, organizations.ErrNotFound),
		errors.Is(err, referrals.ErrNotFound),
		errors.Is(err, calendar.ErrNotFound),
		errors.Is(err, reminders.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, organizations.ErrCapacity),
		errors.Is(err, organizations.ErrOverRelease),
		errors.Is(err, organizations.ErrInactive),
		errors.Is(err, referrals.ErrDuplicateReferral),
		errors.Is(err, referrals.ErrInvalidTransition),
		errors.Is(err, referrals.ErrSessionExhausted),
		errors.Is(err, calendar.ErrSlotUnavailable),
		errors.Is(err, scheduling.ErrAppointmentClosed):
		return http.StatusConflict
	case errors.Is(err, errBadRequest),
		errors.Is(err, organizations.ErrInvalidName),
		errors.Is(err, organizations.ErrInvalidKind),
		errors.Is(err, organizations.ErrInvalidSessionCount),
		errors.Is(err, referrals.ErrInvalidName),
		errors.Is(err, referrals.ErrMissingContact),
		errors.Is(err, referrals.ErrInvalidContactMethod),
		errors.Is(err, calendar.ErrInvalidWindow),
		errors.Is(err, calendar.ErrInvalidInterval):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, logger *logging.Logger, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		logger.Error("request failed", "error", err)
		msg = "internal error"
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return badRequest("invalid json: %v", err)
	}
	return nil
}

func warningsOf(err error) []string {
	if err == nil {
		return nil
	}
	return []string{err.Error()}
}

// parseTime accepts RFC 3339 or a local "2006-01-02T15:04" wall-clock time.
func parseTime(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.In(loc), nil
	}
	for _, layout := range []string{"2006-01-02T15:04", "2006-01-02 15:04"} {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, badRequest("invalid time %q", raw)
}

// parseDate reads a YYYY-MM-DD date as local midnight, defaulting to today.
func parseDate(raw string, loc *time.Location, now time.Time) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		y, m, d := now.In(loc).Date()
		return time.Date(y, m, d, 0, 0, 0, 0, loc), nil
	}
	t, err := time.ParseInLocation(time.DateOnly, raw, loc)
	if err != nil {
		return time.Time{}, badRequest("invalid date %q", raw)
	}
	return t, nil
}
