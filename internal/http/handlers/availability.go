package handlers

import (
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/referral-scheduler/internal/calendar"
	"github.com/wolfman30/referral-scheduler/internal/workspace"
	"github.com/wolfman30/referral-scheduler/pkg/logging"
)

// AvailabilityHandler manages the practitioner's weekly windows, blocked
// time and the views derived from them.
type AvailabilityHandler struct {
	ws      *workspace.Workspace
	service *calendar.Service
	loc     *time.Location
	now     func() time.Time
	logger  *logging.Logger
}

func NewAvailabilityHandler(ws *workspace.Workspace, service *calendar.Service, loc *time.Location, logger *logging.Logger) *AvailabilityHandler {
	if logger == nil {
		logger = logging.Default()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &AvailabilityHandler{ws: ws, service: service, loc: loc, now: time.Now, logger: logger}
}

// WithClock overrides the clock used for the default date.
func (h *AvailabilityHandler) WithClock(now func() time.Time) *AvailabilityHandler {
	if now != nil {
		h.now = now
	}
	return h
}

type windowRequest struct {
	Start calendar.Clock `json:"startTime"`
	End   calendar.Clock `json:"endTime"`
}

type practitionerResponse struct {
	Practitioner calendar.Practitioner `json:"practitioner"`
	Warnings     []string              `json:"warnings,omitempty"`
}

// SetWindow handles PUT /availability/{day}.
func (h *AvailabilityHandler) SetWindow(w http.ResponseWriter, r *http.Request) {
	day, err := calendar.ParseWeekday(chi.URLParam(r, "day"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	var req windowRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.mutate(w, r, func() (*calendar.Practitioner, error) {
		return h.service.SetWeeklyAvailability(calendar.Window{Day: day, Start: req.Start, End: req.End})
	})
}

type blockRequest struct {
	Start  string `json:"start"`
	End    string `json:"end"`
	Reason string `json:"reason,omitempty"`
}

// Block handles POST /availability/blocks.
func (h *AvailabilityHandler) Block(w http.ResponseWriter, r *http.Request) {
	var req blockRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	start, err := parseTime(req.Start, h.loc)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	end, err := parseTime(req.End, h.loc)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.mutate(w, r, func() (*calendar.Practitioner, error) {
		return h.service.AddBlockedInterval(calendar.BlockedInterval{Start: start, End: end, Reason: req.Reason})
	})
}

func (h *AvailabilityHandler) mutate(w http.ResponseWriter, r *http.Request, fn func() (*calendar.Practitioner, error)) {
	var out calendar.Practitioner
	warning, err := h.ws.Do(r.Context(), func() error {
		p, err := fn()
		if err != nil {
			return err
		}
		out = *p
		return nil
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, practitionerResponse{Practitioner: out, Warnings: warningsOf(warning)})
}

// Slots handles GET /availability/slots?date=YYYY-MM-DD.
func (h *AvailabilityHandler) Slots(w http.ResponseWriter, r *http.Request) {
	date, err := parseDate(r.URL.Query().Get("date"), h.loc, h.now())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	slots := []calendar.Slot{}
	h.ws.Read(func() {
		p, err := h.ws.Calendar.Default()
		if err != nil {
			return
		}
		slots = slices.AppendSeq(slots, p.AvailableSlots(date))
	})
	writeJSON(w, http.StatusOK, map[string]any{"date": date.Format(time.DateOnly), "slots": slots})
}

// Week handles GET /calendar?week=YYYY-MM-DD.
func (h *AvailabilityHandler) Week(w http.ResponseWriter, r *http.Request) {
	date, err := parseDate(r.URL.Query().Get("week"), h.loc, h.now())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	var view calendar.WeekView
	h.ws.Read(func() {
		p, err := h.ws.Calendar.Default()
		if err != nil {
			p = &calendar.Practitioner{}
		}
		view = p.Week(date)
	})
	writeJSON(w, http.StatusOK, view)
}
