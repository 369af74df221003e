package handlers

import (
	"net/http"
	"strings"

	"github.com/wolfman30/referral-scheduler/internal/audit"
	"github.com/wolfman30/referral-scheduler/internal/workspace"
	"github.com/wolfman30/referral-scheduler/pkg/logging"
)

// AuditHandler exposes the audit log for reporting.
type AuditHandler struct {
	ws     *workspace.Workspace
	logger *logging.Logger
}

func NewAuditHandler(ws *workspace.Workspace, logger *logging.Logger) *AuditHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &AuditHandler{ws: ws, logger: logger}
}

// List handles GET /audit. ?action= filters by tag and ?group=date buckets
// the entries by day.
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	action := audit.Action(strings.ToUpper(strings.TrimSpace(q.Get("action"))))

	if strings.EqualFold(q.Get("group"), "date") {
		writeJSON(w, http.StatusOK, map[string]any{"days": h.ws.Audit.GroupByDate()})
		return
	}
	entries := h.ws.Audit.Entries()
	if action != "" {
		entries = h.ws.Audit.Filter(action)
	}
	if entries == nil {
		entries = []audit.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}
