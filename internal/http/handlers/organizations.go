package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/referral-scheduler/internal/organizations"
	"github.com/wolfman30/referral-scheduler/internal/workspace"
	"github.com/wolfman30/referral-scheduler/pkg/logging"
)

// OrganizationsHandler onboards and reports on sponsoring organizations.
type OrganizationsHandler struct {
	ws      *workspace.Workspace
	service *organizations.Service
	logger  *logging.Logger
}

func NewOrganizationsHandler(ws *workspace.Workspace, service *organizations.Service, logger *logging.Logger) *OrganizationsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &OrganizationsHandler{ws: ws, service: service, logger: logger}
}

type organizationView struct {
	organizations.Organization
	AvailableSessions int `json:"availableSessions"`
}

func viewOrganization(org *organizations.Organization) organizationView {
	return organizationView{Organization: *org, AvailableSessions: org.Available()}
}

type organizationResponse struct {
	Organization organizationView `json:"organization"`
	Warnings     []string         `json:"warnings,omitempty"`
}

// Create handles POST /organizations.
func (h *OrganizationsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req organizations.CreateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	var view organizationView
	warning, err := h.ws.Do(r.Context(), func() error {
		org, err := h.service.Create(&req)
		if err != nil {
			return err
		}
		view = viewOrganization(org)
		return nil
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, organizationResponse{Organization: view, Warnings: warningsOf(warning)})
}

// List handles GET /organizations.
func (h *OrganizationsHandler) List(w http.ResponseWriter, r *http.Request) {
	var out []organizationView
	h.ws.Read(func() {
		for _, org := range h.ws.Organizations.List() {
			out = append(out, viewOrganization(org))
		}
	})
	writeJSON(w, http.StatusOK, map[string]any{"organizations": out})
}

// Deactivate handles POST /organizations/{id}/deactivate.
func (h *OrganizationsHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var view organizationView
	warning, err := h.ws.Do(r.Context(), func() error {
		org, err := h.service.Deactivate(id)
		if err != nil {
			return err
		}
		view = viewOrganization(org)
		return nil
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, organizationResponse{Organization: view, Warnings: warningsOf(warning)})
}

// Stats handles GET /organizations/stats with session totals across all
// organizations.
func (h *OrganizationsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	var totals organizations.Totals
	h.ws.Read(func() { totals = h.ws.Organizations.Totals() })
	writeJSON(w, http.StatusOK, totals)
}
