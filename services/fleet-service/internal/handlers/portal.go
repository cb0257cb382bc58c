package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/adfleet/adfleet/services/fleet-service/internal/dateutil"
	"github.com/adfleet/adfleet/services/fleet-service/internal/storage"
)

// PortalHandler serves the sponsor-facing read views: a company's own
// placements enriched with auto details.
type PortalHandler struct {
	companies   *storage.CompanyRepository
	assignments *storage.AssignmentRepository
	autos       *storage.AutoRepository
	logger      *slog.Logger
	now         func() time.Time
}

func NewPortalHandler(companies *storage.CompanyRepository, assignments *storage.AssignmentRepository, autos *storage.AutoRepository, logger *slog.Logger) *PortalHandler {
	return &PortalHandler{
		companies:   companies,
		assignments: assignments,
		autos:       autos,
		logger:      logger,
		now:         time.Now,
	}
}

func (h *PortalHandler) SetNow(now func() time.Time) { h.now = now }

func (h *PortalHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/v1/portal/assignments", h.Assignments)
}

func (h *PortalHandler) Assignments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	companyID := r.URL.Query().Get("company_id")
	if companyID == "" {
		http.Error(w, "company_id is required", http.StatusBadRequest)
		return
	}

	company, err := h.companies.Get(r.Context(), companyID)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "company not found", http.StatusNotFound)
			return
		}
		h.logger.Error("company lookup failed", "err", err)
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}

	assignments, err := h.assignments.ListByCompany(r.Context(), companyID)
	if err != nil {
		h.logger.Error("list company assignments failed", "err", err)
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}

	today := dateutil.Normalize(h.now())
	type portalItem struct {
		AssignmentID  string `json:"assignment_id"`
		AutoID        string `json:"auto_id"`
		AutoNo        string `json:"auto_no,omitempty"`
		OwnerName     string `json:"owner_name,omitempty"`
		AreaName      string `json:"area_name,omitempty"`
		StartDate     string `json:"start_date"`
		EndDate       string `json:"end_date"`
		Days          int    `json:"days"`
		Status        string `json:"status"`
		DaysRemaining int    `json:"days_remaining"`
	}
	items := make([]portalItem, 0, len(assignments))
	for _, a := range assignments {
		item := portalItem{
			AssignmentID:  a.ID,
			AutoID:        a.AutoID,
			StartDate:     dateutil.FormatDate(a.StartDate),
			EndDate:       dateutil.FormatDate(a.EndDate),
			Days:          a.Days,
			Status:        string(a.Status),
			DaysRemaining: dateutil.DaysRemaining(a.EndDate, today),
		}
		auto, err := h.autos.Get(r.Context(), a.AutoID)
		if err == nil {
			item.AutoNo = auto.AutoNo
			item.OwnerName = auto.OwnerName
			item.AreaName = auto.AreaName
		} else if !storage.IsNotFound(err) {
			h.logger.Error("auto lookup failed", "auto_id", a.AutoID, "err", err)
		}
		items = append(items, item)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"company": map[string]string{
			"id":     company.ID,
			"name":   company.Name,
			"status": string(company.Status),
		},
		"assignments": items,
	})
}
