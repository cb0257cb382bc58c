package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/adfleet/adfleet/services/fleet-service/internal/allocation"
	"github.com/adfleet/adfleet/services/fleet-service/internal/dateutil"
	"github.com/adfleet/adfleet/services/fleet-service/internal/model"
	"github.com/adfleet/adfleet/services/fleet-service/internal/storage"
)

type DashboardHandler struct {
	autos       *storage.AutoRepository
	assignments *storage.AssignmentRepository
	logger      *slog.Logger
	now         func() time.Time
}

func NewDashboardHandler(autos *storage.AutoRepository, assignments *storage.AssignmentRepository, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{
		autos:       autos,
		assignments: assignments,
		logger:      logger,
		now:         time.Now,
	}
}

func (h *DashboardHandler) SetNow(now func() time.Time) { h.now = now }

func (h *DashboardHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/v1/dashboard/summary", h.Summary)
}

// Summary is the operator landing view: fleet counts by live status, the idle
// autos ready for work, and the placements about to expire.
func (h *DashboardHandler) Summary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	autos, err := h.autos.List(r.Context(), storage.AutoFilter{})
	if err != nil {
		h.logger.Error("list autos failed", "err", err)
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	blocking, err := h.assignments.ListBlocking(r.Context())
	if err != nil {
		h.logger.Error("list assignments failed", "err", err)
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}

	byAuto := map[string][]model.Assignment{}
	autoNos := map[string]string{}
	for _, a := range blocking {
		byAuto[a.AutoID] = append(byAuto[a.AutoID], a)
	}
	for _, auto := range autos {
		autoNos[auto.ID] = auto.AutoNo
	}

	today := dateutil.Normalize(h.now())
	counts := map[model.AutoStatus]int{
		model.AutoIdle:        0,
		model.AutoPreAssigned: 0,
		model.AutoAssigned:    0,
	}
	type idleItem struct {
		ID       string `json:"id"`
		AutoNo   string `json:"auto_no"`
		AreaName string `json:"area_name,omitempty"`
	}
	var idle []idleItem
	for _, auto := range autos {
		status := allocation.DeriveStatus(byAuto[auto.ID], today)
		counts[status]++
		if status == model.AutoIdle {
			idle = append(idle, idleItem{ID: auto.ID, AutoNo: auto.AutoNo, AreaName: auto.AreaName})
		}
	}

	type priorityItem struct {
		AssignmentID  string `json:"assignment_id"`
		AutoID        string `json:"auto_id"`
		AutoNo        string `json:"auto_no,omitempty"`
		CompanyName   string `json:"company_name"`
		EndDate       string `json:"end_date"`
		DaysRemaining int    `json:"days_remaining"`
	}
	expiring := allocation.Priority(blocking, today, dateutil.DefaultPriorityThreshold)
	priority := make([]priorityItem, 0, len(expiring))
	for _, a := range expiring {
		priority = append(priority, priorityItem{
			AssignmentID:  a.ID,
			AutoID:        a.AutoID,
			AutoNo:        autoNos[a.AutoID],
			CompanyName:   a.CompanyName,
			EndDate:       dateutil.FormatDate(a.EndDate),
			DaysRemaining: dateutil.DaysRemaining(a.EndDate, today),
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"date":         dateutil.FormatDate(today),
		"total":        len(autos),
		"idle":         counts[model.AutoIdle],
		"pre_assigned": counts[model.AutoPreAssigned],
		"assigned":     counts[model.AutoAssigned],
		"idle_autos":   idle,
		"priority":     priority,
	})
}
