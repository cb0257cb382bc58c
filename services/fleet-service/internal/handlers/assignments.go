package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/adfleet/adfleet/services/fleet-service/internal/allocation"
	"github.com/adfleet/adfleet/services/fleet-service/internal/dateutil"
	"github.com/adfleet/adfleet/services/fleet-service/internal/lifecycle"
	"github.com/adfleet/adfleet/services/fleet-service/internal/model"
	"github.com/adfleet/adfleet/services/fleet-service/internal/storage"
)

type AssignmentHandler struct {
	manager     *lifecycle.Manager
	assignments *storage.AssignmentRepository
	logger      *slog.Logger
	now         func() time.Time
}

func NewAssignmentHandler(manager *lifecycle.Manager, assignments *storage.AssignmentRepository, logger *slog.Logger) *AssignmentHandler {
	return &AssignmentHandler{
		manager:     manager,
		assignments: assignments,
		logger:      logger,
		now:         time.Now,
	}
}

// SetNow overrides the wall clock, for tests.
func (h *AssignmentHandler) SetNow(now func() time.Time) { h.now = now }

func (h *AssignmentHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/v1/assignments", h.collection)
	mux.HandleFunc("/api/v1/assignments/bulk", h.BulkCreate)
	mux.HandleFunc("/api/v1/assignments/replace", h.BulkReplace)
	mux.HandleFunc("/api/v1/assignments/update", h.Update)
	mux.HandleFunc("/api/v1/assignments/delete", h.Delete)
	mux.HandleFunc("/api/v1/assignments/priority", h.Priority)
}

func (h *AssignmentHandler) collection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.Create(w, r)
	case http.MethodGet:
		h.List(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

type assignmentRequest struct {
	AutoID    string `json:"auto_id"`
	CompanyID string `json:"company_id"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Days      int    `json:"days"`
}

// parseRange resolves the requested window. Callers send either an explicit
// end_date or a day count; with days the end is start + days - 1 so a 1-day
// booking starts and ends the same day.
func parseRange(startStr, endStr string, days int) (start, end time.Time, err error) {
	start, err = dateutil.ParseDate(startStr)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if endStr != "" {
		end, err = dateutil.ParseDate(endStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		return start, end, nil
	}
	if days < 1 {
		return time.Time{}, time.Time{}, errors.New("either end_date or a positive days value is required")
	}
	return start, dateutil.AddDays(start, days-1), nil
}

type assignmentItem struct {
	ID            string `json:"id"`
	AutoID        string `json:"auto_id"`
	CompanyID     string `json:"company_id"`
	CompanyName   string `json:"company_name"`
	StartDate     string `json:"start_date"`
	EndDate       string `json:"end_date"`
	Days          int    `json:"days"`
	Status        string `json:"status"`
	DaysRemaining int    `json:"days_remaining"`
}

func (h *AssignmentHandler) item(a model.Assignment, today time.Time) assignmentItem {
	return assignmentItem{
		ID:            a.ID,
		AutoID:        a.AutoID,
		CompanyID:     a.CompanyID,
		CompanyName:   a.CompanyName,
		StartDate:     dateutil.FormatDate(a.StartDate),
		EndDate:       dateutil.FormatDate(a.EndDate),
		Days:          a.Days,
		Status:        string(a.Status),
		DaysRemaining: dateutil.DaysRemaining(a.EndDate, today),
	}
}

func (h *AssignmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req assignmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.AutoID = strings.TrimSpace(req.AutoID)
	req.CompanyID = strings.TrimSpace(req.CompanyID)
	if req.AutoID == "" || req.CompanyID == "" || req.StartDate == "" {
		http.Error(w, "auto_id, company_id and start_date are required", http.StatusBadRequest)
		return
	}

	start, end, err := parseRange(req.StartDate, req.EndDate, req.Days)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	created, err := h.manager.Create(r.Context(), req.AutoID, req.CompanyID, start, end)
	if err != nil {
		h.writeLifecycleError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, h.item(created, dateutil.Normalize(h.now())))
}

func (h *AssignmentHandler) List(w http.ResponseWriter, r *http.Request) {
	assignments, err := h.assignments.ListBlocking(r.Context())
	if err != nil {
		h.logger.Error("list assignments failed", "err", err)
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	today := dateutil.Normalize(h.now())
	items := make([]assignmentItem, 0, len(assignments))
	for _, a := range assignments {
		items = append(items, h.item(a, today))
	}
	writeJSON(w, http.StatusOK, map[string]any{"assignments": items})
}

func (h *AssignmentHandler) Priority(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	threshold := dateutil.DefaultPriorityThreshold
	if raw := r.URL.Query().Get("threshold"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			http.Error(w, "invalid threshold", http.StatusBadRequest)
			return
		}
		threshold = n
	}

	assignments, err := h.assignments.ListBlocking(r.Context())
	if err != nil {
		h.logger.Error("list assignments failed", "err", err)
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	today := dateutil.Normalize(h.now())
	expiring := allocation.Priority(assignments, today, threshold)
	items := make([]assignmentItem, 0, len(expiring))
	for _, a := range expiring {
		items = append(items, h.item(a, today))
	}
	writeJSON(w, http.StatusOK, map[string]any{"threshold": threshold, "assignments": items})
}

type bulkRequest struct {
	AutoIDs   []string `json:"auto_ids"`
	CompanyID string   `json:"company_id"`
	StartDate string   `json:"start_date"`
	EndDate   string   `json:"end_date"`
	Days      int      `json:"days"`
}

func (h *AssignmentHandler) BulkCreate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req bulkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if len(req.AutoIDs) == 0 || req.CompanyID == "" || req.StartDate == "" {
		http.Error(w, "auto_ids, company_id and start_date are required", http.StatusBadRequest)
		return
	}
	start, end, err := parseRange(req.StartDate, req.EndDate, req.Days)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.manager.BulkCreate(r.Context(), req.AutoIDs, req.CompanyID, start, end)
	if err != nil {
		h.writeLifecycleError(w, err)
		return
	}
	if !result.AllValid {
		// Errors keyed by auto id so a caller can render every failure at once.
		errsByAuto := map[string]string{}
		for _, e := range result.Errors {
			errsByAuto[e.AutoID] = e.Reason
		}
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"all_valid": false,
			"errors":    errsByAuto,
		})
		return
	}

	today := dateutil.Normalize(h.now())
	items := make([]assignmentItem, 0, len(result.Created))
	for _, a := range result.Created {
		items = append(items, h.item(a, today))
	}
	writeJSON(w, http.StatusCreated, map[string]any{"all_valid": true, "assignments": items})
}

func (h *AssignmentHandler) BulkReplace(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req bulkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if len(req.AutoIDs) == 0 || req.CompanyID == "" || req.StartDate == "" {
		http.Error(w, "auto_ids, company_id and start_date are required", http.StatusBadRequest)
		return
	}
	start, end, err := parseRange(req.StartDate, req.EndDate, req.Days)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	results, err := h.manager.BulkReplace(r.Context(), req.AutoIDs, req.CompanyID, start, end)
	if err != nil {
		h.writeLifecycleError(w, err)
		return
	}

	today := dateutil.Normalize(h.now())
	type replaceItem struct {
		AutoID     string          `json:"auto_id"`
		AutoNo     string          `json:"auto_no,omitempty"`
		Displaced  int             `json:"displaced"`
		Assignment *assignmentItem `json:"assignment,omitempty"`
		Error      string          `json:"error,omitempty"`
	}
	items := make([]replaceItem, 0, len(results))
	for _, res := range results {
		item := replaceItem{AutoID: res.AutoID, AutoNo: res.AutoNo, Displaced: res.Displaced, Error: res.Err}
		if res.Err == "" {
			ai := h.item(res.Assignment, today)
			item.Assignment = &ai
		}
		items = append(items, item)
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": items})
}

type updateRequest struct {
	ID        string `json:"id"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Status    string `json:"status"`
}

func (h *AssignmentHandler) Update(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if req.ID == "" {
		http.Error(w, "id is required", http.StatusBadRequest)
		return
	}

	var params lifecycle.UpdateParams
	if req.StartDate != "" {
		t, err := dateutil.ParseDate(req.StartDate)
		if err != nil {
			http.Error(w, "invalid start_date", http.StatusBadRequest)
			return
		}
		params.StartDate = &t
	}
	if req.EndDate != "" {
		t, err := dateutil.ParseDate(req.EndDate)
		if err != nil {
			http.Error(w, "invalid end_date", http.StatusBadRequest)
			return
		}
		params.EndDate = &t
	}
	if req.Status != "" {
		status := model.AssignmentStatus(req.Status)
		switch status {
		case model.AssignmentActive, model.AssignmentPrebooked, model.AssignmentCompleted:
			params.Status = &status
		default:
			http.Error(w, "invalid status", http.StatusBadRequest)
			return
		}
	}

	updated, err := h.manager.Update(r.Context(), req.ID, params)
	if err != nil {
		h.writeLifecycleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.item(updated, dateutil.Normalize(h.now())))
}

func (h *AssignmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == "" {
		http.Error(w, "id is required", http.StatusBadRequest)
		return
	}
	if err := h.manager.Delete(r.Context(), req.ID); err != nil {
		h.writeLifecycleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *AssignmentHandler) writeLifecycleError(w http.ResponseWriter, err error) {
	var ve *lifecycle.ValidationError
	switch {
	case errors.As(err, &ve):
		rejectionJSON(w, ve.Reason)
	case errors.Is(err, lifecycle.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	default:
		var iv *allocation.InvariantViolation
		if errors.As(err, &iv) {
			h.logger.Error("invariant violation surfaced", "err", err)
			http.Error(w, "data integrity error", http.StatusInternalServerError)
			return
		}
		h.logger.Error("assignment operation failed", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
