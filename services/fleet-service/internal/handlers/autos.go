package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/adfleet/adfleet/services/fleet-service/internal/allocation"
	"github.com/adfleet/adfleet/services/fleet-service/internal/dateutil"
	"github.com/adfleet/adfleet/services/fleet-service/internal/model"
	"github.com/adfleet/adfleet/services/fleet-service/internal/storage"
)

type AutoHandler struct {
	autos       *storage.AutoRepository
	assignments *storage.AssignmentRepository
	areas       *storage.AreaRepository
	logger      *slog.Logger
	now         func() time.Time
}

func NewAutoHandler(autos *storage.AutoRepository, assignments *storage.AssignmentRepository, areas *storage.AreaRepository, logger *slog.Logger) *AutoHandler {
	return &AutoHandler{
		autos:       autos,
		assignments: assignments,
		areas:       areas,
		logger:      logger,
		now:         time.Now,
	}
}

func (h *AutoHandler) SetNow(now func() time.Time) { h.now = now }

func (h *AutoHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/v1/autos", h.collection)
	mux.HandleFunc("/api/v1/autos/get", h.Get)
	mux.HandleFunc("/api/v1/autos/update", h.Update)
	mux.HandleFunc("/api/v1/autos/delete", h.Delete)
	mux.HandleFunc("/api/v1/autos/available-count", h.AvailableCount)
}

func (h *AutoHandler) collection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.Create(w, r)
	case http.MethodGet:
		h.List(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

type mergedItem struct {
	CompanyID   string   `json:"company_id"`
	CompanyName string   `json:"company_name"`
	StartDate   string   `json:"start_date"`
	EndDate     string   `json:"end_date"`
	Days        int      `json:"days"`
	Status      string   `json:"status"`
	SourceIDs   []string `json:"source_ids"`
}

type autoItem struct {
	ID             string      `json:"id"`
	AutoNo         string      `json:"auto_no"`
	OwnerName      string      `json:"owner_name"`
	AreaID         string      `json:"area_id,omitempty"`
	AreaName       string      `json:"area_name,omitempty"`
	DisplayStatus  string      `json:"display_status"`
	Notes          string      `json:"notes,omitempty"`
	Current        *mergedItem `json:"current,omitempty"`
	CurrentCompany string      `json:"current_company,omitempty"`
	DaysRemaining  *int        `json:"days_remaining,omitempty"`
}

func toMergedItem(m allocation.Merged) mergedItem {
	return mergedItem{
		CompanyID:   m.CompanyID,
		CompanyName: m.CompanyName,
		StartDate:   dateutil.FormatDate(m.StartDate),
		EndDate:     dateutil.FormatDate(m.EndDate),
		Days:        m.Days,
		Status:      string(m.Status),
		SourceIDs:   m.SourceIDs,
	}
}

// autoView derives the display fields from the assignment set: live status,
// the merged current span, and days remaining on it.
func (h *AutoHandler) autoView(auto model.Auto, assignments []model.Assignment, today time.Time) autoItem {
	item := autoItem{
		ID:            auto.ID,
		AutoNo:        auto.AutoNo,
		OwnerName:     auto.OwnerName,
		AreaID:        auto.AreaID,
		AreaName:      auto.AreaName,
		DisplayStatus: string(allocation.DeriveStatus(assignments, today)),
		Notes:         auto.Notes,
	}
	if span, ok := allocation.CurrentSpan(assignments); ok {
		mi := toMergedItem(span)
		item.Current = &mi
		item.CurrentCompany = span.CompanyName
		rem := dateutil.DaysRemaining(span.EndDate, today)
		item.DaysRemaining = &rem
	}
	return item
}

type createAutoRequest struct {
	AutoNo    string `json:"auto_no"`
	OwnerName string `json:"owner_name"`
	AreaID    string `json:"area_id"`
	Notes     string `json:"notes"`
}

func (h *AutoHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createAutoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	autoNo := model.NormalizeAutoNo(req.AutoNo)
	if autoNo == "" || strings.TrimSpace(req.OwnerName) == "" {
		http.Error(w, "auto_no and owner_name are required", http.StatusBadRequest)
		return
	}
	if !model.ValidAutoNo(autoNo) {
		http.Error(w, "invalid registration number format", http.StatusBadRequest)
		return
	}

	auto := model.Auto{
		AutoNo:    autoNo,
		OwnerName: strings.TrimSpace(req.OwnerName),
		Status:    model.AutoIdle,
		Notes:     strings.TrimSpace(req.Notes),
	}
	if req.AreaID != "" {
		area, err := h.areas.Get(r.Context(), req.AreaID)
		if err != nil {
			if storage.IsNotFound(err) {
				http.Error(w, "area not found", http.StatusNotFound)
				return
			}
			h.logger.Error("area lookup failed", "err", err)
			http.Error(w, "db error", http.StatusInternalServerError)
			return
		}
		auto.AreaID = area.ID
		auto.AreaName = area.Name
	}

	id, err := h.autos.Create(r.Context(), &auto)
	if err != nil {
		h.logger.Error("create auto failed", "err", err)
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	auto.ID = id
	writeJSON(w, http.StatusCreated, h.autoView(auto, nil, dateutil.Normalize(h.now())))
}

func (h *AutoHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := storage.AutoFilter{
		Search: q.Get("search"),
		AreaID: q.Get("area_id"),
	}
	if s := q.Get("status"); s != "" {
		filter.Status = model.AutoStatus(s)
	}

	autos, err := h.autos.List(r.Context(), filter)
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
	for _, a := range blocking {
		byAuto[a.AutoID] = append(byAuto[a.AutoID], a)
	}

	today := dateutil.Normalize(h.now())
	items := make([]autoItem, 0, len(autos))
	for _, auto := range autos {
		items = append(items, h.autoView(auto, byAuto[auto.ID], today))
	}
	writeJSON(w, http.StatusOK, map[string]any{"autos": items})
}

func (h *AutoHandler) Get(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "id is required", http.StatusBadRequest)
		return
	}

	auto, err := h.autos.Get(r.Context(), id)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "auto not found", http.StatusNotFound)
			return
		}
		h.logger.Error("get auto failed", "err", err)
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}

	history, err := h.assignments.History(r.Context(), id)
	if err != nil {
		h.logger.Error("history lookup failed", "err", err)
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}

	today := dateutil.Normalize(h.now())
	var blocking []model.Assignment
	for _, a := range history {
		if a.Status.Blocks() {
			blocking = append(blocking, a)
		}
	}

	hist := make([]assignmentItem, 0, len(history))
	for _, a := range history {
		hist = append(hist, assignmentItem{
			ID:            a.ID,
			AutoID:        a.AutoID,
			CompanyID:     a.CompanyID,
			CompanyName:   a.CompanyName,
			StartDate:     dateutil.FormatDate(a.StartDate),
			EndDate:       dateutil.FormatDate(a.EndDate),
			Days:          a.Days,
			Status:        string(a.Status),
			DaysRemaining: dateutil.DaysRemaining(a.EndDate, today),
		})
	}

	merged := allocation.MergeConsecutive(blocking)
	spans := make([]mergedItem, 0, len(merged))
	for _, m := range merged {
		spans = append(spans, toMergedItem(m))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"auto":    h.autoView(auto, blocking, today),
		"merged":  spans,
		"history": hist,
	})
}

type updateAutoRequest struct {
	ID        string `json:"id"`
	AutoNo    string `json:"auto_no"`
	OwnerName string `json:"owner_name"`
	AreaID    string `json:"area_id"`
	Notes     string `json:"notes"`
}

func (h *AutoHandler) Update(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req updateAutoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == "" {
		http.Error(w, "id is required", http.StatusBadRequest)
		return
	}

	auto, err := h.autos.Get(r.Context(), req.ID)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "auto not found", http.StatusNotFound)
			return
		}
		h.logger.Error("get auto failed", "err", err)
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}

	if req.AutoNo != "" {
		autoNo := model.NormalizeAutoNo(req.AutoNo)
		if !model.ValidAutoNo(autoNo) {
			http.Error(w, "invalid registration number format", http.StatusBadRequest)
			return
		}
		auto.AutoNo = autoNo
	}
	if req.OwnerName != "" {
		auto.OwnerName = strings.TrimSpace(req.OwnerName)
	}
	if req.Notes != "" {
		auto.Notes = strings.TrimSpace(req.Notes)
	}
	if req.AreaID != "" {
		area, err := h.areas.Get(r.Context(), req.AreaID)
		if err != nil {
			if storage.IsNotFound(err) {
				http.Error(w, "area not found", http.StatusNotFound)
				return
			}
			h.logger.Error("area lookup failed", "err", err)
			http.Error(w, "db error", http.StatusInternalServerError)
			return
		}
		auto.AreaID = area.ID
		auto.AreaName = area.Name
	}

	if err := h.autos.Update(r.Context(), &auto); err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "auto not found", http.StatusNotFound)
			return
		}
		h.logger.Error("update auto failed", "err", err)
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (h *AutoHandler) Delete(w http.ResponseWriter, r *http.Request) {
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
	if err := h.autos.SoftDelete(r.Context(), req.ID); err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "auto not found", http.StatusNotFound)
			return
		}
		h.logger.Error("delete auto failed", "err", err)
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *AutoHandler) AvailableCount(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()
	start, err := dateutil.ParseDate(q.Get("start_date"))
	if err != nil {
		http.Error(w, "invalid start_date", http.StatusBadRequest)
		return
	}
	end, err := dateutil.ParseDate(q.Get("end_date"))
	if err != nil {
		http.Error(w, "invalid end_date", http.StatusBadRequest)
		return
	}

	filter := storage.AutoFilter{AreaID: q.Get("area_id")}
	autos, err := h.autos.List(r.Context(), filter)
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
	for _, a := range blocking {
		byAuto[a.AutoID] = append(byAuto[a.AutoID], a)
	}
	snaps := make([]allocation.AutoSnapshot, 0, len(autos))
	for _, auto := range autos {
		snaps = append(snaps, allocation.AutoSnapshot{Auto: auto, Assignments: byAuto[auto.ID]})
	}

	count := allocation.AvailableCount(snaps, start, end)
	writeJSON(w, http.StatusOK, map[string]any{
		"total":     len(autos),
		"available": count,
	})
}
