package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/adfleet/adfleet/services/fleet-service/internal/allocation"
	"github.com/adfleet/adfleet/services/fleet-service/internal/dateutil"
	"github.com/adfleet/adfleet/services/fleet-service/internal/lifecycle"
	"github.com/adfleet/adfleet/services/fleet-service/internal/model"
	"github.com/adfleet/adfleet/services/fleet-service/internal/storage"
)

type TicketHandler struct {
	tickets     *storage.TicketRepository
	companies   *storage.CompanyRepository
	autos       *storage.AutoRepository
	assignments *storage.AssignmentRepository
	areas       *storage.AreaRepository
	manager     *lifecycle.Manager
	logger      *slog.Logger
	now         func() time.Time
}

func NewTicketHandler(tickets *storage.TicketRepository, companies *storage.CompanyRepository, autos *storage.AutoRepository, assignments *storage.AssignmentRepository, areas *storage.AreaRepository, manager *lifecycle.Manager, logger *slog.Logger) *TicketHandler {
	return &TicketHandler{
		tickets:     tickets,
		companies:   companies,
		autos:       autos,
		assignments: assignments,
		areas:       areas,
		manager:     manager,
		logger:      logger,
		now:         time.Now,
	}
}

func (h *TicketHandler) SetNow(now func() time.Time) { h.now = now }

func (h *TicketHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/v1/tickets", h.collection)
	mux.HandleFunc("/api/v1/tickets/suggest", h.Suggest)
	mux.HandleFunc("/api/v1/tickets/approve", h.Approve)
	mux.HandleFunc("/api/v1/tickets/reject", h.Reject)
}

func (h *TicketHandler) collection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.Create(w, r)
	case http.MethodGet:
		h.List(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

type ticketItem struct {
	ID             string `json:"id"`
	CompanyID      string `json:"company_id"`
	CompanyName    string `json:"company_name"`
	AutosRequired  int    `json:"autos_required"`
	DaysRequired   int    `json:"days_required"`
	StartDate      string `json:"start_date"`
	AreaID         string `json:"area_id,omitempty"`
	AreaName       string `json:"area_name,omitempty"`
	Status         string `json:"status"`
	Notes          string `json:"notes,omitempty"`
	AdminNotes     string `json:"admin_notes,omitempty"`
	RejectedReason string `json:"rejected_reason,omitempty"`
}

func toTicketItem(t model.Ticket) ticketItem {
	return ticketItem{
		ID:             t.ID,
		CompanyID:      t.CompanyID,
		CompanyName:    t.CompanyName,
		AutosRequired:  t.AutosRequired,
		DaysRequired:   t.DaysRequired,
		StartDate:      dateutil.FormatDate(t.StartDate),
		AreaID:         t.AreaID,
		AreaName:       t.AreaName,
		Status:         string(t.Status),
		Notes:          t.Notes,
		AdminNotes:     t.AdminNotes,
		RejectedReason: t.RejectedReason,
	}
}

type createTicketRequest struct {
	CompanyID     string `json:"company_id"`
	AutosRequired int    `json:"autos_required"`
	DaysRequired  int    `json:"days_required"`
	StartDate     string `json:"start_date"`
	AreaID        string `json:"area_id"`
	Notes         string `json:"notes"`
}

func (h *TicketHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createTicketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.CompanyID = strings.TrimSpace(req.CompanyID)
	if req.CompanyID == "" || req.StartDate == "" {
		http.Error(w, "company_id and start_date are required", http.StatusBadRequest)
		return
	}
	if req.AutosRequired < 1 || req.DaysRequired < 1 {
		http.Error(w, "autos_required and days_required must be at least 1", http.StatusBadRequest)
		return
	}
	start, err := dateutil.ParseDate(req.StartDate)
	if err != nil {
		http.Error(w, "invalid start_date", http.StatusBadRequest)
		return
	}
	if start.Before(dateutil.Normalize(h.now())) {
		rejectionJSON(w, allocation.ReasonStartInPast)
		return
	}

	company, err := h.companies.Get(r.Context(), req.CompanyID)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "company not found", http.StatusNotFound)
			return
		}
		h.logger.Error("company lookup failed", "err", err)
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}

	ticket := model.Ticket{
		CompanyID:     company.ID,
		CompanyName:   company.Name,
		AutosRequired: req.AutosRequired,
		DaysRequired:  req.DaysRequired,
		StartDate:     start,
		Status:        model.TicketPending,
		Notes:         strings.TrimSpace(req.Notes),
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
		ticket.AreaID = area.ID
		ticket.AreaName = area.Name
	}

	id, err := h.tickets.Create(r.Context(), &ticket)
	if err != nil {
		h.logger.Error("create ticket failed", "err", err)
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	ticket.ID = id
	writeJSON(w, http.StatusCreated, toTicketItem(ticket))
}

func (h *TicketHandler) List(w http.ResponseWriter, r *http.Request) {
	var status model.TicketStatus
	if s := r.URL.Query().Get("status"); s != "" {
		status = model.TicketStatus(s)
	}
	tickets, err := h.tickets.List(r.Context(), status)
	if err != nil {
		h.logger.Error("list tickets failed", "err", err)
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	items := make([]ticketItem, 0, len(tickets))
	for _, t := range tickets {
		items = append(items, toTicketItem(t))
	}
	writeJSON(w, http.StatusOK, map[string]any{"tickets": items})
}

type suggestCandidate struct {
	AutoID         string `json:"auto_id"`
	AutoNo         string `json:"auto_no"`
	Classification string `json:"classification"`
}

// Suggest ranks the ticket area's autos for fulfillment without committing
// anything; approval takes the returned (or an explicit) list.
func (h *TicketHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "id is required", http.StatusBadRequest)
		return
	}

	ticket, err := h.tickets.Get(r.Context(), id)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "ticket not found", http.StatusNotFound)
			return
		}
		h.logger.Error("get ticket failed", "err", err)
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}

	suggestion, err := h.suggestFor(r, ticket)
	if err != nil {
		h.logger.Error("suggestion failed", "err", err)
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}

	ranked := make([]suggestCandidate, 0, len(suggestion.Ranked))
	for _, c := range suggestion.Ranked {
		ranked = append(ranked, suggestCandidate{
			AutoID:         c.Snapshot.Auto.ID,
			AutoNo:         c.Snapshot.Auto.AutoNo,
			Classification: string(c.Classification),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ticket":       toTicketItem(ticket),
		"window_start": dateutil.FormatDate(suggestion.WindowStart),
		"window_end":   dateutil.FormatDate(suggestion.WindowEnd),
		"ranked":       ranked,
		"selected":     suggestion.Selected,
	})
}

func (h *TicketHandler) suggestFor(r *http.Request, ticket model.Ticket) (allocation.Suggestion, error) {
	autos, err := h.autos.List(r.Context(), storage.AutoFilter{AreaID: ticket.AreaID})
	if err != nil {
		return allocation.Suggestion{}, err
	}
	snaps := make([]allocation.AutoSnapshot, 0, len(autos))
	for _, auto := range autos {
		history, err := h.assignments.History(r.Context(), auto.ID)
		if err != nil {
			return allocation.Suggestion{}, err
		}
		snaps = append(snaps, allocation.AutoSnapshot{Auto: auto, Assignments: history})
	}
	return allocation.Suggest(ticket.StartDate, ticket.DaysRequired, ticket.AutosRequired, snaps), nil
}

type approveRequest struct {
	ID         string   `json:"id"`
	AutoIDs    []string `json:"auto_ids"`
	AdminNotes string   `json:"admin_notes"`
}

// Approve resolves a ticket and books one assignment per auto. Autos are
// independent: one rejection never blocks the rest, and every outcome is
// reported per auto.
func (h *TicketHandler) Approve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req approveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == "" {
		http.Error(w, "id is required", http.StatusBadRequest)
		return
	}

	ticket, err := h.tickets.Get(r.Context(), req.ID)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "ticket not found", http.StatusNotFound)
			return
		}
		h.logger.Error("get ticket failed", "err", err)
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	if ticket.Status != model.TicketPending {
		http.Error(w, "ticket already resolved", http.StatusConflict)
		return
	}

	autoIDs := req.AutoIDs
	if len(autoIDs) == 0 {
		suggestion, err := h.suggestFor(r, ticket)
		if err != nil {
			h.logger.Error("suggestion failed", "err", err)
			http.Error(w, "db error", http.StatusInternalServerError)
			return
		}
		autoIDs = suggestion.Selected
	}
	if len(autoIDs) == 0 {
		rejectionJSON(w, "No autos available for the requested window.")
		return
	}

	start := ticket.StartDate
	end := dateutil.AddDays(start, ticket.DaysRequired-1)

	type approveResult struct {
		AutoID     string          `json:"auto_id"`
		Assignment *assignmentItem `json:"assignment,omitempty"`
		Error      string          `json:"error,omitempty"`
	}
	today := dateutil.Normalize(h.now())
	results := make([]approveResult, 0, len(autoIDs))
	created := 0
	for _, autoID := range autoIDs {
		res := approveResult{AutoID: autoID}
		a, err := h.manager.Create(r.Context(), autoID, ticket.CompanyID, start, end)
		switch {
		case err == nil:
			item := assignmentItem{
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
			res.Assignment = &item
			created++
		case lifecycle.IsValidationError(err):
			res.Error = err.Error()
		case errors.Is(err, lifecycle.ErrNotFound):
			res.Error = "auto not found"
		default:
			h.logger.Error("ticket approval create failed", "auto_id", autoID, "err", err)
			res.Error = "internal error"
		}
		results = append(results, res)
	}

	if created > 0 {
		if err := h.tickets.Resolve(r.Context(), ticket.ID, model.TicketApproved, strings.TrimSpace(req.AdminNotes), ""); err != nil && !storage.IsNotFound(err) {
			h.logger.Error("resolve ticket failed", "err", err)
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ticket_id": ticket.ID,
		"approved":  created > 0,
		"results":   results,
	})
}

type rejectRequest struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

func (h *TicketHandler) Reject(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req rejectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == "" {
		http.Error(w, "id is required", http.StatusBadRequest)
		return
	}
	if err := h.tickets.Resolve(r.Context(), req.ID, model.TicketRejected, "", strings.TrimSpace(req.Reason)); err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "ticket not found or already resolved", http.StatusNotFound)
			return
		}
		h.logger.Error("reject ticket failed", "err", err)
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "rejected"})
}
