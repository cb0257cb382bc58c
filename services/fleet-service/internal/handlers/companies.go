package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/adfleet/adfleet/services/fleet-service/internal/model"
	"github.com/adfleet/adfleet/services/fleet-service/internal/storage"
)

type CompanyHandler struct {
	companies *storage.CompanyRepository
	areas     *storage.AreaRepository
	logger    *slog.Logger
}

func NewCompanyHandler(companies *storage.CompanyRepository, areas *storage.AreaRepository, logger *slog.Logger) *CompanyHandler {
	return &CompanyHandler{companies: companies, areas: areas, logger: logger}
}

func (h *CompanyHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/v1/companies", h.collection)
	mux.HandleFunc("/api/v1/companies/status", h.UpdateStatus)
	mux.HandleFunc("/api/v1/areas", h.Areas)
}

func (h *CompanyHandler) collection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.Create(w, r)
	case http.MethodGet:
		h.List(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

type companyItem struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	ContactPerson string `json:"contact_person,omitempty"`
	Email         string `json:"email,omitempty"`
	PhoneNumber   string `json:"phone_number,omitempty"`
	Status        string `json:"status"`
}

func toCompanyItem(c model.Company) companyItem {
	return companyItem{
		ID:            c.ID,
		Name:          c.Name,
		ContactPerson: c.ContactPerson,
		Email:         c.Email,
		PhoneNumber:   c.PhoneNumber,
		Status:        string(c.Status),
	}
}

type createCompanyRequest struct {
	Name          string `json:"name"`
	ContactPerson string `json:"contact_person"`
	Email         string `json:"email"`
	PhoneNumber   string `json:"phone_number"`
}

func (h *CompanyHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createCompanyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}

	company := model.Company{
		Name:          req.Name,
		ContactPerson: strings.TrimSpace(req.ContactPerson),
		Email:         strings.TrimSpace(req.Email),
		PhoneNumber:   strings.TrimSpace(req.PhoneNumber),
		Status:        model.CompanyPendingApproval,
	}
	id, err := h.companies.Create(r.Context(), &company)
	if err != nil {
		h.logger.Error("create company failed", "err", err)
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	company.ID = id
	writeJSON(w, http.StatusCreated, toCompanyItem(company))
}

func (h *CompanyHandler) List(w http.ResponseWriter, r *http.Request) {
	var status model.CompanyStatus
	if s := r.URL.Query().Get("status"); s != "" {
		status = model.CompanyStatus(s)
	}
	companies, err := h.companies.List(r.Context(), status)
	if err != nil {
		h.logger.Error("list companies failed", "err", err)
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	items := make([]companyItem, 0, len(companies))
	for _, c := range companies {
		items = append(items, toCompanyItem(c))
	}
	writeJSON(w, http.StatusOK, map[string]any{"companies": items})
}

type companyStatusRequest struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func (h *CompanyHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req companyStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == "" {
		http.Error(w, "id is required", http.StatusBadRequest)
		return
	}
	status := model.CompanyStatus(req.Status)
	switch status {
	case model.CompanyPendingApproval, model.CompanyActive, model.CompanyRejected, model.CompanyInactive:
	default:
		http.Error(w, "invalid status", http.StatusBadRequest)
		return
	}
	if err := h.companies.UpdateStatus(r.Context(), req.ID, status); err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "company not found", http.StatusNotFound)
			return
		}
		h.logger.Error("update company status failed", "err", err)
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (h *CompanyHandler) Areas(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createArea(w, r)
		return
	case http.MethodGet:
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	areas, err := h.areas.List(r.Context())
	if err != nil {
		h.logger.Error("list areas failed", "err", err)
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	type areaItem struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		PinCode string `json:"pin_code,omitempty"`
	}
	items := make([]areaItem, 0, len(areas))
	for _, a := range areas {
		items = append(items, areaItem{ID: a.ID, Name: a.Name, PinCode: a.PinCode})
	}
	writeJSON(w, http.StatusOK, map[string]any{"areas": items})
}

func (h *CompanyHandler) createArea(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name    string `json:"name"`
		PinCode string `json:"pin_code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}
	area := model.Area{Name: req.Name, PinCode: strings.TrimSpace(req.PinCode)}
	id, err := h.areas.Create(r.Context(), &area)
	if err != nil {
		h.logger.Error("create area failed", "err", err)
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	area.ID = id
	writeJSON(w, http.StatusCreated, map[string]any{"id": area.ID, "name": area.Name, "pin_code": area.PinCode})
}
