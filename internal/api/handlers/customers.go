package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hugh/go-helpdesk/internal/api/dto"
	"github.com/hugh/go-helpdesk/internal/auth"
	"github.com/hugh/go-helpdesk/internal/database/models"
	"gorm.io/gorm"
)

type CustomerHandler struct {
	db *gorm.DB
}

func NewCustomerHandler(db *gorm.DB) *CustomerHandler {
	return &CustomerHandler{db: db}
}

type CustomerResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Notes     string `json:"notes,omitempty"`
	CreatedAt string `json:"created_at"`
}

func customerToResponse(c *models.Customer) CustomerResponse {
	return CustomerResponse{
		ID:        c.ID.String(),
		Name:      c.Name,
		LastName:  c.LastName,
		Email:     c.Email,
		Phone:     c.Phone,
		Notes:     c.Notes,
		CreatedAt: c.CreatedAt.Format(time.RFC3339),
	}
}

// List handles GET /api/v1/customers
func (h *CustomerHandler) List(w http.ResponseWriter, r *http.Request) {
	pagination := parsePagination(r)

	query := h.db.WithContext(r.Context()).Model(&models.Customer{})
	if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(email) LIKE ? OR phone LIKE ?",
			like, like, like, "%"+q+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to count customers"})
		return
	}

	var customers []models.Customer
	if err := query.
		Order("created_at DESC").
		Offset(pagination.Offset()).
		Limit(pagination.PerPage).
		Find(&customers).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to list customers"})
		return
	}

	response := make([]CustomerResponse, len(customers))
	for i := range customers {
		response[i] = customerToResponse(&customers[i])
	}

	writeJSON(w, http.StatusOK, dto.NewPaginatedResponse(response, total, pagination))
}

// Get handles GET /api/v1/customers/{id}
func (h *CustomerHandler) Get(w http.ResponseWriter, r *http.Request) {
	customer, ok := h.load(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, customerToResponse(customer))
}

// Create handles POST /api/v1/customers
func (h *CustomerHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CustomerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errs})
		return
	}

	customer := models.Customer{
		Name:     strings.TrimSpace(req.Name),
		LastName: strings.TrimSpace(req.LastName),
		Email:    auth.NormalizeEmail(req.Email),
		Phone:    strings.TrimSpace(req.Phone),
		Notes:    req.Notes,
	}
	if err := h.db.WithContext(r.Context()).Create(&customer).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to create customer"})
		return
	}

	writeJSON(w, http.StatusCreated, customerToResponse(&customer))
}

// Update handles PUT /api/v1/customers/{id}
func (h *CustomerHandler) Update(w http.ResponseWriter, r *http.Request) {
	customer, ok := h.load(w, r)
	if !ok {
		return
	}

	var req dto.CustomerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errs})
		return
	}

	customer.Name = strings.TrimSpace(req.Name)
	customer.LastName = strings.TrimSpace(req.LastName)
	customer.Email = auth.NormalizeEmail(req.Email)
	customer.Phone = strings.TrimSpace(req.Phone)
	customer.Notes = req.Notes

	if err := h.db.WithContext(r.Context()).Model(customer).
		Select("name", "last_name", "email", "phone", "notes").
		Updates(customer).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to update customer"})
		return
	}

	writeJSON(w, http.StatusOK, customerToResponse(customer))
}

// Delete handles DELETE /api/v1/customers/{id}. Customers are soft deleted.
func (h *CustomerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	customer, ok := h.load(w, r)
	if !ok {
		return
	}

	if err := h.db.WithContext(r.Context()).Delete(customer).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to delete customer"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *CustomerHandler) load(w http.ResponseWriter, r *http.Request) (*models.Customer, bool) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return nil, false
	}

	var customer models.Customer
	if err := h.db.WithContext(r.Context()).First(&customer, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Customer not found"})
		} else {
			writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to get customer"})
		}
		return nil, false
	}
	return &customer, true
}

func parsePagination(r *http.Request) dto.PaginationParams {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	pagination := dto.PaginationParams{Page: page, PerPage: perPage}
	pagination.Normalize()
	return pagination
}

func parseIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid ID"})
		return uuid.Nil, false
	}
	return id, true
}
