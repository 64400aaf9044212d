package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hugh/go-helpdesk/internal/api/dto"
	"github.com/hugh/go-helpdesk/internal/api/middleware"
	"github.com/hugh/go-helpdesk/internal/database/models"
	"gorm.io/gorm"
)

// TicketCreator allocates a ticket number and persists the ticket.
type TicketCreator interface {
	Create(ctx context.Context, ticket *models.Ticket) error
}

type TicketHandler struct {
	db      *gorm.DB
	tickets TicketCreator
}

func NewTicketHandler(db *gorm.DB, tickets TicketCreator) *TicketHandler {
	return &TicketHandler{db: db, tickets: tickets}
}

type TicketResponse struct {
	ID              string  `json:"id"`
	Number          string  `json:"number"`
	ManagementType  string  `json:"management_type"`
	Subject         string  `json:"subject"`
	Detail          string  `json:"detail,omitempty"`
	Source          string  `json:"source"`
	Status          string  `json:"status"`
	Priority        string  `json:"priority"`
	Disposition     string  `json:"disposition,omitempty"`
	AssignedAgent   string  `json:"assigned_agent,omitempty"`
	CustomerID      string  `json:"customer_id"`
	CustomerName    string  `json:"customer_name,omitempty"`
	CreatedByUserID string  `json:"created_by_user_id"`
	CallID          *string `json:"call_id,omitempty"`
	CreatedAt       string  `json:"created_at"`
	UpdatedAt       string  `json:"updated_at"`
}

func ticketToResponse(t *models.Ticket) TicketResponse {
	resp := TicketResponse{
		ID:              t.ID.String(),
		Number:          t.Number,
		ManagementType:  t.ManagementType,
		Subject:         t.Subject,
		Detail:          t.Detail,
		Source:          string(t.Source),
		Status:          string(t.Status),
		Priority:        string(t.Priority),
		Disposition:     t.Disposition,
		AssignedAgent:   t.AssignedAgent,
		CustomerID:      t.CustomerID.String(),
		CreatedByUserID: t.CreatedByUserID.String(),
		CreatedAt:       t.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       t.UpdatedAt.Format(time.RFC3339),
	}
	if t.Customer != nil {
		resp.CustomerName = strings.TrimSpace(t.Customer.Name + " " + t.Customer.LastName)
	}
	if t.CallID != nil {
		s := t.CallID.String()
		resp.CallID = &s
	}
	return resp
}

// List handles GET /api/v1/tickets
func (h *TicketHandler) List(w http.ResponseWriter, r *http.Request) {
	pagination := parsePagination(r)

	status := r.URL.Query().Get("status")
	source := r.URL.Query().Get("source")
	customerID := r.URL.Query().Get("customer_id")

	query := h.db.WithContext(r.Context()).Model(&models.Ticket{})
	if status != "" {
		query = query.Where("status = ?", strings.ToUpper(status))
	}
	if source != "" {
		query = query.Where("source = ?", strings.ToUpper(source))
	}
	if customerID != "" {
		id, err := uuid.Parse(customerID)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid customer_id"})
			return
		}
		query = query.Where("customer_id = ?", id)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to count tickets"})
		return
	}

	var rows []models.Ticket
	if err := query.
		Preload("Customer").
		Order("number DESC").
		Offset(pagination.Offset()).
		Limit(pagination.PerPage).
		Find(&rows).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to list tickets"})
		return
	}

	response := make([]TicketResponse, len(rows))
	for i := range rows {
		response[i] = ticketToResponse(&rows[i])
	}

	writeJSON(w, http.StatusOK, dto.NewPaginatedResponse(response, total, pagination))
}

// Get handles GET /api/v1/tickets/{id}
func (h *TicketHandler) Get(w http.ResponseWriter, r *http.Request) {
	ticket, ok := h.load(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, ticketToResponse(ticket))
}

// Create handles POST /api/v1/tickets. The caller becomes the creator.
func (h *TicketHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateTicketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errs})
		return
	}

	customerID := uuid.MustParse(req.CustomerID)
	var customer models.Customer
	if err := h.db.WithContext(r.Context()).First(&customer, "id = ?", customerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Customer not found"})
		} else {
			writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to get customer"})
		}
		return
	}

	ticket := &models.Ticket{
		ManagementType:  strings.ToUpper(strings.TrimSpace(req.ManagementType)),
		Subject:         strings.TrimSpace(req.Subject),
		Detail:          req.Detail,
		Source:          req.Source,
		Priority:        req.Priority,
		Disposition:     req.Disposition,
		AssignedAgent:   req.AssignedAgent,
		CustomerID:      customer.ID,
		CreatedByUserID: middleware.GetUserID(r.Context()),
	}
	if err := h.tickets.Create(r.Context(), ticket); err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to create ticket"})
		return
	}
	ticket.Customer = &customer

	writeJSON(w, http.StatusCreated, ticketToResponse(ticket))
}

// Update handles PATCH /api/v1/tickets/{id}
func (h *TicketHandler) Update(w http.ResponseWriter, r *http.Request) {
	ticket, ok := h.load(w, r)
	if !ok {
		return
	}

	var req dto.UpdateTicketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errs})
		return
	}

	if updates := req.Updates(); len(updates) > 0 {
		if err := h.db.WithContext(r.Context()).Model(ticket).Updates(updates).Error; err != nil {
			writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to update ticket"})
			return
		}
	}

	// Reload so the response reflects stored values
	ticket, ok = h.load(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, ticketToResponse(ticket))
}

func (h *TicketHandler) load(w http.ResponseWriter, r *http.Request) (*models.Ticket, bool) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return nil, false
	}

	var ticket models.Ticket
	if err := h.db.WithContext(r.Context()).Preload("Customer").First(&ticket, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Ticket not found"})
		} else {
			writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to get ticket"})
		}
		return nil, false
	}
	return &ticket, true
}
