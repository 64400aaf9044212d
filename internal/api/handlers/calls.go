package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/hugh/go-helpdesk/internal/api/dto"
	"github.com/hugh/go-helpdesk/internal/database/models"
	"gorm.io/gorm"
)

// CallHandler exposes reconciled calls and the raw webhook audit trail.
type CallHandler struct {
	db *gorm.DB
}

func NewCallHandler(db *gorm.DB) *CallHandler {
	return &CallHandler{db: db}
}

// List handles GET /api/v1/calls
func (h *CallHandler) List(w http.ResponseWriter, r *http.Request) {
	pagination := parsePagination(r)

	query := h.db.WithContext(r.Context()).Model(&models.Call{})
	if outcome := r.URL.Query().Get("outcome"); outcome != "" {
		query = query.Where("outcome = ?", strings.ToUpper(outcome))
	}
	if direction := r.URL.Query().Get("direction"); direction != "" {
		query = query.Where("direction = ?", strings.ToUpper(direction))
	}
	if r.URL.Query().Get("pending") == "true" {
		query = query.Where("ticket_pending = ?", true)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to count calls"})
		return
	}

	var calls []models.Call
	if err := query.
		Omit("raw").
		Order("created_at DESC").
		Offset(pagination.Offset()).
		Limit(pagination.PerPage).
		Find(&calls).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to list calls"})
		return
	}

	writeJSON(w, http.StatusOK, dto.NewPaginatedResponse(calls, total, pagination))
}

// Get handles GET /api/v1/calls/{id}, including the last raw payload
func (h *CallHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	var call models.Call
	if err := h.db.WithContext(r.Context()).First(&call, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Call not found"})
		} else {
			writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to get call"})
		}
		return
	}

	writeJSON(w, http.StatusOK, call)
}

// ListWebhookEvents handles GET /api/v1/webhook-events
func (h *CallHandler) ListWebhookEvents(w http.ResponseWriter, r *http.Request) {
	pagination := parsePagination(r)

	query := h.db.WithContext(r.Context()).Model(&models.WebhookEvent{})
	if status := r.URL.Query().Get("status"); status != "" {
		query = query.Where("status = ?", strings.ToUpper(status))
	}
	if callID := r.URL.Query().Get("provider_call_id"); callID != "" {
		query = query.Where("provider_call_id = ?", callID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to count webhook events"})
		return
	}

	var events []models.WebhookEvent
	if err := query.
		Order("received_at DESC").
		Offset(pagination.Offset()).
		Limit(pagination.PerPage).
		Find(&events).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to list webhook events"})
		return
	}

	writeJSON(w, http.StatusOK, dto.NewPaginatedResponse(events, total, pagination))
}
