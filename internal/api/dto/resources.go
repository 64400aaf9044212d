package dto

import (
	"strings"

	"github.com/google/uuid"
	"github.com/hugh/go-helpdesk/internal/api/validation"
	"github.com/hugh/go-helpdesk/internal/database/models"
	"github.com/hugh/go-helpdesk/internal/tickets"
)

type CustomerRequest struct {
	Name     string `json:"name"`
	LastName string `json:"last_name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Notes    string `json:"notes"`
}

func (r CustomerRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if strings.TrimSpace(r.Name) == "" {
		errors["name"] = "Name is required"
	}
	if r.Email != "" && !validation.IsValidEmail(strings.TrimSpace(r.Email)) {
		errors["email"] = "Invalid email format"
	}
	if r.Phone != "" && !validation.IsValidPhone(r.Phone) {
		errors["phone"] = "Invalid phone number"
	}

	return errors
}

type CreateTicketRequest struct {
	CustomerID     string                `json:"customer_id"`
	Subject        string                `json:"subject"`
	Detail         string                `json:"detail"`
	ManagementType string                `json:"management_type"`
	Source         models.TicketSource   `json:"source"`
	Priority       models.TicketPriority `json:"priority"`
	Disposition    string                `json:"disposition"`
	AssignedAgent  string                `json:"assigned_agent"`
}

func (r CreateTicketRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if _, err := uuid.Parse(r.CustomerID); err != nil {
		errors["customer_id"] = "Valid customer ID is required"
	}
	if strings.TrimSpace(r.Subject) == "" {
		errors["subject"] = "Subject is required"
	}
	switch r.Source {
	case "", models.TicketSourceManual, models.TicketSourceEmail, models.TicketSourcePhone:
	default:
		errors["source"] = "Source must be MANUAL, EMAIL or PHONE"
	}
	if r.Priority != "" && !tickets.ValidPriority(r.Priority) {
		errors["priority"] = "Invalid priority"
	}

	return errors
}

// UpdateTicketRequest applies only the fields that are present.
type UpdateTicketRequest struct {
	Subject       *string                `json:"subject,omitempty"`
	Detail        *string                `json:"detail,omitempty"`
	Status        *models.TicketStatus   `json:"status,omitempty"`
	Priority      *models.TicketPriority `json:"priority,omitempty"`
	Disposition   *string                `json:"disposition,omitempty"`
	AssignedAgent *string                `json:"assigned_agent,omitempty"`
}

func (r UpdateTicketRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.Subject != nil && strings.TrimSpace(*r.Subject) == "" {
		errors["subject"] = "Subject cannot be empty"
	}
	if r.Status != nil && !tickets.ValidStatus(*r.Status) {
		errors["status"] = "Invalid status"
	}
	if r.Priority != nil && !tickets.ValidPriority(*r.Priority) {
		errors["priority"] = "Invalid priority"
	}

	return errors
}

// Updates returns the column map for a partial update.
func (r UpdateTicketRequest) Updates() map[string]interface{} {
	updates := make(map[string]interface{})
	if r.Subject != nil {
		updates["subject"] = strings.TrimSpace(*r.Subject)
	}
	if r.Detail != nil {
		updates["detail"] = *r.Detail
	}
	if r.Status != nil {
		updates["status"] = *r.Status
	}
	if r.Priority != nil {
		updates["priority"] = *r.Priority
	}
	if r.Disposition != nil {
		updates["disposition"] = *r.Disposition
	}
	if r.AssignedAgent != nil {
		updates["assigned_agent"] = *r.AssignedAgent
	}
	return updates
}

// ExportReportRequest selects the range of a queued PDF export.
// Dates are YYYY-MM-DD; To is exclusive.
type ExportReportRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type ExportReportResponse struct {
	TaskID string `json:"task_id"`
	Queue  string `json:"queue"`
}
