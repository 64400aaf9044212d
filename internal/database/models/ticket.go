package models

import "github.com/google/uuid"

type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "OPEN"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusResolved   TicketStatus = "RESOLVED"
	TicketStatusClosed     TicketStatus = "CLOSED"
)

type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "LOW"
	TicketPriorityMedium TicketPriority = "MEDIUM"
	TicketPriorityHigh   TicketPriority = "HIGH"
	TicketPriorityUrgent TicketPriority = "URGENT"
)

type TicketSource string

const (
	TicketSourceAircallInbound  TicketSource = "AIRCALL_INBOUND"
	TicketSourceAircallOutbound TicketSource = "AIRCALL_OUTBOUND"
	TicketSourceManual          TicketSource = "MANUAL"
	TicketSourceEmail           TicketSource = "EMAIL"
	TicketSourcePhone           TicketSource = "PHONE"
)

// Management types
const (
	ManagementTypeCall    = "CALL"
	ManagementTypeGeneral = "GENERAL"
)

type Ticket struct {
	Base
	Number         string         `gorm:"uniqueIndex;not null" json:"number"` // #0001
	ManagementType string         `gorm:"not null;default:'GENERAL'" json:"management_type"`
	Subject        string         `gorm:"not null" json:"subject"`
	Detail         string         `gorm:"type:text" json:"detail,omitempty"`
	Source         TicketSource   `gorm:"not null;index" json:"source"`
	Status         TicketStatus   `gorm:"not null;index;default:'OPEN'" json:"status"`
	Priority       TicketPriority `gorm:"not null;default:'MEDIUM'" json:"priority"`
	Disposition    string         `gorm:"index" json:"disposition,omitempty"`
	AssignedAgent  string         `gorm:"index" json:"assigned_agent,omitempty"`

	CustomerID      uuid.UUID  `gorm:"type:uuid;index;not null" json:"customer_id"`
	CreatedByUserID uuid.UUID  `gorm:"type:uuid;index;not null" json:"created_by_user_id"`
	CallID          *uuid.UUID `gorm:"type:uuid;uniqueIndex" json:"call_id,omitempty"` // at most one ticket per call

	// Relationships
	Customer *Customer `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
}

func (Ticket) TableName() string {
	return "tickets"
}

// Sequence is a named monotonically increasing counter.
type Sequence struct {
	Name  string `gorm:"primaryKey"`
	Value int64  `gorm:"not null"`
}

func (Sequence) TableName() string {
	return "sequences"
}
