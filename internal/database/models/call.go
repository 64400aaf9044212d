package models

import (
	"time"

	"gorm.io/datatypes"
)

type CallDirection string

const (
	CallDirectionInbound  CallDirection = "INBOUND"
	CallDirectionOutbound CallDirection = "OUTBOUND"
)

type CallOutcome string

const (
	CallOutcomeAnswered  CallOutcome = "ANSWERED"
	CallOutcomeMissed    CallOutcome = "MISSED"
	CallOutcomeVoicemail CallOutcome = "VOICEMAIL"
	CallOutcomeUnknown   CallOutcome = "UNKNOWN"
)

// Call is a reconciled telephony call, unique per (provider, provider_call_id).
type Call struct {
	Base
	Provider       string         `gorm:"not null;uniqueIndex:idx_calls_provider_call" json:"provider"`
	ProviderCallID string         `gorm:"not null;uniqueIndex:idx_calls_provider_call" json:"provider_call_id"`
	FromNumber     string         `gorm:"index" json:"from_number"`
	ToNumber       string         `gorm:"index" json:"to_number"`
	Direction      CallDirection  `gorm:"not null" json:"direction"`
	StartedAt      *time.Time     `json:"started_at,omitempty"`
	EndedAt        *time.Time     `json:"ended_at,omitempty"`
	DurationSec    *int64         `json:"duration_sec,omitempty"`
	Outcome        CallOutcome    `gorm:"not null;index;default:'UNKNOWN'" json:"outcome"`
	AgentName      string         `json:"agent_name,omitempty"`
	RecordingURL   string         `json:"recording_url,omitempty"`
	Raw            datatypes.JSON `json:"raw,omitempty"`

	// Ticket derivation bookkeeping; pending calls are retried by the worker
	TicketPending  bool   `gorm:"index" json:"ticket_pending"`
	ReconcileError string `gorm:"type:text" json:"reconcile_error,omitempty"`
}

func (Call) TableName() string {
	return "calls"
}

// CounterpartNumber is the customer's side of the call.
func (c *Call) CounterpartNumber() string {
	if c.Direction == CallDirectionInbound {
		return c.FromNumber
	}
	return c.ToNumber
}
