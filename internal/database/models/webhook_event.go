package models

import "time"

type WebhookStatus string

const (
	WebhookStatusReceived  WebhookStatus = "RECEIVED"
	WebhookStatusProcessed WebhookStatus = "PROCESSED"
	WebhookStatusFailed    WebhookStatus = "FAILED"
)

// WebhookEvent is the append-only audit record of one provider delivery.
type WebhookEvent struct {
	Base
	Provider       string        `gorm:"not null;index" json:"provider"`
	EventType      string        `gorm:"index" json:"event_type"`
	Token          string        `json:"-"`
	ProviderCallID string        `gorm:"index" json:"provider_call_id,omitempty"`
	Payload        string        `gorm:"type:text" json:"payload"` // raw body, stored verbatim
	Status         WebhookStatus `gorm:"not null;index;default:'RECEIVED'" json:"status"`
	Error          string        `gorm:"type:text" json:"error,omitempty"`
	ReceivedAt     time.Time     `gorm:"not null" json:"received_at"`
	ProcessedAt    *time.Time    `json:"processed_at,omitempty"`
}

func (WebhookEvent) TableName() string {
	return "webhook_events"
}
