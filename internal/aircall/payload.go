package aircall

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Webhook is the envelope Aircall posts for every event.
type Webhook struct {
	Resource  string `json:"resource"`
	Event     string `json:"event"`
	Timestamp *int64 `json:"timestamp"`
	Token     string `json:"token"`

	RawData json.RawMessage `json:"data"`
	Data    *CallData       `json:"-"`
}

// CallData holds the call fields consumed during reconciliation. Every field
// is optional; absent keys stay nil.
type CallData struct {
	ID               *ID             `json:"id"`
	Direction        *string         `json:"direction"`
	Status           *string         `json:"status"`
	From             *string         `json:"from"`
	To               *string         `json:"to"`
	RawDigits        *string         `json:"raw_digits"`
	Number           *Number         `json:"number"`
	StartedAt        *int64          `json:"started_at"`
	AnsweredAt       *int64          `json:"answered_at"`
	EndedAt          *int64          `json:"ended_at"`
	Duration         *int64          `json:"duration"`
	MissedCallReason *string         `json:"missed_call_reason"`
	Voicemail        json.RawMessage `json:"voicemail"`
	Recording        *string         `json:"recording"`
	User             *Person         `json:"user"`
	AssignedTo       *Person         `json:"assigned_to"`

	// Raw is the data object exactly as delivered.
	Raw json.RawMessage `json:"-"`
}

type Number struct {
	Digits *string `json:"digits"`
}

type Person struct {
	Name *string `json:"name"`
}

// ID accepts both numeric and string call ids.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("call id: %w", err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string {
	return string(id)
}

// ParseWebhook decodes an Aircall delivery. A missing or null data object
// leaves Data nil.
func ParseWebhook(body []byte) (*Webhook, error) {
	var hook Webhook
	if err := json.Unmarshal(body, &hook); err != nil {
		return nil, fmt.Errorf("decoding webhook: %w", err)
	}

	if present(hook.RawData) {
		var data CallData
		if err := json.Unmarshal(hook.RawData, &data); err != nil {
			return nil, fmt.Errorf("decoding call data: %w", err)
		}
		data.Raw = hook.RawData
		hook.Data = &data
	}

	return &hook, nil
}

// CallID returns the provider call id, or "" when the payload has none.
func (d *CallData) CallID() string {
	if d == nil || d.ID == nil {
		return ""
	}
	return d.ID.String()
}

// HasVoicemail reports a voicemail value other than null or "".
func (d *CallData) HasVoicemail() bool {
	return present(d.Voicemail) && !bytes.Equal(bytes.TrimSpace(d.Voicemail), []byte(`""`))
}

func (d *CallData) fromNumber() string {
	if d.From != nil && *d.From != "" {
		return *d.From
	}
	return deref(d.RawDigits)
}

func (d *CallData) toNumber() string {
	if d.To != nil && *d.To != "" {
		return *d.To
	}
	if d.Number != nil {
		return deref(d.Number.Digits)
	}
	return ""
}

func (d *CallData) agentName() (string, bool) {
	for _, p := range []*Person{d.User, d.AssignedTo} {
		if p != nil && p.Name != nil && *p.Name != "" {
			return *p.Name, true
		}
	}
	return "", false
}

func present(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && !bytes.Equal(raw, []byte("null"))
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

