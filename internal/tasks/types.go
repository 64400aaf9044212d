package tasks

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

// Task type names
const (
	TypeReconcileTickets = "reconcile:tickets"
	TypeTicketsReport    = "report:tickets_pdf"
)

// DefaultReconcileBatch bounds how many pending calls one run handles.
const DefaultReconcileBatch = 100

// ReconcileTicketsPayload may be empty; Limit falls back to DefaultReconcileBatch
type ReconcileTicketsPayload struct {
	Limit int `json:"limit,omitempty"`
}

func NewReconcileTicketsTask(payload ReconcileTicketsPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeReconcileTickets, data, asynq.Queue("default"), asynq.MaxRetry(3)), nil
}

// TicketsReportPayload asks for a PDF covering [From, To)
type TicketsReportPayload struct {
	From        time.Time `json:"from"`
	To          time.Time `json:"to"`
	RequestedBy string    `json:"requested_by,omitempty"`
}

func NewTicketsReportTask(payload TicketsReportPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeTicketsReport, data, asynq.Queue("low"), asynq.Timeout(5*time.Minute)), nil
}
