package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/hugh/go-helpdesk/internal/reports"
	"github.com/hugh/go-helpdesk/internal/storage"
)

// Reconciler retries ticket derivation for calls left pending.
type Reconciler interface {
	ReconcilePending(ctx context.Context, limit int) (int, error)
}

type Handler struct {
	logger     *slog.Logger
	reconciler Reconciler
	reports    *reports.Service
	store      storage.ObjectStore
	prefix     string
}

func NewHandler(logger *slog.Logger, reconciler Reconciler, reportService *reports.Service, store storage.ObjectStore, prefix string) *Handler {
	return &Handler{
		logger:     logger,
		reconciler: reconciler,
		reports:    reportService,
		store:      store,
		prefix:     prefix,
	}
}

func (h *Handler) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeReconcileTickets, h.HandleReconcileTickets)
	mux.HandleFunc(TypeTicketsReport, h.HandleTicketsReport)
}

func (h *Handler) HandleReconcileTickets(ctx context.Context, t *asynq.Task) error {
	var payload ReconcileTicketsPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("unmarshal payload: %w", err)
		}
	}
	if payload.Limit <= 0 {
		payload.Limit = DefaultReconcileBatch
	}

	reconciled, err := h.reconciler.ReconcilePending(ctx, payload.Limit)
	if err != nil {
		h.logger.Error("ticket reconciliation failed", "error", err, "reconciled", reconciled)
		return err
	}

	if reconciled > 0 {
		h.logger.Info("reconciled pending calls", "reconciled", reconciled)
	}
	return nil
}

func (h *Handler) HandleTicketsReport(ctx context.Context, t *asynq.Task) error {
	var payload TicketsReportPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	summary, err := h.reports.Summary(ctx, payload.From, payload.To)
	if errors.Is(err, reports.ErrInvalidRange) {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	if err != nil {
		return fmt.Errorf("building summary: %w", err)
	}

	pdf, err := reports.RenderPDF(summary)
	if err != nil {
		return err
	}

	key := storage.ObjectKey(h.prefix, reports.FileName(summary))
	location, err := h.store.Put(ctx, key, "application/pdf", pdf)
	if err != nil {
		h.logger.Error("failed to store report", "key", key, "error", err)
		return err
	}

	h.logger.Info("ticket report stored",
		"location", location,
		"tickets", summary.Total,
		"requested_by", payload.RequestedBy,
	)
	return nil
}
