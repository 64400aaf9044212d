package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/hugh/go-helpdesk/internal/api/dto"
)

const maxWebhookBody = 1 << 20

// Ingester records and reconciles one provider delivery.
type Ingester interface {
	Ingest(ctx context.Context, body []byte) error
}

type WebhookHandler struct {
	aircall Ingester
	logger  *slog.Logger
}

func NewWebhookHandler(aircall Ingester, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{aircall: aircall, logger: logger}
}

// Aircall handles POST /webhooks/aircall. Failures are reported in the body
// with status 200 so the provider never redelivers.
func (h *WebhookHandler) Aircall(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		writeJSON(w, http.StatusOK, dto.WebhookResponse{Success: false, Error: "reading body: " + err.Error()})
		return
	}

	if err := h.aircall.Ingest(r.Context(), body); err != nil {
		h.logger.Warn("aircall webhook failed", "error", err)
		writeJSON(w, http.StatusOK, dto.WebhookResponse{Success: false, Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, dto.WebhookResponse{Success: true})
}
