package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/hibiken/asynq"
	"github.com/hugh/go-helpdesk/internal/api/dto"
	"github.com/hugh/go-helpdesk/internal/api/middleware"
	"github.com/hugh/go-helpdesk/internal/reports"
	"github.com/hugh/go-helpdesk/internal/tasks"
)

const (
	dateLayout        = "2006-01-02"
	defaultReportDays = 30
)

// TaskEnqueuer is satisfied by *asynq.Client.
type TaskEnqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

type ReportHandler struct {
	reports *reports.Service
	queue   TaskEnqueuer
	logger  *slog.Logger
	now     func() time.Time
}

// NewReportHandler accepts a nil queue; exports then answer 503.
func NewReportHandler(reports *reports.Service, queue TaskEnqueuer, logger *slog.Logger) *ReportHandler {
	return &ReportHandler{reports: reports, queue: queue, logger: logger, now: time.Now}
}

// Tickets handles GET /api/v1/reports/tickets?from=YYYY-MM-DD&to=YYYY-MM-DD
func (h *ReportHandler) Tickets(w http.ResponseWriter, r *http.Request) {
	summary, ok := h.summary(w, r, r.URL.Query().Get("from"), r.URL.Query().Get("to"))
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// TicketsPDF handles GET /api/v1/reports/tickets.pdf
func (h *ReportHandler) TicketsPDF(w http.ResponseWriter, r *http.Request) {
	summary, ok := h.summary(w, r, r.URL.Query().Get("from"), r.URL.Query().Get("to"))
	if !ok {
		return
	}

	data, err := reports.RenderPDF(summary)
	if err != nil {
		h.logger.Error("rendering ticket report", "error", err)
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to render report"})
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, reports.FileName(summary)))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// Export handles POST /api/v1/reports/tickets/export
func (h *ReportHandler) Export(w http.ResponseWriter, r *http.Request) {
	if h.queue == nil {
		writeJSON(w, http.StatusServiceUnavailable, dto.ErrorResponse{Error: "Background queue unavailable"})
		return
	}

	var req dto.ExportReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	from, to, err := h.parseRange(req.From, req.To)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}

	task, err := tasks.NewTicketsReportTask(tasks.TicketsReportPayload{
		From:        from,
		To:          to,
		RequestedBy: middleware.GetUserID(r.Context()).String(),
	})
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to create task"})
		return
	}

	info, err := h.queue.Enqueue(task)
	if err != nil {
		h.logger.Error("enqueueing ticket report", "error", err)
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to enqueue report"})
		return
	}

	writeJSON(w, http.StatusAccepted, dto.ExportReportResponse{TaskID: info.ID, Queue: info.Queue})
}

func (h *ReportHandler) summary(w http.ResponseWriter, r *http.Request, fromStr, toStr string) (*reports.Summary, bool) {
	from, to, err := h.parseRange(fromStr, toStr)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return nil, false
	}

	summary, err := h.reports.Summary(r.Context(), from, to)
	if err != nil {
		if errors.Is(err, reports.ErrInvalidRange) {
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Report range must end after it starts"})
		} else {
			writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to build report"})
		}
		return nil, false
	}
	return summary, true
}

// parseRange reads inclusive YYYY-MM-DD dates and returns [from, to+1day).
// Missing bounds default to the last defaultReportDays days including today.
func (h *ReportHandler) parseRange(fromStr, toStr string) (time.Time, time.Time, error) {
	today := h.now().UTC().Truncate(24 * time.Hour)

	to := today
	if toStr != "" {
		t, err := time.Parse(dateLayout, toStr)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("to must be a YYYY-MM-DD date")
		}
		to = t
	}

	from := to.AddDate(0, 0, -(defaultReportDays - 1))
	if fromStr != "" {
		f, err := time.Parse(dateLayout, fromStr)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("from must be a YYYY-MM-DD date")
		}
		from = f
	}

	return from, to.AddDate(0, 0, 1), nil
}
