package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/hugh/go-helpdesk/internal/reports"
	"github.com/hugh/go-helpdesk/internal/storage"
	"github.com/hugh/go-helpdesk/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReconciler struct {
	limit int
	count int
	err   error
}

func (f *fakeReconciler) ReconcilePending(ctx context.Context, limit int) (int, error) {
	f.limit = limit
	return f.count, f.err
}

type failingStore struct{}

func (failingStore) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	return "", errors.New("bucket unavailable")
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHandleReconcileTickets_DefaultLimit(t *testing.T) {
	rec := &fakeReconciler{count: 2}
	h := NewHandler(testLogger(), rec, nil, nil, "")

	task, err := NewReconcileTicketsTask(ReconcileTicketsPayload{})
	require.NoError(t, err)

	require.NoError(t, h.HandleReconcileTickets(context.Background(), task))
	assert.Equal(t, DefaultReconcileBatch, rec.limit)
}

func TestHandleReconcileTickets_EmptyPayload(t *testing.T) {
	rec := &fakeReconciler{}
	h := NewHandler(testLogger(), rec, nil, nil, "")

	require.NoError(t, h.HandleReconcileTickets(context.Background(), asynq.NewTask(TypeReconcileTickets, nil)))
	assert.Equal(t, DefaultReconcileBatch, rec.limit)
}

func TestHandleReconcileTickets_Errors(t *testing.T) {
	rec := &fakeReconciler{err: errors.New("db down")}
	h := NewHandler(testLogger(), rec, nil, nil, "")

	task, err := NewReconcileTicketsTask(ReconcileTicketsPayload{Limit: 5})
	require.NoError(t, err)
	assert.Error(t, h.HandleReconcileTickets(context.Background(), task))
	assert.Equal(t, 5, rec.limit)

	err = h.HandleReconcileTickets(context.Background(), asynq.NewTask(TypeReconcileTickets, []byte("invalid json")))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal payload")
}

func TestHandleTicketsReport_StoresPDF(t *testing.T) {
	setup := testutil.NewTestContext(t)
	dir := t.TempDir()
	h := NewHandler(testLogger(), nil, reports.NewService(setup.DB), storage.NewLocalStore(dir), "reports/")

	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	task, err := NewTicketsReportTask(TicketsReportPayload{From: from, To: from.Add(24 * time.Hour)})
	require.NoError(t, err)

	require.NoError(t, h.HandleTicketsReport(context.Background(), task))

	data, err := os.ReadFile(filepath.Join(dir, "reports", "tickets-2024-03-01-2024-03-02.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "%PDF-", string(data[:5]))
}

func TestHandleTicketsReport_InvalidRangeSkipsRetry(t *testing.T) {
	setup := testutil.NewTestContext(t)
	h := NewHandler(testLogger(), nil, reports.NewService(setup.DB), storage.NewLocalStore(t.TempDir()), "")

	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	task, err := NewTicketsReportTask(TicketsReportPayload{From: from, To: from})
	require.NoError(t, err)

	err = h.HandleTicketsReport(context.Background(), task)
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestHandleTicketsReport_StoreFailure(t *testing.T) {
	setup := testutil.NewTestContext(t)
	h := NewHandler(testLogger(), nil, reports.NewService(setup.DB), failingStore{}, "")

	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	task, err := NewTicketsReportTask(TicketsReportPayload{From: from, To: from.Add(time.Hour)})
	require.NoError(t, err)

	err = h.HandleTicketsReport(context.Background(), task)
	require.Error(t, err)
	assert.NotErrorIs(t, err, asynq.SkipRetry)
}

func TestTaskConstructors(t *testing.T) {
	task, err := NewReconcileTicketsTask(ReconcileTicketsPayload{Limit: 7})
	require.NoError(t, err)
	assert.Equal(t, TypeReconcileTickets, task.Type())

	var p ReconcileTicketsPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &p))
	assert.Equal(t, 7, p.Limit)

	report, err := NewTicketsReportTask(TicketsReportPayload{RequestedBy: "jane@x.com"})
	require.NoError(t, err)
	assert.Equal(t, TypeTicketsReport, report.Type())
}
