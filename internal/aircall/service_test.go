package aircall_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/hugh/go-helpdesk/internal/aircall"
	"github.com/hugh/go-helpdesk/internal/database/models"
	"github.com/hugh/go-helpdesk/internal/testutil"
	"github.com/hugh/go-helpdesk/internal/tickets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	db     *gorm.DB
	svc    *aircall.Service
	system *models.User
}

func newFixture(t *testing.T, webhookToken string) *fixture {
	t.Helper()

	db := testutil.SetupTestDB(t)
	system := testutil.CreateSystemUser(t, db)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	svc := aircall.NewService(db, tickets.NewService(db), logger, aircall.Options{
		WebhookToken: webhookToken,
		SystemUserID: system.ID,
	})
	return &fixture{db: db, svc: svc, system: system}
}

func (f *fixture) calls(t *testing.T) []models.Call {
	t.Helper()
	var calls []models.Call
	require.NoError(t, f.db.Order("created_at").Find(&calls).Error)
	return calls
}

func (f *fixture) ticketRows(t *testing.T) []models.Ticket {
	t.Helper()
	var rows []models.Ticket
	require.NoError(t, f.db.Order("number").Find(&rows).Error)
	return rows
}

func (f *fixture) events(t *testing.T) []models.WebhookEvent {
	t.Helper()
	var events []models.WebhookEvent
	require.NoError(t, f.db.Order("received_at").Find(&events).Error)
	return events
}

func createdPayload(id int, direction, external string) []byte {
	return []byte(fmt.Sprintf(`{
		"resource": "call",
		"event": "call.created",
		"token": "secret",
		"data": {
			"id": %d,
			"direction": %q,
			"status": "initial",
			"raw_digits": %q,
			"number": {"digits": "+34910000000"},
			"started_at": 1709294400
		}
	}`, id, direction, external))
}

func endedPayload(id int) []byte {
	return []byte(fmt.Sprintf(`{
		"resource": "call",
		"event": "call.ended",
		"token": "secret",
		"data": {
			"id": %d,
			"status": "done",
			"answered_at": 1709294410,
			"ended_at": 1709294500,
			"duration": 100,
			"recording": "https://recordings.example/%d.mp3",
			"user": {"name": "Laura"}
		}
	}`, id, id))
}

func TestIngest_NewInboundCall(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()

	require.NoError(t, f.svc.Ingest(ctx, createdPayload(1001, "inbound", "+34600000001")))

	calls := f.calls(t)
	require.Len(t, calls, 1)
	call := calls[0]
	assert.Equal(t, aircall.Provider, call.Provider)
	assert.Equal(t, "1001", call.ProviderCallID)
	assert.Equal(t, "+34600000001", call.FromNumber)
	assert.Equal(t, "+34910000000", call.ToNumber)
	assert.Equal(t, models.CallDirectionInbound, call.Direction)
	assert.Equal(t, models.CallOutcomeUnknown, call.Outcome)
	assert.False(t, call.TicketPending)
	require.NotNil(t, call.StartedAt)
	assert.Equal(t, int64(1709294400), call.StartedAt.Unix())

	tks := f.ticketRows(t)
	require.Len(t, tks, 1)
	ticket := tks[0]
	assert.Equal(t, "#0001", ticket.Number)
	assert.Equal(t, models.TicketSourceAircallInbound, ticket.Source)
	assert.Equal(t, models.ManagementTypeCall, ticket.ManagementType)
	assert.Equal(t, f.system.ID, ticket.CreatedByUserID)
	require.NotNil(t, ticket.CallID)
	assert.Equal(t, call.ID, *ticket.CallID)
	assert.Contains(t, ticket.Subject, "Inbound")
	assert.Contains(t, ticket.Subject, "unknown")

	var customer models.Customer
	require.NoError(t, f.db.First(&customer, "id = ?", ticket.CustomerID).Error)
	assert.Equal(t, "Cliente", customer.Name)
	assert.Equal(t, "+34600000001", customer.LastName)
	assert.Equal(t, "+34600000001@temp.com", customer.Email)
	assert.Equal(t, "+34600000001", customer.Phone)

	events := f.events(t)
	require.Len(t, events, 1)
	assert.Equal(t, models.WebhookStatusProcessed, events[0].Status)
	assert.Equal(t, "call.created", events[0].EventType)
	assert.Equal(t, "1001", events[0].ProviderCallID)
	assert.NotNil(t, events[0].ProcessedAt)
	assert.JSONEq(t, string(createdPayload(1001, "inbound", "+34600000001")), events[0].Payload)
}

func TestIngest_OutboundUsesCalleeAndExistingCustomer(t *testing.T) {
	f := newFixture(t, "")
	existing := testutil.CreateTestCustomer(t, f.db, "Ana", "+34910000000")

	require.NoError(t, f.svc.Ingest(context.Background(), createdPayload(2002, "outbound", "+34600000001")))

	tks := f.ticketRows(t)
	require.Len(t, tks, 1)
	assert.Equal(t, models.TicketSourceAircallOutbound, tks[0].Source)
	assert.Equal(t, existing.ID, tks[0].CustomerID)

	var count int64
	require.NoError(t, f.db.Model(&models.Customer{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestIngest_RepeatDeliveriesUpdateSameCall(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()

	require.NoError(t, f.svc.Ingest(ctx, createdPayload(3003, "inbound", "+34600000001")))
	require.Equal(t, models.CallOutcomeUnknown, f.calls(t)[0].Outcome)

	require.NoError(t, f.svc.Ingest(ctx, endedPayload(3003)))
	require.NoError(t, f.svc.Ingest(ctx, endedPayload(3003)))

	calls := f.calls(t)
	require.Len(t, calls, 1)
	call := calls[0]
	assert.Equal(t, models.CallOutcomeAnswered, call.Outcome)
	assert.Equal(t, "Laura", call.AgentName)
	assert.Equal(t, "https://recordings.example/3003.mp3", call.RecordingURL)
	require.NotNil(t, call.DurationSec)
	assert.Equal(t, int64(100), *call.DurationSec)
	require.NotNil(t, call.EndedAt)
	assert.Equal(t, int64(1709294500), call.EndedAt.Unix())

	// Fields missing from later deliveries keep their earlier values
	assert.Equal(t, "+34600000001", call.FromNumber)
	require.NotNil(t, call.StartedAt)
	assert.Equal(t, int64(1709294400), call.StartedAt.Unix())
	assert.Equal(t, models.CallDirectionInbound, call.Direction)
	assert.Contains(t, string(call.Raw), "answered_at")

	assert.Len(t, f.ticketRows(t), 1)
	assert.Len(t, f.events(t), 3)
}

func TestIngest_FirstDeliveryIsEnded(t *testing.T) {
	f := newFixture(t, "")

	require.NoError(t, f.svc.Ingest(context.Background(), endedPayload(4004)))

	calls := f.calls(t)
	require.Len(t, calls, 1)
	assert.Equal(t, models.CallOutcomeAnswered, calls[0].Outcome)
	// No direction in the payload maps to OUTBOUND
	assert.Equal(t, models.CallDirectionOutbound, calls[0].Direction)

	tks := f.ticketRows(t)
	require.Len(t, tks, 1)
	assert.Equal(t, "Laura", tks[0].AssignedAgent)
	assert.Contains(t, tks[0].Detail, "Recording: https://recordings.example/4004.mp3")
}

func TestIngest_SequentialTicketNumbers(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, f.svc.Ingest(ctx, createdPayload(5000+i, "inbound", fmt.Sprintf("+3460000000%d", i))))
	}

	tks := f.ticketRows(t)
	require.Len(t, tks, 3)
	assert.Equal(t, "#0001", tks[0].Number)
	assert.Equal(t, "#0002", tks[1].Number)
	assert.Equal(t, "#0003", tks[2].Number)
}

func TestIngest_WithoutCallData(t *testing.T) {
	f := newFixture(t, "")

	require.NoError(t, f.svc.Ingest(context.Background(), []byte(`{"resource":"call","event":"call.created"}`)))

	assert.Empty(t, f.calls(t))
	events := f.events(t)
	require.Len(t, events, 1)
	assert.Equal(t, models.WebhookStatusProcessed, events[0].Status)
	assert.Empty(t, events[0].ProviderCallID)
}

func TestIngest_MalformedPayload(t *testing.T) {
	f := newFixture(t, "")

	err := f.svc.Ingest(context.Background(), []byte(`{"event":`))
	require.Error(t, err)

	events := f.events(t)
	require.Len(t, events, 1)
	assert.Equal(t, models.WebhookStatusFailed, events[0].Status)
	assert.Equal(t, `{"event":`, events[0].Payload)
	assert.Equal(t, err.Error(), events[0].Error)
}

func TestIngest_UnstorableBytesStillRecorded(t *testing.T) {
	f := newFixture(t, "")

	body := []byte("{\"event\":\"call.created\\u0000\",\"data\":{\"id\":8008}}\xff\x00")
	err := f.svc.Ingest(context.Background(), body)
	require.Error(t, err)

	events := f.events(t)
	require.Len(t, events, 1)
	assert.Equal(t, models.WebhookStatusFailed, events[0].Status)
	assert.True(t, utf8.ValidString(events[0].Payload))
	assert.NotContains(t, events[0].Payload, "\x00")
	assert.True(t, strings.HasPrefix(events[0].Payload, `{"event":"call.created\u0000"`))

	// Parsed fields are cleaned too
	err = f.svc.Ingest(context.Background(), []byte(`{"event":"call.created\u0000","data":{"id":8009,"direction":"inbound"}}`))
	require.NoError(t, err)
	events = f.events(t)
	require.Len(t, events, 2)
	for _, e := range events {
		assert.NotContains(t, e.EventType, "\x00")
	}
}

func TestIngest_WebhookToken(t *testing.T) {
	f := newFixture(t, "secret")
	ctx := context.Background()

	require.NoError(t, f.svc.Ingest(ctx, createdPayload(6006, "inbound", "+34600000001")))

	bad := []byte(`{"event":"call.created","token":"wrong","data":{"id":6007,"direction":"inbound"}}`)
	err := f.svc.Ingest(ctx, bad)
	assert.ErrorIs(t, err, aircall.ErrInvalidWebhookToken)

	calls := f.calls(t)
	require.Len(t, calls, 1)
	assert.Equal(t, "6006", calls[0].ProviderCallID)

	events := f.events(t)
	require.Len(t, events, 2)
	assert.Equal(t, models.WebhookStatusFailed, events[1].Status)
	assert.Equal(t, "6007", events[1].ProviderCallID)
}

func TestDerivationFailure_LeftPendingAndReconciled(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()

	// Pin the counter under an existing number so the first derivation collides
	customer := testutil.CreateTestCustomer(t, f.db, "Ana", "+34000000000")
	blocker := testutil.CreateTestTicket(t, f.db, customer.ID, f.system.ID, "#0001", models.TicketStatusOpen)
	require.NoError(t, f.db.Create(&models.Sequence{Name: tickets.NumberSequence, Value: 0}).Error)

	// The webhook still succeeds
	require.NoError(t, f.svc.Ingest(ctx, createdPayload(7007, "inbound", "+34600000001")))

	calls := f.calls(t)
	require.Len(t, calls, 1)
	assert.True(t, calls[0].TicketPending)
	assert.NotEmpty(t, calls[0].ReconcileError)
	assert.Equal(t, models.WebhookStatusProcessed, f.events(t)[0].Status)

	// Still blocked
	n, err := f.svc.ReconcilePending(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	require.NoError(t, f.db.Unscoped().Delete(blocker).Error)

	n, err = f.svc.ReconcilePending(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	calls = f.calls(t)
	assert.False(t, calls[0].TicketPending)
	assert.Empty(t, calls[0].ReconcileError)

	var derived models.Ticket
	require.NoError(t, f.db.Where("call_id = ?", calls[0].ID).First(&derived).Error)
	assert.Equal(t, "#0001", derived.Number)

	// Nothing left to do, and an existing ticket is never duplicated
	n, err = f.svc.ReconcilePending(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	require.NoError(t, f.svc.DeriveTicket(ctx, &calls[0]))
	var count int64
	require.NoError(t, f.db.Model(&models.Ticket{}).Where("call_id = ?", calls[0].ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
