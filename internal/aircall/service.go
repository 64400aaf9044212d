package aircall

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hugh/go-helpdesk/internal/database/models"
	"github.com/hugh/go-helpdesk/internal/tickets"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const Provider = "aircall"

var ErrInvalidWebhookToken = errors.New("invalid webhook token")

// Placeholder customer fields for numbers nobody has claimed yet
const (
	placeholderName        = "Cliente"
	placeholderEmailDomain = "@temp.com"
)

type Options struct {
	// WebhookToken, when set, must match the token Aircall sends in each payload.
	WebhookToken string
	// SystemUserID is recorded as the creator of call-derived tickets.
	SystemUserID uuid.UUID
	Now          func() time.Time
}

type Service struct {
	db      *gorm.DB
	tickets *tickets.Service
	logger  *slog.Logger
	opts    Options
}

func NewService(db *gorm.DB, ticketService *tickets.Service, logger *slog.Logger, opts Options) *Service {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{db: db, tickets: ticketService, logger: logger, opts: opts}
}

// Ingest records the delivery as a WebhookEvent, reconciles it and closes the
// event as PROCESSED or FAILED. The reconciliation error, if any, is returned.
func (s *Service) Ingest(ctx context.Context, body []byte) error {
	event := models.WebhookEvent{
		Provider:   Provider,
		Payload:    storableText(string(body)),
		Status:     models.WebhookStatusReceived,
		ReceivedAt: s.opts.Now().UTC(),
	}

	hook, parseErr := ParseWebhook(body)
	if parseErr == nil {
		event.EventType = storableText(hook.Event)
		event.Token = storableText(hook.Token)
		event.ProviderCallID = storableText(hook.Data.CallID())
	}

	if err := s.db.WithContext(ctx).Create(&event).Error; err != nil {
		return fmt.Errorf("recording webhook event: %w", err)
	}

	procErr := parseErr
	if procErr == nil {
		procErr = s.checkToken(hook.Token)
	}
	if procErr == nil {
		procErr = s.ProcessCall(ctx, hook.Data, hook.Event)
	}

	s.finish(ctx, &event, procErr)
	return procErr
}

// storableText drops NUL bytes and replaces invalid UTF-8 so the value fits a
// Postgres text column.
func storableText(s string) string {
	return strings.ToValidUTF8(strings.ReplaceAll(s, "\x00", ""), "\uFFFD")
}

func (s *Service) checkToken(token string) error {
	if s.opts.WebhookToken == "" {
		return nil
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(s.opts.WebhookToken)) != 1 {
		return ErrInvalidWebhookToken
	}
	return nil
}

// finish moves the event out of RECEIVED. Events already closed are left alone.
func (s *Service) finish(ctx context.Context, event *models.WebhookEvent, procErr error) {
	updates := map[string]interface{}{
		"status":       models.WebhookStatusProcessed,
		"processed_at": s.opts.Now().UTC(),
	}
	if procErr != nil {
		updates["status"] = models.WebhookStatusFailed
		updates["error"] = storableText(procErr.Error())
	}

	res := s.db.WithContext(ctx).Model(&models.WebhookEvent{}).
		Where("id = ? AND status = ?", event.ID, models.WebhookStatusReceived).
		Updates(updates)
	if res.Error != nil {
		s.logger.Error("failed to close webhook event", "event_id", event.ID, "error", res.Error)
		return
	}
	event.Status = updates["status"].(models.WebhookStatus)
}

// ProcessCall upserts the Call for data and derives a ticket when the call is
// seen for the first time. Payloads without a call id are ignored.
func (s *Service) ProcessCall(ctx context.Context, data *CallData, eventType string) error {
	if data.CallID() == "" {
		s.logger.Warn("aircall webhook without call data", "event", eventType)
		return nil
	}

	call, created, err := s.upsertCall(ctx, data, eventType)
	if err != nil {
		return err
	}

	s.logger.Info("call reconciled",
		"provider_call_id", call.ProviderCallID,
		"event", eventType,
		"outcome", call.Outcome,
		"created", created,
	)

	if created {
		if err := s.DeriveTicket(ctx, call); err != nil {
			s.logger.Error("ticket derivation failed, call left pending",
				"call_id", call.ID, "provider_call_id", call.ProviderCallID, "error", err)
			s.markPending(ctx, call, err)
		}
	}

	return nil
}

func (s *Service) upsertCall(ctx context.Context, data *CallData, eventType string) (*models.Call, bool, error) {
	db := s.db.WithContext(ctx)
	id := data.CallID()

	call, err := s.findCall(ctx, id)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("looking up call: %w", err)
	}

	if call == nil {
		call = &models.Call{
			Provider:       Provider,
			ProviderCallID: id,
			FromNumber:     data.fromNumber(),
			ToNumber:       data.toNumber(),
			Direction:      MapDirection(data.Direction),
			Outcome:        models.CallOutcomeUnknown,
			TicketPending:  true,
		}
		applyDelivery(call, data, eventType)

		err := db.Create(call).Error
		if err == nil {
			return call, true, nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, false, fmt.Errorf("creating call: %w", err)
		}

		// A concurrent delivery inserted the row first
		call, err = s.findCall(ctx, id)
		if err != nil {
			return nil, false, fmt.Errorf("reloading call: %w", err)
		}
	}

	applyDelivery(call, data, eventType)
	if err := db.Model(call).Select(deliveryColumns).Updates(call).Error; err != nil {
		return nil, false, fmt.Errorf("updating call: %w", err)
	}
	return call, false, nil
}

func (s *Service) findCall(ctx context.Context, providerCallID string) (*models.Call, error) {
	var call models.Call
	err := s.db.WithContext(ctx).
		Where("provider = ? AND provider_call_id = ?", Provider, providerCallID).
		First(&call).Error
	if err != nil {
		return nil, err
	}
	return &call, nil
}

// deliveryColumns are the columns a repeat delivery may change. The ticket
// bookkeeping columns belong to DeriveTicket.
var deliveryColumns = []string{
	"started_at", "ended_at", "duration_sec", "outcome", "agent_name", "recording_url", "raw", "updated_at",
}

// applyDelivery overwrites the fields present in this delivery. Outcome and
// the raw snapshot are replaced on every delivery.
func applyDelivery(call *models.Call, data *CallData, eventType string) {
	if data.StartedAt != nil {
		t := time.Unix(*data.StartedAt, 0).UTC()
		call.StartedAt = &t
	}
	if data.EndedAt != nil {
		t := time.Unix(*data.EndedAt, 0).UTC()
		call.EndedAt = &t
	}
	if data.Duration != nil {
		d := *data.Duration
		call.DurationSec = &d
	}

	call.Outcome = ClassifyOutcome(data, eventType)

	if name, ok := data.agentName(); ok {
		call.AgentName = name
	}
	if data.Recording != nil && *data.Recording != "" {
		call.RecordingURL = *data.Recording
	}

	call.Raw = datatypes.JSON(data.Raw)
}

// DeriveTicket creates the ticket for a call and clears its pending flag. A
// ticket that already exists for the call counts as success.
func (s *Service) DeriveTicket(ctx context.Context, call *models.Call) error {
	exists, err := s.hasTicket(ctx, call.ID)
	if err != nil {
		return err
	}

	if !exists {
		customer, err := s.resolveCustomer(ctx, call.CounterpartNumber())
		if err != nil {
			return err
		}

		ticket := &models.Ticket{
			ManagementType:  models.ManagementTypeCall,
			Subject:         ticketSubject(call),
			Detail:          ticketDetail(call),
			Source:          ticketSource(call.Direction),
			Status:          models.TicketStatusOpen,
			Priority:        models.TicketPriorityMedium,
			AssignedAgent:   call.AgentName,
			CustomerID:      customer.ID,
			CreatedByUserID: s.opts.SystemUserID,
			CallID:          &call.ID,
		}

		if err := s.tickets.Create(ctx, ticket); err != nil {
			if !errors.Is(err, gorm.ErrDuplicatedKey) {
				return err
			}
			// Lost a race on tickets.call_id; anything else is a real failure
			if exists, lookupErr := s.hasTicket(ctx, call.ID); lookupErr != nil || !exists {
				return err
			}
		} else {
			s.logger.Info("ticket derived from call",
				"ticket_number", ticket.Number, "call_id", call.ID, "customer_id", customer.ID)
		}
	}

	updates := map[string]interface{}{"ticket_pending": false, "reconcile_error": ""}
	if err := s.db.WithContext(ctx).Model(call).Updates(updates).Error; err != nil {
		return fmt.Errorf("clearing pending flag: %w", err)
	}
	return nil
}

// ReconcilePending retries ticket derivation for calls left pending, oldest
// first. It returns how many calls were reconciled.
func (s *Service) ReconcilePending(ctx context.Context, limit int) (int, error) {
	var calls []models.Call
	if err := s.db.WithContext(ctx).
		Where("ticket_pending = ?", true).
		Order("created_at ASC").
		Limit(limit).
		Find(&calls).Error; err != nil {
		return 0, fmt.Errorf("listing pending calls: %w", err)
	}

	reconciled := 0
	for i := range calls {
		if err := ctx.Err(); err != nil {
			return reconciled, err
		}
		call := &calls[i]
		if err := s.DeriveTicket(ctx, call); err != nil {
			s.logger.Warn("pending call still unreconciled", "call_id", call.ID, "error", err)
			s.markPending(ctx, call, err)
			continue
		}
		reconciled++
	}

	return reconciled, nil
}

func (s *Service) markPending(ctx context.Context, call *models.Call, cause error) {
	updates := map[string]interface{}{"ticket_pending": true, "reconcile_error": cause.Error()}
	if err := s.db.WithContext(ctx).Model(call).Updates(updates).Error; err != nil {
		s.logger.Error("failed to record reconcile error", "call_id", call.ID, "error", err)
	}
}

func (s *Service) hasTicket(ctx context.Context, callID uuid.UUID) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Ticket{}).Where("call_id = ?", callID).Count(&count).Error; err != nil {
		return false, fmt.Errorf("checking ticket for call: %w", err)
	}
	return count > 0, nil
}

// resolveCustomer finds the customer by exact phone match or creates a
// placeholder for the number.
func (s *Service) resolveCustomer(ctx context.Context, phone string) (*models.Customer, error) {
	db := s.db.WithContext(ctx)

	if phone != "" {
		var customer models.Customer
		err := db.Where("phone = ?", phone).Order("created_at ASC").First(&customer).Error
		if err == nil {
			return &customer, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("looking up customer: %w", err)
		}
	}

	customer := &models.Customer{
		Name:     placeholderName,
		LastName: phone,
		Email:    phone + placeholderEmailDomain,
		Phone:    phone,
	}
	if err := db.Create(customer).Error; err != nil {
		return nil, fmt.Errorf("creating placeholder customer: %w", err)
	}
	return customer, nil
}

func ticketSource(d models.CallDirection) models.TicketSource {
	if d == models.CallDirectionInbound {
		return models.TicketSourceAircallInbound
	}
	return models.TicketSourceAircallOutbound
}

func ticketSubject(call *models.Call) string {
	return fmt.Sprintf("%s call - %s", directionLabel(call.Direction), outcomeLabel(call.Outcome))
}

func ticketDetail(call *models.Call) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s Aircall call %s.\n", directionLabel(call.Direction), call.ProviderCallID)
	fmt.Fprintf(&b, "From: %s\nTo: %s\n", orDash(call.FromNumber), orDash(call.ToNumber))
	fmt.Fprintf(&b, "Outcome: %s\n", outcomeLabel(call.Outcome))
	if call.DurationSec != nil {
		fmt.Fprintf(&b, "Duration: %ds\n", *call.DurationSec)
	}
	if call.AgentName != "" {
		fmt.Fprintf(&b, "Agent: %s\n", call.AgentName)
	}
	if call.RecordingURL != "" {
		fmt.Fprintf(&b, "Recording: %s\n", call.RecordingURL)
	}
	return strings.TrimRight(b.String(), "\n")
}

func directionLabel(d models.CallDirection) string {
	if d == models.CallDirectionInbound {
		return "Inbound"
	}
	return "Outbound"
}

func outcomeLabel(o models.CallOutcome) string {
	switch o {
	case models.CallOutcomeAnswered:
		return "answered"
	case models.CallOutcomeMissed:
		return "missed"
	case models.CallOutcomeVoicemail:
		return "voicemail"
	}
	return "unknown"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
