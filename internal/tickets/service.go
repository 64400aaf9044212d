package tickets

import (
	"context"
	"fmt"

	"github.com/hugh/go-helpdesk/internal/database/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// NumberSequence names the counter row backing ticket numbers.
const NumberSequence = "ticket_number"

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// FormatNumber renders a ticket number as #NNNN.
func FormatNumber(n int64) string {
	return fmt.Sprintf("#%04d", n)
}

// Create allocates the next ticket number and inserts the ticket in the same
// transaction. A failed insert releases the number with the rollback.
func (s *Service) Create(ctx context.Context, ticket *models.Ticket) error {
	applyDefaults(ticket)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		n, err := nextValue(tx, NumberSequence)
		if err != nil {
			return err
		}
		ticket.Number = FormatNumber(n)

		if err := tx.Create(ticket).Error; err != nil {
			return fmt.Errorf("creating ticket: %w", err)
		}
		return nil
	})
}

// nextValue increments the named counter. The UPDATE holds the row lock until
// the surrounding transaction ends, so concurrent callers are serialized.
func nextValue(tx *gorm.DB, name string) (int64, error) {
	res := tx.Model(&models.Sequence{}).Where("name = ?", name).
		UpdateColumn("value", gorm.Expr("value + 1"))
	if res.Error != nil {
		return 0, fmt.Errorf("incrementing %s: %w", name, res.Error)
	}

	if res.RowsAffected == 0 {
		// First use: start after any tickets that predate the counter
		var existing int64
		if err := tx.Unscoped().Model(&models.Ticket{}).Count(&existing).Error; err != nil {
			return 0, fmt.Errorf("counting tickets: %w", err)
		}
		seed := models.Sequence{Name: name, Value: existing}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
			return 0, fmt.Errorf("seeding %s: %w", name, err)
		}
		res = tx.Model(&models.Sequence{}).Where("name = ?", name).
			UpdateColumn("value", gorm.Expr("value + 1"))
		if res.Error != nil {
			return 0, fmt.Errorf("incrementing %s: %w", name, res.Error)
		}
	}

	var seq models.Sequence
	if err := tx.Where("name = ?", name).First(&seq).Error; err != nil {
		return 0, fmt.Errorf("reading %s: %w", name, err)
	}
	return seq.Value, nil
}

func applyDefaults(t *models.Ticket) {
	if t.ManagementType == "" {
		t.ManagementType = models.ManagementTypeGeneral
	}
	if t.Status == "" {
		t.Status = models.TicketStatusOpen
	}
	if t.Priority == "" {
		t.Priority = models.TicketPriorityMedium
	}
	if t.Source == "" {
		t.Source = models.TicketSourceManual
	}
}

// ValidStatus reports whether s is a known ticket status.
func ValidStatus(s models.TicketStatus) bool {
	switch s {
	case models.TicketStatusOpen, models.TicketStatusInProgress, models.TicketStatusResolved, models.TicketStatusClosed:
		return true
	}
	return false
}

func ValidPriority(p models.TicketPriority) bool {
	switch p {
	case models.TicketPriorityLow, models.TicketPriorityMedium, models.TicketPriorityHigh, models.TicketPriorityUrgent:
		return true
	}
	return false
}

func ValidSource(s models.TicketSource) bool {
	switch s {
	case models.TicketSourceAircallInbound, models.TicketSourceAircallOutbound,
		models.TicketSourceManual, models.TicketSourceEmail, models.TicketSourcePhone:
		return true
	}
	return false
}
