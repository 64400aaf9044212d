package reports

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/hugh/go-helpdesk/internal/database/models"
	"gorm.io/gorm"
)

var ErrInvalidRange = errors.New("report range must end after it starts")

const (
	UnassignedAgent = "Unassigned"
	NoDisposition   = "None"
	dayLayout       = "2006-01-02"
)

// Bucket is one group in a breakdown.
type Bucket struct {
	Key   string `json:"key"`
	Count int64  `json:"count"`
}

// Summary aggregates tickets created in [From, To).
type Summary struct {
	From          time.Time `json:"from"`
	To            time.Time `json:"to"`
	GeneratedAt   time.Time `json:"generated_at"`
	Total         int64     `json:"total"`
	ByDay         []Bucket  `json:"by_day"`
	ByAgent       []Bucket  `json:"by_agent"`
	ByStatus      []Bucket  `json:"by_status"`
	ByDisposition []Bucket  `json:"by_disposition"`
}

type Service struct {
	db  *gorm.DB
	now func() time.Time
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db, now: time.Now}
}

type ticketRow struct {
	CreatedAt     time.Time
	AssignedAgent string
	Status        models.TicketStatus
	Disposition   string
}

func (s *Service) Summary(ctx context.Context, from, to time.Time) (*Summary, error) {
	from, to = from.UTC(), to.UTC()
	if !to.After(from) {
		return nil, ErrInvalidRange
	}

	var rows []ticketRow
	err := s.db.WithContext(ctx).Model(&models.Ticket{}).
		Select("created_at", "assigned_agent", "status", "disposition").
		Where("created_at >= ? AND created_at < ?", from, to).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("loading tickets: %w", err)
	}

	byDay := map[string]int64{}
	byAgent := map[string]int64{}
	byStatus := map[string]int64{}
	byDisposition := map[string]int64{}

	for _, r := range rows {
		byDay[r.CreatedAt.UTC().Format(dayLayout)]++
		byAgent[orDefault(r.AssignedAgent, UnassignedAgent)]++
		byStatus[string(r.Status)]++
		byDisposition[orDefault(r.Disposition, NoDisposition)]++
	}

	days := buckets(byDay)
	sort.Slice(days, func(i, j int) bool { return days[i].Key < days[j].Key })

	return &Summary{
		From:          from,
		To:            to,
		GeneratedAt:   s.now().UTC(),
		Total:         int64(len(rows)),
		ByDay:         days,
		ByAgent:       byCount(buckets(byAgent)),
		ByStatus:      byCount(buckets(byStatus)),
		ByDisposition: byCount(buckets(byDisposition)),
	}, nil
}

func buckets(m map[string]int64) []Bucket {
	out := make([]Bucket, 0, len(m))
	for k, v := range m {
		out = append(out, Bucket{Key: k, Count: v})
	}
	return out
}

// byCount orders largest first, ties by key.
func byCount(b []Bucket) []Bucket {
	sort.Slice(b, func(i, j int) bool {
		if b[i].Count != b[j].Count {
			return b[i].Count > b[j].Count
		}
		return b[i].Key < b[j].Key
	})
	return b
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
