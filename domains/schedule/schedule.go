package schedule

import (
	"context"
	"errors"
	"time"

	"github.com/TMEades/solocreatorhub-ai-sub000/pkg/recurrence"
)

var (
	ErrScheduleNotFound = errors.New("scheduled post not found")
	ErrPatternNotFound  = errors.New("recurrence pattern not found")
)

type ScheduledPostStatus string

const (
	ScheduledPostStatusScheduled  ScheduledPostStatus = "scheduled"
	ScheduledPostStatusProcessing ScheduledPostStatus = "processing"
	ScheduledPostStatusPublished  ScheduledPostStatus = "published"
	ScheduledPostStatusFailed     ScheduledPostStatus = "failed"
)

// ScheduledPost is one concrete future firing of a post. Recurring series form
// a singly linked chain via NextOccurrenceID/RecurringParentID; at most the
// current and next occurrence are materialized at any time.
type ScheduledPost struct {
	ID                string              `json:"id"`
	OwnerID           string              `json:"owner_id"`
	ContentID         string              `json:"content_id"` // back-pointer into the ContentStore
	FiresAt           time.Time           `json:"fires_at"`
	Status            ScheduledPostStatus `json:"status"`
	IsRecurring       bool                `json:"is_recurring"`
	RecurringParentID string              `json:"recurring_parent_id,omitempty"`
	NextOccurrenceID  string              `json:"next_occurrence_id,omitempty"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`
}

// RecurrencePattern is the rule governing how a ScheduledPost's series
// advances. It is owned 1:1 by its ScheduledPost and lives in the same
// relational store so rule edits and re-materialization commit together.
type RecurrencePattern struct {
	ID                  string               `json:"id"`
	ScheduledPostID     string               `json:"scheduled_post_id"`
	Frequency           recurrence.Frequency `json:"frequency"`
	Interval            int                  `json:"interval"`
	Weekdays            []int                `json:"weekdays,omitempty"`
	MonthDay            int                  `json:"month_day,omitempty"`
	EndType             recurrence.EndType   `json:"end_type"`
	EndDate             *time.Time           `json:"end_date,omitempty"`
	EndAfterOccurrences int                  `json:"end_after_occurrences,omitempty"`
	OccurrencesCount    int                  `json:"occurrences_count"`
	CreatedAt           time.Time            `json:"created_at"`
	UpdatedAt           time.Time            `json:"updated_at"`
}

// CalculatorPattern strips storage concerns off the pattern for the pure
// recurrence calculator.
func (p RecurrencePattern) CalculatorPattern() recurrence.Pattern {
	return recurrence.Pattern{
		Frequency:           p.Frequency,
		Interval:            p.Interval,
		Weekdays:            p.Weekdays,
		MonthDay:            p.MonthDay,
		EndType:             p.EndType,
		EndDate:             p.EndDate,
		EndAfterOccurrences: p.EndAfterOccurrences,
		OccurrencesCount:    p.OccurrencesCount,
	}
}

// ISchedulerUsecase maintains the due-row chain for the out-of-scope
// dispatcher: idempotent next-occurrence materialization, status transitions
// as publish attempts proceed, plus promotion of due rows into the Valkey
// queue the dispatcher consumes.
type ISchedulerUsecase interface {
	EnsureNextOccurrence(ctx context.Context, scheduledPostID string) error
	UpdateStatus(ctx context.Context, scheduledPostID string, status ScheduledPostStatus) error
	PromoteDueRows(ctx context.Context) error
	ListDue(ctx context.Context, before time.Time) ([]ScheduledPost, error)
	StartLoop(ctx context.Context)
}
