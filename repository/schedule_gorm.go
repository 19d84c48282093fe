package repository

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domainSchedule "github.com/TMEades/solocreatorhub-ai-sub000/domains/schedule"
	"github.com/TMEades/solocreatorhub-ai-sub000/pkg/recurrence"
)

// --- Persistence Models ---

type scheduledPostModel struct {
	ID                string         `gorm:"primaryKey"`
	OwnerID           string         `gorm:"column:owner_id;not null;index"`
	ContentID         string         `gorm:"column:content_id;not null;index"`
	FiresAt           time.Time      `gorm:"column:fires_at;not null;index"`
	Status            string         `gorm:"default:'scheduled';index"`
	IsRecurring       bool           `gorm:"column:is_recurring;default:false"`
	RecurringParentID sql.NullString `gorm:"column:recurring_parent_id;index"`
	NextOccurrenceID  sql.NullString `gorm:"column:next_occurrence_id"`
	CreatedAt         time.Time      `gorm:"not null"`
	UpdatedAt         time.Time      `gorm:"not null"`
}

func (scheduledPostModel) TableName() string { return "scheduled_posts" }

type recurrencePatternModel struct {
	ID                  string         `gorm:"primaryKey"`
	ScheduledPostID     string         `gorm:"column:scheduled_post_id;not null;uniqueIndex"`
	Frequency           string         `gorm:"not null"`
	Interval            int            `gorm:"default:1"`
	Weekdays            sql.NullString `gorm:"column:weekdays"` // CSV "0,1,4"
	MonthDay            int            `gorm:"column:month_day;default:0"`
	EndType             string         `gorm:"column:end_type;default:'never'"`
	EndDate             *time.Time     `gorm:"column:end_date"`
	EndAfterOccurrences int            `gorm:"column:end_after_occurrences;default:0"`
	OccurrencesCount    int            `gorm:"column:occurrences_count;default:0"`
	CreatedAt           time.Time      `gorm:"not null"`
	UpdatedAt           time.Time      `gorm:"not null"`
}

func (recurrencePatternModel) TableName() string { return "recurrence_patterns" }

// --- Repository Implementation ---

type ScheduleGormRepository struct {
	db *gorm.DB
}

func NewScheduleGormRepository(db *gorm.DB) *ScheduleGormRepository {
	return &ScheduleGormRepository{db: db}
}

func (r *ScheduleGormRepository) Init(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(
		&scheduledPostModel{},
		&recurrencePatternModel{},
	)
}

// locked applies FOR UPDATE on engines that support it. SQLite serializes
// writers through its single connection, so the clause is Postgres-only.
func (r *ScheduleGormRepository) locked(tx *gorm.DB) *gorm.DB {
	if r.db.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

func (r *ScheduleGormRepository) CreateWithRecurrence(ctx context.Context, sp domainSchedule.ScheduledPost, pattern *domainSchedule.RecurrencePattern, next *domainSchedule.ScheduledPost) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if next != nil {
			next.RecurringParentID = sp.ID
			sp.NextOccurrenceID = next.ID
		}

		rootModel := toScheduledPostModel(sp)
		if err := tx.Create(&rootModel).Error; err != nil {
			return err
		}

		if pattern != nil {
			pattern.ScheduledPostID = sp.ID
			patternModel := toRecurrencePatternModel(*pattern)
			if err := tx.Create(&patternModel).Error; err != nil {
				return err
			}
		}

		if next != nil {
			nextModel := toScheduledPostModel(*next)
			if err := tx.Create(&nextModel).Error; err != nil {
				return err
			}
		}

		return nil
	})
}

func (r *ScheduleGormRepository) GetByID(ctx context.Context, id string) (domainSchedule.ScheduledPost, error) {
	var m scheduledPostModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domainSchedule.ScheduledPost{}, domainSchedule.ErrScheduleNotFound
		}
		return domainSchedule.ScheduledPost{}, err
	}
	return fromScheduledPostModel(m), nil
}

func (r *ScheduleGormRepository) GetByIDs(ctx context.Context, ids []string) ([]domainSchedule.ScheduledPost, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var models []scheduledPostModel
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domainSchedule.ScheduledPost, len(models))
	for i, m := range models {
		res[i] = fromScheduledPostModel(m)
	}
	return res, nil
}

func (r *ScheduleGormRepository) GetPattern(ctx context.Context, scheduledPostID string) (domainSchedule.RecurrencePattern, error) {
	var m recurrencePatternModel
	if err := r.db.WithContext(ctx).First(&m, "scheduled_post_id = ?", scheduledPostID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domainSchedule.RecurrencePattern{}, domainSchedule.ErrPatternNotFound
		}
		return domainSchedule.RecurrencePattern{}, err
	}
	return fromRecurrencePatternModel(m), nil
}

func (r *ScheduleGormRepository) GetPatterns(ctx context.Context, scheduledPostIDs []string) ([]domainSchedule.RecurrencePattern, error) {
	if len(scheduledPostIDs) == 0 {
		return nil, nil
	}
	var models []recurrencePatternModel
	if err := r.db.WithContext(ctx).Where("scheduled_post_id IN ?", scheduledPostIDs).Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domainSchedule.RecurrencePattern, len(models))
	for i, m := range models {
		res[i] = fromRecurrencePatternModel(m)
	}
	return res, nil
}

func (r *ScheduleGormRepository) UpdateSchedule(ctx context.Context, sp domainSchedule.ScheduledPost, pattern *domainSchedule.RecurrencePattern, next *domainSchedule.ScheduledPost) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current scheduledPostModel
		if err := r.locked(tx).First(&current, "id = ?", sp.ID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return domainSchedule.ErrScheduleNotFound
			}
			return err
		}

		// A next occurrence materialized under the old rule is a correctness
		// bug once the rule changes; it is removed with the rule, not kept.
		if current.NextOccurrenceID.Valid {
			if err := tx.Delete(&scheduledPostModel{}, "id = ?", current.NextOccurrenceID.String).Error; err != nil {
				return err
			}
		}
		if err := tx.Delete(&recurrencePatternModel{}, "scheduled_post_id = ?", sp.ID).Error; err != nil {
			return err
		}

		sp.NextOccurrenceID = ""
		if next != nil {
			next.RecurringParentID = sp.ID
			sp.NextOccurrenceID = next.ID
		}

		rootModel := toScheduledPostModel(sp)
		rootModel.CreatedAt = current.CreatedAt
		if err := tx.Save(&rootModel).Error; err != nil {
			return err
		}

		if pattern != nil {
			pattern.ScheduledPostID = sp.ID
			patternModel := toRecurrencePatternModel(*pattern)
			if err := tx.Create(&patternModel).Error; err != nil {
				return err
			}
		}

		if next != nil {
			nextModel := toScheduledPostModel(*next)
			if err := tx.Create(&nextModel).Error; err != nil {
				return err
			}
		}

		return nil
	})
}

func (r *ScheduleGormRepository) AdvanceChain(ctx context.Context, current domainSchedule.ScheduledPost, next domainSchedule.ScheduledPost, pattern domainSchedule.RecurrencePattern) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cur scheduledPostModel
		if err := r.locked(tx).First(&cur, "id = ?", current.ID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return domainSchedule.ErrScheduleNotFound
			}
			return err
		}

		// Idempotent: a concurrent caller already materialized the successor.
		if cur.NextOccurrenceID.Valid {
			return nil
		}

		next.RecurringParentID = cur.ID
		nextModel := toScheduledPostModel(next)
		if err := tx.Create(&nextModel).Error; err != nil {
			return err
		}

		updates := map[string]interface{}{
			"next_occurrence_id": next.ID,
			"updated_at":         time.Now().UTC(),
		}
		if err := tx.Model(&scheduledPostModel{}).Where("id = ?", cur.ID).Updates(updates).Error; err != nil {
			return err
		}

		patternModel := toRecurrencePatternModel(pattern)
		return tx.Save(&patternModel).Error
	})
}

func (r *ScheduleGormRepository) DeleteCascade(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var root scheduledPostModel
		if err := r.locked(tx).First(&root, "id = ?", id).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return domainSchedule.ErrScheduleNotFound
			}
			return err
		}

		// Walk the forward chain iteratively; the visited set guards against
		// an accidental cycle in the self-references.
		visited := map[string]bool{root.ID: true}
		chainIDs := []string{root.ID}
		cursor := root
		for cursor.NextOccurrenceID.Valid {
			nextID := cursor.NextOccurrenceID.String
			if visited[nextID] {
				break
			}
			var nextRow scheduledPostModel
			if err := tx.First(&nextRow, "id = ?", nextID).Error; err != nil {
				if err == gorm.ErrRecordNotFound {
					break
				}
				return err
			}
			visited[nextID] = true
			chainIDs = append(chainIDs, nextID)
			cursor = nextRow
		}

		if err := tx.Delete(&recurrencePatternModel{}, "scheduled_post_id IN ?", chainIDs).Error; err != nil {
			return err
		}
		return tx.Delete(&scheduledPostModel{}, "id IN ?", chainIDs).Error
	})
}

func (r *ScheduleGormRepository) UpdateStatus(ctx context.Context, id string, status domainSchedule.ScheduledPostStatus) error {
	res := r.db.WithContext(ctx).Model(&scheduledPostModel{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":     string(status),
		"updated_at": time.Now().UTC(),
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domainSchedule.ErrScheduleNotFound
	}
	return nil
}

func (r *ScheduleGormRepository) ListDue(ctx context.Context, before time.Time) ([]domainSchedule.ScheduledPost, error) {
	var models []scheduledPostModel
	if err := r.db.WithContext(ctx).
		Where("status = ? AND fires_at <= ?", string(domainSchedule.ScheduledPostStatusScheduled), before).
		Order("fires_at ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domainSchedule.ScheduledPost, len(models))
	for i, m := range models {
		res[i] = fromScheduledPostModel(m)
	}
	return res, nil
}

func (r *ScheduleGormRepository) ListRecurringWithoutNext(ctx context.Context) ([]domainSchedule.ScheduledPost, error) {
	var models []scheduledPostModel
	if err := r.db.WithContext(ctx).
		Where("is_recurring = ? AND next_occurrence_id IS NULL AND status = ?",
			true, string(domainSchedule.ScheduledPostStatusPublished)).
		Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domainSchedule.ScheduledPost, len(models))
	for i, m := range models {
		res[i] = fromScheduledPostModel(m)
	}
	return res, nil
}

func (r *ScheduleGormRepository) CountScheduled(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&scheduledPostModel{}).
		Where("status = ?", string(domainSchedule.ScheduledPostStatusScheduled)).
		Count(&count).Error
	return count, err
}

// --- Mappers ---

func toScheduledPostModel(sp domainSchedule.ScheduledPost) scheduledPostModel {
	return scheduledPostModel{
		ID:                sp.ID,
		OwnerID:           sp.OwnerID,
		ContentID:         sp.ContentID,
		FiresAt:           sp.FiresAt,
		Status:            string(sp.Status),
		IsRecurring:       sp.IsRecurring,
		RecurringParentID: sql.NullString{String: sp.RecurringParentID, Valid: sp.RecurringParentID != ""},
		NextOccurrenceID:  sql.NullString{String: sp.NextOccurrenceID, Valid: sp.NextOccurrenceID != ""},
		CreatedAt:         sp.CreatedAt,
		UpdatedAt:         sp.UpdatedAt,
	}
}

func fromScheduledPostModel(m scheduledPostModel) domainSchedule.ScheduledPost {
	return domainSchedule.ScheduledPost{
		ID:                m.ID,
		OwnerID:           m.OwnerID,
		ContentID:         m.ContentID,
		FiresAt:           m.FiresAt,
		Status:            domainSchedule.ScheduledPostStatus(m.Status),
		IsRecurring:       m.IsRecurring,
		RecurringParentID: nullStringValue(m.RecurringParentID),
		NextOccurrenceID:  nullStringValue(m.NextOccurrenceID),
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}

func toRecurrencePatternModel(p domainSchedule.RecurrencePattern) recurrencePatternModel {
	return recurrencePatternModel{
		ID:                  p.ID,
		ScheduledPostID:     p.ScheduledPostID,
		Frequency:           string(p.Frequency),
		Interval:            p.Interval,
		Weekdays:            sql.NullString{String: weekdaysToCSV(p.Weekdays), Valid: len(p.Weekdays) > 0},
		MonthDay:            p.MonthDay,
		EndType:             string(p.EndType),
		EndDate:             p.EndDate,
		EndAfterOccurrences: p.EndAfterOccurrences,
		OccurrencesCount:    p.OccurrencesCount,
		CreatedAt:           p.CreatedAt,
		UpdatedAt:           p.UpdatedAt,
	}
}

func fromRecurrencePatternModel(m recurrencePatternModel) domainSchedule.RecurrencePattern {
	return domainSchedule.RecurrencePattern{
		ID:                  m.ID,
		ScheduledPostID:     m.ScheduledPostID,
		Frequency:           recurrence.Frequency(m.Frequency),
		Interval:            m.Interval,
		Weekdays:            weekdaysFromCSV(nullStringValue(m.Weekdays)),
		MonthDay:            m.MonthDay,
		EndType:             recurrence.EndType(m.EndType),
		EndDate:             m.EndDate,
		EndAfterOccurrences: m.EndAfterOccurrences,
		OccurrencesCount:    m.OccurrencesCount,
		CreatedAt:           m.CreatedAt,
		UpdatedAt:           m.UpdatedAt,
	}
}

func weekdaysToCSV(days []int) string {
	if len(days) == 0 {
		return ""
	}
	parts := make([]string, len(days))
	for i, d := range days {
		parts[i] = strconv.Itoa(d)
	}
	return strings.Join(parts, ",")
}

func weekdaysFromCSV(csv string) []int {
	if csv == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	days := make([]int, 0, len(parts))
	for _, p := range parts {
		if d, err := strconv.Atoi(strings.TrimSpace(p)); err == nil {
			days = append(days, d)
		}
	}
	return days
}

// nullStringValue returns a trimmed string or empty if null.
func nullStringValue(ns sql.NullString) string {
	if !ns.Valid {
		return ""
	}
	return strings.TrimSpace(ns.String)
}
