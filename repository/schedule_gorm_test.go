package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	domainSchedule "github.com/TMEades/solocreatorhub-ai-sub000/domains/schedule"
	"github.com/TMEades/solocreatorhub-ai-sub000/pkg/recurrence"
)

func newTestScheduleRepo(t *testing.T) *ScheduleGormRepository {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	repo := NewScheduleGormRepository(db)
	require.NoError(t, repo.Init(context.Background()))
	return repo
}

func dailyPattern(scheduledPostID string) domainSchedule.RecurrencePattern {
	now := time.Now().UTC()
	return domainSchedule.RecurrencePattern{
		ID:               "pat-1",
		ScheduledPostID:  scheduledPostID,
		Frequency:        recurrence.FrequencyDaily,
		Interval:         1,
		EndType:          recurrence.EndTypeNever,
		OccurrencesCount: 1,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func scheduledRow(id, contentID string, firesAt time.Time) domainSchedule.ScheduledPost {
	now := time.Now().UTC()
	return domainSchedule.ScheduledPost{
		ID:        id,
		OwnerID:   "owner-1",
		ContentID: contentID,
		FiresAt:   firesAt,
		Status:    domainSchedule.ScheduledPostStatusScheduled,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestCreateWithRecurrence_LinksChainBothWays(t *testing.T) {
	repo := newTestScheduleRepo(t)
	ctx := context.Background()

	firesAt := time.Now().UTC().Add(time.Hour)
	root := scheduledRow("sp-root", "content-1", firesAt)
	root.IsRecurring = true

	next := scheduledRow("sp-next", "content-1", firesAt.AddDate(0, 0, 1))
	next.IsRecurring = true

	pattern := dailyPattern(root.ID)
	require.NoError(t, repo.CreateWithRecurrence(ctx, root, &pattern, &next))

	gotRoot, err := repo.GetByID(ctx, "sp-root")
	require.NoError(t, err)
	require.Equal(t, "sp-next", gotRoot.NextOccurrenceID)
	require.Empty(t, gotRoot.RecurringParentID)

	gotNext, err := repo.GetByID(ctx, "sp-next")
	require.NoError(t, err)
	require.Equal(t, "sp-root", gotNext.RecurringParentID)
	require.Empty(t, gotNext.NextOccurrenceID)

	gotPattern, err := repo.GetPattern(ctx, "sp-root")
	require.NoError(t, err)
	require.Equal(t, recurrence.FrequencyDaily, gotPattern.Frequency)
	require.Equal(t, 1, gotPattern.OccurrencesCount)

	// Only the root owns a pattern.
	_, err = repo.GetPattern(ctx, "sp-next")
	require.ErrorIs(t, err, domainSchedule.ErrPatternNotFound)
}

func TestUpdateSchedule_ReplacesStaleNextAndPattern(t *testing.T) {
	repo := newTestScheduleRepo(t)
	ctx := context.Background()

	firesAt := time.Now().UTC().Add(time.Hour)
	root := scheduledRow("sp-root", "content-1", firesAt)
	root.IsRecurring = true
	oldNext := scheduledRow("sp-old-next", "content-1", firesAt.AddDate(0, 0, 1))
	oldNext.IsRecurring = true
	pattern := dailyPattern(root.ID)
	require.NoError(t, repo.CreateWithRecurrence(ctx, root, &pattern, &oldNext))

	// Reload so the update sees the persisted link state.
	root, err := repo.GetByID(ctx, "sp-root")
	require.NoError(t, err)
	root.FiresAt = firesAt.Add(2 * time.Hour)

	newPattern := dailyPattern(root.ID)
	newPattern.ID = "pat-2"
	newPattern.Interval = 3
	newNext := scheduledRow("sp-new-next", "content-1", root.FiresAt.AddDate(0, 0, 3))
	newNext.IsRecurring = true

	require.NoError(t, repo.UpdateSchedule(ctx, root, &newPattern, &newNext))

	// Stale successor is gone; the regenerated one is linked.
	_, err = repo.GetByID(ctx, "sp-old-next")
	require.ErrorIs(t, err, domainSchedule.ErrScheduleNotFound)

	gotRoot, err := repo.GetByID(ctx, "sp-root")
	require.NoError(t, err)
	require.Equal(t, "sp-new-next", gotRoot.NextOccurrenceID)

	gotPattern, err := repo.GetPattern(ctx, "sp-root")
	require.NoError(t, err)
	require.Equal(t, 3, gotPattern.Interval)
}

func TestUpdateSchedule_DisablingRecurrenceDropsChainState(t *testing.T) {
	repo := newTestScheduleRepo(t)
	ctx := context.Background()

	firesAt := time.Now().UTC().Add(time.Hour)
	root := scheduledRow("sp-root", "content-1", firesAt)
	root.IsRecurring = true
	next := scheduledRow("sp-next", "content-1", firesAt.AddDate(0, 0, 1))
	next.IsRecurring = true
	pattern := dailyPattern(root.ID)
	require.NoError(t, repo.CreateWithRecurrence(ctx, root, &pattern, &next))

	root, err := repo.GetByID(ctx, "sp-root")
	require.NoError(t, err)
	root.IsRecurring = false

	require.NoError(t, repo.UpdateSchedule(ctx, root, nil, nil))

	gotRoot, err := repo.GetByID(ctx, "sp-root")
	require.NoError(t, err)
	require.Empty(t, gotRoot.NextOccurrenceID)
	require.False(t, gotRoot.IsRecurring)

	_, err = repo.GetPattern(ctx, "sp-root")
	require.ErrorIs(t, err, domainSchedule.ErrPatternNotFound)
	_, err = repo.GetByID(ctx, "sp-next")
	require.ErrorIs(t, err, domainSchedule.ErrScheduleNotFound)
}

func TestAdvanceChain_IsIdempotent(t *testing.T) {
	repo := newTestScheduleRepo(t)
	ctx := context.Background()

	firesAt := time.Now().UTC().Add(-time.Hour)
	root := scheduledRow("sp-root", "content-1", firesAt)
	root.IsRecurring = true
	pattern := dailyPattern(root.ID)
	require.NoError(t, repo.CreateWithRecurrence(ctx, root, &pattern, nil))

	next := scheduledRow("sp-next", "content-1", firesAt.AddDate(0, 0, 1))
	next.IsRecurring = true
	pattern.OccurrencesCount = 2

	require.NoError(t, repo.AdvanceChain(ctx, root, next, pattern))

	// A second call with a different candidate must not create another row.
	duplicate := scheduledRow("sp-duplicate", "content-1", firesAt.AddDate(0, 0, 2))
	require.NoError(t, repo.AdvanceChain(ctx, root, duplicate, pattern))

	gotRoot, err := repo.GetByID(ctx, "sp-root")
	require.NoError(t, err)
	require.Equal(t, "sp-next", gotRoot.NextOccurrenceID)

	_, err = repo.GetByID(ctx, "sp-duplicate")
	require.ErrorIs(t, err, domainSchedule.ErrScheduleNotFound)

	gotPattern, err := repo.GetPattern(ctx, "sp-root")
	require.NoError(t, err)
	require.Equal(t, 2, gotPattern.OccurrencesCount)
}

func TestDeleteCascade_RemovesWholeChain(t *testing.T) {
	repo := newTestScheduleRepo(t)
	ctx := context.Background()

	firesAt := time.Now().UTC().Add(time.Hour)
	root := scheduledRow("sp-root", "content-1", firesAt)
	root.IsRecurring = true
	next := scheduledRow("sp-next", "content-1", firesAt.AddDate(0, 0, 1))
	next.IsRecurring = true
	pattern := dailyPattern(root.ID)
	require.NoError(t, repo.CreateWithRecurrence(ctx, root, &pattern, &next))

	require.NoError(t, repo.DeleteCascade(ctx, "sp-root"))

	for _, id := range []string{"sp-root", "sp-next"} {
		_, err := repo.GetByID(ctx, id)
		require.ErrorIs(t, err, domainSchedule.ErrScheduleNotFound, "row %s should be gone", id)
	}
	_, err := repo.GetPattern(ctx, "sp-root")
	require.ErrorIs(t, err, domainSchedule.ErrPatternNotFound)

	count, err := repo.CountScheduled(ctx)
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestDeleteCascade_MidChainRowRemovesOnlyItself(t *testing.T) {
	repo := newTestScheduleRepo(t)
	ctx := context.Background()

	firesAt := time.Now().UTC().Add(time.Hour)
	root := scheduledRow("sp-root", "content-1", firesAt)
	root.IsRecurring = true
	next := scheduledRow("sp-next", "content-1", firesAt.AddDate(0, 0, 1))
	next.IsRecurring = true
	pattern := dailyPattern(root.ID)
	require.NoError(t, repo.CreateWithRecurrence(ctx, root, &pattern, &next))

	// Deleting the successor walks forward from it, so the root survives.
	require.NoError(t, repo.DeleteCascade(ctx, "sp-next"))

	_, err := repo.GetByID(ctx, "sp-next")
	require.ErrorIs(t, err, domainSchedule.ErrScheduleNotFound)

	gotRoot, err := repo.GetByID(ctx, "sp-root")
	require.NoError(t, err)
	require.Equal(t, "sp-root", gotRoot.ID)
}

func TestListDue_ReturnsScheduledRowsInOrder(t *testing.T) {
	repo := newTestScheduleRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	late := scheduledRow("sp-late", "content-1", now.Add(-time.Minute))
	early := scheduledRow("sp-early", "content-2", now.Add(-time.Hour))
	future := scheduledRow("sp-future", "content-3", now.Add(time.Hour))
	published := scheduledRow("sp-published", "content-4", now.Add(-2*time.Hour))
	published.Status = domainSchedule.ScheduledPostStatusPublished

	for _, sp := range []domainSchedule.ScheduledPost{late, early, future, published} {
		require.NoError(t, repo.CreateWithRecurrence(ctx, sp, nil, nil))
	}

	due, err := repo.ListDue(ctx, now)
	require.NoError(t, err)
	require.Len(t, due, 2)
	require.Equal(t, "sp-early", due[0].ID)
	require.Equal(t, "sp-late", due[1].ID)
}

func TestListRecurringWithoutNext_FindsBrokenChains(t *testing.T) {
	repo := newTestScheduleRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	// Published recurring row whose successor was never materialized.
	broken := scheduledRow("sp-broken", "content-1", now.Add(-time.Hour))
	broken.IsRecurring = true
	broken.Status = domainSchedule.ScheduledPostStatusPublished
	pattern := dailyPattern(broken.ID)
	require.NoError(t, repo.CreateWithRecurrence(ctx, broken, &pattern, nil))

	// Healthy chain: published but already linked forward.
	healthy := scheduledRow("sp-healthy", "content-2", now.Add(-time.Hour))
	healthy.IsRecurring = true
	healthy.Status = domainSchedule.ScheduledPostStatusPublished
	healthyNext := scheduledRow("sp-healthy-next", "content-2", now.Add(23*time.Hour))
	healthyNext.IsRecurring = true
	healthyPattern := dailyPattern(healthy.ID)
	healthyPattern.ID = "pat-healthy"
	require.NoError(t, repo.CreateWithRecurrence(ctx, healthy, &healthyPattern, &healthyNext))

	rows, err := repo.ListRecurringWithoutNext(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "sp-broken", rows[0].ID)
}

func TestUpdateStatus_TransitionsRow(t *testing.T) {
	repo := newTestScheduleRepo(t)
	ctx := context.Background()

	row := scheduledRow("sp-1", "content-1", time.Now().UTC().Add(-time.Minute))
	require.NoError(t, repo.CreateWithRecurrence(ctx, row, nil, nil))

	require.NoError(t, repo.UpdateStatus(ctx, "sp-1", domainSchedule.ScheduledPostStatusProcessing))

	got, err := repo.GetByID(ctx, "sp-1")
	require.NoError(t, err)
	require.Equal(t, domainSchedule.ScheduledPostStatusProcessing, got.Status)
}

func TestUpdateStatus_UnknownRowFails(t *testing.T) {
	repo := newTestScheduleRepo(t)

	err := repo.UpdateStatus(context.Background(), "missing", domainSchedule.ScheduledPostStatusFailed)
	require.ErrorIs(t, err, domainSchedule.ErrScheduleNotFound)
}
