package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TMEades/solocreatorhub-ai-sub000/core/config"
	domainSchedule "github.com/TMEades/solocreatorhub-ai-sub000/domains/schedule"
	pkgError "github.com/TMEades/solocreatorhub-ai-sub000/pkg/error"
	"github.com/TMEades/solocreatorhub-ai-sub000/pkg/recurrence"
)

func newTestSchedulerService(schedule *fakeScheduleRepo) domainSchedule.ISchedulerUsecase {
	// Valkey is nil: chain maintenance needs only the relational store.
	return NewSchedulerService(schedule, nil, config.SchedulerConfig{
		PromoteInterval:   time.Minute,
		ReconcileInterval: 5 * time.Minute,
		LookAhead:         24 * time.Hour,
	})
}

func seedRecurringRoot(schedule *fakeScheduleRepo, id string, firesAt time.Time, pattern domainSchedule.RecurrencePattern) {
	schedule.rows[id] = domainSchedule.ScheduledPost{
		ID:          id,
		OwnerID:     "owner-1",
		ContentID:   "content-1",
		FiresAt:     firesAt,
		Status:      domainSchedule.ScheduledPostStatusPublished,
		IsRecurring: true,
	}
	pattern.ScheduledPostID = id
	schedule.patterns[id] = pattern
}

func TestEnsureNextOccurrence_MaterializesSuccessor(t *testing.T) {
	schedule := newFakeScheduleRepo()
	firesAt := time.Now().UTC().Add(-time.Hour)
	seedRecurringRoot(schedule, "sp-root", firesAt, domainSchedule.RecurrencePattern{
		ID:               "pat-1",
		Frequency:        recurrence.FrequencyDaily,
		Interval:         1,
		EndType:          recurrence.EndTypeNever,
		OccurrencesCount: 1,
	})

	svc := newTestSchedulerService(schedule)
	require.NoError(t, svc.EnsureNextOccurrence(context.Background(), "sp-root"))

	root := schedule.rows["sp-root"]
	require.NotEmpty(t, root.NextOccurrenceID)

	next, ok := schedule.rows[root.NextOccurrenceID]
	require.True(t, ok)
	assert.Equal(t, "sp-root", next.RecurringParentID)
	assert.Equal(t, "content-1", next.ContentID)
	assert.True(t, next.FiresAt.After(time.Now().UTC()))
	assert.Equal(t, domainSchedule.ScheduledPostStatusScheduled, next.Status)

	assert.Equal(t, 2, schedule.patterns["sp-root"].OccurrencesCount)
}

func TestEnsureNextOccurrence_IsIdempotent(t *testing.T) {
	schedule := newFakeScheduleRepo()
	firesAt := time.Now().UTC().Add(-time.Hour)
	seedRecurringRoot(schedule, "sp-root", firesAt, domainSchedule.RecurrencePattern{
		ID:               "pat-1",
		Frequency:        recurrence.FrequencyDaily,
		Interval:         1,
		EndType:          recurrence.EndTypeNever,
		OccurrencesCount: 1,
	})

	svc := newTestSchedulerService(schedule)
	require.NoError(t, svc.EnsureNextOccurrence(context.Background(), "sp-root"))
	firstNext := schedule.rows["sp-root"].NextOccurrenceID

	require.NoError(t, svc.EnsureNextOccurrence(context.Background(), "sp-root"))

	assert.Equal(t, firstNext, schedule.rows["sp-root"].NextOccurrenceID)
	assert.Len(t, schedule.rows, 2)
	assert.Equal(t, 2, schedule.patterns["sp-root"].OccurrencesCount, "count must not be double-bumped")
}

func TestEnsureNextOccurrence_SkipsRowsStillInTheFuture(t *testing.T) {
	schedule := newFakeScheduleRepo()
	firesAt := time.Now().UTC().Add(time.Hour)
	seedRecurringRoot(schedule, "sp-root", firesAt, domainSchedule.RecurrencePattern{
		ID:               "pat-1",
		Frequency:        recurrence.FrequencyDaily,
		Interval:         1,
		EndType:          recurrence.EndTypeNever,
		OccurrencesCount: 1,
	})

	svc := newTestSchedulerService(schedule)
	require.NoError(t, svc.EnsureNextOccurrence(context.Background(), "sp-root"))

	// The chain only advances past a row once it has fired.
	assert.Empty(t, schedule.rows["sp-root"].NextOccurrenceID)
	assert.Len(t, schedule.rows, 1)
	assert.Equal(t, 1, schedule.patterns["sp-root"].OccurrencesCount)
}

func TestEnsureNextOccurrence_EndAfterTwoYieldsExactlyTwoRows(t *testing.T) {
	schedule := newFakeScheduleRepo()
	firesAt := time.Now().UTC().Add(-25 * time.Hour)
	seedRecurringRoot(schedule, "sp-root", firesAt, domainSchedule.RecurrencePattern{
		ID:                  "pat-1",
		Frequency:           recurrence.FrequencyDaily,
		Interval:            1,
		EndType:             recurrence.EndTypeAfter,
		EndAfterOccurrences: 2,
		OccurrencesCount:    2,
	})

	// The successor materialized at creation has just fired.
	root := schedule.rows["sp-root"]
	root.NextOccurrenceID = "sp-child"
	schedule.rows["sp-root"] = root
	schedule.rows["sp-child"] = domainSchedule.ScheduledPost{
		ID:                "sp-child",
		OwnerID:           "owner-1",
		ContentID:         "content-1",
		FiresAt:           firesAt.AddDate(0, 0, 1),
		Status:            domainSchedule.ScheduledPostStatusPublished,
		IsRecurring:       true,
		RecurringParentID: "sp-root",
	}

	svc := newTestSchedulerService(schedule)
	require.NoError(t, svc.EnsureNextOccurrence(context.Background(), "sp-child"))

	// Two occurrences were asked for; a third must never appear.
	assert.Empty(t, schedule.rows["sp-child"].NextOccurrenceID)
	assert.Len(t, schedule.rows, 2)
	assert.Equal(t, 2, schedule.patterns["sp-root"].OccurrencesCount)
}

func TestEnsureNextOccurrence_NoopForNonRecurring(t *testing.T) {
	schedule := newFakeScheduleRepo()
	schedule.rows["sp-once"] = domainSchedule.ScheduledPost{
		ID:        "sp-once",
		OwnerID:   "owner-1",
		ContentID: "content-1",
		FiresAt:   time.Now().UTC().Add(-time.Hour),
		Status:    domainSchedule.ScheduledPostStatusPublished,
	}

	svc := newTestSchedulerService(schedule)
	require.NoError(t, svc.EnsureNextOccurrence(context.Background(), "sp-once"))
	assert.Len(t, schedule.rows, 1)
}

func TestEnsureNextOccurrence_ExhaustedRuleEndsChain(t *testing.T) {
	schedule := newFakeScheduleRepo()
	firesAt := time.Now().UTC().Add(-time.Hour)
	seedRecurringRoot(schedule, "sp-root", firesAt, domainSchedule.RecurrencePattern{
		ID:                  "pat-1",
		Frequency:           recurrence.FrequencyDaily,
		Interval:            1,
		EndType:             recurrence.EndTypeAfter,
		EndAfterOccurrences: 1,
		OccurrencesCount:    1,
	})

	svc := newTestSchedulerService(schedule)
	require.NoError(t, svc.EnsureNextOccurrence(context.Background(), "sp-root"))

	assert.Empty(t, schedule.rows["sp-root"].NextOccurrenceID)
	assert.Len(t, schedule.rows, 1)
}

func TestEnsureNextOccurrence_FindsPatternThroughParentWalk(t *testing.T) {
	schedule := newFakeScheduleRepo()
	firesAt := time.Now().UTC().Add(-25 * time.Hour)
	seedRecurringRoot(schedule, "sp-root", firesAt, domainSchedule.RecurrencePattern{
		ID:               "pat-1",
		Frequency:        recurrence.FrequencyDaily,
		Interval:         1,
		EndType:          recurrence.EndTypeNever,
		OccurrencesCount: 2,
	})

	// Mid-chain occurrence: owns no pattern, points back at the root.
	root := schedule.rows["sp-root"]
	root.NextOccurrenceID = "sp-child"
	schedule.rows["sp-root"] = root
	schedule.rows["sp-child"] = domainSchedule.ScheduledPost{
		ID:                "sp-child",
		OwnerID:           "owner-1",
		ContentID:         "content-1",
		FiresAt:           firesAt.AddDate(0, 0, 1),
		Status:            domainSchedule.ScheduledPostStatusPublished,
		IsRecurring:       true,
		RecurringParentID: "sp-root",
	}

	svc := newTestSchedulerService(schedule)
	require.NoError(t, svc.EnsureNextOccurrence(context.Background(), "sp-child"))

	child := schedule.rows["sp-child"]
	require.NotEmpty(t, child.NextOccurrenceID)

	grandchild := schedule.rows[child.NextOccurrenceID]
	assert.Equal(t, "sp-child", grandchild.RecurringParentID)
	assert.Equal(t, 3, schedule.patterns["sp-root"].OccurrencesCount)
}

func TestEnsureNextOccurrence_UnknownRowIs404(t *testing.T) {
	svc := newTestSchedulerService(newFakeScheduleRepo())

	err := svc.EnsureNextOccurrence(context.Background(), "nope")
	require.Error(t, err)

	genericError, ok := err.(pkgError.GenericError)
	require.True(t, ok)
	assert.Equal(t, 404, genericError.StatusCode())
}

func TestSchedulerUpdateStatus_TransitionsRow(t *testing.T) {
	schedule := newFakeScheduleRepo()
	schedule.rows["sp-1"] = domainSchedule.ScheduledPost{
		ID:      "sp-1",
		OwnerID: "owner-1",
		FiresAt: time.Now().UTC().Add(-time.Minute),
		Status:  domainSchedule.ScheduledPostStatusScheduled,
	}

	svc := newTestSchedulerService(schedule)
	require.NoError(t, svc.UpdateStatus(context.Background(), "sp-1", domainSchedule.ScheduledPostStatusProcessing))
	assert.Equal(t, domainSchedule.ScheduledPostStatusProcessing, schedule.rows["sp-1"].Status)
}

func TestSchedulerUpdateStatus_RejectsUnknownStatus(t *testing.T) {
	svc := newTestSchedulerService(newFakeScheduleRepo())

	err := svc.UpdateStatus(context.Background(), "sp-1", "archived")
	require.Error(t, err)

	genericError, ok := err.(pkgError.GenericError)
	require.True(t, ok)
	assert.Equal(t, 400, genericError.StatusCode())
}

func TestSchedulerUpdateStatus_UnknownRowIs404(t *testing.T) {
	svc := newTestSchedulerService(newFakeScheduleRepo())

	err := svc.UpdateStatus(context.Background(), "nope", domainSchedule.ScheduledPostStatusFailed)
	require.Error(t, err)

	genericError, ok := err.(pkgError.GenericError)
	require.True(t, ok)
	assert.Equal(t, 404, genericError.StatusCode())
}

func TestSchedulerListDue_DelegatesToStore(t *testing.T) {
	schedule := newFakeScheduleRepo()
	now := time.Now().UTC()
	schedule.rows["sp-due"] = domainSchedule.ScheduledPost{
		ID:      "sp-due",
		FiresAt: now.Add(-time.Minute),
		Status:  domainSchedule.ScheduledPostStatusScheduled,
	}
	schedule.rows["sp-future"] = domainSchedule.ScheduledPost{
		ID:      "sp-future",
		FiresAt: now.Add(time.Hour),
		Status:  domainSchedule.ScheduledPostStatusScheduled,
	}

	svc := newTestSchedulerService(schedule)
	due, err := svc.ListDue(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "sp-due", due[0].ID)
}
