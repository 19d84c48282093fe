package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/TMEades/solocreatorhub-ai-sub000/core/config"
	domainSchedule "github.com/TMEades/solocreatorhub-ai-sub000/domains/schedule"
	"github.com/TMEades/solocreatorhub-ai-sub000/infrastructure/valkey"
	pkgError "github.com/TMEades/solocreatorhub-ai-sub000/pkg/error"
	"github.com/TMEades/solocreatorhub-ai-sub000/pkg/recurrence"
	"github.com/TMEades/solocreatorhub-ai-sub000/repository"
)

// maxChainDepth bounds the parent walk when resolving a chain's root. Chains
// only ever hold the current and next occurrence, so anything deeper than this
// is corrupt data, not a long series.
const maxChainDepth = 64

// serviceScheduler maintains recurring chains and feeds the due-row queue the
// downstream dispatcher consumes. It persists in the ScheduleStore and uses
// Valkey for the queue ZSET plus the cross-node promoter lock.
type serviceScheduler struct {
	schedule     repository.IScheduleRepository
	valkeyClient *valkey.Client
	cfg          config.SchedulerConfig
}

func NewSchedulerService(schedule repository.IScheduleRepository, vk *valkey.Client, cfg config.SchedulerConfig) domainSchedule.ISchedulerUsecase {
	return &serviceScheduler{
		schedule:     schedule,
		valkeyClient: vk,
		cfg:          cfg,
	}
}

// EnsureNextOccurrence materializes the successor of a recurring occurrence.
// It is idempotent and safe to call at any point around publish time: a row
// that already has a successor, is not recurring, or whose rule is exhausted
// produces no writes.
func (service *serviceScheduler) EnsureNextOccurrence(ctx context.Context, scheduledPostID string) error {
	sp, err := service.schedule.GetByID(ctx, scheduledPostID)
	if err != nil {
		if errors.Is(err, domainSchedule.ErrScheduleNotFound) {
			return pkgError.NotFoundError("scheduled post not found")
		}
		return err
	}

	if !sp.IsRecurring {
		return nil
	}
	if sp.NextOccurrenceID != "" {
		return nil
	}

	now := time.Now().UTC()
	if sp.FiresAt.After(now) {
		// The coordinator materializes the one-step lookahead at creation;
		// a chain only advances past a row once that row has fired. Extending
		// it earlier would stack same-window occurrences beyond current+next.
		return nil
	}

	pattern, err := service.resolveChainPattern(ctx, sp)
	if err != nil {
		if errors.Is(err, domainSchedule.ErrPatternNotFound) {
			logrus.Warnf("[SCHEDULER] Recurring row %s has no pattern on its chain; leaving chain as-is", sp.ID)
			return nil
		}
		return err
	}

	nextAt, ok := recurrence.Next(sp.FiresAt, pattern.CalculatorPattern(), now)
	if !ok {
		// Rule exhausted; the chain simply ends here.
		return nil
	}

	next := domainSchedule.ScheduledPost{
		ID:                uuid.NewString(),
		OwnerID:           sp.OwnerID,
		ContentID:         sp.ContentID,
		FiresAt:           nextAt,
		Status:            domainSchedule.ScheduledPostStatusScheduled,
		IsRecurring:       true,
		RecurringParentID: sp.ID,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	pattern.OccurrencesCount++
	pattern.UpdatedAt = now

	if err := service.schedule.AdvanceChain(ctx, sp, next, pattern); err != nil {
		return err
	}

	logrus.Infof("[SCHEDULER] Materialized occurrence %s (fires %s) after %s", next.ID, nextAt.Format(time.RFC3339), sp.ID)
	return nil
}

// UpdateStatus records a dispatcher transition (scheduled, processing,
// published, failed) on a single occurrence row.
func (service *serviceScheduler) UpdateStatus(ctx context.Context, scheduledPostID string, status domainSchedule.ScheduledPostStatus) error {
	switch status {
	case domainSchedule.ScheduledPostStatusScheduled,
		domainSchedule.ScheduledPostStatusProcessing,
		domainSchedule.ScheduledPostStatusPublished,
		domainSchedule.ScheduledPostStatusFailed:
	default:
		return pkgError.ValidationError(fmt.Sprintf("unknown schedule status %q", status))
	}

	if err := service.schedule.UpdateStatus(ctx, scheduledPostID, status); err != nil {
		if errors.Is(err, domainSchedule.ErrScheduleNotFound) {
			return pkgError.NotFoundError("scheduled post not found")
		}
		return err
	}

	logrus.Infof("[SCHEDULER] Occurrence %s moved to status %s", scheduledPostID, status)
	return nil
}

// resolveChainPattern walks RecurringParentID links up to the chain root,
// which is the only row that owns a RecurrencePattern. The visited set guards
// against cyclic links in corrupt data.
func (service *serviceScheduler) resolveChainPattern(ctx context.Context, sp domainSchedule.ScheduledPost) (domainSchedule.RecurrencePattern, error) {
	current := sp
	visited := map[string]bool{current.ID: true}

	for depth := 0; depth < maxChainDepth; depth++ {
		pattern, err := service.schedule.GetPattern(ctx, current.ID)
		if err == nil {
			return pattern, nil
		}
		if !errors.Is(err, domainSchedule.ErrPatternNotFound) {
			return domainSchedule.RecurrencePattern{}, err
		}

		if current.RecurringParentID == "" || visited[current.RecurringParentID] {
			return domainSchedule.RecurrencePattern{}, domainSchedule.ErrPatternNotFound
		}

		parent, err := service.schedule.GetByID(ctx, current.RecurringParentID)
		if err != nil {
			return domainSchedule.RecurrencePattern{}, err
		}
		visited[parent.ID] = true
		current = parent
	}
	return domainSchedule.RecurrencePattern{}, fmt.Errorf("chain rooted at %s exceeds max depth %d", sp.ID, maxChainDepth)
}

// PromoteDueRows looks LookAhead into the ScheduleStore and populates the
// Valkey due-row ZSET, keyed by firing time. A short NX lock keeps multiple
// nodes from promoting the same window concurrently; losing the lock race is
// not an error.
func (service *serviceScheduler) PromoteDueRows(ctx context.Context) error {
	if service.valkeyClient == nil {
		return nil
	}

	lockKey := service.valkeyClient.Key("lock", "scheduler", "promote")
	res := service.valkeyClient.Inner().Do(ctx, service.valkeyClient.Inner().B().Set().Key(lockKey).Value("1").Nx().Ex(55*time.Second).Build())
	if err := res.Error(); err != nil {
		if valkey.IsNil(err) {
			return nil
		}
		return err
	}

	before := time.Now().UTC().Add(service.cfg.LookAhead)
	rows, err := service.schedule.ListDue(ctx, before)
	if err != nil {
		return err
	}

	queueKey := service.valkeyClient.Key("scheduler", "due")
	for _, row := range rows {
		if row.IsRecurring {
			// Keep the chain one step ahead before the dispatcher picks the
			// row up; the call is idempotent so re-promotions are harmless.
			if err := service.EnsureNextOccurrence(ctx, row.ID); err != nil {
				logrus.WithError(err).Errorf("[SCHEDULER] Failed to extend chain for %s", row.ID)
			}
		}

		score := float64(row.FiresAt.Unix())
		if err := service.valkeyClient.Inner().Do(ctx, service.valkeyClient.Inner().B().Zadd().Key(queueKey).ScoreMember().ScoreMember(score, row.ID).Build()).Error(); err != nil {
			logrus.WithError(err).Errorf("[SCHEDULER] Failed to enqueue due row %s", row.ID)
		}
	}

	if len(rows) > 0 {
		logrus.Infof("[SCHEDULER] Promoted %d due rows into the queue", len(rows))
	}
	return nil
}

func (service *serviceScheduler) ListDue(ctx context.Context, before time.Time) ([]domainSchedule.ScheduledPost, error) {
	return service.schedule.ListDue(ctx, before)
}

// StartLoop runs the background maintenance worker: periodic promotion of due
// rows plus a slower reconcile sweep that repairs recurring rows whose
// successor was never materialized (for example after a crash between publish
// and chain extension).
func (service *serviceScheduler) StartLoop(ctx context.Context) {
	if service.valkeyClient == nil {
		logrus.Warn("[SCHEDULER] Valkey disabled; due-row promotion will not run")
	}

	go service.runWorker(ctx)
}

func (service *serviceScheduler) runWorker(ctx context.Context) {
	if err := service.PromoteDueRows(ctx); err != nil {
		logrus.WithError(err).Error("[SCHEDULER] Initial due-row promotion failed")
	}

	promoteTicker := time.NewTicker(service.cfg.PromoteInterval)
	defer promoteTicker.Stop()

	reconcileTicker := time.NewTicker(service.cfg.ReconcileInterval)
	defer reconcileTicker.Stop()

	logrus.Infof("[SCHEDULER] Maintenance worker started (promote every %s, reconcile every %s)", service.cfg.PromoteInterval, service.cfg.ReconcileInterval)

	for {
		select {
		case <-ctx.Done():
			return
		case <-promoteTicker.C:
			if err := service.PromoteDueRows(ctx); err != nil {
				logrus.WithError(err).Error("[SCHEDULER] Due-row promotion failed")
			}
		case <-reconcileTicker.C:
			service.reconcileChains(ctx)
		}
	}
}

func (service *serviceScheduler) reconcileChains(ctx context.Context) {
	rows, err := service.schedule.ListRecurringWithoutNext(ctx)
	if err != nil {
		logrus.WithError(err).Error("[SCHEDULER] Chain reconcile sweep failed")
		return
	}

	repaired := 0
	for _, row := range rows {
		if err := service.EnsureNextOccurrence(ctx, row.ID); err != nil {
			logrus.WithError(err).Errorf("[SCHEDULER] Failed to reconcile chain for %s", row.ID)
			continue
		}
		repaired++
	}
	if repaired > 0 {
		logrus.Infof("[SCHEDULER] Reconcile sweep extended %d chains", repaired)
	}
}
