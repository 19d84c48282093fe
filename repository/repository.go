package repository

import (
	"context"
	"time"

	domainPost "github.com/TMEades/solocreatorhub-ai-sub000/domains/post"
	domainSchedule "github.com/TMEades/solocreatorhub-ai-sub000/domains/schedule"
)

// IContentRepository is the ContentStore: flexible post documents with no
// scheduling knowledge beyond the schedule_ref back-pointer. All operations
// are single-document; there is no cross-document transaction here.
type IContentRepository interface {
	Create(ctx context.Context, p domainPost.Post) error
	GetByID(ctx context.Context, ownerID, id string) (domainPost.Post, error)
	Update(ctx context.Context, p domainPost.Post) error
	PatchScheduleRef(ctx context.Context, id, scheduleRef string, status domainPost.PostStatus) error
	Delete(ctx context.Context, ownerID, id string) error
	List(ctx context.Context, ownerID string, filter domainPost.ListPostsRequest) ([]domainPost.Post, int64, error)
}

// IScheduleRepository is the ScheduleStore: relational rows with transactional
// integrity. Every multi-row mutation happens inside a single transaction, and
// rows being mutated are locked for update within it.
type IScheduleRepository interface {
	Init(ctx context.Context) error

	CreateWithRecurrence(ctx context.Context, sp domainSchedule.ScheduledPost, pattern *domainSchedule.RecurrencePattern, next *domainSchedule.ScheduledPost) error
	GetByID(ctx context.Context, id string) (domainSchedule.ScheduledPost, error)
	GetByIDs(ctx context.Context, ids []string) ([]domainSchedule.ScheduledPost, error)
	GetPattern(ctx context.Context, scheduledPostID string) (domainSchedule.RecurrencePattern, error)
	GetPatterns(ctx context.Context, scheduledPostIDs []string) ([]domainSchedule.RecurrencePattern, error)

	// UpdateSchedule replaces the schedule row's firing state, its pattern and
	// its materialized next occurrence atomically. A nil pattern removes the
	// existing one; a nil next leaves the chain without a successor.
	UpdateSchedule(ctx context.Context, sp domainSchedule.ScheduledPost, pattern *domainSchedule.RecurrencePattern, next *domainSchedule.ScheduledPost) error

	// AdvanceChain links a fresh successor to current and persists the bumped
	// occurrence count on the root's pattern. No-op when current already has a
	// successor.
	AdvanceChain(ctx context.Context, current domainSchedule.ScheduledPost, next domainSchedule.ScheduledPost, pattern domainSchedule.RecurrencePattern) error

	// DeleteCascade removes the row, its pattern, and, for a recurring root,
	// every row reachable through the forward chain, in one transaction.
	DeleteCascade(ctx context.Context, id string) error

	UpdateStatus(ctx context.Context, id string, status domainSchedule.ScheduledPostStatus) error
	ListDue(ctx context.Context, before time.Time) ([]domainSchedule.ScheduledPost, error)
	ListRecurringWithoutNext(ctx context.Context) ([]domainSchedule.ScheduledPost, error)
	CountScheduled(ctx context.Context) (int64, error)
}
