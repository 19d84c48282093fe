package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	domainPost "github.com/TMEades/solocreatorhub-ai-sub000/domains/post"
	domainSchedule "github.com/TMEades/solocreatorhub-ai-sub000/domains/schedule"
	pkgError "github.com/TMEades/solocreatorhub-ai-sub000/pkg/error"
	"github.com/TMEades/solocreatorhub-ai-sub000/pkg/recurrence"
	"github.com/TMEades/solocreatorhub-ai-sub000/repository"
	"github.com/TMEades/solocreatorhub-ai-sub000/validations"
)

// servicePost coordinates the post lifecycle across the ContentStore and the
// ScheduleStore. The two engines cannot commit together, so writes follow a
// saga: content first, then the schedule transaction, then the schedule ref
// patched back onto the content record.
type servicePost struct {
	content  repository.IContentRepository
	schedule repository.IScheduleRepository

	// optimisticStatus restores the legacy ordering where the content record
	// claims "scheduled" before the ScheduleStore commit. The conservative
	// default keeps it "draft" until the patch-back succeeds, shrinking the
	// window in which the record lies about its scheduling state.
	optimisticStatus bool
}

func NewPostService(content repository.IContentRepository, schedule repository.IScheduleRepository, optimisticStatus bool) domainPost.IPostUsecase {
	return &servicePost{
		content:          content,
		schedule:         schedule,
		optimisticStatus: optimisticStatus,
	}
}

func (service *servicePost) Create(ctx context.Context, ownerID string, request domainPost.CreatePostRequest) (domainPost.PostView, error) {
	if err := validations.ValidateCreatePost(ctx, request); err != nil {
		return domainPost.PostView{}, err
	}

	now := time.Now().UTC()
	wantsSchedule := request.FiresAt != nil

	initialStatus := domainPost.PostStatusDraft
	if wantsSchedule && service.optimisticStatus {
		initialStatus = domainPost.PostStatusScheduled
	}

	p := domainPost.Post{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Content:   request.Content,
		Platforms: request.Platforms,
		Hashtags:  request.Hashtags,
		MediaURLs: request.MediaURLs,
		Status:    initialStatus,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := service.content.Create(ctx, p); err != nil {
		return domainPost.PostView{}, err
	}

	if !wantsSchedule {
		return service.buildView(p, nil, nil, nil), nil
	}

	sp, pattern, next := service.materializeSchedule(p, *request.FiresAt, request.Recurrence, now)

	if err := service.schedule.CreateWithRecurrence(ctx, sp, pattern, next); err != nil {
		logrus.WithError(err).Errorf("[COORDINATOR] Schedule transaction failed for content %s (schedule %s); content record left for manual reconciliation", p.ID, sp.ID)
		return domainPost.PostView{}, pkgError.StoreTransactionError(fmt.Sprintf("failed to persist schedule: %v", err))
	}
	if next != nil {
		sp.NextOccurrenceID = next.ID
	}

	if err := service.content.PatchScheduleRef(ctx, p.ID, sp.ID, domainPost.PostStatusScheduled); err != nil {
		logrus.WithError(err).Errorf("[COORDINATOR] Failed to patch schedule ref onto content %s (schedule %s)", p.ID, sp.ID)
		return domainPost.PostView{}, pkgError.StoreTransactionError(fmt.Sprintf("schedule committed but content patch failed: %v", err))
	}
	p.Status = domainPost.PostStatusScheduled
	p.ScheduleRef = sp.ID

	return service.buildView(p, &sp, pattern, next), nil
}

func (service *servicePost) Update(ctx context.Context, ownerID, postID string, request domainPost.UpdatePostRequest) (domainPost.PostView, error) {
	if err := validations.ValidateUpdatePost(ctx, request); err != nil {
		return domainPost.PostView{}, err
	}

	p, err := service.content.GetByID(ctx, ownerID, postID)
	if err != nil {
		if errors.Is(err, domainPost.ErrPostNotFound) {
			return domainPost.PostView{}, pkgError.NotFoundError("post not found")
		}
		return domainPost.PostView{}, err
	}

	if p.Status == domainPost.PostStatusPublished {
		return domainPost.PostView{}, pkgError.ImmutableStateError("published posts cannot be edited")
	}

	if request.Content != nil {
		p.Content = *request.Content
	}
	if request.Platforms != nil {
		p.Platforms = request.Platforms
	}
	if request.Hashtags != nil {
		p.Hashtags = request.Hashtags
	}
	if request.MediaURLs != nil {
		p.MediaURLs = request.MediaURLs
	}
	p.UpdatedAt = time.Now().UTC()

	if err := service.content.Update(ctx, p); err != nil {
		return domainPost.PostView{}, err
	}

	// Content-only edits stop here; schedule-affecting edits go through the
	// same transactional pattern as create.
	if request.FiresAt == nil && request.Recurrence == nil {
		return service.assembleOne(ctx, p), nil
	}

	if p.ScheduleRef == "" {
		return service.attachSchedule(ctx, p, request)
	}
	return service.rescheduleExisting(ctx, p, request)
}

// attachSchedule creates scheduling state for a post that had none yet.
func (service *servicePost) attachSchedule(ctx context.Context, p domainPost.Post, request domainPost.UpdatePostRequest) (domainPost.PostView, error) {
	if request.FiresAt == nil {
		return domainPost.PostView{}, pkgError.ValidationError("fires_at is required to schedule a draft post")
	}

	now := time.Now().UTC()
	sp, pattern, next := service.materializeSchedule(p, *request.FiresAt, request.Recurrence, now)

	if err := service.schedule.CreateWithRecurrence(ctx, sp, pattern, next); err != nil {
		logrus.WithError(err).Errorf("[COORDINATOR] Schedule transaction failed for content %s (schedule %s)", p.ID, sp.ID)
		return domainPost.PostView{}, pkgError.StoreTransactionError(fmt.Sprintf("failed to persist schedule: %v", err))
	}
	if next != nil {
		sp.NextOccurrenceID = next.ID
	}

	if err := service.content.PatchScheduleRef(ctx, p.ID, sp.ID, domainPost.PostStatusScheduled); err != nil {
		logrus.WithError(err).Errorf("[COORDINATOR] Failed to patch schedule ref onto content %s (schedule %s)", p.ID, sp.ID)
		return domainPost.PostView{}, pkgError.StoreTransactionError(fmt.Sprintf("schedule committed but content patch failed: %v", err))
	}
	p.Status = domainPost.PostStatusScheduled
	p.ScheduleRef = sp.ID

	return service.buildView(p, &sp, pattern, next), nil
}

// rescheduleExisting reuses the existing ScheduledPost row, replaces the
// pattern when the rule changed, and regenerates the materialized next
// occurrence so it always reflects the latest rule.
func (service *servicePost) rescheduleExisting(ctx context.Context, p domainPost.Post, request domainPost.UpdatePostRequest) (domainPost.PostView, error) {
	sp, err := service.schedule.GetByID(ctx, p.ScheduleRef)
	if err != nil {
		if errors.Is(err, domainSchedule.ErrScheduleNotFound) {
			return domainPost.PostView{}, pkgError.NotFoundError("scheduled post not found")
		}
		return domainPost.PostView{}, err
	}

	now := time.Now().UTC()
	if request.FiresAt != nil {
		sp.FiresAt = request.FiresAt.UTC()
	}
	sp.UpdatedAt = now

	var pattern *domainSchedule.RecurrencePattern
	switch {
	case request.Recurrence == nil:
		// Rule untouched; carry the existing one forward if present.
		if existing, err := service.schedule.GetPattern(ctx, sp.ID); err == nil {
			existing.UpdatedAt = now
			pattern = &existing
		} else if !errors.Is(err, domainSchedule.ErrPatternNotFound) {
			return domainPost.PostView{}, err
		}
	case request.Recurrence.Enabled:
		occurrences := 1
		if existing, err := service.schedule.GetPattern(ctx, sp.ID); err == nil {
			occurrences = existing.OccurrencesCount
		}
		pattern = patternFromRule(sp.ID, *request.Recurrence, occurrences, now)
	default:
		// Recurrence disabled: pattern and materialized successor both go.
		pattern = nil
	}

	sp.IsRecurring = pattern != nil

	var next *domainSchedule.ScheduledPost
	if pattern != nil {
		// The successor being replaced no longer counts toward the end
		// condition; the regenerated one is counted back in below.
		if sp.NextOccurrenceID != "" && pattern.OccurrencesCount > 1 {
			pattern.OccurrencesCount--
		}
		if nextAt, ok := recurrence.Next(sp.FiresAt, pattern.CalculatorPattern(), successorRef(sp.FiresAt, now)); ok {
			next = service.newOccurrence(sp, nextAt, now)
			pattern.OccurrencesCount++
		}
	}

	if err := service.schedule.UpdateSchedule(ctx, sp, pattern, next); err != nil {
		if errors.Is(err, domainSchedule.ErrScheduleNotFound) {
			return domainPost.PostView{}, pkgError.NotFoundError("scheduled post not found")
		}
		logrus.WithError(err).Errorf("[COORDINATOR] Schedule update failed for content %s (schedule %s)", p.ID, sp.ID)
		return domainPost.PostView{}, pkgError.StoreTransactionError(fmt.Sprintf("failed to update schedule: %v", err))
	}
	if next != nil {
		sp.NextOccurrenceID = next.ID
	} else {
		sp.NextOccurrenceID = ""
	}

	if p.Status != domainPost.PostStatusScheduled {
		if err := service.content.PatchScheduleRef(ctx, p.ID, sp.ID, domainPost.PostStatusScheduled); err != nil {
			logrus.WithError(err).Errorf("[COORDINATOR] Failed to patch schedule ref onto content %s (schedule %s)", p.ID, sp.ID)
			return domainPost.PostView{}, pkgError.StoreTransactionError(fmt.Sprintf("schedule committed but content patch failed: %v", err))
		}
		p.Status = domainPost.PostStatusScheduled
		p.ScheduleRef = sp.ID
	}

	return service.buildView(p, &sp, pattern, next), nil
}

func (service *servicePost) Delete(ctx context.Context, ownerID, postID string) error {
	p, err := service.content.GetByID(ctx, ownerID, postID)
	if err != nil {
		if errors.Is(err, domainPost.ErrPostNotFound) {
			return pkgError.NotFoundError("post not found")
		}
		return err
	}

	if p.Status == domainPost.PostStatusPublished {
		return pkgError.ImmutableStateError("published posts cannot be deleted")
	}

	// Schedule chain first: only after its transaction commits is the content
	// record removed, so a failure never leaves dangling schedule rows behind
	// a deleted post.
	if p.ScheduleRef != "" {
		err := service.schedule.DeleteCascade(ctx, p.ScheduleRef)
		if err != nil && !errors.Is(err, domainSchedule.ErrScheduleNotFound) {
			logrus.WithError(err).Errorf("[COORDINATOR] Cascade delete failed for content %s (schedule %s)", p.ID, p.ScheduleRef)
			return pkgError.StoreTransactionError(fmt.Sprintf("failed to delete schedule chain: %v", err))
		}
	}

	return service.content.Delete(ctx, ownerID, postID)
}

func (service *servicePost) Get(ctx context.Context, ownerID, postID string) (domainPost.PostView, error) {
	p, err := service.content.GetByID(ctx, ownerID, postID)
	if err != nil {
		if errors.Is(err, domainPost.ErrPostNotFound) {
			return domainPost.PostView{}, pkgError.NotFoundError("post not found")
		}
		return domainPost.PostView{}, err
	}
	return service.assembleOne(ctx, p), nil
}

func (service *servicePost) List(ctx context.Context, ownerID string, request domainPost.ListPostsRequest) (domainPost.ListPostsResponse, error) {
	posts, total, err := service.content.List(ctx, ownerID, request)
	if err != nil {
		return domainPost.ListPostsResponse{}, err
	}

	limit := request.Limit
	if limit < 1 {
		limit = 10
	}
	totalPages := int((total + int64(limit) - 1) / int64(limit))

	items := service.assemble(ctx, posts)
	return domainPost.ListPostsResponse{
		Items:      items,
		Total:      total,
		TotalPages: totalPages,
	}, nil
}

// --- Assembly (read side) ---

// assemble joins a page of content records with their scheduling state. A
// ScheduleStore failure degrades to views without scheduling info; it never
// fails the whole page.
func (service *servicePost) assemble(ctx context.Context, posts []domainPost.Post) []domainPost.PostView {
	refs := make([]string, 0, len(posts))
	for _, p := range posts {
		if p.ScheduleRef != "" {
			refs = append(refs, p.ScheduleRef)
		}
	}

	views := make([]domainPost.PostView, len(posts))
	if len(refs) == 0 {
		for i, p := range posts {
			views[i] = service.buildView(p, nil, nil, nil)
		}
		return views
	}

	rows, err := service.schedule.GetByIDs(ctx, refs)
	if err != nil {
		logrus.WithError(err).Warn("[ASSEMBLER] ScheduleStore unavailable; returning posts without scheduling info")
		for i, p := range posts {
			views[i] = service.buildView(p, nil, nil, nil)
		}
		return views
	}

	byID := make(map[string]domainSchedule.ScheduledPost, len(rows))
	nextIDs := make([]string, 0, len(rows))
	for _, row := range rows {
		byID[row.ID] = row
		if row.NextOccurrenceID != "" {
			nextIDs = append(nextIDs, row.NextOccurrenceID)
		}
	}

	nextByID := make(map[string]domainSchedule.ScheduledPost)
	if len(nextIDs) > 0 {
		if nextRows, err := service.schedule.GetByIDs(ctx, nextIDs); err == nil {
			for _, row := range nextRows {
				nextByID[row.ID] = row
			}
		} else {
			logrus.WithError(err).Warn("[ASSEMBLER] Failed to fetch next occurrences; omitting them")
		}
	}

	patternsBySchedule := make(map[string]domainSchedule.RecurrencePattern)
	if patterns, err := service.schedule.GetPatterns(ctx, refs); err == nil {
		for _, pat := range patterns {
			patternsBySchedule[pat.ScheduledPostID] = pat
		}
	} else {
		logrus.WithError(err).Warn("[ASSEMBLER] Failed to fetch recurrence patterns; omitting them")
	}

	for i, p := range posts {
		var sp *domainSchedule.ScheduledPost
		var pattern *domainSchedule.RecurrencePattern
		var next *domainSchedule.ScheduledPost

		if row, ok := byID[p.ScheduleRef]; ok {
			sp = &row
			if pat, ok := patternsBySchedule[row.ID]; ok {
				pattern = &pat
			}
			if nextRow, ok := nextByID[row.NextOccurrenceID]; ok {
				next = &nextRow
			}
		}
		views[i] = service.buildView(p, sp, pattern, next)
	}
	return views
}

func (service *servicePost) assembleOne(ctx context.Context, p domainPost.Post) domainPost.PostView {
	views := service.assemble(ctx, []domainPost.Post{p})
	return views[0]
}

func (service *servicePost) buildView(p domainPost.Post, sp *domainSchedule.ScheduledPost, pattern *domainSchedule.RecurrencePattern, next *domainSchedule.ScheduledPost) domainPost.PostView {
	view := domainPost.PostView{
		ID:        p.ID,
		OwnerID:   p.OwnerID,
		Content:   p.Content,
		Platforms: p.Platforms,
		Hashtags:  p.Hashtags,
		MediaURLs: p.MediaURLs,
		Status:    p.Status,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}

	if sp != nil {
		firesAt := sp.FiresAt
		view.FiresAt = &firesAt
	}
	if pattern != nil {
		view.Recurrence = &domainPost.RecurrenceRule{
			Enabled:             true,
			Frequency:           pattern.Frequency,
			Interval:            pattern.Interval,
			Weekdays:            pattern.Weekdays,
			MonthDay:            pattern.MonthDay,
			EndType:             pattern.EndType,
			EndDate:             pattern.EndDate,
			EndAfterOccurrences: pattern.EndAfterOccurrences,
		}
	}
	if next != nil {
		nextAt := next.FiresAt
		view.NextOccurrence = &nextAt
	}
	return view
}

// --- Helpers ---

// materializeSchedule builds the root ScheduledPost plus, for recurring rules,
// the pattern and exactly one next occurrence. The pattern is never expanded
// further ahead: rule edits must be able to reshape the future.
func (service *servicePost) materializeSchedule(p domainPost.Post, firesAt time.Time, rule *domainPost.RecurrenceRule, now time.Time) (domainSchedule.ScheduledPost, *domainSchedule.RecurrencePattern, *domainSchedule.ScheduledPost) {
	recurring := rule != nil && rule.Enabled

	sp := domainSchedule.ScheduledPost{
		ID:          uuid.NewString(),
		OwnerID:     p.OwnerID,
		ContentID:   p.ID,
		FiresAt:     firesAt.UTC(),
		Status:      domainSchedule.ScheduledPostStatusScheduled,
		IsRecurring: recurring,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if !recurring {
		return sp, nil, nil
	}

	pattern := patternFromRule(sp.ID, *rule, 1, now)

	var next *domainSchedule.ScheduledPost
	if nextAt, ok := recurrence.Next(sp.FiresAt, pattern.CalculatorPattern(), successorRef(sp.FiresAt, now)); ok {
		next = service.newOccurrence(sp, nextAt, now)
		// Root plus its materialized successor are occurrences #1 and #2.
		pattern.OccurrencesCount = 2
	}
	return sp, pattern, next
}

// successorRef is the reference instant for materializing a row's successor.
// A root still in the future advances relative to its own firing time; a
// past-due root advances relative to now so the series lands strictly ahead.
func successorRef(firesAt, now time.Time) time.Time {
	if firesAt.After(now) {
		return firesAt
	}
	return now
}

func (service *servicePost) newOccurrence(parent domainSchedule.ScheduledPost, firesAt time.Time, now time.Time) *domainSchedule.ScheduledPost {
	return &domainSchedule.ScheduledPost{
		ID:                uuid.NewString(),
		OwnerID:           parent.OwnerID,
		ContentID:         parent.ContentID,
		FiresAt:           firesAt,
		Status:            domainSchedule.ScheduledPostStatusScheduled,
		IsRecurring:       true,
		RecurringParentID: parent.ID,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

func patternFromRule(scheduledPostID string, rule domainPost.RecurrenceRule, occurrencesCount int, now time.Time) *domainSchedule.RecurrencePattern {
	interval := rule.Interval
	if interval < 1 {
		interval = 1
	}
	return &domainSchedule.RecurrencePattern{
		ID:                  uuid.NewString(),
		ScheduledPostID:     scheduledPostID,
		Frequency:           rule.Frequency,
		Interval:            interval,
		Weekdays:            rule.Weekdays,
		MonthDay:            rule.MonthDay,
		EndType:             rule.EndType,
		EndDate:             rule.EndDate,
		EndAfterOccurrences: rule.EndAfterOccurrences,
		OccurrencesCount:    occurrencesCount,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
}
