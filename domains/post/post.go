package post

import (
	"context"
	"errors"
	"time"

	"github.com/TMEades/solocreatorhub-ai-sub000/pkg/recurrence"
)

var ErrPostNotFound = errors.New("post not found")

type PostStatus string

const (
	PostStatusDraft     PostStatus = "draft"
	PostStatusScheduled PostStatus = "scheduled"
	PostStatusPublished PostStatus = "published"
	PostStatusFailed    PostStatus = "failed"
)

// Post is the content record held by the ContentStore. Scheduling state lives
// in the ScheduleStore; ScheduleRef is the only bridge between the two.
type Post struct {
	ID          string     `json:"id" bson:"_id"`
	OwnerID     string     `json:"owner_id" bson:"owner_id"`
	Content     string     `json:"content" bson:"content"`
	Platforms   []string   `json:"platforms" bson:"platforms"`
	Hashtags    []string   `json:"hashtags,omitempty" bson:"hashtags,omitempty"`
	MediaURLs   []string   `json:"media_urls,omitempty" bson:"media_urls,omitempty"`
	Status      PostStatus `json:"status" bson:"status"`
	ScheduleRef string     `json:"schedule_ref,omitempty" bson:"schedule_ref,omitempty"`
	CreatedAt   time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" bson:"updated_at"`
}

// RecurrenceRule is the wire shape of a recurrence rule on create/update.
type RecurrenceRule struct {
	Enabled             bool                 `json:"enabled"`
	Frequency           recurrence.Frequency `json:"frequency"`
	Interval            int                  `json:"interval"`
	Weekdays            []int                `json:"weekdays,omitempty"`
	MonthDay            int                  `json:"month_day,omitempty"`
	EndType             recurrence.EndType   `json:"end_type"`
	EndDate             *time.Time           `json:"end_date,omitempty"`
	EndAfterOccurrences int                  `json:"end_after_occurrences,omitempty"`
}

type CreatePostRequest struct {
	Content    string          `json:"content"`
	Platforms  []string        `json:"platforms"`
	Hashtags   []string        `json:"hashtags,omitempty"`
	MediaURLs  []string        `json:"media_urls,omitempty"`
	FiresAt    *time.Time      `json:"fires_at,omitempty"`
	Recurrence *RecurrenceRule `json:"recurrence,omitempty"`
}

// UpdatePostRequest carries a partial patch; nil fields are left untouched.
type UpdatePostRequest struct {
	Content    *string         `json:"content,omitempty"`
	Platforms  []string        `json:"platforms,omitempty"`
	Hashtags   []string        `json:"hashtags,omitempty"`
	MediaURLs  []string        `json:"media_urls,omitempty"`
	FiresAt    *time.Time      `json:"fires_at,omitempty"`
	Recurrence *RecurrenceRule `json:"recurrence,omitempty"`
}

type ListPostsRequest struct {
	Status   string `json:"status,omitempty"`
	Platform string `json:"platform,omitempty"`
	Page     int    `json:"page"`
	Limit    int    `json:"limit"`
}

// PostView is the assembled API response: content fields merged with the
// current scheduling state when the post is scheduled.
type PostView struct {
	ID             string          `json:"id"`
	OwnerID        string          `json:"owner_id"`
	Content        string          `json:"content"`
	Platforms      []string        `json:"platforms"`
	Hashtags       []string        `json:"hashtags,omitempty"`
	MediaURLs      []string        `json:"media_urls,omitempty"`
	Status         PostStatus      `json:"status"`
	FiresAt        *time.Time      `json:"fires_at,omitempty"`
	Recurrence     *RecurrenceRule `json:"recurrence,omitempty"`
	NextOccurrence *time.Time      `json:"next_occurrence,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

type ListPostsResponse struct {
	Items      []PostView `json:"items"`
	Total      int64      `json:"total"`
	TotalPages int        `json:"total_pages"`
}

type IPostUsecase interface {
	Create(ctx context.Context, ownerID string, request CreatePostRequest) (PostView, error)
	Update(ctx context.Context, ownerID, postID string, request UpdatePostRequest) (PostView, error)
	Delete(ctx context.Context, ownerID, postID string) error
	Get(ctx context.Context, ownerID, postID string) (PostView, error)
	List(ctx context.Context, ownerID string, request ListPostsRequest) (ListPostsResponse, error)
}
