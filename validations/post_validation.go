package validations

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	domainPost "github.com/TMEades/solocreatorhub-ai-sub000/domains/post"
	pkgError "github.com/TMEades/solocreatorhub-ai-sub000/pkg/error"
	"github.com/TMEades/solocreatorhub-ai-sub000/pkg/recurrence"
)

func ValidateCreatePost(ctx context.Context, request domainPost.CreatePostRequest) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.Content, validation.Required, validation.Length(1, 10000)),
		validation.Field(&request.Platforms, validation.Required, validation.Length(1, 0)),
	)
	if err != nil {
		return pkgError.ValidationError(err.Error())
	}

	if request.Recurrence != nil && request.Recurrence.Enabled {
		if request.FiresAt == nil {
			return pkgError.ValidationError("fires_at is required when recurrence is enabled")
		}
		if err := ValidateRecurrenceRule(ctx, *request.Recurrence); err != nil {
			return err
		}
	}

	return nil
}

func ValidateUpdatePost(ctx context.Context, request domainPost.UpdatePostRequest) error {
	if request.Content != nil && *request.Content == "" {
		return pkgError.ValidationError("content cannot be empty")
	}
	if request.Platforms != nil && len(request.Platforms) == 0 {
		return pkgError.ValidationError("platforms cannot be empty")
	}

	if request.Recurrence != nil && request.Recurrence.Enabled {
		if err := ValidateRecurrenceRule(ctx, *request.Recurrence); err != nil {
			return err
		}
	}

	return nil
}

// ValidateRecurrenceRule rejects malformed rules before any store is touched:
// weekly without weekdays and monthly without a month day are correctness
// bugs later in the calculator, not merely cosmetic gaps.
func ValidateRecurrenceRule(ctx context.Context, rule domainPost.RecurrenceRule) error {
	err := validation.ValidateStructWithContext(ctx, &rule,
		validation.Field(&rule.Frequency, validation.Required, validation.In(
			recurrence.FrequencyDaily,
			recurrence.FrequencyWeekly,
			recurrence.FrequencyMonthly,
			recurrence.FrequencyCustom,
		)),
		validation.Field(&rule.Interval, validation.Min(1)),
		validation.Field(&rule.EndType, validation.Required, validation.In(
			recurrence.EndTypeNever,
			recurrence.EndTypeAfter,
			recurrence.EndTypeOn,
		)),
	)
	if err != nil {
		return pkgError.ValidationError(err.Error())
	}

	switch rule.Frequency {
	case recurrence.FrequencyWeekly:
		if len(rule.Weekdays) == 0 {
			return pkgError.ValidationError("weekdays: required for weekly recurrence")
		}
		for _, d := range rule.Weekdays {
			if d < 0 || d > 6 {
				return pkgError.ValidationError("weekdays: values must be between 0 and 6")
			}
		}
	case recurrence.FrequencyMonthly:
		if rule.MonthDay < 1 || rule.MonthDay > 31 {
			return pkgError.ValidationError("month_day: required for monthly recurrence and must be between 1 and 31")
		}
	}

	switch rule.EndType {
	case recurrence.EndTypeAfter:
		if rule.EndAfterOccurrences < 1 {
			return pkgError.ValidationError("end_after_occurrences: must be at least 1")
		}
	case recurrence.EndTypeOn:
		if rule.EndDate == nil {
			return pkgError.ValidationError("end_date: required when end_type is on")
		}
	}

	return nil
}
