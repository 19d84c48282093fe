package recurrence

import "time"

type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
	FrequencyCustom  Frequency = "custom"
)

type EndType string

const (
	EndTypeNever EndType = "never"
	EndTypeAfter EndType = "after"
	EndTypeOn    EndType = "on"
)

// Pattern is the storage-free view of a recurrence rule. Keeping it free of
// persistence tags keeps Next a pure function that can be re-evaluated after
// rule edits without replaying history.
type Pattern struct {
	Frequency           Frequency
	Interval            int
	Weekdays            []int // 0=Sunday .. 6=Saturday, weekly only
	MonthDay            int   // 1..31, monthly only
	EndType             EndType
	EndDate             *time.Time
	EndAfterOccurrences int
	OccurrencesCount    int
}

// maxMonthSteps bounds the monthly roll-forward loop; a month containing any
// day 1..31 occurs at least every other month, so 48 is far beyond reachable.
const maxMonthSteps = 48

// Next computes the next occurrence strictly after now, carrying over the
// time-of-day of lastFiresAt. The second return value is false when the
// pattern is exhausted by its end condition (or, for weekly rules, when no
// weekday matches inside the scan window).
func Next(lastFiresAt time.Time, p Pattern, now time.Time) (time.Time, bool) {
	interval := p.Interval
	if interval < 1 {
		interval = 1
	}

	// Exhaustion by occurrence count wins over any date math.
	if p.EndType == EndTypeAfter && p.EndAfterOccurrences > 0 && p.OccurrencesCount >= p.EndAfterOccurrences {
		return time.Time{}, false
	}

	var candidate time.Time
	if lastFiresAt.After(now) {
		// Nothing to advance yet.
		candidate = lastFiresAt
	} else {
		var ok bool
		switch p.Frequency {
		case FrequencyWeekly:
			candidate, ok = nextWeekly(lastFiresAt, p.Weekdays, interval, now)
		case FrequencyMonthly:
			candidate, ok = nextMonthly(lastFiresAt, p.MonthDay, interval, now)
		default:
			// daily, and custom which advances by interval days as well
			candidate, ok = nextDaily(lastFiresAt, interval, now)
		}
		if !ok {
			return time.Time{}, false
		}
	}

	if p.EndType == EndTypeOn && p.EndDate != nil && candidate.After(*p.EndDate) {
		return time.Time{}, false
	}

	return candidate, true
}

func nextDaily(lastFiresAt time.Time, interval int, now time.Time) (time.Time, bool) {
	candidate := lastFiresAt.AddDate(0, 0, interval)
	for !candidate.After(now) {
		candidate = candidate.AddDate(0, 0, interval)
	}
	return candidate, true
}

func nextWeekly(lastFiresAt time.Time, weekdays []int, interval int, now time.Time) (time.Time, bool) {
	targetDays := make(map[int]bool, len(weekdays))
	for _, d := range weekdays {
		if d >= 0 && d <= 6 {
			targetDays[d] = true
		}
	}
	if len(targetDays) == 0 {
		targetDays[int(lastFiresAt.Weekday())] = true
	}

	loc := lastFiresAt.Location()
	hh, mm, ss := lastFiresAt.Clock()
	ns := lastFiresAt.Nanosecond()

	// Scan day by day starting tomorrow; the first matching weekday wins.
	cursor := now.In(loc).AddDate(0, 0, 1)
	for i := 0; i < 7*interval; i++ {
		if targetDays[int(cursor.Weekday())] {
			return time.Date(cursor.Year(), cursor.Month(), cursor.Day(), hh, mm, ss, ns, loc), true
		}
		cursor = cursor.AddDate(0, 0, 1)
	}
	return time.Time{}, false
}

func nextMonthly(lastFiresAt time.Time, monthDay, interval int, now time.Time) (time.Time, bool) {
	targetDay := monthDay
	if targetDay < 1 || targetDay > 31 {
		targetDay = lastFiresAt.Day()
	}

	loc := lastFiresAt.Location()
	hh, mm, ss := lastFiresAt.Clock()
	ns := lastFiresAt.Nanosecond()

	nowLocal := now.In(loc)
	year, month := nowLocal.Year(), int(nowLocal.Month())

	make31 := func(y, m int) (time.Time, bool) {
		if targetDay > daysIn(y, m) {
			return time.Time{}, false
		}
		return time.Date(y, time.Month(m), targetDay, hh, mm, ss, ns, loc), true
	}

	// Anchor in the current month; when that slot already passed, jump ahead
	// by the full interval. A month too short for targetDay rolls forward one
	// month at a time so day 31 lands on the next month that has a 31st
	// instead of clamping to the 28th/30th.
	if candidate, ok := make31(year, month); ok && !candidate.After(nowLocal) {
		year, month = addMonths(year, month, interval)
	}
	for i := 0; i < maxMonthSteps; i++ {
		if candidate, ok := make31(year, month); ok {
			return candidate, true
		}
		year, month = addMonths(year, month, 1)
	}
	return time.Time{}, false
}

func addMonths(year, month, k int) (int, int) {
	month += k
	for month > 12 {
		month -= 12
		year++
	}
	return year, month
}

func daysIn(year, month int) int {
	// Day 0 of the following month is the last day of this one.
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
