package bite

import (
	"fmt"
	"time"

	"biteindex/internal/types"
)

// Period selects the aggregation window.
type Period string

const (
	PeriodToday Period = "today"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
)

// AllPeriods lists every supported period in display order.
var AllPeriods = []Period{PeriodToday, PeriodWeek, PeriodMonth, PeriodYear}

const (
	day  = 24 * time.Hour
	week = 7 * day
)

// ParsePeriod converts a query value into a Period. An empty value means today.
func ParsePeriod(s string) (Period, error) {
	if s == "" {
		return PeriodToday, nil
	}
	p := Period(s)
	if !p.Valid() {
		return "", types.NewAppErrorWithDetails(
			types.ErrCodeValidationInvalidPeriod,
			fmt.Sprintf("unknown period %q", s),
			nil,
			map[string]any{"allowed": AllPeriods},
		)
	}
	return p, nil
}

// Valid reports whether p is one of the supported periods.
func (p Period) Valid() bool {
	switch p {
	case PeriodToday, PeriodWeek, PeriodMonth, PeriodYear:
		return true
	}
	return false
}

// WindowStart returns the inclusive lower bound of the period ending at now.
// Today starts at local midnight; the others are rolling windows.
func (p Period) WindowStart(now time.Time, loc *time.Location) time.Time {
	switch p {
	case PeriodToday:
		y, m, d := now.In(loc).Date()
		return time.Date(y, m, d, 0, 0, 0, 0, loc)
	case PeriodWeek:
		return now.Add(-7 * day)
	case PeriodMonth:
		return now.Add(-30 * day)
	case PeriodYear:
		return now.Add(-365 * day)
	default:
		return now
	}
}
