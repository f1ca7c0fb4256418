package budget

import (
	"time"

	"github.com/fkhayef/finance/internal/calendar"
)

// DefaultEndDate derives the last day of a period starting at start. Custom
// periods have no implied end and return nil.
func DefaultEndDate(period PeriodType, start time.Time) *time.Time {
	start = calendar.Truncate(start)

	var end time.Time
	switch period {
	case PeriodWeekly:
		end = start.AddDate(0, 0, 6)
	case PeriodMonthly:
		end = start.AddDate(0, 1, -1)
	case PeriodQuarterly:
		end = start.AddDate(0, 3, -1)
	case PeriodYearly:
		end = start.AddDate(1, 0, -1)
	default:
		return nil
	}
	return &end
}

// PeriodContaining returns the calendar period of the given type that
// contains day: the ISO week starting Monday, the month, the quarter or the
// year. Custom periods return a zero start and nil end.
func PeriodContaining(period PeriodType, day time.Time) (time.Time, *time.Time) {
	day = calendar.Truncate(day)
	y, m, _ := day.Date()

	var start time.Time
	switch period {
	case PeriodWeekly:
		offset := (int(day.Weekday()) + 6) % 7
		start = day.AddDate(0, 0, -offset)
	case PeriodMonthly:
		start = time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
	case PeriodQuarterly:
		start = time.Date(y, m-(m-1)%3, 1, 0, 0, 0, 0, time.UTC)
	case PeriodYearly:
		start = time.Date(y, 1, 1, 0, 0, 0, 0, time.UTC)
	default:
		return time.Time{}, nil
	}
	return start, DefaultEndDate(period, start)
}
