// Package calendar handles the plain dates used for expenses and budget
// periods.
package calendar

import (
	"time"

	"github.com/fkhayef/finance/internal/apperr"
)

// DateLayout is the wire format of a calendar date
const DateLayout = "2006-01-02"

// Truncate drops the time of day, keeping the date in UTC
func Truncate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Parse reads a YYYY-MM-DD date, reporting failures against field
func Parse(field, value string) (time.Time, error) {
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, apperr.Validationf(field, "must be a date in %s format", DateLayout)
	}
	return t, nil
}

// ParseOptional is Parse for nullable fields. A nil or empty value yields nil.
func ParseOptional(field string, value *string) (*time.Time, error) {
	if value == nil || *value == "" {
		return nil, nil
	}
	t, err := Parse(field, *value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Format renders a date in DateLayout
func Format(t time.Time) string {
	return t.Format(DateLayout)
}

// FormatOptional renders a nullable date
func FormatOptional(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := Format(*t)
	return &s
}
