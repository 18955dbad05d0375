package window

import (
	"time"

	"github.com/dvloznov/brokerage-insights/internal/domain"
)

// Cutoff returns the start of the window: the calendar date of reference
// moved back by years, at midnight UTC. Feb 29 maps to Feb 28 when the target
// year is not a leap year.
func Cutoff(reference time.Time, years int) time.Time {
	y, m, d := reference.Date()
	y -= years
	if m == time.February && d == 29 && !isLeap(y) {
		d = 28
	}
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Filter keeps rows whose Date is on or after Cutoff(reference, years). It
// returns the filtered copy and the cutoff used.
func Filter(t *domain.Table, years int, reference time.Time) (*domain.Table, time.Time) {
	cutoff := Cutoff(reference, years)
	out := t.Filter(func(row domain.Transaction) bool {
		return !row.Date.Before(cutoff)
	})
	return out, cutoff
}

func isLeap(y int) bool {
	return y%4 == 0 && (y%100 != 0 || y%400 == 0)
}
