package types

import (
	"time"

	ierr "github.com/numera/numera/internal/errors"
)

const (
	// DisplayDateFormat is the wire and display format for document dates
	DisplayDateFormat = "02/01/2006"

	// SortableTimestampFormat is a fixed width UTC millisecond format. Unlike
	// RFC3339Nano it never drops trailing zeros, so lexicographic order equals
	// chronological order and it is safe to use as a range key.
	SortableTimestampFormat = "2006-01-02T15:04:05.000Z"
)

// FormatDate renders a time as DD/MM/YYYY
func FormatDate(t time.Time) string {
	return t.Format(DisplayDateFormat)
}

// ParseDate parses a DD/MM/YYYY string into a UTC midnight time
func ParseDate(value string) (time.Time, error) {
	t, err := time.Parse(DisplayDateFormat, value)
	if err != nil {
		return time.Time{}, ierr.WithError(err).
			WithHintf("Please provide the date as DD/MM/YYYY, got '%s'", value).
			Mark(ierr.ErrValidation)
	}
	return t.UTC(), nil
}

// FormatSortableTimestamp renders a time in SortableTimestampFormat
func FormatSortableTimestamp(t time.Time) string {
	return t.UTC().Format(SortableTimestampFormat)
}

// ParseSortableTimestamp parses a SortableTimestampFormat string
func ParseSortableTimestamp(value string) (time.Time, error) {
	return time.Parse(SortableTimestampFormat, value)
}

// DayStart returns the time truncated to 00:00:00.000 of its day in UTC
func DayStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DayEnd returns 23:59:59.999 of the day in UTC
func DayEnd(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(999*time.Millisecond), time.UTC)
}

// DateRange is an inclusive day aligned window over document timestamps
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewDayRange builds a DateRange spanning whole days, from 00:00:00.000 on
// the first day through 23:59:59.999 on the last
func NewDayRange(from, to time.Time) DateRange {
	return DateRange{
		Start: DayStart(from),
		End:   DayEnd(to),
	}
}

func (r DateRange) Validate() error {
	if r.Start.IsZero() || r.End.IsZero() {
		return ierr.NewError("date range is incomplete").
			WithHint("Both start and end dates are required").
			Mark(ierr.ErrValidation)
	}
	if r.End.Before(r.Start) {
		return ierr.NewError("invalid date range").
			WithHint("The end date must not be before the start date").
			WithReportableDetails(map[string]any{
				"start": r.Start,
				"end":   r.End,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// Contains reports whether ts falls inside the range, both ends inclusive
func (r DateRange) Contains(ts time.Time) bool {
	ts = ts.UTC()
	return !ts.Before(r.Start) && !ts.After(r.End)
}

func AddClampedDate(t time.Time, years, months, days int) time.Time {
	y, m, d := t.Date()
	h, min, sec := t.Clock()

	// Calculate the proposed year and month
	newY := y + years
	newM := time.Month(int(m) + months)

	// If we move beyond December, it adjusts correctly,
	// for example adding 2 months to November will land on January next year.
	for newM > 12 {
		newM -= 12
		newY++
	}
	for newM < 1 {
		newM += 12
		newY--
	}

	// Find the last valid day of the new month
	firstOfNextMonth := time.Date(newY, newM+1, 1, 0, 0, 0, 0, t.Location())
	lastDay := firstOfNextMonth.Add(-24 * time.Hour).Day()

	newD := d + days
	if newD > lastDay {
		// Clamp to last valid day
		newD = lastDay
	} else if newD < 1 {
		// If we go backwards beyond the start of the month,
		// we might need similar logic. For simplicity, assume positive increments.
	}

	return time.Date(newY, newM, newD, h, min, sec, t.Nanosecond(), t.Location())
}
