package analytics

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	dateLayout  = "2006-01-02"
	monthLayout = "2006-01"

	// DefaultRangeDays is the look-back used when no start date is given.
	DefaultRangeDays = 30
	// MaxRangeDays bounds the daily series length.
	MaxRangeDays = 731
)

// DateRange is a half-open interval [Start, End) of whole calendar days.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// StartLabel returns the first day of the range as YYYY-MM-DD.
func (r DateRange) StartLabel() string {
	return r.Start.Format(dateLayout)
}

// EndLabel returns the last day included in the range as YYYY-MM-DD.
func (r DateRange) EndLabel() string {
	last := time.Date(r.End.Year(), r.End.Month(), r.End.Day()-1, 0, 0, 0, 0, r.End.Location())
	return last.Format(dateLayout)
}

// Contains reports whether t falls inside the range.
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}

// ParseDateRange builds a range from inclusive YYYY-MM-DD bounds in the
// aggregator's zone. An empty start means DefaultRangeDays before now, an empty
// end means the day containing now.
func (a *Aggregator) ParseDateRange(start, end string, now time.Time) (DateRange, error) {
	local := now.In(a.loc)
	today := midnight(local)

	endDay := today
	if s := strings.TrimSpace(end); s != "" {
		d, err := time.ParseInLocation(dateLayout, s, a.loc)
		if err != nil {
			return DateRange{}, fmt.Errorf("%w: end_date %q", ErrInvalidDateRange, end)
		}
		endDay = d
	}

	startDay := addDays(today, -DefaultRangeDays)
	if s := strings.TrimSpace(start); s != "" {
		d, err := time.ParseInLocation(dateLayout, s, a.loc)
		if err != nil {
			return DateRange{}, fmt.Errorf("%w: start_date %q", ErrInvalidDateRange, start)
		}
		startDay = d
	}

	if startDay.After(endDay) {
		return DateRange{}, fmt.Errorf("%w: start_date after end_date", ErrInvalidDateRange)
	}

	r := DateRange{Start: startDay, End: addDays(endDay, 1)}
	if r.End.After(addDays(r.Start, MaxRangeDays)) {
		return DateRange{}, fmt.Errorf("%w: range exceeds %d days", ErrInvalidDateRange, MaxRangeDays)
	}
	return r, nil
}

// startOfMonth returns day 1, 00:00 of the month containing t, in t's zone.
func startOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// startOfWeek returns the most recent Sunday 00:00 at or before t, in t's zone.
func startOfWeek(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day()-int(t.Weekday()), 0, 0, 0, 0, t.Location())
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// addDays moves by calendar days, so DST transitions keep the result at 00:00.
func addDays(t time.Time, n int) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day()+n, 0, 0, 0, 0, t.Location())
}

var errEmptyTimestamp = errors.New("empty timestamp")

func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errEmptyTimestamp
	}
	return time.Parse(time.RFC3339, s)
}
