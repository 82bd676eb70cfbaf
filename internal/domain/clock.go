package domain

import (
	"errors"
	"fmt"
	"time"
)

// Date is a local calendar date in YYYY-MM-DD form. All date keying in the
// scheduling engine goes through this type; comparing zero-padded ISO dates
// as strings matches chronological order, so Date values sort correctly with
// plain string comparison.
type Date string

// DateOf projects a timestamp onto its local calendar date. This is the only
// sanctioned way to turn a time.Time into a Date: deriving date keys from
// UTC-shifted instants shifts dates for offsets like +07:00.
func DateOf(t time.Time) Date {
	return Date(t.Format("2006-01-02"))
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return "", fmt.Errorf("invalid date %q", s)
	}
	return DateOf(t), nil
}

func (d Date) Time() time.Time {
	t, _ := time.Parse("2006-01-02", string(d))
	return t
}

func (d Date) Weekday() time.Weekday {
	return d.Time().Weekday()
}

func (d Date) AddDays(n int) Date {
	return DateOf(d.Time().AddDate(0, 0, n))
}

func (d Date) Before(other Date) bool {
	return string(d) < string(other)
}

func (d Date) String() string { return string(d) }

// MonthDates returns every date of the given month in order, generated day by
// day from the local year/month/day triplet.
func MonthDates(year int, month time.Month) []Date {
	days := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
	out := make([]Date, 0, days)
	for day := 1; day <= days; day++ {
		out = append(out, DateOf(time.Date(year, month, day, 0, 0, 0, 0, time.UTC)))
	}
	return out
}

// WeekDates returns the Monday-first week containing anchor.
func WeekDates(anchor Date) []Date {
	wd := anchor.Weekday()
	offset := int(wd) - 1
	if wd == time.Sunday {
		offset = 6
	}
	monday := anchor.AddDays(-offset)
	out := make([]Date, 0, 7)
	for i := 0; i < 7; i++ {
		out = append(out, monday.AddDays(i))
	}
	return out
}

// Clock is a wall-clock time of day in HH:MM form. "24:00" is the end-of-day
// sentinel: a slot ending at local midnight is stored as 24:00 so end times
// sort after every same-day start time. Multi-day spans are not representable;
// they must be modeled as adjacent dated slots.
type Clock string

const EndOfDay Clock = "24:00"

var errInvalidClock = errors.New("invalid clock time")

// Minutes returns minutes since local midnight, with 24:00 mapping to 1440.
func (c Clock) Minutes() (int, error) {
	if len(c) != 5 || c[2] != ':' {
		return 0, errInvalidClock
	}
	h := int(c[0]-'0')*10 + int(c[1]-'0')
	m := int(c[3]-'0')*10 + int(c[4]-'0')
	if c[0] < '0' || c[0] > '9' || c[1] < '0' || c[1] > '9' ||
		c[3] < '0' || c[3] > '9' || c[4] < '0' || c[4] > '9' {
		return 0, errInvalidClock
	}
	if m > 59 {
		return 0, errInvalidClock
	}
	if h > 24 || (h == 24 && m != 0) {
		return 0, errInvalidClock
	}
	return h*60 + m, nil
}

func (c Clock) String() string { return string(c) }

// ToStorageTime canonicalizes a time for persistence. UI controls cannot
// express 24:00, so an end time of 00:00 means local midnight and is stored
// as the 24:00 sentinel.
func ToStorageTime(c Clock, isEndTime bool) Clock {
	if isEndTime && c == "00:00" {
		return EndOfDay
	}
	return c
}

// ToInputTime converts a stored time back to the 00:00-23:59 range accepted
// by input controls.
func ToInputTime(c Clock) Clock {
	if c == EndOfDay {
		return "00:00"
	}
	return c
}

// ClockRangeValid reports whether start < end after 24:00 normalization.
func ClockRangeValid(start, end Clock) bool {
	s, err := start.Minutes()
	if err != nil || s >= 1440 {
		return false
	}
	e, err := end.Minutes()
	if err != nil {
		return false
	}
	return s < e
}

// RangesOverlap reports whether the half-open wall-clock ranges
// [aStart, aEnd) and [bStart, bEnd) intersect. Both ranges must belong to the
// same calendar date; 22:00-24:00 and 00:00-02:00 on consecutive dates are
// adjacent, not overlapping, and are never compared here.
func RangesOverlap(aStart, aEnd, bStart, bEnd Clock) bool {
	as, err1 := aStart.Minutes()
	ae, err2 := aEnd.Minutes()
	bs, err3 := bStart.Minutes()
	be, err4 := bEnd.Minutes()
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
		return false
	}
	return as < be && ae > bs
}

// AddMinutes advances a clock value, capping at the end-of-day sentinel.
func (c Clock) AddMinutes(n int) (Clock, error) {
	m, err := c.Minutes()
	if err != nil {
		return "", err
	}
	m += n
	if m >= 1440 {
		return EndOfDay, nil
	}
	return Clock(fmt.Sprintf("%02d:%02d", m/60, m%60)), nil
}
