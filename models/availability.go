package models

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// Date is a calendar date without a time of day.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

func NewDate(year int, month time.Month, day int) Date {
	return DateOf(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// DateOf returns the calendar date of t in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// At returns the instant at minute-of-day tod on this date in loc.
func (d Date) At(tod TimeOfDay, loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, int(tod)/60, int(tod)%60, 0, 0, loc)
}

func (d Date) AddDays(n int) Date {
	return DateOf(time.Date(d.Year, d.Month, d.Day+n, 0, 0, 0, 0, time.UTC))
}

func (d Date) Weekday() time.Weekday {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC).Weekday()
}

func (d Date) Before(o Date) bool {
	if d.Year != o.Year {
		return d.Year < o.Year
	}
	if d.Month != o.Month {
		return d.Month < o.Month
	}
	return d.Day < o.Day
}

func (d Date) After(o Date) bool { return o.Before(d) }

func (d Date) IsZero() bool { return d == Date{} }

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// TimeOfDay is minutes from midnight (e.g. 540 for 9:00 AM). 1440 means end of day.
type TimeOfDay int

const EndOfDay TimeOfDay = 24 * 60

func Clock(hour, minute int) TimeOfDay {
	return TimeOfDay(hour*60 + minute)
}

func (t TimeOfDay) Valid() bool {
	return t >= 0 && t <= EndOfDay
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// AvailabilityRule is either a RecurringRule or a OneOffRule.
type AvailabilityRule interface {
	RuleID() string
	Window() (start, end TimeOfDay)
	isAvailabilityRule()
}

// RecurringRule repeats weekly on Weekday while the date is in [ValidFrom, ValidUntil).
// A nil ValidUntil means open-ended.
type RecurringRule struct {
	ID         string
	Weekday    time.Weekday
	Start      TimeOfDay
	End        TimeOfDay
	ValidFrom  Date
	ValidUntil *Date
}

func (r RecurringRule) RuleID() string                 { return r.ID }
func (r RecurringRule) Window() (TimeOfDay, TimeOfDay) { return r.Start, r.End }
func (RecurringRule) isAvailabilityRule()              {}

// Covers reports whether the rule is in effect on d.
func (r RecurringRule) Covers(d Date) bool {
	if d.Weekday() != r.Weekday {
		return false
	}
	if d.Before(r.ValidFrom) {
		return false
	}
	if r.ValidUntil != nil && !d.Before(*r.ValidUntil) {
		return false
	}
	return true
}

// OneOffRule opens a single window on a specific date.
type OneOffRule struct {
	ID    string
	Date  Date
	Start TimeOfDay
	End   TimeOfDay
}

func (r OneOffRule) RuleID() string                 { return r.ID }
func (r OneOffRule) Window() (TimeOfDay, TimeOfDay) { return r.Start, r.End }
func (OneOffRule) isAvailabilityRule()              {}
