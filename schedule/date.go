package schedule

import "time"

// =============================================================================
// DATE - Day-granularity time (the whole domain is date-only)
// =============================================================================

// Date is a calendar date normalized to UTC midnight. All scheduling logic
// operates on dates; wall-clock time never enters the core.
type Date struct {
	t time.Time
}

// Constructors
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

func Today() Date {
	return DateOf(time.Now())
}

// ParseDate parses the canonical YYYY-MM-DD form.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, err
	}
	return DateOf(t), nil
}

// Comparison
func (d Date) Before(other Date) bool        { return d.t.Before(other.t) }
func (d Date) After(other Date) bool         { return d.t.After(other.t) }
func (d Date) Equal(other Date) bool         { return d.t.Equal(other.t) }
func (d Date) BeforeOrEqual(other Date) bool { return !d.t.After(other.t) }
func (d Date) AfterOrEqual(other Date) bool  { return !d.t.Before(other.t) }

// Arithmetic
func (d Date) AddDays(n int) Date  { return Date{t: d.t.AddDate(0, 0, n)} }
func (d Date) AddYears(n int) Date { return Date{t: d.t.AddDate(n, 0, 0)} }

// Properties
func (d Date) Year() int             { return d.t.Year() }
func (d Date) Month() time.Month     { return d.t.Month() }
func (d Date) Day() int              { return d.t.Day() }
func (d Date) Weekday() time.Weekday { return d.t.Weekday() }
func (d Date) IsZero() bool          { return d.t.IsZero() }
func (d Date) Time() time.Time       { return d.t }

// Key returns the canonical day key, the stable identifier used to address
// calendar cells and recurrence instances.
func (d Date) Key() string    { return d.t.Format("2006-01-02") }
func (d Date) String() string { return d.Key() }

func DaysBetween(from, to Date) int {
	return int(to.t.Sub(from.t).Hours() / 24)
}

func MinDate(a, b Date) Date {
	if a.Before(b) {
		return a
	}
	return b
}

func MaxDate(a, b Date) Date {
	if a.After(b) {
		return a
	}
	return b
}

// =============================================================================
// MONTH MATH
// =============================================================================
// time.AddDate normalizes overflowing days (Jan 31 + 1 month = Mar 2/3), which
// is exactly wrong for billing cycles. Month arithmetic therefore happens in
// (year, month) space and the day is clamped afterwards.

// AddMonths advances a (year, month) pair by n months. n may be negative.
func AddMonths(year int, month time.Month, n int) (int, time.Month) {
	m := int(month) - 1 + n
	y := year + m/12
	m = m % 12
	if m < 0 {
		m += 12
		y--
	}
	return y, time.Month(m + 1)
}

// DaysInMonth returns the number of days in the given month.
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// LastDayOfMonth returns the final calendar day of the month.
func LastDayOfMonth(year int, month time.Month) Date {
	return NewDate(year, month, DaysInMonth(year, month))
}

// ClampToMonth builds a date from (year, month, day), clamping day to the end
// of shorter months. Day 31 in April yields April 30; day 30 in February
// yields Feb 28/29.
func ClampToMonth(year int, month time.Month, day int) Date {
	if max := DaysInMonth(year, month); day > max {
		day = max
	}
	return NewDate(year, month, day)
}

// =============================================================================
// DATE RANGE
// =============================================================================

// DateRange is an inclusive [Start, End] span of days.
type DateRange struct {
	Start Date
	End   Date
}

func (r DateRange) Contains(d Date) bool {
	return d.AfterOrEqual(r.Start) && d.BeforeOrEqual(r.End)
}

func (r DateRange) IsValid() bool {
	return !r.Start.IsZero() && !r.End.Before(r.Start)
}

// Days enumerates every day in the range.
func (r DateRange) Days() []Date {
	var days []Date
	for cur := r.Start; cur.BeforeOrEqual(r.End); cur = cur.AddDays(1) {
		days = append(days, cur)
	}
	return days
}

func (r DateRange) String() string {
	return "[" + r.Start.String() + ", " + r.End.String() + "]"
}

// =============================================================================
// WINDOW - What the presentation layer asks the packer to fill
// =============================================================================

// Window is the visible grid handed to the layout engine. Period marks the
// displayed period inside the grid: a month view shows leading and trailing
// days of adjacent months, and those fall outside Period.
type Window struct {
	Start  Date
	End    Date
	Period DateRange
}

func (w Window) Range() DateRange { return DateRange{Start: w.Start, End: w.End} }

// RangeWindow builds a window whose displayed period is the whole grid
// (week view, agenda view).
func RangeWindow(from, to Date) Window {
	return Window{Start: from, End: to, Period: DateRange{Start: from, End: to}}
}

// MonthWindow builds a week-aligned grid around one month: the grid starts on
// the weekStart day on or before the 1st and ends on the day completing the
// last week. Grid length is always a multiple of 7.
func MonthWindow(year int, month time.Month, weekStart time.Weekday) Window {
	first := NewDate(year, month, 1)
	last := LastDayOfMonth(year, month)

	lead := (int(first.Weekday()) - int(weekStart) + 7) % 7
	start := first.AddDays(-lead)

	trail := (6 - ((int(last.Weekday()) - int(weekStart) + 7) % 7)) % 7
	end := last.AddDays(trail)

	return Window{
		Start:  start,
		End:    end,
		Period: DateRange{Start: first, End: last},
	}
}
