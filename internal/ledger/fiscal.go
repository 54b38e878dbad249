package ledger

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD date in UTC.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(s), time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return t, nil
}

// Day truncates t to midnight UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// FiscalCalendar maps dates onto fiscal years. A fiscal year is labelled by
// the calendar year in which it starts.
type FiscalCalendar struct {
	StartMonth time.Month
	StartDay   int
}

// CalendarYear is a fiscal year that matches the civil year.
var CalendarYear = FiscalCalendar{StartMonth: time.January, StartDay: 1}

// ParseFiscalStart reads a "MM-DD" fiscal year start.
func ParseFiscalStart(s string) (FiscalCalendar, error) {
	t, err := time.Parse("01-02", s)
	if err != nil {
		return FiscalCalendar{}, fmt.Errorf("%w: fiscal year start %q (want MM-DD)", ErrInvalidDate, s)
	}
	return FiscalCalendar{StartMonth: t.Month(), StartDay: t.Day()}, nil
}

func (c FiscalCalendar) normalized() FiscalCalendar {
	if c.StartMonth == 0 {
		return CalendarYear
	}
	if c.StartDay == 0 {
		c.StartDay = 1
	}
	return c
}

// FiscalYear returns the fiscal year containing date.
func (c FiscalCalendar) FiscalYear(date time.Time) int {
	c = c.normalized()
	d := Day(date)
	start := time.Date(d.Year(), c.StartMonth, c.StartDay, 0, 0, 0, 0, time.UTC)
	if d.Before(start) {
		return d.Year() - 1
	}
	return d.Year()
}

// Bounds returns the first and last day of fiscal year fy.
func (c FiscalCalendar) Bounds(fy int) (time.Time, time.Time) {
	c = c.normalized()
	start := time.Date(fy, c.StartMonth, c.StartDay, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(1, 0, -1)
}

// Sequence is an entry number within a fiscal year.
type Sequence struct {
	FiscalYear int
	Counter    int64
}

func (s Sequence) String() string {
	return fmt.Sprintf("%d-%06d", s.FiscalYear, s.Counter)
}

func (s Sequence) IsZero() bool {
	return s.FiscalYear == 0 && s.Counter == 0
}

// ParseSequence parses "2025-000001".
func ParseSequence(s string) (Sequence, error) {
	year, counter, ok := strings.Cut(s, "-")
	if !ok || len(year) != 4 || len(counter) < 6 {
		return Sequence{}, fmt.Errorf("%w: sequence %q", ErrValidation, s)
	}
	fy, err := strconv.Atoi(year)
	if err != nil {
		return Sequence{}, fmt.Errorf("%w: sequence %q", ErrValidation, s)
	}
	n, err := strconv.ParseInt(counter, 10, 64)
	if err != nil || n < 1 {
		return Sequence{}, fmt.Errorf("%w: sequence %q", ErrValidation, s)
	}
	return Sequence{FiscalYear: fy, Counter: n}, nil
}

// Less orders sequences by fiscal year then counter.
func (s Sequence) Less(o Sequence) bool {
	if s.FiscalYear != o.FiscalYear {
		return s.FiscalYear < o.FiscalYear
	}
	return s.Counter < o.Counter
}

// Numbering is the numbering state of one fiscal year: the counters carried
// by its stored entries and the last counter handed out.
type Numbering struct {
	Counters []int64 `json:"counters"`
	Last     int64   `json:"last"`
}

// Period identifies a depreciation period. Monthly periods carry Month != 0.
type Period struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month,omitempty"`
}

func (p Period) Key() string {
	if p.Month == 0 {
		return strconv.Itoa(p.Year)
	}
	return fmt.Sprintf("%d-%02d", p.Year, int(p.Month))
}

func (p Period) String() string { return p.Key() }

// ParsePeriod parses "2025" or "2025-03".
func ParsePeriod(s string) (Period, error) {
	year, month, monthly := strings.Cut(s, "-")
	y, err := strconv.Atoi(year)
	if err != nil || len(year) != 4 {
		return Period{}, fmt.Errorf("%w: period %q", ErrInvalidDate, s)
	}
	if !monthly {
		return Period{Year: y}, nil
	}
	m, err := strconv.Atoi(month)
	if err != nil || m < 1 || m > 12 {
		return Period{}, fmt.Errorf("%w: period %q", ErrInvalidDate, s)
	}
	return Period{Year: y, Month: time.Month(m)}, nil
}

// Bounds returns the first and last day of the period. Annual periods follow
// the fiscal calendar.
func (p Period) Bounds(cal FiscalCalendar) (time.Time, time.Time) {
	if p.Month == 0 {
		return cal.Bounds(p.Year)
	}
	start := time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, -1)
}

// Next returns the period after p.
func (p Period) Next() Period {
	if p.Month == 0 {
		return Period{Year: p.Year + 1}
	}
	if p.Month == time.December {
		return Period{Year: p.Year + 1, Month: time.January}
	}
	return Period{Year: p.Year, Month: p.Month + 1}
}

// After reports whether p comes strictly after o.
func (p Period) After(o Period) bool {
	if p.Year != o.Year {
		return p.Year > o.Year
	}
	return p.Month > o.Month
}

// PeriodOf returns the period containing date.
func PeriodOf(date time.Time, monthly bool, cal FiscalCalendar) Period {
	if monthly {
		d := Day(date)
		return Period{Year: d.Year(), Month: d.Month()}
	}
	return Period{Year: cal.FiscalYear(date)}
}
