package core

import (
	"encoding/json"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the wire and storage form of a calendar date.
const DateLayout = "2006-01-02"

var dateType = reflect.TypeOf(Date{})

// Date is a calendar date without time of day, always held at UTC midnight.
type Date struct {
	time.Time
}

// NewDate creates a new Date from year, month, day
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// Today truncates a wall-clock instant to its UTC calendar date.
func Today(now time.Time) Date {
	now = now.UTC()
	return NewDate(now.Year(), now.Month(), now.Day())
}

// ParseDate parses a YYYY-MM-DD string. field names the offending input in the
// returned error.
func ParseDate(field, s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, InvalidInput(field, "date is required")
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, InvalidInput(field, "unparseable date %q, expected YYYY-MM-DD", s)
	}
	return Date{Time: t}, nil
}

// ParseOptionalDate returns nil for an empty string.
func ParseOptionalDate(field, s string) (*Date, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	d, err := ParseDate(field, s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) Before(o Date) bool { return d.Time.Before(o.Time) }
func (d Date) After(o Date) bool  { return d.Time.After(o.Time) }
func (d Date) Equal(o Date) bool  { return d.Time.Equal(o.Time) }

// Within reports whether d lies in [start, end], both ends inclusive.
func (d Date) Within(start, end Date) bool {
	return !d.Before(start) && !d.After(end)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

// UnmarshalJSON reports bad input as a *json.UnmarshalTypeError so the decoder
// can attach the name of the offending field.
func (d *Date) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return &json.UnmarshalTypeError{Value: string(data), Type: dateType}
	}
	if strings.TrimSpace(s) == "" {
		*d = Date{}
		return nil
	}
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return &json.UnmarshalTypeError{Value: strconv.Quote(s), Type: dateType}
	}
	*d = Date{Time: t}
	return nil
}

// IsDateType reports whether t is Date, for callers turning decode errors
// into field-level messages.
func IsDateType(t reflect.Type) bool {
	return t == dateType
}

// AddDays shifts a date by n calendar days.
func AddDays(d Date, n int) Date {
	return Date{Time: d.AddDate(0, 0, n)}
}

// DaysBetween returns the number of whole days from 'from' to 'to'. The result
// is negative when 'to' precedes 'from'.
func DaysBetween(from, to Date) int {
	return int(to.Time.Sub(from.Time) / (24 * time.Hour))
}

// DaysInMonth returns the length of a month. The month may be out of the
// 1..12 range, in which case it is normalised first.
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// BuildMonthlyDate returns the given day in the given month, clamped to the
// month's last day. Month overflow rolls into the adjacent year, so month 13
// is January of year+1 and month 0 is December of year-1.
func BuildMonthlyDate(year int, month time.Month, day int) Date {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	last := DaysInMonth(first.Year(), first.Month())
	if day > last {
		day = last
	}
	if day < 1 {
		day = 1
	}
	return NewDate(first.Year(), first.Month(), day)
}

// AddMonthsClamped moves a date by n calendar months keeping its day of month,
// clamped to the length of the target month (Jan 31 + 1 month = Feb 28/29).
func AddMonthsClamped(d Date, n int) Date {
	return BuildMonthlyDate(d.Year(), d.Month()+time.Month(n), d.Day())
}

// MonthBounds returns the first and last day of the month containing d.
func MonthBounds(d Date) (Date, Date) {
	start := NewDate(d.Year(), d.Month(), 1)
	return start, BuildMonthlyDate(d.Year(), d.Month(), 31)
}
