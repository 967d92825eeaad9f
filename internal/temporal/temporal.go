// Package temporal provides the date and time-of-day primitives the rest of
// the module builds on. Times of day are minute-of-day ordinals, dates are
// plain calendar values, and all interval math is half-open at the end.
package temporal

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// MinutesPerDay is the number of minute ordinals in one calendar day.
const MinutesPerDay = 24 * 60

// DefaultOffsetHours is the timezone offset applied when none is configured.
const DefaultOffsetHours = 7

// serialEpoch is the day-zero of spreadsheet serial date numbers.
var serialEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

var (
	colonTimePattern  = regexp.MustCompile(`^(\d{1,2}):(\d{2})(?::(\d{2}))?$`)
	letterTimePattern = regexp.MustCompile(`^(\d{1,2})[hH](\d{2})$`)
	dotTimePattern    = regexp.MustCompile(`^(\d{1,2})\.(\d{2})$`)
	packedTimePattern = regexp.MustCompile(`^(\d{3,4})$`)
)

// ParseTime converts a time-of-day string into a minute-of-day ordinal.
// Accepted forms are HH:MM, HH:MM:SS (seconds dropped), HHhMM, HH.MM and a
// packed HHMM digit run. Out-of-range components are rejected.
func ParseTime(s string) (int, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return 0, fmt.Errorf("temporal: empty time")
	}

	var hour, minute int
	switch {
	case colonTimePattern.MatchString(trimmed):
		groups := colonTimePattern.FindStringSubmatch(trimmed)
		hour, _ = strconv.Atoi(groups[1])
		minute, _ = strconv.Atoi(groups[2])
	case letterTimePattern.MatchString(trimmed):
		groups := letterTimePattern.FindStringSubmatch(trimmed)
		hour, _ = strconv.Atoi(groups[1])
		minute, _ = strconv.Atoi(groups[2])
	case dotTimePattern.MatchString(trimmed):
		groups := dotTimePattern.FindStringSubmatch(trimmed)
		hour, _ = strconv.Atoi(groups[1])
		minute, _ = strconv.Atoi(groups[2])
	case packedTimePattern.MatchString(trimmed):
		digits := trimmed
		hour, _ = strconv.Atoi(digits[:len(digits)-2])
		minute, _ = strconv.Atoi(digits[len(digits)-2:])
	default:
		return 0, fmt.Errorf("temporal: unrecognised time %q", s)
	}

	if hour < 0 || hour > 23 {
		return 0, fmt.Errorf("temporal: hour out of range in %q", s)
	}
	if minute < 0 || minute > 59 {
		return 0, fmt.Errorf("temporal: minute out of range in %q", s)
	}
	return hour*60 + minute, nil
}

// FormatTime renders a minute-of-day ordinal as the canonical HH:MM form.
func FormatTime(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// InRange reports whether minute t lies in the half-open window [start, end).
func InRange(t, start, end int) bool {
	return start <= t && t < end
}

// Overlaps reports whether the half-open windows [s1, e1) and [s2, e2)
// intersect. Touching endpoints do not overlap.
func Overlaps(s1, e1, s2, e2 int) bool {
	return !(e1 <= s2 || e2 <= s1)
}

// Duration returns the length in minutes of the window [start, end).
func Duration(start, end int) int {
	return end - start
}

// Date is a calendar day without timezone attachment.
type Date struct {
	Year  int
	Month int
	Day   int
}

// IsZero reports whether the date carries no value.
func (d Date) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// String renders the date in the canonical DD/MM/YYYY form.
func (d Date) String() string {
	return fmt.Sprintf("%02d/%02d/%04d", d.Day, d.Month, d.Year)
}

// Compare orders two dates structurally, returning a negative value, zero, or
// a positive value in the manner of strings.Compare. String ordering is never
// used: DD/MM/YYYY does not sort lexicographically.
func (d Date) Compare(other Date) int {
	if d.Year != other.Year {
		return d.Year - other.Year
	}
	if d.Month != other.Month {
		return d.Month - other.Month
	}
	return d.Day - other.Day
}

// Equal reports whether two dates name the same calendar day.
func (d Date) Equal(other Date) bool {
	return d.Compare(other) == 0
}

// Before reports whether d falls strictly before other.
func (d Date) Before(other Date) bool {
	return d.Compare(other) < 0
}

// Time materialises the date at midnight in the supplied location.
func (d Date) Time(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(d.Year, time.Month(d.Month), d.Day, 0, 0, 0, 0, loc)
}

// DateFromTime extracts the calendar day from an instant using the instant's
// own location.
func DateFromTime(t time.Time) Date {
	year, month, day := t.Date()
	return Date{Year: year, Month: int(month), Day: day}
}

// DateFromSerial converts a spreadsheet serial day number into a date. The
// epoch is 1899-12-30; fractional day parts (intra-day time) are discarded.
func DateFromSerial(serial float64) (Date, error) {
	days := int(serial)
	if days <= 0 || days > 300000 {
		return Date{}, fmt.Errorf("temporal: serial date %v out of range", serial)
	}
	return DateFromTime(serialEpoch.AddDate(0, 0, days)), nil
}

var (
	slashDatePattern = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)
	isoDatePattern   = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`)
	dashDatePattern  = regexp.MustCompile(`^(\d{1,2})-(\d{1,2})-(\d{4})$`)
)

// ParseDate reads a calendar day from one of the accepted textual forms:
// DD/MM/YYYY, YYYY-MM-DD, DD-MM-YYYY, or a serial day number.
func ParseDate(s string) (Date, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return Date{}, fmt.Errorf("temporal: empty date")
	}

	var day, month, year int
	switch {
	case slashDatePattern.MatchString(trimmed):
		groups := slashDatePattern.FindStringSubmatch(trimmed)
		day, _ = strconv.Atoi(groups[1])
		month, _ = strconv.Atoi(groups[2])
		year, _ = strconv.Atoi(groups[3])
	case isoDatePattern.MatchString(trimmed):
		groups := isoDatePattern.FindStringSubmatch(trimmed)
		year, _ = strconv.Atoi(groups[1])
		month, _ = strconv.Atoi(groups[2])
		day, _ = strconv.Atoi(groups[3])
	case dashDatePattern.MatchString(trimmed):
		groups := dashDatePattern.FindStringSubmatch(trimmed)
		day, _ = strconv.Atoi(groups[1])
		month, _ = strconv.Atoi(groups[2])
		year, _ = strconv.Atoi(groups[3])
	default:
		if serial, err := strconv.ParseFloat(trimmed, 64); err == nil {
			return DateFromSerial(serial)
		}
		return Date{}, fmt.Errorf("temporal: unrecognised date %q", s)
	}

	candidate := Date{Year: year, Month: month, Day: day}
	if !validDate(candidate) {
		return Date{}, fmt.Errorf("temporal: invalid calendar day %q", s)
	}
	return candidate, nil
}

// ParseDateValue collapses the heterogeneous date representations seen in
// spreadsheet cells and API payloads: textual dates, serial day numbers
// (string or numeric), and instant-like values with local-calendar
// extraction.
func ParseDateValue(v any) (Date, error) {
	switch value := v.(type) {
	case nil:
		return Date{}, fmt.Errorf("temporal: missing date")
	case Date:
		if !validDate(value) {
			return Date{}, fmt.Errorf("temporal: invalid calendar day %v", value)
		}
		return value, nil
	case string:
		return ParseDate(value)
	case float64:
		return DateFromSerial(value)
	case float32:
		return DateFromSerial(float64(value))
	case int:
		return DateFromSerial(float64(value))
	case int64:
		return DateFromSerial(float64(value))
	case time.Time:
		return DateFromTime(value), nil
	default:
		return Date{}, fmt.Errorf("temporal: unsupported date value %T", v)
	}
}

func validDate(d Date) bool {
	if d.Month < 1 || d.Month > 12 || d.Day < 1 {
		return false
	}
	materialised := time.Date(d.Year, time.Month(d.Month), d.Day, 0, 0, 0, 0, time.UTC)
	return DateFromTime(materialised) == d
}

// Instant is a wall-clock reading localised to the configured offset: a
// calendar day plus a minute-of-day ordinal.
type Instant struct {
	Date    Date
	Minutes int
	Seconds int
}

// NowLocal projects an absolute instant into the fixed-offset local calendar.
func NowLocal(t time.Time, offsetHours int) Instant {
	local := t.In(time.FixedZone("local", offsetHours*60*60))
	return Instant{
		Date:    DateFromTime(local),
		Minutes: local.Hour()*60 + local.Minute(),
		Seconds: local.Second(),
	}
}

// Clock derives local instants from an injected time source so that the
// engine and scheduler stay deterministic under test.
type Clock struct {
	now         func() time.Time
	offsetHours int
}

// NewClock builds a clock over the supplied time source. A nil source falls
// back to time.Now; offsetHours defaults to DefaultOffsetHours when zero.
func NewClock(now func() time.Time, offsetHours int) *Clock {
	if now == nil {
		now = time.Now
	}
	if offsetHours == 0 {
		offsetHours = DefaultOffsetHours
	}
	return &Clock{now: now, offsetHours: offsetHours}
}

// Now returns the raw reading of the underlying time source.
func (c *Clock) Now() time.Time {
	if c == nil {
		return time.Now()
	}
	return c.now()
}

// Instant returns the current local instant.
func (c *Clock) Instant() Instant {
	if c == nil {
		return NowLocal(time.Now(), DefaultOffsetHours)
	}
	return NowLocal(c.now(), c.offsetHours)
}

// OffsetHours exposes the configured timezone offset.
func (c *Clock) OffsetHours() int {
	if c == nil {
		return DefaultOffsetHours
	}
	return c.offsetHours
}
