package weekclock

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// ErrInvalidWeekID is returned for identifiers that are malformed or name a
// week the year does not have.
var ErrInvalidWeekID = errors.New("invalid week identifier")

var weekIDPattern = regexp.MustCompile(`^(\d{4})-W(\d{2})$`)

// WeekID names one Monday-starting week. Its canonical text form is
// "YYYY-Www", which is also the key used by persisted data.
type WeekID struct {
	Year int
	Week int
}

// ParseWeekID decodes the canonical "YYYY-Www" form.
func ParseWeekID(s string) (WeekID, error) {
	m := weekIDPattern.FindStringSubmatch(s)
	if m == nil {
		return WeekID{}, fmt.Errorf("%w: %q (expected YYYY-Www)", ErrInvalidWeekID, s)
	}
	year, _ := strconv.Atoi(m[1])
	week, _ := strconv.Atoi(m[2])
	id := WeekID{Year: year, Week: week}
	if !id.Valid() {
		return WeekID{}, fmt.Errorf("%w: %q (year %d has weeks 1-%d)", ErrInvalidWeekID, s, year, WeeksInYear(year))
	}
	return id, nil
}

// MustParseWeekID is like ParseWeekID but panics on error.
func MustParseWeekID(s string) WeekID {
	id, err := ParseWeekID(s)
	if err != nil {
		panic(err)
	}
	return id
}

// String encodes the identifier as "YYYY-Www".
func (id WeekID) String() string {
	return fmt.Sprintf("%04d-W%02d", id.Year, id.Week)
}

// Valid reports whether the year is four digits and has this week.
func (id WeekID) Valid() bool {
	if id.Year < 1 || id.Year > 9999 {
		return false
	}
	return id.Week >= 1 && id.Week <= WeeksInYear(id.Year)
}

// Monday returns the first day of the week at midnight UTC.
func (id WeekID) Monday() time.Time {
	return firstMonday(id.Year).AddDate(0, 0, (id.Week-1)*daysPerWeek)
}

// Date returns the day of this week that falls on wd, at midnight UTC.
func (id WeekID) Date(wd time.Weekday) time.Time {
	return id.Monday().AddDate(0, 0, isoWeekday(wd)-1)
}

// Days returns Monday through Sunday of the week.
func (id WeekID) Days() [7]time.Time {
	var days [7]time.Time
	monday := id.Monday()
	for i := range days {
		days[i] = monday.AddDate(0, 0, i)
	}
	return days
}

// Contains reports whether t falls inside the week.
func (id WeekID) Contains(t time.Time) bool {
	return IdentifierFor(t) == id
}

// Before reports whether id is an earlier week than other.
func (id WeekID) Before(other WeekID) bool {
	if id.Year != other.Year {
		return id.Year < other.Year
	}
	return id.Week < other.Week
}

// MarshalText implements encoding.TextMarshaler.
func (id WeekID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *WeekID) UnmarshalText(b []byte) error {
	parsed, err := ParseWeekID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// Weekdays lists the days of a week in display order, Monday first.
var Weekdays = [7]time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
	time.Friday, time.Saturday, time.Sunday,
}
