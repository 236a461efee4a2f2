// Package weekclock implements the planner's week arithmetic.
//
// Weeks start on Monday. Week numbers follow a simplified rule rather than
// ISO-8601: week 1 of a year is the week whose Monday is the first Monday
// on or after January 1, and every day before that Monday belongs to the
// last week of the previous year. Persisted data is keyed by this rule, so
// it must not be "corrected" to ISO numbering.
package weekclock

import (
	"fmt"
	"time"
)

const daysPerWeek = 7

// WeekStart returns the Monday of t's week at midnight in t's location.
// Sunday is treated as the seventh day, so it maps back six days.
func WeekStart(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d-(isoWeekday(t.Weekday())-1), 0, 0, 0, 0, t.Location())
}

// IdentifierFor returns the identifier of the week containing t.
func IdentifierFor(t time.Time) WeekID {
	monday := civil(WeekStart(t))
	year := monday.Year()
	days := daysBetween(jan1(year), monday)
	return WeekID{Year: year, Week: days/daysPerWeek + 1}
}

// Previous returns the identifier of the week before id.
func Previous(id WeekID) WeekID {
	return Offset(id, -1)
}

// Next returns the identifier of the week after id.
func Next(id WeekID) WeekID {
	return Offset(id, 1)
}

// Offset moves n weeks from id. Negative n moves backwards. Near the ends
// of the calendar the result can leave years 1-9999; Step reports that.
func Offset(id WeekID, n int) WeekID {
	return IdentifierFor(id.Monday().AddDate(0, 0, n*daysPerWeek))
}

// Step is Offset for callers that hand the result on as text: it fails
// when the week reached has no valid identifier.
func Step(id WeekID, n int) (WeekID, error) {
	to := Offset(id, n)
	if !to.Valid() {
		return WeekID{}, fmt.Errorf("%w: no week %d from %s", ErrInvalidWeekID, n, id)
	}
	return to, nil
}

// PreviousWeekID parses s and returns the encoded identifier of the week before it.
func PreviousWeekID(s string) (string, error) {
	id, err := ParseWeekID(s)
	if err != nil {
		return "", err
	}
	prev, err := Step(id, -1)
	if err != nil {
		return "", err
	}
	return prev.String(), nil
}

// NextWeekID parses s and returns the encoded identifier of the week after it.
func NextWeekID(s string) (string, error) {
	id, err := ParseWeekID(s)
	if err != nil {
		return "", err
	}
	next, err := Step(id, 1)
	if err != nil {
		return "", err
	}
	return next.String(), nil
}

// WeeksInYear returns how many weeks the year has under this numbering,
// which is the number of Mondays that fall inside it (52 or 53).
func WeeksInYear(year int) int {
	daysInYear := daysBetween(jan1(year), jan1(year+1))
	offset := daysBetween(jan1(year), firstMonday(year))
	return (daysInYear-1-offset)/daysPerWeek + 1
}

// firstMonday is the first Monday on or after January 1 of year, in UTC.
func firstMonday(year int) time.Time {
	start := jan1(year)
	offset := (8 - isoWeekday(start.Weekday())) % daysPerWeek
	return start.AddDate(0, 0, offset)
}

func jan1(year int) time.Time {
	return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
}

// civil drops the clock and location of t, keeping its calendar date.
// All day counting happens on civil dates so DST shifts never leak in.
func civil(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}

// isoWeekday maps Monday..Sunday to 1..7.
func isoWeekday(wd time.Weekday) int {
	if wd == time.Sunday {
		return 7
	}
	return int(wd)
}
