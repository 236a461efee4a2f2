package models

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/julianstephens/weekplan/internal/constants"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid task fields")

// ErrNotInitialized is returned by every store's Load when nothing has been
// stored yet.
var ErrNotInitialized = errors.New("storage not initialized, run 'weekplan init' first")

// Template is a reusable task definition that seeds future weeks.
type Template struct {
	ID          int64        `json:"id"`
	Title       string       `json:"title"`
	Goal        string       `json:"goal,omitempty"`
	Hierarchy   []string     `json:"hierarchy,omitempty"` // outermost category first
	DurationMin int          `json:"durationMin"`
	Day         time.Weekday `json:"day"`
	Time        string       `json:"time,omitempty"` // HH:MM format, empty means anytime
	Notes       string       `json:"notes,omitempty"`
}

// TaskInstance is one scheduled occurrence inside a week.
//
// TemplateID records which template the instance was cloned from. It is a
// reference only: the instance owns copies of every field and never reads
// the template again.
type TaskInstance struct {
	ID          int64        `json:"id"`
	TemplateID  *int64       `json:"templateId"`
	Title       string       `json:"title"`
	Goal        string       `json:"goal,omitempty"`
	Hierarchy   []string     `json:"hierarchy,omitempty"`
	DurationMin int          `json:"durationMin"`
	Day         time.Weekday `json:"day"`
	Time        string       `json:"time,omitempty"`
	Notes       string       `json:"notes,omitempty"`
	Completed   bool         `json:"completed"`
}

// WeeklyInstance holds the tasks of one week.
type WeeklyInstance struct {
	WeekID    string         `json:"-"`
	Tasks     []TaskInstance `json:"tasks"`
	CreatedAt string         `json:"createdAt,omitempty"` // RFC3339 timestamp
}

// Instantiate copies the template's fields into a new, incomplete instance.
func (t Template) Instantiate(id int64) TaskInstance {
	templateID := t.ID
	return TaskInstance{
		ID:          id,
		TemplateID:  &templateID,
		Title:       t.Title,
		Goal:        t.Goal,
		Hierarchy:   slices.Clone(t.Hierarchy),
		DurationMin: t.DurationMin,
		Day:         t.Day,
		Time:        t.Time,
		Notes:       t.Notes,
	}
}

// Validate checks the fields a template must carry.
func (t Template) Validate() error {
	return validateFields(t.Title, t.DurationMin, t.Day, t.Time)
}

// Validate checks the fields an instance must carry.
func (ti TaskInstance) Validate() error {
	return validateFields(ti.Title, ti.DurationMin, ti.Day, ti.Time)
}

// Clone returns a copy that shares no memory with ti.
func (ti TaskInstance) Clone() TaskInstance {
	c := ti
	c.Hierarchy = slices.Clone(ti.Hierarchy)
	if ti.TemplateID != nil {
		id := *ti.TemplateID
		c.TemplateID = &id
	}
	return c
}

// Clone returns a copy that shares no memory with t.
func (t Template) Clone() Template {
	c := t
	c.Hierarchy = slices.Clone(t.Hierarchy)
	return c
}

// HierarchyPath joins the hierarchy for display, e.g. "Work / Reports".
func HierarchyPath(h []string) string {
	return strings.Join(h, " / ")
}

func validateFields(title string, durationMin int, day time.Weekday, at string) error {
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("%w: title must not be empty", ErrInvalid)
	}
	if durationMin <= 0 {
		return fmt.Errorf("%w: duration must be greater than zero", ErrInvalid)
	}
	if day < time.Sunday || day > time.Saturday {
		return fmt.Errorf("%w: day %d is not a weekday", ErrInvalid, day)
	}
	if at != "" {
		if _, err := time.Parse(constants.TimeFormat, at); err != nil {
			return fmt.Errorf("%w: invalid time %q (expected HH:MM)", ErrInvalid, at)
		}
	}
	return nil
}

// TasksOn returns the week's tasks scheduled on day, timed tasks first in
// clock order, then anytime tasks in insertion order.
func (w WeeklyInstance) TasksOn(day time.Weekday) []TaskInstance {
	var out []TaskInstance
	for _, t := range w.Tasks {
		if t.Day == day {
			out = append(out, t)
		}
	}
	slices.SortStableFunc(out, func(a, b TaskInstance) int {
		switch {
		case a.Time == b.Time:
			return 0
		case a.Time == "":
			return 1
		case b.Time == "":
			return -1
		default:
			return strings.Compare(a.Time, b.Time)
		}
	})
	return out
}

// DayComplete reports whether day has at least one task and all of them
// are completed.
func (w WeeklyInstance) DayComplete(day time.Weekday) bool {
	found := false
	for _, t := range w.Tasks {
		if t.Day != day {
			continue
		}
		if !t.Completed {
			return false
		}
		found = true
	}
	return found
}

// Clone returns a copy that shares no memory with w.
func (w WeeklyInstance) Clone() WeeklyInstance {
	c := w
	c.Tasks = make([]TaskInstance, len(w.Tasks))
	for i, t := range w.Tasks {
		c.Tasks[i] = t.Clone()
	}
	return c
}
