package models

import (
	"slices"
	"time"
)

// TemplatePatch is a partial update of a template.
// A nil field means "no change".
type TemplatePatch struct {
	Title       *string       `json:"title,omitempty"`
	Goal        *string       `json:"goal,omitempty"`
	Hierarchy   *[]string     `json:"hierarchy,omitempty"`
	DurationMin *int          `json:"durationMin,omitempty"`
	Day         *time.Weekday `json:"day,omitempty"`
	Time        *string       `json:"time,omitempty"`
	Notes       *string       `json:"notes,omitempty"`
}

// Apply returns t with the patch's non-nil fields written over it.
func (p TemplatePatch) Apply(t Template) Template {
	t = t.Clone()
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Goal != nil {
		t.Goal = *p.Goal
	}
	if p.Hierarchy != nil {
		t.Hierarchy = slices.Clone(*p.Hierarchy)
	}
	if p.DurationMin != nil {
		t.DurationMin = *p.DurationMin
	}
	if p.Day != nil {
		t.Day = *p.Day
	}
	if p.Time != nil {
		t.Time = *p.Time
	}
	if p.Notes != nil {
		t.Notes = *p.Notes
	}
	return t
}

// TaskPatch is a partial update of a task instance.
// A nil field means "no change".
type TaskPatch struct {
	Title       *string       `json:"title,omitempty"`
	Goal        *string       `json:"goal,omitempty"`
	Hierarchy   *[]string     `json:"hierarchy,omitempty"`
	DurationMin *int          `json:"durationMin,omitempty"`
	Day         *time.Weekday `json:"day,omitempty"`
	Time        *string       `json:"time,omitempty"`
	Notes       *string       `json:"notes,omitempty"`
	Completed   *bool         `json:"completed,omitempty"`
}

// Apply returns ti with the patch's non-nil fields written over it.
func (p TaskPatch) Apply(ti TaskInstance) TaskInstance {
	ti = ti.Clone()
	if p.Title != nil {
		ti.Title = *p.Title
	}
	if p.Goal != nil {
		ti.Goal = *p.Goal
	}
	if p.Hierarchy != nil {
		ti.Hierarchy = slices.Clone(*p.Hierarchy)
	}
	if p.DurationMin != nil {
		ti.DurationMin = *p.DurationMin
	}
	if p.Day != nil {
		ti.Day = *p.Day
	}
	if p.Time != nil {
		ti.Time = *p.Time
	}
	if p.Notes != nil {
		ti.Notes = *p.Notes
	}
	if p.Completed != nil {
		ti.Completed = *p.Completed
	}
	return ti
}

// TemplateFrom captures an instance's current fields as template fields.
func TemplateFrom(ti TaskInstance, id int64) Template {
	return Template{
		ID:          id,
		Title:       ti.Title,
		Goal:        ti.Goal,
		Hierarchy:   slices.Clone(ti.Hierarchy),
		DurationMin: ti.DurationMin,
		Day:         ti.Day,
		Time:        ti.Time,
		Notes:       ti.Notes,
	}
}
