package cli

import (
	"strings"
	"time"

	"github.com/julianstephens/weekplan/internal/models"
)

// FieldFlags are the optional edit flags shared by task and template
// edits. Unset flags leave the field unchanged.
type FieldFlags struct {
	Title     *string `help:"New title."`
	Goal      *string `short:"g" help:"New goal."`
	Hierarchy *string `short:"c" help:"New category path, e.g. 'Work / Reports'. Empty clears it."`
	Duration  *int    `short:"d" help:"New duration in minutes."`
	Day       *string `short:"D" help:"New day (mon..sun or 1..7)."`
	Time      *string `short:"t" help:"New time (HH:MM). Empty makes it an anytime task."`
	Notes     *string `short:"n" help:"New notes. Markdown checklists ('- [ ] item') are tracked."`
}

// Empty reports whether no flag was given.
func (f FieldFlags) Empty() bool {
	return f.Title == nil && f.Goal == nil && f.Hierarchy == nil && f.Duration == nil &&
		f.Day == nil && f.Time == nil && f.Notes == nil
}

// TemplatePatch converts the flags into a template patch.
func (f FieldFlags) TemplatePatch() (models.TemplatePatch, error) {
	p := models.TemplatePatch{
		Title:       f.Title,
		Goal:        f.Goal,
		DurationMin: f.Duration,
		Time:        trimmed(f.Time),
		Notes:       f.Notes,
	}
	if f.Hierarchy != nil {
		h := ParseHierarchy(*f.Hierarchy)
		p.Hierarchy = &h
	}
	if f.Day != nil {
		wd, err := ParseWeekday(*f.Day)
		if err != nil {
			return models.TemplatePatch{}, err
		}
		p.Day = &wd
	}
	return p, nil
}

// TaskPatch converts the flags into a task patch.
func (f FieldFlags) TaskPatch() (models.TaskPatch, error) {
	tp, err := f.TemplatePatch()
	if err != nil {
		return models.TaskPatch{}, err
	}
	return models.TaskPatch{
		Title:       tp.Title,
		Goal:        tp.Goal,
		Hierarchy:   tp.Hierarchy,
		DurationMin: tp.DurationMin,
		Day:         tp.Day,
		Time:        tp.Time,
		Notes:       tp.Notes,
	}, nil
}

// NewFields are the flags for creating a task or template.
type NewFields struct {
	Title     string `arg:"" help:"Title."`
	Day       string `short:"D" required:"" help:"Day of the week (mon..sun or 1..7)."`
	Duration  int    `short:"d" default:"30" help:"Duration in minutes."`
	Time      string `short:"t" help:"Start time (HH:MM). Omit for an anytime task."`
	Goal      string `short:"g" help:"What finishing this achieves."`
	Hierarchy string `short:"c" help:"Category path, e.g. 'Work / Reports'."`
	Notes     string `short:"n" help:"Notes. Markdown checklists ('- [ ] item') are tracked."`
}

// TemplatePatch returns every field set, for CreateTemplate.
func (f NewFields) TemplatePatch() (models.TemplatePatch, error) {
	wd, err := ParseWeekday(f.Day)
	if err != nil {
		return models.TemplatePatch{}, err
	}
	h := ParseHierarchy(f.Hierarchy)
	at := strings.TrimSpace(f.Time)
	return models.TemplatePatch{
		Title:       &f.Title,
		Goal:        &f.Goal,
		Hierarchy:   &h,
		DurationMin: &f.Duration,
		Day:         &wd,
		Time:        &at,
		Notes:       &f.Notes,
	}, nil
}

// TaskPatch returns every field set, for AddTask.
func (f NewFields) TaskPatch() (models.TaskPatch, error) {
	tp, err := f.TemplatePatch()
	if err != nil {
		return models.TaskPatch{}, err
	}
	return models.TaskPatch{
		Title:       tp.Title,
		Goal:        tp.Goal,
		Hierarchy:   tp.Hierarchy,
		DurationMin: tp.DurationMin,
		Day:         tp.Day,
		Time:        tp.Time,
		Notes:       tp.Notes,
	}, nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

// Weekday names a day the way listings print it.
func Weekday(wd time.Weekday) string {
	return wd.String()[:3]
}
