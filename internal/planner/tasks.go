package planner

import (
	"fmt"
	"slices"
	"time"

	"github.com/julianstephens/weekplan/internal/models"
	"github.com/julianstephens/weekplan/internal/weekclock"
)

// AddTask adds a one-off task to a week, materializing the week first if
// this is its first visit.
func (e *Engine) AddTask(weekID string, fields models.TaskPatch) (models.TaskInstance, error) {
	id, err := weekclock.ParseWeekID(weekID)
	if err != nil {
		return models.TaskInstance{}, err
	}

	var added models.TaskInstance
	err = e.mutate(func(s *models.State) error {
		ti := fields.Apply(models.TaskInstance{})
		ti.TemplateID = nil
		if err := ti.Validate(); err != nil {
			return err
		}

		e.materializeInto(s, id)
		ti.ID = s.AllocateID()

		week := s.WeeklyInstances[id.String()]
		week.Tasks = append(week.Tasks, ti)
		s.WeeklyInstances[id.String()] = week
		added = ti.Clone()
		return nil
	})
	if err != nil {
		return models.TaskInstance{}, err
	}
	e.log.Debug("Added task", "week", id, "id", added.ID, "title", added.Title)
	return added, nil
}

// FindTask returns an instance and the week holding it.
func (e *Engine) FindTask(instanceID int64) (string, models.TaskInstance, error) {
	state := e.load()
	weekID, idx, ok := state.LocateTask(instanceID)
	if !ok {
		return "", models.TaskInstance{}, fmt.Errorf("%w: %d", ErrTaskNotFound, instanceID)
	}
	return weekID, state.WeeklyInstances[weekID].Tasks[idx], nil
}

// UpdateTask applies patch to one instance. The template it came from, if
// any, is not touched. The day-completed hook fires only when this call
// completes the task and that leaves its day with no open task.
func (e *Engine) UpdateTask(instanceID int64, patch models.TaskPatch) (models.TaskInstance, error) {
	var (
		updated models.TaskInstance
		events  []DayCompletedEvent
	)
	err := e.mutate(func(s *models.State) error {
		weekID, idx, ok := s.LocateTask(instanceID)
		if !ok {
			return fmt.Errorf("%w: %d", ErrTaskNotFound, instanceID)
		}
		before := s.WeeklyInstances[weekID]

		ti := patch.Apply(before.Tasks[idx])
		ti.ID = instanceID
		if err := ti.Validate(); err != nil {
			return err
		}

		after := before.Clone()
		after.Tasks[idx] = ti
		s.WeeklyInstances[weekID] = after

		if !before.Tasks[idx].Completed && ti.Completed {
			events = completedDays(weekID, before, after, ti.Day)
		}
		updated = ti.Clone()
		return nil
	})
	if err != nil {
		return models.TaskInstance{}, err
	}

	for _, ev := range events {
		e.emit(ev)
	}
	return updated, nil
}

// SetCompleted marks an instance done or not done. When this finishes the
// last open task of its day, the day-completed hook fires after the save.
func (e *Engine) SetCompleted(instanceID int64, done bool) (models.TaskInstance, error) {
	return e.UpdateTask(instanceID, models.TaskPatch{Completed: &done})
}

// DeleteTask removes one instance. Its id is never reissued.
func (e *Engine) DeleteTask(instanceID int64) error {
	err := e.mutate(func(s *models.State) error {
		weekID, idx, ok := s.LocateTask(instanceID)
		if !ok {
			return fmt.Errorf("%w: %d", ErrTaskNotFound, instanceID)
		}
		week := s.WeeklyInstances[weekID]
		week.Tasks = slices.Delete(week.Tasks, idx, idx+1)
		s.WeeklyInstances[weekID] = week
		return nil
	})
	if err != nil {
		return err
	}
	e.log.Debug("Deleted task", "id", instanceID)
	return nil
}

// completedDays lists the days among candidates that went from incomplete
// to complete between before and after.
func completedDays(weekID string, before, after models.WeeklyInstance, candidates ...time.Weekday) []DayCompletedEvent {
	id, err := weekclock.ParseWeekID(weekID)
	if err != nil {
		return nil
	}

	var events []DayCompletedEvent
	seen := make(map[time.Weekday]bool, len(candidates))
	for _, day := range candidates {
		if seen[day] {
			continue
		}
		seen[day] = true
		if !before.DayComplete(day) && after.DayComplete(day) {
			events = append(events, DayCompletedEvent{WeekID: weekID, Day: day, Date: id.Date(day)})
		}
	}
	return events
}
