// Package planner materializes weeks from templates and applies every
// edit to templates and task instances.
//
// Each mutating call is one read-modify-write against the store: load,
// change a private copy, validate, save once. A call that fails, including
// one whose load fails, leaves the store untouched.
package planner

import (
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/julianstephens/weekplan/internal/logger"
	"github.com/julianstephens/weekplan/internal/models"
	"github.com/julianstephens/weekplan/internal/storage"
	"github.com/julianstephens/weekplan/internal/weekclock"
)

var (
	ErrTemplateNotFound = errors.New("template not found")
	ErrTaskNotFound     = errors.New("task not found")
)

// Engine owns the scheduling rules. It holds no state of its own beyond
// the injected store and hook subscribers.
type Engine struct {
	store    storage.Provider
	now      func() time.Time
	log      *log.Logger
	handlers []func(DayCompletedEvent)
}

type Option func(*Engine)

// WithClock replaces time.Now, used for creation timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithLogger sets the engine's logger.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) {
		e.log = l
	}
}

func New(store storage.Provider, opts ...Option) *Engine {
	e := &Engine{
		store: store,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.log == nil {
		e.log = logger.Component("planner")
	}
	return e
}

// load serves reads and never fails: an unreadable store yields an empty
// state so the session can continue. Nothing loaded this way is saved.
func (e *Engine) load() models.State {
	state, err := e.store.Load()
	if err != nil {
		e.log.Warn("Falling back to empty state", "store", e.store.GetConfigPath(), "error", err)
		return models.NewState()
	}
	state.Normalize()
	return state
}

// loadForWrite is load for mutations. Only a store that has never been
// written starts from an empty state; any other load error is returned,
// since saving over unread data would lose it and reissue ids.
func (e *Engine) loadForWrite() (models.State, error) {
	state, err := e.store.Load()
	if err != nil {
		if !errors.Is(err, models.ErrNotInitialized) {
			return models.State{}, fmt.Errorf("failed to load state: %w", err)
		}
		state = models.NewState()
	}
	state.Normalize()
	return state, nil
}

// mutate runs fn against a private copy of the state and saves the copy
// only if fn succeeds.
func (e *Engine) mutate(fn func(s *models.State) error) error {
	state, err := e.loadForWrite()
	if err != nil {
		return err
	}
	work := state.Clone()
	if err := fn(&work); err != nil {
		return err
	}
	if err := e.store.Save(work); err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}
	return nil
}

// Materialize returns the week's instance, building it from the current
// templates on first visit.
func (e *Engine) Materialize(weekID string) (models.WeeklyInstance, error) {
	id, err := weekclock.ParseWeekID(weekID)
	if err != nil {
		return models.WeeklyInstance{}, err
	}

	state := e.load()
	if week, ok := state.WeeklyInstances[id.String()]; ok {
		return week, nil
	}

	var week models.WeeklyInstance
	err = e.mutate(func(s *models.State) error {
		week = e.materializeInto(s, id)
		return nil
	})
	if err != nil {
		return models.WeeklyInstance{}, err
	}
	e.log.Debug("Materialized week", "week", id, "tasks", len(week.Tasks))
	return week, nil
}

// materializeInto adds the week to s if it is missing and returns it.
func (e *Engine) materializeInto(s *models.State, id weekclock.WeekID) models.WeeklyInstance {
	key := id.String()
	if week, ok := s.WeeklyInstances[key]; ok {
		return week
	}

	week := models.WeeklyInstance{
		WeekID:    key,
		Tasks:     make([]models.TaskInstance, 0, len(s.Templates)),
		CreatedAt: e.now().UTC().Format(time.RFC3339),
	}
	for _, t := range s.Templates {
		week.Tasks = append(week.Tasks, t.Instantiate(s.AllocateID()))
	}
	s.WeeklyInstances[key] = week
	return week.Clone()
}

// Week looks a week up without materializing it.
func (e *Engine) Week(weekID string) (models.WeeklyInstance, bool, error) {
	id, err := weekclock.ParseWeekID(weekID)
	if err != nil {
		return models.WeeklyInstance{}, false, err
	}
	week, ok := e.load().WeeklyInstances[id.String()]
	return week, ok, nil
}
