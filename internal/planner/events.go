package planner

import (
	"time"
)

// DayCompletedEvent is delivered when the last open task of a day is
// completed.
type DayCompletedEvent struct {
	WeekID string
	Day    time.Weekday
	Date   time.Time
}

// OnDayCompleted registers fn. Handlers run synchronously, in registration
// order, after the state change has been saved.
func (e *Engine) OnDayCompleted(fn func(DayCompletedEvent)) {
	if fn == nil {
		return
	}
	e.handlers = append(e.handlers, fn)
}

func (e *Engine) emit(ev DayCompletedEvent) {
	e.log.Info("Day completed", "week", ev.WeekID, "day", ev.Day)
	for _, fn := range e.handlers {
		e.dispatch(fn, ev)
	}
}

// dispatch isolates one handler: a panic is logged and swallowed.
func (e *Engine) dispatch(fn func(DayCompletedEvent), ev DayCompletedEvent) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("Day-completed handler panicked", "week", ev.WeekID, "day", ev.Day, "panic", r)
		}
	}()
	fn(ev)
}
