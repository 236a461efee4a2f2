// Package tui is the interactive week view: one screen listing the
// current week's tasks day by day.
package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/julianstephens/weekplan/internal/planner"
	"github.com/julianstephens/weekplan/internal/tui/components/weekview"
	"github.com/julianstephens/weekplan/internal/weekclock"
)

// bannerDuration is how long the day-completed banner stays up.
const bannerDuration = 4 * time.Second

type SessionState int

const (
	StateWeek SessionState = iota
	StateAdding
	StateConfirmDelete
)

type TaskFormModel struct {
	Title    string
	Day      time.Weekday
	Time     string
	Duration string
	Notes    string
}

// celebrations collects day-completed events raised while handling a key.
// The engine calls the hook synchronously, so the slice is drained in the
// same Update.
type celebrations struct {
	events []planner.DayCompletedEvent
}

type clearBannerMsg struct{ seq int }

type Model struct {
	engine   *planner.Engine
	now      func() time.Time
	state    SessionState
	keys     KeyMap
	help     help.Model
	week     weekview.Model
	weekID   weekclock.WeekID
	form     *huh.Form
	taskForm *TaskFormModel
	hooks    *celebrations
	banner   string
	bannerN  int
	status   string
	err      error
	quitting bool
	width    int
	height   int
}

// NewModel opens the week containing now(), creating it from templates if
// this is its first visit.
func NewModel(engine *planner.Engine, now func() time.Time) Model {
	if now == nil {
		now = time.Now
	}
	hooks := &celebrations{}
	engine.OnDayCompleted(func(ev planner.DayCompletedEvent) {
		hooks.events = append(hooks.events, ev)
	})

	m := Model{
		engine: engine,
		now:    now,
		state:  StateWeek,
		keys:   DefaultKeyMap(),
		help:   help.New(),
		week:   weekview.New(0, 0),
		hooks:  hooks,
	}
	m.openWeek(weekclock.IdentifierFor(now()))
	return m
}

func (m Model) Init() tea.Cmd {
	return nil
}

// openWeek materializes id and shows it.
func (m *Model) openWeek(id weekclock.WeekID) {
	week, err := m.engine.Materialize(id.String())
	if err != nil {
		m.err = err
		return
	}
	m.weekID = id
	m.err = nil
	m.week.SetWeek(id, week, m.now())
}

// reload refreshes the shown week after a change.
func (m *Model) reload() {
	week, _, err := m.engine.Week(m.weekID.String())
	if err != nil {
		m.err = err
		return
	}
	m.week.SetWeek(m.weekID, week, m.now())
}

// takeCelebration turns pending day-completed events into a banner and
// returns the command that clears it.
func (m *Model) takeCelebration() tea.Cmd {
	if len(m.hooks.events) == 0 {
		return nil
	}
	ev := m.hooks.events[len(m.hooks.events)-1]
	m.hooks.events = m.hooks.events[:0]

	m.banner = fmt.Sprintf("🎉 %s is done! Every task on %s is complete.", ev.Day, ev.Date.Format("Mon Jan 2"))
	m.bannerN++
	seq := m.bannerN
	return tea.Tick(bannerDuration, func(time.Time) tea.Msg {
		return clearBannerMsg{seq: seq}
	})
}

// Banner returns the day-completed message currently shown, if any.
func (m Model) Banner() string {
	return m.banner
}

// WeekID returns the week on screen.
func (m Model) WeekID() weekclock.WeekID {
	return m.weekID
}

// State returns the current screen state.
func (m Model) State() SessionState {
	return m.state
}
