package tui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/julianstephens/weekplan/internal/models"
	"github.com/julianstephens/weekplan/internal/utils"
	"github.com/julianstephens/weekplan/internal/weekclock"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.week.SetSize(max(msg.Width-4, 0), max(msg.Height-6, 1))
		return m, nil

	case clearBannerMsg:
		if msg.seq == m.bannerN {
			m.banner = ""
		}
		return m, nil
	}

	switch m.state {
	case StateAdding:
		return m.updateForm(msg)
	case StateConfirmDelete:
		return m.updateConfirmDelete(msg)
	}

	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		var cmd tea.Cmd
		m.week, cmd = m.week.Update(msg)
		return m, cmd
	}

	m.status = ""
	switch {
	case key.Matches(keyMsg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit
	case key.Matches(keyMsg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(keyMsg, m.keys.PrevWeek):
		m.openWeek(weekclock.Previous(m.weekID))
	case key.Matches(keyMsg, m.keys.NextWeek):
		m.openWeek(weekclock.Next(m.weekID))
	case key.Matches(keyMsg, m.keys.ThisWeek):
		m.openWeek(weekclock.IdentifierFor(m.now()))
	case key.Matches(keyMsg, m.keys.Up):
		m.week.MoveUp()
	case key.Matches(keyMsg, m.keys.Down):
		m.week.MoveDown()
	case key.Matches(keyMsg, m.keys.Toggle):
		return m.toggleSelected()
	case key.Matches(keyMsg, m.keys.Promote):
		m.promoteSelected()
	case key.Matches(keyMsg, m.keys.Delete):
		if _, ok := m.week.Selected(); ok {
			m.state = StateConfirmDelete
		}
	case key.Matches(keyMsg, m.keys.Add):
		return m.startAdd()
	}
	return m, nil
}

func (m Model) toggleSelected() (tea.Model, tea.Cmd) {
	task, ok := m.week.Selected()
	if !ok {
		return m, nil
	}
	if _, err := m.engine.SetCompleted(task.ID, !task.Completed); err != nil {
		m.err = err
		return m, nil
	}
	m.err = nil
	m.reload()
	return m, m.takeCelebration()
}

func (m *Model) promoteSelected() {
	task, ok := m.week.Selected()
	if !ok {
		return
	}
	tmpl, err := m.engine.PromoteToTemplate(task.ID, false)
	if err != nil {
		m.err = err
		return
	}
	m.err = nil
	m.status = fmt.Sprintf("Template #%d created from %q; weeks you open from now on will include it.", tmpl.ID, tmpl.Title)
	m.reload()
}

func (m Model) updateConfirmDelete(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch {
	case key.Matches(keyMsg, m.keys.Confirm):
		if task, ok := m.week.Selected(); ok {
			if err := m.engine.DeleteTask(task.ID); err != nil {
				m.err = err
			} else {
				m.err = nil
				m.status = fmt.Sprintf("Deleted %q", task.Title)
			}
			m.reload()
		}
		m.state = StateWeek
	case key.Matches(keyMsg, m.keys.Cancel), key.Matches(keyMsg, m.keys.Quit):
		m.state = StateWeek
	}
	return m, nil
}

func (m Model) startAdd() (tea.Model, tea.Cmd) {
	day := time.Monday
	if task, ok := m.week.Selected(); ok {
		day = task.Day
	} else if today := m.now(); m.weekID.Contains(today) {
		day = today.Weekday()
	}

	m.taskForm = &TaskFormModel{Day: day, Duration: "30"}
	m.form = NewAddForm(m.taskForm)
	m.state = StateAdding
	return m, m.form.Init()
}

func (m Model) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
		m.state = StateWeek
		return m, nil
	}

	var cmds []tea.Cmd
	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}
	cmds = append(cmds, cmd)

	switch m.form.State {
	case huh.StateCompleted:
		patch, err := m.taskForm.Patch()
		if err == nil {
			_, err = m.engine.AddTask(m.weekID.String(), patch)
		}
		if err != nil {
			m.err = err
		} else {
			m.err = nil
			m.status = fmt.Sprintf("Added %q", strings.TrimSpace(m.taskForm.Title))
		}
		m.reload()
		m.state = StateWeek
	case huh.StateAborted:
		m.state = StateWeek
	}
	return m, tea.Batch(cmds...)
}

// Patch converts the form values into the fields of a new task.
func (fm *TaskFormModel) Patch() (models.TaskPatch, error) {
	dur, err := strconv.Atoi(strings.TrimSpace(fm.Duration))
	if err != nil {
		return models.TaskPatch{}, fmt.Errorf("%w: duration must be a number", models.ErrInvalid)
	}
	title := strings.TrimSpace(fm.Title)
	at := strings.TrimSpace(fm.Time)
	day := fm.Day
	notes := fm.Notes
	return models.TaskPatch{
		Title:       &title,
		DurationMin: &dur,
		Day:         &day,
		Time:        &at,
		Notes:       &notes,
	}, nil
}

// NewAddForm builds the add-task form bound to fm.
func NewAddForm(fm *TaskFormModel) *huh.Form {
	days := make([]huh.Option[time.Weekday], 0, len(weekclock.Weekdays))
	for _, wd := range weekclock.Weekdays {
		days = append(days, huh.NewOption(wd.String(), wd))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Title").
				Value(&fm.Title).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errors.New("title is required")
					}
					return nil
				}),
			huh.NewSelect[time.Weekday]().
				Title("Day").
				Options(days...).
				Value(&fm.Day),
			huh.NewInput().
				Title("Time (HH:MM, blank for anytime)").
				Value(&fm.Time).
				Validate(func(s string) error {
					if s = strings.TrimSpace(s); s != "" && !utils.ValidateTimeFormat(s) {
						return errors.New("use HH:MM")
					}
					return nil
				}),
			huh.NewInput().
				Title("Duration (minutes)").
				Value(&fm.Duration).
				Validate(func(s string) error {
					n, err := strconv.Atoi(strings.TrimSpace(s))
					if err != nil || n <= 0 {
						return errors.New("enter a positive number of minutes")
					}
					return nil
				}),
			huh.NewText().
				Title("Notes").
				Description("Lines like '- [ ] item' become a checklist.").
				Value(&fm.Notes),
		),
	).WithShowHelp(true)
}
