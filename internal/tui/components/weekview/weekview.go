// Package weekview renders one week's tasks, Monday to Sunday, in a
// scrollable viewport with a cursor.
package weekview

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/weekplan/internal/models"
	"github.com/julianstephens/weekplan/internal/weekclock"
)

var (
	dayStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("63")).
			Bold(true)

	todayStyle = dayStyle.
			Foreground(lipgloss.Color("205"))

	timeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Width(9)

	taskStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	doneStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Strikethrough(true)

	cursorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true)

	metaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)

	emptyStyle = metaStyle
)

// Row is one selectable task in display order.
type Row struct {
	Task models.TaskInstance
	Line int // rendered line, for scrolling
}

type Model struct {
	viewport viewport.Model
	id       weekclock.WeekID
	week     models.WeeklyInstance
	today    time.Time
	rows     []Row
	cursor   int
}

func New(width, height int) Model {
	return Model{viewport: viewport.New(width, height)}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	return m.viewport.View()
}

func (m *Model) SetSize(width, height int) {
	m.viewport.Width = width
	m.viewport.Height = height
	m.render()
}

// SetWeek replaces the displayed week. The cursor stays on the task with
// the same id when it is still present.
func (m *Model) SetWeek(id weekclock.WeekID, week models.WeeklyInstance, today time.Time) {
	var selected int64 = -1
	if t, ok := m.Selected(); ok {
		selected = t.ID
	}

	m.id = id
	m.week = week
	m.today = today
	m.rows = make([]Row, 0, len(week.Tasks))
	for _, wd := range weekclock.Weekdays {
		for _, t := range week.TasksOn(wd) {
			m.rows = append(m.rows, Row{Task: t})
		}
	}

	m.cursor = min(m.cursor, max(len(m.rows)-1, 0))
	for i, r := range m.rows {
		if r.Task.ID == selected {
			m.cursor = i
			break
		}
	}
	m.render()
}

// Rows returns the selectable tasks in display order.
func (m Model) Rows() []Row {
	return m.rows
}

// Selected returns the task under the cursor.
func (m Model) Selected() (models.TaskInstance, bool) {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return models.TaskInstance{}, false
	}
	return m.rows[m.cursor].Task, true
}

func (m *Model) MoveUp() {
	if m.cursor > 0 {
		m.cursor--
		m.render()
	}
}

func (m *Model) MoveDown() {
	if m.cursor < len(m.rows)-1 {
		m.cursor++
		m.render()
	}
}

func (m *Model) render() {
	var b strings.Builder
	line := 0
	row := 0
	days := m.id.Days()

	for i, wd := range weekclock.Weekdays {
		if i > 0 {
			b.WriteString("\n")
			line++
		}
		title := fmt.Sprintf("%s %s", wd, days[i].Format("Jan 2"))
		style := dayStyle
		if !m.today.IsZero() && sameDate(days[i], m.today) {
			style = todayStyle
			title += "  (today)"
		}
		if m.week.DayComplete(wd) {
			title += "  ✓"
		}
		b.WriteString(style.Render(title) + "\n")
		line++

		tasks := m.week.TasksOn(wd)
		if len(tasks) == 0 {
			b.WriteString(emptyStyle.Render("   nothing planned") + "\n")
			line++
			continue
		}
		for _, t := range tasks {
			m.rows[row].Line = line
			b.WriteString(m.renderTask(t, row == m.cursor) + "\n")
			line++
			row++
		}
	}

	m.viewport.SetContent(b.String())
	m.scrollToCursor()
}

func (m Model) renderTask(t models.TaskInstance, selected bool) string {
	pointer := "  "
	if selected {
		pointer = cursorStyle.Render("> ")
	}
	box := "[ ]"
	title := taskStyle.Render(t.Title)
	if t.Completed {
		box = "[x]"
		title = doneStyle.Render(t.Title)
	}
	at := t.Time
	if at == "" {
		at = "anytime"
	}

	var meta []string
	meta = append(meta, fmt.Sprintf("%dm", t.DurationMin))
	if len(t.Hierarchy) > 0 {
		meta = append(meta, models.HierarchyPath(t.Hierarchy))
	}
	if cl := models.ParseChecklist(t.Notes); !cl.Empty() {
		meta = append(meta, fmt.Sprintf("%d/%d", cl.Done, cl.Total))
	}
	if t.TemplateID == nil {
		meta = append(meta, "one-off")
	}

	return fmt.Sprintf("%s%s %s %s  %s", pointer, box, timeStyle.Render(at), title, metaStyle.Render(strings.Join(meta, " · ")))
}

func (m *Model) scrollToCursor() {
	if m.cursor >= len(m.rows) || m.viewport.Height <= 0 {
		return
	}
	line := m.rows[m.cursor].Line
	switch {
	case line < m.viewport.YOffset:
		m.viewport.SetYOffset(line)
	case line >= m.viewport.YOffset+m.viewport.Height:
		m.viewport.SetYOffset(line - m.viewport.Height + 1)
	}
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
