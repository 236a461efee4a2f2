package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var content string
	switch m.state {
	case StateAdding:
		content = docStyle.Render(m.form.View())
	case StateConfirmDelete:
		content = m.viewConfirmDelete()
	default:
		content = docStyle.Render(m.week.View())
	}

	parts := []string{m.viewHeader()}
	if m.banner != "" {
		parts = append(parts, bannerStyle.Render(m.banner))
	}
	parts = append(parts, content)
	if m.err != nil {
		parts = append(parts, errorStyle.Render("Error: "+m.err.Error()))
	} else if m.status != "" {
		parts = append(parts, statusStyle.Render(m.status))
	}
	parts = append(parts, m.help.View(m.keys))

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) viewHeader() string {
	days := m.weekID.Days()
	title := titleStyle.Render(m.weekID.String())
	span := fmt.Sprintf("%s - %s", days[0].Format("Jan 2"), days[6].Format("Jan 2, 2006"))

	done, total := 0, 0
	for _, r := range m.week.Rows() {
		total++
		if r.Task.Completed {
			done++
		}
	}
	progress := fmt.Sprintf("%d/%d done", done, total)
	return lipgloss.JoinHorizontal(lipgloss.Top, title, subtitleStyle.Render(span), subtitleStyle.Render(progress))
}

func (m Model) viewConfirmDelete() string {
	task, _ := m.week.Selected()
	return lipgloss.Place(m.width, max(m.height-6, 5),
		lipgloss.Center, lipgloss.Center,
		lipgloss.JoinVertical(lipgloss.Center,
			dangerStyle.Render(fmt.Sprintf("Delete %q from this week?", task.Title)),
			"Its template, if any, is kept.",
			"",
			"[y] Yes",
			"[n] No",
		),
	)
}
