package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Marloto/evaluation-app/internal/scoring"
)

func scoreTableColumns(width int) []table.Column {
	fixed := 8 + 10 + 7 + 8
	title := max(width-fixed, 12)
	return []table.Column{
		{Title: "Section", Width: title},
		{Title: "Weight", Width: 8},
		{Title: "Answered", Width: 10},
		{Title: "Score", Width: 7},
		{Title: "Percent", Width: 8},
	}
}

func scoreTableRows(summary scoring.Summary) []table.Row {
	rows := make([]table.Row, 0, len(summary.Sections))
	for _, s := range summary.Sections {
		answered := fmt.Sprintf("%d/%d", s.Progress.CompletedCriteria, s.Progress.TotalRequiredCriteria)
		if s.Progress.CompletedBonusCriteria > 0 {
			answered += fmt.Sprintf(" +%d", s.Progress.CompletedBonusCriteria)
		}
		rows = append(rows, table.Row{
			s.Title,
			fmt.Sprintf("%.0f%%", s.Weight*100),
			answered,
			fmt.Sprintf("%.2f", s.Score),
			fmt.Sprintf("%.1f%%", s.Score/scoring.MaxScore*100),
		})
	}
	return rows
}

func scoreTableStyles() table.Styles {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		Padding(0, 1).
		PaddingLeft(0)
	styles.Cell = styles.Cell.
		Padding(0, 1).
		PaddingLeft(0)
	styles.Selected = styles.Cell.
		Foreground(lipgloss.Color("#C89A3A")).
		Bold(true)
	return styles
}

// openScores rebuilds the score table and moves its cursor to the current section.
func (m *Model) openScores() {
	_, bodyHeight, _ := m.layoutHeights()
	m.scores = table.New(
		table.WithColumns(scoreTableColumns(m.width)),
		table.WithRows(scoreTableRows(m.ws.Summary().Summary)),
		table.WithHeight(max(1, bodyHeight-1)),
		table.WithFocused(true),
	)
	m.scores.SetWidth(m.width)
	m.scores.SetStyles(scoreTableStyles())
	m.scores.SetCursor(m.section)
	m.mode = modeScores
}

func (m *Model) updateScores(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "s", "q":
		m.mode = modeBrowse
		return m, nil
	case "enter":
		m.mode = modeBrowse
		if target := m.scores.Cursor(); target != m.section {
			m.moveSection(target - m.section)
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.scores, cmd = m.scores.Update(msg)
	return m, cmd
}
