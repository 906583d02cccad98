// Package tui provides the Bubble Tea evaluation interface.
package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Marloto/evaluation-app/internal/evaluation"
	"github.com/Marloto/evaluation-app/internal/model"
	"github.com/Marloto/evaluation-app/internal/prose"
	"github.com/Marloto/evaluation-app/internal/report"
	"github.com/Marloto/evaluation-app/internal/scoring"
	"github.com/Marloto/evaluation-app/internal/workspace"
)

type mode int

const (
	modeBrowse mode = iota
	modePreamble
	modeCustom
	modeNotes
	modePreview
	modeScores
)

var (
	activeNavStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A"))
	inactiveNavStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#B0B0B0")).
				Padding(0, 1).
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("#4A4A4A"))
	cursorRowStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
	answeredStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	pendingStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	selectedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	footerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	titleStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	modalStyle     = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A")).
			Padding(1, 2)
)

// Model implements the Bubble Tea evaluation UI.
type Model struct {
	ctx context.Context
	ws  *workspace.Workspace

	width  int
	height int

	section   int
	criterion int

	mode    mode
	input   textinput.Model
	preview viewport.Model
	scores  table.Model
	errMsg  string
}

// NewModel constructs an evaluation UI over ws. The active section of the
// stored evaluation is focused.
func NewModel(ctx context.Context, ws *workspace.Workspace) *Model {
	m := &Model{ctx: ctx, ws: ws, preview: viewport.New(0, 0)}
	m.input = textinput.New()
	m.input.CharLimit = 0
	m.input.Cursor.SetMode(cursor.CursorBlink)

	keys := ws.Config().Sections.Keys()
	if active := ws.State().ActiveSection; active != nil {
		for i, key := range keys {
			if key == *active {
				m.section = i
			}
		}
	}
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		switch m.mode {
		case modePreamble, modeCustom, modeNotes:
			return m.updateInput(msg)
		case modePreview:
			return m.updatePreview(msg)
		case modeScores:
			return m.updateScores(msg)
		}
		return m.updateBrowse(msg)
	}
	return m, nil
}

func (m *Model) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.errMsg = ""
	switch key := msg.String(); key {
	case "q":
		return m, tea.Quit
	case "left", "h", "shift+tab":
		m.moveSection(-1)
	case "right", "l", "tab":
		m.moveSection(1)
	case "up", "k":
		m.moveCriterion(-1)
	case "down", "j":
		m.moveCriterion(1)
	case "0", "-", "backspace", "delete":
		m.clearScore()
	case "p":
		return m.startInput(modePreamble, "Preamble: ", m.currentState().Preamble)
	case "c":
		if _, ok := m.currentCriterion(); !ok {
			return m, nil
		}
		cs, _ := m.currentState().Criteria.Get(m.currentCriterionKey())
		return m.startInput(modeCustom, "Text: ", cs.CustomText)
	case "n":
		return m.startInput(modeNotes, "Notes: ", m.ws.State().Notes)
	case "t":
		m.mode = modePreview
		m.renderPreview()
		m.preview.GotoTop()
	case "s":
		m.openScores()
	case "R":
		if key, ok := m.currentSectionKey(); ok {
			m.ws.Evaluation().ResetSection(m.ctx, key)
		}
	default:
		if score, err := strconv.Atoi(key); err == nil {
			m.setScore(score)
		}
	}
	return m, nil
}

func (m *Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.mode = modeBrowse
		m.input.Blur()
		return m, nil
	case tea.KeyEnter:
		m.applyInput()
		m.mode = modeBrowse
		m.input.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) updatePreview(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "t", "q":
		m.mode = modeBrowse
		return m, nil
	}
	var cmd tea.Cmd
	m.preview, cmd = m.preview.Update(msg)
	return m, cmd
}

func (m *Model) startInput(next mode, prompt, value string) (tea.Model, tea.Cmd) {
	if next != modeNotes {
		if _, ok := m.currentSectionKey(); !ok {
			return m, nil
		}
	}
	m.mode = next
	m.input.Prompt = prompt
	m.input.SetValue(value)
	m.input.CursorEnd()
	return m, m.input.Focus()
}

func (m *Model) applyInput() {
	value := m.input.Value()
	switch m.mode {
	case modeNotes:
		m.ws.Evaluation().UpdateNotes(m.ctx, value)
	case modePreamble:
		if key, ok := m.currentSectionKey(); ok {
			m.ws.Evaluation().UpdatePreamble(m.ctx, key, strings.TrimSpace(value))
		}
	case modeCustom:
		key, ok := m.currentSectionKey()
		if !ok {
			return
		}
		m.ws.Evaluation().UpdateCriterion(m.ctx, key, m.currentCriterionKey(), evaluation.CriterionPatch{CustomText: &value})
	}
}

func (m *Model) sectionKeys() []string {
	return m.ws.Config().Sections.Keys()
}

func (m *Model) currentSectionKey() (string, bool) {
	keys := m.sectionKeys()
	if m.section < 0 || m.section >= len(keys) {
		return "", false
	}
	return keys[m.section], true
}

func (m *Model) currentSection() (model.Section, bool) {
	key, ok := m.currentSectionKey()
	if !ok {
		return model.Section{}, false
	}
	return m.ws.Config().Sections.Get(key)
}

func (m *Model) currentState() model.SectionState {
	key, _ := m.currentSectionKey()
	return m.ws.State().Section(key)
}

func (m *Model) currentCriterionKey() string {
	section, ok := m.currentSection()
	if !ok {
		return ""
	}
	keys := section.Criteria.Keys()
	if m.criterion < 0 || m.criterion >= len(keys) {
		return ""
	}
	return keys[m.criterion]
}

func (m *Model) currentCriterion() (model.Criterion, bool) {
	section, ok := m.currentSection()
	if !ok {
		return model.Criterion{}, false
	}
	return section.Criteria.Get(m.currentCriterionKey())
}

func (m *Model) moveSection(delta int) {
	count := len(m.sectionKeys())
	if count == 0 {
		return
	}
	next := m.section + delta
	if next < 0 {
		next = count - 1
	}
	if next >= count {
		next = 0
	}
	m.section = next
	m.criterion = 0
	if key, ok := m.currentSectionKey(); ok {
		m.ws.Evaluation().SetActiveSection(m.ctx, key)
	}
}

func (m *Model) moveCriterion(delta int) {
	section, ok := m.currentSection()
	if !ok || section.Criteria.Len() == 0 {
		return
	}
	m.criterion = min(max(m.criterion+delta, 0), section.Criteria.Len()-1)
}

func (m *Model) setScore(score int) {
	criterion, ok := m.currentCriterion()
	if !ok {
		return
	}
	if _, ok := criterion.OptionFor(score); !ok {
		m.errMsg = fmt.Sprintf("%q has no option with score %d", criterion.Title, score)
		return
	}
	key, _ := m.currentSectionKey()
	m.ws.Evaluation().UpdateCriterion(m.ctx, key, m.currentCriterionKey(), evaluation.CriterionPatch{Score: &score})
}

func (m *Model) clearScore() {
	if _, ok := m.currentCriterion(); !ok {
		return
	}
	key, _ := m.currentSectionKey()
	m.ws.Evaluation().UpdateCriterion(m.ctx, key, m.currentCriterionKey(), evaluation.CriterionPatch{ClearScore: true})
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, bodyHeight, _ := m.layoutHeights()
	m.preview.Width = m.width
	m.preview.Height = bodyHeight
	m.input.Width = max(10, modalInnerWidth(m.width)-lipgloss.Width(m.input.Prompt))
	switch m.mode {
	case modePreview:
		m.renderPreview()
	case modeScores:
		m.scores.SetColumns(scoreTableColumns(m.width))
		m.scores.SetWidth(m.width)
		m.scores.SetHeight(max(1, bodyHeight-1))
	}
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight, footerHeight int) {
	headerHeight = max(lipgloss.Height(activeNavStyle.Render("X")), 1)
	footerHeight = 2
	if m.errMsg != "" {
		footerHeight++
	}
	bodyHeight = max(m.height-headerHeight-footerHeight, 1)
	return headerHeight, bodyHeight, footerHeight
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	switch m.mode {
	case modePreamble, modeCustom, modeNotes:
		return fitLines(m.renderInputModal(), m.width, m.height)
	}
	headerHeight, bodyHeight, footerHeight := m.layoutHeights()
	header := fitLines(m.renderTabs(), m.width, headerHeight)
	var body string
	switch m.mode {
	case modePreview:
		body = fitLines(m.preview.View(), m.width, bodyHeight)
	case modeScores:
		body = fitLines(m.scores.View(), m.width, bodyHeight)
	default:
		body = fitLines(m.renderSection(bodyHeight), m.width, bodyHeight)
	}
	footer := fitLines(m.renderFooter(), m.width, footerHeight)
	return strings.Join([]string{header, body, footer}, "\n")
}

func (m *Model) renderTabs() string {
	cfg := m.ws.Config()
	state := m.ws.State()
	parts := make([]string, 0, cfg.Sections.Len())
	i := 0
	for key, section := range cfg.Sections.All() {
		p := scoring.SectionProgress(section, state.Section(key))
		label := fmt.Sprintf("%s %d/%d", section.Title, p.CompletedCriteria, p.TotalRequiredCriteria)
		if i == m.section {
			parts = append(parts, activeNavStyle.Render(label))
		} else {
			parts = append(parts, inactiveNavStyle.Render(label))
		}
		i++
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m *Model) renderSection(height int) string {
	section, ok := m.currentSection()
	if !ok {
		return pendingStyle.Render("The rubric has no sections.")
	}
	state := m.currentState()
	var lines []string
	if state.Preamble != "" {
		lines = append(lines, pendingStyle.Render(truncateLine(state.Preamble, m.width)), "")
	}
	i := 0
	var focused model.Criterion
	var focusedState model.CriterionState
	for key, criterion := range section.Criteria.All() {
		cs, _ := state.Criteria.Get(key)
		lines = append(lines, m.criterionLine(i == m.criterion, criterion, cs))
		if i == m.criterion {
			focused, focusedState = criterion, cs
		}
		i++
	}
	if section.Criteria.Len() == 0 {
		lines = append(lines, pendingStyle.Render("This section has no criteria."))
		return strings.Join(lines, "\n")
	}

	lines = append(lines, "")
	for _, opt := range focused.Options {
		line := fmt.Sprintf("  %d  %s", opt.Score, opt.Text)
		line = truncateLine(line, m.width)
		if focusedState.Score != nil && *focusedState.Score == opt.Score {
			line = selectedStyle.Render(line)
		} else {
			line = pendingStyle.Render(line)
		}
		lines = append(lines, line)
	}
	if strings.TrimSpace(focusedState.CustomText) != "" {
		lines = append(lines, "", answeredStyle.Render(truncateLine("  Text: "+focusedState.CustomText, m.width)))
	}
	if len(lines) > height && height > 0 {
		lines = lines[:height]
	}
	return strings.Join(lines, "\n")
}

func (m *Model) criterionLine(focused bool, criterion model.Criterion, cs model.CriterionState) string {
	score := "-"
	if cs.Score != nil {
		score = strconv.Itoa(*cs.Score)
	}
	marker := "  "
	if focused {
		marker = "> "
	}
	line := fmt.Sprintf("%s[%s] %s", marker, score, criterion.Title)
	if criterion.ExcludeFromTotal {
		line += " (bonus)"
	}
	line = truncateLine(line, m.width)
	switch {
	case focused:
		return cursorRowStyle.Render(line)
	case cs.Answered():
		return answeredStyle.Render(line)
	default:
		return pendingStyle.Render(line)
	}
}

func (m *Model) renderPreview() {
	cfg := m.ws.Config()
	state := m.ws.State()
	var parts []string
	for key, text := range prose.FullText(cfg.Sections, state).All() {
		if text == "" {
			continue
		}
		section, _ := cfg.Sections.Get(key)
		parts = append(parts, titleStyle.Render(section.Title)+"\n"+report.Wrap(text, m.width))
	}
	if notes := strings.TrimSpace(state.Notes); notes != "" {
		parts = append(parts, titleStyle.Render("Notes")+"\n"+report.Wrap(notes, m.width))
	}
	if len(parts) == 0 {
		parts = append(parts, "No criteria answered yet.")
	}
	m.preview.SetContent(strings.Join(parts, "\n\n"))
}

func (m *Model) renderFooter() string {
	summary := m.ws.Summary()
	segments := []string{
		fmt.Sprintf("Score %.2f/%.0f", summary.Score, scoring.MaxScore),
		fmt.Sprintf("%.1f%%", summary.Percentage),
		fmt.Sprintf("Progress %d/%d", summary.Progress.CompletedCriteria, summary.Progress.TotalRequiredCriteria),
	}
	line := footerStyle.Render(strings.Join(segments, "  "))
	if summary.HasGrade {
		line += "  " + gradeStyle(summary.Grade).Render(summary.Grade.Grade+" "+summary.Grade.Text)
	}
	lines := []string{line, footerStyle.Render(m.renderHelp())}
	if m.errMsg != "" {
		lines = append(lines, errorStyle.Render(m.errMsg))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderHelp() string {
	switch m.mode {
	case modePreview:
		return "Scroll: up/down/pgup/pgdn  Back: esc/t"
	case modeScores:
		return "Move: up/down  Open section: enter  Back: esc/s"
	}
	return "Sections: left/right  Criteria: up/down  Score: 1-5  Clear: 0  Text: c  Preamble: p  Notes: n  Preview: t  Scores: s  Reset: R  Quit: q"
}

func (m *Model) renderInputModal() string {
	var title string
	switch m.mode {
	case modePreamble:
		title = "Section preamble"
	case modeCustom:
		criterion, _ := m.currentCriterion()
		title = "Custom text for " + criterion.Title
	case modeNotes:
		title = "Notes"
	}
	body := []string{
		cursorRowStyle.Render(title),
		m.input.View(),
		footerStyle.Render("Enter to apply / Esc to cancel"),
	}
	box := modalStyle.Width(modalWidth(m.width)).Render(strings.Join(body, "\n"))
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

func gradeStyle(t model.GradeThreshold) lipgloss.Style {
	style := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	if t.Color != "" {
		style = style.Foreground(lipgloss.Color(t.Color))
	}
	if t.BgColor != "" {
		style = style.Background(lipgloss.Color(t.BgColor))
	}
	return style
}
