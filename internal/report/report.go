package report

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/Marloto/evaluation-app/internal/grading"
	"github.com/Marloto/evaluation-app/internal/model"
	"github.com/Marloto/evaluation-app/internal/scoring"
)

const terminalWidthBackup = 80

// Printer writes reports to w. With color disabled the output is plain text.
type Printer struct {
	w     io.Writer
	color bool
	width int
	r     *lipgloss.Renderer
}

// NewPrinter returns a printer for w. width <= 0 disables wrapping.
func NewPrinter(w io.Writer, color bool, width int) *Printer {
	r := lipgloss.NewRenderer(w)
	if color {
		r.SetColorProfile(termenv.TrueColor)
	} else {
		r.SetColorProfile(termenv.Ascii)
	}
	return &Printer{w: w, color: color, width: width, r: r}
}

// ShouldUseColor resolves an auto/always/never mode for w. NO_COLOR always wins.
func ShouldUseColor(w io.Writer, mode string) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	switch mode {
	case "always":
		return true
	case "never":
		return false
	}
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(file.Fd()))
}

// TerminalWidth returns the width of w when it is a terminal, otherwise 0.
func TerminalWidth(w io.Writer) int {
	file, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(file.Fd())) {
		return 0
	}
	width, _, err := term.GetSize(int(file.Fd()))
	if err != nil || width <= 0 {
		return terminalWidthBackup
	}
	return width
}

func (p *Printer) println(lines ...string) error {
	for _, line := range lines {
		if _, err := fmt.Fprintln(p.w, line); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func (p *Printer) bold(s string) string {
	if !p.color {
		return s
	}
	return p.r.NewStyle().Bold(true).Render(s)
}

func (p *Printer) muted(s string) string {
	if !p.color {
		return s
	}
	return p.r.NewStyle().Foreground(lipgloss.Color("#8C8C8C")).Render(s)
}

// gradeLabel renders a threshold with its own foreground and background colors.
func (p *Printer) gradeLabel(t model.GradeThreshold) string {
	label := fmt.Sprintf("%s %s", t.Grade, t.Text)
	if !p.color {
		return label
	}
	style := p.r.NewStyle().Bold(true).Padding(0, 1)
	if t.Color != "" {
		style = style.Foreground(lipgloss.Color(t.Color))
	}
	if t.BgColor != "" {
		style = style.Background(lipgloss.Color(t.BgColor))
	}
	return style.Render(label)
}

// Scores prints the per-section table followed by the overall result.
func (p *Printer) Scores(summary scoring.Summary, grade model.GradeThreshold, hasGrade bool) error {
	rows := make([][]string, 0, len(summary.Sections))
	for _, s := range summary.Sections {
		progress := fmt.Sprintf("%d/%d", s.Progress.CompletedCriteria, s.Progress.TotalRequiredCriteria)
		if s.Progress.CompletedBonusCriteria > 0 {
			progress += fmt.Sprintf(" +%d", s.Progress.CompletedBonusCriteria)
		}
		rows = append(rows, []string{
			s.Title,
			fmt.Sprintf("%.0f%%", s.Weight*100),
			progress,
			fmt.Sprintf("%.2f", s.Score),
		})
	}
	lines := renderTable([]column{left("Section"), right("Weight"), right("Answered"), right("Score")}, rows)
	lines = append(lines, "")

	total := summary.Progress
	lines = append(lines,
		fmt.Sprintf("%s %d/%d (%.1f%%)", p.muted("Progress:"), total.CompletedCriteria, total.TotalRequiredCriteria, total.Percentage),
		fmt.Sprintf("%s %s / %.0f (%.1f%%)", p.muted("Score:   "), p.bold(fmt.Sprintf("%.2f", summary.Score)), scoring.MaxScore, summary.Percentage),
	)
	if hasGrade {
		lines = append(lines, fmt.Sprintf("%s %s", p.muted("Grade:   "), p.gradeLabel(grade)))
	} else {
		lines = append(lines, fmt.Sprintf("%s %s", p.muted("Grade:   "), "-"))
	}
	return p.println(lines...)
}

// Text prints the justification text of every section that produced one, then the notes.
func (p *Printer) Text(sections model.Map[model.Section], texts model.Map[string], notes string) error {
	var lines []string
	for key, text := range texts.All() {
		if text == "" {
			continue
		}
		title := key
		if section, ok := sections.Get(key); ok {
			title = section.Title
		}
		if len(lines) > 0 {
			lines = append(lines, "")
		}
		lines = append(lines, p.bold(title), Wrap(text, p.width))
	}
	if strings.TrimSpace(notes) != "" {
		if len(lines) > 0 {
			lines = append(lines, "")
		}
		lines = append(lines, p.bold("Notes"), Wrap(strings.TrimSpace(notes), p.width))
	}
	if len(lines) == 0 {
		lines = append(lines, p.muted("No criteria answered yet."))
	}
	return p.println(lines...)
}

// Templates prints built-in and saved templates.
func (p *Printer) Templates(list []model.Template) error {
	rows := make([][]string, 0, len(list))
	for _, t := range list {
		var info string
		switch {
		case model.IsDefault(t):
			info = "v" + t.Version
		case !t.ModifiedAt.IsZero():
			info = t.ModifiedAt.Local().Format(time.DateTime)
		}
		rows = append(rows, []string{t.ID, string(t.Type), t.Name, info})
	}
	return p.println(renderTable([]column{left("ID"), left("Type"), left("Name"), left("Updated")}, rows)...)
}

// Weights prints the advisory weight check.
func (p *Printer) Weights(report scoring.WeightReport) error {
	lines := []string{fmt.Sprintf("Section weights sum to %.3f", report.SectionWeightSum)}
	for _, s := range report.InvalidSections {
		lines = append(lines, fmt.Sprintf("Criteria of %q sum to %.3f", s.Key, s.WeightSum))
	}
	if report.Valid {
		lines = append(lines, "Weights are valid.")
	} else {
		lines = append(lines, p.bold("Weights do not sum to 1; scores are still computed."))
	}
	return p.println(lines...)
}

// Grades prints the grade scale and its legend.
func (p *Printer) Grades(cfg model.GradeConfig) error {
	rows := make([][]string, 0, len(cfg.Thresholds))
	for _, t := range cfg.Thresholds {
		rows = append(rows, []string{t.Grade, t.Text, fmt.Sprintf("%.0f%%", t.MinPercentage)})
	}
	lines := renderTable([]column{left("Grade"), left("Description"), right("From")}, rows)

	legend := grading.Legend(cfg)
	if len(legend) > 0 {
		lines = append(lines, "")
		parts := make([]string, 0, len(legend))
		for _, e := range legend {
			label := fmt.Sprintf("%s >= %.0f%%", e.Text, e.MinPercentage)
			if p.color && e.Color != "" {
				label = p.r.NewStyle().Foreground(lipgloss.Color(e.Color)).Render(label)
			}
			parts = append(parts, label)
		}
		lines = append(lines, strings.Join(parts, ", "))
	}
	if err := grading.Validate(cfg); err != nil {
		lines = append(lines, "", p.bold("Warning: ")+strings.ReplaceAll(err.Error(), "\n", "; "))
	}
	return p.println(lines...)
}
