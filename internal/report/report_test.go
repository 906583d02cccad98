package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/Marloto/evaluation-app/internal/grading"
	"github.com/Marloto/evaluation-app/internal/model"
	"github.com/Marloto/evaluation-app/internal/prose"
	"github.com/Marloto/evaluation-app/internal/rubric"
	"github.com/Marloto/evaluation-app/internal/scoring"
)

func TestRenderTableAlignsWideColumns(t *testing.T) {
	cols := []column{left("Abschnitt"), right("Gewicht")}
	rows := [][]string{
		{"Einführung", "25%"},
		{"漢字", "5%"},
	}
	lines := renderTable(cols, rows)
	want := []string{
		"Abschnitt   Gewicht",
		"----------  -------",
		"Einführung      25%",
		"漢字             5%",
	}
	if len(lines) != len(want) {
		t.Fatalf("expected %d lines, got %d: %q", len(want), len(lines), lines)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Fatalf("line %d: got %q want %q", i, lines[i], want[i])
		}
	}
}

func TestRenderTableEmpty(t *testing.T) {
	if lines := renderTable(nil, nil); lines != nil {
		t.Fatalf("expected no lines, got %q", lines)
	}
}

func TestWrap(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		width int
		want  string
	}{
		{name: "break at overflowing space", text: "eins zwei drei", width: 9, want: "eins zwei\ndrei"},
		{name: "break at earlier space", text: "eins zweidrei", width: 9, want: "eins\nzweidrei"},
		{name: "split long word", text: "abcdefghij", width: 4, want: "abcd\nefgh\nij"},
		{name: "keeps newlines", text: "a b\nc", width: 10, want: "a b\nc"},
		{name: "disabled", text: "eins zwei drei", width: 0, want: "eins zwei drei"},
		{name: "umlauts count once", text: "Ölförderung ändern", width: 11, want: "Ölförderung\nändern"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Wrap(tt.text, tt.width); got != tt.want {
				t.Fatalf("got %q want %q", got, tt.want)
			}
		})
	}
}

func sampleSummary() scoring.Summary {
	progress := scoring.Progress{CompletedCriteria: 2, TotalRequiredCriteria: 7, CompletedBonusCriteria: 1}
	return scoring.Summary{
		Sections: []scoring.SectionScore{
			{Key: "form", Title: "Form", Weight: 0.25, Score: 3.5, Progress: progress},
		},
		Progress:   scoring.TotalProgress{Progress: progress, Percentage: 28.6},
		Score:      0.9,
		Percentage: 18,
	}
}

func TestScoresPlain(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, false, 0)
	grade, ok := grading.Resolve(18, grading.Default())
	if err := p.Scores(sampleSummary(), grade, ok); err != nil {
		t.Fatalf("scores: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Form", "25%", "2/7 +1", "3.50", "Progress: 2/7 (28.6%)", "0.90 / 5 (18.0%)", "5,0 Nicht ausreichend"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "\x1b[") {
		t.Fatalf("plain output contains escape codes:\n%s", out)
	}
}

func TestScoresWithoutGrade(t *testing.T) {
	var buf bytes.Buffer
	if err := NewPrinter(&buf, false, 0).Scores(sampleSummary(), model.GradeThreshold{}, false); err != nil {
		t.Fatalf("scores: %v", err)
	}
	if !strings.Contains(buf.String(), "Grade:    -") {
		t.Fatalf("expected placeholder grade:\n%s", buf.String())
	}
}

func TestScoresColored(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, true, 0)
	grade := grading.Default().Thresholds[0]
	if err := p.Scores(sampleSummary(), grade, true); err != nil {
		t.Fatalf("scores: %v", err)
	}
	if !strings.Contains(buf.String(), "\x1b[") {
		t.Fatalf("expected escape codes in colored output")
	}
}

func TestText(t *testing.T) {
	cfg := rubric.Base()
	var state model.EvaluationState
	score := 4
	form := model.SectionState{}
	form.Criteria.Set("approach", model.CriterionState{Score: &score, CustomText: "Klares Vorgehen"})
	state.Sections.Set("form", form)

	var buf bytes.Buffer
	p := NewPrinter(&buf, false, 0)
	if err := p.Text(cfg.Sections, prose.FullText(cfg.Sections, state), " Rücksprache halten "); err != nil {
		t.Fatalf("text: %v", err)
	}
	form2, _ := cfg.Sections.Get("form")
	want := form2.Title + "\nKlares Vorgehen.\n\nNotes\nRücksprache halten\n"
	if buf.String() != want {
		t.Fatalf("got %q want %q", buf.String(), want)
	}

	buf.Reset()
	if err := p.Text(cfg.Sections, prose.FullText(cfg.Sections, model.EvaluationState{}), ""); err != nil {
		t.Fatalf("text: %v", err)
	}
	if !strings.Contains(buf.String(), "No criteria answered yet.") {
		t.Fatalf("expected empty hint, got %q", buf.String())
	}
}

func TestTemplates(t *testing.T) {
	var buf bytes.Buffer
	list := []model.Template{
		{ID: "default", Type: model.TemplateDefault, Name: "Standard", Version: "1.0.0"},
		{ID: "abc", Type: model.TemplateSaved, Name: "Mein Schema"},
	}
	if err := NewPrinter(&buf, false, 0).Templates(list); err != nil {
		t.Fatalf("templates: %v", err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %q", lines)
	}
	if !strings.HasPrefix(lines[2], "default  default  Standard") || !strings.HasSuffix(lines[2], "v1.0.0") {
		t.Fatalf("unexpected row %q", lines[2])
	}
	if lines[3] != "abc      saved    Mein Schema" {
		t.Fatalf("unexpected row %q", lines[3])
	}
}

func TestWeights(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, false, 0)
	if err := p.Weights(scoring.ValidateWeights(rubric.Base().Sections)); err != nil {
		t.Fatalf("weights: %v", err)
	}
	if !strings.Contains(buf.String(), "Weights are valid.") {
		t.Fatalf("expected valid weights:\n%s", buf.String())
	}

	buf.Reset()
	report := scoring.WeightReport{SectionWeightSum: 0.9, InvalidSections: []scoring.SectionWeight{{Key: "form", WeightSum: 0.8}}}
	if err := p.Weights(report); err != nil {
		t.Fatalf("weights: %v", err)
	}
	if !strings.Contains(buf.String(), `Criteria of "form" sum to 0.800`) {
		t.Fatalf("expected invalid section line:\n%s", buf.String())
	}
}

func TestGrades(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, false, 0)
	if err := p.Grades(grading.Default()); err != nil {
		t.Fatalf("grades: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Sehr gut >= 90%") || strings.Contains(out, "Warning") {
		t.Fatalf("unexpected grade output:\n%s", out)
	}

	buf.Reset()
	cfg := model.GradeConfig{Thresholds: []model.GradeThreshold{{Grade: "1,0", Text: "Sehr gut", MinPercentage: 50}}}
	if err := p.Grades(cfg); err != nil {
		t.Fatalf("grades: %v", err)
	}
	if !strings.Contains(buf.String(), "Warning: ") {
		t.Fatalf("expected warning:\n%s", buf.String())
	}
}

func TestShouldUseColor(t *testing.T) {
	var buf bytes.Buffer
	t.Setenv("NO_COLOR", "")
	if !ShouldUseColor(&buf, "always") {
		t.Fatalf("always must force color")
	}
	if ShouldUseColor(&buf, "never") || ShouldUseColor(&buf, "auto") {
		t.Fatalf("buffer is not a terminal")
	}
	t.Setenv("NO_COLOR", "1")
	if ShouldUseColor(&buf, "always") {
		t.Fatalf("NO_COLOR must win")
	}
	if TerminalWidth(&buf) != 0 {
		t.Fatalf("expected no width for a buffer")
	}
}
