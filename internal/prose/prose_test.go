package prose

import (
	"testing"

	"github.com/Marloto/evaluation-app/internal/model"
)

func intPtr(v int) *int {
	return &v
}

func testSection() model.Section {
	return model.Section{
		Title:  "Form",
		Weight: 1,
		Criteria: model.NewMap(
			model.Entry[model.Criterion]{Key: "layout", Value: model.Criterion{
				Title:   "Layout",
				Weight:  0.5,
				Options: []model.Option{{Text: "Layout is messy", Score: 1}, {Text: "Layout is clean.", Score: 5}},
			}},
			model.Entry[model.Criterion]{Key: "language", Value: model.Criterion{
				Title:   "Language",
				Weight:  0.5,
				Options: []model.Option{{Text: "  Many typos  ", Score: 1}, {Text: "Fluent", Score: 5}},
			}},
			model.Entry[model.Criterion]{Key: "sources", Value: model.Criterion{
				Title:   "Sources",
				Weight:  0.2,
				Options: []model.Option{{Text: "", Score: 3}},
			}},
		),
	}
}

func TestWithPeriod(t *testing.T) {
	tests := map[string]string{
		"done":       "done.",
		"done.":      "done.",
		"  spaced  ": "spaced.",
		"":           "",
		"   ":        "",
		"what?":      "what?.",
	}
	for in, want := range tests {
		if got := WithPeriod(in); got != want {
			t.Fatalf("WithPeriod(%q): expected %q, got %q", in, want, got)
		}
	}
}

func TestSectionTextEmpty(t *testing.T) {
	if got := SectionText(testSection(), model.SectionState{}); got != "" {
		t.Fatalf("expected empty text, got %q", got)
	}
}

func TestSectionText(t *testing.T) {
	var state model.SectionState
	state.Criteria.Set("language", model.CriterionState{Score: intPtr(1)})
	state.Criteria.Set("layout", model.CriterionState{Score: intPtr(5)})

	got := SectionText(testSection(), state)
	want := "Layout is clean. Many typos."
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestSectionTextCustomTextAndPreamble(t *testing.T) {
	state := model.SectionState{Preamble: "  Overall solid.  "}
	state.Criteria.Set("layout", model.CriterionState{Score: intPtr(1), CustomText: "Figures are misplaced"})
	state.Criteria.Set("language", model.CriterionState{CustomText: "unscored text is ignored"})

	got := SectionText(testSection(), state)
	want := "Overall solid. Figures are misplaced."
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestSectionTextPreambleOnly(t *testing.T) {
	state := model.SectionState{Preamble: "Intro"}
	if got := SectionText(testSection(), state); got != "Intro" {
		t.Fatalf("expected preamble only, got %q", got)
	}
}

func TestSectionTextSkipsEmptyFragments(t *testing.T) {
	var state model.SectionState
	state.Criteria.Set("sources", model.CriterionState{Score: intPtr(3)})
	state.Criteria.Set("layout", model.CriterionState{Score: intPtr(4)})
	if got := SectionText(testSection(), state); got != "" {
		t.Fatalf("expected empty text for option-less answers, got %q", got)
	}
}

func TestSectionTextBlankCustomTextFallsBack(t *testing.T) {
	tests := []struct {
		name   string
		custom string
	}{
		{name: "empty", custom: ""},
		{name: "spaces", custom: "   "},
		{name: "newlines", custom: "\n\t\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var state model.SectionState
			state.Criteria.Set("language", model.CriterionState{Score: intPtr(5), CustomText: tt.custom})
			if got := SectionText(testSection(), state); got != "Fluent." {
				t.Fatalf("expected option text, got %q", got)
			}
		})
	}
}

func TestSectionTextBlankCustomTextOnEmptyOption(t *testing.T) {
	var state model.SectionState
	state.Criteria.Set("sources", model.CriterionState{Score: intPtr(3), CustomText: "  "})
	state.Criteria.Set("language", model.CriterionState{Score: intPtr(1)})
	if got := SectionText(testSection(), state); got != "Many typos." {
		t.Fatalf("expected the empty fragment to be skipped, got %q", got)
	}
}

func TestFullText(t *testing.T) {
	sections := model.NewMap(
		model.Entry[model.Section]{Key: "form", Value: testSection()},
		model.Entry[model.Section]{Key: "other", Value: testSection()},
	)
	var state model.EvaluationState
	var ss model.SectionState
	ss.Criteria.Set("language", model.CriterionState{Score: intPtr(5)})
	state.Sections.Set("form", ss)

	texts := FullText(sections, state)
	if texts.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", texts.Len())
	}
	if got, _ := texts.Get("form"); got != "Fluent." {
		t.Fatalf("unexpected form text %q", got)
	}
	if got, _ := texts.Get("other"); got != "" {
		t.Fatalf("expected empty text for untouched section, got %q", got)
	}
}

func TestEditableTextData(t *testing.T) {
	sections := model.NewMap(model.Entry[model.Section]{Key: "form", Value: testSection()})
	var state model.EvaluationState
	ss := model.SectionState{Preamble: " Intro "}
	ss.Criteria.Set("language", model.CriterionState{Score: intPtr(5), CustomText: "Reads well"})
	state.Sections.Set("form", ss)

	data := EditableTextData(sections, state)
	if len(data) != 1 {
		t.Fatalf("expected 1 section, got %d", len(data))
	}
	section := data[0]
	if section.SectionKey != "form" || section.Title != "Form" || section.Preamble != "Intro" {
		t.Fatalf("unexpected section data: %+v", section)
	}
	if len(section.Criteria) != 1 {
		t.Fatalf("expected 1 criterion, got %d", len(section.Criteria))
	}
	c := section.Criteria[0]
	if c.CriterionKey != "language" || c.Title != "Language" || c.Text != "Reads well" || c.SectionKey != "form" {
		t.Fatalf("unexpected criterion data: %+v", c)
	}
}
