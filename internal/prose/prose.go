// Package prose assembles the written justification of an evaluation.
package prose

import (
	"strings"

	"github.com/Marloto/evaluation-app/internal/model"
)

// WithPeriod trims text and makes sure it ends with a period. Empty input stays empty.
func WithPeriod(text string) string {
	text = strings.TrimSpace(text)
	if text == "" || strings.HasSuffix(text, ".") {
		return text
	}
	return text + "."
}

// criterionText resolves the text for an answered criterion. Custom text wins over the
// option text unless it is blank, in which case the option text is used.
func criterionText(criterion model.Criterion, state model.CriterionState) (string, bool) {
	if !state.Answered() {
		return "", false
	}
	if strings.TrimSpace(state.CustomText) != "" {
		return state.CustomText, true
	}
	opt, _ := criterion.OptionFor(*state.Score)
	return opt.Text, true
}

// SectionText renders the preamble followed by one sentence per answered criterion,
// in declaration order. It returns "" when nothing is set.
func SectionText(section model.Section, state model.SectionState) string {
	var fragments []string
	if preamble := strings.TrimSpace(state.Preamble); preamble != "" {
		fragments = append(fragments, preamble)
	}
	for key, criterion := range section.Criteria.All() {
		cs, _ := state.Criteria.Get(key)
		text, ok := criterionText(criterion, cs)
		if !ok {
			continue
		}
		if fragment := WithPeriod(text); fragment != "" {
			fragments = append(fragments, fragment)
		}
	}
	return strings.Join(fragments, " ")
}

// FullText applies SectionText to every section of the rubric.
func FullText(sections model.Map[model.Section], state model.EvaluationState) model.Map[string] {
	var out model.Map[string]
	for key, section := range sections.All() {
		out.Set(key, SectionText(section, state.Section(key)))
	}
	return out
}

// CriterionText is the editable text of one answered criterion.
type CriterionText struct {
	SectionKey   string `json:"sectionKey" yaml:"sectionKey"`
	CriterionKey string `json:"criterionKey" yaml:"criterionKey"`
	Title        string `json:"title" yaml:"title"`
	Text         string `json:"text" yaml:"text"`
}

// SectionData is the editable text of one section. Edits to Preamble and to
// criterion texts are routed back by key.
type SectionData struct {
	SectionKey string          `json:"sectionKey" yaml:"sectionKey"`
	Title      string          `json:"title" yaml:"title"`
	Preamble   string          `json:"preamble,omitempty" yaml:"preamble,omitempty"`
	Criteria   []CriterionText `json:"criteria" yaml:"criteria"`
}

// EditableTextData is the structured form of FullText, one entry per rubric section in order.
func EditableTextData(sections model.Map[model.Section], state model.EvaluationState) []SectionData {
	out := make([]SectionData, 0, sections.Len())
	for sectionKey, section := range sections.All() {
		ss := state.Section(sectionKey)
		data := SectionData{
			SectionKey: sectionKey,
			Title:      section.Title,
			Preamble:   strings.TrimSpace(ss.Preamble),
			Criteria:   []CriterionText{},
		}
		for criterionKey, criterion := range section.Criteria.All() {
			cs, _ := ss.Criteria.Get(criterionKey)
			text, ok := criterionText(criterion, cs)
			if !ok {
				continue
			}
			data.Criteria = append(data.Criteria, CriterionText{
				SectionKey:   sectionKey,
				CriterionKey: criterionKey,
				Title:        criterion.Title,
				Text:         text,
			})
		}
		out = append(out, data)
	}
	return out
}
