// Package model defines shared data structures.
package model

import (
	"slices"
	"time"
)

// Option is one selectable answer of a criterion.
type Option struct {
	Text  string `json:"text" yaml:"text"`
	Score int    `json:"score" yaml:"score"`
}

// Criterion is a weighted question inside a section.
// ExcludeFromTotal marks a bonus criterion.
type Criterion struct {
	Title            string   `json:"title" yaml:"title"`
	Weight           float64  `json:"weight" yaml:"weight"`
	ExcludeFromTotal bool     `json:"excludeFromTotal,omitempty" yaml:"excludeFromTotal,omitempty"`
	Options          []Option `json:"options" yaml:"options"`
}

// OptionFor returns the option carrying score.
func (c Criterion) OptionFor(score int) (Option, bool) {
	for _, opt := range c.Options {
		if opt.Score == score {
			return opt, true
		}
	}
	return Option{}, false
}

// Clone returns a deep copy.
func (c Criterion) Clone() Criterion {
	c.Options = slices.Clone(c.Options)
	return c
}

// Section groups criteria under a weight.
type Section struct {
	Title    string         `json:"title" yaml:"title"`
	Weight   float64        `json:"weight" yaml:"weight"`
	Criteria Map[Criterion] `json:"criteria" yaml:"criteria"`
}

// Clone returns a deep copy.
func (s Section) Clone() Section {
	s.Criteria = s.Criteria.Clone(Criterion.Clone)
	return s
}

// EvaluationConfig is the rubric: sections, criteria and options.
type EvaluationConfig struct {
	Sections Map[Section] `json:"sections" yaml:"sections"`
}

// Clone returns a deep copy.
func (c EvaluationConfig) Clone() EvaluationConfig {
	return EvaluationConfig{Sections: c.Sections.Clone(Section.Clone)}
}

// CriterionState holds the evaluator's answer for a criterion. A nil Score means unanswered.
type CriterionState struct {
	Score      *int   `json:"score,omitempty" yaml:"score,omitempty"`
	CustomText string `json:"customText,omitempty" yaml:"customText,omitempty"`
}

// Answered reports whether a score has been selected.
func (c CriterionState) Answered() bool {
	return c.Score != nil
}

// Clone returns a deep copy.
func (c CriterionState) Clone() CriterionState {
	if c.Score != nil {
		score := *c.Score
		c.Score = &score
	}
	return c
}

// SectionState holds the answers and preamble for a section.
type SectionState struct {
	Preamble string              `json:"preamble,omitempty" yaml:"preamble,omitempty"`
	Criteria Map[CriterionState] `json:"criteria" yaml:"criteria"`
}

// Clone returns a deep copy.
func (s SectionState) Clone() SectionState {
	s.Criteria = s.Criteria.Clone(CriterionState.Clone)
	return s
}

// EvaluationState is the mutable record of an evaluation in progress.
type EvaluationState struct {
	Sections      Map[SectionState] `json:"sections" yaml:"sections"`
	ActiveSection *string           `json:"activeSection" yaml:"activeSection"`
	Notes         string            `json:"notes" yaml:"notes"`
}

// Section returns the state for key, or an empty state when absent.
func (e EvaluationState) Section(key string) SectionState {
	s, _ := e.Sections.Get(key)
	return s
}

// Clone returns a deep copy.
func (e EvaluationState) Clone() EvaluationState {
	e.Sections = e.Sections.Clone(SectionState.Clone)
	if e.ActiveSection != nil {
		active := *e.ActiveSection
		e.ActiveSection = &active
	}
	return e
}

// GradeThreshold maps a minimum percentage to a grade.
type GradeThreshold struct {
	Grade         string  `json:"grade" yaml:"grade"`
	Text          string  `json:"text" yaml:"text"`
	MinPercentage float64 `json:"minPercentage" yaml:"minPercentage"`
	Color         string  `json:"color" yaml:"color"`
	BgColor       string  `json:"bgColor" yaml:"bgColor"`
}

// GradeConfig lists thresholds, conventionally descending by MinPercentage.
type GradeConfig struct {
	Thresholds []GradeThreshold `json:"thresholds" yaml:"thresholds"`
}

// Clone returns a deep copy.
func (g GradeConfig) Clone() GradeConfig {
	g.Thresholds = slices.Clone(g.Thresholds)
	return g
}

// TemplateType discriminates built-in and user templates.
type TemplateType string

const (
	TemplateDefault TemplateType = "default"
	TemplateSaved   TemplateType = "saved"
)

// Template is a named rubric. Default templates carry Version and LastUpdated;
// saved templates carry CreatedAt and ModifiedAt.
type Template struct {
	ID          string           `json:"id" yaml:"id"`
	Type        TemplateType     `json:"type" yaml:"type"`
	Name        string           `json:"name" yaml:"name"`
	Description string           `json:"description" yaml:"description"`
	Config      EvaluationConfig `json:"config" yaml:"config"`

	Version     string    `json:"version,omitempty" yaml:"version,omitempty"`
	LastUpdated time.Time `json:"lastUpdated,omitzero" yaml:"lastUpdated,omitempty"`

	CreatedAt  time.Time `json:"createdAt,omitzero" yaml:"createdAt,omitempty"`
	ModifiedAt time.Time `json:"modifiedAt,omitzero" yaml:"modifiedAt,omitempty"`
}

// IsDefault reports whether t is a built-in template.
func IsDefault(t Template) bool {
	return t.Type == TemplateDefault
}

// IsSaved reports whether t was created by the user.
func IsSaved(t Template) bool {
	return t.Type == TemplateSaved
}

// Clone returns a deep copy.
func (t Template) Clone() Template {
	t.Config = t.Config.Clone()
	return t
}
