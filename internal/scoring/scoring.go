// Package scoring contains the rubric score calculations.
package scoring

import (
	"math"

	"github.com/Marloto/evaluation-app/internal/model"
)

// MaxScore is the top of the normalized display band.
const MaxScore = 5.0

// weightTolerance is the allowed deviation of a weight sum from 1.
const weightTolerance = 0.001

// Progress counts answered criteria. Bonus completions are never part of the required total.
type Progress struct {
	CompletedCriteria      int `json:"completedCriteria"`
	TotalRequiredCriteria  int `json:"totalRequiredCriteria"`
	CompletedBonusCriteria int `json:"completedBonusCriteria"`
}

// TotalProgress is Progress summed over all sections, plus the completion percentage.
type TotalProgress struct {
	Progress
	Percentage float64 `json:"percentage"`
}

// SectionProgress counts answered criteria of a section.
func SectionProgress(section model.Section, state model.SectionState) Progress {
	var p Progress
	for key, criterion := range section.Criteria.All() {
		if !criterion.ExcludeFromTotal {
			p.TotalRequiredCriteria++
		}
		cs, ok := state.Criteria.Get(key)
		if !ok || !cs.Answered() {
			continue
		}
		if criterion.ExcludeFromTotal {
			p.CompletedBonusCriteria++
		} else {
			p.CompletedCriteria++
		}
	}
	return p
}

// CalculateTotalProgress sums SectionProgress over all sections.
// The percentage is rounded to one decimal and is 0 when nothing is required.
func CalculateTotalProgress(sections model.Map[model.Section], state model.EvaluationState) TotalProgress {
	var total TotalProgress
	for key, section := range sections.All() {
		p := SectionProgress(section, state.Section(key))
		total.CompletedCriteria += p.CompletedCriteria
		total.TotalRequiredCriteria += p.TotalRequiredCriteria
		total.CompletedBonusCriteria += p.CompletedBonusCriteria
	}
	if total.TotalRequiredCriteria > 0 {
		pct := float64(total.CompletedCriteria) / float64(total.TotalRequiredCriteria) * 100
		total.Percentage = math.Round(pct*10) / 10
	}
	return total
}

// NormalizedSectionScore rescales a section's weighted answers to the 0..MaxScore band.
//
// Regular criteria contribute score*weight and their weight to the denominator once
// answered. Bonus criteria only add score*weight to the numerator. The numerator is
// capped at the regular weight times MaxScore, so bonus points can recover lost regular
// points but never lift the section above its nominal maximum. A section without
// answered regular criteria scores 0.
func NormalizedSectionScore(section model.Section, state model.SectionState) float64 {
	var regularWeightedSum, regularTotalWeight, bonusWeightedSum float64
	for key, criterion := range section.Criteria.All() {
		cs, ok := state.Criteria.Get(key)
		if !ok || !cs.Answered() {
			continue
		}
		weighted := float64(*cs.Score) * criterion.Weight
		if criterion.ExcludeFromTotal {
			bonusWeightedSum += weighted
			continue
		}
		regularWeightedSum += weighted
		regularTotalWeight += criterion.Weight
	}
	if regularTotalWeight <= 0 {
		return 0
	}
	capped := math.Min(regularTotalWeight*MaxScore, regularWeightedSum+bonusWeightedSum)
	return capped / regularTotalWeight
}

// OverallScore is the section-weight blend of normalized section scores. It is not
// clamped: a result outside 0..MaxScore signals section weights that do not sum to 1.
func OverallScore(sections model.Map[model.Section], state model.EvaluationState) float64 {
	var total float64
	for key, section := range sections.All() {
		total += NormalizedSectionScore(section, state.Section(key)) * section.Weight
	}
	return total
}

// OverallPercentage converts an overall score to a percentage of MaxScore.
func OverallPercentage(score float64) float64 {
	return score / MaxScore * 100
}

// SectionScore is the per-section projection used by reports.
type SectionScore struct {
	Key      string   `json:"key"`
	Title    string   `json:"title"`
	Weight   float64  `json:"weight"`
	Score    float64  `json:"score"`
	Progress Progress `json:"progress"`
}

// Summary is the full score projection of a rubric and an evaluation state.
type Summary struct {
	Sections   []SectionScore `json:"sections"`
	Progress   TotalProgress  `json:"progress"`
	Score      float64        `json:"score"`
	Percentage float64        `json:"percentage"`
}

// Summarize computes every score of an evaluation in one pass over the rubric.
func Summarize(cfg model.EvaluationConfig, state model.EvaluationState) Summary {
	summary := Summary{
		Sections: make([]SectionScore, 0, cfg.Sections.Len()),
		Progress: CalculateTotalProgress(cfg.Sections, state),
	}
	for key, section := range cfg.Sections.All() {
		ss := state.Section(key)
		summary.Sections = append(summary.Sections, SectionScore{
			Key:      key,
			Title:    section.Title,
			Weight:   section.Weight,
			Score:    NormalizedSectionScore(section, ss),
			Progress: SectionProgress(section, ss),
		})
	}
	summary.Score = OverallScore(cfg.Sections, state)
	summary.Percentage = OverallPercentage(summary.Score)
	return summary
}

// SectionWeight reports a section whose regular criterion weights do not sum to 1.
type SectionWeight struct {
	Key       string  `json:"key"`
	WeightSum float64 `json:"weightSum"`
}

// WeightReport is the advisory result of ValidateWeights.
type WeightReport struct {
	Valid            bool            `json:"valid"`
	SectionWeightSum float64         `json:"sectionWeightSum"`
	InvalidSections  []SectionWeight `json:"invalidSections"`
}

// ValidateWeights checks that section weights sum to 1 and that, per section, the
// weights of regular criteria sum to 1. Bonus criteria are ignored.
func ValidateWeights(sections model.Map[model.Section]) WeightReport {
	var report WeightReport
	for key, section := range sections.All() {
		report.SectionWeightSum += section.Weight
		var sum float64
		for _, criterion := range section.Criteria.All() {
			if criterion.ExcludeFromTotal {
				continue
			}
			sum += criterion.Weight
		}
		if math.Abs(sum-1) > weightTolerance {
			report.InvalidSections = append(report.InvalidSections, SectionWeight{Key: key, WeightSum: sum})
		}
	}
	report.Valid = math.Abs(report.SectionWeightSum-1) <= weightTolerance && len(report.InvalidSections) == 0
	return report
}
