// Package grading maps percentages to grades.
package grading

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/Marloto/evaluation-app/internal/model"
)

// Resolve returns the first threshold, in the given order, whose minimum does not
// exceed percentage. When none matches the last threshold is the floor. Thresholds
// are expected in descending order and are not sorted here. ok is false only when
// the list is empty.
func Resolve(percentage float64, cfg model.GradeConfig) (model.GradeThreshold, bool) {
	if len(cfg.Thresholds) == 0 {
		return model.GradeThreshold{}, false
	}
	for _, t := range cfg.Thresholds {
		if t.MinPercentage <= percentage {
			return t, true
		}
	}
	return cfg.Thresholds[len(cfg.Thresholds)-1], true
}

// Default returns the German university grading scale.
func Default() model.GradeConfig {
	return Normalize(model.GradeConfig{Thresholds: []model.GradeThreshold{
		{Grade: "1,0", Text: "Sehr gut", MinPercentage: 95},
		{Grade: "1,3", Text: "Sehr gut", MinPercentage: 90},
		{Grade: "1,7", Text: "Gut", MinPercentage: 85},
		{Grade: "2,0", Text: "Gut", MinPercentage: 80},
		{Grade: "2,3", Text: "Gut", MinPercentage: 75},
		{Grade: "2,7", Text: "Befriedigend", MinPercentage: 70},
		{Grade: "3,0", Text: "Befriedigend", MinPercentage: 65},
		{Grade: "3,3", Text: "Befriedigend", MinPercentage: 60},
		{Grade: "3,7", Text: "Ausreichend", MinPercentage: 55},
		{Grade: "4,0", Text: "Ausreichend", MinPercentage: 50},
		{Grade: "5,0", Text: "Nicht ausreichend", MinPercentage: 0},
	}})
}

type palette struct {
	color   string
	bgColor string
}

// palettes are assigned in pairs of rows, best grades first; the last entry covers every remaining row.
var palettes = []palette{
	{color: "#166534", bgColor: "#dcfce7"},
	{color: "#15803d", bgColor: "#dcfce7"},
	{color: "#3f6212", bgColor: "#ecfccb"},
	{color: "#854d0e", bgColor: "#fefce8"},
	{color: "#9a3412", bgColor: "#fff7ed"},
	{color: "#991b1b", bgColor: "#fef2f2"},
}

func paletteFor(row int) palette {
	idx := row / 2
	if idx >= len(palettes) {
		idx = len(palettes) - 1
	}
	return palettes[idx]
}

// Normalize clamps minimums to 0..100, sorts thresholds descending and recolors them by position.
func Normalize(cfg model.GradeConfig) model.GradeConfig {
	out := cfg.Clone()
	for i := range out.Thresholds {
		out.Thresholds[i].MinPercentage = clampPercentage(out.Thresholds[i].MinPercentage)
	}
	slices.SortStableFunc(out.Thresholds, func(a, b model.GradeThreshold) int {
		switch {
		case a.MinPercentage > b.MinPercentage:
			return -1
		case a.MinPercentage < b.MinPercentage:
			return 1
		}
		return 0
	})
	for i := range out.Thresholds {
		p := paletteFor(i)
		out.Thresholds[i].Color = p.color
		out.Thresholds[i].BgColor = p.bgColor
	}
	return out
}

func clampPercentage(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Min(100, math.Max(0, v))
}

// LegendEntry is one distinct grade description with the lowest minimum that carries it.
type LegendEntry struct {
	Text          string
	MinPercentage float64
	Color         string
}

// Legend lists distinct threshold descriptions in first-seen order.
func Legend(cfg model.GradeConfig) []LegendEntry {
	var entries []LegendEntry
	index := map[string]int{}
	for _, t := range cfg.Thresholds {
		if i, ok := index[t.Text]; ok {
			entries[i].MinPercentage = math.Min(entries[i].MinPercentage, t.MinPercentage)
			continue
		}
		index[t.Text] = len(entries)
		entries = append(entries, LegendEntry{Text: t.Text, MinPercentage: t.MinPercentage, Color: t.Color})
	}
	return entries
}

// Validate reports problems that make Resolve return surprising grades. The result is advisory.
func Validate(cfg model.GradeConfig) error {
	if len(cfg.Thresholds) == 0 {
		return errors.New("no grade thresholds configured")
	}
	var errs []error
	for i, t := range cfg.Thresholds {
		if t.MinPercentage < 0 || t.MinPercentage > 100 {
			errs = append(errs, fmt.Errorf("threshold %q: minimum %.1f outside 0..100", t.Grade, t.MinPercentage))
		}
		if i > 0 && t.MinPercentage > cfg.Thresholds[i-1].MinPercentage {
			errs = append(errs, fmt.Errorf("threshold %q: not sorted descending", t.Grade))
		}
	}
	if last := cfg.Thresholds[len(cfg.Thresholds)-1]; last.MinPercentage > 0 {
		errs = append(errs, fmt.Errorf("lowest threshold %q starts at %.1f, percentages below fall back to it", last.Grade, last.MinPercentage))
	}
	return errors.Join(errs...)
}
