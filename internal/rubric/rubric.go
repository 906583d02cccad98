// Package rubric holds the built-in rubric and the operations that edit a rubric.
package rubric

import (
	_ "embed"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/Marloto/evaluation-app/internal/model"
)

//go:embed base.yaml
var baseYAML []byte

var (
	// ErrNotFound is returned when a section, criterion or option does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateKey is returned when a key or option score is already taken.
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrEmptyKey is returned when no key can be derived from a title.
	ErrEmptyKey = errors.New("empty key")
)

var loadBase = sync.OnceValues(func() (model.EvaluationConfig, error) {
	return Parse(baseYAML)
})

// Base returns a copy of the built-in thesis rubric.
func Base() model.EvaluationConfig {
	cfg, err := loadBase()
	if err != nil {
		panic(fmt.Sprintf("embedded base rubric is invalid: %v", err))
	}
	return cfg.Clone()
}

// Parse decodes a rubric from YAML or JSON.
func Parse(data []byte) (model.EvaluationConfig, error) {
	var cfg model.EvaluationConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return model.EvaluationConfig{}, fmt.Errorf("failed to parse rubric: %w", err)
	}
	return cfg, nil
}

var whitespace = regexp.MustCompile(`\s+`)

// Slug derives a key from a title: lower case, whitespace runs replaced by underscores.
func Slug(title string) string {
	return whitespace.ReplaceAllString(strings.ToLower(strings.TrimSpace(title)), "_")
}

func keyFor(key, title string) (string, error) {
	if key == "" {
		key = Slug(title)
	}
	if key == "" {
		return "", fmt.Errorf("title %q: %w", title, ErrEmptyKey)
	}
	return key, nil
}

// AddSection appends an empty section. An empty key is derived from title. The key is returned.
func AddSection(cfg *model.EvaluationConfig, key, title string, weight float64) (string, error) {
	key, err := keyFor(key, title)
	if err != nil {
		return "", err
	}
	if cfg.Sections.Has(key) {
		return "", fmt.Errorf("section %q: %w", key, ErrDuplicateKey)
	}
	cfg.Sections.Set(key, model.Section{Title: title, Weight: weight})
	return key, nil
}

// UpdateSection changes title and weight of a section and keeps its criteria.
func UpdateSection(cfg *model.EvaluationConfig, key, title string, weight float64) error {
	return editSection(cfg, key, func(s *model.Section) error {
		s.Title = title
		s.Weight = weight
		return nil
	})
}

// DeleteSection removes a section.
func DeleteSection(cfg *model.EvaluationConfig, key string) error {
	if !cfg.Sections.Delete(key) {
		return fmt.Errorf("section %q: %w", key, ErrNotFound)
	}
	return nil
}

// ReorderSections sets the section order. keys must name every section exactly once.
func ReorderSections(cfg *model.EvaluationConfig, keys []string) error {
	if err := cfg.Sections.Reorder(keys); err != nil {
		return fmt.Errorf("failed to reorder sections: %w", err)
	}
	return nil
}

// AddCriterion appends a criterion without options. An empty key is derived from title.
func AddCriterion(cfg *model.EvaluationConfig, sectionKey, key, title string, weight float64, bonus bool) (string, error) {
	key, err := keyFor(key, title)
	if err != nil {
		return "", err
	}
	err = editSection(cfg, sectionKey, func(s *model.Section) error {
		if s.Criteria.Has(key) {
			return fmt.Errorf("criterion %q: %w", key, ErrDuplicateKey)
		}
		s.Criteria.Set(key, model.Criterion{Title: title, Weight: weight, ExcludeFromTotal: bonus})
		return nil
	})
	if err != nil {
		return "", err
	}
	return key, nil
}

// UpdateCriterion changes title, weight and bonus flag and keeps the options.
func UpdateCriterion(cfg *model.EvaluationConfig, sectionKey, key, title string, weight float64, bonus bool) error {
	return editCriterion(cfg, sectionKey, key, func(c *model.Criterion) error {
		c.Title = title
		c.Weight = weight
		c.ExcludeFromTotal = bonus
		return nil
	})
}

// DeleteCriterion removes a criterion from a section.
func DeleteCriterion(cfg *model.EvaluationConfig, sectionKey, key string) error {
	return editSection(cfg, sectionKey, func(s *model.Section) error {
		if !s.Criteria.Delete(key) {
			return fmt.Errorf("criterion %q: %w", key, ErrNotFound)
		}
		return nil
	})
}

// ReorderCriteria sets the criterion order of a section.
func ReorderCriteria(cfg *model.EvaluationConfig, sectionKey string, keys []string) error {
	return editSection(cfg, sectionKey, func(s *model.Section) error {
		if err := s.Criteria.Reorder(keys); err != nil {
			return fmt.Errorf("failed to reorder criteria: %w", err)
		}
		return nil
	})
}

// AddOption inserts an option and keeps options sorted ascending by score.
func AddOption(cfg *model.EvaluationConfig, sectionKey, criterionKey string, opt model.Option) error {
	return editCriterion(cfg, sectionKey, criterionKey, func(c *model.Criterion) error {
		if _, ok := c.OptionFor(opt.Score); ok {
			return fmt.Errorf("option score %d: %w", opt.Score, ErrDuplicateKey)
		}
		c.Options = sortOptions(append(c.Options, opt))
		return nil
	})
}

// UpdateOption replaces the option at index and re-sorts by score.
func UpdateOption(cfg *model.EvaluationConfig, sectionKey, criterionKey string, index int, opt model.Option) error {
	return editCriterion(cfg, sectionKey, criterionKey, func(c *model.Criterion) error {
		if index < 0 || index >= len(c.Options) {
			return fmt.Errorf("option %d: %w", index, ErrNotFound)
		}
		for i, existing := range c.Options {
			if i != index && existing.Score == opt.Score {
				return fmt.Errorf("option score %d: %w", opt.Score, ErrDuplicateKey)
			}
		}
		c.Options[index] = opt
		c.Options = sortOptions(c.Options)
		return nil
	})
}

// DeleteOption removes the option at index.
func DeleteOption(cfg *model.EvaluationConfig, sectionKey, criterionKey string, index int) error {
	return editCriterion(cfg, sectionKey, criterionKey, func(c *model.Criterion) error {
		if index < 0 || index >= len(c.Options) {
			return fmt.Errorf("option %d: %w", index, ErrNotFound)
		}
		c.Options = slices.Delete(c.Options, index, index+1)
		return nil
	})
}

// ReorderOptions replaces the option list as given. Scores must stay unique.
func ReorderOptions(cfg *model.EvaluationConfig, sectionKey, criterionKey string, options []model.Option) error {
	seen := map[int]struct{}{}
	for _, opt := range options {
		if _, dup := seen[opt.Score]; dup {
			return fmt.Errorf("option score %d: %w", opt.Score, ErrDuplicateKey)
		}
		seen[opt.Score] = struct{}{}
	}
	return editCriterion(cfg, sectionKey, criterionKey, func(c *model.Criterion) error {
		c.Options = slices.Clone(options)
		return nil
	})
}

func sortOptions(options []model.Option) []model.Option {
	slices.SortStableFunc(options, func(a, b model.Option) int {
		return a.Score - b.Score
	})
	return options
}

func editSection(cfg *model.EvaluationConfig, key string, edit func(*model.Section) error) error {
	section, ok := cfg.Sections.Get(key)
	if !ok {
		return fmt.Errorf("section %q: %w", key, ErrNotFound)
	}
	section = section.Clone()
	if err := edit(&section); err != nil {
		return err
	}
	cfg.Sections.Set(key, section)
	return nil
}

func editCriterion(cfg *model.EvaluationConfig, sectionKey, key string, edit func(*model.Criterion) error) error {
	return editSection(cfg, sectionKey, func(s *model.Section) error {
		criterion, ok := s.Criteria.Get(key)
		if !ok {
			return fmt.Errorf("criterion %q in section %q: %w", key, sectionKey, ErrNotFound)
		}
		if err := edit(&criterion); err != nil {
			return err
		}
		s.Criteria.Set(key, criterion)
		return nil
	})
}
