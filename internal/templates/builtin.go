package templates

import (
	_ "embed"
	"fmt"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Marloto/evaluation-app/internal/model"
	"github.com/Marloto/evaluation-app/internal/rubric"
)

//go:embed builtin.yaml
var builtinYAML []byte

// DefaultID is the built-in template used when nothing else is configured.
const DefaultID = "default"

type builtinFile struct {
	Templates []builtinTemplate `yaml:"templates"`
}

type builtinTemplate struct {
	ID          string                     `yaml:"id"`
	Name        string                     `yaml:"name"`
	Description string                     `yaml:"description"`
	Version     string                     `yaml:"version"`
	LastUpdated time.Time                  `yaml:"lastUpdated"`
	Overrides   map[string]sectionOverride `yaml:"overrides"`
}

// sectionOverride replaces leaf values of a base section. Keys must exist in the base rubric.
type sectionOverride struct {
	Title    *string                      `yaml:"title"`
	Weight   *float64                     `yaml:"weight"`
	Criteria map[string]criterionOverride `yaml:"criteria"`
}

type criterionOverride struct {
	Title   *string        `yaml:"title"`
	Weight  *float64       `yaml:"weight"`
	Options []model.Option `yaml:"options"`
}

var loadBuiltins = sync.OnceValues(func() ([]model.Template, error) {
	return parseBuiltins(builtinYAML, rubric.Base())
})

// Builtins returns the default templates in their declared order.
func Builtins() []model.Template {
	list, err := loadBuiltins()
	if err != nil {
		panic(fmt.Sprintf("embedded templates are invalid: %v", err))
	}
	out := make([]model.Template, len(list))
	for i, t := range list {
		out[i] = t.Clone()
	}
	return out
}

func parseBuiltins(data []byte, base model.EvaluationConfig) ([]model.Template, error) {
	var file builtinFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse built-in templates: %w", err)
	}
	out := make([]model.Template, 0, len(file.Templates))
	for _, bt := range file.Templates {
		cfg, err := applyOverrides(base.Clone(), bt.Overrides)
		if err != nil {
			return nil, fmt.Errorf("template %q: %w", bt.ID, err)
		}
		out = append(out, model.Template{
			ID:          bt.ID,
			Type:        model.TemplateDefault,
			Name:        bt.Name,
			Description: bt.Description,
			Config:      cfg,
			Version:     bt.Version,
			LastUpdated: bt.LastUpdated,
		})
	}
	return out, nil
}

func applyOverrides(cfg model.EvaluationConfig, overrides map[string]sectionOverride) (model.EvaluationConfig, error) {
	for sectionKey, so := range overrides {
		section, ok := cfg.Sections.Get(sectionKey)
		if !ok {
			return cfg, fmt.Errorf("override for unknown section %q", sectionKey)
		}
		if so.Title != nil {
			section.Title = *so.Title
		}
		if so.Weight != nil {
			section.Weight = *so.Weight
		}
		for criterionKey, co := range so.Criteria {
			criterion, ok := section.Criteria.Get(criterionKey)
			if !ok {
				return cfg, fmt.Errorf("override for unknown criterion %q in section %q", criterionKey, sectionKey)
			}
			if co.Title != nil {
				criterion.Title = *co.Title
			}
			if co.Weight != nil {
				criterion.Weight = *co.Weight
			}
			if co.Options != nil {
				criterion.Options = co.Options
			}
			section.Criteria.Set(criterionKey, criterion)
		}
		cfg.Sections.Set(sectionKey, section)
	}
	return cfg, nil
}
