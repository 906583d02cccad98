// Package bundle reads and writes exported evaluation files.
package bundle

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/ast"
	"cuelang.org/go/cue/cuecontext"
	cuejson "cuelang.org/go/encoding/json"
	"gopkg.in/yaml.v3"

	"github.com/Marloto/evaluation-app/internal/model"
)

//go:embed schemas/*.cue
var schemaFS embed.FS

// Version is written into every exported file.
const Version = "1.0"

// Format selects the file encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts "json", "yaml" or "yml".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unknown format %q (want json or yaml)", s)
}

// FormatForPath picks the format from a file extension, defaulting to JSON.
func FormatForPath(path string) Format {
	lower := strings.ToLower(path)
	if strings.HasSuffix(lower, ".yaml") || strings.HasSuffix(lower, ".yml") {
		return FormatYAML
	}
	return FormatJSON
}

var (
	// ErrMissingKey is returned when a required top-level key is absent.
	ErrMissingKey = errors.New("missing required key")
	// ErrSchema is returned when the file does not match the bundle schema.
	ErrSchema = errors.New("invalid evaluation file")
)

// requiredKeys must all be present at the top level of an imported file.
var requiredKeys = []string{"version", "config", "evaluationState", "gradeConfig"}

// Bundle is the complete exported evaluation: rubric, answers and grade scale.
type Bundle struct {
	Version         string                 `json:"version" yaml:"version"`
	Timestamp       time.Time              `json:"timestamp,omitzero" yaml:"timestamp,omitempty"`
	Config          model.EvaluationConfig `json:"config" yaml:"config"`
	EvaluationState model.EvaluationState  `json:"evaluationState" yaml:"evaluationState"`
	GradeConfig     model.GradeConfig      `json:"gradeConfig" yaml:"gradeConfig"`
}

// New assembles a bundle stamped with the current format version.
func New(cfg model.EvaluationConfig, state model.EvaluationState, grades model.GradeConfig, now time.Time) Bundle {
	return Bundle{
		Version:         Version,
		Timestamp:       now.UTC(),
		Config:          cfg.Clone(),
		EvaluationState: state.Clone(),
		GradeConfig:     grades.Clone(),
	}
}

// Encode writes b in the given format.
func Encode(b Bundle, format Format) ([]byte, error) {
	switch format {
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(b); err != nil {
			return nil, fmt.Errorf("failed to encode evaluation file: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("failed to encode evaluation file: %w", err)
		}
		return buf.Bytes(), nil
	case FormatJSON, "":
		data, err := json.MarshalIndent(b, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to encode evaluation file: %w", err)
		}
		return append(data, '\n'), nil
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
}

// Decode parses a JSON or YAML evaluation file. The file must contain every
// required key, match the bundle schema and use unique keys in every mapping.
func Decode(data []byte) (Bundle, error) {
	s, err := loadSchema()
	if err != nil {
		return Bundle{}, err
	}
	value, err := parse(s.ctx, data)
	if err != nil {
		return Bundle{}, err
	}
	var missing []string
	for _, key := range requiredKeys {
		if !value.LookupPath(cue.MakePath(cue.Str(key))).Exists() {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return Bundle{}, fmt.Errorf("%w: %s", ErrMissingKey, strings.Join(missing, ", "))
	}
	if err := s.validate(value); err != nil {
		return Bundle{}, err
	}

	var b Bundle
	unmarshal := yaml.Unmarshal
	if looksLikeJSON(data) {
		unmarshal = json.Unmarshal
	}
	if err := unmarshal(data, &b); err != nil {
		return Bundle{}, fmt.Errorf("failed to decode evaluation file: %w", err)
	}
	return b, nil
}

// parse builds the CUE value checked against the schema. JSON goes through
// the CUE JSON decoder so every JSON escape is accepted and integers stay
// integers; anything else is read as YAML.
func parse(ctx *cue.Context, data []byte) (cue.Value, error) {
	if looksLikeJSON(data) {
		expr, err := cuejson.Extract("evaluation.json", data)
		if err != nil {
			return cue.Value{}, fmt.Errorf("failed to parse evaluation file: %w", err)
		}
		if err := uniqueLabels(expr); err != nil {
			return cue.Value{}, fmt.Errorf("failed to parse evaluation file: %w", err)
		}
		value := ctx.BuildExpr(expr)
		if err := value.Err(); err != nil {
			return cue.Value{}, fmt.Errorf("failed to parse evaluation file: %w", err)
		}
		return value, nil
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return cue.Value{}, fmt.Errorf("failed to parse evaluation file: %w", err)
	}
	value := ctx.Encode(raw)
	if err := value.Err(); err != nil {
		return cue.Value{}, fmt.Errorf("%w: %v", ErrSchema, err)
	}
	return value, nil
}

// uniqueLabels rejects objects that repeat a key. CUE would unify the
// duplicates instead of failing.
func uniqueLabels(expr ast.Expr) error {
	var err error
	ast.Walk(expr, func(n ast.Node) bool {
		if err != nil {
			return false
		}
		lit, ok := n.(*ast.StructLit)
		if !ok {
			return true
		}
		seen := make(map[string]bool, len(lit.Elts))
		for _, decl := range lit.Elts {
			field, ok := decl.(*ast.Field)
			if !ok {
				continue
			}
			name, _, lerr := ast.LabelName(field.Label)
			if lerr != nil {
				continue
			}
			if seen[name] {
				err = fmt.Errorf("duplicate key %q", name)
				return false
			}
			seen[name] = true
		}
		return true
	}, nil)
	return err
}

func looksLikeJSON(data []byte) bool {
	trimmed := bytes.TrimLeft(data, " \t\r\n\ufeff")
	return len(trimmed) > 0 && trimmed[0] == '{'
}

type schema struct {
	ctx    *cue.Context
	bundle cue.Value
}

var loadSchema = sync.OnceValues(func() (*schema, error) {
	ctx := cuecontext.New()
	entries, err := schemaFS.ReadDir("schemas")
	if err != nil {
		return nil, fmt.Errorf("failed to read schemas: %w", err)
	}
	var src []byte
	for _, entry := range entries {
		content, err := schemaFS.ReadFile("schemas/" + entry.Name())
		if err != nil {
			return nil, err
		}
		src = append(src, content...)
		src = append(src, '\n')
	}
	inst := ctx.CompileBytes(src, cue.Filename("bundle.cue"))
	if err := inst.Err(); err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}
	def := inst.LookupPath(cue.ParsePath("#Bundle"))
	if !def.Exists() {
		return nil, errors.New("schema has no #Bundle definition")
	}
	return &schema{ctx: ctx, bundle: def}, nil
})

func (s *schema) validate(value cue.Value) error {
	unified := s.bundle.Unify(value)
	if err := unified.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrSchema, err)
	}
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("%w: %v", ErrSchema, err)
	}
	return nil
}

// Check reports problems that do not block an import: empty rubric and answers
// for keys the rubric does not contain.
func Check(b Bundle) []string {
	var warnings []string
	if b.Config.Sections.Len() == 0 {
		warnings = append(warnings, "rubric has no sections")
	}
	for sectionKey, ss := range b.EvaluationState.Sections.All() {
		section, ok := b.Config.Sections.Get(sectionKey)
		if !ok {
			warnings = append(warnings, fmt.Sprintf("answers for unknown section %q are ignored", sectionKey))
			continue
		}
		for criterionKey := range ss.Criteria.All() {
			if !section.Criteria.Has(criterionKey) {
				warnings = append(warnings, fmt.Sprintf("answer for unknown criterion %q in section %q is ignored", criterionKey, sectionKey))
			}
		}
	}
	if active := b.EvaluationState.ActiveSection; active != nil && !b.Config.Sections.Has(*active) {
		warnings = append(warnings, fmt.Sprintf("active section %q does not exist", *active))
	}
	slices.Sort(warnings)
	return warnings
}
