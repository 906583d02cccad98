// Package workspace ties the persisted slots together: the current rubric, the
// grade scale, the template registry and the evaluation state.
package workspace

import (
	"context"
	"fmt"
	"time"

	"github.com/Marloto/evaluation-app/internal/bundle"
	"github.com/Marloto/evaluation-app/internal/evaluation"
	"github.com/Marloto/evaluation-app/internal/grading"
	"github.com/Marloto/evaluation-app/internal/logging"
	"github.com/Marloto/evaluation-app/internal/model"
	"github.com/Marloto/evaluation-app/internal/scoring"
	"github.com/Marloto/evaluation-app/internal/store"
	"github.com/Marloto/evaluation-app/internal/templates"
)

// Workspace is the single evaluation session backed by a key-value store.
// It is not safe for concurrent use.
type Workspace struct {
	kv        store.KV
	templates *templates.Registry
	eval      *evaluation.Store

	config model.EvaluationConfig
	grades model.GradeConfig

	defaultTemplate string
	now             func() time.Time
	newID           func() string
	logf            logging.Func
}

// Option configures a Workspace.
type Option func(*Workspace)

// WithDefaultTemplate selects the template used when no rubric is persisted yet.
func WithDefaultTemplate(id string) Option {
	return func(w *Workspace) {
		if id != "" {
			w.defaultTemplate = id
		}
	}
}

// WithClock sets the time source passed to the template registry and used for export timestamps.
func WithClock(now func() time.Time) Option { return func(w *Workspace) { w.now = now } }

// WithIDs sets the generator for new template IDs.
func WithIDs(newID func() string) Option { return func(w *Workspace) { w.newID = newID } }

// WithLogger sets the logger for slots that fail to load or save.
func WithLogger(logf logging.Func) Option { return func(w *Workspace) { w.logf = logging.OrDefault(logf) } }

// Open loads every slot from kv. Missing or unreadable slots fall back to the
// default template, the default grade scale and an empty evaluation; the
// fallbacks are persisted. Open fails only when the default template is unknown.
func Open(ctx context.Context, kv store.KV, opts ...Option) (*Workspace, error) {
	w := &Workspace{
		kv:              kv,
		defaultTemplate: templates.DefaultID,
		now:             time.Now,
		logf:            logging.Errf,
	}
	for _, o := range opts {
		o(w)
	}

	regOpts := []templates.Option{templates.WithClock(w.now), templates.WithLogger(w.logf)}
	if w.newID != nil {
		regOpts = append(regOpts, templates.WithIDs(w.newID))
	}
	w.templates = templates.Open(ctx, kv, regOpts...)

	if err := w.loadConfig(ctx); err != nil {
		return nil, err
	}
	w.loadGrades(ctx)

	w.eval = evaluation.New(kv, evaluation.WithLogger(w.logf))
	w.eval.Load(ctx, w.config.Sections)
	return w, nil
}

func (w *Workspace) loadConfig(ctx context.Context) error {
	var cfg model.EvaluationConfig
	ok, err := store.LoadJSON(ctx, w.kv, store.KeyConfig, &cfg)
	if err != nil {
		w.logf("failed to load rubric, using template %q: %v\n", w.defaultTemplate, err)
	}
	if err == nil && ok {
		w.config = cfg
		return nil
	}
	fallback, err := w.templates.Config(w.defaultTemplate)
	if err != nil {
		return fmt.Errorf("failed to load default template: %w", err)
	}
	w.config = fallback
	w.save(ctx, store.KeyConfig, w.config)
	return nil
}

func (w *Workspace) loadGrades(ctx context.Context) {
	var grades model.GradeConfig
	ok, err := store.LoadJSON(ctx, w.kv, store.KeyGrades, &grades)
	if err != nil {
		w.logf("failed to load grade scale, using default: %v\n", err)
	}
	if err == nil && ok && len(grades.Thresholds) > 0 {
		w.grades = grades
		return
	}
	if err == nil && ok {
		w.logf("stored grade scale is empty, using default\n")
	}
	w.grades = grading.Default()
	w.save(ctx, store.KeyGrades, w.grades)
}

// save writes a fallback slot. Failures are logged; the in-memory value stays usable.
func (w *Workspace) save(ctx context.Context, key string, v any) {
	if err := store.SaveJSON(ctx, w.kv, key, v); err != nil {
		w.logf("failed to persist %s: %v\n", key, err)
	}
}

// Config returns a copy of the current rubric.
func (w *Workspace) Config() model.EvaluationConfig { return w.config.Clone() }

// Grades returns a copy of the current grade scale.
func (w *Workspace) Grades() model.GradeConfig { return w.grades.Clone() }

// State returns a copy of the evaluation state.
func (w *Workspace) State() model.EvaluationState { return w.eval.State() }

// Evaluation exposes the evaluation store for answer edits.
func (w *Workspace) Evaluation() *evaluation.Store { return w.eval }

// Templates exposes the template registry.
func (w *Workspace) Templates() *templates.Registry { return w.templates }

// UpdateConfig replaces the rubric. Answers are kept; keys that no longer exist
// are ignored by scoring.
func (w *Workspace) UpdateConfig(ctx context.Context, cfg model.EvaluationConfig) error {
	if err := store.SaveJSON(ctx, w.kv, store.KeyConfig, cfg); err != nil {
		return fmt.Errorf("failed to save rubric: %w", err)
	}
	w.config = cfg.Clone()
	return nil
}

// EditConfig applies edit to a copy of the rubric and stores the result.
// Nothing is stored when edit fails.
func (w *Workspace) EditConfig(ctx context.Context, edit func(*model.EvaluationConfig) error) error {
	cfg := w.config.Clone()
	if err := edit(&cfg); err != nil {
		return err
	}
	return w.UpdateConfig(ctx, cfg)
}

// ResetConfig restores the rubric of the built-in default template.
func (w *Workspace) ResetConfig(ctx context.Context) error {
	cfg, err := w.templates.Config(templates.DefaultID)
	if err != nil {
		return err
	}
	return w.UpdateConfig(ctx, cfg)
}

// ApplyTemplate replaces the rubric with the template's and starts a fresh evaluation.
func (w *Workspace) ApplyTemplate(ctx context.Context, id string) error {
	cfg, err := w.templates.Config(id)
	if err != nil {
		return err
	}
	if err := w.UpdateConfig(ctx, cfg); err != nil {
		return err
	}
	w.eval.ResetAll(ctx, w.config.Sections)
	return nil
}

// SaveTemplate stores the current rubric as a new saved template.
func (w *Workspace) SaveTemplate(ctx context.Context, name, description string) (model.Template, error) {
	return w.templates.Save(ctx, name, description, w.config)
}

// UpdateGrades normalizes and stores a new grade scale.
func (w *Workspace) UpdateGrades(ctx context.Context, grades model.GradeConfig) error {
	normalized := grading.Normalize(grades)
	if err := store.SaveJSON(ctx, w.kv, store.KeyGrades, normalized); err != nil {
		return fmt.Errorf("failed to save grade scale: %w", err)
	}
	w.grades = normalized
	return nil
}

// ResetGrades restores the default grade scale.
func (w *Workspace) ResetGrades(ctx context.Context) error {
	return w.UpdateGrades(ctx, grading.Default())
}

// Result is the score summary together with the resolved grade.
type Result struct {
	scoring.Summary
	Grade    model.GradeThreshold `json:"grade"`
	HasGrade bool                 `json:"hasGrade"`
}

// Summary scores the current evaluation and resolves its grade.
func (w *Workspace) Summary() Result {
	summary := scoring.Summarize(w.config, w.eval.State())
	grade, ok := grading.Resolve(summary.Percentage, w.grades)
	return Result{Summary: summary, Grade: grade, HasGrade: ok}
}

// Bundle snapshots the rubric, the answers and the grade scale.
func (w *Workspace) Bundle() bundle.Bundle {
	return bundle.New(w.config, w.eval.State(), w.grades, w.now())
}

// Export encodes the current session as an evaluation file.
func (w *Workspace) Export(format bundle.Format) ([]byte, error) {
	return bundle.Encode(w.Bundle(), format)
}

// Import decodes an evaluation file and loads it. Warnings describe answers that
// do not match the imported rubric; they do not block the import. On error the
// workspace is unchanged.
func (w *Workspace) Import(ctx context.Context, data []byte) ([]string, error) {
	b, err := bundle.Decode(data)
	if err != nil {
		return nil, err
	}
	if err := w.LoadBundle(ctx, b); err != nil {
		return nil, err
	}
	return bundle.Check(b), nil
}

// LoadBundle replaces rubric, grade scale and evaluation state. The rubric and
// grade scale are written before the state. When a write fails, slots already
// written are restored and the in-memory session is left untouched.
func (w *Workspace) LoadBundle(ctx context.Context, b bundle.Bundle) error {
	writes := []struct {
		key   string
		value any
	}{
		{store.KeyConfig, b.Config},
		{store.KeyGrades, b.GradeConfig},
		{store.KeyState, b.EvaluationState},
	}

	var done []slotBackup
	for _, wr := range writes {
		data, exists, err := w.kv.Get(ctx, wr.key)
		if err != nil {
			w.rollback(ctx, done)
			return fmt.Errorf("failed to read %s: %w", wr.key, err)
		}
		if err := store.SaveJSON(ctx, w.kv, wr.key, wr.value); err != nil {
			w.rollback(ctx, done)
			return fmt.Errorf("failed to load evaluation file: %w", err)
		}
		done = append(done, slotBackup{key: wr.key, data: data, exists: exists})
	}

	w.config = b.Config.Clone()
	w.grades = b.GradeConfig.Clone()
	w.eval.Replace(ctx, b.EvaluationState)
	return nil
}

type slotBackup struct {
	key    string
	data   []byte
	exists bool
}

func (w *Workspace) rollback(ctx context.Context, done []slotBackup) {
	for i := len(done) - 1; i >= 0; i-- {
		prev := done[i]
		if !prev.exists {
			// KV has no delete; an absent slot is restored as the in-memory value.
			w.restoreCurrent(ctx, prev.key)
			continue
		}
		if err := w.kv.Set(ctx, prev.key, prev.data); err != nil {
			w.logf("failed to restore %s: %v\n", prev.key, err)
		}
	}
}

func (w *Workspace) restoreCurrent(ctx context.Context, key string) {
	var value any
	switch key {
	case store.KeyConfig:
		value = w.config
	case store.KeyGrades:
		value = w.grades
	case store.KeyState:
		value = w.eval.State()
	default:
		return
	}
	w.save(ctx, key, value)
}
