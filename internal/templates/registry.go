// Package templates manages built-in and user-saved rubric templates.
package templates

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/Marloto/evaluation-app/internal/logging"
	"github.com/Marloto/evaluation-app/internal/model"
	"github.com/Marloto/evaluation-app/internal/store"
)

var (
	// ErrNotFound is returned for unknown template ids.
	ErrNotFound = errors.New("template not found")
	// ErrDefaultTemplate is returned when a built-in template would be changed or deleted.
	ErrDefaultTemplate = errors.New("built-in templates cannot be modified")
)

// Registry lists built-in templates followed by saved templates. Only saved
// templates are persisted; built-ins are rebuilt from embedded data on every load.
type Registry struct {
	kv       store.KV
	builtins []model.Template
	saved    []model.Template

	now   func() time.Time
	newID func() string
	logf  logging.Func
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock sets the time source for template timestamps.
func WithClock(now func() time.Time) Option { return func(r *Registry) { r.now = now } }

// WithIDs sets the generator for new template IDs.
func WithIDs(newID func() string) Option { return func(r *Registry) { r.newID = newID } }

// WithLogger sets the logger for unreadable or unsaved templates. A nil logf
// keeps the stderr default.
func WithLogger(logf logging.Func) Option { return func(r *Registry) { r.logf = logging.OrDefault(logf) } }

// Open loads saved templates from kv. Unreadable data is logged and ignored.
func Open(ctx context.Context, kv store.KV, opts ...Option) *Registry {
	r := &Registry{
		kv:       kv,
		builtins: Builtins(),
		now:      time.Now,
		newID:    uuid.NewString,
		logf:     logging.Errf,
	}
	for _, o := range opts {
		o(r)
	}
	r.load(ctx)
	return r
}

func (r *Registry) load(ctx context.Context) {
	var stored []model.Template
	ok, err := store.LoadJSON(ctx, r.kv, store.KeyTemplates, &stored)
	if err != nil {
		r.logf("failed to load saved templates, starting without them: %v\n", err)
		return
	}
	if !ok {
		return
	}
	for _, t := range stored {
		if !model.IsSaved(t) {
			continue
		}
		if r.isBuiltin(t.ID) {
			r.logf("ignoring saved template %q: id collides with a built-in template\n", t.ID)
			continue
		}
		r.saved = append(r.saved, t)
	}
}

func (r *Registry) isBuiltin(id string) bool {
	return slices.ContainsFunc(r.builtins, func(t model.Template) bool { return t.ID == id })
}

// List returns built-in templates first, then saved templates in creation order.
func (r *Registry) List() []model.Template {
	out := make([]model.Template, 0, len(r.builtins)+len(r.saved))
	for _, t := range r.builtins {
		out = append(out, t.Clone())
	}
	for _, t := range r.saved {
		out = append(out, t.Clone())
	}
	return out
}

// Get returns the template with the given id.
func (r *Registry) Get(id string) (model.Template, error) {
	for _, list := range [][]model.Template{r.builtins, r.saved} {
		for _, t := range list {
			if t.ID == id {
				return t.Clone(), nil
			}
		}
	}
	return model.Template{}, fmt.Errorf("%q: %w", id, ErrNotFound)
}

// Config returns the rubric of the template with the given id.
func (r *Registry) Config(id string) (model.EvaluationConfig, error) {
	t, err := r.Get(id)
	if err != nil {
		return model.EvaluationConfig{}, err
	}
	return t.Config, nil
}

// Save stores cfg as a new saved template with a fresh id.
func (r *Registry) Save(ctx context.Context, name, description string, cfg model.EvaluationConfig) (model.Template, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Template{}, errors.New("template name must not be empty")
	}
	now := r.now().UTC()
	t := model.Template{
		ID:          r.newID(),
		Type:        model.TemplateSaved,
		Name:        name,
		Description: strings.TrimSpace(description),
		Config:      cfg.Clone(),
		CreatedAt:   now,
		ModifiedAt:  now,
	}
	next := append(slices.Clone(r.saved), t)
	if err := r.persist(ctx, next); err != nil {
		return model.Template{}, err
	}
	r.saved = next
	return t.Clone(), nil
}

// Update replaces the rubric of a saved template and bumps its modification time.
func (r *Registry) Update(ctx context.Context, id string, cfg model.EvaluationConfig) (model.Template, error) {
	if r.isBuiltin(id) {
		return model.Template{}, fmt.Errorf("%q: %w", id, ErrDefaultTemplate)
	}
	idx := r.savedIndex(id)
	if idx < 0 {
		return model.Template{}, fmt.Errorf("%q: %w", id, ErrNotFound)
	}
	next := slices.Clone(r.saved)
	next[idx].Config = cfg.Clone()
	next[idx].ModifiedAt = r.now().UTC()
	if err := r.persist(ctx, next); err != nil {
		return model.Template{}, err
	}
	r.saved = next
	return next[idx].Clone(), nil
}

// Delete removes a saved template. Deleting a built-in template is a logged no-op
// reported as ErrDefaultTemplate.
func (r *Registry) Delete(ctx context.Context, id string) error {
	if r.isBuiltin(id) {
		r.logf("refusing to delete built-in template %q\n", id)
		return fmt.Errorf("%q: %w", id, ErrDefaultTemplate)
	}
	idx := r.savedIndex(id)
	if idx < 0 {
		return fmt.Errorf("%q: %w", id, ErrNotFound)
	}
	next := slices.Delete(slices.Clone(r.saved), idx, idx+1)
	if err := r.persist(ctx, next); err != nil {
		return err
	}
	r.saved = next
	return nil
}

// Import adds a template read from a file as a new saved template. The id and
// timestamps of the file are replaced.
func (r *Registry) Import(ctx context.Context, t model.Template) (model.Template, error) {
	if t.Config.Sections.Len() == 0 {
		return model.Template{}, errors.New("template has no sections")
	}
	return r.Save(ctx, t.Name, t.Description, t.Config)
}

func (r *Registry) savedIndex(id string) int {
	return slices.IndexFunc(r.saved, func(t model.Template) bool { return t.ID == id })
}

func (r *Registry) persist(ctx context.Context, saved []model.Template) error {
	if saved == nil {
		saved = []model.Template{}
	}
	if err := store.SaveJSON(ctx, r.kv, store.KeyTemplates, saved); err != nil {
		return fmt.Errorf("failed to persist templates: %w", err)
	}
	return nil
}

// Decode reads a single template from YAML or JSON.
func Decode(data []byte) (model.Template, error) {
	var t model.Template
	if err := yaml.Unmarshal(data, &t); err != nil {
		return model.Template{}, fmt.Errorf("failed to decode template: %w", err)
	}
	if strings.TrimSpace(t.Name) == "" {
		return model.Template{}, errors.New("template has no name")
	}
	return t, nil
}

// Encode writes a template as YAML.
func Encode(t model.Template) ([]byte, error) {
	data, err := yaml.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("failed to encode template: %w", err)
	}
	return data, nil
}
