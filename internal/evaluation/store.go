// Package evaluation owns the evaluation state and persists it after every change.
package evaluation

import (
	"context"
	"strings"

	"github.com/Marloto/evaluation-app/internal/logging"
	"github.com/Marloto/evaluation-app/internal/model"
	"github.com/Marloto/evaluation-app/internal/prose"
	"github.com/Marloto/evaluation-app/internal/store"
)

// CriterionPatch is a partial CriterionState. Nil fields are left unchanged.
type CriterionPatch struct {
	Score      *int
	ClearScore bool
	CustomText *string
}

// Store holds the single evaluation state. Mutations are applied in memory and
// then written to the key-value store; write failures are logged, not returned.
type Store struct {
	kv    store.KV
	state model.EvaluationState
	logf  logging.Func
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for persistence failures.
func WithLogger(logf logging.Func) Option { return func(s *Store) { s.logf = logging.OrDefault(logf) } }

// New returns a store holding an empty state. Call Load to read the persisted state.
func New(kv store.KV, opts ...Option) *Store {
	s := &Store{kv: kv, logf: logging.Errf}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Initial builds an empty state with every section present and the first one active.
func Initial(sections model.Map[model.Section]) model.EvaluationState {
	var state model.EvaluationState
	for key := range sections.All() {
		state.Sections.Set(key, model.SectionState{})
	}
	if keys := sections.Keys(); len(keys) > 0 {
		first := keys[0]
		state.ActiveSection = &first
	}
	return state
}

// Load reads the persisted state. A missing or unreadable slot yields Initial(sections);
// the fallback is persisted right away.
func (s *Store) Load(ctx context.Context, sections model.Map[model.Section]) {
	var state model.EvaluationState
	ok, err := store.LoadJSON(ctx, s.kv, store.KeyState, &state)
	if err != nil {
		s.logf("failed to load evaluation state, starting fresh: %v\n", err)
	}
	if err != nil || !ok {
		s.state = Initial(sections)
		s.persist(ctx)
		return
	}
	s.state = state
}

// State returns a copy of the current state.
func (s *Store) State() model.EvaluationState {
	return s.state.Clone()
}

// UpdateCriterion merges patch into the criterion's state.
func (s *Store) UpdateCriterion(ctx context.Context, sectionKey, criterionKey string, patch CriterionPatch) {
	s.mutateSection(ctx, sectionKey, func(ss *model.SectionState) {
		cs, _ := ss.Criteria.Get(criterionKey)
		switch {
		case patch.ClearScore:
			cs.Score = nil
		case patch.Score != nil:
			score := *patch.Score
			cs.Score = &score
		}
		if patch.CustomText != nil {
			cs.CustomText = *patch.CustomText
		}
		ss.Criteria.Set(criterionKey, cs)
	})
}

// UpdatePreamble replaces the preamble of a section.
func (s *Store) UpdatePreamble(ctx context.Context, sectionKey, text string) {
	s.mutateSection(ctx, sectionKey, func(ss *model.SectionState) {
		ss.Preamble = text
	})
}

// UpdateNotes replaces the free-form notes.
func (s *Store) UpdateNotes(ctx context.Context, text string) {
	s.state.Notes = text
	s.persist(ctx)
}

// SetActiveSection focuses a section. An empty key clears the focus.
func (s *Store) SetActiveSection(ctx context.Context, key string) {
	if key == "" {
		s.state.ActiveSection = nil
	} else {
		s.state.ActiveSection = &key
	}
	s.persist(ctx)
}

// ResetSection drops every answer and the preamble of a section.
func (s *Store) ResetSection(ctx context.Context, sectionKey string) {
	s.state.Sections.Set(sectionKey, model.SectionState{})
	s.persist(ctx)
}

// ResetAll replaces the state with Initial(sections).
func (s *Store) ResetAll(ctx context.Context, sections model.Map[model.Section]) {
	s.state = Initial(sections)
	s.persist(ctx)
}

// Replace swaps in a complete state, e.g. from an imported file.
func (s *Store) Replace(ctx context.Context, state model.EvaluationState) {
	s.state = state.Clone()
	s.persist(ctx)
}

// ApplyTextEdits routes edited justification text back into the state. Edited
// preambles replace the section preamble; edited criterion texts become custom text.
// Unchanged entries are left alone so option texts keep tracking the rubric.
func (s *Store) ApplyTextEdits(ctx context.Context, sections model.Map[model.Section], edits []prose.SectionData) {
	current := prose.EditableTextData(sections, s.state)
	before := map[[2]string]string{}
	preambles := map[string]string{}
	for _, sd := range current {
		preambles[sd.SectionKey] = sd.Preamble
		for _, ct := range sd.Criteria {
			before[[2]string{ct.SectionKey, ct.CriterionKey}] = ct.Text
		}
	}

	changed := false
	for _, sd := range edits {
		if !sections.Has(sd.SectionKey) {
			continue
		}
		if preamble := strings.TrimSpace(sd.Preamble); preamble != preambles[sd.SectionKey] {
			ss := s.state.Section(sd.SectionKey).Clone()
			ss.Preamble = preamble
			s.state.Sections.Set(sd.SectionKey, ss)
			changed = true
		}
		for _, ct := range sd.Criteria {
			old, answered := before[[2]string{sd.SectionKey, ct.CriterionKey}]
			if !answered || ct.Text == old {
				continue
			}
			ss := s.state.Section(sd.SectionKey).Clone()
			cs, _ := ss.Criteria.Get(ct.CriterionKey)
			cs.CustomText = ct.Text
			ss.Criteria.Set(ct.CriterionKey, cs)
			s.state.Sections.Set(sd.SectionKey, ss)
			changed = true
		}
	}
	if changed {
		s.persist(ctx)
	}
}

func (s *Store) mutateSection(ctx context.Context, sectionKey string, mutate func(*model.SectionState)) {
	ss := s.state.Section(sectionKey).Clone()
	mutate(&ss)
	s.state.Sections.Set(sectionKey, ss)
	s.persist(ctx)
}

func (s *Store) persist(ctx context.Context) {
	if err := store.SaveJSON(ctx, s.kv, store.KeyState, s.state); err != nil {
		s.logf("failed to persist evaluation state: %v\n", err)
	}
}
