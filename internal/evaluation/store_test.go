package evaluation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/Marloto/evaluation-app/internal/model"
	"github.com/Marloto/evaluation-app/internal/prose"
	"github.com/Marloto/evaluation-app/internal/rubric"
	"github.com/Marloto/evaluation-app/internal/store"
)

func intPtr(v int) *int {
	return &v
}

func strPtr(v string) *string {
	return &v
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(data)
}

func persisted(t *testing.T, kv store.KV) model.EvaluationState {
	t.Helper()
	var state model.EvaluationState
	ok, err := store.LoadJSON(context.Background(), kv, store.KeyState, &state)
	if err != nil || !ok {
		t.Fatalf("expected persisted state, ok=%v err=%v", ok, err)
	}
	return state
}

func TestInitial(t *testing.T) {
	cfg := rubric.Base()
	state := Initial(cfg.Sections)
	if state.Sections.Len() != cfg.Sections.Len() {
		t.Fatalf("expected %d sections, got %d", cfg.Sections.Len(), state.Sections.Len())
	}
	if state.ActiveSection == nil || *state.ActiveSection != "preface" {
		t.Fatalf("expected first section active, got %v", state.ActiveSection)
	}
	if state.Notes != "" {
		t.Fatalf("expected empty notes")
	}
	if empty := Initial(model.Map[model.Section]{}); empty.ActiveSection != nil {
		t.Fatalf("expected no active section for empty rubric")
	}
}

func TestLoadFallsBackAndPersists(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()
	s := New(kv, WithLogger(capture(t, nil)))
	s.Load(ctx, rubric.Base().Sections)

	got := persisted(t, kv)
	if mustJSON(t, got) != mustJSON(t, s.State()) {
		t.Fatalf("fallback state was not persisted")
	}
}

func TestLoadMalformedLogs(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()
	if err := kv.Set(ctx, store.KeyState, []byte("not json")); err != nil {
		t.Fatalf("set: %v", err)
	}
	var logs []string
	s := New(kv, WithLogger(capture(t, &logs)))
	s.Load(ctx, rubric.Base().Sections)

	if len(logs) != 1 {
		t.Fatalf("expected one log line, got %v", logs)
	}
	if s.State().ActiveSection == nil {
		t.Fatalf("expected initial state after malformed data")
	}
}

func capture(t *testing.T, sink *[]string) func(string, ...any) {
	t.Helper()
	return func(format string, args ...any) {
		if sink != nil {
			*sink = append(*sink, fmt.Sprintf(format, args...))
		}
	}
}

func TestUpdateCriterionMerges(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()
	s := New(kv)

	s.UpdateCriterion(ctx, "form", "approach", CriterionPatch{Score: intPtr(4)})
	s.UpdateCriterion(ctx, "form", "approach", CriterionPatch{CustomText: strPtr("Solid approach")})

	cs, ok := s.State().Section("form").Criteria.Get("approach")
	if !ok || cs.Score == nil || *cs.Score != 4 || cs.CustomText != "Solid approach" {
		t.Fatalf("unexpected merged state: %+v", cs)
	}

	s.UpdateCriterion(ctx, "form", "approach", CriterionPatch{ClearScore: true})
	cs, _ = s.State().Section("form").Criteria.Get("approach")
	if cs.Answered() || cs.CustomText != "Solid approach" {
		t.Fatalf("clearing the score must keep custom text: %+v", cs)
	}

	got, _ := persisted(t, kv).Section("form").Criteria.Get("approach")
	if got.Answered() || got.CustomText != "Solid approach" {
		t.Fatalf("persisted state lags behind: %+v", got)
	}
}

func TestPatchScoreIsCopied(t *testing.T) {
	s := New(store.NewMemory())
	score := 2
	s.UpdateCriterion(context.Background(), "a", "b", CriterionPatch{Score: &score})
	score = 5
	cs, _ := s.State().Section("a").Criteria.Get("b")
	if *cs.Score != 2 {
		t.Fatalf("state aliases caller pointer")
	}
}

func TestPreambleNotesAndFocus(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()
	s := New(kv)
	s.Load(ctx, rubric.Base().Sections)

	s.UpdatePreamble(ctx, "content", "Insgesamt überzeugend.")
	s.UpdateNotes(ctx, "<p>Rücksprache</p>")
	s.SetActiveSection(ctx, "structure")

	state := persisted(t, kv)
	if state.Section("content").Preamble != "Insgesamt überzeugend." {
		t.Fatalf("unexpected preamble %q", state.Section("content").Preamble)
	}
	if state.Notes != "<p>Rücksprache</p>" {
		t.Fatalf("unexpected notes %q", state.Notes)
	}
	if state.ActiveSection == nil || *state.ActiveSection != "structure" {
		t.Fatalf("unexpected active section %v", state.ActiveSection)
	}

	s.SetActiveSection(ctx, "")
	if persisted(t, kv).ActiveSection != nil {
		t.Fatalf("expected cleared focus")
	}
}

func TestResetSectionAndAll(t *testing.T) {
	ctx := context.Background()
	s := New(store.NewMemory())
	cfg := rubric.Base()
	s.Load(ctx, cfg.Sections)

	s.UpdateCriterion(ctx, "form", "approach", CriterionPatch{Score: intPtr(3)})
	s.UpdatePreamble(ctx, "form", "intro")
	s.UpdateCriterion(ctx, "content", "basics", CriterionPatch{Score: intPtr(5)})
	s.UpdateNotes(ctx, "notes")

	s.ResetSection(ctx, "form")
	state := s.State()
	if state.Section("form").Criteria.Len() != 0 || state.Section("form").Preamble != "" {
		t.Fatalf("form section not reset: %+v", state.Section("form"))
	}
	if state.Section("content").Criteria.Len() != 1 {
		t.Fatalf("reset leaked into other sections")
	}

	s.SetActiveSection(ctx, "content")
	s.ResetAll(ctx, cfg.Sections)
	state = s.State()
	if state.Notes != "" || state.Section("content").Criteria.Len() != 0 {
		t.Fatalf("reset all kept data: %+v", state)
	}
	if *state.ActiveSection != "preface" {
		t.Fatalf("expected first section active after reset, got %s", *state.ActiveSection)
	}
}

func TestRoundTripThroughStore(t *testing.T) {
	ctx := context.Background()
	kv, err := store.OpenSQLite(filepath.Join(t.TempDir(), "evalapp.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = kv.Close()
	})

	cfg := rubric.Base()
	s := New(kv)
	s.Load(ctx, cfg.Sections)
	s.UpdateCriterion(ctx, "preface", "independence", CriterionPatch{Score: intPtr(4), CustomText: strPtr("Eigenständig.")})
	s.UpdateCriterion(ctx, "content", "complexity", CriterionPatch{Score: intPtr(2)})
	s.UpdatePreamble(ctx, "structure", "Gliederung:")
	s.UpdateNotes(ctx, "note")
	s.SetActiveSection(ctx, "content")
	want := mustJSON(t, s.State())

	reloaded := New(kv)
	reloaded.Load(ctx, cfg.Sections)
	if got := mustJSON(t, reloaded.State()); got != want {
		t.Fatalf("round trip mismatch:\n got %s\nwant %s", got, want)
	}

	other := New(store.NewMemory())
	other.Replace(ctx, reloaded.State())
	if got := mustJSON(t, other.State()); got != want {
		t.Fatalf("replace mismatch:\n got %s\nwant %s", got, want)
	}
}

func TestApplyTextEdits(t *testing.T) {
	ctx := context.Background()
	cfg := rubric.Base()
	s := New(store.NewMemory())
	s.Load(ctx, cfg.Sections)
	s.UpdateCriterion(ctx, "form", "approach", CriterionPatch{Score: intPtr(5)})
	s.UpdateCriterion(ctx, "form", "related_work", CriterionPatch{Score: intPtr(3)})

	data := prose.EditableTextData(cfg.Sections, s.State())
	var form *prose.SectionData
	for i := range data {
		if data[i].SectionKey == "form" {
			form = &data[i]
		}
	}
	if form == nil || len(form.Criteria) != 2 {
		t.Fatalf("unexpected editable data: %+v", form)
	}
	form.Preamble = " Zur Form: "
	form.Criteria[1].Text = "Related Work ist solide"
	form.Criteria = append(form.Criteria, prose.CriterionText{SectionKey: "form", CriterionKey: "fundamentals", Text: "ignored"})

	s.ApplyTextEdits(ctx, cfg.Sections, data)
	state := s.State()
	section := state.Section("form")
	if section.Preamble != "Zur Form:" {
		t.Fatalf("unexpected preamble %q", section.Preamble)
	}
	approach, _ := section.Criteria.Get("approach")
	if approach.CustomText != "" {
		t.Fatalf("unchanged criterion got custom text %q", approach.CustomText)
	}
	related, _ := section.Criteria.Get("related_work")
	if related.CustomText != "Related Work ist solide" {
		t.Fatalf("edit not routed to custom text: %+v", related)
	}
	if section.Criteria.Has("fundamentals") {
		t.Fatalf("unanswered criterion must not be created by text edits")
	}

	text := prose.SectionText(mustSection(t, cfg, "form"), section)
	want := "Zur Form: Die Bearbeitung folgt einem klaren wissenschaftlichen Vorgehen zur Beantwortung der Fragestellung. Related Work ist solide."
	if text != want {
		t.Fatalf("unexpected text:\n got %q\nwant %q", text, want)
	}
}

func mustSection(t *testing.T, cfg model.EvaluationConfig, key string) model.Section {
	t.Helper()
	section, ok := cfg.Sections.Get(key)
	if !ok {
		t.Fatalf("missing section %s", key)
	}
	return section
}

type brokenKV struct {
	*store.Memory
}

func (brokenKV) Set(context.Context, string, []byte) error {
	return errors.New("read-only")
}

func TestPersistFailureIsLogged(t *testing.T) {
	var logs []string
	s := New(brokenKV{store.NewMemory()}, WithLogger(capture(t, &logs)))
	s.UpdateNotes(context.Background(), "kept in memory")
	if s.State().Notes != "kept in memory" {
		t.Fatalf("mutation lost after persist failure")
	}
	if len(logs) != 1 {
		t.Fatalf("expected one log line, got %v", logs)
	}
}
