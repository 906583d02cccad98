package model

import (
	"encoding/json"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestMapKeepsInsertionOrder(t *testing.T) {
	var m Map[int]
	m.Set("zeta", 1)
	m.Set("alpha", 2)
	m.Set("mid", 3)
	m.Set("alpha", 4)

	keys := m.Keys()
	want := []string{"zeta", "alpha", "mid"}
	if strings.Join(keys, ",") != strings.Join(want, ",") {
		t.Fatalf("unexpected keys: %v", keys)
	}
	if v, _ := m.Get("alpha"); v != 4 {
		t.Fatalf("expected overwritten value 4, got %d", v)
	}

	if !m.Delete("alpha") {
		t.Fatalf("expected delete to report presence")
	}
	if m.Delete("alpha") {
		t.Fatalf("expected second delete to be a no-op")
	}
	if got := strings.Join(m.Keys(), ","); got != "zeta,mid" {
		t.Fatalf("unexpected keys after delete: %s", got)
	}
}

func TestMapJSONRoundTripPreservesOrder(t *testing.T) {
	input := `{"b":{"title":"B","weight":0.5,"criteria":{}},"a":{"title":"A","weight":0.5,"criteria":{}}}`
	var sections Map[Section]
	if err := json.Unmarshal([]byte(input), &sections); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got := strings.Join(sections.Keys(), ","); got != "b,a" {
		t.Fatalf("unexpected order: %s", got)
	}
	out, err := json.Marshal(sections)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != input {
		t.Fatalf("round trip mismatch:\n got %s\nwant %s", out, input)
	}
}

func TestMapJSONRejectsDuplicateKeys(t *testing.T) {
	var m Map[int]
	err := json.Unmarshal([]byte(`{"a":1,"a":2}`), &m)
	if err == nil || !strings.Contains(err.Error(), "duplicate key") {
		t.Fatalf("expected duplicate key error, got %v", err)
	}
}

func TestMapJSONNull(t *testing.T) {
	m := NewMap(Entry[int]{Key: "x", Value: 1})
	if err := json.Unmarshal([]byte(`null`), &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m.Len() != 0 {
		t.Fatalf("expected empty map, got %d entries", m.Len())
	}
}

func TestMapYAMLRoundTrip(t *testing.T) {
	input := "second: 2\nfirst: 1\n"
	var m Map[int]
	if err := yaml.Unmarshal([]byte(input), &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got := strings.Join(m.Keys(), ","); got != "second,first" {
		t.Fatalf("unexpected order: %s", got)
	}
	out, err := yaml.Marshal(m)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != input {
		t.Fatalf("unexpected yaml: %q", out)
	}
}

func TestMapYAMLRejectsDuplicateKeys(t *testing.T) {
	var m Map[int]
	if err := yaml.Unmarshal([]byte("a: 1\na: 2\n"), &m); err == nil {
		t.Fatalf("expected duplicate key error")
	}
}

func TestMapReorder(t *testing.T) {
	m := NewMap(
		Entry[string]{Key: "a", Value: "A"},
		Entry[string]{Key: "b", Value: "B"},
		Entry[string]{Key: "c", Value: "C"},
	)
	if err := m.Reorder([]string{"c", "a", "b"}); err != nil {
		t.Fatalf("reorder: %v", err)
	}
	if got := strings.Join(m.Keys(), ","); got != "c,a,b" {
		t.Fatalf("unexpected order: %s", got)
	}
	if err := m.Reorder([]string{"c", "c", "b"}); err == nil {
		t.Fatalf("expected duplicate error")
	}
	if err := m.Reorder([]string{"a", "b"}); err == nil {
		t.Fatalf("expected length error")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	score := 3
	state := EvaluationState{}
	section := SectionState{}
	section.Criteria.Set("c1", CriterionState{Score: &score})
	state.Sections.Set("s1", section)

	clone := state.Clone()
	cs, _ := clone.Section("s1").Criteria.Get("c1")
	*cs.Score = 5

	orig, _ := state.Section("s1").Criteria.Get("c1")
	if *orig.Score != 3 {
		t.Fatalf("clone shares score pointer")
	}
}

func TestTemplatePredicates(t *testing.T) {
	if !IsDefault(Template{Type: TemplateDefault}) || IsSaved(Template{Type: TemplateDefault}) {
		t.Fatalf("default predicate mismatch")
	}
	if !IsSaved(Template{Type: TemplateSaved}) || IsDefault(Template{Type: TemplateSaved}) {
		t.Fatalf("saved predicate mismatch")
	}
}
