package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"iter"

	"gopkg.in/yaml.v3"
)

// Map is a string-keyed map that remembers insertion order.
// The zero value is an empty map ready to use.
type Map[V any] struct {
	keys   []string
	values map[string]V
}

// NewMap builds a map from entries in the given order.
func NewMap[V any](entries ...Entry[V]) Map[V] {
	var m Map[V]
	for _, e := range entries {
		m.Set(e.Key, e.Value)
	}
	return m
}

// Entry is a single key/value pair of a Map.
type Entry[V any] struct {
	Key   string
	Value V
}

// Len returns the number of entries.
func (m Map[V]) Len() int {
	return len(m.keys)
}

// Get returns the value stored under key.
func (m Map[V]) Get(key string) (V, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Has reports whether key is present.
func (m Map[V]) Has(key string) bool {
	_, ok := m.values[key]
	return ok
}

// Set stores value under key. New keys are appended; existing keys keep their position.
func (m *Map[V]) Set(key string, value V) {
	if m.values == nil {
		m.values = map[string]V{}
	}
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// Delete removes key and reports whether it was present.
func (m *Map[V]) Delete(key string) bool {
	if _, ok := m.values[key]; !ok {
		return false
	}
	delete(m.values, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i:i], m.keys[i+1:]...)
			break
		}
	}
	if len(m.keys) == 0 {
		m.keys = nil
		m.values = nil
	}
	return true
}

// Keys returns a copy of the keys in order.
func (m Map[V]) Keys() []string {
	if len(m.keys) == 0 {
		return nil
	}
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// All iterates entries in order.
func (m Map[V]) All() iter.Seq2[string, V] {
	return func(yield func(string, V) bool) {
		for _, k := range m.keys {
			if !yield(k, m.values[k]) {
				return
			}
		}
	}
}

// Reorder rearranges entries. keys must be a permutation of the current keys.
func (m *Map[V]) Reorder(keys []string) error {
	if len(keys) != len(m.keys) {
		return fmt.Errorf("reorder needs %d keys, got %d", len(m.keys), len(keys))
	}
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if _, ok := m.values[k]; !ok {
			return fmt.Errorf("unknown key %q", k)
		}
		if _, dup := seen[k]; dup {
			return fmt.Errorf("duplicate key %q", k)
		}
		seen[k] = struct{}{}
	}
	m.keys = append([]string(nil), keys...)
	return nil
}

// Clone returns a copy whose key order and value map are independent of m.
// Values are copied with clone when it is non-nil.
func (m Map[V]) Clone(clone func(V) V) Map[V] {
	var out Map[V]
	for _, k := range m.keys {
		v := m.values[k]
		if clone != nil {
			v = clone(v)
		}
		out.Set(k, v)
	}
	return out
}

// MarshalJSON encodes the map as a JSON object in insertion order.
func (m Map[V]) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(m.values[k])
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object keeping document order. Duplicate keys are rejected.
func (m *Map[V]) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*m = Map[V]{}
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("expected object, got %v", tok)
	}
	var out Map[V]
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("expected object key, got %v", keyTok)
		}
		if out.Has(key) {
			return fmt.Errorf("duplicate key %q", key)
		}
		var v V
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("key %q: %w", key, err)
		}
		out.Set(key, v)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*m = out
	return nil
}

// MarshalYAML encodes the map as a YAML mapping in insertion order.
func (m Map[V]) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, k := range m.keys {
		var val yaml.Node
		if err := val.Encode(m.values[k]); err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k},
			&val,
		)
	}
	return node, nil
}

// UnmarshalYAML decodes a YAML mapping keeping document order. Duplicate keys are rejected.
func (m *Map[V]) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		*m = Map[V]{}
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected mapping", node.Line)
	}
	var out Map[V]
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		if out.Has(key) {
			return fmt.Errorf("line %d: duplicate key %q", node.Content[i].Line, key)
		}
		var v V
		if err := node.Content[i+1].Decode(&v); err != nil {
			return fmt.Errorf("key %q: %w", key, err)
		}
		out.Set(key, v)
	}
	*m = out
	return nil
}
