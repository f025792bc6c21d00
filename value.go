package goserde

import (
	"bytes"

	j "github.com/goccy/go-json"
)

// Map is an insertion-ordered string-keyed mapping, the building block of
// every serialized result. Unlike map[string]any it remembers the order in
// which keys were set, so field declaration order survives encoding.
//
// Values are primitives (string, int64, float64, json.Number, bool, nil),
// nested *Map values, or []any sequences of the same.
type Map struct {
	keys []string
	idx  map[string]int
	vals []any
}

// NewMap returns an empty ordered mapping.
func NewMap() *Map {
	return &Map{idx: map[string]int{}}
}

func newMapSize(n int) *Map {
	return &Map{
		keys: make([]string, 0, n),
		idx:  make(map[string]int, n),
		vals: make([]any, 0, n),
	}
}

// Set inserts key with value, or updates the value in place when the key is
// already present (the original slot is kept).
func (m *Map) Set(key string, value any) {
	if i, ok := m.idx[key]; ok {
		m.vals[i] = value
		return
	}
	m.idx[key] = len(m.keys)
	m.keys = append(m.keys, key)
	m.vals = append(m.vals, value)
}

// Get returns the value stored under key.
func (m *Map) Get(key string) (any, bool) {
	if m == nil {
		return nil, false
	}
	i, ok := m.idx[key]
	if !ok {
		return nil, false
	}
	return m.vals[i], true
}

// Has reports whether key is present.
func (m *Map) Has(key string) bool {
	if m == nil {
		return false
	}
	_, ok := m.idx[key]
	return ok
}

// Len returns the number of entries.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Keys returns the keys in insertion order. The returned slice is a copy.
func (m *Map) Keys() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Attr implements Getter, so a Map can itself act as a source object.
func (m *Map) Attr(name string) (any, bool) {
	return m.Get(name)
}

// Each visits entries in insertion order until fn returns false.
func (m *Map) Each(fn func(key string, value any) bool) {
	if m == nil {
		return
	}
	for i, k := range m.keys {
		if !fn(k, m.vals[i]) {
			return
		}
	}
}

// MarshalJSON encodes the mapping as a JSON object with keys in insertion
// order. Nested *Map values and sequences encode recursively.
func (m *Map) MarshalJSON() ([]byte, error) {
	if m == nil {
		return []byte("null"), nil
	}
	var b bytes.Buffer
	b.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			b.WriteByte(',')
		}
		kb, err := j.Marshal(k)
		if err != nil {
			return nil, err
		}
		b.Write(kb)
		b.WriteByte(':')
		vb, err := j.Marshal(m.vals[i])
		if err != nil {
			return nil, err
		}
		b.Write(vb)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}
