package jsonschema

import (
	"bytes"

	j "github.com/goccy/go-json"
)

// Properties is an insertion-ordered collection of named property schemas.
// Encoding keeps the order properties were set in, so a projected definition
// lists its fields in declaration order.
type Properties struct {
	names   []string
	schemas map[string]*Schema
}

// NewProperties returns an empty ordered property set.
func NewProperties() *Properties {
	return &Properties{schemas: map[string]*Schema{}}
}

// Set adds a property schema, or replaces it in place when the name is
// already present.
func (p *Properties) Set(name string, s *Schema) {
	if _, ok := p.schemas[name]; !ok {
		p.names = append(p.names, name)
	}
	p.schemas[name] = s
}

// Get returns the schema stored under name.
func (p *Properties) Get(name string) (*Schema, bool) {
	if p == nil {
		return nil, false
	}
	s, ok := p.schemas[name]
	return s, ok
}

// Len returns the number of properties.
func (p *Properties) Len() int {
	if p == nil {
		return 0
	}
	return len(p.names)
}

// Names returns the property names in insertion order. The returned slice is
// a copy.
func (p *Properties) Names() []string {
	if p == nil {
		return nil
	}
	out := make([]string, len(p.names))
	copy(out, p.names)
	return out
}

// MarshalJSON encodes the properties as a JSON object in insertion order.
func (p *Properties) MarshalJSON() ([]byte, error) {
	if p == nil {
		return []byte("null"), nil
	}
	var b bytes.Buffer
	b.WriteByte('{')
	for i, n := range p.names {
		if i > 0 {
			b.WriteByte(',')
		}
		nb, err := j.Marshal(n)
		if err != nil {
			return nil, err
		}
		b.Write(nb)
		b.WriteByte(':')
		sb, err := j.Marshal(p.schemas[n])
		if err != nil {
			return nil, err
		}
		b.Write(sb)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}
