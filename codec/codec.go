// Package codec renders serialized values into wire formats. Encoders
// accept what definitions produce: ordered maps, slices of ordered maps and
// coerced primitive values. Field order survives encoding in every format.
package codec

import (
	j "github.com/goccy/go-json"
)

// Encoder renders a serialized value into one wire format.
type Encoder interface {
	Encode(v any) ([]byte, error)
	// Name identifies the format, e.g. "json" or "yaml".
	Name() string
}

// JSON returns a compact JSON encoder.
func JSON() Encoder { return jsonEncoder{} }

// JSONIndent returns a JSON encoder that pretty-prints with the given
// prefix and indent.
func JSONIndent(prefix, indent string) Encoder {
	return jsonEncoder{indented: true, prefix: prefix, indent: indent}
}

type jsonEncoder struct {
	indented bool
	prefix   string
	indent   string
}

func (e jsonEncoder) Encode(v any) ([]byte, error) {
	if e.indented {
		return j.MarshalIndent(v, e.prefix, e.indent)
	}
	return j.Marshal(v)
}

func (jsonEncoder) Name() string { return "json" }
