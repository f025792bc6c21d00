package goserde

import (
	js "github.com/reoring/goserde/jsonschema"
)

// JSONSchema projects the effective fields into a JSON Schema object.
// Properties and Required follow the output order; unknown properties are
// rejected because a definition emits exactly its declared fields.
func (d *Def) JSONSchema() (*js.Schema, error) {
	props := js.NewProperties()
	req := make([]string, 0, len(d.effective))
	for _, e := range d.effective {
		ps, err := specSchema(e.Spec)
		if err != nil {
			return nil, err
		}
		props.Set(e.Name, ps)
		if e.Spec.required {
			req = append(req, e.Name)
		}
	}
	return &js.Schema{Type: "object", Properties: props, Required: req, AdditionalProperties: false}, nil
}

func specSchema(spec FieldSpec) (*js.Schema, error) {
	s := &js.Schema{Title: spec.label, Description: spec.help}
	switch spec.kind {
	case KindChar:
		s.Type = "string"
	case KindInt:
		s.Type = "integer"
	case KindFloat:
		s.Type = "number"
	case KindDecimal:
		s.Type = "number"
		s.Format = "decimal"
	case KindBool:
		s.Type = "boolean"
	case KindUUID:
		s.Type = "string"
		s.Format = "uuid"
	case KindDate:
		s.Type = "string"
		// A custom strftime pattern breaks the standard format contract.
		if spec.format == "" {
			s.Format = "date"
		}
	case KindDateTime:
		s.Type = "string"
		if spec.format == "" {
			s.Format = "date-time"
		}
	case KindDict:
		s.Type = "object"
		s.AdditionalProperties = true
	case KindMethod:
		// Method results are opaque until called; leave the schema open.
	case KindNested:
		ns, err := spec.nested.JSONSchema()
		if err != nil {
			return nil, err
		}
		ns.Title = spec.label
		ns.Description = spec.help
		return ns, nil
	case KindNestedMany:
		ns, err := spec.nested.JSONSchema()
		if err != nil {
			return nil, err
		}
		s.Type = "array"
		s.Items = ns
	}
	return s, nil
}
