package goserde

import (
	"context"
	"reflect"

	"github.com/lestrrat-go/strftime"
)

// FieldSpec is a typed rule for extracting one value from a source object and
// coercing it to a primitive representation. Specs are immutable values; the
// With* setters return modified copies, so a spec can be shared between
// definitions safely.
//
// Each kind carries only the data it needs: a format pattern for Date and
// DateTime, a function for Method, a nested definition for Nested and
// NestedMany.
type FieldSpec struct {
	kind     Kind
	source   string
	format   string
	layout   *strftime.Strftime // compiled from format at Build time
	required bool
	label    string
	help     string
	fn       MethodFunc
	nested   *Def
}

// NewSpec returns a spec of the given kind with default options: required,
// source equal to the output name. Most callers use the fields subpackage
// constructors instead.
func NewSpec(kind Kind) FieldSpec {
	return FieldSpec{kind: kind, required: true}
}

// NewMethodSpec returns a Method spec computing its value with fn. The
// function is captured here; a nil fn is an invalid_field issue at Build time.
func NewMethodSpec(fn MethodFunc) FieldSpec {
	return FieldSpec{kind: KindMethod, required: true, fn: fn}
}

// NewNestedSpec returns a Nested spec delegating to def in single-object mode.
func NewNestedSpec(def *Def) FieldSpec {
	return FieldSpec{kind: KindNested, required: true, nested: def}
}

// NewNestedManySpec returns a NestedMany spec serializing each element of a
// slice or array attribute through def.
func NewNestedManySpec(def *Def) FieldSpec {
	return FieldSpec{kind: KindNestedMany, required: true, nested: def}
}

// WithSource sets the attribute path read from the source object. Dot syntax
// traverses nested attributes, e.g. "version.name". When empty, the output
// name is read.
func (s FieldSpec) WithSource(path string) FieldSpec { s.source = path; return s }

// WithFormat sets a strftime-style pattern for Date/DateTime rendering, e.g.
// "%d/%m/%y". Patterns compile at Build time; a bad pattern surfaces as an
// invalid_format issue there, never at call time.
func (s FieldSpec) WithFormat(pattern string) FieldSpec { s.format = pattern; return s }

// Optional marks the field tolerant of missing attributes: an unreadable
// source yields null instead of a missing_attribute issue. A present but
// uncoercible value still fails.
func (s FieldSpec) Optional() FieldSpec { s.required = false; return s }

// WithLabel attaches a human-readable label, exported to JSON Schema as title.
func (s FieldSpec) WithLabel(label string) FieldSpec { s.label = label; return s }

// WithHelp attaches help text, exported to JSON Schema as description.
func (s FieldSpec) WithHelp(text string) FieldSpec { s.help = text; return s }

// Kind returns the variant tag.
func (s FieldSpec) Kind() Kind { return s.kind }

// Source returns the declared attribute path ("" means the output name).
func (s FieldSpec) Source() string { return s.source }

// FormatPattern returns the declared strftime pattern, if any.
func (s FieldSpec) FormatPattern() string { return s.format }

// IsRequired reports whether a missing attribute fails resolution.
func (s FieldSpec) IsRequired() bool { return s.required }

// Label returns the human-readable label.
func (s FieldSpec) Label() string { return s.label }

// Help returns the help text.
func (s FieldSpec) Help() string { return s.help }

// Nested returns the nested definition for Nested/NestedMany specs, nil
// otherwise.
func (s FieldSpec) Nested() *Def { return s.nested }

// resolveField extracts and coerces one field value from obj. Issues come
// back rooted at "/" (or carrying their own relative paths) and are rebased
// under the output name by the caller.
func resolveField(ctx context.Context, name string, spec FieldSpec, obj any, depth int, opt SerializeOpt) (any, Issues) {
	if spec.kind == KindMethod {
		out, err := spec.fn(ctx, obj)
		if err != nil {
			return nil, rebaseErr("", CodeCoercion, err)
		}
		return coerceAny(out, depth, opt)
	}

	path := spec.source
	if path == "" {
		path = name
	}
	v, found, err := lookupPath(obj, path)
	if err != nil || !found {
		if !spec.required {
			return nil, nil
		}
		return nil, Issues{{
			Path:    "/",
			Code:    CodeMissingAttribute,
			Message: "missing attribute",
			Hint:    "expose the attribute on the source object or mark the field Optional()",
			Cause:   err,
			Params:  map[string]any{"source": path},
		}}
	}

	switch spec.kind {
	case KindNested:
		return resolveNested(ctx, spec, v, depth, opt)
	case KindNestedMany:
		return resolveNestedMany(ctx, spec, v, depth, opt)
	}

	v = deref(v)
	if v == nil {
		return nil, nil
	}
	switch spec.kind {
	case KindChar:
		return coerceChar(v)
	case KindInt:
		return coerceInt(v)
	case KindFloat:
		return coerceFloat(v)
	case KindDecimal:
		return coerceDecimal(v)
	case KindBool:
		return coerceBool(v)
	case KindUUID:
		return coerceUUID(v)
	case KindDate:
		return coerceDate(v, spec)
	case KindDateTime:
		return coerceDateTime(v, spec)
	case KindDict:
		return coerceDict(v, depth, opt)
	}
	return nil, Issues{{Path: "/", Code: CodeInvalidField, Message: "unknown field kind", Params: map[string]any{"kind": spec.kind.String()}}}
}

// resolveNested serializes the attribute value through the nested definition.
// A nil attribute serializes to null.
func resolveNested(ctx context.Context, spec FieldSpec, v any, depth int, opt SerializeOpt) (any, Issues) {
	if isNilValue(v) {
		return nil, nil
	}
	return spec.nested.serializeObject(ctx, v, depth+1, opt)
}

// resolveNestedMany serializes each element of a slice/array attribute through
// the nested definition. A nil attribute serializes to null; a typed nil slice
// serializes to an empty sequence.
func resolveNestedMany(ctx context.Context, spec FieldSpec, v any, depth int, opt SerializeOpt) (any, Issues) {
	if v == nil {
		return nil, nil
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, coercionIssue("expected a slice or array of nested objects", v)
	}
	out := make([]any, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		m, iss := spec.nested.serializeObject(ctx, rv.Index(i).Interface(), depth+1, opt)
		if len(iss) > 0 {
			return nil, rebase(IndexPath(i), iss)
		}
		out = append(out, m)
	}
	return out, nil
}
