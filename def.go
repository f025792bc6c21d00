package goserde

import (
	"github.com/lestrrat-go/strftime"
)

// Meta narrows which declared fields a definition serializes. Fields keeps
// only the named fields, Exclude drops the named fields. Setting both is a
// build error. Neither list reorders anything: declaration order always wins.
type Meta struct {
	Fields  []string
	Exclude []string
}

// FieldEntry pairs a field name with its spec. Slices of entries preserve
// declaration order, which is also the output order.
type FieldEntry struct {
	Name string
	Spec FieldSpec
}

// Def is an immutable field plan produced by Build. It is safe for
// concurrent use; all validation and format compilation happened up front.
type Def struct {
	declared  []FieldEntry
	meta      Meta
	effective []FieldEntry
}

// Builder collects field declarations, parent definitions and meta policy.
// Zero value is not useful; start with Define.
type Builder struct {
	parents []*Def
	fields  []FieldEntry
	meta    Meta
}

// Define creates a new empty builder.
func Define() *Builder {
	return &Builder{}
}

// Extend appends parent definitions whose declared fields are inherited in
// order. A later redeclaration of an inherited name replaces the spec but
// keeps the original position.
func (b *Builder) Extend(parents ...*Def) *Builder {
	b.parents = append(b.parents, parents...)
	return b
}

// Field declares a field. Redeclaring a name overrides the spec in place.
func (b *Builder) Field(name string, spec FieldSpec) *Builder {
	b.fields = append(b.fields, FieldEntry{Name: name, Spec: spec})
	return b
}

// Only restricts serialization to the named fields.
func (b *Builder) Only(names ...string) *Builder {
	b.meta.Fields = append(b.meta.Fields, names...)
	return b
}

// Exclude drops the named fields from serialization.
func (b *Builder) Exclude(names ...string) *Builder {
	b.meta.Exclude = append(b.meta.Exclude, names...)
	return b
}

// WithMeta replaces the meta policy wholesale.
func (b *Builder) WithMeta(m Meta) *Builder {
	b.meta = m
	return b
}

// Build validates the collected declarations and returns an immutable Def.
// All problems are accumulated into one Issues error rather than stopping at
// the first.
func (b *Builder) Build() (*Def, error) {
	declared := b.composeDeclared()

	var iss Issues
	for i := range declared {
		iss = append(iss, validateSpec(declared[i].Name, &declared[i].Spec)...)
	}

	effective, miss := resolveMeta(declared, b.meta)
	iss = append(iss, miss...)

	if len(iss) > 0 {
		return nil, iss
	}
	return &Def{declared: declared, meta: b.meta, effective: effective}, nil
}

// MustBuild is like Build but panics on error.
func (b *Builder) MustBuild() *Def {
	d, err := b.Build()
	if err != nil {
		panic(err)
	}
	return d
}

// composeDeclared merges parent declarations and own declarations into one
// ordered list. Name collisions keep the earliest slot and take the latest
// spec, mirroring Map.Set.
func (b *Builder) composeDeclared() []FieldEntry {
	var out []FieldEntry
	idx := map[string]int{}
	add := func(e FieldEntry) {
		if i, ok := idx[e.Name]; ok {
			out[i].Spec = e.Spec
			return
		}
		idx[e.Name] = len(out)
		out = append(out, e)
	}
	for _, p := range b.parents {
		for _, e := range p.declared {
			add(e)
		}
	}
	for _, e := range b.fields {
		add(e)
	}
	return out
}

// validateSpec checks one declaration and compiles its format pattern. The
// compiled layout is stored back on the spec so serialization never parses
// patterns.
func validateSpec(name string, spec *FieldSpec) Issues {
	var iss Issues
	if name == "" {
		iss = append(iss, Issue{Path: "/", Code: CodeInvalidField, Message: "field name must not be empty"})
		return iss
	}
	path := FieldPath(name)

	switch spec.kind {
	case KindMethod:
		if spec.fn == nil {
			iss = append(iss, Issue{Path: path, Code: CodeInvalidField, Message: "method field needs a function"})
		}
	case KindNested, KindNestedMany:
		if spec.nested == nil {
			iss = append(iss, Issue{Path: path, Code: CodeInvalidField, Message: "nested field needs a definition"})
		}
	}

	if spec.format == "" {
		return iss
	}
	if spec.kind != KindDate && spec.kind != KindDateTime {
		iss = append(iss, Issue{Path: path, Code: CodeInvalidField, Message: "format applies only to date and datetime fields", Params: map[string]any{"kind": spec.kind.String()}})
		return iss
	}
	if spec.layout != nil {
		return iss
	}
	layout, err := strftime.New(spec.format)
	if err != nil {
		iss = append(iss, Issue{Path: path, Code: CodeInvalidFormat, Message: "invalid strftime pattern", Cause: err, Params: map[string]any{"format": spec.format}})
		return iss
	}
	spec.layout = layout
	return iss
}

// resolveMeta applies the meta policy to the declared list. Filtering keeps
// declaration order regardless of the order names appear in the policy.
func resolveMeta(declared []FieldEntry, meta Meta) ([]FieldEntry, Issues) {
	if len(meta.Fields) > 0 && len(meta.Exclude) > 0 {
		return nil, Issues{{Path: "/", Code: CodeConflictingMeta, Message: "meta fields and exclude are mutually exclusive"}}
	}

	known := make(map[string]struct{}, len(declared))
	for _, e := range declared {
		known[e.Name] = struct{}{}
	}

	var iss Issues
	checkNames := func(names []string) map[string]struct{} {
		set := make(map[string]struct{}, len(names))
		for _, n := range names {
			if _, dup := set[n]; dup {
				continue
			}
			set[n] = struct{}{}
			if _, ok := known[n]; !ok {
				iss = append(iss, Issue{Path: FieldPath(n), Code: CodeUnknownField, Message: "meta names an undeclared field", Params: map[string]any{"field": n}})
			}
		}
		return set
	}

	switch {
	case len(meta.Fields) > 0:
		keep := checkNames(meta.Fields)
		if len(iss) > 0 {
			return nil, iss
		}
		out := make([]FieldEntry, 0, len(keep))
		for _, e := range declared {
			if _, ok := keep[e.Name]; ok {
				out = append(out, e)
			}
		}
		return out, nil
	case len(meta.Exclude) > 0:
		drop := checkNames(meta.Exclude)
		if len(iss) > 0 {
			return nil, iss
		}
		out := make([]FieldEntry, 0, len(declared))
		for _, e := range declared {
			if _, ok := drop[e.Name]; !ok {
				out = append(out, e)
			}
		}
		return out, nil
	default:
		out := make([]FieldEntry, len(declared))
		copy(out, declared)
		return out, nil
	}
}

// Fields returns the effective field names in output order.
func (d *Def) Fields() []string {
	out := make([]string, len(d.effective))
	for i, e := range d.effective {
		out[i] = e.Name
	}
	return out
}

// FieldSpecs returns a copy of the effective field entries in output order.
func (d *Def) FieldSpecs() []FieldEntry {
	out := make([]FieldEntry, len(d.effective))
	copy(out, d.effective)
	return out
}
