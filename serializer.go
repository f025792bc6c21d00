package goserde

import (
	"context"
	"fmt"
	"reflect"
	"sync"
)

// Serializer binds a definition to source data and renders lazily. Data
// resolves at most once; repeated calls return the cached result. Safe for
// concurrent use.
type Serializer struct {
	def  *Def
	src  any
	many bool
	opt  SerializeOpt

	once sync.Once
	data any
	err  error
}

// New binds def to a single source object. Rendering is deferred until Data.
func New(def *Def, source any, opts ...SerializeOpt) *Serializer {
	return &Serializer{def: def, src: source, opt: foldOpt(opts)}
}

// NewMany binds def to a slice or array of source objects. Rendering is
// deferred until Data and is all-or-nothing: the first failing element
// aborts the whole call.
func NewMany(def *Def, sources any, opts ...SerializeOpt) *Serializer {
	return &Serializer{def: def, src: sources, many: true, opt: foldOpt(opts)}
}

// Data renders the bound source. The first call does the work; later calls
// return the same value and error, ignoring their ctx. Single mode yields a
// *Map, many mode a []*Map.
func (s *Serializer) Data(ctx context.Context) (any, error) {
	s.once.Do(func() {
		if s.many {
			out, iss := s.def.serializeSlice(ctx, s.src, s.opt)
			if len(iss) > 0 {
				s.err = iss
				return
			}
			s.data = out
			return
		}
		out, iss := s.def.serializeObject(ctx, s.src, 0, s.opt)
		if len(iss) > 0 {
			s.err = iss
			return
		}
		s.data = out
	})
	return s.data, s.err
}

// Serialize renders one source object into an ordered Map.
func (d *Def) Serialize(ctx context.Context, source any, opts ...SerializeOpt) (*Map, error) {
	out, iss := d.serializeObject(ctx, source, 0, foldOpt(opts))
	if len(iss) > 0 {
		return nil, iss
	}
	return out, nil
}

// SerializeMany renders a slice or array of source objects. The first
// failing element aborts the call; no partial output is returned.
func (d *Def) SerializeMany(ctx context.Context, sources any, opts ...SerializeOpt) ([]*Map, error) {
	out, iss := d.serializeSlice(ctx, sources, foldOpt(opts))
	if len(iss) > 0 {
		return nil, iss
	}
	return out, nil
}

// serializeObject walks the effective fields in order and fails on the first
// issue. Issue paths come back rooted at the field name.
func (d *Def) serializeObject(ctx context.Context, obj any, depth int, opt SerializeOpt) (*Map, Issues) {
	if depth > opt.MaxDepth {
		return nil, Issues{{Path: "/", Code: CodeRecursionLimit, Message: "max depth exceeded", Params: map[string]any{"max_depth": opt.MaxDepth}}}
	}
	out := newMapSize(len(d.effective))
	for _, e := range d.effective {
		v, iss := resolveField(ctx, e.Name, e.Spec, obj, depth, opt)
		if len(iss) > 0 {
			return nil, rebase(FieldPath(e.Name), iss)
		}
		out.Set(e.Name, v)
	}
	return out, nil
}

// serializeSlice renders every element of sources. Issue paths gain the
// element index, so the third element's email failure reads /2/email. A
// typed nil slice renders as an empty result; a nil or non-sequence input is
// an invalid_input issue.
func (d *Def) serializeSlice(ctx context.Context, sources any, opt SerializeOpt) ([]*Map, Issues) {
	if sources == nil {
		return nil, manyInputIssue(sources)
	}
	rv := reflect.ValueOf(sources)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, manyInputIssue(sources)
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, manyInputIssue(sources)
	}
	out := make([]*Map, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		m, iss := d.serializeObject(ctx, rv.Index(i).Interface(), 0, opt)
		if len(iss) > 0 {
			return nil, rebase(IndexPath(i), iss)
		}
		out = append(out, m)
	}
	return out, nil
}

func manyInputIssue(sources any) Issues {
	return Issues{{Path: "/", Code: CodeInvalidInput, Message: "many mode needs a slice or array of source objects", Params: map[string]any{"got": fmt.Sprintf("%T", sources)}}}
}
