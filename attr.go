package goserde

import (
	"reflect"
	"strings"
	"sync"
)

// Getter lets source objects expose attributes without reflection. It is
// checked before any reflective lookup, so implementing it also overrides
// struct-field access.
type Getter interface {
	Attr(name string) (any, bool)
}

// ResolveStructKey applies the repository-wide rule to resolve a struct
// field's external attribute name.
// Priority: goserde:"name=..." > json tag name > field name; "-" disables the
// field.
func ResolveStructKey(sf reflect.StructField) string {
	if gt := sf.Tag.Get("goserde"); gt != "" {
		parts := strings.Split(gt, ",")
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if strings.HasPrefix(p, "name=") {
				return strings.TrimPrefix(p, "name=")
			}
		}
	}
	if jt := sf.Tag.Get("json"); jt != "" {
		if jt == "-" {
			return "-"
		}
		if i := strings.IndexByte(jt, ','); i >= 0 {
			return jt[:i]
		}
		return jt
	}
	return sf.Name
}

// structPlan caches the attribute layout of one struct type so repeated
// serialization of the same shape does not re-walk its fields.
type structPlan struct {
	fields map[string][]int // attribute name -> field index path
}

var planCache sync.Map // reflect.Type -> *structPlan

func planFor(t reflect.Type) *structPlan {
	if p, ok := planCache.Load(t); ok {
		return p.(*structPlan)
	}
	p := &structPlan{fields: map[string][]int{}}
	collectFields(t, nil, p.fields)
	planCache.Store(t, p)
	return p
}

// collectFields records exported fields keyed by their resolved attribute
// name. Anonymous embedded structs promote their fields one level down. The
// walk is breadth-first so the shallowest declaration wins on collision,
// matching Go's own shadowing rules; within one depth the first wins.
func collectFields(t reflect.Type, prefix []int, out map[string][]int) {
	type frame struct {
		t      reflect.Type
		prefix []int
	}
	cur := []frame{{t: t, prefix: prefix}}
	visited := map[reflect.Type]bool{t: true}
	for len(cur) > 0 {
		var next []frame
		for _, f := range cur {
			for i := 0; i < f.t.NumField(); i++ {
				sf := f.t.Field(i)
				if sf.PkgPath != "" {
					continue
				}
				idx := append(append([]int{}, f.prefix...), i)
				key := ResolveStructKey(sf)
				if key == "-" {
					continue
				}
				named := sf.Tag.Get("goserde") != "" || sf.Tag.Get("json") != ""
				if sf.Anonymous && !named {
					ft := sf.Type
					if ft.Kind() == reflect.Pointer {
						ft = ft.Elem()
					}
					if ft.Kind() == reflect.Struct {
						if !visited[ft] {
							visited[ft] = true
							next = append(next, frame{t: ft, prefix: idx})
						}
						continue
					}
				}
				if _, exists := out[key]; !exists {
					out[key] = idx
				}
			}
		}
		cur = next
	}
}

// lookupPath walks a dot-separated source path against obj. It returns the
// resolved value, whether every step was found, and any read error raised by
// an attribute method along the way.
func lookupPath(obj any, path string) (any, bool, error) {
	cur := obj
	for path != "" {
		step := path
		if i := strings.IndexByte(path, '.'); i >= 0 {
			step, path = path[:i], path[i+1:]
		} else {
			path = ""
		}
		v, ok, err := lookupAttr(cur, step)
		if err != nil || !ok {
			return nil, ok, err
		}
		cur = v
	}
	return cur, true, nil
}

// lookupAttr resolves one attribute step. Resolution order: Getter interface,
// string-keyed map entry, struct field (tag-aware, embedded fields promoted),
// then a niladic method with that exact name returning T or (T, error).
func lookupAttr(obj any, name string) (any, bool, error) {
	if obj == nil {
		return nil, false, nil
	}
	if g, ok := obj.(Getter); ok {
		v, found := g.Attr(name)
		return v, found, nil
	}

	rv := reflect.ValueOf(obj)
	ev := rv
	for ev.Kind() == reflect.Pointer {
		if ev.IsNil() {
			return nil, false, nil
		}
		ev = ev.Elem()
	}

	switch ev.Kind() {
	case reflect.Map:
		if v, ok := mapIndex(ev, name); ok {
			return v, true, nil
		}
	case reflect.Struct:
		plan := planFor(ev.Type())
		if idx, ok := plan.fields[name]; ok {
			if fv, ok := fieldByIndex(ev, idx); ok {
				return fv.Interface(), true, nil
			}
			return nil, false, nil
		}
	}

	if m, ok := methodByName(rv, name); ok {
		return callAttrMethod(m)
	}
	return nil, false, nil
}

func mapIndex(v reflect.Value, name string) (any, bool) {
	kt := v.Type().Key()
	var kv reflect.Value
	switch {
	case kt.Kind() == reflect.String:
		kv = reflect.ValueOf(name).Convert(kt)
	case kt.Kind() == reflect.Interface:
		kv = reflect.ValueOf(name)
	default:
		return nil, false
	}
	ev := v.MapIndex(kv)
	if !ev.IsValid() {
		return nil, false
	}
	return ev.Interface(), true
}

// fieldByIndex walks an index path, stopping at nil embedded pointers instead
// of panicking the way reflect.Value.FieldByIndex does.
func fieldByIndex(v reflect.Value, idx []int) (reflect.Value, bool) {
	for _, i := range idx {
		for v.Kind() == reflect.Pointer {
			if v.IsNil() {
				return reflect.Value{}, false
			}
			v = v.Elem()
		}
		v = v.Field(i)
	}
	return v, true
}

// methodByName finds an exported niladic method, consulting the pointer
// method set when the receiver was passed by value.
func methodByName(v reflect.Value, name string) (reflect.Value, bool) {
	if m := v.MethodByName(name); m.IsValid() {
		return m, true
	}
	if v.Kind() != reflect.Pointer && v.IsValid() {
		p := reflect.New(v.Type())
		p.Elem().Set(v)
		if m := p.MethodByName(name); m.IsValid() {
			return m, true
		}
	}
	return reflect.Value{}, false
}

func callAttrMethod(m reflect.Value) (any, bool, error) {
	mt := m.Type()
	if mt.NumIn() != 0 {
		return nil, false, nil
	}
	switch mt.NumOut() {
	case 1:
		return m.Call(nil)[0].Interface(), true, nil
	case 2:
		if mt.Out(1) != errType {
			return nil, false, nil
		}
		out := m.Call(nil)
		if !out[1].IsNil() {
			return nil, true, out[1].Interface().(error)
		}
		return out[0].Interface(), true, nil
	}
	return nil, false, nil
}

var errType = reflect.TypeOf((*error)(nil)).Elem()
