package goserde

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	timeType = reflect.TypeOf(time.Time{})
	uuidType = reflect.TypeOf(uuid.UUID{})
)

func coercionIssue(msg string, v any) Issues {
	return Issues{{Path: "/", Code: CodeCoercion, Message: msg, Params: map[string]any{"got": fmt.Sprintf("%T", v)}}}
}

// deref unwraps pointers and interfaces so the kind coercions see plain
// values. Getter implementations stay intact: they resolve attributes
// themselves and must not be copied out of their pointer form.
func deref(v any) any {
	if v == nil {
		return nil
	}
	if _, ok := v.(Getter); ok {
		return v
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	return rv.Interface()
}

// isNilValue reports whether v is nil or a typed nil pointer/map/slice.
func isNilValue(v any) bool {
	if v == nil {
		return true
	}
	switch rv := reflect.ValueOf(v); rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

// ---------------- Char ----------------

// coerceChar renders v as a string. Strings and named string types pass
// through; bytes, numbers, booleans and Stringers stringify best-effort.
func coerceChar(v any) (any, Issues) {
	switch t := v.(type) {
	case string:
		return t, nil
	case []byte:
		return string(t), nil
	case json.Number:
		return t.String(), nil
	case bool:
		return strconv.FormatBool(t), nil
	case fmt.Stringer:
		return t.String(), nil
	}
	switch rv := reflect.ValueOf(v); rv.Kind() {
	case reflect.String:
		return rv.String(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10), nil
	case reflect.Float32, reflect.Float64:
		return formatFloat(rv.Float()), nil
	case reflect.Bool:
		return strconv.FormatBool(rv.Bool()), nil
	}
	return nil, coercionIssue("cannot render as string", v)
}

// ---------------- Int ----------------

func coerceInt(v any) (any, Issues) {
	switch t := v.(type) {
	case int:
		return int64(t), nil
	case int8:
		return int64(t), nil
	case int16:
		return int64(t), nil
	case int32:
		return int64(t), nil
	case int64:
		return t, nil
	case uint:
		return intFromUint(uint64(t)), nil
	case uint8:
		return int64(t), nil
	case uint16:
		return int64(t), nil
	case uint32:
		return int64(t), nil
	case uint64:
		return intFromUint(t), nil
	case float32:
		return intFromFloatValue(float64(t), v)
	case float64:
		return intFromFloatValue(t, v)
	case json.Number:
		if i64, err := t.Int64(); err == nil {
			return i64, nil
		}
		if f64, err := t.Float64(); err == nil {
			return intFromFloatValue(f64, v)
		}
		return nil, coercionIssue("not an integral number", v)
	case string:
		if i64, err := strconv.ParseInt(t, 10, 64); err == nil {
			return i64, nil
		}
		return nil, coercionIssue("cannot parse as integer", v)
	}
	switch rv := reflect.ValueOf(v); rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return intFromUint(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return intFromFloatValue(rv.Float(), v)
	case reflect.String:
		if i64, err := strconv.ParseInt(rv.String(), 10, 64); err == nil {
			return i64, nil
		}
	}
	return nil, coercionIssue("cannot render as integer", v)
}

// intFromUint keeps values addressable as int64 and widens the rest into a
// json.Number so no precision is lost on the wire.
func intFromUint(u uint64) any {
	if u > math.MaxInt64 {
		return json.Number(strconv.FormatUint(u, 10))
	}
	return int64(u)
}

func intFromFloatValue(f float64, orig any) (any, Issues) {
	if math.IsNaN(f) || math.IsInf(f, 0) || math.Trunc(f) != f {
		return nil, coercionIssue("fractional part not allowed for integer field", orig)
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return nil, coercionIssue("integer overflow", orig)
	}
	return int64(f), nil
}

// ---------------- Float ----------------

func coerceFloat(v any) (any, Issues) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	case int:
		return float64(t), nil
	case int8:
		return float64(t), nil
	case int16:
		return float64(t), nil
	case int32:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case uint:
		return float64(t), nil
	case uint8:
		return float64(t), nil
	case uint16:
		return float64(t), nil
	case uint32:
		return float64(t), nil
	case uint64:
		return float64(t), nil
	case json.Number:
		if f64, err := t.Float64(); err == nil {
			return f64, nil
		}
		return nil, coercionIssue("cannot parse as number", v)
	case string:
		if f64, err := strconv.ParseFloat(t, 64); err == nil {
			return f64, nil
		}
		return nil, coercionIssue("cannot parse as number", v)
	case decimal.Decimal:
		f64, _ := t.Float64()
		return f64, nil
	}
	switch rv := reflect.ValueOf(v); rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), nil
	case reflect.String:
		if f64, err := strconv.ParseFloat(rv.String(), 64); err == nil {
			return f64, nil
		}
	}
	return nil, coercionIssue("cannot render as number", v)
}

// ---------------- Decimal ----------------

// coerceDecimal normalizes exact decimal values into a json.Number so the
// wire carries the full precision, never a float approximation.
func coerceDecimal(v any) (any, Issues) {
	switch t := v.(type) {
	case decimal.Decimal:
		return json.Number(t.String()), nil
	case json.Number:
		d, err := decimal.NewFromString(t.String())
		if err != nil {
			return nil, coercionIssue("cannot parse as decimal", v)
		}
		return json.Number(d.String()), nil
	case string:
		d, err := decimal.NewFromString(t)
		if err != nil {
			return nil, coercionIssue("cannot parse as decimal", v)
		}
		return json.Number(d.String()), nil
	case float64:
		if nonFinite(t) {
			return nil, coercionIssue("cannot render NaN or Inf as decimal", v)
		}
		return json.Number(decimal.NewFromFloat(t).String()), nil
	case float32:
		if nonFinite(float64(t)) {
			return nil, coercionIssue("cannot render NaN or Inf as decimal", v)
		}
		return json.Number(decimal.NewFromFloat32(t).String()), nil
	}
	switch rv := reflect.ValueOf(v); rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return json.Number(strconv.FormatInt(rv.Int(), 10)), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return json.Number(strconv.FormatUint(rv.Uint(), 10)), nil
	case reflect.Float32:
		if nonFinite(rv.Float()) {
			return nil, coercionIssue("cannot render NaN or Inf as decimal", v)
		}
		return json.Number(decimal.NewFromFloat32(float32(rv.Float())).String()), nil
	case reflect.Float64:
		if nonFinite(rv.Float()) {
			return nil, coercionIssue("cannot render NaN or Inf as decimal", v)
		}
		return json.Number(decimal.NewFromFloat(rv.Float()).String()), nil
	case reflect.String:
		d, err := decimal.NewFromString(rv.String())
		if err == nil {
			return json.Number(d.String()), nil
		}
	}
	return nil, coercionIssue("cannot render as decimal", v)
}

// nonFinite reports NaN and infinities, which decimal.NewFromFloat panics on.
func nonFinite(f float64) bool { return math.IsNaN(f) || math.IsInf(f, 0) }

// ---------------- Bool ----------------

func coerceBool(v any) (any, Issues) {
	switch t := v.(type) {
	case bool:
		return t, nil
	case string:
		if b, err := strconv.ParseBool(t); err == nil {
			return b, nil
		}
		return nil, coercionIssue("unrecognized boolean string", v)
	case json.Number:
		switch t.String() {
		case "0":
			return false, nil
		case "1":
			return true, nil
		}
		return nil, coercionIssue("only 0 and 1 coerce to bool", v)
	}
	switch rv := reflect.ValueOf(v); rv.Kind() {
	case reflect.Bool:
		return rv.Bool(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return boolFromInt(rv.Int(), v)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if rv.Uint() > 1 {
			return nil, coercionIssue("only 0 and 1 coerce to bool", v)
		}
		return rv.Uint() == 1, nil
	case reflect.String:
		if b, err := strconv.ParseBool(rv.String()); err == nil {
			return b, nil
		}
	}
	return nil, coercionIssue("cannot render as bool", v)
}

func boolFromInt(i int64, orig any) (any, Issues) {
	switch i {
	case 0:
		return false, nil
	case 1:
		return true, nil
	}
	return nil, coercionIssue("only 0 and 1 coerce to bool", orig)
}

// ---------------- UUID ----------------

// coerceUUID normalizes uuid.UUID values, 16-byte slices/arrays and textual
// forms (canonical, braced, urn:uuid:) into the canonical string form.
func coerceUUID(v any) (any, Issues) {
	switch t := v.(type) {
	case uuid.UUID:
		return t.String(), nil
	case string:
		return uuidFromString(t, v)
	case []byte:
		return uuidFromBytes(t, v)
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice:
		// FromBytes enforces the 16-byte length; slice-to-array Convert
		// panics on short input and truncates long input.
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return uuidFromBytes(rv.Bytes(), v)
		}
	case reflect.String:
		return uuidFromString(rv.String(), v)
	default:
		if rv.Type().ConvertibleTo(uuidType) {
			return rv.Convert(uuidType).Interface().(uuid.UUID).String(), nil
		}
	}
	return nil, coercionIssue("cannot render as UUID", v)
}

func uuidFromString(s string, orig any) (any, Issues) {
	u, err := uuid.Parse(s)
	if err != nil {
		return nil, Issues{{Path: "/", Code: CodeCoercion, Message: "invalid UUID string", Cause: err, Params: map[string]any{"got": fmt.Sprintf("%T", orig)}}}
	}
	return u.String(), nil
}

func uuidFromBytes(b []byte, orig any) (any, Issues) {
	u, err := uuid.FromBytes(b)
	if err != nil {
		return nil, Issues{{Path: "/", Code: CodeCoercion, Message: "invalid UUID bytes", Cause: err, Params: map[string]any{"got": fmt.Sprintf("%T", orig)}}}
	}
	return u.String(), nil
}

// ---------------- Date / DateTime ----------------

func coerceDate(v any, spec FieldSpec) (any, Issues) {
	t, ok := timeValue(v)
	if !ok {
		return nil, coercionIssue("expected a time.Time for date field", v)
	}
	if spec.layout != nil {
		return spec.layout.FormatString(t), nil
	}
	return t.Format("2006-01-02"), nil
}

func coerceDateTime(v any, spec FieldSpec) (any, Issues) {
	t, ok := timeValue(v)
	if !ok {
		return nil, coercionIssue("expected a time.Time for datetime field", v)
	}
	if spec.layout != nil {
		return spec.layout.FormatString(t), nil
	}
	return formatRFC3339Canonical(t), nil
}

func timeValue(v any) (time.Time, bool) {
	if t, ok := v.(time.Time); ok {
		return t, true
	}
	rv := reflect.ValueOf(v)
	if rv.Type().ConvertibleTo(timeType) {
		return rv.Convert(timeType).Interface().(time.Time), true
	}
	return time.Time{}, false
}

// formatRFC3339Canonical normalizes to UTC and formats using RFC3339Nano
// (Go trims trailing zeros).
func formatRFC3339Canonical(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// ---------------- Dict ----------------

// coerceDict re-keys a string-keyed map into an ordered Map. Keys are sorted
// for determinism; values pass through generic coercion. An already ordered
// *Map passes through untouched.
func coerceDict(v any, depth int, opt SerializeOpt) (any, Issues) {
	if m, ok := v.(*Map); ok {
		return m, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, coercionIssue("expected a string-keyed map", v)
	}
	return coerceStringMap(rv, depth, opt)
}

func coerceStringMap(rv reflect.Value, depth int, opt SerializeOpt) (*Map, Issues) {
	keys := make([]string, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		keys = append(keys, iter.Key().String())
	}
	sort.Strings(keys)
	out := newMapSize(len(keys))
	keyType := rv.Type().Key()
	for _, k := range keys {
		ev := rv.MapIndex(reflect.ValueOf(k).Convert(keyType))
		cv, iss := coerceAny(ev.Interface(), depth+1, opt)
		if len(iss) > 0 {
			return nil, rebase(FieldPath(k), iss)
		}
		out.Set(k, cv)
	}
	return out, nil
}

// ---------------- generic ----------------

// coerceAny maps an arbitrary value onto the output value set: primitives
// pass through, known rich types normalize, containers recurse. Applied to
// Method results, Dict values and sequence elements.
func coerceAny(v any, depth int, opt SerializeOpt) (any, Issues) {
	if depth > opt.MaxDepth {
		return nil, Issues{{Path: "/", Code: CodeRecursionLimit, Message: "max depth exceeded", Params: map[string]any{"max_depth": opt.MaxDepth}}}
	}
	switch t := v.(type) {
	case nil:
		return nil, nil
	case bool, string, int64, float64, json.Number:
		return t, nil
	case int:
		return int64(t), nil
	case int8:
		return int64(t), nil
	case int16:
		return int64(t), nil
	case int32:
		return int64(t), nil
	case uint:
		return intFromUint(uint64(t)), nil
	case uint8:
		return int64(t), nil
	case uint16:
		return int64(t), nil
	case uint32:
		return int64(t), nil
	case uint64:
		return intFromUint(t), nil
	case float32:
		return float64(t), nil
	case []byte:
		return string(t), nil
	case time.Time:
		return formatRFC3339Canonical(t), nil
	case uuid.UUID:
		return t.String(), nil
	case decimal.Decimal:
		return json.Number(t.String()), nil
	case *Map:
		return t, nil
	case []any:
		out := make([]any, 0, len(t))
		for i, el := range t {
			cv, iss := coerceAny(el, depth+1, opt)
			if len(iss) > 0 {
				return nil, rebase(IndexPath(i), iss)
			}
			out = append(out, cv)
		}
		return out, nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil, nil
		}
		return coerceAny(rv.Elem().Interface(), depth, opt)
	case reflect.Bool:
		return rv.Bool(), nil
	case reflect.String:
		return rv.String(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return intFromUint(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, coercionIssue("map keys must be strings", v)
		}
		return coerceStringMapAsAny(rv, depth, opt)
	case reflect.Slice, reflect.Array:
		out := make([]any, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			cv, iss := coerceAny(rv.Index(i).Interface(), depth+1, opt)
			if len(iss) > 0 {
				return nil, rebase(IndexPath(i), iss)
			}
			out = append(out, cv)
		}
		return out, nil
	}
	return nil, coercionIssue("unsupported value", v)
}

func coerceStringMapAsAny(rv reflect.Value, depth int, opt SerializeOpt) (any, Issues) {
	m, iss := coerceStringMap(rv, depth, opt)
	if len(iss) > 0 {
		return nil, iss
	}
	return m, nil
}

// formatFloat mirrors the canonical JSON-like float formatting.
func formatFloat(f float64) string { return strconv.FormatFloat(f, 'g', -1, 64) }
