package goserde

import "context"

// Kind tags a FieldSpec variant. Resolution dispatches on the tag with a
// single exhaustive switch; each kind carries only the data it needs.
type Kind int

const (
	KindChar Kind = iota
	KindInt
	KindFloat
	KindDecimal
	KindBool
	KindUUID
	KindDate
	KindDateTime
	KindDict
	KindMethod
	KindNested
	KindNestedMany
)

var kindNames = [...]string{
	KindChar:       "char",
	KindInt:        "int",
	KindFloat:      "float",
	KindDecimal:    "decimal",
	KindBool:       "bool",
	KindUUID:       "uuid",
	KindDate:       "date",
	KindDateTime:   "datetime",
	KindDict:       "dict",
	KindMethod:     "method",
	KindNested:     "nested",
	KindNestedMany: "nested_many",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// MethodFunc computes a derived field value from the current source object.
// The returned value passes through generic coercion before it is emitted.
type MethodFunc func(ctx context.Context, obj any) (any, error)

// DefaultMaxDepth bounds nested-definition recursion and generic coercion
// recursion when SerializeOpt.MaxDepth is left zero. Cyclic object graphs
// fail with a recursion_limit issue instead of overflowing the stack.
const DefaultMaxDepth = 64

// SerializeOpt configures one serialization call. Passed variadically;
// the last value wins.
type SerializeOpt struct {
	// MaxDepth overrides DefaultMaxDepth when positive.
	MaxDepth int
}

func foldOpt(opts []SerializeOpt) SerializeOpt {
	var o SerializeOpt
	if len(opts) > 0 {
		o = opts[len(opts)-1]
	}
	if o.MaxDepth <= 0 {
		o.MaxDepth = DefaultMaxDepth
	}
	return o
}
