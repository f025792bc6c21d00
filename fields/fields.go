// Package fields is the declaration vocabulary for serializer definitions.
// Each constructor returns a goserde.FieldSpec that can be refined with
// WithSource, WithFormat, Optional, WithLabel and WithHelp before it is
// handed to a builder:
//
//	def := goserde.Define().
//		Field("email", fields.Char()).
//		Field("joined", fields.Date().WithFormat("%d/%m/%y")).
//		MustBuild()
package fields

import (
	goserde "github.com/reoring/goserde"
)

// Char declares a string field.
func Char() goserde.FieldSpec { return goserde.NewSpec(goserde.KindChar) }

// Int declares an integer field.
func Int() goserde.FieldSpec { return goserde.NewSpec(goserde.KindInt) }

// Float declares a floating point field.
func Float() goserde.FieldSpec { return goserde.NewSpec(goserde.KindFloat) }

// Decimal declares an exact decimal field. Values render as JSON numbers
// with their full precision preserved.
func Decimal() goserde.FieldSpec { return goserde.NewSpec(goserde.KindDecimal) }

// Bool declares a boolean field.
func Bool() goserde.FieldSpec { return goserde.NewSpec(goserde.KindBool) }

// UUID declares a UUID field rendered in canonical string form.
func UUID() goserde.FieldSpec { return goserde.NewSpec(goserde.KindUUID) }

// Date declares a date field. Default output is 2006-01-02; override with
// WithFormat and a strftime pattern.
func Date() goserde.FieldSpec { return goserde.NewSpec(goserde.KindDate) }

// DateTime declares a timestamp field. Default output is RFC 3339 in UTC;
// override with WithFormat and a strftime pattern.
func DateTime() goserde.FieldSpec { return goserde.NewSpec(goserde.KindDateTime) }

// Dict declares a free-form string-keyed mapping field. Keys are emitted in
// sorted order unless the value is already an ordered goserde.Map.
func Dict() goserde.FieldSpec { return goserde.NewSpec(goserde.KindDict) }

// Method declares a computed field. fn receives the whole source object and
// its result passes through generic coercion.
func Method(fn goserde.MethodFunc) goserde.FieldSpec { return goserde.NewMethodSpec(fn) }

// Nested declares a single nested object serialized with def.
func Nested(def *goserde.Def) goserde.FieldSpec { return goserde.NewNestedSpec(def) }

// NestedMany declares a sequence of nested objects serialized with def.
func NestedMany(def *goserde.Def) goserde.FieldSpec { return goserde.NewNestedManySpec(def) }
