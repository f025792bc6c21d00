package goserde

// Package goserde provides:
//
// - Declarative serialization of Go values based on Def/Serializer (Define/Build/Serialize)
// - Ordered output via Map so fields render in declaration order
// - A stable error model via Issues (JSON Pointer, code, message)
// - Kind-specific coercion (char, int, float, decimal, bool, uuid, date, datetime, dict)
// - Computed fields via Method and composition via Extend with Only/Exclude filtering
//
// Design policy:
// - Keep the engine in the root package; field constructors live under fields/.
// - Place wire encoders under codec/, JSON Schema export types under jsonschema/,
//   and message translation under i18n/.
// - Prefer black-box testing against public APIs.
//
// Typical usage:
//
//	userDef := goserde.Define().
//		Field("id", fields.UUID()).
//		Field("email", fields.Char()).
//		Field("joined", fields.Date()).
//		MustBuild()
//
//	m, err := userDef.Serialize(ctx, user)
//	out, err := codec.JSON().Encode(m)
//
//	ms, err := userDef.SerializeMany(ctx, users)
