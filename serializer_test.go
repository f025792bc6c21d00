package goserde_test

import (
	"context"
	"sync/atomic"
	"testing"

	goserde "github.com/reoring/goserde"
	"github.com/reoring/goserde/fields"
)

type account struct {
	Email    string `json:"email"`
	Username string `json:"username"`
}

func accountDef(t *testing.T) *goserde.Def {
	t.Helper()
	d, err := goserde.Define().
		Field("email", fields.Char()).
		Field("username", fields.Char()).
		Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return d
}

// TestSerialize_DeclarationOrder renders two Char fields and checks both
// values and key order.
func TestSerialize_DeclarationOrder(t *testing.T) {
	ctx := context.Background()
	d := accountDef(t)

	m, err := d.Serialize(ctx, account{Email: "foo@bar.com", Username: "foo"})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got := m.Keys(); !sameNames(got, []string{"email", "username"}) {
		t.Fatalf("unexpected key order: %v", got)
	}
	if v, _ := m.Get("email"); v != "foo@bar.com" {
		t.Fatalf("unexpected email: %v", v)
	}
	if v, _ := m.Get("username"); v != "foo" {
		t.Fatalf("unexpected username: %v", v)
	}

	b, err := m.MarshalJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"email":"foo@bar.com","username":"foo"}`
	if string(b) != want {
		t.Fatalf("encoded mismatch:\nwant %s\ngot  %s", want, b)
	}
}

// TestSerialize_OnlyAndExclude checks meta filtering end to end.
func TestSerialize_OnlyAndExclude(t *testing.T) {
	ctx := context.Background()
	src := account{Email: "foo@bar.com", Username: "foo"}

	only := goserde.Define().
		Field("email", fields.Char()).
		Field("username", fields.Char()).
		Only("email").
		MustBuild()
	m, err := only.Serialize(ctx, src)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got := m.Keys(); !sameNames(got, []string{"email"}) {
		t.Fatalf("only output mismatch: %v", got)
	}

	excl := goserde.Define().
		Field("email", fields.Char()).
		Field("username", fields.Char()).
		Exclude("username").
		MustBuild()
	m, err = excl.Serialize(ctx, src)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got := m.Keys(); !sameNames(got, []string{"email"}) {
		t.Fatalf("exclude output mismatch: %v", got)
	}
}

// TestSerializeMany_OrderPreserved checks element order follows the input
// slice.
func TestSerializeMany_OrderPreserved(t *testing.T) {
	ctx := context.Background()
	d := accountDef(t)

	srcs := []account{
		{Email: "a@x.com", Username: "a"},
		{Email: "b@x.com", Username: "b"},
		{Email: "c@x.com", Username: "c"},
	}
	ms, err := d.SerializeMany(ctx, srcs)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(ms) != 3 {
		t.Fatalf("expected 3 results, got %d", len(ms))
	}
	for i, want := range []string{"a", "b", "c"} {
		if v, _ := ms[i].Get("username"); v != want {
			t.Fatalf("element %d out of order: %v", i, v)
		}
	}
}

// TestSerializeMany_AllOrNothing checks one failing element aborts the call
// and the issue path carries the element index.
func TestSerializeMany_AllOrNothing(t *testing.T) {
	ctx := context.Background()
	d := accountDef(t)

	srcs := []map[string]any{
		{"email": "a@x.com", "username": "a"},
		{"username": "b"}, // email missing
		{"email": "c@x.com", "username": "c"},
	}
	ms, err := d.SerializeMany(ctx, srcs)
	if ms != nil {
		t.Fatalf("no partial output allowed, got %v", ms)
	}
	iss, ok := goserde.AsIssues(err)
	if !ok || len(iss) != 1 {
		t.Fatalf("expected one issue, got %v", err)
	}
	if iss[0].Path != "/1/email" || iss[0].Code != goserde.CodeMissingAttribute {
		t.Fatalf("unexpected issue: %+v", iss[0])
	}
}

// TestSerializeMany_InputShapes covers nil, non-sequence, typed nil slice
// and pointer-to-slice inputs.
func TestSerializeMany_InputShapes(t *testing.T) {
	ctx := context.Background()
	d := accountDef(t)

	_, err := d.SerializeMany(ctx, nil)
	if iss, ok := goserde.AsIssues(err); !ok || iss[0].Code != goserde.CodeInvalidInput {
		t.Fatalf("expected invalid_input for nil, got %v", err)
	}

	_, err = d.SerializeMany(ctx, account{Email: "x", Username: "y"})
	iss, ok := goserde.AsIssues(err)
	if !ok || iss[0].Code != goserde.CodeInvalidInput {
		t.Fatalf("expected invalid_input for non-slice, got %v", err)
	}
	if iss[0].Params["got"] != "goserde_test.account" {
		t.Fatalf("expected got param with the input type, got %v", iss[0].Params)
	}

	var empty []account
	ms, err := d.SerializeMany(ctx, empty)
	if err != nil || len(ms) != 0 {
		t.Fatalf("typed nil slice should yield an empty result, got %v err=%v", ms, err)
	}

	srcs := []account{{Email: "a@x.com", Username: "a"}}
	ms, err = d.SerializeMany(ctx, &srcs)
	if err != nil || len(ms) != 1 {
		t.Fatalf("pointer to slice should work, got %v err=%v", ms, err)
	}
}

// TestSerializer_DataLazyOnce checks Data caches the first result and the
// stored method runs exactly once.
func TestSerializer_DataLazyOnce(t *testing.T) {
	ctx := context.Background()
	var calls int32
	d := goserde.Define().
		Field("n", fields.Method(func(ctx context.Context, obj any) (any, error) {
			atomic.AddInt32(&calls, 1)
			return 42, nil
		})).
		MustBuild()

	ser := goserde.New(d, struct{}{})
	if atomic.LoadInt32(&calls) != 0 {
		t.Fatalf("construction must not serialize")
	}

	first, err := ser.Data(ctx)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	second, err := ser.Data(ctx)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("method should run once, ran %d times", calls)
	}
	fm, ok := first.(*goserde.Map)
	if !ok {
		t.Fatalf("expected *Map, got %T", first)
	}
	if sm := second.(*goserde.Map); fm != sm {
		t.Fatalf("expected the cached result on the second call")
	}
	if v, _ := fm.Get("n"); v != int64(42) {
		t.Fatalf("unexpected value: %v", v)
	}
}

func TestSerializer_DataCachesError(t *testing.T) {
	ctx := context.Background()
	var calls int32
	d := goserde.Define().
		Field("x", fields.Method(func(context.Context, any) (any, error) {
			atomic.AddInt32(&calls, 1)
			return nil, context.DeadlineExceeded
		})).
		MustBuild()

	ser := goserde.New(d, struct{}{})
	_, err1 := ser.Data(ctx)
	_, err2 := ser.Data(ctx)
	if err1 == nil || err2 == nil {
		t.Fatalf("expected errors, got %v / %v", err1, err2)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("failure should be cached, method ran %d times", calls)
	}
	iss1, _ := goserde.AsIssues(err1)
	iss2, _ := goserde.AsIssues(err2)
	if len(iss1) != 1 || len(iss2) != 1 || iss1[0].Path != iss2[0].Path {
		t.Fatalf("expected the cached error, got %v / %v", iss1, iss2)
	}
}

// TestSerializer_ManyMode checks NewMany yields []*Map through Data.
func TestSerializer_ManyMode(t *testing.T) {
	ctx := context.Background()
	d := accountDef(t)

	ser := goserde.NewMany(d, []account{
		{Email: "a@x.com", Username: "a"},
		{Email: "b@x.com", Username: "b"},
	})
	data, err := ser.Data(ctx)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	ms, ok := data.([]*goserde.Map)
	if !ok || len(ms) != 2 {
		t.Fatalf("expected []*Map of 2, got %T", data)
	}
}

// TestSerialize_NestedDef checks a nested object renders at its declared
// position and nested failures carry the parent field in the path.
func TestSerialize_NestedDef(t *testing.T) {
	ctx := context.Background()
	userDef := accountDef(t)

	postDef := goserde.Define().
		Field("title", fields.Char()).
		Field("user", fields.Nested(userDef)).
		Field("pinned", fields.Bool()).
		MustBuild()

	type post struct {
		Title  string         `json:"title"`
		User   map[string]any `json:"user"`
		Pinned bool           `json:"pinned"`
	}

	m, err := postDef.Serialize(ctx, post{
		Title:  "hello",
		User:   map[string]any{"email": "u@x.com", "username": "u"},
		Pinned: true,
	})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got := m.Keys(); !sameNames(got, []string{"title", "user", "pinned"}) {
		t.Fatalf("nested field out of position: %v", got)
	}
	uv, _ := m.Get("user")
	um, ok := uv.(*goserde.Map)
	if !ok {
		t.Fatalf("expected nested *Map, got %T", uv)
	}
	if v, _ := um.Get("email"); v != "u@x.com" {
		t.Fatalf("unexpected nested value: %v", v)
	}

	// nested failure path
	_, err = postDef.Serialize(ctx, post{
		Title: "broken",
		User:  map[string]any{"username": "only"},
	})
	iss, ok := goserde.AsIssues(err)
	if !ok || iss[0].Path != "/user/email" {
		t.Fatalf("expected /user/email, got %v", err)
	}

	// nil nested attribute renders null
	m2, err := postDef.Serialize(ctx, map[string]any{"title": "t", "user": nil, "pinned": true})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if v, ok := m2.Get("user"); !ok || v != nil {
		t.Fatalf("nil nested attribute should render null, got %v ok=%v", v, ok)
	}
}

// TestSerialize_NestedManyDef checks sequence rendering and indexed error
// paths like /items/1/email.
func TestSerialize_NestedManyDef(t *testing.T) {
	ctx := context.Background()
	userDef := accountDef(t)

	feedDef := goserde.Define().
		Field("items", fields.NestedMany(userDef)).
		MustBuild()

	m, err := feedDef.Serialize(ctx, map[string]any{
		"items": []map[string]any{
			{"email": "a@x.com", "username": "a"},
			{"email": "b@x.com", "username": "b"},
		},
	})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	items, _ := m.Get("items")
	seq, ok := items.([]any)
	if !ok || len(seq) != 2 {
		t.Fatalf("expected sequence of 2, got %T", items)
	}
	if v, _ := seq[1].(*goserde.Map).Get("username"); v != "b" {
		t.Fatalf("unexpected element: %v", v)
	}

	// element failure carries the index
	_, err = feedDef.Serialize(ctx, map[string]any{
		"items": []map[string]any{
			{"email": "a@x.com", "username": "a"},
			{"username": "broken"},
		},
	})
	iss, ok := goserde.AsIssues(err)
	if !ok || iss[0].Path != "/items/1/email" {
		t.Fatalf("expected /items/1/email, got %v", err)
	}

	// nil attribute → null; typed empty slice → empty sequence
	m, err = feedDef.Serialize(ctx, map[string]any{"items": nil})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if v, ok := m.Get("items"); !ok || v != nil {
		t.Fatalf("nil should render null, got %v", v)
	}
	m, err = feedDef.Serialize(ctx, map[string]any{"items": []account{}})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if v, _ := m.Get("items"); len(v.([]any)) != 0 {
		t.Fatalf("expected empty sequence, got %v", v)
	}

	// non-sequence attribute is a coercion failure at the field
	_, err = feedDef.Serialize(ctx, map[string]any{"items": 42})
	if iss, ok := goserde.AsIssues(err); !ok || iss[0].Code != goserde.CodeCoercion || iss[0].Path != "/items" {
		t.Fatalf("expected coercion_error at /items, got %v", err)
	}
}

// TestSerialize_MethodField checks the stored function result lands under
// the declared name.
func TestSerialize_MethodField(t *testing.T) {
	ctx := context.Background()
	type person struct {
		First string `json:"first"`
		Last  string `json:"last"`
	}
	d := goserde.Define().
		Field("full_name", fields.Method(func(_ context.Context, obj any) (any, error) {
			p := obj.(person)
			return p.First + " " + p.Last, nil
		})).
		MustBuild()

	m, err := d.Serialize(ctx, person{First: "John", Last: "Smith"})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if v, _ := m.Get("full_name"); v != "John Smith" {
		t.Fatalf("unexpected full_name: %v", v)
	}
}

// TestSerialize_MethodFieldErrors checks error propagation: Issues pass
// through rebased, plain errors wrap as coercion_error.
func TestSerialize_MethodFieldErrors(t *testing.T) {
	ctx := context.Background()

	d := goserde.Define().
		Field("x", fields.Method(func(context.Context, any) (any, error) {
			return nil, goserde.Issues{{Path: "/inner", Code: goserde.CodeInvalidInput, Message: "bad inner"}}
		})).
		MustBuild()
	_, err := d.Serialize(ctx, struct{}{})
	iss, ok := goserde.AsIssues(err)
	if !ok || iss[0].Path != "/x/inner" || iss[0].Code != goserde.CodeInvalidInput {
		t.Fatalf("expected issues to pass through rebased, got %v", err)
	}

	d2 := goserde.Define().
		Field("x", fields.Method(func(context.Context, any) (any, error) {
			return nil, context.DeadlineExceeded
		})).
		MustBuild()
	_, err = d2.Serialize(ctx, struct{}{})
	iss, ok = goserde.AsIssues(err)
	if !ok || iss[0].Code != goserde.CodeCoercion || iss[0].Path != "/x" {
		t.Fatalf("expected wrapped coercion_error at /x, got %v", err)
	}
	if iss[0].Cause == nil {
		t.Fatalf("expected cause to carry the original error")
	}
}

// TestSerialize_OptionalAndPresentNil distinguishes a missing attribute
// from a present nil value.
func TestSerialize_OptionalAndPresentNil(t *testing.T) {
	ctx := context.Background()

	d := goserde.Define().
		Field("nickname", fields.Char().Optional()).
		MustBuild()

	// missing attribute → null
	m, err := d.Serialize(ctx, map[string]any{})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if v, ok := m.Get("nickname"); !ok || v != nil {
		t.Fatalf("expected null for missing optional, got %v ok=%v", v, ok)
	}

	// required missing → missing_attribute
	req := goserde.Define().Field("nickname", fields.Char()).MustBuild()
	_, err = req.Serialize(ctx, map[string]any{})
	iss, ok := goserde.AsIssues(err)
	if !ok || iss[0].Code != goserde.CodeMissingAttribute || iss[0].Path != "/nickname" {
		t.Fatalf("expected missing_attribute at /nickname, got %v", err)
	}
	if iss[0].Params["source"] != "nickname" {
		t.Fatalf("expected source param, got %v", iss[0].Params)
	}

	// present but nil → null even for required fields
	m, err = req.Serialize(ctx, map[string]any{"nickname": nil})
	if err != nil {
		t.Fatalf("present nil should serialize, got %v", err)
	}
	if v, ok := m.Get("nickname"); !ok || v != nil {
		t.Fatalf("expected null, got %v", v)
	}

	// present nil pointer → null too
	var p *string
	m, err = req.Serialize(ctx, map[string]any{"nickname": p})
	if err != nil {
		t.Fatalf("nil pointer should serialize, got %v", err)
	}
	if v, _ := m.Get("nickname"); v != nil {
		t.Fatalf("expected null, got %v", v)
	}
}

// TestSerialize_DepthGuard feeds a self-referential tree and expects
// recursion_limit instead of a stack overflow.
func TestSerialize_DepthGuard(t *testing.T) {
	ctx := context.Background()

	cyc := map[string]any{}
	cyc["self"] = cyc
	d := goserde.Define().Field("data", fields.Dict()).MustBuild()

	_, err := d.Serialize(ctx, map[string]any{"data": cyc})
	iss, ok := goserde.AsIssues(err)
	if !ok || iss[0].Code != goserde.CodeRecursionLimit {
		t.Fatalf("expected recursion_limit, got %v", err)
	}

	// a custom limit cuts earlier and is reported in params
	_, err = d.Serialize(ctx, map[string]any{"data": cyc}, goserde.SerializeOpt{MaxDepth: 3})
	iss, ok = goserde.AsIssues(err)
	if !ok || iss[0].Code != goserde.CodeRecursionLimit {
		t.Fatalf("expected recursion_limit, got %v", err)
	}
	if iss[0].Params["max_depth"] != 3 {
		t.Fatalf("expected max_depth param 3, got %v", iss[0].Params)
	}

	// sane nesting still works under the default limit
	ok3 := map[string]any{"a": map[string]any{"b": map[string]any{"c": 1}}}
	if _, err := d.Serialize(ctx, map[string]any{"data": ok3}); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
}

// TestSerialize_EscapedFieldName checks names containing JSON Pointer
// special characters surface escaped in issue paths.
func TestSerialize_EscapedFieldName(t *testing.T) {
	ctx := context.Background()
	d := goserde.Define().Field("a/b", fields.Char()).MustBuild()

	_, err := d.Serialize(ctx, map[string]any{})
	iss, ok := goserde.AsIssues(err)
	if !ok || iss[0].Path != "/a~1b" {
		t.Fatalf("expected escaped pointer /a~1b, got %v", err)
	}
}
