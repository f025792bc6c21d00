package goserde_test

import (
	"context"
	"errors"
	"reflect"
	"testing"

	goserde "github.com/reoring/goserde"
	"github.com/reoring/goserde/fields"
)

// TestResolveStructKey_Precedence checks goserde:"name=..." > json tag >
// field name, and that "-" disables a field.
func TestResolveStructKey_Precedence(t *testing.T) {
	type tagged struct {
		A string `goserde:"name=alpha" json:"ignored"`
		B string `json:"beta,omitempty"`
		C string
		D string `json:"-"`
	}
	tt := reflect.TypeOf(tagged{})

	cases := []struct {
		field string
		want  string
	}{
		{"A", "alpha"},
		{"B", "beta"},
		{"C", "C"},
		{"D", "-"},
	}
	for _, c := range cases {
		sf, _ := tt.FieldByName(c.field)
		if got := goserde.ResolveStructKey(sf); got != c.want {
			t.Fatalf("ResolveStructKey(%s) = %q, want %q", c.field, got, c.want)
		}
	}
}

func charDef(t *testing.T, name string, spec goserde.FieldSpec) *goserde.Def {
	t.Helper()
	d, err := goserde.Define().Field(name, spec).Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return d
}

// TestAttr_StructTagNames serializes a struct whose attribute names come
// from tags rather than Go field names.
func TestAttr_StructTagNames(t *testing.T) {
	ctx := context.Background()
	type user struct {
		EmailAddr string `json:"email"`
		Nick      string `goserde:"name=nickname" json:"nick_json"`
	}

	d, err := goserde.Define().
		Field("email", fields.Char()).
		Field("nickname", fields.Char()).
		Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	m, err := d.Serialize(ctx, user{EmailAddr: "x@example.com", Nick: "reo"})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if v, _ := m.Get("email"); v != "x@example.com" {
		t.Fatalf("json tag lookup failed: %v", v)
	}
	if v, _ := m.Get("nickname"); v != "reo" {
		t.Fatalf("goserde tag lookup failed: %v", v)
	}
}

// TestAttr_JSONDashHidesField checks a json:"-" field is unreadable.
func TestAttr_JSONDashHidesField(t *testing.T) {
	ctx := context.Background()
	type user struct {
		Secret string `json:"-"`
	}

	d := charDef(t, "Secret", fields.Char())
	_, err := d.Serialize(ctx, user{Secret: "hidden"})
	iss, ok := goserde.AsIssues(err)
	if !ok || len(iss) != 1 || iss[0].Code != goserde.CodeMissingAttribute {
		t.Fatalf("expected missing_attribute for json:\"-\" field, got %v", err)
	}
}

// TestAttr_EmbeddedPromotion checks embedded struct fields resolve at the
// outer level and the shallowest declaration wins on collision.
func TestAttr_EmbeddedPromotion(t *testing.T) {
	ctx := context.Background()
	type Base struct {
		Name string `json:"name"`
		Kind string `json:"kind"`
	}
	type outer struct {
		Base
		Kind string `json:"kind"` // shadows Base.Kind
	}

	d, err := goserde.Define().
		Field("name", fields.Char()).
		Field("kind", fields.Char()).
		Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	m, err := d.Serialize(ctx, outer{Base: Base{Name: "n", Kind: "inner"}, Kind: "outer"})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if v, _ := m.Get("name"); v != "n" {
		t.Fatalf("embedded field not promoted: %v", v)
	}
	if v, _ := m.Get("kind"); v != "outer" {
		t.Fatalf("shallowest field must win, got %v", v)
	}
}

func TestAttr_NilEmbeddedPointer(t *testing.T) {
	ctx := context.Background()
	type Base struct {
		Name string `json:"name"`
	}
	type outer struct {
		*Base
	}

	d := charDef(t, "name", fields.Char().Optional())
	m, err := d.Serialize(ctx, outer{})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if v, ok := m.Get("name"); !ok || v != nil {
		t.Fatalf("nil embedded pointer should resolve to null, got %v ok=%v", v, ok)
	}
}

// getterSource implements Getter and also carries a struct field with the
// same attribute name; the interface must win.
type getterSource struct {
	Name string `json:"name"`
}

func (getterSource) Attr(name string) (any, bool) {
	if name == "name" {
		return "from-getter", true
	}
	return nil, false
}

func TestAttr_GetterBeatsStructField(t *testing.T) {
	ctx := context.Background()
	d := charDef(t, "name", fields.Char())

	m, err := d.Serialize(ctx, getterSource{Name: "from-field"})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if v, _ := m.Get("name"); v != "from-getter" {
		t.Fatalf("expected Getter to take precedence, got %v", v)
	}
}

func TestAttr_MapSource(t *testing.T) {
	ctx := context.Background()
	d := charDef(t, "name", fields.Char())

	m, err := d.Serialize(ctx, map[string]any{"name": "from-map"})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if v, _ := m.Get("name"); v != "from-map" {
		t.Fatalf("map lookup failed: %v", v)
	}

	// typed map values work too
	m, err = d.Serialize(ctx, map[string]string{"name": "typed"})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if v, _ := m.Get("name"); v != "typed" {
		t.Fatalf("typed map lookup failed: %v", v)
	}
}

type methodSource struct{ first, last string }

func (s methodSource) FullName() string { return s.first + " " + s.last }

type ptrMethodSource struct{ n int }

func (s *ptrMethodSource) Counter() int { return s.n }

type failingSource struct{}

func (failingSource) Flaky() (string, error) { return "", errors.New("backend down") }

// TestAttr_NiladicMethods covers value-receiver methods, pointer-receiver
// methods reached from a value, and the (T, error) form.
func TestAttr_NiladicMethods(t *testing.T) {
	ctx := context.Background()

	d := charDef(t, "FullName", fields.Char())
	m, err := d.Serialize(ctx, methodSource{first: "John", last: "Smith"})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if v, _ := m.Get("FullName"); v != "John Smith" {
		t.Fatalf("method attribute failed: %v", v)
	}

	di, err := goserde.Define().Field("Counter", fields.Int()).Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	mi, err := di.Serialize(ctx, ptrMethodSource{n: 7})
	if err != nil {
		t.Fatalf("pointer method set not reached from value: %v", err)
	}
	if v, _ := mi.Get("Counter"); v != int64(7) {
		t.Fatalf("expected 7, got %v", v)
	}

	// method error becomes missing_attribute with the cause attached
	df := charDef(t, "Flaky", fields.Char())
	_, err = df.Serialize(ctx, failingSource{})
	iss, ok := goserde.AsIssues(err)
	if !ok || len(iss) != 1 || iss[0].Code != goserde.CodeMissingAttribute {
		t.Fatalf("expected missing_attribute, got %v", err)
	}
	if iss[0].Cause == nil {
		t.Fatalf("expected cause to carry the method error")
	}

	// Optional swallows the read failure
	dopt := charDef(t, "Flaky", fields.Char().Optional())
	mo, err := dopt.Serialize(ctx, failingSource{})
	if err != nil {
		t.Fatalf("optional should tolerate unreadable attribute: %v", err)
	}
	if v, ok := mo.Get("Flaky"); !ok || v != nil {
		t.Fatalf("expected null, got %v ok=%v", v, ok)
	}
}

// TestAttr_DotPathSource traverses nested attributes with a dot-separated
// source path.
func TestAttr_DotPathSource(t *testing.T) {
	ctx := context.Background()
	type version struct {
		Name string `json:"name"`
	}
	type app struct {
		Version version `json:"version"`
	}

	d := charDef(t, "version_name", fields.Char().WithSource("version.name"))
	m, err := d.Serialize(ctx, app{Version: version{Name: "v1.2.3"}})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if v, _ := m.Get("version_name"); v != "v1.2.3" {
		t.Fatalf("dot path failed: %v", v)
	}

	// mixed traversal: map -> struct -> method
	src := map[string]any{"app": app{Version: version{Name: "v9"}}}
	d2 := charDef(t, "v", fields.Char().WithSource("app.version.name"))
	m2, err := d2.Serialize(ctx, src)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if v, _ := m2.Get("v"); v != "v9" {
		t.Fatalf("mixed dot path failed: %v", v)
	}

	// broken middle step
	d3 := charDef(t, "v", fields.Char().WithSource("app.missing.name"))
	_, err = d3.Serialize(ctx, src)
	iss, ok := goserde.AsIssues(err)
	if !ok || iss[0].Code != goserde.CodeMissingAttribute {
		t.Fatalf("expected missing_attribute for broken path, got %v", err)
	}
	if iss[0].Params["source"] != "app.missing.name" {
		t.Fatalf("expected source param to carry the full path, got %v", iss[0].Params)
	}
}
