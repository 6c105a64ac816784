package vschema_test

import (
	"errors"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"

	"github.com/reoring/vschema"
)

func orderSchema() *vschema.Schema {
	return vschema.Object(map[string]any{
		"id":    vschema.String().GUID().Required(),
		"qty":   vschema.Number().Integer().Min(1).Max(vschema.Ref("limit")),
		"limit": vschema.Number().Default(10),
		"tags":  vschema.Array().Items(vschema.String().Lowercase()).Unique().Max(5),
		"note":  vschema.String().Allow("").Label("Note").Description("free text"),
		"kind":  vschema.String().Valid("retail", "wholesale"),
	}).With("qty", "limit").Rename("amount", "qty").Unknown(false)
}

func roundTrip(t *testing.T, d *vschema.Description) any {
	t.Helper()
	raw, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return out
}

func TestDescribe_Structure(t *testing.T) {
	d := orderSchema().Describe()
	if d.Type != "object" || !d.KeysSet || len(d.Keys) != 6 {
		t.Fatalf("unexpected description %+v", d)
	}
	var qty *vschema.Description
	for _, k := range d.Keys {
		if k.Key == "qty" {
			qty = k.Schema
		}
	}
	if qty == nil {
		t.Fatalf("qty key missing")
	}
	want := []vschema.RuleDescription{{Name: "integer"}, {Name: "min", Arg: 1}, {Name: "max", Arg: "ref:limit"}}
	if diff := cmp.Diff(want, qty.Rules); diff != "" {
		t.Fatalf("rules mismatch (-want +got):\n%s", diff)
	}
	if d.Flags["unknown"] != false {
		t.Fatalf("unknown flag not described: %v", d.Flags)
	}
}

func TestBuild_RoundTripJSON(t *testing.T) {
	orig := orderSchema().Describe()
	raw, err := json.Marshal(orig)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	parsed, err := vschema.ParseDescriptionJSON(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	rebuilt, err := vschema.Build(parsed)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if diff := cmp.Diff(roundTrip(t, orig), roundTrip(t, rebuilt.Describe())); diff != "" {
		t.Fatalf("description drift (-orig +rebuilt):\n%s", diff)
	}

	in := map[string]any{"id": "3b241101-e2bb-4255-8caf-4136c566a962", "amount": 20, "limit": 5}
	a := orderSchema().Validate(in, vschema.AbortEarly(false))
	b := rebuilt.Validate(in, vschema.AbortEarly(false))
	if a.Error == nil || b.Error == nil {
		t.Fatalf("both schemas should reject qty > limit")
	}
	if diff := cmp.Diff(a.Error.Error(), b.Error.Error()); diff != "" {
		t.Fatalf("rebuilt schema disagrees (-orig +rebuilt):\n%s", diff)
	}
}

func TestBuild_RoundTripDependencies(t *testing.T) {
	base := vschema.Object(map[string]any{"a": vschema.Number(), "b": vschema.Number()})
	both := map[string]any{"a": 1, "b": 2}
	onlyA := map[string]any{"a": 1}
	cases := []struct {
		name   string
		schema *vschema.Schema
		bad    map[string]any
	}{
		{"and", base.And("a", "b"), onlyA},
		{"nand", base.Nand("a", "b"), both},
		{"or", base.Or("a", "b"), map[string]any{}},
		{"xor", base.Xor("a", "b"), both},
		{"oxor", base.Oxor("a", "b"), both},
		{"with", base.With("a", "b"), onlyA},
		{"without", base.Without("a", "b"), both},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			raw, err := json.Marshal(tc.schema.Describe())
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			parsed, err := vschema.ParseDescriptionJSON(raw)
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if len(parsed.Dependencies) != 1 || parsed.Dependencies[0].Type != tc.name {
				t.Fatalf("dependency lost: %+v", parsed.Dependencies)
			}
			rebuilt, err := vschema.Build(parsed)
			if err != nil {
				t.Fatalf("build: %v", err)
			}
			want := tc.schema.Validate(tc.bad)
			got := rebuilt.Validate(tc.bad)
			if want.Error == nil || got.Error == nil {
				t.Fatalf("both schemas should reject %v", tc.bad)
			}
			if diff := cmp.Diff(want.Error.Error(), got.Error.Error()); diff != "" {
				t.Fatalf("rebuilt schema disagrees (-orig +rebuilt):\n%s", diff)
			}
		})
	}
}

func TestBuild_YAML(t *testing.T) {
	doc := []byte(`
type: object
keysSet: true
keys:
  - key: name
    schema:
      type: string
      flags:
        presence: required
      rules:
        - name: min
          arg: 2
  - key: port
    schema:
      type: number
      rules:
        - name: port
`)
	d, err := vschema.ParseDescriptionYAML(doc)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	s, err := vschema.Build(d)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if res := s.Validate(map[string]any{"name": "db", "port": 5432}); res.Error != nil {
		t.Fatalf("unexpected error: %v", res.Error)
	}
	res := s.Validate(map[string]any{"name": "d", "port": 99999}, vschema.AbortEarly(false))
	if got := detailTypes(res); !cmp.Equal(got, []string{"string.min", "number.port"}) {
		t.Fatalf("unexpected types %v", got)
	}
}

func TestBuild_Errors(t *testing.T) {
	if _, err := vschema.Build(&vschema.Description{Type: "nope"}); !errors.Is(err, vschema.ErrInvalidSchema) {
		t.Fatalf("expected ErrInvalidSchema, got %v", err)
	}
	d := &vschema.Description{Type: "string", Rules: []vschema.RuleDescription{{Name: "teleport"}}}
	if _, err := vschema.Build(d); !errors.Is(err, vschema.ErrUnknownRule) {
		t.Fatalf("expected ErrUnknownRule, got %v", err)
	}
	fn := vschema.Number().Default(func() any { return 1 }).Describe()
	if _, err := vschema.Build(fn); !errors.Is(err, vschema.ErrNotBuildable) {
		t.Fatalf("expected ErrNotBuildable, got %v", err)
	}
	lazy := vschema.Lazy(func() *vschema.Schema { return vschema.Any() }).Describe()
	if _, err := vschema.Build(lazy); !errors.Is(err, vschema.ErrNotBuildable) {
		t.Fatalf("expected ErrNotBuildable for lazy, got %v", err)
	}
}

func TestBuild_ExtensionRules(t *testing.T) {
	e, err := vschema.Extend(csvExtension())
	if err != nil {
		t.Fatalf("extend: %v", err)
	}
	s, _ := e.Type("csv")
	d := s.Rule("columns", 2).Describe()
	if d.Type != "csv" || d.Base != "array" {
		t.Fatalf("unexpected description %+v", d)
	}
	rebuilt, err := e.Build(d)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if res := rebuilt.Validate("a,b,c"); res.Error == nil || res.Error.Details[0].Type != "csv.columns" {
		t.Fatalf("rebuilt rule lost: %v", res.Error)
	}
	if _, err := vschema.Build(d); err == nil {
		t.Fatalf("default engine does not know csv")
	}
}
