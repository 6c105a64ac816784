package vschema_test

import (
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/reoring/vschema"
)

func detailTypes(res vschema.Result) []string {
	if res.Error == nil {
		return nil
	}
	out := make([]string, len(res.Error.Details))
	for i, d := range res.Error.Details {
		out[i] = d.Type
	}
	return out
}

func TestSchema_BuildersDoNotMutateReceiver(t *testing.T) {
	base := vschema.String()
	limited := base.Max(3)
	if res := base.Validate("abcdef"); res.Error != nil {
		t.Fatalf("receiver changed: %v", res.Error)
	}
	if res := limited.Validate("abcdef"); res.Error == nil {
		t.Fatalf("expected string.max")
	}
	a := base.Min(1)
	b := base.Min(1).Max(2)
	if res := a.Validate("abc"); res.Error != nil {
		t.Fatalf("sibling builders share rules: %v", res.Error)
	}
	if res := b.Validate("abc"); res.Error == nil {
		t.Fatalf("expected string.max on b")
	}
}

func TestValidate_AbortEarly(t *testing.T) {
	s := vschema.Object(map[string]any{
		"a": vschema.String(),
		"b": vschema.Number(),
		"c": vschema.Boolean().Required(),
	})
	in := map[string]any{"a": 1, "b": "x"}
	if got := detailTypes(s.Validate(in)); len(got) != 1 {
		t.Fatalf("abortEarly should stop at the first error, got %v", got)
	}
	got := detailTypes(s.Validate(in, vschema.AbortEarly(false)))
	want := []string{"string.base", "number.base", "any.required"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("types mismatch (-want +got):\n%s", diff)
	}
}

func TestValidate_UnknownKeys(t *testing.T) {
	s := vschema.Object(map[string]any{"a": vschema.Number()})
	in := map[string]any{"a": 1, "b": 2}

	res := s.Validate(in)
	if res.Error == nil || res.Error.Details[0].Type != "object.allowUnknown" {
		t.Fatalf("expected object.allowUnknown, got %v", res.Error)
	}
	if msg := res.Error.Details[0].Message; msg != `"b" is not allowed` {
		t.Fatalf("unexpected message %q", msg)
	}
	if res := s.Validate(in, vschema.AllowUnknown(true)); res.Error != nil {
		t.Fatalf("allowUnknown rejected: %v", res.Error)
	}
	res = s.Validate(in, vschema.StripUnknownAll(true))
	if res.Error != nil {
		t.Fatalf("stripUnknown rejected: %v", res.Error)
	}
	if diff := cmp.Diff(map[string]any{"a": 1}, res.Value); diff != "" {
		t.Fatalf("strip mismatch (-want +got):\n%s", diff)
	}
	if _, ok := in["b"]; !ok {
		t.Fatalf("input map was modified")
	}
	if res := s.Unknown().Validate(in); res.Error != nil {
		t.Fatalf("Unknown() should allow extra keys: %v", res.Error)
	}
}

func TestValidate_PresenceAndDefaults(t *testing.T) {
	s := vschema.Object(map[string]any{
		"name":  vschema.String().Required(),
		"role":  vschema.String().Default("user"),
		"admin": vschema.Boolean().Forbidden(),
	})
	res := s.Validate(map[string]any{"name": "ann"})
	if res.Error != nil {
		t.Fatalf("unexpected error: %v", res.Error)
	}
	if diff := cmp.Diff(map[string]any{"name": "ann", "role": "user"}, res.Value); diff != "" {
		t.Fatalf("default mismatch (-want +got):\n%s", diff)
	}
	res = s.Validate(map[string]any{"name": "ann"}, vschema.NoDefaults(true))
	if _, ok := res.Value.(map[string]any)["role"]; ok {
		t.Fatalf("NoDefaults applied the default")
	}
	if got := detailTypes(s.Validate(map[string]any{"name": "ann", "admin": true})); len(got) != 1 || got[0] != "any.unknown" {
		t.Fatalf("expected any.unknown, got %v", got)
	}
	if got := detailTypes(s.Validate(map[string]any{})); len(got) != 1 || got[0] != "any.required" {
		t.Fatalf("expected any.required, got %v", got)
	}
	if got := detailTypes(vschema.Number().Validate(nil, vschema.WithPresence(vschema.PresenceRequired))); len(got) != 1 || got[0] != "number.base" {
		t.Fatalf("nil is a value, not a missing one: %v", got)
	}
}

func TestValidate_ValidsAndInvalids(t *testing.T) {
	s := vschema.String().Valid("a", "b")
	if res := s.Validate("a"); res.Error != nil {
		t.Fatalf("unexpected error: %v", res.Error)
	}
	res := s.Validate("c")
	if res.Error == nil || res.Error.Details[0].Type != "any.allowOnly" {
		t.Fatalf("expected any.allowOnly, got %v", res.Error)
	}
	if msg := res.Error.Details[0].Message; msg != `"value" must be one of [a, b]` {
		t.Fatalf("unexpected message %q", msg)
	}
	if got := detailTypes(vschema.String().Validate("")); len(got) != 1 || got[0] != "any.empty" {
		t.Fatalf("empty strings are rejected by default: %v", got)
	}
	if res := vschema.String().Allow("").Validate(""); res.Error != nil {
		t.Fatalf("Allow(\"\") should accept empty: %v", res.Error)
	}
	if got := detailTypes(vschema.Number().Invalid(0).Validate(0)); len(got) != 1 || got[0] != "any.invalid" {
		t.Fatalf("expected any.invalid, got %v", got)
	}
	if res := vschema.String().Valid("Yes").Insensitive().Validate("yes"); res.Error != nil {
		t.Fatalf("insensitive match failed: %v", res.Error)
	}
}

func TestValidate_SiblingReferenceOrdering(t *testing.T) {
	// "max" is declared before "min" but depends on it.
	s := vschema.Object().
		Key("max", vschema.Number().Min(vschema.Ref("min"))).
		Key("min", vschema.Number())
	if res := s.Validate(map[string]any{"min": "5", "max": "7"}); res.Error != nil {
		t.Fatalf("unexpected error: %v", res.Error)
	}
	res := s.Validate(map[string]any{"min": 5, "max": 3})
	if res.Error == nil {
		t.Fatalf("expected number.min")
	}
	d := res.Error.Details[0]
	if d.Type != "number.min" || d.PathString() != "max" {
		t.Fatalf("unexpected detail %+v", d)
	}
}

func TestValidate_ReferenceCycleIsSchemaError(t *testing.T) {
	_, err := vschema.Compile(map[string]any{
		"a": vschema.Number().Min(vschema.Ref("b")),
		"b": vschema.Number().Min(vschema.Ref("a")),
	})
	var se *vschema.SchemaError
	if !errors.As(err, &se) || !errors.Is(err, vschema.ErrInvalidSchema) {
		t.Fatalf("expected SchemaError, got %v", err)
	}
}

func TestValidate_ContextReference(t *testing.T) {
	s := vschema.Number().Max(vschema.Ref("$limit"))
	if res := s.Validate(5, vschema.WithContext(map[string]any{"limit": 10})); res.Error != nil {
		t.Fatalf("unexpected error: %v", res.Error)
	}
	if res := s.Validate(50, vschema.WithContext(map[string]any{"limit": 10})); res.Error == nil {
		t.Fatalf("expected number.max")
	}
}

func TestWhen_SiblingCondition(t *testing.T) {
	s := vschema.Object(map[string]any{
		"kind": vschema.String().Valid("card", "cash"),
		"number": vschema.String().When("kind", vschema.WhenOptions{
			Is:        "card",
			Then:      vschema.String().Required().CreditCard(),
			Otherwise: vschema.Any().Forbidden(),
		}),
	})
	if res := s.Validate(map[string]any{"kind": "card", "number": "4111111111111111"}); res.Error != nil {
		t.Fatalf("unexpected error: %v", res.Error)
	}
	if got := detailTypes(s.Validate(map[string]any{"kind": "card"})); len(got) != 1 || got[0] != "any.required" {
		t.Fatalf("expected any.required, got %v", got)
	}
	if got := detailTypes(s.Validate(map[string]any{"kind": "cash", "number": "4111111111111111"})); len(got) != 1 || got[0] != "any.unknown" {
		t.Fatalf("expected any.unknown, got %v", got)
	}
}

func TestAlternatives_ErrorAggregation(t *testing.T) {
	s := vschema.Alternatives(vschema.Number(), vschema.Boolean())
	if res := s.Validate(true); res.Error != nil {
		t.Fatalf("unexpected error: %v", res.Error)
	}
	res := s.Validate(map[string]any{})
	if res.Error == nil || res.Error.Details[0].Type != "alternatives.match" {
		t.Fatalf("expected alternatives.match, got %v", res.Error)
	}
	types, _ := res.Error.Details[0].Context["types"].([]string)
	if diff := cmp.Diff([]string{"number.base", "boolean.base"}, types); diff != "" {
		t.Fatalf("types mismatch (-want +got):\n%s", diff)
	}
	single := vschema.Alternatives(vschema.Number().Min(10))
	if got := detailTypes(single.Validate(3)); len(got) != 1 || got[0] != "number.min" {
		t.Fatalf("single attempt should surface its own error, got %v", got)
	}
}

func TestAlternatives_MatchedWhenBranchDecides(t *testing.T) {
	s := vschema.Object(map[string]any{
		"a": vschema.Number(),
		"b": vschema.Alternatives().
			When("a", vschema.WhenOptions{Is: 1, Then: vschema.Number().Min(5)}).
			Try(vschema.Number()),
	})
	if got := detailTypes(s.Validate(map[string]any{"a": 1, "b": 2})); len(got) != 1 || got[0] != "number.min" {
		t.Fatalf("matched branch must reject, got %v", got)
	}
	if res := s.Validate(map[string]any{"a": 1, "b": 7}); res.Error != nil {
		t.Fatalf("unexpected error: %v", res.Error)
	}
	if res := s.Validate(map[string]any{"a": 2, "b": 2}); res.Error != nil {
		t.Fatalf("unmatched condition should fall through to Try: %v", res.Error)
	}
}

func TestAlternatives_FirstMatchWins(t *testing.T) {
	s := vschema.Alt(vschema.Number(), vschema.String())
	res := s.Validate("12")
	if res.Error != nil {
		t.Fatalf("unexpected error: %v", res.Error)
	}
	if res.Value != float64(12) {
		t.Fatalf("expected the converted number, got %#v", res.Value)
	}
}

func TestLazy_RecursiveSchema(t *testing.T) {
	var node *vschema.Schema
	node = vschema.Object(map[string]any{
		"name":     vschema.String().Required(),
		"children": vschema.Array().Items(vschema.Lazy(func() *vschema.Schema { return node }, vschema.LazyOptions{Once: true})),
	})
	tree := map[string]any{
		"name": "root",
		"children": []any{
			map[string]any{"name": "a"},
			map[string]any{"name": "b", "children": []any{map[string]any{}}},
		},
	}
	res := node.Validate(tree)
	if res.Error == nil {
		t.Fatalf("expected nested any.required")
	}
	if p := res.Error.Details[0].PathString(); p != "children.1.children.0.name" {
		t.Fatalf("unexpected path %q", p)
	}
}

func TestCompile_SchemaLikes(t *testing.T) {
	s, err := vschema.Compile(map[string]any{
		"n":    5,
		"s":    "x",
		"re":   regexp.MustCompile(`^a+$`),
		"alts": []any{"a", 1},
	})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if res := s.Validate(map[string]any{"n": 5, "s": "x", "re": "aaa", "alts": 1}); res.Error != nil {
		t.Fatalf("unexpected error: %v", res.Error)
	}
	if res := s.Validate(map[string]any{"re": "b"}); res.Error == nil {
		t.Fatalf("expected regex failure")
	}
	if _, err := vschema.Compile([]any{}); !errors.Is(err, vschema.ErrInvalidSchema) {
		t.Fatalf("empty alternatives should fail, got %v", err)
	}
	if _, err := vschema.Compile(vschema.Undefined); err == nil {
		t.Fatalf("Undefined is not schema-like")
	}
}

func TestAssertAndAttempt(t *testing.T) {
	if err := vschema.Assert("abc", vschema.String()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := vschema.Assert(1, vschema.String(), "bad input:")
	if err == nil || !strings.HasPrefix(err.Error(), "bad input: ") {
		t.Fatalf("expected prefixed error, got %v", err)
	}
	if _, ok := vschema.AsValidationError(err); !ok {
		t.Fatalf("wrapped error lost its ValidationError")
	}
	v, err := vschema.Attempt(" 42 ", vschema.Number())
	if err != nil || v != float64(42) {
		t.Fatalf("unexpected attempt result %v %v", v, err)
	}
}

func TestReach(t *testing.T) {
	s := vschema.Object(map[string]any{
		"a": vschema.Object(map[string]any{"b": vschema.Number().Label("deep")}),
	})
	if got := vschema.Reach(s, "a.b"); got == nil || got.Describe().Label != "deep" {
		t.Fatalf("reach a.b failed: %v", got)
	}
	if got := vschema.Reach(s, []string{"a", "x"}); got != nil {
		t.Fatalf("expected nil for missing key, got %v", got)
	}
}

func TestValidateCallback(t *testing.T) {
	var gotErr error
	var gotVal any
	vschema.ValidateCallback("5", vschema.Number(), func(err error, v any) { gotErr, gotVal = err, v })
	if gotErr != nil || gotVal != float64(5) {
		t.Fatalf("unexpected callback args %v %v", gotErr, gotVal)
	}
}
