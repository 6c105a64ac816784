package vschema_test

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/reoring/vschema"
)

func csvExtension() vschema.Extension {
	return vschema.Extension{
		Name: "csv",
		Base: vschema.Array().Items(vschema.String()),
		Language: map[string]string{
			"columns": "must have {{n}} columns",
		},
		Coerce: func(v any, _ *vschema.HookContext) (any, error) {
			if s, ok := v.(string); ok {
				parts := strings.Split(s, ",")
				out := make([]any, len(parts))
				for i, p := range parts {
					out[i] = strings.TrimSpace(p)
				}
				return out, nil
			}
			return v, nil
		},
		Rules: []vschema.RuleDef{{
			Name:   "columns",
			Params: []vschema.Param{{Name: "n", Schema: vschema.Number().Integer().Min(1)}},
			Validate: func(v any, p map[string]any, c *vschema.HookContext) (any, error) {
				n, _ := p["n"].(int)
				if len(v.([]any)) != n {
					return v, c.Error("columns", vschema.Context{"n": n})
				}
				return v, nil
			},
		}},
	}
}

func TestExtend_CoerceAndRule(t *testing.T) {
	e, err := vschema.Extend(csvExtension())
	if err != nil {
		t.Fatalf("extend: %v", err)
	}
	s, ok := e.Type("csv")
	if !ok {
		t.Fatalf("csv not registered")
	}
	s = s.Rule("columns", 3)
	if s.Type() != "csv" {
		t.Fatalf("unexpected type %q", s.Type())
	}
	res := s.Validate("a, b,c")
	if res.Error != nil {
		t.Fatalf("unexpected error: %v", res.Error)
	}
	if diff := cmp.Diff([]any{"a", "b", "c"}, res.Value); diff != "" {
		t.Fatalf("coerce mismatch (-want +got):\n%s", diff)
	}
	res = s.Validate("a,b")
	if res.Error == nil {
		t.Fatalf("expected csv.columns")
	}
	if d := res.Error.Details[0]; d.Type != "csv.columns" || d.Message != `"value" must have 3 columns` {
		t.Fatalf("unexpected detail %+v", d)
	}
	if _, ok := vschema.New().Type("csv"); ok {
		t.Fatalf("Extend must not modify other engines")
	}
}

func TestExtend_PreHookErrors(t *testing.T) {
	e, err := vschema.Extend(vschema.Extension{
		Name: "even",
		Base: vschema.Number(),
		Pre: func(v any, c *vschema.HookContext) (any, error) {
			f, _ := v.(float64)
			if int(f)%2 != 0 {
				return v, c.Error("odd", vschema.Context{"value": v})
			}
			return v, nil
		},
	})
	if err != nil {
		t.Fatalf("extend: %v", err)
	}
	s, _ := e.Type("even")
	if res := s.Validate("4"); res.Error != nil {
		t.Fatalf("unexpected error: %v", res.Error)
	}
	if res := s.Validate("3"); res.Error == nil || res.Error.Details[0].Type != "even.odd" {
		t.Fatalf("expected even.odd, got %v", res.Error)
	}
	if res := s.Validate("x"); res.Error == nil || res.Error.Details[0].Type != "number.base" {
		t.Fatalf("base check must run before pre, got %v", res.Error)
	}
}

func TestExtend_PlainErrorBecomesCustom(t *testing.T) {
	e, err := vschema.Extend(vschema.Extension{
		Name: "probe",
		Rules: []vschema.RuleDef{{
			Name: "fail",
			Validate: func(v any, _ map[string]any, _ *vschema.HookContext) (any, error) {
				return v, fmt.Errorf("backend unavailable")
			},
		}},
	})
	if err != nil {
		t.Fatalf("extend: %v", err)
	}
	s, _ := e.Type("probe")
	res := s.Rule("fail").Validate(1)
	if res.Error == nil || res.Error.Details[0].Type != "any.custom" {
		t.Fatalf("expected any.custom, got %v", res.Error)
	}
	if msg := res.Error.Details[0].Message; msg != `"value" failed custom validation because backend unavailable` {
		t.Fatalf("unexpected message %q", msg)
	}
}

func TestExtend_RejectsBadDefinitions(t *testing.T) {
	_, err := vschema.Extend(vschema.Extension{
		Name:  "dup",
		Rules: []vschema.RuleDef{{Name: "a", Setup: func(s *vschema.Schema, _ map[string]any) *vschema.Schema { return s }}, {Name: "a", Setup: func(s *vschema.Schema, _ map[string]any) *vschema.Schema { return s }}},
	})
	if !errors.Is(err, vschema.ErrDuplicateRule) {
		t.Fatalf("expected ErrDuplicateRule, got %v", err)
	}
	if _, err := vschema.Extend(vschema.Extension{Name: "1bad"}); !errors.Is(err, vschema.ErrInvalidSchema) {
		t.Fatalf("expected ErrInvalidSchema, got %v", err)
	}
	if _, err := vschema.Extend(vschema.Extension{Name: "empty", Rules: []vschema.RuleDef{{Name: "noop"}}}); !errors.Is(err, vschema.ErrInvalidSchema) {
		t.Fatalf("rule without setup or validate must fail, got %v", err)
	}
}

func TestExtend_UnknownRuleAndBadParam(t *testing.T) {
	e, err := vschema.Extend(csvExtension())
	if err != nil {
		t.Fatalf("extend: %v", err)
	}
	s, _ := e.Type("csv")
	for _, fn := range []func(){
		func() { s.Rule("nope") },
		func() { s.Rule("columns", 0) },
		func() { s.Rule("columns", 1, 2) },
	} {
		func() {
			defer func() {
				r := recover()
				var se *vschema.SchemaError
				if err, ok := r.(error); !ok || !errors.As(err, &se) {
					t.Fatalf("expected *SchemaError panic, got %v", r)
				}
			}()
			fn()
		}()
	}
}

func TestEngine_DefaultsAndLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	e := vschema.New(vschema.WithLogger(logger)).Defaults(func(s *vschema.Schema) *vschema.Schema {
		return s.Required()
	})
	if res := e.String().Validate(vschema.Undefined); res.Error == nil || res.Error.Details[0].Type != "any.required" {
		t.Fatalf("defaults not applied: %v", res.Error)
	}
	if res := vschema.String().Validate(vschema.Undefined); res.Error != nil {
		t.Fatalf("package engine changed: %v", res.Error)
	}
	if _, err := e.Extend(vschema.Extension{Name: "logged"}); err != nil {
		t.Fatalf("extend: %v", err)
	}
	if !strings.Contains(buf.String(), "extension registered") {
		t.Fatalf("expected debug log, got %q", buf.String())
	}
}
