package vschema

import (
	"reflect"
	"slices"
)

func (s *Schema) baseFunction(c *ruleCtx, v any) (any, *ErrorItem) {
	if isFunc(v) {
		return v, nil
	}
	if IsRef(v) && slices.ContainsFunc(s.tests, func(t test) bool { return t.name == "ref" }) {
		return v, nil
	}
	return v, c.err("function.base", Context{"value": v})
}

func (s *Schema) arityRule(name string, n int, ok func(got int) bool) *Schema {
	s.mustBe(name, TypeFunction)
	if n < 0 {
		schemaPanic(name, ErrInvalidSchema, "n must be a non-negative integer")
	}
	return s.addTest(name, n, func(c *ruleCtx, v any) (any, *ErrorItem) {
		if IsRef(v) {
			return v, nil
		}
		if ok(reflect.TypeOf(v).NumIn()) {
			return v, nil
		}
		return v, c.err("function."+name, Context{"n": n, "value": v})
	})
}

// Arity requires exactly n parameters.
func (s *Schema) Arity(n int) *Schema {
	return s.arityRule("arity", n, func(got int) bool { return got == n })
}

func (s *Schema) MinArity(n int) *Schema {
	return s.arityRule("minArity", n, func(got int) bool { return got >= n })
}

func (s *Schema) MaxArity(n int) *Schema {
	return s.arityRule("maxArity", n, func(got int) bool { return got <= n })
}

// Ref requires the value to be a *Reference.
func (s *Schema) Ref() *Schema {
	s.mustBe("ref", TypeFunction)
	return s.addTest("ref", nil, func(c *ruleCtx, v any) (any, *ErrorItem) {
		if IsRef(v) {
			return v, nil
		}
		return v, c.err("function.ref", Context{"value": v})
	})
}
