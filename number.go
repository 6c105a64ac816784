package vschema

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

func (s *Schema) coerceNumber(v any) any {
	switch x := v.(type) {
	case string:
		t := strings.TrimSpace(x)
		if t == "" {
			return v
		}
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return v
		}
		return s.roundPrecision(f)
	case json.Number:
		f, err := strconv.ParseFloat(string(x), 64)
		if err != nil {
			return v
		}
		return s.roundPrecision(f)
	case float64:
		return s.roundPrecision(x)
	case float32:
		return s.roundPrecision(float64(x))
	}
	return v
}

func (s *Schema) roundPrecision(f float64) float64 {
	for _, t := range s.tests {
		if t.name == "precision" {
			p := math.Pow(10, float64(t.arg.(int)))
			return math.Round(f*p) / p
		}
	}
	return f
}

func (s *Schema) baseNumber(c *ruleCtx, v any) (any, *ErrorItem) {
	f, ok := toFloat(v)
	if !ok || math.IsNaN(f) {
		return v, c.err("number.base", Context{"value": v})
	}
	return v, nil
}

// checkLimit validates a limit argument: a non-negative integer or a
// Reference. Whole float64 values (from decoded descriptions) are accepted.
func checkLimit(op string, limit any) any {
	if IsRef(limit) {
		return limit
	}
	n, ok := intLimit(limit)
	if !ok || n < 0 {
		schemaPanic(op, ErrInvalidSchema, "limit must be a non-negative integer or reference, got %v", limit)
	}
	return n
}

func intLimit(v any) (int, bool) {
	f, ok := toFloat(v)
	if !ok || !isInteger(f) {
		return 0, false
	}
	return int(f), true
}

func (s *Schema) numberCompare(name string, limit any, cmp func(a, b float64) bool) *Schema {
	s.mustBe(name, TypeNumber)
	if !IsRef(limit) {
		f, ok := toFloat(limit)
		if !ok {
			schemaPanic(name, ErrInvalidSchema, "limit must be a number or reference, got %T", limit)
		}
		limit = f
	}
	return s.addTest(name, limit, func(c *ruleCtx, v any) (any, *ErrorItem) {
		lv, e := c.param(limit)
		if e != nil {
			return v, e
		}
		lf, ok := toFloat(lv)
		if !ok {
			return v, c.err("number.ref", Context{"ref": limit})
		}
		f, _ := toFloat(v)
		if cmp(f, lf) {
			return v, nil
		}
		return v, c.err("number."+name, Context{"limit": lf, "value": v})
	})
}

// Greater requires value > limit.
func (s *Schema) Greater(limit any) *Schema {
	if s.typ == TypeDate {
		return s.dateCompare("greater", limit, func(a, b int64) bool { return a > b })
	}
	return s.numberCompare("greater", limit, func(a, b float64) bool { return a > b })
}

// Less requires value < limit.
func (s *Schema) Less(limit any) *Schema {
	if s.typ == TypeDate {
		return s.dateCompare("less", limit, func(a, b int64) bool { return a < b })
	}
	return s.numberCompare("less", limit, func(a, b float64) bool { return a < b })
}

func (s *Schema) numberCheck(name string, arg any, ok func(float64) bool, ctx Context) *Schema {
	s.mustBe(name, TypeNumber)
	return s.addTest(name, arg, func(c *ruleCtx, v any) (any, *ErrorItem) {
		f, _ := toFloat(v)
		if ok(f) {
			return v, nil
		}
		cx := Context{"value": v}
		for k, x := range ctx {
			cx[k] = x
		}
		return v, c.err("number."+name, cx)
	})
}

func (s *Schema) Integer() *Schema {
	return s.numberCheck("integer", nil, isInteger, nil)
}

func (s *Schema) Positive() *Schema {
	return s.numberCheck("positive", nil, func(f float64) bool { return f > 0 }, nil)
}

func (s *Schema) Negative() *Schema {
	return s.numberCheck("negative", nil, func(f float64) bool { return f < 0 }, nil)
}

func (s *Schema) Port() *Schema {
	return s.numberCheck("port", nil, func(f float64) bool { return isInteger(f) && f >= 0 && f <= 65535 }, nil)
}

// Precision limits decimal places; with convert values are rounded.
func (s *Schema) Precision(limit int) *Schema {
	if limit < 0 {
		schemaPanic("precision", ErrInvalidSchema, "limit must be a non-negative integer")
	}
	return s.numberCheck("precision", limit, func(f float64) bool {
		return decimalPlaces(f) <= limit
	}, Context{"limit": limit})
}

func decimalPlaces(f float64) int {
	str := strconv.FormatFloat(f, 'f', -1, 64)
	if i := strings.IndexByte(str, '.'); i >= 0 {
		return len(str) - i - 1
	}
	return 0
}

// Multiple requires value to be a multiple of base (a positive number or
// Reference).
func (s *Schema) Multiple(base any) *Schema {
	s.mustBe("multiple", TypeNumber)
	if !IsRef(base) {
		f, ok := toFloat(base)
		if !ok || f <= 0 {
			schemaPanic("multiple", ErrInvalidSchema, "multiple must be a positive number or reference")
		}
		base = f
	}
	return s.addTest("multiple", base, func(c *ruleCtx, v any) (any, *ErrorItem) {
		bv, e := c.param(base)
		if e != nil {
			return v, e
		}
		bf, ok := toFloat(bv)
		if !ok {
			return v, c.err("number.ref", Context{"ref": base})
		}
		f, _ := toFloat(v)
		if math.Mod(f, bf) == 0 {
			return v, nil
		}
		return v, c.err("number.multiple", Context{"multiple": bf, "value": v})
	})
}
