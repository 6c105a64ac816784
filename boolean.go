package vschema

import "strings"

func (s *Schema) coerceBoolean(v any) any {
	str, ok := v.(string)
	if !ok {
		return v
	}
	if s.flags.insensitive {
		str = strings.ToLower(str)
	}
	switch str {
	case "true":
		return true
	case "false":
		return false
	}
	return v
}

func (s *Schema) baseBoolean(c *ruleCtx, v any) (any, *ErrorItem) {
	if _, ok := v.(bool); ok {
		return v, nil
	}
	if ok, _ := s.truthy.match(c, v, s.flags.insensitive); ok {
		return true, nil
	}
	if ok, _ := s.falsy.match(c, v, s.flags.insensitive); ok {
		return false, nil
	}
	return v, c.err("boolean.base", Context{"value": v})
}

// Truthy adds values accepted as true.
func (s *Schema) Truthy(values ...any) *Schema {
	s.mustBe("truthy", TypeBoolean)
	out := s.clone()
	out.truthy = s.truthy.add(values...)
	return out
}

// Falsy adds values accepted as false.
func (s *Schema) Falsy(values ...any) *Schema {
	s.mustBe("falsy", TypeBoolean)
	out := s.clone()
	out.falsy = s.falsy.add(values...)
	return out
}

// Sensitive turns off case-insensitive string matching for booleans.
func (s *Schema) Sensitive() *Schema {
	s.mustBe("sensitive", TypeBoolean, TypeString)
	out := s.clone()
	out.flags.insensitive = false
	return out
}
