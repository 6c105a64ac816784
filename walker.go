package vschema

import (
	"errors"
	"fmt"
)

// validate runs s against a top-level value.
func (s *Schema) validate(value any, o *Options) Result {
	v, errs := s.walk(value, &State{Path: []any{}}, o)
	if len(errs) > 0 {
		return Result{Error: newValidationError(errs, value), Value: v}
	}
	return Result{Value: v}
}

// walk validates value against s. States run in order: coerce, presence,
// valids/invalids, base check, tests, children.
func (s *Schema) walk(value any, st *State, o *Options) (any, []*ErrorItem) {
	o = o.with(s.opts)
	original := value
	c := &ruleCtx{s: s, st: st, o: o}
	convert := o.Convert && !s.flags.strict
	var errs []*ErrorItem

	finish := func(v any) (any, []*ErrorItem) {
		return s.finish(c, original, v, errs)
	}

	if convert && !isUndefined(value) {
		value = s.coerce(c, value)
	}
	if s.def != nil && !isUndefined(value) {
		v, err := s.def.coerce(s, value, c)
		if err != nil {
			errs = append(errs, err)
			return finish(v)
		}
		value = v
	}

	if s.flags.empty != nil && !isUndefined(value) {
		if _, e := s.flags.empty.walk(value, &State{Path: []any{}}, buildOptions(nil)); len(e) == 0 {
			value = Undefined
		}
	}

	presence := s.flags.presence
	if presence == "" {
		presence = o.Presence
	}
	switch presence {
	case PresenceRequired:
		if isUndefined(value) {
			errs = append(errs, c.err("any.required", nil))
			return finish(value)
		}
	case PresenceForbidden:
		if isUndefined(value) {
			return finish(value)
		}
		errs = append(errs, c.err("any.unknown", nil))
		return finish(value)
	case presenceIgnore:
	default:
		if isUndefined(value) {
			return finish(value)
		}
	}

	done, e := s.checkValues(c, value)
	if e != nil {
		errs = append(errs, e)
		if o.AbortEarly || e.Type == "any.ref" {
			return finish(value)
		}
	} else if done {
		return finish(value)
	}

	based, e := s.base(c, value, convert)
	if e != nil {
		errs = append(errs, e)
		return finish(based)
	}
	if s.def != nil {
		v, err := s.def.pre(s, based, c)
		if err != nil {
			errs = append(errs, err)
			return finish(v)
		}
		based = v
	}
	if !looseEqual(based, value, false) {
		value = based
		done, e := s.checkValues(c, value)
		if e != nil {
			errs = append(errs, e)
			if o.AbortEarly {
				return finish(value)
			}
		} else if done {
			return finish(value)
		}
	} else {
		value = based
	}

	if s.flags.allowOnly {
		errs = append(errs, c.err("any.allowOnly", Context{"value": value, "valids": s.valids.items}))
		if o.AbortEarly {
			return finish(value)
		}
	}

	for _, t := range s.tests {
		v, e := t.fn(c, value)
		if e != nil {
			errs = append(errs, e)
			if o.AbortEarly {
				return finish(value)
			}
			continue
		}
		value = v
	}

	value, childErrs := s.walkChildren(c, value)
	errs = append(errs, childErrs...)
	return finish(value)
}

// checkValues applies valids then invalids. done is true on a valids match.
func (s *Schema) checkValues(c *ruleCtx, value any) (bool, *ErrorItem) {
	if s.valids.len() > 0 {
		ok, e := s.valids.match(c, value, s.flags.insensitive)
		if e != nil {
			return false, e
		}
		if ok {
			return true, nil
		}
	}
	if s.invalids.len() > 0 {
		bad, e := s.invalids.match(c, value, s.flags.insensitive)
		if e != nil {
			return false, e
		}
		if bad {
			typ := "any.invalid"
			if value == "" {
				typ = "any.empty"
			}
			return false, c.err(typ, Context{"value": value, "invalids": s.invalids.items})
		}
	}
	return false, nil
}

func (s *Schema) finish(c *ruleCtx, original, value any, errs []*ErrorItem) (any, []*ErrorItem) {
	if len(errs) == 0 && isUndefined(value) && s.flags.hasDefault && !c.o.NoDefaults {
		v, e := s.defaultValue(c)
		if e != nil {
			errs = append(errs, e)
		} else {
			value = v
		}
	} else if s.flags.raw && !isUndefined(value) {
		value = original
	}
	if len(errs) > 0 && s.flags.errFn != nil {
		errs = s.flags.errFn(errs)
	}
	return value, errs
}

func (s *Schema) defaultValue(c *ruleCtx) (v any, item *ErrorItem) {
	switch d := s.flags.defaultValue.(type) {
	case *Reference:
		rv, ok := d.resolve(c.st, c.o)
		if !ok {
			return Undefined, nil
		}
		return rv, nil
	case func() any:
		defer func() {
			if r := recover(); r != nil {
				v, item = nil, c.err("any.default", Context{"error": panicError(r)})
			}
		}()
		return d(), nil
	default:
		return cloneValue(d), nil
	}
}

func panicError(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return fmt.Errorf("%v", r)
}

// cloneValue copies maps and slices so defaults are never shared between
// results.
func cloneValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = cloneValue(e)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = cloneValue(e)
		}
		return out
	}
	return v
}

// coerce applies built-in conversions. It never fails; values that cannot be
// converted are returned unchanged and rejected by the base check.
func (s *Schema) coerce(c *ruleCtx, v any) any {
	switch s.typ {
	case TypeString:
		return s.coerceString(v)
	case TypeNumber:
		return s.coerceNumber(v)
	case TypeBoolean:
		return s.coerceBoolean(v)
	case TypeDate:
		return s.coerceDate(v)
	case TypeBinary:
		return s.coerceBinary(v)
	case TypeObject:
		return coerceObject(v)
	case TypeArray:
		return s.coerceArray(v)
	case TypeSymbol:
		return s.coerceSymbol(v)
	}
	return v
}

// base is the type identity check.
func (s *Schema) base(c *ruleCtx, v any, convert bool) (any, *ErrorItem) {
	switch s.typ {
	case TypeString:
		return s.baseString(c, v)
	case TypeNumber:
		return s.baseNumber(c, v)
	case TypeBoolean:
		return s.baseBoolean(c, v)
	case TypeDate:
		return s.baseDate(c, v)
	case TypeBinary:
		return s.baseBinary(c, v)
	case TypeFunction:
		return s.baseFunction(c, v)
	case TypeObject:
		return s.baseObject(c, v)
	case TypeArray:
		return s.baseArray(c, v, convert)
	case TypeSymbol:
		return s.baseSymbol(c, v)
	}
	return v, nil
}

func (s *Schema) walkChildren(c *ruleCtx, v any) (any, []*ErrorItem) {
	switch s.typ {
	case TypeObject:
		return s.walkObject(c, v)
	case TypeArray:
		return s.walkArray(c, v)
	case TypeAlternatives:
		return s.walkAlternatives(c, v)
	case TypeLazy:
		return s.walkLazy(c, v)
	}
	return v, nil
}

// hookError converts an error returned by an extension hook.
func hookError(c *ruleCtx, err error) *ErrorItem {
	var re *ruleError
	if errors.As(err, &re) {
		return re.item
	}
	return c.err("any.custom", Context{"error": err})
}
