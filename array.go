package vschema

import (
	"slices"
	"strings"

	"github.com/reoring/vschema/internal/engine"
)

type arrayData struct {
	items      []*Schema // declaration order, for Describe
	requireds  []*Schema
	inclusions []*Schema
	exclusions []*Schema
	ordered    []*Schema
}

func (d arrayData) merge(o arrayData) arrayData {
	return arrayData{
		items:      append(slices.Clip(d.items), o.items...),
		requireds:  append(slices.Clip(d.requireds), o.requireds...),
		inclusions: append(slices.Clip(d.inclusions), o.inclusions...),
		exclusions: append(slices.Clip(d.exclusions), o.exclusions...),
		ordered:    append(slices.Clip(d.ordered), o.ordered...),
	}
}

func (s *Schema) coerceArray(v any) any {
	str, ok := v.(string)
	if !ok {
		return v
	}
	t := strings.TrimSpace(str)
	if !strings.HasPrefix(t, "[") {
		return v
	}
	out, err := engine.DecodeString(t, engine.DecodeOptions{Numbers: engine.NumberFloat64})
	if err != nil {
		return v
	}
	return out
}

func (s *Schema) baseArray(c *ruleCtx, v any, convert bool) (any, *ErrorItem) {
	if arr, ok := asSlice(v); ok {
		return arr, nil
	}
	if convert && s.flags.single {
		c.wrapped = true
		return []any{v}, nil
	}
	return v, c.err("array.base", Context{"value": v})
}

// Items declares the allowed item schemas. Required items must be matched at
// least once; forbidden items are exclusions.
func (s *Schema) Items(schemaLikes ...any) *Schema {
	s.mustBe("items", TypeArray)
	out := s.clone()
	d := s.array
	for _, sl := range schemaLikes {
		item := s.engine.compile(sl)
		d.items = append(slices.Clip(d.items), item)
		switch item.flags.presence {
		case PresenceRequired:
			d.requireds = append(slices.Clip(d.requireds), item)
		case PresenceForbidden:
			d.exclusions = append(slices.Clip(d.exclusions), item.Optional())
		default:
			d.inclusions = append(slices.Clip(d.inclusions), item)
		}
	}
	out.array = d
	return out
}

// Ordered declares positional item schemas.
func (s *Schema) Ordered(schemaLikes ...any) *Schema {
	s.mustBe("ordered", TypeArray)
	out := s.clone()
	out.array.ordered = slices.Clip(s.array.ordered)
	for _, sl := range schemaLikes {
		out.array.ordered = append(out.array.ordered, s.engine.compile(sl))
	}
	return out
}

// Sparse allows Undefined holes.
func (s *Schema) Sparse(enabled ...bool) *Schema {
	s.mustBe("sparse", TypeArray)
	out := s.clone()
	out.flags.sparse = len(enabled) == 0 || enabled[0]
	return out
}

// Single accepts a non-array value as a one-element array when converting.
func (s *Schema) Single(enabled ...bool) *Schema {
	s.mustBe("single", TypeArray)
	out := s.clone()
	out.flags.single = len(enabled) == 0 || enabled[0]
	return out
}

func (s *Schema) arrayLength(name string, limit any, cmp func(n, limit int) bool) *Schema {
	s.mustBe(name, TypeArray)
	limit = checkLimit(name, limit)
	return s.addTest(name, limit, func(c *ruleCtx, v any) (any, *ErrorItem) {
		lv, e := c.param(limit)
		if e != nil {
			return v, e
		}
		n, ok := intLimit(lv)
		if !ok {
			return v, c.err("array.ref", Context{"ref": limit})
		}
		if cmp(len(v.([]any)), n) {
			return v, nil
		}
		return v, c.err("array."+name, Context{"limit": n, "value": v})
	})
}

// Unique rejects duplicate items. The optional comparator is a key path
// (string) or a func(a, b any) bool.
func (s *Schema) Unique(comparator ...any) *Schema {
	s.mustBe("unique", TypeArray)
	var eq func(a, b any) bool
	var arg any
	if len(comparator) > 0 && comparator[0] != nil {
		switch cmp := comparator[0].(type) {
		case string:
			path := strings.Split(cmp, ".")
			arg = map[string]any{"path": cmp}
			eq = func(a, b any) bool {
				av, aok := reachValue(a, path)
				bv, bok := reachValue(b, path)
				if !aok || !bok {
					return !aok && !bok
				}
				return looseEqual(av, bv, false)
			}
		case func(a, b any) bool:
			arg = map[string]any{"comparator": cmp}
			eq = cmp
		default:
			schemaPanic("unique", ErrInvalidSchema, "comparator must be a key path or func(a, b any) bool, got %T", cmp)
		}
	} else {
		eq = func(a, b any) bool { return looseEqual(a, b, false) }
	}
	return s.addTest("unique", arg, func(c *ruleCtx, v any) (any, *ErrorItem) {
		items := v.([]any)
		for i := 1; i < len(items); i++ {
			if isUndefined(items[i]) {
				continue
			}
			for j := 0; j < i; j++ {
				if eq(items[j], items[i]) {
					st := c.st.child(i, v)
					return v, c.s.createError("array.unique", Context{"pos": i, "value": items[i], "dupePos": j, "dupeValue": items[j]}, st, c.o)
				}
			}
		}
		return v, nil
	})
}

func (s *Schema) walkArray(c *ruleCtx, v any) (any, []*ErrorItem) {
	o := c.o
	items := slices.Clone(v.([]any))
	var errs []*ErrorItem
	requireds := slices.Clone(s.array.requireds)
	ordered := slices.Clone(s.array.ordered)
	inclusions := append(slices.Clone(s.array.inclusions), s.array.requireds...)
	stripUnknown := o.StripUnknown.Arrays

	itemState := func(i int) *State {
		if c.wrapped {
			return &State{Key: c.st.Key, Path: c.st.Path, Parent: c.st.Parent, Ancestors: c.st.Ancestors}
		}
		return c.st.child(i, items)
	}
	fail := func(typ string, ctx Context, st *State) bool {
		errs = append(errs, s.createError(typ, ctx, st, o))
		return o.AbortEarly
	}
	single := func(typ string) string {
		if c.wrapped {
			return typ + "Single"
		}
		return typ
	}

	for i := 0; i < len(items); i++ {
		item := items[i]
		st := itemState(i)
		errSt := &State{Key: c.st.Key, Path: st.Path, Parent: c.st.Parent, Ancestors: c.st.Ancestors}

		if !s.flags.sparse && isUndefined(item) {
			if fail("array.sparse", Context{"pos": i}, errSt) {
				return items, errs
			}
			if len(ordered) > 0 {
				ordered = ordered[1:]
			}
			continue
		}

		excluded := false
		for _, ex := range s.array.exclusions {
			if _, e := ex.walk(item, st, buildOptions(nil)); len(e) == 0 {
				excluded = true
				if fail(single("array.excludes"), Context{"pos": i, "value": item}, errSt) {
					return items, errs
				}
				if len(ordered) > 0 {
					ordered = ordered[1:]
				}
				break
			}
		}
		if excluded {
			continue
		}

		if len(s.array.ordered) > 0 {
			if len(ordered) > 0 {
				sch := ordered[0]
				ordered = ordered[1:]
				res, e := sch.walk(item, st, o)
				if len(e) > 0 {
					errs = append(errs, e...)
					if o.AbortEarly {
						return items, errs
					}
					continue
				}
				switch {
				case sch.flags.strip:
					items = slices.Delete(items, i, i+1)
					i--
				case !s.flags.sparse && isUndefined(res):
					if fail("array.sparse", Context{"pos": i}, errSt) {
						return items, errs
					}
				default:
					items[i] = res
				}
				continue
			}
			if len(s.array.inclusions) == 0 && len(s.array.requireds) == 0 {
				if fail("array.orderedLength", Context{"pos": i, "limit": len(s.array.ordered)}, errSt) {
					return items, errs
				}
				continue
			}
		}

		matched := false
		failedRequired := map[*Schema][]*ErrorItem{}
		for j := 0; j < len(requireds); j++ {
			res, e := requireds[j].walk(item, st, o)
			if len(e) > 0 {
				failedRequired[requireds[j]] = e
				continue
			}
			items[i] = res
			matched = true
			requireds = slices.Delete(requireds, j, j+1)
			if !s.flags.sparse && isUndefined(res) {
				if fail("array.sparse", Context{"pos": i}, errSt) {
					return items, errs
				}
			}
			break
		}
		if matched {
			continue
		}

		errored := false
		for _, inc := range inclusions {
			e, tried := failedRequired[inc]
			if !tried {
				var res any
				res, e = inc.walk(item, st, o)
				if len(e) == 0 {
					switch {
					case inc.flags.strip:
						items = slices.Delete(items, i, i+1)
						i--
					case !s.flags.sparse && isUndefined(res):
						errored = true
						if fail("array.sparse", Context{"pos": i}, errSt) {
							return items, errs
						}
					default:
						items[i] = res
					}
					matched = true
					break
				}
			}
			if len(inclusions) == 1 {
				if stripUnknown {
					items = slices.Delete(items, i, i+1)
					i--
					matched = true
					break
				}
				errs = append(errs, e...)
				errored = true
				if o.AbortEarly {
					return items, errs
				}
				break
			}
		}
		if errored || matched {
			continue
		}
		if len(inclusions) > 0 {
			if stripUnknown {
				items = slices.Delete(items, i, i+1)
				i--
				continue
			}
			if fail(single("array.includes"), Context{"pos": i, "value": item}, errSt) {
				return items, errs
			}
		}
	}

	if len(requireds) > 0 {
		errs = append(errs, s.missedErrors(c, requireds)...)
	}
	if len(ordered) > 0 {
		var req []*Schema
		for _, sch := range ordered {
			if sch.flags.presence == PresenceRequired {
				req = append(req, sch)
			}
		}
		if len(req) > 0 {
			errs = append(errs, s.missedErrors(c, req)...)
		}
	}
	return items, errs
}

func (s *Schema) missedErrors(c *ruleCtx, missed []*Schema) []*ErrorItem {
	var known []string
	unknown := 0
	for _, sch := range missed {
		if sch.flags.label != "" {
			known = append(known, sch.flags.label)
		} else {
			unknown++
		}
	}
	switch {
	case len(known) > 0 && unknown > 0:
		return []*ErrorItem{c.err("array.includesRequiredBoth", Context{"knownMisses": known, "unknownMisses": unknown})}
	case len(known) > 0:
		return []*ErrorItem{c.err("array.includesRequiredKnowns", Context{"knownMisses": known})}
	}
	return []*ErrorItem{c.err("array.includesRequiredUnknowns", Context{"unknownMisses": unknown})}
}
