package vschema

import "slices"

type alternative struct {
	schema *Schema // plain candidate

	// conditional candidate: ref (or peek on the value itself) checked
	// against is, then then or otherwise is applied.
	ref       *Reference
	peek      *Schema
	is        *Schema
	then      *Schema
	otherwise *Schema
}

// Try appends candidate schemas, tried in order.
func (s *Schema) Try(schemaLikes ...any) *Schema {
	s.mustBe("try", TypeAlternatives)
	if len(schemaLikes) == 0 {
		schemaPanic("try", ErrInvalidSchema, "missing alternatives")
	}
	out := s.clone()
	out.alts = slices.Clip(s.alts)
	for _, sl := range schemaLikes {
		out.alts = append(out.alts, alternative{schema: s.engine.compile(sl)})
	}
	return out
}

func (s *Schema) addWhen(condition any, opt WhenOptions) *Schema {
	if opt.Then == nil && opt.Otherwise == nil {
		schemaPanic("when", ErrInvalidSchema, "at least one of then or otherwise required")
	}
	alt := alternative{}
	switch c := condition.(type) {
	case string:
		alt.ref = Ref(c)
	case *Reference:
		alt.ref = c
	case *Schema:
		if opt.Is != nil {
			schemaPanic("when", ErrInvalidSchema, "is cannot be combined with a schema condition")
		}
		alt.peek = c
	default:
		schemaPanic("when", ErrInvalidSchema, "condition must be a key, *Reference or *Schema, got %T", condition)
	}
	if alt.ref != nil {
		if opt.Is == nil {
			alt.is = s.engine.Any().Invalid(nil, false, 0, "").Required()
		} else {
			alt.is = s.engine.compile(opt.Is)
			if alt.is.flags.presence == "" {
				alt.is = alt.is.Required()
			}
		}
	}
	if opt.Then != nil {
		alt.then = s.engine.compile(opt.Then)
	}
	if opt.Otherwise != nil {
		alt.otherwise = s.engine.compile(opt.Otherwise)
	}
	out := s.clone()
	out.alts = append(slices.Clip(s.alts), alt)
	if alt.ref != nil {
		out.trackRefs(alt.ref)
	}
	return out
}

// branch picks the schema for a conditional alternative, or nil.
func (a alternative) branch(c *ruleCtx, v any) (*Schema, *ErrorItem) {
	var ok bool
	if a.ref != nil {
		rv, found := a.ref.resolve(c.st, c.o)
		if !found {
			if a.ref.strict {
				return nil, c.err("any.ref", Context{"ref": a.ref})
			}
			rv = Undefined
		}
		st := &State{Path: []any{}, Parent: c.st.Parent, Ancestors: c.st.Ancestors}
		_, errs := a.is.walk(rv, st, c.o.with([]Option{AbortEarly(true)}))
		ok = len(errs) == 0
	} else {
		_, errs := a.peek.walk(v, c.st, c.o.with([]Option{AbortEarly(true)}))
		ok = len(errs) == 0
	}
	if ok {
		return a.then, nil
	}
	return a.otherwise, nil
}

func (s *Schema) walkAlternatives(c *ruleCtx, v any) (any, []*ErrorItem) {
	var attempts [][]*ErrorItem
	for _, a := range s.alts {
		if a.schema == nil {
			b, e := a.branch(c, v)
			if e != nil {
				return v, []*ErrorItem{e}
			}
			if b == nil {
				continue
			}
			// A selected branch decides the outcome.
			res, errs := b.walk(v, c.st, c.o)
			if len(errs) > 0 {
				return v, errs
			}
			return res, nil
		}
		res, errs := a.schema.walk(v, c.st, c.o)
		if len(errs) == 0 {
			return res, nil
		}
		attempts = append(attempts, errs)
	}
	switch len(attempts) {
	case 0:
		if isUndefined(v) {
			return v, nil
		}
		return v, []*ErrorItem{c.err("alternatives.base", Context{"value": v})}
	case 1:
		return v, attempts[0]
	}
	var details []*ErrorItem
	types := make([]string, 0, len(attempts))
	for _, a := range attempts {
		details = append(details, a...)
		types = append(types, a[0].Type)
	}
	return v, []*ErrorItem{c.err("alternatives.match", Context{"value": v, "details": details, "types": types})}
}
