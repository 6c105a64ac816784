package vschema

import "slices"

// State is the per-call position of the walker. Ancestors holds the value
// chain from the parent object upwards; it is used by Reference resolution.
type State struct {
	Key       any // string, int, or nil at the root
	Path      []any
	Parent    any
	Ancestors []any
}

func (st *State) child(key any, parent any) *State {
	anc := make([]any, 0, len(st.Ancestors)+1)
	anc = append(anc, parent)
	anc = append(anc, st.Ancestors...)
	return &State{
		Key:       key,
		Path:      append(slices.Clip(st.Path), key),
		Parent:    parent,
		Ancestors: anc,
	}
}

// ruleCtx is passed to every rule test.
type ruleCtx struct {
	s  *Schema
	st *State
	o  *Options
	// wrapped is set when a single value was wrapped into an array.
	wrapped bool
}

func (c *ruleCtx) err(typ string, ctx Context) *ErrorItem {
	return c.s.createError(typ, ctx, c.st, c.o)
}

// param resolves a rule parameter that may be a Reference. A missing target
// yields "any.ref".
func (c *ruleCtx) param(arg any) (any, *ErrorItem) {
	ref, ok := arg.(*Reference)
	if !ok {
		return arg, nil
	}
	v, found := ref.resolve(c.st, c.o)
	if !found {
		return nil, c.err("any.ref", Context{"ref": ref})
	}
	return v, nil
}

// createError builds an ErrorItem at the current path with key and label
// filled in, and renders its message.
func (s *Schema) createError(typ string, ctx Context, st *State, o *Options) *ErrorItem {
	if ctx == nil {
		ctx = Context{}
	}
	if _, ok := ctx["key"]; !ok {
		ctx["key"] = st.Key
	}
	if _, ok := ctx["label"]; !ok {
		ctx["label"] = s.labelFor(st, o)
	}
	item := &ErrorItem{
		Type:    typ,
		Path:    slices.Clone(st.Path),
		Context: ctx,
	}
	if item.Path == nil {
		item.Path = []any{}
	}
	item.Message = s.engine.message(typ, ctx, o)
	return item
}

func (s *Schema) labelFor(st *State, o *Options) string {
	if s.flags.label != "" {
		return s.flags.label
	}
	if st.Key != nil {
		return stringify(st.Key, false)
	}
	return rootLabel(o)
}
