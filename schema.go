package vschema

import (
	"fmt"
	"slices"
)

// Schema is an immutable validation node. Every builder method returns a new
// node; the receiver is left untouched, so a Schema may be shared by
// concurrent validations.
type Schema struct {
	typ    Type
	name   string // extension type name, empty for built-ins
	engine *Engine
	def    *typeDef

	flags    flags
	tests    []test
	valids   valueSet
	invalids valueSet
	refs     []string // sibling keys read by References on this node
	opts     []Option

	description string
	notes       []string
	tags        []string
	meta        []any
	examples    []any
	unit        string

	object  objectData
	array   arrayData
	alts    []alternative
	lazy    *lazyData
	symbols []symbolPair
	truthy  valueSet
	falsy   valueSet
}

type flags struct {
	presence     Presence
	label        string
	hasDefault   bool
	defaultValue any // literal, func() any, or *Reference
	defaultDesc  string
	empty        *Schema
	strip        bool
	raw          bool
	strict       bool
	allowOnly    bool
	insensitive  bool
	errFn        func([]*ErrorItem) []*ErrorItem

	// string
	trim         bool
	caseMode     string
	truncate     bool
	normalize    string
	replacements []replacement

	// binary and string byte lengths
	encoding string

	// date
	timestamp string
	formats   []string
	iso       bool

	// array
	sparse bool
	single bool

	// object
	unknown *bool
}

type test struct {
	name string
	arg  any
	fn   func(c *ruleCtx, v any) (any, *ErrorItem)
}

// Type returns the node type, or the extension name for extended types.
func (s *Schema) Type() string {
	if s.name != "" {
		return s.name
	}
	return string(s.typ)
}

func (s *Schema) clone() *Schema {
	cp := *s
	return &cp
}

func (s *Schema) mustBe(op string, types ...Type) {
	if !slices.Contains(types, s.typ) {
		schemaPanic(op, ErrInvalidSchema, "not supported by %s schema", s.Type())
	}
}

// addTest appends a named test; sibling References in arg are recorded for
// key ordering.
func (s *Schema) addTest(name string, arg any, fn func(c *ruleCtx, v any) (any, *ErrorItem)) *Schema {
	out := s.clone()
	out.tests = append(slices.Clip(s.tests), test{name: name, arg: arg, fn: fn})
	out.trackRefs(arg)
	return out
}

func (s *Schema) trackRefs(args ...any) {
	for _, a := range args {
		switch x := a.(type) {
		case *Reference:
			if root, ok := x.siblingRoot(); ok && !slices.Contains(s.refs, root) {
				s.refs = append(slices.Clip(s.refs), root)
			}
		case map[string]any:
			for _, v := range x {
				s.trackRefs(v)
			}
		case []any:
			s.trackRefs(x...)
		}
	}
}

// Allow adds values that are accepted in addition to the type rules.
func (s *Schema) Allow(values ...any) *Schema {
	if len(values) == 0 {
		schemaPanic("allow", ErrInvalidSchema, "at least one value required")
	}
	out := s.clone()
	out.invalids = s.invalids.remove(values...)
	out.valids = s.valids.add(values...)
	out.trackRefs(values...)
	return out
}

// Valid restricts the node to the given values.
func (s *Schema) Valid(values ...any) *Schema {
	out := s.Allow(values...)
	out.flags.allowOnly = true
	return out
}

// Only is an alias of Valid.
func (s *Schema) Only(values ...any) *Schema { return s.Valid(values...) }

// Equal is an alias of Valid.
func (s *Schema) Equal(values ...any) *Schema { return s.Valid(values...) }

// Invalid adds values that are always rejected with "any.invalid".
func (s *Schema) Invalid(values ...any) *Schema {
	if len(values) == 0 {
		schemaPanic("invalid", ErrInvalidSchema, "at least one value required")
	}
	out := s.clone()
	out.valids = s.valids.remove(values...)
	out.invalids = s.invalids.add(values...)
	out.trackRefs(values...)
	return out
}

// Disallow is an alias of Invalid.
func (s *Schema) Disallow(values ...any) *Schema { return s.Invalid(values...) }

// Not is an alias of Invalid.
func (s *Schema) Not(values ...any) *Schema { return s.Invalid(values...) }

func (s *Schema) withPresence(p Presence) *Schema {
	out := s.clone()
	out.flags.presence = p
	return out
}

// Required marks the value as mandatory.
func (s *Schema) Required() *Schema { return s.withPresence(PresenceRequired) }

// Exist is an alias of Required.
func (s *Schema) Exist() *Schema { return s.Required() }

// Optional marks the value as optional.
func (s *Schema) Optional() *Schema { return s.withPresence(PresenceOptional) }

// Forbidden rejects any value other than Undefined.
func (s *Schema) Forbidden() *Schema { return s.withPresence(PresenceForbidden) }

// Strip removes the value from the parent's output after validation.
func (s *Schema) Strip() *Schema {
	out := s.clone()
	out.flags.strip = true
	return out
}

// Default sets the value used when the input is absent. value may be a
// literal, a func() any, or a *Reference. Functions take an optional
// description used by Describe.
func (s *Schema) Default(value any, description ...string) *Schema {
	out := s.clone()
	out.flags.hasDefault = true
	if isFunc(value) {
		fn, ok := value.(func() any)
		if !ok {
			schemaPanic("default", ErrInvalidSchema, "default function must be func() any, got %T", value)
		}
		value = fn
		if len(description) > 0 {
			out.flags.defaultDesc = description[0]
		}
	}
	out.flags.defaultValue = value
	out.trackRefs(value)
	return out
}

// Empty treats values matching schemaLike as Undefined. Passing nil clears it.
func (s *Schema) Empty(schemaLike any) *Schema {
	out := s.clone()
	if schemaLike == nil {
		out.flags.empty = nil
		return out
	}
	out.flags.empty = s.engine.compile(schemaLike)
	return out
}

// Error replaces the errors produced by this node with fn's result.
func (s *Schema) Error(fn func(items []*ErrorItem) []*ErrorItem) *Schema {
	if fn == nil {
		schemaPanic("error", ErrInvalidSchema, "nil error function")
	}
	out := s.clone()
	out.flags.errFn = fn
	return out
}

// Label overrides the key name used in messages.
func (s *Schema) Label(name string) *Schema {
	if name == "" {
		schemaPanic("label", ErrInvalidSchema, "label must be a non-empty string")
	}
	out := s.clone()
	out.flags.label = name
	return out
}

func (s *Schema) Description(desc string) *Schema {
	out := s.clone()
	out.description = desc
	return out
}

func (s *Schema) Notes(notes ...string) *Schema {
	out := s.clone()
	out.notes = append(slices.Clip(s.notes), notes...)
	return out
}

func (s *Schema) Tags(tags ...string) *Schema {
	out := s.clone()
	out.tags = append(slices.Clip(s.tags), tags...)
	return out
}

func (s *Schema) Meta(meta any) *Schema {
	out := s.clone()
	out.meta = append(slices.Clip(s.meta), meta)
	return out
}

// Example records an example value. The value must pass the node.
func (s *Schema) Example(values ...any) *Schema {
	for _, v := range values {
		if r := s.validate(v, buildOptions(nil)); r.Error != nil {
			schemaPanic("example", ErrInvalidSchema, "bad example: %v", r.Error)
		}
	}
	out := s.clone()
	out.examples = append(slices.Clip(s.examples), values...)
	return out
}

func (s *Schema) Unit(name string) *Schema {
	out := s.clone()
	out.unit = name
	return out
}

// Raw returns the original input instead of the converted value.
func (s *Schema) Raw(enabled ...bool) *Schema {
	out := s.clone()
	out.flags.raw = len(enabled) == 0 || enabled[0]
	return out
}

// Strict disables conversion for this node.
func (s *Schema) Strict(enabled ...bool) *Schema {
	out := s.clone()
	out.flags.strict = len(enabled) == 0 || enabled[0]
	return out
}

// Options overrides validation options for this node and its children.
func (s *Schema) Options(opts ...Option) *Schema {
	out := s.clone()
	out.opts = append(slices.Clip(s.opts), opts...)
	return out
}

// Rule applies a named rule. Extension rules of the node's type are
// consulted first, then built-in rules.
func (s *Schema) Rule(name string, args ...any) *Schema {
	if d, r := s.lookupRule(name); r != nil {
		return d.apply(s, r, args)
	}
	fn, ok := builtinRules[s.typ][name]
	if !ok {
		fn, ok = builtinRules[TypeAny][name]
	}
	if !ok {
		schemaPanic(name, ErrUnknownRule, "%s schema has no rule %q", s.Type(), name)
	}
	var arg any
	switch len(args) {
	case 0:
	case 1:
		arg = args[0]
	default:
		arg = args
	}
	return fn(s, arg)
}

// Concat merges other into a copy of s. Types must match unless one side is
// any.
func (s *Schema) Concat(other *Schema) *Schema {
	if other == nil {
		schemaPanic("concat", ErrInvalidSchema, "nil schema")
	}
	if s.typ != TypeAny && other.typ != TypeAny && s.Type() != other.Type() {
		schemaPanic("concat", ErrInvalidSchema, "cannot merge %s with %s", s.Type(), other.Type())
	}
	out := s.clone()
	if s.typ == TypeAny && other.typ != TypeAny {
		// adopt the typed node, keep the any settings merged below
		out = other.clone()
		out.flags = s.flags
		out.tests = slices.Clip(s.tests)
		out.valids = s.valids
		out.invalids = s.invalids
		out.refs = slices.Clip(s.refs)
		out.opts = slices.Clip(s.opts)
		out.description, out.notes, out.tags, out.meta, out.examples, out.unit =
			s.description, slices.Clip(s.notes), slices.Clip(s.tags), slices.Clip(s.meta), slices.Clip(s.examples), s.unit
	}
	out.flags = mergeFlags(out.flags, other.flags)
	out.tests = append(slices.Clip(out.tests), other.tests...)
	out.invalids = out.invalids.remove(other.valids.items...).add(other.invalids.items...)
	out.valids = out.valids.remove(other.invalids.items...).add(other.valids.items...)
	for _, r := range other.refs {
		if !slices.Contains(out.refs, r) {
			out.refs = append(slices.Clip(out.refs), r)
		}
	}
	out.opts = append(slices.Clip(out.opts), other.opts...)
	if other.description != "" {
		out.description = other.description
	}
	out.notes = append(slices.Clip(out.notes), other.notes...)
	out.tags = append(slices.Clip(out.tags), other.tags...)
	out.meta = append(slices.Clip(out.meta), other.meta...)
	out.examples = append(slices.Clip(out.examples), other.examples...)
	if other.unit != "" {
		out.unit = other.unit
	}
	if s.typ == other.typ {
		out.object = out.object.merge(other.object)
		out.array = out.array.merge(other.array)
		out.alts = append(slices.Clip(out.alts), other.alts...)
		out.symbols = append(slices.Clip(out.symbols), other.symbols...)
		out.truthy = out.truthy.add(other.truthy.items...)
		out.falsy = out.falsy.add(other.falsy.items...)
		if other.lazy != nil {
			out.lazy = other.lazy
		}
	}
	return out
}

func mergeFlags(a, b flags) flags {
	if b.presence != "" {
		a.presence = b.presence
	}
	if b.label != "" {
		a.label = b.label
	}
	if b.hasDefault {
		a.hasDefault, a.defaultValue, a.defaultDesc = true, b.defaultValue, b.defaultDesc
	}
	if b.empty != nil {
		a.empty = b.empty
	}
	if b.errFn != nil {
		a.errFn = b.errFn
	}
	a.strip = a.strip || b.strip
	a.raw = a.raw || b.raw
	a.strict = a.strict || b.strict
	a.allowOnly = a.allowOnly || b.allowOnly
	a.insensitive = a.insensitive || b.insensitive
	a.trim = a.trim || b.trim
	a.truncate = a.truncate || b.truncate
	a.iso = a.iso || b.iso
	a.sparse = a.sparse || b.sparse
	a.single = a.single || b.single
	if b.caseMode != "" {
		a.caseMode = b.caseMode
	}
	if b.normalize != "" {
		a.normalize = b.normalize
	}
	a.replacements = append(slices.Clip(a.replacements), b.replacements...)
	if b.encoding != "" {
		a.encoding = b.encoding
	}
	if b.timestamp != "" {
		a.timestamp = b.timestamp
	}
	if len(b.formats) > 0 {
		a.formats = b.formats
	}
	if b.unknown != nil {
		a.unknown = b.unknown
	}
	return a
}

// WhenOptions configures a conditional branch.
type WhenOptions struct {
	Is        any // schema-like condition; defaults to a truthy match
	Then      any
	Otherwise any
}

// When makes the node conditional on a sibling reference (string key or
// *Reference) or on the value itself matching a schema. On an alternatives
// node it appends a conditional branch instead.
func (s *Schema) When(condition any, opt WhenOptions) *Schema {
	if s.typ == TypeAlternatives {
		return s.addWhen(condition, opt)
	}
	then, otherwise := s, s
	if opt.Then != nil {
		then = s.Concat(s.engine.compile(opt.Then))
	}
	if opt.Otherwise != nil {
		otherwise = s.Concat(s.engine.compile(opt.Otherwise))
	}
	alt := s.engine.newSchema(TypeAlternatives).withPresence(presenceIgnore)
	return alt.addWhen(condition, WhenOptions{Is: opt.Is, Then: then, Otherwise: otherwise})
}

func (s *Schema) String() string {
	return fmt.Sprintf("vschema.%s", s.Type())
}
