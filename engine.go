package vschema

import (
	"fmt"
	"io"
	"log/slog"
	"maps"
	"regexp"
)

// Engine creates schemas and owns the extension type table. Engines are
// immutable: Extend and Defaults return new engines.
type Engine struct {
	types    map[string]*typeDef
	language map[string]string
	defaults func(*Schema) *Schema
	logger   *slog.Logger
}

// EngineOption configures New.
type EngineOption func(*Engine)

// WithLogger sets the logger used for debug traces of extension
// registration and lazy schema resolution.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// New returns an engine with only the built-in types.
func New(opts ...EngineOption) *Engine {
	e := &Engine{
		types:    map[string]*typeDef{},
		language: map[string]string{},
		logger:   discardLogger,
	}
	for _, o := range opts {
		if o != nil {
			o(e)
		}
	}
	return e
}

var defaultEngine = New()

func (e *Engine) log() *slog.Logger {
	if e == nil || e.logger == nil {
		return discardLogger
	}
	return e.logger
}

func (e *Engine) derive() *Engine {
	return &Engine{
		types:    maps.Clone(e.types),
		language: maps.Clone(e.language),
		defaults: e.defaults,
		logger:   e.logger,
	}
}

// newSchema creates a bare built-in node.
func (e *Engine) newSchema(t Type) *Schema {
	s := &Schema{typ: t, engine: e}
	switch t {
	case TypeString:
		s.invalids = s.invalids.add("")
	case TypeBoolean:
		s.flags.insensitive = true
	}
	return s
}

// construct returns the node for a type name, honoring extensions that
// shadow built-ins, with engine defaults applied.
func (e *Engine) construct(t Type) *Schema {
	var s *Schema
	if d, ok := e.types[string(t)]; ok {
		s = d.instance(e)
	} else {
		s = e.newSchema(t)
	}
	return e.applyDefaults(s)
}

func (e *Engine) applyDefaults(s *Schema) *Schema {
	if e.defaults == nil {
		return s
	}
	out := e.defaults(s)
	if out == nil {
		schemaPanic("defaults", ErrInvalidSchema, "defaults function returned nil")
	}
	return out
}

// Defaults returns an engine that applies fn to every schema it constructs.
func (e *Engine) Defaults(fn func(*Schema) *Schema) *Engine {
	out := e.derive()
	prev := e.defaults
	if prev == nil {
		out.defaults = fn
	} else {
		out.defaults = func(s *Schema) *Schema { return fn(prev(s)) }
	}
	return out
}

// Type returns a fresh node of a registered extension type.
func (e *Engine) Type(name string) (*Schema, bool) {
	d, ok := e.types[name]
	if !ok {
		return nil, false
	}
	return e.applyDefaults(d.instance(e)), true
}

func (e *Engine) Any() *Schema     { return e.construct(TypeAny) }
func (e *Engine) String() *Schema  { return e.construct(TypeString) }
func (e *Engine) Number() *Schema  { return e.construct(TypeNumber) }
func (e *Engine) Boolean() *Schema { return e.construct(TypeBoolean) }
func (e *Engine) Bool() *Schema    { return e.Boolean() }
func (e *Engine) Date() *Schema    { return e.construct(TypeDate) }
func (e *Engine) Binary() *Schema  { return e.construct(TypeBinary) }
func (e *Engine) Func() *Schema    { return e.construct(TypeFunction) }
func (e *Engine) Symbol() *Schema  { return e.construct(TypeSymbol) }

// Object returns an object node; an optional key map is passed to Keys.
func (e *Engine) Object(keys ...map[string]any) *Schema {
	s := e.construct(TypeObject)
	if len(keys) > 0 {
		s = s.Keys(keys[0])
	}
	return s
}

// Array returns an array node; optional schemas are passed to Items.
func (e *Engine) Array(items ...any) *Schema {
	s := e.construct(TypeArray)
	if len(items) > 0 {
		s = s.Items(items...)
	}
	return s
}

// Alternatives returns an alternatives node trying schemaLikes in order.
func (e *Engine) Alternatives(schemaLikes ...any) *Schema {
	s := e.construct(TypeAlternatives)
	if len(schemaLikes) > 0 {
		s = s.Try(schemaLikes...)
	}
	return s
}

// Alt is an alias of Alternatives.
func (e *Engine) Alt(schemaLikes ...any) *Schema { return e.Alternatives(schemaLikes...) }

// Lazy returns a node whose schema is produced by fn at validation time.
func (e *Engine) Lazy(fn func() *Schema, opts ...LazyOptions) *Schema {
	if fn == nil {
		schemaPanic("lazy", ErrInvalidSchema, "nil schema function")
	}
	s := e.construct(TypeLazy).clone()
	l := &lazyData{fn: fn}
	if len(opts) > 0 {
		l.once = opts[0].Once
	}
	s.lazy = l
	return s
}

// HookContext is passed to extension hooks and rules.
type HookContext struct {
	Schema  *Schema
	State   *State
	Options *Options
	ext     string
}

// Error builds a validation error of type "<extension>.<code>". Returning it
// from a hook reports that item.
func (h *HookContext) Error(code string, ctx Context) error {
	return &ruleError{item: h.Schema.createError(h.ext+"."+code, ctx, h.State, h.Options)}
}

// Param declares a rule parameter; Schema (optional) validates it when the
// rule is applied.
type Param struct {
	Name   string
	Schema *Schema
}

// RuleDef is an extension rule applied with Schema.Rule.
type RuleDef struct {
	Name   string
	Params []Param
	// Setup may return a modified schema; nil keeps the input.
	Setup func(s *Schema, params map[string]any) *Schema
	// Validate checks value; References in params are already resolved.
	Validate    func(value any, params map[string]any, c *HookContext) (any, error)
	Description string
}

// Extension defines a new type or rules on top of Base (default Any).
type Extension struct {
	Name     string
	Base     *Schema
	Language map[string]string // rule code -> template
	Coerce   func(value any, c *HookContext) (any, error)
	Pre      func(value any, c *HookContext) (any, error)
	Describe func(d *Description) *Description
	Rules    []RuleDef
}

type typeDef struct {
	name   string
	ext    Extension
	base   *Schema
	parent *typeDef
	rules  map[string]*RuleDef
}

var identifier = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// Extend returns a new engine with the extensions registered. The receiver
// is unchanged.
func (e *Engine) Extend(exts ...Extension) (out *Engine, err error) {
	defer catchSchemaError(&err)
	out = e.derive()
	for _, ext := range exts {
		if !identifier.MatchString(ext.Name) {
			return nil, &SchemaError{Op: "extend", Err: fmt.Errorf("%w: invalid extension name %q", ErrInvalidSchema, ext.Name)}
		}
		base := ext.Base
		if base == nil {
			base = out.Any()
		}
		d := &typeDef{name: ext.Name, ext: ext, base: base, parent: base.def, rules: map[string]*RuleDef{}}
		for i := range ext.Rules {
			r := &ext.Rules[i]
			if !identifier.MatchString(r.Name) {
				return nil, &SchemaError{Op: "extend", Err: fmt.Errorf("%w: invalid rule name %q in %s", ErrInvalidSchema, r.Name, ext.Name)}
			}
			if _, dup := d.rules[r.Name]; dup {
				return nil, &SchemaError{Op: "extend", Err: fmt.Errorf("%w: %s.%s", ErrDuplicateRule, ext.Name, r.Name)}
			}
			if r.Setup == nil && r.Validate == nil {
				return nil, &SchemaError{Op: "extend", Err: fmt.Errorf("%w: rule %s.%s needs setup or validate", ErrInvalidSchema, ext.Name, r.Name)}
			}
			d.rules[r.Name] = r
		}
		for code, tmpl := range ext.Language {
			out.language[ext.Name+"."+code] = tmpl
		}
		out.types[ext.Name] = d
		out.log().Debug("extension registered", "type", ext.Name, "base", base.Type(), "rules", len(d.rules))
	}
	return out, nil
}

// instance returns a node of the extension type bound to engine e.
func (d *typeDef) instance(e *Engine) *Schema {
	s := d.base.clone()
	s.name = d.name
	s.def = d
	s.engine = e
	return s
}

func (d *typeDef) hook(c *ruleCtx) *HookContext {
	return &HookContext{Schema: c.s, State: c.st, Options: c.o, ext: d.name}
}

func (d *typeDef) coerce(s *Schema, v any, c *ruleCtx) (any, *ErrorItem) {
	if d.parent != nil {
		var e *ErrorItem
		if v, e = d.parent.coerce(s, v, c); e != nil {
			return v, e
		}
	}
	if d.ext.Coerce == nil {
		return v, nil
	}
	out, err := d.ext.Coerce(v, d.hook(c))
	if err != nil {
		return v, hookError(c, err)
	}
	return out, nil
}

func (d *typeDef) pre(s *Schema, v any, c *ruleCtx) (any, *ErrorItem) {
	if d.parent != nil {
		var e *ErrorItem
		if v, e = d.parent.pre(s, v, c); e != nil {
			return v, e
		}
	}
	if d.ext.Pre == nil {
		return v, nil
	}
	out, err := d.ext.Pre(v, d.hook(c))
	if err != nil {
		return v, hookError(c, err)
	}
	return out, nil
}

// lookupRule finds an extension rule on the node's type chain.
func (s *Schema) lookupRule(name string) (*typeDef, *RuleDef) {
	for d := s.def; d != nil; d = d.parent {
		if r, ok := d.rules[name]; ok {
			return d, r
		}
	}
	return nil, nil
}

// apply binds positional args to the rule's params and adds the rule.
func (d *typeDef) apply(s *Schema, r *RuleDef, args []any) *Schema {
	params := map[string]any{}
	if len(args) > len(r.Params) {
		schemaPanic(d.name+"."+r.Name, ErrInvalidSchema, "expected at most %d arguments, got %d", len(r.Params), len(args))
	}
	for i, p := range r.Params {
		var v any = Undefined
		if i < len(args) {
			v = args[i]
		}
		if p.Schema != nil && !IsRef(v) {
			res := p.Schema.validate(v, buildOptions(nil))
			if res.Error != nil {
				schemaPanic(d.name+"."+r.Name, ErrInvalidSchema, "param %s: %v", p.Name, res.Error)
			}
			v = res.Value
		}
		if !isUndefined(v) {
			params[p.Name] = v
		}
	}
	out := s
	if r.Setup != nil {
		if ns := r.Setup(s, params); ns != nil {
			out = ns
		}
	}
	if r.Validate == nil {
		// recorded so Describe and Build see the rule
		return out.addTest(r.Name, params, func(_ *ruleCtx, v any) (any, *ErrorItem) { return v, nil })
	}
	validate := r.Validate
	return out.addTest(r.Name, params, func(c *ruleCtx, v any) (any, *ErrorItem) {
		resolved := make(map[string]any, len(params))
		for k, p := range params {
			pv, e := c.param(p)
			if e != nil {
				return v, e
			}
			resolved[k] = pv
		}
		res, err := validate(v, resolved, d.hook(c))
		if err != nil {
			return v, hookError(c, err)
		}
		return res, nil
	})
}

// Package-level constructors use the default engine.

func Any() *Schema                            { return defaultEngine.Any() }
func String() *Schema                         { return defaultEngine.String() }
func Number() *Schema                         { return defaultEngine.Number() }
func Boolean() *Schema                        { return defaultEngine.Boolean() }
func Bool() *Schema                           { return defaultEngine.Bool() }
func Date() *Schema                           { return defaultEngine.Date() }
func Binary() *Schema                         { return defaultEngine.Binary() }
func Func() *Schema                           { return defaultEngine.Func() }
func Symbol() *Schema                         { return defaultEngine.Symbol() }
func Object(keys ...map[string]any) *Schema   { return defaultEngine.Object(keys...) }
func Array(items ...any) *Schema              { return defaultEngine.Array(items...) }
func Alternatives(schemaLikes ...any) *Schema { return defaultEngine.Alternatives(schemaLikes...) }
func Alt(schemaLikes ...any) *Schema          { return defaultEngine.Alt(schemaLikes...) }

func Lazy(fn func() *Schema, opts ...LazyOptions) *Schema { return defaultEngine.Lazy(fn, opts...) }

// Extend registers extensions on a copy of the default engine.
func Extend(exts ...Extension) (*Engine, error) { return defaultEngine.Extend(exts...) }

// Defaults returns a copy of the default engine applying fn to new schemas.
func Defaults(fn func(*Schema) *Schema) *Engine { return defaultEngine.Defaults(fn) }
