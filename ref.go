package vschema

import (
	"reflect"
	"strconv"
	"strings"
)

// Reference points at another value of the same validation call: a sibling
// (or further ancestor) key, or a key of the external context. It is resolved
// by the walker immediately before the rule that uses it runs.
type Reference struct {
	key       string
	path      []string
	separator string
	isContext bool
	ancestor  int
	hasDef    bool
	def       any
	strict    bool
	adjust    func(any) any
}

type refConfig struct {
	separator     string
	contextPrefix string
	ancestor      int
	hasDef        bool
	def           any
	strict        bool
	adjust        func(any) any
}

// RefOption configures Ref.
type RefOption func(*refConfig)

// Separator sets the path separator (default ".").
func Separator(sep string) RefOption { return func(c *refConfig) { c.separator = sep } }

// ContextPrefix sets the prefix selecting the external context (default "$").
func ContextPrefix(p string) RefOption { return func(c *refConfig) { c.contextPrefix = p } }

// RefDefault sets the value used when the target is absent.
func RefDefault(v any) RefOption {
	return func(c *refConfig) {
		c.hasDef = true
		c.def = v
	}
}

// RefStrict makes an unresolved reference an "any.ref" error even where an
// absent value would otherwise be tolerated.
func RefStrict() RefOption { return func(c *refConfig) { c.strict = true } }

// RefAncestor resolves against the n-th ancestor (1 = the parent object).
func RefAncestor(n int) RefOption { return func(c *refConfig) { c.ancestor = n } }

// RefAdjust transforms the resolved value before use.
func RefAdjust(fn func(any) any) RefOption { return func(c *refConfig) { c.adjust = fn } }

// Ref builds a Reference to key. Keys starting with the context prefix read
// from Options.Context.
func Ref(key string, opts ...RefOption) *Reference {
	cfg := refConfig{separator: ".", contextPrefix: "$", ancestor: 1}
	for _, o := range opts {
		if o != nil {
			o(&cfg)
		}
	}
	if cfg.separator == "" {
		schemaPanic("ref", ErrInvalidSchema, "empty separator")
	}
	if cfg.ancestor < 1 {
		schemaPanic("ref", ErrInvalidSchema, "ancestor must be positive, got %d", cfg.ancestor)
	}
	r := &Reference{
		separator: cfg.separator,
		ancestor:  cfg.ancestor,
		hasDef:    cfg.hasDef,
		def:       cfg.def,
		strict:    cfg.strict,
		adjust:    cfg.adjust,
	}
	if cfg.contextPrefix != "" && strings.HasPrefix(key, cfg.contextPrefix) {
		r.isContext = true
		key = key[len(cfg.contextPrefix):]
	}
	if key == "" {
		schemaPanic("ref", ErrInvalidSchema, "empty reference key")
	}
	r.key = key
	r.path = strings.Split(key, cfg.separator)
	return r
}

// IsRef reports whether x is a *Reference.
func IsRef(x any) bool {
	r, ok := x.(*Reference)
	return ok && r != nil
}

// Key returns the reference key without the context prefix.
func (r *Reference) Key() string { return r.key }

// Path returns the key split by the separator.
func (r *Reference) Path() []string { return append([]string(nil), r.path...) }

// IsContext reports whether r reads from Options.Context.
func (r *Reference) IsContext() bool { return r.isContext }

func (r *Reference) String() string {
	if r.isContext {
		return "context:" + r.key
	}
	return "ref:" + r.key
}

// siblingRoot returns the first path segment when r targets the parent
// object, which makes the referencing key depend on that sibling.
func (r *Reference) siblingRoot() (string, bool) {
	if r.isContext || r.ancestor != 1 {
		return "", false
	}
	return r.path[0], true
}

// resolve looks the reference up in the live ancestor chain or the context.
func (r *Reference) resolve(st *State, o *Options) (any, bool) {
	var root any
	if r.isContext {
		if o.Context == nil {
			return r.fallback()
		}
		root = o.Context
	} else {
		if st == nil || len(st.Ancestors) < r.ancestor {
			return r.fallback()
		}
		root = st.Ancestors[r.ancestor-1]
	}
	v, ok := reachValue(root, r.path)
	if !ok {
		return r.fallback()
	}
	if r.adjust != nil {
		v = r.adjust(v)
	}
	return v, true
}

func (r *Reference) fallback() (any, bool) {
	if r.hasDef {
		return r.def, true
	}
	return nil, false
}

// reachValue walks path through maps, slices, and struct-free containers.
func reachValue(root any, path []string) (any, bool) {
	cur := root
	for _, seg := range path {
		switch c := cur.(type) {
		case map[string]any:
			v, ok := c[seg]
			if !ok || isUndefined(v) {
				return nil, false
			}
			cur = v
		case []any:
			i, err := strconv.Atoi(seg)
			if err != nil {
				return nil, false
			}
			if i < 0 {
				i += len(c)
			}
			if i < 0 || i >= len(c) || isUndefined(c[i]) {
				return nil, false
			}
			cur = c[i]
		default:
			rv := reflect.ValueOf(cur)
			switch rv.Kind() {
			case reflect.Map:
				if rv.Type().Key().Kind() != reflect.String {
					return nil, false
				}
				mv := rv.MapIndex(reflect.ValueOf(seg).Convert(rv.Type().Key()))
				if !mv.IsValid() {
					return nil, false
				}
				cur = mv.Interface()
			case reflect.Slice, reflect.Array:
				i, err := strconv.Atoi(seg)
				if err != nil || i < 0 || i >= rv.Len() {
					return nil, false
				}
				cur = rv.Index(i).Interface()
			default:
				return nil, false
			}
		}
	}
	return cur, true
}
