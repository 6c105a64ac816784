package vschema

import (
	"regexp"
	"slices"
	"strings"

	"github.com/reoring/vschema/internal/engine"
)

type objectData struct {
	keysSet  bool // false means any keys are allowed
	children []objectChild
	order    []int // children indices, dependencies first
	patterns []objectPattern
	deps     []dependency
	renames  []rename
	asserts  []assertion
}

type objectChild struct {
	key    string
	schema *Schema
}

type objectPattern struct {
	re     *regexp.Regexp
	key    *Schema // key schema when the pattern is not a regexp
	schema *Schema
}

type dependency struct {
	kind  string // and, nand, or, xor, oxor, with, without
	key   string
	peers []string
}

// RenameOptions controls Rename.
type RenameOptions struct {
	Alias           bool // keep the old key
	Multiple        bool // allow several renames into the same key
	Override        bool // overwrite an existing target key
	IgnoreUndefined bool // skip when the source is absent
}

type rename struct {
	from   string
	fromRe *regexp.Regexp
	to     string
	opts   RenameOptions
}

type assertion struct {
	ref     *Reference
	schema  *Schema
	message string
}

func (d objectData) merge(o objectData) objectData {
	out := d
	out.keysSet = d.keysSet || o.keysSet
	if len(o.children) > 0 {
		out.children = slices.Clone(d.children)
		for _, ch := range o.children {
			if i := out.index(ch.key); i >= 0 {
				out.children[i].schema = out.children[i].schema.Concat(ch.schema)
			} else {
				out.children = append(out.children, ch)
			}
		}
		out.order = topoOrder("concat", out.children)
	}
	out.patterns = append(slices.Clip(d.patterns), o.patterns...)
	out.deps = append(slices.Clip(d.deps), o.deps...)
	out.renames = append(slices.Clip(d.renames), o.renames...)
	out.asserts = append(slices.Clip(d.asserts), o.asserts...)
	return out
}

func (d objectData) index(key string) int {
	for i, ch := range d.children {
		if ch.key == key {
			return i
		}
	}
	return -1
}

func (d objectData) child(key string) *Schema {
	if i := d.index(key); i >= 0 {
		return d.children[i].schema
	}
	return nil
}

// topoOrder sorts children so that keys referenced by a sibling's
// References are validated first. Declaration order breaks ties.
func topoOrder(op string, children []objectChild) []int {
	n := len(children)
	index := make(map[string]int, n)
	for i, ch := range children {
		index[ch.key] = i
	}
	indeg := make([]int, n)
	after := make([][]int, n)
	for i, ch := range children {
		for _, r := range ch.schema.refs {
			j, ok := index[r]
			if !ok || j == i {
				continue
			}
			after[j] = append(after[j], i)
			indeg[i]++
		}
	}
	order := make([]int, 0, n)
	done := make([]bool, n)
	for len(order) < n {
		next := -1
		for i := 0; i < n; i++ {
			if !done[i] && indeg[i] == 0 {
				next = i
				break
			}
		}
		if next < 0 {
			var cyc []string
			for i := range children {
				if !done[i] {
					cyc = append(cyc, children[i].key)
				}
			}
			schemaPanic(op, ErrInvalidSchema, "reference cycle between keys %s", strings.Join(cyc, ", "))
		}
		done[next] = true
		order = append(order, next)
		for _, k := range after[next] {
			indeg[k]--
		}
	}
	return order
}

func coerceObject(v any) any {
	str, ok := v.(string)
	if !ok {
		return v
	}
	t := strings.TrimSpace(str)
	if !strings.HasPrefix(t, "{") {
		return v
	}
	out, err := engine.DecodeString(t, engine.DecodeOptions{Numbers: engine.NumberFloat64})
	if err != nil {
		return v
	}
	return out
}

func (s *Schema) baseObject(c *ruleCtx, v any) (any, *ErrorItem) {
	m, ok := asMap(v)
	if !ok {
		return v, c.err("object.base", Context{"value": v})
	}
	return m, nil
}

// Keys declares the allowed keys. Keys(nil) allows any key; an empty map
// allows none. Keys are added in sorted order; use Key for explicit order.
func (s *Schema) Keys(keys map[string]any) *Schema {
	s.mustBe("keys", TypeObject)
	out := s.clone()
	if keys == nil {
		out.object.keysSet = false
		out.object.children = nil
		out.object.order = nil
		return out
	}
	out.object.keysSet = true
	out.object.children = slices.Clip(s.object.children)
	for _, k := range sortedKeys(keys) {
		out.object.children = setChild(out.object.children, k, s.engine.compile(keys[k]))
	}
	out.object.order = topoOrder("keys", out.object.children)
	return out
}

// Append adds keys without resetting an "any keys" object.
func (s *Schema) Append(keys map[string]any) *Schema {
	if len(keys) == 0 {
		return s
	}
	return s.Keys(keys)
}

// Key declares one key, appended in call order.
func (s *Schema) Key(name string, schemaLike any) *Schema {
	s.mustBe("key", TypeObject)
	out := s.clone()
	out.object.keysSet = true
	out.object.children = setChild(slices.Clip(s.object.children), name, s.engine.compile(schemaLike))
	out.object.order = topoOrder("key", out.object.children)
	return out
}

func setChild(children []objectChild, key string, schema *Schema) []objectChild {
	for i, ch := range children {
		if ch.key == key {
			cp := slices.Clone(children)
			cp[i].schema = schema
			return cp
		}
	}
	return append(children, objectChild{key: key, schema: schema})
}

// Unknown allows (default) or forbids unknown keys regardless of options.
func (s *Schema) Unknown(allow ...bool) *Schema {
	s.mustBe("unknown", TypeObject)
	b := len(allow) == 0 || allow[0]
	out := s.clone()
	out.flags.unknown = &b
	return out
}

func (s *Schema) objectLength(name string, limit any, cmp func(n, limit int) bool) *Schema {
	s.mustBe(name, TypeObject)
	limit = checkLimit(name, limit)
	return s.addTest(name, limit, func(c *ruleCtx, v any) (any, *ErrorItem) {
		lv, e := c.param(limit)
		if e != nil {
			return v, e
		}
		n, ok := intLimit(lv)
		if !ok {
			return v, c.err("object.ref", Context{"ref": limit})
		}
		count := 0
		for _, x := range v.(map[string]any) {
			if !isUndefined(x) {
				count++
			}
		}
		if cmp(count, n) {
			return v, nil
		}
		return v, c.err("object."+name, Context{"limit": n, "value": v})
	})
}

func (s *Schema) objectPattern(pattern any, schemaLike any) *Schema {
	s.mustBe("pattern", TypeObject)
	p := objectPattern{schema: s.engine.compile(schemaLike)}
	switch x := pattern.(type) {
	case *regexp.Regexp:
		p.re = x
	case string:
		re, err := regexp.Compile(x)
		if err != nil {
			schemaPanic("pattern", ErrInvalidSchema, "%v", err)
		}
		p.re = re
	case *Schema:
		p.key = x
	default:
		schemaPanic("pattern", ErrInvalidSchema, "pattern must be a regexp or a key schema, got %T", pattern)
	}
	out := s.clone()
	out.object.patterns = append(slices.Clip(s.object.patterns), p)
	return out
}

func (p objectPattern) matches(key string) bool {
	if p.re != nil {
		return p.re.MatchString(key)
	}
	_, errs := p.key.walk(key, &State{Path: []any{}}, buildOptions(nil))
	return len(errs) == 0
}

func (s *Schema) dependency(kind, key string, peers []string) *Schema {
	s.mustBe(kind, TypeObject)
	if len(peers) == 0 {
		schemaPanic(kind, ErrInvalidSchema, "missing peers")
	}
	out := s.clone()
	out.object.deps = append(slices.Clip(s.object.deps), dependency{kind: kind, key: key, peers: slices.Clone(peers)})
	return out
}

// And requires that if any of peers is present, all are.
func (s *Schema) And(peers ...string) *Schema { return s.dependency("and", "", peers) }

// Nand forbids all peers being present together.
func (s *Schema) Nand(peers ...string) *Schema { return s.dependency("nand", "", peers) }

// Or requires at least one of peers.
func (s *Schema) Or(peers ...string) *Schema { return s.dependency("or", "", peers) }

// Xor requires exactly one of peers.
func (s *Schema) Xor(peers ...string) *Schema { return s.dependency("xor", "", peers) }

// Oxor allows at most one of peers.
func (s *Schema) Oxor(peers ...string) *Schema { return s.dependency("oxor", "", peers) }

// With requires peers whenever key is present.
func (s *Schema) With(key string, peers ...string) *Schema {
	return s.dependency("with", key, peers)
}

// Without forbids peers whenever key is present.
func (s *Schema) Without(key string, peers ...string) *Schema {
	return s.dependency("without", key, peers)
}

// Rename moves key from (a string or *regexp.Regexp) to key to before
// children are validated.
func (s *Schema) Rename(from any, to string, opts ...RenameOptions) *Schema {
	s.mustBe("rename", TypeObject)
	r := rename{to: to}
	if len(opts) > 0 {
		r.opts = opts[0]
	}
	switch f := from.(type) {
	case string:
		r.from = f
		for _, prev := range s.object.renames {
			if prev.fromRe == nil && prev.from == f {
				schemaPanic("rename", ErrInvalidSchema, "cannot rename the same key %q multiple times", f)
			}
		}
	case *regexp.Regexp:
		r.fromRe = f
	default:
		schemaPanic("rename", ErrInvalidSchema, "rename source must be a string or *regexp.Regexp, got %T", from)
	}
	if !r.opts.Multiple {
		for _, prev := range s.object.renames {
			if prev.to == to && !prev.opts.Multiple {
				schemaPanic("rename", ErrInvalidSchema, "cannot rename to the same key %q multiple times", to)
			}
		}
	}
	out := s.clone()
	out.object.renames = append(slices.Clip(s.object.renames), r)
	return out
}

// Assert validates the value at ref (relative to this object) against
// schemaLike after the children are processed.
func (s *Schema) Assert(ref any, schemaLike any, message string) *Schema {
	s.mustBe("assert", TypeObject)
	var r *Reference
	switch x := ref.(type) {
	case string:
		r = Ref(x)
	case *Reference:
		r = x
	default:
		schemaPanic("assert", ErrInvalidSchema, "ref must be a string or *Reference, got %T", ref)
	}
	if !r.isContext && len(r.path) < 2 && r.ancestor == 1 {
		schemaPanic("assert", ErrInvalidSchema, "cannot assert on a root level reference %q, use key rules instead", r.key)
	}
	if message == "" {
		message = "pass the assertion test"
	}
	out := s.clone()
	out.object.asserts = append(slices.Clip(s.object.asserts), assertion{ref: r, schema: s.engine.compile(schemaLike), message: message})
	return out
}

// RequiredKeys marks the listed (possibly dotted) child keys as required.
func (s *Schema) RequiredKeys(keys ...string) *Schema {
	return s.applyToKeys("requiredKeys", keys, (*Schema).Required)
}

func (s *Schema) OptionalKeys(keys ...string) *Schema {
	return s.applyToKeys("optionalKeys", keys, (*Schema).Optional)
}

func (s *Schema) ForbiddenKeys(keys ...string) *Schema {
	return s.applyToKeys("forbiddenKeys", keys, (*Schema).Forbidden)
}

func (s *Schema) applyToKeys(op string, keys []string, fn func(*Schema) *Schema) *Schema {
	s.mustBe(op, TypeObject)
	out := s
	for _, k := range keys {
		out = out.mapKey(op, strings.Split(k, "."), fn)
	}
	return out
}

func (s *Schema) mapKey(op string, path []string, fn func(*Schema) *Schema) *Schema {
	i := s.object.index(path[0])
	if s.typ != TypeObject || i < 0 {
		schemaPanic(op, ErrInvalidSchema, "unknown key %q", path[0])
	}
	child := s.object.children[i].schema
	if len(path) == 1 {
		child = fn(child)
	} else {
		child = child.mapKey(op, path[1:], fn)
	}
	out := s.clone()
	out.object.children = setChild(s.object.children, path[0], child)
	out.object.order = topoOrder(op, out.object.children)
	return out
}

// keyLabel returns the label of a declared child, or the key.
func (s *Schema) keyLabel(key string) string {
	if ch := s.object.child(key); ch != nil && ch.flags.label != "" {
		return ch.flags.label
	}
	return key
}

func (s *Schema) keyLabels(keys []string) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = s.keyLabel(k)
	}
	return out
}

func (s *Schema) walkObject(c *ruleCtx, v any) (any, []*ErrorItem) {
	o := c.o
	target := copyMap(v.(map[string]any))
	var errs []*ErrorItem

	if e := s.applyRenames(c, target); len(e) > 0 {
		errs = append(errs, e...)
		if o.AbortEarly {
			return target, errs
		}
	}

	unprocessed := map[string]bool{}
	for k := range target {
		unprocessed[k] = true
	}

	if s.object.keysSet {
		for _, idx := range s.object.order {
			ch := s.object.children[idx]
			item, has := target[ch.key]
			if !has {
				item = Undefined
			}
			delete(unprocessed, ch.key)
			res, cerrs := ch.schema.walk(item, c.st.child(ch.key, target), o)
			if len(cerrs) > 0 {
				errs = append(errs, cerrs...)
				if o.AbortEarly {
					return target, errs
				}
				continue
			}
			switch {
			case ch.schema.flags.strip || (isUndefined(res) && has):
				delete(target, ch.key)
			case !isUndefined(res):
				target[ch.key] = res
			}
		}
	}

	if len(unprocessed) > 0 && (s.object.keysSet || len(s.object.patterns) > 0) {
		keys := make([]string, 0, len(unprocessed))
		for k := range unprocessed {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, key := range keys {
			matched := false
			for _, p := range s.object.patterns {
				if !p.matches(key) {
					continue
				}
				matched = true
				res, perrs := p.schema.walk(target[key], c.st.child(key, target), o)
				if len(perrs) > 0 {
					errs = append(errs, perrs...)
					if o.AbortEarly {
						return target, errs
					}
					continue
				}
				if p.schema.flags.strip {
					delete(target, key)
				} else {
					target[key] = res
				}
			}
			if matched {
				continue
			}
			explicit := s.flags.unknown
			if o.StripUnknown.Objects && (explicit == nil || !*explicit) {
				delete(target, key)
				continue
			}
			if o.SkipFunctions && isFunc(target[key]) {
				continue
			}
			allow := o.AllowUnknown
			if explicit != nil {
				allow = *explicit
			}
			if allow {
				continue
			}
			st := c.st.child(key, target)
			errs = append(errs, s.createError("object.allowUnknown", Context{"child": key, "value": target[key]}, st, o))
			if o.AbortEarly {
				return target, errs
			}
		}
	}

	for _, d := range s.object.deps {
		if e := s.checkDependency(c, d, target); e != nil {
			errs = append(errs, e)
			if o.AbortEarly {
				return target, errs
			}
		}
	}

	for _, a := range s.object.asserts {
		st := &State{Key: a.ref.path[len(a.ref.path)-1], Path: c.st.Path, Parent: target, Ancestors: append([]any{target}, c.st.Ancestors...)}
		val, found := a.ref.resolve(st, o)
		if !found {
			val = Undefined
		}
		if _, aerrs := a.schema.walk(val, &State{Path: []any{}, Parent: target, Ancestors: st.Ancestors}, o); len(aerrs) > 0 {
			path := slices.Clip(c.st.Path)
			for _, seg := range a.ref.path {
				path = append(path, seg)
			}
			est := &State{Key: st.Key, Path: path, Parent: target, Ancestors: st.Ancestors}
			errs = append(errs, s.createError("object.assert", Context{"ref": strings.Join(a.ref.path, "."), "message": a.message}, est, o))
			if o.AbortEarly {
				return target, errs
			}
		}
	}
	return target, errs
}

func (s *Schema) applyRenames(c *ruleCtx, target map[string]any) []*ErrorItem {
	var errs []*ErrorItem
	renamed := map[string]bool{}
	for _, r := range s.object.renames {
		var sources []string
		if r.fromRe != nil {
			for _, k := range sortedKeys(target) {
				if k != r.to && r.fromRe.MatchString(k) {
					sources = append(sources, k)
				}
			}
		} else if _, ok := target[r.from]; ok {
			sources = []string{r.from}
		}
		allUndefined := true
		for _, k := range sources {
			if !isUndefined(target[k]) {
				allUndefined = false
			}
		}
		if len(sources) == 0 || (allUndefined && r.opts.IgnoreUndefined) {
			continue
		}
		from := r.from
		if r.fromRe != nil {
			from = r.fromRe.String()
		}
		if !r.opts.Multiple && renamed[r.to] {
			errs = append(errs, c.err("object.rename.multiple", Context{"from": from, "to": r.to}))
			if c.o.AbortEarly {
				return errs
			}
			continue
		}
		if _, exists := target[r.to]; exists && !r.opts.Override && !renamed[r.to] {
			errs = append(errs, c.err("object.rename.override", Context{"from": from, "to": r.to}))
			if c.o.AbortEarly {
				return errs
			}
			continue
		}
		if allUndefined {
			delete(target, r.to)
		} else {
			target[r.to] = target[sources[len(sources)-1]]
		}
		renamed[r.to] = true
		if !r.opts.Alias {
			for _, k := range sources {
				if k != r.to {
					delete(target, k)
				}
			}
		}
	}
	return errs
}

func hasPath(target map[string]any, key string) bool {
	v, ok := reachValue(target, strings.Split(key, "."))
	return ok && !isUndefined(v)
}

func (s *Schema) checkDependency(c *ruleCtx, d dependency, target map[string]any) *ErrorItem {
	var present, missing []string
	for _, p := range d.peers {
		if hasPath(target, p) {
			present = append(present, p)
		} else {
			missing = append(missing, p)
		}
	}
	keyState := func() *State {
		return &State{Key: d.key, Path: append(slices.Clip(c.st.Path), d.key), Parent: target, Ancestors: c.st.Ancestors}
	}
	switch d.kind {
	case "and":
		if len(present) > 0 && len(missing) > 0 {
			return c.err("object.and", Context{
				"present": present, "presentWithLabels": s.keyLabels(present),
				"missing": missing, "missingWithLabels": s.keyLabels(missing),
			})
		}
	case "nand":
		if len(missing) == 0 {
			main, rest := d.peers[0], d.peers[1:]
			st := &State{Key: main, Path: append(slices.Clip(c.st.Path), main), Parent: target, Ancestors: c.st.Ancestors}
			return s.createError("object.nand", Context{
				"main": main, "mainWithLabel": s.keyLabel(main),
				"peers": rest, "peersWithLabels": s.keyLabels(rest),
			}, st, c.o)
		}
	case "or":
		if len(present) == 0 {
			return c.err("object.missing", Context{"peers": d.peers, "peersWithLabels": s.keyLabels(d.peers)})
		}
	case "xor", "oxor":
		if len(present) > 1 {
			return c.err("object."+d.kind, Context{"peers": present, "peersWithLabels": s.keyLabels(present)})
		}
		if len(present) == 0 && d.kind == "xor" {
			return c.err("object.missing", Context{"peers": d.peers, "peersWithLabels": s.keyLabels(d.peers)})
		}
	case "with":
		if !hasPath(target, d.key) || len(missing) == 0 {
			return nil
		}
		return s.createError("object.with", Context{
			"main": d.key, "mainWithLabel": s.keyLabel(d.key),
			"peer": missing[0], "peerWithLabel": s.keyLabel(missing[0]),
		}, keyState(), c.o)
	case "without":
		if !hasPath(target, d.key) || len(present) == 0 {
			return nil
		}
		return s.createError("object.without", Context{
			"main": d.key, "mainWithLabel": s.keyLabel(d.key),
			"peer": present[0], "peerWithLabel": s.keyLabel(present[0]),
		}, keyState(), c.o)
	}
	return nil
}
