package vschema

import (
	"maps"
	"regexp"
	"time"

	json "github.com/goccy/go-json"
)

// Description is the serializable introspection of a schema. It holds no
// function values; References render as "ref:<key>" or "context:<key>".
type Description struct {
	Type         string                   `json:"type" yaml:"type"`
	Base         string                   `json:"base,omitempty" yaml:"base,omitempty"`
	Flags        map[string]any           `json:"flags,omitempty" yaml:"flags,omitempty"`
	Label        string                   `json:"label,omitempty" yaml:"label,omitempty"`
	Description  string                   `json:"description,omitempty" yaml:"description,omitempty"`
	Notes        []string                 `json:"notes,omitempty" yaml:"notes,omitempty"`
	Tags         []string                 `json:"tags,omitempty" yaml:"tags,omitempty"`
	Meta         []any                    `json:"meta,omitempty" yaml:"meta,omitempty"`
	Examples     []any                    `json:"examples,omitempty" yaml:"examples,omitempty"`
	Unit         string                   `json:"unit,omitempty" yaml:"unit,omitempty"`
	Valids       []any                    `json:"valids,omitempty" yaml:"valids,omitempty"`
	Invalids     []any                    `json:"invalids,omitempty" yaml:"invalids,omitempty"`
	Empty        *Description             `json:"empty,omitempty" yaml:"empty,omitempty"`
	Rules        []RuleDescription        `json:"rules,omitempty" yaml:"rules,omitempty"`
	KeysSet      bool                     `json:"keysSet,omitempty" yaml:"keysSet,omitempty"`
	Keys         []KeyDescription         `json:"keys,omitempty" yaml:"keys,omitempty"`
	Patterns     []PatternDescription     `json:"patterns,omitempty" yaml:"patterns,omitempty"`
	Dependencies []DependencyDescription  `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	Renames      []RenameDescription      `json:"renames,omitempty" yaml:"renames,omitempty"`
	Asserts      []AssertDescription      `json:"asserts,omitempty" yaml:"asserts,omitempty"`
	Items        []*Description           `json:"items,omitempty" yaml:"items,omitempty"`
	Ordered      []*Description           `json:"ordered,omitempty" yaml:"ordered,omitempty"`
	Alternatives []AlternativeDescription `json:"alternatives,omitempty" yaml:"alternatives,omitempty"`
	Truthy       []any                    `json:"truthy,omitempty" yaml:"truthy,omitempty"`
	Falsy        []any                    `json:"falsy,omitempty" yaml:"falsy,omitempty"`
	Symbols      []SymbolDescription      `json:"symbols,omitempty" yaml:"symbols,omitempty"`
}

type RuleDescription struct {
	Name        string `json:"name" yaml:"name"`
	Arg         any    `json:"arg,omitempty" yaml:"arg,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

type KeyDescription struct {
	Key    string       `json:"key" yaml:"key"`
	Schema *Description `json:"schema" yaml:"schema"`
}

type PatternDescription struct {
	Regex  string       `json:"regex,omitempty" yaml:"regex,omitempty"`
	Key    *Description `json:"key,omitempty" yaml:"key,omitempty"`
	Schema *Description `json:"schema" yaml:"schema"`
}

type DependencyDescription struct {
	Type  string   `json:"type" yaml:"type"`
	Key   string   `json:"key,omitempty" yaml:"key,omitempty"`
	Peers []string `json:"peers" yaml:"peers"`
}

type RenameDescription struct {
	From            string `json:"from" yaml:"from"`
	Regex           bool   `json:"regex,omitempty" yaml:"regex,omitempty"`
	To              string `json:"to" yaml:"to"`
	Alias           bool   `json:"alias,omitempty" yaml:"alias,omitempty"`
	Multiple        bool   `json:"multiple,omitempty" yaml:"multiple,omitempty"`
	Override        bool   `json:"override,omitempty" yaml:"override,omitempty"`
	IgnoreUndefined bool   `json:"ignoreUndefined,omitempty" yaml:"ignoreUndefined,omitempty"`
}

type AssertDescription struct {
	Ref     string       `json:"ref" yaml:"ref"`
	Schema  *Description `json:"schema" yaml:"schema"`
	Message string       `json:"message" yaml:"message"`
}

// AlternativeDescription is either a plain Schema or a condition (Ref with
// Is, or Peek) with Then and Otherwise branches.
type AlternativeDescription struct {
	Schema    *Description `json:"schema,omitempty" yaml:"schema,omitempty"`
	Ref       string       `json:"ref,omitempty" yaml:"ref,omitempty"`
	Peek      *Description `json:"peek,omitempty" yaml:"peek,omitempty"`
	Is        *Description `json:"is,omitempty" yaml:"is,omitempty"`
	Then      *Description `json:"then,omitempty" yaml:"then,omitempty"`
	Otherwise *Description `json:"otherwise,omitempty" yaml:"otherwise,omitempty"`
}

type SymbolDescription struct {
	From any    `json:"from" yaml:"from"`
	To   string `json:"to" yaml:"to"`
}

const functionPlaceholder = "[function]"

// MarshalJSON encodes d as a tree of maps and slices with the same field
// names as the struct tags, so the recursive struct type is never compiled
// by the encoder.
func (d *Description) MarshalJSON() ([]byte, error) {
	if d == nil {
		return []byte("null"), nil
	}
	return json.Marshal(d.tree())
}

func descTree(d *Description) any {
	if d == nil {
		return nil
	}
	return d.tree()
}

func descTrees(ds []*Description) []any {
	out := make([]any, len(ds))
	for i, d := range ds {
		out[i] = descTree(d)
	}
	return out
}

func (d *Description) tree() map[string]any {
	m := map[string]any{"type": d.Type}
	str := func(k, v string) {
		if v != "" {
			m[k] = v
		}
	}
	list := func(k string, v []any) {
		if len(v) > 0 {
			m[k] = v
		}
	}
	str("base", d.Base)
	if len(d.Flags) > 0 {
		m["flags"] = d.Flags
	}
	str("label", d.Label)
	str("description", d.Description)
	if len(d.Notes) > 0 {
		m["notes"] = d.Notes
	}
	if len(d.Tags) > 0 {
		m["tags"] = d.Tags
	}
	list("meta", d.Meta)
	list("examples", d.Examples)
	str("unit", d.Unit)
	list("valids", d.Valids)
	list("invalids", d.Invalids)
	if d.Empty != nil {
		m["empty"] = d.Empty.tree()
	}
	if len(d.Rules) > 0 {
		rules := make([]any, len(d.Rules))
		for i, r := range d.Rules {
			rm := map[string]any{"name": r.Name}
			if r.Arg != nil {
				rm["arg"] = r.Arg
			}
			if r.Description != "" {
				rm["description"] = r.Description
			}
			rules[i] = rm
		}
		m["rules"] = rules
	}
	if d.KeysSet {
		m["keysSet"] = true
	}
	if len(d.Keys) > 0 {
		keys := make([]any, len(d.Keys))
		for i, k := range d.Keys {
			keys[i] = map[string]any{"key": k.Key, "schema": descTree(k.Schema)}
		}
		m["keys"] = keys
	}
	if len(d.Patterns) > 0 {
		pats := make([]any, len(d.Patterns))
		for i, p := range d.Patterns {
			pm := map[string]any{"schema": descTree(p.Schema)}
			if p.Regex != "" {
				pm["regex"] = p.Regex
			}
			if p.Key != nil {
				pm["key"] = p.Key.tree()
			}
			pats[i] = pm
		}
		m["patterns"] = pats
	}
	if len(d.Dependencies) > 0 {
		deps := make([]any, len(d.Dependencies))
		for i, dep := range d.Dependencies {
			peers := make([]any, len(dep.Peers))
			for j, p := range dep.Peers {
				peers[j] = p
			}
			dm := map[string]any{"type": dep.Type, "peers": peers}
			if dep.Key != "" {
				dm["key"] = dep.Key
			}
			deps[i] = dm
		}
		m["dependencies"] = deps
	}
	if len(d.Renames) > 0 {
		renames := make([]any, len(d.Renames))
		for i, r := range d.Renames {
			rm := map[string]any{"from": r.From, "to": r.To}
			for k, on := range map[string]bool{"regex": r.Regex, "alias": r.Alias, "multiple": r.Multiple,
				"override": r.Override, "ignoreUndefined": r.IgnoreUndefined} {
				if on {
					rm[k] = true
				}
			}
			renames[i] = rm
		}
		m["renames"] = renames
	}
	if len(d.Asserts) > 0 {
		asserts := make([]any, len(d.Asserts))
		for i, a := range d.Asserts {
			asserts[i] = map[string]any{"ref": a.Ref, "schema": descTree(a.Schema), "message": a.Message}
		}
		m["asserts"] = asserts
	}
	if len(d.Items) > 0 {
		m["items"] = descTrees(d.Items)
	}
	if len(d.Ordered) > 0 {
		m["ordered"] = descTrees(d.Ordered)
	}
	if len(d.Alternatives) > 0 {
		alts := make([]any, len(d.Alternatives))
		for i, a := range d.Alternatives {
			am := map[string]any{}
			sub := func(k string, v *Description) {
				if v != nil {
					am[k] = v.tree()
				}
			}
			sub("schema", a.Schema)
			if a.Ref != "" {
				am["ref"] = a.Ref
			}
			sub("peek", a.Peek)
			sub("is", a.Is)
			sub("then", a.Then)
			sub("otherwise", a.Otherwise)
			alts[i] = am
		}
		m["alternatives"] = alts
	}
	list("truthy", d.Truthy)
	list("falsy", d.Falsy)
	if len(d.Symbols) > 0 {
		syms := make([]any, len(d.Symbols))
		for i, sd := range d.Symbols {
			syms[i] = map[string]any{"from": sd.From, "to": sd.To}
		}
		m["symbols"] = syms
	}
	return m
}

// Describe returns the introspection of s.
func (s *Schema) Describe() *Description {
	d := &Description{
		Type:        s.Type(),
		Label:       s.flags.label,
		Description: s.description,
		Notes:       s.notes,
		Tags:        s.tags,
		Meta:        describeValues(s.meta),
		Examples:    describeValues(s.examples),
		Unit:        s.unit,
		Valids:      describeValues(s.valids.items),
		Invalids:    describeValues(s.invalids.items),
		Truthy:      describeValues(s.truthy.items),
		Falsy:       describeValues(s.falsy.items),
	}
	if s.def != nil {
		d.Base = string(s.typ)
	}
	if s.flags.empty != nil {
		d.Empty = s.flags.empty.Describe()
	}
	d.Flags = s.describeFlags()
	for _, t := range s.tests {
		rd := RuleDescription{Name: t.name, Arg: describeValue(t.arg)}
		if _, r := s.lookupRule(t.name); r != nil {
			rd.Description = r.Description
		}
		d.Rules = append(d.Rules, rd)
	}

	switch s.typ {
	case TypeObject:
		d.KeysSet = s.object.keysSet
		for _, ch := range s.object.children {
			d.Keys = append(d.Keys, KeyDescription{Key: ch.key, Schema: ch.schema.Describe()})
		}
		for _, p := range s.object.patterns {
			pd := PatternDescription{Schema: p.schema.Describe()}
			if p.re != nil {
				pd.Regex = p.re.String()
			} else {
				pd.Key = p.key.Describe()
			}
			d.Patterns = append(d.Patterns, pd)
		}
		for _, dep := range s.object.deps {
			d.Dependencies = append(d.Dependencies, DependencyDescription{Type: dep.kind, Key: dep.key, Peers: dep.peers})
		}
		for _, r := range s.object.renames {
			rd := RenameDescription{From: r.from, To: r.to, Alias: r.opts.Alias, Multiple: r.opts.Multiple,
				Override: r.opts.Override, IgnoreUndefined: r.opts.IgnoreUndefined}
			if r.fromRe != nil {
				rd.From, rd.Regex = r.fromRe.String(), true
			}
			d.Renames = append(d.Renames, rd)
		}
		for _, a := range s.object.asserts {
			d.Asserts = append(d.Asserts, AssertDescription{Ref: a.ref.String(), Schema: a.schema.Describe(), Message: a.message})
		}
	case TypeArray:
		for _, it := range s.array.items {
			d.Items = append(d.Items, it.Describe())
		}
		for _, it := range s.array.ordered {
			d.Ordered = append(d.Ordered, it.Describe())
		}
	case TypeAlternatives:
		for _, a := range s.alts {
			d.Alternatives = append(d.Alternatives, a.describe())
		}
	case TypeSymbol:
		for _, p := range s.symbols {
			d.Symbols = append(d.Symbols, SymbolDescription{From: describeValue(p.from), To: p.to.String()})
		}
	}

	for def := s.def; def != nil; def = def.parent {
		if def.ext.Describe != nil {
			if out := def.ext.Describe(d); out != nil {
				d = out
			}
		}
	}
	return d
}

func (a alternative) describe() AlternativeDescription {
	var ad AlternativeDescription
	if a.schema != nil {
		ad.Schema = a.schema.Describe()
		return ad
	}
	if a.ref != nil {
		ad.Ref = a.ref.String()
		ad.Is = a.is.Describe()
	} else {
		ad.Peek = a.peek.Describe()
	}
	if a.then != nil {
		ad.Then = a.then.Describe()
	}
	if a.otherwise != nil {
		ad.Otherwise = a.otherwise.Describe()
	}
	return ad
}

func (s *Schema) describeFlags() map[string]any {
	f := map[string]any{}
	fl := s.flags
	if fl.presence != "" {
		f["presence"] = string(fl.presence)
	}
	if fl.hasDefault {
		switch fl.defaultValue.(type) {
		case func() any:
			f["default"] = functionPlaceholder
			if fl.defaultDesc != "" {
				f["defaultDescription"] = fl.defaultDesc
			}
		default:
			f["default"] = describeValue(fl.defaultValue)
		}
	}
	set := func(name string, on bool) {
		if on {
			f[name] = true
		}
	}
	set("strip", fl.strip)
	set("raw", fl.raw)
	set("strict", fl.strict)
	set("allowOnly", fl.allowOnly)
	set("truncate", fl.truncate)
	set("sparse", fl.sparse)
	set("single", fl.single)
	if fl.errFn != nil {
		f["error"] = functionPlaceholder
	}
	if s.typ == TypeBoolean || fl.insensitive {
		f["insensitive"] = fl.insensitive
	}
	if len(fl.replacements) > 0 {
		reps := make([]any, len(fl.replacements))
		for i, r := range fl.replacements {
			reps[i] = map[string]any{"pattern": r.pattern.String(), "replacement": r.with}
		}
		f["replace"] = reps
	}
	if fl.encoding != "" {
		f["encoding"] = fl.encoding
	}
	if s.typ == TypeDate {
		set("iso", fl.iso)
		if fl.timestamp != "" {
			f["timestamp"] = fl.timestamp
		}
		if len(fl.formats) > 0 {
			f["format"] = fl.formats
		}
	}
	if fl.unknown != nil {
		f["unknown"] = *fl.unknown
	}
	if len(s.opts) > 0 {
		f["options"] = functionPlaceholder
	}
	if s.lazy != nil {
		f["lazy"] = functionPlaceholder
		set("once", s.lazy.once)
	}
	if len(f) == 0 {
		return nil
	}
	return f
}

func describeValues(vals []any) []any {
	if len(vals) == 0 {
		return nil
	}
	out := make([]any, len(vals))
	for i, v := range vals {
		out[i] = describeValue(v)
	}
	return out
}

// describeValue strips function values and renders references.
func describeValue(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case *Reference:
		return x.String()
	case *regexp.Regexp:
		return x.String()
	case *Sym:
		return x.String()
	case *Schema:
		return x.Describe()
	case time.Time:
		return x
	case UndefinedValue:
		return nil
	case map[string]any:
		out := maps.Clone(x)
		for k, e := range out {
			out[k] = describeValue(e)
		}
		return out
	case []any:
		return describeValues(x)
	}
	if isFunc(v) {
		return functionPlaceholder
	}
	return v
}
