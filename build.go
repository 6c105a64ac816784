package vschema

import (
	"fmt"
	"regexp"
	"strings"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

type ruleFunc func(s *Schema, arg any) *Schema

// builtinRules maps rule names to builders per type. Rule and Build use it.
var builtinRules map[Type]map[string]ruleFunc

func init() {
	length := map[string]ruleFunc{
		"min": func(s *Schema, a any) *Schema {
			l, enc := limitArg(a)
			return s.Min(l, enc...)
		},
		"max": func(s *Schema, a any) *Schema {
			l, enc := limitArg(a)
			return s.Max(l, enc...)
		},
		"length": func(s *Schema, a any) *Schema {
			l, enc := limitArg(a)
			return s.Length(l, enc...)
		},
	}
	with := func(extra map[string]ruleFunc) map[string]ruleFunc {
		out := make(map[string]ruleFunc, len(length)+len(extra))
		for k, v := range length {
			out[k] = v
		}
		for k, v := range extra {
			out[k] = v
		}
		return out
	}
	noArg := func(fn func(*Schema) *Schema) ruleFunc {
		return func(s *Schema, _ any) *Schema { return fn(s) }
	}
	flag := func(fn func(*Schema, ...bool) *Schema) ruleFunc {
		return func(s *Schema, a any) *Schema {
			if b, ok := a.(bool); ok {
				return fn(s, b)
			}
			return fn(s)
		}
	}
	valuesArg := func(fn func(*Schema, ...any) *Schema) ruleFunc {
		return func(s *Schema, a any) *Schema { return fn(s, spread(a)...) }
	}
	stringsArg := func(fn func(*Schema, ...string) *Schema) ruleFunc {
		return func(s *Schema, a any) *Schema { return fn(s, argStrings(a)...) }
	}
	keyPeers := func(fn func(*Schema, string, ...string) *Schema) ruleFunc {
		return func(s *Schema, a any) *Schema {
			if m, ok := a.(map[string]any); ok {
				return fn(s, argString(m["key"]), argStrings(m["peers"])...)
			}
			list := argStrings(a)
			if len(list) < 2 {
				schemaPanic("dependency", ErrInvalidSchema, "expected key and peers")
			}
			return fn(s, list[0], list[1:]...)
		}
	}
	arity := func(fn func(*Schema, int) *Schema) ruleFunc {
		return func(s *Schema, a any) *Schema { return fn(s, argInt("arity", a)) }
	}

	builtinRules = map[Type]map[string]ruleFunc{
		TypeAny: {
			"allow":       valuesArg((*Schema).Allow),
			"valid":       valuesArg((*Schema).Valid),
			"only":        valuesArg((*Schema).Valid),
			"equal":       valuesArg((*Schema).Valid),
			"invalid":     valuesArg((*Schema).Invalid),
			"disallow":    valuesArg((*Schema).Invalid),
			"not":         valuesArg((*Schema).Invalid),
			"required":    noArg((*Schema).Required),
			"exist":       noArg((*Schema).Required),
			"optional":    noArg((*Schema).Optional),
			"forbidden":   noArg((*Schema).Forbidden),
			"strip":       noArg((*Schema).Strip),
			"raw":         flag((*Schema).Raw),
			"strict":      flag((*Schema).Strict),
			"label":       func(s *Schema, a any) *Schema { return s.Label(argString(a)) },
			"description": func(s *Schema, a any) *Schema { return s.Description(argString(a)) },
			"unit":        func(s *Schema, a any) *Schema { return s.Unit(argString(a)) },
			"notes":       stringsArg((*Schema).Notes),
			"tags":        stringsArg((*Schema).Tags),
			"meta":        func(s *Schema, a any) *Schema { return s.Meta(a) },
			"example":     valuesArg((*Schema).Example),
			"default":     func(s *Schema, a any) *Schema { return s.Default(a) },
			"empty":       func(s *Schema, a any) *Schema { return s.Empty(a) },
		},
		TypeString: with(map[string]ruleFunc{
			"insensitive": noArg((*Schema).Insensitive),
			"sensitive":   noArg((*Schema).Sensitive),
			"creditCard":  noArg((*Schema).CreditCard),
			"regex":       regexRule,
			"pattern":     regexRule,
			"alphanum":    noArg((*Schema).Alphanum),
			"token":       noArg((*Schema).Token),
			"email":       noArg((*Schema).Email),
			"ip": func(s *Schema, a any) *Schema {
				m := argMap(a)
				return s.IP(IPOptions{Version: argStrings(m["version"]), CIDR: argString(m["cidr"])})
			},
			"uri": func(s *Schema, a any) *Schema {
				m := argMap(a)
				return s.URI(URIOptions{Scheme: argStrings(m["scheme"]), AllowRelative: m["allowRelative"] == true, RelativeOnly: m["relativeOnly"] == true})
			},
			"dataUri": noArg((*Schema).DataURI),
			"guid":    guidRule,
			"uuid":    guidRule,
			"hex": func(s *Schema, a any) *Schema {
				return s.Hex(HexOptions{ByteAligned: argMap(a)["byteAligned"] == true})
			},
			"base64": func(s *Schema, a any) *Schema {
				var opt Base64Options
				if p, ok := argMap(a)["paddingRequired"].(bool); ok {
					opt.PaddingRequired = &p
				}
				return s.Base64(opt)
			},
			"hostname":  noArg((*Schema).Hostname),
			"normalize": stringsArg((*Schema).Normalize),
			"lowercase": noArg((*Schema).Lowercase),
			"uppercase": noArg((*Schema).Uppercase),
			"trim":      flag((*Schema).Trim),
			"truncate":  flag((*Schema).Truncate),
			"replace": func(s *Schema, a any) *Schema {
				if m, ok := a.(map[string]any); ok {
					return s.Replace(regexArg(m["pattern"]), argString(m["replacement"]))
				}
				list := spread(a)
				if len(list) != 2 {
					schemaPanic("replace", ErrInvalidSchema, "expected pattern and replacement")
				}
				return s.Replace(list[0], argString(list[1]))
			},
			"isoDate": noArg((*Schema).ISODate),
		}),
		TypeNumber: with(map[string]ruleFunc{
			"greater":   func(s *Schema, a any) *Schema { return s.Greater(a) },
			"less":      func(s *Schema, a any) *Schema { return s.Less(a) },
			"integer":   noArg((*Schema).Integer),
			"precision": func(s *Schema, a any) *Schema { return s.Precision(argInt("precision", a)) },
			"multiple":  func(s *Schema, a any) *Schema { return s.Multiple(a) },
			"positive":  noArg((*Schema).Positive),
			"negative":  noArg((*Schema).Negative),
			"port":      noArg((*Schema).Port),
		}),
		TypeBoolean: {
			"truthy":      valuesArg((*Schema).Truthy),
			"falsy":       valuesArg((*Schema).Falsy),
			"insensitive": noArg((*Schema).Insensitive),
			"sensitive":   noArg((*Schema).Sensitive),
		},
		TypeDate: with(map[string]ruleFunc{
			"greater":   func(s *Schema, a any) *Schema { return s.Greater(a) },
			"less":      func(s *Schema, a any) *Schema { return s.Less(a) },
			"iso":       noArg((*Schema).ISO),
			"timestamp": stringsArg((*Schema).Timestamp),
			"format":    stringsArg((*Schema).Format),
		}),
		TypeBinary: with(map[string]ruleFunc{
			"encoding": func(s *Schema, a any) *Schema { return s.Encoding(argString(a)) },
		}),
		TypeFunction: {
			"arity":    arity((*Schema).Arity),
			"minArity": arity((*Schema).MinArity),
			"maxArity": arity((*Schema).MaxArity),
			"ref":      noArg((*Schema).Ref),
		},
		TypeObject: with(map[string]ruleFunc{
			"and":           stringsArg((*Schema).And),
			"nand":          stringsArg((*Schema).Nand),
			"or":            stringsArg((*Schema).Or),
			"xor":           stringsArg((*Schema).Xor),
			"oxor":          stringsArg((*Schema).Oxor),
			"with":          keyPeers((*Schema).With),
			"without":       keyPeers((*Schema).Without),
			"unknown":       flag((*Schema).Unknown),
			"requiredKeys":  stringsArg((*Schema).RequiredKeys),
			"optionalKeys":  stringsArg((*Schema).OptionalKeys),
			"forbiddenKeys": stringsArg((*Schema).ForbiddenKeys),
			"rename": func(s *Schema, a any) *Schema {
				m := argMap(a)
				var from any = argString(m["from"])
				if m["regex"] == true {
					from = regexArg(from)
				}
				return s.Rename(from, argString(m["to"]), RenameOptions{
					Alias: m["alias"] == true, Multiple: m["multiple"] == true,
					Override: m["override"] == true, IgnoreUndefined: m["ignoreUndefined"] == true,
				})
			},
		}),
		TypeArray: with(map[string]ruleFunc{
			"unique": func(s *Schema, a any) *Schema {
				switch x := a.(type) {
				case nil:
					return s.Unique()
				case map[string]any:
					if p, ok := x["path"]; ok {
						return s.Unique(argString(p))
					}
					schemaPanic("unique", ErrNotBuildable, "comparator functions cannot be rebuilt")
				}
				return s.Unique(a)
			},
			"sparse": flag((*Schema).Sparse),
			"single": flag((*Schema).Single),
		}),
		TypeSymbol: {
			"map": func(s *Schema, a any) *Schema { return s.Map(spread(a)...) },
		},
	}
}

func regexRule(s *Schema, a any) *Schema {
	m, ok := a.(map[string]any)
	if !ok {
		return s.Regex(regexArg(a))
	}
	return s.Regex(regexArg(m["pattern"]), RegexOptions{Name: argString(m["name"]), Invert: m["invert"] == true})
}

func guidRule(s *Schema, a any) *Schema {
	if m, ok := a.(map[string]any); ok {
		return s.GUID(argStrings(m["version"])...)
	}
	return s.GUID(argStrings(a)...)
}

// limitArg accepts a limit, [limit, encoding], or {limit, encoding}.
func limitArg(a any) (any, []string) {
	switch x := a.(type) {
	case map[string]any:
		if enc := argString(x["encoding"]); enc != "" {
			return x["limit"], []string{enc}
		}
		return x["limit"], nil
	case []any:
		if len(x) == 2 {
			return x[0], []string{argString(x[1])}
		}
	}
	return a, nil
}

func spread(a any) []any {
	switch x := a.(type) {
	case nil:
		return []any{nil}
	case []any:
		return x
	}
	return []any{a}
}

func argMap(a any) map[string]any {
	if m, ok := a.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

func argString(a any) string {
	switch x := a.(type) {
	case nil:
		return ""
	case string:
		return x
	}
	return fmt.Sprint(a)
}

func argStrings(a any) []string {
	switch x := a.(type) {
	case nil:
		return nil
	case string:
		return []string{x}
	case []string:
		return x
	case []any:
		out := make([]string, len(x))
		for i, e := range x {
			out[i] = argString(e)
		}
		return out
	}
	return []string{argString(a)}
}

func argInt(op string, a any) int {
	n, ok := intLimit(a)
	if !ok {
		schemaPanic(op, ErrInvalidSchema, "expected an integer, got %v", a)
	}
	return n
}

func regexArg(a any) any {
	if str, ok := a.(string); ok {
		re, err := regexp.Compile(str)
		if err != nil {
			schemaPanic("regex", ErrInvalidSchema, "%v", err)
		}
		return re
	}
	return a
}

// Build rebuilds a schema from its description with the default engine.
func Build(desc *Description) (*Schema, error) { return defaultEngine.Build(desc) }

// Build rebuilds a schema from desc. Extension types must be registered on
// e. Descriptions holding functions (custom comparators, default or error
// functions, lazy schemas, symbols) fail with ErrNotBuildable.
func (e *Engine) Build(desc *Description) (s *Schema, err error) {
	defer catchSchemaError(&err)
	return e.build(desc), nil
}

func (e *Engine) build(d *Description) *Schema {
	if d == nil {
		schemaPanic("build", ErrInvalidSchema, "nil description")
	}
	s := e.buildBase(d)
	s = buildFlags(s, d.Flags)
	if d.Label != "" {
		s = s.Label(d.Label)
	}
	if d.Description != "" {
		s = s.Description(d.Description)
	}
	if len(d.Notes) > 0 {
		s = s.Notes(d.Notes...)
	}
	if len(d.Tags) > 0 {
		s = s.Tags(d.Tags...)
	}
	for _, m := range d.Meta {
		s = s.Meta(m)
	}
	if d.Unit != "" {
		s = s.Unit(d.Unit)
	}
	if len(d.Invalids) > 0 {
		s = s.Invalid(restoreRefs(d.Invalids).([]any)...)
	}
	if len(d.Valids) > 0 {
		allowOnly := s.flags.allowOnly
		s = s.Allow(restoreRefs(d.Valids).([]any)...)
		s.flags.allowOnly = allowOnly
	}
	if d.Empty != nil {
		s = s.Empty(e.build(d.Empty))
	}
	if len(d.Truthy) > 0 {
		s = s.Truthy(d.Truthy...)
	}
	if len(d.Falsy) > 0 {
		s = s.Falsy(d.Falsy...)
	}
	if len(d.Symbols) > 0 {
		schemaPanic("build", ErrNotBuildable, "symbol maps cannot be rebuilt")
	}
	if s.typ == TypeObject {
		s = e.buildObject(s, d)
	}
	for _, it := range d.Items {
		s = s.Items(e.build(it))
	}
	for _, it := range d.Ordered {
		s = s.Ordered(e.build(it))
	}
	for _, a := range d.Alternatives {
		s = e.buildAlternative(s, a)
	}

	// rules inherited from an extension base or engine defaults are
	// already present
	skip := 0
	for skip < len(s.tests) && skip < len(d.Rules) && s.tests[skip].name == d.Rules[skip].Name {
		skip++
	}
	for _, r := range d.Rules[skip:] {
		s = buildRule(s, r)
	}
	if len(d.Examples) > 0 {
		s = s.Example(d.Examples...)
	}
	return s
}

func (e *Engine) buildBase(d *Description) *Schema {
	switch t := Type(d.Type); t {
	case TypeLazy:
		schemaPanic("build", ErrNotBuildable, "lazy schemas cannot be rebuilt")
	case TypeAny, TypeAlternatives, TypeArray, TypeBinary, TypeBoolean, TypeDate,
		TypeFunction, TypeNumber, TypeObject, TypeString, TypeSymbol:
		if _, shadowed := e.types[d.Type]; !shadowed || d.Base == "" {
			return e.newSchemaWithDefaults(t)
		}
	}
	s, ok := e.Type(d.Type)
	if !ok {
		schemaPanic("build", ErrInvalidSchema, "unknown type %q", d.Type)
	}
	return s
}

func (e *Engine) newSchemaWithDefaults(t Type) *Schema {
	return e.applyDefaults(e.newSchema(t))
}

func buildFlags(s *Schema, f map[string]any) *Schema {
	for _, name := range sortedKeys(f) {
		v := f[name]
		if v == functionPlaceholder {
			schemaPanic("build", ErrNotBuildable, "flag %s holds a function", name)
		}
		switch name {
		case "presence":
			s = s.withPresence(Presence(argString(v)))
		case "default":
			s = s.Default(restoreRefs(v))
		case "defaultDescription", "once":
		case "strip":
			s = s.Strip()
		case "raw":
			s = s.Raw(v == true)
		case "strict":
			s = s.Strict(v == true)
		case "allowOnly":
			s = s.clone()
			s.flags.allowOnly = v == true
		case "insensitive":
			s = s.clone()
			s.flags.insensitive = v == true
		case "truncate":
			s = s.Truncate(v == true)
		case "sparse":
			s = s.Sparse(v == true)
		case "single":
			s = s.Single(v == true)
		case "replace":
			for _, r := range spread(v) {
				m := argMap(r)
				s = s.Replace(regexArg(m["pattern"]), argString(m["replacement"]))
			}
		case "encoding":
			s = s.Encoding(argString(v))
		case "iso":
			s = s.ISO()
		case "timestamp":
			s = s.Timestamp(argString(v))
		case "format":
			s = s.Format(argStrings(v)...)
		case "unknown":
			s = s.Unknown(v == true)
		default:
			schemaPanic("build", ErrInvalidSchema, "unknown flag %q", name)
		}
	}
	return s
}

func buildRule(s *Schema, r RuleDescription) *Schema {
	arg := restoreRefs(r.Arg)
	if holdsFunction(arg) {
		schemaPanic(r.Name, ErrNotBuildable, "rule argument holds a function")
	}
	if d, rule := s.lookupRule(r.Name); rule != nil {
		m := argMap(arg)
		args := make([]any, len(rule.Params))
		for i, p := range rule.Params {
			if v, ok := m[p.Name]; ok {
				args[i] = v
			} else {
				args[i] = Undefined
			}
		}
		return d.apply(s, rule, args)
	}
	fn, ok := builtinRules[s.typ][r.Name]
	if !ok {
		fn, ok = builtinRules[TypeAny][r.Name]
	}
	if !ok {
		schemaPanic(r.Name, ErrUnknownRule, "%s schema has no rule %q", s.Type(), r.Name)
	}
	return fn(s, arg)
}

func (e *Engine) buildObject(s *Schema, d *Description) *Schema {
	if d.KeysSet && len(d.Keys) == 0 {
		s = s.Keys(map[string]any{})
	}
	for _, k := range d.Keys {
		s = s.Key(k.Key, e.build(k.Schema))
	}
	for _, p := range d.Patterns {
		if p.Key != nil {
			s = s.Pattern(e.build(p.Key), e.build(p.Schema))
		} else {
			s = s.Pattern(regexArg(p.Regex), e.build(p.Schema))
		}
	}
	for _, dep := range d.Dependencies {
		s = s.dependency(dep.Type, dep.Key, dep.Peers)
	}
	for _, r := range d.Renames {
		var from any = r.From
		if r.Regex {
			from = regexArg(r.From)
		}
		s = s.Rename(from, r.To, RenameOptions{Alias: r.Alias, Multiple: r.Multiple, Override: r.Override, IgnoreUndefined: r.IgnoreUndefined})
	}
	for _, a := range d.Asserts {
		ref, ok := restoreRefs(a.Ref).(*Reference)
		if !ok {
			schemaPanic("build", ErrInvalidSchema, "bad assert reference %q", a.Ref)
		}
		s = s.Assert(ref, e.build(a.Schema), a.Message)
	}
	return s
}

func (e *Engine) buildAlternative(s *Schema, a AlternativeDescription) *Schema {
	if a.Schema != nil {
		return s.Try(e.build(a.Schema))
	}
	opt := WhenOptions{}
	if a.Is != nil {
		opt.Is = e.build(a.Is)
	}
	if a.Then != nil {
		opt.Then = e.build(a.Then)
	}
	if a.Otherwise != nil {
		opt.Otherwise = e.build(a.Otherwise)
	}
	if a.Peek != nil {
		return s.addWhen(e.build(a.Peek), opt)
	}
	ref, ok := restoreRefs(a.Ref).(*Reference)
	if !ok {
		schemaPanic("build", ErrInvalidSchema, "bad condition reference %q", a.Ref)
	}
	return s.addWhen(ref, opt)
}

// restoreRefs turns "ref:<key>" and "context:<key>" strings back into
// References.
func restoreRefs(v any) any {
	switch x := v.(type) {
	case string:
		if k, ok := strings.CutPrefix(x, "ref:"); ok && k != "" {
			return Ref(k, ContextPrefix(""))
		}
		if k, ok := strings.CutPrefix(x, "context:"); ok && k != "" {
			return Ref("$" + k)
		}
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = restoreRefs(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = restoreRefs(e)
		}
		return out
	}
	return v
}

func holdsFunction(v any) bool {
	switch x := v.(type) {
	case string:
		return x == functionPlaceholder
	case []any:
		for _, e := range x {
			if holdsFunction(e) {
				return true
			}
		}
	case map[string]any:
		for _, e := range x {
			if holdsFunction(e) {
				return true
			}
		}
	}
	return false
}

// ParseDescriptionJSON decodes a Description from JSON.
func ParseDescriptionJSON(data []byte) (*Description, error) {
	var d Description
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("vschema: parse description: %w", err)
	}
	return &d, nil
}

// ParseDescriptionYAML decodes a Description from YAML.
func ParseDescriptionYAML(data []byte) (*Description, error) {
	var d Description
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("vschema: parse description: %w", err)
	}
	return &d, nil
}
