package vschema

import (
	"slices"
	"strings"
)

type symbolPair struct {
	from any
	to   *Sym
}

func (s *Schema) coerceSymbol(v any) any {
	if _, ok := v.(*Sym); ok {
		return v
	}
	for _, p := range s.symbols {
		if looseEqual(v, p.from, false) {
			return p.to
		}
	}
	return v
}

func (s *Schema) baseSymbol(c *ruleCtx, v any) (any, *ErrorItem) {
	if _, ok := v.(*Sym); ok {
		return v, nil
	}
	if len(s.symbols) > 0 {
		keys := make([]any, len(s.symbols))
		for i, p := range s.symbols {
			keys[i] = p.from
		}
		return v, c.err("symbol.map", Context{"value": v, "map": keys})
	}
	return v, c.err("symbol.base", Context{"value": v})
}

// Map registers conversions from keys to symbols. The mapped symbols become
// the only allowed values. Keys are applied in sorted order when m is a map.
func (s *Schema) Map(pairs ...any) *Schema {
	s.mustBe("map", TypeSymbol)
	var add []symbolPair
	for _, p := range pairs {
		switch m := p.(type) {
		case map[string]*Sym:
			keys := make([]string, 0, len(m))
			for k := range m {
				keys = append(keys, k)
			}
			slices.Sort(keys)
			for _, k := range keys {
				add = append(add, symbolPair{from: k, to: m[k]})
			}
		case map[any]*Sym:
			batch := make([]symbolPair, 0, len(m))
			for k, sym := range m {
				batch = append(batch, symbolPair{from: k, to: sym})
			}
			slices.SortFunc(batch, func(a, b symbolPair) int {
				return strings.Compare(stringify(a.from, false), stringify(b.from, false))
			})
			add = append(add, batch...)
		case [2]any:
			sym, ok := m[1].(*Sym)
			if !ok {
				schemaPanic("map", ErrInvalidSchema, "value must be a *Sym, got %T", m[1])
			}
			add = append(add, symbolPair{from: m[0], to: sym})
		default:
			schemaPanic("map", ErrInvalidSchema, "unsupported map argument %T", p)
		}
	}
	for _, p := range add {
		if p.to == nil {
			schemaPanic("map", ErrInvalidSchema, "nil symbol for key %v", p.from)
		}
		if _, ok := p.from.(*Sym); ok {
			schemaPanic("map", ErrInvalidSchema, "keys must not be symbols")
		}
	}
	out := s.clone()
	out.symbols = append(slices.Clip(s.symbols), add...)
	syms := make([]any, len(add))
	for i, p := range add {
		syms[i] = p.to
	}
	out.valids = s.valids.add(syms...)
	out.flags.allowOnly = true
	return out
}
