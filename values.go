package vschema

import (
	"bytes"
	"encoding/json"
	"math"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"time"
)

// valueSet is an ordered set of literals and References used by
// Allow/Valid/Invalid.
type valueSet struct {
	items []any
}

func (vs valueSet) add(vals ...any) valueSet {
	out := slices.Clip(vs.items)
	for _, v := range vals {
		if !vs.containsLiteral(v) {
			out = append(out, v)
		}
	}
	return valueSet{items: out}
}

func (vs valueSet) remove(vals ...any) valueSet {
	if len(vs.items) == 0 {
		return vs
	}
	out := make([]any, 0, len(vs.items))
	for _, it := range vs.items {
		drop := false
		for _, v := range vals {
			if identical(it, v) {
				drop = true
				break
			}
		}
		if !drop {
			out = append(out, it)
		}
	}
	return valueSet{items: out}
}

func (vs valueSet) containsLiteral(v any) bool {
	for _, it := range vs.items {
		if identical(it, v) {
			return true
		}
	}
	return false
}

func (vs valueSet) len() int { return len(vs.items) }

// match reports whether v equals an entry. Strict references that cannot be
// resolved produce an "any.ref" item.
func (vs valueSet) match(c *ruleCtx, v any, insensitive bool) (bool, *ErrorItem) {
	for _, it := range vs.items {
		if ref, ok := it.(*Reference); ok {
			rv, found := ref.resolve(c.st, c.o)
			if !found {
				if ref.strict {
					return false, c.err("any.ref", Context{"ref": ref})
				}
				continue
			}
			if looseEqual(v, rv, insensitive) {
				return true, nil
			}
			// an array target acts as a list of allowed values
			if arr, ok := rv.([]any); ok {
				for _, x := range arr {
					if looseEqual(v, x, insensitive) {
						return true, nil
					}
				}
			}
			continue
		}
		if looseEqual(v, it, insensitive) {
			return true, nil
		}
	}
	return false, nil
}

// identical compares set entries; References compare by pointer.
func identical(a, b any) bool {
	if ra, ok := a.(*Reference); ok {
		rb, ok := b.(*Reference)
		return ok && ra == rb
	}
	if _, ok := b.(*Reference); ok {
		return false
	}
	return looseEqual(a, b, false)
}

// looseEqual compares values structurally: numbers across kinds, times by
// instant, byte slices by content, maps and slices recursively.
func looseEqual(a, b any, insensitive bool) bool {
	if isUndefined(a) || isUndefined(b) {
		return isUndefined(a) && isUndefined(b)
	}
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		return ok && fa == fb
	}
	switch x := a.(type) {
	case string:
		y, ok := b.(string)
		if !ok {
			return false
		}
		if insensitive {
			return strings.EqualFold(x, y)
		}
		return x == y
	case time.Time:
		y, ok := b.(time.Time)
		return ok && x.Equal(y)
	case []byte:
		y, ok := b.([]byte)
		return ok && bytes.Equal(x, y)
	case *Sym:
		y, ok := b.(*Sym)
		return ok && x == y
	case map[string]any:
		y, ok := b.(map[string]any)
		if !ok || len(x) != len(y) {
			return false
		}
		for k, xv := range x {
			yv, ok := y[k]
			if !ok || !looseEqual(xv, yv, insensitive) {
				return false
			}
		}
		return true
	case []any:
		y, ok := b.([]any)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !looseEqual(x[i], y[i], insensitive) {
				return false
			}
		}
		return true
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if ta.Comparable() {
		return a == b
	}
	return reflect.DeepEqual(a, b)
}

// toFloat converts Go numeric kinds and json.Number.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := strconv.ParseFloat(string(n), 64)
		return f, err == nil
	}
	return 0, false
}

func isNumber(v any) bool {
	_, ok := toFloat(v)
	return ok
}

func isInteger(f float64) bool {
	return !math.IsInf(f, 0) && f == math.Trunc(f)
}

// asMap returns v as map[string]any, converting other string-keyed maps.
func asMap(v any) (map[string]any, bool) {
	if m, ok := v.(map[string]any); ok {
		return m, true
	}
	if v == nil {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[iter.Key().String()] = iter.Value().Interface()
	}
	return out, true
}

// asSlice returns v as []any, converting other slice and array types.
// Byte slices are binaries, not arrays.
func asSlice(v any) ([]any, bool) {
	switch x := v.(type) {
	case []any:
		return x, true
	case []byte, string, nil:
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

func isFunc(v any) bool {
	return v != nil && reflect.TypeOf(v).Kind() == reflect.Func
}

func copyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// present reports whether key holds a defined value in m.
func present(m map[string]any, key string) bool {
	v, ok := m[key]
	return ok && !isUndefined(v)
}
