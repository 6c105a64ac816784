package vschema

import (
	"encoding/base64"
	"encoding/hex"
	"strings"
	"unicode/utf16"
)

// decodeBinary turns a string into bytes under the named encoding.
func decodeBinary(str, encoding string) ([]byte, bool) {
	switch strings.ToLower(encoding) {
	case "", "utf8", "utf-8", "binary", "latin1", "ascii":
		return []byte(str), true
	case "hex":
		b, err := hex.DecodeString(str)
		return b, err == nil
	case "base64":
		b, err := base64.StdEncoding.DecodeString(str)
		return b, err == nil
	case "ucs2", "ucs-2", "utf16le", "utf-16le":
		units := utf16.Encode([]rune(str))
		b := make([]byte, 0, 2*len(units))
		for _, u := range units {
			b = append(b, byte(u), byte(u>>8))
		}
		return b, true
	}
	return nil, false
}

func (s *Schema) coerceBinary(v any) any {
	if str, ok := v.(string); ok {
		if b, ok := decodeBinary(str, s.flags.encoding); ok {
			return b
		}
	}
	return v
}

func (s *Schema) baseBinary(c *ruleCtx, v any) (any, *ErrorItem) {
	if _, ok := v.([]byte); ok {
		return v, nil
	}
	return v, c.err("binary.base", Context{"value": v})
}

// Encoding sets the encoding used to convert string input.
func (s *Schema) Encoding(name string) *Schema {
	s.mustBe("encoding", TypeBinary)
	if !validEncoding(name) {
		schemaPanic("encoding", ErrInvalidSchema, "unknown encoding %q", name)
	}
	out := s.clone()
	out.flags.encoding = name
	return out
}

func (s *Schema) binaryLength(name string, limit any, cmp func(n, limit int) bool) *Schema {
	s.mustBe(name, TypeBinary)
	limit = checkLimit(name, limit)
	return s.addTest(name, limit, func(c *ruleCtx, v any) (any, *ErrorItem) {
		lv, e := c.param(limit)
		if e != nil {
			return v, e
		}
		n, ok := intLimit(lv)
		if !ok {
			return v, c.err("binary.ref", Context{"ref": limit})
		}
		if cmp(len(v.([]byte)), n) {
			return v, nil
		}
		return v, c.err("binary."+name, Context{"limit": n, "value": v})
	})
}
