// Package jsonschema projects vschema descriptions onto JSON Schema
// (draft-07). The projection is lossy: references, conditional branches and
// custom rules have no JSON Schema counterpart and are left out.
package jsonschema

import (
	"fmt"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/reoring/vschema"
)

// Draft is the $schema URI emitted on the root document.
const Draft = "http://json-schema.org/draft-07/schema#"

// Schema is a JSON Schema document node.
type Schema struct {
	SchemaURI   string `json:"$schema,omitempty"`
	Type        any    `json:"type,omitempty"` // string or []string
	Format      string `json:"format,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Default     any    `json:"default,omitempty"`
	Enum        []any  `json:"enum,omitempty"`
	Examples    []any  `json:"examples,omitempty"`

	// String
	MinLength       *int   `json:"minLength,omitempty"`
	MaxLength       *int   `json:"maxLength,omitempty"`
	Pattern         string `json:"pattern,omitempty"`
	ContentEncoding string `json:"contentEncoding,omitempty"`

	// Number
	Minimum          *float64 `json:"minimum,omitempty"`
	Maximum          *float64 `json:"maximum,omitempty"`
	ExclusiveMinimum *float64 `json:"exclusiveMinimum,omitempty"`
	ExclusiveMaximum *float64 `json:"exclusiveMaximum,omitempty"`
	MultipleOf       *float64 `json:"multipleOf,omitempty"`

	// Object
	Properties           map[string]*Schema `json:"properties,omitempty"`
	PatternProperties    map[string]*Schema `json:"patternProperties,omitempty"`
	Required             []string           `json:"required,omitempty"`
	AdditionalProperties any                `json:"additionalProperties,omitempty"`
	MinProperties        *int               `json:"minProperties,omitempty"`
	MaxProperties        *int               `json:"maxProperties,omitempty"`

	// Array
	Items       any  `json:"items,omitempty"` // *Schema or []*Schema
	MinItems    *int `json:"minItems,omitempty"`
	MaxItems    *int `json:"maxItems,omitempty"`
	UniqueItems bool `json:"uniqueItems,omitempty"`

	// Union
	AnyOf []*Schema `json:"anyOf,omitempty"`
}

// MarshalIndent renders s as indented JSON.
func (s *Schema) MarshalIndent() ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

// From converts a schema through its description.
func From(s *vschema.Schema) (*Schema, error) {
	return FromDescription(s.Describe())
}

// FromDescription converts d into a root JSON Schema document.
func FromDescription(d *vschema.Description) (*Schema, error) {
	if d == nil {
		return nil, fmt.Errorf("jsonschema: nil description")
	}
	out := convert(d)
	out.SchemaURI = Draft
	return out, nil
}

func convert(d *vschema.Description) *Schema {
	s := &Schema{Title: d.Label, Description: d.Description}
	typ := d.Type
	if d.Base != "" {
		typ = d.Base
	}
	switch vschema.Type(typ) {
	case vschema.TypeString:
		s.Type = "string"
		stringRules(s, d.Rules)
	case vschema.TypeNumber:
		s.Type = "number"
		numberRules(s, d.Rules)
	case vschema.TypeBoolean:
		s.Type = "boolean"
	case vschema.TypeDate:
		s.Type = "string"
		s.Format = "date-time"
	case vschema.TypeBinary:
		s.Type = "string"
		s.ContentEncoding = "base64"
	case vschema.TypeObject:
		s.Type = "object"
		objectRules(s, d)
	case vschema.TypeArray:
		s.Type = "array"
		arrayRules(s, d)
	case vschema.TypeAlternatives:
		for _, a := range d.Alternatives {
			if a.Schema != nil {
				s.AnyOf = append(s.AnyOf, convert(a.Schema))
				continue
			}
			for _, b := range []*vschema.Description{a.Then, a.Otherwise} {
				if b != nil {
					s.AnyOf = append(s.AnyOf, convert(b))
				}
			}
		}
	}

	if v, ok := d.Flags["default"]; ok && !isRefOrFunc(v) {
		s.Default = v
	}
	s.Examples = d.Examples
	allowOnly, _ := d.Flags["allowOnly"].(bool)
	literals := literalsOf(d.Valids)
	if allowOnly && len(literals) > 0 {
		s.Enum = literals
		s.Type = nil
		s.AnyOf = nil
	} else if !allowOnly && s.Type != nil {
		for _, v := range literals {
			if v == nil {
				s.Type = []string{s.Type.(string), "null"}
				break
			}
		}
	}
	return s
}

func literalsOf(vals []any) []any {
	var out []any
	for _, v := range vals {
		if !isRefOrFunc(v) {
			out = append(out, v)
		}
	}
	return out
}

func isRefOrFunc(v any) bool {
	str, ok := v.(string)
	if !ok {
		return false
	}
	return str == "[function]" || strings.HasPrefix(str, "ref:") || strings.HasPrefix(str, "context:")
}

// limit returns a numeric rule argument, false for references.
func limit(arg any) (float64, bool) {
	if m, ok := arg.(map[string]any); ok {
		if enc, _ := m["encoding"].(string); enc != "" {
			return 0, false
		}
		arg = m["limit"]
	}
	switch n := arg.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

func intPtr(f float64) *int {
	n := int(f)
	return &n
}

func floatPtr(f float64) *float64 { return &f }

func stringRules(s *Schema, rules []vschema.RuleDescription) {
	for _, r := range rules {
		switch r.Name {
		case "min":
			if n, ok := limit(r.Arg); ok {
				s.MinLength = intPtr(n)
			}
		case "max":
			if n, ok := limit(r.Arg); ok {
				s.MaxLength = intPtr(n)
			}
		case "length":
			if n, ok := limit(r.Arg); ok {
				s.MinLength, s.MaxLength = intPtr(n), intPtr(n)
			}
		case "regex":
			if m, ok := r.Arg.(map[string]any); ok && m["invert"] != true && s.Pattern == "" {
				s.Pattern, _ = m["pattern"].(string)
			}
		case "email":
			s.Format = "email"
		case "uri":
			s.Format = "uri"
		case "guid":
			s.Format = "uuid"
		case "hostname":
			s.Format = "hostname"
		case "isoDate":
			s.Format = "date-time"
		case "ip":
			if m, ok := r.Arg.(map[string]any); ok {
				if vs, ok := m["version"].([]string); ok && len(vs) == 1 {
					s.Format = vs[0]
				}
			}
		}
	}
}

func numberRules(s *Schema, rules []vschema.RuleDescription) {
	for _, r := range rules {
		n, hasN := limit(r.Arg)
		switch r.Name {
		case "integer":
			s.Type = "integer"
		case "port":
			s.Type = "integer"
			s.Minimum, s.Maximum = floatPtr(0), floatPtr(65535)
		case "positive":
			s.ExclusiveMinimum = floatPtr(0)
		case "negative":
			s.ExclusiveMaximum = floatPtr(0)
		case "min":
			if hasN {
				s.Minimum = floatPtr(n)
			}
		case "max":
			if hasN {
				s.Maximum = floatPtr(n)
			}
		case "greater":
			if hasN {
				s.ExclusiveMinimum = floatPtr(n)
			}
		case "less":
			if hasN {
				s.ExclusiveMaximum = floatPtr(n)
			}
		case "multiple":
			if hasN {
				s.MultipleOf = floatPtr(n)
			}
		}
	}
}

func objectRules(s *Schema, d *vschema.Description) {
	if len(d.Keys) > 0 {
		s.Properties = make(map[string]*Schema, len(d.Keys))
	}
	for _, k := range d.Keys {
		if k.Schema.Flags["presence"] == "forbidden" {
			continue
		}
		s.Properties[k.Key] = convert(k.Schema)
		if k.Schema.Flags["presence"] == "required" {
			s.Required = append(s.Required, k.Key)
		}
	}
	for _, p := range d.Patterns {
		if p.Regex == "" {
			continue
		}
		if s.PatternProperties == nil {
			s.PatternProperties = map[string]*Schema{}
		}
		s.PatternProperties[p.Regex] = convert(p.Schema)
	}
	unknown, hasUnknown := d.Flags["unknown"].(bool)
	if d.KeysSet && len(d.Patterns) == 0 && !(hasUnknown && unknown) {
		s.AdditionalProperties = false
	}
	for _, r := range d.Rules {
		n, ok := limit(r.Arg)
		if !ok {
			continue
		}
		switch r.Name {
		case "min":
			s.MinProperties = intPtr(n)
		case "max":
			s.MaxProperties = intPtr(n)
		case "length":
			s.MinProperties, s.MaxProperties = intPtr(n), intPtr(n)
		}
	}
}

func arrayRules(s *Schema, d *vschema.Description) {
	switch {
	case len(d.Ordered) > 0:
		tuple := make([]*Schema, len(d.Ordered))
		for i, o := range d.Ordered {
			tuple[i] = convert(o)
		}
		s.Items = tuple
	case len(d.Items) == 1:
		s.Items = convert(d.Items[0])
	case len(d.Items) > 1:
		union := &Schema{}
		for _, it := range d.Items {
			if it.Flags["presence"] == "forbidden" {
				continue
			}
			union.AnyOf = append(union.AnyOf, convert(it))
		}
		s.Items = union
	}
	for _, r := range d.Rules {
		if r.Name == "unique" && r.Arg == nil {
			s.UniqueItems = true
			continue
		}
		n, ok := limit(r.Arg)
		if !ok {
			continue
		}
		switch r.Name {
		case "min":
			s.MinItems = intPtr(n)
		case "max":
			s.MaxItems = intPtr(n)
		case "length":
			s.MinItems, s.MaxItems = intPtr(n), intPtr(n)
		}
	}
}
