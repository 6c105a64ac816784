package vschema

import (
	"fmt"
	"regexp"
	"strings"
)

// Result is the outcome of Validate. Value holds the coerced output even
// when Error is set.
type Result struct {
	Error *ValidationError
	Value any
}

// Err returns Error as an error interface, nil on success.
func (r Result) Err() error {
	if r.Error == nil {
		return nil
	}
	return r.Error
}

// Validate checks value against schemaLike with the default engine.
func Validate(value any, schemaLike any, opts ...Option) Result {
	return defaultEngine.Validate(value, schemaLike, opts...)
}

// Validate checks value against schemaLike. A schemaLike that cannot be
// compiled panics with *SchemaError.
func (e *Engine) Validate(value any, schemaLike any, opts ...Option) Result {
	return e.compile(schemaLike).validate(value, buildOptions(opts))
}

// Validate checks value against s.
func (s *Schema) Validate(value any, opts ...Option) Result {
	return s.validate(value, buildOptions(opts))
}

// ValidateCallback runs Validate and hands the outcome to cb.
func ValidateCallback(value any, schemaLike any, cb func(err error, value any), opts ...Option) {
	res := Validate(value, schemaLike, opts...)
	cb(res.Err(), res.Value)
}

// Compile converts a schema-like value into a *Schema:
//
//	nil                         -> Any().Valid(nil)
//	string, bool, numbers       -> String/Boolean/Number().Valid(v)
//	*regexp.Regexp              -> String().Regex(re)
//	map[string]any              -> Object().Keys(m)
//	[]any                       -> Alternatives().Try(items...)
//	*Reference                  -> Any().Valid(ref)
//	*Schema                     -> itself
func Compile(schemaLike any) (*Schema, error) { return defaultEngine.Compile(schemaLike) }

// Compile is the engine-bound variant of the package-level Compile.
func (e *Engine) Compile(schemaLike any) (s *Schema, err error) {
	defer catchSchemaError(&err)
	return e.compile(schemaLike), nil
}

func (e *Engine) compile(schemaLike any) *Schema {
	switch x := schemaLike.(type) {
	case *Schema:
		if x == nil {
			schemaPanic("compile", ErrInvalidSchema, "nil schema")
		}
		return x
	case nil:
		return e.Any().Valid(nil)
	case string:
		return e.String().Valid(x)
	case bool:
		return e.Boolean().Valid(x)
	case *regexp.Regexp:
		return e.String().Regex(x)
	case *Reference:
		return e.Any().Valid(x)
	case map[string]any:
		return e.Object(x)
	case []any:
		if len(x) == 0 {
			schemaPanic("compile", ErrInvalidSchema, "empty alternatives")
		}
		return e.Alternatives(x...)
	}
	if _, ok := toFloat(schemaLike); ok {
		return e.Number().Valid(schemaLike)
	}
	if isUndefined(schemaLike) {
		schemaPanic("compile", ErrInvalidSchema, "undefined schema")
	}
	if m, ok := asMap(schemaLike); ok {
		return e.Object(m)
	}
	schemaPanic("compile", ErrInvalidSchema, "cannot compile %T", schemaLike)
	return nil
}

// Assert validates value and returns the error, prefixed with message.
func Assert(value any, schemaLike any, message ...string) error {
	_, err := Attempt(value, schemaLike, message...)
	return err
}

// Attempt validates value and returns the coerced value or the error,
// prefixed with message. The *ValidationError is wrapped and can be
// recovered with AsValidationError.
func Attempt(value any, schemaLike any, message ...string) (any, error) {
	s, err := Compile(schemaLike)
	if err != nil {
		return nil, err
	}
	res := s.validate(value, buildOptions(nil))
	if res.Error == nil {
		return res.Value, nil
	}
	if len(message) > 0 && message[0] != "" {
		return res.Value, fmt.Errorf("%s %w", strings.TrimSpace(message[0]), res.Error)
	}
	return res.Value, res.Error
}

// Reach returns the descendant schema at path ("a.b" or []string) inside
// object schemas, or nil when there is none.
func Reach(schema *Schema, path any) *Schema {
	var segs []string
	switch p := path.(type) {
	case string:
		if p == "" {
			return schema
		}
		segs = strings.Split(p, ".")
	case []string:
		segs = p
	default:
		schemaPanic("reach", ErrInvalidSchema, "path must be a string or []string, got %T", path)
	}
	cur := schema
	for _, seg := range segs {
		if cur == nil || cur.typ != TypeObject {
			return nil
		}
		cur = cur.object.child(seg)
	}
	return cur
}
