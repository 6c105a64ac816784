// Package vschema provides:
//
//   - Immutable, chainable schema builders (String, Number, Object, Array, Alternatives, ...)
//   - Validation with conversion, defaults and unknown-key stripping
//   - A stable error model (ErrorItem: message, type, path, context) with localized templates
//   - Describe/Build for serializable schema descriptions (JSON or YAML)
//   - Extensions: new types and rules registered on an Engine
//
// Design policy:
//   - Builders return new nodes; a Schema can be shared between goroutines.
//   - Misuse of a builder panics with *SchemaError. Compile, Build and Extend
//     recover it and return an error.
//   - Validation failures are values (Result.Error), never panics.
//
// Typical usage:
//
//	s := vschema.Object(map[string]any{
//		"name": vschema.String().Min(2).Required(),
//		"age":  vschema.Number().Integer().Min(0),
//	})
//	res := s.Validate(input, vschema.AbortEarly(false))
//	if res.Error != nil {
//		fmt.Println(res.Error.Annotate())
//	}
//
// The jsonschema sub-package exports descriptions as JSON Schema, middleware
// validates HTTP request bodies and ext/celrule builds rules from CEL
// expressions.
package vschema
