package vschema

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Context carries the template parameters of an ErrorItem. It always holds
// "key" and "label"; rules add their own fields (for example "limit").
type Context map[string]any

// ErrorItem describes one validation failure.
type ErrorItem struct {
	Message string
	// Type identifies the failed rule as <domain>.<rule>, e.g. "number.min".
	Type    string
	Path    []any // string keys and int indices
	Context Context
}

// PathString renders Path in dotted form, e.g. "items.2.price".
func (it *ErrorItem) PathString() string {
	b := &strings.Builder{}
	for i, seg := range it.Path {
		if i > 0 {
			b.WriteByte('.')
		}
		switch s := seg.(type) {
		case string:
			b.WriteString(s)
		case int:
			b.WriteString(strconv.Itoa(s))
		default:
			fmt.Fprint(b, s)
		}
	}
	return b.String()
}

// ValidationError aggregates the failures of one validate call.
type ValidationError struct {
	Details []*ErrorItem
	// Object is the original input, retained for Annotate.
	Object any
}

func newValidationError(items []*ErrorItem, object any) *ValidationError {
	return &ValidationError{Details: items, Object: object}
}

// Error joins the detail messages.
func (e *ValidationError) Error() string {
	if e == nil || len(e.Details) == 0 {
		return "validation failed"
	}
	msgs := make([]string, 0, len(e.Details))
	for _, it := range e.Details {
		msgs = append(msgs, it.Message)
	}
	return strings.Join(msgs, ". ")
}

// IsValidationError reports whether err is or wraps a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// AsValidationError extracts a *ValidationError from err.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// Build-time faults.
var (
	ErrInvalidSchema = errors.New("invalid schema")
	ErrUnknownRule   = errors.New("unknown rule")
	ErrDuplicateRule = errors.New("duplicate rule")
	ErrNotBuildable  = errors.New("description cannot be rebuilt")
)

// SchemaError is a build-time fault raised by a builder call.
type SchemaError struct {
	Op  string
	Err error
}

func (e *SchemaError) Error() string { return "vschema: " + e.Op + ": " + e.Err.Error() }

func (e *SchemaError) Unwrap() error { return e.Err }

func schemaPanic(op string, sentinel error, format string, args ...any) {
	panic(&SchemaError{Op: op, Err: fmt.Errorf("%w: "+format, append([]any{sentinel}, args...)...)})
}

// catchSchemaError converts a SchemaError panic into an error. Other panics
// are re-raised.
func catchSchemaError(err *error) {
	r := recover()
	if r == nil {
		return
	}
	if se, ok := r.(*SchemaError); ok {
		*err = se
		return
	}
	panic(r)
}

// ruleError is returned by extension hooks through HookContext.Error.
type ruleError struct{ item *ErrorItem }

func (e *ruleError) Error() string { return e.item.Message }
