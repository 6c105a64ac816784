package vschema

// Type tags a Schema node with the kind of value it validates.
type Type string

const (
	TypeAny          Type = "any"
	TypeAlternatives Type = "alternatives"
	TypeArray        Type = "array"
	TypeBinary       Type = "binary"
	TypeBoolean      Type = "boolean"
	TypeDate         Type = "date"
	TypeFunction     Type = "function"
	TypeLazy         Type = "lazy"
	TypeNumber       Type = "number"
	TypeObject       Type = "object"
	TypeString       Type = "string"
	TypeSymbol       Type = "symbol"
)

// Presence controls whether a value must, may, or must not be present.
type Presence string

const (
	PresenceOptional  Presence = "optional"
	PresenceRequired  Presence = "required"
	PresenceForbidden Presence = "forbidden"
	// presenceIgnore lets absent values flow into the node (used by When).
	presenceIgnore Presence = "ignore"
)

// UndefinedValue is the type of Undefined.
type UndefinedValue struct{}

func (UndefinedValue) String() string { return "undefined" }

// Undefined marks an absent value: a missing object key, a hole in a sparse
// array, or an absent top-level input.
var Undefined = UndefinedValue{}

func isUndefined(v any) bool {
	_, ok := v.(UndefinedValue)
	return ok
}

// Sym is an opaque, identity-compared token validated by Symbol schemas.
// Two symbols are equal only when they are the same pointer.
type Sym struct{ desc string }

// NewSymbol returns a new unique Sym with the given description.
func NewSymbol(desc string) *Sym { return &Sym{desc: desc} }

func (s *Sym) String() string { return "Symbol(" + s.desc + ")" }

// StripUnknown selects which unknown elements are removed from the output.
type StripUnknown struct {
	Objects bool
	Arrays  bool
}

// Options bundles validation options. The zero value is not the default;
// use DefaultOptions.
type Options struct {
	AbortEarly    bool
	Convert       bool
	AllowUnknown  bool
	SkipFunctions bool
	StripUnknown  StripUnknown
	// Language overrides error templates, e.g.
	// {"number": {"min": "too small"}, "key": "{{!label}}: "}.
	Language map[string]any
	Presence Presence
	// Context is the external data set used by context references ($key).
	Context    map[string]any
	NoDefaults bool
	// Locale selects the built-in message catalog (BCP 47 tag).
	Locale string
}

// DefaultOptions returns the options used when none are given.
func DefaultOptions() Options {
	return Options{
		AbortEarly: true,
		Convert:    true,
		Presence:   PresenceOptional,
	}
}

// Option mutates Options.
type Option func(*Options)

// AbortEarly stops validation at the first error when enabled (default true).
func AbortEarly(enabled bool) Option { return func(o *Options) { o.AbortEarly = enabled } }

// Convert enables type coercion (default true).
func Convert(enabled bool) Option { return func(o *Options) { o.Convert = enabled } }

// AllowUnknown keeps unknown object keys instead of failing (default false).
func AllowUnknown(enabled bool) Option { return func(o *Options) { o.AllowUnknown = enabled } }

// SkipFunctions ignores unknown keys holding function values.
func SkipFunctions(enabled bool) Option { return func(o *Options) { o.SkipFunctions = enabled } }

// StripUnknownAll removes unknown keys from objects and unmatched items from arrays.
func StripUnknownAll(enabled bool) Option {
	return func(o *Options) { o.StripUnknown = StripUnknown{Objects: enabled, Arrays: enabled} }
}

// StripUnknownWith sets object and array stripping independently.
func StripUnknownWith(s StripUnknown) Option { return func(o *Options) { o.StripUnknown = s } }

// WithLanguage overrides error templates for the call.
func WithLanguage(lang map[string]any) Option { return func(o *Options) { o.Language = lang } }

// WithPresence sets the default presence for nodes that do not declare one.
func WithPresence(p Presence) Option { return func(o *Options) { o.Presence = p } }

// WithContext supplies the external data set for context references.
func WithContext(ctx map[string]any) Option { return func(o *Options) { o.Context = ctx } }

// NoDefaults disables default values.
func NoDefaults(enabled bool) Option { return func(o *Options) { o.NoDefaults = enabled } }

// WithLocale selects the built-in message catalog.
func WithLocale(tag string) Option { return func(o *Options) { o.Locale = tag } }

func buildOptions(opts []Option) *Options {
	o := DefaultOptions()
	for _, fn := range opts {
		if fn != nil {
			fn(&o)
		}
	}
	return &o
}

// with returns a copy of o with node-level options applied.
func (o *Options) with(opts []Option) *Options {
	if len(opts) == 0 {
		return o
	}
	cp := *o
	for _, fn := range opts {
		if fn != nil {
			fn(&cp)
		}
	}
	return &cp
}

// StripUnknownObjects removes unknown object keys only.
func StripUnknownObjects(enabled bool) Option {
	return func(o *Options) { o.StripUnknown.Objects = enabled }
}

// StripUnknownArrays removes array items that match no item schema.
func StripUnknownArrays(enabled bool) Option {
	return func(o *Options) { o.StripUnknown.Arrays = enabled }
}
