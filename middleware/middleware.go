// Package middleware validates JSON request bodies against a vschema schema
// at the net/http boundary.
package middleware

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	json "github.com/goccy/go-json"
	"golang.org/x/text/language"

	"github.com/reoring/vschema"
	"github.com/reoring/vschema/i18n"
	"github.com/reoring/vschema/internal/engine"
)

type ctxKeyValue struct{}

// ContextWithValue attaches a validated body to ctx.
func ContextWithValue(ctx context.Context, v any) context.Context {
	return context.WithValue(ctx, ctxKeyValue{}, v)
}

// ValueFromContext returns the validated body stored by Validate.
func ValueFromContext(ctx context.Context) (any, bool) {
	v, ok := ctx.Value(ctxKeyValue{}).(any)
	return v, ok && v != nil
}

// Options configures Validate. The zero value rejects duplicate keys and
// applies no size or depth limit.
type Options struct {
	MaxBytes int64
	MaxDepth int
	// AllowDuplicateKeys keeps the last value of a repeated key and logs it
	// at Debug.
	AllowDuplicateKeys bool
	// Validation is applied to every request. A locale taken from
	// Accept-Language is appended.
	Validation []vschema.Option
	Logger     *slog.Logger
	// ErrorHandler replaces the default 400 JSON response.
	ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)
}

// ErrorDetail is one entry of the error payload.
type ErrorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Path    []any  `json:"path"`
}

// ErrorPayload is the JSON body written on failure.
type ErrorPayload struct {
	Error   string        `json:"error"`
	Details []ErrorDetail `json:"details,omitempty"`
}

// NewErrorPayload shapes err for a JSON response.
func NewErrorPayload(err error) ErrorPayload {
	if ve, ok := vschema.AsValidationError(err); ok {
		p := ErrorPayload{Error: "validation failed", Details: make([]ErrorDetail, 0, len(ve.Details))}
		for _, it := range ve.Details {
			p.Details = append(p.Details, ErrorDetail{Message: it.Message, Type: it.Type, Path: it.Path})
		}
		return p
	}
	var ie engine.IssueError
	if errors.As(err, &ie) {
		return ErrorPayload{Error: "malformed body", Details: []ErrorDetail{{Message: ie.Message, Type: ie.Code, Path: []any{ie.Path}}}}
	}
	return ErrorPayload{Error: err.Error()}
}

// Validate decodes the request body, validates it with schema and stores the
// validated value in the request context. Failures get a 400 response.
func Validate(schema *vschema.Schema, opt Options) func(http.Handler) http.Handler {
	logger := opt.Logger
	if logger == nil {
		logger = slog.Default()
	}
	onError := opt.ErrorHandler
	if onError == nil {
		onError = writeError
	}
	dup := engine.DupError
	if opt.AllowDuplicateKeys {
		dup = engine.DupWarn
	}
	dopt := engine.DecodeOptions{
		Numbers:     engine.NumberFloat64,
		OnDuplicate: dup,
		MaxDepth:    opt.MaxDepth,
		MaxBytes:    opt.MaxBytes,
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var src io.Reader = r.Body
			if opt.MaxBytes > 0 {
				src = http.MaxBytesReader(w, r.Body, opt.MaxBytes)
			}
			d := dopt
			if dup == engine.DupWarn {
				d.IssueSink = func(is engine.Issue) {
					logger.DebugContext(r.Context(), "duplicate key in request body", "path", r.URL.Path, "pointer", is.Path)
				}
			}
			body, err := engine.Decode(src, d)
			if err != nil {
				logger.DebugContext(r.Context(), "request body rejected", "path", r.URL.Path, "error", err)
				onError(w, r, err)
				return
			}
			opts := opt.Validation
			if loc := locale(r); loc != "" {
				opts = append(opts[:len(opts):len(opts)], vschema.WithLocale(loc))
			}
			res := schema.Validate(body, opts...)
			if res.Error != nil {
				logger.DebugContext(r.Context(), "request validation failed", "path", r.URL.Path, "errors", len(res.Error.Details))
				onError(w, r, res.Error)
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithValue(r.Context(), res.Value)))
		})
	}
}

// locale picks the registered language best matching Accept-Language.
func locale(r *http.Request) string {
	h := r.Header.Get("Accept-Language")
	if h == "" {
		return ""
	}
	tags, _, err := language.ParseAcceptLanguage(h)
	if err != nil || len(tags) == 0 {
		return ""
	}
	return i18n.Match(tags[0].String())
}

func writeError(w http.ResponseWriter, _ *http.Request, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	_ = json.NewEncoder(w).Encode(NewErrorPayload(err))
}
