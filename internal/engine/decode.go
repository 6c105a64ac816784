package engine

import (
	"errors"
	"io"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
)

// NumberMode selects the Go type of decoded numbers.
type NumberMode int

const (
	// NumberJSON keeps numbers as json.Number.
	NumberJSON NumberMode = iota
	// NumberFloat64 converts numbers to float64.
	NumberFloat64
)

// DecodeOptions controls Decode. Zero limits mean unlimited.
type DecodeOptions struct {
	Numbers     NumberMode
	OnDuplicate DuplicateMode
	MaxDepth    int
	MaxBytes    int64
	// IssueSink receives duplicate keys under DupWarn.
	IssueSink func(Issue)
}

// Decode reads exactly one JSON document from r into map[string]any, []any
// and scalar values, applying the duplicate-key, depth and size limits.
func Decode(r io.Reader, opt DecodeOptions) (any, error) {
	src := NewReader(r)
	if opt.OnDuplicate != DupIgnore || opt.MaxDepth > 0 || opt.MaxBytes > 0 {
		src = WrapWithEnforcement(src, EnforceOptions{
			OnDuplicate: opt.OnDuplicate,
			MaxDepth:    opt.MaxDepth,
			MaxBytes:    opt.MaxBytes,
			IssueSink:   opt.IssueSink,
		})
	}
	d := decoder{src: src, numbers: opt.Numbers}
	tok, err := src.NextToken()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}
	v, err := d.value(tok)
	if err != nil {
		return nil, err
	}
	if _, err := src.NextToken(); !errors.Is(err, io.EOF) {
		if err == nil {
			return nil, errTrailing
		}
		return nil, err
	}
	return v, nil
}

// DecodeString decodes a JSON document held in s.
func DecodeString(s string, opt DecodeOptions) (any, error) {
	return Decode(strings.NewReader(s), opt)
}

var errTrailing = errors.New("engine: trailing data after document")

type decoder struct {
	src     TokenSource
	numbers NumberMode
}

func (d *decoder) next() (Token, error) {
	tok, err := d.src.NextToken()
	if errors.Is(err, io.EOF) {
		return Token{}, io.ErrUnexpectedEOF
	}
	return tok, err
}

func (d *decoder) value(tok Token) (any, error) {
	switch tok.Kind {
	case KindBeginObject:
		return d.object()
	case KindBeginArray:
		return d.array()
	case KindString:
		return tok.String, nil
	case KindNumber:
		if d.numbers == NumberFloat64 {
			return strconv.ParseFloat(tok.Number, 64)
		}
		return json.Number(tok.Number), nil
	case KindBool:
		return tok.Bool, nil
	case KindNull:
		return nil, nil
	}
	return nil, errUnexpected
}

func (d *decoder) object() (any, error) {
	m := make(map[string]any)
	for {
		tok, err := d.next()
		if err != nil {
			return nil, err
		}
		if tok.Kind == KindEndObject {
			return m, nil
		}
		if tok.Kind != KindKey {
			return nil, errUnexpected
		}
		vt, err := d.next()
		if err != nil {
			return nil, err
		}
		v, err := d.value(vt)
		if err != nil {
			return nil, err
		}
		m[tok.String] = v
	}
}

func (d *decoder) array() (any, error) {
	arr := []any{}
	for {
		tok, err := d.next()
		if err != nil {
			return nil, err
		}
		if tok.Kind == KindEndArray {
			return arr, nil
		}
		v, err := d.value(tok)
		if err != nil {
			return nil, err
		}
		arr = append(arr, v)
	}
}
