package engine

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"

	json "github.com/goccy/go-json"
)

// Kind represents token kinds of a JSON document.
type Kind int

const (
	KindBeginObject Kind = iota
	KindEndObject
	KindBeginArray
	KindEndArray
	KindKey
	KindString
	KindNumber
	KindBool
	KindNull
)

// Token is one streaming token with the input offset after it.
type Token struct {
	Kind   Kind
	String string
	Number string
	Bool   bool
	Offset int64
}

// TokenSource yields tokens of a single document.
type TokenSource interface {
	NextToken() (Token, error)
	Location() int64
}

type frame struct {
	object       bool
	expectingKey bool
}

// jsonSource adapts the go-json decoder token API. go-json reports keys and
// string values alike, so the container stack tells them apart.
type jsonSource struct {
	dec   *json.Decoder
	stack []frame
}

// NewReader returns a TokenSource reading JSON from r.
func NewReader(r io.Reader) TokenSource {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	return &jsonSource{dec: dec}
}

// NewBytes returns a TokenSource over b.
func NewBytes(b []byte) TokenSource { return NewReader(bytes.NewReader(b)) }

// valueDone flips the enclosing object back to expecting a key.
func (s *jsonSource) valueDone() {
	if n := len(s.stack); n > 0 {
		top := &s.stack[n-1]
		if top.object && !top.expectingKey {
			top.expectingKey = true
		}
	}
}

func (s *jsonSource) NextToken() (Token, error) {
	tok, err := s.dec.Token()
	if err != nil {
		return Token{}, err
	}
	off := s.dec.InputOffset()
	switch v := tok.(type) {
	case json.Delim:
		switch v {
		case '{':
			s.stack = append(s.stack, frame{object: true, expectingKey: true})
			return Token{Kind: KindBeginObject, Offset: off}, nil
		case '[':
			s.stack = append(s.stack, frame{})
			return Token{Kind: KindBeginArray, Offset: off}, nil
		case '}', ']':
			if n := len(s.stack); n > 0 {
				s.stack = s.stack[:n-1]
			}
			s.valueDone()
			if v == '}' {
				return Token{Kind: KindEndObject, Offset: off}, nil
			}
			return Token{Kind: KindEndArray, Offset: off}, nil
		}
	case string:
		if n := len(s.stack); n > 0 {
			top := &s.stack[n-1]
			if top.object && top.expectingKey {
				top.expectingKey = false
				return Token{Kind: KindKey, String: v, Offset: off}, nil
			}
		}
		s.valueDone()
		return Token{Kind: KindString, String: v, Offset: off}, nil
	case bool:
		s.valueDone()
		return Token{Kind: KindBool, Bool: v, Offset: off}, nil
	case json.Number:
		s.valueDone()
		return Token{Kind: KindNumber, Number: string(v), Offset: off}, nil
	case float64:
		s.valueDone()
		return Token{Kind: KindNumber, Number: strconv.FormatFloat(v, 'g', -1, 64), Offset: off}, nil
	case nil:
		s.valueDone()
		return Token{Kind: KindNull, Offset: off}, nil
	}
	return Token{}, fmt.Errorf("engine: unexpected token %T", tok)
}

func (s *jsonSource) Location() int64 { return s.dec.InputOffset() }

var errUnexpected = errors.New("engine: unexpected token")
