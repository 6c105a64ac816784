package engine

import (
	"strconv"
	"strings"
)

// DuplicateMode controls how repeated object keys are treated.
type DuplicateMode int

const (
	// DupIgnore keeps the last value.
	DupIgnore DuplicateMode = iota
	// DupWarn reports the key to IssueSink and keeps the last value.
	DupWarn
	// DupError fails the decode.
	DupError
)

// Issue describes an enforcement failure at a JSON Pointer path.
type Issue struct {
	Code    string // duplicate_key, max_depth, max_bytes
	Path    string
	Message string
}

// IssueError carries an Issue as an error.
type IssueError struct{ Issue }

func (e IssueError) Error() string { return e.Message + " at " + e.Path }

// EnforceOptions controls WrapWithEnforcement.
type EnforceOptions struct {
	OnDuplicate DuplicateMode
	MaxDepth    int
	MaxBytes    int64
	// IssueSink receives non-fatal issues (duplicate keys under DupWarn).
	IssueSink func(Issue)
}

type enforceFrame struct {
	object     bool
	keys       map[string]struct{}
	path       string
	nextIndex  int
	pendingKey string
}

// WrapWithEnforcement returns a TokenSource that fails on duplicate keys,
// excessive nesting, or input beyond MaxBytes.
func WrapWithEnforcement(inner TokenSource, opt EnforceOptions) TokenSource {
	return &enforcingSource{inner: inner, opt: opt}
}

type enforcingSource struct {
	inner TokenSource
	opt   EnforceOptions
	stack []enforceFrame
}

func (e *enforcingSource) fail(code, path, msg string) error {
	if path == "" {
		path = "/"
	}
	return IssueError{Issue{Code: code, Path: path, Message: msg}}
}

// valuePath returns the path of the value starting at the current token.
func (e *enforcingSource) valuePath() string {
	n := len(e.stack)
	if n == 0 {
		return ""
	}
	top := &e.stack[n-1]
	if top.object {
		return joinPointer(top.path, top.pendingKey)
	}
	p := joinPointer(top.path, strconv.Itoa(top.nextIndex))
	top.nextIndex++
	return p
}

func (e *enforcingSource) NextToken() (Token, error) {
	tok, err := e.inner.NextToken()
	if err != nil {
		return Token{}, err
	}
	if e.opt.MaxBytes > 0 && tok.Offset > e.opt.MaxBytes {
		return Token{}, e.fail("max_bytes", e.currentPath(), "max bytes exceeded")
	}
	switch tok.Kind {
	case KindBeginObject, KindBeginArray:
		path := e.valuePath()
		if e.opt.MaxDepth > 0 && len(e.stack)+1 > e.opt.MaxDepth {
			return Token{}, e.fail("max_depth", path, "max depth exceeded")
		}
		f := enforceFrame{object: tok.Kind == KindBeginObject, path: path}
		if f.object {
			f.keys = map[string]struct{}{}
		}
		e.stack = append(e.stack, f)
	case KindEndObject, KindEndArray:
		if n := len(e.stack); n > 0 {
			e.stack = e.stack[:n-1]
		}
	case KindKey:
		if n := len(e.stack); n > 0 {
			top := &e.stack[n-1]
			if _, dup := top.keys[tok.String]; dup && e.opt.OnDuplicate != DupIgnore {
				is := Issue{Code: "duplicate_key", Path: joinPointer(top.path, tok.String), Message: "key '" + tok.String + "' duplicated"}
				if e.opt.OnDuplicate == DupError {
					return Token{}, IssueError{is}
				}
				if e.opt.IssueSink != nil {
					e.opt.IssueSink(is)
				}
			}
			top.keys[tok.String] = struct{}{}
			top.pendingKey = tok.String
		}
	default:
		e.valuePath()
	}
	return tok, nil
}

func (e *enforcingSource) currentPath() string {
	if n := len(e.stack); n > 0 {
		return e.stack[n-1].path
	}
	return ""
}

func (e *enforcingSource) Location() int64 { return e.inner.Location() }

var pointerEscaper = strings.NewReplacer("~", "~0", "/", "~1")

func joinPointer(base, token string) string {
	return base + "/" + pointerEscaper.Replace(token)
}
