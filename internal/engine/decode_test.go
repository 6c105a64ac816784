package engine_test

import (
	"errors"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"

	"github.com/reoring/vschema/internal/engine"
)

func TestDecodeString_Float64Numbers(t *testing.T) {
	v, err := engine.DecodeString(`{"a":1,"b":[true,null,"x",2.5],"c":{}}`, engine.DecodeOptions{Numbers: engine.NumberFloat64})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	want := map[string]any{
		"a": float64(1),
		"b": []any{true, nil, "x", 2.5},
		"c": map[string]any{},
	}
	if diff := cmp.Diff(want, v); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeString_JSONNumbers(t *testing.T) {
	v, err := engine.DecodeString(`[12345678901234567890]`, engine.DecodeOptions{})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	arr := v.([]any)
	if n, ok := arr[0].(json.Number); !ok || n.String() != "12345678901234567890" {
		t.Fatalf("expected json.Number, got %T %v", arr[0], arr[0])
	}
}

func TestDecodeString_EmptyArrayIsNotNil(t *testing.T) {
	v, err := engine.DecodeString(`[]`, engine.DecodeOptions{})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if arr, ok := v.([]any); !ok || arr == nil {
		t.Fatalf("expected empty non-nil slice, got %#v", v)
	}
}

func TestDecode_DuplicateKeyError(t *testing.T) {
	_, err := engine.DecodeString(`{"a":{"b":1,"b":2}}`, engine.DecodeOptions{OnDuplicate: engine.DupError})
	var ie engine.IssueError
	if !errors.As(err, &ie) {
		t.Fatalf("expected IssueError, got %v", err)
	}
	if ie.Code != "duplicate_key" || ie.Path != "/a/b" {
		t.Fatalf("unexpected issue: %+v", ie.Issue)
	}
}

func TestDecode_DuplicateKeyIgnoredKeepsLast(t *testing.T) {
	v, err := engine.DecodeString(`{"a":1,"a":2}`, engine.DecodeOptions{Numbers: engine.NumberFloat64})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got := v.(map[string]any)["a"]; got != float64(2) {
		t.Fatalf("expected last value, got %v", got)
	}
}

func TestDecode_DuplicateKeyWarnReportsToSink(t *testing.T) {
	var issues []engine.Issue
	src := engine.WrapWithEnforcement(engine.NewBytes([]byte(`{"x":1,"x":2}`)), engine.EnforceOptions{
		OnDuplicate: engine.DupWarn,
		IssueSink:   func(is engine.Issue) { issues = append(issues, is) },
	})
	for {
		if _, err := src.NextToken(); err != nil {
			break
		}
	}
	if len(issues) != 1 || issues[0].Path != "/x" {
		t.Fatalf("unexpected issues: %+v", issues)
	}
}

func TestDecode_DuplicateKeyWarnThroughDecode(t *testing.T) {
	var issues []engine.Issue
	v, err := engine.DecodeString(`{"o":{"k":1,"k":2}}`, engine.DecodeOptions{
		Numbers:     engine.NumberFloat64,
		OnDuplicate: engine.DupWarn,
		IssueSink:   func(is engine.Issue) { issues = append(issues, is) },
	})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got := v.(map[string]any)["o"].(map[string]any)["k"]; got != float64(2) {
		t.Fatalf("expected last value, got %v", got)
	}
	if len(issues) != 1 || issues[0].Code != "duplicate_key" || issues[0].Path != "/o/k" {
		t.Fatalf("unexpected issues: %+v", issues)
	}
}

func TestDecode_MaxDepth(t *testing.T) {
	_, err := engine.DecodeString(`{"a":[[1]]}`, engine.DecodeOptions{MaxDepth: 2})
	var ie engine.IssueError
	if !errors.As(err, &ie) || ie.Code != "max_depth" {
		t.Fatalf("expected max_depth, got %v", err)
	}
	if ie.Path != "/a/0" {
		t.Fatalf("unexpected path %q", ie.Path)
	}
	if _, err := engine.DecodeString(`{"a":[1]}`, engine.DecodeOptions{MaxDepth: 2}); err != nil {
		t.Fatalf("depth 2 should pass: %v", err)
	}
}

func TestDecode_MaxBytes(t *testing.T) {
	body := `{"a":"` + strings.Repeat("x", 64) + `"}`
	_, err := engine.Decode(strings.NewReader(body), engine.DecodeOptions{MaxBytes: 16})
	var ie engine.IssueError
	if !errors.As(err, &ie) || ie.Code != "max_bytes" {
		t.Fatalf("expected max_bytes, got %v", err)
	}
}

func TestDecode_Malformed(t *testing.T) {
	for _, in := range []string{``, `{"a":`, `{"a":1} {"b":2}`} {
		if _, err := engine.DecodeString(in, engine.DecodeOptions{}); err == nil {
			t.Fatalf("expected error for %q", in)
		}
	}
}
