package vschema_test

import (
	"bytes"
	"regexp"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/reoring/vschema"
)

func mustPass(t *testing.T, s *vschema.Schema, v any, opts ...vschema.Option) any {
	t.Helper()
	res := s.Validate(v, opts...)
	if res.Error != nil {
		t.Fatalf("%v rejected %#v: %v", s, v, res.Error)
	}
	return res.Value
}

func mustFail(t *testing.T, s *vschema.Schema, v any, typ string, opts ...vschema.Option) *vschema.ErrorItem {
	t.Helper()
	res := s.Validate(v, opts...)
	if res.Error == nil {
		t.Fatalf("%v accepted %#v", s, v)
	}
	if got := res.Error.Details[0].Type; got != typ {
		t.Fatalf("expected %s for %#v, got %s (%s)", typ, v, got, res.Error.Details[0].Message)
	}
	return res.Error.Details[0]
}

func TestString_Rules(t *testing.T) {
	mustPass(t, vschema.String().Min(2).Max(4), "äöü")
	mustFail(t, vschema.String().Min(2), "a", "string.min")
	mustFail(t, vschema.String().Max(2, "utf8"), "äö", "string.max")
	mustFail(t, vschema.String().Length(3), "ab", "string.length")
	mustPass(t, vschema.String().Alphanum(), "abc123")
	mustFail(t, vschema.String().Token(), "a-b", "string.token")
	mustPass(t, vschema.String().Email(), "ann@example.com")
	mustFail(t, vschema.String().Email(), "not-an-email", "string.email")
	mustPass(t, vschema.String().GUID(), "3b241101-e2bb-4255-8caf-4136c566a962")
	mustFail(t, vschema.String().GUID(), "3b241101", "string.guid")
	mustPass(t, vschema.String().Hostname(), "api.example.com")
	mustPass(t, vschema.String().IP(), "192.168.0.1")
	mustPass(t, vschema.String().URI(), "https://example.com/a?b=c")
	mustFail(t, vschema.String().URI(), "::nope", "string.uri")
	mustPass(t, vschema.String().Hex(), "deadBEEF")
	mustPass(t, vschema.String().Base64(), "aGVsbG8=")
	mustFail(t, vschema.String().CreditCard(), "4111111111111112", "string.creditCard")
	mustPass(t, vschema.String().ISODate(), "2024-02-29T10:00:00Z")
}

func TestString_Conversions(t *testing.T) {
	if got := mustPass(t, vschema.String().Trim().Lowercase(), "  HeLLo "); got != "hello" {
		t.Fatalf("unexpected value %q", got)
	}
	mustFail(t, vschema.String().Trim(), " x ", "string.trim", vschema.Convert(false))
	if got := mustPass(t, vschema.String().Max(3).Truncate(), "abcdef"); got != "abc" {
		t.Fatalf("truncate gave %q", got)
	}
	if got := mustPass(t, vschema.String().Replace(regexp.MustCompile(`\s+`), "-"), "a b  c"); got != "a-b-c" {
		t.Fatalf("replace gave %q", got)
	}
	if got := mustPass(t, vschema.String().Normalize("NFC"), "é"); got != "é" {
		t.Fatalf("normalize gave %q", got)
	}
	mustFail(t, vschema.String().Regex(`^\d+$`), "12a", "string.regex.base")
	mustFail(t, vschema.String().Regex(`^\d+$`, vschema.RegexOptions{Invert: true}), "12", "string.regex.invert.base")
}

func TestNumber_Rules(t *testing.T) {
	if got := mustPass(t, vschema.Number(), "3.5"); got != 3.5 {
		t.Fatalf("string not converted: %#v", got)
	}
	mustFail(t, vschema.Number(), "3.5", "number.base", vschema.Convert(false))
	mustFail(t, vschema.Number().Strict(), "3.5", "number.base")
	mustFail(t, vschema.Number().Integer(), 1.5, "number.integer")
	mustFail(t, vschema.Number().Min(2), 1, "number.min")
	mustFail(t, vschema.Number().Greater(2), 2, "number.greater")
	mustFail(t, vschema.Number().Less(2), 2, "number.less")
	mustFail(t, vschema.Number().Positive(), 0, "number.positive")
	mustFail(t, vschema.Number().Negative(), 0, "number.negative")
	mustFail(t, vschema.Number().Multiple(3), 10, "number.multiple")
	mustFail(t, vschema.Number().Port(), 70000, "number.port")
	if got := mustPass(t, vschema.Number().Precision(2), 1.006); got != 1.01 {
		t.Fatalf("precision rounding gave %v", got)
	}
	mustFail(t, vschema.Number(), "NaN", "number.base")
}

func TestBoolean_TruthyFalsy(t *testing.T) {
	if got := mustPass(t, vschema.Boolean(), "TRUE"); got != true {
		t.Fatalf("unexpected %v", got)
	}
	mustFail(t, vschema.Boolean().Sensitive(), "TRUE", "boolean.base")
	s := vschema.Boolean().Truthy("Y", 1).Falsy("N", 0)
	if got := mustPass(t, s, "y"); got != true {
		t.Fatalf("truthy gave %v", got)
	}
	if got := mustPass(t, s, 0); got != false {
		t.Fatalf("falsy gave %v", got)
	}
	mustFail(t, s, "maybe", "boolean.base")
}

func TestDate_Conversions(t *testing.T) {
	want := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	got := mustPass(t, vschema.Date(), "2024-03-01T12:00:00Z")
	if !want.Equal(got.(time.Time)) {
		t.Fatalf("unexpected date %v", got)
	}
	got = mustPass(t, vschema.Date(), want.UnixMilli())
	if !want.Equal(got.(time.Time)) {
		t.Fatalf("millisecond timestamp gave %v", got)
	}
	got = mustPass(t, vschema.Date().Timestamp("unix"), want.Unix())
	if !want.Equal(got.(time.Time)) {
		t.Fatalf("unix timestamp gave %v", got)
	}
	got = mustPass(t, vschema.Date().Format("%d/%m/%Y"), "01/03/2024")
	if y, m, d := got.(time.Time).Date(); y != 2024 || m != time.March || d != 1 {
		t.Fatalf("format parse gave %v", got)
	}
	mustFail(t, vschema.Date().ISO(), "March 1, 2024", "date.isoDate")
	mustFail(t, vschema.Date().Min("2025-01-01"), "2024-03-01", "date.min")
	mustFail(t, vschema.Date(), "yesterday", "date.base")
}

func TestBinary_Encoding(t *testing.T) {
	got := mustPass(t, vschema.Binary().Encoding("base64"), "aGVsbG8=")
	if !bytes.Equal(got.([]byte), []byte("hello")) {
		t.Fatalf("unexpected bytes %q", got)
	}
	mustFail(t, vschema.Binary().Max(2), []byte("abc"), "binary.max")
	mustFail(t, vschema.Binary(), 12, "binary.base")
}

func TestArray_Rules(t *testing.T) {
	s := vschema.Array().Items(vschema.Number()).Min(1).Max(3)
	if diff := cmp.Diff([]any{float64(1), float64(2)}, mustPass(t, s, []any{"1", "2"})); diff != "" {
		t.Fatalf("items not converted (-want +got):\n%s", diff)
	}
	mustFail(t, s, []any{}, "array.min")
	mustFail(t, s, []any{1, 2, 3, 4}, "array.max")
	it := mustFail(t, s, []any{1, "x"}, "number.base")
	if it.PathString() != "1" {
		t.Fatalf("unexpected path %q", it.PathString())
	}
	mustFail(t, vschema.Array().Unique(), []any{1, 2, 1}, "array.unique")
	mustFail(t, vschema.Array().Unique("id"), []any{map[string]any{"id": 1}, map[string]any{"id": 1}}, "array.unique")
	mustFail(t, vschema.Array().Items(vschema.String().Forbidden()), []any{1, "x"}, "array.excludes")
	mustFail(t, vschema.Array().Ordered(vschema.Number()), []any{1, 2}, "array.orderedLength")
	mustFail(t, vschema.Array().Items(vschema.String()), []any{vschema.Undefined}, "array.sparse")
	if diff := cmp.Diff([]any{"a"}, mustPass(t, vschema.Array().Items(vschema.String()).Single(), "a")); diff != "" {
		t.Fatalf("single mismatch (-want +got):\n%s", diff)
	}
	got := mustPass(t, vschema.Array().Items(vschema.Number()), []any{1, "x", 2}, vschema.StripUnknownArrays(true))
	if diff := cmp.Diff([]any{1, 2}, got); diff != "" {
		t.Fatalf("strip mismatch (-want +got):\n%s", diff)
	}
}

func TestArray_RequiredItems(t *testing.T) {
	s := vschema.Array().Items(vschema.String().Valid("admin").Required(), vschema.String())
	mustPass(t, s, []any{"x", "admin"})
	mustFail(t, s, []any{"x"}, "array.includesRequiredUnknowns")
	labeled := vschema.Array().Items(vschema.String().Valid("admin").Label("admin role").Required(), vschema.String())
	it := mustFail(t, labeled, []any{"x"}, "array.includesRequiredKnowns")
	if it.Message != `"value" does not contain [admin role]` {
		t.Fatalf("unexpected message %q", it.Message)
	}
}

func TestObject_Dependencies(t *testing.T) {
	keys := map[string]any{"a": vschema.Any(), "b": vschema.Any(), "c": vschema.Any()}
	mustFail(t, vschema.Object(keys).And("a", "b"), map[string]any{"a": 1}, "object.and")
	mustFail(t, vschema.Object(keys).Nand("a", "b"), map[string]any{"a": 1, "b": 2}, "object.nand")
	mustFail(t, vschema.Object(keys).Or("a", "b"), map[string]any{"c": 1}, "object.missing")
	mustFail(t, vschema.Object(keys).Xor("a", "b"), map[string]any{"a": 1, "b": 2}, "object.xor")
	mustPass(t, vschema.Object(keys).Oxor("a", "b"), map[string]any{})
	it := mustFail(t, vschema.Object(keys).With("a", "b"), map[string]any{"a": 1}, "object.with")
	if it.Message != `"a" missing required peer "b"` {
		t.Fatalf("unexpected message %q", it.Message)
	}
	mustFail(t, vschema.Object(keys).Without("a", "b"), map[string]any{"a": 1, "b": 1}, "object.without")
	mustFail(t, vschema.Object(keys).Min(2), map[string]any{"a": 1}, "object.min")
}

func TestObject_RenamePatternAssert(t *testing.T) {
	s := vschema.Object(map[string]any{"fullName": vschema.String()}).Rename("name", "fullName")
	if diff := cmp.Diff(map[string]any{"fullName": "ann"}, mustPass(t, s, map[string]any{"name": "ann"})); diff != "" {
		t.Fatalf("rename mismatch (-want +got):\n%s", diff)
	}
	mustFail(t, s, map[string]any{"name": "ann", "fullName": "bob"}, "object.rename.override")

	p := vschema.Object(map[string]any{"id": vschema.Number()}).Pattern(`^x-`, vschema.String())
	mustPass(t, p, map[string]any{"id": 1, "x-trace": "abc"})
	mustFail(t, p, map[string]any{"id": 1, "x-trace": 5}, "string.base")
	mustFail(t, p, map[string]any{"id": 1, "other": "abc"}, "object.allowUnknown")

	a := vschema.Object(map[string]any{
		"d": vschema.Object(map[string]any{"e": vschema.Any()}),
		"f": vschema.Any(),
	}).Assert("d.e", vschema.Ref("f"), "equal to f")
	mustPass(t, a, map[string]any{"d": map[string]any{"e": "x"}, "f": "x"})
	it := mustFail(t, a, map[string]any{"d": map[string]any{"e": "x"}, "f": "y"}, "object.assert")
	if it.PathString() != "d.e" {
		t.Fatalf("unexpected assert path %q", it.PathString())
	}
}

func TestFunction_Arity(t *testing.T) {
	mustPass(t, vschema.Func().Arity(2), func(a, b int) int { return a + b })
	mustFail(t, vschema.Func().MinArity(2), func(a int) {}, "function.minArity")
	mustFail(t, vschema.Func(), "nope", "function.base")
}

func TestSymbol_Map(t *testing.T) {
	red := vschema.NewSymbol("red")
	s := vschema.Symbol().Map(map[string]*vschema.Sym{"r": red})
	if got := mustPass(t, s, "r"); got != red {
		t.Fatalf("unexpected symbol %v", got)
	}
	mustFail(t, s, "g", "symbol.map")
}

func TestValidate_ConvertedOutputIsStable(t *testing.T) {
	cases := []struct {
		name   string
		schema *vschema.Schema
		in     any
	}{
		{"number from string", vschema.Number(), "42.5"},
		{"precision", vschema.Number().Precision(2), 1.006},
		{"trim", vschema.String().Trim(), "  padded  "},
		{"lowercase", vschema.String().Lowercase(), "MiXeD"},
		{"truncate", vschema.String().Max(3).Truncate(), "abcdef"},
		{"date from string", vschema.Date(), "2025-01-02"},
		{"unix timestamp", vschema.Date().Timestamp("unix"), 1700000000},
		{"iso date", vschema.Date().ISO(), "2025-01-02T03:04:05Z"},
		{"truthy", vschema.Boolean().Truthy("yes"), "yes"},
		{"boolean from string", vschema.Boolean(), "TRUE"},
		{"base64 binary", vschema.Binary().Encoding("base64"), "aGk="},
		{"single item", vschema.Array().Items(vschema.Number()).Single(), 5},
		{"defaults", vschema.Object(map[string]any{"n": vschema.Number().Default(3)}), map[string]any{}},
		{"json object", vschema.Object(map[string]any{"a": vschema.Number()}), `{"a":1}`},
		{"json array", vschema.Array().Items(vschema.Number()), `[1,2]`},
		{"alternatives", vschema.Alt(vschema.Number(), vschema.String()), "12"},
		{"nested", vschema.Object(map[string]any{
			"tags": vschema.Array().Items(vschema.String().Trim().Lowercase()),
			"at":   vschema.Date(),
		}), map[string]any{"tags": []any{" A ", "b"}, "at": "2025-03-04"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := mustPass(t, tc.schema, tc.in)
			again := mustPass(t, tc.schema, out, vschema.Convert(false))
			if diff := cmp.Diff(out, again); diff != "" {
				t.Fatalf("second pass changed the value (-first +second):\n%s", diff)
			}
		})
	}
}
