package jsonschema_test

import (
	"testing"

	"github.com/xeipuuv/gojsonschema"

	"github.com/reoring/vschema"
	"github.com/reoring/vschema/jsonschema"
)

func userSchema() *vschema.Schema {
	return vschema.Object(map[string]any{
		"name":  vschema.String().Min(2).Max(10).Required(),
		"email": vschema.String().Email(),
		"age":   vschema.Number().Integer().Min(0).Less(150),
		"role":  vschema.String().Valid("admin", "user"),
		"tags":  vschema.Array().Items(vschema.String()).Max(3).Unique(),
	})
}

func compile(t *testing.T, s *vschema.Schema) *gojsonschema.Schema {
	t.Helper()
	doc, err := jsonschema.From(s)
	if err != nil {
		t.Fatalf("from: %v", err)
	}
	raw, err := doc.MarshalIndent()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	js, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		t.Fatalf("exported schema rejected: %v\n%s", err, raw)
	}
	return js
}

func TestFrom_AcceptsWhatSchemaAccepts(t *testing.T) {
	js := compile(t, userSchema())
	doc := map[string]any{"name": "ann", "email": "ann@example.com", "age": 30, "role": "admin", "tags": []any{"a", "b"}}
	if res := vschema.Validate(doc, userSchema()); res.Error != nil {
		t.Fatalf("vschema rejected: %v", res.Error)
	}
	res, err := js.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !res.Valid() {
		t.Fatalf("json schema rejected: %v", res.Errors())
	}
}

func TestFrom_RejectsWhatSchemaRejects(t *testing.T) {
	js := compile(t, userSchema())
	bad := []map[string]any{
		{"email": "x@example.com"},
		{"name": "a"},
		{"name": "ann", "age": 1.5},
		{"name": "ann", "age": 150},
		{"name": "ann", "role": "root"},
		{"name": "ann", "tags": []any{"a", "a"}},
		{"name": "ann", "extra": true},
	}
	for _, doc := range bad {
		if res := vschema.Validate(doc, userSchema(), vschema.Convert(false)); res.Error == nil {
			t.Fatalf("vschema accepted %v", doc)
		}
		res, err := js.Validate(gojsonschema.NewGoLoader(doc))
		if err != nil {
			t.Fatalf("validate: %v", err)
		}
		if res.Valid() {
			t.Fatalf("json schema accepted %v", doc)
		}
	}
}

func TestFrom_AlternativesAndTuples(t *testing.T) {
	s := vschema.Object(map[string]any{
		"id":    vschema.Alternatives(vschema.Number().Integer(), vschema.String().GUID()),
		"point": vschema.Array().Ordered(vschema.Number(), vschema.Number()),
	}).Unknown()
	js := compile(t, s)
	res, err := js.Validate(gojsonschema.NewGoLoader(map[string]any{"id": "not-a-guid-or-int", "point": []any{1, "x"}}))
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if res.Valid() || len(res.Errors()) < 2 {
		t.Fatalf("expected id and point errors, got %v", res.Errors())
	}
	res, err = js.Validate(gojsonschema.NewGoLoader(map[string]any{"id": 7, "point": []any{1, 2}, "other": 1}))
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !res.Valid() {
		t.Fatalf("unexpected errors: %v", res.Errors())
	}
}

func TestFromDescription_Nil(t *testing.T) {
	if _, err := jsonschema.FromDescription(nil); err == nil {
		t.Fatalf("expected error")
	}
}
