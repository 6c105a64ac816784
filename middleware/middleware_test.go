package middleware_test

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	json "github.com/goccy/go-json"

	"github.com/reoring/vschema"
	"github.com/reoring/vschema/middleware"
)

func handler(t *testing.T, opt middleware.Options) http.Handler {
	t.Helper()
	if opt.Logger == nil {
		opt.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := vschema.Object(map[string]any{
		"name": vschema.String().Required(),
		"age":  vschema.Number().Integer().Default(18),
	})
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		v, ok := middleware.ValueFromContext(r.Context())
		if !ok {
			t.Fatalf("validated value missing from context")
		}
		_ = json.NewEncoder(w).Encode(v)
	})
	return middleware.Validate(s, opt)(next)
}

func do(h http.Handler, body string, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/users", strings.NewReader(body))
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func payload(t *testing.T, rec *httptest.ResponseRecorder) middleware.ErrorPayload {
	t.Helper()
	var p middleware.ErrorPayload
	if err := json.Unmarshal(rec.Body.Bytes(), &p); err != nil {
		t.Fatalf("decode payload: %v (%s)", err, rec.Body.String())
	}
	return p
}

func TestValidate_PassesValidatedValue(t *testing.T) {
	rec := do(handler(t, middleware.Options{}), `{"name":"ann"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}
	var got map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got["age"] != float64(18) {
		t.Fatalf("default not applied: %v", got)
	}
}

func TestValidate_RejectsInvalidBody(t *testing.T) {
	rec := do(handler(t, middleware.Options{Validation: []vschema.Option{vschema.AbortEarly(false)}}), `{"age":"x"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	p := payload(t, rec)
	if p.Error != "validation failed" || len(p.Details) != 2 {
		t.Fatalf("unexpected payload %+v", p)
	}
	if p.Details[0].Type != "any.required" && p.Details[1].Type != "any.required" {
		t.Fatalf("missing any.required in %+v", p.Details)
	}
}

func TestValidate_DuplicateKeys(t *testing.T) {
	rec := do(handler(t, middleware.Options{}), `{"name":"a","name":"b"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if p := payload(t, rec); p.Error != "malformed body" || p.Details[0].Type != "duplicate_key" {
		t.Fatalf("unexpected payload %+v", p)
	}
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	rec = do(handler(t, middleware.Options{AllowDuplicateKeys: true, Logger: logger}), `{"name":"a","name":"b"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("duplicates should be allowed: %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"name":"b"`) {
		t.Fatalf("last value should win: %s", rec.Body.String())
	}
	if !strings.Contains(logs.String(), "duplicate key in request body") || !strings.Contains(logs.String(), "pointer=/name") {
		t.Fatalf("duplicate not logged: %s", logs.String())
	}
}

type countingReader struct {
	r io.Reader
	n int
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += n
	return n, err
}

func TestValidate_MaxBytesStopsReadingLargeToken(t *testing.T) {
	body := &countingReader{r: strings.NewReader(`{"name":"` + strings.Repeat("x", 1<<20) + `"}`)}
	req := httptest.NewRequest(http.MethodPost, "/users", body)
	rec := httptest.NewRecorder()
	handler(t, middleware.Options{MaxBytes: 64}).ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if body.n > 65 {
		t.Fatalf("read %d bytes past a 64 byte limit", body.n)
	}
}

func TestValidate_Limits(t *testing.T) {
	h := handler(t, middleware.Options{MaxBytes: 8})
	if rec := do(h, `{"name":"a long enough name"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected size limit, got %d", rec.Code)
	}
}

func TestValidate_AcceptLanguage(t *testing.T) {
	rec := do(handler(t, middleware.Options{}), `{}`, "Accept-Language", "ja-JP,ja;q=0.9,en;q=0.5")
	p := payload(t, rec)
	if len(p.Details) != 1 || p.Details[0].Message != `"name" は必須です` {
		t.Fatalf("unexpected payload %+v", p)
	}
}

func TestValidate_CustomErrorHandler(t *testing.T) {
	called := false
	h := handler(t, middleware.Options{ErrorHandler: func(w http.ResponseWriter, _ *http.Request, err error) {
		called = vschema.IsValidationError(err)
		w.WriteHeader(http.StatusUnprocessableEntity)
	}})
	rec := do(h, `{}`)
	if !called || rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("handler not used: called=%v code=%d", called, rec.Code)
	}
}
