package i18n

import (
	"strings"
	"testing"
)

func TestTranslator_DefaultAndJapanese(t *testing.T) {
	// default is en
	if msg := T("number.min"); msg == "number.min" || msg == "" {
		t.Fatalf("expected a human message, got %q", msg)
	}

	SetLanguage("ja")
	defer SetLanguage("en")
	if msg := T("number.min"); msg != "は {{limit}} 以上である必要があります" {
		t.Fatalf("expected japanese message, got %q", msg)
	}
	// entries missing in ja fall back to en
	if msg := T("string.hexAlign"); !strings.Contains(msg, "byte aligned") {
		t.Fatalf("expected english fallback, got %q", msg)
	}
}

func TestMatch_RegionalTags(t *testing.T) {
	if got := Match("ja-JP"); got != "ja" {
		t.Fatalf("ja-JP matched %q", got)
	}
	if got := Match("fr"); got != "en" {
		t.Fatalf("fr should fall back to en, got %q", got)
	}
}

func TestUnknownCodeReturnsCode(t *testing.T) {
	if got := T("no.such.code"); got != "no.such.code" {
		t.Fatalf("got %q", got)
	}
}

func TestLoadYAMLAndRegister(t *testing.T) {
	src := `
number:
  min: "doit être au moins {{limit}}"
string:
  regex:
    base: "motif invalide"
`
	c, err := LoadYAML(strings.NewReader(src))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c["number.min"] != "doit être au moins {{limit}}" || c["string.regex.base"] != "motif invalide" {
		t.Fatalf("unexpected catalog: %#v", c)
	}
	if err := Register("fr", c); err != nil {
		t.Fatalf("register: %v", err)
	}
	if msg, _ := For("fr-CA").Message("number.min"); msg != c["number.min"] {
		t.Fatalf("fr-CA lookup: %q", msg)
	}
	if msg, ok := For("fr").Message("number.max"); !ok || !strings.Contains(msg, "less than") {
		t.Fatalf("fr should fall back to en for number.max, got %q", msg)
	}
}

func TestLoadYAMLRejectsNonString(t *testing.T) {
	if _, err := LoadYAML(strings.NewReader("number:\n  min: 3\n")); err == nil {
		t.Fatalf("expected error for non-string template")
	}
}
