package i18n

import "testing"

func TestTranslator_DefaultAndJapanese(t *testing.T) {
	// default is en
	if msg := T("missing_argument", nil); msg != "required argument missing" {
		t.Fatalf("expected the english message, got %q", msg)
	}

	SetLanguage("ja")
	if msg := T("missing_argument", nil); msg != "必須引数が不足しています" {
		t.Fatalf("expected the japanese message, got %q", msg)
	}

	// reset to en
	SetLanguage("en")
}

func TestTranslator_Fallbacks(t *testing.T) {
	defer SetLanguage("en")

	// unknown languages fall back to en
	SetLanguage("fr")
	if msg := T("unknown_marker", nil); msg != "unknown marker" {
		t.Fatalf("expected english fallback, got %q", msg)
	}
	// unknown codes pass through verbatim
	if msg := T("no_such_code", nil); msg != "no_such_code" {
		t.Fatalf("expected the code itself, got %q", msg)
	}
}

type prefixTranslator struct{}

func (prefixTranslator) Message(code string, _ map[string]string) string { return "x:" + code }

func TestTranslator_Replace(t *testing.T) {
	defer SetTranslator(nil)

	SetTranslator(prefixTranslator{})
	if msg := T("resolve_error", nil); msg != "x:resolve_error" {
		t.Fatalf("expected the custom message, got %q", msg)
	}

	// nil restores the built-in dictionary
	SetTranslator(nil)
	if msg := T("resolve_error", nil); msg != "resolve error" {
		t.Fatalf("expected the built-in message, got %q", msg)
	}
}
