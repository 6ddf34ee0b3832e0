package i18n

// Translator retrieves localized messages for Issue codes.
// data provides optional metadata to embed in the message (for example,
// "marker" or "field").
type Translator interface {
	Message(code string, data map[string]string) string
}

// dictTranslator is the built-in dictionary-based Translator.
type dictTranslator struct{ lang string }

func (t dictTranslator) Message(code string, data map[string]string) string {
	switch t.lang {
	case "ja":
		switch code {
		case "missing_argument":
			return "必須引数が不足しています"
		case "unknown_argument":
			return "未知の引数です"
		case "invalid_argument":
			return "引数の値が不正です"
		case "invalid_default":
			return "デフォルト値リテラルが不正です"
		case "invalid_marker":
			return "マーカー型が不正です"
		case "invalid_structure":
			return "構造の宣言が不正です"
		case "ambiguous_marker":
			return "マーカーが複数回付与されています"
		case "unknown_structure":
			return "未知の構造です"
		case "unknown_marker":
			return "未知のマーカーです"
		case "resolve_error":
			return "解決エラー"
		}
	default: // "en"
		switch code {
		case "missing_argument":
			return "required argument missing"
		case "unknown_argument":
			return "unknown argument"
		case "invalid_argument":
			return "invalid argument value"
		case "invalid_default":
			return "invalid default literal"
		case "invalid_marker":
			return "invalid marker type"
		case "invalid_structure":
			return "invalid structure declaration"
		case "ambiguous_marker":
			return "marker attached more than once"
		case "unknown_structure":
			return "unknown structure"
		case "unknown_marker":
			return "unknown marker"
		case "resolve_error":
			return "resolve error"
		}
	}
	return code
}

var currentTranslator Translator = dictTranslator{lang: "en"}

// SetLanguage switches the built-in Translator language ("en"/"ja").
func SetLanguage(lang string) {
	if lang != "ja" {
		lang = "en"
	}
	currentTranslator = dictTranslator{lang: lang}
}

// SetTranslator replaces the Translator implementation (not limited to the
// dictionary version).
func SetTranslator(tr Translator) {
	if tr == nil {
		currentTranslator = dictTranslator{lang: "en"}
		return
	}
	currentTranslator = tr
}

// T fetches a message for the given code using the current Translator.
func T(code string, data map[string]string) string { return currentTranslator.Message(code, data) }
