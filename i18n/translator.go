package i18n

import (
	goserde "github.com/reoring/goserde"
)

// Translator retrieves localized messages for issue codes. params carries
// the issue's parameters (for example "source" or "max_depth") for
// translators that want to embed them.
type Translator interface {
	Message(code string, params map[string]any) string
}

// dictTranslator is the built-in dictionary-based Translator.
type dictTranslator struct{ lang string }

func (t dictTranslator) Message(code string, params map[string]any) string {
	switch t.lang {
	case "ja":
		switch code {
		case goserde.CodeConflictingMeta:
			return "fields と exclude は同時に指定できません"
		case goserde.CodeUnknownField:
			return "未知のフィールドです"
		case goserde.CodeInvalidField:
			return "フィールド定義が不正です"
		case goserde.CodeInvalidFormat:
			return "日付パターンが不正です"
		case goserde.CodeMissingAttribute:
			return "属性が見つかりません"
		case goserde.CodeCoercion:
			return "値を変換できません"
		case goserde.CodeRecursionLimit:
			return "ネストが深すぎます"
		case goserde.CodeInvalidInput:
			return "入力が不正です"
		}
	default: // "en"
		switch code {
		case goserde.CodeConflictingMeta:
			return "fields and exclude are mutually exclusive"
		case goserde.CodeUnknownField:
			return "unknown field"
		case goserde.CodeInvalidField:
			return "invalid field declaration"
		case goserde.CodeInvalidFormat:
			return "invalid date pattern"
		case goserde.CodeMissingAttribute:
			return "attribute missing"
		case goserde.CodeCoercion:
			return "cannot coerce value"
		case goserde.CodeRecursionLimit:
			return "nesting too deep"
		case goserde.CodeInvalidInput:
			return "invalid input"
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
func T(code string, params map[string]any) string { return currentTranslator.Message(code, params) }

// Translate rewrites the issue's message through the current Translator.
// Codes the translator does not know keep their original message.
func Translate(it goserde.Issue) goserde.Issue {
	if msg := T(it.Code, it.Params); msg != "" && msg != it.Code {
		it.Message = msg
	}
	return it
}

// TranslateIssues translates every issue in the list.
func TranslateIssues(iss goserde.Issues) goserde.Issues {
	if len(iss) == 0 {
		return iss
	}
	out := make(goserde.Issues, len(iss))
	for i, it := range iss {
		out[i] = Translate(it)
	}
	return out
}
