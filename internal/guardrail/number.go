package guardrail

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dgallion1/docdeck/internal/audit"
	"github.com/dgallion1/docdeck/internal/outline"
)

var emphasisMarkers = strings.NewReplacer("**", "", "__", "", "~~", "", "*", "", "`", "")

var nativeScripts = []*unicode.RangeTable{
	unicode.Han,
	unicode.Hiragana,
	unicode.Katakana,
	unicode.Hangul,
	unicode.Thai,
	unicode.Arabic,
	unicode.Cyrillic,
	unicode.Devanagari,
	unicode.Hebrew,
}

func isNative(r rune) bool {
	// U+30FC (prolonged sound mark) is in the Common script.
	return r == 'ー' || unicode.IsOneOf(nativeScripts, r)
}

// guardNumber keeps the highlighted figure free of markdown and prose: markers
// are stripped and native-script runs move to the description. A run already
// present in the description is not appended again.
func guardNumber(h *outline.HighlightedNumber, idx int, sink audit.Sink) {
	orig := h.Number
	cleaned := emphasisMarkers.Replace(h.Number)

	var (
		kept strings.Builder
		run  strings.Builder
		runs []string
	)
	flush := func() {
		if run.Len() > 0 {
			runs = append(runs, run.String())
			run.Reset()
		}
	}
	for _, r := range cleaned {
		if isNative(r) {
			run.WriteRune(r)
			continue
		}
		flush()
		kept.WriteRune(r)
	}
	flush()

	h.Number = strings.TrimSpace(kept.String())
	for _, r := range runs {
		if strings.Contains(h.Description, r) {
			continue
		}
		h.Description = appendText(h.Description, r)
	}

	if h.Number != orig {
		audit.Notef(sink, audit.CategoryRepaired, component,
			"slide %d: highlighted number %q cleaned to %q", idx+1, orig, h.Number)
	}
}

func appendText(base, add string) string {
	base = strings.TrimRight(base, " ")
	if base == "" {
		return add
	}
	last, _ := utf8.DecodeLastRuneInString(base)
	if isNative(last) {
		return base + add
	}
	return base + " " + add
}
