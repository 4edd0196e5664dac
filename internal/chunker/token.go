package chunker

import (
	"strings"
	"unicode"
)

// EstimateTokens gives a rough token count. Words count ~1.33 tokens each;
// CJK runes have no spaces between them and count one token each.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	words := 0
	wide := 0
	for _, f := range strings.Fields(text) {
		hasLatin := false
		for _, r := range f {
			if isWide(r) {
				wide++
			} else {
				hasLatin = true
			}
		}
		if hasLatin {
			words++
		}
	}
	tokens := int(float64(words)*1.33) + wide
	if tokens < 1 {
		tokens = 1
	}
	return tokens
}

func isWide(r rune) bool {
	return unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana, unicode.Hangul)
}
