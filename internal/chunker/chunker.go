package chunker

import (
	"strings"
)

// DefaultMaxTokens is the chunk budget used when none is configured.
const DefaultMaxTokens = 6000

// Split breaks a document into chunks of at most maxTokens (estimated),
// preferring paragraph boundaries and falling back to sentence boundaries
// for oversized paragraphs. Chunks never overlap: each chunk is structured
// independently and the results are concatenated.
func Split(text string, maxTokens int) []string {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if EstimateTokens(text) <= maxTokens {
		return []string{text}
	}

	var result []string
	var current strings.Builder
	currentTokens := 0

	flush := func() {
		if currentTokens > 0 {
			result = append(result, current.String())
			current.Reset()
			currentTokens = 0
		}
	}

	for _, para := range splitByParagraphs(text) {
		paraTokens := EstimateTokens(para)

		// If a single paragraph exceeds the budget, split it further.
		if paraTokens > maxTokens {
			flush()
			result = append(result, splitBySentences(para, maxTokens)...)
			continue
		}

		if currentTokens+paraTokens > maxTokens {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)
		currentTokens += paraTokens
	}
	flush()

	return result
}

// splitByParagraphs splits on double-newlines.
func splitByParagraphs(text string) []string {
	parts := strings.Split(text, "\n\n")
	var result []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// splitBySentences breaks a large paragraph into sentence-based chunks.
func splitBySentences(text string, maxTokens int) []string {
	var result []string
	var current strings.Builder
	currentTokens := 0

	for _, sent := range splitSentences(text) {
		sentTokens := EstimateTokens(sent)
		if currentTokens+sentTokens > maxTokens && currentTokens > 0 {
			result = append(result, current.String())
			current.Reset()
			currentTokens = 0
		}
		if current.Len() > 0 && !endsWide(current.String()) {
			current.WriteString(" ")
		}
		current.WriteString(sent)
		currentTokens += sentTokens
	}
	if currentTokens > 0 {
		result = append(result, current.String())
	}
	return result
}

// splitSentences does basic sentence splitting on Latin and CJK terminators.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	runes := []rune(text)
	for i, r := range runes {
		current.WriteRune(r)
		end := false
		switch r {
		case '。', '！', '？':
			end = true
		case '.', '!', '?':
			end = i+1 < len(runes) && runes[i+1] == ' '
		}
		if end {
			if s := strings.TrimSpace(current.String()); s != "" {
				sentences = append(sentences, s)
			}
			current.Reset()
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

func endsWide(s string) bool {
	return strings.HasSuffix(s, "。") || strings.HasSuffix(s, "！") || strings.HasSuffix(s, "？")
}
