package llm

import (
	"regexp"
	"strings"
)

var codeFenceRe = regexp.MustCompile("(?s)^```[A-Za-z0-9_-]*[ \t]*\r?\n?(.*?)\\s*```\\s*$")

// typeAnnotationRe matches a bare language tag left on its own line ahead of
// the payload, e.g. "json\n[...]".
var typeAnnotationRe = regexp.MustCompile(`^(?i:json|javascript|js|markdown|md)\s*\r?\n`)

// StripCodeFence removes one wrapping ``` fence (with optional language tag).
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if m := codeFenceRe.FindStringSubmatch(s); len(m) > 1 {
		return strings.TrimSpace(m[1])
	}
	return s
}

// CleanJSON prepares a response that is expected to hold serialized JSON:
// code fences and a stray type annotation are stripped, and any prose before
// the first bracket or after the last one is dropped.
func CleanJSON(s string) string {
	s = StripCodeFence(s)
	s = typeAnnotationRe.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)

	start := strings.IndexAny(s, "[{")
	if start < 0 {
		return s
	}
	closer := byte(']')
	if s[start] == '{' {
		closer = '}'
	}
	if end := strings.LastIndexByte(s, closer); end > start {
		return s[start : end+1]
	}
	return s[start:]
}

// CleanMarkdown prepares a response that is expected to hold markdown.
func CleanMarkdown(s string) string {
	s = StripCodeFence(s)
	s = typeAnnotationRe.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}
