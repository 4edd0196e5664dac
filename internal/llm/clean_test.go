package llm

import (
	"testing"
)

func TestCleanJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare array", `[{"a":1}]`, `[{"a":1}]`},
		{"json fence", "```json\n[{\"a\":1}]\n```", `[{"a":1}]`},
		{"plain fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"type annotation", "json\n[1,2]", `[1,2]`},
		{"leading prose", "Here is the outline:\n[1]\nHope this helps", `[1]`},
		{"truncated", `[{"a":1},`, `[{"a":1},`},
		{"no json", "sorry", "sorry"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := CleanJSON(tc.in); got != tc.want {
				t.Errorf("CleanJSON(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestCleanMarkdown(t *testing.T) {
	in := "```markdown\n# Title\n\n- item\n```"
	if got := CleanMarkdown(in); got != "# Title\n\n- item" {
		t.Errorf("unexpected %q", got)
	}
	if got := CleanMarkdown("  # Plain  "); got != "# Plain" {
		t.Errorf("unexpected %q", got)
	}
}
