package parser

import (
	"strings"
	"testing"
)

func TestMarkdownParser_KeepsHeadingHierarchy(t *testing.T) {
	input := `# Title

Intro text.

## Section A

Section A content with **bold** words.

### Subsection A1

Subsection A1 content.
`
	p := &MarkdownParser{}
	doc, err := p.Parse(strings.NewReader(input), "doc.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, want := range []string{
		"# Title",
		"## Section A",
		"### Subsection A1",
		"Section A content with **bold** words.",
	} {
		if !strings.Contains(doc.Text, want) {
			t.Errorf("expected text to contain %q, got %q", want, doc.Text)
		}
	}
	if strings.Index(doc.Text, "# Title") > strings.Index(doc.Text, "## Section A") {
		t.Error("expected document order to be preserved")
	}
}

func TestMarkdownParser_Lists(t *testing.T) {
	input := "- alpha\n- beta\n\n3. three\n4. four\n"
	p := &MarkdownParser{}
	doc, err := p.Parse(strings.NewReader(input), "list.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "- alpha\n- beta\n\n3. three\n4. four"
	if doc.Text != want {
		t.Errorf("expected %q, got %q", want, doc.Text)
	}
}

func TestMarkdownParser_DropsRawHTMLAndRules(t *testing.T) {
	input := "<div>\nhidden\n</div>\n\nVisible.\n\n---\n\nAfter."
	p := &MarkdownParser{}
	doc, err := p.Parse(strings.NewReader(input), "html.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(doc.Text, "hidden") {
		t.Errorf("expected raw HTML block to be dropped, got %q", doc.Text)
	}
	if doc.Text != "Visible.\n\nAfter." {
		t.Errorf("unexpected text %q", doc.Text)
	}
}

func TestMarkdownParser_NoHeadings(t *testing.T) {
	input := "Just some plain text.\n\nAnother paragraph."
	p := &MarkdownParser{}
	doc, err := p.Parse(strings.NewReader(input), "plain.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Text != input {
		t.Errorf("expected %q, got %q", input, doc.Text)
	}
}
