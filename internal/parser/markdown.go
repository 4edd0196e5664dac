package parser

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/docdeck/internal/document"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownParser handles Markdown files using goldmark. It keeps headings,
// lists and paragraphs in markdown form and drops raw HTML blocks and
// thematic breaks.
type MarkdownParser struct{}

func (p *MarkdownParser) Parse(r io.Reader, filename string) (*document.Document, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(src))

	var blocks []string
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if b := markdownBlock(n, src); b != "" {
			blocks = append(blocks, b)
		}
	}

	return &document.Document{
		Filename: filename,
		MIMEType: MIMEMarkdown,
		Text:     strings.Join(blocks, "\n\n"),
	}, nil
}

func markdownBlock(n ast.Node, src []byte) string {
	switch node := n.(type) {
	case *ast.Heading:
		t := blockLines(node, src)
		if t == "" {
			return ""
		}
		return strings.Repeat("#", node.Level) + " " + t
	case *ast.List:
		var items []string
		num := node.Start
		for c := node.FirstChild(); c != nil; c = c.NextSibling() {
			t := containerText(c, src)
			if t == "" {
				continue
			}
			if node.IsOrdered() {
				items = append(items, fmt.Sprintf("%d. %s", num, t))
				num++
			} else {
				items = append(items, "- "+t)
			}
		}
		return strings.Join(items, "\n")
	case *ast.Blockquote:
		t := containerText(node, src)
		if t == "" {
			return ""
		}
		return "> " + strings.ReplaceAll(t, "\n", "\n> ")
	case *ast.HTMLBlock, *ast.ThematicBreak:
		return ""
	case *ast.FencedCodeBlock, *ast.CodeBlock:
		return blockLines(n, src)
	default:
		if n.Type() == ast.TypeBlock && n.Lines().Len() > 0 {
			return blockLines(n, src)
		}
		return containerText(n, src)
	}
}

// containerText joins the text of a container block's children.
func containerText(n ast.Node, src []byte) string {
	var parts []string
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t := markdownBlock(c, src); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n")
}

// blockLines returns the raw source lines of a leaf block, inline markup intact.
func blockLines(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		buf.Write(line.Value(src))
	}
	return strings.TrimSpace(buf.String())
}
