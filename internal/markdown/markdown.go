// Package markdown converts per-field markdown to HTML and verifies that every
// **bold** span survived the conversion, patching the output when it did not.
package markdown

import (
	"bytes"
	"log/slog"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/util"
	xhtml "golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Mode selects inline or block output and whether single line breaks are
// kept as <br>.
type Mode struct {
	Block          bool
	PreserveBreaks bool
}

var (
	Inline   = Mode{}
	InlineBR = Mode{PreserveBreaks: true}
	Block    = Mode{Block: true}
	BlockBR  = Mode{Block: true, PreserveBreaks: true}
)

var (
	spuriousEscape = regexp.MustCompile(`\\([*_#])`)
	boldSpan       = regexp.MustCompile(`\*\*(.+?)\*\*`)
)

// Result is the converted markup plus the verification outcome.
type Result struct {
	HTML string
	// Expected holds the inner text of every **…** span in the input.
	Expected []string
	// Patched lists expected spans the converter dropped and that were
	// inserted by substitution instead.
	Patched []string
	// OK is false only if a span is still missing after patching.
	OK bool
}

// Renderer is safe for concurrent use.
type Renderer struct {
	plain  goldmark.Markdown
	breaks goldmark.Markdown
	log    *slog.Logger
}

func New(log *slog.Logger) *Renderer {
	if log == nil {
		log = slog.Default()
	}
	exts := goldmark.WithExtensions(extension.Strikethrough, extension.Linkify)
	return &Renderer{
		plain:  goldmark.New(exts),
		breaks: goldmark.New(exts, goldmark.WithRendererOptions(html.WithHardWraps())),
		log:    log,
	}
}

// Render converts text according to mode. Conversion errors fall back to the
// escaped source so a single field never fails a slide.
func (r *Renderer) Render(text string, mode Mode) Result {
	clean := spuriousEscape.ReplaceAllString(text, "$1")
	res := Result{Expected: expectedSpans(clean), OK: true}
	if strings.TrimSpace(clean) == "" {
		return res
	}

	md := r.plain
	if mode.PreserveBreaks {
		md = r.breaks
	}
	var buf bytes.Buffer
	if err := md.Convert([]byte(clean), &buf); err != nil {
		r.log.Warn("markdown conversion failed", "error", err)
		buf.Reset()
		buf.Write(util.EscapeHTML([]byte(clean)))
	}
	out := strings.TrimSpace(buf.String())
	if !mode.Block {
		out = unwrapParagraph(out)
	}

	for _, want := range res.Expected {
		sp := r.span(want)
		if hasBold(out, sp) && !sp.literalIn(out) {
			continue
		}
		out = patchBold(out, sp)
		res.Patched = append(res.Patched, want)
		if !hasBold(out, sp) {
			res.OK = false
		}
	}
	res.HTML = out

	switch {
	case !res.OK:
		r.log.Warn("emphasis verification failed", "expected", res.Expected, "patched", res.Patched)
	case len(res.Patched) > 0:
		r.log.Info("emphasis repaired by substitution", "patched", res.Patched)
	case len(res.Expected) > 0:
		r.log.Debug("emphasis verified", "spans", len(res.Expected))
	}
	return res
}

// HTML is Render without the verification details.
func (r *Renderer) HTML(text string, mode Mode) string {
	return r.Render(text, mode).HTML
}

func expectedSpans(s string) []string {
	var out []string
	for _, m := range boldSpan.FindAllStringSubmatch(s, -1) {
		// ***x*** is bold inside italics; the extra asterisks are not text.
		if inner := strings.TrimSpace(strings.Trim(m[1], "*")); inner != "" {
			out = append(out, inner)
		}
	}
	return out
}

func unwrapParagraph(s string) string {
	if strings.HasPrefix(s, "<p>") && strings.HasSuffix(s, "</p>") && strings.Count(s, "<p>") == 1 {
		return strings.TrimSpace(s[len("<p>") : len(s)-len("</p>")])
	}
	return s
}

// span is one expected bold text in source form and in rendered form, with
// the visible text a browser would show for it.
type span struct {
	raw  string
	html string
	text string
}

func (r *Renderer) span(raw string) span {
	sp := span{raw: raw, html: string(util.EscapeHTML([]byte(raw))), text: raw}
	var buf bytes.Buffer
	if err := r.plain.Convert([]byte(raw), &buf); err != nil {
		return sp
	}
	// Inner text that converts to a list or heading is kept in source form.
	h := strings.TrimSpace(buf.String())
	if !strings.HasPrefix(h, "<p>") {
		return sp
	}
	if text := strings.TrimSpace(visibleText(unwrapParagraph(h))); text != "" {
		sp.html = unwrapParagraph(h)
		sp.text = text
	}
	return sp
}

// literalIn reports whether the span is still wrapped in literal asterisks.
func (sp span) literalIn(out string) bool {
	return strings.Contains(out, "**"+sp.raw+"**") || strings.Contains(out, "**"+sp.html+"**")
}

// hasBold reports whether the span's visible text appears as the whole
// content of a strong or b element, ignoring links and code inside it.
func hasBold(out string, sp span) bool {
	for _, t := range boldTexts(out) {
		if t == sp.text || t == sp.raw {
			return true
		}
	}
	return false
}

func boldTexts(fragment string) []string {
	nodes := parseFragment(fragment)
	var out []string
	var walk func(n *xhtml.Node)
	walk = func(n *xhtml.Node) {
		if n.Type == xhtml.ElementNode && (n.DataAtom == atom.Strong || n.DataAtom == atom.B) {
			out = append(out, strings.TrimSpace(textContent(n)))
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range nodes {
		walk(n)
	}
	return out
}

func parseFragment(fragment string) []*xhtml.Node {
	nodes, err := xhtml.ParseFragment(strings.NewReader(fragment), &xhtml.Node{
		Type:     xhtml.ElementNode,
		Data:     "div",
		DataAtom: atom.Div,
	})
	if err != nil {
		return nil
	}
	return nodes
}

func visibleText(fragment string) string {
	var sb strings.Builder
	for _, n := range parseFragment(fragment) {
		sb.WriteString(textContent(n))
	}
	return sb.String()
}

func textContent(n *xhtml.Node) string {
	if n.Type == xhtml.TextNode {
		return n.Data
	}
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		sb.WriteString(textContent(c))
	}
	return sb.String()
}

// patchBold replaces the literal **span** (and the space-padded variant)
// left in converted output with an explicit strong element. The span is
// matched in source form and, when the converter already rendered links or
// code inside it, in rendered form.
func patchBold(out string, sp span) string {
	strong := "<strong>" + sp.html + "</strong>"
	escaped := string(util.EscapeHTML([]byte(sp.raw)))
	for _, inner := range []string{sp.raw, escaped, sp.html} {
		out = strings.ReplaceAll(out, "**"+inner+"**", strong)
		out = strings.ReplaceAll(out, "** "+inner+" **", strong)
	}
	return out
}
