package markdown

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	xhtml "golang.org/x/net/html"
)

func TestRender_EmphasisAlwaysBold(t *testing.T) {
	r := New(nil)
	texts := []string{
		"plain **bold** text",
		"**30%**削減",
		"効果は**30%**です",
		"**「重要」**です",
		"**a & b** rocks",
		"line one\n**two** and **three**",
		`\*\*escaped\*\*`,
		"- item **one**\n- item **two**",
		"** padded **",
	}
	modes := []Mode{Inline, InlineBR, Block, BlockBR}

	for _, text := range texts {
		for _, mode := range modes {
			res := r.Render(text, mode)
			require.True(t, res.OK, "text %q mode %+v: %s", text, mode, res.HTML)
			plain := xhtml.UnescapeString(res.HTML)
			for _, want := range res.Expected {
				assert.Contains(t, plain, "<strong>"+want+"</strong>", "text %q mode %+v", text, mode)
			}
		}
	}
}

func TestRender_CJKBoundaryIsPatched(t *testing.T) {
	res := New(nil).Render("**30%**削減", Inline)
	assert.Equal(t, []string{"30%"}, res.Expected)
	assert.Equal(t, []string{"30%"}, res.Patched)
	assert.Equal(t, "<strong>30%</strong>削減", res.HTML)
}

func TestRender_NormalConversionNotPatched(t *testing.T) {
	res := New(nil).Render("hello **world**", Inline)
	assert.Equal(t, "hello <strong>world</strong>", res.HTML)
	assert.Empty(t, res.Patched)
}

func TestRender_InlineUnwrapsSingleParagraph(t *testing.T) {
	r := New(nil)
	assert.Equal(t, "just text", r.HTML("just text", Inline))
	assert.Equal(t, "<p>just text</p>", r.HTML("just text", Block))

	two := r.HTML("a\n\nb", Inline)
	assert.Equal(t, 2, strings.Count(two, "<p>"), "multiple paragraphs keep their wrappers")
}

func TestRender_PreserveBreaks(t *testing.T) {
	r := New(nil)
	assert.Contains(t, r.HTML("a\nb", InlineBR), "<br>")
	assert.NotContains(t, r.HTML("a\nb", Inline), "<br>")
}

func TestRender_Empty(t *testing.T) {
	res := New(nil).Render("  ", Block)
	assert.True(t, res.OK)
	assert.Empty(t, res.HTML)
}

func TestRender_EscapesHTMLInPatch(t *testing.T) {
	res := New(nil).Render("**<1% & more>**件", Inline)
	require.True(t, res.OK, res.HTML)
	assert.Contains(t, res.HTML, "<strong>&lt;1% &amp; more&gt;</strong>")
}

func TestRender_BoldAroundLinkBeforeCJKIsPatched(t *testing.T) {
	res := New(nil).Render("**[link](http://x)**です", Inline)
	require.True(t, res.OK, res.HTML)
	assert.Equal(t, `<strong><a href="http://x">link</a></strong>です`, res.HTML)
	assert.Equal(t, []string{"[link](http://x)"}, res.Patched)
	assert.NotContains(t, res.HTML, "**")
}

func TestRender_BoldWithInlineMarkupVerifies(t *testing.T) {
	r := New(nil)
	cases := map[string]string{
		"**use `x` now**": "<strong>use <code>x</code> now</strong>",
		"***foo***":       "<em><strong>foo</strong></em>",
	}
	for text, want := range cases {
		res := r.Render(text, Inline)
		assert.True(t, res.OK, "text %q: %s", text, res.HTML)
		assert.Empty(t, res.Patched, "text %q", text)
		assert.Equal(t, want, res.HTML, "text %q", text)
	}
}
