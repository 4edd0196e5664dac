package infographic

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/docdeck/internal/llm"
)

func TestSanitize_ViewBoxFromSize(t *testing.T) {
	out, err := Sanitize(`<svg xmlns="http://www.w3.org/2000/svg" width="400px" height="300"><rect width="400" height="300" fill="#ffffff"/><circle cx="10" cy="10" r="5"/></svg>`)
	require.NoError(t, err)
	assert.Contains(t, out, `viewBox="0 0 400 300"`)
	assert.Contains(t, out, `width="100%"`)
	assert.Contains(t, out, `height="100%"`)
	assert.NotContains(t, out, "<rect")
	assert.Contains(t, out, "<circle")
}

func TestSanitize_DefaultViewBox(t *testing.T) {
	out, err := Sanitize(`<svg><text x="1" y="2">Hi</text></svg>`)
	require.NoError(t, err)
	assert.Contains(t, out, `viewBox="`+DefaultViewBox+`"`)
	assert.Contains(t, out, ">Hi</text>")
}

func TestSanitize_KeepsForegroundRects(t *testing.T) {
	out, err := Sanitize(`<svg viewBox="0 0 10 10" width="10" height="10">` +
		`<g><rect width="100%" height="100%" fill="white"/></g>` +
		`<rect width="10" height="10" fill="none" stroke="red"/>` +
		`<rect x="2" y="2" width="3" height="3" fill="blue"/>` +
		`</svg>`)
	require.NoError(t, err)
	assert.Contains(t, out, `viewBox="0 0 10 10"`)
	assert.NotContains(t, out, `fill="white"`)
	assert.Contains(t, out, `fill="none"`)
	assert.Contains(t, out, `fill="blue"`)
}

func TestSanitize_StripsBackgroundStyleAndScripts(t *testing.T) {
	out, err := Sanitize(`<svg viewBox="0 0 1 1" style="background-color: #000; opacity: 0.9" onload="alert(1)"><script>alert(2)</script><path d="M0 0" onclick="x()"/></svg>`)
	require.NoError(t, err)
	assert.NotContains(t, out, "background")
	assert.Contains(t, out, "opacity: 0.9")
	assert.NotContains(t, out, "alert")
	assert.NotContains(t, out, "onclick")
	assert.Contains(t, out, "<path")
}

func TestSanitize_NoSVG(t *testing.T) {
	_, err := Sanitize(`<div>nothing here</div>`)
	assert.True(t, errors.Is(err, ErrNoSVG))
}

func TestExtractSVG(t *testing.T) {
	svg, err := ExtractSVG("Here you go:\n```svg\n<svg viewBox=\"0 0 1 1\"><g/></svg>\n```")
	require.NoError(t, err)
	assert.Equal(t, `<svg viewBox="0 0 1 1"><g/></svg>`, svg)

	_, err = ExtractSVG("I cannot draw that.")
	assert.ErrorIs(t, err, ErrNoSVG)
}

func TestAIDrawer(t *testing.T) {
	gen := llm.GeneratorFunc(func(ctx context.Context, req llm.Request) (string, error) {
		assert.Contains(t, req.Prompt, "Diagram: three stages")
		return `<svg><circle r="1"/></svg>`, nil
	})
	svg, err := AIDrawer{Gen: gen}.Draw(context.Background(), "three stages")
	require.NoError(t, err)
	assert.Equal(t, `<svg><circle r="1"/></svg>`, svg)
}
