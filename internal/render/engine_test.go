package render

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/dgallion1/docdeck/internal/icons"
	"github.com/dgallion1/docdeck/internal/outline"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeIcons struct {
	calls atomic.Int32
}

func (f *fakeIcons) Resolve(ctx context.Context, hint string) icons.Resolution {
	f.calls.Add(1)
	return icons.Resolution{SVG: `<svg viewBox="0 0 24 24"><title>` + hint + `</title></svg>`, Name: hint}
}

type fakeDrawer struct {
	svg string
	err error
}

func (d fakeDrawer) Draw(ctx context.Context, description string) (string, error) {
	return d.svg, d.err
}

func newEngine(t *testing.T, opts Options) *Engine {
	t.Helper()
	e, err := NewEngine(opts)
	require.NoError(t, err)
	return e
}

func sampleItems() []outline.Item {
	return []outline.Item{
		&outline.TitleSlide{Title: "Quarterly **Review**", Subtitle: "Finance\nTeam"},
		&outline.Agenda{Title: "Agenda (2/2)", Entries: []string{"Seven", "Eight"}, StartIndex: 6},
		&outline.SectionHeader{Title: "Part One"},
		&outline.ContentBasic{Title: "Plan", Items: []string{"**30%**削減", "ship"}},
		&outline.ContentWithDiagram{Title: "Flow", Summary: "text", Infographic: outline.Infographic{Needed: true, Description: "flow"}},
		&outline.ThreePoints{Title: "Pillars", Points: []outline.Point{{Title: "A", IconHint: "shield"}, {Title: "B"}, {Title: "C", IconHint: "star"}}},
		&outline.VerticalSteps{Title: "Steps", Steps: []outline.Step{{Title: "One", Description: "first"}, {Title: "Two"}}},
		&outline.Comparison{Title: "Options", Columns: []outline.Column{{Title: "X", Items: outline.Strings{"x1"}}, {Title: "Y"}}},
		&outline.TableBasic{Title: "Data", Summary: "note", Table: outline.Table{Headers: outline.Strings{"k", "v"}, Rows: []outline.Strings{{"a", "1"}, {"b"}}}},
		&outline.BarChart{Title: "Growth", Chart: outline.Chart{Labels: outline.Strings{"Q1", "Q2", "Q3"}, Dataset: outline.Dataset{Label: "Revenue", Values: outline.Values{1, 2, 3}}}},
		&outline.MathBasic{Title: "Law", Summary: "where", Formula: `a < \frac{b}{c}`},
		&outline.HighlightedNumber{Title: "Savings", Number: "30%", Description: "削減", ContentTitle: "Cost"},
		&outline.Quote{Text: "Less is more", Description: "Mies <van der Rohe>"},
		&outline.Closing{Title: "Thanks"},
	}
}

func TestRender_AllTemplatesCorporate(t *testing.T) {
	fi := &fakeIcons{}
	e := newEngine(t, Options{Icons: fi, Drawer: fakeDrawer{svg: `<svg width="10" height="10"><rect width="10" height="10" fill="#fff"/><circle r="2"/></svg>`}})
	items := sampleItems()

	for i, it := range items {
		for _, mode := range []string{"light", "dark"} {
			out, err := e.Render(context.Background(), Selection{Theme: "corporate", Mode: mode}, it, Position{Index: i, Total: len(items)})
			require.NoError(t, err, "template %s", it.Template())
			assert.True(t, strings.HasPrefix(out, "<!DOCTYPE html>"), "template %s", it.Template())
			assert.NotContains(t, out, "{{", "unfilled placeholder in %s", it.Template())
			assert.Contains(t, out, `class="mode-`+mode+`"`)
		}
	}
	assert.Equal(t, int32(6), fi.calls.Load(), "one icon per point per render")
}

func TestRender_FieldDetails(t *testing.T) {
	e := newEngine(t, Options{Icons: &fakeIcons{}, Drawer: fakeDrawer{svg: `<svg width="10" height="10"><circle r="2"/></svg>`}})
	items := sampleItems()
	render := func(i int) string {
		out, err := e.Render(context.Background(), Selection{Theme: "corporate"}, items[i], Position{Index: i, Total: len(items)})
		require.NoError(t, err)
		return out
	}

	assert.Contains(t, render(0), "Quarterly <strong>Review</strong>")
	assert.Contains(t, render(0), "<title>Quarterly Review</title>")
	assert.Contains(t, render(0), "Finance<br>")
	assert.Contains(t, render(1), `<ol class="agenda" start="7">`)
	assert.Contains(t, render(3), "<strong>30%</strong>削減")
	assert.Contains(t, render(4), `<div class="infographic"><svg`)
	assert.Contains(t, render(4), `viewBox="0 0 10 10"`)
	assert.Contains(t, render(5), `<div class="icon"><svg`)
	assert.Contains(t, render(6), `<span class="step-no">2</span>`)
	assert.Contains(t, render(7), `class="columns cols-2"`)
	assert.Contains(t, render(8), "<th>k</th><th>v</th>")
	assert.Equal(t, 3, strings.Count(render(9), `class="bar"`))
	assert.Contains(t, render(10), `<div class="math">\[ a &lt; \frac{b}{c} \]</div>`)
	assert.Contains(t, render(10), "mathjax")
	assert.NotContains(t, render(11), "mathjax")
	assert.Contains(t, render(12), "Mies &lt;van der Rohe&gt;")
}

func TestRender_TablePadsShortRows(t *testing.T) {
	e := newEngine(t, Options{})
	it := &outline.TableBasic{Title: "T", Table: outline.Table{Headers: outline.Strings{"k", "v"}, Rows: []outline.Strings{{"b"}}}}
	out, err := e.Render(context.Background(), Selection{Theme: "corporate"}, it, Position{Total: 1})
	require.NoError(t, err)
	assert.Contains(t, out, "<tr><td>b</td><td></td></tr>")
}

func TestRender_TemplateNotFound(t *testing.T) {
	e := newEngine(t, Options{})
	_, err := e.Render(context.Background(), Selection{Theme: "minimal"}, &outline.BarChart{Title: "x"}, Position{Total: 1})

	var tnf *TemplateNotFoundError
	require.ErrorAs(t, err, &tnf)
	assert.Equal(t, "minimal", tnf.Theme)
	assert.Equal(t, outline.TemplateBarChart, tnf.Template)
}

func TestRender_UnknownThemeAndMode(t *testing.T) {
	e := newEngine(t, Options{})
	_, err := e.Render(context.Background(), Selection{Theme: "neon"}, &outline.Closing{}, Position{})
	assert.ErrorIs(t, err, ErrUnknownTheme)

	_, err = e.Render(context.Background(), Selection{Theme: "minimal", Mode: "dark"}, &outline.Closing{}, Position{})
	assert.ErrorIs(t, err, ErrUnknownMode)
}

func TestRender_DrawerFailureDegrades(t *testing.T) {
	e := newEngine(t, Options{Drawer: fakeDrawer{err: errors.New("boom")}})
	it := &outline.ContentWithDiagram{Title: "Flow", Summary: "text", Infographic: outline.Infographic{Needed: true, Description: "x"}}
	out, err := e.Render(context.Background(), Selection{Theme: "corporate"}, it, Position{Total: 1})
	require.NoError(t, err)
	assert.NotContains(t, out, `class="infographic"`)
	assert.Contains(t, out, "<p>text</p>")
}

func TestRender_SubstitutionIsNotRecursive(t *testing.T) {
	e := newEngine(t, Options{})
	it := &outline.TitleSlide{Title: "{{SUBTITLE}}", Subtitle: "sub"}
	out, err := e.Render(context.Background(), Selection{Theme: "corporate"}, it, Position{Total: 1})
	require.NoError(t, err)
	assert.Contains(t, out, "<h1>{{SUBTITLE}}</h1>")
	assert.Equal(t, 1, strings.Count(out, ">sub<"))
}

func TestThemes_Builtin(t *testing.T) {
	e := newEngine(t, Options{})
	themes := e.Themes()
	require.Len(t, themes, 2)
	assert.Equal(t, "corporate", themes[0].ID)
	assert.Len(t, themes[0].Templates, len(outline.Templates))
	assert.Equal(t, []string{"dark", "light"}, themes[0].Modes)
	assert.Equal(t, "minimal", themes[1].ID)
	assert.NotContains(t, themes[1].Templates, string(outline.TemplateBarChart))
	assert.NotContains(t, themes[1].Templates, string(outline.TemplateMath))

	sel, err := e.Resolve(Selection{Theme: "corporate"})
	require.NoError(t, err)
	assert.Equal(t, "light", sel.Mode)
}

func TestLoadThemes_RejectsUnknownTemplate(t *testing.T) {
	fsys := fstest.MapFS{
		"bad.yaml": {Data: []byte("id: bad\nmodes:\n  light: {}\nlayout: \"{{BODY}}\"\ntemplates:\n  hologram: \"x\"\n")},
	}
	_, err := NewEngine(Options{Themes: fsys})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hologram")
}

func TestSkeleton_Fill(t *testing.T) {
	sk := compile("<a>{{X}}</a>{{Y}}{{X}}{{lower}}")
	got := sk.fill(map[string]string{"X": "{{Y}}", "Y": "y"})
	assert.Equal(t, "<a>{{Y}}</a>y{{Y}}{{lower}}", got)
}
