package outline

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/docdeck/internal/audit"
	"github.com/dgallion1/docdeck/internal/repair"
)

func TestDecode_BareArrayAndWrapped(t *testing.T) {
	bare := `[{"title":"Hello","template":"title_slide","summary":"sub"}]`
	wrapped := `{"slides":[{"title":"Hello","template":"title_slide","summary":"sub"}]}`

	a, err := Decode(bare, repair.Options{}, nil)
	require.NoError(t, err)
	b, err := Decode(wrapped, repair.Options{}, nil)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(a, b))
}

func TestDecode_EmptyOutlineIsParseError(t *testing.T) {
	_, err := Decode(`[]`, repair.Options{}, nil)
	assert.True(t, repair.IsParseError(err))
}

func TestDecode_RepairedInputIsAudited(t *testing.T) {
	log := audit.NewLog()
	ws, err := Decode(`[{"title":"E","template":"math_basic","formula":"E = mc^2 \cdot k"}]`, repair.Options{}, log)
	require.NoError(t, err)
	assert.Equal(t, `E = mc^2 \cdot k`, ws[0].Formula)
	assert.Equal(t, 1, log.Count(audit.CategoryRepaired))
}

func TestWire_LenientShapes(t *testing.T) {
	in := `{
		"title": "Mixed",
		"template": "vertical_steps",
		"summary": ["first", "second"],
		"items": ["plain", {"title": "Plan", "description": "Write it"}, 42],
		"number": 30,
		"chart": {"labels": ["a", 2], "datasets": [{"label": "s", "values": [1, "2,500", "35%", "n/a"]}]},
		"infographic": {"needed": "true", "description": "flow"}
	}`
	var w Wire
	require.NoError(t, json.Unmarshal([]byte(in), &w))

	assert.Equal(t, Text("first\nsecond"), w.Summary)
	assert.Equal(t, []Entry{{Title: "plain"}, {Title: "Plan", Description: "Write it"}, {Title: "42"}}, w.Items)
	assert.Equal(t, Text("30"), w.Number)
	assert.Equal(t, Strings{"a", "2"}, w.Chart.Labels)
	require.Len(t, w.Chart.Dataset.Values, 4)
	assert.Equal(t, 2500.0, w.Chart.Dataset.Values[1])
	assert.Equal(t, 35.0, w.Chart.Dataset.Values[2])
	assert.True(t, math.IsNaN(w.Chart.Dataset.Values[3]))
	assert.Equal(t, 1, w.Chart.Dataset.Values.Invalid())
	assert.True(t, w.Infographic.Needed)
}

func TestFromWire_KeepsOnlyOwnedFields(t *testing.T) {
	w := Wire{
		Title:    "Compare",
		Template: TemplateComparison,
		Summary:  "should go",
		Items:    []Entry{{Title: "should go"}},
		Columns:  []Column{{Title: "A", Items: Strings{"x"}}, {Title: "B"}},
		Number:   "9",
	}
	got := FromWire(w).Wire()
	want := Wire{
		Title:    "Compare",
		Template: TemplateComparison,
		Columns:  []Column{{Title: "A", Items: Strings{"x"}}, {Title: "B"}},
	}
	assert.Empty(t, cmp.Diff(want, got))
}

func TestFromWire_UnknownTemplateBecomesContent(t *testing.T) {
	it := FromWire(Wire{Title: "X", Template: "mystery", Items: []Entry{{Title: "a", Description: "b"}}})
	c, ok := it.(*ContentBasic)
	require.True(t, ok)
	assert.Equal(t, []string{"a: b"}, c.Items)
}

func TestFromWire_NaNValuesBecomeZero(t *testing.T) {
	it := FromWire(Wire{Template: TemplateBarChart, Chart: &Chart{Dataset: Dataset{Values: Values{1, math.NaN()}}}})
	assert.Equal(t, Values{1, 0}, it.(*BarChart).Chart.Dataset.Values)
}

func TestOutline_CloneIsDeep(t *testing.T) {
	o := Outline{
		&TableBasic{Title: "T", Table: Table{Headers: Strings{"h"}, Rows: []Strings{{"1"}}}},
	}
	c := o.Clone()
	c[0].(*TableBasic).Table.Rows[0][0] = "changed"
	assert.Equal(t, "1", o[0].(*TableBasic).Table.Rows[0][0])
	assert.NotEqual(t, Hash(o[0]), Hash(c[0]))
}

func TestOutline_JSONRoundTripKeepsHashes(t *testing.T) {
	o := Outline{
		&TitleSlide{Title: "Deck", Subtitle: "2025"},
		&Agenda{Title: "Agenda", Entries: []string{"One", "Two"}, StartIndex: 6},
		&VerticalSteps{Title: "Steps", Steps: []Step{{Title: "a", Description: "b"}, {Title: "c"}}},
		&Quote{Text: "Less is more", Description: "Mies"},
		&Closing{Title: "Thanks"},
	}
	b, err := json.Marshal(o)
	require.NoError(t, err)

	var back Outline
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, o.Hashes(), back.Hashes())
}

func TestStripListMarker(t *testing.T) {
	tests := map[string]string{
		"- one":    "one",
		"* two":    "two",
		"3. three": "three",
		"4) four":  "four",
		"- - x":    "x",
		"12.5%":    "12.5%",
		"plain":    "plain",
	}
	for in, want := range tests {
		assert.Equal(t, want, StripListMarker(in), "input %q", in)
	}
}

func TestOwnedFields_CoversEveryTemplate(t *testing.T) {
	for _, tmpl := range Templates {
		assert.True(t, tmpl.Valid(), string(tmpl))
	}
	assert.False(t, Template("nope").Valid())
	assert.Len(t, TemplateNames(), 14)
}
