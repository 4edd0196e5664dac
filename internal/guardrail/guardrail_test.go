package guardrail

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/docdeck/internal/audit"
	"github.com/dgallion1/docdeck/internal/outline"
)

func decode(t *testing.T, s string) []outline.Wire {
	t.Helper()
	var ws []outline.Wire
	require.NoError(t, json.Unmarshal([]byte(s), &ws))
	return ws
}

const messy = `[
	{"title": "Deck", "template": "title_slide", "items": ["sub one", "sub two"]},
	{"title": "Where we are", "template": "section_header", "summary": "drop me"},
	{"title": "Plan", "template": "content_basic", "summary": "- first\\nsecond\n* third"},
	{"title": "Steps", "template": "vertical_steps", "summary": "Plan: write it\nShip: deliver"},
	{"title": "Pillars", "template": "three_points", "items": [{"title": "A", "description": "a"}, "B", "C", "D"]},
	{"title": "Options", "template": "comparison", "columns": [{"title":"1"},{"title":"2"},{"title":"3"},{"title":"4"},{"title":"5"}]},
	{"title": "Numbers", "template": "table_basic", "table": {"headers": ["k", "v"], "rows": [[1,2],[3,4],[5,6],[7,8],[9,10],[11,12],[13,14],[15,16],[17,18]]}},
	{"title": "Growth", "template": "bar_chart", "summary": "x", "chart": {"labels": ["a","b","c"], "dataset": {"label": "s", "values": [1, "oops", 3, 4]}}},
	{"title": "Savings", "template": "highlighted_number", "number": "**30%削減**", "description": "コスト", "items": ["x"]},
	{"title": "Energy", "template": "math_basic", "formula": "E = mc^2 \\neq 0", "summary": "line\\nbreak"},
	{"title": "A quote", "template": "quote", "summary": "Someone"},
	{"title": "Mystery", "template": "hologram", "summary": "one\ntwo"},
	{"title": "Agenda", "template": "agenda", "summary": "1. one\n2. two"},
	{"title": "Thanks", "template": "summary_or_thankyou", "summary": "bye", "items": ["x"]}
]`

func allOptions() []Options {
	var out []Options
	for _, a := range []bool{false, true} {
		for _, s := range []bool{false, true} {
			out = append(out, Options{IncludeAgenda: a, IncludeSectionHeaders: s})
		}
	}
	return out
}

func TestSanitize_Idempotent(t *testing.T) {
	base := decode(t, messy)
	// Rotations give different positions for the agenda and section header.
	for shift := 0; shift < len(base); shift++ {
		ws := append(append([]outline.Wire(nil), base[shift:]...), base[:shift]...)
		for _, opts := range allOptions() {
			name := fmt.Sprintf("shift=%d/agenda=%v/sections=%v", shift, opts.IncludeAgenda, opts.IncludeSectionHeaders)
			t.Run(name, func(t *testing.T) {
				once := Sanitize(ws, opts, nil)
				twice := Apply(once, opts, nil)
				if diff := cmp.Diff(once.Wires(), twice.Wires()); diff != "" {
					t.Errorf("second pass changed the outline (-once +twice):\n%s", diff)
				}
			})
		}
	}
}

func TestSanitize_DoesNotModifyInput(t *testing.T) {
	ws := decode(t, messy)
	before, err := json.Marshal(ws[2:7])
	require.NoError(t, err)
	Sanitize(ws, Options{IncludeAgenda: true}, nil)
	after, err := json.Marshal(ws[2:7])
	require.NoError(t, err)
	assert.JSONEq(t, string(before), string(after))
}

func TestSanitize_FieldContract(t *testing.T) {
	var ws []outline.Wire
	for _, tmpl := range outline.Templates {
		ws = append(ws, outline.Wire{
			Title:        "T",
			Template:     tmpl,
			Summary:      "s",
			Items:        []outline.Entry{{Title: "i", Description: "d"}},
			Points:       []outline.Point{{Title: "p"}, {Title: "q"}, {Title: "r"}},
			Columns:      []outline.Column{{Title: "a"}, {Title: "b"}},
			Table:        &outline.Table{Headers: outline.Strings{"h"}, Rows: []outline.Strings{{"1"}}},
			Chart:        &outline.Chart{Labels: outline.Strings{"x"}, Dataset: outline.Dataset{Values: outline.Values{1}}},
			Number:       "1",
			Description:  "d",
			ContentTitle: "c",
			Formula:      "f",
			Infographic:  &outline.Infographic{Needed: true, Description: "g"},
			StartIndex:   3,
		})
	}

	got := Sanitize(ws, Options{IncludeAgenda: true, IncludeSectionHeaders: true}, nil)
	for _, it := range got {
		b, err := json.Marshal(it.Wire())
		require.NoError(t, err)
		var fields map[string]any
		require.NoError(t, json.Unmarshal(b, &fields))

		allowed := map[string]bool{"title": true, "template": true}
		for _, f := range outline.OwnedFields(it.Template()) {
			allowed[f] = true
		}
		for k := range fields {
			assert.True(t, allowed[k], "%s carries unowned field %q", it.Template(), k)
		}
	}
}

func TestSanitize_ReportsClearedFields(t *testing.T) {
	log := audit.NewLog()
	Sanitize(decode(t, `[{"title":"Bye","template":"summary_or_thankyou","summary":"x","number":"1"}]`), Options{}, log)

	var found bool
	for _, e := range log.Entries() {
		if e.Category == audit.CategoryRepaired && strings.Contains(e.Message, "summary, number") {
			found = true
		}
	}
	assert.True(t, found, "expected a cleared-fields notice, got %+v", log.Entries())
}

func TestSanitize_NewlinesEverywhere(t *testing.T) {
	ws := decode(t, `[
		{"title":"A\\nB","template":"content_basic","items":["x\\ny", {"title":"p\\nq","description":"r"}]},
		{"title":"Pts","template":"three_points","points":[{"title":"t\\n1","summary":"s\\n2","iconHint":"i"}]},
		{"title":"Cols","template":"comparison","columns":[{"title":"c\\nd","items":["e\\nf"]},{"title":"g","items":["h"]}]},
		{"title":"Tbl","template":"table_basic","summary":"a\\nb","table":{"headers":["h\\n1"],"rows":[["v\\n2"]]}},
		{"title":"Math","template":"math_basic","summary":"x\\ny","formula":"a \\neq b"}
	]`)
	got := Sanitize(ws, Options{}, nil)

	var check func(string, any)
	check = func(path string, v any) {
		switch x := v.(type) {
		case string:
			if path == "formula" {
				return
			}
			assert.NotContains(t, x, `\n`, "at %s", path)
		case []any:
			for _, e := range x {
				check(path, e)
			}
		case map[string]any:
			for k, e := range x {
				check(k, e)
			}
		}
	}
	b, err := json.Marshal(got)
	require.NoError(t, err)
	var tree any
	require.NoError(t, json.Unmarshal(b, &tree))
	check("", tree)

	assert.Equal(t, "A\nB", got[0].Heading())
	assert.Equal(t, []string{"x\ny", "p\nq: r"}, got[0].(*outline.ContentBasic).Items)
	assert.Equal(t, `a \neq b`, got[4].(*outline.MathBasic).Formula)
}

func TestSanitize_FormulaKeepsTeXCommands(t *testing.T) {
	const tex = `\nu = \frac{c}{\lambda} \neq \nabla \cdot E`
	ws := []outline.Wire{{
		Title:    "Waves",
		Template: outline.TemplateMath,
		Summary:  outline.Text(`frequency\nfrom wavelength`),
		Formula:  tex,
	}}
	got := Sanitize(ws, Options{}, nil)
	require.Len(t, got, 1)

	m := got[0].(*outline.MathBasic)
	assert.Equal(t, tex, m.Formula, "TeX commands starting with n must survive")
	assert.Equal(t, "frequency\nfrom wavelength", m.Summary)
}

func TestSanitize_AgendaSplit(t *testing.T) {
	entries := make([]string, 13)
	for i := range entries {
		entries[i] = fmt.Sprintf("Topic %d", i+1)
	}
	ws := []outline.Wire{
		{Title: "Deck", Template: outline.TemplateTitle},
		{Title: "Agenda", Template: outline.TemplateAgenda, Summary: outline.Text(strings.Join(entries, "\n"))},
		{Title: "Body", Template: outline.TemplateContent, Items: []outline.Entry{{Title: "x"}}},
	}
	got := Sanitize(ws, Options{IncludeAgenda: true, AgendaMaxItems: 6}, nil)
	require.Len(t, got, 5)

	wantCounts := []int{6, 6, 1}
	for i := 0; i < 3; i++ {
		a, ok := got[1+i].(*outline.Agenda)
		require.True(t, ok, "slide %d should be an agenda", i+2)
		assert.Len(t, a.Entries, wantCounts[i])
		assert.Equal(t, fmt.Sprintf("Agenda (%d/3)", i+1), a.Title)
		assert.Equal(t, i*6, a.StartIndex)
	}
	assert.Equal(t, "Topic 13", got[3].(*outline.Agenda).Entries[0])
	assert.IsType(t, &outline.ContentBasic{}, got[4])
}

func TestSanitize_AgendaSynthesized(t *testing.T) {
	log := audit.NewLog()
	ws := []outline.Wire{
		{Title: "Deck", Template: outline.TemplateTitle},
		{Title: "Intro", Template: outline.TemplateContent},
		{Title: "Details", Template: outline.TemplateTable},
		{Title: "Thanks", Template: outline.TemplateClosing},
	}
	got := Sanitize(ws, Options{IncludeAgenda: true}, log)
	require.Len(t, got, 5)
	a, ok := got[1].(*outline.Agenda)
	require.True(t, ok)
	assert.Equal(t, DefaultAgendaTitle, a.Title)
	assert.Equal(t, []string{"Intro", "Details"}, a.Entries)
	assert.Equal(t, 1, log.Count(audit.CategoryPolicy))
}

func TestSanitize_AgendaMovedToSecondSlot(t *testing.T) {
	ws := []outline.Wire{
		{Title: "Deck", Template: outline.TemplateTitle},
		{Title: "Intro", Template: outline.TemplateContent},
		{Title: "Agenda", Template: outline.TemplateAgenda, Summary: "Intro"},
	}
	got := Sanitize(ws, Options{IncludeAgenda: true}, nil)
	require.Len(t, got, 3)
	assert.IsType(t, &outline.Agenda{}, got[1])
	assert.IsType(t, &outline.ContentBasic{}, got[2])
}

func TestSanitize_AgendaRemovedWhenNotRequested(t *testing.T) {
	log := audit.NewLog()
	ws := []outline.Wire{
		{Title: "Deck", Template: outline.TemplateTitle},
		{Title: "Agenda (1/2)", Template: outline.TemplateAgenda, Summary: "a"},
		{Title: "Agenda (2/2)", Template: outline.TemplateAgenda, Summary: "b", StartIndex: 6},
		{Title: "Body", Template: outline.TemplateContent},
	}
	got := Sanitize(ws, Options{}, log)
	assert.Equal(t, []string{"Deck", "Body"}, got.Titles())
	assert.Equal(t, 1, log.Count(audit.CategoryPolicy))
}

func TestSanitize_TableSplit(t *testing.T) {
	rows := make([]outline.Strings, 15)
	for i := range rows {
		rows[i] = outline.Strings{fmt.Sprint(i), "v"}
	}
	ws := []outline.Wire{{
		Title:    "Results",
		Template: outline.TemplateTable,
		Summary:  "note",
		Table:    &outline.Table{Headers: outline.Strings{"n", "value"}, Rows: rows},
	}}
	got := Sanitize(ws, Options{TableMaxRows: 7}, nil)
	require.Len(t, got, 3)

	wantRows := []int{7, 7, 1}
	for i, it := range got {
		tb, ok := it.(*outline.TableBasic)
		require.True(t, ok)
		assert.Len(t, tb.Table.Rows, wantRows[i])
		assert.Equal(t, outline.Strings{"n", "value"}, tb.Table.Headers)
		assert.Equal(t, fmt.Sprintf("Results (part %d/3)", i+1), tb.Title)
		assert.Equal(t, "note", tb.Summary)
	}
	assert.Equal(t, "14", got[2].(*outline.TableBasic).Table.Rows[0][0])
}

func TestSanitize_SectionHeaders(t *testing.T) {
	ws := []outline.Wire{
		{Title: "Part 0", Template: outline.TemplateSection},
		{Title: "Body", Template: outline.TemplateContent},
		{Title: "Part 1", Template: outline.TemplateSection},
	}

	got := Sanitize(ws, Options{}, nil)
	assert.Equal(t, []string{"Part 0", "Body"}, got.Titles(), "position zero is never removed")

	log := audit.NewLog()
	got = Sanitize(ws[1:2], Options{IncludeSectionHeaders: true}, log)
	assert.Len(t, got, 1, "section headers are never fabricated")
	assert.Equal(t, 1, log.Count(audit.CategoryAttention))
}

func TestSanitize_HighlightedNumberGuard(t *testing.T) {
	ws := []outline.Wire{{
		Title:    "Savings",
		Template: outline.TemplateNumber,
		Number:   "**30%削減**",
	}}
	once := Sanitize(ws, Options{}, nil)
	twice := Apply(once, Options{}, nil)

	for _, o := range []outline.Outline{once, twice} {
		h := o[0].(*outline.HighlightedNumber)
		assert.Equal(t, "30%", h.Number)
		assert.Equal(t, 1, strings.Count(h.Description, "削減"))
	}
}

func TestGuardNumber_AppendsToExistingDescription(t *testing.T) {
	h := &outline.HighlightedNumber{Number: "`4.2倍`", Description: "Throughput"}
	guardNumber(h, 0, nil)
	assert.Equal(t, "4.2", h.Number)
	assert.Equal(t, "Throughput 倍", h.Description)

	h = &outline.HighlightedNumber{Number: "削減30%", Description: "コスト削減"}
	guardNumber(h, 0, nil)
	assert.Equal(t, "30%", h.Number)
	assert.Equal(t, "コスト削減", h.Description)
}

func TestNormalize_MovesFields(t *testing.T) {
	log := audit.NewLog()
	got := Normalize(decode(t, messy), log)

	assert.Equal(t, "sub one\nsub two", got[0].(*outline.TitleSlide).Subtitle)
	// Lines are split before literal newlines are normalized.
	assert.Equal(t, []string{"first\nsecond", "third"}, got[2].(*outline.ContentBasic).Items)
	assert.Equal(t, []outline.Step{{Title: "Plan", Description: "write it"}, {Title: "Ship", Description: "deliver"}},
		got[3].(*outline.VerticalSteps).Steps)
	assert.Len(t, got[4].(*outline.ThreePoints).Points, 3)
	assert.Len(t, got[5].(*outline.Comparison).Columns, 4)
	assert.Equal(t, outline.Values{1, 0, 3}, got[7].(*outline.BarChart).Chart.Dataset.Values)
	assert.Equal(t, "Someone", got[10].(*outline.Quote).Description)
	assert.Equal(t, []string{"one", "two"}, got[11].(*outline.ContentBasic).Items)
	assert.Equal(t, []string{"one", "two"}, got[12].(*outline.Agenda).Entries)
	assert.Positive(t, log.Count(audit.CategoryRepaired))
}
