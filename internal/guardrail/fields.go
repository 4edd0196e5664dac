package guardrail

import (
	"math"
	"strings"

	"github.com/dgallion1/docdeck/internal/audit"
	"github.com/dgallion1/docdeck/internal/outline"
)

// normalizeFields moves content the AI put in the wrong field for w's
// template and repairs payloads that break the template's shape. Fields the
// template does not own are dropped later by outline.FromWire; they are
// reported here.
func normalizeFields(w outline.Wire, idx int, sink audit.Sink) outline.Wire {
	if !w.Template.Valid() {
		audit.Notef(sink, audit.CategoryRepaired, component,
			"slide %d: unknown template %q replaced with %s", idx+1, w.Template, outline.TemplateContent)
		w.Template = outline.TemplateContent
	}

	switch w.Template {
	case outline.TemplateContent:
		if len(w.Items) == 0 && strings.TrimSpace(string(w.Summary)) != "" {
			for _, line := range outline.SplitLines(string(w.Summary)) {
				w.Items = append(w.Items, outline.Entry{Title: line})
			}
			w.Summary = ""
			moved(sink, idx, "summary", "items")
		}

	case outline.TemplateSteps:
		if len(w.Items) == 0 && strings.TrimSpace(string(w.Summary)) != "" {
			for _, line := range outline.SplitLines(string(w.Summary)) {
				title, desc, _ := strings.Cut(line, ": ")
				w.Items = append(w.Items, outline.Entry{Title: title, Description: desc})
			}
			w.Summary = ""
			moved(sink, idx, "summary", "items")
		}

	case outline.TemplateThreePoints:
		switch {
		case len(w.Points) > 0:
		case len(w.Items) > 0:
			for _, e := range w.Items {
				w.Points = append(w.Points, outline.Point{Title: e.Title, Summary: e.Description})
			}
			w.Items = nil
			moved(sink, idx, "items", "points")
		case strings.TrimSpace(string(w.Summary)) != "":
			for _, line := range outline.SplitLines(string(w.Summary)) {
				title, summary, _ := strings.Cut(line, ": ")
				w.Points = append(w.Points, outline.Point{Title: title, Summary: summary})
			}
			w.Summary = ""
			moved(sink, idx, "summary", "points")
		}
		if len(w.Points) > 3 {
			audit.Notef(sink, audit.CategoryRepaired, component,
				"slide %d: three_points had %d points, kept the first 3", idx+1, len(w.Points))
			w.Points = w.Points[:3]
		} else if len(w.Points) < 3 {
			audit.Notef(sink, audit.CategoryAttention, component,
				"slide %d: three_points has %d points, expected 3", idx+1, len(w.Points))
		}

	case outline.TemplateComparison:
		if len(w.Columns) > 4 {
			audit.Notef(sink, audit.CategoryRepaired, component,
				"slide %d: comparison had %d columns, kept the first 4", idx+1, len(w.Columns))
			w.Columns = w.Columns[:4]
		} else if len(w.Columns) < 2 {
			audit.Notef(sink, audit.CategoryAttention, component,
				"slide %d: comparison has %d columns, expected 2 to 4", idx+1, len(w.Columns))
		}

	case outline.TemplateTitle, outline.TemplateAgenda, outline.TemplateDiagram,
		outline.TemplateMath, outline.TemplateTable:
		if strings.TrimSpace(string(w.Summary)) == "" && len(w.Items) > 0 {
			lines := make([]string, len(w.Items))
			for i, e := range w.Items {
				lines[i] = e.Text()
			}
			w.Summary = outline.Text(strings.Join(lines, "\n"))
			w.Items = nil
			moved(sink, idx, "items", "summary")
		}

	case outline.TemplateQuote:
		if strings.TrimSpace(string(w.Description)) == "" && strings.TrimSpace(string(w.Summary)) != "" {
			w.Description = w.Summary
			w.Summary = ""
			moved(sink, idx, "summary", "description")
		}

	case outline.TemplateBarChart:
		if w.Chart != nil {
			fixChart(w.Chart, idx, sink)
		}
	}

	if extra := unowned(w); len(extra) > 0 {
		audit.Notef(sink, audit.CategoryRepaired, component,
			"slide %d: cleared fields not used by %s: %s", idx+1, w.Template, strings.Join(extra, ", "))
	}
	return w
}

func fixChart(c *outline.Chart, idx int, sink audit.Sink) {
	if n := c.Dataset.Values.Invalid(); n > 0 {
		for i, v := range c.Dataset.Values {
			if math.IsNaN(v) {
				c.Dataset.Values[i] = 0
			}
		}
		audit.Notef(sink, audit.CategoryRepaired, component,
			"slide %d: %d non-numeric chart values replaced with 0", idx+1, n)
	}
	if nl, nv := len(c.Labels), len(c.Dataset.Values); nl != nv {
		n := min(nl, nv)
		c.Labels = c.Labels[:n]
		c.Dataset.Values = c.Dataset.Values[:n]
		audit.Notef(sink, audit.CategoryRepaired, component,
			"slide %d: chart had %d labels and %d values, truncated to %d", idx+1, nl, nv, n)
	}
}

func moved(sink audit.Sink, idx int, from, to string) {
	audit.Notef(sink, audit.CategoryRepaired, component, "slide %d: moved %s content into %s", idx+1, from, to)
}

// unowned lists populated wire fields the template does not own.
func unowned(w outline.Wire) []string {
	owned := make(map[string]bool)
	for _, f := range outline.OwnedFields(w.Template) {
		owned[f] = true
	}
	present := map[string]bool{
		"summary":      w.Summary != "",
		"items":        len(w.Items) > 0,
		"points":       len(w.Points) > 0,
		"columns":      len(w.Columns) > 0,
		"table":        w.Table != nil,
		"chart":        w.Chart != nil,
		"number":       w.Number != "",
		"description":  w.Description != "",
		"contentTitle": w.ContentTitle != "",
		"formula":      w.Formula != "",
		"infographic":  w.Infographic != nil,
		"startIndex":   w.StartIndex != 0,
	}
	var out []string
	for _, name := range fieldOrder {
		if present[name] && !owned[name] {
			out = append(out, name)
		}
	}
	return out
}

var fieldOrder = []string{
	"summary", "items", "points", "columns", "table", "chart",
	"number", "description", "contentTitle", "formula", "infographic", "startIndex",
}

// copyWire deep-copies the slices and pointers of w so later rules can
// mutate it in place.
func copyWire(w outline.Wire) outline.Wire {
	if w.Items != nil {
		w.Items = append([]outline.Entry(nil), w.Items...)
	}
	if w.Points != nil {
		w.Points = append([]outline.Point(nil), w.Points...)
	}
	if w.Columns != nil {
		cols := make([]outline.Column, len(w.Columns))
		for i, c := range w.Columns {
			cols[i] = outline.Column{Title: c.Title, Items: append(outline.Strings(nil), c.Items...)}
		}
		w.Columns = cols
	}
	if w.Table != nil {
		t := outline.Table{Headers: append(outline.Strings(nil), w.Table.Headers...)}
		if w.Table.Rows != nil {
			t.Rows = make([]outline.Strings, len(w.Table.Rows))
			for i, r := range w.Table.Rows {
				t.Rows[i] = append(outline.Strings(nil), r...)
			}
		}
		w.Table = &t
	}
	if w.Chart != nil {
		c := outline.Chart{
			Labels: append(outline.Strings(nil), w.Chart.Labels...),
			Dataset: outline.Dataset{
				Label:  w.Chart.Dataset.Label,
				Values: append(outline.Values(nil), w.Chart.Dataset.Values...),
			},
		}
		w.Chart = &c
	}
	if w.Infographic != nil {
		in := *w.Infographic
		w.Infographic = &in
	}
	return w
}
