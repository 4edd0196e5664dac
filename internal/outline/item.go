package outline

import (
	"math"
	"strings"
)

// Item is one slide descriptor. Each template has its own variant carrying
// only the fields that template owns.
type Item interface {
	Template() Template
	Heading() string
	Accept(v Visitor) error
	Wire() Wire
}

// Visitor has one method per template, so adding a template breaks every
// consumer until it handles the new variant.
type Visitor interface {
	VisitTitleSlide(*TitleSlide) error
	VisitAgenda(*Agenda) error
	VisitSectionHeader(*SectionHeader) error
	VisitContentBasic(*ContentBasic) error
	VisitContentWithDiagram(*ContentWithDiagram) error
	VisitThreePoints(*ThreePoints) error
	VisitVerticalSteps(*VerticalSteps) error
	VisitComparison(*Comparison) error
	VisitTable(*TableBasic) error
	VisitBarChart(*BarChart) error
	VisitMath(*MathBasic) error
	VisitHighlightedNumber(*HighlightedNumber) error
	VisitQuote(*Quote) error
	VisitClosing(*Closing) error
}

type TitleSlide struct {
	Title    string
	Subtitle string
}

// Agenda lists section titles. StartIndex is the zero-based number of the
// first entry, used to continue numbering across a split agenda.
type Agenda struct {
	Title      string
	Entries    []string
	StartIndex int
}

type SectionHeader struct {
	Title string
}

type ContentBasic struct {
	Title string
	Items []string
}

type ContentWithDiagram struct {
	Title       string
	Summary     string
	Infographic Infographic
}

type ThreePoints struct {
	Title  string
	Points []Point
}

// Step is one entry of a vertical_steps slide.
type Step struct {
	Title       string
	Description string
}

type VerticalSteps struct {
	Title string
	Steps []Step
}

type Comparison struct {
	Title   string
	Columns []Column
}

// TableBasic renders Summary as explanatory text below the table.
type TableBasic struct {
	Title   string
	Summary string
	Table   Table
}

type BarChart struct {
	Title string
	Chart Chart
}

type MathBasic struct {
	Title   string
	Summary string
	Formula string
}

type HighlightedNumber struct {
	Title        string
	Number       string
	Description  string
	ContentTitle string
	Summary      string
}

// Quote keeps the quoted text in Text (the wire "title") and the attribution
// in Description.
type Quote struct {
	Text        string
	Description string
}

type Closing struct {
	Title string
}

func (*TitleSlide) Template() Template         { return TemplateTitle }
func (*Agenda) Template() Template             { return TemplateAgenda }
func (*SectionHeader) Template() Template      { return TemplateSection }
func (*ContentBasic) Template() Template       { return TemplateContent }
func (*ContentWithDiagram) Template() Template { return TemplateDiagram }
func (*ThreePoints) Template() Template        { return TemplateThreePoints }
func (*VerticalSteps) Template() Template      { return TemplateSteps }
func (*Comparison) Template() Template         { return TemplateComparison }
func (*TableBasic) Template() Template         { return TemplateTable }
func (*BarChart) Template() Template           { return TemplateBarChart }
func (*MathBasic) Template() Template          { return TemplateMath }
func (*HighlightedNumber) Template() Template  { return TemplateNumber }
func (*Quote) Template() Template              { return TemplateQuote }
func (*Closing) Template() Template            { return TemplateClosing }

func (s *TitleSlide) Heading() string         { return s.Title }
func (s *Agenda) Heading() string             { return s.Title }
func (s *SectionHeader) Heading() string      { return s.Title }
func (s *ContentBasic) Heading() string       { return s.Title }
func (s *ContentWithDiagram) Heading() string { return s.Title }
func (s *ThreePoints) Heading() string        { return s.Title }
func (s *VerticalSteps) Heading() string      { return s.Title }
func (s *Comparison) Heading() string         { return s.Title }
func (s *TableBasic) Heading() string         { return s.Title }
func (s *BarChart) Heading() string           { return s.Title }
func (s *MathBasic) Heading() string          { return s.Title }
func (s *HighlightedNumber) Heading() string  { return s.Title }
func (s *Quote) Heading() string              { return s.Text }
func (s *Closing) Heading() string            { return s.Title }

func (s *TitleSlide) Accept(v Visitor) error         { return v.VisitTitleSlide(s) }
func (s *Agenda) Accept(v Visitor) error             { return v.VisitAgenda(s) }
func (s *SectionHeader) Accept(v Visitor) error      { return v.VisitSectionHeader(s) }
func (s *ContentBasic) Accept(v Visitor) error       { return v.VisitContentBasic(s) }
func (s *ContentWithDiagram) Accept(v Visitor) error { return v.VisitContentWithDiagram(s) }
func (s *ThreePoints) Accept(v Visitor) error        { return v.VisitThreePoints(s) }
func (s *VerticalSteps) Accept(v Visitor) error      { return v.VisitVerticalSteps(s) }
func (s *Comparison) Accept(v Visitor) error         { return v.VisitComparison(s) }
func (s *TableBasic) Accept(v Visitor) error         { return v.VisitTable(s) }
func (s *BarChart) Accept(v Visitor) error           { return v.VisitBarChart(s) }
func (s *MathBasic) Accept(v Visitor) error          { return v.VisitMath(s) }
func (s *HighlightedNumber) Accept(v Visitor) error  { return v.VisitHighlightedNumber(s) }
func (s *Quote) Accept(v Visitor) error              { return v.VisitQuote(s) }
func (s *Closing) Accept(v Visitor) error            { return v.VisitClosing(s) }

func (s *TitleSlide) Wire() Wire {
	return Wire{Title: Text(s.Title), Template: TemplateTitle, Summary: Text(s.Subtitle)}
}

func (s *Agenda) Wire() Wire {
	return Wire{
		Title:      Text(s.Title),
		Template:   TemplateAgenda,
		Summary:    Text(strings.Join(s.Entries, "\n")),
		StartIndex: s.StartIndex,
	}
}

func (s *SectionHeader) Wire() Wire {
	return Wire{Title: Text(s.Title), Template: TemplateSection}
}

func (s *ContentBasic) Wire() Wire {
	items := make([]Entry, len(s.Items))
	for i, it := range s.Items {
		items[i] = Entry{Title: it}
	}
	return Wire{Title: Text(s.Title), Template: TemplateContent, Items: items}
}

func (s *ContentWithDiagram) Wire() Wire {
	w := Wire{Title: Text(s.Title), Template: TemplateDiagram, Summary: Text(s.Summary)}
	if s.Infographic.Needed || s.Infographic.Description != "" {
		in := s.Infographic
		w.Infographic = &in
	}
	return w
}

func (s *ThreePoints) Wire() Wire {
	return Wire{Title: Text(s.Title), Template: TemplateThreePoints, Points: append([]Point(nil), s.Points...)}
}

func (s *VerticalSteps) Wire() Wire {
	items := make([]Entry, len(s.Steps))
	for i, st := range s.Steps {
		items[i] = Entry{Title: st.Title, Description: st.Description}
	}
	return Wire{Title: Text(s.Title), Template: TemplateSteps, Items: items}
}

func (s *Comparison) Wire() Wire {
	cols := make([]Column, len(s.Columns))
	for i, c := range s.Columns {
		cols[i] = Column{Title: c.Title, Items: append(Strings(nil), c.Items...)}
	}
	return Wire{Title: Text(s.Title), Template: TemplateComparison, Columns: cols}
}

func (s *TableBasic) Wire() Wire {
	t := copyTable(s.Table)
	return Wire{Title: Text(s.Title), Template: TemplateTable, Summary: Text(s.Summary), Table: &t}
}

func (s *BarChart) Wire() Wire {
	c := Chart{
		Labels:  append(Strings(nil), s.Chart.Labels...),
		Dataset: Dataset{Label: s.Chart.Dataset.Label, Values: append(Values(nil), s.Chart.Dataset.Values...)},
	}
	return Wire{Title: Text(s.Title), Template: TemplateBarChart, Chart: &c}
}

func (s *MathBasic) Wire() Wire {
	return Wire{Title: Text(s.Title), Template: TemplateMath, Summary: Text(s.Summary), Formula: s.Formula}
}

func (s *HighlightedNumber) Wire() Wire {
	return Wire{
		Title:        Text(s.Title),
		Template:     TemplateNumber,
		Number:       Text(s.Number),
		Description:  Text(s.Description),
		ContentTitle: Text(s.ContentTitle),
		Summary:      Text(s.Summary),
	}
}

func (s *Quote) Wire() Wire {
	return Wire{Title: Text(s.Text), Template: TemplateQuote, Description: Text(s.Description)}
}

func (s *Closing) Wire() Wire {
	return Wire{Title: Text(s.Title), Template: TemplateClosing}
}

// FromWire builds the typed variant for w.Template, keeping only the fields
// that template owns. Unknown templates become content_basic. Field moves
// between summary and list payloads are the guardrail's job, not this one.
func FromWire(w Wire) Item {
	title := strings.TrimSpace(string(w.Title))
	switch w.Template {
	case TemplateTitle:
		return &TitleSlide{Title: title, Subtitle: string(w.Summary)}
	case TemplateAgenda:
		start := w.StartIndex
		if start < 0 {
			start = 0
		}
		return &Agenda{Title: title, Entries: SplitLines(string(w.Summary)), StartIndex: start}
	case TemplateSection:
		return &SectionHeader{Title: title}
	case TemplateDiagram:
		s := &ContentWithDiagram{Title: title, Summary: string(w.Summary)}
		if w.Infographic != nil {
			s.Infographic = *w.Infographic
		}
		return s
	case TemplateThreePoints:
		return &ThreePoints{Title: title, Points: append([]Point(nil), w.Points...)}
	case TemplateSteps:
		steps := make([]Step, 0, len(w.Items))
		for _, e := range w.Items {
			steps = append(steps, Step{Title: e.Title, Description: e.Description})
		}
		return &VerticalSteps{Title: title, Steps: steps}
	case TemplateComparison:
		cols := make([]Column, len(w.Columns))
		for i, c := range w.Columns {
			cols[i] = Column{Title: c.Title, Items: append(Strings(nil), c.Items...)}
		}
		return &Comparison{Title: title, Columns: cols}
	case TemplateTable:
		s := &TableBasic{Title: title, Summary: string(w.Summary)}
		if w.Table != nil {
			s.Table = copyTable(*w.Table)
		}
		return s
	case TemplateBarChart:
		s := &BarChart{Title: title}
		if w.Chart != nil {
			s.Chart.Labels = append(Strings(nil), w.Chart.Labels...)
			s.Chart.Dataset.Label = w.Chart.Dataset.Label
			s.Chart.Dataset.Values = make(Values, len(w.Chart.Dataset.Values))
			for i, v := range w.Chart.Dataset.Values {
				if math.IsNaN(v) {
					v = 0
				}
				s.Chart.Dataset.Values[i] = v
			}
		}
		return s
	case TemplateMath:
		return &MathBasic{Title: title, Summary: string(w.Summary), Formula: w.Formula}
	case TemplateNumber:
		return &HighlightedNumber{
			Title:        title,
			Number:       string(w.Number),
			Description:  string(w.Description),
			ContentTitle: string(w.ContentTitle),
			Summary:      string(w.Summary),
		}
	case TemplateQuote:
		return &Quote{Text: title, Description: string(w.Description)}
	case TemplateClosing:
		return &Closing{Title: title}
	default:
		items := make([]string, 0, len(w.Items))
		for _, e := range w.Items {
			items = append(items, e.Text())
		}
		return &ContentBasic{Title: title, Items: items}
	}
}

// Text flattens an entry to one line of bullet text.
func (e Entry) Text() string {
	if e.Description == "" {
		return e.Title
	}
	if e.Title == "" {
		return e.Description
	}
	return e.Title + ": " + e.Description
}

// SplitLines splits newline-separated text into trimmed, non-empty lines with
// list markers removed.
func SplitLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		line = StripListMarker(strings.TrimSpace(line))
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

// StripListMarker removes leading "- ", "* ", "• " or "12. " markers.
func StripListMarker(s string) string {
	for {
		next := stripOneMarker(s)
		if next == s {
			return s
		}
		s = next
	}
}

func stripOneMarker(s string) string {
	for _, p := range []string{"- ", "* ", "• ", "・"} {
		if strings.HasPrefix(s, p) {
			return strings.TrimSpace(s[len(p):])
		}
	}
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i > 0 && i+1 < len(s) && (s[i] == '.' || s[i] == ')') && s[i+1] == ' ' {
		return strings.TrimSpace(s[i+1:])
	}
	return s
}

func copyTable(t Table) Table {
	out := Table{Headers: append(Strings(nil), t.Headers...)}
	if t.Rows != nil {
		out.Rows = make([]Strings, len(t.Rows))
		for i, r := range t.Rows {
			out.Rows[i] = append(Strings(nil), r...)
		}
	}
	return out
}
