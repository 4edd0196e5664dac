package outline

// Template is the slide-type discriminator.
type Template string

const (
	TemplateTitle       Template = "title_slide"
	TemplateAgenda      Template = "agenda"
	TemplateSection     Template = "section_header"
	TemplateContent     Template = "content_basic"
	TemplateDiagram     Template = "content_with_diagram"
	TemplateThreePoints Template = "three_points"
	TemplateSteps       Template = "vertical_steps"
	TemplateComparison  Template = "comparison"
	TemplateTable       Template = "table_basic"
	TemplateBarChart    Template = "bar_chart"
	TemplateMath        Template = "math_basic"
	TemplateNumber      Template = "highlighted_number"
	TemplateQuote       Template = "quote"
	TemplateClosing     Template = "summary_or_thankyou"
)

// Templates lists every template in a stable order.
var Templates = []Template{
	TemplateTitle,
	TemplateAgenda,
	TemplateSection,
	TemplateContent,
	TemplateDiagram,
	TemplateThreePoints,
	TemplateSteps,
	TemplateComparison,
	TemplateTable,
	TemplateBarChart,
	TemplateMath,
	TemplateNumber,
	TemplateQuote,
	TemplateClosing,
}

// Valid reports whether t is one of the fixed templates.
func (t Template) Valid() bool {
	_, ok := ownedFields[t]
	return ok
}

// ownedFields maps each template to the wire fields it may populate besides
// title and template.
var ownedFields = map[Template][]string{
	TemplateTitle:       {"summary"},
	TemplateAgenda:      {"summary", "startIndex"},
	TemplateSection:     {},
	TemplateContent:     {"items"},
	TemplateDiagram:     {"summary", "infographic"},
	TemplateThreePoints: {"points"},
	TemplateSteps:       {"items"},
	TemplateComparison:  {"columns"},
	TemplateTable:       {"table", "summary"},
	TemplateBarChart:    {"chart"},
	TemplateMath:        {"summary", "formula"},
	TemplateNumber:      {"number", "description", "contentTitle", "summary"},
	TemplateQuote:       {"description"},
	TemplateClosing:     {},
}

// OwnedFields returns the JSON names of the payload fields t owns.
func OwnedFields(t Template) []string {
	f := ownedFields[t]
	out := make([]string, len(f))
	copy(out, f)
	return out
}

// TemplateNames returns Templates as strings, for prompts and listings.
func TemplateNames() []string {
	out := make([]string, len(Templates))
	for i, t := range Templates {
		out[i] = string(t)
	}
	return out
}
