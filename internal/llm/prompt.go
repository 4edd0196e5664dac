package llm

import (
	"fmt"
	"strings"
)

const structurePrompt = `Rewrite the following document as clean, well-organized Markdown for building a slide deck.

Rules:
- Keep every fact, figure and name; do not invent content
- Use "#" for the document title and "##"/"###" for sections
- Use bullet lists for enumerations and tables for tabular data
- Mark key terms with **bold**
- Remove page numbers, headers/footers and extraction artifacts
- Respond with ONLY the Markdown, no commentary`

// BuildStructurePrompt creates the prompt that turns raw extracted text into
// structured markdown. part/total describe the chunk position for long
// documents (total == 1 for a single chunk).
func BuildStructurePrompt(text string, part, total int) string {
	var sb strings.Builder
	sb.WriteString(structurePrompt)
	if total > 1 {
		fmt.Fprintf(&sb, "\n- This is part %d of %d of a longer document; only emit a \"#\" title for part 1", part, total)
	}
	sb.WriteString("\n\n---\n")
	sb.WriteString(text)
	return sb.String()
}

// OutlineRequest carries what the outline prompt needs from the run.
type OutlineRequest struct {
	StructuredText        string
	Templates             []string
	IncludeAgenda         bool
	IncludeSectionHeaders bool
	SlideCount            int
	Language              string
}

const outlinePrompt = `Design a slide deck outline from the Markdown below. Return a JSON array; each element is one slide object with:

- "title": slide title (string)
- "template": one of %s
- "summary": string (title_slide subtitle, agenda lines separated by "\n", explanatory text for table_basic/math_basic/content_with_diagram/highlighted_number)
- "items": list of strings (content_basic) or list of {"title","description"} (vertical_steps)
- "points": exactly 3 of {"title","summary","iconHint"} (three_points; iconHint is an English icon name like "shield-check")
- "columns": 2 to 4 of {"title","items":[...]} (comparison)
- "table": {"headers":[...],"rows":[[...],...]} (table_basic)
- "chart": {"labels":[...],"dataset":{"label":"...","values":[numbers]}} (bar_chart)
- "number", "description", "contentTitle" (highlighted_number; number holds only the figure, e.g. "30%%")
- "formula": LaTeX without delimiters (math_basic)
- "infographic": {"needed": true|false, "description": "..."} (content_with_diagram)
- quote: "title" is the quoted text, "description" the attribution

Rules:
- The first slide is a title_slide; the last slide is a summary_or_thankyou
- Only fill the fields the chosen template uses
- Use Markdown **bold** for emphasis inside text fields
%s
Respond with ONLY the JSON array, no other text.`

// BuildOutlinePrompt creates the outline-creation prompt.
func BuildOutlinePrompt(r OutlineRequest) string {
	var rules []string
	if r.IncludeAgenda {
		rules = append(rules, `- The second slide is an agenda listing the main sections`)
	} else {
		rules = append(rules, `- Do not include an agenda slide`)
	}
	if r.IncludeSectionHeaders {
		rules = append(rules, `- Start each major section with a section_header slide`)
	} else {
		rules = append(rules, `- Do not use section_header slides`)
	}
	if r.SlideCount > 0 {
		rules = append(rules, fmt.Sprintf("- Aim for about %d slides", r.SlideCount))
	}
	if r.Language != "" {
		rules = append(rules, fmt.Sprintf("- Write all slide text in %s", r.Language))
	}

	quoted := make([]string, len(r.Templates))
	for i, t := range r.Templates {
		quoted[i] = fmt.Sprintf("%q", t)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, outlinePrompt, strings.Join(quoted, ", "), strings.Join(rules, "\n"))
	sb.WriteString("\n\n---\n")
	sb.WriteString(r.StructuredText)
	return sb.String()
}

// BuildIconPrompt asks for an icon name for a free-form hint. tried lists
// names that already failed to resolve.
func BuildIconPrompt(hint string, tried []string) string {
	var sb strings.Builder
	sb.WriteString("Suggest one Lucide icon name for the concept below. ")
	sb.WriteString("Answer with the icon name only: lowercase English words joined by hyphens, matching [a-z0-9-]+.\n")
	if len(tried) > 0 {
		fmt.Fprintf(&sb, "These names do not exist, do not repeat them: %s\n", strings.Join(tried, ", "))
	}
	fmt.Fprintf(&sb, "Concept: %s", hint)
	return sb.String()
}

// BuildInfographicPrompt asks for a standalone SVG diagram.
func BuildInfographicPrompt(description string) string {
	return "Draw a clean, flat infographic as a single standalone <svg> element with a viewBox. " +
		"Use a transparent background, no external references, no scripts, and legible text. " +
		"Respond with ONLY the SVG markup.\n\nDiagram: " + description
}
