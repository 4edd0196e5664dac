package outline

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Wire is the JSON form of one slide, as exchanged with the AI and the
// outline editor. It is a flat record whose meaningful fields depend on
// Template; decoding is lenient about the shapes the AI tends to produce.
type Wire struct {
	Title        Text         `json:"title"`
	Template     Template     `json:"template"`
	Summary      Text         `json:"summary,omitempty"`
	Items        []Entry      `json:"items,omitempty"`
	Points       []Point      `json:"points,omitempty"`
	Columns      []Column     `json:"columns,omitempty"`
	Table        *Table       `json:"table,omitempty"`
	Chart        *Chart       `json:"chart,omitempty"`
	Number       Text         `json:"number,omitempty"`
	Description  Text         `json:"description,omitempty"`
	ContentTitle Text         `json:"contentTitle,omitempty"`
	Formula      string       `json:"formula,omitempty"`
	Infographic  *Infographic `json:"infographic,omitempty"`
	StartIndex   int          `json:"startIndex,omitempty"`
}

// Text is a string that also decodes from numbers, booleans and arrays
// (array elements are joined with newlines).
type Text string

func (t *Text) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*t = Text(stringify(v, "\n"))
	return nil
}

// Strings is a list of strings that also decodes from a single scalar and
// from arrays of mixed scalars.
type Strings []string

func (s *Strings) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch x := v.(type) {
	case nil:
		*s = nil
	case []any:
		out := make(Strings, 0, len(x))
		for _, e := range x {
			out = append(out, stringify(e, " "))
		}
		*s = out
	default:
		*s = Strings{stringify(x, " ")}
	}
	return nil
}

// Entry is one element of an items list: a plain string for bullet lists or
// a {title, description} pair for step lists.
type Entry struct {
	Title       string
	Description string
}

func (e Entry) MarshalJSON() ([]byte, error) {
	if e.Description == "" {
		return json.Marshal(e.Title)
	}
	return json.Marshal(struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	}{e.Title, e.Description})
}

func (e *Entry) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	m, ok := v.(map[string]any)
	if !ok {
		*e = Entry{Title: stringify(v, " ")}
		return nil
	}
	*e = Entry{
		Title:       firstKey(m, "title", "name", "label", "step", "text"),
		Description: firstKey(m, "description", "summary", "detail", "content"),
	}
	return nil
}

// Point is one card of a three_points slide.
type Point struct {
	Title    string `json:"title"`
	Summary  string `json:"summary,omitempty"`
	IconHint string `json:"iconHint,omitempty"`
}

func (p *Point) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	m, ok := v.(map[string]any)
	if !ok {
		*p = Point{Title: stringify(v, " ")}
		return nil
	}
	*p = Point{
		Title:    firstKey(m, "title", "name", "label"),
		Summary:  firstKey(m, "summary", "description", "text"),
		IconHint: firstKey(m, "iconHint", "icon_hint", "icon"),
	}
	return nil
}

// Column is one column of a comparison slide.
type Column struct {
	Title string  `json:"title"`
	Items Strings `json:"items,omitempty"`
}

func (c *Column) UnmarshalJSON(b []byte) error {
	var aux struct {
		Title  Text    `json:"title"`
		Name   Text    `json:"name"`
		Items  Strings `json:"items"`
		Points Strings `json:"points"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	c.Title = string(aux.Title)
	if c.Title == "" {
		c.Title = string(aux.Name)
	}
	c.Items = aux.Items
	if len(c.Items) == 0 {
		c.Items = aux.Points
	}
	return nil
}

// Table is the payload of a table_basic slide.
type Table struct {
	Headers Strings   `json:"headers"`
	Rows    []Strings `json:"rows"`
}

// Chart is the payload of a bar_chart slide.
type Chart struct {
	Labels  Strings `json:"labels"`
	Dataset Dataset `json:"dataset"`
}

// Dataset is the single series of a bar chart.
type Dataset struct {
	Label  string `json:"label,omitempty"`
	Values Values `json:"values"`
}

func (c *Chart) UnmarshalJSON(b []byte) error {
	var aux struct {
		Labels   Strings   `json:"labels"`
		Dataset  *Dataset  `json:"dataset"`
		Datasets []Dataset `json:"datasets"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	c.Labels = aux.Labels
	switch {
	case aux.Dataset != nil:
		c.Dataset = *aux.Dataset
	case len(aux.Datasets) > 0:
		c.Dataset = aux.Datasets[0]
	default:
		c.Dataset = Dataset{}
	}
	return nil
}

// Values is a numeric series. Numeric strings such as "1,200" or "35%" are
// accepted; anything else decodes as NaN so validation can report it.
type Values []float64

func (vs *Values) UnmarshalJSON(b []byte) error {
	var raw []any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	out := make(Values, len(raw))
	for i, r := range raw {
		out[i] = toNumber(r)
	}
	*vs = out
	return nil
}

// Invalid counts the NaN entries.
func (vs Values) Invalid() int {
	n := 0
	for _, v := range vs {
		if math.IsNaN(v) {
			n++
		}
	}
	return n
}

// Infographic is the optional diagram request of content_with_diagram.
type Infographic struct {
	Needed      bool   `json:"needed"`
	Description string `json:"description,omitempty"`
}

func (in *Infographic) UnmarshalJSON(b []byte) error {
	var aux struct {
		Needed      any  `json:"needed"`
		Description Text `json:"description"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	in.Description = string(aux.Description)
	switch n := aux.Needed.(type) {
	case bool:
		in.Needed = n
	case string:
		in.Needed, _ = strconv.ParseBool(strings.ToLower(strings.TrimSpace(n)))
	case float64:
		in.Needed = n != 0
	default:
		in.Needed = false
	}
	return nil
}

func toNumber(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case string:
		s := strings.TrimSpace(x)
		s = strings.TrimSuffix(s, "%")
		s = strings.TrimLeft(s, "$¥€£")
		s = strings.ReplaceAll(s, ",", "")
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil || math.IsInf(f, 0) {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

func stringify(v any, sep string) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case []any:
		parts := make([]string, 0, len(x))
		for _, e := range x {
			if s := stringify(e, sep); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, sep)
	case map[string]any:
		title := firstKey(x, "title", "name", "label", "text", "value")
		desc := firstKey(x, "description", "summary", "detail")
		switch {
		case title != "" && desc != "":
			return title + ": " + desc
		case title != "":
			return title
		case desc != "":
			return desc
		}
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			if s := stringify(x[k], sep); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, sep)
	default:
		return ""
	}
}

func firstKey(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if s := stringify(v, "\n"); s != "" {
				return s
			}
		}
	}
	return ""
}
