// Package render turns one outline item into a standalone HTML slide by
// filling a theme's skeleton for the item's template. Skeletons are YAML data
// assets; placeholder substitution is a single literal pass.
package render

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/sync/errgroup"

	"github.com/dgallion1/docdeck/internal/icons"
	"github.com/dgallion1/docdeck/internal/infographic"
	"github.com/dgallion1/docdeck/internal/markdown"
	"github.com/dgallion1/docdeck/internal/outline"
)

const mathJaxScript = `<script defer src="https://cdn.jsdelivr.net/npm/mathjax@3/es5/tex-mml-chtml.js"></script>`

// IconResolver resolves an icon hint to SVG. It must not fail.
type IconResolver interface {
	Resolve(ctx context.Context, hint string) icons.Resolution
}

// Options wires the engine's collaborators. Icons and Drawer may be nil, in
// which case slides render without icons or diagrams.
type Options struct {
	// Themes holds *.yaml theme files; nil selects the built-in themes.
	Themes   fs.FS
	Markdown *markdown.Renderer
	Icons    IconResolver
	Drawer   infographic.Drawer
	Logger   *slog.Logger
}

// Engine renders slides. It holds no per-slide state.
type Engine struct {
	themes map[string]*theme
	md     *markdown.Renderer
	icons  IconResolver
	drawer infographic.Drawer
	log    *slog.Logger
}

func NewEngine(opts Options) (*Engine, error) {
	var (
		themes map[string]*theme
		err    error
	)
	if opts.Themes != nil {
		themes, err = loadThemes(opts.Themes)
	} else {
		themes, err = builtin()
	}
	if err != nil {
		return nil, fmt.Errorf("load themes: %w", err)
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	md := opts.Markdown
	if md == nil {
		md = markdown.New(log)
	}
	return &Engine{
		themes: themes,
		md:     md,
		icons:  opts.Icons,
		drawer: opts.Drawer,
		log:    log,
	}, nil
}

// Themes lists the loaded themes ordered by id.
func (e *Engine) Themes() []ThemeInfo {
	out := make([]ThemeInfo, 0, len(e.themes))
	for _, t := range e.themes {
		out = append(out, t.info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Resolve validates sel and fills in the default mode.
func (e *Engine) Resolve(sel Selection) (Selection, error) {
	t, ok := e.themes[sel.Theme]
	if !ok {
		return sel, fmt.Errorf("%w: %q", ErrUnknownTheme, sel.Theme)
	}
	if sel.Mode == "" {
		sel.Mode = t.info.Modes[0]
		if _, ok := t.modeVars["light"]; ok {
			sel.Mode = "light"
		}
	}
	if _, ok := t.modeVars[sel.Mode]; !ok {
		return sel, fmt.Errorf("%w: theme %q has no mode %q", ErrUnknownMode, sel.Theme, sel.Mode)
	}
	return sel, nil
}

// Position places a slide in its deck.
type Position struct {
	Index    int // zero-based
	Total    int
	Language string
}

// Render produces one complete HTML document for it.
func (e *Engine) Render(ctx context.Context, sel Selection, it outline.Item, pos Position) (string, error) {
	sel, err := e.Resolve(sel)
	if err != nil {
		return "", err
	}
	t := e.themes[sel.Theme]
	sk, ok := t.templates[it.Template()]
	if !ok {
		return "", &TemplateNotFoundError{Theme: sel.Theme, Template: it.Template()}
	}

	b := &slideBuilder{ctx: ctx, e: e, vals: make(map[string]string)}
	if err := it.Accept(b); err != nil {
		return "", err
	}
	b.vals["SLIDE_NO"] = strconv.Itoa(pos.Index + 1)
	b.vals["SLIDE_TOTAL"] = strconv.Itoa(pos.Total)

	lang := pos.Language
	if lang == "" {
		lang = "en"
	}
	page := t.layout.fill(map[string]string{
		"LANG":       html.EscapeString(lang),
		"PAGE_TITLE": html.EscapeString(plainText(it.Heading())),
		"THEME_VARS": t.modeVars[sel.Mode],
		"MODE":       html.EscapeString(sel.Mode),
		"TEMPLATE":   string(it.Template()),
		"HEAD_EXTRA": b.headExtra,
		"BODY":       sk.fill(b.vals),
	})
	return page, nil
}

var markerStripper = strings.NewReplacer("**", "", "__", "", "`", "")

func plainText(s string) string {
	return strings.Join(strings.Fields(markerStripper.Replace(s)), " ")
}

// slideBuilder computes placeholder values for one item.
type slideBuilder struct {
	ctx       context.Context
	e         *Engine
	vals      map[string]string
	headExtra string
}

func (b *slideBuilder) inline(s string) string { return b.e.md.HTML(s, markdown.InlineBR) }
func (b *slideBuilder) block(s string) string  { return b.e.md.HTML(s, markdown.BlockBR) }

func (b *slideBuilder) title(s string) {
	b.vals["TITLE"] = b.e.md.HTML(s, markdown.Inline)
}

func (b *slideBuilder) VisitTitleSlide(s *outline.TitleSlide) error {
	b.title(s.Title)
	b.vals["SUBTITLE"] = b.inline(s.Subtitle)
	return nil
}

func (b *slideBuilder) VisitAgenda(s *outline.Agenda) error {
	b.title(s.Title)
	ol := withAttr(el(atom.Ol, "agenda"), "start", strconv.Itoa(s.StartIndex+1))
	for _, entry := range s.Entries {
		ol.AppendChild(el(atom.Li, "", raw(b.inline(entry))))
	}
	b.vals["AGENDA_ITEMS"] = serialize(ol)
	b.vals["START"] = strconv.Itoa(s.StartIndex + 1)
	return nil
}

func (b *slideBuilder) VisitSectionHeader(s *outline.SectionHeader) error {
	b.title(s.Title)
	return nil
}

func (b *slideBuilder) VisitContentBasic(s *outline.ContentBasic) error {
	b.title(s.Title)
	ul := el(atom.Ul, "items")
	for _, it := range s.Items {
		ul.AppendChild(el(atom.Li, "", raw(b.inline(it))))
	}
	b.vals["ITEMS"] = serialize(ul)
	return nil
}

func (b *slideBuilder) VisitContentWithDiagram(s *outline.ContentWithDiagram) error {
	b.title(s.Title)
	b.vals["SUMMARY"] = b.block(s.Summary)
	if svg := b.drawInfographic(s.Infographic); svg != "" {
		b.vals["INFOGRAPHIC"] = serialize(el(atom.Div, "infographic", raw(svg)))
	}
	return nil
}

// drawInfographic degrades to no diagram on any failure.
func (b *slideBuilder) drawInfographic(in outline.Infographic) string {
	desc := strings.TrimSpace(in.Description)
	if !in.Needed || desc == "" || b.e.drawer == nil {
		return ""
	}
	svg, err := b.e.drawer.Draw(b.ctx, desc)
	if err != nil {
		b.e.log.Warn("infographic generation failed", "error", err)
		return ""
	}
	clean, err := infographic.Sanitize(svg)
	if err != nil {
		b.e.log.Warn("infographic sanitize failed", "error", err)
		return ""
	}
	return clean
}

func (b *slideBuilder) VisitThreePoints(s *outline.ThreePoints) error {
	b.title(s.Title)
	svgs := b.resolveIcons(s.Points)

	grid := el(atom.Div, "points")
	for i, p := range s.Points {
		card := el(atom.Div, "point")
		if svgs[i] != "" {
			card.AppendChild(el(atom.Div, "icon", raw(svgs[i])))
		}
		card.AppendChild(el(atom.H3, "", raw(b.inline(p.Title))))
		card.AppendChild(el(atom.P, "", raw(b.inline(p.Summary))))
		grid.AppendChild(card)
	}
	b.vals["POINTS"] = serialize(grid)
	return nil
}

// resolveIcons fetches every point's icon concurrently and waits for all of
// them. Resolution never fails, so the group only joins.
func (b *slideBuilder) resolveIcons(points []outline.Point) []string {
	svgs := make([]string, len(points))
	if b.e.icons == nil {
		return svgs
	}
	g, gctx := errgroup.WithContext(b.ctx)
	for i, p := range points {
		hint := p.IconHint
		if strings.TrimSpace(hint) == "" {
			hint = plainText(p.Title)
		}
		g.Go(func() error {
			svg := b.e.icons.Resolve(gctx, hint).SVG
			if clean, err := infographic.Sanitize(svg); err == nil {
				svg = clean
			} else {
				svg = icons.DefaultSVG
			}
			svgs[i] = svg
			return nil
		})
	}
	_ = g.Wait()
	return svgs
}

func (b *slideBuilder) VisitVerticalSteps(s *outline.VerticalSteps) error {
	b.title(s.Title)
	ol := el(atom.Ol, "steps")
	for i, st := range s.Steps {
		body := el(atom.Div, "step-body", el(atom.H3, "", raw(b.inline(st.Title))))
		if st.Description != "" {
			body.AppendChild(el(atom.P, "", raw(b.inline(st.Description))))
		}
		ol.AppendChild(el(atom.Li, "",
			el(atom.Span, "step-no", text(strconv.Itoa(i+1))),
			body,
		))
	}
	b.vals["STEPS"] = serialize(ol)
	return nil
}

func (b *slideBuilder) VisitComparison(s *outline.Comparison) error {
	b.title(s.Title)
	grid := el(atom.Div, "columns cols-"+strconv.Itoa(len(s.Columns)))
	for _, c := range s.Columns {
		ul := el(atom.Ul, "")
		for _, it := range c.Items {
			ul.AppendChild(el(atom.Li, "", raw(b.inline(it))))
		}
		grid.AppendChild(el(atom.Section, "column", el(atom.H3, "", raw(b.inline(c.Title))), ul))
	}
	b.vals["COLUMNS"] = serialize(grid)
	return nil
}

func (b *slideBuilder) VisitTable(s *outline.TableBasic) error {
	b.title(s.Title)
	width := len(s.Table.Headers)
	for _, r := range s.Table.Rows {
		width = max(width, len(r))
	}

	table := el(atom.Table, "")
	if len(s.Table.Headers) > 0 {
		tr := el(atom.Tr, "")
		for i := 0; i < width; i++ {
			cell := ""
			if i < len(s.Table.Headers) {
				cell = s.Table.Headers[i]
			}
			tr.AppendChild(el(atom.Th, "", raw(b.inline(cell))))
		}
		table.AppendChild(el(atom.Thead, "", tr))
	}
	tbody := el(atom.Tbody, "")
	for _, r := range s.Table.Rows {
		tr := el(atom.Tr, "")
		for i := 0; i < width; i++ {
			cell := ""
			if i < len(r) {
				cell = r[i]
			}
			tr.AppendChild(el(atom.Td, "", raw(b.inline(cell))))
		}
		tbody.AppendChild(tr)
	}
	table.AppendChild(tbody)

	b.vals["TABLE"] = serialize(table)
	b.vals["SUMMARY"] = b.block(s.Summary)
	return nil
}

func (b *slideBuilder) VisitBarChart(s *outline.BarChart) error {
	b.title(s.Title)
	if svg := barChartSVG(s.Chart); svg != "" {
		b.vals["CHART"] = serialize(el(atom.Div, "chart", raw(svg)))
	}
	return nil
}

func (b *slideBuilder) VisitMath(s *outline.MathBasic) error {
	b.title(s.Title)
	if f := strings.TrimSpace(s.Formula); f != "" {
		b.vals["FORMULA"] = serialize(el(atom.Div, "math", text(`\[ `+f+` \]`)))
		b.headExtra = mathJaxScript
	}
	b.vals["SUMMARY"] = b.block(s.Summary)
	return nil
}

func (b *slideBuilder) VisitHighlightedNumber(s *outline.HighlightedNumber) error {
	b.title(s.Title)
	b.vals["NUMBER"] = html.EscapeString(s.Number)
	b.vals["CONTENT_TITLE"] = b.inline(s.ContentTitle)
	b.vals["DESCRIPTION"] = b.inline(s.Description)
	b.vals["SUMMARY"] = b.block(s.Summary)
	return nil
}

func (b *slideBuilder) VisitQuote(s *outline.Quote) error {
	b.vals["QUOTE"] = b.inline(s.Text)
	b.vals["ATTRIBUTION"] = html.EscapeString(s.Description)
	return nil
}

func (b *slideBuilder) VisitClosing(s *outline.Closing) error {
	b.title(s.Title)
	return nil
}
