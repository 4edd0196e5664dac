package guardrail

import (
	"fmt"
	"strings"

	"github.com/dgallion1/docdeck/internal/audit"
	"github.com/dgallion1/docdeck/internal/outline"
)

// enforceAgenda makes position two an agenda when one is requested, splitting
// it when it lists too many entries, and removes it when one is not.
func enforceAgenda(o outline.Outline, opts Options, sink audit.Sink) outline.Outline {
	if !opts.IncludeAgenda {
		removed := 0
		for {
			pos := secondSlot(o, opts)
			if pos >= len(o) {
				break
			}
			if _, ok := o[pos].(*outline.Agenda); !ok {
				break
			}
			o = remove(o, pos)
			removed++
		}
		if removed > 0 {
			audit.Notef(sink, audit.CategoryPolicy, component,
				"removed %d agenda slide(s) because no agenda was requested", removed)
		}
		return o
	}
	if len(o) == 0 {
		return o
	}

	at := -1
	if len(o) > 1 {
		if _, ok := o[1].(*outline.Agenda); ok {
			at = 1
		}
	}
	if at < 0 {
		for i, it := range o {
			if _, ok := it.(*outline.Agenda); ok {
				at = i
				break
			}
		}
	}
	switch {
	case at == 1:
	case at == 0 && len(o) == 1:
		return o
	case at >= 0:
		a := o[at]
		o = insert(remove(o, at), 1, a)
		audit.Notef(sink, audit.CategoryPolicy, component, "moved agenda from slide %d to slide 2", at+1)
	default:
		var entries []string
		for _, it := range o[1:] {
			switch it.(type) {
			case *outline.Closing, *outline.Agenda:
				continue
			case *outline.SectionHeader:
				if !opts.IncludeSectionHeaders {
					continue
				}
			}
			if h := strings.Join(outline.SplitLines(it.Heading()), " "); h != "" {
				entries = append(entries, h)
			}
		}
		if len(entries) == 0 {
			audit.Notef(sink, audit.CategoryAttention, component, "agenda requested but there are no slides to list")
			return o
		}
		o = insert(o, 1, &outline.Agenda{Title: opts.AgendaTitle, Entries: entries})
		audit.Notef(sink, audit.CategoryPolicy, component, "synthesized agenda with %d entries", len(entries))
	}

	a := o[1].(*outline.Agenda)
	if len(a.Entries) <= opts.AgendaMaxItems {
		return o
	}
	n := (len(a.Entries) + opts.AgendaMaxItems - 1) / opts.AgendaMaxItems
	parts := make(outline.Outline, 0, n)
	for i := 0; i < n; i++ {
		lo := i * opts.AgendaMaxItems
		hi := min(lo+opts.AgendaMaxItems, len(a.Entries))
		parts = append(parts, &outline.Agenda{
			Title:      fmt.Sprintf("%s (%d/%d)", a.Title, i+1, n),
			Entries:    append([]string(nil), a.Entries[lo:hi]...),
			StartIndex: a.StartIndex + lo,
		})
	}
	audit.Notef(sink, audit.CategoryPolicy, component,
		"split agenda with %d entries into %d slides", len(a.Entries), n)
	return replace(o, 1, parts)
}

// paginateTables splits tables with too many rows into "(part i/n)" slides
// sharing headers and summary.
func paginateTables(o outline.Outline, opts Options, sink audit.Sink) outline.Outline {
	out := make(outline.Outline, 0, len(o))
	for i, it := range o {
		t, ok := it.(*outline.TableBasic)
		if !ok || len(t.Table.Rows) <= opts.TableMaxRows {
			out = append(out, it)
			continue
		}
		rows := t.Table.Rows
		n := (len(rows) + opts.TableMaxRows - 1) / opts.TableMaxRows
		for p := 0; p < n; p++ {
			lo := p * opts.TableMaxRows
			hi := min(lo+opts.TableMaxRows, len(rows))
			part := outline.Table{Headers: append(outline.Strings(nil), t.Table.Headers...)}
			for _, r := range rows[lo:hi] {
				part.Rows = append(part.Rows, append(outline.Strings(nil), r...))
			}
			out = append(out, &outline.TableBasic{
				Title:   fmt.Sprintf("%s (part %d/%d)", t.Title, p+1, n),
				Summary: t.Summary,
				Table:   part,
			})
		}
		audit.Notef(sink, audit.CategoryPolicy, component,
			"slide %d: split table with %d rows into %d slides", i+1, len(rows), n)
	}
	return out
}

// enforceSections removes section headers when they were not requested. When
// they were requested but none exist it only warns: section boundaries are
// not inferred.
func enforceSections(o outline.Outline, opts Options, sink audit.Sink) outline.Outline {
	if opts.IncludeSectionHeaders {
		for _, it := range o {
			if _, ok := it.(*outline.SectionHeader); ok {
				return o
			}
		}
		audit.Notef(sink, audit.CategoryAttention, component,
			"section headers were requested but the outline has none")
		return o
	}

	out := make(outline.Outline, 0, len(o))
	removed := 0
	for i, it := range o {
		if _, ok := it.(*outline.SectionHeader); ok && i > 0 {
			removed++
			continue
		}
		out = append(out, it)
	}
	if removed > 0 {
		audit.Notef(sink, audit.CategoryPolicy, component,
			"removed %d section header slide(s) because none were requested", removed)
	}
	return out
}

// secondSlot is the index that ends up at position two once section headers
// that are about to be removed are gone.
func secondSlot(o outline.Outline, opts Options) int {
	pos := 1
	if opts.IncludeSectionHeaders {
		return pos
	}
	for pos < len(o) {
		if _, ok := o[pos].(*outline.SectionHeader); !ok {
			break
		}
		pos++
	}
	return pos
}

func remove(o outline.Outline, i int) outline.Outline {
	out := make(outline.Outline, 0, len(o)-1)
	out = append(out, o[:i]...)
	return append(out, o[i+1:]...)
}

func insert(o outline.Outline, i int, it outline.Item) outline.Outline {
	out := make(outline.Outline, 0, len(o)+1)
	out = append(out, o[:i]...)
	out = append(out, it)
	return append(out, o[i:]...)
}

// replace swaps o[i] for parts.
func replace(o outline.Outline, i int, parts outline.Outline) outline.Outline {
	out := make(outline.Outline, 0, len(o)+len(parts)-1)
	out = append(out, o[:i]...)
	out = append(out, parts...)
	return append(out, o[i+1:]...)
}
