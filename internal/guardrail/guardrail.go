// Package guardrail enforces the outline's field contract and deck policies on
// AI-produced outlines. Violations are never rejected: each one is corrected
// and reported on the audit sink.
package guardrail

import (
	"github.com/dgallion1/docdeck/internal/audit"
	"github.com/dgallion1/docdeck/internal/outline"
)

const component = "guardrail"

const (
	DefaultAgendaMaxItems = 6
	DefaultTableMaxRows   = 7
	DefaultAgendaTitle    = "Agenda"
)

// Options are the per-run policy switches.
type Options struct {
	IncludeAgenda         bool
	IncludeSectionHeaders bool

	AgendaMaxItems int
	TableMaxRows   int
	// AgendaTitle is used when an agenda has to be synthesized.
	AgendaTitle string
}

func (o Options) withDefaults() Options {
	if o.AgendaMaxItems <= 0 {
		o.AgendaMaxItems = DefaultAgendaMaxItems
	}
	if o.TableMaxRows <= 0 {
		o.TableMaxRows = DefaultTableMaxRows
	}
	if o.AgendaTitle == "" {
		o.AgendaTitle = DefaultAgendaTitle
	}
	return o
}

// Sanitize runs every rule, in order, on freshly decoded wire items:
// field normalization, literal-newline normalization, the highlighted-number
// guard, agenda policy, table pagination and section-header policy.
// The input is not modified.
func Sanitize(ws []outline.Wire, opts Options, sink audit.Sink) outline.Outline {
	opts = opts.withDefaults()
	o := Normalize(ws, sink)
	o = enforceAgenda(o, opts, sink)
	o = paginateTables(o, opts, sink)
	o = enforceSections(o, opts, sink)
	return o
}

// Apply re-runs Sanitize on an existing outline. Apply(Apply(o)) equals
// Apply(o).
func Apply(o outline.Outline, opts Options, sink audit.Sink) outline.Outline {
	return Sanitize(o.Wires(), opts, sink)
}

// Normalize runs only the field-level rules. It is used for user edits,
// where deck policies are the user's call.
func Normalize(ws []outline.Wire, sink audit.Sink) outline.Outline {
	fixed := make([]outline.Wire, len(ws))
	for i, w := range ws {
		w = normalizeFields(copyWire(w), i, sink)
		normalizeNewlines(&w)
		fixed[i] = w
	}
	o := outline.FromWires(fixed)
	for i, it := range o {
		if h, ok := it.(*outline.HighlightedNumber); ok {
			guardNumber(h, i, sink)
		}
	}
	return o
}
