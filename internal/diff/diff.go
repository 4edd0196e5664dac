// Package diff decides how much of an approved deck survives an outline edit.
//
// Items are compared by content hash, so two items are equal exactly when
// their wire forms serialize identically.
package diff

import "github.com/dgallion1/docdeck/internal/outline"

// ResumeIndex returns the lowest index below approved at which snapshot and
// current differ. When nothing in that range changed it returns the end of
// the range, clamped to both outline lengths, so rendered slides before the
// returned index are kept and everything from it onward is regenerated.
func ResumeIndex(snapshot, current []string, approved int) int {
	limit := min(max(approved, 0), len(snapshot), len(current))
	for i := 0; i < limit; i++ {
		if snapshot[i] != current[i] {
			return i
		}
	}
	return limit
}

// Plan is the outcome of comparing a snapshot against an edited outline.
type Plan struct {
	// Resume is the first slide to render.
	Resume int
	// Total is the length of the current outline.
	Total int
	// Dropped counts approved slides discarded by the edit.
	Dropped int
}

// Complete reports whether nothing is left to render.
func (p Plan) Complete() bool {
	return p.Resume >= p.Total
}

// Compute plans regeneration after approved slides were rendered from
// snapshot and the user produced current.
func Compute(snapshot, current outline.Outline, approved int) Plan {
	resume := ResumeIndex(snapshot.Hashes(), current.Hashes(), approved)
	return Plan{
		Resume:  resume,
		Total:   len(current),
		Dropped: max(approved-resume, 0),
	}
}
