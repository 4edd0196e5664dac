package pipeline

import (
	"sync"
	"time"

	"github.com/dgallion1/docdeck/internal/audit"
	"github.com/dgallion1/docdeck/internal/document"
	"github.com/dgallion1/docdeck/internal/outline"
	"github.com/dgallion1/docdeck/internal/render"
	"github.com/dgallion1/docdeck/internal/storage"
)

// Stage is the position of a run in the deck-building state machine.
type Stage string

const (
	StageCreated        Stage = "created"
	StageExtracting     Stage = "extracting"
	StageStructuring    Stage = "structuring"
	StageStructured     Stage = "structured"
	StageThemeSelection Stage = "theme_selection"
	StageOutlining      Stage = "outlining"
	StageOutlineReview  Stage = "outline_review"
	StageGenerating     Stage = "generating"
	StageSlideReview    Stage = "slide_review"
	StageCompleted      Stage = "completed"
	StageFailed         Stage = "failed"
)

// Busy reports whether a worker owns the run in this stage.
func (s Stage) Busy() bool {
	switch s {
	case StageExtracting, StageStructuring, StageOutlining, StageGenerating:
		return true
	}
	return false
}

// Options are the per-run deck choices.
type Options struct {
	IncludeAgenda         bool   `json:"include_agenda"`
	IncludeSectionHeaders bool   `json:"include_section_headers"`
	SlideCount            int    `json:"slide_count,omitempty"`
	Language              string `json:"language,omitempty"`
	ManualApproval        bool   `json:"manual_approval"`
}

// Run is one document's trip through the pipeline. Fields below mu are
// guarded by it; the exported fields are fixed at creation.
type Run struct {
	ID        string
	Filename  string
	CreatedAt time.Time

	mu        sync.Mutex
	stage     Stage
	updatedAt time.Time
	// epoch advances on every transition that starts or abandons work, so
	// a worker finishing a superseded task can tell its result is stale.
	epoch int
	// rollback is the stable stage a failure in the current busy stage
	// returns to; empty when there is none.
	rollback Stage
	failure  *Failure

	fileData   []byte
	doc        *document.Document
	structured string
	selection  render.Selection
	options    Options
	outline    outline.Outline
	snapshot   outline.Outline
	slides     []string
	resume     int
	manifest   *storage.Manifest

	log     *audit.Log
	sink    audit.Sink
	changed chan struct{}
}

func newRun(id, filename string, data []byte, sel render.Selection, opts Options, sink audit.Sink) *Run {
	now := time.Now()
	log := audit.NewLog()
	return &Run{
		ID:        id,
		Filename:  filename,
		CreatedAt: now,
		stage:     StageCreated,
		updatedAt: now,
		fileData:  data,
		selection: sel,
		options:   opts,
		log:       log,
		sink:      audit.Tee(log, sink),
		changed:   make(chan struct{}),
	}
}

// setStageLocked moves the run and wakes every waiter.
func (r *Run) setStageLocked(s Stage) {
	r.stage = s
	r.touchLocked()
}

func (r *Run) touchLocked() {
	r.updatedAt = time.Now()
	close(r.changed)
	r.changed = make(chan struct{})
}

// current reports whether t is still the run's live task.
func (r *Run) currentLocked(t task) bool {
	return r.epoch == t.epoch && r.stage == t.stage
}

// Progress summarizes slide generation.
type Progress struct {
	SlidesTotal    int `json:"slides_total"`
	SlidesRendered int `json:"slides_rendered"`
	ResumeIndex    int `json:"resume_index"`
}

// RunSnapshot is a read-only, JSON-safe copy of run state.
type RunSnapshot struct {
	ID             string            `json:"run_id"`
	Stage          Stage             `json:"stage"`
	Filename       string            `json:"filename"`
	ContentHash    string            `json:"content_hash,omitempty"`
	Selection      render.Selection  `json:"selection"`
	Options        Options           `json:"options"`
	StructuredText string            `json:"structured_text,omitempty"`
	Outline        outline.Outline   `json:"outline,omitempty"`
	Progress       Progress          `json:"progress"`
	Failure        *Failure          `json:"failure,omitempty"`
	Manifest       *storage.Manifest `json:"manifest,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the run state.
func (r *Run) Snapshot() RunSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

func (r *Run) snapshotLocked() RunSnapshot {
	s := RunSnapshot{
		ID:             r.ID,
		Stage:          r.stage,
		Filename:       r.Filename,
		Selection:      r.selection,
		Options:        r.options,
		StructuredText: r.structured,
		Outline:        r.outline.Clone(),
		Progress: Progress{
			SlidesTotal:    len(r.outline),
			SlidesRendered: len(r.slides),
			ResumeIndex:    r.resume,
		},
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.updatedAt,
	}
	if r.doc != nil {
		s.ContentHash = r.doc.Hash()
	}
	if r.failure != nil {
		f := *r.failure
		s.Failure = &f
	}
	if r.manifest != nil {
		m := *r.manifest
		s.Manifest = &m
	}
	return s
}

// RunStore is a thread-safe in-memory run registry with TTL eviction.
type RunStore struct {
	mu   sync.Mutex
	runs map[string]*Run
	ttl  time.Duration
}

func NewRunStore(ttl time.Duration) *RunStore {
	return &RunStore{
		runs: make(map[string]*Run),
		ttl:  ttl,
	}
}

func (s *RunStore) Put(r *Run) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[r.ID] = r
}

func (s *RunStore) Get(id string) *Run {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs[id]
}

func (s *RunStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.runs)
}

// Cleanup removes runs idle for longer than the TTL. Runs a worker owns are
// kept regardless of age.
func (s *RunStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, r := range s.runs {
		r.mu.Lock()
		expired := now.Sub(r.updatedAt) > s.ttl && !r.stage.Busy()
		r.mu.Unlock()
		if expired {
			delete(s.runs, id)
		}
	}
}
