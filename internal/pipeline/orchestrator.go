package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dgallion1/docdeck/internal/audit"
	"github.com/dgallion1/docdeck/internal/config"
	"github.com/dgallion1/docdeck/internal/diff"
	"github.com/dgallion1/docdeck/internal/guardrail"
	"github.com/dgallion1/docdeck/internal/llm"
	"github.com/dgallion1/docdeck/internal/outline"
	"github.com/dgallion1/docdeck/internal/parser"
	"github.com/dgallion1/docdeck/internal/render"
	"github.com/dgallion1/docdeck/internal/storage"
)

// Orchestrator owns the run registry and the worker pool, and applies user
// actions to runs. Every action validates the run's stage under the run's
// lock; busy stages are advanced only by workers.
type Orchestrator struct {
	runs   *RunStore
	queue  chan task
	gen    llm.Generator
	engine *render.Engine
	store  storage.Store
	log    *slog.Logger
	cfg    config.Config

	qmu    sync.RWMutex
	closed bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOrchestrator creates the pipeline. store may be nil, in which case
// finished decks are kept in memory only.
func NewOrchestrator(cfg config.Config, gen llm.Generator, engine *render.Engine, store storage.Store, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		runs:   NewRunStore(cfg.RunTTL),
		queue:  make(chan task, cfg.MaxQueueSize),
		gen:    gen,
		engine: engine,
		store:  store,
		log:    log,
		cfg:    cfg,
	}
}

// Start launches worker goroutines.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	for range o.cfg.WorkerCount {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			w := NewWorker(o.gen, o.engine, o.store, o.log, o.cfg)
			for {
				select {
				case <-workerCtx.Done():
					return
				case t, ok := <-o.queue:
					if !ok {
						return
					}
					w.Process(workerCtx, t)
				}
			}
		}()
	}

	// Start run store cleanup.
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				o.runs.Cleanup()
			}
		}
	}()
}

// Stop gracefully shuts down the pipeline.
func (o *Orchestrator) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
	o.qmu.Lock()
	if !o.closed {
		o.closed = true
		close(o.queue)
	}
	o.qmu.Unlock()
	o.wg.Wait()
}

// enqueue hands t to the worker pool without blocking.
func (o *Orchestrator) enqueue(t task) error {
	o.qmu.RLock()
	defer o.qmu.RUnlock()
	if o.closed {
		return ErrStopped
	}
	select {
	case o.queue <- t:
		return nil
	default:
		return fmt.Errorf("%w (%d)", ErrQueueFull, o.cfg.MaxQueueSize)
	}
}

// startLocked moves r into the busy stage s and queues the work. On a full
// queue the run is left untouched.
func (o *Orchestrator) startLocked(r *Run, s Stage, rollback Stage) error {
	t := task{run: r, stage: s, epoch: r.epoch + 1}
	if err := o.enqueue(t); err != nil {
		return err
	}
	r.epoch++
	r.rollback = rollback
	r.failure = nil
	r.setStageLocked(s)
	return nil
}

// CreateRequest is a new upload.
type CreateRequest struct {
	Filename string
	Data     []byte
	// Selection presets the theme; it can still be changed at theme
	// selection.
	Selection render.Selection
	Options   Options
}

// Create registers a run for the upload and queues extraction.
func (o *Orchestrator) Create(req CreateRequest) (RunSnapshot, error) {
	if !parser.IsSupportedExtension(req.Filename) {
		return RunSnapshot{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, req.Filename)
	}
	if len(req.Data) == 0 {
		return RunSnapshot{}, fmt.Errorf("%w: empty file", ErrInvalidInput)
	}
	if req.Selection.Theme == "" {
		req.Selection = render.Selection{Theme: o.cfg.DefaultTheme, Mode: o.cfg.DefaultMode}
	}

	id := uuid.NewString()
	r := newRun(id, req.Filename, req.Data, req.Selection, req.Options, audit.Slog(o.log.With("run_id", id)))

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := o.startLocked(r, StageExtracting, ""); err != nil {
		return RunSnapshot{}, err
	}
	o.runs.Put(r)
	o.log.Info("run created", "run_id", id, "filename", req.Filename, "size", len(req.Data))
	return r.snapshotLocked(), nil
}

// act runs fn on the run under its lock after checking the stage.
func (o *Orchestrator) act(id string, allowed []Stage, fn func(r *Run) error) (RunSnapshot, error) {
	r := o.runs.Get(id)
	if r == nil {
		return RunSnapshot{}, ErrRunNotFound
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if !slices.Contains(allowed, r.stage) {
		return r.snapshotLocked(), fmt.Errorf("%w: run is %s", ErrInvalidTransition, r.stage)
	}
	if err := fn(r); err != nil {
		return r.snapshotLocked(), err
	}
	return r.snapshotLocked(), nil
}

// EditStructuredText replaces the structured text under review.
func (o *Orchestrator) EditStructuredText(id, text string) (RunSnapshot, error) {
	return o.act(id, []Stage{StageStructured}, func(r *Run) error {
		r.structured = text
		r.touchLocked()
		return nil
	})
}

// RegenerateStructure discards the structured text and asks for a new one.
func (o *Orchestrator) RegenerateStructure(id string) (RunSnapshot, error) {
	return o.act(id, []Stage{StageStructured, StageThemeSelection}, func(r *Run) error {
		return o.startLocked(r, StageStructuring, r.stage)
	})
}

// ConfirmStructure accepts the structured text.
func (o *Orchestrator) ConfirmStructure(id string) (RunSnapshot, error) {
	return o.act(id, []Stage{StageStructured}, func(r *Run) error {
		if r.structured == "" {
			return fmt.Errorf("%w: structured text is empty", ErrInvalidInput)
		}
		r.setStageLocked(StageThemeSelection)
		return nil
	})
}

// SelectTheme fixes the theme and deck options and starts outline creation.
// An empty theme keeps the run's current selection; opts nil keeps the
// current options.
func (o *Orchestrator) SelectTheme(id string, sel render.Selection, opts *Options) (RunSnapshot, error) {
	return o.act(id, []Stage{StageThemeSelection}, func(r *Run) error {
		if sel.Theme == "" {
			sel = r.selection
		}
		resolved, err := o.engine.Resolve(sel)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		if opts != nil {
			if opts.SlideCount < 0 {
				return fmt.Errorf("%w: slide_count must not be negative", ErrInvalidInput)
			}
			r.options = *opts
		}
		r.selection = resolved
		return o.startLocked(r, StageOutlining, StageThemeSelection)
	})
}

// EditOutline replaces the outline with the user's version after field
// normalization. Deck policies are not re-applied to user edits.
func (o *Orchestrator) EditOutline(id string, ws []outline.Wire) (RunSnapshot, error) {
	return o.act(id, []Stage{StageOutlineReview}, func(r *Run) error {
		if len(ws) == 0 {
			return fmt.Errorf("%w: outline is empty", ErrInvalidInput)
		}
		r.outline = guardrail.Normalize(ws, r.sink)
		r.touchLocked()
		return nil
	})
}

// RegenerateOutline asks for a fresh outline.
func (o *Orchestrator) RegenerateOutline(id string) (RunSnapshot, error) {
	return o.act(id, []Stage{StageOutlineReview}, func(r *Run) error {
		return o.startLocked(r, StageOutlining, StageOutlineReview)
	})
}

// ApproveOutline snapshots the outline and resumes generation at the first
// slide whose source item changed since the previous snapshot. When nothing
// is left to render the run completes immediately.
func (o *Orchestrator) ApproveOutline(id string) (RunSnapshot, error) {
	return o.act(id, []Stage{StageOutlineReview}, func(r *Run) error {
		if len(r.outline) == 0 {
			return fmt.Errorf("%w: outline is empty", ErrInvalidInput)
		}
		plan := diff.Plan{Total: len(r.outline)}
		if r.snapshot != nil {
			plan = diff.Compute(r.snapshot, r.outline, len(r.slides))
		} else if len(r.slides) > 0 {
			plan.Dropped = len(r.slides)
		}

		if plan.Complete() {
			t := task{run: r, stage: StageCompleted, epoch: r.epoch + 1}
			if o.store != nil {
				if err := o.enqueue(t); err != nil {
					return err
				}
			}
			r.epoch++
			r.slides = r.slides[:plan.Resume]
			r.snapshot = r.outline.Clone()
			r.resume = plan.Resume
			r.manifest = nil
			r.setStageLocked(StageCompleted)
			audit.Notef(r.sink, audit.CategoryInfo, component, "outline unchanged within %d rendered slides; nothing to regenerate", plan.Resume)
			return nil
		}

		if err := o.startLocked(r, StageGenerating, StageOutlineReview); err != nil {
			return err
		}
		r.slides = r.slides[:plan.Resume]
		r.snapshot = r.outline.Clone()
		r.resume = plan.Resume
		r.manifest = nil
		audit.Notef(r.sink, audit.CategoryInfo, component,
			"generating from slide %d of %d (%d kept, %d discarded)", plan.Resume+1, plan.Total, plan.Resume, plan.Dropped)
		return nil
	})
}

// ApproveSlide accepts the slide under review and continues generation.
func (o *Orchestrator) ApproveSlide(id string) (RunSnapshot, error) {
	return o.act(id, []Stage{StageSlideReview}, func(r *Run) error {
		return o.startLocked(r, StageGenerating, StageOutlineReview)
	})
}

// ReturnToOutline goes back to outline editing. Work in flight for the
// abandoned stage is not cancelled; its result is dropped on arrival.
func (o *Orchestrator) ReturnToOutline(id string) (RunSnapshot, error) {
	return o.act(id, []Stage{StageGenerating, StageSlideReview, StageCompleted}, func(r *Run) error {
		r.epoch++
		r.rollback = ""
		r.setStageLocked(StageOutlineReview)
		return nil
	})
}

// Retry re-runs the failed stage.
func (o *Orchestrator) Retry(id string) (RunSnapshot, error) {
	return o.act(id, []Stage{StageFailed}, func(r *Run) error {
		f := r.failure
		if f == nil {
			return fmt.Errorf("%w: no failure recorded", ErrInvalidTransition)
		}
		audit.Notef(r.sink, audit.CategoryInfo, component, "retrying %s", f.Stage)
		return o.startLocked(r, f.Stage, f.Rollback)
	})
}

// Rollback returns a failed run to the last stable stage before the
// failure.
func (o *Orchestrator) Rollback(id string) (RunSnapshot, error) {
	return o.act(id, []Stage{StageFailed}, func(r *Run) error {
		if r.failure == nil || r.failure.Rollback == "" {
			return fmt.Errorf("%w: no stable stage to return to", ErrInvalidTransition)
		}
		to := r.failure.Rollback
		r.epoch++
		r.failure = nil
		r.rollback = ""
		r.setStageLocked(to)
		audit.Notef(r.sink, audit.CategoryInfo, component, "rolled back to %s", to)
		return nil
	})
}

// Get returns a run's state.
func (o *Orchestrator) Get(id string) (RunSnapshot, error) {
	r := o.runs.Get(id)
	if r == nil {
		return RunSnapshot{}, ErrRunNotFound
	}
	return r.Snapshot(), nil
}

// Log returns the run's audit entries from index since on.
func (o *Orchestrator) Log(id string, since int) ([]audit.Entry, error) {
	r := o.runs.Get(id)
	if r == nil {
		return nil, ErrRunNotFound
	}
	return r.log.Since(since), nil
}

// Slide returns the rendered markup of the zero-based slide index.
func (o *Orchestrator) Slide(id string, index int) (string, error) {
	r := o.runs.Get(id)
	if r == nil {
		return "", ErrRunNotFound
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if index < 0 || index >= len(r.slides) {
		return "", fmt.Errorf("%w: slide %d not rendered", ErrInvalidInput, index)
	}
	return r.slides[index], nil
}

// Wait blocks until the run reaches one of stages or ctx ends.
func (o *Orchestrator) Wait(ctx context.Context, id string, stages ...Stage) (RunSnapshot, error) {
	r := o.runs.Get(id)
	if r == nil {
		return RunSnapshot{}, ErrRunNotFound
	}
	for {
		r.mu.Lock()
		if slices.Contains(stages, r.stage) {
			s := r.snapshotLocked()
			r.mu.Unlock()
			return s, nil
		}
		changed := r.changed
		r.mu.Unlock()

		select {
		case <-changed:
		case <-ctx.Done():
			return r.Snapshot(), ctx.Err()
		}
	}
}

// Themes lists the themes runs can select.
func (o *Orchestrator) Themes() []render.ThemeInfo {
	return o.engine.Themes()
}

// QueueDepth returns current queue depth.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}

// RunCount returns the number of live runs.
func (o *Orchestrator) RunCount() int {
	return o.runs.Len()
}
