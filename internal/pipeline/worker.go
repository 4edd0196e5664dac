package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dgallion1/docdeck/internal/audit"
	"github.com/dgallion1/docdeck/internal/chunker"
	"github.com/dgallion1/docdeck/internal/config"
	"github.com/dgallion1/docdeck/internal/guardrail"
	"github.com/dgallion1/docdeck/internal/llm"
	"github.com/dgallion1/docdeck/internal/outline"
	"github.com/dgallion1/docdeck/internal/parser"
	"github.com/dgallion1/docdeck/internal/render"
	"github.com/dgallion1/docdeck/internal/repair"
	"github.com/dgallion1/docdeck/internal/storage"
)

const component = "pipeline"

// task asks a worker to run one busy stage of a run. A task whose epoch no
// longer matches the run's is stale and its result is dropped.
type task struct {
	run   *Run
	stage Stage
	epoch int
}

// Worker executes stage tasks.
type Worker struct {
	gen    llm.Generator
	engine *render.Engine
	store  storage.Store
	log    *slog.Logger
	cfg    config.Config
}

func NewWorker(gen llm.Generator, engine *render.Engine, store storage.Store, log *slog.Logger, cfg config.Config) *Worker {
	return &Worker{
		gen:    gen,
		engine: engine,
		store:  store,
		log:    log,
		cfg:    cfg,
	}
}

// Process runs the stage named by t.
func (w *Worker) Process(ctx context.Context, t task) {
	log := w.log.With("run_id", t.run.ID, "stage", t.stage)
	switch t.stage {
	case StageExtracting:
		if next, ok := w.extract(ctx, t, log); ok {
			w.structure(ctx, next, log)
		}
	case StageStructuring:
		w.structure(ctx, t, log)
	case StageOutlining:
		w.outline(ctx, t, log)
	case StageGenerating:
		w.generate(ctx, t, log)
	case StageCompleted:
		w.persistCompleted(ctx, t, log)
	default:
		log.Error("no handler for stage")
	}
}

// fail records err as the failure of t's stage, unless t is stale.
func (w *Worker) fail(t task, err error, log *slog.Logger) {
	r := t.run
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.currentLocked(t) {
		log.Info("discarding failure of abandoned stage", "error", err)
		return
	}
	r.failure = &Failure{
		Kind:     Classify(err),
		Stage:    t.stage,
		Message:  err.Error(),
		Rollback: r.rollback,
	}
	r.epoch++
	r.setStageLocked(StageFailed)
	log.Error("stage failed", "kind", r.failure.Kind, "error", err)
	audit.Notef(r.sink, audit.CategoryError, component, "%s failed: %s", t.stage, err)
}

// extract turns the uploaded file into a Document and hands the run on to
// structuring within the same task.
func (w *Worker) extract(ctx context.Context, t task, log *slog.Logger) (task, bool) {
	r := t.run
	r.mu.Lock()
	if !r.currentLocked(t) {
		r.mu.Unlock()
		return t, false
	}
	data := r.fileData
	r.mu.Unlock()

	doc, err := parser.Extract(bytes.NewReader(data), r.Filename, parser.Options{
		PDFFallbackPdftotext: w.cfg.PDFFallbackPdftotext,
	})
	if err == nil && doc.Empty() {
		err = fmt.Errorf("no extractable text in %s", r.Filename)
	}
	if err != nil {
		w.fail(t, fmt.Errorf("%w: %w", ErrExtraction, err), log)
		return t, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.currentLocked(t) {
		return t, false
	}
	r.doc = doc
	r.fileData = nil
	r.setStageLocked(StageStructuring)
	log.Info("document extracted", "mime", doc.MIMEType, "pages", doc.Pages, "chars", len(doc.Text))
	audit.Notef(r.sink, audit.CategoryInfo, component, "extracted %d characters from %s", len(doc.Text), r.Filename)
	return task{run: r, stage: StageStructuring, epoch: r.epoch}, true
}

// structure asks the generator for a markdown rewrite of the document, one
// chunk at a time for long documents.
func (w *Worker) structure(ctx context.Context, t task, log *slog.Logger) {
	r := t.run
	r.mu.Lock()
	if !r.currentLocked(t) || r.doc == nil {
		r.mu.Unlock()
		return
	}
	text := r.doc.Text
	r.mu.Unlock()

	chunks := chunker.Split(text, w.cfg.StructureChunkTokens)
	if len(chunks) > 1 {
		log.Info("structuring in chunks", "chunks", len(chunks))
		audit.Notef(r.sink, audit.CategoryInfo, component, "long document structured in %d parts", len(chunks))
	}

	parts := make([]string, 0, len(chunks))
	for i, c := range chunks {
		start := time.Now()
		resp, err := w.gen.Generate(ctx, llm.Request{Prompt: llm.BuildStructurePrompt(c, i+1, len(chunks)), Stage: llm.StageStructure})
		if err != nil {
			w.fail(t, fmt.Errorf("structure part %d: %w", i+1, err), log)
			return
		}
		md := llm.CleanMarkdown(resp)
		if md == "" {
			w.fail(t, fmt.Errorf("structure part %d: %w", i+1, ErrEmptyResponse), log)
			return
		}
		parts = append(parts, md)
		log.Debug("structured chunk", "part", i+1, "duration_ms", time.Since(start).Milliseconds())
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.currentLocked(t) {
		log.Info("discarding structured text of abandoned stage")
		return
	}
	r.structured = strings.Join(parts, "\n\n")
	r.rollback = ""
	r.setStageLocked(StageStructured)
}

// outline asks for the deck outline and runs it through repair and the
// guardrail before it reaches the user.
func (w *Worker) outline(ctx context.Context, t task, log *slog.Logger) {
	r := t.run
	r.mu.Lock()
	if !r.currentLocked(t) {
		r.mu.Unlock()
		return
	}
	structured := r.structured
	opts := r.options
	sel := r.selection
	sink := r.sink
	r.mu.Unlock()

	prompt := llm.BuildOutlinePrompt(llm.OutlineRequest{
		StructuredText:        structured,
		Templates:             w.templatesFor(sel.Theme),
		IncludeAgenda:         opts.IncludeAgenda,
		IncludeSectionHeaders: opts.IncludeSectionHeaders,
		SlideCount:            opts.SlideCount,
		Language:              opts.Language,
	})
	resp, err := w.gen.Generate(ctx, llm.Request{Prompt: prompt, Stage: llm.StageOutline})
	if err != nil {
		w.fail(t, fmt.Errorf("outline: %w", err), log)
		return
	}
	if strings.TrimSpace(resp) == "" {
		w.fail(t, fmt.Errorf("outline: %w", ErrEmptyResponse), log)
		return
	}

	ws, err := outline.Decode(llm.CleanJSON(resp), repair.Options{Structural: w.cfg.StructuralRepair}, sink)
	if err != nil {
		w.fail(t, fmt.Errorf("outline: %w", err), log)
		return
	}
	o := guardrail.Sanitize(ws, w.guardrailOptions(opts), sink)

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.currentLocked(t) {
		log.Info("discarding outline of abandoned stage")
		return
	}
	r.outline = o
	r.rollback = ""
	r.setStageLocked(StageOutlineReview)
	log.Info("outline ready", "slides", len(o))
}

func (w *Worker) guardrailOptions(opts Options) guardrail.Options {
	return guardrail.Options{
		IncludeAgenda:         opts.IncludeAgenda,
		IncludeSectionHeaders: opts.IncludeSectionHeaders,
		AgendaMaxItems:        w.cfg.AgendaMaxItems,
		TableMaxRows:          w.cfg.TableMaxRows,
	}
}

// templatesFor lists the templates the theme defines, or every template if
// the theme is unknown.
func (w *Worker) templatesFor(themeID string) []string {
	for _, th := range w.engine.Themes() {
		if th.ID == themeID {
			return th.Templates
		}
	}
	return outline.TemplateNames()
}

// generate renders slides strictly in order, starting after the slides
// already kept. In manual mode it stops after each slide for review.
func (w *Worker) generate(ctx context.Context, t task, log *slog.Logger) {
	r := t.run
	for {
		r.mu.Lock()
		if !r.currentLocked(t) {
			r.mu.Unlock()
			return
		}
		i, total := len(r.slides), len(r.outline)
		if i >= total {
			r.mu.Unlock()
			w.finish(ctx, t, log)
			return
		}
		item := r.outline[i]
		sel := r.selection
		lang := r.options.Language
		r.mu.Unlock()

		html, err := w.engine.Render(ctx, sel, item, render.Position{Index: i, Total: total, Language: lang})

		r.mu.Lock()
		if !r.currentLocked(t) {
			r.mu.Unlock()
			log.Info("discarding slide of abandoned stage", "slide", i+1)
			return
		}
		if err != nil {
			r.mu.Unlock()
			w.fail(t, fmt.Errorf("slide %d (%s): %w", i+1, item.Template(), err), log)
			return
		}
		r.slides = append(r.slides, html)
		r.touchLocked()
		log.Debug("slide rendered", "slide", i+1, "of", total, "template", item.Template())
		if r.options.ManualApproval {
			r.setStageLocked(StageSlideReview)
			r.mu.Unlock()
			return
		}
		r.mu.Unlock()
	}
}

// finish persists the deck and completes the run. A storage failure fails
// the generating stage so Retry can write it again.
func (w *Worker) finish(ctx context.Context, t task, log *slog.Logger) {
	m, err := w.persist(ctx, t.run)
	if err != nil {
		w.fail(t, fmt.Errorf("persist deck: %w", err), log)
		return
	}

	r := t.run
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.currentLocked(t) {
		return
	}
	r.manifest = m
	r.rollback = ""
	r.setStageLocked(StageCompleted)
	log.Info("run completed", "slides", len(r.slides))
	audit.Notef(r.sink, audit.CategoryInfo, component, "deck completed with %d slides", len(r.slides))
}

// persistCompleted writes the deck of a run that completed without
// rendering anything new. Failures are reported but leave the run complete.
func (w *Worker) persistCompleted(ctx context.Context, t task, log *slog.Logger) {
	r := t.run
	m, err := w.persist(ctx, r)
	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		log.Error("persist deck failed", "error", err)
		audit.Notef(r.sink, audit.CategoryError, component, "saving the deck failed: %s", err)
		return
	}
	if r.currentLocked(t) {
		r.manifest = m
		r.touchLocked()
	}
}

// persist writes the run's slides through the configured store. It returns
// a nil manifest when no store is configured.
func (w *Worker) persist(ctx context.Context, r *Run) (*storage.Manifest, error) {
	if w.store == nil {
		return nil, nil
	}
	r.mu.Lock()
	deck := storage.Deck{
		RunID:    r.ID,
		Source:   r.Filename,
		Theme:    r.selection.Theme,
		Mode:     r.selection.Mode,
		Titles:   r.outline.Titles(),
		Slides:   append([]string(nil), r.slides...),
		Finished: time.Now().UTC(),
	}
	o := r.outline.Clone()
	r.mu.Unlock()

	data, err := json.MarshalIndent(o, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal outline: %w", err)
	}
	deck.Outline = data
	m, err := storage.WriteDeck(ctx, w.store, deck)
	if err != nil {
		return nil, err
	}
	return &m, nil
}
