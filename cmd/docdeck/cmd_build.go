package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dgallion1/docdeck/internal/app"
	"github.com/dgallion1/docdeck/internal/pipeline"
	"github.com/dgallion1/docdeck/internal/render"
	"github.com/dgallion1/docdeck/internal/storage"
)

var buildFlags struct {
	theme          string
	mode           string
	out            string
	agenda         bool
	sectionHeaders bool
	slides         int
	language       string
}

// buildCmd runs a document through every stage.
var buildCmd = &cobra.Command{
	Use:   "build <file>",
	Short: "Build a slide deck from a document",
	Long: `Build a slide deck from a PDF, DOCX, HTML, Markdown or text file.

Slides are written through the configured storage backend under
runs/<run id>/. With --out the deck is written to that directory instead.`,
	Args: cobra.ExactArgs(1),
	RunE: runBuild,
}

func init() {
	f := buildCmd.Flags()
	f.StringVar(&buildFlags.theme, "theme", "", "Theme id (default from config)")
	f.StringVar(&buildFlags.mode, "mode", "", "Theme color mode")
	f.StringVarP(&buildFlags.out, "out", "o", "", "Write the deck to this directory")
	f.BoolVar(&buildFlags.agenda, "agenda", false, "Include an agenda slide")
	f.BoolVar(&buildFlags.sectionHeaders, "section-headers", false, "Allow section header slides")
	f.IntVar(&buildFlags.slides, "slides", 0, "Target slide count (0 lets the model decide)")
	f.StringVar(&buildFlags.language, "language", "", "Slide language")
}

func runBuild(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	if buildFlags.out != "" {
		cfg.StorageBackend = storage.BackendFS
		cfg.StorageDir = buildFlags.out
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	a.Orchestrator.Start(ctx)
	defer a.Close()

	sel := render.Selection{Theme: buildFlags.theme, Mode: buildFlags.mode}
	if sel.Theme == "" {
		sel = render.Selection{Theme: cfg.DefaultTheme, Mode: cfg.DefaultMode}
	}
	snap, err := driveRun(ctx, a.Orchestrator, pipeline.CreateRequest{
		Filename:  filepath.Base(path),
		Data:      data,
		Selection: sel,
		Options: pipeline.Options{
			IncludeAgenda:         buildFlags.agenda,
			IncludeSectionHeaders: buildFlags.sectionHeaders,
			SlideCount:            buildFlags.slides,
			Language:              buildFlags.language,
		},
	}, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	return printManifest(cmd.OutOrStdout(), snap)
}

// driveRun creates a run and approves every review stage until the deck is
// complete. A failed stage ends the run with its failure as the error.
func driveRun(ctx context.Context, o *pipeline.Orchestrator, req pipeline.CreateRequest, progress io.Writer) (pipeline.RunSnapshot, error) {
	snap, err := o.Create(req)
	if err != nil {
		return snap, err
	}
	id := snap.ID
	fmt.Fprintf(progress, "run %s: extracting %s\n", id, req.Filename)

	for {
		snap, err = o.Wait(ctx, id,
			pipeline.StageStructured,
			pipeline.StageThemeSelection,
			pipeline.StageOutlineReview,
			pipeline.StageSlideReview,
			pipeline.StageCompleted,
			pipeline.StageFailed,
		)
		if err != nil {
			return snap, err
		}

		switch snap.Stage {
		case pipeline.StageStructured:
			fmt.Fprintf(progress, "run %s: structured text ready (%d characters)\n", id, len(snap.StructuredText))
			snap, err = o.ConfirmStructure(id)
		case pipeline.StageThemeSelection:
			opts := req.Options
			snap, err = o.SelectTheme(id, req.Selection, &opts)
		case pipeline.StageOutlineReview:
			fmt.Fprintf(progress, "run %s: outline ready (%d slides)\n", id, len(snap.Outline))
			snap, err = o.ApproveOutline(id)
		case pipeline.StageSlideReview:
			snap, err = o.ApproveSlide(id)
		case pipeline.StageCompleted:
			fmt.Fprintf(progress, "run %s: completed %d slides\n", id, snap.Progress.SlidesRendered)
			return snap, nil
		case pipeline.StageFailed:
			f := snap.Failure
			return snap, fmt.Errorf("%s failed (%s): %s", f.Stage, f.Kind, f.Message)
		}
		if err != nil {
			return snap, err
		}
	}
}

func printManifest(w io.Writer, snap pipeline.RunSnapshot) error {
	if snap.Manifest == nil {
		return errors.New("deck was not persisted")
	}
	for _, s := range snap.Manifest.Slides {
		fmt.Fprintf(w, "%3d  %-40s  %s\n", s.Index+1, s.Title, s.Key)
	}
	return nil
}
