package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dgallion1/docdeck/internal/chunker"
	"github.com/dgallion1/docdeck/internal/parser"
)

// extractCmd prints the text the pipeline would structure.
var extractCmd = &cobra.Command{
	Use:   "extract <file>",
	Short: "Print the extracted text of a document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		doc, err := parser.Extract(f, filepath.Base(args[0]), parser.Options{
			PDFFallbackPdftotext: cfg.PDFFallbackPdftotext,
		})
		if err != nil {
			return err
		}
		chunks := chunker.Split(doc.Text, cfg.StructureChunkTokens)
		logger.Info("extracted",
			"mime", doc.MIMEType,
			"pages", doc.Pages,
			"tokens", chunker.EstimateTokens(doc.Text),
			"structuring_parts", len(chunks),
			"hash", doc.Hash(),
		)
		fmt.Fprintln(cmd.OutOrStdout(), doc.Text)
		return nil
	},
}
