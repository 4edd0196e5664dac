package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dgallion1/docdeck/internal/config"
)

var (
	// Global flags
	configPath string
	verbose    bool
	timeout    time.Duration

	logger *slog.Logger
	cfg    config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "docdeck",
	Short: "docdeck - turn documents into slide decks",
	Long: `docdeck extracts a document, restructures it with an AI model, designs a
slide outline and renders every slide as standalone HTML.

The CLI drives one run end to end and approves every review stage on your
behalf. Use the server for interactive review.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		level := cfg.SlogLevel()
		if verbose {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "TOML config file (default ./"+config.DefaultFile+" when present)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Minute, "Overall time limit")

	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(themesCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
