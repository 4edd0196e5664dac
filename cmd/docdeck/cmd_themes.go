package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dgallion1/docdeck/internal/render"
)

// themesCmd lists the built-in themes.
var themesCmd = &cobra.Command{
	Use:   "themes",
	Short: "List available themes",
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := render.NewEngine(render.Options{Logger: logger})
		if err != nil {
			return err
		}
		for _, th := range engine.Themes() {
			fmt.Fprintf(cmd.OutOrStdout(), "%-12s %-20s modes=%s templates=%d\n",
				th.ID, th.Name, strings.Join(th.Modes, ","), len(th.Templates))
		}
		return nil
	},
}
