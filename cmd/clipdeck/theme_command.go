package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"clipdeck/internal/prefs"
)

func newThemeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:       "theme [light|dark|toggle]",
		Short:     "Show or change the colour theme",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"light", "dark", "toggle"},
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx := ctx.commandCtx(cmd)
			store, err := ctx.ensurePrefs()
			if err != nil {
				return err
			}

			var theme prefs.Theme
			switch {
			case len(args) == 0:
				theme, err = prefs.LoadTheme(runCtx, store)
			case strings.EqualFold(strings.TrimSpace(args[0]), "toggle"):
				theme, err = prefs.ToggleTheme(runCtx, store)
			default:
				theme, err = prefs.ParseTheme(args[0])
				if err == nil {
					err = prefs.SaveTheme(runCtx, store, theme)
				}
			}
			if err != nil {
				return err
			}

			if ctx.jsonOutput() {
				return writeJSON(cmd, map[string]string{"theme": string(theme)})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Theme: %s\n", theme)
			return nil
		},
	}
}
