package cli

import (
	"github.com/spf13/cobra"

	"github.com/regidor/inventario/internal/app"
	"github.com/regidor/inventario/internal/ui"
)

func newTUICommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Open the terminal interface (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, opts)
		},
	}
}

// runTUI builds an interactive App, whose logs go to a file, and hands the
// engine to the terminal UI.
func runTUI(cmd *cobra.Command, opts *RootOptions) error {
	ctx := cmd.Context()
	a, err := opts.build(ctx, app.Options{
		ConfigPath:  opts.ConfigPath,
		PrefsPath:   opts.PrefsPath,
		Interactive: true,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "", err)
	}
	defer a.Close()

	err = ui.Run(ctx, ui.Options{
		Engine:       a.Engine,
		Start:        a.Start,
		ThemeName:    a.Prefs.Theme,
		LastUsername: a.Prefs.LastUsername,
		OnLogin:      a.RememberUser,
		OnTheme:      a.SaveTheme,
		Logger:       a.Log,
	})
	if err != nil {
		return WrapExitError(ExitFailure, "interfaz", err)
	}
	return nil
}
