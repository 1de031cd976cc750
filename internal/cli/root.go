package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/regidor/inventario/internal/app"
	"github.com/regidor/inventario/internal/state"
)

// Builder wires an App. Tests substitute one that returns a prepared App.
type Builder func(ctx context.Context, opts app.Options) (*app.App, error)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	PrefsPath  string
	Format     string // "text" | "json"
	Yes        bool

	build Builder
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command. Without a subcommand it opens
// the terminal UI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(app.Build)
}

func newRootCommand(build Builder) *cobra.Command {
	opts := &RootOptions{build: build}

	cmd := &cobra.Command{
		Use:           "inventario",
		Short:         "Inventario de materiales de obra",
		Long:          "Control de entradas, salidas y stock de materiales de construcción por obra.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, opts)
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "config file (default ~/.config/inventario/config.toml)")
	cmd.PersistentFlags().StringVar(&opts.PrefsPath, "prefs", "", "preferences file (default ~/.config/inventario/prefs.toml)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().BoolVarP(&opts.Yes, "yes", "y", false, "accept every confirmation")

	cmd.AddCommand(newTUICommand(opts))
	cmd.AddCommand(newLoginCommand(opts))
	cmd.AddCommand(newLogoutCommand(opts))
	cmd.AddCommand(newSyncCommand(opts))
	cmd.AddCommand(newMaterialsCommand(opts))
	cmd.AddCommand(newRecordCommand(opts))
	cmd.AddCommand(newHistoryCommand(opts))
	cmd.AddCommand(newExportCommand(opts))
	cmd.AddCommand(newClosePeriodCommand(opts))
	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newLogsCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// session is an App for one non-interactive command.
type session struct {
	*app.App
	prompt *Prompter
}

// open builds the App and, unless anonymous, restores the signed-in
// session and loads the dataset.
func open(cmd *cobra.Command, opts *RootOptions, anonymous bool) (*session, error) {
	prompt := &Prompter{In: cmd.InOrStdin(), Out: cmd.OutOrStdout(), AssumeYes: opts.Yes}
	a, err := opts.build(cmd.Context(), app.Options{
		ConfigPath: opts.ConfigPath,
		PrefsPath:  opts.PrefsPath,
		LogOut:     cmd.ErrOrStderr(),
		Dialog:     prompt,
	})
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "", err)
	}
	a.Engine.SetDialog(prompt)
	s := &session{App: a, prompt: prompt}
	if anonymous {
		return s, nil
	}

	ctx := cmd.Context()
	if !a.RequiresLogin() {
		a.Engine.ShowPage(ctx, state.ViewHome)
		return s, nil
	}
	if err := a.Engine.Restore(ctx); err != nil {
		_ = a.Close()
		return nil, classify(err)
	}
	if !a.Engine.Snapshot().Authenticated() {
		_ = a.Close()
		return nil, NewExitError(ExitCommandError, "sesión no iniciada; ejecute `inventario login`")
	}
	return s, nil
}
