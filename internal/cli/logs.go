package cli

import (
	"github.com/spf13/cobra"

	"github.com/regidor/inventario/internal/config"
	"github.com/regidor/inventario/internal/logger"
	"github.com/regidor/inventario/internal/logtail"
)

func newLogsCommand(opts *RootOptions) *cobra.Command {
	var lines int
	var level string
	var raw bool
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the latest entries of the interface log",
		Long: `Print the end of the log file the terminal interface writes to
(log.file in the config, or ~/.local/share/inventario/inventario.log).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.ConfigPath)
			if err != nil {
				return WrapExitError(ExitCommandError, "", err)
			}
			path := cfg.Log.File
			if path == "" {
				path = config.DefaultLogPath()
			}
			entries, err := logtail.Read(path, lines)
			if err != nil {
				return WrapExitError(ExitFailure, "", err)
			}
			if cmd.Flags().Changed("level") {
				entries = logtail.AtLeast(entries, logger.ParseLevel(level))
			}
			return logtail.Print(cmd.OutOrStdout(), entries, !raw)
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 200, "number of lines to show (0 for all)")
	cmd.Flags().StringVar(&level, "level", "", "hide entries below this level (debug, info, warn, error)")
	cmd.Flags().BoolVar(&raw, "raw", false, "print JSON lines unformatted")
	return cmd
}
