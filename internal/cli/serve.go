package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/regidor/inventario/internal/offline"
)

func newServeCommand(opts *RootOptions) *cobra.Command {
	var bind, origin string
	var skipPrecache bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the web client with an offline asset cache",
		Long: `Serve the runtime configuration at /api/config and proxy the web
client's assets from the configured origin. Successful responses are kept in
a local cache and served back when the origin is unreachable. Requests to the
hosted data service and to /api/config are never cached.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := open(cmd, opts, true)
			if err != nil {
				return err
			}
			defer s.Close()

			cfg := s.Config
			if strings.TrimSpace(bind) == "" {
				bind = cfg.Offline.Bind
			}
			if strings.TrimSpace(origin) == "" {
				origin = cfg.Offline.Origin
			}
			if origin == "" {
				return NewExitError(ExitCommandError, "origen de la aplicación web no configurado (offline.origin o --origin)")
			}

			cache, err := offline.Open(cfg.Offline.CachePath, "")
			if err != nil {
				return WrapExitError(ExitFailure, "abrir caché", err)
			}
			defer cache.Close()

			remoteHost := ""
			if s.Remote != nil {
				remoteHost = s.Remote.Host()
			}
			transport := offline.NewTransport(cache, origin, remoteHost, s.Log)

			ctx := cmd.Context()
			if err := transport.Activate(ctx); err != nil {
				s.Log.Warn().Err(err).Msg("activate cache failed")
			}
			if !skipPrecache {
				if err := transport.Install(ctx, offline.DefaultAssets); err != nil {
					s.Log.Warn().Err(err).Msg("precache incomplete")
				}
			}

			srv, err := offline.NewServer(offline.RemoteConfig{URL: cfg.Remote.URL, Key: cfg.Remote.Key}, transport, s.Log)
			if err != nil {
				return WrapExitError(ExitCommandError, "", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Sirviendo %s en http://%s (caché %s)\n", origin, bind, cache.Name())
			s.Log.Info().Str("bind", bind).Str("origin", origin).Msg("offline server listening")
			if err := srv.Listen(ctx, bind); err != nil {
				return WrapExitError(ExitFailure, "servidor", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&bind, "bind", "", "listen address (default from config)")
	cmd.Flags().StringVar(&origin, "origin", "", "upstream web client origin (default from config)")
	cmd.Flags().BoolVar(&skipPrecache, "no-precache", false, "skip fetching the application shell on start")
	return cmd
}
