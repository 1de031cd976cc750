package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/regidor/inventario/internal/config"
	"github.com/regidor/inventario/internal/engine"
	"github.com/regidor/inventario/internal/export"
	"github.com/regidor/inventario/internal/inventory"
	"github.com/regidor/inventario/internal/logger"
	"github.com/regidor/inventario/internal/memstore"
	"github.com/regidor/inventario/internal/postgres"
	"github.com/regidor/inventario/internal/prefs"
	"github.com/regidor/inventario/internal/supabase"
)

// Options configure Build.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses ~/.config/inventario/prefs.toml
	// Interactive sends logs to a file so the terminal UI owns the screen.
	Interactive bool
	LogOut      io.Writer
	Dialog      engine.Dialog
}

// App holds the wired components for one process.
type App struct {
	Config config.Config
	Prefs  prefs.Prefs
	Log    zerolog.Logger
	Engine *engine.Engine
	Store  inventory.Store
	// Auth is nil for backends without remote sessions.
	Auth *supabase.Auth
	// Remote is the hosted project client when the backend is supabase.
	Remote *supabase.Client

	prefsPath string
	closers   []func() error
}

// Build loads configuration and wires logging, the store, the
// authenticator and the engine.
func Build(ctx context.Context, opts Options) (*App, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	userPrefs, prefsErr := prefs.Load(opts.PrefsPath)

	logCfg := logger.Config{Env: cfg.Log.Env, Level: cfg.Log.Level, File: cfg.Log.File, Out: opts.LogOut}
	if opts.Interactive && logCfg.File == "" {
		logCfg.File = config.DefaultLogPath()
	}
	log, logCloser, err := logger.New(logCfg)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	a := &App{Config: cfg, Prefs: userPrefs, Log: log, prefsPath: opts.PrefsPath}
	a.closers = append(a.closers, logCloser.Close)
	if prefsErr != nil {
		a.Log.Warn().Err(prefsErr).Msg("preferences ignored")
	}

	if err := a.openStore(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}

	var authn inventory.Authenticator
	if a.Auth != nil {
		authn = a.Auth
	}
	eng, err := engine.New(engine.Options{
		Store:    a.Store,
		Auth:     authn,
		Dialog:   opts.Dialog,
		Exporter: export.Writer{Dir: cfg.ExportDir, Location: cfg.Location},
		Logger:   &a.Log,
		Location: cfg.Location,
	})
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("init engine: %w", err)
	}
	a.Engine = eng
	a.closers = append(a.closers, func() error { eng.Close(); return nil })

	a.Log.Info().
		Str("backend", cfg.Backend).
		Str("timezone", cfg.Timezone).
		Str("export_dir", cfg.ExportDir).
		Msg("inventario ready")
	return a, nil
}

func (a *App) openStore(ctx context.Context) error {
	switch a.Config.Backend {
	case config.BackendPostgres:
		pool, err := postgres.NewPool(ctx, a.Config.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		a.closers = append(a.closers, func() error { pool.Close(); return nil })
		a.Store = postgres.New(pool)

	case config.BackendMemory:
		a.Store = memstore.New()

	default:
		if err := a.Config.ResolveRemote(ctx, nil); err != nil {
			return err
		}
		client, err := supabase.NewClient(a.Config.Remote.URL, a.Config.Remote.Key)
		if err != nil {
			return fmt.Errorf("init remote client: %w", err)
		}
		auth := supabase.NewAuth(client, supabase.AuthOptions{
			EmailDomain: a.Config.EmailDomain,
			SessionFile: a.Config.SessionFile,
			Logger:      &a.Log,
		})
		client.SetTokenSource(auth)
		a.Remote = client
		a.Auth = auth
		a.Store = client
	}
	return nil
}

// RequiresLogin reports whether the backend needs a signed-in session.
func (a *App) RequiresLogin() bool {
	return a.Auth != nil
}

// Start enters the app area. With an authenticator it restores the
// stored session and keeps it fresh; otherwise it goes straight to the
// dashboard.
func (a *App) Start(ctx context.Context) error {
	if a.Auth == nil {
		a.Engine.ShowPage(ctx, "")
		return nil
	}
	StartRefresher(ctx, a.Auth, a.Log, 0)
	return a.Engine.Restore(ctx)
}

// RememberUser stores the last username used to sign in.
func (a *App) RememberUser(username string) {
	a.Prefs.LastUsername = username
	if err := prefs.Save(a.prefsPath, a.Prefs); err != nil {
		a.Log.Warn().Err(err).Msg("save prefs failed")
	}
}

// SaveTheme stores the selected theme.
func (a *App) SaveTheme(name string) {
	a.Prefs.Theme = name
	if err := prefs.Save(a.prefsPath, a.Prefs); err != nil {
		a.Log.Warn().Err(err).Msg("save prefs failed")
	}
}

// Close releases everything Build opened, newest first.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
