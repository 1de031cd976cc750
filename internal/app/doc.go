// Package app is the composition root of inventario.
//
// # Overview
//
// Build turns a config file path into a ready Engine: it loads
// configuration and preferences, sets up the zerolog logger, opens the
// configured store and, for the hosted backend, the GoTrue authenticator
// that also supplies the store's bearer token. Commands in internal/cli
// call Build and then drive the Engine.
//
// # Backends
//
//   - supabase: supabase.Client plus supabase.Auth. The remote URL and key
//     may come from the environment, the file, or remote.config_url.
//   - postgres: a pgx pool against INVENTARIO_DATABASE_URL, no sign-in.
//   - memory: memstore.Store, for demos. Nothing is persisted.
//
// # Session Refresher
//
// StartRefresher runs in the background while the terminal UI is open.
// It renews the session refreshLead ahead of expiry. Network failures
// back off exponentially from the retry interval, capped at maxBackoff:
//
//	failure 1 -> 4s
//	failure 2 -> 8s
//	failure 3 -> 16s
//	failure 4+ -> 30s
//
// A rejected refresh token ends the session; the authenticator then emits
// SignedOut and the engine returns to the login screen.
//
// # Data Flow
//
//	Build()
//	  ├─> config.Load()        file + env
//	  ├─> logger.New()         console, JSON or file
//	  ├─> openStore()          supabase | postgres | memory
//	  └─> engine.New()
//
//	Start()
//	  ├─> StartRefresher()     supabase only
//	  └─> Engine.Restore()     session check, then subscribe
package app
