// Package config loads inventario's runtime configuration.
//
// # Overview
//
// Configuration comes from three places, and for every field the first
// non-empty source wins:
//
//  1. Environment variables
//  2. The TOML file (~/.config/inventario/config.toml by default)
//  3. Built-in defaults
//
// The remote URL and key have a fourth source: when both the environment
// and the file leave them empty, ResolveRemote fetches
// remote.config_url (an /api/config endpoint such as the one served by
// `inventario serve`). A missing config file is not an error.
//
// # Environment
//
//   - SUPABASE_URL, SUPABASE_KEY: remote project URL and anon key
//   - INVENTARIO_DATABASE_URL: Postgres DSN for the postgres backend
//   - INVENTARIO_BACKEND: supabase (default), postgres or memory
//   - INVENTARIO_TZ: calendar zone for "today" and report timestamps
//   - INVENTARIO_CONFIG_URL: dynamic config endpoint
//   - INVENTARIO_ENV, INVENTARIO_LOG_LEVEL, INVENTARIO_LOG_FILE: logging
//
// # TOML Format
//
//	backend = "supabase"
//	timezone = "America/Bogota"
//	export_dir = "~/reportes"
//	session_file = "~/.local/share/inventario/session.json"
//	email_domain = "regidor.local"
//
//	[remote]
//	url = "https://xyz.supabase.co"
//	key = "anon-key"
//	config_url = "http://127.0.0.1:8787/api/config"
//
//	[log]
//	env = "development"
//	level = "debug"
//	file = "~/.local/share/inventario/inventario.log"
//
//	[offline]
//	bind = "127.0.0.1:8787"
//	origin = "https://inventario.example.com"
//	cache_path = "~/.local/share/inventario/offline.db"
//
// Paths accept a leading tilde and are made absolute.
//
// # Error Handling
//
// Load fails on unreadable files, TOML syntax errors, an unknown backend or
// an unknown timezone. ResolveRemote returns ErrRemoteNotConfigured when no
// source supplied both the URL and the key.
package config
