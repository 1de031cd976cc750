// Package supabase is the remote store and session backend for inventario.
//
// # Overview
//
// Client implements inventory.Store over the project's PostgREST API and
// Auth implements inventory.Authenticator over GoTrue. Both share the same
// base URL and anon key.
//
// # Architecture
//
//   - client.go: PostgREST requests for the materiales and movimientos tables
//   - auth.go: password sign-in, refresh, sign-out, session persistence
//   - types.go: wire rows, error payloads, stored session format
//
// # Client Usage
//
//	client, err := supabase.NewClient(cfg.Remote.URL, cfg.Remote.Key)
//	if err != nil {
//		return err
//	}
//	auth := supabase.NewAuth(client, supabase.AuthOptions{SessionFile: path})
//	client.SetTokenSource(auth)
//
// # Endpoints
//
//   - GET    /rest/v1/materiales?order=nombre.asc
//   - GET    /rest/v1/movimientos?order=fecha_operacion.desc
//   - POST   /rest/v1/{table} with Prefer: return=representation
//   - PATCH  /rest/v1/materiales?id=eq.{id}
//   - DELETE /rest/v1/movimientos?id=neq.{nil uuid} removes every row
//   - POST   /auth/v1/token?grant_type=password|refresh_token
//   - POST   /auth/v1/logout
//
// # Errors
//
// Non-2xx responses decode into *APIError. Its Error method returns the
// backend's message unchanged so callers can show it to the user as is.
// Transport failures are wrapped ("execute request: ...").
//
// # Sessions
//
// Usernames are mapped to username@regidor.local (configurable) before
// sign-in. The session is kept in memory and, when SessionFile is set, in a
// 0600 JSON file so the next run starts signed in. When the token response
// carries no expiry, the exp claim of the access token is used.
package supabase
