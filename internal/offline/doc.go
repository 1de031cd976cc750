// Package offline keeps the inventario web client loadable without a
// network connection.
//
// # Cache
//
// Cache stores HTTP responses in SQLite, grouped under a versioned cache
// name (CacheName). Activating a new version drops every other cache.
//
// # Policy
//
// Transport is network-first. Remote store traffic and the runtime config
// endpoint bypass it entirely. Other GET responses with status 200 are
// stored as they pass through; when the network fails the stored copy is
// returned, and page navigations with no stored copy fall back to the root
// document. Install precaches DefaultAssets.
//
// # Server
//
// Server is a small fiber app used by `inventario serve`: it answers
// /api/config with the remote URL and key and proxies everything else to
// the asset origin through the Transport.
package offline
