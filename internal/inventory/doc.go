// Package inventory defines the domain model shared by every layer of the
// inventory client: materials, stock movements, sessions, and the ports the
// client consumes from its remote backend.
//
// # Data Model
//
//   - Material: name, primary unit, and a backend-maintained current stock.
//   - Movement: an entry or exit of a positive quantity, with the unit label
//     denormalized from the material at the time it was recorded.
//
// Quantities are shopspring/decimal values so stock comparisons are exact.
//
// # Ports
//
// Store is the persistence backend (two collections). Authenticator is the
// session lifecycle. Both are implemented by the supabase package over HTTP;
// postgres and memstore provide alternative Store implementations.
//
// # Errors
//
// Domain failures are sentinels that callers match with errors.Is:
// ErrInvalidInput (wrapped by ValidationError), ErrInsufficientStock (wrapped
// by StockError), ErrMaterialNotFound, ErrAuthFailed, ErrNotAuthenticated,
// ErrNoData.
package inventory
