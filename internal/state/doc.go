// Package state owns the client's Domain State: the materials and movements
// pulled from the backend plus the UI selections derived views depend on.
//
// # Overview
//
// Store is the single shared resource of the client. It is written by the
// sync engine (wholesale replacement) and by mutations (selection changes and
// optimistic removals), and read by the views through Snapshot.
//
//	Writers (engine):                 Readers (views/UI):
//	┌──────────────────┐             ┌──────────────────┐
//	│ BeginSync()      │             │                  │
//	│ ListMaterials()  │             │                  │
//	│ ListMovements()  │             │                  │
//	│ FinishSync(gen)  │────────────→│ store.Snapshot() │
//	│ RemoveMaterial() │  (mutex)    │ views.Derive()   │
//	└──────────────────┘             └──────────────────┘
//
// # Sync Generations
//
// Every BeginSync returns a monotonically increasing token. FinishSync only
// applies results carrying the latest token, so when two syncs race the one
// started last decides the visible state and an older response arriving late
// is dropped. The loading flag is cleared by the latest sync only.
//
// Per-collection read failures leave the previous rows in place and are kept
// in Snapshot.SyncErrors for the status bar; they are never raised to the
// operator as dialogs.
//
// # Ordering
//
// Materials are kept sorted by name (Spanish collation, golang.org/x/text)
// and movements by operation time, newest first. Sorting happens locally on
// every replacement so the invariant holds regardless of backend ordering.
//
// # Optimistic Removal
//
// RemoveMaterial drops a material and its movements immediately and returns
// a PendingRemoval. The engine calls Confirm when the remote cascade
// succeeds and Revert when it fails. Revert is a no-op once a sync has
// replaced the collections, since that data is authoritative.
//
// # Copies
//
// Snapshot returns deep copies of the slices, the user, the errors and the last
// partial failure, so readers can never mutate stored state.
package state
