// Package engine drives the inventory client: it loads the dataset from the
// remote store, switches views, and runs every user mutation.
//
// # Synchronization
//
// Sync pulls both collections and replaces the Domain State wholesale. The
// two reads are independent, so a failed materials fetch still lets the
// movements through. Failures are logged and exposed as SyncErrors on the
// snapshot. Sync may run concurrently with itself; each call takes a
// generation token from state.Store and only the most recent one is applied.
//
// # Mutations
//
// CreateMaterial, EditMaterial, DeleteMaterial, RecordMovement and ResetAll
// hold a single writer lock from validation to the closing Sync, so stock
// checks always see the stock left by the previous mutation:
//
//	validate -> write -> Sync
//
// Validation failures are shown through the Dialog and returned without any
// remote call. Write failures are shown with the store's message and
// returned wrapped.
//
// Deleting a material and closing a period touch the backend in more than
// one step. Both run as a saga that stops at the first failing step and
// returns a *SagaError naming the failed and completed steps; the same
// information is kept in Snapshot.LastFailure until the operation succeeds.
// Completed steps are never undone remotely. A material removed
// optimistically is restored locally when its cascade fails.
//
// # Dialogs
//
// Confirmations and notices go through the Dialog interface with a closed
// DialogConfig. Without a Dialog every confirmation is declined.
package engine
