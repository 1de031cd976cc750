package inventory

import "context"

// Store is the remote persistence backend. Implementations must return
// materials ordered by name ascending and movements ordered by operation
// time descending.
type Store interface {
	ListMaterials(ctx context.Context) ([]Material, error)
	ListMovements(ctx context.Context) ([]Movement, error)
	InsertMaterial(ctx context.Context, in NewMaterial) (Material, error)
	UpdateMaterial(ctx context.Context, id string, patch MaterialPatch) error
	DeleteMaterial(ctx context.Context, id string) error
	DeleteMovementsByMaterial(ctx context.Context, materialID string) error
	DeleteAllMovements(ctx context.Context) error
	InsertMovement(ctx context.Context, in NewMovement) (Movement, error)
}

// SessionListener is notified of session changes. session is nil on sign-out.
type SessionListener func(event SessionEvent, session *Session)

// Authenticator manages the session lifecycle. The identifier passed to
// Authenticate is a bare username; implementations map it to whatever the
// backend expects.
type Authenticator interface {
	Authenticate(ctx context.Context, identifier, secret string) (*Session, error)
	GetSession(ctx context.Context) (*Session, error)
	OnSessionChange(listener SessionListener) (unsubscribe func())
	SignOut(ctx context.Context) error
}
