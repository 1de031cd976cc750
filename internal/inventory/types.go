package inventory

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Kind distinguishes stock entries from exits. Values match the backend's
// "tipo" column.
type Kind string

const (
	KindEntry Kind = "entrada"
	KindExit  Kind = "salida"
)

// Valid reports whether k is one of the known movement kinds.
func (k Kind) Valid() bool {
	return k == KindEntry || k == KindExit
}

// Label returns the upper-cased form used in reports.
func (k Kind) Label() string {
	return strings.ToUpper(string(k))
}

// Sign returns "+" for entries and "-" for exits.
func (k Kind) Sign() string {
	if k == KindExit {
		return "-"
	}
	return "+"
}

// InitialInventoryNote is attached to the entry created alongside a new
// material with a nonzero starting quantity.
const InitialInventoryNote = "Inventario Inicial"

// Material is a tracked inventory item. CurrentStock is maintained by the
// backend; the client only forces it to zero during a period close.
type Material struct {
	ID           string
	Name         string
	PrimaryUnit  string
	CurrentStock decimal.Decimal
}

// Movement is a single stock change tied to a material. Unit is copied from
// the material at creation time and survives later renames.
type Movement struct {
	ID            string
	MaterialID    string
	Kind          Kind
	Quantity      decimal.Decimal
	Unit          string
	OperationTime time.Time
	Note          string
}

// NewMaterial is the insert payload for a material.
type NewMaterial struct {
	Name  string
	Unit  string
	Stock decimal.Decimal
}

// MaterialPatch is a partial update; nil fields are left untouched.
type MaterialPatch struct {
	Name  *string
	Unit  *string
	Stock *decimal.Decimal
}

// Empty reports whether the patch changes nothing.
func (p MaterialPatch) Empty() bool {
	return p.Name == nil && p.Unit == nil && p.Stock == nil
}

// NewMovement is the insert payload for a movement.
type NewMovement struct {
	MaterialID    string
	Kind          Kind
	Quantity      decimal.Decimal
	Unit          string
	Note          string
	OperationTime time.Time
}

// User identifies the authenticated operator.
type User struct {
	ID       string
	Email    string
	Username string
}

// Session is an authenticated session issued by the backend.
type Session struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	User         User
}

// Expired reports whether the session is past its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	if s == nil {
		return true
	}
	if s.ExpiresAt.IsZero() {
		return false
	}
	return !now.Before(s.ExpiresAt)
}

// SessionEvent describes a session lifecycle change.
type SessionEvent int

const (
	SignedIn SessionEvent = iota + 1
	SignedOut
	TokenRefreshed
)

func (e SessionEvent) String() string {
	switch e {
	case SignedIn:
		return "SIGNED_IN"
	case SignedOut:
		return "SIGNED_OUT"
	case TokenRefreshed:
		return "TOKEN_REFRESHED"
	default:
		return "UNKNOWN"
	}
}

// UsernameFromEmail strips the synthetic domain from an auth address.
func UsernameFromEmail(email string) string {
	if i := strings.IndexByte(email, '@'); i >= 0 {
		return email[:i]
	}
	return email
}

// MaterialByID returns the material with the given id from materials.
func MaterialByID(materials []Material, id string) (Material, bool) {
	for _, m := range materials {
		if m.ID == id {
			return m, true
		}
	}
	return Material{}, false
}
