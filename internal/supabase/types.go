package supabase

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/regidor/inventario/internal/inventory"
)

// materialRow mirrors the "materiales" table.
type materialRow struct {
	ID              string          `json:"id"`
	Nombre          string          `json:"nombre"`
	UnidadPrincipal string          `json:"unidad_principal"`
	StockActual     decimal.Decimal `json:"stock_actual"`
}

func (r materialRow) toDomain() inventory.Material {
	return inventory.Material{
		ID:           r.ID,
		Name:         r.Nombre,
		PrimaryUnit:  r.UnidadPrincipal,
		CurrentStock: r.StockActual,
	}
}

// movementRow mirrors the "movimientos" table.
type movementRow struct {
	ID             string          `json:"id"`
	MaterialID     string          `json:"material_id"`
	Tipo           string          `json:"tipo"`
	Cantidad       decimal.Decimal `json:"cantidad"`
	Unidad         string          `json:"unidad"`
	Nota           *string         `json:"nota"`
	FechaOperacion wireTime        `json:"fecha_operacion"`
}

func (r movementRow) toDomain() inventory.Movement {
	mv := inventory.Movement{
		ID:            r.ID,
		MaterialID:    r.MaterialID,
		Kind:          inventory.Kind(r.Tipo),
		Quantity:      r.Cantidad,
		Unit:          r.Unidad,
		OperationTime: time.Time(r.FechaOperacion),
	}
	if r.Nota != nil {
		mv.Note = *r.Nota
	}
	return mv
}

type materialInsert struct {
	Nombre          string  `json:"nombre"`
	UnidadPrincipal string  `json:"unidad_principal"`
	StockActual     float64 `json:"stock_actual"`
}

type movementInsert struct {
	MaterialID     string  `json:"material_id"`
	Tipo           string  `json:"tipo"`
	Cantidad       float64 `json:"cantidad"`
	Unidad         string  `json:"unidad"`
	Nota           string  `json:"nota"`
	FechaOperacion string  `json:"fecha_operacion"`
}

func materialPatchBody(p inventory.MaterialPatch) map[string]any {
	body := make(map[string]any, 3)
	if p.Name != nil {
		body["nombre"] = *p.Name
	}
	if p.Unit != nil {
		body["unidad_principal"] = *p.Unit
	}
	if p.Stock != nil {
		body["stock_actual"] = p.Stock.InexactFloat64()
	}
	return body
}

// wireTime accepts the timestamp shapes PostgREST emits for timestamptz and
// for plain timestamp columns.
type wireTime time.Time

var wireTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999Z07",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

func (t *wireTime) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*t = wireTime{}
		return nil
	}
	s, err := strconv.Unquote(string(data))
	if err != nil {
		return fmt.Errorf("timestamp %s: %w", data, err)
	}
	s = strings.TrimSpace(s)
	for _, layout := range wireTimeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			*t = wireTime(parsed)
			return nil
		}
	}
	return fmt.Errorf("unrecognized timestamp %q", s)
}

// APIError is an error payload from PostgREST or GoTrue. Error returns the
// backend's message verbatim.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"-"`
	Message string `json:"-"`
	Details string `json:"-"`
	Hint    string `json:"-"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("api returned status %d", e.Status)
}

// errorPayload covers both services: PostgREST uses message/details/hint
// with a string code, GoTrue uses msg or error_description with a numeric
// code.
type errorPayload struct {
	Message          string          `json:"message"`
	Msg              string          `json:"msg"`
	Error            string          `json:"error"`
	ErrorDescription string          `json:"error_description"`
	ErrorCode        string          `json:"error_code"`
	Code             json.RawMessage `json:"code"`
	Details          string          `json:"details"`
	Hint             string          `json:"hint"`
}

func decodeAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{Status: status}
	var p errorPayload
	if err := json.Unmarshal(body, &p); err != nil {
		apiErr.Message = strings.TrimSpace(string(body))
		return apiErr
	}
	for _, m := range []string{p.Message, p.Msg, p.ErrorDescription, p.Error} {
		if strings.TrimSpace(m) != "" {
			apiErr.Message = m
			break
		}
	}
	apiErr.Code = p.ErrorCode
	if apiErr.Code == "" && len(p.Code) > 0 {
		apiErr.Code = strings.Trim(string(p.Code), `"`)
	}
	apiErr.Details = p.Details
	apiErr.Hint = p.Hint
	return apiErr
}

// tokenResponse is GoTrue's answer to both grant types.
type tokenResponse struct {
	AccessToken  string  `json:"access_token"`
	RefreshToken string  `json:"refresh_token"`
	TokenType    string  `json:"token_type"`
	ExpiresIn    int64   `json:"expires_in"`
	ExpiresAt    int64   `json:"expires_at"`
	User         userRow `json:"user"`
}

type userRow struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// storedSession is the on-disk session format.
type storedSession struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         userRow   `json:"user"`
}

func (s storedSession) toDomain() *inventory.Session {
	return &inventory.Session{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		ExpiresAt:    s.ExpiresAt,
		User: inventory.User{
			ID:       s.User.ID,
			Email:    s.User.Email,
			Username: inventory.UsernameFromEmail(s.User.Email),
		},
	}
}

func fromSession(s *inventory.Session) storedSession {
	return storedSession{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		ExpiresAt:    s.ExpiresAt,
		User:         userRow{ID: s.User.ID, Email: s.User.Email},
	}
}
