package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/regidor/inventario/internal/inventory"
)

// Ensure Client implements inventory.Store at compile time.
var _ inventory.Store = (*Client)(nil)

// TokenSource supplies the bearer token for data requests. Auth implements
// it; without one the anon key is sent.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// Client talks to the PostgREST endpoints of a Supabase project.
type Client struct {
	baseURL   *url.URL
	apiKey    string
	http      *http.Client
	userAgent string
	tokens    TokenSource
}

const (
	defaultUserAgent = "inventario/1.0"
	requestTimeout   = 15 * time.Second

	tableMaterials = "materiales"
	tableMovements = "movimientos"

	// nilUUID never matches a row, so "id != nilUUID" selects everything.
	nilUUID = "00000000-0000-0000-0000-000000000000"
)

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTokenSource authenticates data requests as the signed-in user.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// NewClient builds a Client for the project at rawURL.
func NewClient(rawURL, apiKey string, opts ...Option) (*Client, error) {
	base, err := parseBaseURL(rawURL)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("supabase api key is empty")
	}
	c := &Client{
		baseURL:   base,
		apiKey:    strings.TrimSpace(apiKey),
		http:      &http.Client{Timeout: requestTimeout},
		userAgent: defaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// SetTokenSource attaches the session provider after construction, since
// Auth itself needs a Client.
func (c *Client) SetTokenSource(ts TokenSource) {
	c.tokens = ts
}

// Host returns the project host, which the offline cache never intercepts.
func (c *Client) Host() string {
	return c.baseURL.Host
}

func (c *Client) ListMaterials(ctx context.Context) ([]inventory.Material, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("order", "nombre.asc")
	var rows []materialRow
	if err := c.rest(ctx, http.MethodGet, tableMaterials, q, nil, "", &rows); err != nil {
		return nil, fmt.Errorf("list materials: %w", err)
	}
	out := make([]inventory.Material, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (c *Client) ListMovements(ctx context.Context) ([]inventory.Movement, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("order", "fecha_operacion.desc")
	var rows []movementRow
	if err := c.rest(ctx, http.MethodGet, tableMovements, q, nil, "", &rows); err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	out := make([]inventory.Movement, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (c *Client) InsertMaterial(ctx context.Context, in inventory.NewMaterial) (inventory.Material, error) {
	body := []materialInsert{{
		Nombre:          in.Name,
		UnidadPrincipal: in.Unit,
		StockActual:     in.Stock.InexactFloat64(),
	}}
	var rows []materialRow
	if err := c.rest(ctx, http.MethodPost, tableMaterials, nil, body, "return=representation", &rows); err != nil {
		return inventory.Material{}, err
	}
	if len(rows) == 0 {
		return inventory.Material{}, errors.New("insert material: empty response")
	}
	return rows[0].toDomain(), nil
}

func (c *Client) UpdateMaterial(ctx context.Context, id string, patch inventory.MaterialPatch) error {
	if patch.Empty() {
		return nil
	}
	q := url.Values{}
	q.Set("id", "eq."+id)
	return c.rest(ctx, http.MethodPatch, tableMaterials, q, materialPatchBody(patch), "return=minimal", nil)
}

func (c *Client) DeleteMaterial(ctx context.Context, id string) error {
	q := url.Values{}
	q.Set("id", "eq."+id)
	return c.rest(ctx, http.MethodDelete, tableMaterials, q, nil, "", nil)
}

func (c *Client) DeleteMovementsByMaterial(ctx context.Context, materialID string) error {
	q := url.Values{}
	q.Set("material_id", "eq."+materialID)
	return c.rest(ctx, http.MethodDelete, tableMovements, q, nil, "", nil)
}

func (c *Client) DeleteAllMovements(ctx context.Context) error {
	q := url.Values{}
	q.Set("id", "neq."+nilUUID)
	return c.rest(ctx, http.MethodDelete, tableMovements, q, nil, "", nil)
}

func (c *Client) InsertMovement(ctx context.Context, in inventory.NewMovement) (inventory.Movement, error) {
	body := []movementInsert{{
		MaterialID:     in.MaterialID,
		Tipo:           string(in.Kind),
		Cantidad:       in.Quantity.InexactFloat64(),
		Unidad:         in.Unit,
		Nota:           in.Note,
		FechaOperacion: in.OperationTime.UTC().Format(time.RFC3339Nano),
	}}
	var rows []movementRow
	if err := c.rest(ctx, http.MethodPost, tableMovements, nil, body, "return=representation", &rows); err != nil {
		return inventory.Movement{}, err
	}
	if len(rows) == 0 {
		return inventory.Movement{}, errors.New("insert movement: empty response")
	}
	return rows[0].toDomain(), nil
}

func (c *Client) rest(ctx context.Context, method, table string, query url.Values, body any, prefer string, dest any) error {
	rel := &url.URL{Path: "/rest/v1/" + table}
	if len(query) > 0 {
		rel.RawQuery = query.Encode()
	}
	bearer := c.apiKey
	if c.tokens != nil {
		token, err := c.tokens.AccessToken(ctx)
		if err != nil {
			return err
		}
		if token != "" {
			bearer = token
		}
	}
	headers := http.Header{}
	headers.Set("Authorization", "Bearer "+bearer)
	if prefer != "" {
		headers.Set("Prefer", prefer)
	}
	return c.doURL(ctx, method, rel, headers, body, dest)
}

func (c *Client) doURL(ctx context.Context, method string, rel *url.URL, headers http.Header, body, dest any) error {
	reqURL := c.baseURL.ResolveReference(rel)

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("apikey", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Set(k, v)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return decodeAPIError(resp.StatusCode, data)
	}
	if dest == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func parseBaseURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, errors.New("supabase url is empty")
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse supabase url %q: %w", raw, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("parse supabase url %q: missing host", raw)
	}
	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
