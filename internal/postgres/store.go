// Package postgres implements inventory.Store directly against the
// project's Postgres database, for operators who run the CLI next to the
// database rather than through the REST API.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"

	"github.com/regidor/inventario/internal/inventory"
)

//go:embed schema.sql
var schemaSQL string

// nilUUID never matches a row.
const nilUUID = "00000000-0000-0000-0000-000000000000"

// Querier is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var _ inventory.Store = (*Store)(nil)

// Store runs the inventory queries on q.
type Store struct {
	q Querier
}

// New builds a Store. Pass a pool or a transaction.
func New(q Querier) *Store {
	return &Store{q: q}
}

// NewPool opens a small connection pool with NUMERIC columns decoded into
// shopspring decimals.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, errors.New("database url is empty")
	}
	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse DSN: %w", err)
	}
	poolConfig.MaxConns = 4
	poolConfig.MinConns = 0
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 10 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	poolConfig.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping DB: %w", err)
	}
	return pool, nil
}

// EnsureSchema creates the tables and the stock trigger when missing.
func EnsureSchema(ctx context.Context, q Querier) error {
	if _, err := q.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func (s *Store) ListMaterials(ctx context.Context) ([]inventory.Material, error) {
	rows, err := s.q.Query(ctx, `
		SELECT id::text, nombre, unidad_principal, stock_actual
		FROM materiales ORDER BY nombre ASC`)
	if err != nil {
		return nil, fmt.Errorf("list materials: %w", err)
	}
	defer rows.Close()

	var list []inventory.Material
	for rows.Next() {
		var m inventory.Material
		if err := rows.Scan(&m.ID, &m.Name, &m.PrimaryUnit, &m.CurrentStock); err != nil {
			return nil, fmt.Errorf("scan material: %w", err)
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

func (s *Store) ListMovements(ctx context.Context) ([]inventory.Movement, error) {
	rows, err := s.q.Query(ctx, `
		SELECT id::text, material_id::text, tipo, cantidad, unidad, nota, fecha_operacion
		FROM movimientos ORDER BY fecha_operacion DESC`)
	if err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	defer rows.Close()

	var list []inventory.Movement
	for rows.Next() {
		mv, err := scanMovement(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, mv)
	}
	return list, rows.Err()
}

func (s *Store) InsertMaterial(ctx context.Context, in inventory.NewMaterial) (inventory.Material, error) {
	var m inventory.Material
	err := s.q.QueryRow(ctx, `
		INSERT INTO materiales (nombre, unidad_principal, stock_actual)
		VALUES ($1, $2, $3)
		RETURNING id::text, nombre, unidad_principal, stock_actual`,
		in.Name, in.Unit, in.Stock,
	).Scan(&m.ID, &m.Name, &m.PrimaryUnit, &m.CurrentStock)
	if err != nil {
		if isUniqueViolation(err) {
			return inventory.Material{}, inventory.Invalid("nombre", "ya existe un material con ese nombre")
		}
		return inventory.Material{}, fmt.Errorf("insert material: %w", err)
	}
	return m, nil
}

func (s *Store) UpdateMaterial(ctx context.Context, id string, patch inventory.MaterialPatch) error {
	query, args := buildMaterialUpdate(id, patch)
	if query == "" {
		return nil
	}
	tag, err := s.q.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update material: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update material %s: %w", id, inventory.ErrMaterialNotFound)
	}
	return nil
}

func (s *Store) DeleteMaterial(ctx context.Context, id string) error {
	if _, err := s.q.Exec(ctx, `DELETE FROM materiales WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete material: %w", err)
	}
	return nil
}

func (s *Store) DeleteMovementsByMaterial(ctx context.Context, materialID string) error {
	if _, err := s.q.Exec(ctx, `DELETE FROM movimientos WHERE material_id = $1`, materialID); err != nil {
		return fmt.Errorf("delete movements: %w", err)
	}
	return nil
}

func (s *Store) DeleteAllMovements(ctx context.Context) error {
	if _, err := s.q.Exec(ctx, `DELETE FROM movimientos WHERE id <> $1`, nilUUID); err != nil {
		return fmt.Errorf("delete all movements: %w", err)
	}
	return nil
}

func (s *Store) InsertMovement(ctx context.Context, in inventory.NewMovement) (inventory.Movement, error) {
	row := s.q.QueryRow(ctx, `
		INSERT INTO movimientos (material_id, tipo, cantidad, unidad, nota, fecha_operacion)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id::text, material_id::text, tipo, cantidad, unidad, nota, fecha_operacion`,
		in.MaterialID, string(in.Kind), in.Quantity, in.Unit, nullable(in.Note), in.OperationTime,
	)
	mv, err := scanMovement(row)
	if err != nil {
		return inventory.Movement{}, fmt.Errorf("insert movement: %w", err)
	}
	return mv, nil
}

// buildMaterialUpdate returns the UPDATE for the non-nil patch fields, or
// an empty query when there is nothing to change.
func buildMaterialUpdate(id string, patch inventory.MaterialPatch) (string, []any) {
	sets := make([]string, 0, 3)
	args := make([]any, 0, 4)
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if patch.Name != nil {
		add("nombre", *patch.Name)
	}
	if patch.Unit != nil {
		add("unidad_principal", *patch.Unit)
	}
	if patch.Stock != nil {
		add("stock_actual", *patch.Stock)
	}
	if len(sets) == 0 {
		return "", nil
	}
	args = append(args, id)
	return fmt.Sprintf("UPDATE materiales SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args)), args
}

func scanMovement(row pgx.Row) (inventory.Movement, error) {
	var (
		mv   inventory.Movement
		kind string
		note *string
	)
	if err := row.Scan(&mv.ID, &mv.MaterialID, &kind, &mv.Quantity, &mv.Unit, &note, &mv.OperationTime); err != nil {
		return inventory.Movement{}, fmt.Errorf("scan movement: %w", err)
	}
	mv.Kind = inventory.Kind(kind)
	if note != nil {
		mv.Note = *note
	}
	return mv, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// isUniqueViolation reports a unique constraint violation (23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
