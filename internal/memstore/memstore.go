// Package memstore is an in-memory inventory.Store. It maintains material
// stock on movement inserts the way the backend trigger does, and supports
// failure injection so callers can exercise partial-failure paths.
package memstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/regidor/inventario/internal/inventory"
	"github.com/regidor/inventario/internal/state"
)

// Op names a Store operation for failure injection and call recording.
type Op string

const (
	OpListMaterials             Op = "ListMaterials"
	OpListMovements             Op = "ListMovements"
	OpInsertMaterial            Op = "InsertMaterial"
	OpUpdateMaterial            Op = "UpdateMaterial"
	OpDeleteMaterial            Op = "DeleteMaterial"
	OpDeleteMovementsByMaterial Op = "DeleteMovementsByMaterial"
	OpDeleteAllMovements        Op = "DeleteAllMovements"
	OpInsertMovement            Op = "InsertMovement"
)

var _ inventory.Store = (*Store)(nil)

// Store holds materials and movements in memory. Safe for concurrent use.
type Store struct {
	mu        sync.Mutex
	materials map[string]inventory.Material
	movements map[string]inventory.Movement
	failures  map[Op]error
	calls     []Op
	newID     func() string
}

// New returns an empty store.
func New() *Store {
	return &Store{
		materials: make(map[string]inventory.Material),
		movements: make(map[string]inventory.Movement),
		failures:  make(map[Op]error),
		newID:     uuid.NewString,
	}
}

// Seed replaces the contents of the store.
func (s *Store) Seed(materials []inventory.Material, movements []inventory.Movement) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.materials = make(map[string]inventory.Material, len(materials))
	for _, m := range materials {
		s.materials[m.ID] = m
	}
	s.movements = make(map[string]inventory.Movement, len(movements))
	for _, mv := range movements {
		s.movements[mv.ID] = mv
	}
}

// FailOn makes every subsequent call of op return err. A nil err clears it.
func (s *Store) FailOn(op Op, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, op)
		return
	}
	s.failures[op] = err
}

// Calls returns the operations invoked so far, in order.
func (s *Store) Calls() []Op {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Op(nil), s.calls...)
}

// Material returns a stored material by id.
func (s *Store) Material(id string) (inventory.Material, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.materials[id]
	return m, ok
}

func (s *Store) enter(op Op) error {
	s.calls = append(s.calls, op)
	return s.failures[op]
}

func (s *Store) ListMaterials(ctx context.Context) ([]inventory.Material, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpListMaterials); err != nil {
		return nil, err
	}
	out := make([]inventory.Material, 0, len(s.materials))
	for _, m := range s.materials {
		out = append(out, m)
	}
	return state.SortMaterials(out), nil
}

func (s *Store) ListMovements(ctx context.Context) ([]inventory.Movement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpListMovements); err != nil {
		return nil, err
	}
	out := make([]inventory.Movement, 0, len(s.movements))
	for _, mv := range s.movements {
		out = append(out, mv)
	}
	return state.SortMovements(out), nil
}

func (s *Store) InsertMaterial(ctx context.Context, in inventory.NewMaterial) (inventory.Material, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpInsertMaterial); err != nil {
		return inventory.Material{}, err
	}
	m := inventory.Material{ID: s.newID(), Name: in.Name, PrimaryUnit: in.Unit, CurrentStock: in.Stock}
	s.materials[m.ID] = m
	return m, nil
}

func (s *Store) UpdateMaterial(ctx context.Context, id string, patch inventory.MaterialPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpUpdateMaterial); err != nil {
		return err
	}
	m, ok := s.materials[id]
	if !ok {
		return fmt.Errorf("update material %s: %w", id, inventory.ErrMaterialNotFound)
	}
	if patch.Name != nil {
		m.Name = *patch.Name
	}
	if patch.Unit != nil {
		m.PrimaryUnit = *patch.Unit
	}
	if patch.Stock != nil {
		m.CurrentStock = *patch.Stock
	}
	s.materials[id] = m
	return nil
}

func (s *Store) DeleteMaterial(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpDeleteMaterial); err != nil {
		return err
	}
	delete(s.materials, id)
	return nil
}

// DeleteMovementsByMaterial removes the material's history. Stock is left
// as is, matching the backend.
func (s *Store) DeleteMovementsByMaterial(ctx context.Context, materialID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpDeleteMovementsByMaterial); err != nil {
		return err
	}
	for id, mv := range s.movements {
		if mv.MaterialID == materialID {
			delete(s.movements, id)
		}
	}
	return nil
}

func (s *Store) DeleteAllMovements(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpDeleteAllMovements); err != nil {
		return err
	}
	s.movements = make(map[string]inventory.Movement)
	return nil
}

// InsertMovement stores the movement and applies it to the material's stock.
// Like the backend it does not re-validate stock on exits.
func (s *Store) InsertMovement(ctx context.Context, in inventory.NewMovement) (inventory.Movement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpInsertMovement); err != nil {
		return inventory.Movement{}, err
	}
	mv := inventory.Movement{
		ID:            s.newID(),
		MaterialID:    in.MaterialID,
		Kind:          in.Kind,
		Quantity:      in.Quantity,
		Unit:          in.Unit,
		OperationTime: in.OperationTime,
		Note:          in.Note,
	}
	s.movements[mv.ID] = mv
	if m, ok := s.materials[in.MaterialID]; ok {
		delta := in.Quantity
		if in.Kind == inventory.KindExit {
			delta = delta.Neg()
		}
		m.CurrentStock = m.CurrentStock.Add(delta)
		s.materials[m.ID] = m
	}
	return mv, nil
}

// TotalStock sums the stock of every material.
func (s *Store) TotalStock() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := decimal.Zero
	for _, m := range s.materials {
		total = total.Add(m.CurrentStock)
	}
	return total
}
