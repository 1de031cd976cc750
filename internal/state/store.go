package state

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/regidor/inventario/internal/inventory"
)

// Page selects between the login screen and the authenticated app area.
type Page int

const (
	PageAuth Page = iota
	PageApp
)

// View identifies the active app view. Values match the route names used by
// the web client so preferences and links stay interchangeable.
type View string

const (
	ViewHome           View = "home"
	ViewMaterials      View = "materiales"
	ViewNewMaterial    View = "nuevo-material"
	ViewEditMaterial   View = "editar-material"
	ViewEntry          View = "entrada"
	ViewExit           View = "salida"
	ViewHistory        View = "historial"
	ViewMaterialDetail View = "detalle-material"
)

// Collection names a remote collection for error reporting.
type Collection string

const (
	CollectionMaterials Collection = "materiales"
	CollectionMovements Collection = "movimientos"
)

// SyncResult carries the outcome of one sync pass. A non-nil error for a
// collection leaves that collection untouched.
type SyncResult struct {
	Materials    []inventory.Material
	MaterialsErr error
	Movements    []inventory.Movement
	MovementsErr error
}

// PartialFailure records a multi-step remote operation that stopped midway.
type PartialFailure struct {
	Operation  string
	FailedStep string
	Completed  []string
	Message    string
	At         time.Time
}

// Snapshot is the in-memory view of the dataset and UI selections.
type Snapshot struct {
	Page             Page
	User             *inventory.User
	Materials        []inventory.Material
	Movements        []inventory.Movement
	ActiveMaterialID string
	IsLoading        bool
	CurrentView      View
	MaterialSearch   string
	LastSynced       time.Time
	SyncErrors       map[Collection]error
	Generation       uint64
	LastFailure      *PartialFailure
}

// Authenticated reports whether a user is signed in.
func (s Snapshot) Authenticated() bool {
	return s.User != nil
}

// ActiveMaterial returns the selected material when it is still present.
func (s Snapshot) ActiveMaterial() (inventory.Material, bool) {
	if s.ActiveMaterialID == "" {
		return inventory.Material{}, false
	}
	return inventory.MaterialByID(s.Materials, s.ActiveMaterialID)
}

// Store owns the Domain State. The zero value is ready to use.
type Store struct {
	mu       sync.RWMutex
	snapshot Snapshot
	// dataVersion increments whenever the collections are replaced wholesale.
	dataVersion uint64
}

// BeginSync marks the state as loading and returns the token that must be
// presented to FinishSync. Each call supersedes any earlier token.
func (s *Store) BeginSync() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot.Generation++
	s.snapshot.IsLoading = true
	return s.snapshot.Generation
}

// FinishSync applies a sync result when gen is still the latest token and
// reports whether it was applied. Stale results are dropped and the loading
// flag stays set for the newer sync to clear.
func (s *Store) FinishSync(gen uint64, res SyncResult) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.snapshot.Generation {
		return false
	}

	errs := make(map[Collection]error)
	if res.MaterialsErr != nil {
		errs[CollectionMaterials] = res.MaterialsErr
	} else {
		s.snapshot.Materials = SortMaterials(res.Materials)
	}
	if res.MovementsErr != nil {
		errs[CollectionMovements] = res.MovementsErr
	} else {
		s.snapshot.Movements = SortMovements(res.Movements)
	}
	if res.MaterialsErr == nil || res.MovementsErr == nil {
		s.dataVersion++
	}
	if len(errs) == 0 {
		errs = nil
	}
	s.snapshot.SyncErrors = errs
	s.snapshot.IsLoading = false
	s.snapshot.LastSynced = time.Now()
	return true
}

// SetLoading toggles the loading placeholder outside of a sync, used by
// mutations between their write and the sync that follows.
func (s *Store) SetLoading(loading bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.IsLoading = loading
}

// SetPage switches between the login screen and the app area.
func (s *Store) SetPage(p Page) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.Page = p
}

// SetView records the active view.
func (s *Store) SetView(v View) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.CurrentView = v
}

// SelectMaterial sets the material read by the detail and edit views.
func (s *Store) SelectMaterial(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.ActiveMaterialID = id
}

// SetMaterialSearch sets the free-text filter for the materials list.
func (s *Store) SetMaterialSearch(q string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.MaterialSearch = q
}

// SetUser records the authenticated user.
func (s *Store) SetUser(u *inventory.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u == nil {
		s.snapshot.User = nil
		return
	}
	dup := *u
	s.snapshot.User = &dup
}

// RecordFailure stores the latest partial failure for display.
func (s *Store) RecordFailure(f *PartialFailure) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.LastFailure = cloneFailure(f)
}

// Reset clears the user and dataset after sign-out. The generation advances
// so any sync still in flight for the previous user is discarded.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	gen := s.snapshot.Generation + 1
	s.snapshot = Snapshot{
		Page:        PageAuth,
		CurrentView: s.snapshot.CurrentView,
		Generation:  gen,
	}
	s.dataVersion++
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	snap.Materials = cloneMaterials(s.snapshot.Materials)
	snap.Movements = cloneMovements(s.snapshot.Movements)
	if s.snapshot.User != nil {
		u := *s.snapshot.User
		snap.User = &u
	}
	if len(s.snapshot.SyncErrors) > 0 {
		snap.SyncErrors = make(map[Collection]error, len(s.snapshot.SyncErrors))
		for k, v := range s.snapshot.SyncErrors {
			snap.SyncErrors[k] = fmt.Errorf("%w", v)
		}
	}
	snap.LastFailure = cloneFailure(s.snapshot.LastFailure)
	return snap
}

// PendingRemoval is an optimistic local delete awaiting remote confirmation.
type PendingRemoval struct {
	store     *Store
	version   uint64
	material  *inventory.Material
	movements []inventory.Movement
	settled   bool
}

// RemoveMaterial removes a material and its movements locally ahead of the
// remote delete. The caller settles the returned handle with Confirm or
// Revert.
func (s *Store) RemoveMaterial(id string) *PendingRemoval {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := &PendingRemoval{store: s}

	mats := s.snapshot.Materials[:0:0]
	for _, m := range s.snapshot.Materials {
		if m.ID == id {
			removed := m
			p.material = &removed
			continue
		}
		mats = append(mats, m)
	}
	movs := s.snapshot.Movements[:0:0]
	for _, mv := range s.snapshot.Movements {
		if mv.MaterialID == id {
			p.movements = append(p.movements, mv)
			continue
		}
		movs = append(movs, mv)
	}
	s.snapshot.Materials = mats
	s.snapshot.Movements = movs
	if s.snapshot.ActiveMaterialID == id {
		s.snapshot.ActiveMaterialID = ""
	}
	s.dataVersion++
	p.version = s.dataVersion
	return p
}

// Removed reports whether the optimistic removal found the material.
func (p *PendingRemoval) Removed() bool {
	return p != nil && p.material != nil
}

// Confirm settles the removal as accepted by the backend.
func (p *PendingRemoval) Confirm() {
	if p == nil {
		return
	}
	p.store.mu.Lock()
	defer p.store.mu.Unlock()
	p.settled = true
}

// Revert restores the removed rows. It returns false when the removal was
// already settled or a sync has since replaced the collections, in which
// case the newer data stands.
func (p *PendingRemoval) Revert() bool {
	if p == nil {
		return false
	}
	s := p.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.settled {
		return false
	}
	p.settled = true
	if p.version != s.dataVersion || p.material == nil {
		return false
	}
	mats := append(cloneMaterials(s.snapshot.Materials), *p.material)
	movs := append(cloneMovements(s.snapshot.Movements), p.movements...)
	s.snapshot.Materials = SortMaterials(mats)
	s.snapshot.Movements = SortMovements(movs)
	s.dataVersion++
	return true
}

// SortMaterials returns a copy of materials sorted by name using Spanish
// collation, the same ordering the backend applies.
func SortMaterials(materials []inventory.Material) []inventory.Material {
	out := cloneMaterials(materials)
	if len(out) < 2 {
		return out
	}
	col := collate.New(language.Spanish)
	sort.SliceStable(out, func(i, j int) bool {
		return col.CompareString(out[i].Name, out[j].Name) < 0
	})
	return out
}

// SortMovements returns a copy of movements sorted by operation time, newest
// first.
func SortMovements(movements []inventory.Movement) []inventory.Movement {
	out := cloneMovements(movements)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].OperationTime.After(out[j].OperationTime)
	})
	return out
}

func cloneMaterials(items []inventory.Material) []inventory.Material {
	if len(items) == 0 {
		return nil
	}
	dup := make([]inventory.Material, len(items))
	copy(dup, items)
	return dup
}

func cloneMovements(items []inventory.Movement) []inventory.Movement {
	if len(items) == 0 {
		return nil
	}
	dup := make([]inventory.Movement, len(items))
	copy(dup, items)
	return dup
}

func cloneFailure(f *PartialFailure) *PartialFailure {
	if f == nil {
		return nil
	}
	dup := *f
	dup.Completed = append([]string(nil), f.Completed...)
	return &dup
}
