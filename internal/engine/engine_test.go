package engine

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regidor/inventario/internal/inventory"
	"github.com/regidor/inventario/internal/memstore"
	"github.com/regidor/inventario/internal/state"
)

var bogota = time.FixedZone("COT", -5*60*60)

var fixedNow = time.Date(2024, 3, 10, 15, 4, 5, 123000000, bogota)

type scriptedDialog struct {
	mu       sync.Mutex
	answers  []bool
	confirms []DialogConfig
	alerts   []DialogConfig
}

func (d *scriptedDialog) Confirm(_ context.Context, cfg DialogConfig) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.confirms = append(d.confirms, cfg)
	if len(d.answers) == 0 {
		return false
	}
	answer := d.answers[0]
	d.answers = d.answers[1:]
	return answer
}

func (d *scriptedDialog) Alert(_ context.Context, cfg DialogConfig) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.alerts = append(d.alerts, cfg)
}

func (d *scriptedDialog) answer(answers ...bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.answers = append(d.answers, answers...)
}

func (d *scriptedDialog) lastAlert() DialogConfig {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.alerts) == 0 {
		return DialogConfig{}
	}
	return d.alerts[len(d.alerts)-1]
}

func (d *scriptedDialog) alertCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.alerts)
}

type fakeExporter struct {
	calls  int
	got    []inventory.Movement
	err    error
	before func()
}

func (f *fakeExporter) Export(_ context.Context, _ []inventory.Material, movements []inventory.Movement, _ time.Time) (string, error) {
	f.calls++
	f.got = movements
	if f.before != nil {
		f.before()
	}
	if f.err != nil {
		return "", f.err
	}
	return "/tmp/Reporte_Obra_2024-03-10.csv", nil
}

type harness struct {
	engine   *Engine
	store    *memstore.Store
	dialog   *scriptedDialog
	exporter *fakeExporter

	mu      sync.Mutex
	renders []state.Snapshot
}

func (h *harness) rendered() []state.Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]state.Snapshot(nil), h.renders...)
}

func newHarness(t *testing.T, materials []inventory.Material, movements []inventory.Movement) *harness {
	t.Helper()
	h := &harness{
		store:    memstore.New(),
		dialog:   &scriptedDialog{},
		exporter: &fakeExporter{},
	}
	h.store.Seed(materials, movements)

	e, err := New(Options{
		Store:    h.store,
		Dialog:   h.dialog,
		Exporter: h.exporter,
		Location: bogota,
		Now:      func() time.Time { return fixedNow },
		Render: func(s state.Snapshot) {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.renders = append(h.renders, s)
		},
	})
	require.NoError(t, err)
	h.engine = e
	e.Sync(context.Background())
	return h
}

func countOp(calls []memstore.Op, op memstore.Op) int {
	n := 0
	for _, c := range calls {
		if c == op {
			n++
		}
	}
	return n
}

func stockOf(t *testing.T, e *Engine, id string) decimal.Decimal {
	t.Helper()
	m, ok := inventory.MaterialByID(e.Snapshot().Materials, id)
	require.True(t, ok, "material %s not in state", id)
	return m.CurrentStock
}

func seedMaterials() []inventory.Material {
	return []inventory.Material{
		{ID: "m1", Name: "Varilla", PrimaryUnit: "unidades", CurrentStock: decimal.NewFromInt(20)},
		{ID: "m2", Name: "Cemento", PrimaryUnit: "bultos", CurrentStock: decimal.NewFromInt(10)},
	}
}

func seedMovements() []inventory.Movement {
	return []inventory.Movement{
		{ID: "a", MaterialID: "m1", Kind: inventory.KindEntry, Quantity: decimal.NewFromInt(20), Unit: "unidades", OperationTime: fixedNow.Add(-72 * time.Hour)},
		{ID: "b", MaterialID: "m2", Kind: inventory.KindEntry, Quantity: decimal.NewFromInt(10), Unit: "bultos", OperationTime: fixedNow.Add(-time.Hour)},
	}
}

func TestNew_RequiresStore(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
}

func TestSync_SortsAndClearsLoading(t *testing.T) {
	h := newHarness(t, seedMaterials(), seedMovements())

	snap := h.engine.Snapshot()
	assert.False(t, snap.IsLoading)
	require.Len(t, snap.Materials, 2)
	assert.Equal(t, "Cemento", snap.Materials[0].Name)
	require.Len(t, snap.Movements, 2)
	assert.Equal(t, "b", snap.Movements[0].ID)

	renders := h.rendered()
	require.Len(t, renders, 2)
	assert.True(t, renders[0].IsLoading, "first render shows the placeholder")
	assert.False(t, renders[1].IsLoading)
}

func TestSync_CollectionsFailIndependently(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, seedMaterials(), seedMovements())

	extra := inventory.Movement{ID: "c", MaterialID: "m1", Kind: inventory.KindExit, Quantity: decimal.NewFromInt(1), OperationTime: fixedNow}
	h.store.Seed(nil, append(seedMovements(), extra))
	h.store.FailOn(memstore.OpListMaterials, errors.New("materials unavailable"))

	h.engine.Sync(ctx)

	snap := h.engine.Snapshot()
	assert.Len(t, snap.Materials, 2, "failed collection keeps previous rows")
	assert.Len(t, snap.Movements, 3, "movements still replaced")
	require.Contains(t, snap.SyncErrors, state.CollectionMaterials)
	assert.NotContains(t, snap.SyncErrors, state.CollectionMovements)
	assert.Zero(t, h.dialog.alertCount(), "read failures never raise dialogs")
	assert.False(t, snap.IsLoading)
}

func TestShowPage_SyncsOnlyWhenMaterialsEmpty(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, seedMaterials(), nil)
	before := countOp(h.store.Calls(), memstore.OpListMaterials)

	h.engine.ShowPage(ctx, state.ViewHistory)
	assert.Equal(t, before, countOp(h.store.Calls(), memstore.OpListMaterials))
	assert.Equal(t, state.PageApp, h.engine.Snapshot().Page)
	assert.Equal(t, state.ViewHistory, h.engine.Snapshot().CurrentView)

	empty := newHarness(t, nil, nil)
	before = countOp(empty.store.Calls(), memstore.OpListMaterials)
	empty.engine.ShowPage(ctx, state.ViewHome)
	assert.Equal(t, before+1, countOp(empty.store.Calls(), memstore.OpListMaterials))
}

func TestCreateMaterial_WithInitialInventory(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil, nil)

	err := h.engine.CreateMaterial(ctx, MaterialInput{Name: " Arena ", Unit: "m3", InitialQty: decimal.NewFromInt(3)})
	require.NoError(t, err)

	snap := h.engine.Snapshot()
	require.Len(t, snap.Materials, 1)
	m := snap.Materials[0]
	assert.Equal(t, "Arena", m.Name)
	assert.True(t, m.CurrentStock.Equal(decimal.NewFromInt(3)))

	require.Len(t, snap.Movements, 1)
	mv := snap.Movements[0]
	assert.Equal(t, inventory.KindEntry, mv.Kind)
	assert.Equal(t, inventory.InitialInventoryNote, mv.Note)
	assert.Equal(t, "m3", mv.Unit)
	assert.True(t, mv.OperationTime.Equal(fixedNow))
	assert.Equal(t, state.ViewMaterials, snap.CurrentView)
	assert.False(t, snap.IsLoading)
}

func TestCreateMaterial_ZeroQuantitySkipsEntry(t *testing.T) {
	h := newHarness(t, nil, nil)
	require.NoError(t, h.engine.CreateMaterial(context.Background(), MaterialInput{Name: "Grava", Unit: "m3"}))
	assert.Zero(t, countOp(h.store.Calls(), memstore.OpInsertMovement))
	assert.Len(t, h.engine.Snapshot().Materials, 1)
}

func TestCreateMaterial_ValidationMakesNoRemoteCall(t *testing.T) {
	h := newHarness(t, nil, nil)
	calls := len(h.store.Calls())

	cases := []MaterialInput{
		{Name: "", Unit: "kg"},
		{Name: "Cal", Unit: "  "},
		{Name: "Cal", Unit: "kg", InitialQty: decimal.NewFromInt(-1)},
	}
	for _, in := range cases {
		err := h.engine.CreateMaterial(context.Background(), in)
		assert.ErrorIs(t, err, inventory.ErrInvalidInput)
	}
	assert.Len(t, h.store.Calls(), calls)
	assert.Equal(t, 3, h.dialog.alertCount())
	assert.Equal(t, SeverityWarning, h.dialog.lastAlert().Severity)
}

func TestCreateMaterial_InsertFailureSkipsMovementAndSurfacesMessage(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.store.FailOn(memstore.OpInsertMaterial, errors.New("duplicate key value"))

	err := h.engine.CreateMaterial(context.Background(), MaterialInput{Name: "Cal", Unit: "kg", InitialQty: decimal.NewFromInt(5)})
	require.Error(t, err)
	assert.Zero(t, countOp(h.store.Calls(), memstore.OpInsertMovement))
	assert.Equal(t, "Error creando material: duplicate key value", h.dialog.lastAlert().Message)
	assert.False(t, h.engine.Snapshot().IsLoading, "closing sync still runs")
}

func TestRecordMovement_StockNeverNegative(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, []inventory.Material{{ID: "m1", Name: "Cemento", PrimaryUnit: "bultos"}}, nil)
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 200; i++ {
		kind := inventory.KindEntry
		if rng.Intn(2) == 0 {
			kind = inventory.KindExit
		}
		q := decimal.NewFromInt(int64(rng.Intn(6) + 1))
		before := stockOf(t, h.engine, "m1")

		err := h.engine.RecordMovement(ctx, MovementInput{MaterialID: "m1", Kind: kind, Quantity: q})
		if kind == inventory.KindExit && q.GreaterThan(before) {
			require.ErrorIs(t, err, inventory.ErrInsufficientStock, "iteration %d", i)
			assert.True(t, stockOf(t, h.engine, "m1").Equal(before))
		} else {
			require.NoError(t, err, "iteration %d", i)
		}
		require.False(t, stockOf(t, h.engine, "m1").IsNegative(), "iteration %d", i)
	}
}

func TestRecordMovement_ExitEqualToStockAccepted(t *testing.T) {
	h := newHarness(t, seedMaterials(), nil)
	require.NoError(t, h.engine.RecordMovement(context.Background(), MovementInput{MaterialID: "m2", Kind: inventory.KindExit, Quantity: decimal.NewFromInt(10)}))
	assert.True(t, stockOf(t, h.engine, "m2").IsZero())
}

func TestRecordMovement_InsufficientStockRejectedBeforeWrite(t *testing.T) {
	h := newHarness(t, seedMaterials(), nil)
	err := h.engine.RecordMovement(context.Background(), MovementInput{MaterialID: "m2", Kind: inventory.KindExit, Quantity: decimal.RequireFromString("10.5")})

	var serr *inventory.StockError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "10", serr.Available)
	assert.Zero(t, countOp(h.store.Calls(), memstore.OpInsertMovement))
	assert.Equal(t, "Stock insuficiente. Disponible: 10 bultos", h.dialog.lastAlert().Message)
}

func TestRecordMovement_ConcurrentExitsAreSerialized(t *testing.T) {
	h := newHarness(t, []inventory.Material{{ID: "m1", Name: "Cemento", PrimaryUnit: "bultos", CurrentStock: decimal.NewFromInt(5)}}, nil)

	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted, rejected := 0, 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := h.engine.RecordMovement(context.Background(), MovementInput{MaterialID: "m1", Kind: inventory.KindExit, Quantity: decimal.NewFromInt(1)})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				accepted++
			} else if errors.Is(err, inventory.ErrInsufficientStock) {
				rejected++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, accepted)
	assert.Equal(t, 5, rejected)
	assert.True(t, stockOf(t, h.engine, "m1").IsZero())
	m, _ := h.store.Material("m1")
	assert.False(t, m.CurrentStock.IsNegative())
}

func TestRecordMovement_TimestampPolicy(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, seedMaterials(), nil)

	require.NoError(t, h.engine.RecordMovement(ctx, MovementInput{MaterialID: "m1", Kind: inventory.KindEntry, Quantity: decimal.NewFromInt(1), Date: "2024-03-10", Note: "hoy"}))
	require.NoError(t, h.engine.RecordMovement(ctx, MovementInput{MaterialID: "m1", Kind: inventory.KindEntry, Quantity: decimal.NewFromInt(1), Date: "2024-03-01", Note: "atrasado"}))
	require.NoError(t, h.engine.RecordMovement(ctx, MovementInput{MaterialID: "m1", Kind: inventory.KindEntry, Quantity: decimal.NewFromInt(1), Note: "sin fecha"}))

	byNote := map[string]inventory.Movement{}
	for _, mv := range h.engine.Snapshot().Movements {
		byNote[mv.Note] = mv
	}

	today := byNote["hoy"]
	assert.True(t, today.OperationTime.Equal(fixedNow), "today keeps the submission time, got %s", today.OperationTime)

	backfill := byNote["atrasado"]
	assert.True(t, backfill.OperationTime.Equal(time.Date(2024, 3, 1, 12, 0, 0, 0, bogota)), "got %s", backfill.OperationTime)

	assert.True(t, byNote["sin fecha"].OperationTime.Equal(fixedNow))
}

func TestRecordMovement_RejectsBadInput(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, seedMaterials(), nil)

	assert.ErrorIs(t, h.engine.RecordMovement(ctx, MovementInput{MaterialID: "m1", Kind: inventory.KindEntry, Quantity: decimal.Zero}), inventory.ErrInvalidInput)
	assert.ErrorIs(t, h.engine.RecordMovement(ctx, MovementInput{MaterialID: "m1", Kind: "ajuste", Quantity: decimal.NewFromInt(1)}), inventory.ErrInvalidInput)
	assert.ErrorIs(t, h.engine.RecordMovement(ctx, MovementInput{MaterialID: "m1", Kind: inventory.KindEntry, Quantity: decimal.NewFromInt(1), Date: "10/03/2024"}), inventory.ErrInvalidInput)
	assert.ErrorIs(t, h.engine.RecordMovement(ctx, MovementInput{MaterialID: "nope", Kind: inventory.KindEntry, Quantity: decimal.NewFromInt(1)}), inventory.ErrMaterialNotFound)
	assert.Zero(t, countOp(h.store.Calls(), memstore.OpInsertMovement))
}

func TestRecordMovement_UnitCopiedFromMaterial(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, seedMaterials(), nil)

	require.NoError(t, h.engine.RecordMovement(ctx, MovementInput{MaterialID: "m2", Kind: inventory.KindEntry, Quantity: decimal.NewFromInt(2)}))
	require.NoError(t, h.engine.EditMaterial(ctx, "m2", "Cemento Gris", "kg"))

	snap := h.engine.Snapshot()
	m, ok := inventory.MaterialByID(snap.Materials, "m2")
	require.True(t, ok)
	assert.Equal(t, "kg", m.PrimaryUnit)
	require.Len(t, snap.Movements, 1)
	assert.Equal(t, "bultos", snap.Movements[0].Unit, "history keeps the unit it was recorded with")

	assert.Equal(t, state.ViewMaterialDetail, snap.CurrentView)
	assert.Equal(t, "m2", snap.ActiveMaterialID)
}

func TestEditMaterial_FailureLeavesStateAndAlerts(t *testing.T) {
	h := newHarness(t, seedMaterials(), nil)
	h.store.FailOn(memstore.OpUpdateMaterial, errors.New("permission denied"))

	err := h.engine.EditMaterial(context.Background(), "m2", "X", "kg")
	require.Error(t, err)
	m, _ := inventory.MaterialByID(h.engine.Snapshot().Materials, "m2")
	assert.Equal(t, "Cemento", m.Name)
	assert.Equal(t, "Error actualizando material: permission denied", h.dialog.lastAlert().Message)
	assert.ErrorIs(t, h.engine.EditMaterial(context.Background(), "m2", "", "kg"), inventory.ErrInvalidInput)
}

func TestDeleteMaterial_DeclinedDoesNothing(t *testing.T) {
	h := newHarness(t, seedMaterials(), seedMovements())
	calls := len(h.store.Calls())
	h.dialog.answer(false)

	err := h.engine.DeleteMaterial(context.Background(), "m1")
	assert.ErrorIs(t, err, inventory.ErrOperationCancelled)
	assert.Len(t, h.store.Calls(), calls)
	assert.Len(t, h.engine.Snapshot().Materials, 2)

	h.dialog.mu.Lock()
	defer h.dialog.mu.Unlock()
	require.Len(t, h.dialog.confirms, 1)
	assert.Equal(t, SeverityDanger, h.dialog.confirms[0].Severity)
	assert.Equal(t, ModeConfirm, h.dialog.confirms[0].Mode)
}

func TestDeleteMaterial_CascadeCompleteness(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, seedMaterials(), seedMovements())
	h.engine.OpenMaterial("m1")
	h.dialog.answer(true)

	require.NoError(t, h.engine.DeleteMaterial(ctx, "m1"))

	calls := h.store.Calls()
	delMov, delMat := -1, -1
	for i, c := range calls {
		switch c {
		case memstore.OpDeleteMovementsByMaterial:
			delMov = i
		case memstore.OpDeleteMaterial:
			delMat = i
		}
	}
	require.True(t, delMov >= 0 && delMat > delMov, "movements are deleted before the material")

	h.engine.Sync(ctx)
	snap := h.engine.Snapshot()
	_, found := inventory.MaterialByID(snap.Materials, "m1")
	assert.False(t, found)
	for _, mv := range snap.Movements {
		assert.NotEqual(t, "m1", mv.MaterialID)
	}
	assert.Empty(t, snap.ActiveMaterialID)
	assert.Equal(t, state.ViewMaterials, snap.CurrentView)
	assert.Nil(t, snap.LastFailure)
}

func TestDeleteMaterial_PartialFailureRevertsAndRecords(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, seedMaterials(), seedMovements())
	h.store.FailOn(memstore.OpDeleteMaterial, errors.New("foreign key violation"))
	h.dialog.answer(true)

	err := h.engine.DeleteMaterial(ctx, "m1")

	var serr *SagaError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, OpDeleteMaterial, serr.Operation)
	assert.Equal(t, StepDeleteMaterial, serr.Step)
	assert.Equal(t, []string{StepDeleteMovements}, serr.Completed)
	assert.True(t, serr.Partial())

	optimistic := false
	for _, s := range h.rendered() {
		if _, ok := inventory.MaterialByID(s.Materials, "m1"); !ok && len(s.Materials) == 1 {
			optimistic = true
		}
	}
	assert.True(t, optimistic, "material disappears locally before the remote cascade")

	snap := h.engine.Snapshot()
	_, found := inventory.MaterialByID(snap.Materials, "m1")
	assert.True(t, found, "material still exists remotely")
	for _, mv := range snap.Movements {
		assert.NotEqual(t, "m1", mv.MaterialID, "completed step is not undone")
	}
	require.NotNil(t, snap.LastFailure)
	assert.Equal(t, StepDeleteMaterial, snap.LastFailure.FailedStep)
	assert.Equal(t, "foreign key violation", snap.LastFailure.Message)

	alert := h.dialog.lastAlert()
	assert.Equal(t, SeverityDanger, alert.Severity)
	assert.Contains(t, alert.Message, "foreign key violation")

	h.store.FailOn(memstore.OpDeleteMaterial, nil)
	h.dialog.answer(true)
	require.NoError(t, h.engine.DeleteMaterial(ctx, "m1"))
	assert.Nil(t, h.engine.Snapshot().LastFailure, "success clears the recorded failure")
}

func TestDeleteMaterial_UnknownMaterial(t *testing.T) {
	h := newHarness(t, seedMaterials(), nil)
	err := h.engine.DeleteMaterial(context.Background(), "ghost")
	assert.ErrorIs(t, err, inventory.ErrMaterialNotFound)
	h.dialog.mu.Lock()
	defer h.dialog.mu.Unlock()
	assert.Empty(t, h.dialog.confirms)
}

func TestResetAll_EndState(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, seedMaterials(), seedMovements())
	h.dialog.answer(true, true)
	h.exporter.before = func() {
		assert.Zero(t, countOp(h.store.Calls(), memstore.OpDeleteAllMovements), "backup runs before any delete")
	}

	require.NoError(t, h.engine.ResetAll(ctx))

	assert.Equal(t, 1, h.exporter.calls)
	assert.Len(t, h.exporter.got, 2)

	snap := h.engine.Snapshot()
	assert.Empty(t, snap.Movements)
	require.Len(t, snap.Materials, 2)
	for _, m := range snap.Materials {
		assert.True(t, m.CurrentStock.IsZero(), "%s stock = %s", m.Name, m.CurrentStock)
	}
	assert.Equal(t, SeveritySuccess, h.dialog.lastAlert().Severity)
	assert.Contains(t, h.dialog.lastAlert().Message, "Reporte_Obra_2024-03-10.csv")
}

func TestResetAll_DecliningEitherPromptAborts(t *testing.T) {
	for _, answers := range [][]bool{{false}, {true, false}} {
		h := newHarness(t, seedMaterials(), seedMovements())
		calls := len(h.store.Calls())
		h.dialog.answer(answers...)

		err := h.engine.ResetAll(context.Background())
		assert.ErrorIs(t, err, inventory.ErrOperationCancelled)
		assert.Zero(t, h.exporter.calls)
		assert.Len(t, h.store.Calls(), calls, "no remote call, not even a sync")
		assert.Len(t, h.engine.Snapshot().Movements, 2)
	}
}

func TestResetAll_BackupFailureAbortsBeforeDeleting(t *testing.T) {
	h := newHarness(t, seedMaterials(), seedMovements())
	h.dialog.answer(true, true)
	h.exporter.err = errors.New("disk full")
	syncs := countOp(h.store.Calls(), memstore.OpListMaterials)

	err := h.engine.ResetAll(context.Background())
	require.Error(t, err)
	calls := h.store.Calls()
	assert.Zero(t, countOp(calls, memstore.OpDeleteAllMovements))
	assert.Zero(t, countOp(calls, memstore.OpUpdateMaterial))
	assert.Equal(t, syncs+2, countOp(calls, memstore.OpListMaterials), "backup read and closing sync")
	assert.Len(t, h.engine.Snapshot().Movements, 2)
}

func TestResetAll_ZeroesStockMissingFromStaleState(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.store.Seed(seedMaterials(), seedMovements())
	h.store.FailOn(memstore.OpListMaterials, errors.New("offline"))
	h.engine.Sync(context.Background())
	h.store.FailOn(memstore.OpListMaterials, nil)
	require.Empty(t, h.engine.Snapshot().Materials)
	h.dialog.answer(true, true)

	require.NoError(t, h.engine.ResetAll(context.Background()))

	assert.Len(t, h.exporter.got, 2, "backup holds the remote history")
	for _, id := range []string{"m1", "m2"} {
		m, ok := h.store.Material(id)
		require.True(t, ok)
		assert.True(t, m.CurrentStock.IsZero(), "%s stock = %s", m.Name, m.CurrentStock)
	}
	snap := h.engine.Snapshot()
	assert.Empty(t, snap.Movements)
	require.Len(t, snap.Materials, 2)
}

func TestResetAll_ReadFailureAbortsBeforeDeleting(t *testing.T) {
	h := newHarness(t, seedMaterials(), seedMovements())
	h.dialog.answer(true, true)
	h.store.FailOn(memstore.OpListMovements, errors.New("offline"))

	err := h.engine.ResetAll(context.Background())
	require.Error(t, err)
	assert.Zero(t, h.exporter.calls)
	calls := h.store.Calls()
	assert.Zero(t, countOp(calls, memstore.OpDeleteAllMovements))
	assert.Zero(t, countOp(calls, memstore.OpUpdateMaterial))
	assert.Equal(t, SeverityDanger, h.dialog.lastAlert().Severity)
	m, _ := h.store.Material("m2")
	assert.True(t, m.CurrentStock.Equal(decimal.NewFromInt(10)))
}

func TestResetAll_StockResetFailureLeavesDocumentedPartialState(t *testing.T) {
	h := newHarness(t, seedMaterials(), seedMovements())
	h.dialog.answer(true, true)
	h.store.FailOn(memstore.OpUpdateMaterial, errors.New("timeout"))

	err := h.engine.ResetAll(context.Background())

	var serr *SagaError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, StepResetStock, serr.Step)
	assert.Equal(t, []string{StepDeleteMovements}, serr.Completed)
	assert.Equal(t, 1, countOp(h.store.Calls(), memstore.OpUpdateMaterial), "first failure aborts the remaining resets")

	snap := h.engine.Snapshot()
	assert.Empty(t, snap.Movements)
	assert.True(t, snap.Materials[0].CurrentStock.IsPositive())
	require.NotNil(t, snap.LastFailure)
	assert.Equal(t, OpResetAll, snap.LastFailure.Operation)
	assert.Contains(t, h.dialog.lastAlert().Message, "timeout")
}

func TestExport(t *testing.T) {
	ctx := context.Background()

	empty := newHarness(t, seedMaterials(), nil)
	_, err := empty.engine.Export(ctx)
	assert.ErrorIs(t, err, inventory.ErrNoData)
	assert.Equal(t, "No hay datos.", empty.dialog.lastAlert().Message)
	assert.Zero(t, empty.exporter.calls)

	h := newHarness(t, seedMaterials(), seedMovements())
	path, err := h.engine.Export(ctx)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/Reporte_Obra_2024-03-10.csv", path)
	assert.Equal(t, "b", h.exporter.got[0].ID, "rows follow state order")
	assert.Equal(t, SeveritySuccess, h.dialog.lastAlert().Severity)
}

func TestDialogConfig_WithDefaults(t *testing.T) {
	c := DialogConfig{Mode: ModeConfirm}.WithDefaults()
	assert.Equal(t, "Aceptar", c.ConfirmLabel)
	assert.Equal(t, "Cancelar", c.CancelLabel)

	a := DialogConfig{Mode: ModeAlert, CancelLabel: "x"}.WithDefaults()
	assert.Empty(t, a.CancelLabel)
}

func TestNoDialogDeclinesConfirmations(t *testing.T) {
	store := memstore.New()
	store.Seed(seedMaterials(), nil)
	e, err := New(Options{Store: store})
	require.NoError(t, err)
	e.Sync(context.Background())

	assert.ErrorIs(t, e.DeleteMaterial(context.Background(), "m1"), inventory.ErrOperationCancelled)
	assert.Zero(t, countOp(store.Calls(), memstore.OpDeleteMaterial))
}
