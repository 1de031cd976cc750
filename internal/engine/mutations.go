package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/regidor/inventario/internal/inventory"
	"github.com/regidor/inventario/internal/state"
	"github.com/regidor/inventario/internal/views"
)

// MaterialInput is the new-material form.
type MaterialInput struct {
	Name       string
	Unit       string
	InitialQty decimal.Decimal
}

// MovementInput is the entry/exit form. Date is a calendar day in
// views.DateLayout; empty means today.
type MovementInput struct {
	MaterialID string
	Kind       inventory.Kind
	Quantity   decimal.Decimal
	Date       string
	Note       string
}

// CreateMaterial inserts a material with zero stock and, when InitialQty is
// positive, an opening entry for it. The dataset is always reloaded.
func (e *Engine) CreateMaterial(ctx context.Context, in MaterialInput) error {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	name := strings.TrimSpace(in.Name)
	unit := strings.TrimSpace(in.Unit)
	switch {
	case name == "":
		return e.reject(ctx, inventory.Invalid("nombre", "El nombre es obligatorio."))
	case unit == "":
		return e.reject(ctx, inventory.Invalid("unidad", "La unidad es obligatoria."))
	case in.InitialQty.IsNegative():
		return e.reject(ctx, inventory.Invalid("cantidad", "La cantidad inicial no puede ser negativa."))
	}

	e.state.SetLoading(true)
	e.RenderActiveView(state.ViewMaterials)

	var result error
	m, err := e.store.InsertMaterial(ctx, inventory.NewMaterial{Name: name, Unit: unit, Stock: decimal.Zero})
	if err != nil {
		e.log.Error().Err(err).Str("material", name).Msg("create material failed")
		e.ui().Alert(ctx, alertConfig(SeverityDanger, "Error", "Error creando material: "+err.Error()))
		result = fmt.Errorf("create material: %w", err)
	} else if in.InitialQty.IsPositive() {
		_, err := e.store.InsertMovement(ctx, inventory.NewMovement{
			MaterialID:    m.ID,
			Kind:          inventory.KindEntry,
			Quantity:      in.InitialQty,
			Unit:          unit,
			Note:          inventory.InitialInventoryNote,
			OperationTime: e.now().In(e.loc),
		})
		if err != nil {
			e.log.Warn().Err(err).Str("material_id", m.ID).Msg("initial inventory entry failed")
		}
	}

	e.Sync(ctx)
	return result
}

// EditMaterial renames a material or changes its unit. Movements keep the
// unit they were recorded with.
func (e *Engine) EditMaterial(ctx context.Context, id, name, unit string) error {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	name = strings.TrimSpace(name)
	unit = strings.TrimSpace(unit)
	switch {
	case id == "":
		return e.reject(ctx, inventory.Invalid("material", "Seleccione un material."))
	case name == "":
		return e.reject(ctx, inventory.Invalid("nombre", "El nombre es obligatorio."))
	case unit == "":
		return e.reject(ctx, inventory.Invalid("unidad", "La unidad es obligatoria."))
	}

	if err := e.store.UpdateMaterial(ctx, id, inventory.MaterialPatch{Name: &name, Unit: &unit}); err != nil {
		e.log.Error().Err(err).Str("material_id", id).Msg("edit material failed")
		e.ui().Alert(ctx, alertConfig(SeverityDanger, "Error", "Error actualizando material: "+err.Error()))
		return fmt.Errorf("edit material: %w", err)
	}

	e.Sync(ctx)
	e.state.SelectMaterial(id)
	e.RenderActiveView(state.ViewMaterialDetail)
	return nil
}

// DeleteMaterial removes a material and its history after the user
// confirms. The local rows disappear immediately and come back if the
// remote cascade fails.
func (e *Engine) DeleteMaterial(ctx context.Context, id string) error {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	m, ok := inventory.MaterialByID(e.state.Snapshot().Materials, id)
	if !ok {
		return e.reject(ctx, fmt.Errorf("delete material %s: %w", id, inventory.ErrMaterialNotFound))
	}

	prompt := confirmConfig(SeverityDanger, "Eliminar material",
		fmt.Sprintf("¿Eliminar %q y todo su historial de movimientos? Esta acción no se puede deshacer.", m.Name),
		"Eliminar")
	if !e.ui().Confirm(ctx, prompt) {
		return inventory.ErrOperationCancelled
	}

	pending := e.state.RemoveMaterial(id)
	e.emit()

	err := e.runSaga(ctx, saga{
		operation: OpDeleteMaterial,
		steps: []sagaStep{
			{name: StepDeleteMovements, run: func(ctx context.Context) error {
				return e.store.DeleteMovementsByMaterial(ctx, id)
			}},
			{name: StepDeleteMaterial, run: func(ctx context.Context) error {
				return e.store.DeleteMaterial(ctx, id)
			}},
		},
	})
	if err != nil {
		pending.Revert()
		e.emit()
		e.alertSaga(ctx, "Error eliminando material", err)
		e.Sync(ctx)
		return err
	}

	pending.Confirm()
	e.state.SelectMaterial("")
	e.RenderActiveView(state.ViewMaterials)
	e.Sync(ctx)
	return nil
}

// RecordMovement validates and inserts an entry or exit. An exit larger
// than the material's current stock is rejected before any write.
func (e *Engine) RecordMovement(ctx context.Context, in MovementInput) error {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	if !in.Kind.Valid() {
		return e.reject(ctx, inventory.Invalid("tipo", "Tipo de movimiento desconocido."))
	}
	if !in.Quantity.IsPositive() {
		return e.reject(ctx, inventory.Invalid("cantidad", "La cantidad debe ser mayor que cero."))
	}
	m, ok := inventory.MaterialByID(e.state.Snapshot().Materials, in.MaterialID)
	if !ok {
		return e.reject(ctx, fmt.Errorf("record movement: %w", inventory.ErrMaterialNotFound))
	}
	if in.Kind == inventory.KindExit && in.Quantity.GreaterThan(m.CurrentStock) {
		return e.reject(ctx, &inventory.StockError{
			Material:  m.Name,
			Requested: in.Quantity.String(),
			Available: m.CurrentStock.String(),
			Unit:      m.PrimaryUnit,
		})
	}
	at, err := e.operationTime(in.Date)
	if err != nil {
		return e.reject(ctx, err)
	}

	e.state.SetLoading(true)
	e.RenderActiveView(state.ViewHome)

	var result error
	_, err = e.store.InsertMovement(ctx, inventory.NewMovement{
		MaterialID:    m.ID,
		Kind:          in.Kind,
		Quantity:      in.Quantity,
		Unit:          m.PrimaryUnit,
		Note:          strings.TrimSpace(in.Note),
		OperationTime: at,
	})
	if err != nil {
		e.log.Error().Err(err).Str("material_id", m.ID).Str("kind", string(in.Kind)).Msg("record movement failed")
		e.ui().Alert(ctx, alertConfig(SeverityDanger, "Error", "Error: "+err.Error()))
		result = fmt.Errorf("record movement: %w", err)
	}

	e.Sync(ctx)
	return result
}

// operationTime applies the timestamp policy: today keeps the exact
// submission time, any other day is pinned to local noon.
func (e *Engine) operationTime(date string) (time.Time, error) {
	now := e.now().In(e.loc)
	date = strings.TrimSpace(date)
	if date == "" {
		return now, nil
	}
	day, err := time.ParseInLocation(views.DateLayout, date, e.loc)
	if err != nil {
		return time.Time{}, inventory.Invalid("fecha", "Fecha inválida, use AAAA-MM-DD.")
	}
	if views.SameDay(day, now, e.loc) {
		return now, nil
	}
	y, mo, d := day.Date()
	return time.Date(y, mo, d, 12, 0, 0, 0, e.loc), nil
}

// ResetAll closes the period: after two confirmations it exports a backup,
// deletes every movement and zeroes every stock. The backup and the stock
// reset read the remote store, not the local state, which may be stale
// after a failed sync. A failed read or backup aborts before anything is
// deleted. The dataset is reloaded whatever happens after the
// confirmations.
func (e *Engine) ResetAll(ctx context.Context) error {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	first := confirmConfig(SeverityWarning, "Cierre de período",
		"Se exportará un respaldo y se borrará todo el historial de movimientos. ¿Desea continuar?",
		"Continuar")
	if !e.ui().Confirm(ctx, first) {
		return inventory.ErrOperationCancelled
	}
	second := confirmConfig(SeverityDanger, "Confirmar cierre",
		"¿Está completamente seguro? El stock de todos los materiales quedará en cero.",
		"Cerrar período")
	if !e.ui().Confirm(ctx, second) {
		return inventory.ErrOperationCancelled
	}

	defer e.Sync(ctx)

	materials, movements, err := e.remoteDataset(ctx)
	if err != nil {
		e.log.Error().Err(err).Msg("period close read failed")
		e.ui().Alert(ctx, alertConfig(SeverityDanger, "Error", "No se pudieron leer los datos para el respaldo: "+err.Error()))
		return fmt.Errorf("period close read: %w", err)
	}

	backup := ""
	if len(movements) > 0 {
		path, err := e.exporter.Export(ctx, materials, movements, e.now())
		if err != nil {
			e.log.Error().Err(err).Msg("period close backup failed")
			e.ui().Alert(ctx, alertConfig(SeverityDanger, "Error", "No se pudo exportar el respaldo: "+err.Error()))
			return fmt.Errorf("period close backup: %w", err)
		}
		backup = path
		e.log.Info().Str("path", path).Msg("period close backup written")
	}

	zero := decimal.Zero
	err = e.runSaga(ctx, saga{
		operation: OpResetAll,
		steps: []sagaStep{
			{name: StepDeleteMovements, run: e.store.DeleteAllMovements},
			{name: StepResetStock, run: func(ctx context.Context) error {
				current, err := e.store.ListMaterials(ctx)
				if err != nil {
					return fmt.Errorf("list materials: %w", err)
				}
				for _, m := range current {
					if err := e.store.UpdateMaterial(ctx, m.ID, inventory.MaterialPatch{Stock: &zero}); err != nil {
						e.log.Error().Err(err).Str("material_id", m.ID).Msg("stock reset failed")
						return err
					}
				}
				return nil
			}},
		},
	})
	if err != nil {
		e.alertSaga(ctx, "Error en el cierre de período", err)
		return err
	}

	msg := "Período cerrado. Historial borrado y stock en cero."
	if backup != "" {
		msg += "\nRespaldo: " + backup
	}
	e.ui().Alert(ctx, alertConfig(SeveritySuccess, "Cierre de período", msg))
	return nil
}

// remoteDataset reads both collections straight from the store, in sync
// order.
func (e *Engine) remoteDataset(ctx context.Context) ([]inventory.Material, []inventory.Movement, error) {
	materials, err := e.store.ListMaterials(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list materials: %w", err)
	}
	movements, err := e.store.ListMovements(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list movements: %w", err)
	}
	return state.SortMaterials(materials), state.SortMovements(movements), nil
}

// Export writes the movements report and tells the user where it went.
func (e *Engine) Export(ctx context.Context) (string, error) {
	snap := e.state.Snapshot()
	if len(snap.Movements) == 0 {
		e.ui().Alert(ctx, alertConfig(SeverityInfo, "Exportar", "No hay datos."))
		return "", inventory.ErrNoData
	}
	path, err := e.exporter.Export(ctx, snap.Materials, snap.Movements, e.now())
	if err != nil {
		e.log.Error().Err(err).Msg("export failed")
		e.ui().Alert(ctx, alertConfig(SeverityDanger, "Error", "Error exportando: "+err.Error()))
		return "", fmt.Errorf("export: %w", err)
	}
	e.log.Info().Str("path", path).Int("movements", len(snap.Movements)).Msg("report exported")
	e.ui().Alert(ctx, alertConfig(SeveritySuccess, "Exportar", "Reporte guardado en "+path))
	return path, nil
}

// reject surfaces a validation failure. No state changes and no remote
// call has been made.
func (e *Engine) reject(ctx context.Context, err error) error {
	msg := err.Error()
	var verr *inventory.ValidationError
	var serr *inventory.StockError
	switch {
	case errors.As(err, &verr):
		msg = verr.Message
	case errors.As(err, &serr):
		msg = fmt.Sprintf("Stock insuficiente. Disponible: %s %s", serr.Available, serr.Unit)
	case errors.Is(err, inventory.ErrMaterialNotFound):
		msg = "El material ya no existe."
	}
	e.ui().Alert(ctx, alertConfig(SeverityWarning, "Atención", msg))
	return err
}

// runSaga runs s and records its partial failure, clearing an earlier
// failure of the same operation once it succeeds.
func (e *Engine) runSaga(ctx context.Context, s saga) error {
	err := s.run(ctx)
	var serr *SagaError
	if errors.As(err, &serr) {
		e.log.Error().
			Err(serr.Err).
			Str("operation", serr.Operation).
			Str("step", serr.Step).
			Strs("completed", serr.Completed).
			Msg("multi-step operation aborted")
		e.state.RecordFailure(serr.failure(e.now()))
		return err
	}
	if last := e.state.Snapshot().LastFailure; last != nil && last.Operation == s.operation {
		e.state.RecordFailure(nil)
	}
	return err
}

func (e *Engine) alertSaga(ctx context.Context, title string, err error) {
	var serr *SagaError
	if !errors.As(err, &serr) {
		e.ui().Alert(ctx, alertConfig(SeverityDanger, title, err.Error()))
		return
	}
	msg := serr.Err.Error()
	if serr.Partial() {
		msg += "\nPasos completados: " + strings.Join(serr.Completed, ", ") + ". Se requiere corrección manual."
	}
	e.ui().Alert(ctx, alertConfig(SeverityDanger, title, msg))
}
