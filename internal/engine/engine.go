package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/regidor/inventario/internal/export"
	"github.com/regidor/inventario/internal/inventory"
	"github.com/regidor/inventario/internal/state"
)

// Renderer is invoked with a fresh snapshot after every state transition.
type Renderer func(state.Snapshot)

// Exporter writes the movements report and returns where it went.
type Exporter interface {
	Export(ctx context.Context, materials []inventory.Material, movements []inventory.Movement, at time.Time) (string, error)
}

var _ Exporter = export.Writer{}

// Options configure an Engine. Store is required; everything else has a
// usable default.
type Options struct {
	Store    inventory.Store
	Auth     inventory.Authenticator
	State    *state.Store
	Dialog   Dialog
	Exporter Exporter
	Render   Renderer
	Logger   *zerolog.Logger
	Location *time.Location
	Now      func() time.Time
}

// Engine runs synchronization, navigation and mutations against one Domain
// State. Mutations are serialized; Sync is not and relies on the state's
// generation token to discard results that lost a race.
type Engine struct {
	store    inventory.Store
	auth     inventory.Authenticator
	state    *state.Store
	dialog   Dialog
	exporter Exporter
	render   Renderer
	log      zerolog.Logger
	loc      *time.Location
	now      func() time.Time

	// opMu admits one mutation at a time.
	opMu sync.Mutex

	hookMu sync.RWMutex

	subMu       sync.Mutex
	unsubscribe func()
}

// New builds an Engine from opts.
func New(opts Options) (*Engine, error) {
	if opts.Store == nil {
		return nil, errors.New("engine: store is required")
	}
	e := &Engine{
		store:    opts.Store,
		auth:     opts.Auth,
		state:    opts.State,
		dialog:   opts.Dialog,
		exporter: opts.Exporter,
		render:   opts.Render,
		loc:      opts.Location,
		now:      opts.Now,
	}
	if opts.Logger != nil {
		e.log = opts.Logger.With().Str("component", "engine").Logger()
	} else {
		e.log = zerolog.Nop()
	}
	if e.state == nil {
		e.state = &state.Store{}
	}
	if e.loc == nil {
		e.loc = time.Local
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.dialog == nil {
		e.dialog = logDialog{log: e.log}
	}
	if e.exporter == nil {
		e.exporter = export.Writer{Dir: ".", Location: e.loc}
	}
	if e.render == nil {
		e.render = func(state.Snapshot) {}
	}
	return e, nil
}

// Snapshot returns the current Domain State.
func (e *Engine) Snapshot() state.Snapshot {
	return e.state.Snapshot()
}

// Location is the zone calendar days are evaluated in.
func (e *Engine) Location() *time.Location {
	return e.loc
}

// Now returns the engine clock's current time.
func (e *Engine) Now() time.Time {
	return e.now()
}

// SetDialog replaces the dialog. The terminal UI attaches itself after the
// engine is built.
func (e *Engine) SetDialog(d Dialog) {
	e.hookMu.Lock()
	defer e.hookMu.Unlock()
	if d == nil {
		d = logDialog{log: e.log}
	}
	e.dialog = d
}

// SetRenderer replaces the renderer.
func (e *Engine) SetRenderer(r Renderer) {
	e.hookMu.Lock()
	defer e.hookMu.Unlock()
	if r == nil {
		r = func(state.Snapshot) {}
	}
	e.render = r
}

func (e *Engine) emit() {
	e.hookMu.RLock()
	render := e.render
	e.hookMu.RUnlock()
	render(e.state.Snapshot())
}

func (e *Engine) ui() Dialog {
	e.hookMu.RLock()
	defer e.hookMu.RUnlock()
	return e.dialog
}

// Sync reloads both collections and replaces them wholesale. Each
// collection is fetched independently; a read failure is logged and kept
// in the snapshot's SyncErrors, never shown as a dialog.
func (e *Engine) Sync(ctx context.Context) {
	gen := e.state.BeginSync()
	e.emit()

	var res state.SyncResult
	res.Materials, res.MaterialsErr = e.store.ListMaterials(ctx)
	if res.MaterialsErr != nil {
		e.log.Error().Err(res.MaterialsErr).Str("collection", string(state.CollectionMaterials)).Msg("load failed")
	}
	res.Movements, res.MovementsErr = e.store.ListMovements(ctx)
	if res.MovementsErr != nil {
		e.log.Error().Err(res.MovementsErr).Str("collection", string(state.CollectionMovements)).Msg("load failed")
	}

	if !e.state.FinishSync(gen, res) {
		e.log.Debug().Uint64("generation", gen).Msg("discarded stale sync")
		return
	}
	e.log.Debug().
		Uint64("generation", gen).
		Int("materials", len(res.Materials)).
		Int("movements", len(res.Movements)).
		Msg("sync complete")
	e.emit()
}

// ShowLogin switches to the login screen.
func (e *Engine) ShowLogin() {
	e.state.SetPage(state.PageAuth)
	e.emit()
}

// ShowPage enters the app area at view. The dataset is loaded only when no
// materials are present yet.
func (e *Engine) ShowPage(ctx context.Context, view state.View) {
	e.state.SetPage(state.PageApp)
	e.RenderActiveView(view)
	if len(e.state.Snapshot().Materials) == 0 {
		e.Sync(ctx)
	}
}

// RenderActiveView records view as current and re-renders. While a sync is
// loading the renderer sees only the placeholder.
func (e *Engine) RenderActiveView(view state.View) {
	if view == "" {
		view = state.ViewHome
	}
	e.state.SetView(view)
	e.emit()
}

// SelectMaterial sets the material shown by the detail and edit views.
func (e *Engine) SelectMaterial(id string) {
	e.state.SelectMaterial(id)
	e.emit()
}

// OpenMaterial selects a material and shows its detail view.
func (e *Engine) OpenMaterial(id string) {
	e.state.SelectMaterial(id)
	e.RenderActiveView(state.ViewMaterialDetail)
}

// SetMaterialSearch filters the materials list.
func (e *Engine) SetMaterialSearch(q string) {
	e.state.SetMaterialSearch(q)
	e.emit()
}

// Close releases the session subscription.
func (e *Engine) Close() {
	e.subMu.Lock()
	defer e.subMu.Unlock()
	if e.unsubscribe != nil {
		e.unsubscribe()
		e.unsubscribe = nil
	}
}
