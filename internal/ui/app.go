package ui

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/regidor/inventario/internal/engine"
	"github.com/regidor/inventario/internal/inventory"
	"github.com/regidor/inventario/internal/state"
	"github.com/regidor/inventario/internal/views"
)

// Options configures the UI.
type Options struct {
	Engine *engine.Engine
	// Start runs once the program is up: it restores the session or enters
	// the dashboard. Nil enters the dashboard.
	Start        func(ctx context.Context) error
	ThemeName    string
	LastUsername string
	// OnLogin receives the username after a successful sign-in.
	OnLogin func(username string)
	// OnTheme receives the theme name whenever the user switches themes.
	OnTheme func(name string)
	Logger  zerolog.Logger
}

// Model is the root application state for Bubble Tea.
type Model struct {
	ctx    context.Context
	engine *engine.Engine
	bridge *bridge
	opts   Options
	log    zerolog.Logger

	// UI state
	theme  Theme
	keys   keyMap
	width  int
	height int
	ready  bool

	// Data state
	snapshot state.Snapshot
	page     views.Page
	cursors  map[state.View]int

	// Materials search
	search    textinput.Model
	searching bool

	login loginForm
	form  *form

	// Engine dialogs, oldest first; the head is on screen.
	dialog  *dialogRequest
	pending []dialogRequest

	showHelp bool

	spinner   spinner.Model
	busy      string
	status    string
	statusErr bool
	statusSeq int
}

// New creates a model bound to eng. The engine's dialog and renderer are
// not touched; Run attaches them.
func New(ctx context.Context, opts Options, b *bridge) Model {
	if ctx == nil {
		ctx = context.Background()
	}
	if b == nil {
		b = newBridge()
	}

	search := newInput("buscar material", "", 60)
	search.Prompt = "/ "

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := Model{
		ctx:     ctx,
		engine:  opts.Engine,
		bridge:  b,
		opts:    opts,
		log:     opts.Logger.With().Str("component", "ui").Logger(),
		theme:   GetTheme(opts.ThemeName),
		keys:    DefaultKeyMap(),
		cursors: make(map[state.View]int),
		search:  search,
		login:   newLoginForm(opts.LastUsername),
		spinner: sp,
	}
	m.refresh()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		waitForEvent(m.ctx, m.bridge),
		m.spinner.Tick,
		textinput.Blink,
		startCmd(m.ctx, m.engine, m.opts.Start),
	)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		return m, nil

	case changedMsg:
		m.refresh()
		return m, waitForEvent(m.ctx, m.bridge)

	case dialogMsg:
		req := dialogRequest(msg)
		if m.dialog == nil {
			m.dialog = &req
		} else {
			m.pending = append(m.pending, req)
		}
		return m, waitForEvent(m.ctx, m.bridge)

	case startedMsg:
		if msg.err != nil && !errors.Is(msg.err, inventory.ErrNotAuthenticated) {
			m.log.Warn().Err(msg.err).Msg("start failed")
			cmd := m.setStatus("No se pudo restaurar la sesión: "+msg.err.Error(), true)
			return m, cmd
		}
		return m, nil

	case loginDoneMsg:
		return m.handleLoginDone(msg)

	case opDoneMsg:
		return m.handleOpDone(msg)

	case clearStatusMsg:
		if msg.seq == m.statusSeq {
			m.status = ""
			m.statusErr = false
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m.updateInputs(msg)
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Cargando..."
	}
	if m.dialog != nil {
		return m.renderDialog()
	}
	if m.showHelp {
		return m.renderHelp()
	}
	if m.snapshot.Page == state.PageAuth {
		return m.renderLogin()
	}
	return m.renderMain()
}

// refresh pulls the engine state and derives the active page.
func (m *Model) refresh() {
	if m.engine == nil {
		return
	}
	m.snapshot = m.engine.Snapshot()
	m.page = views.Derive(m.snapshot, m.engine.Now(), m.engine.Location())
	m.syncForm()
	if n := m.listLen(); m.cursors[m.page.View] >= n {
		m.cursors[m.page.View] = max(n-1, 0)
	}
}

// updateInputs forwards non-key messages, such as cursor blinks, to the
// focused input.
func (m Model) updateInputs(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch {
	case m.snapshot.Page == state.PageAuth:
		if m.login.focus == 0 {
			m.login.username, cmd = m.login.username.Update(msg)
		} else {
			m.login.password, cmd = m.login.password.Update(msg)
		}
	case m.form != nil:
		if idx := m.form.inputIndex(); idx >= 0 {
			m.form.inputs[idx], cmd = m.form.inputs[idx].Update(msg)
		}
	case m.searching:
		m.search, cmd = m.search.Update(msg)
	}
	return m, cmd
}

// handleKey routes input to the topmost layer: dialog, help, login, form,
// search, then the app area.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.dialog != nil {
		next, cmd := m.handleDialogKey(msg)
		nm := next.(Model)
		nm.promoteDialog()
		return nm, cmd
	}
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}
	if m.snapshot.Page == state.PageAuth {
		return m.handleLoginKey(msg)
	}
	if m.form != nil {
		return m.handleFormKey(msg)
	}
	if m.searching {
		return m.handleSearchKey(msg)
	}

	k := m.keys
	switch {
	case key.Matches(msg, k.Quit):
		return m, tea.Quit
	case key.Matches(msg, k.Help):
		m.showHelp = true
		return m, nil
	case key.Matches(msg, k.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		if m.opts.OnTheme != nil {
			m.opts.OnTheme(m.theme.Name)
		}
		return m, nil
	case key.Matches(msg, k.ViewHome):
		m.show(state.ViewHome)
		return m, nil
	case key.Matches(msg, k.ViewMaterials):
		m.show(state.ViewMaterials)
		return m, nil
	case key.Matches(msg, k.ViewHistory):
		m.show(state.ViewHistory)
		return m, nil
	case key.Matches(msg, k.NewMaterial):
		m.show(state.ViewNewMaterial)
		return m, nil
	case key.Matches(msg, k.Entry):
		m.openMovementForm(state.ViewEntry)
		return m, nil
	case key.Matches(msg, k.Exit):
		m.openMovementForm(state.ViewExit)
		return m, nil
	case key.Matches(msg, k.Sync):
		eng := m.engine
		cmd := m.run("Recargar", func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, SyncTimeout)
			defer cancel()
			eng.Sync(ctx)
			return nil
		})
		return m, cmd
	case key.Matches(msg, k.Export):
		eng := m.engine
		cmd := m.run("Exportar", func(ctx context.Context) error {
			_, err := eng.Export(ctx)
			return err
		})
		return m, cmd
	case key.Matches(msg, k.ClosePeriod):
		cmd := m.run("Cierre de período", m.engine.ResetAll)
		return m, cmd
	case key.Matches(msg, k.Logout) && m.snapshot.User != nil:
		cmd := m.run("Cerrar sesión", m.engine.Logout)
		return m, cmd
	}

	switch m.page.View {
	case state.ViewMaterials:
		return m.handleMaterialsKey(msg)
	case state.ViewMaterialDetail:
		return m.handleDetailKey(msg)
	case state.ViewHistory:
		m.moveCursor(msg)
		if key.Matches(msg, k.Back) {
			m.show(state.ViewHome)
		}
	}
	return m, nil
}

func (m Model) handleMaterialsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := m.keys
	if m.moveCursor(msg) {
		return m, nil
	}
	switch {
	case key.Matches(msg, k.Search):
		m.searching = true
		m.search.SetValue(m.snapshot.MaterialSearch)
		m.search.CursorEnd()
		cmd := m.search.Focus()
		return m, cmd
	case key.Matches(msg, k.Back):
		if m.snapshot.MaterialSearch != "" {
			m.engine.SetMaterialSearch("")
		} else {
			m.engine.RenderActiveView(state.ViewHome)
		}
		m.refresh()
		return m, nil
	}

	mat, ok := m.selectedMaterial()
	if !ok {
		return m, nil
	}
	switch {
	case key.Matches(msg, k.Open):
		m.engine.OpenMaterial(mat.ID)
		m.refresh()
	case key.Matches(msg, k.Edit):
		m.engine.SelectMaterial(mat.ID)
		m.show(state.ViewEditMaterial)
	case key.Matches(msg, k.Delete):
		cmd := m.deleteMaterial(mat.ID)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleDetailKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := m.keys
	if m.moveCursor(msg) {
		return m, nil
	}
	if m.page.Detail == nil {
		return m, nil
	}
	id := m.page.Detail.Material.ID
	switch {
	case key.Matches(msg, k.Back):
		m.show(state.ViewMaterials)
	case key.Matches(msg, k.Edit):
		m.show(state.ViewEditMaterial)
	case key.Matches(msg, k.Delete):
		cmd := m.deleteMaterial(id)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.searching = false
		m.search.Blur()
		m.search.SetValue("")
		m.engine.SetMaterialSearch("")
		m.refresh()
		return m, nil
	case "enter":
		m.searching = false
		m.search.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	before := m.search.Value()
	m.search, cmd = m.search.Update(msg)
	if v := m.search.Value(); v != before {
		m.engine.SetMaterialSearch(v)
		m.cursors[state.ViewMaterials] = 0
		m.refresh()
	}
	return m, cmd
}

func (m *Model) deleteMaterial(id string) tea.Cmd {
	eng := m.engine
	return m.run("Eliminar material", func(ctx context.Context) error {
		return eng.DeleteMaterial(ctx, id)
	})
}

// show switches views without reloading.
func (m *Model) show(view state.View) {
	m.engine.RenderActiveView(view)
	m.refresh()
}

// openMovementForm opens an entry or exit form, preselecting the material
// under the cursor when the materials list or a detail is showing.
func (m *Model) openMovementForm(view state.View) {
	switch m.page.View {
	case state.ViewMaterials:
		if mat, ok := m.selectedMaterial(); ok {
			m.engine.SelectMaterial(mat.ID)
		}
	case state.ViewMaterialDetail:
		// The detail's material is already active.
	default:
		m.engine.SelectMaterial("")
	}
	m.show(view)
}

func (m Model) selectedMaterial() (inventory.Material, bool) {
	if m.page.Materials == nil {
		return inventory.Material{}, false
	}
	items := m.page.Materials.Items
	i := m.cursors[state.ViewMaterials]
	if i < 0 || i >= len(items) {
		return inventory.Material{}, false
	}
	return items[i], true
}

// listLen is the number of selectable rows of the active view.
func (m Model) listLen() int {
	switch {
	case m.page.Materials != nil:
		return len(m.page.Materials.Items)
	case m.page.Detail != nil:
		return len(m.page.Detail.Movements)
	case m.page.View == state.ViewHistory:
		return len(m.page.History)
	}
	return 0
}

// moveCursor applies list navigation keys and reports whether msg was one.
func (m *Model) moveCursor(msg tea.KeyMsg) bool {
	n := m.listLen()
	cur := m.cursors[m.page.View]
	k := m.keys
	switch {
	case key.Matches(msg, k.Down):
		if cur < n-1 {
			cur++
		}
	case key.Matches(msg, k.Up):
		if cur > 0 {
			cur--
		}
	case key.Matches(msg, k.Top):
		cur = 0
	case key.Matches(msg, k.Bottom):
		cur = max(n-1, 0)
	default:
		return false
	}
	m.cursors[m.page.View] = cur
	return true
}

// promoteDialog puts the next queued dialog on screen.
func (m *Model) promoteDialog() {
	if m.dialog != nil || len(m.pending) == 0 {
		return
	}
	next := m.pending[0]
	m.pending = m.pending[1:]
	m.dialog = &next
}

// Messages

type startedMsg struct{ err error }

// opDoneMsg reports a finished engine operation. The engine has already
// shown its own dialogs.
type opDoneMsg struct {
	name string
	err  error
}

type clearStatusMsg struct{ seq int }

// Commands

func startCmd(ctx context.Context, eng *engine.Engine, start func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		if start == nil {
			eng.ShowPage(ctx, state.ViewHome)
			return startedMsg{}
		}
		return startedMsg{err: start(ctx)}
	}
}

// run executes op off the event loop. One operation runs at a time.
func (m *Model) run(name string, op func(context.Context) error) tea.Cmd {
	if m.busy != "" {
		return m.setStatus("Espere: "+strings.ToLower(m.busy)+" en curso", true)
	}
	m.busy = name
	ctx := m.ctx
	return func() tea.Msg {
		return opDoneMsg{name: name, err: op(ctx)}
	}
}

func (m Model) handleOpDone(msg opDoneMsg) (tea.Model, tea.Cmd) {
	m.busy = ""
	m.refresh()
	switch {
	case msg.err == nil:
		cmd := m.setStatus(msg.name+": listo", false)
		return m, cmd
	case errors.Is(msg.err, inventory.ErrOperationCancelled):
		cmd := m.setStatus(msg.name+": cancelado", false)
		return m, cmd
	default:
		m.log.Debug().Err(msg.err).Str("operation", msg.name).Msg("operation failed")
		cmd := m.setStatus(msg.name+": no completado", true)
		return m, cmd
	}
}

func (m *Model) setStatus(text string, isErr bool) tea.Cmd {
	m.statusSeq++
	m.status = text
	m.statusErr = isErr
	seq := m.statusSeq
	return tea.Tick(StatusTimeout, func(time.Time) tea.Msg {
		return clearStatusMsg{seq: seq}
	})
}

// Run starts the Bubble Tea program and blocks until the user quits or
// ctx ends.
func Run(ctx context.Context, opts Options) error {
	if opts.Engine == nil {
		return errors.New("ui requires an engine")
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	b := newBridge()
	opts.Engine.SetRenderer(b.notify)
	opts.Engine.SetDialog(b)
	defer opts.Engine.SetDialog(nil)
	defer opts.Engine.SetRenderer(nil)

	p := tea.NewProgram(New(ctx, opts, b), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
