package ui

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/lipgloss"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/regidor/inventario/internal/engine"
	"github.com/regidor/inventario/internal/inventory"
	"github.com/regidor/inventario/internal/state"
	"github.com/regidor/inventario/internal/views"
)

// form is the open editor of a form view. Movement forms put a material
// picker ahead of the text fields; focus 0 is the picker there.
type form struct {
	view   state.View
	title  string
	labels []string
	inputs []textinput.Model
	focus  int
	err    string

	// Edit form
	materialID string

	// Movement forms
	kind      inventory.Kind
	materials []inventory.Material
	selected  int
}

func newInput(placeholder, value string, limit int) textinput.Model {
	in := textinput.New()
	in.Placeholder = placeholder
	in.CharLimit = limit
	in.Prompt = ""
	in.SetValue(value)
	return in
}

// newForm builds the editor for a form page. It returns nil when page is
// not a form view or lacks what the form needs.
func newForm(page views.Page) *form {
	var f *form
	switch page.View {
	case state.ViewNewMaterial:
		f = &form{
			title:  "Nuevo material",
			labels: []string{"Nombre", "Unidad principal", "Cantidad inicial"},
			inputs: []textinput.Model{
				newInput("Cemento gris", "", 80),
				newInput("bultos, m3, unidades...", "", 30),
				newInput("0", "", 16),
			},
		}
	case state.ViewEditMaterial:
		if page.Edit == nil {
			return nil
		}
		f = &form{
			title:      "Editar material",
			materialID: page.Edit.ID,
			labels:     []string{"Nombre", "Unidad principal"},
			inputs: []textinput.Model{
				newInput("", page.Edit.Name, 80),
				newInput("", page.Edit.PrimaryUnit, 30),
			},
		}
	case state.ViewEntry, state.ViewExit:
		if page.Form == nil {
			return nil
		}
		title := "Registrar entrada"
		if page.Form.Kind == inventory.KindExit {
			title = "Registrar salida"
		}
		f = &form{
			title:  title,
			kind:   page.Form.Kind,
			labels: []string{"Cantidad", "Fecha (AAAA-MM-DD)", "Nota"},
			inputs: []textinput.Model{
				newInput("0", "", 16),
				newInput(page.Form.DefaultDate, page.Form.DefaultDate, 10),
				newInput("Opcional", "", 200),
			},
		}
		f.setMaterials(page.Form.Materials, page.Form.Selected)
		// The material is preselected; start on the quantity.
		f.focus = 1
	default:
		return nil
	}
	f.view = page.View
	f.applyFocus()
	return f
}

func (f *form) hasPicker() bool {
	return f.kind != ""
}

func (f *form) slots() int {
	if f.hasPicker() {
		return len(f.inputs) + 1
	}
	return len(f.inputs)
}

// inputIndex maps the focus slot to an input, or -1 for the picker.
func (f *form) inputIndex() int {
	if f.hasPicker() {
		return f.focus - 1
	}
	return f.focus
}

func (f *form) applyFocus() {
	idx := f.inputIndex()
	for i := range f.inputs {
		if i == idx {
			f.inputs[i].Focus()
		} else {
			f.inputs[i].Blur()
		}
	}
}

func (f *form) move(delta int) {
	n := f.slots()
	f.focus = (f.focus + delta + n) % n
	f.applyFocus()
}

// setMaterials refreshes the picker, keeping the current choice when it
// still exists.
func (f *form) setMaterials(materials []inventory.Material, preferred string) {
	current := preferred
	if f.selected >= 0 && f.selected < len(f.materials) {
		current = f.materials[f.selected].ID
	}
	f.materials = materials
	f.selected = 0
	for i, m := range materials {
		if m.ID == current {
			f.selected = i
			break
		}
	}
}

func (f *form) cycleMaterial(delta int) {
	n := len(f.materials)
	if n == 0 {
		return
	}
	f.selected = (f.selected + delta + n) % n
}

func (f *form) value(i int) string {
	return strings.TrimSpace(f.inputs[i].Value())
}

// submission validates what the engine cannot and returns the operation
// to run. A non-empty message means the form stays open with that error.
func (f *form) submission(eng *engine.Engine) (func(ctx context.Context) error, string) {
	switch f.view {
	case state.ViewNewMaterial:
		qty, err := views.ParseQuantity(f.value(2))
		if err != nil && !errors.Is(err, views.ErrNoQuantity) {
			return nil, "Cantidad inicial inválida."
		}
		in := engine.MaterialInput{Name: f.value(0), Unit: f.value(1), InitialQty: qty}
		return func(ctx context.Context) error { return eng.CreateMaterial(ctx, in) }, ""

	case state.ViewEditMaterial:
		id, name, unit := f.materialID, f.value(0), f.value(1)
		return func(ctx context.Context) error { return eng.EditMaterial(ctx, id, name, unit) }, ""

	case state.ViewEntry, state.ViewExit:
		if len(f.materials) == 0 {
			return nil, "No hay materiales."
		}
		qty, err := views.ParseQuantity(f.value(0))
		if err != nil {
			return nil, "Indique una cantidad válida."
		}
		in := engine.MovementInput{
			MaterialID: f.materials[f.selected].ID,
			Kind:       f.kind,
			Quantity:   qty,
			Date:       f.value(1),
			Note:       f.value(2),
		}
		return func(ctx context.Context) error { return eng.RecordMovement(ctx, in) }, ""
	}
	return nil, ""
}

// syncForm opens, refreshes or closes the editor to match the page.
func (m *Model) syncForm() {
	if m.page.Loading {
		return
	}
	switch m.page.View {
	case state.ViewNewMaterial, state.ViewEditMaterial, state.ViewEntry, state.ViewExit:
		if m.form != nil && m.form.view == m.page.View {
			if m.form.hasPicker() && m.page.Form != nil {
				m.form.setMaterials(m.page.Form.Materials, m.page.Form.Selected)
			}
			return
		}
		m.form = newForm(m.page)
	default:
		m.form = nil
	}
}

// formReturnView is where esc leaves a form.
func formReturnView(v state.View) state.View {
	switch v {
	case state.ViewEditMaterial:
		return state.ViewMaterialDetail
	case state.ViewNewMaterial:
		return state.ViewMaterials
	default:
		return state.ViewHome
	}
}

func (m Model) handleFormKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	f := m.form
	switch {
	case msg.String() == "ctrl+c":
		return m, tea.Quit
	case key.Matches(msg, m.keys.Back):
		m.engine.RenderActiveView(formReturnView(f.view))
		m.refresh()
		return m, nil
	case key.Matches(msg, m.keys.NextField):
		f.move(1)
		return m, nil
	case key.Matches(msg, m.keys.PrevField):
		f.move(-1)
		return m, nil
	case f.hasPicker() && f.focus == 0 && key.Matches(msg, m.keys.Cycle):
		if msg.String() == "left" {
			f.cycleMaterial(-1)
		} else {
			f.cycleMaterial(1)
		}
		return m, nil
	case key.Matches(msg, m.keys.Submit), msg.String() == "enter":
		if msg.String() == "enter" && f.focus < f.slots()-1 {
			f.move(1)
			return m, nil
		}
		op, problem := f.submission(m.engine)
		if problem != "" {
			f.err = problem
			return m, nil
		}
		f.err = ""
		cmd := m.run(f.title, op)
		return m, cmd
	}

	idx := f.inputIndex()
	if idx < 0 {
		return m, nil
	}
	var cmd tea.Cmd
	f.inputs[idx], cmd = f.inputs[idx].Update(msg)
	return m, cmd
}

func (m Model) renderForm() string {
	f := m.form
	styles := m.theme.Styles()

	var b strings.Builder
	b.WriteString(styles.AccentText.Bold(true).Render(f.title))
	b.WriteString("\n\n")

	label := lipgloss.NewStyle().Width(22).Foreground(lipgloss.Color(m.theme.Muted))
	focused := label.Foreground(lipgloss.Color(m.theme.Accent)).Bold(true)
	pick := func(active bool) lipgloss.Style {
		if active {
			return focused
		}
		return label
	}

	if f.hasPicker() {
		name := "(sin materiales)"
		if len(f.materials) > 0 {
			mat := f.materials[f.selected]
			name = mat.Name + styles.MutedText.Render("  stock "+mat.CurrentStock.String()+" "+mat.PrimaryUnit)
		}
		b.WriteString(pick(f.focus == 0).Render("Material"))
		b.WriteString("‹ " + name + " ›")
		b.WriteString("\n")
	}
	for i, in := range f.inputs {
		slot := i
		if f.hasPicker() {
			slot++
		}
		b.WriteString(pick(f.focus == slot).Render(f.labels[i]))
		b.WriteString(in.View())
		b.WriteString("\n")
	}

	if f.err != "" {
		b.WriteString("\n")
		b.WriteString(styles.DangerText.Render(f.err))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(styles.FaintText.Render("tab cambiar campo · enter siguiente/guardar · ctrl+s guardar · esc cancelar"))
	return b.String()
}
