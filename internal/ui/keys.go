package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the keyboard bindings of the app area.
type keyMap struct {
	// Global
	Quit       key.Binding
	Help       key.Binding
	CycleTheme key.Binding
	Back       key.Binding

	// View switching
	ViewHome      key.Binding
	ViewMaterials key.Binding
	ViewHistory   key.Binding

	// Actions
	NewMaterial key.Binding
	Entry       key.Binding
	Exit        key.Binding
	Open        key.Binding
	Edit        key.Binding
	Delete      key.Binding
	Search      key.Binding
	Sync        key.Binding
	Export      key.Binding
	ClosePeriod key.Binding
	Logout      key.Binding

	// Navigation
	Up     key.Binding
	Down   key.Binding
	Top    key.Binding
	Bottom key.Binding

	// Forms
	NextField key.Binding
	PrevField key.Binding
	Submit    key.Binding
	Cycle     key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() keyMap {
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "q"),
			key.WithHelp("q", "Salir"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "Ayuda"),
		),
		CycleTheme: key.NewBinding(
			key.WithKeys("T"),
			key.WithHelp("T", "Cambiar tema"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "Volver"),
		),

		ViewHome: key.NewBinding(
			key.WithKeys("1"),
			key.WithHelp("1", "Inicio"),
		),
		ViewMaterials: key.NewBinding(
			key.WithKeys("2"),
			key.WithHelp("2", "Materiales"),
		),
		ViewHistory: key.NewBinding(
			key.WithKeys("3"),
			key.WithHelp("3", "Historial"),
		),

		NewMaterial: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "Nuevo material"),
		),
		Entry: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "Registrar entrada"),
		),
		Exit: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "Registrar salida"),
		),
		Open: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "Ver detalle"),
		),
		Edit: key.NewBinding(
			key.WithKeys("E"),
			key.WithHelp("E", "Editar material"),
		),
		Delete: key.NewBinding(
			key.WithKeys("x", "delete"),
			key.WithHelp("x", "Eliminar material"),
		),
		Search: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "Buscar material"),
		),
		Sync: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "Recargar datos"),
		),
		Export: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "Exportar CSV"),
		),
		ClosePeriod: key.NewBinding(
			key.WithKeys("R"),
			key.WithHelp("R", "Cierre de período"),
		),
		Logout: key.NewBinding(
			key.WithKeys("L"),
			key.WithHelp("L", "Cerrar sesión"),
		),

		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/up", "Subir"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/down", "Bajar"),
		),
		Top: key.NewBinding(
			key.WithKeys("g", "home"),
			key.WithHelp("g", "Inicio de la lista"),
		),
		Bottom: key.NewBinding(
			key.WithKeys("G", "end"),
			key.WithHelp("G", "Final de la lista"),
		),

		NextField: key.NewBinding(
			key.WithKeys("tab", "down"),
			key.WithHelp("tab", "Siguiente campo"),
		),
		PrevField: key.NewBinding(
			key.WithKeys("shift+tab", "up"),
			key.WithHelp("shift+tab", "Campo anterior"),
		),
		Submit: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("ctrl+s", "Guardar"),
		),
		Cycle: key.NewBinding(
			key.WithKeys("left", "right"),
			key.WithHelp("←/→", "Cambiar material"),
		),
	}
}

// ShortHelp returns key bindings for the footer.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.ViewHome, k.ViewMaterials, k.ViewHistory, k.Entry, k.Exit, k.Help, k.Quit}
}

// FullHelp returns key bindings for the help overlay.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.ViewHome, k.ViewMaterials, k.ViewHistory, k.Back},
		{k.Up, k.Down, k.Top, k.Bottom},
		{k.NewMaterial, k.Entry, k.Exit, k.Open, k.Edit, k.Delete, k.Search},
		{k.NextField, k.PrevField, k.Cycle, k.Submit},
		{k.Sync, k.Export, k.ClosePeriod, k.Logout, k.CycleTheme, k.Help, k.Quit},
	}
}
