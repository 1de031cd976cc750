package ui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/regidor/inventario/internal/state"
)

// renderHeader renders the status bar.
func (m Model) renderHeader() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	parts := []string{bg.Render("inventario", styles.Logo)}

	if u := m.snapshot.User; u != nil {
		parts = append(parts, bg.Render("●", styles.SuccessText)+bg.Space()+bg.Render(u.Username, styles.Text))
	}

	parts = append(parts,
		bg.Render("Materiales:", styles.MutedText)+bg.Space()+
			bg.Render(fmt.Sprintf("%d", len(m.snapshot.Materials)), styles.Text),
		bg.Render("Movimientos:", styles.MutedText)+bg.Space()+
			bg.Render(fmt.Sprintf("%d", len(m.snapshot.Movements)), styles.Text),
	)

	switch {
	case m.snapshot.IsLoading:
		parts = append(parts, bg.Render(m.spinner.View(), styles.InfoText)+styles.StatusStyle(statusLoading).Render("sincronizando"))
	case !m.snapshot.LastSynced.IsZero():
		at := m.snapshot.LastSynced.In(m.engine.Location()).Format("15:04:05")
		parts = append(parts, bg.Render("sync", styles.FaintText)+bg.Space()+bg.Render(at, styles.MutedText))
	}

	for _, name := range syncErrorNames(m.snapshot.SyncErrors) {
		parts = append(parts, styles.StatusStyle(statusSyncError).Render("sin "+name))
	}

	if f := m.snapshot.LastFailure; f != nil && m.width >= LayoutCompactWidth {
		parts = append(parts, bg.Render("Incompleto: "+f.Operation+" en "+f.FailedStep, styles.WarningText.Bold(true)))
	}

	return lipgloss.NewStyle().
		Background(lipgloss.Color(m.theme.Surface)).
		Foreground(lipgloss.Color(m.theme.Text)).
		Padding(0, 1).
		Width(m.width).
		Render(bg.Join(parts, "  "))
}

func syncErrorNames(errs map[state.Collection]error) []string {
	names := make([]string, 0, len(errs))
	for c, err := range errs {
		if err != nil {
			names = append(names, string(c))
		}
	}
	sort.Strings(names)
	return names
}

type tab struct {
	label string
	key   string
	views []state.View
}

var tabs = []tab{
	{label: "Inicio", key: "1", views: []state.View{state.ViewHome, state.ViewEntry, state.ViewExit}},
	{label: "Materiales", key: "2", views: []state.View{state.ViewMaterials, state.ViewMaterialDetail, state.ViewNewMaterial, state.ViewEditMaterial}},
	{label: "Historial", key: "3", views: []state.View{state.ViewHistory}},
}

// renderTabs renders the view switcher with the active tab highlighted.
func (m Model) renderTabs() string {
	bg := NewBgStyle(m.theme.Background)
	active := lipgloss.NewStyle().
		Background(lipgloss.Color(m.theme.Accent)).
		Foreground(lipgloss.Color(m.theme.Background)).
		Bold(true).
		Padding(0, 1)
	idle := lipgloss.NewStyle().
		Background(lipgloss.Color(m.theme.SurfaceAlt)).
		Foreground(lipgloss.Color(m.theme.Muted)).
		Padding(0, 1)

	parts := make([]string, 0, len(tabs))
	for _, t := range tabs {
		style := idle
		for _, v := range t.views {
			if v == m.page.View {
				style = active
				break
			}
		}
		parts = append(parts, style.Render(t.key+" "+t.label))
	}
	return bg.FillLine(strings.Join(parts, bg.Space()), m.width)
}

// renderFooter shows the status message or the short help.
func (m Model) renderFooter() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	var content string
	switch {
	case m.busy != "":
		content = bg.Render(m.spinner.View(), styles.InfoText) + bg.Render(m.busy+"...", styles.InfoText)
	case m.status != "" && m.statusErr:
		content = bg.Render(m.status, styles.DangerText)
	case m.status != "":
		content = bg.Render(m.status, styles.SuccessText)
	default:
		bindings := m.keys.ShortHelp()
		parts := make([]string, 0, len(bindings))
		for _, b := range bindings {
			h := b.Help()
			parts = append(parts, bg.Render(h.Key, styles.WarningText)+bg.Space()+bg.Render(h.Desc, styles.MutedText))
		}
		content = bg.Join(parts, "  ")
	}
	return styles.Footer.Width(m.width).Render(content)
}
