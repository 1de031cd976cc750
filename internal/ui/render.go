package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/regidor/inventario/internal/inventory"
	"github.com/regidor/inventario/internal/state"
	"github.com/regidor/inventario/internal/views"
)

// renderMain renders header, tabs, the active view and the footer.
func (m Model) renderMain() string {
	bodyHeight := max(m.height-chromeRows, 1)
	body := lipgloss.NewStyle().
		Padding(0, 1).
		Width(m.width).
		Height(bodyHeight).
		MaxHeight(bodyHeight).
		Render(m.renderContent(bodyHeight))

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		m.renderTabs(),
		body,
		"",
		m.renderFooter(),
	)
}

// renderContent renders the active view in height rows.
func (m Model) renderContent(height int) string {
	styles := m.theme.Styles()
	if m.page.Loading {
		return m.spinner.View() + styles.InfoText.Render("Cargando datos...")
	}
	if m.form != nil {
		return m.renderForm()
	}
	switch {
	case m.page.Dashboard != nil:
		return m.renderDashboard(height)
	case m.page.Materials != nil:
		return m.renderMaterials(height)
	case m.page.Detail != nil:
		return m.renderDetail(height)
	case m.page.View == state.ViewHistory:
		return m.renderHistory(height)
	}
	return ""
}

func (m Model) renderDashboard(height int) string {
	styles := m.theme.Styles()
	d := m.page.Dashboard

	var b strings.Builder
	b.WriteString(styles.AccentText.Bold(true).Render("Hoy"))
	b.WriteString("  ")
	b.WriteString(styles.StatusStyle(statusEntry).Render(fmt.Sprintf("%d entradas", d.Today.Entries)))
	b.WriteString(" ")
	b.WriteString(styles.StatusStyle(statusExit).Render(fmt.Sprintf("%d salidas", d.Today.Exits)))
	b.WriteString("\n\n")

	recent := m.renderRecent(d.Recent)
	weekly := m.renderWeekly(d.Weekly)
	if m.width >= LayoutWideWidth {
		half := (m.width - 6) / 2
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
			lipgloss.NewStyle().Width(half).Render(recent),
			"  ",
			lipgloss.NewStyle().Width(half).Render(weekly),
		))
	} else {
		b.WriteString(recent)
		b.WriteString("\n\n")
		b.WriteString(weekly)
	}
	return b.String()
}

func (m Model) renderRecent(rows []views.Row) string {
	styles := m.theme.Styles()
	var b strings.Builder
	b.WriteString(styles.Text.Bold(true).Render("Movimientos de hoy"))
	b.WriteString("\n")
	if len(rows) == 0 {
		b.WriteString(styles.MutedText.Render("Sin movimientos hoy."))
		return b.String()
	}
	for _, r := range rows {
		b.WriteString(m.renderRow(r, "15:04", false))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m Model) renderWeekly(items []views.Consumption) string {
	styles := m.theme.Styles()
	var b strings.Builder
	b.WriteString(styles.Text.Bold(true).Render("Consumo últimos 7 días"))
	b.WriteString("\n")
	if len(items) == 0 {
		b.WriteString(styles.MutedText.Render("Sin salidas en la semana."))
		return b.String()
	}
	top := items[0].Quantity
	barStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.StatusColors[statusExit]))
	for _, c := range items {
		b.WriteString(styles.Text.Render(padRight(c.Material, 22)))
		b.WriteString(" ")
		b.WriteString(styles.MutedText.Render(fmt.Sprintf("%10s", c.Quantity.String())))
		b.WriteString(" ")
		b.WriteString(barStyle.Render(bar(c.Quantity, top, 20)))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m Model) renderMaterials(height int) string {
	styles := m.theme.Styles()
	list := m.page.Materials

	var b strings.Builder
	switch {
	case m.searching:
		b.WriteString(m.search.View())
	case list.Search != "":
		b.WriteString(styles.AccentText.Render("/ " + list.Search))
		b.WriteString(styles.FaintText.Render("  esc limpiar"))
	default:
		b.WriteString(styles.FaintText.Render("/ buscar · enter detalle · n nuevo · E editar · x eliminar"))
	}
	b.WriteString("\n\n")

	if len(list.Items) == 0 {
		if list.Total == 0 {
			b.WriteString(styles.MutedText.Render("No hay materiales. Pulse n para crear uno."))
		} else {
			b.WriteString(styles.MutedText.Render("Ningún material coincide con la búsqueda."))
		}
		return b.String()
	}

	b.WriteString(styles.FaintText.Render(padRight("Material", 32) + " " + fmt.Sprintf("%12s", "Stock") + "  Unidad"))
	b.WriteString("\n")

	cursor := m.cursors[state.ViewMaterials]
	start, end := window(len(list.Items), cursor, height-5)
	for i := start; i < end; i++ {
		mat := list.Items[i]
		line := padRight(mat.Name, 32) + " " + fmt.Sprintf("%12s", mat.CurrentStock.String()) + "  " + mat.PrimaryUnit
		switch {
		case i == cursor:
			b.WriteString(styles.Selected.Render(padRight(line, max(m.width-4, 0))))
		case !mat.CurrentStock.IsPositive():
			b.WriteString(styles.WarningText.Render(line))
		default:
			b.WriteString(styles.Text.Render(line))
		}
		b.WriteString("\n")
	}
	b.WriteString(styles.FaintText.Render(fmt.Sprintf("%d de %d materiales", len(list.Items), list.Total)))
	return b.String()
}

func (m Model) renderDetail(height int) string {
	styles := m.theme.Styles()
	d := m.page.Detail

	var b strings.Builder
	b.WriteString(styles.AccentText.Bold(true).Render(d.Material.Name))
	b.WriteString("\n")
	stock := styles.Text.Render(d.Material.CurrentStock.String() + " " + d.Material.PrimaryUnit)
	if !d.Material.CurrentStock.IsPositive() {
		stock = styles.StatusStyle(statusOutStock).Render("sin stock")
	}
	b.WriteString(styles.MutedText.Render("Stock actual: ") + stock)
	b.WriteString("\n")
	b.WriteString(styles.FaintText.Render("e entrada · s salida · E editar · x eliminar · esc volver"))
	b.WriteString("\n\n")

	if len(d.Movements) == 0 {
		b.WriteString(styles.MutedText.Render("Sin movimientos registrados."))
		return b.String()
	}
	cursor := m.cursors[state.ViewMaterialDetail]
	start, end := window(len(d.Movements), cursor, height-5)
	for i := start; i < end; i++ {
		row := views.Row{Movement: d.Movements[i], MaterialName: d.Material.Name}
		b.WriteString(m.renderRow(row, "2006-01-02 15:04", i == cursor))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m Model) renderHistory(height int) string {
	styles := m.theme.Styles()
	rows := m.page.History
	if len(rows) == 0 {
		return styles.MutedText.Render("Todavía no hay movimientos.")
	}

	var b strings.Builder
	cursor := m.cursors[state.ViewHistory]
	start, end := window(len(rows), cursor, height-2)
	for i := start; i < end; i++ {
		b.WriteString(m.renderRow(rows[i], "2006-01-02 15:04", i == cursor))
		b.WriteString("\n")
	}
	b.WriteString(styles.FaintText.Render(fmt.Sprintf("%d/%d movimientos", cursor+1, len(rows))))
	return b.String()
}

// renderRow renders one movement line: time, kind badge, material,
// signed quantity and note.
func (m Model) renderRow(r views.Row, layout string, selected bool) string {
	styles := m.theme.Styles()
	mv := r.Movement

	status := statusEntry
	if mv.Kind == inventory.KindExit {
		status = statusExit
	}
	badge := styles.StatusStyle(status).Render(padRight(mv.Kind.Label(), 7))

	name := r.Label()
	qty := fmt.Sprintf("%s%s %s", mv.Kind.Sign(), mv.Quantity.String(), mv.Unit)
	line := fmt.Sprintf("%s  %s  %s", formatTime(mv.OperationTime, m.engine.Location(), layout), padRight(name, 24), padRight(qty, 16))
	if mv.Note != "" && m.width >= LayoutCompactWidth {
		line += "  " + truncate(mv.Note, 40)
	}

	textStyle := styles.Text
	if r.Orphaned {
		textStyle = styles.MutedText
	}
	if selected {
		textStyle = styles.Selected
	}
	return badge + " " + textStyle.Render(line)
}

func formatTime(t time.Time, loc *time.Location, layout string) string {
	if t.IsZero() {
		return strings.Repeat(" ", len(layout))
	}
	return t.In(loc).Format(layout)
}
