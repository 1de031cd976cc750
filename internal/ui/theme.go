package ui

import (
	"github.com/charmbracelet/lipgloss"
)

// Badge keys for Theme.StatusColors.
const (
	statusEntry     = "entrada"
	statusExit      = "salida"
	statusOutStock  = "sin-stock"
	statusSyncError = "sync-error"
	statusLoading   = "cargando"
)

// Theme is a named palette. Colors are hex strings.
type Theme struct {
	Name string

	Background string
	Surface    string // header and footer bars
	SurfaceAlt string // idle tabs, secondary buttons

	SelectionBg   string
	SelectionText string
	BorderFocus   string

	Text    string
	Muted   string
	Faint   string
	Accent  string
	Success string
	Warning string
	Danger  string
	Info    string

	// StatusColors maps badge keys to their background color.
	StatusColors map[string]string
}

// Styles are the lipgloss styles derived from a Theme.
type Styles struct {
	Text        lipgloss.Style
	MutedText   lipgloss.Style
	FaintText   lipgloss.Style
	AccentText  lipgloss.Style
	SuccessText lipgloss.Style
	WarningText lipgloss.Style
	DangerText  lipgloss.Style
	InfoText    lipgloss.Style

	Footer   lipgloss.Style
	Logo     lipgloss.Style
	Selected lipgloss.Style

	statusColors map[string]string
	background   string
	muted        string
}

func fg(color string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color))
}

// Styles builds the style set for t.
func (t Theme) Styles() Styles {
	return Styles{
		Text:        fg(t.Text),
		MutedText:   fg(t.Muted),
		FaintText:   fg(t.Faint),
		AccentText:  fg(t.Accent),
		SuccessText: fg(t.Success).Bold(true),
		WarningText: fg(t.Warning),
		DangerText:  fg(t.Danger).Bold(true),
		InfoText:    fg(t.Info),

		Footer:   fg(t.Muted).Background(lipgloss.Color(t.Surface)).Padding(0, 1),
		Logo:     fg(t.Accent).Bold(true),
		Selected: fg(t.SelectionText).Background(lipgloss.Color(t.SelectionBg)),

		statusColors: t.StatusColors,
		background:   t.Background,
		muted:        t.Muted,
	}
}

// StatusStyle returns a badge style for a movement kind or sync state.
// Unknown keys get the muted color.
func (s Styles) StatusStyle(status string) lipgloss.Style {
	color := s.statusColors[status]
	if color == "" {
		color = s.muted
	}
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color(s.background)).
		Background(lipgloss.Color(color)).
		Padding(0, 1)
}

// WithBackground returns a copy whose text styles paint bgColor behind
// them, for use on the header and footer bars.
func (s Styles) WithBackground(bgColor string) Styles {
	bg := lipgloss.Color(bgColor)
	out := s
	for _, st := range []*lipgloss.Style{
		&out.Text, &out.MutedText, &out.FaintText, &out.AccentText,
		&out.SuccessText, &out.WarningText, &out.DangerText, &out.InfoText,
		&out.Footer, &out.Logo,
	} {
		*st = st.Background(bg)
	}
	return out
}

var themes = map[string]Theme{
	"Obra":  obraTheme(),
	"Plano": planoTheme(),
}

var themeOrder = []string{"Obra", "Plano"}

// GetTheme returns the named theme, or Obra when the name is unknown.
func GetTheme(name string) Theme {
	if t, ok := themes[name]; ok {
		return t
	}
	return obraTheme()
}

// NextTheme returns the theme after current in the cycle.
func NextTheme(current string) string {
	for i, name := range themeOrder {
		if name == current {
			return themeOrder[(i+1)%len(themeOrder)]
		}
	}
	return themeOrder[0]
}

// ThemeNames lists the themes in cycle order.
func ThemeNames() []string {
	return themeOrder
}

func obraTheme() Theme {
	// Site safety palette: asphalt surfaces, hi-vis orange accents.
	return Theme{
		Name: "Obra",

		Background: "#16181b",
		Surface:    "#1f2226",
		SurfaceAlt: "#2a2e33",

		SelectionBg:   "#3d3322",
		SelectionText: "#f5efe6",
		BorderFocus:   "#f28c28",

		Text:    "#e8e4dc",
		Muted:   "#9a958c",
		Faint:   "#6c6962",
		Accent:  "#f28c28", // hi-vis orange
		Success: "#7fb069",
		Warning: "#f2c230", // hard-hat yellow
		Danger:  "#e0573f",
		Info:    "#6fa8c7",

		StatusColors: map[string]string{
			statusEntry:     "#7fb069",
			statusExit:      "#f28c28",
			statusOutStock:  "#e0573f",
			statusSyncError: "#e0573f",
			statusLoading:   "#6fa8c7",
		},
	}
}

func planoTheme() Theme {
	// Blueprint: deep cyan paper, chalk-white lines.
	return Theme{
		Name: "Plano",

		Background: "#0b2540",
		Surface:    "#123357",
		SurfaceAlt: "#1b4470",

		SelectionBg:   "#2e6da4",
		SelectionText: "#ffffff",
		BorderFocus:   "#9fd3ff",

		Text:    "#eaf4ff",
		Muted:   "#a7c1dc",
		Faint:   "#6f8fb0",
		Accent:  "#9fd3ff",
		Success: "#8bd7a0",
		Warning: "#ffd36b",
		Danger:  "#ff8a80",
		Info:    "#7fdbe8",

		StatusColors: map[string]string{
			statusEntry:     "#8bd7a0",
			statusExit:      "#ffd36b",
			statusOutStock:  "#ff8a80",
			statusSyncError: "#ff8a80",
			statusLoading:   "#7fdbe8",
		},
	}
}
