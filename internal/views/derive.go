package views

import (
	"time"

	"github.com/regidor/inventario/internal/inventory"
	"github.com/regidor/inventario/internal/state"
)

// DateLayout is the calendar date format accepted by movement forms.
const DateLayout = "2006-01-02"

// Page is the derived content of the active view. Exactly one of the view
// payloads is set, matching View, unless Loading is true.
type Page struct {
	View    state.View
	Loading bool

	Dashboard *Dashboard
	Materials *MaterialList
	Detail    *MaterialDetail
	Form      *MovementForm
	Edit      *inventory.Material
	History   []Row
}

// Dashboard is the home view.
type Dashboard struct {
	Today  DayActivity
	Recent []Row
	Weekly []Consumption
}

// MaterialList is the searchable catalogue.
type MaterialList struct {
	Search string
	Items  []inventory.Material
	Total  int
}

// MaterialDetail is one material with its history.
type MaterialDetail struct {
	Material  inventory.Material
	Movements []inventory.Movement
}

// MovementForm backs the entry and exit forms.
type MovementForm struct {
	Kind        inventory.Kind
	Materials   []inventory.Material
	Selected    string
	DefaultDate string
}

// Derive dispatches to the selector of the snapshot's current view. While
// loading it returns only the placeholder, whatever the view. Views whose
// prerequisites are missing fall back to the materials list.
func Derive(snap state.Snapshot, now time.Time, loc *time.Location) Page {
	if loc == nil {
		loc = time.Local
	}
	view := snap.CurrentView
	if view == "" {
		view = state.ViewHome
	}
	if snap.IsLoading {
		return Page{View: view, Loading: true}
	}

	switch view {
	case state.ViewHome:
		today := TodayActivity(snap.Materials, snap.Movements, now, loc)
		recent := today.Movements
		if len(recent) > RecentLimit {
			recent = recent[:RecentLimit]
		}
		return Page{View: view, Dashboard: &Dashboard{
			Today:  today,
			Recent: recent,
			Weekly: WeeklyConsumption(snap.Materials, snap.Movements, now),
		}}

	case state.ViewMaterialDetail:
		m, ok := snap.ActiveMaterial()
		if !ok {
			return materialsPage(snap)
		}
		return Page{View: view, Detail: &MaterialDetail{
			Material:  m,
			Movements: MaterialHistory(snap.Movements, m.ID),
		}}

	case state.ViewEditMaterial:
		m, ok := snap.ActiveMaterial()
		if !ok {
			return materialsPage(snap)
		}
		return Page{View: view, Edit: &m}

	case state.ViewEntry, state.ViewExit:
		if len(snap.Materials) == 0 {
			return materialsPage(snap)
		}
		kind := inventory.KindEntry
		if view == state.ViewExit {
			kind = inventory.KindExit
		}
		selected := snap.ActiveMaterialID
		if _, ok := snap.ActiveMaterial(); !ok {
			selected = snap.Materials[0].ID
		}
		return Page{View: view, Form: &MovementForm{
			Kind:        kind,
			Materials:   snap.Materials,
			Selected:    selected,
			DefaultDate: now.In(loc).Format(DateLayout),
		}}

	case state.ViewHistory:
		return Page{View: view, History: Join(snap.Materials, snap.Movements)}

	case state.ViewNewMaterial:
		return Page{View: view}

	default:
		return materialsPage(snap)
	}
}

func materialsPage(snap state.Snapshot) Page {
	return Page{View: state.ViewMaterials, Materials: &MaterialList{
		Search: snap.MaterialSearch,
		Items:  FilterMaterials(snap.Materials, snap.MaterialSearch),
		Total:  len(snap.Materials),
	}}
}
