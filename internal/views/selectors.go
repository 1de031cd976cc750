package views

import (
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"

	"github.com/regidor/inventario/internal/inventory"
)

const (
	// RecentLimit caps the movements listed on the dashboard.
	RecentLimit = 5
	// WeeklyTopN caps the consumption ranking.
	WeeklyTopN = 5
	// WeeklyWindow is the trailing window of the consumption ranking.
	WeeklyWindow = 7 * 24 * time.Hour
	// UnknownMaterial labels movements whose material no longer exists.
	UnknownMaterial = "Desconocido"
)

// Row is a movement joined with its material name.
type Row struct {
	Movement     inventory.Movement
	MaterialName string
	Orphaned     bool
}

// Label returns the material name, or UnknownMaterial for orphans.
func (r Row) Label() string {
	if r.Orphaned {
		return UnknownMaterial
	}
	return r.MaterialName
}

// DayActivity summarizes the movements of one calendar day.
type DayActivity struct {
	Entries   int
	Exits     int
	Movements []Row
}

// Consumption is the total exited quantity of one material.
type Consumption struct {
	Material string
	Quantity decimal.Decimal
}

// SameDay reports whether a and b fall on the same calendar day in loc.
func SameDay(a, b time.Time, loc *time.Location) bool {
	if loc == nil {
		loc = time.Local
	}
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}

// Join pairs every movement with its material name, preserving order.
func Join(materials []inventory.Material, movements []inventory.Movement) []Row {
	names := make(map[string]string, len(materials))
	for _, m := range materials {
		names[m.ID] = m.Name
	}
	rows := make([]Row, 0, len(movements))
	for _, mv := range movements {
		name, ok := names[mv.MaterialID]
		rows = append(rows, Row{Movement: mv, MaterialName: name, Orphaned: !ok})
	}
	return rows
}

// TodayActivity returns the movements whose operation date is today's
// calendar date in loc, with entry and exit counts.
func TodayActivity(materials []inventory.Material, movements []inventory.Movement, now time.Time, loc *time.Location) DayActivity {
	var act DayActivity
	for _, row := range Join(materials, movements) {
		if !SameDay(row.Movement.OperationTime, now, loc) {
			continue
		}
		switch row.Movement.Kind {
		case inventory.KindEntry:
			act.Entries++
		case inventory.KindExit:
			act.Exits++
		}
		act.Movements = append(act.Movements, row)
	}
	return act
}

// MaterialHistory returns the movements of one material, newest first.
func MaterialHistory(movements []inventory.Movement, materialID string) []inventory.Movement {
	var out []inventory.Movement
	for _, mv := range movements {
		if mv.MaterialID == materialID {
			out = append(out, mv)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].OperationTime.After(out[j].OperationTime)
	})
	return out
}

// WeeklyConsumption ranks materials by exited quantity over the trailing
// WeeklyWindow ending at now, keeping the top WeeklyTopN.
func WeeklyConsumption(materials []inventory.Material, movements []inventory.Movement, now time.Time) []Consumption {
	from := now.Add(-WeeklyWindow)
	totals := make(map[string]decimal.Decimal)
	for _, row := range Join(materials, movements) {
		mv := row.Movement
		if mv.Kind != inventory.KindExit {
			continue
		}
		if mv.OperationTime.Before(from) || mv.OperationTime.After(now) {
			continue
		}
		label := row.Label()
		totals[label] = totals[label].Add(mv.Quantity)
	}

	out := make([]Consumption, 0, len(totals))
	for name, qty := range totals {
		out = append(out, Consumption{Material: name, Quantity: qty})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Quantity.Cmp(out[j].Quantity); c != 0 {
			return c > 0
		}
		return out[i].Material < out[j].Material
	})
	if len(out) > WeeklyTopN {
		out = out[:WeeklyTopN]
	}
	return out
}

// FilterMaterials keeps materials whose name contains query, ignoring case.
// A blank query keeps everything.
func FilterMaterials(materials []inventory.Material, query string) []inventory.Material {
	q := strings.TrimSpace(query)
	if q == "" {
		return append([]inventory.Material(nil), materials...)
	}
	fold := cases.Fold()
	needle := fold.String(q)
	var out []inventory.Material
	for _, m := range materials {
		if strings.Contains(fold.String(m.Name), needle) {
			out = append(out, m)
		}
	}
	return out
}

// ErrNoQuantity is returned by ParseQuantity for blank input.
var ErrNoQuantity = errors.New("quantity is empty")

// ParseQuantity reads a quantity typed into a form. A decimal comma is
// accepted in place of the point.
func ParseQuantity(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(strings.ReplaceAll(raw, ",", "."))
	if raw == "" {
		return decimal.Zero, ErrNoQuantity
	}
	return decimal.NewFromString(raw)
}
