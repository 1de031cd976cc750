package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/regidor/inventario/internal/engine"
	"github.com/regidor/inventario/internal/inventory"
	"github.com/regidor/inventario/internal/state"
	"github.com/regidor/inventario/internal/views"
)

func newSyncCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Reload the dataset and print the dashboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := open(cmd, opts, false)
			if err != nil {
				return err
			}
			defer s.Close()

			// open loaded the dataset on entering the app area.
			snap := s.Engine.Snapshot()
			for c, err := range snap.SyncErrors {
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "error cargando %s: %v\n", c, err)
				}
			}
			s.Engine.RenderActiveView(state.ViewHome)
			page := views.Derive(s.Engine.Snapshot(), s.Engine.Now(), s.Engine.Location())
			if page.Dashboard == nil {
				return NewExitError(ExitFailure, "no se pudo cargar el tablero")
			}
			return printDashboard(cmd.OutOrStdout(), opts.Format, len(snap.Materials), len(snap.Movements), page.Dashboard, s.Engine)
		},
	}
}

type dashboardJSON struct {
	Materials int               `json:"materials"`
	Movements int               `json:"movements"`
	Entries   int               `json:"today_entries"`
	Exits     int               `json:"today_exits"`
	Recent    []rowJSON         `json:"recent"`
	Weekly    []consumptionJSON `json:"weekly"`
}

type rowJSON struct {
	Time     string `json:"time"`
	Material string `json:"material"`
	Kind     string `json:"kind"`
	Quantity string `json:"quantity"`
	Unit     string `json:"unit"`
	Note     string `json:"note,omitempty"`
}

type consumptionJSON struct {
	Material string `json:"material"`
	Quantity string `json:"quantity"`
}

func printDashboard(w io.Writer, format string, materials, movements int, d *views.Dashboard, e *engine.Engine) error {
	loc := e.Location()
	if format == "json" {
		out := dashboardJSON{
			Materials: materials, Movements: movements,
			Entries: d.Today.Entries, Exits: d.Today.Exits,
			Recent: toRows(d.Recent, loc), Weekly: []consumptionJSON{},
		}
		for _, c := range d.Weekly {
			out.Weekly = append(out.Weekly, consumptionJSON{Material: c.Material, Quantity: c.Quantity.String()})
		}
		return writeJSON(w, out)
	}

	fmt.Fprintf(w, "Materiales: %d  Movimientos: %d\n", materials, movements)
	fmt.Fprintf(w, "Hoy: %d entradas, %d salidas\n", d.Today.Entries, d.Today.Exits)
	if len(d.Recent) > 0 {
		fmt.Fprintln(w, "\nActividad de hoy:")
		printRows(w, d.Recent, loc)
	}
	if len(d.Weekly) > 0 {
		fmt.Fprintln(w, "\nConsumo últimos 7 días:")
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		for _, c := range d.Weekly {
			fmt.Fprintf(tw, "  %s\t%s\n", c.Material, c.Quantity.String())
		}
		_ = tw.Flush()
	}
	return nil
}

func newMaterialsCommand(opts *RootOptions) *cobra.Command {
	var search string
	cmd := &cobra.Command{
		Use:     "materials",
		Aliases: []string{"materiales"},
		Short:   "List materials and their stock",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := open(cmd, opts, false)
			if err != nil {
				return err
			}
			defer s.Close()

			s.Engine.SetMaterialSearch(search)
			s.Engine.RenderActiveView(state.ViewMaterials)
			page := views.Derive(s.Engine.Snapshot(), s.Engine.Now(), s.Engine.Location())
			if page.Materials == nil {
				return NewExitError(ExitFailure, "no se pudo cargar la lista de materiales")
			}
			items := page.Materials.Items

			if opts.Format == "json" {
				out := make([]map[string]string, 0, len(items))
				for _, m := range items {
					out = append(out, map[string]string{"id": m.ID, "name": m.Name, "unit": m.PrimaryUnit, "stock": m.CurrentStock.String()})
				}
				return writeJSON(cmd.OutOrStdout(), out)
			}
			if len(items) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No se encontraron materiales.")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tMATERIAL\tSTOCK\tUNIDAD")
			for _, m := range items {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", m.ID, m.Name, m.CurrentStock.String(), m.PrimaryUnit)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVarP(&search, "search", "s", "", "filter by name")

	cmd.AddCommand(newMaterialAddCommand(opts))
	cmd.AddCommand(newMaterialEditCommand(opts))
	cmd.AddCommand(newMaterialRemoveCommand(opts))
	return cmd
}

func newMaterialAddCommand(opts *RootOptions) *cobra.Command {
	var name, unit, qty string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a material with an optional opening stock",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			initial, err := parseQuantity(qty, true)
			if err != nil {
				return err
			}
			s, err := open(cmd, opts, false)
			if err != nil {
				return err
			}
			defer s.Close()
			return classify(s.Engine.CreateMaterial(cmd.Context(), engine.MaterialInput{Name: name, Unit: unit, InitialQty: initial}))
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "material name")
	cmd.Flags().StringVar(&unit, "unit", "", "primary unit (bultos, m3, unidades...)")
	cmd.Flags().StringVar(&qty, "qty", "0", "opening stock")
	return cmd
}

func newMaterialEditCommand(opts *RootOptions) *cobra.Command {
	var name, unit string
	cmd := &cobra.Command{
		Use:   "edit <material>",
		Short: "Rename a material or change its unit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := open(cmd, opts, false)
			if err != nil {
				return err
			}
			defer s.Close()
			m, err := findMaterial(s.Engine.Snapshot().Materials, args[0])
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("name") {
				name = m.Name
			}
			if !cmd.Flags().Changed("unit") {
				unit = m.PrimaryUnit
			}
			return classify(s.Engine.EditMaterial(cmd.Context(), m.ID, name, unit))
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "new name")
	cmd.Flags().StringVar(&unit, "unit", "", "new primary unit; past movements keep theirs")
	return cmd
}

func newMaterialRemoveCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <material>",
		Aliases: []string{"delete"},
		Short:   "Delete a material and its movements",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := open(cmd, opts, false)
			if err != nil {
				return err
			}
			defer s.Close()
			m, err := findMaterial(s.Engine.Snapshot().Materials, args[0])
			if err != nil {
				return err
			}
			return classify(s.Engine.DeleteMaterial(cmd.Context(), m.ID))
		},
	}
}

func newRecordCommand(opts *RootOptions) *cobra.Command {
	var material, qty, date, note string
	cmd := &cobra.Command{
		Use:       "record <entrada|salida>",
		Short:     "Record a stock entry or exit",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(inventory.KindEntry), string(inventory.KindExit)},
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := inventory.Kind(strings.ToLower(args[0]))
			if !kind.Valid() {
				return NewExitError(ExitCommandError, fmt.Sprintf("tipo %q desconocido: use entrada o salida", args[0]))
			}
			quantity, err := parseQuantity(qty, false)
			if err != nil {
				return err
			}
			s, err := open(cmd, opts, false)
			if err != nil {
				return err
			}
			defer s.Close()
			m, err := findMaterial(s.Engine.Snapshot().Materials, material)
			if err != nil {
				return err
			}
			return classify(s.Engine.RecordMovement(cmd.Context(), engine.MovementInput{
				MaterialID: m.ID, Kind: kind, Quantity: quantity, Date: date, Note: note,
			}))
		},
	}
	cmd.Flags().StringVarP(&material, "material", "m", "", "material id or exact name")
	cmd.Flags().StringVarP(&qty, "qty", "q", "", "quantity in the material's unit")
	cmd.Flags().StringVarP(&date, "date", "d", "", "operation day YYYY-MM-DD (default today)")
	cmd.Flags().StringVarP(&note, "note", "n", "", "free-text note")
	return cmd
}

func newHistoryCommand(opts *RootOptions) *cobra.Command {
	var material string
	cmd := &cobra.Command{
		Use:     "history",
		Aliases: []string{"historial"},
		Short:   "List movements, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := open(cmd, opts, false)
			if err != nil {
				return err
			}
			defer s.Close()

			snap := s.Engine.Snapshot()
			rows := views.Join(snap.Materials, snap.Movements)
			if material != "" {
				m, err := findMaterial(snap.Materials, material)
				if err != nil {
					return err
				}
				rows = views.Join(snap.Materials, views.MaterialHistory(snap.Movements, m.ID))
			}
			if opts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), toRows(rows, s.Engine.Location()))
			}
			if len(rows) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Sin movimientos.")
				return nil
			}
			printRows(cmd.OutOrStdout(), rows, s.Engine.Location())
			return nil
		},
	}
	cmd.Flags().StringVarP(&material, "material", "m", "", "only this material")
	return cmd
}

func newExportCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Write the movements report as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := open(cmd, opts, false)
			if err != nil {
				return err
			}
			defer s.Close()
			_, err = s.Engine.Export(cmd.Context())
			return classify(err)
		},
	}
}

func newClosePeriodCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "close-period",
		Short: "Back up, then delete all movements and zero every stock",
		Long: `Close the accounting period.

A CSV backup is written first; if it cannot be written nothing is deleted.
Two confirmations are requested unless --yes is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := open(cmd, opts, false)
			if err != nil {
				return err
			}
			defer s.Close()
			return classify(s.Engine.ResetAll(cmd.Context()))
		},
	}
}

func findMaterial(materials []inventory.Material, ref string) (inventory.Material, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return inventory.Material{}, NewExitError(ExitCommandError, "indique el material con --material")
	}
	if m, ok := inventory.MaterialByID(materials, ref); ok {
		return m, nil
	}
	for _, m := range materials {
		if strings.EqualFold(m.Name, ref) {
			return m, nil
		}
	}
	return inventory.Material{}, WrapExitError(ExitFailure, fmt.Sprintf("material %q", ref), inventory.ErrMaterialNotFound)
}

func parseQuantity(raw string, allowZero bool) (decimal.Decimal, error) {
	q, err := views.ParseQuantity(raw)
	switch {
	case errors.Is(err, views.ErrNoQuantity):
		if allowZero {
			return decimal.Zero, nil
		}
		return decimal.Zero, NewExitError(ExitCommandError, "indique la cantidad con --qty")
	case err != nil:
		return decimal.Zero, WrapExitError(ExitCommandError, fmt.Sprintf("cantidad %q inválida", strings.TrimSpace(raw)), err)
	}
	return q, nil
}

func toRows(rows []views.Row, loc *time.Location) []rowJSON {
	out := make([]rowJSON, 0, len(rows))
	for _, r := range rows {
		out = append(out, rowJSON{
			Time:     r.Movement.OperationTime.In(loc).Format(time.RFC3339),
			Material: r.Label(),
			Kind:     string(r.Movement.Kind),
			Quantity: r.Movement.Quantity.String(),
			Unit:     r.Movement.Unit,
			Note:     r.Movement.Note,
		})
	}
	return out
}

func printRows(w io.Writer, rows []views.Row, loc *time.Location) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, r := range rows {
		mv := r.Movement
		fmt.Fprintf(tw, "  %s\t%s\t%s%s %s\t%s\n",
			mv.OperationTime.In(loc).Format("02/01/2006 15:04"), r.Label(), mv.Kind.Sign(), mv.Quantity.String(), mv.Unit, mv.Note)
	}
	_ = tw.Flush()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
