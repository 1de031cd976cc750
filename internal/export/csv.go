// Package export writes the movements report as a semicolon-delimited CSV
// file that spreadsheet applications open directly.
package export

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/regidor/inventario/internal/inventory"
)

const (
	bom        = "\uFEFF"
	header     = "Fecha;Hora;Material;Tipo;Cantidad;Unidad;Nota"
	dateLayout = "02/01/2006"
	timeLayout = "15:04:05"

	maxSameDayReports = 999
)

// WriteCSV writes one row per movement in the given order. Material names
// and notes are always quoted; orphaned movements get an empty name.
func WriteCSV(w io.Writer, materials []inventory.Material, movements []inventory.Movement, loc *time.Location) error {
	if loc == nil {
		loc = time.Local
	}
	names := make(map[string]string, len(materials))
	for _, m := range materials {
		names[m.ID] = m.Name
	}

	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(bom + header + "\n"); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, mv := range movements {
		at := mv.OperationTime.In(loc)
		fields := []string{
			at.Format(dateLayout),
			at.Format(timeLayout),
			quote(names[mv.MaterialID]),
			mv.Kind.Label(),
			mv.Quantity.String(),
			mv.Unit,
			quote(mv.Note),
		}
		if _, err := bw.WriteString(strings.Join(fields, ";") + "\n"); err != nil {
			return fmt.Errorf("write row %s: %w", mv.ID, err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// FileName returns the report name for a given day.
func FileName(at time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return fmt.Sprintf("Reporte_Obra_%s.csv", at.In(loc).Format("2006-01-02"))
}

// Writer saves reports into a directory.
type Writer struct {
	Dir      string
	Location *time.Location
}

// Export writes the report for at into w.Dir and returns its path. A report
// already saved for the same day is kept; the new one gets a numbered name
// such as Reporte_Obra_2024-03-10_2.csv.
func (w Writer) Export(ctx context.Context, materials []inventory.Material, movements []inventory.Movement, at time.Time) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	dir := strings.TrimSpace(w.Dir)
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".reporte-*.csv")
	if err != nil {
		return "", fmt.Errorf("create report: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := WriteCSV(tmp, materials, movements, w.Location); err != nil {
		_ = tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close report: %w", err)
	}
	return save(tmp.Name(), dir, FileName(at, w.Location))
}

// save links the finished report under the first free variant of name.
// Linking fails when the target exists, so a report is never replaced.
func save(src, dir, name string) (string, error) {
	base := strings.TrimSuffix(name, ".csv")
	for n := 1; n <= maxSameDayReports; n++ {
		candidate := name
		if n > 1 {
			candidate = fmt.Sprintf("%s_%d.csv", base, n)
		}
		path := filepath.Join(dir, candidate)
		err := os.Link(src, path)
		if err == nil {
			return path, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("save report: %w", err)
		}
	}
	return "", fmt.Errorf("save report: %d reports already saved for %s", maxSameDayReports, base)
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
