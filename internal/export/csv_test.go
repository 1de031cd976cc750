package export

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regidor/inventario/internal/inventory"
)

var bogota = time.FixedZone("COT", -5*60*60)

func sampleData() ([]inventory.Material, []inventory.Movement) {
	mats := []inventory.Material{
		{ID: "m1", Name: "Cemento", PrimaryUnit: "bultos"},
		{ID: "m2", Name: "Varilla 1/2", PrimaryUnit: "unidades"},
	}
	movs := []inventory.Movement{
		{ID: "1", MaterialID: "m1", Kind: inventory.KindEntry, Quantity: decimal.NewFromInt(10), Unit: "bultos", Note: "x",
			OperationTime: time.Date(2024, 1, 2, 14, 30, 5, 0, bogota)},
		{ID: "2", MaterialID: "m2", Kind: inventory.KindExit, Quantity: decimal.RequireFromString("2.5"), Unit: "unidades", Note: `dijo "urgente"`,
			OperationTime: time.Date(2024, 1, 1, 17, 0, 0, 0, time.UTC)},
		{ID: "3", MaterialID: "deleted", Kind: inventory.KindExit, Quantity: decimal.NewFromInt(1), Unit: "kg",
			OperationTime: time.Date(2023, 12, 31, 8, 15, 0, 0, bogota)},
	}
	return mats, movs
}

func TestWriteCSV_Golden(t *testing.T) {
	mats, movs := sampleData()

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, mats, movs, bogota))

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "report", buf.Bytes())
}

func TestWriteCSV_RoundTripCoreFields(t *testing.T) {
	mats := []inventory.Material{{ID: "m1", Name: "Cemento", PrimaryUnit: "bultos"}}
	movs := []inventory.Movement{{ID: "1", MaterialID: "m1", Kind: inventory.KindEntry, Quantity: decimal.NewFromInt(10), Unit: "bultos", Note: "x", OperationTime: time.Now()}}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, mats, movs, bogota))

	require.True(t, strings.HasPrefix(buf.String(), "\uFEFF"), "report must start with a BOM")
	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)

	fields := strings.Split(lines[1], ";")
	require.Len(t, fields, 7)
	unquote := func(s string) string { return strings.Trim(s, `"`) }
	assert.Equal(t, "Cemento", unquote(fields[2]))
	assert.Equal(t, "ENTRADA", fields[3])
	assert.Equal(t, "10", fields[4])
	assert.Equal(t, "bultos", fields[5])
	assert.Equal(t, "x", unquote(fields[6]))
}

func TestFileName(t *testing.T) {
	at := time.Date(2024, 1, 2, 3, 0, 0, 0, time.UTC)
	assert.Equal(t, "Reporte_Obra_2024-01-01.csv", FileName(at, bogota))
}

func TestWriter_ExportCreatesFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reportes")
	mats, movs := sampleData()
	at := time.Date(2024, 1, 2, 15, 0, 0, 0, bogota)

	path, err := Writer{Dir: dir, Location: bogota}.Export(context.Background(), mats, movs, at)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "Reporte_Obra_2024-01-02.csv"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 4, bytes.Count(data, []byte("\n")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file must be cleaned up")
}

func TestWriter_SameDayExportKeepsEarlierReport(t *testing.T) {
	dir := t.TempDir()
	mats, movs := sampleData()
	at := time.Date(2024, 1, 2, 15, 0, 0, 0, bogota)
	w := Writer{Dir: dir, Location: bogota}

	first, err := w.Export(context.Background(), mats, movs, at)
	require.NoError(t, err)
	second, err := w.Export(context.Background(), mats, movs[:1], at.Add(time.Hour))
	require.NoError(t, err)
	third, err := w.Export(context.Background(), mats, movs, at.Add(2*time.Hour))
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "Reporte_Obra_2024-01-02.csv"), first)
	assert.Equal(t, filepath.Join(dir, "Reporte_Obra_2024-01-02_2.csv"), second)
	assert.Equal(t, filepath.Join(dir, "Reporte_Obra_2024-01-02_3.csv"), third)

	data, err := os.ReadFile(first)
	require.NoError(t, err)
	assert.Equal(t, 4, bytes.Count(data, []byte("\n")), "first report left intact")
	data, err = os.ReadFile(second)
	require.NoError(t, err)
	assert.Equal(t, 2, bytes.Count(data, []byte("\n")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestWriter_ExportHonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Writer{Dir: t.TempDir()}.Export(ctx, nil, nil, time.Now())
	assert.ErrorIs(t, err, context.Canceled)
}
