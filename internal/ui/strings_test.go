package ui

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestTruncate(t *testing.T) {
	if got := truncate("  Arena  ", 10); got != "Arena" {
		t.Fatalf("truncate trims = %q", got)
	}
	if got := truncate("Cemento gris", 8); got != "Cemento…" {
		t.Fatalf("truncate = %q, want Cemento…", got)
	}
	if got := truncate("Ñandú", 0); got != "Ñandú" {
		t.Fatalf("truncate without limit = %q", got)
	}
}

func TestPadRight(t *testing.T) {
	if got := padRight("m3", 5); got != "m3   " {
		t.Fatalf("padRight = %q", got)
	}
	if got := padRight("Varilla corrugada", 8); got != "Varilla…" {
		t.Fatalf("padRight long = %q", got)
	}
}

func TestWindow(t *testing.T) {
	cases := []struct {
		name             string
		n, cursor, limit int
		start, end       int
	}{
		{"fits", 3, 2, 10, 0, 3},
		{"top", 20, 0, 5, 0, 5},
		{"middle", 20, 10, 5, 8, 13},
		{"bottom", 20, 19, 5, 15, 20},
		{"no height", 20, 3, 0, 0, 20},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			start, end := window(tc.n, tc.cursor, tc.limit)
			if start != tc.start || end != tc.end {
				t.Fatalf("window(%d, %d, %d) = [%d, %d), want [%d, %d)", tc.n, tc.cursor, tc.limit, start, end, tc.start, tc.end)
			}
		})
	}
}

func TestBar(t *testing.T) {
	top := decimal.NewFromInt(10)
	if got := bar(decimal.NewFromInt(5), top, 10); got != "█████" {
		t.Fatalf("bar half = %q", got)
	}
	if got := bar(decimal.RequireFromString("0.01"), top, 10); got != "█" {
		t.Fatalf("bar tiny = %q, want one cell", got)
	}
	if got := bar(decimal.NewFromInt(5), decimal.Zero, 10); got != "" {
		t.Fatalf("bar without top = %q", got)
	}
}
