package ui

import (
	"strings"

	"github.com/shopspring/decimal"
)

// truncate shortens a string to the given limit, adding an ellipsis if needed.
func truncate(value string, limit int) string {
	value = strings.TrimSpace(value)
	if limit <= 0 {
		return value
	}
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	if limit <= 1 {
		return string(runes[:limit])
	}
	return string(runes[:limit-1]) + "…"
}

// padRight pads value with spaces to width runes, truncating longer values.
func padRight(value string, width int) string {
	value = truncate(value, width)
	if n := len([]rune(value)); n < width {
		return value + strings.Repeat(" ", width-n)
	}
	return value
}

// window returns the [start, end) slice of n rows that keeps cursor
// visible in height rows, scrolling as little as possible.
func window(n, cursor, height int) (int, int) {
	if height <= 0 || n <= height {
		return 0, n
	}
	start := cursor - height/2
	if start < 0 {
		start = 0
	}
	if start > n-height {
		start = n - height
	}
	return start, start + height
}

// bar renders a proportional bar of up to width cells for value out of top.
func bar(value, top decimal.Decimal, width int) string {
	if width <= 0 || !top.IsPositive() || !value.IsPositive() {
		return ""
	}
	cells := int(value.Div(top).Mul(decimal.NewFromInt(int64(width))).Round(0).IntPart())
	if cells < 1 {
		cells = 1
	}
	if cells > width {
		cells = width
	}
	return strings.Repeat("█", cells)
}
