package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// BgStyle paints segments of a bar (header, footer, tabs) onto one
// background. Unstyled gaps between segments would show the terminal's
// own background, so separators are painted too.
type BgStyle struct {
	paint lipgloss.Style
}

// NewBgStyle returns a painter for bgColor.
func NewBgStyle(bgColor string) BgStyle {
	return BgStyle{paint: lipgloss.NewStyle().Background(lipgloss.Color(bgColor))}
}

// Render applies style to text on the bar's background.
func (b BgStyle) Render(text string, style lipgloss.Style) string {
	if text == "" {
		return ""
	}
	return style.Background(b.paint.GetBackground()).Render(text)
}

// Space is one painted blank.
func (b BgStyle) Space() string {
	return b.paint.Render(" ")
}

// Join concatenates rendered parts with a painted separator.
func (b BgStyle) Join(parts []string, sep string) string {
	return strings.Join(parts, b.paint.Render(sep))
}

// FillLine pads content to width on the bar's background.
func (b BgStyle) FillLine(content string, width int) string {
	return b.paint.Width(width).Render(content)
}
