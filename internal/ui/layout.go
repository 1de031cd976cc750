package ui

import "time"

// Terminal width thresholds for responsive layouts.
const (
	// LayoutCompactWidth is the threshold below which notes are hidden.
	LayoutCompactWidth = 90

	// LayoutWideWidth is the minimum width to show the weekly chart next
	// to the recent movements.
	LayoutWideWidth = 130
)

// Fixed screen rows taken by header, tab bar and footer.
const chromeRows = 4

// Timing constants.
const (
	// StatusTimeout is how long a footer status message stays visible.
	StatusTimeout = 4 * time.Second

	// SyncTimeout bounds a manual reload.
	SyncTimeout = 30 * time.Second
)
