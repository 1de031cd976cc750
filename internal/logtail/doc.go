// Package logtail reads the end of inventario's log file.
//
// The terminal UI sends its zerolog output to a file so it does not draw
// over the screen. `inventario logs` uses this package to show the most
// recent entries: Read keeps only the last N lines in a ring, AtLeast
// drops entries below a level, and Print renders JSON entries through
// zerolog.ConsoleWriter.
//
// Read returns nil, nil for a missing file.
package logtail
