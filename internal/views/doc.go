// Package views holds the read-only projections the presentation layer
// renders: today's activity, per-material history, the weekly consumption
// ranking, and the filtered materials list. Every function is pure and
// recomputes from the snapshot it is given; nothing is cached between
// renders.
package views
