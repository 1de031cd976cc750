// Package ui provides the terminal user interface for inventario.
//
// # Architecture Overview
//
// The UI is a Bubble Tea program over an engine.Engine. The engine owns
// the Domain State and every remote operation; the UI only derives pages
// from snapshots (views.Derive) and turns key presses into engine calls.
//
// # Package Structure
//
//   - app.go: Model, Update and View; key routing; Run
//   - modal.go: the bridge that carries engine renders and dialogs into the
//     event loop, and the modal dialog itself
//   - login.go: the sign-in screen
//   - forms.go: new material, edit material, entry and exit forms
//   - render.go, header.go: dashboard, materials, detail and history views
//   - theme.go, style_helpers.go: lipgloss themes and background helpers
//   - keys.go, help.go: key map and help overlay
//
// # Event Flow
//
//  1. Run attaches a bridge to the engine as renderer and dialog.
//  2. The renderer only signals; the model pulls a fresh snapshot when the
//     signal arrives, so engine calls made from Update never block.
//  3. Blocking operations (sync, mutations, login) run as tea.Cmd.
//  4. An operation that asks for confirmation parks on the bridge until the
//     modal is answered in the event loop.
//  5. Context cancellation releases parked dialogs and stops the program.
//
// # Key Bindings
//
//   - 1/2/3: Inicio, Materiales, Historial
//   - n: New material
//   - e/s: Record entry/exit (preselects the highlighted material)
//   - enter: Material detail
//   - E/x: Edit/delete material
//   - /: Search materials
//   - r: Reload, c: Export CSV, R: Close period, L: Sign out
//   - T: Cycle theme, ?: Help, q or Ctrl+C: Quit
package ui
