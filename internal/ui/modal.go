package ui

import (
	"context"
	"strings"

	"github.com/charmbracelet/lipgloss"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/regidor/inventario/internal/engine"
	"github.com/regidor/inventario/internal/state"
)

// dialogRequest is one pending engine dialog. reply receives the answer
// exactly once.
type dialogRequest struct {
	cfg   engine.DialogConfig
	reply chan bool
}

// bridge connects the engine, which calls its hooks from worker
// goroutines, to the Bubble Tea event loop. Render notifications are
// coalesced; dialogs block the calling operation until answered.
type bridge struct {
	changes chan struct{}
	dialogs chan dialogRequest
}

var _ engine.Dialog = (*bridge)(nil)

func newBridge() *bridge {
	return &bridge{
		changes: make(chan struct{}, 1),
		dialogs: make(chan dialogRequest),
	}
}

// notify is the engine renderer. It never blocks, so it is safe to reach
// from inside Update.
func (b *bridge) notify(state.Snapshot) {
	select {
	case b.changes <- struct{}{}:
	default:
	}
}

// Confirm implements engine.Dialog.
func (b *bridge) Confirm(ctx context.Context, cfg engine.DialogConfig) bool {
	return b.ask(ctx, cfg.WithDefaults())
}

// Alert implements engine.Dialog. It returns once the modal is dismissed.
func (b *bridge) Alert(ctx context.Context, cfg engine.DialogConfig) {
	cfg.Mode = engine.ModeAlert
	b.ask(ctx, cfg.WithDefaults())
}

func (b *bridge) ask(ctx context.Context, cfg engine.DialogConfig) bool {
	req := dialogRequest{cfg: cfg, reply: make(chan bool, 1)}
	select {
	case b.dialogs <- req:
	case <-ctx.Done():
		return false
	}
	select {
	case ok := <-req.reply:
		return ok
	case <-ctx.Done():
		return false
	}
}

type changedMsg struct{}

type dialogMsg dialogRequest

// waitForEvent delivers the next engine notification or dialog.
func waitForEvent(ctx context.Context, b *bridge) tea.Cmd {
	return func() tea.Msg {
		select {
		case <-b.changes:
			return changedMsg{}
		case req := <-b.dialogs:
			return dialogMsg(req)
		case <-ctx.Done():
			return nil
		}
	}
}

// answerDialog resolves the active modal and closes it.
func (m *Model) answerDialog(ok bool) {
	if m.dialog == nil {
		return
	}
	m.dialog.reply <- ok
	m.dialog = nil
}

func (m Model) handleDialogKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	confirm := m.dialog.cfg.Mode == engine.ModeConfirm
	switch msg.String() {
	case "enter", "y", "s":
		m.answerDialog(true)
	case "esc", "n":
		m.answerDialog(!confirm)
	case "ctrl+c":
		m.answerDialog(false)
		return m, tea.Quit
	}
	return m, nil
}

// renderDialog draws the active modal centered over the screen.
func (m Model) renderDialog() string {
	cfg := m.dialog.cfg
	styles := m.theme.Styles()

	accent := m.severityColor(cfg.Severity)
	title := lipgloss.NewStyle().Foreground(lipgloss.Color(accent)).Bold(true).Render(cfg.Title)

	var b strings.Builder
	b.WriteString(title)
	b.WriteString("\n\n")
	b.WriteString(styles.Text.Render(cfg.Message))
	b.WriteString("\n\n")

	confirmBtn := lipgloss.NewStyle().
		Background(lipgloss.Color(accent)).
		Foreground(lipgloss.Color(m.theme.Background)).
		Padding(0, 1).
		Render("enter " + cfg.ConfirmLabel)
	buttons := confirmBtn
	if cfg.Mode == engine.ModeConfirm {
		cancelBtn := lipgloss.NewStyle().
			Background(lipgloss.Color(m.theme.SurfaceAlt)).
			Foreground(lipgloss.Color(m.theme.Text)).
			Padding(0, 1).
			Render("esc " + cfg.CancelLabel)
		buttons = lipgloss.JoinHorizontal(lipgloss.Top, confirmBtn, "  ", cancelBtn)
	}
	b.WriteString(buttons)

	width := 56
	if m.width > 0 && m.width-4 < width {
		width = m.width - 4
	}
	modal := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(accent)).
		Padding(1, 2).
		Width(width)

	return m.centered(modal.Render(b.String()))
}

func (m Model) severityColor(s engine.Severity) string {
	switch s {
	case engine.SeveritySuccess:
		return m.theme.Success
	case engine.SeverityWarning:
		return m.theme.Warning
	case engine.SeverityDanger:
		return m.theme.Danger
	default:
		return m.theme.Info
	}
}
