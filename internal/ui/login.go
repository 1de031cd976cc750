package ui

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/lipgloss"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/regidor/inventario/internal/engine"
	"github.com/regidor/inventario/internal/inventory"
)

// loginForm is the sign-in screen. Failures are shown inline, never as a
// dialog.
type loginForm struct {
	username textinput.Model
	password textinput.Model
	focus    int
	err      string
	pending  bool
}

type loginDoneMsg struct {
	username string
	err      error
}

func newLoginForm(lastUsername string) loginForm {
	user := newInput("usuario", lastUsername, 64)
	pass := newInput("contraseña", "", 128)
	pass.EchoMode = textinput.EchoPassword
	pass.EchoCharacter = '•'

	f := loginForm{username: user, password: pass}
	if lastUsername != "" {
		f.focus = 1
	}
	f.applyFocus()
	return f
}

func (f *loginForm) applyFocus() {
	if f.focus == 0 {
		f.username.Focus()
		f.password.Blur()
	} else {
		f.username.Blur()
		f.password.Focus()
	}
}

func loginCmd(ctx context.Context, eng *engine.Engine, username, password string) tea.Cmd {
	return func() tea.Msg {
		return loginDoneMsg{username: username, err: eng.Login(ctx, username, password)}
	}
}

func (m Model) handleLoginKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		return m, tea.Quit
	case "tab", "shift+tab", "up", "down":
		m.login.focus = 1 - m.login.focus
		m.login.applyFocus()
		return m, nil
	case "enter":
		if m.login.pending {
			return m, nil
		}
		if m.login.focus == 0 {
			m.login.focus = 1
			m.login.applyFocus()
			return m, nil
		}
		username := strings.TrimSpace(m.login.username.Value())
		m.login.err = ""
		m.login.pending = true
		return m, loginCmd(m.ctx, m.engine, username, m.login.password.Value())
	}

	var cmd tea.Cmd
	if m.login.focus == 0 {
		m.login.username, cmd = m.login.username.Update(msg)
	} else {
		m.login.password, cmd = m.login.password.Update(msg)
	}
	return m, cmd
}

func (m Model) handleLoginDone(msg loginDoneMsg) (tea.Model, tea.Cmd) {
	m.login.pending = false
	if msg.err != nil {
		m.login.err = engine.LoginFailedMessage
		if !errors.Is(msg.err, inventory.ErrAuthFailed) {
			m.login.err = "No se pudo iniciar sesión: " + msg.err.Error()
		}
		m.login.password.SetValue("")
		m.login.focus = 1
		m.login.applyFocus()
		return m, nil
	}
	m.login = newLoginForm(msg.username)
	if m.opts.OnLogin != nil {
		m.opts.OnLogin(msg.username)
	}
	m.refresh()
	return m, nil
}

func (m Model) renderLogin() string {
	styles := m.theme.Styles()

	var b strings.Builder
	b.WriteString(styles.Logo.Render("inventario"))
	b.WriteString(styles.MutedText.Render("  materiales de obra"))
	b.WriteString("\n\n")

	label := lipgloss.NewStyle().Width(12).Foreground(lipgloss.Color(m.theme.Muted))
	b.WriteString(label.Render("Usuario"))
	b.WriteString(m.login.username.View())
	b.WriteString("\n")
	b.WriteString(label.Render("Contraseña"))
	b.WriteString(m.login.password.View())
	b.WriteString("\n\n")

	switch {
	case m.login.pending:
		b.WriteString(m.spinner.View() + styles.InfoText.Render(" Verificando..."))
	case m.login.err != "":
		b.WriteString(styles.DangerText.Render(m.login.err))
	default:
		b.WriteString(styles.FaintText.Render("enter ingresar · tab cambiar campo · esc salir"))
	}

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(m.theme.BorderFocus)).
		Padding(1, 3).
		Width(52)

	return m.centered(box.Render(b.String()))
}
