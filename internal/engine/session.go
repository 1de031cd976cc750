package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/regidor/inventario/internal/inventory"
	"github.com/regidor/inventario/internal/state"
)

// LoginFailedMessage is shown inline on the login form.
const LoginFailedMessage = "Usuario o contraseña incorrectos."

// Login authenticates username and enters the dashboard. Any backend
// rejection is reported as ErrAuthFailed; the caller stays on the login
// screen.
func (e *Engine) Login(ctx context.Context, username, password string) error {
	if e.auth == nil {
		return inventory.ErrNotAuthenticated
	}
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return fmt.Errorf("%w: %w", inventory.ErrAuthFailed, inventory.Invalid("usuario", "usuario y contraseña son obligatorios"))
	}

	sess, err := e.auth.Authenticate(ctx, username, password)
	if err != nil {
		e.log.Warn().Err(err).Str("username", username).Msg("login rejected")
		if !errors.Is(err, inventory.ErrAuthFailed) {
			err = fmt.Errorf("%w: %w", inventory.ErrAuthFailed, err)
		}
		return err
	}
	e.log.Info().Str("username", sess.User.Username).Msg("signed in")
	e.signedIn(ctx, &sess.User)
	return nil
}

// Logout ends the session and drops the dataset. The local state is cleared
// even when the backend call fails.
func (e *Engine) Logout(ctx context.Context) error {
	var err error
	if e.auth != nil {
		if err = e.auth.SignOut(ctx); err != nil {
			e.log.Warn().Err(err).Msg("sign out failed")
			err = fmt.Errorf("sign out: %w", err)
		}
	}
	e.signedOut()
	return err
}

// Restore resumes a stored session when there is one, then follows session
// changes until Close.
func (e *Engine) Restore(ctx context.Context) error {
	if e.auth == nil {
		e.ShowLogin()
		return inventory.ErrNotAuthenticated
	}

	sess, err := e.auth.GetSession(ctx)
	switch {
	case err != nil:
		e.log.Warn().Err(err).Msg("session check failed")
		e.ShowLogin()
	case sess == nil || sess.Expired(e.now()):
		e.ShowLogin()
	default:
		e.signedIn(ctx, &sess.User)
	}

	unsubscribe := e.auth.OnSessionChange(func(event inventory.SessionEvent, s *inventory.Session) {
		e.handleSessionEvent(ctx, event, s)
	})
	e.subMu.Lock()
	if e.unsubscribe != nil {
		e.unsubscribe()
	}
	e.unsubscribe = unsubscribe
	e.subMu.Unlock()

	if err != nil {
		return fmt.Errorf("restore session: %w", err)
	}
	return nil
}

func (e *Engine) handleSessionEvent(ctx context.Context, event inventory.SessionEvent, s *inventory.Session) {
	e.log.Debug().Stringer("event", event).Msg("session changed")
	switch event {
	case inventory.SignedIn:
		if s == nil {
			return
		}
		if cur := e.state.Snapshot().User; cur != nil && cur.ID == s.User.ID {
			return
		}
		e.signedIn(ctx, &s.User)
	case inventory.TokenRefreshed:
		if s != nil {
			e.state.SetUser(&s.User)
		}
	case inventory.SignedOut:
		if e.state.Snapshot().Page == state.PageAuth {
			return
		}
		e.signedOut()
	}
}

func (e *Engine) signedIn(ctx context.Context, u *inventory.User) {
	e.state.SetUser(u)
	e.ShowPage(ctx, state.ViewHome)
}

func (e *Engine) signedOut() {
	e.state.Reset()
	e.ShowLogin()
}
