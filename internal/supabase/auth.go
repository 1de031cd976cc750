package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/regidor/inventario/internal/inventory"
)

var (
	_ inventory.Authenticator = (*Auth)(nil)
	_ TokenSource             = (*Auth)(nil)
)

// DefaultEmailDomain turns a bare username into the address GoTrue knows.
const DefaultEmailDomain = "regidor.local"

// refreshSkew renews a token slightly before it actually expires.
const refreshSkew = 10 * time.Second

// AuthOptions configure an Auth.
type AuthOptions struct {
	EmailDomain string
	// SessionFile persists the session between runs. Empty keeps it in
	// memory only.
	SessionFile string
	Logger      *zerolog.Logger
	Now         func() time.Time
}

// Auth is the GoTrue session lifecycle for one user.
type Auth struct {
	client      *Client
	emailDomain string
	sessionFile string
	now         func() time.Time
	log         zerolog.Logger

	mu      sync.Mutex
	session *inventory.Session
	loaded  bool

	lmu       sync.Mutex
	listeners map[int]inventory.SessionListener
	nextID    int
}

// NewAuth builds an Auth over client's project.
func NewAuth(client *Client, opts AuthOptions) *Auth {
	a := &Auth{
		client:      client,
		emailDomain: strings.TrimPrefix(strings.TrimSpace(opts.EmailDomain), "@"),
		sessionFile: strings.TrimSpace(opts.SessionFile),
		now:         opts.Now,
		listeners:   make(map[int]inventory.SessionListener),
	}
	if a.emailDomain == "" {
		a.emailDomain = DefaultEmailDomain
	}
	if a.now == nil {
		a.now = time.Now
	}
	if opts.Logger != nil {
		a.log = opts.Logger.With().Str("component", "auth").Logger()
	} else {
		a.log = zerolog.Nop()
	}
	return a
}

// Email maps a username to its sign-in address. Full addresses pass
// through unchanged.
func (a *Auth) Email(identifier string) string {
	identifier = strings.TrimSpace(identifier)
	if strings.Contains(identifier, "@") {
		return identifier
	}
	return identifier + "@" + a.emailDomain
}

// Authenticate signs in with a password grant.
func (a *Auth) Authenticate(ctx context.Context, identifier, secret string) (*inventory.Session, error) {
	body := map[string]string{"email": a.Email(identifier), "password": secret}
	sess, err := a.token(ctx, "password", body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", inventory.ErrAuthFailed, err)
	}
	a.store(sess)
	a.notify(inventory.SignedIn, sess)
	return cloneSession(sess), nil
}

// GetSession returns the current session, loading it from disk on first
// use and refreshing it when expired. It returns nil without error when
// nobody is signed in.
func (a *Auth) GetSession(ctx context.Context) (*inventory.Session, error) {
	sess, err := a.current()
	if err != nil || sess == nil {
		return nil, err
	}
	if sess.Expired(a.now().Add(refreshSkew)) {
		if sess.RefreshToken == "" {
			return nil, nil
		}
		return a.Refresh(ctx)
	}
	return cloneSession(sess), nil
}

// Session returns the in-memory session without refreshing it.
func (a *Auth) Session() *inventory.Session {
	sess, _ := a.current()
	return cloneSession(sess)
}

// Refresh exchanges the refresh token for a new session. A rejected token
// signs the user out.
func (a *Auth) Refresh(ctx context.Context) (*inventory.Session, error) {
	cur, err := a.current()
	if err != nil {
		return nil, err
	}
	if cur == nil || cur.RefreshToken == "" {
		return nil, inventory.ErrNotAuthenticated
	}

	sess, err := a.token(ctx, "refresh_token", map[string]string{"refresh_token": cur.RefreshToken})
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500 {
			a.log.Warn().Err(err).Msg("refresh token rejected")
			a.clear()
			a.notify(inventory.SignedOut, nil)
			return nil, fmt.Errorf("%w: %w", inventory.ErrNotAuthenticated, err)
		}
		return nil, fmt.Errorf("refresh session: %w", err)
	}
	if sess.User.ID == "" {
		sess.User = cur.User
	}
	a.store(sess)
	a.notify(inventory.TokenRefreshed, sess)
	return cloneSession(sess), nil
}

// AccessToken returns the bearer token for data requests, or "" when
// signed out.
func (a *Auth) AccessToken(ctx context.Context) (string, error) {
	sess, err := a.GetSession(ctx)
	if err != nil {
		if errors.Is(err, inventory.ErrNotAuthenticated) {
			return "", nil
		}
		return "", err
	}
	if sess == nil {
		return "", nil
	}
	return sess.AccessToken, nil
}

// OnSessionChange registers listener and returns its unsubscribe func.
func (a *Auth) OnSessionChange(listener inventory.SessionListener) func() {
	a.lmu.Lock()
	defer a.lmu.Unlock()
	id := a.nextID
	a.nextID++
	a.listeners[id] = listener

	var once sync.Once
	return func() {
		once.Do(func() {
			a.lmu.Lock()
			defer a.lmu.Unlock()
			delete(a.listeners, id)
		})
	}
}

// SignOut revokes the session remotely and forgets it locally. The local
// session is dropped even when the revoke call fails.
func (a *Auth) SignOut(ctx context.Context) error {
	cur, _ := a.current()
	var remoteErr error
	if cur != nil && cur.AccessToken != "" {
		headers := http.Header{}
		headers.Set("Authorization", "Bearer "+cur.AccessToken)
		err := a.client.doURL(ctx, http.MethodPost, &url.URL{Path: "/auth/v1/logout"}, headers, nil, nil)
		var apiErr *APIError
		if err != nil && !(errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized) {
			remoteErr = fmt.Errorf("logout: %w", err)
		}
	}
	a.clear()
	a.notify(inventory.SignedOut, nil)
	return remoteErr
}

func (a *Auth) token(ctx context.Context, grant string, body map[string]string) (*inventory.Session, error) {
	q := url.Values{}
	q.Set("grant_type", grant)
	rel := &url.URL{Path: "/auth/v1/token", RawQuery: q.Encode()}

	var resp tokenResponse
	if err := a.client.doURL(ctx, http.MethodPost, rel, nil, body, &resp); err != nil {
		return nil, err
	}
	if resp.AccessToken == "" {
		return nil, errors.New("token response without access token")
	}
	return &inventory.Session{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    a.expiry(resp),
		User: inventory.User{
			ID:       resp.User.ID,
			Email:    resp.User.Email,
			Username: inventory.UsernameFromEmail(resp.User.Email),
		},
	}, nil
}

// expiry prefers the explicit expires_at, then expires_in, then the JWT's
// own exp claim.
func (a *Auth) expiry(resp tokenResponse) time.Time {
	if resp.ExpiresAt > 0 {
		return time.Unix(resp.ExpiresAt, 0)
	}
	if resp.ExpiresIn > 0 {
		return a.now().Add(time.Duration(resp.ExpiresIn) * time.Second)
	}
	exp, err := tokenExpiry(resp.AccessToken)
	if err != nil {
		a.log.Debug().Err(err).Msg("access token carries no expiry")
		return time.Time{}
	}
	return exp
}

// tokenExpiry reads the exp claim without verifying the signature; the
// client has no key to verify with and only uses the value to schedule a
// refresh.
func tokenExpiry(token string) (time.Time, error) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, fmt.Errorf("parse access token: %w", err)
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, errors.New("access token has no exp claim")
	}
	return claims.ExpiresAt.Time, nil
}

func (a *Auth) current() (*inventory.Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.loaded || a.sessionFile == "" {
		a.loaded = true
		return a.session, nil
	}
	a.loaded = true
	sess, err := readSessionFile(a.sessionFile)
	if err != nil {
		return nil, err
	}
	a.session = sess
	return a.session, nil
}

func (a *Auth) store(sess *inventory.Session) {
	a.mu.Lock()
	a.session = cloneSession(sess)
	a.loaded = true
	a.mu.Unlock()

	if a.sessionFile == "" {
		return
	}
	if err := writeSessionFile(a.sessionFile, sess); err != nil {
		a.log.Warn().Err(err).Str("path", a.sessionFile).Msg("persist session failed")
	}
}

func (a *Auth) clear() {
	a.mu.Lock()
	a.session = nil
	a.loaded = true
	a.mu.Unlock()

	if a.sessionFile == "" {
		return
	}
	if err := os.Remove(a.sessionFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		a.log.Warn().Err(err).Str("path", a.sessionFile).Msg("remove session file failed")
	}
}

func (a *Auth) notify(event inventory.SessionEvent, sess *inventory.Session) {
	a.lmu.Lock()
	listeners := make([]inventory.SessionListener, 0, len(a.listeners))
	for _, l := range a.listeners {
		listeners = append(listeners, l)
	}
	a.lmu.Unlock()

	for _, l := range listeners {
		l(event, cloneSession(sess))
	}
}

func readSessionFile(path string) (*inventory.Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read session: %w", err)
	}
	var stored storedSession
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("parse session: %w", err)
	}
	if stored.AccessToken == "" {
		return nil, nil
	}
	return stored.toDomain(), nil
}

func writeSessionFile(path string, sess *inventory.Session) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	data, err := json.MarshalIndent(fromSession(sess), "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func cloneSession(s *inventory.Session) *inventory.Session {
	if s == nil {
		return nil
	}
	dup := *s
	return &dup
}
