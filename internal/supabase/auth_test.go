package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/regidor/inventario/internal/inventory"
)

type goTrue struct {
	mu            sync.Mutex
	password      string
	expiresIn     int64
	rejectRefresh bool
	logouts       int
	lastEmail     string
	refreshes     int
}

func (g *goTrue) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g.mu.Lock()
		defer g.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")

		switch r.URL.Path {
		case "/auth/v1/token":
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			switch r.URL.Query().Get("grant_type") {
			case "password":
				g.lastEmail = body["email"]
				if body["password"] != g.password {
					w.WriteHeader(http.StatusBadRequest)
					_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid login credentials"}`))
					return
				}
				g.writeToken(t, w, "access-1")
			case "refresh_token":
				g.refreshes++
				if g.rejectRefresh || body["refresh_token"] == "" {
					w.WriteHeader(http.StatusBadRequest)
					_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid Refresh Token: Already Used"}`))
					return
				}
				g.writeToken(t, w, "access-2")
			default:
				w.WriteHeader(http.StatusBadRequest)
			}
		case "/auth/v1/logout":
			g.logouts++
			w.WriteHeader(http.StatusNoContent)
		default:
			http.NotFound(w, r)
		}
	}
}

func (g *goTrue) writeToken(t *testing.T, w http.ResponseWriter, access string) {
	t.Helper()
	_ = json.NewEncoder(w).Encode(map[string]any{
		"access_token":  access,
		"refresh_token": "refresh-" + access,
		"token_type":    "bearer",
		"expires_in":    g.expiresIn,
		"user":          map[string]string{"id": "u1", "email": g.lastEmailOr("obra1@regidor.local")},
	})
}

func (g *goTrue) lastEmailOr(def string) string {
	if g.lastEmail == "" {
		return def
	}
	return g.lastEmail
}

func newTestAuth(t *testing.T, g *goTrue, sessionFile string, now func() time.Time) *Auth {
	t.Helper()
	server := httptest.NewServer(g.handler(t))
	t.Cleanup(server.Close)
	c, err := NewClient(server.URL, "anon")
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	return NewAuth(c, AuthOptions{SessionFile: sessionFile, Now: now})
}

func TestAuth_AuthenticateMapsUsernameAndPersists(t *testing.T) {
	g := &goTrue{password: "secreto", expiresIn: 3600}
	path := filepath.Join(t.TempDir(), "auth", "session.json")
	now := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	a := newTestAuth(t, g, path, func() time.Time { return now })

	var events []inventory.SessionEvent
	unsubscribe := a.OnSessionChange(func(ev inventory.SessionEvent, _ *inventory.Session) {
		events = append(events, ev)
	})
	defer unsubscribe()

	sess, err := a.Authenticate(context.Background(), "obra1", "secreto")
	if err != nil {
		t.Fatalf("Authenticate returned error: %v", err)
	}
	if g.lastEmail != "obra1@regidor.local" {
		t.Fatalf("email sent = %q", g.lastEmail)
	}
	if sess.User.Username != "obra1" || sess.AccessToken != "access-1" {
		t.Fatalf("session = %+v", sess)
	}
	if !sess.ExpiresAt.Equal(now.Add(time.Hour)) {
		t.Fatalf("ExpiresAt = %v", sess.ExpiresAt)
	}
	if len(events) != 1 || events[0] != inventory.SignedIn {
		t.Fatalf("events = %v", events)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("session file not written: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("session file mode = %v, want 0600", info.Mode().Perm())
	}

	// A fresh Auth picks the session up from disk.
	b := newTestAuth(t, g, path, func() time.Time { return now })
	restored, err := b.GetSession(context.Background())
	if err != nil || restored == nil {
		t.Fatalf("GetSession = %v, %v", restored, err)
	}
	if restored.User.ID != "u1" || restored.AccessToken != "access-1" {
		t.Fatalf("restored session = %+v", restored)
	}
}

func TestAuth_WrongPasswordIsAuthFailed(t *testing.T) {
	a := newTestAuth(t, &goTrue{password: "secreto"}, "", nil)
	_, err := a.Authenticate(context.Background(), "obra1", "mala")
	if !errors.Is(err, inventory.ErrAuthFailed) {
		t.Fatalf("error = %v, want ErrAuthFailed", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Message != "Invalid login credentials" {
		t.Fatalf("error = %v, want wrapped APIError", err)
	}
	if sess, _ := a.GetSession(context.Background()); sess != nil {
		t.Fatalf("session after failed login = %+v", sess)
	}
}

func TestAuth_GetSessionRefreshesExpired(t *testing.T) {
	g := &goTrue{password: "secreto", expiresIn: 60}
	now := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	clock := &now
	a := newTestAuth(t, g, "", func() time.Time { return *clock })

	var events []inventory.SessionEvent
	a.OnSessionChange(func(ev inventory.SessionEvent, _ *inventory.Session) { events = append(events, ev) })

	if _, err := a.Authenticate(context.Background(), "obra1", "secreto"); err != nil {
		t.Fatalf("Authenticate returned error: %v", err)
	}
	later := now.Add(2 * time.Minute)
	clock = &later

	token, err := a.AccessToken(context.Background())
	if err != nil {
		t.Fatalf("AccessToken returned error: %v", err)
	}
	if token != "access-2" || g.refreshes != 1 {
		t.Fatalf("token = %q refreshes = %d, want refreshed token", token, g.refreshes)
	}
	if len(events) != 2 || events[1] != inventory.TokenRefreshed {
		t.Fatalf("events = %v", events)
	}
}

func TestAuth_RejectedRefreshSignsOut(t *testing.T) {
	g := &goTrue{password: "secreto", expiresIn: 60}
	a := newTestAuth(t, g, "", nil)
	if _, err := a.Authenticate(context.Background(), "obra1", "secreto"); err != nil {
		t.Fatalf("Authenticate returned error: %v", err)
	}
	g.mu.Lock()
	g.rejectRefresh = true
	g.mu.Unlock()

	var signedOut bool
	a.OnSessionChange(func(ev inventory.SessionEvent, s *inventory.Session) {
		if ev == inventory.SignedOut && s == nil {
			signedOut = true
		}
	})

	_, err := a.Refresh(context.Background())
	if !errors.Is(err, inventory.ErrNotAuthenticated) {
		t.Fatalf("Refresh error = %v, want ErrNotAuthenticated", err)
	}
	if !signedOut || a.Session() != nil {
		t.Fatalf("rejected refresh should sign out")
	}
}

func TestAuth_SignOutClearsEvenLocally(t *testing.T) {
	g := &goTrue{password: "secreto", expiresIn: 3600}
	path := filepath.Join(t.TempDir(), "session.json")
	a := newTestAuth(t, g, path, nil)
	if _, err := a.Authenticate(context.Background(), "obra1", "secreto"); err != nil {
		t.Fatalf("Authenticate returned error: %v", err)
	}

	if err := a.SignOut(context.Background()); err != nil {
		t.Fatalf("SignOut returned error: %v", err)
	}
	if g.logouts != 1 {
		t.Fatalf("logouts = %d, want 1", g.logouts)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("session file still present: %v", err)
	}
	if sess, _ := a.GetSession(context.Background()); sess != nil {
		t.Fatalf("session after sign out = %+v", sess)
	}
}

func TestAuth_UnsubscribeStopsNotifications(t *testing.T) {
	a := newTestAuth(t, &goTrue{password: "p", expiresIn: 3600}, "", nil)
	calls := 0
	unsubscribe := a.OnSessionChange(func(inventory.SessionEvent, *inventory.Session) { calls++ })
	unsubscribe()
	unsubscribe()
	if _, err := a.Authenticate(context.Background(), "x", "p"); err != nil {
		t.Fatalf("Authenticate returned error: %v", err)
	}
	if calls != 0 {
		t.Fatalf("listener called %d times after unsubscribe", calls)
	}
}

func TestAuth_EmailMapping(t *testing.T) {
	a := NewAuth(nil, AuthOptions{EmailDomain: "@obra.test"})
	if got := a.Email(" capataz "); got != "capataz@obra.test" {
		t.Fatalf("Email = %q", got)
	}
	if got := a.Email("jefe@empresa.com"); got != "jefe@empresa.com" {
		t.Fatalf("Email = %q", got)
	}
	if got := NewAuth(nil, AuthOptions{}).Email("obra1"); got != "obra1@regidor.local" {
		t.Fatalf("default domain Email = %q", got)
	}
}

func TestTokenExpiry_ReadsExpClaim(t *testing.T) {
	exp := time.Date(2030, 5, 1, 0, 0, 0, 0, time.UTC)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "u1",
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("unknown-to-the-client"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	got, err := tokenExpiry(token)
	if err != nil {
		t.Fatalf("tokenExpiry returned error: %v", err)
	}
	if !got.Equal(exp) {
		t.Fatalf("tokenExpiry = %v, want %v", got, exp)
	}

	if _, err := tokenExpiry("not-a-jwt"); err == nil {
		t.Fatalf("tokenExpiry accepted garbage")
	}
}

func TestAuth_ExpiryFallsBackToJWT(t *testing.T) {
	exp := time.Date(2030, 5, 1, 0, 0, 0, 0, time.UTC)
	token, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(exp)}).SignedString([]byte("k"))

	a := NewAuth(nil, AuthOptions{})
	if got := a.expiry(tokenResponse{AccessToken: token}); !got.Equal(exp) {
		t.Fatalf("expiry = %v, want %v", got, exp)
	}
	if got := a.expiry(tokenResponse{AccessToken: token, ExpiresAt: 1700000000}); !got.Equal(time.Unix(1700000000, 0)) {
		t.Fatalf("explicit expires_at ignored: %v", got)
	}
}
