package offline

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openCache(t *testing.T, path, name string) *Cache {
	t.Helper()
	c, err := Open(path, name)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestCache_PutMatchAndActivate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "offline.db")
	ctx := context.Background()

	old := openCache(t, path, "inventario-regidor-v0.9.0")
	require.NoError(t, old.Put(ctx, "http://app/app.js", Entry{Status: 200, Body: []byte("old")}))
	require.NoError(t, old.Close())

	c := openCache(t, path, "")
	assert.Equal(t, CacheName, c.Name())

	_, ok, err := c.Match(ctx, "http://app/app.js")
	require.NoError(t, err)
	assert.False(t, ok, "caches are isolated by name")

	header := http.Header{"Content-Type": []string{"text/javascript"}}
	require.NoError(t, c.Put(ctx, "http://app/app.js", Entry{Status: 200, Header: header, Body: []byte("v1")}))
	require.NoError(t, c.Put(ctx, "http://app/app.js", Entry{Status: 200, Header: header, Body: []byte("v2")}))

	e, ok, err := c.Match(ctx, "http://app/app.js")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v2", string(e.Body))
	assert.Equal(t, "text/javascript", e.Header.Get("Content-Type"))
	assert.False(t, e.StoredAt.IsZero())

	removed, err := c.DeleteOthers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"inventario-regidor-v0.9.0"}, removed)

	names, err := c.Names(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{CacheName}, names)
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open(" ", "")
	require.Error(t, err)
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

var errOffline = errors.New("dial tcp: network is unreachable")

// switchable forwards to the upstream until down is set.
func switchable(down *atomic.Bool, hits *atomic.Int32) http.RoundTripper {
	return roundTripFunc(func(r *http.Request) (*http.Response, error) {
		hits.Add(1)
		if down.Load() {
			return nil, errOffline
		}
		return http.DefaultTransport.RoundTrip(r)
	})
}

func newUpstream(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/", "/index.html":
			w.Header().Set("Content-Type", "text/html")
			_, _ = io.WriteString(w, "<html>inventario</html>")
		case "/app.js":
			w.Header().Set("Content-Type", "text/javascript")
			_, _ = io.WriteString(w, "console.log('ok')")
		case ConfigPath:
			_, _ = io.WriteString(w, `{"url":"x","key":"y"}`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func get(t *testing.T, client *http.Client, url string, navigate bool) (*http.Response, string, error) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	if navigate {
		req.Header.Set("Sec-Fetch-Mode", "navigate")
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body), nil
}

func TestTransport_NetworkFirstWithFallback(t *testing.T) {
	upstream := newUpstream(t)
	cache := openCache(t, filepath.Join(t.TempDir(), "offline.db"), "")

	var down atomic.Bool
	var hits atomic.Int32
	tr := NewTransport(cache, upstream.URL, "abc.supabase.co", zerolog.Nop())
	tr.Base = switchable(&down, &hits)
	client := &http.Client{Transport: tr}

	resp, body, err := get(t, client, upstream.URL+"/app.js", false)
	require.NoError(t, err)
	assert.Equal(t, "console.log('ok')", body)
	assert.Empty(t, resp.Header.Get(CacheHeader))

	_, _, err = get(t, client, upstream.URL+"/missing", false)
	require.NoError(t, err)

	down.Store(true)

	resp, body, err = get(t, client, upstream.URL+"/app.js", false)
	require.NoError(t, err)
	assert.Equal(t, "console.log('ok')", body)
	assert.Equal(t, "hit", resp.Header.Get(CacheHeader))
	assert.Equal(t, "text/javascript", resp.Header.Get("Content-Type"))

	_, _, err = get(t, client, upstream.URL+"/missing", false)
	assert.Error(t, err, "404 responses are not stored")

	_, _, err = get(t, client, upstream.URL+"/materiales/editar", true)
	assert.Error(t, err, "no root document cached yet")

	down.Store(false)
	_, _, err = get(t, client, upstream.URL+"/index.html", false)
	require.NoError(t, err)
	down.Store(true)

	_, body, err = get(t, client, upstream.URL+"/materiales/editar", true)
	require.NoError(t, err)
	assert.Equal(t, "<html>inventario</html>", body)
}

func TestTransport_WritesNeverFallBackToCache(t *testing.T) {
	upstream := newUpstream(t)
	cache := openCache(t, filepath.Join(t.TempDir(), "offline.db"), "")

	var down atomic.Bool
	var hits atomic.Int32
	tr := NewTransport(cache, upstream.URL, "abc.supabase.co", zerolog.Nop())
	tr.Base = switchable(&down, &hits)
	client := &http.Client{Transport: tr}

	for _, path := range []string{"/app.js", "/index.html"} {
		_, _, err := get(t, client, upstream.URL+path, false)
		require.NoError(t, err)
	}
	down.Store(true)

	for _, method := range []string{http.MethodPost, http.MethodPatch, http.MethodDelete} {
		req, err := http.NewRequest(method, upstream.URL+"/app.js", nil)
		require.NoError(t, err)
		req.Header.Set("Sec-Fetch-Mode", "navigate")
		resp, err := client.Do(req)
		if resp != nil {
			_ = resp.Body.Close()
		}
		assert.ErrorIs(t, err, errOffline, method)
	}

	_, body, err := get(t, client, upstream.URL+"/app.js", false)
	require.NoError(t, err)
	assert.Equal(t, "console.log('ok')", body, "reads still fall back")
}

func TestTransport_BypassNeverCaches(t *testing.T) {
	upstream := newUpstream(t)
	cache := openCache(t, filepath.Join(t.TempDir(), "offline.db"), "")

	var down atomic.Bool
	var hits atomic.Int32
	tr := NewTransport(cache, upstream.URL, "127.0.0.1", zerolog.Nop())
	tr.Base = switchable(&down, &hits)
	client := &http.Client{Transport: tr}

	_, _, err := get(t, client, upstream.URL+"/app.js", false)
	require.NoError(t, err)

	names, err := cache.Names(context.Background())
	require.NoError(t, err)
	assert.Empty(t, names, "remote host traffic must not be stored")

	tr.Bypass = []string{ConfigPath}
	_, _, err = get(t, client, upstream.URL+ConfigPath, false)
	require.NoError(t, err)
	down.Store(true)
	_, _, err = get(t, client, upstream.URL+ConfigPath, false)
	assert.ErrorIs(t, err, errOffline)
}

func TestTransport_InstallAndActivate(t *testing.T) {
	upstream := newUpstream(t)
	path := filepath.Join(t.TempDir(), "offline.db")
	ctx := context.Background()

	stale := openCache(t, path, "inventario-regidor-v0.1.0")
	require.NoError(t, stale.Put(ctx, "x", Entry{Status: 200}))

	cache := openCache(t, path, "")
	tr := NewTransport(cache, upstream.URL, "", zerolog.Nop())

	err := tr.Install(ctx, []string{"/", "/app.js", "/style.css"})
	require.Error(t, err, "missing asset should be reported")

	e, ok, err := cache.Match(ctx, upstream.URL+"/app.js")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "console.log('ok')", string(e.Body))
	_, ok, err = cache.Match(ctx, upstream.URL+"/")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, tr.Activate(ctx))
	names, err := cache.Names(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{CacheName}, names)
}

func TestIsNavigation(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	assert.True(t, IsNavigation(req))

	req.Header.Set("Sec-Fetch-Mode", "cors")
	assert.False(t, IsNavigation(req))

	post := httptest.NewRequest(http.MethodPost, "/", nil)
	post.Header.Set("Sec-Fetch-Mode", "navigate")
	assert.False(t, IsNavigation(post))
}

func TestServer_ConfigAndProxy(t *testing.T) {
	upstream := newUpstream(t)
	cache := openCache(t, filepath.Join(t.TempDir(), "offline.db"), "")

	var down atomic.Bool
	var hits atomic.Int32
	tr := NewTransport(cache, upstream.URL, "abc.supabase.co", zerolog.Nop())
	tr.Base = switchable(&down, &hits)

	s, err := NewServer(RemoteConfig{URL: "https://abc.supabase.co", Key: "anon"}, tr, zerolog.Nop())
	require.NoError(t, err)

	resp, err := s.App().Test(httptest.NewRequest(http.MethodGet, ConfigPath, nil), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var cfg RemoteConfig
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&cfg))
	assert.Equal(t, RemoteConfig{URL: "https://abc.supabase.co", Key: "anon"}, cfg)
	assert.Equal(t, int32(0), hits.Load(), "config is answered locally")

	resp, err = s.App().Test(httptest.NewRequest(http.MethodGet, "/app.js", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	down.Store(true)
	resp, err = s.App().Test(httptest.NewRequest(http.MethodGet, "/app.js", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "hit", resp.Header.Get(CacheHeader))
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "console.log('ok')", string(body))

	resp, err = s.App().Test(httptest.NewRequest(http.MethodGet, "/nunca.css", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestServer_ConfigUnavailable(t *testing.T) {
	tr := NewTransport(nil, "http://127.0.0.1:1", "", zerolog.Nop())
	s, err := NewServer(RemoteConfig{}, tr, zerolog.Nop())
	require.NoError(t, err)

	resp, err := s.App().Test(httptest.NewRequest(http.MethodGet, ConfigPath, nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	_, err = NewServer(RemoteConfig{}, &Transport{}, zerolog.Nop())
	assert.Error(t, err)
}
