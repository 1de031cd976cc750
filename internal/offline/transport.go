package offline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// ConfigPath is the runtime configuration endpoint. It is never cached.
const ConfigPath = "/api/config"

// CacheHeader marks responses served from the cache.
const CacheHeader = "X-Inventario-Cache"

// DefaultAssets are precached on Install. Relative entries resolve against
// the Transport's Origin.
var DefaultAssets = []string{
	"/",
	"/index.html",
	"/app.js",
	"/style.css",
	"/manifest.json",
	"https://cdnjs.cloudflare.com/ajax/libs/font-awesome/6.4.0/css/all.min.css",
	"https://cdn.jsdelivr.net/npm/flatpickr/dist/flatpickr.min.css",
	"https://fonts.googleapis.com/css2?family=Outfit:wght@300;400;500;600;700;800&display=swap",
}

// Transport is a network-first http.RoundTripper. Successful GET responses
// are stored; when the network fails the stored copy is served, and
// navigation requests with no stored copy get the root document.
//
// Requests whose URL contains a Bypass substring go straight to the network
// with no caching and no fallback.
type Transport struct {
	Base   http.RoundTripper
	Cache  *Cache
	Origin string
	Bypass []string
	Root   string
	Logger zerolog.Logger
}

// NewTransport builds a Transport that bypasses remoteHost and ConfigPath.
func NewTransport(cache *Cache, origin, remoteHost string, logger zerolog.Logger) *Transport {
	bypass := []string{ConfigPath}
	if host := strings.TrimSpace(remoteHost); host != "" {
		bypass = append(bypass, host)
	}
	return &Transport{
		Cache:  cache,
		Origin: strings.TrimRight(origin, "/"),
		Bypass: bypass,
		Root:   "/index.html",
		Logger: logger.With().Str("component", "offline").Logger(),
	}
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.bypassed(req.URL.String()) || t.Cache == nil {
		return t.base().RoundTrip(req)
	}

	resp, netErr := t.base().RoundTrip(req)
	if netErr == nil {
		if req.Method == http.MethodGet && resp.StatusCode == http.StatusOK {
			if err := t.store(req.Context(), req.URL.String(), resp); err != nil {
				t.Logger.Warn().Err(err).Str("url", req.URL.String()).Msg("cache put failed")
			}
		}
		return resp, nil
	}

	ctx := req.Context()
	if ctx.Err() != nil || req.Method != http.MethodGet {
		return nil, netErr
	}
	if resp, ok := t.fromCache(ctx, req, req.URL.String()); ok {
		t.Logger.Info().Str("url", req.URL.String()).Msg("serving from cache")
		return resp, nil
	}
	if IsNavigation(req) && t.Root != "" {
		if resp, ok := t.fromCache(ctx, req, t.resolve(t.Root)); ok {
			return resp, nil
		}
	}
	return nil, netErr
}

// Install precaches assets. Every asset is attempted; failures are logged
// and returned joined.
func (t *Transport) Install(ctx context.Context, assets []string) error {
	if t.Cache == nil {
		return errors.New("offline: no cache configured")
	}
	var errs []error
	for _, asset := range assets {
		target := t.resolve(asset)
		if err := t.precache(ctx, target); err != nil {
			t.Logger.Error().Err(err).Str("url", target).Msg("precache failed")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Activate drops caches left by earlier versions.
func (t *Transport) Activate(ctx context.Context) error {
	if t.Cache == nil {
		return nil
	}
	removed, err := t.Cache.DeleteOthers(ctx)
	for _, name := range removed {
		t.Logger.Info().Str("cache", name).Msg("removed stale cache")
	}
	return err
}

func (t *Transport) precache(ctx context.Context, target string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := t.base().RoundTrip(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", target, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("fetch %s: status %d", target, resp.StatusCode)
	}
	return t.store(ctx, target, resp)
}

// store buffers the body into the cache and rewinds resp.Body for the caller.
func (t *Transport) store(ctx context.Context, key string, resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	return t.Cache.Put(ctx, key, Entry{Status: resp.StatusCode, Header: resp.Header.Clone(), Body: body})
}

func (t *Transport) fromCache(ctx context.Context, req *http.Request, key string) (*http.Response, bool) {
	entry, ok, err := t.Cache.Match(ctx, key)
	if err != nil {
		t.Logger.Warn().Err(err).Str("url", key).Msg("cache match failed")
		return nil, false
	}
	if !ok {
		return nil, false
	}
	header := entry.Header.Clone()
	if header == nil {
		header = http.Header{}
	}
	header.Set(CacheHeader, "hit")
	header.Set("Content-Length", strconv.Itoa(len(entry.Body)))
	return &http.Response{
		Status:        fmt.Sprintf("%d %s", entry.Status, http.StatusText(entry.Status)),
		StatusCode:    entry.Status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(entry.Body)),
		ContentLength: int64(len(entry.Body)),
		Request:       req,
	}, true
}

func (t *Transport) bypassed(rawURL string) bool {
	for _, s := range t.Bypass {
		if s != "" && strings.Contains(rawURL, s) {
			return true
		}
	}
	return false
}

func (t *Transport) resolve(ref string) string {
	if t.Origin == "" {
		return ref
	}
	u, err := url.Parse(ref)
	if err != nil || u.IsAbs() {
		return ref
	}
	base, err := url.Parse(t.Origin + "/")
	if err != nil {
		return ref
	}
	return base.ResolveReference(u).String()
}

// IsNavigation reports whether req loads a document rather than a
// subresource.
func IsNavigation(req *http.Request) bool {
	if req.Method != http.MethodGet {
		return false
	}
	if mode := req.Header.Get("Sec-Fetch-Mode"); mode != "" {
		return mode == "navigate"
	}
	return strings.Contains(req.Header.Get("Accept"), "text/html")
}
