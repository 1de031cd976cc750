package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata"

	toml "github.com/pelletier/go-toml/v2"
)

// Backend names accepted in the config file.
const (
	BackendSupabase = "supabase"
	BackendPostgres = "postgres"
	// BackendMemory keeps everything in process, for demos.
	BackendMemory = "memory"
)

// ErrRemoteNotConfigured means no source supplied the remote URL and key.
var ErrRemoteNotConfigured = errors.New("remote store not configured: set SUPABASE_URL and SUPABASE_KEY, [remote] in the config file, or remote.config_url")

// Remote locates the hosted backend.
type Remote struct {
	URL string
	Key string
	// ConfigURL, when set, is fetched for {"url","key"} if neither the
	// environment nor the file provided them.
	ConfigURL string
}

// Log selects logger output.
type Log struct {
	Env   string
	Level string
	File  string
}

// Offline configures the asset cache used by `inventario serve`.
type Offline struct {
	Bind      string
	Origin    string
	CachePath string
}

// Config is the resolved runtime configuration.
type Config struct {
	Backend     string
	Remote      Remote
	DatabaseURL string
	Timezone    string
	Location    *time.Location
	ExportDir   string
	SessionFile string
	EmailDomain string
	Log         Log
	Offline     Offline
}

const (
	defaultConfigPath  = "~/.config/inventario/config.toml"
	defaultDataDir     = "~/.local/share/inventario"
	defaultTimezone    = "America/Bogota"
	defaultEmailDomain = "regidor.local"
	defaultOfflineBind = "127.0.0.1:8787"
	defaultLogLevel    = "info"
	defaultLogEnv      = "production"
)

type fileConfig struct {
	Backend     string `toml:"backend"`
	Timezone    string `toml:"timezone"`
	ExportDir   string `toml:"export_dir"`
	SessionFile string `toml:"session_file"`
	EmailDomain string `toml:"email_domain"`
	DatabaseURL string `toml:"database_url"`
	Remote      struct {
		URL       string `toml:"url"`
		Key       string `toml:"key"`
		ConfigURL string `toml:"config_url"`
	} `toml:"remote"`
	Log struct {
		Env   string `toml:"env"`
		Level string `toml:"level"`
		File  string `toml:"file"`
	} `toml:"log"`
	Offline struct {
		Bind      string `toml:"bind"`
		Origin    string `toml:"origin"`
		CachePath string `toml:"cache_path"`
	} `toml:"offline"`
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return defaultConfigPath
}

// Load reads the config file at path (the default location when empty),
// applies environment overrides and fills defaults. A missing file is not
// an error.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	var raw fileConfig
	file, err := os.Open(resolved)
	switch {
	case err == nil:
		defer file.Close()
		bytes, err := io.ReadAll(file)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := toml.Unmarshal(bytes, &raw); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return Config{}, fmt.Errorf("open config: %w", err)
	}

	cfg := Config{
		Backend:     strings.ToLower(firstNonEmpty(getEnv("INVENTARIO_BACKEND"), raw.Backend, BackendSupabase)),
		DatabaseURL: firstNonEmpty(getEnv("INVENTARIO_DATABASE_URL"), raw.DatabaseURL),
		Timezone:    firstNonEmpty(getEnv("INVENTARIO_TZ"), raw.Timezone, defaultTimezone),
		EmailDomain: firstNonEmpty(raw.EmailDomain, defaultEmailDomain),
		Remote: Remote{
			URL:       firstNonEmpty(getEnv("SUPABASE_URL"), raw.Remote.URL),
			Key:       firstNonEmpty(getEnv("SUPABASE_KEY"), raw.Remote.Key),
			ConfigURL: firstNonEmpty(getEnv("INVENTARIO_CONFIG_URL"), raw.Remote.ConfigURL),
		},
		Log: Log{
			Env:   firstNonEmpty(getEnv("INVENTARIO_ENV"), raw.Log.Env, defaultLogEnv),
			Level: firstNonEmpty(getEnv("INVENTARIO_LOG_LEVEL"), raw.Log.Level, defaultLogLevel),
		},
		Offline: Offline{
			Bind:   firstNonEmpty(raw.Offline.Bind, defaultOfflineBind),
			Origin: strings.TrimRight(strings.TrimSpace(raw.Offline.Origin), "/"),
		},
	}

	switch cfg.Backend {
	case BackendSupabase, BackendPostgres, BackendMemory:
	default:
		return Config{}, fmt.Errorf("parse config: unknown backend %q", cfg.Backend)
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return Config{}, fmt.Errorf("load timezone %q: %w", cfg.Timezone, err)
	}
	cfg.Location = loc

	if cfg.ExportDir, err = expandOr(raw.ExportDir, "."); err != nil {
		return Config{}, err
	}
	if cfg.SessionFile, err = expandOr(raw.SessionFile, defaultDataDir+"/session.json"); err != nil {
		return Config{}, err
	}
	if cfg.Offline.CachePath, err = expandOr(raw.Offline.CachePath, defaultDataDir+"/offline.db"); err != nil {
		return Config{}, err
	}
	if file := firstNonEmpty(getEnv("INVENTARIO_LOG_FILE"), raw.Log.File); file != "" {
		if cfg.Log.File, err = expandPath(file); err != nil {
			return Config{}, err
		}
	}

	return cfg, nil
}

// DefaultLogPath is where the terminal UI logs when no file is configured.
func DefaultLogPath() string {
	return mustExpand(defaultDataDir + "/inventario.log")
}

// ResolveRemote fills Remote.URL and Remote.Key from Remote.ConfigURL when
// they are still empty. Values already set are never replaced.
func (c *Config) ResolveRemote(ctx context.Context, client *http.Client) error {
	if c.Remote.URL != "" && c.Remote.Key != "" {
		return nil
	}
	if c.Remote.ConfigURL == "" {
		return ErrRemoteNotConfigured
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Remote.ConfigURL, nil)
	if err != nil {
		return fmt.Errorf("build config request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch remote config: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch remote config: status %d", resp.StatusCode)
	}

	var payload struct {
		URL string `json:"url"`
		Key string `json:"key"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return fmt.Errorf("decode remote config: %w", err)
	}
	c.Remote.URL = firstNonEmpty(c.Remote.URL, payload.URL)
	c.Remote.Key = firstNonEmpty(c.Remote.Key, payload.Key)
	if c.Remote.URL == "" || c.Remote.Key == "" {
		return ErrRemoteNotConfigured
	}
	return nil
}

func getEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

func expandOr(value, fallback string) (string, error) {
	if strings.TrimSpace(value) == "" {
		value = fallback
	}
	return expandPath(value)
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
