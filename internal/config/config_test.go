package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"clipdeck/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("XDG_STATE_HOME", "")
	t.Setenv("CLIPDECK_API_URL", "")
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantState := filepath.Join(tempHome, ".local", "state", "clipdeck")
	if cfg.Paths.StateDir != wantState {
		t.Fatalf("unexpected state dir: got %q want %q", cfg.Paths.StateDir, wantState)
	}
	if cfg.API.BaseURL != "http://localhost:8000" {
		t.Fatalf("unexpected base url: %q", cfg.API.BaseURL)
	}
	if cfg.PollInterval() != 5*time.Second {
		t.Fatalf("unexpected poll interval: %s", cfg.PollInterval())
	}
	if cfg.State.Backend != config.BackendSQLite {
		t.Fatalf("unexpected state backend: %q", cfg.State.Backend)
	}
	if cfg.StatePath() != filepath.Join(wantState, "state.db") {
		t.Fatalf("unexpected state path: %q", cfg.StatePath())
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.StateDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
	stateInfo, err := os.Stat(cfg.Paths.StateDir)
	if err != nil {
		t.Fatalf("stat state dir: %v", err)
	}
	if perm := stateInfo.Mode().Perm(); perm != 0o700 {
		t.Fatalf("expected owner-only state dir, got %o", perm)
	}
}

func TestLoadCustomPath(t *testing.T) {
	t.Setenv("CLIPDECK_API_URL", "")
	t.Chdir(t.TempDir())
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "clipdeck.toml")

	type payload struct {
		API struct {
			BaseURL string `toml:"base_url"`
		} `toml:"api"`
		State struct {
			Backend string `toml:"backend"`
		} `toml:"state"`
		Polling struct {
			IntervalSeconds int `toml:"interval_seconds"`
		} `toml:"polling"`
	}
	custom := payload{}
	custom.API.BaseURL = "https://render.example.com/"
	custom.State.Backend = "FILE"
	custom.Polling.IntervalSeconds = 9
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.API.BaseURL != "https://render.example.com" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.API.BaseURL)
	}
	if cfg.State.Backend != config.BackendFile {
		t.Fatalf("expected file backend, got %q", cfg.State.Backend)
	}
	if !strings.HasSuffix(cfg.StatePath(), "state.json") {
		t.Fatalf("expected json state path, got %q", cfg.StatePath())
	}
	if cfg.Polling.IntervalSeconds != 9 {
		t.Fatalf("expected interval override, got %d", cfg.Polling.IntervalSeconds)
	}
}

func TestLoadHonoursEnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CLIPDECK_API_URL", "https://env.example.com")
	t.Setenv("CLIPDECK_NTFY_TOPIC", "https://ntfy.sh/renders")

	cfg, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.API.BaseURL != "https://env.example.com" {
		t.Fatalf("expected env base url, got %q", cfg.API.BaseURL)
	}
	if cfg.Notifications.NtfyTopic != "https://ntfy.sh/renders" {
		t.Fatalf("expected env ntfy topic, got %q", cfg.Notifications.NtfyTopic)
	}
}

func TestLoadReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("CLIPDECK_API_URL", "")
	if err := os.Unsetenv("CLIPDECK_API_URL"); err != nil {
		t.Fatalf("unset env: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("CLIPDECK_API_URL=https://dotenv.example.com\n"), 0o644); err != nil {
		t.Fatalf("write .env: %v", err)
	}

	cfg, _, _, err := config.Load(filepath.Join(dir, "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.API.BaseURL != "https://dotenv.example.com" {
		t.Fatalf("expected .env base url, got %q", cfg.API.BaseURL)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{
			name:   "scheme",
			mutate: func(c *config.Config) { c.API.BaseURL = "ftp://example.com" },
			want:   "api.base_url",
		},
		{
			name:   "backend",
			mutate: func(c *config.Config) { c.State.Backend = "redis" },
			want:   "state.backend",
		},
		{
			name:   "ntfy",
			mutate: func(c *config.Config) { c.Notifications.NtfyTopic = "my-topic" },
			want:   "notifications.ntfy_topic",
		},
		{
			name:   "interval",
			mutate: func(c *config.Config) { c.Polling.IntervalSeconds = 0 },
			want:   "polling.interval_seconds",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestCreateSampleIsLoadable(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CLIPDECK_API_URL", "")
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("load sample: %v", err)
	}
	if !exists {
		t.Fatal("expected sample file to exist")
	}
	if cfg.Polling.IntervalSeconds != 5 {
		t.Fatalf("unexpected sample interval: %d", cfg.Polling.IntervalSeconds)
	}
}
