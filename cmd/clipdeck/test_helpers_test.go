package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"clipdeck/internal/config"
	"clipdeck/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	fake       *testsupport.FakeService
	configPath string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	t.Setenv("CLIPDECK_API_URL", "")
	t.Setenv("CLIPDECK_NTFY_TOPIC", "")
	t.Setenv("CLIPDECK_PASSWORD", "")
	t.Chdir(base)

	fake := testsupport.NewFakeService(t)
	cfg := testsupport.NewConfig(t, testsupport.WithBaseURL(fake.URL()))

	configPath := filepath.Join(homeDir, ".config", "clipdeck", "config.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{cfg: cfg, fake: fake, configPath: configPath}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func (env *cliTestEnv) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	flags := []string{"--config", env.configPath}
	err := execute(context.Background(), append(flags, args...), &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func (env *cliTestEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, stderr, err := env.run(t, args...)
	if err != nil {
		t.Fatalf("clipdeck %s: %v (stderr: %s)", strings.Join(args, " "), err, stderr)
	}
	return out
}

func (env *cliTestEnv) login(t *testing.T, username, password string) {
	t.Helper()
	env.fake.AddUser(username, password)
	out := env.mustRun(t, "login", "--username", username, "--password", password)
	requireContains(t, out, "Logged in as "+username)
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected output to contain %q\nfull output:\n%s", substr, output)
	}
}

func requireNotContains(t *testing.T, output, substr string) {
	t.Helper()
	if strings.Contains(output, substr) {
		t.Fatalf("expected output not to contain %q\nfull output:\n%s", substr, output)
	}
}
