package appconfig

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.yaml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	defaults, err := DefaultConfig()
	if err != nil {
		t.Fatalf("default config: %v", err)
	}
	if cfg.Profile.Backend != defaults.Profile.Backend || cfg.HTTP.Addr != defaults.HTTP.Addr {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
	if len(cfg.Shield.Lists) != len(defaults.Shield.Lists) {
		t.Fatalf("expected default shield lists, got %v", cfg.Shield.Lists)
	}
}

func TestLoadOverridesAndDefaults(t *testing.T) {
	path := writeConfig(t, `
config_version: 1
profile:
  backend: sqlite
  history_max: 50
browser:
  headless: false
shield:
  lists: []
http:
  addr: 127.0.0.1:9999
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Profile.Backend != "sqlite" || cfg.Profile.HistoryMax != 50 {
		t.Fatalf("unexpected profile config %+v", cfg.Profile)
	}
	if cfg.Browser.Headless {
		t.Fatalf("expected headless override")
	}
	if cfg.Browser.DefaultURL != "https://ayen.in" {
		t.Fatalf("expected default url to survive, got %q", cfg.Browser.DefaultURL)
	}
	if cfg.HTTP.Addr != "127.0.0.1:9999" {
		t.Fatalf("unexpected addr %q", cfg.HTTP.Addr)
	}
	if len(cfg.Shield.Lists) != 0 {
		t.Fatalf("expected empty shield lists, got %v", cfg.Shield.Lists)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
config_version: 1
http:
  addr: 127.0.0.1:9999
`)
	t.Setenv("AYEN_HTTP_ADDR", "127.0.0.1:7000")
	t.Setenv("AYEN_PROFILE_BACKEND", "memory")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTP.Addr != "127.0.0.1:7000" || cfg.Profile.Backend != "memory" {
		t.Fatalf("expected env overrides, got %q %q", cfg.HTTP.Addr, cfg.Profile.Backend)
	}
}

func TestLoadRejectsUnsupportedConfigVersion(t *testing.T) {
	path := writeConfig(t, `
config_version: 7
`)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "unsupported config_version") {
		t.Fatalf("expected config_version error, got %v", err)
	}
}

func TestLoadRequiresConfigVersion(t *testing.T) {
	path := writeConfig(t, `
http:
  addr: 127.0.0.1:1
`)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "config_version is required") {
		t.Fatalf("expected config_version required error, got %v", err)
	}
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	path := writeConfig(t, `
config_version: 1
profile:
  backend: postgres
`)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "profile.backend") {
		t.Fatalf("expected backend error, got %v", err)
	}
}

func TestLoadRejectsInvalidBasePath(t *testing.T) {
	path := writeConfig(t, `
config_version: 1
http:
  base_path: https://example.com/ayen
`)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "http.base_path") {
		t.Fatalf("expected base_path error, got %v", err)
	}
}

func TestLoadExpandsPaths(t *testing.T) {
	t.Setenv("AYEN_TEST_ROOT", "/srv/ayen")
	path := writeConfig(t, `
config_version: 1
profile:
  dir: $AYEN_TEST_ROOT/profile
browser:
  download_dir: ${AYEN_TEST_ROOT}/downloads
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Profile.Dir != "/srv/ayen/profile" || cfg.Browser.DownloadDir != "/srv/ayen/downloads" {
		t.Fatalf("expected expanded paths, got %q and %q", cfg.Profile.Dir, cfg.Browser.DownloadDir)
	}
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("FOO", "bar")
	value := expandEnv("$FOO/$UID/$GID/$MISSING")
	if !strings.HasPrefix(value, "bar/") {
		t.Fatalf("expected env expansion, got %q", value)
	}
	if strings.Contains(value, "$UID") || strings.Contains(value, "$GID") {
		t.Fatalf("expected UID/GID expansion, got %q", value)
	}
	if !strings.HasSuffix(value, "/$MISSING") {
		t.Fatalf("expected missing vars to remain, got %q", value)
	}
}

func TestWriteDefaultRespectsOverwrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	written, err := WriteDefault(path, false)
	if err != nil {
		t.Fatalf("write default: %v", err)
	}
	if written != path {
		t.Fatalf("expected path %q, got %q", path, written)
	}
	if _, err := Load(path); err != nil {
		t.Fatalf("expected written default to load: %v", err)
	}
	if _, err := WriteDefault(path, false); err == nil {
		t.Fatalf("expected error when config exists")
	}
	if _, err := WriteDefault(path, true); err != nil {
		t.Fatalf("expected overwrite to succeed: %v", err)
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(strings.TrimSpace(content)+"\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
