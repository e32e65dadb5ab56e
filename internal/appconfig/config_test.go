package appconfig

import "testing"

func TestDefaultConfigHeadlessJSONProfile(t *testing.T) {
	cfg, err := DefaultConfig()
	if err != nil {
		t.Fatalf("default config: %v", err)
	}
	if !cfg.Browser.Headless {
		t.Fatalf("expected headless to default true")
	}
	if cfg.Profile.Backend != "json" {
		t.Fatalf("expected json profile backend, got %q", cfg.Profile.Backend)
	}
}
