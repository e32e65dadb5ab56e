package schema

import (
	"errors"
	"testing"
)

func TestValidateWindowID(t *testing.T) {
	cases := []struct {
		name   string
		window WindowID
		valid  bool
	}{
		{"main", MainWindowID, true},
		{"with-dots", "incognito.1", true},
		{"with-underscore", "win_2", true},
		{"with-dash", "win-2", true},
		{"empty", "", false},
		{"uppercase", "Main", false},
		{"space", "main window", false},
		{"leading-space", " main", false},
		{"trailing-space", "main ", false},
		{"symbol", "main@", false},
	}

	for _, tc := range cases {
		err := ValidateWindowID(tc.window)
		if tc.valid && err != nil {
			t.Fatalf("case %q expected valid, got error: %v", tc.name, err)
		}
		if !tc.valid && err == nil {
			t.Fatalf("case %q expected error, got nil", tc.name)
		}
	}
}

func TestNormalizeSearchEngine(t *testing.T) {
	cases := []struct {
		input string
		want  SearchEngine
	}{
		{"Ayen", SearchEngineAyen},
		{"google", SearchEngineGoogle},
		{" DuckDuckGo ", SearchEngineDuckDuckGo},
	}
	for _, tc := range cases {
		got, err := NormalizeSearchEngine(tc.input)
		if err != nil {
			t.Fatalf("NormalizeSearchEngine(%q): %v", tc.input, err)
		}
		if got != tc.want {
			t.Fatalf("NormalizeSearchEngine(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
	if _, err := NormalizeSearchEngine("Bing"); !errors.Is(err, ErrInvalidSearchEngine) {
		t.Fatalf("expected ErrInvalidSearchEngine, got %v", err)
	}
}

func TestNormalizeServiceConfigDefaults(t *testing.T) {
	cfg, err := NormalizeServiceConfig(ServiceConfig{})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if cfg.DefaultURL != DefaultTabURL {
		t.Fatalf("expected default url %q, got %q", DefaultTabURL, cfg.DefaultURL)
	}
	if cfg.IncognitoURL != DefaultIncognitoTabURL {
		t.Fatalf("expected incognito url %q, got %q", DefaultIncognitoTabURL, cfg.IncognitoURL)
	}
	if cfg.HistoryMax != DefaultHistoryMax {
		t.Fatalf("expected history max %d, got %d", DefaultHistoryMax, cfg.HistoryMax)
	}
	if _, err := NormalizeServiceConfig(ServiceConfig{HistoryMax: -1}); err == nil {
		t.Fatalf("expected error for negative history max")
	}
}
