package appconfig

import (
	"os"
	"path/filepath"

	"pkt.systems/ayen/internal/shield"
	"pkt.systems/ayen/schema"
)

// Config is the top-level application configuration.
type Config struct {
	ConfigVersion int           `mapstructure:"config_version" yaml:"config_version"`
	StateDir      string        `mapstructure:"state_dir" yaml:"state_dir"`
	Profile       ProfileConfig `mapstructure:"profile" yaml:"profile"`
	Browser       BrowserConfig `mapstructure:"browser" yaml:"browser"`
	Shield        ShieldConfig  `mapstructure:"shield" yaml:"shield"`
	HTTP          HTTPConfig    `mapstructure:"http" yaml:"http"`
	Logging       LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// CurrentConfigVersion marks the supported config version.
const CurrentConfigVersion = 1

// ProfileConfig controls where history, bookmarks, and settings live.
type ProfileConfig struct {
	Dir            string `mapstructure:"dir" yaml:"dir"`
	Backend        string `mapstructure:"backend" yaml:"backend"`
	HistoryMax     int    `mapstructure:"history_max" yaml:"history_max"`
	DisableHistory bool   `mapstructure:"disable_history" yaml:"disable_history"`
}

// BrowserConfig configures the Chrome host and tab defaults.
type BrowserConfig struct {
	ExecPath     string `mapstructure:"exec_path" yaml:"exec_path"`
	Headless     bool   `mapstructure:"headless" yaml:"headless"`
	NoSandbox    bool   `mapstructure:"no_sandbox" yaml:"no_sandbox"`
	UserDataDir  string `mapstructure:"user_data_dir" yaml:"user_data_dir"`
	DownloadDir  string `mapstructure:"download_dir" yaml:"download_dir"`
	WindowWidth  int    `mapstructure:"window_width" yaml:"window_width"`
	WindowHeight int    `mapstructure:"window_height" yaml:"window_height"`
	DefaultURL   string `mapstructure:"default_url" yaml:"default_url"`
	IncognitoURL string `mapstructure:"incognito_url" yaml:"incognito_url"`
}

// ShieldConfig configures filter list refresh.
type ShieldConfig struct {
	Lists           []string `mapstructure:"lists" yaml:"lists"`
	RefreshOnStart  bool     `mapstructure:"refresh_on_start" yaml:"refresh_on_start"`
	FetchTimeoutSec int      `mapstructure:"fetch_timeout_seconds" yaml:"fetch_timeout_seconds"`
	FetchRetries    int      `mapstructure:"fetch_retries" yaml:"fetch_retries"`
	FetchRate       float64  `mapstructure:"fetch_rate" yaml:"fetch_rate"`
}

// HTTPConfig configures the local control API.
type HTTPConfig struct {
	Addr          string `mapstructure:"addr" yaml:"addr"`
	BasePath      string `mapstructure:"base_path" yaml:"base_path"`
	EnableMetrics bool   `mapstructure:"enable_metrics" yaml:"enable_metrics"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, err
	}
	root := filepath.Join(home, ".ayen")
	return Config{
		ConfigVersion: CurrentConfigVersion,
		StateDir:      filepath.Join(root, "state"),
		Profile: ProfileConfig{
			Dir:        filepath.Join(root, "profile"),
			Backend:    "json",
			HistoryMax: schema.DefaultHistoryMax,
		},
		Browser: BrowserConfig{
			ExecPath:     "",
			Headless:     true,
			NoSandbox:    false,
			UserDataDir:  filepath.Join(root, "chrome"),
			DownloadDir:  filepath.Join(home, "Downloads"),
			WindowWidth:  1200,
			WindowHeight: 800,
			DefaultURL:   schema.DefaultTabURL,
			IncognitoURL: schema.DefaultIncognitoTabURL,
		},
		Shield: ShieldConfig{
			Lists:           append([]string(nil), shield.DefaultLists...),
			RefreshOnStart:  true,
			FetchTimeoutSec: 30,
			FetchRetries:    3,
			FetchRate:       2,
		},
		HTTP: HTTPConfig{
			Addr:          "127.0.0.1:27481",
			BasePath:      "",
			EnableMetrics: true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}, nil
}

// DefaultConfigPath returns the standard config path.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".ayen", "config.yaml"), nil
}
