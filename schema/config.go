package schema

import (
	"errors"
	"strings"
)

// ServiceConfig defines defaults and limits for the core service.
type ServiceConfig struct {
	DefaultURL   string
	IncognitoURL string
	HistoryMax   int
	// DisableHistory stops navigation capture in every window.
	DisableHistory bool
}

// DefaultHistoryMax is the number of history entries kept, newest first.
const DefaultHistoryMax = 500

// NormalizeServiceConfig applies defaults and validates the config.
func NormalizeServiceConfig(cfg ServiceConfig) (ServiceConfig, error) {
	cfg.DefaultURL = strings.TrimSpace(cfg.DefaultURL)
	cfg.IncognitoURL = strings.TrimSpace(cfg.IncognitoURL)
	if cfg.DefaultURL == "" {
		cfg.DefaultURL = DefaultTabURL
	}
	if cfg.IncognitoURL == "" {
		cfg.IncognitoURL = DefaultIncognitoTabURL
	}
	if cfg.HistoryMax == 0 {
		cfg.HistoryMax = DefaultHistoryMax
	}
	if cfg.HistoryMax < 0 {
		return ServiceConfig{}, errors.New("history max must be positive")
	}
	return cfg, nil
}
