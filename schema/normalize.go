package schema

import "strings"

// NormalizeSearchEngine maps a search engine name, case-insensitively, to its canonical form.
func NormalizeSearchEngine(name string) (SearchEngine, error) {
	trimmed := strings.TrimSpace(name)
	for _, engine := range []SearchEngine{SearchEngineAyen, SearchEngineGoogle, SearchEngineDuckDuckGo} {
		if strings.EqualFold(trimmed, string(engine)) {
			return engine, nil
		}
	}
	return "", ErrInvalidSearchEngine
}

// ValidateWindowID ensures a window id matches [a-z0-9._-] with no normalization.
func ValidateWindowID(windowID WindowID) error {
	raw := string(windowID)
	if raw == "" {
		return ErrInvalidWindow
	}
	if strings.TrimSpace(raw) != raw {
		return ErrInvalidWindow
	}
	for _, r := range raw {
		if r >= 'a' && r <= 'z' {
			continue
		}
		if r >= '0' && r <= '9' {
			continue
		}
		if r == '.' || r == '_' || r == '-' {
			continue
		}
		return ErrInvalidWindow
	}
	return nil
}
