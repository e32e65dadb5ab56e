// Package profile persists browsing history, bookmarks, and settings.
package profile

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"pkt.systems/ayen/schema"
	"pkt.systems/pslog"
)

// Store is the typed read/write contract for profile data.
type Store interface {
	// History returns visits newest first.
	History() ([]schema.HistoryItem, error)
	// AddHistory prepends item unless its URL equals the newest entry.
	AddHistory(item schema.HistoryItem) (bool, error)
	// RetitleHistory sets the newest entry's title when its URL is url.
	RetitleHistory(url, title string) (bool, error)
	ClearHistory() error
	Bookmarks() ([]schema.BookmarkItem, error)
	// ToggleBookmark removes the bookmark with item's URL or appends item.
	// It returns the resulting list and whether the URL is now bookmarked.
	ToggleBookmark(item schema.BookmarkItem) ([]schema.BookmarkItem, bool, error)
	IsBookmarked(url string) (bool, error)
	Settings() (schema.Settings, error)
	SaveSettings(settings schema.Settings) error
	Close() error
}

// Backend names a Store implementation.
type Backend string

const (
	// BackendMemory keeps data in memory only.
	BackendMemory Backend = "memory"
	// BackendJSON keeps data in a single JSON document.
	BackendJSON Backend = "json"
	// BackendSQLite keeps data in a SQLite database.
	BackendSQLite Backend = "sqlite"
)

// Options tune store behavior.
type Options struct {
	HistoryMax int
	Logger     pslog.Logger
}

func (o Options) historyMax() int {
	if o.HistoryMax <= 0 {
		return schema.DefaultHistoryMax
	}
	return o.HistoryMax
}

// Open constructs the store for backend, keeping its files under dir.
func Open(backend Backend, dir string, opts Options) (Store, error) {
	switch Backend(strings.ToLower(strings.TrimSpace(string(backend)))) {
	case BackendMemory:
		return NewMemoryStore(opts), nil
	case BackendJSON, "":
		if strings.TrimSpace(dir) == "" {
			return nil, errors.New("profile directory is required")
		}
		return OpenJSONStore(filepath.Join(dir, "profile.json"), opts)
	case BackendSQLite:
		if strings.TrimSpace(dir) == "" {
			return nil, errors.New("profile directory is required")
		}
		return OpenSQLiteStore(filepath.Join(dir, "profile.db"), opts)
	default:
		return nil, fmt.Errorf("unknown profile backend %q", backend)
	}
}
