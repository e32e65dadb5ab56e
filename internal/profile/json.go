package profile

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"pkt.systems/ayen/schema"
	"pkt.systems/pslog"
)

// Document is the on-disk layout of a JSON profile.
type Document struct {
	History   []schema.HistoryItem  `json:"history"`
	Bookmarks []schema.BookmarkItem `json:"bookmarks"`
	Settings  *schema.Settings      `json:"settings,omitempty"`
}

// JSONStore keeps the profile in memory and, when backed by a path, rewrites
// the whole document atomically after every change.
type JSONStore struct {
	mu   sync.Mutex
	path string
	max  int
	doc  Document
	log  pslog.Logger
}

// NewMemoryStore returns a store that never touches disk.
func NewMemoryStore(opts Options) *JSONStore {
	return &JSONStore{max: opts.historyMax(), log: opts.Logger}
}

// OpenJSONStore loads the document at path, creating it on first save.
func OpenJSONStore(path string, opts Options) (*JSONStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	log := opts.Logger
	if log != nil {
		log = log.With("profile", path)
	}
	s := &JSONStore{path: path, max: opts.historyMax(), log: log}
	doc, ok, err := s.load()
	if err != nil {
		return nil, err
	}
	if ok {
		if len(doc.History) > s.max {
			doc.History = doc.History[:s.max]
		}
		s.doc = doc
	}
	return s, nil
}

func (s *JSONStore) History() ([]schema.HistoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]schema.HistoryItem(nil), s.doc.History...), nil
}

func (s *JSONStore) AddHistory(item schema.HistoryItem) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	history, added := prependHistory(s.doc.History, item, s.max)
	if !added {
		return false, nil
	}
	next := s.doc
	next.History = history
	if err := s.commitLocked(next); err != nil {
		return false, err
	}
	return true, nil
}

func (s *JSONStore) RetitleHistory(url, title string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	history, changed := retitleNewest(s.doc.History, url, title)
	if !changed {
		return false, nil
	}
	next := s.doc
	next.History = history
	if err := s.commitLocked(next); err != nil {
		return false, err
	}
	return true, nil
}

func (s *JSONStore) ClearHistory() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.doc
	next.History = nil
	return s.commitLocked(next)
}

func (s *JSONStore) Bookmarks() ([]schema.BookmarkItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]schema.BookmarkItem(nil), s.doc.Bookmarks...), nil
}

func (s *JSONStore) ToggleBookmark(item schema.BookmarkItem) ([]schema.BookmarkItem, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bookmarks, bookmarked := toggleBookmark(s.doc.Bookmarks, item)
	next := s.doc
	next.Bookmarks = bookmarks
	if err := s.commitLocked(next); err != nil {
		return nil, false, err
	}
	return append([]schema.BookmarkItem(nil), bookmarks...), bookmarked, nil
}

func (s *JSONStore) IsBookmarked(url string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return containsBookmark(s.doc.Bookmarks, url), nil
}

func (s *JSONStore) Settings() (schema.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc.Settings == nil {
		return schema.DefaultSettings(), nil
	}
	return normalizeSettings(*s.doc.Settings), nil
}

func (s *JSONStore) SaveSettings(settings schema.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	settings = normalizeSettings(settings)
	next := s.doc
	next.Settings = &settings
	return s.commitLocked(next)
}

// Close is a no-op; every change is already on disk.
func (s *JSONStore) Close() error {
	return nil
}

func (s *JSONStore) load() (Document, bool, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if s.log != nil {
				s.log.Debug("profile load miss")
			}
			return Document{}, false, nil
		}
		if s.log != nil {
			s.log.Warn("profile load failed", "err", err)
		}
		return Document{}, false, err
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		if s.log != nil {
			s.log.Warn("profile load failed", "err", err)
		}
		return Document{}, false, err
	}
	if s.log != nil {
		s.log.Debug("profile load ok", "history", len(doc.History), "bookmarks", len(doc.Bookmarks))
	}
	return doc, true, nil
}

// commitLocked writes next and adopts it only after the write succeeds.
func (s *JSONStore) commitLocked(next Document) error {
	if s.path != "" {
		if err := writeFileAtomic(s.path, next); err != nil {
			if s.log != nil {
				s.log.Warn("profile save failed", "err", err)
			}
			return err
		}
		if s.log != nil {
			s.log.Trace("profile save ok", "history", len(next.History), "bookmarks", len(next.Bookmarks))
		}
	}
	s.doc = next
	return nil
}

// writeFileAtomic replaces path with the JSON encoding of v via a synced temp file.
func writeFileAtomic(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "profile-*.json")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
