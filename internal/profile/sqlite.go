package profile

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"pkt.systems/ayen/schema"
	"pkt.systems/pslog"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS history (
	id     INTEGER PRIMARY KEY AUTOINCREMENT,
	url    TEXT NOT NULL,
	title  TEXT NOT NULL,
	date   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS bookmarks (
	id     INTEGER PRIMARY KEY AUTOINCREMENT,
	url    TEXT NOT NULL UNIQUE,
	title  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS settings (
	id             INTEGER PRIMARY KEY CHECK (id = 1),
	search_engine  TEXT NOT NULL,
	shield_enabled INTEGER NOT NULL
);
`

// SQLiteStore keeps the profile in a SQLite database.
type SQLiteStore struct {
	mu  sync.Mutex
	db  *sql.DB
	max int
	log pslog.Logger
}

// OpenSQLiteStore opens (or creates) the database at path. Use ":memory:"
// for a throwaway database.
func OpenSQLiteStore(path string, opts Options) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	log := opts.Logger
	if log != nil {
		log = log.With("profile", path)
		log.Debug("profile db open ok")
	}
	return &SQLiteStore{db: db, max: opts.historyMax(), log: log}, nil
}

func (s *SQLiteStore) History() ([]schema.HistoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.Query(`SELECT url, title, date FROM history ORDER BY id DESC LIMIT ?`, s.max)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []schema.HistoryItem
	for rows.Next() {
		var item schema.HistoryItem
		if err := rows.Scan(&item.URL, &item.Title, &item.Date); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) AddHistory(item schema.HistoryItem) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest string
	err := s.db.QueryRow(`SELECT url FROM history ORDER BY id DESC LIMIT 1`).Scan(&latest)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return false, err
	}
	var current []schema.HistoryItem
	if err == nil {
		current = []schema.HistoryItem{{URL: latest}}
	}
	if _, added := prependHistory(current, item, s.max); !added {
		return false, nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return false, err
	}
	if _, err := tx.Exec(`INSERT INTO history (url, title, date) VALUES (?, ?, ?)`, item.URL, item.Title, item.Date); err != nil {
		_ = tx.Rollback()
		return false, s.fail("history insert", err)
	}
	if _, err := tx.Exec(`DELETE FROM history WHERE id NOT IN (SELECT id FROM history ORDER BY id DESC LIMIT ?)`, s.max); err != nil {
		_ = tx.Rollback()
		return false, s.fail("history trim", err)
	}
	if err := tx.Commit(); err != nil {
		return false, s.fail("history commit", err)
	}
	return true, nil
}

func (s *SQLiteStore) RetitleHistory(url, title string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var id int64
	var latest schema.HistoryItem
	err := s.db.QueryRow(`SELECT id, url, title FROM history ORDER BY id DESC LIMIT 1`).Scan(&id, &latest.URL, &latest.Title)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if _, changed := retitleNewest([]schema.HistoryItem{latest}, url, title); !changed {
		return false, nil
	}
	if _, err := s.db.Exec(`UPDATE history SET title = ? WHERE id = ?`, title, id); err != nil {
		return false, s.fail("history retitle", err)
	}
	return true, nil
}

func (s *SQLiteStore) ClearHistory() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.Exec(`DELETE FROM history`); err != nil {
		return s.fail("history clear", err)
	}
	return nil
}

func (s *SQLiteStore) Bookmarks() ([]schema.BookmarkItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bookmarksLocked()
}

func (s *SQLiteStore) bookmarksLocked() ([]schema.BookmarkItem, error) {
	rows, err := s.db.Query(`SELECT url, title FROM bookmarks ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []schema.BookmarkItem
	for rows.Next() {
		var item schema.BookmarkItem
		if err := rows.Scan(&item.URL, &item.Title); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) ToggleBookmark(item schema.BookmarkItem) ([]schema.BookmarkItem, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.Exec(`DELETE FROM bookmarks WHERE url = ?`, item.URL)
	if err != nil {
		return nil, false, s.fail("bookmark delete", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return nil, false, err
	}
	bookmarked := removed == 0
	if bookmarked {
		if _, err := s.db.Exec(`INSERT INTO bookmarks (url, title) VALUES (?, ?)`, item.URL, item.Title); err != nil {
			return nil, false, s.fail("bookmark insert", err)
		}
	}
	list, err := s.bookmarksLocked()
	if err != nil {
		return nil, false, err
	}
	return list, bookmarked, nil
}

func (s *SQLiteStore) IsBookmarked(url string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int
	if err := s.db.QueryRow(`SELECT COUNT(1) FROM bookmarks WHERE url = ?`, url).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *SQLiteStore) Settings() (schema.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var engine string
	var shield int
	err := s.db.QueryRow(`SELECT search_engine, shield_enabled FROM settings WHERE id = 1`).Scan(&engine, &shield)
	if errors.Is(err, sql.ErrNoRows) {
		return schema.DefaultSettings(), nil
	}
	if err != nil {
		return schema.Settings{}, err
	}
	return normalizeSettings(schema.Settings{
		SearchEngine:  schema.SearchEngine(engine),
		ShieldEnabled: shield != 0,
	}), nil
}

func (s *SQLiteStore) SaveSettings(settings schema.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	settings = normalizeSettings(settings)
	shield := 0
	if settings.ShieldEnabled {
		shield = 1
	}
	_, err := s.db.Exec(`INSERT INTO settings (id, search_engine, shield_enabled) VALUES (1, ?, ?)
ON CONFLICT(id) DO UPDATE SET search_engine = excluded.search_engine, shield_enabled = excluded.shield_enabled`,
		string(settings.SearchEngine), shield)
	if err != nil {
		return s.fail("settings save", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) fail(op string, err error) error {
	if s.log != nil {
		s.log.Warn("profile db write failed", "op", op, "err", err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
