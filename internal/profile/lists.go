package profile

import (
	"strings"

	"pkt.systems/ayen/schema"
)

// prependHistory returns entries with item at the front, capped at max.
// Empty URLs and a URL equal to the newest entry are rejected.
func prependHistory(entries []schema.HistoryItem, item schema.HistoryItem, max int) ([]schema.HistoryItem, bool) {
	if strings.TrimSpace(item.URL) == "" {
		return entries, false
	}
	if len(entries) > 0 && entries[0].URL == item.URL {
		return entries, false
	}
	out := make([]schema.HistoryItem, 0, len(entries)+1)
	out = append(out, item)
	out = append(out, entries...)
	if len(out) > max {
		out = out[:max]
	}
	return out, true
}

// retitleNewest returns entries with the newest entry's title replaced when
// its URL is url. The input slice is never modified.
func retitleNewest(entries []schema.HistoryItem, url, title string) ([]schema.HistoryItem, bool) {
	if len(entries) == 0 || entries[0].URL != url || title == "" || entries[0].Title == title {
		return entries, false
	}
	out := append([]schema.HistoryItem(nil), entries...)
	out[0].Title = title
	return out, true
}

// toggleBookmark removes the bookmark matching item.URL exactly, or appends item.
func toggleBookmark(entries []schema.BookmarkItem, item schema.BookmarkItem) ([]schema.BookmarkItem, bool) {
	for i, existing := range entries {
		if existing.URL == item.URL {
			out := make([]schema.BookmarkItem, 0, len(entries)-1)
			out = append(out, entries[:i]...)
			out = append(out, entries[i+1:]...)
			return out, false
		}
	}
	out := append(append([]schema.BookmarkItem(nil), entries...), item)
	return out, true
}

func containsBookmark(entries []schema.BookmarkItem, url string) bool {
	for _, existing := range entries {
		if existing.URL == url {
			return true
		}
	}
	return false
}

func normalizeSettings(settings schema.Settings) schema.Settings {
	engine, err := schema.NormalizeSearchEngine(string(settings.SearchEngine))
	if err != nil {
		engine = schema.SearchEngineAyen
	}
	settings.SearchEngine = engine
	return settings
}
