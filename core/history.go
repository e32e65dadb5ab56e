package core

import (
	"strings"
	"time"

	"pkt.systems/ayen/schema"
)

// shouldRecordVisit reports whether a committed navigation belongs in history.
// Incognito windows and local files are never recorded. Consecutive duplicates
// are suppressed by the store.
func shouldRecordVisit(persistent bool, visit schema.HistoryItem) bool {
	if !persistent {
		return false
	}
	if strings.TrimSpace(visit.URL) == "" {
		return false
	}
	if strings.HasPrefix(strings.ToLower(visit.URL), "file://") {
		return false
	}
	return true
}

func historyTimestamp() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
}
