package core

import "pkt.systems/ayen/schema"

// tab tracks the state of a single browsing context.
type tab struct {
	ID        schema.TabID
	URL       string
	Title     string
	IsLoading bool
	Favicon   string
	surface   Surface
	detach    func()
	// untitledVisit is the URL of the last recorded visit still titled by
	// its URL; cleared by the next navigation or title.
	untitledVisit string
}

// Snapshot returns a transport-friendly view of the tab.
func (t *tab) Snapshot(active bool) schema.TabSnapshot {
	return schema.TabSnapshot{
		ID:        t.ID,
		URL:       t.URL,
		Title:     t.Title,
		IsLoading: t.IsLoading,
		Favicon:   t.Favicon,
		Active:    active,
	}
}

// apply merges the patch and reports whether any field changed.
func (t *tab) apply(patch schema.TabPatch) bool {
	changed := false
	if patch.URL != nil && *patch.URL != t.URL {
		t.URL = *patch.URL
		changed = true
	}
	if patch.Title != nil && *patch.Title != t.Title {
		t.Title = *patch.Title
		changed = true
	}
	if patch.IsLoading != nil && *patch.IsLoading != t.IsLoading {
		t.IsLoading = *patch.IsLoading
		changed = true
	}
	if patch.Favicon != nil && *patch.Favicon != t.Favicon {
		t.Favicon = *patch.Favicon
		changed = true
	}
	return changed
}

// unmount detaches the event subscription and closes the surface. It is safe to call twice.
func (t *tab) unmount() {
	if t.detach != nil {
		t.detach()
		t.detach = nil
	}
	if t.surface != nil {
		t.surface.Close()
		t.surface = nil
	}
}
