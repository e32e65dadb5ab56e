package core

import "pkt.systems/ayen/schema"

// Reconciliation reports the effects of folding one surface event into window state.
type Reconciliation struct {
	// Known is false when the event targeted a closed or unknown tab and was dropped.
	Known        bool
	Tab          schema.TabSnapshot
	TabChanged   bool
	ActiveTab    schema.TabID
	Shell        schema.ShellState
	ShellChanged bool
	// Visit is set for committed top-level navigations.
	Visit *schema.HistoryItem
	// Retitle carries the document title for a visit recorded before the
	// title was known.
	Retitle *schema.HistoryItem
	Menu    *schema.ContextMenuRequest
}

// Reconciler applies render-surface events to a registry and mirrors the
// active tab into the window's shell state.
type Reconciler struct {
	registry *Registry
	shell    schema.ShellState
	now      func() string
}

// NewReconciler returns a reconciler with the shell synced to the active tab.
func NewReconciler(registry *Registry) *Reconciler {
	r := &Reconciler{registry: registry, now: historyTimestamp}
	r.SyncActive()
	return r
}

// Shell returns the current shell state.
func (r *Reconciler) Shell() schema.ShellState {
	return r.shell
}

// SyncActive copies the active tab's URL and loading flag into the shell and
// reports whether the shell changed. Bookmarked is cleared; callers refresh it.
func (r *Reconciler) SyncActive() bool {
	prev := r.shell
	active, ok := r.registry.Active()
	if !ok {
		return false
	}
	r.shell.AddressBar = active.URL
	r.shell.Loading = active.IsLoading
	r.shell.Bookmarked = false
	return prev != r.shell
}

// SetAddressBar overrides the address bar text.
func (r *Reconciler) SetAddressBar(text string) bool {
	if r.shell.AddressBar == text {
		return false
	}
	r.shell.AddressBar = text
	return true
}

// SetBookmarked updates the bookmark indicator.
func (r *Reconciler) SetBookmarked(bookmarked bool) bool {
	if r.shell.Bookmarked == bookmarked {
		return false
	}
	r.shell.Bookmarked = bookmarked
	return true
}

// Apply folds ev, emitted by tabID's surface, into tab and shell state.
func (r *Reconciler) Apply(tabID schema.TabID, ev schema.SurfaceEvent) Reconciliation {
	t := r.registry.lookup(tabID)
	if t == nil {
		return Reconciliation{}
	}
	active := r.registry.ActiveID() == tabID
	res := Reconciliation{Known: true}
	var patch schema.TabPatch
	switch ev.Type {
	case schema.SurfaceNavigated, schema.SurfaceNavigatedInPage:
		url := ev.URL
		patch.URL = &url
		if active {
			res.ShellChanged = r.SetAddressBar(url)
		}
		t.untitledVisit = ""
		if ev.Type == schema.SurfaceNavigated {
			title := ev.Title
			if title == "" {
				title = url
				t.untitledVisit = url
			}
			res.Visit = &schema.HistoryItem{URL: url, Title: title, Date: r.now()}
		}
	case schema.SurfaceLoadStart, schema.SurfaceLoadStop:
		loading := ev.Type == schema.SurfaceLoadStart
		patch.IsLoading = &loading
		if active && r.shell.Loading != loading {
			r.shell.Loading = loading
			res.ShellChanged = true
		}
	case schema.SurfaceTitleUpdated:
		title := ev.Title
		if title == "" {
			title = schema.PlaceholderTitle
		} else if t.untitledVisit != "" && t.untitledVisit == t.URL {
			res.Retitle = &schema.HistoryItem{URL: t.URL, Title: title}
			t.untitledVisit = ""
		}
		patch.Title = &title
	case schema.SurfaceFaviconUpdated:
		if len(ev.Favicons) > 0 {
			icon := ev.Favicons[0]
			patch.Favicon = &icon
		}
	case schema.SurfaceContextMenu:
		if ev.Menu != nil {
			menu := *ev.Menu
			res.Menu = &menu
		}
	}
	if !patch.Empty() {
		res.TabChanged = t.apply(patch)
	}
	res.Tab = t.Snapshot(active)
	res.ActiveTab = r.registry.ActiveID()
	res.Shell = r.shell
	return res
}
