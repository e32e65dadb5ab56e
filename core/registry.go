package core

import "pkt.systems/ayen/schema"

// Registry holds the ordered tabs of one window and its single active pointer.
// It performs no I/O and no locking; callers serialize access.
type Registry struct {
	tabs       map[schema.TabID]*tab
	order      []schema.TabID
	active     schema.TabID
	defaultURL string
	newID      func() schema.TabID
}

// NewRegistry returns a registry holding one initial, active tab.
func NewRegistry(initialURL, defaultURL string) *Registry {
	r := &Registry{
		tabs:       make(map[schema.TabID]*tab),
		defaultURL: defaultURL,
		newID:      newTabID,
	}
	if initialURL == "" {
		initialURL = defaultURL
	}
	id := r.newID()
	r.tabs[id] = &tab{ID: id, URL: initialURL, Title: schema.InitialTabTitle}
	r.order = []schema.TabID{id}
	r.active = id
	return r
}

// Open appends a loading tab with a fresh id and makes it active.
func (r *Registry) Open(url string) schema.TabID {
	if url == "" {
		url = r.defaultURL
	}
	id := r.newID()
	for r.tabs[id] != nil {
		id = r.newID()
	}
	r.tabs[id] = &tab{ID: id, URL: url, Title: schema.PlaceholderTitle, IsLoading: true}
	r.order = append(r.order, id)
	r.active = id
	return id
}

// Close removes a tab unless it is the last one. When the active tab is
// closed the tab to its left becomes active, or the new first tab.
func (r *Registry) Close(id schema.TabID) bool {
	_, ok := r.remove(id)
	return ok
}

func (r *Registry) remove(id schema.TabID) (*tab, bool) {
	t := r.tabs[id]
	if t == nil || len(r.order) <= 1 {
		return nil, false
	}
	idx := indexOf(r.order, id)
	order := make([]schema.TabID, 0, len(r.order)-1)
	order = append(order, r.order[:idx]...)
	order = append(order, r.order[idx+1:]...)
	delete(r.tabs, id)
	r.order = order
	if r.active == id {
		next := idx - 1
		if next < 0 {
			next = 0
		}
		r.active = order[next]
	}
	return t, true
}

// SetActive moves the active pointer. Unknown ids are ignored.
func (r *Registry) SetActive(id schema.TabID) bool {
	if r.tabs[id] == nil {
		return false
	}
	r.active = id
	return true
}

// Next activates the tab after the active one, wrapping to the first.
func (r *Registry) Next() schema.TabID {
	idx := indexOf(r.order, r.active)
	r.active = r.order[(idx+1)%len(r.order)]
	return r.active
}

// Update merges patch into the tab and reports whether anything changed.
func (r *Registry) Update(id schema.TabID, patch schema.TabPatch) bool {
	t := r.tabs[id]
	if t == nil {
		return false
	}
	return t.apply(patch)
}

// Reorder replaces the tab order. It fails without side effects unless
// order is a permutation of the open tab ids.
func (r *Registry) Reorder(order []schema.TabID) error {
	if len(order) != len(r.order) {
		return schema.ErrInvalidReorder
	}
	seen := make(map[schema.TabID]struct{}, len(order))
	for _, id := range order {
		if r.tabs[id] == nil {
			return schema.ErrInvalidReorder
		}
		if _, dup := seen[id]; dup {
			return schema.ErrInvalidReorder
		}
		seen[id] = struct{}{}
	}
	r.order = append([]schema.TabID(nil), order...)
	return nil
}

// Active returns a snapshot of the active tab.
func (r *Registry) Active() (schema.TabSnapshot, bool) {
	t := r.tabs[r.active]
	if t == nil {
		return schema.TabSnapshot{}, false
	}
	return t.Snapshot(true), true
}

// ActiveID returns the id of the active tab.
func (r *Registry) ActiveID() schema.TabID {
	return r.active
}

// Get returns a snapshot of the tab.
func (r *Registry) Get(id schema.TabID) (schema.TabSnapshot, bool) {
	t := r.tabs[id]
	if t == nil {
		return schema.TabSnapshot{}, false
	}
	return t.Snapshot(id == r.active), true
}

// List returns snapshots in strip order.
func (r *Registry) List() []schema.TabSnapshot {
	out := make([]schema.TabSnapshot, 0, len(r.order))
	for _, id := range r.order {
		if t := r.tabs[id]; t != nil {
			out = append(out, t.Snapshot(id == r.active))
		}
	}
	return out
}

// Order returns a copy of the tab ids in strip order.
func (r *Registry) Order() []schema.TabID {
	return append([]schema.TabID(nil), r.order...)
}

// Len reports the number of open tabs.
func (r *Registry) Len() int {
	return len(r.order)
}

func (r *Registry) lookup(id schema.TabID) *tab {
	return r.tabs[id]
}

func (r *Registry) all() []*tab {
	out := make([]*tab, 0, len(r.order))
	for _, id := range r.order {
		if t := r.tabs[id]; t != nil {
			out = append(out, t)
		}
	}
	return out
}

func indexOf(order []schema.TabID, id schema.TabID) int {
	for i, candidate := range order {
		if candidate == id {
			return i
		}
	}
	return -1
}
