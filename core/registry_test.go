package core

import (
	"errors"
	"math/rand"
	"testing"

	"pkt.systems/ayen/schema"
)

func registryWith(active schema.TabID, ids ...schema.TabID) *Registry {
	r := &Registry{
		tabs:       make(map[schema.TabID]*tab),
		defaultURL: schema.DefaultTabURL,
		newID:      newTabID,
	}
	for _, id := range ids {
		r.tabs[id] = &tab{ID: id, Title: schema.PlaceholderTitle}
		r.order = append(r.order, id)
	}
	r.active = active
	return r
}

func assertOrder(t *testing.T, r *Registry, want ...schema.TabID) {
	t.Helper()
	got := r.Order()
	if len(got) != len(want) {
		t.Fatalf("expected order %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, got)
		}
	}
}

func TestNewRegistryStartsWithInitialTab(t *testing.T) {
	r := NewRegistry("", schema.DefaultTabURL)
	active, ok := r.Active()
	if !ok {
		t.Fatalf("expected an active tab")
	}
	if active.URL != schema.DefaultTabURL || active.Title != schema.InitialTabTitle || active.IsLoading {
		t.Fatalf("unexpected initial tab: %+v", active)
	}
	if r.Len() != 1 {
		t.Fatalf("expected one tab, got %d", r.Len())
	}
}

func TestOpenAppendsAndActivates(t *testing.T) {
	r := NewRegistry("", schema.DefaultTabURL)
	id := r.Open("")
	if r.ActiveID() != id {
		t.Fatalf("expected new tab active")
	}
	snap, _ := r.Get(id)
	if !snap.IsLoading || snap.Title != schema.PlaceholderTitle || snap.URL != schema.DefaultTabURL {
		t.Fatalf("unexpected new tab: %+v", snap)
	}
	order := r.Order()
	if order[len(order)-1] != id {
		t.Fatalf("expected new tab at end, got %v", order)
	}
}

func TestCloseActiveMiddlePrefersLeftNeighbor(t *testing.T) {
	r := registryWith("B", "A", "B", "C")
	if !r.Close("B") {
		t.Fatalf("expected close to succeed")
	}
	assertOrder(t, r, "A", "C")
	if r.ActiveID() != "A" {
		t.Fatalf("expected A active, got %q", r.ActiveID())
	}
}

func TestCloseActiveFirstPicksNewFirst(t *testing.T) {
	r := registryWith("A", "A", "B", "C")
	r.Close("A")
	assertOrder(t, r, "B", "C")
	if r.ActiveID() != "B" {
		t.Fatalf("expected B active, got %q", r.ActiveID())
	}
}

func TestCloseInactiveKeepsActive(t *testing.T) {
	r := registryWith("A", "A", "B", "C")
	r.Close("C")
	assertOrder(t, r, "A", "B")
	if r.ActiveID() != "A" {
		t.Fatalf("expected A active, got %q", r.ActiveID())
	}
}

func TestCloseLastTabIsNoop(t *testing.T) {
	r := registryWith("A", "A")
	if r.Close("A") {
		t.Fatalf("expected last tab close to be rejected")
	}
	assertOrder(t, r, "A")
	if r.ActiveID() != "A" {
		t.Fatalf("expected A active")
	}
}

func TestCloseUnknownIsNoop(t *testing.T) {
	r := registryWith("A", "A", "B")
	if r.Close("Z") {
		t.Fatalf("expected unknown close to be ignored")
	}
	assertOrder(t, r, "A", "B")
}

func TestSetActiveUnknownIsNoop(t *testing.T) {
	r := registryWith("A", "A", "B")
	if r.SetActive("Z") {
		t.Fatalf("expected unknown activate to be ignored")
	}
	if r.ActiveID() != "A" {
		t.Fatalf("expected A active")
	}
}

func TestNextWraps(t *testing.T) {
	r := registryWith("B", "A", "B")
	if got := r.Next(); got != "A" {
		t.Fatalf("expected wrap to A, got %q", got)
	}
	if got := r.Next(); got != "B" {
		t.Fatalf("expected B, got %q", got)
	}
}

func TestUpdateMergesAndIgnoresUnknown(t *testing.T) {
	r := registryWith("A", "A")
	title := "Example"
	if !r.Update("A", schema.TabPatch{Title: &title}) {
		t.Fatalf("expected update to change tab")
	}
	if r.Update("A", schema.TabPatch{Title: &title}) {
		t.Fatalf("expected identical update to report no change")
	}
	if r.Update("Z", schema.TabPatch{Title: &title}) {
		t.Fatalf("expected unknown update to be ignored")
	}
	snap, _ := r.Get("A")
	if snap.Title != "Example" || snap.URL != "" {
		t.Fatalf("unexpected tab after update: %+v", snap)
	}
}

func TestReorderRequiresPermutation(t *testing.T) {
	r := registryWith("A", "A", "B", "C")
	cases := [][]schema.TabID{
		{"A", "B"},
		{"A", "B", "B"},
		{"A", "B", "D"},
		{"A", "B", "C", "D"},
	}
	for _, order := range cases {
		if err := r.Reorder(order); !errors.Is(err, schema.ErrInvalidReorder) {
			t.Fatalf("expected ErrInvalidReorder for %v, got %v", order, err)
		}
		assertOrder(t, r, "A", "B", "C")
	}
	if err := r.Reorder([]schema.TabID{"C", "A", "B"}); err != nil {
		t.Fatalf("reorder: %v", err)
	}
	assertOrder(t, r, "C", "A", "B")
	if r.ActiveID() != "A" {
		t.Fatalf("expected reorder to keep A active")
	}
}

func TestRandomOpenCloseKeepsInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	r := NewRegistry("", schema.DefaultTabURL)
	seen := map[schema.TabID]bool{r.ActiveID(): true}
	for i := 0; i < 2000; i++ {
		switch rng.Intn(4) {
		case 0:
			id := r.Open("")
			if seen[id] {
				t.Fatalf("tab id %q reused", id)
			}
			seen[id] = true
		case 1:
			order := r.Order()
			r.SetActive(order[rng.Intn(len(order))])
		default:
			order := r.Order()
			r.Close(order[rng.Intn(len(order))])
		}
		if r.Len() == 0 {
			t.Fatalf("registry became empty at step %d", i)
		}
		if _, ok := r.Active(); !ok {
			t.Fatalf("active tab missing at step %d", i)
		}
		active := 0
		for _, snap := range r.List() {
			if snap.Active {
				active++
			}
		}
		if active != 1 {
			t.Fatalf("expected exactly one active tab, got %d at step %d", active, i)
		}
	}
}
