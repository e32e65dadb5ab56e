package core

import (
	"sort"
	"time"

	"pkt.systems/ayen/schema"
)

// downloadTracker correlates host download notifications by host id.
type downloadTracker struct {
	items map[schema.DownloadID]*schema.DownloadSnapshot
	seq   map[schema.DownloadID]uint64
	next  uint64
	now   func() time.Time
}

func newDownloadTracker() *downloadTracker {
	return &downloadTracker{
		items: make(map[schema.DownloadID]*schema.DownloadSnapshot),
		seq:   make(map[schema.DownloadID]uint64),
		now:   time.Now,
	}
}

// Apply folds update into the tracked download. Updates for unknown ids other
// than starts are ignored.
func (d *downloadTracker) Apply(update schema.DownloadUpdate) (schema.DownloadSnapshot, bool) {
	if update.ID == "" {
		return schema.DownloadSnapshot{}, false
	}
	item := d.items[update.ID]
	if update.Kind == schema.DownloadStarted {
		if item != nil {
			return *item, false
		}
		item = &schema.DownloadSnapshot{
			ID:        update.ID,
			WindowID:  update.WindowID,
			Filename:  update.Filename,
			URL:       update.URL,
			State:     schema.DownloadProgressing,
			StartedAt: d.now(),
		}
		d.next++
		d.items[update.ID] = item
		d.seq[update.ID] = d.next
		setProgress(item, update.ReceivedBytes, update.TotalBytes)
		return *item, true
	}
	if item == nil || item.State.Terminal() {
		return schema.DownloadSnapshot{}, false
	}
	if update.Filename != "" {
		item.Filename = update.Filename
	}
	setProgress(item, update.ReceivedBytes, update.TotalBytes)
	switch update.Kind {
	case schema.DownloadDone:
		if update.State == schema.DownloadCancelled {
			item.State = schema.DownloadCancelled
		} else {
			item.State = schema.DownloadCompleted
			item.Percentage = 100
		}
	default:
		switch update.State {
		case schema.DownloadPaused, schema.DownloadInterrupted:
			item.State = update.State
		default:
			item.State = schema.DownloadProgressing
		}
	}
	return *item, true
}

func setProgress(item *schema.DownloadSnapshot, received, total int64) {
	if received > 0 {
		item.ReceivedBytes = received
	}
	if total > 0 {
		item.TotalBytes = total
	}
	if item.TotalBytes > 0 {
		item.Percentage = float64(item.ReceivedBytes) / float64(item.TotalBytes) * 100
	} else {
		item.Percentage = 0
	}
}

// ActiveCount counts downloads that have not reached a terminal state.
func (d *downloadTracker) ActiveCount() int {
	count := 0
	for _, item := range d.items {
		if !item.State.Terminal() {
			count++
		}
	}
	return count
}

// List returns downloads newest first.
func (d *downloadTracker) List() []schema.DownloadSnapshot {
	ids := make([]schema.DownloadID, 0, len(d.items))
	for id := range d.items {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return d.seq[ids[i]] > d.seq[ids[j]] })
	out := make([]schema.DownloadSnapshot, 0, len(ids))
	for _, id := range ids {
		out = append(out, *d.items[id])
	}
	return out
}
