package core

import (
	"testing"

	"pkt.systems/ayen/schema"
)

func TestDownloadsCorrelateByID(t *testing.T) {
	d := newDownloadTracker()
	d.Apply(schema.DownloadUpdate{Kind: schema.DownloadStarted, ID: "one", Filename: "report.pdf"})
	d.Apply(schema.DownloadUpdate{Kind: schema.DownloadStarted, ID: "two", Filename: "report.pdf"})
	if d.ActiveCount() != 2 {
		t.Fatalf("expected 2 active downloads, got %d", d.ActiveCount())
	}
	snap, ok := d.Apply(schema.DownloadUpdate{Kind: schema.DownloadUpdated, ID: "two", ReceivedBytes: 50, TotalBytes: 200})
	if !ok || snap.Percentage != 25 {
		t.Fatalf("expected 25%% for second download, got %+v", snap)
	}
	snap, _ = d.Apply(schema.DownloadUpdate{Kind: schema.DownloadDone, ID: "one", State: schema.DownloadCompleted})
	if snap.State != schema.DownloadCompleted || snap.Percentage != 100 {
		t.Fatalf("expected first completed at 100%%, got %+v", snap)
	}
	if d.ActiveCount() != 1 {
		t.Fatalf("expected 1 active download, got %d", d.ActiveCount())
	}
	list := d.List()
	if len(list) != 2 || list[0].ID != "two" || list[0].ReceivedBytes != 50 {
		t.Fatalf("expected newest first with independent progress, got %+v", list)
	}
	if list[1].State != schema.DownloadCompleted {
		t.Fatalf("expected first download completed, got %+v", list[1])
	}
}

func TestDownloadLifecycleStates(t *testing.T) {
	d := newDownloadTracker()
	if _, ok := d.Apply(schema.DownloadUpdate{Kind: schema.DownloadUpdated, ID: "ghost"}); ok {
		t.Fatalf("expected unknown download update ignored")
	}
	d.Apply(schema.DownloadUpdate{Kind: schema.DownloadStarted, ID: "a", Filename: "a.zip"})
	snap, _ := d.Apply(schema.DownloadUpdate{Kind: schema.DownloadUpdated, ID: "a", State: schema.DownloadPaused})
	if snap.State != schema.DownloadPaused || snap.Percentage != 0 {
		t.Fatalf("expected paused with unknown total, got %+v", snap)
	}
	snap, _ = d.Apply(schema.DownloadUpdate{Kind: schema.DownloadUpdated, ID: "a", State: schema.DownloadInterrupted})
	if snap.State != schema.DownloadInterrupted {
		t.Fatalf("expected interrupted, got %+v", snap)
	}
	snap, _ = d.Apply(schema.DownloadUpdate{Kind: schema.DownloadDone, ID: "a", State: schema.DownloadCancelled})
	if snap.State != schema.DownloadCancelled || d.ActiveCount() != 0 {
		t.Fatalf("expected cancelled and no active downloads, got %+v", snap)
	}
	if _, ok := d.Apply(schema.DownloadUpdate{Kind: schema.DownloadUpdated, ID: "a", ReceivedBytes: 10}); ok {
		t.Fatalf("expected updates after a terminal state to be ignored")
	}
}
