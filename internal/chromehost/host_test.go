package chromehost

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/cdp"

	"pkt.systems/ayen/core"
	"pkt.systems/ayen/schema"
	"pkt.systems/pslog"
)

func testLogger() pslog.Logger {
	return pslog.Ctx(context.Background())
}

func TestFaviconCandidatesResolveRelativeLinks(t *testing.T) {
	head := `<head>
<link rel="stylesheet" href="/site.css">
<link rel="icon" href="/static/icon.png">
<link rel="shortcut icon" href="https://cdn.example.com/fav.ico">
<link rel="apple-touch-icon" href="touch.png">
<link rel="icon" href="/static/icon.png">
</head>`
	got := faviconCandidates("https://example.com/docs/page.html", head)
	want := []string{
		"https://example.com/static/icon.png",
		"https://cdn.example.com/fav.ico",
		"https://example.com/docs/touch.png",
	}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestFaviconCandidatesFallback(t *testing.T) {
	got := faviconCandidates("https://example.com/a", "<head><title>x</title></head>")
	if len(got) != 1 || got[0] != "https://example.com/favicon.ico" {
		t.Fatalf("expected favicon.ico fallback, got %v", got)
	}
	if got := faviconCandidates("about:blank", ""); len(got) != 0 {
		t.Fatalf("expected no candidates for about:blank, got %v", got)
	}
}

func TestFrameURLIncludesFragment(t *testing.T) {
	frame := &cdp.Frame{URL: "https://example.com/a", URLFragment: "#top"}
	if got := frameURL(frame); got != "https://example.com/a#top" {
		t.Fatalf("unexpected frame url %q", got)
	}
	if frameURL(nil) != "" {
		t.Fatalf("expected empty url for nil frame")
	}
}

func TestPageTitleOnlyAnswersForItsURL(t *testing.T) {
	seen := pageTitle{url: "https://example.com/a", title: "A"}
	if got := seen.at("https://example.com/a"); got != "A" {
		t.Fatalf("expected title for same url, got %q", got)
	}
	if got := seen.at("https://example.com/b"); got != "" {
		t.Fatalf("expected no title for other url, got %q", got)
	}
	if got := (pageTitle{}).at(""); got != "" {
		t.Fatalf("expected no title for empty url, got %q", got)
	}
}

func TestParseContextMenu(t *testing.T) {
	menu, err := parseContextMenu(`{"x":10,"y":20,"selectionText":"hi","linkURL":"https://example.com"}`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if menu.X != 10 || menu.Y != 20 || menu.SelectionText != "hi" || menu.LinkURL != "https://example.com" {
		t.Fatalf("unexpected menu %+v", menu)
	}
	if _, err := parseContextMenu(""); err == nil {
		t.Fatalf("expected empty payload error")
	}
	if _, err := parseContextMenu("{"); err == nil {
		t.Fatalf("expected malformed payload error")
	}
}

type downloadRecorder struct {
	mu      sync.Mutex
	updates []schema.DownloadUpdate
}

func (r *downloadRecorder) record(u schema.DownloadUpdate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, u)
}

func TestDownloadRelayDeduplicatesAndFinalizes(t *testing.T) {
	dir := t.TempDir()
	relay := newDownloadRelay(dir, testLogger())
	rec := &downloadRecorder{}
	relay.setHandler(rec.record)

	begin := &browser.EventDownloadWillBegin{GUID: "g1", URL: "https://example.com/report.pdf", SuggestedFilename: "report.pdf"}
	relay.begin("main", begin)
	relay.begin("main", begin)

	progress := &browser.EventDownloadProgress{GUID: "g1", TotalBytes: 100, ReceivedBytes: 50, State: browser.DownloadProgressStateInProgress}
	relay.progress(progress)
	relay.progress(progress)

	if err := os.WriteFile(filepath.Join(dir, "g1"), []byte("pdf"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "report.pdf"), []byte("old"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	relay.progress(&browser.EventDownloadProgress{GUID: "g1", TotalBytes: 100, ReceivedBytes: 100, State: browser.DownloadProgressStateCompleted})
	relay.progress(&browser.EventDownloadProgress{GUID: "g1", TotalBytes: 100, ReceivedBytes: 100, State: browser.DownloadProgressStateCompleted})

	if len(rec.updates) != 3 {
		t.Fatalf("expected 3 updates, got %d: %+v", len(rec.updates), rec.updates)
	}
	if rec.updates[0].Kind != schema.DownloadStarted || rec.updates[0].WindowID != "main" {
		t.Fatalf("unexpected start update %+v", rec.updates[0])
	}
	if rec.updates[1].Kind != schema.DownloadUpdated || rec.updates[1].ReceivedBytes != 50 {
		t.Fatalf("unexpected progress update %+v", rec.updates[1])
	}
	done := rec.updates[2]
	if done.Kind != schema.DownloadDone || done.State != schema.DownloadCompleted {
		t.Fatalf("unexpected done update %+v", done)
	}
	if done.Filename != "report (1).pdf" {
		t.Fatalf("expected renamed file, got %q", done.Filename)
	}
	if _, err := os.Stat(filepath.Join(dir, "report (1).pdf")); err != nil {
		t.Fatalf("expected renamed file on disk: %v", err)
	}
}

func TestProgressStateMapping(t *testing.T) {
	cases := []struct {
		in    browser.DownloadProgressState
		kind  schema.DownloadUpdateKind
		state schema.DownloadState
	}{
		{browser.DownloadProgressStateInProgress, schema.DownloadUpdated, schema.DownloadProgressing},
		{browser.DownloadProgressStateCompleted, schema.DownloadDone, schema.DownloadCompleted},
		{browser.DownloadProgressStateCanceled, schema.DownloadDone, schema.DownloadCancelled},
	}
	for _, tc := range cases {
		kind, state := progressState(tc.in)
		if kind != tc.kind || state != tc.state {
			t.Fatalf("%s: expected %s/%s, got %s/%s", tc.in, tc.kind, tc.state, kind, state)
		}
	}
}

func TestAllocatorOptionsIncludeProfileAndSize(t *testing.T) {
	base := len(allocatorOptions(Config{}))
	got := len(allocatorOptions(Config{UserDataDir: "/tmp/p", WindowWidth: 800, WindowHeight: 600, NoSandbox: true, ExecPath: "/usr/bin/chromium"}))
	if got != base+4 {
		t.Fatalf("expected 4 extra options, got %d", got-base)
	}
}

func TestHostRequiresStart(t *testing.T) {
	h := New(Config{Logger: testLogger()}, nil)
	if err := h.OpenSession(context.Background(), "main", true); !errors.Is(err, ErrNotStarted) {
		t.Fatalf("expected ErrNotStarted, got %v", err)
	}
	if _, err := h.NewSurface(context.Background(), core.SurfaceRequest{WindowID: "main", TabID: "t"}); !errors.Is(err, schema.ErrWindowNotFound) {
		t.Fatalf("expected ErrWindowNotFound, got %v", err)
	}
	if err := h.CloseSession(context.Background(), "main"); err != nil {
		t.Fatalf("expected close of unknown session to succeed, got %v", err)
	}
	h.Stop()
}

var _ core.Host = (*Host)(nil)
var _ core.Surface = (*surface)(nil)
var _ core.Inspector = (*surface)(nil)
