package chromehost

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/chromedp/cdproto/browser"

	"pkt.systems/ayen/schema"
	"pkt.systems/pslog"
)

// downloadRelay turns Chrome download events into service updates. Every
// tab of a browser context observes the same download, so events are
// deduplicated per GUID.
type downloadRelay struct {
	dir string
	log pslog.Logger

	mu      sync.Mutex
	handler func(schema.DownloadUpdate)
	active  map[string]*relayedDownload
}

type relayedDownload struct {
	windowID schema.WindowID
	filename string
	url      string
	state    browser.DownloadProgressState
	received int64
}

func newDownloadRelay(dir string, log pslog.Logger) *downloadRelay {
	return &downloadRelay{
		dir:    strings.TrimSpace(dir),
		log:    log,
		active: make(map[string]*relayedDownload),
	}
}

func (r *downloadRelay) setHandler(fn func(schema.DownloadUpdate)) {
	r.mu.Lock()
	r.handler = fn
	r.mu.Unlock()
}

func (r *downloadRelay) begin(windowID schema.WindowID, ev *browser.EventDownloadWillBegin) {
	r.mu.Lock()
	if _, ok := r.active[ev.GUID]; ok {
		r.mu.Unlock()
		return
	}
	item := &relayedDownload{windowID: windowID, filename: ev.SuggestedFilename, url: ev.URL}
	r.active[ev.GUID] = item
	handler := r.handler
	r.mu.Unlock()
	r.log.Debug("chromehost download begin", "guid", ev.GUID, "filename", ev.SuggestedFilename)
	if handler != nil {
		handler(schema.DownloadUpdate{
			Kind:     schema.DownloadStarted,
			ID:       schema.DownloadID(ev.GUID),
			WindowID: windowID,
			Filename: ev.SuggestedFilename,
			URL:      ev.URL,
		})
	}
}

func (r *downloadRelay) progress(ev *browser.EventDownloadProgress) {
	received := int64(ev.ReceivedBytes)
	r.mu.Lock()
	item, ok := r.active[ev.GUID]
	if !ok || (item.state == ev.State && item.received == received) {
		r.mu.Unlock()
		return
	}
	item.state = ev.State
	item.received = received
	kind, state := progressState(ev.State)
	if kind == schema.DownloadDone {
		delete(r.active, ev.GUID)
	}
	handler := r.handler
	r.mu.Unlock()

	filename := ""
	if kind == schema.DownloadDone && state == schema.DownloadCompleted {
		filename = r.finalize(ev.GUID, item.filename)
	}
	if handler != nil {
		handler(schema.DownloadUpdate{
			Kind:          kind,
			ID:            schema.DownloadID(ev.GUID),
			WindowID:      item.windowID,
			Filename:      filename,
			State:         state,
			ReceivedBytes: received,
			TotalBytes:    int64(ev.TotalBytes),
		})
	}
}

// finalize renames the GUID-named file Chrome wrote to its suggested name
// and returns the name used, or "" when the file stays as written.
func (r *downloadRelay) finalize(guid, suggested string) string {
	if r.dir == "" {
		return ""
	}
	src := filepath.Join(r.dir, guid)
	if _, err := os.Stat(src); err != nil {
		return ""
	}
	dst := uniquePath(r.dir, suggested)
	if err := os.Rename(src, dst); err != nil {
		r.log.Warn("chromehost download rename failed", "guid", guid, "err", err)
		return ""
	}
	return filepath.Base(dst)
}

func progressState(state browser.DownloadProgressState) (schema.DownloadUpdateKind, schema.DownloadState) {
	switch state {
	case browser.DownloadProgressStateCompleted:
		return schema.DownloadDone, schema.DownloadCompleted
	case browser.DownloadProgressStateCanceled:
		return schema.DownloadDone, schema.DownloadCancelled
	default:
		return schema.DownloadUpdated, schema.DownloadProgressing
	}
}

// uniquePath returns dir/name, adding " (n)" before the extension when the
// name is taken.
func uniquePath(dir, name string) string {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = "download"
	}
	candidate := filepath.Join(dir, name)
	if _, err := os.Stat(candidate); os.IsNotExist(err) {
		return candidate
	}
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for i := 1; ; i++ {
		candidate = filepath.Join(dir, fmt.Sprintf("%s (%d)%s", stem, i, ext))
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}
