package schema

import "time"

// TabSnapshot is a read-only view of tab state for transports.
type TabSnapshot struct {
	ID        TabID  `json:"id"`
	URL       string `json:"url"`
	Title     string `json:"title"`
	IsLoading bool   `json:"isLoading"`
	Favicon   string `json:"favicon,omitempty"`
	Active    bool   `json:"active"`
}

// TabPatch carries the fields to merge into a tab. Nil fields are left untouched.
type TabPatch struct {
	URL       *string
	Title     *string
	IsLoading *bool
	Favicon   *string
}

// Empty reports whether the patch changes nothing.
func (p TabPatch) Empty() bool {
	return p.URL == nil && p.Title == nil && p.IsLoading == nil && p.Favicon == nil
}

// ShellState mirrors the active tab into window-level display state.
type ShellState struct {
	AddressBar string `json:"addressBar"`
	Loading    bool   `json:"loading"`
	Bookmarked bool   `json:"bookmarked"`
}

// WindowSnapshot is a read-only view of a window.
type WindowSnapshot struct {
	ID         WindowID   `json:"id"`
	Persistent bool       `json:"persistent"`
	Tabs       int        `json:"tabs"`
	ActiveTab  TabID      `json:"activeTab"`
	Shell      ShellState `json:"shell"`
}

// DownloadState describes where a download is in its lifecycle.
type DownloadState string

const (
	// DownloadProgressing indicates bytes are still arriving.
	DownloadProgressing DownloadState = "progressing"
	// DownloadPaused indicates the host paused the download.
	DownloadPaused DownloadState = "paused"
	// DownloadInterrupted indicates the transfer stalled or failed mid-way.
	DownloadInterrupted DownloadState = "interrupted"
	// DownloadCompleted indicates the file finished downloading.
	DownloadCompleted DownloadState = "completed"
	// DownloadCancelled indicates the download was cancelled.
	DownloadCancelled DownloadState = "cancelled"
)

// Terminal reports whether no further updates are expected.
func (s DownloadState) Terminal() bool {
	return s == DownloadCompleted || s == DownloadCancelled
}

// DownloadSnapshot is a read-only view of a download.
type DownloadSnapshot struct {
	ID            DownloadID    `json:"id"`
	WindowID      WindowID      `json:"windowId,omitempty"`
	Filename      string        `json:"filename"`
	URL           string        `json:"url,omitempty"`
	State         DownloadState `json:"state"`
	ReceivedBytes int64         `json:"receivedBytes"`
	TotalBytes    int64         `json:"totalBytes"`
	Percentage    float64       `json:"percentage"`
	StartedAt     time.Time     `json:"startedAt"`
}

// DownloadUpdateKind identifies what a host download notification reports.
type DownloadUpdateKind string

const (
	// DownloadStarted reports a new download.
	DownloadStarted DownloadUpdateKind = "started"
	// DownloadUpdated reports progress or a pause/interrupt of a running download.
	DownloadUpdated DownloadUpdateKind = "updated"
	// DownloadDone reports a terminal state.
	DownloadDone DownloadUpdateKind = "done"
)

// DownloadUpdate is a host notification about a download, correlated by ID.
type DownloadUpdate struct {
	Kind          DownloadUpdateKind
	ID            DownloadID
	WindowID      WindowID
	Filename      string
	URL           string
	State         DownloadState
	ReceivedBytes int64
	TotalBytes    int64
}
