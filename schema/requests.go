package schema

// Window lifecycle.

// OpenWindowRequest describes a request to open a window.
type OpenWindowRequest struct {
	WindowID   WindowID
	Incognito  bool
	InitialURL string
}

// OpenWindowResponse reports the opened window.
type OpenWindowResponse struct {
	Window WindowSnapshot
}

// CloseWindowRequest describes a request to close a window.
type CloseWindowRequest struct {
	WindowID WindowID
}

// CloseWindowResponse reports the closed window.
type CloseWindowResponse struct {
	Window WindowSnapshot
}

// ListWindowsResponse reports open windows.
type ListWindowsResponse struct {
	Windows []WindowSnapshot
}

// Tab lifecycle.

// OpenTabRequest describes a request to open a tab. An empty URL opens the window default.
type OpenTabRequest struct {
	WindowID WindowID
	URL      string
}

// OpenTabResponse reports the opened tab.
type OpenTabResponse struct {
	Tab TabSnapshot
}

// CloseTabRequest describes a request to close a tab.
type CloseTabRequest struct {
	WindowID WindowID
	TabID    TabID
}

// CloseTabResponse reports whether the tab was closed and which tab is now active.
type CloseTabResponse struct {
	Closed    bool
	ActiveTab TabID
}

// ActivateTabRequest describes a request to activate a tab.
type ActivateTabRequest struct {
	WindowID WindowID
	TabID    TabID
}

// ActivateTabResponse reports the active tab after the request.
type ActivateTabResponse struct {
	Tab TabSnapshot
}

// NextTabRequest describes a request to cycle to the following tab.
type NextTabRequest struct {
	WindowID WindowID
}

// ReorderTabsRequest describes a new tab strip order.
type ReorderTabsRequest struct {
	WindowID WindowID
	Order    []TabID
}

// ListTabsRequest describes a request to list tabs.
type ListTabsRequest struct {
	WindowID WindowID
}

// ListTabsResponse reports tabs in strip order and the active tab.
type ListTabsResponse struct {
	Tabs      []TabSnapshot
	ActiveTab TabID
	Shell     ShellState
}

// Navigation.

// SubmitRequest carries free-form address bar input for the active tab.
type SubmitRequest struct {
	WindowID WindowID
	Input    string
}

// SubmitResponse reports the resolved navigation target.
type SubmitResponse struct {
	TabID    TabID
	URL      string
	IsSearch bool
	Handled  bool
}

// NavigateRequest loads a URL verbatim in the active tab.
type NavigateRequest struct {
	WindowID WindowID
	URL      string
}

// NavControlRequest targets the active tab of a window with a navigation control.
type NavControlRequest struct {
	WindowID WindowID
}

// MenuCommandRequest routes a context menu choice to the active tab.
type MenuCommandRequest struct {
	WindowID WindowID
	Command  MenuCommand
}

// Profile.

// ToggleBookmarkRequest toggles the bookmark for the active tab of a window.
type ToggleBookmarkRequest struct {
	WindowID WindowID
}

// ToggleBookmarkResponse reports the bookmark list after the toggle.
type ToggleBookmarkResponse struct {
	Bookmarks  []BookmarkItem
	Bookmarked bool
}

// UpdateSettingRequest updates a single setting.
type UpdateSettingRequest struct {
	Key   SettingKey
	Value any
}

// GetHistoryResponse reports history newest first.
type GetHistoryResponse struct {
	History []HistoryItem
}

// GetBookmarksResponse reports bookmarks in insertion order.
type GetBookmarksResponse struct {
	Bookmarks []BookmarkItem
}

// ClearDataRequest clears browsing data for a window's profile.
type ClearDataRequest struct {
	WindowID WindowID
}

// ListDownloadsResponse reports downloads newest first.
type ListDownloadsResponse struct {
	Downloads   []DownloadSnapshot
	ActiveCount int
}
