package core

import (
	"context"

	"pkt.systems/ayen/schema"
)

// Service is the transport-agnostic API for windows, tabs, navigation, and profile data.
type Service interface {
	OpenWindow(ctx context.Context, req schema.OpenWindowRequest) (schema.OpenWindowResponse, error)
	CloseWindow(ctx context.Context, req schema.CloseWindowRequest) (schema.CloseWindowResponse, error)
	ListWindows(ctx context.Context) (schema.ListWindowsResponse, error)

	OpenTab(ctx context.Context, req schema.OpenTabRequest) (schema.OpenTabResponse, error)
	CloseTab(ctx context.Context, req schema.CloseTabRequest) (schema.CloseTabResponse, error)
	ActivateTab(ctx context.Context, req schema.ActivateTabRequest) (schema.ActivateTabResponse, error)
	NextTab(ctx context.Context, req schema.NextTabRequest) (schema.ActivateTabResponse, error)
	ReorderTabs(ctx context.Context, req schema.ReorderTabsRequest) (schema.ListTabsResponse, error)
	ListTabs(ctx context.Context, req schema.ListTabsRequest) (schema.ListTabsResponse, error)
	Shell(ctx context.Context, windowID schema.WindowID) (schema.ShellState, error)

	Submit(ctx context.Context, req schema.SubmitRequest) (schema.SubmitResponse, error)
	Navigate(ctx context.Context, req schema.NavigateRequest) (schema.SubmitResponse, error)
	Back(ctx context.Context, req schema.NavControlRequest) error
	Forward(ctx context.Context, req schema.NavControlRequest) error
	Reload(ctx context.Context, req schema.NavControlRequest) error
	Stop(ctx context.Context, req schema.NavControlRequest) error
	MenuCommand(ctx context.Context, req schema.MenuCommandRequest) error

	ToggleBookmark(ctx context.Context, req schema.ToggleBookmarkRequest) (schema.ToggleBookmarkResponse, error)
	GetBookmarks(ctx context.Context) (schema.GetBookmarksResponse, error)
	GetHistory(ctx context.Context) (schema.GetHistoryResponse, error)
	ClearHistory(ctx context.Context) error
	GetSettings(ctx context.Context) (schema.Settings, error)
	UpdateSetting(ctx context.Context, req schema.UpdateSettingRequest) (schema.Settings, error)
	ClearData(ctx context.Context, req schema.ClearDataRequest) error

	RecordDownload(update schema.DownloadUpdate)
	ListDownloads(ctx context.Context) (schema.ListDownloadsResponse, error)

	Close(ctx context.Context) error
}
