package logx

import (
	"context"

	"pkt.systems/ayen/schema"
	"pkt.systems/pslog"
)

type contextKey int

const windowKey contextKey = 0

// Ctx returns the logger bound to the provided context.
func Ctx(ctx context.Context) pslog.Logger {
	return pslog.Ctx(ctx)
}

// WithWindow annotates the logger with the window id if present.
func WithWindow(ctx context.Context, windowID schema.WindowID) pslog.Logger {
	log := pslog.Ctx(ctx)
	if windowID != "" {
		if current, ok := ctx.Value(windowKey).(schema.WindowID); ok && current == windowID {
			return log
		}
		log = log.With("window", windowID)
	}
	return log
}

// WithWindowTab annotates the logger with window and tab identifiers.
func WithWindowTab(ctx context.Context, windowID schema.WindowID, tabID schema.TabID) pslog.Logger {
	log := WithWindow(ctx, windowID)
	if tabID != "" {
		log = log.With("tab", tabID)
	}
	return log
}

// WithDownload annotates the logger with download metadata when available.
func WithDownload(log pslog.Logger, download schema.DownloadSnapshot) pslog.Logger {
	if download.ID != "" {
		log = log.With("download", download.ID)
	}
	if download.Filename != "" {
		log = log.With("filename", download.Filename)
	}
	return log
}

// ContextWithWindow stores the window marker on the context for log de-duplication.
func ContextWithWindow(ctx context.Context, windowID schema.WindowID) context.Context {
	if ctx == nil || windowID == "" {
		return ctx
	}
	return context.WithValue(ctx, windowKey, windowID)
}

// ContextWithWindowLogger attaches the logger and window marker to the context.
func ContextWithWindowLogger(ctx context.Context, log pslog.Logger, windowID schema.WindowID) context.Context {
	ctx = pslog.ContextWithLogger(ctx, log)
	return ContextWithWindow(ctx, windowID)
}
