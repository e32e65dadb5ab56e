// Package chromehost drives headless Chrome through chromedp and exposes it
// as the render host for the browser service.
package chromehost

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"pkt.systems/ayen/core"
	"pkt.systems/ayen/internal/shield"
	"pkt.systems/ayen/schema"
	"pkt.systems/pslog"
)

// Config configures the Chrome host.
type Config struct {
	// ExecPath overrides the Chrome binary lookup.
	ExecPath string
	Headless bool
	NoSandbox bool
	// UserDataDir holds the persistent profile; empty uses a temp dir.
	UserDataDir  string
	DownloadDir  string
	WindowWidth  int
	WindowHeight int
	Logger       pslog.Logger
}

// Host implements core.Host over a single Chrome process.
type Host struct {
	cfg    Config
	shield *shield.Shield
	log    pslog.Logger

	mu          sync.Mutex
	allocCtx    context.Context
	allocCancel context.CancelFunc
	browserCtx  context.Context
	browserStop context.CancelFunc
	sessions    map[schema.WindowID]*session
	downloads   *downloadRelay
	started     bool
}

// session is the Chrome browser context behind one window.
type session struct {
	ctx        context.Context
	cancel     context.CancelFunc
	persistent bool
}

// ErrNotStarted is returned when the host is used before Start.
var ErrNotStarted = errors.New("chrome host not started")

// New returns a host; sh may be nil to disable request filtering.
func New(cfg Config, sh *shield.Shield) *Host {
	log := cfg.Logger
	if log == nil {
		log = pslog.Ctx(context.Background())
	}
	log = log.With("component", "chromehost")
	return &Host{
		cfg:       cfg,
		shield:    sh,
		log:       log,
		sessions:  make(map[schema.WindowID]*session),
		downloads: newDownloadRelay(cfg.DownloadDir, log),
	}
}

// SetDownloadHandler registers fn for download notifications.
func (h *Host) SetDownloadHandler(fn func(schema.DownloadUpdate)) {
	h.downloads.setHandler(fn)
}

// Start launches Chrome. The process lives until ctx is cancelled or Stop is called.
func (h *Host) Start(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.started {
		return nil
	}
	if dir := strings.TrimSpace(h.cfg.DownloadDir); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("download dir: %w", err)
		}
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocatorOptions(h.cfg)...)
	browserCtx, browserStop := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(h.logf(h.log.Debug)),
		chromedp.WithErrorf(h.logf(h.log.Debug)),
	)
	if err := chromedp.Run(browserCtx); err != nil {
		browserStop()
		allocCancel()
		return fmt.Errorf("start chrome: %w", err)
	}
	h.allocCtx, h.allocCancel = allocCtx, allocCancel
	h.browserCtx, h.browserStop = browserCtx, browserStop
	h.started = true
	h.log.Info("chromehost started", "headless", h.cfg.Headless, "profile", h.cfg.UserDataDir)
	return nil
}

// Stop closes every session and the Chrome process.
func (h *Host) Stop() {
	h.mu.Lock()
	sessions := h.sessions
	h.sessions = make(map[schema.WindowID]*session)
	browserStop, allocCancel := h.browserStop, h.allocCancel
	started := h.started
	h.started = false
	h.mu.Unlock()
	if !started {
		return
	}
	for _, sess := range sessions {
		sess.cancel()
	}
	browserStop()
	allocCancel()
	h.log.Info("chromehost stopped")
}

// OpenSession creates the browser context for a window. The persistent
// window shares the on-disk profile; incognito windows get a disposable
// browser context.
func (h *Host) OpenSession(ctx context.Context, windowID schema.WindowID, persistent bool) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.started {
		return ErrNotStarted
	}
	if _, ok := h.sessions[windowID]; ok {
		return fmt.Errorf("session %s: %w", windowID, schema.ErrWindowExists)
	}
	var opts []chromedp.ContextOption
	if !persistent {
		opts = append(opts, chromedp.WithNewBrowserContext())
	}
	sessCtx, cancel := chromedp.NewContext(h.browserCtx, opts...)
	if err := chromedp.Run(sessCtx); err != nil {
		cancel()
		return fmt.Errorf("open session %s: %w", windowID, err)
	}
	h.sessions[windowID] = &session{ctx: sessCtx, cancel: cancel, persistent: persistent}
	h.log.Info("chromehost session opened", "window", windowID, "persistent", persistent)
	return nil
}

// CloseSession disposes of a window's browser context and its tabs.
func (h *Host) CloseSession(ctx context.Context, windowID schema.WindowID) error {
	h.mu.Lock()
	sess, ok := h.sessions[windowID]
	delete(h.sessions, windowID)
	h.mu.Unlock()
	if !ok {
		return nil
	}
	sess.cancel()
	if h.shield != nil {
		h.shield.Forget(windowID)
	}
	h.log.Info("chromehost session closed", "window", windowID)
	return nil
}

// NewSurface opens a Chrome tab in the window's browser context.
func (h *Host) NewSurface(ctx context.Context, req core.SurfaceRequest) (core.Surface, error) {
	h.mu.Lock()
	sess, ok := h.sessions[req.WindowID]
	h.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("surface %s: %w", req.TabID, schema.ErrWindowNotFound)
	}
	s := newSurface(h, req, sess.ctx)
	if err := s.start(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// SetBlocking turns request filtering on or off for a window.
func (h *Host) SetBlocking(windowID schema.WindowID, enabled bool) {
	if h.shield == nil {
		return
	}
	h.shield.SetEnabled(windowID, enabled)
}

// ClearStorage clears cookies and cache for a window's browser context.
func (h *Host) ClearStorage(ctx context.Context, windowID schema.WindowID) error {
	h.mu.Lock()
	sess, ok := h.sessions[windowID]
	h.mu.Unlock()
	if !ok {
		return fmt.Errorf("clear storage %s: %w", windowID, schema.ErrWindowNotFound)
	}
	runCtx, cancel := mergeDeadline(sess.ctx, ctx)
	defer cancel()
	if err := chromedp.Run(runCtx, network.ClearBrowserCookies(), network.ClearBrowserCache()); err != nil {
		return fmt.Errorf("clear storage %s: %w", windowID, err)
	}
	h.log.Info("chromehost storage cleared", "window", windowID)
	return nil
}

func (h *Host) logf(fn func(string, ...any)) func(string, ...any) {
	return func(format string, args ...any) {
		fn("chromedp " + fmt.Sprintf(format, args...))
	}
}

func allocatorOptions(cfg Config) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption(nil), chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", cfg.Headless),
	)
	if cfg.NoSandbox {
		opts = append(opts, chromedp.Flag("no-sandbox", true))
	}
	if path := strings.TrimSpace(cfg.ExecPath); path != "" {
		opts = append(opts, chromedp.ExecPath(path))
	}
	if dir := strings.TrimSpace(cfg.UserDataDir); dir != "" {
		opts = append(opts, chromedp.UserDataDir(filepath.Clean(dir)))
	}
	if cfg.WindowWidth > 0 && cfg.WindowHeight > 0 {
		opts = append(opts, chromedp.WindowSize(cfg.WindowWidth, cfg.WindowHeight))
	}
	return opts
}

// mergeDeadline derives from the chromedp context so actions target the
// right browser, while honoring cancellation of the caller's context.
func mergeDeadline(base, caller context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(base)
	if caller == nil {
		return ctx, cancel
	}
	if deadline, ok := caller.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		ctx, cancelDeadline = context.WithDeadline(ctx, deadline)
		prev := cancel
		cancel = func() { cancelDeadline(); prev() }
	}
	stop := context.AfterFunc(caller, cancel)
	return ctx, func() { stop(); cancel() }
}
