package chromehost

import (
	"context"
	"sync"
	"time"

	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"

	"pkt.systems/ayen/core"
	"pkt.systems/ayen/schema"
	"pkt.systems/pslog"
)

const (
	setupTimeout   = 15 * time.Second
	commandTimeout = 60 * time.Second
	queryTimeout   = 5 * time.Second
)

// surface is one Chrome tab bound to a browser tab id.
type surface struct {
	host     *Host
	windowID schema.WindowID
	tabID    schema.TabID
	ctx      context.Context
	cancel   context.CancelFunc
	log      pslog.Logger

	mu       sync.Mutex
	handler  func(schema.SurfaceEvent)
	targetID target.ID
	url      string
	seen     pageTitle
	closed   bool
}

// pageTitle is the last document title read and the URL it was read at.
type pageTitle struct {
	url   string
	title string
}

// at returns the title when it was read at url.
func (p pageTitle) at(url string) string {
	if url == "" || p.url != url {
		return ""
	}
	return p.title
}

func newSurface(h *Host, req core.SurfaceRequest, parent context.Context) *surface {
	ctx, cancel := chromedp.NewContext(parent)
	return &surface{
		host:     h,
		windowID: req.WindowID,
		tabID:    req.TabID,
		ctx:      ctx,
		cancel:   cancel,
		log:      h.log.With("window", req.WindowID, "tab", req.TabID),
	}
}

// start creates the target and installs listeners, the context menu bridge,
// download reporting and request interception.
func (s *surface) start() error {
	chromedp.ListenTarget(s.ctx, s.onEvent)
	actions := []chromedp.Action{
		runtime.AddBinding(contextMenuBinding),
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(contextMenuScript).Do(ctx)
			return err
		}),
	}
	if dir := s.host.downloads.dir; dir != "" {
		actions = append(actions, browser.SetDownloadBehavior(browser.SetDownloadBehaviorBehaviorAllowAndName).
			WithDownloadPath(dir).
			WithEventsEnabled(true))
	}
	if s.host.shield != nil {
		actions = append(actions, fetch.Enable())
	}
	ctx, cancel := context.WithTimeout(s.ctx, setupTimeout)
	defer cancel()
	if err := chromedp.Run(ctx, actions...); err != nil {
		return err
	}
	if t := chromedp.FromContext(s.ctx).Target; t != nil {
		s.mu.Lock()
		s.targetID = t.TargetID
		s.mu.Unlock()
	}
	s.log.Debug("chromehost surface ready")
	return nil
}

func (s *surface) Subscribe(handler func(schema.SurfaceEvent)) func() {
	s.mu.Lock()
	s.handler = handler
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		s.handler = nil
		s.mu.Unlock()
	}
}

func (s *surface) emit(ev schema.SurfaceEvent) {
	s.mu.Lock()
	handler := s.handler
	s.mu.Unlock()
	if handler != nil {
		handler(ev)
	}
}

func (s *surface) Navigate(url string) {
	s.run("navigate", chromedp.Navigate(url))
}

func (s *surface) Back() {
	s.run("back", chromedp.NavigateBack())
}

func (s *surface) Forward() {
	s.run("forward", chromedp.NavigateForward())
}

func (s *surface) Reload() {
	s.run("reload", chromedp.Reload())
}

func (s *surface) Stop() {
	s.run("stop", chromedp.Stop())
}

// Inspect logs the DevTools target so a remote debugger can attach.
func (s *surface) Inspect() {
	s.mu.Lock()
	id := s.targetID
	s.mu.Unlock()
	s.log.Info("chromehost inspect requested", "target", id)
}

func (s *surface) CanGoBack() bool {
	current, entries, ok := s.history()
	return ok && current > 0 && len(entries) > 0
}

func (s *surface) CanGoForward() bool {
	current, entries, ok := s.history()
	return ok && int(current) < len(entries)-1
}

func (s *surface) history() (int64, []*page.NavigationEntry, bool) {
	ctx, cancel := context.WithTimeout(s.ctx, queryTimeout)
	defer cancel()
	var current int64
	var entries []*page.NavigationEntry
	if err := chromedp.Run(ctx, chromedp.NavigationEntries(&current, &entries)); err != nil {
		s.log.Debug("chromehost history read failed", "err", err)
		return 0, nil, false
	}
	return current, entries, true
}

func (s *surface) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.handler = nil
	s.mu.Unlock()
	s.cancel()
	s.log.Debug("chromehost surface closed")
}

// run executes action off the caller's goroutine; outcomes arrive as events.
func (s *surface) run(op string, action chromedp.Action) {
	go func() {
		ctx, cancel := context.WithTimeout(s.ctx, commandTimeout)
		defer cancel()
		if err := chromedp.Run(ctx, action); err != nil && s.ctx.Err() == nil {
			s.log.Warn("chromehost command failed", "op", op, "err", err)
		}
	}()
}

func (s *surface) currentURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.url
}

// knownTitle is the title already read for url, empty on first visits.
func (s *surface) knownTitle(url string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seen.at(url)
}

func (s *surface) setURL(url string) {
	s.mu.Lock()
	s.url = url
	s.mu.Unlock()
}

func (s *surface) isMainFrame(id cdp.FrameID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.targetID != "" && string(id) == string(s.targetID)
}

// onEvent runs on chromedp's event goroutine; anything that issues commands
// is moved to its own goroutine.
func (s *surface) onEvent(ev any) {
	switch ev := ev.(type) {
	case *page.EventFrameNavigated:
		if ev.Frame == nil || ev.Frame.ParentID != "" {
			return
		}
		url := frameURL(ev.Frame)
		s.setURL(url)
		s.emit(schema.SurfaceEvent{Type: schema.SurfaceNavigated, URL: url, Title: s.knownTitle(url)})
	case *page.EventNavigatedWithinDocument:
		if !s.isMainFrame(ev.FrameID) {
			return
		}
		s.setURL(ev.URL)
		s.emit(schema.SurfaceEvent{Type: schema.SurfaceNavigatedInPage, URL: ev.URL})
		go s.readHead()
	case *page.EventFrameStartedLoading:
		if !s.isMainFrame(ev.FrameID) {
			return
		}
		s.emit(schema.SurfaceEvent{Type: schema.SurfaceLoadStart})
	case *page.EventFrameStoppedLoading:
		if !s.isMainFrame(ev.FrameID) {
			return
		}
		s.emit(schema.SurfaceEvent{Type: schema.SurfaceLoadStop})
		go s.readHead()
	case *runtime.EventBindingCalled:
		if ev.Name != contextMenuBinding {
			return
		}
		menu, err := parseContextMenu(ev.Payload)
		if err != nil {
			s.log.Debug("chromehost context menu payload rejected", "err", err)
			return
		}
		s.emit(schema.SurfaceEvent{Type: schema.SurfaceContextMenu, Menu: menu})
	case *fetch.EventRequestPaused:
		go s.filter(ev)
	case *browser.EventDownloadWillBegin:
		s.host.downloads.begin(s.windowID, ev)
	case *browser.EventDownloadProgress:
		s.host.downloads.progress(ev)
	}
}

// readHead reads the document title and icon links after a load settles.
func (s *surface) readHead() {
	ctx, cancel := context.WithTimeout(s.ctx, queryTimeout)
	defer cancel()
	var title, head, location string
	err := chromedp.Run(ctx,
		chromedp.Title(&title),
		chromedp.Location(&location),
		chromedp.OuterHTML("head", &head, chromedp.ByQuery),
	)
	if err != nil {
		if s.ctx.Err() == nil {
			s.log.Trace("chromehost head read failed", "err", err)
		}
		return
	}
	s.mu.Lock()
	s.seen = pageTitle{url: location, title: title}
	s.mu.Unlock()
	if title != "" {
		s.emit(schema.SurfaceEvent{Type: schema.SurfaceTitleUpdated, Title: title})
	}
	if icons := faviconCandidates(location, head); len(icons) > 0 {
		s.emit(schema.SurfaceEvent{Type: schema.SurfaceFaviconUpdated, Favicons: icons})
	}
}

// filter answers a paused request: blocked requests fail as blocked by
// client, everything else continues unchanged.
func (s *surface) filter(ev *fetch.EventRequestPaused) {
	c := chromedp.FromContext(s.ctx)
	if c == nil || c.Target == nil {
		return
	}
	exec := cdp.WithExecutor(s.ctx, c.Target)
	requestURL := ""
	if ev.Request != nil {
		requestURL = ev.Request.URL
	}
	blocked := s.host.shield.Check(s.windowID, requestURL, s.currentURL(), string(ev.ResourceType))
	var err error
	if blocked {
		err = fetch.FailRequest(ev.RequestID, network.ErrorReasonBlockedByClient).Do(exec)
	} else {
		err = fetch.ContinueRequest(ev.RequestID).Do(exec)
	}
	if err != nil && s.ctx.Err() == nil {
		s.log.Trace("chromehost request resume failed", "url", requestURL, "blocked", blocked, "err", err)
	}
}
