package ayen

import (
	"context"
	"errors"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"pkt.systems/ayen/core"
	"pkt.systems/ayen/httpapi"
	"pkt.systems/ayen/internal/chromehost"
	"pkt.systems/ayen/internal/metrics"
	"pkt.systems/ayen/internal/profile"
	"pkt.systems/ayen/internal/shield"
	"pkt.systems/ayen/schema"
	"pkt.systems/pslog"
)

// Server composes the browser service, Chrome host, shield, and control API.
type Server interface {
	Start(ctx context.Context) error
	Wait() error
	Stop(ctx context.Context) error
	// Service exposes the browser service for in-process callers.
	Service() core.Service
}

// ServerConfig configures the compositor.
type ServerConfig struct {
	Service schema.ServiceConfig
	HTTP    httpapi.Config
	Profile ProfileConfig
	Browser chromehost.Config
	Shield  shield.Config
	// RefreshShield fetches remote filter lists in the background on Start.
	RefreshShield bool
	HubHistory    int
}

// ProfileConfig selects the profile store.
type ProfileConfig struct {
	Backend profile.Backend
	Dir     string
}

// ServerDeps captures dependencies that override the defaults New builds.
type ServerDeps struct {
	// Host replaces the Chrome host; used together with WithBrowser.
	Host core.Host
	// Store replaces the configured profile store.
	Store    profile.Store
	Registry *prometheus.Registry
	Logger   pslog.Logger
}

// ServerOption toggles compositor components.
type ServerOption func(*serverOptions)

type serverOptions struct {
	enableHTTP    bool
	enableBrowser bool
}

// WithHTTP enables the HTTP control API.
func WithHTTP() ServerOption {
	return func(o *serverOptions) { o.enableHTTP = true }
}

// WithBrowser enables the render host. Without it the service tracks tab
// state only.
func WithBrowser() ServerOption {
	return func(o *serverOptions) { o.enableBrowser = true }
}

// hostLifecycle is implemented by hosts that own a browser process.
type hostLifecycle interface {
	Start(ctx context.Context) error
	Stop()
}

// New constructs a composable ayen server.
func New(cfg ServerConfig, deps ServerDeps, opts ...ServerOption) (Server, error) {
	options := serverOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	if !options.enableHTTP && !options.enableBrowser {
		return nil, errors.New("no services enabled")
	}
	normalized, err := schema.NormalizeServiceConfig(cfg.Service)
	if err != nil {
		return nil, err
	}
	cfg.Service = normalized

	logger := deps.Logger
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}

	store := deps.Store
	if store == nil {
		backend := cfg.Profile.Backend
		if backend == "" {
			backend = profile.BackendMemory
		}
		store, err = profile.Open(backend, cfg.Profile.Dir, profile.Options{HistoryMax: cfg.Service.HistoryMax, Logger: logger})
		if err != nil {
			return nil, err
		}
	}

	if cfg.Shield.Logger == nil {
		cfg.Shield.Logger = logger
	}
	sh, err := shield.New(cfg.Shield)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	var host core.Host
	var chrome *chromehost.Host
	if options.enableBrowser {
		host = deps.Host
		if host == nil {
			if cfg.Browser.Logger == nil {
				cfg.Browser.Logger = logger
			}
			chrome = chromehost.New(cfg.Browser, sh)
			host = chrome
		}
	}

	registry := deps.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	hub := httpapi.NewHub(cfg.HubHistory, logger)
	collectors := metrics.New(registry)
	fanout := eventFanout{sinks: []core.EventSink{hub, collectors}}
	sh.Subscribe(fanout.OnShieldEvent)

	service, err := core.NewService(cfg.Service, core.ServiceDeps{
		Host:      host,
		Store:     store,
		EventSink: fanout,
		Logger:    logger,
	})
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	if chrome != nil {
		chrome.SetDownloadHandler(service.RecordDownload)
	}

	var httpSrv *httpapi.Server
	if options.enableHTTP {
		httpSrv = httpapi.NewServer(cfg.HTTP, httpapi.Deps{
			Service:  service,
			Hub:      hub,
			Shield:   sh,
			Observer: collectors,
			Gatherer: registry,
		})
	}

	return &compositeServer{
		cfg:     cfg,
		options: options,
		service: service,
		host:    host,
		store:   store,
		shield:  sh,
		httpSrv: httpSrv,
	}, nil
}

type compositeServer struct {
	cfg     ServerConfig
	options serverOptions
	service core.Service
	host    core.Host
	store   profile.Store
	shield  *shield.Shield
	httpSrv *httpapi.Server
	logger  pslog.Logger

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	errCh   chan error
	started bool
	stopped bool
}

func (s *compositeServer) Service() core.Service {
	return s.service
}

func (s *compositeServer) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		pslog.Ctx(ctx).Warn("server start rejected", "reason", "already started")
		return errors.New("server already started")
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.errCh = make(chan error, 2)
	s.started = true
	s.logger = pslog.Ctx(s.ctx)
	s.mu.Unlock()

	log := s.logger
	log.Info(
		"server start",
		"http", s.options.enableHTTP,
		"browser", s.options.enableBrowser,
		"http_addr", s.cfg.HTTP.Addr,
		"http_base_path", s.cfg.HTTP.BasePath,
		"profile_backend", s.cfg.Profile.Backend,
	)
	if lifecycle, ok := s.host.(hostLifecycle); ok {
		if err := lifecycle.Start(s.ctx); err != nil {
			log.Error("browser host start failed", "err", err)
			s.cancel()
			return err
		}
	}
	if s.cfg.RefreshShield {
		go func() {
			if err := s.shield.Refresh(s.ctx); err != nil {
				log.Warn("shield refresh failed; prebuilt list stays active", "err", err)
			}
		}()
	}
	if _, err := s.service.OpenWindow(s.ctx, schema.OpenWindowRequest{WindowID: schema.MainWindowID}); err != nil && !errors.Is(err, schema.ErrWindowExists) {
		log.Error("main window open failed", "err", err)
		s.cancel()
		return err
	}
	if s.options.enableHTTP && s.httpSrv != nil {
		go func() {
			if err := httpapi.ListenAndServe(s.ctx, s.cfg.HTTP.Addr, s.httpSrv.Handler()); err != nil {
				log.Error("http server failed", "err", err)
				s.errCh <- err
			}
		}()
	}
	return nil
}

func (s *compositeServer) Wait() error {
	s.mu.Lock()
	ctx := s.ctx
	errCh := s.errCh
	started := s.started
	s.mu.Unlock()
	if !started {
		return errors.New("server not started")
	}

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		if err != nil {
			pslog.Ctx(ctx).Error("server stopped", "err", err)
			_ = s.Stop(context.Background())
			return err
		}
		return nil
	}
}

func (s *compositeServer) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel := s.cancel
	started := s.started
	stopped := s.stopped
	s.stopped = true
	log := s.logger
	s.mu.Unlock()
	if !started || stopped {
		return nil
	}
	if log == nil {
		log = pslog.Ctx(context.Background())
	}
	if ctx == nil {
		ctx = context.Background()
	}
	log.Info("server stop requested")
	if err := s.service.Close(ctx); err != nil {
		log.Warn("server service close failed", "err", err)
	}
	if lifecycle, ok := s.host.(hostLifecycle); ok {
		lifecycle.Stop()
	}
	if err := s.store.Close(); err != nil {
		log.Warn("server profile store close failed", "err", err)
	}
	if cancel != nil {
		cancel()
	}
	select {
	case <-ctx.Done():
		log.Warn("server stop timed out", "err", ctx.Err())
		return ctx.Err()
	case <-s.ctx.Done():
		log.Info("server stopped")
		return nil
	}
}
