package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"pkt.systems/ayen"
	"pkt.systems/ayen/httpapi"
	"pkt.systems/ayen/internal/appconfig"
	"pkt.systems/ayen/internal/chromehost"
	"pkt.systems/ayen/internal/profile"
	"pkt.systems/ayen/internal/shield"
	"pkt.systems/ayen/schema"
	"pkt.systems/pslog"
)

func newServeCmd() *cobra.Command {
	var cfgPath string
	var noBrowser bool
	var headful bool
	var addr string
	cmd := &cobra.Command{
		Use:     "serve",
		Aliases: []string{"browse"},
		Short:   "Start the browser host and control API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}
			if headful {
				cfg.Browser.Headless = false
			}
			if strings.TrimSpace(addr) != "" {
				cfg.HTTP.Addr = addr
			}
			ctx := applyLogLevel(cmd.Context(), cfg.Logging.Level)
			logger := pslog.Ctx(ctx)

			serverCfg := toServerConfig(cfg, logger)
			opts := []ayen.ServerOption{ayen.WithHTTP()}
			if !noBrowser {
				opts = append(opts, ayen.WithBrowser())
			}
			server, err := ayen.New(serverCfg, ayen.ServerDeps{Logger: logger}, opts...)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			go func() {
				<-ctx.Done()
				stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := server.Stop(stopCtx); err != nil {
					logger.Warn("server stop failed", "err", err)
				}
			}()
			logger.Info("http server listening", "addr", serverCfg.HTTP.Addr, "base_path", serverCfg.HTTP.BasePath)
			if err := server.Start(ctx); err != nil {
				return err
			}
			return server.Wait()
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	cmd.Flags().BoolVar(&noBrowser, "no-browser", false, "track tab state without launching Chrome")
	cmd.Flags().BoolVar(&headful, "headful", false, "show the Chrome window")
	cmd.Flags().StringVar(&addr, "addr", "", "override http.addr")
	return cmd
}

func toServerConfig(cfg appconfig.Config, logger pslog.Logger) ayen.ServerConfig {
	return ayen.ServerConfig{
		Service: schema.ServiceConfig{
			DefaultURL:     cfg.Browser.DefaultURL,
			IncognitoURL:   cfg.Browser.IncognitoURL,
			HistoryMax:     cfg.Profile.HistoryMax,
			DisableHistory: cfg.Profile.DisableHistory,
		},
		HTTP: httpapi.Config{
			Addr:          cfg.HTTP.Addr,
			BasePath:      cfg.HTTP.BasePath,
			EnableMetrics: cfg.HTTP.EnableMetrics,
		},
		Profile: ayen.ProfileConfig{
			Backend: profile.Backend(cfg.Profile.Backend),
			Dir:     cfg.Profile.Dir,
		},
		Browser: chromehost.Config{
			ExecPath:     cfg.Browser.ExecPath,
			Headless:     cfg.Browser.Headless,
			NoSandbox:    cfg.Browser.NoSandbox,
			UserDataDir:  cfg.Browser.UserDataDir,
			DownloadDir:  cfg.Browser.DownloadDir,
			WindowWidth:  cfg.Browser.WindowWidth,
			WindowHeight: cfg.Browser.WindowHeight,
			Logger:       logger,
		},
		Shield:        toShieldConfig(cfg.Shield, logger),
		RefreshShield: cfg.Shield.RefreshOnStart,
		HubHistory:    1000,
	}
}

func toShieldConfig(cfg appconfig.ShieldConfig, logger pslog.Logger) shield.Config {
	return shield.Config{
		Lists: cfg.Lists,
		Fetch: shield.FetchConfig{
			Timeout:       time.Duration(cfg.FetchTimeoutSec) * time.Second,
			Retries:       cfg.FetchRetries,
			RatePerSecond: cfg.FetchRate,
		},
		Logger: logger,
	}
}

// applyLogLevel rebuilds the context logger at the configured level unless
// LOG_LEVEL already decided it.
func applyLogLevel(ctx context.Context, level string) context.Context {
	if _, ok := os.LookupEnv("LOG_LEVEL"); ok {
		return ctx
	}
	minLevel, err := parseLevel(level)
	if err != nil {
		pslog.Ctx(ctx).Warn("logging level ignored", "level", level, "err", err)
		return ctx
	}
	logger := pslog.NewWithOptions(os.Stderr, pslog.Options{Mode: pslog.ModeConsole, MinLevel: minLevel})
	return pslog.ContextWithLogger(ctx, logger)
}

func parseLevel(level string) (pslog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return pslog.TraceLevel, nil
	case "debug":
		return pslog.DebugLevel, nil
	case "", "info":
		return pslog.InfoLevel, nil
	case "warn", "warning":
		return pslog.WarnLevel, nil
	case "error":
		return pslog.ErrorLevel, nil
	default:
		return pslog.InfoLevel, errors.New("unknown log level")
	}
}
