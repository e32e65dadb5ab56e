package shield

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"

	"pkt.systems/ayen/internal/version"
	"pkt.systems/pslog"
)

// DefaultLists are the remote filter lists merged over the prebuilt list.
var DefaultLists = []string{
	"https://easylist.to/easylist/easylist.txt",
	"https://easylist.to/easylist/easyprivacy.txt",
	"https://raw.githubusercontent.com/brave/adblock-lists/master/brave-unbreak.txt",
}

// FetchConfig tunes remote list downloads.
type FetchConfig struct {
	Timeout      time.Duration
	Retries      int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	// RatePerSecond bounds request starts; zero means unlimited.
	RatePerSecond float64
	UserAgent     string
}

func (c FetchConfig) withDefaults() FetchConfig {
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.Retries < 0 {
		c.Retries = 0
	}
	if c.RetryWaitMin <= 0 {
		c.RetryWaitMin = time.Second
	}
	if c.RetryWaitMax <= 0 {
		c.RetryWaitMax = 30 * time.Second
	}
	if strings.TrimSpace(c.UserAgent) == "" {
		c.UserAgent = version.UserAgent("shield")
	}
	return c
}

// Fetcher downloads filter lists over HTTP with retries and pacing.
type Fetcher struct {
	client  *resty.Client
	limiter *rate.Limiter
}

// NewFetcher builds a fetcher whose transport retries failed requests.
func NewFetcher(cfg FetchConfig, logger pslog.Logger) *Fetcher {
	cfg = cfg.withDefaults()
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = cfg.Retries
	retryClient.RetryWaitMin = cfg.RetryWaitMin
	retryClient.RetryWaitMax = cfg.RetryWaitMax
	if logger != nil {
		retryClient.Logger = retryLogger{log: logger}
	} else {
		retryClient.Logger = nil
	}

	client := resty.NewWithClient(retryClient.StandardClient()).
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", cfg.UserAgent).
		SetHeader("Accept", "text/plain, */*")

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RatePerSecond > 0 {
		burst := int(cfg.RatePerSecond)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst)
	}
	return &Fetcher{client: client, limiter: limiter}
}

// Fetch downloads one list and returns its text.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit: %w", err)
	}
	resp, err := f.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", url, err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("fetch %s: status %d", url, resp.StatusCode())
	}
	return resp.String(), nil
}

// FetchAll downloads every list concurrently. Results keep the order of
// urls; any failure fails the whole batch.
func (f *Fetcher) FetchAll(ctx context.Context, urls []string) ([]string, error) {
	texts := make([]string, len(urls))
	errs := make([]error, len(urls))
	var wg sync.WaitGroup
	for i, url := range urls {
		wg.Add(1)
		go func(i int, url string) {
			defer wg.Done()
			texts[i], errs[i] = f.Fetch(ctx, url)
		}(i, url)
	}
	wg.Wait()
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return texts, nil
}

// retryLogger routes retryablehttp's leveled logging through pslog.
type retryLogger struct {
	log pslog.Logger
}

func (l retryLogger) Error(msg string, keysAndValues ...any) { l.log.Error(msg, keysAndValues...) }
func (l retryLogger) Info(msg string, keysAndValues ...any)  { l.log.Debug(msg, keysAndValues...) }
func (l retryLogger) Debug(msg string, keysAndValues ...any) { l.log.Trace(msg, keysAndValues...) }
func (l retryLogger) Warn(msg string, keysAndValues ...any)  { l.log.Warn(msg, keysAndValues...) }
