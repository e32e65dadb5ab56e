// Package shield blocks ad and tracker requests using filter lists.
package shield

import (
	"context"
	_ "embed"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/AdguardTeam/urlfilter"
	"github.com/AdguardTeam/urlfilter/filterlist"
	"github.com/AdguardTeam/urlfilter/rules"

	"pkt.systems/ayen/schema"
	"pkt.systems/pslog"
)

//go:embed lists/prebuilt.txt
var prebuiltList string

// Prebuilt returns the filter list compiled into the binary.
func Prebuilt() string {
	return prebuiltList
}

// Config configures a Shield.
type Config struct {
	// Lists are remote filter list URLs merged over the prebuilt list by Refresh.
	Lists  []string
	Fetch  FetchConfig
	Logger pslog.Logger
}

// Stats summarizes the shield state.
type Stats struct {
	Rules     int   `json:"rules"`
	Lists     int   `json:"lists"`
	Blocked   int64 `json:"blocked"`
	Refreshed bool  `json:"refreshed"`
}

// Shield matches requests against filter lists and counts what it blocks.
type Shield struct {
	mu        sync.RWMutex
	engine    *urlfilter.NetworkEngine
	rules     int
	lists     int
	refreshed bool

	enabledMu sync.RWMutex
	enabled   map[schema.WindowID]bool

	blocked atomic.Int64

	subMu       sync.RWMutex
	subscribers []func(schema.ShieldEvent)

	urls    []string
	fetcher *Fetcher
	log     pslog.Logger
}

// New builds a shield from the prebuilt list.
func New(cfg Config) (*Shield, error) {
	log := cfg.Logger
	if log == nil {
		log = pslog.Ctx(context.Background())
	}
	log = log.With("component", "shield")
	s := &Shield{
		enabled: make(map[schema.WindowID]bool),
		urls:    append([]string(nil), cfg.Lists...),
		fetcher: NewFetcher(cfg.Fetch, log),
		log:     log,
	}
	if err := s.load(prebuiltList, 1); err != nil {
		return nil, err
	}
	log.Info("shield prebuilt list loaded", "rules", s.rules)
	return s, nil
}

// Refresh downloads the configured lists and rebuilds the engine from the
// prebuilt list plus every fetched list. When any download fails the error
// is logged and the current engine stays in effect.
func (s *Shield) Refresh(ctx context.Context) error {
	if len(s.urls) == 0 {
		return nil
	}
	s.log.Info("shield lists fetch start", "lists", len(s.urls))
	texts, err := s.fetcher.FetchAll(ctx, s.urls)
	if err != nil {
		s.log.Warn("shield lists fetch failed", "err", err)
		return err
	}
	combined := strings.Join(append(texts, prebuiltList), "\n")
	if err := s.load(combined, len(texts)+1); err != nil {
		s.log.Warn("shield engine rebuild failed", "err", err)
		return err
	}
	s.mu.Lock()
	s.refreshed = true
	count := s.rules
	s.mu.Unlock()
	s.log.Info("shield lists loaded", "lists", len(texts), "rules", count)
	return nil
}

func (s *Shield) load(text string, lists int) error {
	list := &filterlist.StringRuleList{ID: 1, RulesText: text, IgnoreCosmetic: true}
	storage, err := filterlist.NewRuleStorage([]filterlist.RuleList{list})
	if err != nil {
		return err
	}
	engine := urlfilter.NewNetworkEngine(storage)
	s.mu.Lock()
	s.engine = engine
	s.rules = engine.RulesCount
	s.lists = lists
	s.mu.Unlock()
	return nil
}

// Match reports whether a request should be blocked. Exception rules win
// over blocking rules.
func (s *Shield) Match(requestURL, sourceURL, resourceType string) bool {
	if strings.TrimSpace(requestURL) == "" {
		return false
	}
	s.mu.RLock()
	engine := s.engine
	s.mu.RUnlock()
	if engine == nil {
		return false
	}
	rule, ok := engine.Match(rules.NewRequest(requestURL, sourceURL, requestType(resourceType)))
	if !ok || rule == nil {
		return false
	}
	return !rule.Whitelist
}

// Check matches the request for a window with blocking enabled and records
// it when blocked.
func (s *Shield) Check(windowID schema.WindowID, requestURL, sourceURL, resourceType string) bool {
	if !s.Enabled(windowID) {
		return false
	}
	if !s.Match(requestURL, sourceURL, resourceType) {
		return false
	}
	s.recordBlocked(windowID, requestURL)
	return true
}

func (s *Shield) recordBlocked(windowID schema.WindowID, requestURL string) {
	count := s.blocked.Add(1)
	s.log.Debug("shield blocked", "window", windowID, "url", requestURL)
	event := schema.ShieldEvent{WindowID: windowID, BlockedCount: count, URL: requestURL}
	s.subMu.RLock()
	subscribers := append(([]func(schema.ShieldEvent))(nil), s.subscribers...)
	s.subMu.RUnlock()
	for _, fn := range subscribers {
		fn(event)
	}
}

// SetEnabled turns blocking on or off for a window's session.
func (s *Shield) SetEnabled(windowID schema.WindowID, enabled bool) {
	s.enabledMu.Lock()
	defer s.enabledMu.Unlock()
	if enabled {
		s.enabled[windowID] = true
	} else {
		delete(s.enabled, windowID)
	}
	s.log.Info("shield blocking toggled", "window", windowID, "enabled", enabled)
}

// Enabled reports whether blocking is on for a window.
func (s *Shield) Enabled(windowID schema.WindowID) bool {
	s.enabledMu.RLock()
	defer s.enabledMu.RUnlock()
	return s.enabled[windowID]
}

// Forget drops per-window state for a closed window.
func (s *Shield) Forget(windowID schema.WindowID) {
	s.enabledMu.Lock()
	defer s.enabledMu.Unlock()
	delete(s.enabled, windowID)
}

// Subscribe registers fn for blocked-request events.
func (s *Shield) Subscribe(fn func(schema.ShieldEvent)) {
	if fn == nil {
		return
	}
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

// Blocked returns the number of requests blocked since start.
func (s *Shield) Blocked() int64 {
	return s.blocked.Load()
}

// Stats returns a snapshot of the shield state.
func (s *Shield) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{Rules: s.rules, Lists: s.lists, Blocked: s.blocked.Load(), Refreshed: s.refreshed}
}

var requestTypes = map[string]rules.RequestType{
	"document":           rules.TypeDocument,
	"subdocument":        rules.TypeSubdocument,
	"stylesheet":         rules.TypeStylesheet,
	"script":             rules.TypeScript,
	"image":              rules.TypeImage,
	"media":              rules.TypeMedia,
	"font":               rules.TypeFont,
	"xhr":                rules.TypeXmlhttprequest,
	"fetch":              rules.TypeXmlhttprequest,
	"xmlhttprequest":     rules.TypeXmlhttprequest,
	"websocket":          rules.TypeWebsocket,
	"ping":               rules.TypePing,
	"cspviolationreport": rules.TypePing,
	"object":             rules.TypeObject,
}

// requestType maps a resource type name (as reported by Chrome or the
// control API) to the filter engine's request type.
func requestType(name string) rules.RequestType {
	if t, ok := requestTypes[strings.ToLower(strings.TrimSpace(name))]; ok {
		return t
	}
	return rules.TypeOther
}
