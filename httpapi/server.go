package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pkt.systems/ayen/core"
	"pkt.systems/ayen/internal/logx"
	"pkt.systems/ayen/internal/shield"
	"pkt.systems/ayen/schema"
)

// ShieldStatus reports filter state.
type ShieldStatus interface {
	Stats() shield.Stats
}

// ShieldRefresher reloads remote filter lists.
type ShieldRefresher interface {
	Refresh(ctx context.Context) error
}

// Deps are the collaborators the control API serves.
type Deps struct {
	Service  core.Service
	Hub      *Hub
	Shield   ShieldStatus
	Observer RequestObserver
	// Gatherer backs /metrics; nil uses the default registry.
	Gatherer prometheus.Gatherer
}

// Server serves the local control API.
type Server struct {
	cfg      Config
	service  core.Service
	hub      *Hub
	shield   ShieldStatus
	observer RequestObserver
	gatherer prometheus.Gatherer
	basePath string
}

// NewServer constructs an HTTP server.
func NewServer(cfg Config, deps Deps) *Server {
	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &Server{
		cfg:      cfg,
		service:  deps.Service,
		hub:      deps.Hub,
		shield:   deps.Shield,
		observer: deps.Observer,
		gatherer: gatherer,
		basePath: normalizeBasePath(cfg.BasePath),
	}
}

// Handler returns an http.Handler for the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/windows", s.handleWindows)
	mux.HandleFunc("/api/tabs", s.withWindow(s.handleTabs))
	mux.HandleFunc("/api/tabs/close", s.withWindow(s.handleCloseTab))
	mux.HandleFunc("/api/tabs/activate", s.withWindow(s.handleActivate))
	mux.HandleFunc("/api/tabs/next", s.withWindow(s.handleNext))
	mux.HandleFunc("/api/tabs/reorder", s.withWindow(s.handleReorder))
	mux.HandleFunc("/api/shell", s.withWindow(s.handleShell))
	mux.HandleFunc("/api/submit", s.withWindow(s.handleSubmit))
	mux.HandleFunc("/api/navigate", s.withWindow(s.handleNavigate))
	mux.HandleFunc("/api/nav", s.withWindow(s.handleNavControl))
	mux.HandleFunc("/api/menu", s.withWindow(s.handleMenu))
	mux.HandleFunc("/api/bookmarks", s.handleBookmarks)
	mux.HandleFunc("/api/bookmarks/toggle", s.withWindow(s.handleToggleBookmark))
	mux.HandleFunc("/api/history", s.handleHistory)
	mux.HandleFunc("/api/settings", s.handleSettings)
	mux.HandleFunc("/api/clear-data", s.withWindow(s.handleClearData))
	mux.HandleFunc("/api/downloads", s.handleDownloads)
	mux.HandleFunc("/api/shield", s.handleShield)
	mux.HandleFunc("/api/stream", s.withWindow(s.handleStream))
	if s.cfg.EnableMetrics {
		mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return mountAt(s.basePath, withRequestLogging(mux, s.observer))
}

// withWindow resolves the target window from the "window" query parameter,
// defaulting to the main window, and scopes the request logger to it.
func (s *Server) withWindow(next func(http.ResponseWriter, *http.Request, schema.WindowID)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		windowID := schema.WindowID(strings.TrimSpace(r.URL.Query().Get("window")))
		if windowID == "" {
			windowID = schema.MainWindowID
		}
		ctx := logx.ContextWithWindowLogger(r.Context(), logx.Ctx(r.Context()).With("remote", clientIP(r), "window", windowID), windowID)
		next(w, r.WithContext(ctx), windowID)
	}
}

func (s *Server) handleWindows(w http.ResponseWriter, r *http.Request) {
	log := logx.Ctx(r.Context())
	switch r.Method {
	case http.MethodGet:
		resp, err := s.service.ListWindows(r.Context())
		if err != nil {
			s.fail(w, r, "windows list", err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	case http.MethodPost:
		var payload struct {
			Window    string `json:"window"`
			Incognito bool   `json:"incognito"`
			URL       string `json:"url"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			s.fail(w, r, "windows decode", fmt.Errorf("%w: %v", schema.ErrInvalidRequest, err))
			return
		}
		resp, err := s.service.OpenWindow(r.Context(), schema.OpenWindowRequest{
			WindowID:   schema.WindowID(payload.Window),
			Incognito:  payload.Incognito,
			InitialURL: payload.URL,
		})
		if err != nil {
			s.fail(w, r, "windows open", err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
		log.Info("http window opened", "window", resp.Window.ID, "persistent", resp.Window.Persistent)
	case http.MethodDelete:
		windowID := schema.WindowID(strings.TrimSpace(r.URL.Query().Get("window")))
		resp, err := s.service.CloseWindow(r.Context(), schema.CloseWindowRequest{WindowID: windowID})
		if err != nil {
			s.fail(w, r, "windows close", err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
		log.Info("http window closed", "window", windowID)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleTabs(w http.ResponseWriter, r *http.Request, windowID schema.WindowID) {
	log := logx.Ctx(r.Context())
	switch r.Method {
	case http.MethodGet:
		resp, err := s.service.ListTabs(r.Context(), schema.ListTabsRequest{WindowID: windowID})
		if err != nil {
			s.fail(w, r, "tabs list", err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
		log.Debug("http tabs list ok", "count", len(resp.Tabs))
	case http.MethodPost:
		var payload struct {
			URL string `json:"url"`
		}
		if err := decodeOptionalJSON(r.Body, &payload); err != nil {
			s.fail(w, r, "tabs decode", fmt.Errorf("%w: %v", schema.ErrInvalidRequest, err))
			return
		}
		resp, err := s.service.OpenTab(r.Context(), schema.OpenTabRequest{WindowID: windowID, URL: payload.URL})
		if err != nil {
			s.fail(w, r, "tabs open", err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
		log.Info("http tab opened", "tab", resp.Tab.ID)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

type tabPayload struct {
	Tab string `json:"tab"`
}

func (s *Server) handleCloseTab(w http.ResponseWriter, r *http.Request, windowID schema.WindowID) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var payload tabPayload
	if err := decodeJSON(r.Body, &payload); err != nil {
		s.fail(w, r, "tab close decode", fmt.Errorf("%w: %v", schema.ErrInvalidRequest, err))
		return
	}
	resp, err := s.service.CloseTab(r.Context(), schema.CloseTabRequest{WindowID: windowID, TabID: schema.TabID(payload.Tab)})
	if err != nil {
		s.fail(w, r, "tab close", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleActivate(w http.ResponseWriter, r *http.Request, windowID schema.WindowID) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var payload tabPayload
	if err := decodeJSON(r.Body, &payload); err != nil {
		s.fail(w, r, "tab activate decode", fmt.Errorf("%w: %v", schema.ErrInvalidRequest, err))
		return
	}
	resp, err := s.service.ActivateTab(r.Context(), schema.ActivateTabRequest{WindowID: windowID, TabID: schema.TabID(payload.Tab)})
	if err != nil {
		s.fail(w, r, "tab activate", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleNext(w http.ResponseWriter, r *http.Request, windowID schema.WindowID) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	resp, err := s.service.NextTab(r.Context(), schema.NextTabRequest{WindowID: windowID})
	if err != nil {
		s.fail(w, r, "tab next", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleReorder(w http.ResponseWriter, r *http.Request, windowID schema.WindowID) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var payload struct {
		Order []schema.TabID `json:"order"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		s.fail(w, r, "tab reorder decode", fmt.Errorf("%w: %v", schema.ErrInvalidRequest, err))
		return
	}
	resp, err := s.service.ReorderTabs(r.Context(), schema.ReorderTabsRequest{WindowID: windowID, Order: payload.Order})
	if err != nil {
		s.fail(w, r, "tab reorder", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleShell(w http.ResponseWriter, r *http.Request, windowID schema.WindowID) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	shell, err := s.service.Shell(r.Context(), windowID)
	if err != nil {
		s.fail(w, r, "shell", err)
		return
	}
	writeJSON(w, http.StatusOK, shell)
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request, windowID schema.WindowID) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var payload struct {
		Input string `json:"input"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		s.fail(w, r, "submit decode", fmt.Errorf("%w: %v", schema.ErrInvalidRequest, err))
		return
	}
	resp, err := s.service.Submit(r.Context(), schema.SubmitRequest{WindowID: windowID, Input: payload.Input})
	if err != nil {
		s.fail(w, r, "submit", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
	logx.Ctx(r.Context()).Info("http submit ok", "url", resp.URL, "search", resp.IsSearch, "handled", resp.Handled)
}

func (s *Server) handleNavigate(w http.ResponseWriter, r *http.Request, windowID schema.WindowID) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var payload struct {
		URL string `json:"url"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		s.fail(w, r, "navigate decode", fmt.Errorf("%w: %v", schema.ErrInvalidRequest, err))
		return
	}
	resp, err := s.service.Navigate(r.Context(), schema.NavigateRequest{WindowID: windowID, URL: payload.URL})
	if err != nil {
		s.fail(w, r, "navigate", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleNavControl(w http.ResponseWriter, r *http.Request, windowID schema.WindowID) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var payload struct {
		Action string `json:"action"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		s.fail(w, r, "nav decode", fmt.Errorf("%w: %v", schema.ErrInvalidRequest, err))
		return
	}
	req := schema.NavControlRequest{WindowID: windowID}
	var err error
	switch strings.ToLower(strings.TrimSpace(payload.Action)) {
	case "back":
		err = s.service.Back(r.Context(), req)
	case "forward":
		err = s.service.Forward(r.Context(), req)
	case "reload":
		err = s.service.Reload(r.Context(), req)
	case "stop":
		err = s.service.Stop(r.Context(), req)
	default:
		err = fmt.Errorf("%w: unknown action %q", schema.ErrInvalidRequest, payload.Action)
	}
	if err != nil {
		s.fail(w, r, "nav", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleMenu(w http.ResponseWriter, r *http.Request, windowID schema.WindowID) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var payload struct {
		Command string `json:"command"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		s.fail(w, r, "menu decode", fmt.Errorf("%w: %v", schema.ErrInvalidRequest, err))
		return
	}
	err := s.service.MenuCommand(r.Context(), schema.MenuCommandRequest{
		WindowID: windowID,
		Command:  schema.MenuCommand(strings.ToLower(strings.TrimSpace(payload.Command))),
	})
	if err != nil {
		s.fail(w, r, "menu", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleBookmarks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	resp, err := s.service.GetBookmarks(r.Context())
	if err != nil {
		s.fail(w, r, "bookmarks", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleToggleBookmark(w http.ResponseWriter, r *http.Request, windowID schema.WindowID) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	resp, err := s.service.ToggleBookmark(r.Context(), schema.ToggleBookmarkRequest{WindowID: windowID})
	if err != nil {
		s.fail(w, r, "bookmark toggle", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
	logx.Ctx(r.Context()).Info("http bookmark toggled", "bookmarked", resp.Bookmarked, "count", len(resp.Bookmarks))
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		resp, err := s.service.GetHistory(r.Context())
		if err != nil {
			s.fail(w, r, "history", err)
			return
		}
		if limit := parseInt(r.URL.Query().Get("limit"), 0); limit > 0 && limit < len(resp.History) {
			resp.History = resp.History[:limit]
		}
		writeJSON(w, http.StatusOK, resp)
	case http.MethodDelete:
		if err := s.service.ClearHistory(r.Context()); err != nil {
			s.fail(w, r, "history clear", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		logx.Ctx(r.Context()).Info("http history cleared")
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		settings, err := s.service.GetSettings(r.Context())
		if err != nil {
			s.fail(w, r, "settings", err)
			return
		}
		writeJSON(w, http.StatusOK, settings)
	case http.MethodPost, http.MethodPut:
		var payload struct {
			Key   string `json:"key"`
			Value any    `json:"value"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			s.fail(w, r, "settings decode", fmt.Errorf("%w: %v", schema.ErrInvalidRequest, err))
			return
		}
		settings, err := s.service.UpdateSetting(r.Context(), schema.UpdateSettingRequest{
			Key:   schema.SettingKey(payload.Key),
			Value: payload.Value,
		})
		if err != nil {
			s.fail(w, r, "settings update", err)
			return
		}
		writeJSON(w, http.StatusOK, settings)
		logx.Ctx(r.Context()).Info("http setting updated", "key", payload.Key)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleClearData(w http.ResponseWriter, r *http.Request, windowID schema.WindowID) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := s.service.ClearData(r.Context(), schema.ClearDataRequest{WindowID: windowID}); err != nil {
		s.fail(w, r, "clear data", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleDownloads(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	resp, err := s.service.ListDownloads(r.Context())
	if err != nil {
		s.fail(w, r, "downloads", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleShield(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if s.shield == nil {
			writeJSON(w, http.StatusOK, shield.Stats{})
			return
		}
		writeJSON(w, http.StatusOK, s.shield.Stats())
	case http.MethodPost:
		refresher, ok := s.shield.(ShieldRefresher)
		if !ok {
			writeError(w, http.StatusNotImplemented, errors.New("shield refresh unavailable"))
			return
		}
		if err := refresher.Refresh(r.Context()); err != nil {
			s.fail(w, r, "shield refresh", err)
			return
		}
		writeJSON(w, http.StatusOK, s.shield.Stats())
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request, windowID schema.WindowID) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, errors.New("stream unsupported"))
		return
	}
	if s.hub == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("stream unavailable"))
		return
	}
	log := logx.Ctx(r.Context())
	snapshot, err := s.buildSnapshot(r.Context(), windowID)
	if err != nil {
		s.fail(w, r, "stream snapshot", err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, unsubscribe := s.hub.Subscribe()
	defer unsubscribe()

	lastID := parseUint(r.Header.Get("Last-Event-ID"))
	_ = writeSSEvent(w, StreamEvent{
		Type:      EventSnapshot,
		WindowID:  windowID,
		Snapshot:  &snapshot,
		Timestamp: time.Now(),
	})
	replayCount := 0
	if lastID > 0 {
		for _, event := range s.hub.Replay(lastID) {
			lastID = event.Seq
			if visibleTo(event, windowID) {
				_ = writeSSEvent(w, event)
				replayCount++
			}
		}
	}
	flusher.Flush()

	notify := r.Context().Done()
	log.Info("http stream opened", "last_id", lastID, "replay", replayCount, "tabs", len(snapshot.Tabs))
	for {
		select {
		case <-notify:
			log.Info("http stream closed")
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			if event.Seq <= lastID || !visibleTo(event, windowID) {
				continue
			}
			_ = writeSSEvent(w, event)
			flusher.Flush()
		}
	}
}

func (s *Server) buildSnapshot(ctx context.Context, windowID schema.WindowID) (SnapshotPayload, error) {
	resp, err := s.service.ListTabs(ctx, schema.ListTabsRequest{WindowID: windowID})
	if err != nil {
		return SnapshotPayload{}, err
	}
	snapshot := SnapshotPayload{
		WindowID:  windowID,
		Tabs:      resp.Tabs,
		ActiveTab: resp.ActiveTab,
		Shell:     resp.Shell,
	}
	if s.shield != nil {
		snapshot.Blocked = s.shield.Stats().Blocked
	}
	return snapshot, nil
}

// fail logs a failed request and writes the error with its mapped status.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(err)
	log := logx.Ctx(r.Context())
	if status >= http.StatusInternalServerError {
		log.Error("http "+op+" failed", "err", err)
	} else {
		log.Warn("http "+op+" failed", "err", err, "status", status)
	}
	writeError(w, status, err)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, schema.ErrWindowNotFound):
		return http.StatusNotFound
	case errors.Is(err, schema.ErrWindowExists):
		return http.StatusConflict
	case errors.Is(err, schema.ErrIncognito):
		return http.StatusForbidden
	case errors.Is(err, schema.ErrClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, schema.ErrInvalidRequest),
		errors.Is(err, schema.ErrInvalidWindow),
		errors.Is(err, schema.ErrInvalidReorder),
		errors.Is(err, schema.ErrInvalidSetting),
		errors.Is(err, schema.ErrInvalidSearchEngine),
		errors.Is(err, schema.ErrEmptyInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(body io.Reader, target any) error {
	decoder := json.NewDecoder(body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(target)
}

// decodeOptionalJSON accepts an empty body.
func decodeOptionalJSON(body io.Reader, target any) error {
	if err := decodeJSON(body, target); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	data, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": err.Error()})
}

func writeSSEvent(w http.ResponseWriter, event StreamEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if event.Seq > 0 {
		_, _ = fmt.Fprintf(w, "id: %d\n", event.Seq)
	}
	_, _ = fmt.Fprintf(w, "data: %s\n\n", strings.TrimSpace(string(data)))
	return nil
}

func parseUint(value string) uint64 {
	if value == "" {
		return 0
	}
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0
	}
	return parsed
}

func parseInt(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
