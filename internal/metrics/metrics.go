// Package metrics exposes browser activity as Prometheus collectors.
package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"pkt.systems/ayen/schema"
)

const namespace = "ayen"

// Metrics holds the collectors and implements the service event sink.
type Metrics struct {
	WindowsOpen     prometheus.Gauge
	TabsOpen        prometheus.Gauge
	TabEvents       *prometheus.CounterVec
	Navigations     prometheus.Counter
	ContextMenus    prometheus.Counter
	DownloadsActive prometheus.Gauge
	Downloads       *prometheus.CounterVec
	ShieldBlocked   prometheus.Counter

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	mu      sync.Mutex
	lastURL map[schema.TabID]string
}

// New registers the collectors with reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		WindowsOpen: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "windows_open",
			Help:      "Number of open browser windows",
		}),
		TabsOpen: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tabs_open",
			Help:      "Number of open tabs across windows",
		}),
		TabEvents: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tab_events_total",
			Help:      "Tab lifecycle events by type",
		}, []string{"type"}),
		Navigations: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "navigations_total",
			Help:      "Tab URL changes",
		}),
		ContextMenus: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "context_menus_total",
			Help:      "Context menu requests forwarded to the shell",
		}),
		DownloadsActive: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "downloads_active",
			Help:      "Downloads that have not finished",
		}),
		Downloads: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "downloads_total",
			Help:      "Finished downloads by final state",
		}, []string{"state"}),
		ShieldBlocked: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "shield_blocked_total",
			Help:      "Requests blocked by the shield",
		}),
		RequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Control API requests",
		}, []string{"method", "path", "status"}),
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Control API request duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"method", "path"}),
		lastURL: make(map[schema.TabID]string),
	}
}

func (m *Metrics) OnWindowEvent(event schema.WindowEvent) {
	switch event.Type {
	case schema.WindowEventOpened:
		m.WindowsOpen.Inc()
	case schema.WindowEventClosed:
		m.WindowsOpen.Dec()
		m.TabsOpen.Sub(float64(event.Window.Tabs))
	}
}

func (m *Metrics) OnTabEvent(event schema.TabEvent) {
	m.TabEvents.WithLabelValues(string(event.Type)).Inc()
	switch event.Type {
	case schema.TabEventCreated:
		m.TabsOpen.Inc()
		m.mu.Lock()
		m.lastURL[event.Tab.ID] = event.Tab.URL
		m.mu.Unlock()
	case schema.TabEventClosed:
		m.TabsOpen.Dec()
		m.mu.Lock()
		delete(m.lastURL, event.Tab.ID)
		m.mu.Unlock()
	case schema.TabEventUpdated:
		m.mu.Lock()
		prev, known := m.lastURL[event.Tab.ID]
		changed := known && prev != event.Tab.URL
		m.lastURL[event.Tab.ID] = event.Tab.URL
		m.mu.Unlock()
		if changed {
			m.Navigations.Inc()
		}
	}
}

func (m *Metrics) OnShellEvent(schema.ShellEvent) {}

func (m *Metrics) OnContextMenu(schema.ContextMenuEvent) {
	m.ContextMenus.Inc()
}

func (m *Metrics) OnDownloadEvent(event schema.DownloadEvent) {
	m.DownloadsActive.Set(float64(event.ActiveCount))
	if event.Download.State.Terminal() {
		m.Downloads.WithLabelValues(string(event.Download.State)).Inc()
	}
}

// OnShieldEvent counts one blocked request.
func (m *Metrics) OnShieldEvent(schema.ShieldEvent) {
	m.ShieldBlocked.Inc()
}

// ObserveRequest records one control API request.
func (m *Metrics) ObserveRequest(method, path string, status int, elapsed time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}
