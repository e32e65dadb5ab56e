package httpapi

import (
	"net/http"
	"strings"
	"time"

	"pkt.systems/pslog"
)

// RequestObserver records per-request measurements.
type RequestObserver interface {
	ObserveRequest(method, path string, status int, elapsed time.Duration)
}

// statusWriter captures the response status and size while passing
// flushes through for event streams.
type statusWriter struct {
	http.ResponseWriter
	status int
	size   int64
}

func (w *statusWriter) WriteHeader(status int) {
	if w.status == 0 {
		w.status = status
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(p)
	w.size += int64(n)
	return n, err
}

func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *statusWriter) code() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

// withRequestLogging logs every request once it completes and reports it to
// observer. Server errors log at warn; scrapes and streams at debug.
func withRequestLogging(next http.Handler, observer RequestObserver) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w}
		next.ServeHTTP(sw, r)
		elapsed := time.Since(start)
		status := sw.code()
		if observer != nil {
			observer.ObserveRequest(r.Method, r.URL.Path, status, elapsed)
		}

		log := pslog.Ctx(r.Context()).With("remote", clientIP(r))
		fields := []any{"method", r.Method, "path", r.URL.RequestURI(), "status", status, "bytes", sw.size, "duration_ms", elapsed.Milliseconds()}
		switch {
		case status >= http.StatusInternalServerError:
			log.Warn("http request failed", fields...)
		case strings.HasSuffix(r.URL.Path, "/metrics"), strings.HasSuffix(r.URL.Path, "/api/stream"):
			log.Debug("http request", fields...)
		default:
			log.Info("http request", fields...)
		}
	})
}

// clientIP prefers the first X-Forwarded-For hop over the socket peer.
func clientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	return r.RemoteAddr
}
