package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type recordedRequest struct {
	method string
	path   string
	status int
}

type recordingObserver struct {
	requests []recordedRequest
}

func (o *recordingObserver) ObserveRequest(method, path string, status int, _ time.Duration) {
	o.requests = append(o.requests, recordedRequest{method: method, path: path, status: status})
}

func TestRequestLoggingReportsStatus(t *testing.T) {
	observer := &recordingObserver{}
	handler := withRequestLogging(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}), observer)

	for _, path := range []string{"/api/tabs", "/missing"} {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}
	if len(observer.requests) != 2 {
		t.Fatalf("expected two observations, got %d", len(observer.requests))
	}
	if observer.requests[0].status != http.StatusOK || observer.requests[1].status != http.StatusNotFound {
		t.Fatalf("unexpected statuses %+v", observer.requests)
	}
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.1:1234"
	if got := clientIP(r); got != "10.0.0.1:1234" {
		t.Fatalf("expected remote addr, got %q", got)
	}
	r.Header.Set("X-Forwarded-For", " 192.0.2.7 , 10.0.0.1")
	if got := clientIP(r); got != "192.0.2.7" {
		t.Fatalf("expected first forwarded hop, got %q", got)
	}
}
