package rest_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Gunvolt24/mq_listener/internal/listener"
	rest "github.com/Gunvolt24/mq_listener/internal/transport/http"
)

type noopLogger struct{}

func (noopLogger) Infof(context.Context, string, ...any)  {}
func (noopLogger) Warnf(context.Context, string, ...any)  {}
func (noopLogger) Errorf(context.Context, string, ...any) {}

// fakeStatus — управляемый StatusReporter для тестов.
type fakeStatus struct {
	running bool
	state   listener.State
	last    time.Time
	queue   string
}

func (f *fakeStatus) Running() bool                { return f.running }
func (f *fakeStatus) CurrentState() listener.State { return f.state }
func (f *fakeStatus) LastMessageAt() time.Time     { return f.last }
func (f *fakeStatus) Queue() string                { return f.queue }

func newTestRouter(st *fakeStatus) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return rest.NewRouter(rest.NewHandler(st, noopLogger{}, 0), "")
}

func TestPing(t *testing.T) {
	r := newTestRouter(&fakeStatus{running: true})

	req := httptest.NewRequest(http.MethodGet, "/ping", http.NoBody)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK || w.Body.String() != "pong" {
		t.Fatalf("want 200 pong, got %d %q", w.Code, w.Body.String())
	}
}

func TestHealthz_Running(t *testing.T) {
	r := newTestRouter(&fakeStatus{running: true})

	req := httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("want 200, got %d body=%s", w.Code, w.Body.String())
	}
}

func TestHealthz_Stopped(t *testing.T) {
	r := newTestRouter(&fakeStatus{running: false})

	req := httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("want 503, got %d body=%s", w.Code, w.Body.String())
	}
}

func TestStatus(t *testing.T) {
	st := &fakeStatus{
		running: true,
		state:   listener.StateActive,
		last:    time.Now().Add(-2 * time.Second),
		queue:   "orders.inbound",
	}
	r := newTestRouter(st)

	req := httptest.NewRequest(http.MethodGet, "/status", http.NoBody)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("want 200, got %d body=%s", w.Code, w.Body.String())
	}

	var got map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if got["queue"] != "orders.inbound" || got["state"] != "active" || got["running"] != true {
		t.Fatalf("wrong status payload: %v", got)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	r := newTestRouter(&fakeStatus{running: true})

	req := httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", w.Code)
	}
}

// Таймаут обработчика попадает в контекст запроса.
func TestHandlerTimeout_CancelsRequestContext(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := rest.NewRouter(rest.NewHandler(&fakeStatus{running: true}, noopLogger{}, 20*time.Millisecond), "")
	r.GET("/slow", func(c *gin.Context) {
		select {
		case <-c.Request.Context().Done():
			c.String(http.StatusGatewayTimeout, "timeout")
		case <-time.After(500 * time.Millisecond):
			c.String(http.StatusOK, "ok")
		}
	})

	req := httptest.NewRequest(http.MethodGet, "/slow", http.NoBody)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusGatewayTimeout {
		t.Fatalf("handler deadline not applied: %d %q", w.Code, w.Body.String())
	}
}

func TestRequestIDHeader(t *testing.T) {
	r := newTestRouter(&fakeStatus{running: true})

	req := httptest.NewRequest(http.MethodGet, "/ping", http.NoBody)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Header().Get("X-Request-ID") == "" {
		t.Fatal("X-Request-ID header must be set")
	}
}
