package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"logship/internal/appender"
	"logship/internal/config"
	"logship/internal/layout"
	"logship/internal/metrics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRecorder struct {
	mu    sync.Mutex
	recs  []layout.Record
	state appender.State
}

func (f *fakeRecorder) Log(rec layout.Record) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recs = append(f.recs, rec)
}

func (f *fakeRecorder) State() appender.State { return f.state }

func newTestHandler(st appender.State) (*Handler, *fakeRecorder, *metrics.Metrics) {
	cfg := config.Default()
	cfg.MaxBodySize = 64
	m := metrics.New()
	rec := &fakeRecorder{state: st}
	return NewHandler(cfg, m, rec), rec, m
}

func TestCollectPostLines(t *testing.T) {
	h, rec, m := newTestHandler(appender.StateActive)

	req := httptest.NewRequest(http.MethodPost, "/collect?level=WARN", strings.NewReader("one\r\n\ntwo\n"))
	req.Header.Set("X-Forwarded-For", "10.0.0.7, 203.0.113.1")
	req.Header.Set("User-Agent", "agent/1")
	rr := httptest.NewRecorder()

	h.HandleCollect(rr, req)

	assert.Equal(t, http.StatusAccepted, rr.Code)
	require.Len(t, rec.recs, 2)
	assert.Equal(t, "one", rec.recs[0].Message)
	assert.Equal(t, "two", rec.recs[1].Message)
	assert.Equal(t, "WARN", rec.recs[0].Level)
	assert.Equal(t, map[string]any{"remote_ip": "10.0.0.7", "user_agent": "agent/1"}, rec.recs[0].Fields)
	assert.False(t, rec.recs[0].Time.IsZero())
	assert.Equal(t, int64(2), atomic.LoadInt64(&m.HTTPLinesAcceptedTotal))
}

func TestCollectGet(t *testing.T) {
	h, rec, _ := newTestHandler(appender.StateUninitialized)

	req := httptest.NewRequest(http.MethodGet, "/collect?msg=a&msg=b%20c", nil)
	rr := httptest.NewRecorder()
	h.HandleCollect(rr, req)

	assert.Equal(t, http.StatusAccepted, rr.Code)
	require.Len(t, rec.recs, 2)
	assert.Equal(t, "b c", rec.recs[1].Message)
	assert.Equal(t, "192.0.2.1", rec.recs[0].Fields["remote_ip"])
}

func TestCollectBodyTooLarge(t *testing.T) {
	h, rec, m := newTestHandler(appender.StateActive)

	req := httptest.NewRequest(http.MethodPost, "/collect", strings.NewReader(strings.Repeat("x", 65)))
	rr := httptest.NewRecorder()
	h.HandleCollect(rr, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
	assert.Empty(t, rec.recs)
	assert.Equal(t, int64(1), atomic.LoadInt64(&m.HTTPRequestsRejectedBodyTooLargeTotal))
}

func TestCollectRejectsWhenInactive(t *testing.T) {
	for _, st := range []appender.State{appender.StateDisabled, appender.StateFailed, appender.StateStopped} {
		h, rec, m := newTestHandler(st)

		rr := httptest.NewRecorder()
		h.HandleCollect(rr, httptest.NewRequest(http.MethodPost, "/collect", strings.NewReader("x")))

		assert.Equal(t, http.StatusServiceUnavailable, rr.Code, st.String())
		assert.Empty(t, rec.recs)
		assert.Equal(t, int64(1), atomic.LoadInt64(&m.HTTPRequestsRejectedInactiveTotal))
	}
}

func TestCollectMethods(t *testing.T) {
	h, _, _ := newTestHandler(appender.StateActive)

	rr := httptest.NewRecorder()
	h.HandleCollect(rr, httptest.NewRequest(http.MethodDelete, "/collect", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)

	rr = httptest.NewRecorder()
	h.HandleCollect(rr, httptest.NewRequest(http.MethodOptions, "/collect", nil))
	assert.Equal(t, http.StatusNoContent, rr.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	h, _, m := newTestHandler(appender.StateFailed)
	atomic.AddInt64(&m.EventsSubmittedTotal, 5)

	rr := httptest.NewRecorder()
	h.HandleHealth(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Equal(t, "failed", rr.Body.String())

	rr = httptest.NewRecorder()
	h.HandleMetrics(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rr.Body.String(), "events_submitted_total=5\n")
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "[::1]:5000"
	assert.Equal(t, "::1", clientIP(r))

	r.Header.Set("X-Forwarded-For", "garbage, 198.51.100.4")
	assert.Equal(t, "198.51.100.4", clientIP(r))
}
