package server

import (
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"logship/internal/appender"
	"logship/internal/config"
	"logship/internal/layout"
	"logship/internal/metrics"
	"logship/internal/pool"
)

// Recorder 는 /collect 가 라인을 넘기는 대상. *appender.Appender 가 만족한다.
type Recorder interface {
	Log(rec layout.Record)
	State() appender.State
}

type Handler struct {
	cfg     config.Config
	metrics *metrics.Metrics
	rec     Recorder
	now     func() time.Time
}

func NewHandler(cfg config.Config, m *metrics.Metrics, rec Recorder) *Handler {
	return &Handler{
		cfg:     cfg,
		metrics: m,
		rec:     rec,
		now:     time.Now,
	}
}

// HandleCollect
//
// 원격 프로세스가 로그 라인을 밀어 넣는 엔드포인트.
//   - GET:  ?msg=... (여러 개 가능)
//   - POST: body 의 각 줄이 이벤트 하나
//
// 공통 동작:
//  1. 요청 길이 제한(MaxBodySize)
//  2. pool 버퍼 재사용
//  3. 라인마다 layout.Record 로 감싸 Recorder 에 전달 (remote_ip, user_agent 필드)
//  4. 파이프라인이 이벤트를 버리는 상태면 503
//
// 전달은 큐 enqueue 뿐이므로 CloudWatch 전송 결과와 무관하게 202 를 돌려준다.
func (h *Handler) HandleCollect(w http.ResponseWriter, r *http.Request) {

	if r.Method != http.MethodGet &&
		r.Method != http.MethodPost &&
		r.Method != http.MethodOptions {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	// CORS preflight
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	atomic.AddInt64(&h.metrics.HTTPRequestsTotal, 1)

	if !accepting(h.rec.State()) {
		atomic.AddInt64(&h.metrics.HTTPRequestsRejectedInactiveTotal, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxBodySize)
	defer r.Body.Close()

	var lines []string

	if r.Method == http.MethodGet {
		if len(r.URL.RawQuery) > int(h.cfg.MaxBodySize) {
			atomic.AddInt64(&h.metrics.HTTPRequestsRejectedBodyTooLargeTotal, 1)
			w.WriteHeader(http.StatusRequestEntityTooLarge)
			return
		}
		lines = r.URL.Query()["msg"]

	} else {
		buf := pool.GetBody()
		defer pool.PutBody(buf, h.cfg.MaxBodySize*2)

		if _, err := io.Copy(buf, r.Body); err != nil {
			atomic.AddInt64(&h.metrics.HTTPRequestsRejectedBodyTooLargeTotal, 1)
			w.WriteHeader(http.StatusRequestEntityTooLarge)
			return
		}
		lines = splitLines(buf.String())
	}

	fields := map[string]any{}
	if ip := clientIP(r); ip != "" {
		fields["remote_ip"] = ip
	}
	if ua := r.UserAgent(); ua != "" {
		fields["user_agent"] = ua
	}
	if len(fields) == 0 {
		fields = nil
	}

	level := r.URL.Query().Get("level")
	now := h.now()

	n := 0
	for _, line := range lines {
		if line == "" {
			continue
		}
		h.rec.Log(layout.Record{Time: now, Level: level, Message: line, Fields: fields})
		n++
	}
	atomic.AddInt64(&h.metrics.HTTPLinesAcceptedTotal, int64(n))

	w.WriteHeader(http.StatusAccepted)
}

// HandleMetrics
//
// 파이프라인 카운터를 name=value 텍스트로 출력한다.
// Prometheus 형식은 cmd 에서 promhttp 로 /metrics/prom 에 따로 노출한다.
func (h *Handler) HandleMetrics(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, h.metrics.String())
}

// HandleHealth 는 lifecycle 상태를 본문으로 돌려준다. 시작 실패면 503.
func (h *Handler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	st := h.rec.State()
	if st == appender.StateFailed {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_, _ = io.WriteString(w, st.String())
}

func accepting(st appender.State) bool {
	switch st {
	case appender.StateUninitialized, appender.StateStarting, appender.StateActive:
		return true
	}
	return false
}

func splitLines(body string) []string {
	lines := strings.Split(body, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, "\r")
	}
	return lines
}
