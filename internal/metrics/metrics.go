package metrics

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// Metrics 는 파이프라인 상태를 나타내는 카운터 모음이다.
// 모든 필드는 atomic 으로만 읽고 쓴다.
type Metrics struct {
	// ======================
	// Producer 경로
	// ======================

	// EventsAppendedTotal
	// - Ingestion Queue 에 실제로 들어간 이벤트 수.
	EventsAppendedTotal int64

	// EventsDiscardedTotal
	// - 파이프라인이 Disabled / 시작 실패 / 종료 상태라서 받자마자 버린 이벤트 수.
	// - 시작 실패 시 이미 큐에 있던 이벤트를 비운 경우도 포함한다.
	EventsDiscardedTotal int64

	// QueueDepth
	// - 현재 Ingestion Queue 에 남아 있는 이벤트 수 (gauge).
	QueueDepth int64

	// ======================
	// Batch / 전송
	// ======================

	// EventsSkippedEmptyTotal
	// - 메시지가 비어 있어서 배치 조립 시 버린 이벤트 수.
	EventsSkippedEmptyTotal int64

	// FlushTicksTotal
	// - flush 가 실행된 횟수 (주기 tick + 종료 시 마지막 flush).
	FlushTicksTotal int64

	// BatchesSubmittedTotal / EventsSubmittedTotal
	// - PutLogEvents 성공 횟수와 그 안에 담긴 이벤트 수.
	BatchesSubmittedTotal int64
	EventsSubmittedTotal  int64

	// SubmitErrorsTotal
	// - PutLogEvents 실패 횟수. 재시도는 하지 않는다.
	SubmitErrorsTotal int64

	// EventsLostTotal
	// - 전송 실패로 유실된 이벤트 수 (dead-letter 보관 여부와 무관하게 CloudWatch 기준 유실).
	EventsLostTotal int64

	// StreamsCreatedTotal
	// - CreateLogStream 성공 횟수. 정상이라면 프로세스당 1.
	StreamsCreatedTotal int64

	// ======================
	// Dead-letter (S3)
	// ======================

	// DeadLetterEventsStoredTotal
	// - 전송 실패 후 S3 dead-letter 에 보관된 이벤트 수.
	DeadLetterEventsStoredTotal int64

	// DeadLetterPutErrorsTotal
	// - S3 PutObject 실패 "시도" 횟수.
	DeadLetterPutErrorsTotal int64

	// ======================
	// HTTP collect
	// ======================

	// HTTPRequestsTotal
	// - /collect 요청 수 (메서드 검사 통과 기준).
	HTTPRequestsTotal int64

	// HTTPLinesAcceptedTotal
	// - /collect 로 받아 파이프라인에 넘긴 라인 수.
	HTTPLinesAcceptedTotal int64

	// HTTPRequestsRejectedBodyTooLargeTotal
	// - MaxBodySize 초과로 413 을 돌려준 요청 수.
	HTTPRequestsRejectedBodyTooLargeTotal int64

	// HTTPRequestsRejectedInactiveTotal
	// - 파이프라인이 Disabled/Failed/Stopped 라서 503 을 돌려준 요청 수.
	HTTPRequestsRejectedInactiveTotal int64
}

func New() *Metrics {
	return &Metrics{}
}

// Snapshot 은 이름 → 값 목록을 출력 순서대로 반환한다.
// String() 과 Prometheus Collector 가 같은 목록을 쓴다.
func (m *Metrics) Snapshot() []Sample {
	return []Sample{
		{"events_appended_total", atomic.LoadInt64(&m.EventsAppendedTotal), Counter},
		{"events_discarded_total", atomic.LoadInt64(&m.EventsDiscardedTotal), Counter},
		{"queue_depth", atomic.LoadInt64(&m.QueueDepth), Gauge},

		{"events_skipped_empty_total", atomic.LoadInt64(&m.EventsSkippedEmptyTotal), Counter},
		{"flush_ticks_total", atomic.LoadInt64(&m.FlushTicksTotal), Counter},
		{"batches_submitted_total", atomic.LoadInt64(&m.BatchesSubmittedTotal), Counter},
		{"events_submitted_total", atomic.LoadInt64(&m.EventsSubmittedTotal), Counter},
		{"submit_errors_total", atomic.LoadInt64(&m.SubmitErrorsTotal), Counter},
		{"events_lost_total", atomic.LoadInt64(&m.EventsLostTotal), Counter},
		{"streams_created_total", atomic.LoadInt64(&m.StreamsCreatedTotal), Counter},

		{"dead_letter_events_stored_total", atomic.LoadInt64(&m.DeadLetterEventsStoredTotal), Counter},
		{"dead_letter_put_errors_total", atomic.LoadInt64(&m.DeadLetterPutErrorsTotal), Counter},

		{"http_requests_total", atomic.LoadInt64(&m.HTTPRequestsTotal), Counter},
		{"http_lines_accepted_total", atomic.LoadInt64(&m.HTTPLinesAcceptedTotal), Counter},
		{"http_requests_rejected_body_too_large_total", atomic.LoadInt64(&m.HTTPRequestsRejectedBodyTooLargeTotal), Counter},
		{"http_requests_rejected_inactive_total", atomic.LoadInt64(&m.HTTPRequestsRejectedInactiveTotal), Counter},
	}
}

func (m *Metrics) String() string {
	var sb strings.Builder
	sb.Grow(512)

	for _, s := range m.Snapshot() {
		fmt.Fprintf(&sb, "%s=%d\n", s.Name, s.Value)
	}
	return sb.String()
}

// Kind 는 Prometheus 노출 시 counter / gauge 구분에 쓰인다.
type Kind int

const (
	Counter Kind = iota
	Gauge
)

type Sample struct {
	Name  string
	Value int64
	Kind  Kind
}
