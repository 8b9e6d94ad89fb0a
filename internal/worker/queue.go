// internal/worker/queue.go
package worker

import (
	"sync"
	"sync/atomic"

	"logship/internal/metrics"
	"logship/internal/model"
)

// Queue 는 producer 와 flush 스케줄러 사이의 Ingestion Queue 이다.
//
//   - 용량 제한 없음: Enqueue 는 절대 block 되거나 실패하지 않는다.
//   - 여러 goroutine 이 동시에 Enqueue 해도 안전하다.
//   - DrainOne 은 한 번에 하나의 consumer(스케줄러)만 호출한다.
//
// 고정 크기 채널은 가득 차면 drop 하거나 block 해야 하므로 쓰지 않고,
// mutex 로 보호되는 단일 연결 리스트를 쓴다. 락 구간은 포인터 교체뿐이다.
type Queue struct {
	mu   sync.Mutex
	head *node
	tail *node
	n    int64

	metrics *metrics.Metrics
}

type node struct {
	ev   model.LogEvent
	next *node
}

// NewQueue 는 빈 큐를 만든다. m 은 nil 이어도 된다.
func NewQueue(m *metrics.Metrics) *Queue {
	return &Queue{metrics: m}
}

// Enqueue 는 이벤트를 큐 끝에 붙인다. O(1).
func (q *Queue) Enqueue(ev model.LogEvent) {
	nd := &node{ev: ev}

	q.mu.Lock()
	if q.tail == nil {
		q.head = nd
	} else {
		q.tail.next = nd
	}
	q.tail = nd
	q.mu.Unlock()

	atomic.AddInt64(&q.n, 1)
	if q.metrics != nil {
		atomic.AddInt64(&q.metrics.EventsAppendedTotal, 1)
		atomic.AddInt64(&q.metrics.QueueDepth, 1)
	}
}

// DrainOne 은 가장 오래된 이벤트를 꺼낸다. 비어 있으면 false.
func (q *Queue) DrainOne() (model.LogEvent, bool) {
	q.mu.Lock()
	nd := q.head
	if nd == nil {
		q.mu.Unlock()
		return model.LogEvent{}, false
	}
	q.head = nd.next
	if q.head == nil {
		q.tail = nil
	}
	q.mu.Unlock()

	atomic.AddInt64(&q.n, -1)
	if q.metrics != nil {
		atomic.AddInt64(&q.metrics.QueueDepth, -1)
	}
	return nd.ev, true
}

// Len 은 현재 큐 길이의 근사값 (Enqueue/DrainOne 과 동시 호출 시).
func (q *Queue) Len() int {
	return int(atomic.LoadInt64(&q.n))
}

// Clear 는 남은 이벤트를 모두 버리고 버린 개수를 반환한다.
// 파이프라인 시작이 실패했을 때만 사용한다.
func (q *Queue) Clear() int {
	q.mu.Lock()
	dropped := 0
	for nd := q.head; nd != nil; nd = nd.next {
		dropped++
	}
	q.head, q.tail = nil, nil
	q.mu.Unlock()

	atomic.AddInt64(&q.n, -int64(dropped))
	if q.metrics != nil {
		atomic.AddInt64(&q.metrics.QueueDepth, -int64(dropped))
		atomic.AddInt64(&q.metrics.EventsDiscardedTotal, int64(dropped))
	}
	return dropped
}
