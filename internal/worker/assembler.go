// internal/worker/assembler.go
package worker

import (
	"sort"
	"sync/atomic"

	"logship/internal/metrics"
	"logship/internal/model"
)

// Assembler 는 Queue 에서 이벤트를 꺼내 한 번의 PutLogEvents 에 담을 배치를 만든다.
//
// 제한은 "포함한 뒤에" 검사한다.
//   - 개수: 포함 후 MaxEvents 에 도달하면 중단 (more=true)
//   - 바이트: 포함 후 누적 크기가 MaxBytes 를 넘으면 중단 (more=true)
//
// 따라서 메시지 하나가 단독으로 MaxBytes 를 넘더라도 그 이벤트만 담긴 배치로
// 반드시 나간다. 큐에 영원히 갇히는 이벤트는 없다.
// 대신 배치가 바이트 예산을 메시지 하나만큼 넘을 수 있다.
type Assembler struct {
	queue   *Queue
	metrics *metrics.Metrics

	MaxEvents int
	MaxBytes  int
}

func NewAssembler(q *Queue, m *metrics.Metrics) *Assembler {
	return &Assembler{
		queue:     q,
		metrics:   m,
		MaxEvents: model.MaxEventsPerBatch,
		MaxBytes:  model.MaxBatchBytes,
	}
}

// AssembleNextBatch 는 다음 배치와, 큐에 아직 데이터가 남아 있을 수 있는지(more)를 반환한다.
// 큐가 비어서 끝난 경우 batch 는 빈 slice 일 수 있고 more 는 false.
func (a *Assembler) AssembleNextBatch() (model.Batch, bool) {
	var (
		batch model.Batch
		bytes int
	)

	for {
		ev, ok := a.queue.DrainOne()
		if !ok {
			return batch, false
		}

		if ev.Message == "" {
			if a.metrics != nil {
				atomic.AddInt64(&a.metrics.EventsSkippedEmptyTotal, 1)
			}
			continue
		}

		batch = append(batch, ev)
		if len(batch) >= a.MaxEvents {
			// 개수 제한
			return batch, true
		}

		bytes += ev.Size()
		if bytes > a.MaxBytes {
			// 바이트 제한
			return batch, true
		}
	}
}

// Order 는 배치를 timestamp 오름차순으로 stable 정렬한다.
// CloudWatch Logs 는 한 호출 안의 이벤트가 시간 순이어야 받는다.
// 같은 timestamp 끼리는 큐에 들어온 순서를 유지한다.
// 입력 slice 는 건드리지 않고 정렬된 복사본을 반환한다.
func Order(b model.Batch) model.Batch {
	out := make(model.Batch, len(b))
	copy(out, b)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp < out[j].Timestamp
	})
	return out
}
