package worker

import (
	"sync"
	"testing"

	"logship/internal/metrics"
	"logship/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueFIFO(t *testing.T) {
	q := NewQueue(nil)
	enqueueMessages(q, "a", "b", "c")
	assert.Equal(t, 3, q.Len())

	for _, want := range []string{"a", "b", "c"} {
		ev, ok := q.DrainOne()
		require.True(t, ok)
		assert.Equal(t, want, ev.Message)
	}

	_, ok := q.DrainOne()
	assert.False(t, ok)
	assert.Equal(t, 0, q.Len())

	// 비운 뒤 다시 넣어도 정상 동작
	enqueueMessages(q, "d")
	ev, ok := q.DrainOne()
	require.True(t, ok)
	assert.Equal(t, "d", ev.Message)
}

func TestQueueConcurrentEnqueue(t *testing.T) {
	m := metrics.New()
	q := NewQueue(m)

	const producers, perProducer = 16, 1000
	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Enqueue(model.LogEvent{Timestamp: int64(p), Message: "m"})
			}
		}(p)
	}

	drained := 0
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	// 생산과 동시에 단일 consumer 로 소비
	for {
		if _, ok := q.DrainOne(); ok {
			drained++
			continue
		}
		select {
		case <-done:
			for {
				if _, ok := q.DrainOne(); !ok {
					break
				}
				drained++
			}
			assert.Equal(t, producers*perProducer, drained)
			assert.Equal(t, int64(producers*perProducer), m.EventsAppendedTotal)
			assert.Equal(t, int64(0), m.QueueDepth)
			return
		default:
		}
	}
}

func TestQueueClear(t *testing.T) {
	m := metrics.New()
	q := NewQueue(m)
	enqueueMessages(q, "a", "b")

	assert.Equal(t, 2, q.Clear())
	assert.Equal(t, 0, q.Len())
	assert.Equal(t, int64(2), m.EventsDiscardedTotal)
	assert.Equal(t, int64(0), m.QueueDepth)

	_, ok := q.DrainOne()
	assert.False(t, ok)
}
