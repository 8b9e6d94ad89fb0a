// internal/worker/manager.go
package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"logship/internal/config"
	"logship/internal/metrics"
	"logship/internal/model"

	zlog "github.com/rs/zerolog/log"
)

// ErrShutdownTimeout 은 종료 대기 시간 안에 진행 중인 tick 이 끝나지 않은 경우.
// 복구 가능한 에러로, 호출자는 그대로 마지막 flush 와 자원 정리를 진행한다.
var ErrShutdownTimeout = errors.New("flush worker did not stop in time")

// Manager 는 Flush Scheduler 이다.
// FlushInterval 마다 Queue 를 비우며 CloudWatch Logs 로 전송한다.
//
// 흐름 (tick 한 번):
//
//	loop {
//	    batch, more := Assembler.AssembleNextBatch()
//	    batch = Order(batch)
//	    if batch 비어있지 않음 → token = Submitter.Submit(dest, batch, token)
//	} while more
//
// producer 가 한 주기 처리량보다 빨리 쌓더라도 다음 주기를 기다리지 않고
// 같은 tick 안에서 꽉 찬 배치를 연달아 보낸다.
//
// 동시성:
//   - tick 은 goroutine 하나에서만 실행된다.
//   - Flush 는 flushMu 로 직렬화되므로 Queue 의 consumer 는 항상 하나이고,
//     sequence token 은 flushMu 를 잡은 쪽만 읽고 쓴다.
//   - 전송 호출은 종료 신호로 취소하지 않는다. 진행 중인 tick 은 끝까지 간다.
type Manager struct {
	cfg     config.Config
	metrics *metrics.Metrics
	dest    model.Destination

	assembler  *Assembler
	submitter  *Submitter
	deadLetter *DeadLetter // nil 이면 보관하지 않음

	flushMu sync.Mutex
	token   *string

	stopCh   chan struct{}
	doneCh   chan struct{}
	started  atomic.Bool
	ticking  atomic.Bool // tick 의 Flush 실행 중
	stopOnce sync.Once
}

// NewManager 는 dest 로 전송하는 스케줄러를 만든다. 스트림은 이미 만들어져 있어야 한다.
func NewManager(
	cfg config.Config,
	m *metrics.Metrics,
	q *Queue,
	dest model.Destination,
	client LogsAPI,
	deadLetter *DeadLetter,
) *Manager {
	return &Manager{
		cfg:        cfg,
		metrics:    m,
		dest:       dest,
		assembler:  NewAssembler(q, m),
		submitter:  NewSubmitter(client, m, cfg.SubmitTimeout),
		deadLetter: deadLetter,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
}

// Assembler 는 테스트에서 배치 제한을 줄이기 위해 노출한다.
func (m *Manager) Assembler() *Assembler {
	return m.assembler
}

// SequenceToken 은 마지막으로 성공한 전송이 돌려준 token.
func (m *Manager) SequenceToken() *string {
	m.flushMu.Lock()
	defer m.flushMu.Unlock()
	return m.token
}

// Start 는 주기 flush goroutine 을 띄운다. 두 번째 호출부터는 무시된다.
func (m *Manager) Start() {
	if !m.started.CompareAndSwap(false, true) {
		return
	}
	go m.tickLoop()
}

func (m *Manager) tickLoop() {
	defer close(m.doneCh)

	ticker := time.NewTicker(m.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return

		case <-ticker.C:
			// 종료 신호와 무관한 context: 진행 중인 전송은 취소하지 않는다
			m.ticking.Store(true)
			if err := m.Flush(context.Background()); err != nil {
				zlog.Error().Err(err).Str("dest", m.dest.String()).Msg("flush tick abandoned")
			}
			m.ticking.Store(false)
		}
	}
}

// Flush 는 큐에 남은 데이터를 배치 단위로 모두 전송한다 (tick 한 번 분량).
// 전송 실패 시 해당 tick 을 중단하고 에러를 반환한다. 실패한 배치는 다시 큐에 넣지 않는다.
// token 은 마지막 성공 값을 유지하므로 다음 tick 은 정상적으로 이어진다.
func (m *Manager) Flush(ctx context.Context) error {
	m.flushMu.Lock()
	defer m.flushMu.Unlock()

	return m.flushLocked(ctx)
}

func (m *Manager) flushLocked(ctx context.Context) error {
	atomic.AddInt64(&m.metrics.FlushTicksTotal, 1)

	for {
		batch, more := m.assembler.AssembleNextBatch()
		batch = Order(batch)

		if len(batch) > 0 {
			next, err := m.submitter.Submit(ctx, m.dest, batch, m.token)
			if err != nil {
				atomic.AddInt64(&m.metrics.EventsLostTotal, int64(len(batch)))
				m.storeDeadLetter(ctx, batch)
				return err
			}
			m.token = next

			zlog.Debug().
				Int("events", len(batch)).
				Int("bytes", batch.Bytes()).
				Bool("more", more).
				Msg("batch submitted")
		}

		if !more {
			return nil
		}
	}
}

func (m *Manager) storeDeadLetter(ctx context.Context, batch model.Batch) {
	if m.deadLetter == nil {
		return
	}
	key, err := m.deadLetter.Store(ctx, m.dest, batch)
	if err != nil {
		zlog.Error().Err(err).Int("events", len(batch)).Msg("dead-letter store failed, batch dropped")
		return
	}
	zlog.Warn().Str("key", key).Int("events", len(batch)).Msg("failed batch stored in dead-letter")
}

// Shutdown
//
//  1. 새 tick 을 더 이상 시작하지 않는다.
//  2. 진행 중인 tick 을 최대 6 × FlushInterval (또는 ctx 만료) 까지 기다린다.
//  3. 마지막으로 한 번 동기 flush 한다.
//
// 대기 시간을 넘기면 ErrShutdownTimeout 을 기록하고 그대로 진행한다.
// 이때 멈춘 tick 이 아직 flushMu 를 잡고 있으면 consumer 가 둘이 되지 않도록
// 마지막 flush 는 건너뛴다.
//
// 마지막 flush 는 ctx 가 이미 끝났더라도 실행된다 (취소와 분리된 context).
// 호출당 상한은 SubmitTimeout, 설정이 없으면 ShutdownWait 이다.
// 여러 번 호출해도 안전하다.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.stopOnce.Do(func() { close(m.stopCh) })

	var errs []error

	if m.started.Load() {
		errs = append(errs, m.waitTickLoop(ctx)...)
	}

	if !m.flushMu.TryLock() {
		zlog.Warn().Msg("flush still in progress, final flush skipped")
		return errors.Join(errs...)
	}
	defer m.flushMu.Unlock()

	fctx := context.WithoutCancel(ctx)
	if m.cfg.SubmitTimeout <= 0 {
		var cancel context.CancelFunc
		fctx, cancel = context.WithTimeout(fctx, m.cfg.ShutdownWait())
		defer cancel()
	}

	if err := m.flushLocked(fctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// waitTickLoop 은 tick goroutine 종료를 기다린다.
// ctx 가 끝났어도 tick 이 idle 이면 곧 종료되므로 timeout 으로 보지 않는다.
func (m *Manager) waitTickLoop(ctx context.Context) []error {
	timer := time.NewTimer(m.cfg.ShutdownWait())
	defer timer.Stop()

	ctxDone := ctx.Done()
	for {
		select {
		case <-m.doneCh:
			return nil
		case <-timer.C:
			return []error{ErrShutdownTimeout}
		case <-ctxDone:
			if m.ticking.Load() {
				return []error{ErrShutdownTimeout, ctx.Err()}
			}
			ctxDone = nil
		}
	}
}
