// internal/appender/appender.go
package appender

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"logship/internal/config"
	"logship/internal/layout"
	"logship/internal/metrics"
	"logship/internal/model"
	"logship/internal/profile"
	"logship/internal/worker"

	zlog "github.com/rs/zerolog/log"
)

// ErrConfiguration 은 로그 그룹을 결정할 수 없는 경우
// (설정 override 도 없고 프로파일의 log_group_name 도 없음).
var ErrConfiguration = errors.New("log group name is not defined")

var errAbandoned = errors.New("appender stopped during start")

// Sink 는 호스트가 로그 이벤트를 한 건씩 넘기는 진입점.
// Accept 는 절대 block 되거나 실패하지 않는다.
type Sink interface {
	Accept(ev model.LogEvent)
}

// State 는 Appender 의 lifecycle 상태.
type State int32

const (
	StateDisabled State = iota
	StateUninitialized
	StateStarting
	StateActive
	StateFailed // 시작 실패. Disabled 와 동일하게 이벤트를 버린다
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateDisabled:
		return "disabled"
	case StateUninitialized:
		return "uninitialized"
	case StateStarting:
		return "starting"
	case StateActive:
		return "active"
	case StateFailed:
		return "failed"
	case StateStopped:
		return "stopped"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// Options 는 Appender 생성 시 한 번 주입되는 값들.
type Options struct {
	Config config.Config

	// Enabled 는 config.Enabled(os.Environ()) 결과. false 면 아무 background 작업도 시작하지 않는다.
	Enabled bool

	Metrics *metrics.Metrics

	// ProfilePath 가 비어 있으면 profile.DefaultPath().
	ProfilePath string

	// NewClients 가 nil 이면 NewAWSClients.
	NewClients ClientFactory

	// Now 가 nil 이면 time.Now. Write/Append 의 timestamp 에 쓰인다.
	Now func() time.Time
}

// Appender 는 Lifecycle Controller 이다.
//
//	Disabled (gate 꺼짐, 종료 상태)
//	Uninitialized → Starting → Active → Stopped
//	                    └→ Failed (시작 실패 → 이벤트를 받되 버림)
//
// 첫 이벤트가 들어오면 CAS(Uninitialized → Starting)에 이긴 goroutine 하나만
// 시작 작업(그룹 결정, 스트림 생성, 스케줄러 시작)을 background 로 띄운다.
// 시작 중에 들어온 이벤트는 큐에 쌓이고, 시작이 실패하면 비워진다.
// producer 는 어떤 경우에도 네트워크 I/O 를 기다리지 않는다.
type Appender struct {
	cfg     config.Config
	metrics *metrics.Metrics
	now     func() time.Time

	newClients ClientFactory
	props      profile.Properties
	propsErr   error
	layout     *layout.JSON

	state     atomic.Int32
	queue     *worker.Queue
	startDone chan struct{}

	mu        sync.Mutex // mgr, clients, dest, abandoned
	mgr       *worker.Manager
	clients   Clients
	dest      model.Destination
	abandoned bool

	stopOnce sync.Once
}

var _ Sink = (*Appender)(nil)

// New 는 Appender 를 만든다. 네트워크 호출은 하지 않는다.
// Enabled 인 경우에만 로컬 프로파일 파일을 읽는다.
func New(opts Options) *Appender {
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}
	if opts.NewClients == nil {
		opts.NewClients = NewAWSClients
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	a := &Appender{
		cfg:        opts.Config.Normalize(),
		metrics:    opts.Metrics,
		now:        opts.Now,
		newClients: opts.NewClients,
		queue:      worker.NewQueue(opts.Metrics),
		startDone:  make(chan struct{}),
		props:      profile.Properties{},
	}

	if !opts.Enabled {
		a.state.Store(int32(StateDisabled))
		close(a.startDone)
		a.layout = layout.NewJSON(a.cfg.ModuleName, nil)
		return a
	}

	path := opts.ProfilePath
	if path == "" {
		path = profile.DefaultPath()
	}
	a.props, a.propsErr = profile.Load(path)
	a.layout = layout.NewJSON(a.cfg.ModuleName, a.props)

	a.state.Store(int32(StateUninitialized))
	return a
}

// State 는 현재 lifecycle 상태.
func (a *Appender) State() State {
	return State(a.state.Load())
}

// Destination 은 시작에 성공한 경우의 그룹/스트림. 그 전에는 zero value.
func (a *Appender) Destination() model.Destination {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.dest
}

// Metadata 는 프로파일에서 읽어 걸러낸 key/value (layout 컨텍스트와 동일).
func (a *Appender) Metadata() map[string]string {
	return a.props
}

// Accept 는 이벤트를 큐에 넣는다. O(1), non-blocking.
func (a *Appender) Accept(ev model.LogEvent) {
	for {
		switch State(a.state.Load()) {
		case StateActive:
			a.queue.Enqueue(ev)
			return

		case StateStarting:
			a.queue.Enqueue(ev)
			// 시작 실패와 경합한 경우 남은 이벤트를 다시 비운다
			if State(a.state.Load()) == StateFailed {
				a.queue.Clear()
			}
			return

		case StateUninitialized:
			if a.state.CompareAndSwap(int32(StateUninitialized), int32(StateStarting)) {
				a.queue.Enqueue(ev)
				go a.start()
				return
			}
			// CAS 에 졌으면 바뀐 상태로 다시 판단

		default:
			atomic.AddInt64(&a.metrics.EventsDiscardedTotal, 1)
			return
		}
	}
}

// Append 는 t 시각의 메시지를 받는다. 잘못된 UTF-8 바이트는 U+FFFD 로 바꾼다.
func (a *Appender) Append(t time.Time, msg string) {
	a.Accept(model.NewLogEvent(t, strings.ToValidUTF8(msg, "�")))
}

// Log 는 rec 를 JSON layout 으로 직렬화해 받는다.
func (a *Appender) Log(rec layout.Record) {
	if rec.Time.IsZero() {
		rec.Time = a.now()
	}
	a.Append(rec.Time, a.layout.Format(rec))
}

// Write 는 io.Writer 구현. zerolog 등 라인 단위 writer 의 출력 한 번을 이벤트 하나로 받는다.
// 끝의 개행은 제거한다. p 는 복사되므로 호출자가 재사용해도 된다.
func (a *Appender) Write(p []byte) (int, error) {
	msg := strings.TrimRight(string(p), "\r\n")
	a.Append(a.now(), msg)
	return len(p), nil
}

// start 는 CAS 에 이긴 쪽에서 정확히 한 번 실행된다.
func (a *Appender) start() {
	defer close(a.startDone)

	if err := a.initialise(); err != nil {
		if errors.Is(err, errAbandoned) {
			return
		}
		// 시작 실패 → 이후 이벤트는 받되 버린다. 진단 로그는 한 번만.
		if a.state.CompareAndSwap(int32(StateStarting), int32(StateFailed)) {
			a.queue.Clear()
		}
		zlog.Error().Err(err).Msg("error creating cloud log writer, shipping disabled")
		return
	}

	if a.state.CompareAndSwap(int32(StateStarting), int32(StateActive)) {
		d := a.Destination()
		zlog.Info().Str("group", d.GroupName).Str("stream", d.StreamName).Msg("streaming logs")
	}
}

func (a *Appender) initialise() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during start: %v", r)
		}
	}()

	group, err := a.resolveGroup()
	if err != nil {
		return err
	}
	dest := model.NewDestination(group, a.cfg.ModuleName)

	ctx := context.Background()
	clients, err := a.newClients(ctx, a.cfg)
	if err != nil {
		return err
	}

	mgr := worker.NewManager(
		a.cfg,
		a.metrics,
		a.queue,
		dest,
		clients.Logs,
		worker.NewDeadLetter(a.cfg, a.metrics, clients.S3),
	)

	// 스트림 생성은 Manager 와 같은 Submitter 경로를 쓴다
	if err := worker.NewSubmitter(clients.Logs, a.metrics, a.cfg.SubmitTimeout).CreateStream(ctx, dest); err != nil {
		if clients.Close != nil {
			clients.Close()
		}
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.abandoned {
		// Stop 이 시작 완료를 기다리다 포기한 뒤 도착한 경우
		if clients.Close != nil {
			clients.Close()
		}
		return errAbandoned
	}
	a.dest = dest
	a.clients = clients
	a.mgr = mgr
	mgr.Start()
	return nil
}

// resolveGroup 은 설정 override → 프로파일 log_group_name 순서로 그룹 이름을 결정한다.
func (a *Appender) resolveGroup() (string, error) {
	if a.cfg.LogGroup != "" {
		return a.cfg.LogGroup, nil
	}
	if g := a.props.LogGroupName(); g != "" {
		return g, nil
	}
	if a.propsErr != nil {
		return "", fmt.Errorf("%w: set CLOUD_LOG_GROUP or log_group_name in %s (%v)",
			ErrConfiguration, profile.DefaultPath(), a.propsErr)
	}
	return "", fmt.Errorf("%w: set CLOUD_LOG_GROUP or log_group_name in %s",
		ErrConfiguration, profile.DefaultPath())
}

// Stop
//
//  1. 상태를 Stopped 로 바꾼다. 이후 이벤트는 버린다.
//  2. 시작 중이면 시작이 끝나기를 (최대 6 × FlushInterval) 기다린다.
//  3. 스케줄러를 종료한다 (진행 중 tick 대기 → 마지막 flush).
//  4. 원격 client 를 정리한다.
//
// 여러 번 호출해도 안전하며, 에러나 panic 을 호출자에게 넘기지 않는다.
func (a *Appender) Stop(ctx context.Context) {
	a.stopOnce.Do(func() {
		defer func() {
			if r := recover(); r != nil {
				zlog.Error().Interface("panic", r).Msg("cloud log stop failed")
			}
		}()
		a.stop(ctx)
	})
}

func (a *Appender) stop(ctx context.Context) {
	prev := State(a.state.Swap(int32(StateStopped)))

	switch prev {
	case StateDisabled, StateStopped:
		return
	case StateUninitialized, StateFailed:
		a.queue.Clear()
		return
	}

	// 시작 대기와 스케줄러 종료 대기가 하나의 6 × FlushInterval 을 나눠 쓴다
	ctx, cancel := context.WithTimeout(ctx, a.cfg.ShutdownWait())
	defer cancel()

	if prev == StateStarting {
		select {
		case <-a.startDone:
		case <-ctx.Done():
			zlog.Warn().Msg("cloud log writer still starting at shutdown, pending events dropped")
		}
	}

	a.mu.Lock()
	a.abandoned = true
	mgr, clients := a.mgr, a.clients
	a.mgr, a.clients = nil, Clients{}
	a.mu.Unlock()

	if mgr == nil {
		a.queue.Clear()
		return
	}

	if err := mgr.Shutdown(ctx); err != nil {
		if errors.Is(err, worker.ErrShutdownTimeout) {
			zlog.Warn().Err(err).Msg("cloud log scheduler did not terminate in time")
		} else {
			zlog.Error().Err(err).Msg("final flush failed")
		}
	}

	if clients.Close != nil {
		clients.Close()
	}
}
