// internal/model/event.go
package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ------------------------------------------------------------
// CloudWatch Logs PutLogEvents 제약
//
//   - 한 번의 호출에 최대 10,000 이벤트 → 여유를 두고 8,000 으로 제한
//   - 최대 1,048,576 바이트 (UTF-8 메시지 길이 합 + 이벤트당 26 바이트)
//     → 48,000 바이트 여유를 둔다
// ------------------------------------------------------------
const (
	MaxEventsPerBatch = 8000
	MaxBatchBytes     = 1_048_576 - 48_000
	PerEventOverhead  = 26
)

// LogEvent
// ------------------------------------------------------------
// producer 가 캡처한 단일 로그 이벤트.
// 생성 이후에는 변경되지 않는다(immutable). 값 타입으로 전달한다.
type LogEvent struct {
	Timestamp int64  `json:"timestamp"` // epoch millis
	Message   string `json:"message"`
}

// NewLogEvent 는 t 시각의 이벤트를 만든다.
func NewLogEvent(t time.Time, msg string) LogEvent {
	return LogEvent{Timestamp: t.UnixMilli(), Message: msg}
}

// Size 는 배치 바이트 예산에서 이 이벤트가 차지하는 크기.
// Go string 은 UTF-8 바이트열이므로 len() 이 곧 UTF-8 길이다.
func (e LogEvent) Size() int {
	return len(e.Message) + PerEventOverhead
}

// Batch
// ------------------------------------------------------------
// 한 번의 PutLogEvents 호출로 전송되는 이벤트 묶음.
type Batch []LogEvent

// Bytes 는 배치 전체의 바이트 예산 사용량.
func (b Batch) Bytes() int {
	n := 0
	for _, ev := range b {
		n += ev.Size()
	}
	return n
}

// Messages 는 배치의 메시지만 순서대로 꺼낸다.
func (b Batch) Messages() []string {
	out := make([]string, len(b))
	for i, ev := range b {
		out[i] = ev.Message
	}
	return out
}

// Destination
// ------------------------------------------------------------
// 로그 그룹/스트림 쌍. 프로세스 수명 동안 한 번만 만들어지고 변경되지 않는다.
type Destination struct {
	GroupName  string
	StreamName string
}

// NewDestination 은 module-<moduleName>/<uuid> 형태의 스트림 이름을 새로 만든다.
// moduleName 이 비어 있으면 "unknown".
func NewDestination(groupName, moduleName string) Destination {
	if moduleName == "" {
		moduleName = "unknown"
	}
	return Destination{
		GroupName:  groupName,
		StreamName: fmt.Sprintf("module-%s/%s", moduleName, uuid.NewString()),
	}
}

func (d Destination) String() string {
	return d.GroupName + ":" + d.StreamName
}
