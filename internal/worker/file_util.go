package worker

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// file_util.go
// ------------------------------------------------------------
// dead-letter 객체 이름 규칙.
//
//	<prefix>/dt=<YYYY-MM-DD>/hr=<HH>/<unix>_<instance>_<counter>.jsonl.gz
//
// 예:
//
//	logship-dlq/dt=2024-06-01/hr=09/1717232400_api-1_000042.jsonl.gz
//
// 파일명을 정렬하면 곧 시간 순 정렬이다.
var globalCounter uint64

// NextCounter 는 1,000,000 에서 0 으로 돌아가는 순차 번호.
func NextCounter() uint64 {
	return atomic.AddUint64(&globalCounter, 1) % 1_000_000
}

// NewFilename 은 <unix>_<instance>_<counter>.jsonl.gz 형태의 이름을 만든다.
// instance 안의 '/' 는 S3 key 계층을 깨뜨리므로 '-' 로 바꾼다.
func NewFilename(instanceID string) string {
	instanceID = strings.ReplaceAll(instanceID, "/", "-")
	return fmt.Sprintf("%d_%s_%06d.jsonl.gz", Unix(), instanceID, NextCounter())
}

// BuildS3Key 는 dt/hr 파티션이 붙은 S3 key 를 만든다.
func BuildS3Key(prefix, filename string) string {
	prefix = strings.TrimSuffix(prefix, "/")
	return fmt.Sprintf("%s/dt=%s/hr=%s/%s", prefix, DT(), HR(), filename)
}
