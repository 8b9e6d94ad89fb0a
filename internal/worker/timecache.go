// internal/worker/timecache.go
package worker

import (
	"sync"
	"sync/atomic"
	"time"
)

// timecache.go
// ------------------------------------------------------------
// 현재 UTC epoch seconds 와 UTC 기준 날짜/시간 파티션을 캐싱한다.
// dead-letter 객체 이름(NewFilename / BuildS3Key)에서 사용한다.
//
// 1초 ticker goroutine 은 첫 사용 시점에 한 번만 띄운다.
// 파이프라인이 Disabled 인 프로세스에서는 goroutine 이 생기지 않는다.
// ------------------------------------------------------------

var (
	unixSec atomic.Int64
	dtVal   atomic.Value // "YYYY-MM-DD"
	hrVal   atomic.Value // "HH"

	timecacheOnce sync.Once
)

func ensureTimecache() {
	timecacheOnce.Do(func() {
		update(time.Now())

		go func() {
			ticker := time.NewTicker(time.Second)
			defer ticker.Stop()

			for now := range ticker.C {
				update(now)
			}
		}()
	})
}

func update(now time.Time) {
	now = now.UTC()
	unixSec.Store(now.Unix())
	dtVal.Store(now.Format("2006-01-02"))
	hrVal.Store(now.Format("15"))
}

// Unix returns current UTC epoch seconds (cached, 1-second precision).
func Unix() int64 {
	ensureTimecache()
	return unixSec.Load()
}

// DT returns "YYYY-MM-DD" (UTC).
func DT() string {
	ensureTimecache()
	return dtVal.Load().(string)
}

// HR returns "HH" (UTC).
func HR() string {
	ensureTimecache()
	return hrVal.Load().(string)
}
