package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"logship/internal/config"
	"logship/internal/model"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// fakeLogs 는 LogsAPI fake. 호출을 기록하고 token 을 "t1", "t2", ... 순서로 발급한다.
type fakeLogs struct {
	mu sync.Mutex

	streams []string
	puts    []*cloudwatchlogs.PutLogEventsInput

	createErr error
	putErr    error
	failPutAt int // 1-based, 0 이면 비활성

	block chan struct{} // nil 이 아니면 PutLogEvents 가 닫힐 때까지 대기

	honourCtx bool // true 면 끝난 ctx 로 호출 시 실제 client 처럼 실패
}

func (f *fakeLogs) CreateLogStream(_ context.Context, in *cloudwatchlogs.CreateLogStreamInput, _ ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.CreateLogStreamOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.streams = append(f.streams, aws.ToString(in.LogStreamName))
	return &cloudwatchlogs.CreateLogStreamOutput{}, nil
}

func (f *fakeLogs) PutLogEvents(ctx context.Context, in *cloudwatchlogs.PutLogEventsInput, _ ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.PutLogEventsOutput, error) {
	if f.honourCtx && ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.puts = append(f.puts, in)
	n := len(f.puts)
	if f.putErr != nil || n == f.failPutAt {
		return nil, errors.New("InvalidSequenceTokenException")
	}
	return &cloudwatchlogs.PutLogEventsOutput{
		NextSequenceToken: aws.String(fmt.Sprintf("t%d", n)),
	}, nil
}

func (f *fakeLogs) putCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.puts)
}

func (f *fakeLogs) put(i int) *cloudwatchlogs.PutLogEventsInput {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.puts[i]
}

func messagesOf(in *cloudwatchlogs.PutLogEventsInput) []string {
	out := make([]string, len(in.LogEvents))
	for i, ev := range in.LogEvents {
		out[i] = aws.ToString(ev.Message)
	}
	return out
}

// fakeS3 는 ObjectPutter fake.
type fakeS3 struct {
	mu       sync.Mutex
	keys     []string
	failures int // 처음 failures 번은 실패
	calls    int
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.failures {
		return nil, errors.New("SlowDown")
	}
	f.keys = append(f.keys, aws.ToString(in.Key))
	return &s3.PutObjectOutput{}, nil
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.FlushInterval = 20 * time.Millisecond
	cfg.InstanceID = "test-1"
	return cfg
}

func testDest() model.Destination {
	return model.Destination{GroupName: "group", StreamName: "module-test/abc"}
}

func enqueueMessages(q *Queue, msgs ...string) {
	for i, msg := range msgs {
		q.Enqueue(model.LogEvent{Timestamp: int64(i + 1), Message: msg})
	}
}
