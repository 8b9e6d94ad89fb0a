// internal/worker/submitter.go
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"logship/internal/metrics"
	"logship/internal/model"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"
)

var (
	// ErrStreamCreation 은 CreateLogStream 이 거부된 경우. 파이프라인 시작만 실패한다.
	ErrStreamCreation = errors.New("log stream creation failed")

	// ErrSubmission 은 PutLogEvents 호출 실패. 재시도하지 않고 해당 배치는 유실된다.
	ErrSubmission = errors.New("log events submission failed")
)

// LogsAPI 는 Submitter 가 사용하는 CloudWatch Logs client 의 최소 범위.
// *cloudwatchlogs.Client 가 그대로 만족하며, 테스트에서는 fake 로 대체한다.
type LogsAPI interface {
	CreateLogStream(ctx context.Context, in *cloudwatchlogs.CreateLogStreamInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.CreateLogStreamOutput, error)
	PutLogEvents(ctx context.Context, in *cloudwatchlogs.PutLogEventsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.PutLogEventsOutput, error)
}

// Submitter 는 배치 하나를 PutLogEvents 한 번으로 전송한다.
//
//   - 빈 배치는 네트워크 호출 없이 입력 token 을 그대로 돌려준다.
//   - 성공 시 응답의 NextSequenceToken 을 반환하며, 호출자는 다음 호출에 그대로 넘겨야 한다.
//   - 실패 시 재시도 없이 ErrSubmission 을 감싸서 반환한다.
//
// Submitter 자체는 상태가 없다. token 은 Manager(스케줄러)가 보관한다.
type Submitter struct {
	client  LogsAPI
	metrics *metrics.Metrics

	// 0 이면 호출별 timeout 없음 (transport 기본값에 맡김)
	timeout time.Duration
}

func NewSubmitter(client LogsAPI, m *metrics.Metrics, timeout time.Duration) *Submitter {
	return &Submitter{client: client, metrics: m, timeout: timeout}
}

// CreateStream 은 dest 의 로그 스트림을 만든다.
func (s *Submitter) CreateStream(ctx context.Context, dest model.Destination) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	_, err := s.client.CreateLogStream(ctx, &cloudwatchlogs.CreateLogStreamInput{
		LogGroupName:  aws.String(dest.GroupName),
		LogStreamName: aws.String(dest.StreamName),
	})
	if err != nil {
		return fmt.Errorf("%w: group=%s stream=%s: %v", ErrStreamCreation, dest.GroupName, dest.StreamName, err)
	}

	atomic.AddInt64(&s.metrics.StreamsCreatedTotal, 1)
	return nil
}

// Submit 은 이미 시간 순으로 정렬된 batch 를 전송하고 다음 sequence token 을 반환한다.
// token 이 nil 또는 빈 문자열이면 SequenceToken 없이 호출한다 (새 스트림의 첫 호출).
func (s *Submitter) Submit(
	ctx context.Context,
	dest model.Destination,
	batch model.Batch,
	token *string,
) (*string, error) {

	if len(batch) == 0 {
		return token, nil
	}

	events := make([]types.InputLogEvent, len(batch))
	for i, ev := range batch {
		events[i] = types.InputLogEvent{
			Message:   aws.String(ev.Message),
			Timestamp: aws.Int64(ev.Timestamp),
		}
	}

	in := &cloudwatchlogs.PutLogEventsInput{
		LogGroupName:  aws.String(dest.GroupName),
		LogStreamName: aws.String(dest.StreamName),
		LogEvents:     events,
	}
	if token != nil && *token != "" {
		in.SequenceToken = token
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	out, err := s.client.PutLogEvents(ctx, in)
	if err != nil {
		atomic.AddInt64(&s.metrics.SubmitErrorsTotal, 1)
		return token, fmt.Errorf("%w: %d events to %s: %v", ErrSubmission, len(batch), dest, err)
	}

	atomic.AddInt64(&s.metrics.BatchesSubmittedTotal, 1)
	atomic.AddInt64(&s.metrics.EventsSubmittedTotal, int64(len(batch)))

	if out == nil {
		return nil, nil
	}
	return out.NextSequenceToken, nil
}

func (s *Submitter) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}
