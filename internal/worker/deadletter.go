// internal/worker/deadletter.go
package worker

import (
	"bytes"
	"context"
	"sync/atomic"
	"time"

	"logship/internal/config"
	"logship/internal/metrics"
	"logship/internal/model"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	zlog "github.com/rs/zerolog/log"
)

// ObjectPutter 는 DeadLetter 가 사용하는 S3 client 의 최소 범위.
type ObjectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// DeadLetter 는 PutLogEvents 에 실패한 배치를 S3 에 gzip+JSONL 로 보관한다.
//
// CloudWatch 로 재전송하지는 않는다. 파이프라인 입장에서 실패 배치는 여전히 유실이며
// (EventsLostTotal), 운영자가 나중에 S3 에서 확인할 수 있도록 남겨 두는 용도다.
// DeadLetterBucket 설정이 비어 있으면 NewDeadLetter 는 nil 을 반환하고 Manager 는 보관을 건너뛴다.
type DeadLetter struct {
	cfg     config.Config
	metrics *metrics.Metrics
	client  ObjectPutter
	encoder *Encoder
}

func NewDeadLetter(cfg config.Config, m *metrics.Metrics, client ObjectPutter) *DeadLetter {
	if cfg.DeadLetterBucket == "" || client == nil {
		return nil
	}
	return &DeadLetter{
		cfg:     cfg,
		metrics: m,
		client:  client,
		encoder: NewEncoder(),
	}
}

// NewS3Client 는 SDK retry 를 끈 S3 client 를 만든다.
// 재시도 횟수는 DeadLetterRetries 로만 제어한다.
// (RetryMaxAttempts = 0 은 "SDK 기본값" 이라 retryer 자체를 교체한다)
func NewS3Client(awsCfg aws.Config) *s3.Client {
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.Retryer = aws.NopRetryer{}
	})
}

// Store 는 batch 를 인코딩해 S3 에 올린다. 성공 시 S3 key 를 반환한다.
func (d *DeadLetter) Store(ctx context.Context, dest model.Destination, batch model.Batch) (string, error) {
	if len(batch) == 0 {
		return "", nil
	}

	data, err := d.encoder.EncodeBatchJSONLGZ(dest, batch)
	if err != nil {
		return "", err
	}

	key := BuildS3Key(d.cfg.DeadLetterPrefix, NewFilename(d.cfg.InstanceID))
	if err := d.uploadBytesWithRetryCtx(ctx, key, data); err != nil {
		return "", err
	}

	atomic.AddInt64(&d.metrics.DeadLetterEventsStoredTotal, int64(len(batch)))
	return key, nil
}

// uploadBytesWithRetryCtx
// -----------------------
// gzip+JSONL 바이트 배열을 S3 로 업로드한다.
// - 시도당 DeadLetterTimeout
// - exponential backoff (200ms → 최대 2초)
// - ctx.Done() 시 즉시 중단
func (d *DeadLetter) uploadBytesWithRetryCtx(ctx context.Context, key string, body []byte) error {
	var lastErr error
	backoff := 200 * time.Millisecond

	for attempt := 1; attempt <= d.cfg.DeadLetterRetries; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := d.putObject(ctx, key, body); err == nil {
			return nil
		} else {
			lastErr = err
			atomic.AddInt64(&d.metrics.DeadLetterPutErrorsTotal, 1)
			zlog.Warn().Err(err).Str("key", key).Int("attempt", attempt).Msg("dead-letter put failed")
		}

		if attempt == d.cfg.DeadLetterRetries {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
			backoff *= 2
			if backoff > 2*time.Second {
				backoff = 2 * time.Second
			}
		}
	}

	return lastErr
}

func (d *DeadLetter) putObject(ctx context.Context, key string, body []byte) error {
	ctx2, cancel := context.WithTimeout(ctx, d.cfg.DeadLetterTimeout)
	defer cancel()

	// body 는 시도마다 새 reader 로 감싼다
	_, err := d.client.PutObject(ctx2, &s3.PutObjectInput{
		Bucket:          aws.String(d.cfg.DeadLetterBucket),
		Key:             aws.String(key),
		Body:            bytes.NewReader(body),
		ContentLength:   aws.Int64(int64(len(body))),
		ContentType:     aws.String("application/x-ndjson"),
		ContentEncoding: aws.String("gzip"),
	})
	return err
}
