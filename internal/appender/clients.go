package appender

import (
	"context"
	"fmt"

	"logship/internal/config"
	"logship/internal/worker"

	awsCfgLib "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
)

// Clients 는 파이프라인이 시작될 때 한 번 만들어지는 원격 client 묶음.
type Clients struct {
	Logs worker.LogsAPI
	S3   worker.ObjectPutter // dead-letter 비활성 시 nil

	// Close 는 종료 시 호출된다. nil 이면 생략.
	Close func()
}

// ClientFactory 는 파이프라인 시작 시 호출된다. 테스트에서는 fake 를 반환한다.
type ClientFactory func(ctx context.Context, cfg config.Config) (Clients, error)

// NewAWSClients 는 SDK 기본 체인(env / ~/.aws / IMDS)으로 자격 증명을 읽어
// CloudWatch Logs client 와 (필요 시) S3 client 를 만든다.
func NewAWSClients(ctx context.Context, cfg config.Config) (Clients, error) {
	var opts []func(*awsCfgLib.LoadOptions) error
	if cfg.AWSRegion != "" {
		opts = append(opts, awsCfgLib.WithRegion(cfg.AWSRegion))
	}

	awsCfg, err := awsCfgLib.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return Clients{}, fmt.Errorf("load aws config: %w", err)
	}

	c := Clients{
		Logs: cloudwatchlogs.NewFromConfig(awsCfg),
	}
	if cfg.DeadLetterBucket != "" {
		c.S3 = worker.NewS3Client(awsCfg)
	}

	// SDK v2 client 에는 Close 가 없다. keep-alive 연결만 정리한다.
	if idle, ok := awsCfg.HTTPClient.(interface{ CloseIdleConnections() }); ok {
		c.Close = idle.CloseIdleConnections
	}
	return c, nil
}
