// internal/config/config.go
package config

import (
	"crypto/rand"
	"encoding/hex"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config
//
// 파이프라인 실행 시 필요한 모든 설정 값을 보관하는 구조체.
// 값은 최초 사용 전에 Load() (+ LoadFile / CLI flag) 로 채워지며,
// 파이프라인이 시작된 이후에는 변경되지 않는 read-only 설정이다.
type Config struct {

	// ---------------------------
	// CloudWatch Logs 대상
	// ---------------------------

	AWSRegion string `yaml:"aws_region"` // 비어 있으면 SDK 기본 체인(프로파일/IMDS)에 맡긴다

	LogGroup   string `yaml:"log_group"`   // 로그 그룹 override. 비면 ~/.aws/config 의 log_group_name 사용
	ModuleName string `yaml:"module_name"` // 스트림 이름 module-<ModuleName>/<uuid> 의 모듈 부분

	// ---------------------------
	// 스케줄러
	// ---------------------------

	FlushInterval time.Duration `yaml:"flush_interval"` // flush 주기 (기본 4초)
	SubmitTimeout time.Duration `yaml:"submit_timeout"` // PutLogEvents 1회 timeout. 0 이면 transport 기본값만 사용

	Debug bool `yaml:"debug"` // 파이프라인 로직에는 영향 없음. 로컬 로그 레벨만 debug 로 올린다

	// ---------------------------
	// Dead-letter (선택)
	// ---------------------------
	// 전송 실패한 배치를 S3 에 보관한다. 버킷이 비어 있으면 비활성.
	// CloudWatch 재전송은 하지 않는다.

	DeadLetterBucket  string        `yaml:"dead_letter_bucket"`
	DeadLetterPrefix  string        `yaml:"dead_letter_prefix"`
	DeadLetterTimeout time.Duration `yaml:"dead_letter_timeout"` // S3 PutObject 시도당 timeout
	DeadLetterRetries int           `yaml:"dead_letter_retries"` // S3 업로드 시도 횟수 (SDK retry 는 0 고정)

	// ---------------------------
	// 호스트 프로세스 / 네트워크
	// ---------------------------

	InstanceID  string `yaml:"instance_id"` // 호스트명 기반, 실패 시 랜덤 hex
	ServiceName string `yaml:"service_name"`
	HTTPAddr    string `yaml:"http_addr"`     // 비어 있으면 HTTP collect 서버를 띄우지 않는다
	MaxBodySize int64  `yaml:"max_body_size"` // /collect 요청 body 최대 크기 (바이트)

	// ---------------------------
	// 로컬 로깅
	// ---------------------------

	LogLevel   string `yaml:"log_level"`
	LogPretty  bool   `yaml:"log_pretty"`
	LogSampleN uint32 `yaml:"log_sample_n"`
}

const (
	DefaultFlushInterval     = 4 * time.Second
	DefaultDeadLetterPrefix  = "logship-dlq"
	DefaultDeadLetterTimeout = 5 * time.Second
	DefaultDeadLetterRetries = 3
	DefaultMaxBodySize       = 1 << 20
)

// Default 는 환경 변수 없이도 동작 가능한 기본 설정을 반환한다.
func Default() Config {
	return Config{
		FlushInterval:     DefaultFlushInterval,
		DeadLetterPrefix:  DefaultDeadLetterPrefix,
		DeadLetterTimeout: DefaultDeadLetterTimeout,
		DeadLetterRetries: DefaultDeadLetterRetries,
		InstanceID:        fallbackInstanceID(),
		ServiceName:       "logship",
		MaxBodySize:       DefaultMaxBodySize,
		LogLevel:          "info",
	}
}

// Load
//
// 환경 변수 기반으로 Config 값을 초기화한다.
// 필수 값은 없다. 로그 그룹은 프로파일 fallback 이 있으므로
// 여기서 fail-fast 하지 않고, 파이프라인 시작 시점에 판단한다.
// 형식이 잘못된 값은 즉시 종료(fail-fast)한다.
func Load() Config {
	d := Default()

	return Config{
		AWSRegion: env("AWS_REGION", d.AWSRegion),

		LogGroup:   env("CLOUD_LOG_GROUP", d.LogGroup),
		ModuleName: env("CLOUD_LOG_MODULE", d.ModuleName),

		FlushInterval: envSeconds("CLOUD_LOG_FLUSH_INTERVAL", d.FlushInterval),
		SubmitTimeout: envDur("CLOUD_LOG_SUBMIT_TIMEOUT", d.SubmitTimeout),
		Debug:         envBool("CLOUD_LOG_DEBUG", d.Debug),

		DeadLetterBucket:  env("DEAD_LETTER_BUCKET", d.DeadLetterBucket),
		DeadLetterPrefix:  env("DEAD_LETTER_PREFIX", d.DeadLetterPrefix),
		DeadLetterTimeout: envDur("DEAD_LETTER_TIMEOUT", d.DeadLetterTimeout),
		DeadLetterRetries: envInt("DEAD_LETTER_RETRIES", d.DeadLetterRetries),

		InstanceID:  env("INSTANCE_ID", d.InstanceID),
		ServiceName: env("SERVICE_NAME", d.ServiceName),
		HTTPAddr:    env("HTTP_ADDR", d.HTTPAddr),
		MaxBodySize: envInt64("MAX_BODY_SIZE", d.MaxBodySize),

		LogLevel:   env("LOG_LEVEL", d.LogLevel),
		LogPretty:  envBool("LOG_PRETTY", d.LogPretty),
		LogSampleN: uint32(envInt("LOG_SAMPLE_N", int(d.LogSampleN))),
	}.Normalize()
}

// env / envInt / envInt64 / envDur / envSeconds / envBool
//
// 값이 없으면 기본값, 형식이 잘못되면 즉시 로그 출력 후 종료(fail-fast).
func env(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := env(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Fatalf("invalid int env %s=%q: %v", key, v, err)
	}
	return n
}

func envInt64(key string, def int64) int64 {
	v := env(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		log.Fatalf("invalid int64 env %s=%q: %v", key, v, err)
	}
	return n
}

func envDur(key string, def time.Duration) time.Duration {
	v := env(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Fatalf("invalid duration env %s=%q: %v", key, v, err)
	}
	return d
}

// envSeconds 는 "4" 처럼 정수 초 단위와 "4s" 같은 duration 표기를 모두 허용한다.
func envSeconds(key string, def time.Duration) time.Duration {
	v := env(key, "")
	if v == "" {
		return def
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return envDur(key, def)
}

func envBool(key string, def bool) bool {
	v := env(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Fatalf("invalid bool env %s=%q: %v", key, v, err)
	}
	return b
}

// fallbackInstanceID
//
// 이 프로세스를 식별하는 고유 값.
//   - 기본: hostname
//   - fallback: 12자리 랜덤 hex
func fallbackInstanceID() string {
	if h, err := os.Hostname(); err == nil && h != "" {
		return h
	}
	var b [6]byte
	if _, err := rand.Read(b[:]); err == nil {
		return hex.EncodeToString(b[:])
	}
	return strconv.FormatInt(time.Now().UnixNano(), 10)
}
