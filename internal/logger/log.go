// internal/logger/log.go
package logger

import (
	"io"
	"os"
	"strings"

	"logship/internal/config"

	stdlog "log"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
)

// Init
//
// 프로세스 시작 시 한 번 호출되는 로컬 진단 로거 초기화.
// 파이프라인 자체의 진단 메시지(스트림 생성 실패, 전송 실패, 종료 timeout 등)는
// 모두 이 전역 로거로 나간다. CloudWatch 로 보내지는 이벤트와는 별개이다.
//
// [주요 기능]
//
//  1. 레벨: LOG_LEVEL, CLOUD_LOG_DEBUG=true 이면 debug 로 강제
//  2. 포맷: LOG_PRETTY=true 면 ConsoleWriter, 아니면 JSON (stderr)
//  3. 공통 필드: "service", "instance"
//  4. 샘플링: LOG_SAMPLE_N > 1 이면 Debug/Info 만 1/N 기록. Warn/Error 는 전부 기록
//
// 사용 예:
//
//	logger.Init(cfg)
//	log.Info().Msg("streaming logs")
func Init(cfg config.Config) {
	zlog.Logger = New(cfg, os.Stderr)

	// 표준 log 패키지 출력도 같은 규칙을 따르게 한다
	stdlog.SetFlags(0)
	stdlog.SetOutput(zlog.Logger)
}

// New 는 Init 과 같은 규칙으로 out 에 쓰는 로거를 만든다.
// stdout 은 stdin 파이프 모드에서 데이터 경로와 섞일 수 있어 Init 은 stderr 를 쓴다.
func New(cfg config.Config, out io.Writer) zerolog.Logger {

	// -------------------------------------------------------------------
	// 1) 로그 레벨
	// -------------------------------------------------------------------
	level := Level(cfg)
	zerolog.SetGlobalLevel(level)

	// -------------------------------------------------------------------
	// 2) 출력 방식 (사람 vs 기계)
	// -------------------------------------------------------------------
	w := out
	if cfg.LogPretty {
		w = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: "15:04:05",
		}
	}

	// -------------------------------------------------------------------
	// 3) 공통 필드
	// -------------------------------------------------------------------
	base := zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Str("service", cfg.ServiceName).
		Str("instance", cfg.InstanceID).
		Logger()

	// -------------------------------------------------------------------
	// 4) 샘플링
	// -------------------------------------------------------------------
	if cfg.LogSampleN > 1 {
		return base.Sample(&zerolog.LevelSampler{
			DebugSampler: &zerolog.BasicSampler{N: cfg.LogSampleN},
			InfoSampler:  &zerolog.BasicSampler{N: cfg.LogSampleN},
		})
	}
	return base
}

// Level 은 cfg 에서 최소 출력 레벨을 결정한다. 파싱 실패 시 info.
func Level(cfg config.Config) zerolog.Level {
	if cfg.Debug {
		return zerolog.DebugLevel
	}
	if l, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.LogLevel))); err == nil && l != zerolog.NoLevel {
		return l
	}
	return zerolog.InfoLevel
}
