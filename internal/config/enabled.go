package config

import (
	"strings"

	zlog "github.com/rs/zerolog/log"
)

// EnabledEnvVar 는 파이프라인 전체를 켜는 환경 변수 이름이다.
const EnabledEnvVar = "CLOUD_LOG_ENABLED"

// Enabled
//
// 프로세스 시작 시 한 번만 호출해 결과를 Appender 에 주입한다.
// environ 은 os.Environ() 형태("KEY=VALUE")의 목록이다.
//
//   - 이름과 값 모두 대소문자 구분 없이 비교한다 (cloud_log_enabled=TRUE 도 허용).
//   - 변수가 없거나 값이 정확히 "true" 가 아니면 false (앞뒤 공백도 허용하지 않음).
func Enabled(environ []string) bool {
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || !strings.EqualFold(k, EnabledEnvVar) {
			continue
		}
		if strings.EqualFold(v, "true") {
			return true
		}
		zlog.Info().Str("env", k).Str("value", v).Msg("cloud log env var found but not true")
		return false
	}

	zlog.Info().Msgf("cloud log shipping is not enabled, set %s=true to enable it", EnabledEnvVar)
	return false
}
