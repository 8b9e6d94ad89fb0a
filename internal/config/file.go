package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadFile 은 YAML 설정 파일을 base 위에 덮어쓴다.
// 파일에 없는 키는 base 값이 그대로 유지된다.
func LoadFile(path string, base Config) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := base
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return base, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg.Normalize(), nil
}

// Normalize 는 0 이하의 주기/횟수 값을 기본값으로 되돌린다.
func (c Config) Normalize() Config {
	if c.FlushInterval <= 0 {
		c.FlushInterval = DefaultFlushInterval
	}
	if c.DeadLetterPrefix == "" {
		c.DeadLetterPrefix = DefaultDeadLetterPrefix
	}
	if c.DeadLetterTimeout <= 0 {
		c.DeadLetterTimeout = DefaultDeadLetterTimeout
	}
	if c.DeadLetterRetries <= 0 {
		c.DeadLetterRetries = DefaultDeadLetterRetries
	}
	if c.MaxBodySize <= 0 {
		c.MaxBodySize = DefaultMaxBodySize
	}
	if c.InstanceID == "" {
		c.InstanceID = fallbackInstanceID()
	}
	return c
}

// ShutdownWait 는 종료 시 진행 중인 tick 을 기다리는 최대 시간 (flush 주기의 6배).
func (c Config) ShutdownWait() time.Duration {
	return 6 * c.FlushInterval
}
