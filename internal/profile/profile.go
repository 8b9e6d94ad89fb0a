// internal/profile/profile.go
package profile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/ini.v1"
)

// LogGroupKey 는 로그 그룹 이름 fallback 으로 쓰는 프로파일 키.
const LogGroupKey = "log_group_name"

// ErrNotFound 는 프로파일 파일이 없는 경우.
var ErrNotFound = errors.New("aws config file not found")

// Properties 는 ~/.aws/config 의 [default] 프로파일에서 읽은 key/value.
//
//   - key 는 소문자로 정규화된다.
//   - "secret" 을 포함하는 key, "output", "region" 은 제외된다.
//
// 이 map 은 로그 그룹 fallback 뿐 아니라 JSON layout 의 컨텍스트 메타데이터로도 쓰이므로
// 비밀 값이 섞이지 않도록 읽는 시점에 걸러 둔다.
type Properties map[string]string

// LogGroupName 은 log_group_name 값 (없으면 "").
func (p Properties) LogGroupName() string {
	return p[LogGroupKey]
}

// DefaultPath 는 AWS_CONFIG_FILE, 없으면 $HOME/.aws/config.
func DefaultPath() string {
	if p := os.Getenv("AWS_CONFIG_FILE"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".aws", "config")
}

// Load 는 path 의 [default] 섹션을 읽는다.
// 파일이 없으면 빈 Properties 와 ErrNotFound 를 반환한다.
// [default] 섹션이 없으면 빈 Properties 와 nil.
func Load(path string) (Properties, error) {
	props := Properties{}

	if path == "" {
		return props, ErrNotFound
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return props, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return props, err
	}

	f, err := ini.LoadSources(ini.LoadOptions{
		Insensitive:         false,
		IgnoreInlineComment: true,
		AllowBooleanKeys:    true,
	}, path)
	if err != nil {
		return props, fmt.Errorf("parse aws config %s: %w", path, err)
	}

	sec, err := f.GetSection("default")
	if err != nil {
		return props, nil
	}

	for _, k := range sec.Keys() {
		name := strings.ToLower(strings.TrimSpace(k.Name()))
		if excluded(name) {
			continue
		}
		props[name] = k.Value()
	}
	return props, nil
}

func excluded(key string) bool {
	return key == "" ||
		strings.Contains(key, "secret") ||
		key == "output" ||
		key == "region"
}
