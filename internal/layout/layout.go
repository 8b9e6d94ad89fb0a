package layout

import (
	"time"

	json "github.com/goccy/go-json"
)

// Record 는 producer 가 넘긴 로그 한 건. Fields 는 nil 이어도 된다.
type Record struct {
	Time    time.Time
	Level   string
	Message string
	Fields  map[string]any
}

// JSON 은 Record 를 CloudWatch 에 보낼 한 줄 JSON 메시지로 만든다.
// 모듈 이름과 프로파일 메타데이터(비밀 값이 걸러진 map)를 모든 메시지에 붙인다.
type JSON struct {
	module  string
	context map[string]string
}

func NewJSON(module string, context map[string]string) *JSON {
	return &JSON{module: module, context: context}
}

type jsonLine struct {
	Timestamp string            `json:"timestamp"`
	Level     string            `json:"level,omitempty"`
	Module    string            `json:"module,omitempty"`
	Message   string            `json:"message"`
	Fields    map[string]any    `json:"fields,omitempty"`
	Context   map[string]string `json:"context,omitempty"`
}

// Format 은 rec 를 JSON 문자열로 직렬화한다.
// 직렬화에 실패하면(Fields 에 인코딩 불가 값) 원본 메시지를 그대로 반환한다.
func (l *JSON) Format(rec Record) string {
	line := jsonLine{
		Timestamp: rec.Time.UTC().Format(time.RFC3339Nano),
		Level:     rec.Level,
		Module:    l.module,
		Message:   rec.Message,
		Fields:    rec.Fields,
		Context:   l.context,
	}

	b, err := json.Marshal(&line)
	if err != nil {
		return rec.Message
	}
	return string(b)
}
