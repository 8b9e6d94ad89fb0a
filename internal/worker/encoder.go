package worker

import (
	"bytes"

	"logship/internal/model"
	"logship/internal/pool"

	json "github.com/goccy/go-json"
)

// Encoder 는 전송에 실패한 배치를 dead-letter 보관용 JSONL → gzip 으로 직렬화한다.
//
//   - goccy/go-json 인코딩
//   - gzip.Writer + bytes.Buffer 는 pool 에서 재사용
//   - 결과는 새 []byte 로 복사해 호출자에게 소유권을 넘긴다
type Encoder struct{}

func NewEncoder() *Encoder {
	return &Encoder{}
}

// deadLetterLine 은 dead-letter 파일의 한 줄.
// 어느 스트림으로 가려던 이벤트인지 함께 남긴다.
type deadLetterLine struct {
	Group     string `json:"group"`
	Stream    string `json:"stream"`
	Timestamp int64  `json:"timestamp"`
	Message   string `json:"message"`
}

// EncodeBatchJSONLGZ 는 배치를 이벤트당 한 줄 JSON 으로 인코딩한 뒤 gzip 압축해 반환한다.
func (e *Encoder) EncodeBatchJSONLGZ(dest model.Destination, batch model.Batch) ([]byte, error) {
	buf := pool.GetBuffer()
	defer pool.PutBuffer(buf)

	gz := pool.GetGzip(buf)
	defer pool.PutGzip(gz)

	enc := json.NewEncoder(gz)
	line := deadLetterLine{Group: dest.GroupName, Stream: dest.StreamName}

	for _, ev := range batch {
		line.Timestamp, line.Message = ev.Timestamp, ev.Message
		if err := enc.Encode(&line); err != nil {
			_ = gz.Close()
			return nil, err
		}
	}

	// footer 까지 기록
	if err := gz.Close(); err != nil {
		return nil, err
	}

	// buf 는 풀로 돌아가므로 복사본을 넘긴다
	return bytes.Clone(buf.Bytes()), nil
}
