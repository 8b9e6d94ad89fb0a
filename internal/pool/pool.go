package pool

import (
	"bytes"
	"io"
	"sync"

	"github.com/klauspost/compress/gzip"
)

// /collect body 읽기와 dead-letter gzip 인코딩의 임시 버퍼 / gzip.Writer 재사용.
// 이벤트 자체는 배치에 값으로 담겨 전송 후 버려지므로 풀링하지 않는다.

// MaxBufferCap 보다 커진 버퍼는 풀에 돌려주지 않고 GC 에 맡긴다.
const MaxBufferCap = 2 * 1024 * 1024

var (
	bodyPool = sync.Pool{
		New: func() any { return bytes.NewBuffer(make([]byte, 0, 4*1024)) },
	}

	// 배치 하나가 최대 약 1MB 이고 gzip 후에는 보통 그보다 훨씬 작다
	bufferPool = sync.Pool{
		New: func() any { return bytes.NewBuffer(make([]byte, 0, 256*1024)) },
	}

	gzipPool = sync.Pool{
		New: func() any {
			w, _ := gzip.NewWriterLevel(nil, gzip.BestSpeed)
			return w
		},
	}
)

// GetBody 는 비어 있는 요청 body 버퍼.
func GetBody() *bytes.Buffer {
	buf := bodyPool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

// PutBody 는 maxCap(보통 MaxBodySize*2) 이하일 때만 재사용한다.
func PutBody(buf *bytes.Buffer, maxCap int64) {
	if int64(buf.Cap()) <= maxCap {
		buf.Reset()
		bodyPool.Put(buf)
	}
}

// GetBuffer 는 비어 있는 인코딩 결과 버퍼.
func GetBuffer() *bytes.Buffer {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

func PutBuffer(buf *bytes.Buffer) {
	if buf.Cap() <= MaxBufferCap {
		buf.Reset()
		bufferPool.Put(buf)
	}
}

// GetGzip 은 dst 에 쓰도록 Reset 된 BestSpeed gzip.Writer.
func GetGzip(dst io.Writer) *gzip.Writer {
	gz := gzipPool.Get().(*gzip.Writer)
	gz.Reset(dst)
	return gz
}

// PutGzip 전에 Close 를 호출해야 한다 (footer 기록).
func PutGzip(gz *gzip.Writer) {
	gz.Reset(io.Discard)
	gzipPool.Put(gz)
}
