package main

import (
	"bufio"
	"io"

	"logship/internal/model"

	zlog "github.com/rs/zerolog/log"
)

// 한 줄이 이벤트 하나로 배치 한도를 넘지 않도록 자른다
const maxLineBytes = model.MaxBatchBytes - model.PerEventOverhead

// readLines 는 r 의 각 줄을 emit 으로 넘긴다. EOF 에서 nil.
// limit 바이트를 넘는 줄은 잘라서 넘기고 나머지는 버린 뒤 다음 줄부터 계속 읽는다.
func readLines(r io.Reader, limit int, emit func(string)) error {
	br := bufio.NewReaderSize(r, 64*1024)

	var (
		line      []byte
		truncated bool
	)

	for {
		chunk, isPrefix, err := br.ReadLine()
		if err != nil {
			if len(line) > 0 {
				emit(string(line))
			}
			if err == io.EOF {
				return nil
			}
			return err
		}

		if !truncated {
			if room := limit - len(line); len(chunk) > room {
				chunk = chunk[:room]
				truncated = true
			}
			line = append(line, chunk...)
		}

		if isPrefix {
			continue
		}

		if truncated {
			zlog.Warn().Int("max_bytes", limit).Msg("stdin line truncated")
		}
		emit(string(line))
		line = line[:0]
		truncated = false
	}
}
