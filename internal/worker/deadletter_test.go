package worker

import (
	"bufio"
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"logship/internal/metrics"
	"logship/internal/model"

	json "github.com/goccy/go-json"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDeadLetterDisabledWithoutBucket(t *testing.T) {
	assert.Nil(t, NewDeadLetter(testConfig(), metrics.New(), &fakeS3{}))
}

func TestDeadLetterRetriesThenSucceeds(t *testing.T) {
	cfg := testConfig()
	cfg.DeadLetterBucket = "dlq"
	cfg.DeadLetterRetries = 3
	m := metrics.New()
	store := &fakeS3{failures: 1}

	dl := NewDeadLetter(cfg, m, store)
	key, err := dl.Store(context.Background(), testDest(), model.Batch{{Timestamp: 1, Message: "a"}})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(key, "logship-dlq/dt="))
	assert.True(t, strings.HasSuffix(key, ".jsonl.gz"))
	assert.Equal(t, 2, store.calls)
	assert.Equal(t, int64(1), m.DeadLetterPutErrorsTotal)
	assert.Equal(t, int64(1), m.DeadLetterEventsStoredTotal)
}

func TestDeadLetterGivesUp(t *testing.T) {
	cfg := testConfig()
	cfg.DeadLetterBucket = "dlq"
	cfg.DeadLetterRetries = 2
	store := &fakeS3{failures: 10}

	_, err := NewDeadLetter(cfg, metrics.New(), store).Store(context.Background(), testDest(), model.Batch{{Timestamp: 1, Message: "a"}})
	assert.Error(t, err)
	assert.Equal(t, 2, store.calls)
}

func TestDeadLetterStopsOnCancel(t *testing.T) {
	cfg := testConfig()
	cfg.DeadLetterBucket = "dlq"
	cfg.DeadLetterRetries = 5
	store := &fakeS3{failures: 10}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := NewDeadLetter(cfg, metrics.New(), store).Store(ctx, testDest(), model.Batch{{Timestamp: 1, Message: "a"}})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, store.calls, 5)
}

func TestEncodeBatchJSONLGZ(t *testing.T) {
	batch := model.Batch{
		{Timestamp: 1, Message: "first"},
		{Timestamp: 2, Message: `{"nested":"json"}`},
	}

	data, err := NewEncoder().EncodeBatchJSONLGZ(testDest(), batch)
	require.NoError(t, err)

	gz, err := gzip.NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer gz.Close()

	var lines []deadLetterLine
	sc := bufio.NewScanner(gz)
	for sc.Scan() {
		var l deadLetterLine
		require.NoError(t, json.Unmarshal(sc.Bytes(), &l))
		lines = append(lines, l)
	}
	require.NoError(t, sc.Err())

	require.Len(t, lines, 2)
	assert.Equal(t, "group", lines[0].Group)
	assert.Equal(t, "module-test/abc", lines[0].Stream)
	assert.Equal(t, int64(2), lines[1].Timestamp)
	assert.Equal(t, `{"nested":"json"}`, lines[1].Message)
}

func TestFilenameAndKey(t *testing.T) {
	name := NewFilename("module-api/host")
	assert.NotContains(t, name, "/")
	assert.True(t, strings.HasSuffix(name, ".jsonl.gz"))

	key := BuildS3Key("prefix/", name)
	assert.Equal(t, "prefix/dt="+DT()+"/hr="+HR()+"/"+name, key)

	assert.NotEqual(t, NewFilename("a"), NewFilename("a"))
}
