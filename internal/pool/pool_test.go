package pool

import (
	"bytes"
	"io"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuffersComeBackEmpty(t *testing.T) {
	buf := GetBody()
	buf.WriteString("leftover")
	PutBody(buf, 1<<20)

	assert.Zero(t, GetBody().Len())

	out := GetBuffer()
	out.WriteString("leftover")
	PutBuffer(out)
	assert.Zero(t, GetBuffer().Len())
}

func TestGzipRoundTrip(t *testing.T) {
	var dst bytes.Buffer
	gz := GetGzip(&dst)
	_, err := gz.Write([]byte("hello\n"))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	PutGzip(gz)

	r, err := gzip.NewReader(&dst)
	require.NoError(t, err)
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(got))
}
