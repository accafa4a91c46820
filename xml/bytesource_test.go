package xml

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferQueue_DrainAllConcatenatesPushedChunksInOrder(t *testing.T) {
	q := NewBufferQueue()
	q.Push([]byte("hello, "))
	q.Push([]byte("world"))
	q.PushEOF()

	out, err := drainAll(q)
	require.NoError(t, err)
	assert.Equal(t, "hello, world", string(out))
}

func TestBufferQueue_DrainAllReportsWouldBlockBeforeEOFPushed(t *testing.T) {
	q := NewBufferQueue()
	q.Push([]byte("partial"))

	_, err := drainAll(q)
	assert.ErrorIs(t, err, ErrWouldBlock)
}

func TestBufferQueue_PushAfterEOFPanics(t *testing.T) {
	q := NewBufferQueue()
	q.PushEOF()
	assert.Panics(t, func() { q.Push([]byte("too late")) })
}

func TestReaderSource_DrainAllReadsUnderlyingReaderToEOF(t *testing.T) {
	src := NewReaderSource(strings.NewReader("streamed content"), 4)

	out, err := drainAll(src)
	require.NoError(t, err)
	assert.Equal(t, "streamed content", string(out))
}
