package xml

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// parseChunked feeds data through a BufferQueue in pieces of chunkSize bytes
// (or a single piece if chunkSize <= 0), exercising the same Lexer/RawParser/
// NSResolver pipeline parseAll drives over a ReaderSource. Because every
// chunk (and PushEOF) is pushed before draining begins, FillBuf never
// reports "would block" here; this isolates chunk-boundary handling from
// the would-block retry loop internal/driver exercises separately.
func parseChunked(data []byte, chunkSize int) ([]ResolvedEvent, error) {
	q := NewBufferQueue()
	if chunkSize <= 0 {
		chunkSize = len(data)
	}
	for i := 0; i < len(data); i += chunkSize {
		end := i + chunkSize
		if end > len(data) {
			end = len(data)
		}
		chunk := make([]byte, end-i)
		copy(chunk, data[i:end])
		q.Push(chunk)
	}
	q.PushEOF()

	lx := NewLexer(Config{})
	rp := NewRawParser(lx, q)
	nr := NewNSResolver(rp, nil)

	var out []ResolvedEvent
	for {
		ev, err := nr.ResolveEvent()
		if err != nil {
			return out, err
		}
		if ev == nil {
			return out, nil
		}
		out = append(out, *ev)
	}
}

const chunkingFixture = `<?xml version="1.0" encoding="utf-8"?>` +
	`<h:catalog xmlns:h="http://www.w3.org/html" xmlns="urn:default">` +
	`<item id="1">first &amp; &lt;best&gt;</item>` +
	`<h:item id="2"><![CDATA[<raw> stuff]]></h:item>` +
	`<item id="3">line one
line two</item>` +
	`</h:catalog>`

// TestChunking_ByteAtATimeMatchesOneShot proves spec.md's chunking property:
// feeding the same document in chunks of 1, 3, 7 and 16 bytes and in one
// shot must all yield identical resolved event sequences.
func TestChunking_ByteAtATimeMatchesOneShot(t *testing.T) {
	data := []byte(chunkingFixture)

	oneShot, err := parseChunked(data, 0)
	require.NoError(t, err)
	require.NotEmpty(t, oneShot)

	chunkSizes := []int{1, 3, 7, 16}
	for _, size := range chunkSizes {
		events, err := parseChunked(data, size)
		require.NoError(t, err, "chunk size %d", size)
		require.Equal(t, oneShot, events, "chunk size %d produced a different event sequence", size)
	}
}

// TestChunking_SplitMidEntityReference exercises the narrowest case: a
// chunk boundary falling inside "&amp;" and inside a CDATA marker, which
// must not change the decoded text.
func TestChunking_SplitMidEntityReference(t *testing.T) {
	data := []byte(`<root>a&amp;b<![CDATA[x]]>c</root>`)

	oneShot, err := parseChunked(data, 0)
	require.NoError(t, err)

	for size := 1; size <= len(data); size++ {
		events, err := parseChunked(data, size)
		require.NoError(t, err, "chunk size %d", size)
		require.Equal(t, oneShot, events, "chunk size %d produced a different event sequence", size)
	}
}
