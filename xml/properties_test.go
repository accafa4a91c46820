package xml

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMetrics_SumOfEventLensEqualsInputLength asserts spec §4's byte-
// accounting invariant: every input byte is attributed to exactly one
// event's Metrics.Len, so the sum across a whole document equals the
// document's total byte length.
func TestMetrics_SumOfEventLensEqualsInputLength(t *testing.T) {
	fixtures := []string{
		`<root/>`,
		`<?xml version="1.0" encoding="utf-8"?><root/>`,
		`<?xml version="1.0"?>   <root/>`,
		`<a><b>text</b><c/></a>`,
		`<h:root xmlns:h="urn:h"><h:child a="1">x &amp; y</h:child></h:root>`,
		"<root>a\r\nb</root>",
	}
	for _, s := range fixtures {
		events, err := parseAll(s)
		require.NoError(t, err, "fixture %q", s)

		var sum uint64
		for _, ev := range events {
			sum += ev.Metrics.Len
		}
		assert.Equal(t, uint64(len(s)), sum, "fixture %q: event lengths must sum to total input length", s)
	}
}

// TestPoisoning_StickyAfterFatalError asserts spec §7's propagation rule:
// once a pipeline stage returns a fatal error, every subsequent call
// returns an equivalent error without consuming further input, rather
// than re-attempting to parse past the failure point.
func TestPoisoning_StickyAfterFatalError(t *testing.T) {
	lx := NewLexer(Config{})
	src := NewReaderSource(strings.NewReader(`<root><`), 0)
	rp := NewRawParser(lx, src)
	nr := NewNSResolver(rp, nil)

	var firstErr error
	for {
		ev, err := nr.ResolveEvent()
		if err != nil {
			firstErr = err
			break
		}
		if ev == nil {
			t.Fatal("expected a fatal error before clean document end")
		}
	}
	require.Error(t, firstErr)

	for i := 0; i < 3; i++ {
		_, err := nr.ResolveEvent()
		require.Error(t, err)
		assert.Equal(t, firstErr.Error(), err.Error(), "poisoned resolver must keep returning the same error")
	}
}

// TestPoisoning_LexerStaysPoisonedAcrossRawParserAndResolver confirms the
// poisoning discipline holds at every layer: a lexer-level fatal error
// (invalid UTF-8) poisons the lexer, and repeated NextToken calls never
// advance past it.
func TestPoisoning_LexerStaysPoisonedAcrossRawParserAndResolver(t *testing.T) {
	lx := NewLexer(Config{})
	src := NewReaderSource(strings.NewReader("<root>\xff</root>"), 0)

	var firstErr error
	for {
		tok, err := lx.NextToken(src)
		if err != nil {
			firstErr = err
			break
		}
		if tok == nil {
			t.Fatal("expected a fatal error on invalid UTF-8")
		}
	}
	require.Error(t, firstErr)

	_, err := lx.NextToken(src)
	require.Error(t, err)
	assert.Equal(t, firstErr.Error(), err.Error())
}

// TestWouldBlock_NeverPoisons asserts the one deliberate exception to the
// poisoning rule: ErrWouldBlock must never stick, since it signals
// "try again once more input exists", not a fatal condition.
func TestWouldBlock_NeverPoisons(t *testing.T) {
	q := NewBufferQueue()
	q.Push([]byte("<roo"))
	// no PushEOF yet: FillBuf reports an empty, non-EOF buffer once the
	// lexer consumes what's already queued.

	lx := NewLexer(Config{})
	rp := NewRawParser(lx, q)
	nr := NewNSResolver(rp, nil)

	_, err := nr.ResolveEvent()
	require.ErrorIs(t, err, ErrWouldBlock)

	q.Push([]byte("t/>"))
	q.PushEOF()

	ev, err := nr.ResolveEvent()
	require.NoError(t, err)
	require.NotNil(t, ev)
	assert.Equal(t, ResolvedStartElement, ev.Kind)
	assert.Equal(t, qn("", "root"), ev.Name)
}
