package xml

import (
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/r2xml/goxml/internal/selectors"
)

// elemKind distinguishes the three bracket contexts the element lexer
// states are shared across: an opening tag, a closing tag, and the XML
// declaration.
type elemKind int

const (
	elemKindHead elemKind = iota
	elemKindFoot
	elemKindDecl
)

// lexMode is the lexer's state tag. Content* modes implement spec §3's
// Content sub-states, Elem* modes implement its Element sub-states, and
// modeReference implements the Reference state. The zero value is the
// initial Content(Initial) state.
type lexMode int

const (
	modeContentInitial lexMode = iota
	modeContentCDataSection
	modeContentMaybeElementLT
	modeContentMaybeCDataEnd
	modeContentMaybeCRLF
	modeContentCDataOpenCheck
	modeContentWhitespaceOnly
	modeElemStart
	modeElemSpaceRequired
	modeElemBlank
	modeElemName
	modeElemEq
	modeElemAttrValueStart
	modeElemAttrValue
	modeElemAttrValueMaybeCRLF
	modeElemClose
	modeElemMaybeXMLDeclEnd
	modeElemMaybeHeadClose
	modeReference
	modeEof
)

type refKind int

const (
	refKindNamed refKind = iota
	refKindDecimal
	refKindHex
)

// nameRole distinguishes the two contexts modeElemName is shared across:
// an element/foot name or the "xml" declaration keyword, versus an
// attribute name. The terminators each accepts, and the token each
// produces, differ.
type nameRole int

const (
	roleElementOrDeclName nameRole = iota
	roleAttrName
)

// Lexer is the byte-driven grammar state machine of spec §4.2. It is not
// safe for concurrent use; hand it between goroutines with your own
// synchronization if needed (spec §5).
type Lexer struct {
	id  uuid.UUID
	cfg Config

	mode lexMode
	pois poison

	// Shared byte position, wrapping like any fixed-width counter; only
	// differences within one token are meaningful (spec §3).
	pos uint64

	// scratch accumulates the token currently being recognized; swap
	// holds it aside during reference expansion so no per-reference
	// allocation is needed.
	scratch []byte
	swap    []byte

	tokStart uint64
	elemKind elemKind
	nameRole nameRole

	// attribute-value lexing
	quote byte

	// CDATA / bracket run tracking
	inCDATA     bool
	bracketRun  int
	crlfInCDATA bool

	// reference expansion
	refKind   refKind
	refReturn lexMode
	refInAttr bool

	sawRoot bool // becomes true once an ElementHeadStart token has been emitted

	// preRootGap counts whitespace bytes seen in Content(WhitespaceOnly)
	// so they can be folded into the next tag's token start (spec §9's
	// Open Question on attributing pre-root whitespace).
	preRootGap uint64

	// pending holds bytes that were already read from src but whose
	// grammatical role wasn't yet decided when a token was finalized
	// (e.g. the '>' that both ends a bare "<a>" name and is itself the
	// ElementHFEnd token). They are redelivered to step before src is
	// asked for anything new.
	pending []byte

	// pendingTokens holds Text tokens a single step call finalized more
	// than one of (a CDATA-end bracket run split across max_token_length
	// partway through its flush). Drained, oldest first, ahead of
	// pending and src so none of them are lost or reordered.
	pendingTokens []*Token
}

// pushback defers b to be the first byte step sees on the lexer's next
// invocation, without it being read from src again.
func (lx *Lexer) pushback(b byte) {
	lx.pending = append(lx.pending, b)
}

// contentModeAfterTag is the Content sub-state to resume in once a head,
// foot, or XML declaration end has just been emitted: whitespace-only
// content is enforced strictly between the declaration and the root
// element, per spec §4.2.
func (lx *Lexer) contentModeAfterTag() lexMode {
	if !lx.sawRoot {
		return modeContentWhitespaceOnly
	}
	return modeContentInitial
}

// NewLexer returns a Lexer using cfg (zero value means DefaultMaxTokenLength).
func NewLexer(cfg Config) *Lexer {
	if cfg.MaxTokenLength <= 0 {
		cfg.MaxTokenLength = DefaultMaxTokenLength
	}
	return &Lexer{id: uuid.New(), cfg: cfg, mode: modeContentInitial}
}

// ID returns the identifier assigned to this Lexer when it was created.
// Errors returned by the Lexer do not include it.
func (lx *Lexer) ID() uuid.UUID { return lx.id }

// ReleaseTemporaries drops the lexer's internal scratch buffers.
func (lx *Lexer) ReleaseTemporaries() {
	lx.scratch = nil
	lx.swap = nil
}

func (lx *Lexer) fail(err error) (*Token, error) {
	return nil, lx.pois.record(err)
}

// NextToken pulls bytes from src until one Token can be emitted, src
// reports "would block", or clean EOF is reached. A poisoned Lexer
// returns its cached error on every call without touching src.
func (lx *Lexer) NextToken(src Source) (*Token, error) {
	if err := lx.pois.check(); err != nil {
		return nil, err
	}
	if len(lx.pendingTokens) > 0 {
		tok := lx.pendingTokens[0]
		lx.pendingTokens = lx.pendingTokens[1:]
		return tok, nil
	}

	for {
		for len(lx.pending) > 0 {
			b := lx.pending[0]
			lx.pending = lx.pending[1:]
			tok, done, err := lx.step(b)
			if err != nil {
				return lx.fail(err)
			}
			if done {
				return tok, nil
			}
		}

		buf, eof := src.FillBuf()
		if len(buf) == 0 {
			if !eof {
				return nil, ErrWouldBlock
			}
			return lx.handleEOF()
		}

		consumed := 0
		for consumed < len(buf) {
			b := buf[consumed]
			tok, done, err := lx.step(b)
			consumed++
			lx.pos++
			if err != nil {
				src.Consume(consumed)
				return lx.fail(err)
			}
			if done {
				src.Consume(consumed)
				return tok, nil
			}
		}
		src.Consume(consumed)
	}
}

// handleEOF decides what a clean end-of-input means in the current mode:
// either a final Text token must be flushed, or EOF is legal (Initial /
// WhitespaceOnly content with nothing pending), or it is a premature EOF.
func (lx *Lexer) handleEOF() (*Token, error) {
	switch lx.mode {
	case modeContentInitial, modeContentWhitespaceOnly:
		if len(lx.scratch) > 0 {
			tok, err := lx.emitText()
			if err != nil {
				return lx.fail(err)
			}
			return tok, nil
		}
		lx.mode = modeEof
		return nil, nil
	case modeContentMaybeCRLF:
		// A trailing lone CR at EOF: fold and flush.
		tok, err := lx.emitText()
		if err != nil {
			return lx.fail(err)
		}
		lx.mode = modeEof
		return tok, nil
	case modeEof:
		return nil, nil
	default:
		return lx.fail(newInvalidEOFError(ERRCTX_UNKNOWN))
	}
}

// emitText finalizes the accumulated scratch buffer as a Text token. A
// scratch that fails ValidateCData (e.g. an unpaired UTF-8 sequence left
// dangling at EOF) is a fatal, poisoned error, not a token to skip.
func (lx *Lexer) emitText() (*Token, error) {
	cd, err := ValidateCData(lx.scratch)
	start := lx.tokStart
	lx.scratch = lx.scratch[:0]
	if err != nil {
		return nil, WithContext(err, ERRCTX_TEXT)
	}
	tok := &Token{Kind: TokText, CDataPayload: cd, Metrics: Metrics{Start: start, End: lx.pos}}
	lx.tokStart = lx.pos
	return tok, nil
}

// appendScratchLimited appends b to the scratch buffer, enforcing
// max_token_length for non-Text accumulations (Name, AttributeValue,
// reference body); Text accumulation is checked by the caller, which
// splits instead of failing.
func (lx *Lexer) appendScratchLimited(b byte, ctx string) error {
	if len(lx.scratch)+1 > lx.cfg.MaxTokenLength {
		return newRestrictedError(ctx, "token exceeds max_token_length")
	}
	lx.scratch = append(lx.scratch, b)
	return nil
}

func (lx *Lexer) appendRuneLimited(r rune, ctx string) error {
	var buf [utf8.UTFMax]byte
	n := utf8.EncodeRune(buf[:], r)
	if len(lx.scratch)+n > lx.cfg.MaxTokenLength {
		return newRestrictedError(ctx, "token exceeds max_token_length")
	}
	lx.scratch = append(lx.scratch, buf[:n]...)
	return nil
}
