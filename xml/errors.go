package xml

import (
	"fmt"

	"github.com/pkg/errors"
)

// Context strings attached to well-formedness errors, identifying where
// in the grammar the error occurred. Mirrors the ERRCTX_* constants of
// the engine this package's core is grounded on.
const (
	ERRCTX_UNKNOWN             = "in unknown context"
	ERRCTX_TEXT                = "in text node"
	ERRCTX_ATTVAL              = "in attribute value"
	ERRCTX_NAME                = "in name"
	ERRCTX_ATTNAME             = "in attribute name"
	ERRCTX_NAMESTART           = "at start of name"
	ERRCTX_ELEMENT             = "in element"
	ERRCTX_ELEMENT_FOOT        = "in element footer"
	ERRCTX_ELEMENT_CLOSE       = "at element close"
	ERRCTX_CDATA_SECTION       = "in CDATA section"
	ERRCTX_CDATA_SECTION_START = "at CDATA section marker"
	ERRCTX_XML_DECL            = "in XML declaration"
	ERRCTX_XML_DECL_START      = "at start of XML declaration"
	ERRCTX_XML_DECL_END        = "at end of XML declaration"
	ERRCTX_REF                 = "in entity or character reference"
	ERRCTX_DOCBEGIN            = "at beginning of document"
	ERRCTX_NAMESPACE           = "resolving namespace"
)

// Kind classifies a fatal error per the taxonomy of spec §7.
type Kind int

const (
	KindInvalidUTF8 Kind = iota
	KindInvalidChar
	KindWellFormedness
	KindRestricted
)

func (k Kind) String() string {
	switch k {
	case KindInvalidUTF8:
		return "invalid-utf8"
	case KindInvalidChar:
		return "invalid-char"
	case KindWellFormedness:
		return "well-formedness"
	case KindRestricted:
		return "restricted-xml"
	default:
		return "unknown"
	}
}

// Error is the engine's fatal-error type. It always carries a Kind and a
// context string; Unwrap exposes the pkg/errors-wrapped chain so callers
// can still use errors.Is/errors.As against sentinel values.
type Error struct {
	Kind    Kind
	Context string
	Msg     string
	err     error // underlying cause, wrapped via github.com/pkg/errors
}

func (e *Error) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("%s %s: %s", e.Kind, e.Context, e.Msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.err }

// WithContext returns a copy of err with its context string replaced,
// preserving its Kind and message — the "error-with-context
// transformation" of spec §7. Non-*Error errors pass through unchanged.
func WithContext(err error, ctx string) error {
	var e *Error
	if errors.As(err, &e) {
		cp := *e
		cp.Context = ctx
		return &cp
	}
	return err
}

func newError(k Kind, ctx, msg string) *Error {
	return &Error{Kind: k, Context: ctx, Msg: msg, err: errors.New(msg)}
}

func newWFError(ctx, msg string) *Error { return newError(KindWellFormedness, ctx, msg) }

func newRestrictedError(ctx, msg string) *Error { return newError(KindRestricted, ctx, msg) }

func newInvalidUTF8Error(ctx string, badByte byte) *Error {
	return newError(KindInvalidUTF8, ctx, fmt.Sprintf("invalid UTF-8 byte 0x%02x", badByte))
}

func newInvalidCharError(ctx string, codepoint uint32, fromRef bool) *Error {
	if fromRef {
		return newError(KindInvalidChar, ctx, fmt.Sprintf("character reference expanded to invalid codepoint U+%04X", codepoint))
	}
	return newError(KindInvalidChar, ctx, fmt.Sprintf("invalid codepoint U+%04X", codepoint))
}

func newUnexpectedCharError(ctx string, r rune, expected []string) *Error {
	msg := fmt.Sprintf("U+%04X not allowed", r)
	if len(expected) > 0 {
		msg += fmt.Sprintf(" (expected %v)", expected)
	}
	return newError(KindWellFormedness, ctx, msg)
}

func newUnexpectedByteError(ctx string, b byte, expected []string) *Error {
	msg := fmt.Sprintf("byte 0x%02x not allowed", b)
	if len(expected) > 0 {
		msg += fmt.Sprintf(" (expected %v)", expected)
	}
	return newError(KindWellFormedness, ctx, msg)
}

func newUnexpectedTokenError(ctx string, got TokenKind, expected []string) *Error {
	msg := fmt.Sprintf("unexpected token %s", got)
	if len(expected) > 0 {
		msg += fmt.Sprintf(" (expected %v)", expected)
	}
	return newError(KindWellFormedness, ctx, msg)
}

func newInvalidEOFError(ctx string) *Error {
	return newError(KindWellFormedness, ctx, "unexpected end of input")
}

// ErrWouldBlock is the transient, non-fatal "needs more input" signal. It
// is never cached by the poisoning discipline below and is safe to
// compare with errors.Is.
var ErrWouldBlock = errors.New("xml: would block (needs more input)")

// poison caches the first fatal error a component raises, so that every
// subsequent call returns a clone of the same error without advancing
// input, per spec §7's propagation rule. ErrWouldBlock is deliberately
// never stored.
type poison struct {
	err error
}

func (p *poison) check() error { return p.err }

func (p *poison) record(err error) error {
	if err == nil || errors.Is(err, ErrWouldBlock) {
		return err
	}
	if p.err == nil {
		p.err = err
	}
	return p.err
}
