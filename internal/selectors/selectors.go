// Package selectors provides O(1) byte classification tables for the XML
// 1.0 grammar. The lexer drives its state machine on raw bytes rather than
// decoded runes: every ASCII metacharacter (<, >, &, quotes, whitespace,
// ']') that matters to the grammar is classified with a single table
// lookup. Bytes >= 0x80 are always treated as "continue the current run"
// by these tables; full Unicode validation of accumulated Name/CData
// content happens once, when the scratchpad is turned into a validated
// string (see package xml's strings.go), not per byte.
package selectors

// byteClass is a [256]bool lookup table.
type byteClass [256]bool

func newClass(set func(b byte) bool) byteClass {
	var c byteClass
	for i := 0; i < 256; i++ {
		c[i] = set(byte(i))
	}
	return c
}

func (c *byteClass) Has(b byte) bool { return c[b] }

var (
	whitespace byteClass

	// nameStartASCII holds the ASCII bytes that may open a Name:
	// letters, '_' and ':'. Bytes >= 0x80 are handled by the caller
	// (they may begin a multi-byte NameStartChar and are optimistically
	// accepted here, validated later).
	nameStartASCII byteClass

	// nameASCII additionally allows '-', '.', and digits.
	nameASCII byteClass

	digit    byteClass
	hexDigit byteClass

	// xmlInvalidByte holds ASCII control bytes that are never a valid
	// XML Char, regardless of their role (0x00-0x08, 0x0B, 0x0C,
	// 0x0E-0x1F). TAB/LF/CR are valid Chars and excluded here.
	xmlInvalidByte byteClass

	// textDelimiter marks bytes that end a run of plain text content:
	// '<' (markup), '&' (reference), ']' (possible "]]>" run), and the
	// CR that requires CRLF folding.
	textDelimiter byteClass

	// attrDelimiterQuote/attrDelimiterApos mark bytes that end a run of
	// literal attribute-value content for each quote style: the
	// delimiter itself, '<', '&', TAB/LF/CR (normalized to space).
	attrDelimiterQuote byteClass
	attrDelimiterApos  byteClass

	// cdataDelimiter marks ']' (possible "]]>" run end) and CR.
	cdataDelimiter byteClass
)

func init() {
	whitespace = newClass(func(b byte) bool {
		return b == ' ' || b == '\t' || b == '\n' || b == '\r'
	})
	nameStartASCII = newClass(func(b byte) bool {
		return b == ':' || b == '_' ||
			(b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z')
	})
	nameASCII = newClass(func(b byte) bool {
		return nameStartASCII.Has(b) || b == '-' || b == '.' || (b >= '0' && b <= '9')
	})
	digit = newClass(func(b byte) bool { return b >= '0' && b <= '9' })
	hexDigit = newClass(func(b byte) bool {
		return (b >= '0' && b <= '9') || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
	})
	xmlInvalidByte = newClass(func(b byte) bool {
		if b == '\t' || b == '\n' || b == '\r' {
			return false
		}
		return b < 0x20
	})
	textDelimiter = newClass(func(b byte) bool {
		return b == '<' || b == '&' || b == ']' || b == '\r'
	})
	attrDelimiterQuote = newClass(func(b byte) bool {
		return b == '"' || b == '<' || b == '&' || b == '\t' || b == '\n' || b == '\r'
	})
	attrDelimiterApos = newClass(func(b byte) bool {
		return b == '\'' || b == '<' || b == '&' || b == '\t' || b == '\n' || b == '\r'
	})
	cdataDelimiter = newClass(func(b byte) bool {
		return b == ']' || b == '\r'
	})
}

func IsWhitespace(b byte) bool      { return whitespace.Has(b) }
func IsNameStartASCII(b byte) bool  { return nameStartASCII.Has(b) }
func IsNameASCII(b byte) bool       { return nameASCII.Has(b) }
func IsDigit(b byte) bool           { return digit.Has(b) }
func IsHexDigit(b byte) bool        { return hexDigit.Has(b) }
func IsXMLInvalidByte(b byte) bool  { return xmlInvalidByte.Has(b) }
func IsTextDelimiter(b byte) bool   { return textDelimiter.Has(b) }
func IsCDataDelimiter(b byte) bool  { return cdataDelimiter.Has(b) }

// IsAttrDelimiter returns whether b ends a run of literal attribute-value
// content for the given quote byte ('\'' or '"').
func IsAttrDelimiter(quote, b byte) bool {
	if quote == '\'' {
		return attrDelimiterApos.Has(b)
	}
	return attrDelimiterQuote.Has(b)
}

// ContinuesAsIs reports whether byte b (>= 0x80) should be treated as an
// ordinary content/name byte by the byte-level state machine. The lexer
// never rejects a lead byte on sight; full UTF-8 and XML Char/Name
// validation happens when the scratchpad is finalized.
func ContinuesAsIs(b byte) bool { return b >= 0x80 }
