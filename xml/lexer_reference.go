package xml

import (
	"strconv"

	"github.com/r2xml/goxml/internal/selectors"
)

// maxRefBody bounds the length of a reference body (the bytes between
// '&' and ';'), independent of max_token_length: "#x10FFFF" and
// "#1114111", the highest code point without leading zeros, both fit.
const maxRefBody = 8

var namedEntities = map[string]rune{
	"amp":  '&',
	"lt":   '<',
	"gt":   '>',
	"apos": '\'',
	"quot": '"',
}

// stepReference accumulates the bytes between '&' and ';' into
// lx.scratch (lx.swap holds the token accumulation that was in
// progress), then on ';' decodes, validates and appends the expansion
// to the restored buffer before resuming lx.refReturn.
func (lx *Lexer) stepReference(b byte) (*Token, bool, error) {
	if b == ';' {
		r, err := decodeReference(lx.scratch)
		if err != nil {
			return nil, false, err
		}
		if !IsXMLChar(r) {
			return nil, false, newInvalidCharError(ERRCTX_REF, uint32(r), true)
		}
		lx.scratch = lx.swap
		lx.swap = nil
		ctx := ERRCTX_TEXT
		if lx.refInAttr {
			ctx = ERRCTX_ATTVAL
		}
		if err := lx.appendRuneLimited(r, ctx); err != nil {
			return nil, false, err
		}
		lx.mode = lx.refReturn
		return nil, false, nil
	}

	isHashPos := len(lx.scratch) == 0 && b == '#'
	isHexMarker := len(lx.scratch) == 1 && lx.scratch[0] == '#' && (b == 'x' || b == 'X')
	isDigit := selectors.IsDigit(b)
	isHexDigit := selectors.IsHexDigit(b)
	isNameByte := selectors.IsNameASCII(b) && !selectors.IsDigit(b)

	ok := isHashPos || isHexMarker || isDigit || isHexDigit || isNameByte
	if !ok {
		return nil, false, newUnexpectedByteError(ERRCTX_REF, b, []string{"reference body"})
	}
	if len(lx.scratch)+1 > maxRefBody {
		return nil, false, newRestrictedError(ERRCTX_REF, "reference body exceeds maximum length")
	}
	lx.scratch = append(lx.scratch, b)
	return nil, false, nil
}

// decodeReference interprets a reference's raw body (without leading '&'
// or trailing ';') as a named entity or a decimal/hex numeric reference.
func decodeReference(body []byte) (rune, error) {
	if len(body) == 0 {
		return 0, newWFError(ERRCTX_REF, "empty reference")
	}
	if body[0] == '#' {
		rest := body[1:]
		base := 10
		if len(rest) > 0 && (rest[0] == 'x' || rest[0] == 'X') {
			base = 16
			rest = rest[1:]
		}
		if len(rest) == 0 {
			return 0, newWFError(ERRCTX_REF, "numeric reference has no digits")
		}
		v, err := strconv.ParseUint(string(rest), base, 32)
		if err != nil {
			return 0, newWFError(ERRCTX_REF, "malformed numeric reference")
		}
		return rune(v), nil
	}
	if r, ok := namedEntities[string(body)]; ok {
		return r, nil
	}
	return 0, newWFError(ERRCTX_REF, "unsupported entity reference '"+string(body)+"'")
}
