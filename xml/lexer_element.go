package xml

import "github.com/r2xml/goxml/internal/selectors"

// stepElement dispatches the Element sub-states: the name following
// '<', '</' or '<?', its attributes, and the tag's closing sequence.
func (lx *Lexer) stepElement(b byte) (*Token, bool, error) {
	switch lx.mode {
	case modeElemStart:
		return lx.stepElemStart(b)
	case modeElemName:
		return lx.stepElemName(b)
	case modeElemEq:
		return lx.stepElemEq(b)
	case modeElemBlank:
		return lx.stepElemBlank(b)
	case modeElemAttrValueStart:
		return lx.stepElemAttrValueStart(b)
	case modeElemAttrValue:
		return lx.stepElemAttrValue(b)
	case modeElemAttrValueMaybeCRLF:
		return lx.stepElemAttrValueMaybeCRLF(b)
	case modeElemMaybeHeadClose:
		return lx.stepElemMaybeHeadClose(b)
	case modeElemMaybeXMLDeclEnd:
		return lx.stepElemMaybeXMLDeclEnd(b)
	default:
		return nil, false, newInvalidEOFError(ERRCTX_ELEMENT)
	}
}

// stepElemStart recognizes the first byte of the name immediately
// following '<', '</' or '<?' (lx.tokStart already marks the '<').
func (lx *Lexer) stepElemStart(b byte) (*Token, bool, error) {
	if selectors.IsNameASCII(b) || selectors.ContinuesAsIs(b) {
		lx.scratch = append(lx.scratch[:0], b)
		lx.nameRole = roleElementOrDeclName
		lx.mode = modeElemName
		return nil, false, nil
	}
	if lx.elemKind == elemKindDecl {
		return nil, false, newUnexpectedByteError(ERRCTX_XML_DECL_START, b, []string{"'xml'"})
	}
	return nil, false, newUnexpectedByteError(ERRCTX_ELEMENT, b, []string{"name start"})
}

// finalizeName validates the accumulated scratch as a Name (or, for the
// declaration keyword, checks it is the literal byte sequence "xml") and
// returns the token it completes.
func (lx *Lexer) finalizeName() (*Token, error) {
	start := lx.tokStart
	raw := append([]byte(nil), lx.scratch...)
	lx.scratch = lx.scratch[:0]

	if lx.nameRole == roleAttrName {
		n, err := ValidateName(raw)
		if err != nil {
			return nil, WithContext(err, ERRCTX_ATTNAME)
		}
		return &Token{Kind: TokName, NamePayload: n, Metrics: Metrics{Start: start, End: lx.pos - 1}}, nil
	}

	switch lx.elemKind {
	case elemKindDecl:
		if string(raw) != "xml" {
			return nil, newRestrictedError(ERRCTX_XML_DECL_START, "only the 'xml' declaration is supported")
		}
		return &Token{Kind: TokXMLDeclStart, Metrics: Metrics{Start: start, End: lx.pos - 1}}, nil
	case elemKindFoot:
		n, err := ValidateName(raw)
		if err != nil {
			return nil, WithContext(err, ERRCTX_ELEMENT_FOOT)
		}
		return &Token{Kind: TokElementFootStart, NamePayload: n, Metrics: Metrics{Start: start, End: lx.pos - 1}}, nil
	default: // elemKindHead
		n, err := ValidateName(raw)
		if err != nil {
			return nil, WithContext(err, ERRCTX_ELEMENT)
		}
		lx.sawRoot = true
		return &Token{Kind: TokElementHeadStart, NamePayload: n, Metrics: Metrics{Start: start, End: lx.pos - 1}}, nil
	}
}

// stepElemName accumulates a Name (element/foot/decl-keyword, or an
// attribute name) and dispatches on its terminator.
func (lx *Lexer) stepElemName(b byte) (*Token, bool, error) {
	if selectors.IsNameASCII(b) || selectors.ContinuesAsIs(b) {
		if err := lx.appendScratchLimited(b, ERRCTX_NAME); err != nil {
			return nil, false, err
		}
		return nil, false, nil
	}

	switch {
	case selectors.IsWhitespace(b):
		tok, err := lx.finalizeName()
		if err != nil {
			return nil, false, err
		}
		if lx.nameRole == roleAttrName {
			lx.mode = modeElemEq
		} else {
			lx.mode = modeElemBlank
		}
		return tok, true, nil

	case b == '=':
		if lx.nameRole != roleAttrName {
			return nil, false, newUnexpectedByteError(ERRCTX_ELEMENT, b, []string{"whitespace", "'/'", "'>'"})
		}
		tok, err := lx.finalizeName()
		if err != nil {
			return nil, false, err
		}
		lx.pushback('=')
		lx.mode = modeElemEq
		return tok, true, nil

	case b == '/':
		if lx.nameRole == roleAttrName || lx.elemKind != elemKindHead {
			return nil, false, newUnexpectedByteError(ERRCTX_ELEMENT, b, nil)
		}
		tok, err := lx.finalizeName()
		if err != nil {
			return nil, false, err
		}
		lx.tokStart = lx.pos - 1
		lx.mode = modeElemMaybeHeadClose
		return tok, true, nil

	case b == '?':
		if lx.nameRole == roleAttrName || lx.elemKind != elemKindDecl {
			return nil, false, newUnexpectedByteError(ERRCTX_ELEMENT, b, nil)
		}
		tok, err := lx.finalizeName()
		if err != nil {
			return nil, false, err
		}
		lx.tokStart = lx.pos - 1
		lx.mode = modeElemMaybeXMLDeclEnd
		return tok, true, nil

	case b == '>':
		if lx.nameRole == roleAttrName || lx.elemKind == elemKindDecl {
			return nil, false, newUnexpectedByteError(ERRCTX_ELEMENT, b, nil)
		}
		tok, err := lx.finalizeName()
		if err != nil {
			return nil, false, err
		}
		lx.pushback('>')
		lx.mode = modeElemBlank
		return tok, true, nil

	default:
		return nil, false, newUnexpectedByteError(ERRCTX_NAME, b, nil)
	}
}

// stepElemEq skips optional surrounding whitespace and emits the Eq
// token for '='.
func (lx *Lexer) stepElemEq(b byte) (*Token, bool, error) {
	if selectors.IsWhitespace(b) {
		return nil, false, nil
	}
	if b != '=' {
		return nil, false, newUnexpectedByteError(ERRCTX_ELEMENT, b, []string{"'='"})
	}
	start := lx.pos - 1
	lx.mode = modeElemAttrValueStart
	return &Token{Kind: TokEq, Metrics: Metrics{Start: start, End: lx.pos}}, true, nil
}

// stepElemBlank is the attribute loop: skip whitespace, then expect
// either the start of another attribute name, or the tag's close.
func (lx *Lexer) stepElemBlank(b byte) (*Token, bool, error) {
	if selectors.IsWhitespace(b) {
		return nil, false, nil
	}
	if selectors.IsNameASCII(b) || selectors.ContinuesAsIs(b) {
		lx.scratch = append(lx.scratch[:0], b)
		lx.nameRole = roleAttrName
		lx.tokStart = lx.pos - 1
		lx.mode = modeElemName
		return nil, false, nil
	}
	switch b {
	case '/':
		if lx.elemKind != elemKindHead {
			return nil, false, newUnexpectedByteError(ERRCTX_ELEMENT, b, nil)
		}
		lx.tokStart = lx.pos - 1
		lx.mode = modeElemMaybeHeadClose
		return nil, false, nil
	case '?':
		if lx.elemKind != elemKindDecl {
			return nil, false, newUnexpectedByteError(ERRCTX_ELEMENT, b, nil)
		}
		lx.tokStart = lx.pos - 1
		lx.mode = modeElemMaybeXMLDeclEnd
		return nil, false, nil
	case '>':
		if lx.elemKind == elemKindDecl {
			return nil, false, newWFError(ERRCTX_XML_DECL_END, "XML declaration must end with '?>'")
		}
		start := lx.pos - 1
		lx.mode = lx.contentModeAfterTag()
		lx.tokStart = lx.pos
		return &Token{Kind: TokElementHFEnd, Metrics: Metrics{Start: start, End: lx.pos}}, true, nil
	default:
		return nil, false, newUnexpectedByteError(ERRCTX_ELEMENT, b, []string{"attribute name", "'/'", "'>'"})
	}
}

// stepElemAttrValueStart skips optional whitespace after '=' and opens
// the quoted value.
func (lx *Lexer) stepElemAttrValueStart(b byte) (*Token, bool, error) {
	if selectors.IsWhitespace(b) {
		return nil, false, nil
	}
	if b != '\'' && b != '"' {
		return nil, false, newUnexpectedByteError(ERRCTX_ATTVAL, b, []string{"quote"})
	}
	lx.quote = b
	lx.scratch = lx.scratch[:0]
	lx.tokStart = lx.pos
	lx.mode = modeElemAttrValue
	return nil, false, nil
}

// stepElemAttrValue accumulates an attribute value, applying XML 1.0
// §3.3.3 literal-whitespace normalization and expanding references.
func (lx *Lexer) stepElemAttrValue(b byte) (*Token, bool, error) {
	if b == lx.quote {
		cd, err := ValidateCData(lx.scratch)
		if err != nil {
			return nil, false, WithContext(err, ERRCTX_ATTVAL)
		}
		tok := &Token{Kind: TokAttributeValue, CDataPayload: cd, Metrics: Metrics{Start: lx.tokStart, End: lx.pos - 1}}
		lx.scratch = lx.scratch[:0]
		lx.mode = modeElemBlank
		return tok, true, nil
	}
	switch b {
	case '&':
		lx.swap = lx.scratch
		lx.scratch = make([]byte, 0, 16)
		lx.refReturn = modeElemAttrValue
		lx.refInAttr = true
		lx.mode = modeReference
		return nil, false, nil
	case '\t', '\n':
		return nil, false, lx.appendScratchLimited(' ', ERRCTX_ATTVAL)
	case '\r':
		if err := lx.appendScratchLimited(' ', ERRCTX_ATTVAL); err != nil {
			return nil, false, err
		}
		lx.mode = modeElemAttrValueMaybeCRLF
		return nil, false, nil
	case '<':
		return nil, false, newWFError(ERRCTX_ATTVAL, "'<' is not allowed in an attribute value")
	}
	if selectors.IsXMLInvalidByte(b) {
		return nil, false, newInvalidCharError(ERRCTX_ATTVAL, uint32(b), false)
	}
	return nil, false, lx.appendScratchLimited(b, ERRCTX_ATTVAL)
}

// stepElemAttrValueMaybeCRLF swallows the '\n' of a CRLF pair already
// folded to a single space by stepElemAttrValue's '\r' case.
func (lx *Lexer) stepElemAttrValueMaybeCRLF(b byte) (*Token, bool, error) {
	lx.mode = modeElemAttrValue
	if b == '\n' {
		return nil, false, nil
	}
	return lx.step(b)
}

// stepElemMaybeHeadClose expects '>' to complete a self-closing "/>".
func (lx *Lexer) stepElemMaybeHeadClose(b byte) (*Token, bool, error) {
	if b != '>' {
		return nil, false, newUnexpectedByteError(ERRCTX_ELEMENT_CLOSE, b, []string{"'>'"})
	}
	tok := &Token{Kind: TokElementHeadClose, Metrics: Metrics{Start: lx.tokStart, End: lx.pos}}
	lx.mode = lx.contentModeAfterTag()
	lx.tokStart = lx.pos
	return tok, true, nil
}

// stepElemMaybeXMLDeclEnd expects '>' to complete "?>".
func (lx *Lexer) stepElemMaybeXMLDeclEnd(b byte) (*Token, bool, error) {
	if b != '>' {
		return nil, false, newUnexpectedByteError(ERRCTX_XML_DECL_END, b, []string{"'>'"})
	}
	tok := &Token{Kind: TokXMLDeclEnd, Metrics: Metrics{Start: lx.tokStart, End: lx.pos}}
	lx.mode = lx.contentModeAfterTag()
	return tok, true, nil
}
