package xml

import "github.com/r2xml/goxml/internal/selectors"

// step dispatches one byte to the sub-machine implied by lx.mode and
// returns a completed token (done=true), or signals the byte was
// consumed with no token ready yet (done=false), or a fatal error.
func (lx *Lexer) step(b byte) (*Token, bool, error) {
	switch lx.mode {
	case modeContentInitial:
		return lx.stepContentByte(b, false)
	case modeContentCDataSection:
		return lx.stepContentByte(b, true)
	case modeContentWhitespaceOnly:
		return lx.stepWhitespaceOnly(b)
	case modeContentMaybeElementLT:
		return lx.stepMaybeElementLT(b)
	case modeContentMaybeCDataEnd:
		return lx.stepMaybeCDataEnd(b)
	case modeContentMaybeCRLF:
		return lx.stepMaybeCRLF(b)
	case modeContentCDataOpenCheck:
		return lx.stepCDataOpenCheck(b)
	case modeReference:
		return lx.stepReference(b)
	default:
		return lx.stepElement(b)
	}
}

// appendTextByte appends b to the scratch buffer, splitting off a Text
// token immediately if doing so would exceed max_token_length (spec
// §4.2: "Text tokens are split at the boundary and emission resumes").
func (lx *Lexer) appendTextByte(b byte) (*Token, error) {
	if len(lx.scratch)+1 > lx.cfg.MaxTokenLength {
		tok, err := lx.emitText()
		if err != nil {
			return nil, err
		}
		lx.scratch = append(lx.scratch, b)
		return tok, nil
	}
	lx.scratch = append(lx.scratch, b)
	return nil, nil
}

// stepContentByte implements the common per-byte rules shared by Content
// (Initial) and CDataSection: CRLF folding, ']'-run tracking, and
// (outside CDATA only) '<'/'&' recognition.
func (lx *Lexer) stepContentByte(b byte, inCData bool) (*Token, bool, error) {
	if b == '\r' {
		tok, err := lx.appendTextByte('\n')
		if err != nil {
			return nil, false, err
		}
		lx.mode = modeContentMaybeCRLF
		lx.crlfInCDATA = inCData
		if tok != nil {
			// Flush happened right before the CR; keep folding state.
			return tok, true, nil
		}
		return nil, false, nil
	}
	if inCData {
		if b == ']' {
			lx.mode = modeContentMaybeCDataEnd
			lx.inCDATA = true
			lx.bracketRun = 1
			return nil, false, nil
		}
		tok, err := lx.appendTextByte(b)
		if err != nil {
			return nil, false, err
		}
		if tok != nil {
			return tok, true, nil
		}
		return nil, false, nil
	}

	switch b {
	case '<':
		if len(lx.scratch) > 0 {
			tok, err := lx.emitText()
			if err != nil {
				return nil, false, err
			}
			lx.mode = modeContentMaybeElementLT
			lx.tokStart = lx.pos - 1
			return tok, true, nil
		}
		lx.mode = modeContentMaybeElementLT
		lx.tokStart = lx.pos - 1
		return nil, false, nil
	case '&':
		lx.swap = lx.scratch
		lx.scratch = make([]byte, 0, 16)
		lx.refReturn = modeContentInitial
		lx.refInAttr = false
		lx.mode = modeReference
		return nil, false, nil
	case ']':
		lx.mode = modeContentMaybeCDataEnd
		lx.inCDATA = false
		lx.bracketRun = 1
		return nil, false, nil
	}
	if selectors.IsXMLInvalidByte(b) {
		return nil, false, newInvalidCharError(ERRCTX_TEXT, uint32(b), false)
	}
	tok, err := lx.appendTextByte(b)
	if err != nil {
		return nil, false, err
	}
	if tok != nil {
		return tok, true, nil
	}
	return nil, false, nil
}

// stepWhitespaceOnly enforces spec §4.2's rule that only ASCII whitespace
// is permitted between the XML declaration's end and the root element.
// No Text token is ever emitted for it; instead the gap is folded into
// the start of the next tag's own token, so it is accounted for by that
// tag's event metrics rather than silently dropped.
func (lx *Lexer) stepWhitespaceOnly(b byte) (*Token, bool, error) {
	if b == '<' {
		lx.mode = modeContentMaybeElementLT
		lx.tokStart = lx.pos - 1 - lx.preRootGap
		lx.preRootGap = 0
		return nil, false, nil
	}
	if !selectors.IsWhitespace(b) {
		return nil, false, newWFError(ERRCTX_DOCBEGIN, "non-whitespace content before root element")
	}
	lx.preRootGap++
	return nil, false, nil
}

// stepMaybeElementLT decides, from the byte following '<', whether this
// is an element head, an element foot, the XML declaration, or a CDATA
// section start (restricted constructs like comments/DTDs/PIs fail
// here).
func (lx *Lexer) stepMaybeElementLT(b byte) (*Token, bool, error) {
	switch {
	case b == '/':
		lx.elemKind = elemKindFoot
		lx.scratch = lx.scratch[:0]
		lx.mode = modeElemStart
		return nil, false, nil
	case b == '?':
		lx.elemKind = elemKindDecl
		lx.scratch = lx.scratch[:0]
		lx.mode = modeElemStart
		return nil, false, nil
	case b == '!':
		lx.scratch = append(lx.scratch[:0], '!')
		lx.mode = modeContentCDataOpenCheck
		return nil, false, nil
	case selectors.IsNameASCII(b) || selectors.ContinuesAsIs(b):
		lx.elemKind = elemKindHead
		lx.nameRole = roleElementOrDeclName
		lx.scratch = append(lx.scratch[:0], b)
		lx.mode = modeElemName
		return nil, false, nil
	default:
		return nil, false, newUnexpectedByteError(ERRCTX_ELEMENT, b, []string{"'/'", "'?'", "name start"})
	}
}

// modeContentCDataOpenCheck (declared in lexer.go) matches the literal
// "[CDATA[" after "<!".
var cdataOpenLiteral = []byte("[CDATA[")

func (lx *Lexer) stepCDataOpenCheck(b byte) (*Token, bool, error) {
	idx := len(lx.scratch) - 1 // bytes matched so far, excluding the leading '!'
	if idx >= len(cdataOpenLiteral) {
		// unreachable given the literal length, kept for safety
		return nil, false, newRestrictedError(ERRCTX_CDATA_SECTION_START, "malformed CDATA open marker")
	}
	if b != cdataOpenLiteral[idx] {
		if idx == 0 {
			return nil, false, newRestrictedError(ERRCTX_CDATA_SECTION_START, "comments and DTDs are not supported")
		}
		return nil, false, newWFError(ERRCTX_CDATA_SECTION_START, "malformed '<![CDATA[' marker")
	}
	lx.scratch = append(lx.scratch, b)
	if idx+1 == len(cdataOpenLiteral) {
		lx.scratch = lx.scratch[:0]
		lx.mode = modeContentCDataSection
		return nil, false, nil
	}
	return nil, false, nil
}

// stepMaybeCDataEnd tracks a run of ']' bytes: inside CDATA a run of two
// or more followed by '>' ends the section; outside CDATA the same
// sequence is always a fatal "]]>" in text.
func (lx *Lexer) stepMaybeCDataEnd(b byte) (*Token, bool, error) {
	if b == ']' {
		lx.bracketRun++
		return nil, false, nil
	}
	if b == '>' && lx.bracketRun >= 2 {
		if lx.inCDATA {
			// The run's bytes beyond the two that form "]]" are literal
			// CDATA content preceding the terminator. A long run can
			// itself cross max_token_length; rather than discard the
			// split-off token, queue it and return it on this and
			// subsequent NextToken calls, oldest first.
			for i := 0; i < lx.bracketRun-2; i++ {
				tok, err := lx.appendTextByte(']')
				if err != nil {
					return nil, false, err
				}
				if tok != nil {
					lx.pendingTokens = append(lx.pendingTokens, tok)
				}
			}
			tok, err := lx.emitText()
			if err != nil {
				return nil, false, err
			}
			lx.mode = modeContentInitial
			lx.tokStart = lx.pos
			lx.inCDATA = false
			lx.pendingTokens = append(lx.pendingTokens, tok)
			next := lx.pendingTokens[0]
			lx.pendingTokens = lx.pendingTokens[1:]
			return next, true, nil
		}
		return nil, false, newWFError(ERRCTX_TEXT, "']]>' is not allowed in text outside a CDATA section")
	}
	// Not a terminator: the run was literal content. Flush it verbatim
	// (a bracket run is always tiny relative to max_token_length, so the
	// Text-splitting boundary is not re-checked here) and redispatch b
	// through the normal per-byte rules.
	wasCData := lx.inCDATA
	run := lx.bracketRun
	lx.bracketRun = 0
	for i := 0; i < run; i++ {
		lx.scratch = append(lx.scratch, ']')
	}
	if wasCData {
		lx.mode = modeContentCDataSection
	} else {
		lx.mode = modeContentInitial
	}
	return lx.step(b)
}

// stepMaybeCRLF is entered right after a lone '\r' has already folded a
// '\n' into the scratch buffer. A following '\n' is swallowed (it was
// part of the same line ending); anything else is redispatched.
func (lx *Lexer) stepMaybeCRLF(b byte) (*Token, bool, error) {
	inCData := lx.crlfInCDATA
	if b == '\n' {
		if inCData {
			lx.mode = modeContentCDataSection
		} else {
			lx.mode = modeContentInitial
		}
		return nil, false, nil
	}
	if inCData {
		lx.mode = modeContentCDataSection
	} else {
		lx.mode = modeContentInitial
	}
	return lx.step(b)
}
