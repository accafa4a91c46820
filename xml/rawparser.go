package xml

import "strings"

// xmlNamespaceURI and xmlnsNamespaceURI are the two namespace URIs fixed
// by the XML and XML Namespaces specifications; neither may be rebound.
const (
	xmlNamespaceURI   = "http://www.w3.org/XML/1998/namespace"
	xmlnsNamespaceURI = "http://www.w3.org/2000/xmlns/"
)

// headerPhase tracks where a RawParser is inside an element header it has
// already opened (emitted RawElementHeadOpen for) but not yet closed.
type headerPhase int

const (
	headerNone headerPhase = iota
	headerInProgress
	headerPendingSyntheticFoot
)

// RawParser drives the Lexer's token stream into raw events (spec §4.3):
// XML declaration grammar, element nesting, and prefix:local splitting.
// It enforces no namespace semantics; that is the resolver's job.
type RawParser struct {
	lx  *Lexer
	src Source

	pois poison

	stack []Name // raw (unsplit) opener names, deepest last

	phase  headerPhase
	pend   Name   // raw qname of the header currently open
	pendAt uint64 // byte offset the header's latest Open or Attribute event ended at

	sawRoot    bool
	rootClosed bool
}

// NewRawParser returns a RawParser reading tokens from lx fed by src.
func NewRawParser(lx *Lexer, src Source) *RawParser {
	return &RawParser{lx: lx, src: src}
}

func (rp *RawParser) fail(err error) (*RawEvent, error) {
	return nil, rp.pois.record(err)
}

func (rp *RawParser) nextToken() (*Token, error) {
	return rp.lx.NextToken(rp.src)
}

// ParseEvent pulls as many tokens as needed to assemble the next RawEvent.
// It returns (nil, nil) at clean document end.
func (rp *RawParser) ParseEvent() (*RawEvent, error) {
	if err := rp.pois.check(); err != nil {
		return nil, err
	}
	ev, err := rp.parseEvent()
	if err != nil {
		return nil, rp.pois.record(err)
	}
	return ev, nil
}

func (rp *RawParser) parseEvent() (*RawEvent, error) {
	if rp.phase == headerPendingSyntheticFoot {
		rp.phase = headerNone
		return rp.popFoot(EventMetrics{Len: 0})
	}

	if rp.phase == headerInProgress {
		return rp.continueHeader()
	}

	tok, err := rp.nextToken()
	if err != nil {
		return nil, err
	}
	if tok == nil {
		if len(rp.stack) > 0 {
			return nil, newInvalidEOFError(ERRCTX_ELEMENT)
		}
		if !rp.sawRoot {
			return nil, newWFError(ERRCTX_DOCBEGIN, "document has no root element")
		}
		return nil, nil
	}

	switch tok.Kind {
	case TokXMLDeclStart:
		return rp.parseDecl(tok)

	case TokElementHeadStart:
		if rp.rootClosed {
			return nil, newWFError(ERRCTX_ELEMENT, "multiple root elements")
		}
		rp.sawRoot = true
		rp.pend = tok.NamePayload
		rp.pendAt = tok.Metrics.End
		rp.phase = headerInProgress
		prefix, local, err := SplitQName(tok.NamePayload)
		if err != nil {
			return nil, err
		}
		return &RawEvent{Kind: RawElementHeadOpen, Prefix: prefix, Local: local, Metrics: EventMetrics{Len: tok.Metrics.Len()}}, nil

	case TokElementFootStart:
		end, err := rp.nextToken()
		if err != nil {
			return nil, err
		}
		if end == nil || end.Kind != TokElementHFEnd {
			return nil, newUnexpectedTokenError(ERRCTX_ELEMENT_FOOT, tokKindOrEOF(end), []string{"ElementHFEnd"})
		}
		if len(rp.stack) == 0 {
			return nil, newWFError(ERRCTX_ELEMENT_FOOT, "element foot without matching open")
		}
		top := rp.stack[len(rp.stack)-1]
		if top != tok.NamePayload {
			return nil, newWFError(ERRCTX_ELEMENT_FOOT, "mismatched closing tag name")
		}
		return rp.popFoot(EventMetrics{Len: end.Metrics.End - tok.Metrics.Start})

	case TokText:
		if rp.rootClosed && !isAllASCIIWhitespace(string(tok.CDataPayload)) {
			return nil, newWFError(ERRCTX_TEXT, "non-whitespace content after root element")
		}
		return &RawEvent{Kind: RawText, Value: tok.CDataPayload, Metrics: EventMetrics{Len: tok.Metrics.Len()}}, nil

	default:
		return nil, newUnexpectedTokenError(ERRCTX_UNKNOWN, tok.Kind, nil)
	}
}

// popFoot emits a RawElementFoot event and pops the element stack,
// tracking whether the document root has now fully closed.
func (rp *RawParser) popFoot(m EventMetrics) (*RawEvent, error) {
	rp.stack = rp.stack[:len(rp.stack)-1]
	if len(rp.stack) == 0 {
		rp.rootClosed = true
	}
	return &RawEvent{Kind: RawElementFoot, Metrics: m}, nil
}

// continueHeader resumes an already-opened element header: the next
// token is either an attribute Name, or the terminator ('>' or '/>').
func (rp *RawParser) continueHeader() (*RawEvent, error) {
	tok, err := rp.nextToken()
	if err != nil {
		return nil, err
	}
	switch {
	case tok != nil && tok.Kind == TokName:
		return rp.parseAttribute(tok)
	case tok != nil && tok.Kind == TokElementHFEnd:
		rp.stack = append(rp.stack, rp.pend)
		rp.phase = headerNone
		return &RawEvent{Kind: RawElementHeadClose, Metrics: EventMetrics{Len: tok.Metrics.Len()}}, nil
	case tok != nil && tok.Kind == TokElementHeadClose:
		rp.stack = append(rp.stack, rp.pend)
		rp.phase = headerPendingSyntheticFoot
		return &RawEvent{Kind: RawElementHeadClose, Metrics: EventMetrics{Len: tok.Metrics.Len()}}, nil
	default:
		return nil, newUnexpectedTokenError(ERRCTX_ELEMENT, tokKindOrEOF(tok), []string{"Name", "ElementHFEnd", "ElementHeadClose"})
	}
}

// parseAttribute pulls the Eq and AttributeValue tokens that complete an
// attribute Name already read, applies the xmlns pre-resolution rules,
// and returns the Attribute event.
func (rp *RawParser) parseAttribute(nameTok *Token) (*RawEvent, error) {
	eq, err := rp.nextToken()
	if err != nil {
		return nil, err
	}
	if eq == nil || eq.Kind != TokEq {
		return nil, newUnexpectedTokenError(ERRCTX_ATTNAME, tokKindOrEOF(eq), []string{"Eq"})
	}
	val, err := rp.nextToken()
	if err != nil {
		return nil, err
	}
	if val == nil || val.Kind != TokAttributeValue {
		return nil, newUnexpectedTokenError(ERRCTX_ATTNAME, tokKindOrEOF(val), []string{"AttributeValue"})
	}

	prefix, local, err := SplitQName(nameTok.NamePayload)
	if err != nil {
		return nil, err
	}
	if err := checkReservedAttribute(prefix, local, val.CDataPayload); err != nil {
		return nil, err
	}

	start := rp.pendAt
	rp.pendAt = val.Metrics.End
	return &RawEvent{Kind: RawAttribute, Prefix: prefix, Local: local, Value: val.CDataPayload, Metrics: EventMetrics{Len: val.Metrics.End - start}}, nil
}

// checkReservedAttribute applies spec §4.3's pre-resolution xmlns rules.
func checkReservedAttribute(prefix, local NCName, value CData) error {
	if prefix == "xmlns" {
		if local == "xmlns" {
			return newWFError(ERRCTX_NAMESPACE, "'xmlns:xmlns' is reserved")
		}
		if local == "xml" {
			if string(value) != xmlNamespaceURI {
				return newWFError(ERRCTX_NAMESPACE, "'xmlns:xml' must bind the fixed XML namespace URI")
			}
			return nil
		}
		if value == "" {
			return newWFError(ERRCTX_NAMESPACE, "namespace prefix declaration must not be empty")
		}
		return nil
	}
	if prefix == "" && local == "xmlns" {
		return nil // default-namespace declaration; empty value undeclares it
	}
	return nil
}

// parseDecl assembles the whole "<?xml ... ?>" sequence into a single
// RawXMLDeclaration event, validating version/encoding/standalone.
func (rp *RawParser) parseDecl(start *Token) (*RawEvent, error) {
	var version, encoding, standalone string
	var sawVersion, sawEncoding, sawStandalone bool

	for {
		tok, err := rp.nextToken()
		if err != nil {
			return nil, err
		}
		if tok == nil {
			return nil, newInvalidEOFError(ERRCTX_XML_DECL)
		}
		if tok.Kind == TokXMLDeclEnd {
			if !sawVersion {
				return nil, newWFError(ERRCTX_XML_DECL, "'version' attribute is required")
			}
			if version != "1.0" {
				return nil, newRestrictedError(ERRCTX_XML_DECL, "only XML version 1.0 is supported")
			}
			if sawEncoding && !strings.EqualFold(encoding, "utf-8") {
				return nil, newRestrictedError(ERRCTX_XML_DECL, "only the utf-8 encoding is supported")
			}
			if sawStandalone && standalone != "yes" {
				return nil, newRestrictedError(ERRCTX_XML_DECL, "'standalone' must be 'yes' if present")
			}
			return &RawEvent{Kind: RawXMLDeclaration, Version: "1.0", Metrics: EventMetrics{Len: tok.Metrics.End - start.Metrics.Start}}, nil
		}
		if tok.Kind != TokName {
			return nil, newUnexpectedTokenError(ERRCTX_XML_DECL, tok.Kind, []string{"Name", "XMLDeclEnd"})
		}
		name := string(tok.NamePayload)

		eq, err := rp.nextToken()
		if err != nil {
			return nil, err
		}
		if eq == nil || eq.Kind != TokEq {
			return nil, newUnexpectedTokenError(ERRCTX_XML_DECL, tokKindOrEOF(eq), []string{"Eq"})
		}
		val, err := rp.nextToken()
		if err != nil {
			return nil, err
		}
		if val == nil || val.Kind != TokAttributeValue {
			return nil, newUnexpectedTokenError(ERRCTX_XML_DECL, tokKindOrEOF(val), []string{"AttributeValue"})
		}

		switch name {
		case "version":
			if sawVersion {
				return nil, newWFError(ERRCTX_XML_DECL, "duplicate 'version' attribute")
			}
			version, sawVersion = string(val.CDataPayload), true
		case "encoding":
			if sawEncoding {
				return nil, newWFError(ERRCTX_XML_DECL, "duplicate 'encoding' attribute")
			}
			encoding, sawEncoding = string(val.CDataPayload), true
		case "standalone":
			if sawStandalone {
				return nil, newWFError(ERRCTX_XML_DECL, "duplicate 'standalone' attribute")
			}
			standalone, sawStandalone = string(val.CDataPayload), true
		default:
			return nil, newRestrictedError(ERRCTX_XML_DECL, "unsupported XML declaration attribute '"+name+"'")
		}
	}
}

func tokKindOrEOF(tok *Token) TokenKind {
	if tok == nil {
		return TokenKind(-1)
	}
	return tok.Kind
}

func isAllASCIIWhitespace(s string) bool {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case ' ', '\t', '\n', '\r':
		default:
			return false
		}
	}
	return true
}
