package xml

// nsFrame is one level of the namespace stack: the default-namespace
// binding (if any) and prefix->URI declarations visible at this depth.
// Frames are built by flattening the parent frame with this element's
// own declarations, so lookup never needs to walk the stack (spec
// §4.4's "searches ... from top of stack down" collapses to one map
// read per prefix).
type nsFrame struct {
	hasDefault bool
	defaultURI string
	prefixes   map[string]string
}

// NSResolver sits between the RawParser and the application (spec §4.4):
// it fuses ElementHeadOpen/Attribute*/ElementHeadClose into a single
// StartElement, resolving prefixes to URIs and rejecting duplicate
// attributes.
type NSResolver struct {
	rp   *RawParser
	ctx  *Context // optional interning collaborator; nil disables it
	pois poison

	stack []nsFrame

	// scratchpad for the element header currently being assembled
	inHeader    bool
	rawQName    Name
	openMetrics EventMetrics
	defaultDecl struct {
		set   bool
		value string
	}
	prefixDecls map[string]string
	queued      []queuedAttr
	seenRaw     map[string]bool
}

type queuedAttr struct {
	prefix NCName
	local  NCName
	value  CData
}

// NewNSResolver returns a resolver reading raw events from rp. ctx may
// be nil to disable URI interning.
func NewNSResolver(rp *RawParser, ctx *Context) *NSResolver {
	return &NSResolver{rp: rp, ctx: ctx}
}

func (nr *NSResolver) fail(err error) (*ResolvedEvent, error) {
	return nil, nr.pois.record(err)
}

// ResolveEvent pulls as many raw events as needed to assemble the next
// ResolvedEvent. It returns (nil, nil) at clean document end.
func (nr *NSResolver) ResolveEvent() (*ResolvedEvent, error) {
	if err := nr.pois.check(); err != nil {
		return nil, err
	}
	for {
		ev, err := nr.rp.ParseEvent()
		if err != nil {
			return nr.fail(err)
		}
		if ev == nil {
			return nil, nil
		}

		switch ev.Kind {
		case RawXMLDeclaration:
			return &ResolvedEvent{Kind: ResolvedXMLDeclaration, Version: ev.Version, Metrics: ev.Metrics}, nil

		case RawElementHeadOpen:
			nr.beginHeader(ev)
			continue

		case RawAttribute:
			if err := nr.queueAttribute(ev); err != nil {
				return nr.fail(err)
			}
			continue

		case RawElementHeadClose:
			resolved, err := nr.finishHeader(ev)
			if err != nil {
				return nr.fail(err)
			}
			return resolved, nil

		case RawElementFoot:
			if len(nr.stack) == 0 {
				return nr.fail(newWFError(ERRCTX_ELEMENT_FOOT, "namespace stack underflow"))
			}
			nr.stack = nr.stack[:len(nr.stack)-1]
			return &ResolvedEvent{Kind: ResolvedEndElement, Metrics: ev.Metrics}, nil

		case RawText:
			return &ResolvedEvent{Kind: ResolvedText, Text: ev.Value, Metrics: ev.Metrics}, nil

		default:
			return nr.fail(newUnexpectedTokenError(ERRCTX_UNKNOWN, TokName, nil))
		}
	}
}

func (nr *NSResolver) beginHeader(ev *RawEvent) {
	nr.inHeader = true
	nr.rawQName = joinQName(ev.Prefix, ev.Local)
	nr.openMetrics = ev.Metrics
	nr.defaultDecl.set = false
	nr.defaultDecl.value = ""
	nr.prefixDecls = make(map[string]string)
	nr.queued = nr.queued[:0]
	nr.seenRaw = make(map[string]bool)
}

func joinQName(prefix, local NCName) Name {
	if prefix == "" {
		return local.AsName()
	}
	return Name(string(prefix) + ":" + string(local))
}

func (nr *NSResolver) queueAttribute(ev *RawEvent) error {
	nr.openMetrics.Len += ev.Metrics.Len
	raw := joinQName(ev.Prefix, ev.Local)
	if nr.seenRaw[string(raw)] {
		return newWFError(ERRCTX_NAMESPACE, "duplicate attribute '"+string(raw)+"'")
	}
	nr.seenRaw[string(raw)] = true

	switch {
	case ev.Prefix == "xmlns":
		if ev.Local != "xml" { // xmlns:xml is always the fixed URI; nothing to record
			nr.prefixDecls[string(ev.Local)] = string(ev.Value)
		}
	case ev.Prefix == "" && ev.Local == "xmlns":
		nr.defaultDecl.set = true
		nr.defaultDecl.value = string(ev.Value)
	default:
		nr.queued = append(nr.queued, queuedAttr{prefix: ev.Prefix, local: ev.Local, value: ev.Value})
	}
	return nil
}

func (nr *NSResolver) finishHeader(ev *RawEvent) (*ResolvedEvent, error) {
	nr.openMetrics.Len += ev.Metrics.Len
	nr.inHeader = false

	var parent nsFrame
	if len(nr.stack) > 0 {
		parent = nr.stack[len(nr.stack)-1]
	}
	frame := nsFrame{
		hasDefault: nr.defaultDecl.set || parent.hasDefault,
		defaultURI: parent.defaultURI,
		prefixes:   make(map[string]string, len(parent.prefixes)+len(nr.prefixDecls)),
	}
	if nr.defaultDecl.set {
		frame.defaultURI = nr.defaultDecl.value
	}
	for k, v := range parent.prefixes {
		frame.prefixes[k] = v
	}
	for k, v := range nr.prefixDecls {
		frame.prefixes[k] = v
	}
	nr.stack = append(nr.stack, frame)

	prefix, local, err := SplitQName(nr.rawQName)
	if err != nil {
		return nil, err
	}
	uri, err := nr.resolve(string(prefix), frame, false)
	if err != nil {
		return nil, WithContext(err, ERRCTX_ELEMENT)
	}

	attrs := make(map[QName]CData, len(nr.queued))
	for _, qa := range nr.queued {
		uri, err := nr.resolve(string(qa.prefix), frame, true)
		if err != nil {
			return nil, WithContext(err, ERRCTX_ATTNAME)
		}
		key := QName{URI: nr.intern(uri), Local: qa.local}
		if _, dup := attrs[key]; dup {
			return nil, newWFError(ERRCTX_NAMESPACE, "duplicate attribute after namespace resolution")
		}
		attrs[key] = qa.value
	}

	return &ResolvedEvent{
		Kind:    ResolvedStartElement,
		Name:    QName{URI: nr.intern(uri), Local: local},
		Attrs:   attrs,
		Metrics: nr.openMetrics,
	}, nil
}

// resolve looks up the URI bound to prefix in frame. isAttr disables the
// default-namespace fallback for an unprefixed name, per Namespaces in
// XML's rule that attribute names never inherit the default namespace.
func (nr *NSResolver) resolve(prefix string, frame nsFrame, isAttr bool) (string, error) {
	switch prefix {
	case "":
		if isAttr || !frame.hasDefault {
			return "", nil
		}
		return frame.defaultURI, nil
	case "xml":
		return xmlNamespaceURI, nil
	case "xmlns":
		return xmlnsNamespaceURI, nil
	default:
		if uri, ok := frame.prefixes[prefix]; ok {
			return uri, nil
		}
		return "", newWFError(ERRCTX_NAMESPACE, "undeclared namespace prefix '"+prefix+"'")
	}
}

func (nr *NSResolver) intern(uri string) string {
	if nr.ctx == nil {
		return uri
	}
	return string(nr.ctx.Intern(CData(uri)))
}
