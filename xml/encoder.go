package xml

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

type encoderState int

const (
	encStart encoderState = iota
	encDeclared
	encElementHead
	encContent
	encEndOfDocument
)

// encStackFrame remembers the exact qname form an open element was
// written with, so the closing tag mirrors it (spec §4.5 "Element name
// composition").
type encStackFrame struct {
	prefix string
	local  NCName
}

// Encoder is the inverse of the parsing pipeline (spec §4.5): it
// serializes ResolvedEvents back to well-formed XML bytes.
type Encoder struct {
	id      uuid.UUID
	w       io.Writer
	state   encoderState
	tracker *NSTracker
	stack   []encStackFrame
	pois    poison

	// pinned holds caller-chosen prefixes registered via
	// DeclareNamespacePrefix; they are declared once, on the first
	// element that uses them, rather than redeclared per element like
	// the tracker's auto-assigned ones (spec §4.5's declare_fixed).
	pinned         map[string]string // uri -> prefix
	pinnedDeclared map[string]bool   // prefix -> already written
}

// NewEncoder returns an Encoder writing to w, starting in state Start.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{id: uuid.New(), w: w, tracker: NewNSTracker(), state: encStart}
}

// ID returns the identifier assigned to this Encoder when it was
// created. Errors returned by the Encoder do not include it.
func (e *Encoder) ID() uuid.UUID { return e.id }

func (e *Encoder) fail(err error) error { return e.pois.record(err) }

// DeclareNamespacePrefix registers a caller-chosen prefix for uri (spec
// §4.5's declare_fixed), e.g. so a well-known vocabulary is always
// written with the same conventional prefix instead of an auto-minted
// one. It must be called before the first WriteStartElement that uses
// uri.
func (e *Encoder) DeclareNamespacePrefix(prefix, uri string) error {
	if err := DeclareFixed(prefix, uri); err != nil {
		return e.fail(err)
	}
	if e.pinned == nil {
		e.pinned = make(map[string]string)
	}
	e.pinned[uri] = prefix
	return nil
}

// resolveElementPrefix picks the prefix (or "" for default/unnamespaced)
// to write for name.URI, preferring a pinned binding over the tracker's
// default-or-auto-prefix assignment.
func (e *Encoder) resolveElementPrefix(uri string) (prefix string, isNew bool) {
	if p, ok := e.pinned[uri]; ok {
		if e.pinnedDeclared == nil {
			e.pinnedDeclared = make(map[string]bool)
		}
		if e.pinnedDeclared[p] {
			return p, false
		}
		e.pinnedDeclared[p] = true
		return p, true
	}
	isNew, prefix = e.tracker.DeclareAuto(uri)
	return prefix, isNew
}

// resolveAttrPrefix picks the prefix for a namespaced attribute, again
// preferring a pinned binding over minting a fresh one.
func (e *Encoder) resolveAttrPrefix(uri string) (prefix string, isNew bool) {
	if p, ok := e.pinned[uri]; ok {
		if e.pinnedDeclared == nil {
			e.pinnedDeclared = make(map[string]bool)
		}
		if e.pinnedDeclared[p] {
			return p, false
		}
		e.pinnedDeclared[p] = true
		return p, true
	}
	return e.tracker.DeclareWithAutoPrefix(), true
}

// WriteXMLDeclaration writes the fixed XML declaration of spec §6.2. It
// is valid only as the very first thing written.
func (e *Encoder) WriteXMLDeclaration() error {
	if err := e.pois.check(); err != nil {
		return err
	}
	if e.state != encStart {
		return e.fail(newWFError(ERRCTX_XML_DECL, "XML declaration is only valid at the start of a document"))
	}
	if _, err := io.WriteString(e.w, "<?xml version='1.0' encoding='utf-8'?>\n"); err != nil {
		return e.fail(errors.Wrap(err, "writing XML declaration"))
	}
	e.state = encDeclared
	return nil
}

// WriteStartElement opens name, writing whatever xmlns declarations its
// own name and attrs newly require. attrs is written in a stable
// (URI, local) sort order since a resolved attribute map's iteration
// order is not itself meaningful (spec §3).
func (e *Encoder) WriteStartElement(name QName, attrs map[QName]CData) error {
	if err := e.pois.check(); err != nil {
		return err
	}
	if e.state != encStart && e.state != encDeclared && e.state != encContent {
		return e.fail(newWFError(ERRCTX_ELEMENT, "element start is not valid here"))
	}

	e.tracker.Push()
	prefix, isNew := e.resolveElementPrefix(name.URI)

	type decl struct {
		prefix string
		uri    string
	}
	var decls []decl
	if isNew {
		decls = append(decls, decl{prefix: prefix, uri: name.URI})
	}

	usedPrefix := make(map[string]string, len(attrs))
	if isNew && prefix != "" {
		usedPrefix[name.URI] = prefix
	}

	keys := make([]QName, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].URI != keys[j].URI {
			return keys[i].URI < keys[j].URI
		}
		return keys[i].Local < keys[j].Local
	})

	type writtenAttr struct {
		prefix string
		local  NCName
		value  CData
	}
	written := make([]writtenAttr, 0, len(keys))
	for _, k := range keys {
		p := ""
		if k.URI != "" {
			var ok bool
			p, ok = usedPrefix[k.URI]
			if !ok {
				var isNewAttr bool
				p, isNewAttr = e.resolveAttrPrefix(k.URI)
				usedPrefix[k.URI] = p
				if isNewAttr {
					decls = append(decls, decl{prefix: p, uri: k.URI})
				}
			}
		}
		written = append(written, writtenAttr{prefix: p, local: k.Local, value: attrs[k]})
	}

	var b strings.Builder
	b.WriteByte('<')
	if prefix != "" {
		b.WriteString(prefix)
		b.WriteByte(':')
	}
	b.WriteString(string(name.Local))
	for _, d := range decls {
		if d.prefix == "" {
			fmt.Fprintf(&b, " xmlns=\"%s\"", escapeAttr(d.uri))
		} else {
			fmt.Fprintf(&b, " xmlns:%s=\"%s\"", d.prefix, escapeAttr(d.uri))
		}
	}
	for _, a := range written {
		if a.prefix == "" {
			fmt.Fprintf(&b, " %s=\"%s\"", a.local, escapeAttr(string(a.value)))
		} else {
			fmt.Fprintf(&b, " %s:%s=\"%s\"", a.prefix, a.local, escapeAttr(string(a.value)))
		}
	}
	b.WriteByte('>')

	if _, err := io.WriteString(e.w, b.String()); err != nil {
		return e.fail(errors.Wrap(err, "writing element start"))
	}
	e.stack = append(e.stack, encStackFrame{prefix: prefix, local: name.Local})
	e.state = encContent
	return nil
}

// WriteEndElement closes the most recently opened element.
func (e *Encoder) WriteEndElement() error {
	if err := e.pois.check(); err != nil {
		return err
	}
	if e.state != encContent || len(e.stack) == 0 {
		return e.fail(newWFError(ERRCTX_ELEMENT_FOOT, "element end is not valid here"))
	}
	top := e.stack[len(e.stack)-1]
	e.stack = e.stack[:len(e.stack)-1]
	e.tracker.Pop()

	var b strings.Builder
	b.WriteString("</")
	if top.prefix != "" {
		b.WriteString(top.prefix)
		b.WriteByte(':')
	}
	b.WriteString(string(top.local))
	b.WriteByte('>')
	if _, err := io.WriteString(e.w, b.String()); err != nil {
		return e.fail(errors.Wrap(err, "writing element end"))
	}

	if len(e.stack) == 0 {
		e.state = encEndOfDocument
	}
	return nil
}

// WriteText writes cdata as escaped character data.
func (e *Encoder) WriteText(cdata CData) error {
	if err := e.pois.check(); err != nil {
		return err
	}
	if e.state != encContent {
		return e.fail(newWFError(ERRCTX_TEXT, "text is only valid inside an element"))
	}
	if _, err := io.WriteString(e.w, escapeText(string(cdata))); err != nil {
		return e.fail(errors.Wrap(err, "writing text"))
	}
	return nil
}

// WriteResolvedEvent dispatches ev to the matching Write* method; it is
// a convenience for callers driving the encoder straight from a
// NSResolver's output.
func (e *Encoder) WriteResolvedEvent(ev *ResolvedEvent) error {
	switch ev.Kind {
	case ResolvedXMLDeclaration:
		return e.WriteXMLDeclaration()
	case ResolvedStartElement:
		return e.WriteStartElement(ev.Name, ev.Attrs)
	case ResolvedEndElement:
		return e.WriteEndElement()
	case ResolvedText:
		return e.WriteText(ev.Text)
	default:
		return e.fail(newUnexpectedTokenError(ERRCTX_UNKNOWN, TokName, nil))
	}
}

func escapeText(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '<':
			b.WriteString("&lt;")
		case '>':
			b.WriteString("&gt;")
		case '&':
			b.WriteString("&amp;")
		case '\r':
			b.WriteString("&#xd;")
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func escapeAttr(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '<':
			b.WriteString("&lt;")
		case '>':
			b.WriteString("&gt;")
		case '&':
			b.WriteString("&amp;")
		case '\r':
			b.WriteString("&#xd;")
		case '"':
			b.WriteString("&quot;")
		case '\'':
			b.WriteString("&apos;")
		case '\n':
			b.WriteString("&#xa;")
		case '\t':
			b.WriteString("&#x9;")
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
