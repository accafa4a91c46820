package xml

import (
	"fmt"

	"github.com/pkg/errors"
)

// nsTrackerFrame holds only the default-namespace binding active at one
// element depth; this is the memory-frugal variant of spec §4.5's
// tracker (prefixed bindings are redeclared per element instead of
// being carried in the frame, trading output size for tracker memory).
type nsTrackerFrame struct {
	hasDefault bool
	defaultURI string
}

// NSTracker is the encoder's namespace-prefix bookkeeping collaborator
// (spec §4.5 "Namespace prefix strategy").
type NSTracker struct {
	frames      []nsTrackerFrame
	autoCounter int
}

// NewNSTracker returns an empty tracker, outside any element.
func NewNSTracker() *NSTracker { return &NSTracker{} }

// Push opens a new element scope, inheriting the enclosing default
// namespace.
func (t *NSTracker) Push() {
	uri, has := t.current()
	t.frames = append(t.frames, nsTrackerFrame{hasDefault: has, defaultURI: uri})
}

// Pop closes the element scope most recently opened with Push.
func (t *NSTracker) Pop() {
	t.frames = t.frames[:len(t.frames)-1]
}

func (t *NSTracker) current() (string, bool) {
	if len(t.frames) == 0 {
		return "", false
	}
	f := t.frames[len(t.frames)-1]
	return f.defaultURI, f.hasDefault
}

func (t *NSTracker) setDefault(uri string) {
	t.frames[len(t.frames)-1] = nsTrackerFrame{hasDefault: true, defaultURI: uri}
}

// DeclareAuto prefers binding uri as the default namespace of the
// current element scope. If the default is already taken by a
// different, non-empty URI, it mints an auto-generated prefix instead.
// isNew reports whether an xmlns declaration must be written.
func (t *NSTracker) DeclareAuto(uri string) (isNew bool, prefix string) {
	cur, has := t.current()
	if uri == "" {
		if !has || cur == "" {
			return false, ""
		}
		t.setDefault("")
		return true, ""
	}
	if has && cur == uri {
		return false, ""
	}
	if !has || cur == "" {
		t.setDefault(uri)
		return true, ""
	}
	return true, t.mintPrefix()
}

// DeclareWithAutoPrefix always mints a fresh auto-generated prefix,
// never touching the default-namespace slot.
func (t *NSTracker) DeclareWithAutoPrefix() string {
	return t.mintPrefix()
}

func (t *NSTracker) mintPrefix() string {
	p := fmt.Sprintf("tns%d", t.autoCounter)
	t.autoCounter++
	return p
}

// DeclareFixed registers prefix as a specific, caller-chosen binding for
// uri. The prefixes "xml" and "xmlns" are reserved: they are accepted
// only paired with their canonical URI, and no other prefix may be
// bound to those two URIs either.
func DeclareFixed(prefix, uri string) error {
	switch prefix {
	case "xml":
		if uri != xmlNamespaceURI {
			return errors.New("prefix 'xml' may only bind the fixed XML namespace URI")
		}
		return nil
	case "xmlns":
		if uri != xmlnsNamespaceURI {
			return errors.New("prefix 'xmlns' may only bind the fixed xmlns namespace URI")
		}
		return nil
	}
	if uri == xmlNamespaceURI {
		return errors.New("the fixed XML namespace URI may only be bound to prefix 'xml'")
	}
	if uri == xmlnsNamespaceURI {
		return errors.New("the fixed xmlns namespace URI may only be bound to prefix 'xmlns'")
	}
	return nil
}
