package xml

import (
	"encoding/json"
	"sort"

	"github.com/pkg/errors"
)

// Node is one element of a document tree built from a
// resolved event stream (spec §4.4's ResolvedEvent, fused into a tree
// instead of consumed one event at a time). It is the re-grounding of the
// teacher's dynamic OrderedMap on namespace-aware StartElement/EndElement
// pairs: children keep insertion order, and an element's own attributes
// live on it directly rather than as "@"-prefixed map keys.
type Node struct {
	Name     QName
	Attrs    map[QName]CData
	Text     string
	Children []*Node
	Parent   *Node
}

// NewNode returns an empty element node named name.
func NewNode(name QName) *Node {
	return &Node{Name: name}
}

// BuildTree drains src to end-of-document and returns the root element as
// a *Node tree. The XML declaration (if any) is consumed and discarded;
// callers that need it should inspect the raw ResolvedEvent stream
// directly instead of going through BuildTree.
func BuildTree(src EventSource) (*Node, error) {
	var root *Node
	var current *Node

	for {
		ev, err := src.ResolveEvent()
		if err != nil {
			return nil, errors.Wrap(err, "building document tree")
		}
		if ev == nil {
			break
		}
		switch ev.Kind {
		case ResolvedXMLDeclaration:
			// nothing to carry into the tree

		case ResolvedStartElement:
			n := &Node{Name: ev.Name, Attrs: ev.Attrs, Parent: current}
			if current == nil {
				root = n
			} else {
				current.Children = append(current.Children, n)
			}
			current = n

		case ResolvedText:
			if current != nil {
				current.Text += string(ev.Text)
			}

		case ResolvedEndElement:
			if current != nil {
				current = current.Parent
			}
		}
	}
	if root == nil {
		return nil, errors.New("document has no root element")
	}
	return root, nil
}

// Attr returns the value of the unqualified attribute named local, or ""
// if absent. For a namespaced lookup, index Attrs directly with a QName.
func (n *Node) Attr(local NCName) (CData, bool) {
	v, ok := n.Attrs[QName{Local: local}]
	return v, ok
}

// Child returns the first direct child named local (no namespace), or nil.
func (n *Node) Child(local NCName) *Node {
	for _, c := range n.Children {
		if c.Name.URI == "" && c.Name.Local == local {
			return c
		}
	}
	return nil
}

// ChildrenNamed returns every direct child named local (no namespace), in
// document order.
func (n *Node) ChildrenNamed(local NCName) []*Node {
	var out []*Node
	for _, c := range n.Children {
		if c.Name.URI == "" && c.Name.Local == local {
			out = append(out, c)
		}
	}
	return out
}

// Equal reports whether n and other have the same name, attributes, text,
// and children recursively — structural equality, ignoring Parent links
// and any event metrics (neither tree carries them).
func (n *Node) Equal(other *Node) bool {
	if n == nil || other == nil {
		return n == other
	}
	if n.Name != other.Name || n.Text != other.Text {
		return false
	}
	if len(n.Attrs) != len(other.Attrs) {
		return false
	}
	for k, v := range n.Attrs {
		if ov, ok := other.Attrs[k]; !ok || ov != v {
			return false
		}
	}
	if len(n.Children) != len(other.Children) {
		return false
	}
	for i, c := range n.Children {
		if !c.Equal(other.Children[i]) {
			return false
		}
	}
	return true
}

// jsonNode mirrors Node in a shape encoding/json can marshal directly
// (QName and NCName aren't JSON-object-key-safe as map keys, so Attrs is
// flattened to qualified-string keys first).
type jsonNode struct {
	Name     string              `json:"name"`
	Attrs    map[string]string   `json:"attrs,omitempty"`
	Text     string              `json:"text,omitempty"`
	Children []*jsonNode         `json:"children,omitempty"`
}

func (n *Node) toJSONNode() *jsonNode {
	jn := &jsonNode{Name: formatQName(n.Name), Text: n.Text}
	if len(n.Attrs) > 0 {
		jn.Attrs = make(map[string]string, len(n.Attrs))
		keys := make([]QName, 0, len(n.Attrs))
		for k := range n.Attrs {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool {
			if keys[i].URI != keys[j].URI {
				return keys[i].URI < keys[j].URI
			}
			return keys[i].Local < keys[j].Local
		})
		for _, k := range keys {
			jn.Attrs[formatQName(k)] = string(n.Attrs[k])
		}
	}
	for _, c := range n.Children {
		jn.Children = append(jn.Children, c.toJSONNode())
	}
	return jn
}

// ToJSON renders the subtree rooted at n as indented JSON, the tree-layer
// counterpart to DumpEvents' flat per-event text rendering.
func (n *Node) ToJSON() (string, error) {
	b, err := json.MarshalIndent(n.toJSONNode(), "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "marshaling node to JSON")
	}
	return string(b), nil
}
