package xml

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Path syntax understood by QueryAll, re-grounded on a namespace-aware
// *Node tree instead of the teacher's dynamic OrderedMap:
//
//   - Deep navigation: "a/b/c" (direct children at each step)
//   - Deep search:     "//c"   (c anywhere in the tree, the root included)
//   - Wildcards:       "a/*/c"
//   - Indexing:        "a/b[2]" (0-based, among b's same-named siblings)
//   - Attribute filter: "a/b[@id='x']"
//   - Text extraction: "a/b/#text"
//
// Namespaces are deliberately out of scope for path segments here: they
// match on local name only, since a textual path syntax has no clean way
// to spell a URI without its own quoting rules, and the teacher's own
// query layer never addressed them either.
func QueryAll(root *Node, path string) ([]any, error) {
	if root == nil {
		return nil, errors.New("query on a nil node")
	}
	if path == "" {
		return []any{root}, nil
	}
	if strings.HasPrefix(path, "//") {
		target := strings.TrimPrefix(path, "//")
		return findAllRecursively(root, target), nil
	}

	segments := strings.Split(path, "/")
	current := []any{root}

	for _, seg := range segments {
		if seg == "" {
			continue
		}
		var next []any
		for _, cand := range current {
			n, ok := cand.(*Node)
			if !ok {
				continue
			}
			next = append(next, evalSegment(n, seg)...)
		}
		if len(next) == 0 {
			return nil, nil
		}
		current = next
	}
	return current, nil
}

func evalSegment(n *Node, seg string) []any {
	if seg == "#text" {
		return []any{n.Text}
	}

	key, attr, idx := parseSegment(seg)

	var matches []*Node
	switch key {
	case "*":
		matches = n.Children
	default:
		for _, c := range n.Children {
			if c.Name.Local == NCName(key) {
				matches = append(matches, c)
			}
		}
	}

	if attr != nil {
		var out []any
		for _, m := range matches {
			if v, ok := m.Attr(NCName(attr.key)); ok && string(v) == attr.val {
				out = append(out, m)
			}
		}
		return out
	}
	if idx >= 0 {
		if idx < len(matches) {
			return []any{matches[idx]}
		}
		return nil
	}
	out := make([]any, len(matches))
	for i, m := range matches {
		out[i] = m
	}
	return out
}

type attrFilter struct {
	key string
	val string
}

// parseSegment splits "name[...]" into its base name plus an optional
// attribute filter or numeric index.
func parseSegment(seg string) (key string, attr *attrFilter, idx int) {
	idx = -1
	key = seg
	i := strings.Index(seg, "[")
	if i <= 0 || !strings.HasSuffix(seg, "]") {
		return
	}
	key = seg[:i]
	inside := seg[i+1 : len(seg)-1]

	if strings.HasPrefix(inside, "@") {
		eq := strings.Index(inside, "=")
		if eq < 0 {
			return
		}
		attrKey := strings.TrimPrefix(inside[:eq], "@")
		attrVal := strings.Trim(inside[eq+1:], "'\"")
		return key, &attrFilter{key: attrKey, val: attrVal}, -1
	}
	if n, err := strconv.Atoi(inside); err == nil {
		return key, nil, n
	}
	return key, nil, -1
}

// findAllRecursively implements "//name" deep search: every descendant of
// root (root itself included) named local, in document order.
func findAllRecursively(root *Node, local string) []any {
	var out []any
	var walk func(n *Node)
	walk = func(n *Node) {
		if n.Name.Local == NCName(local) {
			out = append(out, n)
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(root)
	return out
}

// Query is QueryAll, returning only the first match.
func Query(root *Node, path string) (any, error) {
	res, err := QueryAll(root, path)
	if err != nil {
		return nil, err
	}
	if len(res) == 0 {
		return nil, errors.New("no node matched path")
	}
	return res[0], nil
}
