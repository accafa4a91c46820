package xml

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTreeFromString(t *testing.T, s string) *Node {
	t.Helper()
	lx := NewLexer(Config{})
	src := NewReaderSource(strings.NewReader(s), 0)
	rp := NewRawParser(lx, src)
	nr := NewNSResolver(rp, nil)
	root, err := BuildTree(nr)
	require.NoError(t, err)
	return root
}

func TestBuildTree_NestedElementsAndText(t *testing.T) {
	root := buildTreeFromString(t, `<a id="1"><b>hello</b><c/></a>`)

	assert.Equal(t, qn("", "a"), root.Name)
	val, ok := root.Attr("id")
	require.True(t, ok)
	assert.Equal(t, CData("1"), val)
	require.Len(t, root.Children, 2)

	b := root.Child("b")
	require.NotNil(t, b)
	assert.Equal(t, "hello", b.Text)

	c := root.Child("c")
	require.NotNil(t, c)
	assert.Empty(t, c.Children)
}

func TestBuildTree_TextSpansConcatenateAcrossCDataSections(t *testing.T) {
	// Character content and a CDATA section arrive as separate Text
	// events; BuildTree concatenates every ResolvedText it sees for one
	// element.
	root := buildTreeFromString(t, `<root>a<![CDATA[b]]>c</root>`)
	assert.Equal(t, "abc", root.Text)
}

func TestBuildTree_ChildrenNamedReturnsAllMatchingSiblings(t *testing.T) {
	root := buildTreeFromString(t, `<root><item n="1"/><other/><item n="2"/></root>`)
	items := root.ChildrenNamed("item")
	require.Len(t, items, 2)
	v1, _ := items[0].Attr("n")
	v2, _ := items[1].Attr("n")
	assert.Equal(t, CData("1"), v1)
	assert.Equal(t, CData("2"), v2)
}

func TestBuildTree_NamespacedNamesPreserved(t *testing.T) {
	root := buildTreeFromString(t, `<h:root xmlns:h="urn:h"><h:child/></h:root>`)
	assert.Equal(t, qn("urn:h", "root"), root.Name)
	require.Len(t, root.Children, 1)
	assert.Equal(t, qn("urn:h", "child"), root.Children[0].Name)
}

func TestNode_EqualIgnoresParentLinks(t *testing.T) {
	a := buildTreeFromString(t, `<root a="1"><child>x</child></root>`)
	b := buildTreeFromString(t, `<root a="1"><child>x</child></root>`)
	assert.True(t, a.Equal(b))
	assert.NotSame(t, a, b)
}

func TestNode_EqualDetectsDifferences(t *testing.T) {
	a := buildTreeFromString(t, `<root a="1"/>`)
	b := buildTreeFromString(t, `<root a="2"/>`)
	assert.False(t, a.Equal(b))

	c := buildTreeFromString(t, `<root><x/></root>`)
	d := buildTreeFromString(t, `<root><y/></root>`)
	assert.False(t, c.Equal(d))
}

func TestNode_ToJSONSortsAttributesAndFlattensQNames(t *testing.T) {
	root := buildTreeFromString(t, `<h:root xmlns:h="urn:h" z="1" a="2"/>`)
	out, err := root.ToJSON()
	require.NoError(t, err)
	assert.Contains(t, out, `"name": "{urn:h}root"`)
	// attribute keys sorted: "a" before "z"
	assert.True(t, strings.Index(out, `"a"`) < strings.Index(out, `"z"`))
}

func TestBuildTree_RootlessEventStreamIsError(t *testing.T) {
	_, err := BuildTree(NewSliceEventSource(nil))
	require.Error(t, err)
}
