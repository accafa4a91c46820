package xml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const queryFixture = `<catalog>
	<book id="1"><title>Go in Action</title><price>40</price></book>
	<book id="2"><title>The Go Programming Language</title><price>35</price></book>
	<magazine id="3"><title>Go Weekly</title></magazine>
</catalog>`

func TestQueryAll_DirectChildNavigation(t *testing.T) {
	root := buildTreeFromString(t, queryFixture)
	res, err := QueryAll(root, "book")
	require.NoError(t, err)
	require.Len(t, res, 2)
}

func TestQueryAll_MultiSegmentPath(t *testing.T) {
	root := buildTreeFromString(t, queryFixture)
	res, err := QueryAll(root, "book/title/#text")
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, "Go in Action", res[0])
	assert.Equal(t, "The Go Programming Language", res[1])
}

func TestQueryAll_DeepSearchAnyDepth(t *testing.T) {
	root := buildTreeFromString(t, queryFixture)
	res, err := QueryAll(root, "//title")
	require.NoError(t, err)
	require.Len(t, res, 3)
}

func TestQueryAll_WildcardMatchesAnyChildName(t *testing.T) {
	root := buildTreeFromString(t, queryFixture)
	res, err := QueryAll(root, "*")
	require.NoError(t, err)
	require.Len(t, res, 3)
}

func TestQueryAll_IndexFilterSelectsOneOfSiblings(t *testing.T) {
	root := buildTreeFromString(t, queryFixture)
	res, err := QueryAll(root, "book[1]")
	require.NoError(t, err)
	require.Len(t, res, 1)
	n, ok := res[0].(*Node)
	require.True(t, ok)
	v, _ := n.Attr("id")
	assert.Equal(t, CData("2"), v)
}

func TestQueryAll_AttributeFilter(t *testing.T) {
	root := buildTreeFromString(t, queryFixture)
	res, err := QueryAll(root, `book[@id='2']`)
	require.NoError(t, err)
	require.Len(t, res, 1)
	n := res[0].(*Node)
	title := n.Child("title")
	require.NotNil(t, title)
	assert.Equal(t, "The Go Programming Language", title.Text)
}

func TestQueryAll_NoMatchReturnsEmptyNotError(t *testing.T) {
	root := buildTreeFromString(t, queryFixture)
	res, err := QueryAll(root, "nonexistent")
	require.NoError(t, err)
	assert.Empty(t, res)
}

func TestQuery_ReturnsFirstMatchOrErrorWhenNone(t *testing.T) {
	root := buildTreeFromString(t, queryFixture)

	first, err := Query(root, "book/title/#text")
	require.NoError(t, err)
	assert.Equal(t, "Go in Action", first)

	_, err = Query(root, "nonexistent")
	require.Error(t, err)
}

func TestQueryAll_PathMatchesLocalNameOnlyAcrossNamespaces(t *testing.T) {
	root := buildTreeFromString(t, `<h:root xmlns:h="urn:h"><h:item/></h:root>`)
	res, err := QueryAll(root, "item")
	require.NoError(t, err)
	require.Len(t, res, 1)
}
