package xml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAll_SimpleElementWithText(t *testing.T) {
	events, err := parseAll(`<root>hello</root>`)
	require.NoError(t, err)
	require.Len(t, events, 3)

	assert.Equal(t, ResolvedStartElement, events[0].Kind)
	assert.Equal(t, qn("", "root"), events[0].Name)

	assert.Equal(t, ResolvedText, events[1].Kind)
	assert.Equal(t, CData("hello"), events[1].Text)

	assert.Equal(t, ResolvedEndElement, events[2].Kind)
}

func TestParseAll_XMLDeclaration(t *testing.T) {
	events, err := parseAll(`<?xml version='1.0' encoding='utf-8'?><root/>`)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, ResolvedXMLDeclaration, events[0].Kind)
	assert.Equal(t, "1.0", events[0].Version)
	assert.Equal(t, ResolvedStartElement, events[1].Kind)
	assert.Equal(t, ResolvedEndElement, events[2].Kind)
}

func TestParseAll_SelfClosingTagProducesHeadAndFoot(t *testing.T) {
	events, err := parseAll(`<a><b/></a>`)
	require.NoError(t, err)
	require.Len(t, events, 4)
	assert.Equal(t, ResolvedStartElement, events[0].Kind)
	assert.Equal(t, qn("", "a"), events[0].Name)
	assert.Equal(t, ResolvedStartElement, events[1].Kind)
	assert.Equal(t, qn("", "b"), events[1].Name)
	assert.Equal(t, ResolvedEndElement, events[2].Kind)
	assert.Equal(t, ResolvedEndElement, events[3].Kind)
}

func TestParseAll_DefaultNamespaceAppliesToElementNotAttribute(t *testing.T) {
	events, err := parseAll(`<root xmlns="urn:example" id="x"/>`)
	require.NoError(t, err)
	require.Len(t, events, 2)
	start := events[0]
	assert.Equal(t, qn("urn:example", "root"), start.Name)
	// unprefixed attribute never inherits the default namespace
	val, ok := start.Attrs[qn("", "id")]
	require.True(t, ok, "attribute must resolve with no namespace")
	assert.Equal(t, CData("x"), val)
}

func TestParseAll_PrefixedNamespace(t *testing.T) {
	events, err := parseAll(`<h:table xmlns:h="http://www.w3.org/html"><h:tr/></h:table>`)
	require.NoError(t, err)
	require.Len(t, events, 4)
	assert.Equal(t, qn("http://www.w3.org/html", "table"), events[0].Name)
	assert.Equal(t, qn("http://www.w3.org/html", "tr"), events[1].Name)
}

func TestParseAll_UndeclaredPrefixIsFatal(t *testing.T) {
	_, err := parseAll(`<h:table/>`)
	require.Error(t, err)
}

func TestParseAll_DuplicateAttributeAfterResolutionIsFatal(t *testing.T) {
	// Two different raw prefixes that resolve to the same (URI, local).
	_, err := parseAll(`<root xmlns:a="urn:x" xmlns:b="urn:x" a:id="1" b:id="2"/>`)
	require.Error(t, err)
}

func TestParseAll_DuplicateRawAttributeNameIsFatal(t *testing.T) {
	_, err := parseAll(`<root id="1" id="2"/>`)
	require.Error(t, err)
}

func TestParseAll_CDataSectionIsTextVerbatim(t *testing.T) {
	events, err := parseAll(`<root><![CDATA[<not-a-tag>&amp;]]></root>`)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, CData("<not-a-tag>&amp;"), events[1].Text)
}

func TestParseAll_EntityReferencesExpand(t *testing.T) {
	events, err := parseAll(`<root>a &amp; b &lt; c</root>`)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, CData("a & b < c"), events[1].Text)
}

func TestParseAll_CharacterReference(t *testing.T) {
	events, err := parseAll(`<root>&#65;&#x42;</root>`)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, CData("AB"), events[1].Text)
}

func TestParseAll_CRLFNormalizedToLF(t *testing.T) {
	events, err := parseAll("<root>a\r\nb\rc</root>")
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, CData("a\nb\nc"), events[1].Text)
}

func TestParseAll_WellFormednessErrors(t *testing.T) {
	cases := []string{
		`<root>`,                    // unterminated
		`<root></other>`,            // mismatched close tag
		`not xml at all`,            // no root
		`<a></a><b></b>`,            // multiple roots
		`<root>text after root</root>trailing`,
		`<?xml version='1.1'?><root/>`, // unsupported version
		`<?xml version='1.0' encoding='latin1'?><root/>`,
	}
	for _, c := range cases {
		_, err := parseAll(c)
		assert.Error(t, err, "input %q should be a well-formedness error", c)
	}
}
