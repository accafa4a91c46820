package xml

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncoder_XMLDeclarationMustBeFirst(t *testing.T) {
	var buf strings.Builder
	enc := NewEncoder(&buf)
	require.NoError(t, enc.WriteStartElement(qn("", "root"), nil))
	err := enc.WriteXMLDeclaration()
	require.Error(t, err)
}

func TestEncoder_SimpleElementWithText(t *testing.T) {
	var buf strings.Builder
	enc := NewEncoder(&buf)
	require.NoError(t, enc.WriteXMLDeclaration())
	require.NoError(t, enc.WriteStartElement(qn("", "root"), map[QName]CData{qn("", "id"): "7"}))
	require.NoError(t, enc.WriteText("hi"))
	require.NoError(t, enc.WriteEndElement())

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "<?xml version='1.0' encoding='utf-8'?>\n"))
	assert.Contains(t, out, `<root id="7">hi</root>`)
}

func TestEncoder_DefaultNamespaceDeclaredOnce(t *testing.T) {
	var buf strings.Builder
	enc := NewEncoder(&buf)
	require.NoError(t, enc.WriteStartElement(qn("urn:example", "root"), nil))
	require.NoError(t, enc.WriteStartElement(qn("urn:example", "child"), nil))
	require.NoError(t, enc.WriteEndElement())
	require.NoError(t, enc.WriteEndElement())

	out := buf.String()
	assert.Equal(t, 1, strings.Count(out, "xmlns="), "default namespace should be declared once, inherited by the child")
	assert.Contains(t, out, `<root xmlns="urn:example">`)
	assert.Contains(t, out, `<child>`)
}

func TestEncoder_PinnedPrefixUsedInsteadOfAuto(t *testing.T) {
	var buf strings.Builder
	enc := NewEncoder(&buf)
	require.NoError(t, enc.DeclareNamespacePrefix("ds", "http://www.w3.org/2000/09/xmldsig#"))
	require.NoError(t, enc.WriteStartElement(QName{URI: "http://www.w3.org/2000/09/xmldsig#", Local: "Signature"}, nil))
	require.NoError(t, enc.WriteEndElement())

	out := buf.String()
	assert.Contains(t, out, `<ds:Signature xmlns:ds="http://www.w3.org/2000/09/xmldsig#">`)
	assert.Contains(t, out, `</ds:Signature>`)
}

func TestEncoder_PinnedPrefixReservedNameRejected(t *testing.T) {
	var buf strings.Builder
	enc := NewEncoder(&buf)
	err := enc.DeclareNamespacePrefix("xml", "urn:not-the-xml-namespace")
	require.Error(t, err)
}

func TestEncoder_ClashingNamespacesGetDistinctPrefixes(t *testing.T) {
	var buf strings.Builder
	enc := NewEncoder(&buf)
	require.NoError(t, enc.WriteStartElement(qn("urn:a", "root"), nil))
	require.NoError(t, enc.WriteStartElement(qn("urn:b", "child"), nil))
	require.NoError(t, enc.WriteEndElement())
	require.NoError(t, enc.WriteEndElement())

	out := buf.String()
	assert.Contains(t, out, `xmlns="urn:a"`)
	assert.Contains(t, out, `xmlns:tns0="urn:b"`)
	assert.Contains(t, out, `<tns0:child`)
}

func TestEncoder_EscapesTextAndAttributes(t *testing.T) {
	var buf strings.Builder
	enc := NewEncoder(&buf)
	require.NoError(t, enc.WriteStartElement(qn("", "root"), map[QName]CData{qn("", "a"): `v"al'ue`}))
	require.NoError(t, enc.WriteText("a < b & c > d"))
	require.NoError(t, enc.WriteEndElement())

	out := buf.String()
	assert.Contains(t, out, `a="v&quot;al&apos;ue"`)
	assert.Contains(t, out, "a &lt; b &amp; c &gt; d")
}

func TestEncoder_WriteResolvedEventRoundTripsThroughPipeline(t *testing.T) {
	events, err := parseAll(`<h:root xmlns:h="urn:h" a="1"><h:child>text</h:child></h:root>`)
	require.NoError(t, err)

	var buf strings.Builder
	enc := NewEncoder(&buf)
	for i := range events {
		require.NoError(t, enc.WriteResolvedEvent(&events[i]))
	}

	reparsed, err := parseAll(buf.String())
	require.NoError(t, err)
	require.Equal(t, len(events), len(reparsed))
	for i := range events {
		assert.Equal(t, events[i].Kind, reparsed[i].Kind)
		assert.Equal(t, events[i].Name, reparsed[i].Name)
		assert.Equal(t, events[i].Text, reparsed[i].Text)
	}
}

func TestEncoder_EndElementWithoutStartIsRejected(t *testing.T) {
	var buf strings.Builder
	enc := NewEncoder(&buf)
	err := enc.WriteEndElement()
	require.Error(t, err)
}

func TestEncoder_TextOutsideElementIsRejected(t *testing.T) {
	var buf strings.Builder
	enc := NewEncoder(&buf)
	err := enc.WriteText("stray")
	require.Error(t, err)
}
