package xml

import (
	"testing"
	"unicode"

	"github.com/stretchr/testify/assert"
	"golang.org/x/text/runes"
)

// TestIsNameStartRune_MatchesRangeTableViaXText cross-checks
// IsNameStartRune/IsNameRune against their own backing unicode.RangeTable
// through golang.org/x/text/runes' Set.Contains, rather than trusting
// the hand-rolled boolean logic to agree with the table it was built
// from by inspection alone.
func TestIsNameStartRune_MatchesRangeTableViaXText(t *testing.T) {
	startSet := runes.In(xmlNameStartRanges)
	extraSet := runes.In(xmlNameExtraRanges)

	sample := []rune{
		'a', 'Z', '_', ':', '0', '9', '-', '.',
		0x00C0, 0x00F8, 0x0370, 0x200C, 0x2070, 0x3001, 0xD7FF,
		0x10000, 0xEFFFF,
		' ', '!', '<', '&', 0x2041,
	}
	for _, r := range sample {
		want := startSet.Contains(r) || extraSet.Contains(r)
		assert.Equal(t, want, IsNameRune(r), "rune %U: IsNameRune disagreed with its own range tables", r)
		assert.Equal(t, startSet.Contains(r), IsNameStartRune(r), "rune %U: IsNameStartRune disagreed with its range table", r)
	}
}

// TestIsXMLChar_AgreesWithUnicodeGraphicAndControlClassification
// cross-checks IsXMLChar's excluded ranges (ASCII controls other than
// tab/CR/LF, surrogates, U+FFFE/U+FFFF) against golang.org/x/text/runes
// predicates built from the standard unicode tables, rather than the
// hand-written numeric boundaries alone.
func TestIsXMLChar_AgreesWithUnicodeGraphicAndControlClassification(t *testing.T) {
	notControl := runes.NotIn(unicode.Cc)

	allowedControls := map[rune]bool{0x9: true, 0xA: true, 0xD: true}
	for r := rune(0x0); r < 0x20; r++ {
		if allowedControls[r] {
			assert.True(t, IsXMLChar(r), "tab/CR/LF must be XML Chars")
			continue
		}
		assert.False(t, notControl.Contains(r), "sanity: %U should be in unicode.Cc", r)
		assert.False(t, IsXMLChar(r), "ASCII control %U must not be an XML Char", r)
	}

	graphicSample := []rune{'A', 'z', '0', ' ', '~', 0x00A0, 0x2028, 0xFFFD, 0x10000, 0x10FFFF}
	for _, r := range graphicSample {
		assert.True(t, IsXMLChar(r), "rune %U should be an XML Char", r)
	}

	excluded := []rune{0xD800, 0xDFFF, 0xFFFE, 0xFFFF}
	for _, r := range excluded {
		assert.False(t, IsXMLChar(r), "rune %U must be excluded from XML Char", r)
	}
}
