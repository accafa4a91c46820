package xml

import (
	"unicode"
	"unicode/utf8"

	"github.com/pkg/errors"
)

// Name, NCName and CData are refined string types: a value of one of
// these types is guaranteed, by construction, to satisfy its grammar
// (XML 1.0 §2.3 Name, Namespaces in XML 1.0 §3 NCName, XML 1.0 Char*
// respectively). The guarantee is established once, in ValidateName /
// ValidateNCName / ValidateCData, and relied upon everywhere else in the
// engine: no other code re-checks it.
type Name string
type NCName string
type CData string

// Widening conversions are infallible: every NCName is a Name, every
// Name's content is valid CData.
func (n NCName) AsName() Name  { return Name(n) }
func (n Name) AsCData() CData  { return CData(n) }
func (n NCName) AsCData() CData { return CData(n) }

// xmlNameStartRanges / xmlNameRanges mirror the Unicode ranges from XML
// 1.0 §2.3's NameStartChar / NameChar productions (restricted to the
// ranges actually reachable from UTF-8, i.e. excluding surrogates).
var xmlNameStartRanges = &unicode.RangeTable{
	R16: []unicode.Range16{
		{0x003A, 0x003A, 1}, {0x0041, 0x005A, 1}, {0x005F, 0x005F, 1},
		{0x0061, 0x007A, 1}, {0x00C0, 0x00D6, 1}, {0x00D8, 0x00F6, 1},
		{0x00F8, 0x02FF, 1}, {0x0370, 0x037D, 1}, {0x037F, 0x1FFF, 1},
		{0x200C, 0x200D, 1}, {0x2070, 0x218F, 1}, {0x2C00, 0x2FEF, 1},
		{0x3001, 0xD7FF, 1}, {0xF900, 0xFDCF, 1}, {0xFDF0, 0xFFFD, 1},
	},
	R32: []unicode.Range32{
		{0x10000, 0xEFFFF, 1},
	},
}

var xmlNameExtraRanges = &unicode.RangeTable{
	R16: []unicode.Range16{
		{0x002D, 0x002D, 1}, {0x002E, 0x002E, 1}, {0x0030, 0x0039, 1},
		{0x00B7, 0x00B7, 1}, {0x0300, 0x036F, 1}, {0x203F, 0x2040, 1},
	},
}

// IsNameStartRune reports whether r may open an XML Name.
func IsNameStartRune(r rune) bool { return unicode.Is(xmlNameStartRanges, r) }

// IsNameRune reports whether r may continue an XML Name.
func IsNameRune(r rune) bool {
	return IsNameStartRune(r) || unicode.Is(xmlNameExtraRanges, r)
}

// IsXMLChar reports whether r is an XML 1.0 Char: any Unicode scalar
// except most ASCII controls, surrogates, and U+FFFE/U+FFFF.
func IsXMLChar(r rune) bool {
	switch {
	case r == 0x9 || r == 0xA || r == 0xD:
		return true
	case r >= 0x20 && r <= 0xD7FF:
		return true
	case r >= 0xE000 && r <= 0xFFFD:
		return r != 0xFFFE && r != 0xFFFF
	case r >= 0x10000 && r <= 0x10FFFF:
		return true
	default:
		return false
	}
}

// ValidateName decodes b as UTF-8 and checks it is a non-empty XML Name.
// On success it returns the Name; on failure it returns the specific
// well-formedness error (invalid UTF-8 byte, invalid character, or empty
// name part).
func ValidateName(b []byte) (Name, error) {
	if len(b) == 0 {
		return "", newWFError(ERRCTX_NAME, "empty name")
	}
	first := true
	for i := 0; i < len(b); {
		r, size := utf8.DecodeRune(b[i:])
		if r == utf8.RuneError && size <= 1 {
			return "", newInvalidUTF8Error(ERRCTX_NAME, b[i])
		}
		ok := IsNameRune(r)
		if first {
			ok = IsNameStartRune(r)
			first = false
		}
		if !ok {
			return "", newUnexpectedCharError(ERRCTX_NAME, r, nil)
		}
		i += size
	}
	return Name(b), nil
}

// ValidateNCName is ValidateName plus the additional constraint that the
// Name contains no colon.
func ValidateNCName(b []byte) (NCName, error) {
	for _, c := range b {
		if c == ':' {
			return "", newWFError(ERRCTX_NAME, "NCName must not contain ':'")
		}
	}
	n, err := ValidateName(b)
	if err != nil {
		return "", err
	}
	return NCName(n), nil
}

// ValidateCData decodes b as UTF-8 and checks every code point is a valid
// XML Char.
func ValidateCData(b []byte) (CData, error) {
	for i := 0; i < len(b); {
		r, size := utf8.DecodeRune(b[i:])
		if r == utf8.RuneError && size <= 1 {
			return "", newInvalidUTF8Error(ERRCTX_TEXT, b[i])
		}
		if !IsXMLChar(r) {
			return "", newInvalidCharError(ERRCTX_TEXT, uint32(r), false)
		}
		i += size
	}
	return CData(b), nil
}

// SplitQName splits a raw element/attribute Name at a single colon into
// an optional prefix and a mandatory local part, per Namespaces in XML
// 1.0 §3. Names with more than one colon, an empty half, or a non-
// NameStart first character in either half are rejected.
func SplitQName(n Name) (prefix NCName, local NCName, err error) {
	s := string(n)
	idx := -1
	for i, r := range s {
		if r == ':' {
			if idx != -1 {
				return "", "", newWFError(ERRCTX_NAME, "name has more than one ':'")
			}
			idx = i
		}
	}
	if idx == -1 {
		local, err = ValidateNCName([]byte(s))
		return "", local, err
	}
	prefixBytes := []byte(s[:idx])
	localBytes := []byte(s[idx+1:])
	if len(prefixBytes) == 0 || len(localBytes) == 0 {
		return "", "", newWFError(ERRCTX_NAME, "empty half of prefixed name")
	}
	prefix, err = ValidateNCName(prefixBytes)
	if err != nil {
		return "", "", errors.WithMessage(err, "in prefix")
	}
	local, err = ValidateNCName(localBytes)
	if err != nil {
		return "", "", errors.WithMessage(err, "in local name")
	}
	return prefix, local, nil
}
