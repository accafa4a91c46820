package xml

import "strings"

// parseAll drives the lexer/raw-parser/namespace-resolver pipeline over s
// in a single shot (via ReaderSource) and returns every ResolvedEvent up
// to clean document end. It is the shared fixture every pipeline-level
// test in this package builds on.
func parseAll(s string) ([]ResolvedEvent, error) {
	lx := NewLexer(Config{})
	src := NewReaderSource(strings.NewReader(s), 0)
	rp := NewRawParser(lx, src)
	nr := NewNSResolver(rp, nil)

	var out []ResolvedEvent
	for {
		ev, err := nr.ResolveEvent()
		if err != nil {
			return out, err
		}
		if ev == nil {
			return out, nil
		}
		out = append(out, *ev)
	}
}

func qn(uri, local string) QName { return QName{URI: uri, Local: NCName(local)} }
