package xml

import (
	"fmt"
	"io"
	"sort"

	"github.com/pkg/errors"
)

// EventSource is anything that yields ResolvedEvents one at a time, in the
// same shape an NSResolver does: (nil, nil) signals clean document end,
// matching NSResolver.ResolveEvent's own contract. DumpEvents and
// BuildTree are written against this interface rather than *NSResolver
// directly so tests can feed a canned event slice without a lexer/parser
// in front of it.
type EventSource interface {
	ResolveEvent() (*ResolvedEvent, error)
}

// sliceEventSource adapts a fixed []ResolvedEvent to EventSource, for tests
// and for callers that already have a parsed document in hand.
type sliceEventSource struct {
	events []ResolvedEvent
	pos    int
}

// NewSliceEventSource returns an EventSource that replays events in order,
// then reports clean end like NSResolver does.
func NewSliceEventSource(events []ResolvedEvent) EventSource {
	return &sliceEventSource{events: events}
}

func (s *sliceEventSource) ResolveEvent() (*ResolvedEvent, error) {
	if s.pos >= len(s.events) {
		return nil, nil
	}
	ev := s.events[s.pos]
	s.pos++
	return &ev, nil
}

// DumpEvents renders every event from src as one line per event to w, in
// the flat shape `goxml parse` prints without --debug: kind, qualified
// name (if any), attributes in sorted order, and the event's metrics
// length.
func DumpEvents(w io.Writer, src EventSource) error {
	for {
		ev, err := src.ResolveEvent()
		if err != nil {
			return errors.Wrap(err, "dumping events")
		}
		if ev == nil {
			return nil
		}
		if err := dumpOne(w, ev); err != nil {
			return errors.Wrap(err, "writing dump line")
		}
	}
}

func dumpOne(w io.Writer, ev *ResolvedEvent) error {
	switch ev.Kind {
	case ResolvedXMLDeclaration:
		_, err := fmt.Fprintf(w, "XMLDeclaration version=%q len=%d\n", ev.Version, ev.Metrics.Len)
		return err
	case ResolvedStartElement:
		_, err := fmt.Fprintf(w, "StartElement %s len=%d%s\n", formatQName(ev.Name), ev.Metrics.Len, formatAttrs(ev.Attrs))
		return err
	case ResolvedEndElement:
		_, err := fmt.Fprintf(w, "EndElement %s len=%d\n", formatQName(ev.Name), ev.Metrics.Len)
		return err
	case ResolvedText:
		_, err := fmt.Fprintf(w, "Text %q len=%d\n", string(ev.Text), ev.Metrics.Len)
		return err
	default:
		_, err := fmt.Fprintf(w, "Unknown len=%d\n", ev.Metrics.Len)
		return err
	}
}

func formatQName(n QName) string {
	if n.URI == "" {
		return string(n.Local)
	}
	return fmt.Sprintf("{%s}%s", n.URI, n.Local)
}

func formatAttrs(attrs map[QName]CData) string {
	if len(attrs) == 0 {
		return ""
	}
	keys := make([]QName, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].URI != keys[j].URI {
			return keys[i].URI < keys[j].URI
		}
		return keys[i].Local < keys[j].Local
	})
	out := ""
	for _, k := range keys {
		out += fmt.Sprintf(" %s=%q", formatQName(k), string(attrs[k]))
	}
	return out
}
