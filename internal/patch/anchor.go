package patch

import (
	"fmt"
	"strings"
)

// spanWindow caps how far past an anchor prefix the engine scans for each
// delimiter. Anchors bound short literals; a longer scan means the bundle
// does not match the pinned revision and the patch must fail closed.
const spanWindow = 256

// Anchor is a short structural fragment that locates and bounds the literal
// spans to rewrite inside the otherwise unparsed bundle text. The prefix
// must occur exactly once; each delimiter terminates one captured span.
type Anchor struct {
	Name   string
	Prefix string
	Delims []string
}

// AnchorError reports an anchor that could not be used. The target file has
// not been written when this error is returned.
type AnchorError struct {
	Target string
	Anchor string
	Reason string
}

func (e *AnchorError) Error() string {
	return fmt.Sprintf("anchor %q unusable in %s: %s", e.Anchor, e.Target, e.Reason)
}

// locate returns the [start,end) byte offsets of each captured span.
func (a Anchor) locate(target, text string) ([][2]int, error) {
	idx := strings.Index(text, a.Prefix)
	if idx < 0 {
		return nil, &AnchorError{Target: target, Anchor: a.Name, Reason: "prefix not found"}
	}
	if strings.Contains(text[idx+len(a.Prefix):], a.Prefix) {
		return nil, &AnchorError{Target: target, Anchor: a.Name, Reason: "prefix matches more than once"}
	}

	spans := make([][2]int, 0, len(a.Delims))
	pos := idx + len(a.Prefix)
	for _, delim := range a.Delims {
		limit := pos + spanWindow
		if limit > len(text) {
			limit = len(text)
		}
		end := strings.Index(text[pos:limit], delim)
		if end < 0 {
			return nil, &AnchorError{
				Target: target,
				Anchor: a.Name,
				Reason: fmt.Sprintf("delimiter %q not found within %d bytes of prefix", delim, spanWindow),
			}
		}
		spans = append(spans, [2]int{pos, pos + end})
		pos += end + len(delim)
	}
	return spans, nil
}

// Extract returns the literal spans the anchor bounds, in delimiter order.
func (a Anchor) Extract(target, text string) ([]string, error) {
	spans, err := a.locate(target, text)
	if err != nil {
		return nil, err
	}
	values := make([]string, len(spans))
	for i, s := range spans {
		values[i] = text[s[0]:s[1]]
	}
	return values, nil
}

// Replace substitutes the anchor's captured spans with values, leaving
// every byte outside the spans untouched.
func (a Anchor) Replace(target, text string, values []string) (string, error) {
	spans, err := a.locate(target, text)
	if err != nil {
		return "", err
	}
	if len(values) != len(spans) {
		return "", fmt.Errorf("anchor %q: %d replacement values for %d spans", a.Name, len(values), len(spans))
	}

	var b strings.Builder
	b.Grow(len(text) + 32)
	prev := 0
	for i, s := range spans {
		b.WriteString(text[prev:s[0]])
		b.WriteString(values[i])
		prev = s[1]
	}
	b.WriteString(text[prev:])
	return b.String(), nil
}
