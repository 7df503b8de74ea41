package patch

import (
	"errors"
	"strings"
)

// StylesheetValues describe the injected scale rule, if present.
type StylesheetValues struct {
	RulePresent bool
	Scale       string
}

// Stylesheet manages the single generated rule in the stylesheet target.
// The rule scales the marked toast with its origin pinned to the top-left
// corner so growth does not re-center the element. It lives directly before
// the bundle's end-of-file marker comment and is removed entirely on reset.
type Stylesheet struct {
	EOFAnchor  string // marker comment prefix, e.g. "/*# sourceMappingURL="
	ClassToken string
	Marker     string
}

const eofAnchorName = "eof marker"

// Selector returns the compound selector of the generated rule.
func (s Stylesheet) Selector() string {
	return "." + s.ClassToken + "." + s.Marker
}

// Rule returns the generated rule text for one scale value.
func (s Stylesheet) Rule(scale string) string {
	return s.Selector() + "{transform:scale(" + scale + ");transform-origin:top left}"
}

// Extract reports whether the generated rule is present and the scale text
// it carries. A present-but-mangled rule is an anchor failure, not a bare
// "absent": rewriting around text this tool no longer recognizes risks
// corrupting the stylesheet.
func (s Stylesheet) Extract(target, text string) (StylesheetValues, error) {
	var vals StylesheetValues

	if _, err := s.markerIndex(target, text); err != nil {
		return vals, err
	}

	start, end, present, err := s.ruleBounds(target, text)
	if err != nil {
		return vals, err
	}
	if !present {
		return vals, nil
	}

	body := text[start:end]
	const open = "{transform:scale("
	i := strings.Index(body, open)
	if i < 0 {
		return vals, &AnchorError{Target: target, Anchor: "scale rule", Reason: "injected rule is malformed"}
	}
	rest := body[i+len(open):]
	j := strings.Index(rest, ")")
	if j < 0 {
		return vals, &AnchorError{Target: target, Anchor: "scale rule", Reason: "injected rule is malformed"}
	}
	scale := rest[:j]

	// The whole rule must be exactly what this tool generates, including
	// the pinned transform origin.
	if body != s.Rule(scale) {
		return vals, &AnchorError{Target: target, Anchor: "scale rule", Reason: "injected rule is malformed"}
	}

	vals.RulePresent = true
	vals.Scale = scale
	return vals, nil
}

// Rewrite removes any previously injected rule and, for a non-identity
// factor, inserts a fresh one directly before the end-of-file marker.
// Factor 1 therefore leaves no trace, and repeating it is byte-stable.
func (s Stylesheet) Rewrite(target, text string, req Required) (string, error) {
	if _, err := s.Extract(target, text); err != nil {
		return "", err
	}

	start, end, present, err := s.ruleBounds(target, text)
	if err != nil {
		return "", err
	}
	if present {
		text = text[:start] + text[end:]
	}

	if req.Scaled() {
		idx, err := s.markerIndex(target, text)
		if err != nil {
			return "", err
		}
		text = text[:idx] + s.Rule(req.RuleScale) + text[idx:]
	}
	return text, nil
}

// Verify re-extracts the freshly written text: the rule must be present
// with exactly the required scale text for a non-identity factor, and
// absent for factor 1.
func (s Stylesheet) Verify(target, text string, req Required) error {
	got, err := s.Extract(target, text)
	if err != nil {
		var ae *AnchorError
		if errors.As(err, &ae) {
			return &VerifyError{Target: target, Field: ae.Anchor, Want: "anchor intact after write", Got: ae.Reason}
		}
		return err
	}

	if !req.Scaled() {
		if got.RulePresent {
			return &VerifyError{Target: target, Field: "scale rule", Want: "absent", Got: s.Rule(got.Scale)}
		}
		return nil
	}

	if !got.RulePresent {
		return &VerifyError{Target: target, Field: "scale rule", Want: s.Rule(req.RuleScale), Got: "absent"}
	}
	if got.Scale != req.RuleScale {
		return &VerifyError{Target: target, Field: "scale", Want: req.RuleScale, Got: got.Scale}
	}
	return nil
}

func (s Stylesheet) markerIndex(target, text string) (int, error) {
	idx := strings.Index(text, s.EOFAnchor)
	if idx < 0 {
		return 0, &AnchorError{Target: target, Anchor: eofAnchorName, Reason: "prefix not found"}
	}
	if strings.Contains(text[idx+len(s.EOFAnchor):], s.EOFAnchor) {
		return 0, &AnchorError{Target: target, Anchor: eofAnchorName, Reason: "prefix matches more than once"}
	}
	return idx, nil
}

// ruleBounds locates a previously injected rule. present is false when the
// stylesheet carries none.
func (s Stylesheet) ruleBounds(target, text string) (start, end int, present bool, err error) {
	open := s.Selector() + "{"
	start = strings.Index(text, open)
	if start < 0 {
		return 0, 0, false, nil
	}
	if strings.Contains(text[start+len(open):], open) {
		return 0, 0, false, &AnchorError{Target: target, Anchor: "scale rule", Reason: "injected rule appears more than once"}
	}

	limit := start + spanWindow
	if limit > len(text) {
		limit = len(text)
	}
	rel := strings.Index(text[start:limit], "}")
	if rel < 0 {
		return 0, 0, false, &AnchorError{Target: target, Anchor: "scale rule", Reason: "injected rule is unterminated"}
	}
	return start, start + rel + 1, true, nil
}
