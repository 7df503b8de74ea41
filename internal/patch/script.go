package patch

import (
	"errors"
	"strconv"
	"strings"
)

// ScriptValues are the literals the script bundle carries at its anchors.
type ScriptValues struct {
	Width          int
	HeightCompact  int
	HeightExpanded int
	ClassAttr      string
}

// Script locates and rewrites the three independent script-bundle anchors:
// the toast width, the height pair, and the class attribute carrying the
// style hook.
type Script struct {
	Width   Anchor
	Heights Anchor // two spans in minified ternary order: expanded, compact
	Class   Anchor
}

// Extract reads the current values at all three anchors. It validates that
// numeric spans are plain decimal integers and the class span is a sane
// attribute value, so a rewrite can refuse to touch an unrecognized bundle.
func (s Script) Extract(target, text string) (ScriptValues, error) {
	var vals ScriptValues

	widths, err := s.Width.Extract(target, text)
	if err != nil {
		return vals, err
	}
	vals.Width, err = spanInt(target, s.Width, widths[0])
	if err != nil {
		return vals, err
	}

	heights, err := s.Heights.Extract(target, text)
	if err != nil {
		return vals, err
	}
	vals.HeightExpanded, err = spanInt(target, s.Heights, heights[0])
	if err != nil {
		return vals, err
	}
	vals.HeightCompact, err = spanInt(target, s.Heights, heights[1])
	if err != nil {
		return vals, err
	}

	classes, err := s.Class.Extract(target, text)
	if err != nil {
		return vals, err
	}
	vals.ClassAttr = classes[0]
	if vals.ClassAttr == "" || strings.ContainsAny(vals.ClassAttr, "\"\\\n") {
		return vals, &AnchorError{
			Target: target,
			Anchor: s.Class.Name,
			Reason: "bounded span is not a class attribute",
		}
	}

	return vals, nil
}

// Rewrite returns the bundle text with all three anchors carrying the
// required values. Every anchor is validated before the first byte changes,
// so an unrecognized bundle is never partially rewritten.
func (s Script) Rewrite(target, text string, req Required) (string, error) {
	if _, err := s.Extract(target, text); err != nil {
		return "", err
	}

	out, err := s.Width.Replace(target, text, []string{strconv.Itoa(req.Width)})
	if err != nil {
		return "", err
	}
	out, err = s.Heights.Replace(target, out, []string{
		strconv.Itoa(req.HeightExpanded),
		strconv.Itoa(req.HeightCompact),
	})
	if err != nil {
		return "", err
	}
	out, err = s.Class.Replace(target, out, []string{req.ClassAttr})
	if err != nil {
		return "", err
	}
	return out, nil
}

// Verify re-extracts the freshly written text and compares field by field
// against the required values. Any divergence is a VerifyError: the file is
// already mutated at this point.
func (s Script) Verify(target, text string, req Required) error {
	got, err := s.Extract(target, text)
	if err != nil {
		var ae *AnchorError
		if errors.As(err, &ae) {
			return &VerifyError{Target: target, Field: ae.Anchor, Want: "anchor intact after write", Got: ae.Reason}
		}
		return err
	}

	if got.Width != req.Width {
		return &VerifyError{Target: target, Field: "width", Want: strconv.Itoa(req.Width), Got: strconv.Itoa(got.Width)}
	}
	if got.HeightExpanded != req.HeightExpanded {
		return &VerifyError{Target: target, Field: "height (expanded)", Want: strconv.Itoa(req.HeightExpanded), Got: strconv.Itoa(got.HeightExpanded)}
	}
	if got.HeightCompact != req.HeightCompact {
		return &VerifyError{Target: target, Field: "height (compact)", Want: strconv.Itoa(req.HeightCompact), Got: strconv.Itoa(got.HeightCompact)}
	}
	if got.ClassAttr != req.ClassAttr {
		return &VerifyError{Target: target, Field: "class attribute", Want: req.ClassAttr, Got: got.ClassAttr}
	}
	return nil
}

func spanInt(target string, a Anchor, span string) (int, error) {
	n, err := strconv.Atoi(span)
	if err != nil {
		return 0, &AnchorError{
			Target: target,
			Anchor: a.Name,
			Reason: "bounded span " + strconv.Quote(span) + " is not a decimal integer",
		}
	}
	return n, nil
}
