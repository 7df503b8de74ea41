package patch

import (
	"math"
	"strconv"
)

// Original is the immutable reference record for one known bundle revision:
// the toast's stock dimensions and the CSS-modules class the bundle gives
// its root element.
type Original struct {
	Width          int
	HeightCompact  int
	HeightExpanded int
	ClassToken     string
}

// Required holds the values one invocation must leave in both targets.
// Verification fails unless exactly these values are read back.
type Required struct {
	Factor         float64
	Width          int
	HeightCompact  int
	HeightExpanded int

	// ClassAttr is the full class attribute for the toast root: the bare
	// token at factor 1, token plus marker otherwise.
	ClassAttr string

	// RuleScale is the exact decimal text for the stylesheet rule's
	// scale(); verification compares it textually.
	RuleScale string
}

// RequiredFor derives the values for one scale factor. Factor 1 is the
// reset: bare token, no stylesheet rule.
func RequiredFor(orig Original, factor float64, marker string) Required {
	req := Required{
		Factor:         factor,
		Width:          scaleRound(orig.Width, factor),
		HeightCompact:  scaleRound(orig.HeightCompact, factor),
		HeightExpanded: scaleRound(orig.HeightExpanded, factor),
		ClassAttr:      orig.ClassToken,
		RuleScale:      FormatScale(factor),
	}
	if req.Scaled() {
		req.ClassAttr = orig.ClassToken + " " + marker
	}
	return req
}

// Scaled reports whether the factor is non-identity.
func (r Required) Scaled() bool {
	return r.Factor != 1
}

// scaleRound rounds half up: 283 * 1.8 = 509.4 -> 509, 70 * 1.5 = 105.
func scaleRound(n int, factor float64) int {
	return int(math.Floor(float64(n)*factor + 0.5))
}

// FormatScale renders a factor as minimal decimal text (2 -> "2",
// 1.5 -> "1.5"). The same text is written and verified, keeping the
// round-trip exact.
func FormatScale(factor float64) string {
	return strconv.FormatFloat(factor, 'f', -1, 64)
}
