package patch

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestScaleRoundIsHalfUp(t *testing.T) {
	tests := []struct {
		n      int
		factor float64
		want   int
	}{
		{70, 1.5, 105},
		{283, 1.8, 509}, // 509.4 rounds down
		{90, 1.5, 135},
		{283, 2, 566},
		{70, 2, 140},
		{90, 2, 180},
		{283, 1, 283},
		{70, 1.25, 88}, // 87.5 rounds up
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, scaleRound(tt.n, tt.factor),
			"%d * %v", tt.n, tt.factor)
	}
}

func TestFormatScale(t *testing.T) {
	assert.Equal(t, "2", FormatScale(2))
	assert.Equal(t, "1.5", FormatScale(1.5))
	assert.Equal(t, "1.25", FormatScale(1.25))
	assert.Equal(t, "1", FormatScale(1))
}

func TestRequiredFor(t *testing.T) {
	orig := testOriginal()

	t.Run("identity factor is a reset", func(t *testing.T) {
		req := RequiredFor(orig, 1, testMarker)

		want := Required{
			Factor:         1,
			Width:          283,
			HeightCompact:  70,
			HeightExpanded: 90,
			ClassAttr:      testToken,
			RuleScale:      "1",
		}
		if diff := cmp.Diff(want, req); diff != "" {
			t.Errorf("RequiredFor(1) mismatch (-want +got):\n%s", diff)
		}
		assert.False(t, req.Scaled())
	})

	t.Run("non-identity factor appends the marker", func(t *testing.T) {
		req := RequiredFor(orig, 2, testMarker)

		want := Required{
			Factor:         2,
			Width:          566,
			HeightCompact:  140,
			HeightExpanded: 180,
			ClassAttr:      testToken + " " + testMarker,
			RuleScale:      "2",
		}
		if diff := cmp.Diff(want, req); diff != "" {
			t.Errorf("RequiredFor(2) mismatch (-want +got):\n%s", diff)
		}
		assert.True(t, req.Scaled())
	})
}
