package heterodyne

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScaleLevelBounds(t *testing.T) {
	for amp := int32(0); amp <= FullScaleLevel; amp++ {
		for level := -128; level <= 127; level++ {
			n := scaleLevel(amp, int8(level))
			if n < -127 || n > 126 {
				t.Fatalf("scaleLevel(%d, %d) = %d escapes [-127, 126]", amp, level, n)
			}
		}
	}
	assert.EqualValues(t, 126, scaleLevel(FullScaleLevel, 127), "full-scale positive peak")
	assert.EqualValues(t, -127, scaleLevel(FullScaleLevel, -128), "full-scale negative peak")
	assert.EqualValues(t, 0, scaleLevel(0, 127), "zero amplitude silences")
}

// TestMixerIdentity: with equal amplitudes and phases the difference line
// sits exactly at mid-scale and the sum line reproduces the channel.
func TestMixerIdentity(t *testing.T) {
	for n := int32(-127); n <= 126; n++ {
		frame := mixFrame(n, n)
		assert.Equal(t, frame[LineCh0], frame[LineCh1])
		assert.Equal(t, frame[LineCh0], frame[LineSum], "sum of identical samples %d", n)
		assert.EqualValues(t, DutyMid, frame[LineDiff], "difference of identical samples %d", n)
	}
}

// TestMixerRounding pins the round-half-up behavior: add one before the
// right shift, so x.5 rounds toward +infinity instead of truncating.
func TestMixerRounding(t *testing.T) {
	var tests = []struct {
		n0, n1    int32
		sum, diff byte
	}{
		{3, 0, DutyMid + 2, DutyMid + 2},   // 1.5 rounds to 2
		{0, 3, DutyMid + 2, DutyMid - 1},   // -1.5 rounds to -1
		{-3, 0, DutyMid - 1, DutyMid - 1},  // -1.5 rounds to -1
		{4, 0, DutyMid + 2, DutyMid + 2},   // exact halves unaffected
		{126, 126, DutyMid + 126, DutyMid}, // positive extreme
		{-127, -127, DutyMid - 127, DutyMid},
		{126, -127, DutyMid, DutyMid + 127}, // widest spread: (253+1)>>1
	}
	for _, test := range tests {
		frame := mixFrame(test.n0, test.n1)
		assert.Equal(t, test.sum, frame[LineSum], "sum of (%d, %d)", test.n0, test.n1)
		assert.Equal(t, test.diff, frame[LineDiff], "diff of (%d, %d)", test.n0, test.n1)
	}
}

// TestMixerRecentering: every line of every representable frame carries
// the same mid-scale offset, and nothing escapes a byte.
func TestMixerRecentering(t *testing.T) {
	for n0 := int32(-127); n0 <= 126; n0 += 11 {
		for n1 := int32(-127); n1 <= 126; n1 += 11 {
			frame := mixFrame(n0, n1)
			assert.EqualValues(t, n0+DutyMid, frame[LineCh0])
			assert.EqualValues(t, n1+DutyMid, frame[LineCh1])
		}
	}
}
