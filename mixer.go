package heterodyne

// DutyFrame holds the four unsigned duty-cycle bytes produced each sample
// tick: channel 0, channel 1, their sum and their difference, each
// recentered at DutyMid. This is the unit handed to the Output Sink.
type DutyFrame [4]byte

// Names for the four lines within a DutyFrame.
const (
	LineCh0 = iota
	LineCh1
	LineSum
	LineDiff
)

// scaleLevel applies an amplitude level in [0, FullScaleLevel] to a table
// level. The product is renormalized by the full-scale shift, leaving a
// signed sample in [-127, 126].
func scaleLevel(amplitude int32, level int8) int32 {
	return (amplitude * int32(level)) >> 7
}

// mixFrame combines two scaled samples into one output frame. Sum and
// difference are halved with round-half-up (add one before the shift) to
// avoid a systematic downward bias, and all four values get the same
// mid-scale offset. Integer-only, allocation-free, no branches beyond the
// saturation guards.
func mixFrame(n0, n1 int32) DutyFrame {
	sum := (n0 + n1 + 1) >> 1
	diff := (n0 - n1 + 1) >> 1
	return DutyFrame{dutyByte(n0), dutyByte(n1), dutyByte(sum), dutyByte(diff)}
}

// dutyByte recenters a signed sample into the unsigned duty register
// domain. The arithmetic above cannot escape [0, 255] after the offset,
// but the clamp keeps the conversion total.
func dutyByte(v int32) byte {
	v += DutyMid
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return byte(v)
}
