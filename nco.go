package heterodyne

import (
	"math"
	"sync/atomic"
)

// The synthesis timebase. A hardware timer running at ClockRate raises one
// sample interrupt every TicksPerSample ticks, so the sample rate is
// ClockRate/TicksPerSample = 31250 samples per second and the Nyquist
// ceiling is half that. One waveform cycle spans Cycle fixed-point phase
// units, which makes the smallest representable frequency step
// ClockRate/(Cycle*TicksPerSample) ≈ 0.4768 Hz.
const (
	CycleBits      = 16
	Cycle          = 1 << CycleBits // phase units per waveform cycle
	PhaseMask      = Cycle - 1
	ClockRate      = 16000000 // timer ticks per second
	TicksPerSample = 512      // timer ticks between sample interrupts
	SampleRate     = ClockRate / TicksPerSample
	NyquistHz      = SampleRate / 2
)

// FreqResolution is the frequency change produced by a phase-increment
// change of one unit, in Hz.
const FreqResolution = float64(ClockRate) / float64(Cycle*TicksPerSample)

// Output amplitude domain. Synthesized samples are signed 8-bit values
// around zero; the duty register wants them recentered at DutyMid.
const (
	FullScaleLevel = 127 // amplitude level corresponding to MaxVoltage
	DutyMid        = 128 // mid-scale duty offset added before output
	MaxVoltage     = 3.3 // volts at full-scale amplitude
)

// PhaseIncrForFreq converts a requested frequency in Hz to the fixed-point
// phase increment added to the accumulator each sample tick. Negative
// frequencies clamp to zero. Frequencies are not otherwise validated:
// a request above NyquistHz goes through the same formula and aliases.
func PhaseIncrForFreq(freqHz float64) uint32 {
	if freqHz <= 0 || math.IsNaN(freqHz) {
		return 0
	}
	dw := math.Round(freqHz * Cycle * TicksPerSample / ClockRate)
	return uint32(math.Mod(dw, Cycle))
}

// FreqForPhaseIncr is the inverse of PhaseIncrForFreq. The round trip
// recovers the requested frequency to within FreqResolution/2.
func FreqForPhaseIncr(dw uint32) float64 {
	return float64(dw) * FreqResolution
}

// AmplitudeLevelForVolts converts a requested amplitude in volts to an
// integer amplitude level in [0, FullScaleLevel]. Out-of-range requests
// saturate rather than error.
func AmplitudeLevelForVolts(v float64) int32 {
	if v <= 0 || math.IsNaN(v) {
		return 0
	}
	level := int32(math.Round(v / MaxVoltage * FullScaleLevel))
	if level > FullScaleLevel {
		return FullScaleLevel
	}
	return level
}

// Channel is the per-oscillator state. Target fields are written at
// control-tick rate (command adoption), actual fields at control-tick rate
// (ramping) and read at sample-tick rate. All cross-context fields are
// word-sized atomics: a read concurrent with a write yields an old or new
// valid value, never a torn one, so the sample path takes no lock. The
// phase accumulator is touched only by the synthesis goroutine.
type Channel struct {
	targetIncrement atomic.Uint32
	actualIncrement atomic.Uint32
	targetAmplitude atomic.Int32
	actualAmplitude atomic.Int32
	phase           uint32
}

// SetTargets adopts a new target frequency (Hz) and amplitude (volts).
// Actual values move toward these at ramp rate; nothing jumps.
func (ch *Channel) SetTargets(freqHz, volts float64) {
	ch.targetIncrement.Store(PhaseIncrForFreq(freqHz))
	ch.targetAmplitude.Store(AmplitudeLevelForVolts(volts))
}

// TargetFreq reports the frequency corresponding to the target increment.
func (ch *Channel) TargetFreq() float64 {
	return FreqForPhaseIncr(ch.targetIncrement.Load())
}

// ActualFreq reports the frequency currently being synthesized.
func (ch *Channel) ActualFreq() float64 {
	return FreqForPhaseIncr(ch.actualIncrement.Load())
}

// advance steps the phase accumulator by the actual increment, wrapping
// modulo one cycle, and returns the new phase. Sample-tick context only.
func (ch *Channel) advance() uint32 {
	ch.phase = (ch.phase + ch.actualIncrement.Load()) & PhaseMask
	return ch.phase
}
