package heterodyne

// Anti-click ramp steps, applied once per control tick. A full-scale
// amplitude transition (0 to 127) therefore spans 127 control ticks, and
// the largest one-tick frequency change is FreqRampStep*FreqResolution,
// about 15 Hz. Both are far below the threshold of an audible click.
const (
	AmplitudeRampStep = 1  // amplitude levels per control tick
	FreqRampStep      = 32 // phase-increment units per control tick
)

// RampTowards moves actual toward target by at most step and returns the
// new value. It never overshoots, converges in ceil(|actual-target|/step)
// calls, and is a no-op once actual equals target.
func RampTowards(actual, target, step int64) int64 {
	switch {
	case actual < target:
		if actual += step; actual > target {
			return target
		}
	case actual > target:
		if actual -= step; actual < target {
			return target
		}
	}
	return actual
}

// rampTick moves both actual parameters one step toward their targets.
// Control-tick context only; the stores are word-sized atomics, so the
// sample path always observes a valid old or new value.
func (ch *Channel) rampTick() {
	a := int64(ch.actualIncrement.Load())
	t := int64(ch.targetIncrement.Load())
	if a != t {
		ch.actualIncrement.Store(uint32(RampTowards(a, t, FreqRampStep)))
	}

	av := int64(ch.actualAmplitude.Load())
	tv := int64(ch.targetAmplitude.Load())
	if av != tv {
		ch.actualAmplitude.Store(int32(RampTowards(av, tv, AmplitudeRampStep)))
	}
}

// settled reports whether both actual parameters have reached their targets.
func (ch *Channel) settled() bool {
	return ch.actualIncrement.Load() == ch.targetIncrement.Load() &&
		ch.actualAmplitude.Load() == ch.targetAmplitude.Load()
}
