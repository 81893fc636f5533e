package heterodyne

import (
	"fmt"
	"math"
	"sort"
)

// tableResolution is the number of amplitude quantization levels in the
// generated wave tables.
const tableResolution = 256

// WaveTable maps a fixed-point phase in [0, Cycle) to a signed 8-bit
// amplitude level. Breakpoints are placed at the inverse trig of uniformly
// spaced amplitude levels, so the amplitude quantization error is bounded
// (one level) everywhere, at the cost of non-uniform phase spacing.
// Segment i covers phases [starts[i], starts[i+1]) and yields levels[i];
// the last segment extends to the end of the cycle. The starts are sorted
// and strictly increasing, so Lookup is a binary search.
type WaveTable struct {
	starts []uint32
	levels []int8
}

type waveEntry struct {
	w float64 // segment start phase, as a fraction of one cycle
	n int     // amplitude level over the segment
}

// NewCosineTable builds the quantized cosine table. The first half-cycle
// places a breakpoint at acos of each of the 256 uniformly spaced cosine
// values from +1 down to -1; the second half-cycle is the mirror image
// under w -> 1-w (cosine is even). Levels run 127 down to -128 and back.
func NewCosineTable() *WaveTable {
	const peak = tableResolution - 1
	const half = tableResolution / 2
	step := 2.0 / float64(peak)

	entries := make([]waveEntry, 0, 2*peak)
	cosine := 1.0
	n := peak - half
	for x := 0; x < tableResolution; x++ {
		// Accumulated subtraction can drift a hair past ±1.
		c := math.Max(-1, math.Min(1, cosine))
		theta := math.Acos(c) / (2 * math.Pi)
		entries = append(entries, waveEntry{theta, n})
		n--
		cosine -= step
	}
	for x := tableResolution; x < 2*peak; x++ {
		m := entries[2*peak-x]
		entries = append(entries, waveEntry{1 - m.w, m.n})
	}
	return newWaveTable(entries)
}

// NewSineTable builds the quantized sine table by quarter-wave symmetry:
// the first quarter places breakpoints at asin of uniformly spaced
// amplitudes, the second quarter mirrors under w -> 1/2 - w, and the
// second half-cycle repeats the first with the level negated. It is the
// canonical table resampled by HarmonicTable.
func NewSineTable() *WaveTable {
	const peak = tableResolution - 1
	const half = tableResolution / 2
	step := 2.0 / float64(peak)

	entries := make([]waveEntry, 2*peak)
	n := half
	sine := float64(n)*step - 1
	for x := 0; x < half; x++ {
		s := math.Max(-1, math.Min(1, sine))
		theta := math.Asin(s) / (2 * math.Pi)
		entries[x] = waveEntry{theta, n}
		n++
		sine += step
	}
	for x := half; x < peak; x++ {
		m := entries[peak-x-1]
		entries[x] = waveEntry{0.5 - m.w, m.n}
	}
	for x := peak; x < 2*peak; x++ {
		m := entries[x-peak]
		entries[x] = waveEntry{0.5 + m.w, peak - m.n}
	}
	// Levels were generated in the unsigned 0..255 domain of the quarter-wave
	// construction; recenter to the signed output domain.
	for i := range entries {
		entries[i].n -= half
	}
	return newWaveTable(entries)
}

func newWaveTable(entries []waveEntry) *WaveTable {
	t := &WaveTable{
		starts: make([]uint32, len(entries)),
		levels: make([]int8, len(entries)),
	}
	for i, e := range entries {
		t.starts[i] = uint32(e.w * Cycle)
		t.levels[i] = int8(e.n)
	}
	t.starts[0] = 0
	for i := 1; i < len(t.starts); i++ {
		if t.starts[i] <= t.starts[i-1] {
			panic(fmt.Sprintf("wave table breakpoints not strictly increasing at segment %d", i))
		}
	}
	if t.starts[len(t.starts)-1] >= Cycle {
		panic("wave table breakpoints exceed one cycle")
	}
	return t
}

// Lookup returns the amplitude level for the given phase. The phase is
// masked into [0, Cycle); the search itself allocates nothing and runs in
// O(log n), so it is safe on the sample path.
func (t *WaveTable) Lookup(phase uint32) int8 {
	p := phase & PhaseMask
	i := sort.Search(len(t.starts), func(i int) bool { return t.starts[i] > p })
	return t.levels[i-1]
}

// NumSegments returns the number of constant-level segments in the table.
func (t *WaveTable) NumSegments() int {
	return len(t.starts)
}

// Levels returns a dense sampling of the table at every phase unit,
// suitable for calibration dumps and spectral checks.
func (t *WaveTable) Levels() []int8 {
	out := make([]int8, Cycle)
	seg := 0
	for p := uint32(0); p < Cycle; p++ {
		for seg+1 < len(t.starts) && t.starts[seg+1] <= p {
			seg++
		}
		out[p] = t.levels[seg]
	}
	return out
}
