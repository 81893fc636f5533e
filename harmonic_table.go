package heterodyne

import (
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

// HarmonicTableConfig describes a precomputed multi-harmonic waveform
// table. This is the alternate synthesis strategy: the frequency is set by
// choosing an integer period length (and NumWaves repeats within it)
// rather than by a phase increment. Tables are regenerated wholesale on a
// parameter change, not ramped.
type HarmonicTableConfig struct {
	PeriodSamples int       // table length; one full hardware PWM period
	Harmonics     []float64 // amplitude of harmonic h+1 as a fraction of full scale
	PhaseOffset   float64   // offset of the base wave, in cycles
	NumWaves      int       // repeated base cycles within one period
}

// HarmonicTable is one dense period of duty-cycle bytes.
type HarmonicTable struct {
	cfg   HarmonicTableConfig
	Bytes []byte
}

func (cfg *HarmonicTableConfig) validate() error {
	if cfg.PeriodSamples <= 0 {
		return fmt.Errorf("period is %d samples, want > 0", cfg.PeriodSamples)
	}
	if cfg.NumWaves < 1 {
		return fmt.Errorf("numWaves is %d, want >= 1", cfg.NumWaves)
	}
	if len(cfg.Harmonics) == 0 {
		return fmt.Errorf("no harmonics given")
	}
	return nil
}

// NewHarmonicTable builds the table by resampling the canonical quantized
// sine table: each output sample's phase is looked up through the
// breakpoint search once per harmonic and the scaled results are summed.
func NewHarmonicTable(cfg HarmonicTableConfig, sine *WaveTable) (*HarmonicTable, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	n := cfg.PeriodSamples
	out := make([]byte, n)
	for x := 0; x < n; x++ {
		cyclePos := float64(x)*float64(cfg.NumWaves)/float64(n) + cfg.PhaseOffset
		var acc float64
		for h, amp := range cfg.Harmonics {
			w := cyclePos * float64(h+1)
			p := uint32(int64(math.Round(w * Cycle))) & PhaseMask
			acc += amp * float64(sine.Lookup(p))
		}
		out[x] = dutyByte(int32(math.Round(clampLevel(acc))))
	}
	return &HarmonicTable{cfg: cfg, Bytes: out}, nil
}

// NewHarmonicTableFourier builds the same waveform analytically, by
// placing each harmonic in its Fourier bin and running one inverse real
// transform. Useful as an independent check of the resampling path and
// when more harmonics are wanted than the breakpoint search is worth.
func NewHarmonicTableFourier(cfg HarmonicTableConfig) (*HarmonicTable, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	n := cfg.PeriodSamples
	fft := fourier.NewFFT(n)
	coeff := make([]complex128, n/2+1)
	for h, amp := range cfg.Harmonics {
		k := (h + 1) * cfg.NumWaves
		if k >= len(coeff) {
			continue // beyond Nyquist of the table; drop, don't alias
		}
		// A sine of amplitude a in bin k needs coefficient -i*a/2 under the
		// unnormalized inverse transform; the phase offset rotates it.
		rot := cmplx.Exp(complex(0, 2*math.Pi*float64(h+1)*cfg.PhaseOffset))
		coeff[k] += complex(0, -amp*FullScaleLevel/2) * rot
	}
	seq := fft.Sequence(nil, coeff)

	out := make([]byte, n)
	for x, v := range seq {
		out[x] = dutyByte(int32(math.Round(clampLevel(v))))
	}
	return &HarmonicTable{cfg: cfg, Bytes: out}, nil
}

// clampLevel saturates a synthesized sum into the signed 8-bit domain.
func clampLevel(v float64) float64 {
	if v > 127 {
		return 127
	}
	if v < -128 {
		return -128
	}
	return v
}

// Config returns the parameters the table was built from.
func (t *HarmonicTable) Config() HarmonicTableConfig {
	return t.cfg
}
