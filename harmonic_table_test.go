package heterodyne

import (
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/dsp/fourier"
)

func TestHarmonicTableValidation(t *testing.T) {
	sine := NewSineTable()
	_, err := NewHarmonicTable(HarmonicTableConfig{PeriodSamples: 0, Harmonics: []float64{1}, NumWaves: 1}, sine)
	assert.Error(t, err, "zero period")
	_, err = NewHarmonicTable(HarmonicTableConfig{PeriodSamples: 64, Harmonics: []float64{1}, NumWaves: 0}, sine)
	assert.Error(t, err, "zero numWaves")
	_, err = NewHarmonicTable(HarmonicTableConfig{PeriodSamples: 64, NumWaves: 1}, sine)
	assert.Error(t, err, "no harmonics")
}

// TestHarmonicTableAgreement: the breakpoint-resampling path and the
// Fourier-synthesis path build the same waveform to within the sine
// table's quantization.
func TestHarmonicTableAgreement(t *testing.T) {
	cfg := HarmonicTableConfig{PeriodSamples: 512, Harmonics: []float64{1}, NumWaves: 1}
	sine := NewSineTable()
	resampled, err := NewHarmonicTable(cfg, sine)
	require.NoError(t, err)
	analytic, err := NewHarmonicTableFourier(cfg)
	require.NoError(t, err)
	assert.Equal(t, cfg, resampled.Config())
	assert.Equal(t, cfg, analytic.Config())
	require.Len(t, resampled.Bytes, 512)
	require.Len(t, analytic.Bytes, 512)
	for x := range resampled.Bytes {
		a, b := int(resampled.Bytes[x]), int(analytic.Bytes[x])
		if diff := a - b; diff < -2 || diff > 2 {
			t.Fatalf("sample %d: resampled %d vs analytic %d", x, a, b)
		}
	}
}

// TestHarmonicTableNumWaves: numWaves repeats the base cycle exactly
// within one period, and the spectrum peaks at that bin.
func TestHarmonicTableNumWaves(t *testing.T) {
	cfg := HarmonicTableConfig{PeriodSamples: 512, Harmonics: []float64{1}, NumWaves: 4}
	table, err := NewHarmonicTable(cfg, NewSineTable())
	require.NoError(t, err)
	for x := 0; x < 512; x++ {
		assert.Equal(t, table.Bytes[x], table.Bytes[(x+128)%512], "sample %d repeats every 128", x)
	}

	seq := make([]float64, 512)
	for i, b := range table.Bytes {
		seq[i] = float64(b) - DutyMid
	}
	fft := fourier.NewFFT(512)
	coeff := fft.Coefficients(nil, seq)
	peak, peakMag := 0, 0.0
	for k := 1; k < len(coeff); k++ {
		if mag := cmplx.Abs(coeff[k]); mag > peakMag {
			peak, peakMag = k, mag
		}
	}
	assert.Equal(t, 4, peak, "dominant bin is numWaves")
}

// TestHarmonicTablePhaseOffset: a quarter-cycle offset turns the base sine
// into a cosine, so the table starts at its positive peak.
func TestHarmonicTablePhaseOffset(t *testing.T) {
	cfg := HarmonicTableConfig{PeriodSamples: 512, Harmonics: []float64{1}, PhaseOffset: 0.25, NumWaves: 1}
	table, err := NewHarmonicTableFourier(cfg)
	require.NoError(t, err)
	assert.EqualValues(t, 255, table.Bytes[0], "peak at sample 0")
	assert.EqualValues(t, DutyMid, table.Bytes[128], "zero crossing a quarter period in")
}

// TestHarmonicTableMultiHarmonic: harmonics beyond the table's Nyquist are
// dropped, not aliased.
func TestHarmonicTableMultiHarmonic(t *testing.T) {
	cfg := HarmonicTableConfig{
		PeriodSamples: 64,
		Harmonics:     []float64{0.5, 0.25, 0, 0, 0, 0, 0, 0.25},
		NumWaves:      8,
	}
	// Harmonic 8 sits at bin 64, beyond the 33 coefficients of a 64-point
	// real transform.
	table, err := NewHarmonicTableFourier(cfg)
	require.NoError(t, err)
	seq := make([]float64, 64)
	for i, b := range table.Bytes {
		seq[i] = float64(b) - DutyMid
	}
	coeff := fourier.NewFFT(64).Coefficients(nil, seq)
	assert.Greater(t, cmplx.Abs(coeff[8]), cmplx.Abs(coeff[16]), "fundamental dominates")
	// An aliased harmonic 8 would land at DC; rounding alone stays small.
	assert.Less(t, cmplx.Abs(coeff[0]), 33.0, "no DC from the dropped harmonic")
}
