package heterodyne

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sbinet/npyio"
)

// DumpTables writes the quantized cosine table, densely sampled at every
// phase unit, to cosine_table.npy in the given directory. If nsamples > 0
// it also writes duty_window.npy: a window of duty frames synthesized from
// the source's current actual parameters (flat uint8, 4 bytes per frame).
// Both files are numpy-compatible, for inspection against the calibration
// tooling.
func DumpTables(directory string, nsamples int, ss *SynthSource) error {
	if directory == "" {
		return fmt.Errorf("no dump directory given")
	}
	if err := os.MkdirAll(directory, 0775); err != nil {
		return err
	}

	if err := writeNpy(filepath.Join(directory, "cosine_table.npy"), ss.cosine.Levels()); err != nil {
		return err
	}
	if nsamples <= 0 {
		return nil
	}

	frames := synthesizeWindow(ss.cosine,
		ss.chans[0].actualIncrement.Load(), ss.chans[1].actualIncrement.Load(),
		ss.chans[0].actualAmplitude.Load(), ss.chans[1].actualAmplitude.Load(),
		nsamples)
	flat := make([]uint8, 0, 4*len(frames))
	for _, f := range frames {
		flat = append(flat, f[:]...)
	}
	return writeNpy(filepath.Join(directory, "duty_window.npy"), flat)
}

func writeNpy(name string, data interface{}) error {
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	if err := npyio.Write(f, data); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %v", name, err)
	}
	return f.Close()
}

// synthesizeWindow runs the sample path offline: fresh phase accumulators,
// fixed increments and amplitudes, n frames. Shared with the calibration
// dump and the spectral tests; the live source is not disturbed.
func synthesizeWindow(table *WaveTable, incr0, incr1 uint32, amp0, amp1 int32, n int) []DutyFrame {
	var c0, c1 Channel
	c0.actualIncrement.Store(incr0)
	c1.actualIncrement.Store(incr1)
	frames := make([]DutyFrame, n)
	for i := range frames {
		n0 := scaleLevel(amp0, table.Lookup(c0.advance()))
		n1 := scaleLevel(amp1, table.Lookup(c1.advance()))
		frames[i] = mixFrame(n0, n1)
	}
	return frames
}
