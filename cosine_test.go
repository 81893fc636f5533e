package heterodyne

import (
	"testing"
)

func TestCosineTableEndpoints(t *testing.T) {
	table := NewCosineTable()
	if got := table.Lookup(0); got != 127 {
		t.Errorf("cosine at phase 0 is %d, want 127", got)
	}
	if got := table.Lookup(Cycle / 2); got != -128 {
		t.Errorf("cosine at phase Cycle/2 is %d, want -128", got)
	}
	if n := table.NumSegments(); n != 2*(tableResolution-1) {
		t.Errorf("cosine table has %d segments, want %d", n, 2*(tableResolution-1))
	}
	// The generator's truncated breakpoints put the trough segment one
	// phase unit before the half-cycle midpoint, and the final mirrored
	// segment tops out at 126 with no closing 127 sliver.
	if got := table.Lookup(Cycle/2 - 1); got != -128 {
		t.Errorf("cosine at phase Cycle/2-1 is %d, want -128", got)
	}
	if got := table.Lookup(Cycle - 1); got != 126 {
		t.Errorf("cosine at phase Cycle-1 is %d, want 126", got)
	}
}

// TestCosineAntisymmetry checks table(p + Cycle/2) == -table(p) to within
// one quantization level. The first and last segments get one extra level
// of slack: the asymmetric -128..127 range plus the one-unit truncation of
// the generated breakpoints shift the extremum boundaries.
func TestCosineAntisymmetry(t *testing.T) {
	table := NewCosineTable()
	firstSegEnd := table.starts[1]
	lastSegStart := table.starts[table.NumSegments()-1]
	for p := uint32(0); p < Cycle/2; p += 7 {
		q := p + Cycle/2
		tol := 1
		if p < firstSegEnd || q >= lastSegStart {
			tol = 2
		}
		a := int(table.Lookup(p))
		b := int(table.Lookup(q))
		if sum := a + b; sum < -tol || sum > tol {
			t.Fatalf("table(%d)=%d and table(%d)=%d violate antisymmetry (sum %d)",
				p, a, q, b, sum)
		}
	}
}

// TestCosineMonotone checks the half-cycle monotonicity: non-increasing to
// the trough, non-decreasing back up.
func TestCosineMonotone(t *testing.T) {
	table := NewCosineTable()
	prev := table.Lookup(0)
	for p := uint32(1); p <= Cycle/2; p++ {
		level := table.Lookup(p)
		if level > prev {
			t.Fatalf("cosine increases from %d to %d at phase %d in first half-cycle", prev, level, p)
		}
		prev = level
	}
	for p := uint32(Cycle/2 + 1); p < Cycle; p++ {
		level := table.Lookup(p)
		if level < prev {
			t.Fatalf("cosine decreases from %d to %d at phase %d in second half-cycle", prev, level, p)
		}
		prev = level
	}
}

// TestCosinePartition checks that the binary search agrees with a linear
// scan of the segments, i.e. the breakpoints partition the phase domain
// with no gaps or overlaps.
func TestCosinePartition(t *testing.T) {
	table := NewCosineTable()
	dense := table.Levels()
	if len(dense) != Cycle {
		t.Fatalf("dense table has %d entries, want %d", len(dense), Cycle)
	}
	for p := uint32(0); p < Cycle; p += 13 {
		if got, want := table.Lookup(p), dense[p]; got != want {
			t.Errorf("Lookup(%d)=%d but linear scan says %d", p, got, want)
		}
	}
	// Phases beyond one cycle wrap rather than fall off the table.
	if got, want := table.Lookup(Cycle+5), table.Lookup(5); got != want {
		t.Errorf("Lookup(Cycle+5)=%d, want wrap to Lookup(5)=%d", got, want)
	}
}

func TestSineTable(t *testing.T) {
	table := NewSineTable()
	if got := table.Lookup(0); got != 0 {
		t.Errorf("sine at phase 0 is %d, want 0", got)
	}
	if got := table.Lookup(Cycle / 4); got != 127 {
		t.Errorf("sine at phase Cycle/4 is %d, want 127", got)
	}
	if got := table.Lookup(3 * Cycle / 4); got != -128 {
		t.Errorf("sine at phase 3*Cycle/4 is %d, want -128", got)
	}
	for p := uint32(0); p < Cycle/2; p += 7 {
		a := int(table.Lookup(p))
		b := int(table.Lookup(p + Cycle/2))
		if sum := a + b; sum < -1 || sum > 1 {
			t.Fatalf("sine(%d)=%d and sine(%d)=%d violate antisymmetry (sum %d)",
				p, a, p+Cycle/2, b, sum)
		}
	}
}
