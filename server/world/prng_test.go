package world

import "testing"

func TestPRNG_Deterministic(t *testing.T) {
	a := NewPRNG(12345)
	b := NewPRNG(12345)
	for i := 0; i < 1000; i++ {
		if av, bv := a.NextU32(), b.NextU32(); av != bv {
			t.Fatalf("diverged at %d: %d != %d", i, av, bv)
		}
	}
}

func TestPRNG_ZeroSeedRemapped(t *testing.T) {
	p := NewPRNG(0)
	if p.state == 0 {
		t.Fatal("zero seed was not remapped")
	}
}

func TestPRNG_NextFloatRange(t *testing.T) {
	p := NewPRNG(1)
	for i := 0; i < 10000; i++ {
		f := p.NextFloat()
		if f < 0 || f >= 1 {
			t.Fatalf("out of range: %f", f)
		}
	}
}

func TestPRNG_ForkIndependence(t *testing.T) {
	root := NewPRNG(42)
	forkA := root.Fork("terrain")
	root2 := NewPRNG(42)
	forkB := root2.Fork("terrain")

	for i := 0; i < 100; i++ {
		if a, b := forkA.NextU32(), forkB.NextU32(); a != b {
			t.Fatalf("same label produced divergent forks at %d", i)
		}
	}

	forkC := NewPRNG(42).Fork("sand")
	same := true
	for i := 0; i < 16; i++ {
		if forkA.NextU32() != forkC.NextU32() {
			same = false
		}
	}
	if same {
		t.Fatal("different labels produced identical fork streams")
	}
}

func TestPRNG_ForkZeroRemapped(t *testing.T) {
	// Construct a PRNG whose NextU32 happens to produce a value that XORs
	// the label hash to zero is astronomically unlikely to hit by chance;
	// instead directly verify the remap branch behaves by checking no
	// fork ever reports a zero internal state after construction.
	for seed := uint32(1); seed < 50; seed++ {
		f := NewPRNG(seed).Fork("x")
		if f.state == 0 {
			t.Fatalf("fork state was zero for seed %d", seed)
		}
	}
}
