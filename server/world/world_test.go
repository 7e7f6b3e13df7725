package world

import "testing"

func TestWorld_DeterministicSpawn(t *testing.T) {
	w1 := NewWorld(testConfig())
	w2 := NewWorld(testConfig())

	p1 := w1.AddPlayer()
	p2 := w2.AddPlayer()

	if p1.Pos != p2.Pos {
		t.Fatalf("spawn positions diverged: %v != %v", p1.Pos, p2.Pos)
	}
}

func TestWorld_DeterministicReplay(t *testing.T) {
	w1 := NewWorld(testConfig())
	w2 := NewWorld(testConfig())

	p1 := w1.AddPlayer()
	p2 := w2.AddPlayer()

	for tick := 0; tick < 300; tick++ {
		in := Input{Right: tick%4 != 0, Jump: tick%37 == 0, Sequence: uint32(tick)}
		p1.SetInput(in)
		p2.SetInput(in)
		w1.Advance(TickMillisDefault)
		w2.Advance(TickMillisDefault)
	}

	if p1.Pos != p2.Pos {
		t.Fatalf("player state diverged: %v != %v", p1.Pos, p2.Pos)
	}
	if w1.Tick != w2.Tick {
		t.Fatalf("tick counters diverged: %d != %d", w1.Tick, w2.Tick)
	}
	snap1, snap2 := w1.Terrain.Snapshot(), w2.Terrain.Snapshot()
	for i := range snap1 {
		if snap1[i] != snap2[i] {
			t.Fatalf("terrain diverged at byte %d", i)
			break
		}
	}
}

// TestWorld_BufferRing checks that bufferRing yields the ring of chunks
// between ComputeRadius and ComputeRadius+BufferRadius — kept warm but
// outside the core compute ring (spec 4.6) — and that it is empty when
// BufferRadius is disabled.
func TestWorld_BufferRing(t *testing.T) {
	cfg := testConfig()
	cfg.ComputeRadius = 1
	cfg.BufferRadius = 2
	w := NewWorld(cfg)
	w.AddPlayer()

	compute := w.computeRing()
	if len(compute) == 0 {
		t.Fatalf("expected a non-empty compute ring")
	}
	buffer := w.bufferRing(compute)
	if len(buffer) == 0 {
		t.Fatalf("expected a non-empty buffer ring with BufferRadius=2")
	}
	for k := range buffer {
		if compute[k] {
			t.Fatalf("buffer ring chunk %v also in compute ring", k)
		}
	}

	cfg.BufferRadius = 0
	w2 := NewWorld(cfg)
	w2.AddPlayer()
	if got := w2.bufferRing(w2.computeRing()); got != nil {
		t.Fatalf("expected nil buffer ring with BufferRadius=0, got %v", got)
	}
}

func TestWorld_WrapAround(t *testing.T) {
	w := NewWorld(testConfig())
	p := w.AddPlayer()
	p.Pos.X = float32(w.Terrain.Width() - 1)
	p.Vel.X = 2
	w.sweepHorizontal(p)
	p.Pos.X = wrapFloat(p.Pos.X, float32(w.Terrain.Width()))
	if p.Pos.X >= float32(w.Terrain.Width()) {
		t.Fatalf("player did not wrap: %f", p.Pos.X)
	}
}

func TestWorld_SubstepCapDropsAccumulator(t *testing.T) {
	w := NewWorld(testConfig())
	ticked := w.Advance(TickMillisDefault * 50)
	if ticked != MaxSubsteps {
		t.Fatalf("expected %d substeps, got %d", MaxSubsteps, ticked)
	}
	if w.accumulator != 0 {
		t.Fatalf("expected accumulator reset to 0, got %f", w.accumulator)
	}
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Width = 512
	cfg.Height = 256
	cfg.Seed = 12345
	return cfg
}
