package world

import "testing"

func newTestTerrainForSand() *Terrain {
	t := NewTerrain(128, 64)
	for x := 0; x < 128; x++ {
		for y := 60; y < 64; y++ {
			t.rawSet(x, y, Bedrock, false)
		}
	}
	return t
}

func TestSand_SpawnAndWeld(t *testing.T) {
	terrain := newTestTerrainForSand()
	sand := NewSand(terrain, 1000)
	prng := NewPRNG(1)

	detached := []DetachedPixel{{X: 10, Y: 10, Material: Dirt}}
	n := sand.SpawnFromPixels(detached, Vec2f{X: 10, Y: 10}, false, prng)
	if n != 1 {
		t.Fatalf("expected 1 spawned, got %d", n)
	}
	if sand.Count() != 1 {
		t.Fatalf("expected count 1, got %d", sand.Count())
	}

	// Run enough ticks for the particle to fall and weld onto bedrock.
	compute := map[ChunkKey]bool{}
	for i := 0; i < 128/ChunkSize+1; i++ {
		compute[ChunkKey{CX: i, CY: 0}] = true
	}
	for cy := 0; cy <= 64/ChunkSize; cy++ {
		for cx := 0; cx <= 128/ChunkSize; cx++ {
			compute[ChunkKey{CX: cx, CY: cy}] = true
		}
	}

	for tick := uint64(0); tick < 2000 && sand.Count() > 0; tick++ {
		sand.Update(tick, 16, compute, nil, prng)
	}

	if sand.Count() != 0 {
		t.Fatalf("expected particle to weld and die, still have %d", sand.Count())
	}
}

// TestSand_WeldMarksChunkChanged guards against an in-place weld (one that
// doesn't cross a chunk boundary) being dropped from Update's changed-chunk
// report, which would leave terrain_chunk_update/chunk version bumps
// unsent for the common case of a particle settling where it lands.
func TestSand_WeldMarksChunkChanged(t *testing.T) {
	terrain := newTestTerrainForSand()
	sand := NewSand(terrain, 1000)
	prng := NewPRNG(4)

	// Spawn directly on top of the bedrock floor so the particle is
	// immediately supported and welds in place without ever migrating.
	detached := []DetachedPixel{{X: 10, Y: 59, Material: Dirt}}
	sand.SpawnFromPixels(detached, Vec2f{X: 10, Y: 59}, false, prng)
	wantKey := terrain.ChunkKeyAt(10, 59)

	compute := map[ChunkKey]bool{}
	for cy := 0; cy <= 64/ChunkSize; cy++ {
		for cx := 0; cx <= 128/ChunkSize; cx++ {
			compute[ChunkKey{CX: cx, CY: cy}] = true
		}
	}

	for tick := uint64(0); tick < 50; tick++ {
		changed := sand.Update(tick, 16, compute, nil, prng)
		if sand.Count() == 0 {
			for _, k := range changed {
				if k == wantKey {
					return
				}
			}
			t.Fatalf("expected weld to report chunk %v changed, got %v", wantKey, changed)
		}
	}
	t.Fatal("particle never welded within 50 ticks")
}

// TestScheduleInterval_LowPriorityThrottles locks in that buffer-ring
// particles are scheduled less often than compute-ring ones for every
// activity/liquid combination, the mechanism bufferRing's lower-priority
// contract (spec 4.6) is built on.
func TestScheduleInterval_LowPriorityThrottles(t *testing.T) {
	for _, liquid := range []bool{false, true} {
		for _, a := range []activity{activityEdge, activityShell, activityBulk} {
			for _, blob := range []bool{false, true} {
				full := scheduleInterval(liquid, a, blob, false)
				low := scheduleInterval(liquid, a, blob, true)
				if low <= full {
					t.Fatalf("liquid=%v activity=%v blob=%v: low-priority interval %d not greater than full %d",
						liquid, a, blob, low, full)
				}
			}
		}
	}
}

func TestSand_BucketInvariant(t *testing.T) {
	terrain := newTestTerrainForSand()
	sand := NewSand(terrain, 1000)
	prng := NewPRNG(2)

	var detached []DetachedPixel
	for x := 20; x < 30; x++ {
		detached = append(detached, DetachedPixel{X: x, Y: 5, Material: Stone})
	}
	sand.SpawnFromPixels(detached, Vec2f{X: 25, Y: 5}, true, prng)

	compute := map[ChunkKey]bool{}
	for cy := 0; cy <= 64/ChunkSize; cy++ {
		for cx := 0; cx <= 128/ChunkSize; cx++ {
			compute[ChunkKey{CX: cx, CY: cy}] = true
		}
	}

	for tick := uint64(0); tick < 50; tick++ {
		sand.Update(tick, 16, compute, nil, prng)
		for _, bucket := range sand.buckets {
			for i, p := range bucket.particles {
				if p.index != i {
					t.Fatalf("bucket invariant violated: index %d != slot %d", p.index, i)
				}
			}
		}
	}
}

func TestSand_NoOccupancyCollision(t *testing.T) {
	terrain := newTestTerrainForSand()
	sand := NewSand(terrain, 1000)
	prng := NewPRNG(3)

	var detached []DetachedPixel
	for x := 0; x < 40; x++ {
		for y := 0; y < 5; y++ {
			detached = append(detached, DetachedPixel{X: x, Y: y, Material: Dirt})
		}
	}
	sand.SpawnFromPixels(detached, Vec2f{X: 20, Y: 0}, false, prng)

	compute := map[ChunkKey]bool{}
	for cy := 0; cy <= 64/ChunkSize; cy++ {
		for cx := 0; cx <= 128/ChunkSize; cx++ {
			compute[ChunkKey{CX: cx, CY: cy}] = true
		}
	}

	for tick := uint64(0); tick < 200; tick++ {
		sand.Update(tick, 16, compute, nil, prng)
		seen := make(map[int64]bool)
		for _, bucket := range sand.buckets {
			for _, p := range bucket.particles {
				key := packPos(p.X, p.Y)
				if seen[key] {
					t.Fatalf("duplicate occupancy at (%d,%d)", p.X, p.Y)
				}
				seen[key] = true
			}
		}
	}
}
